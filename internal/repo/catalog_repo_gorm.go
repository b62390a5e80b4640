package repo

import (
	"context"

	"gorm.io/gorm"

	"go-gin-idea-board/internal/domain"
)

type CatalogRepo struct{ db *gorm.DB }

func NewCatalogRepo(db *gorm.DB) *CatalogRepo { return &CatalogRepo{db: db} }

var _ domain.CatalogRepository = (*CatalogRepo)(nil)

func (r *CatalogRepo) Categories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := r.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

func (r *CatalogRepo) Statuses(ctx context.Context) ([]domain.Status, error) {
	var out []domain.Status
	err := r.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

func (r *CatalogRepo) CategoryByID(ctx context.Context, id uint) (*domain.Category, error) {
	var c domain.Category
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CatalogRepo) StatusByID(ctx context.Context, id uint) (*domain.Status, error) {
	var s domain.Status
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *CatalogRepo) InitialStatus(ctx context.Context) (*domain.Status, error) {
	var s domain.Status
	if err := r.db.WithContext(ctx).Order("id").First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// StatusCounts 每个状态都有一行，没有想法的状态计 0
func (r *CatalogRepo) StatusCounts(ctx context.Context) ([]domain.StatusCount, error) {
	var out []domain.StatusCount
	err := r.db.WithContext(ctx).
		Table("statuses").
		Select("statuses.id AS status_id, COUNT(ideas.id) AS total").
		Joins("LEFT JOIN ideas ON ideas.status_id = statuses.id").
		Group("statuses.id").
		Order("statuses.id").
		Scan(&out).Error
	return out, err
}
