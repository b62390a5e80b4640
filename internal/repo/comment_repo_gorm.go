package repo

import (
	"context"

	"gorm.io/gorm"

	"go-gin-idea-board/internal/domain"
)

type CommentRepo struct{ db *gorm.DB }

func NewCommentRepo(db *gorm.DB) *CommentRepo { return &CommentRepo{db: db} }

var _ domain.CommentRepository = (*CommentRepo)(nil)

func (r *CommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(c).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Preload("User").First(c, "id = ?", c.ID).Error
}

func (r *CommentRepo) FindByID(ctx context.Context, id uint) (*domain.Comment, error) {
	var c domain.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CommentRepo) UpdateWith(ctx context.Context, id uint, guard func(*domain.Comment) error, body string) (*domain.Comment, error) {
	var out domain.Comment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if guard != nil {
			if err := guard(&out); err != nil {
				return err
			}
		}
		if err := tx.Model(&out).Update("body", body).Error; err != nil {
			return err
		}
		return tx.Preload("User").First(&out, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByIdea 按创建顺序分页
func (r *CommentRepo) ListByIdea(ctx context.Context, ideaID uint, offset, limit int) ([]domain.Comment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Comment{}).Where("idea_id = ?", ideaID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Comment
	err := r.db.WithContext(ctx).Preload("User").
		Where("idea_id = ?", ideaID).
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
