package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-gin-idea-board/internal/domain"
	"go-gin-idea-board/pkg/utils"
)

// slug 并发冲突时的重试次数
const slugRetries = 5

type IdeaRepo struct{ db *gorm.DB }

func NewIdeaRepo(db *gorm.DB) *IdeaRepo { return &IdeaRepo{db: db} }

var _ domain.IdeaRepository = (*IdeaRepo)(nil)

// withCounts 评论数、票数、当前访客是否已投票，均为相关子查询
func withCounts(viewerID uint) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Select(`ideas.*,
			(SELECT COUNT(*) FROM comments WHERE comments.idea_id = ideas.id) AS comments_count,
			(SELECT COUNT(*) FROM votes WHERE votes.idea_id = ideas.id) AS votes_count,
			EXISTS (SELECT 1 FROM votes WHERE votes.idea_id = ideas.id AND votes.user_id = ?) AS voted_by_user`,
			viewerID)
	}
}

func withRelations(tx *gorm.DB) *gorm.DB {
	return tx.Preload("User").Preload("Category").Preload("Status")
}

func (r *IdeaRepo) List(ctx context.Context, f domain.IdeaFilter) ([]domain.Idea, int64, error) {
	filter := func(tx *gorm.DB) *gorm.DB {
		tx = tx.Model(&domain.Idea{})
		if f.Category != "" {
			tx = tx.Where("ideas.category_id IN (?)",
				r.db.Model(&domain.Category{}).Select("id").Where("name = ?", f.Category))
		}
		if f.Status != "" {
			tx = tx.Where("ideas.status_id IN (?)",
				r.db.Model(&domain.Status{}).Select("id").Where("name = ?", f.Status))
		}
		return tx
	}

	var total int64
	if err := r.db.WithContext(ctx).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	ideas := []domain.Idea{}
	if int64(f.Offset) >= total {
		return ideas, total, nil
	}
	err := r.db.WithContext(ctx).
		Scopes(filter, withCounts(f.ViewerID), withRelations).
		Order("ideas.id DESC").
		Offset(f.Offset).Limit(f.Limit).
		Find(&ideas).Error
	if err != nil {
		return nil, 0, err
	}
	return ideas, total, nil
}

func (r *IdeaRepo) FindBySlug(ctx context.Context, slug string, viewerID uint) (*domain.Idea, error) {
	var idea domain.Idea
	err := r.db.WithContext(ctx).
		Model(&domain.Idea{}).
		Scopes(withCounts(viewerID), withRelations).
		Where("ideas.slug = ?", slug).
		First(&idea).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &idea, nil
}

func (r *IdeaRepo) FindByID(ctx context.Context, id uint) (*domain.Idea, error) {
	var idea domain.Idea
	err := r.db.WithContext(ctx).Scopes(withRelations).First(&idea, "ideas.id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &idea, nil
}

// Create 先查出同前缀的 slug 取下一个可用值；并发撞唯一索引时重算
func (r *IdeaRepo) Create(ctx context.Context, idea *domain.Idea) error {
	base := utils.Slugify(idea.Title)
	for attempt := 0; attempt < slugRetries; attempt++ {
		var taken []string
		if err := r.db.WithContext(ctx).Model(&domain.Idea{}).
			Where("slug = ? OR slug LIKE ?", base, base+"-%").
			Pluck("slug", &taken).Error; err != nil {
			return err
		}
		idea.Slug = utils.NextSlug(base, taken)
		err := r.db.WithContext(ctx).Omit(clause.Associations).Create(idea).Error
		if err == nil {
			return nil
		}
		if !isDupKey(err) {
			return err
		}
		idea.ID = 0
	}
	return fmt.Errorf("allocate slug for %q: %w", base, gorm.ErrDuplicatedKey)
}

func (r *IdeaRepo) DeleteWith(ctx context.Context, id uint, guard func(*domain.Idea) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var idea domain.Idea
		if err := tx.First(&idea, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if guard != nil {
			if err := guard(&idea); err != nil {
				return err
			}
		}
		if err := tx.Where("idea_id = ?", id).Delete(&domain.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("idea_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Idea{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *IdeaRepo) UpdateStatus(ctx context.Context, id, statusID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Idea{}).
		Where("id = ? AND status_id <> ?", id, statusID).
		Update("status_id", statusID)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Idea{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	if n == 0 {
		return false, domain.ErrNotFound
	}
	return false, nil
}

func (r *IdeaRepo) Voters(ctx context.Context, ideaID uint) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&domain.Vote{}).Select("user_id").Where("idea_id = ?", ideaID)).
		Order("id").
		Find(&users).Error
	return users, err
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 未开启 TranslateError 的连接
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate") || strings.Contains(s, "unique constraint")
}
