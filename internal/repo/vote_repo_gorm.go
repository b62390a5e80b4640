package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-gin-idea-board/internal/domain"
)

type VoteRepo struct{ db *gorm.DB }

func NewVoteRepo(db *gorm.DB) *VoteRepo { return &VoteRepo{db: db} }

var _ domain.VoteRepository = (*VoteRepo)(nil)

// Toggle 先删；没删到再插，插入冲突交给 (user_id, idea_id) 唯一索引吞掉
func (r *VoteRepo) Toggle(ctx context.Context, userID, ideaID uint) (bool, error) {
	voted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND idea_id = ?", userID, ideaID).Delete(&domain.Vote{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		voted = true
		return tx.Omit("User").
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "idea_id"}},
				DoNothing: true,
			}).
			Create(&domain.Vote{UserID: userID, IdeaID: ideaID}).Error
	})
	if err != nil {
		return false, err
	}
	return voted, nil
}

func (r *VoteRepo) Count(ctx context.Context, ideaID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Vote{}).Where("idea_id = ?", ideaID).Count(&n).Error
	return n, err
}
