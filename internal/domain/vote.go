package domain

import (
	"context"
	"time"
)

// Vote (user_id, idea_id) 由唯一索引保证至多一行
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_votes_user_idea" json:"userId"`
	IdeaID    uint      `gorm:"not null;uniqueIndex:idx_votes_user_idea;index" json:"ideaId"`
	CreatedAt time.Time `json:"createdAt"`

	User User `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

type VoteRepository interface {
	// Toggle 有则删、无则建，返回操作后是否处于已投票状态
	Toggle(ctx context.Context, userID, ideaID uint) (bool, error)
	Count(ctx context.Context, ideaID uint) (int64, error)
}
