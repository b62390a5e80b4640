package domain

import (
	"context"
	"time"
)

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IdeaID    uint      `gorm:"not null;index" json:"ideaId"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	User User `gorm:"constraint:OnDelete:CASCADE;" json:"user"`
}

type CommentRepository interface {
	Create(ctx context.Context, c *Comment) error
	FindByID(ctx context.Context, id uint) (*Comment, error)
	// UpdateWith 在同一事务内执行 guard 后更新 body
	UpdateWith(ctx context.Context, id uint, guard func(*Comment) error, body string) (*Comment, error)
	ListByIdea(ctx context.Context, ideaID uint, offset, limit int) ([]Comment, int64, error)
}
