package domain

import (
	"context"
	"time"
)

type Idea struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"userId"`
	CategoryID  uint      `gorm:"not null;index" json:"categoryId"`
	StatusID    uint      `gorm:"not null;index" json:"statusId"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Slug        string    `gorm:"uniqueIndex;size:191;not null" json:"slug"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	User     User      `gorm:"constraint:OnDelete:CASCADE;" json:"user"`
	Category Category  `json:"category"`
	Status   Status    `json:"status"`
	Comments []Comment `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Votes    []Vote    `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	// 查询时由子查询填充，不落库
	CommentsCount int64 `gorm:"->;-:migration" json:"commentsCount"`
	VotesCount    int64 `gorm:"->;-:migration" json:"votesCount"`
	VotedByUser   bool  `gorm:"->;-:migration" json:"votedByUser"`
}

// IdeaFilter 列表筛选条件；空字符串表示该维度不限
type IdeaFilter struct {
	Category string
	Status   string
	ViewerID uint
	Offset   int
	Limit    int
}

type IdeaRepository interface {
	List(ctx context.Context, f IdeaFilter) ([]Idea, int64, error)
	FindBySlug(ctx context.Context, slug string, viewerID uint) (*Idea, error)
	FindByID(ctx context.Context, id uint) (*Idea, error)
	// Create 按标题生成唯一 slug 后写入
	Create(ctx context.Context, idea *Idea) error
	// DeleteWith 在同一事务内执行 guard 并级联删除评论、投票
	DeleteWith(ctx context.Context, id uint, guard func(*Idea) error) error
	// UpdateStatus 返回状态是否真的发生变化
	UpdateStatus(ctx context.Context, id, statusID uint) (bool, error)
	Voters(ctx context.Context, ideaID uint) ([]User, error)
}
