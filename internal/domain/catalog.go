package domain

import "context"

// AllCategories / AllStatuses 列表筛选中表示“不限”的哨兵值
const (
	AllCategories = "All Categories"
	AllStatuses   = "All Statuses"
)

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:64;not null" json:"name"`
}

type Status struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Classes string `gorm:"size:128;not null;default:''" json:"classes"`
}

// StatusCount 某状态下的想法数量（状态筛选 tab 用）
type StatusCount struct {
	StatusID uint  `json:"statusId"`
	Total    int64 `json:"total"`
}

type CatalogRepository interface {
	Categories(ctx context.Context) ([]Category, error)
	Statuses(ctx context.Context) ([]Status, error)
	CategoryByID(ctx context.Context, id uint) (*Category, error)
	StatusByID(ctx context.Context, id uint) (*Status, error)
	// InitialStatus 新建想法的默认状态（id 最小的状态）
	InitialStatus(ctx context.Context) (*Status, error)
	StatusCounts(ctx context.Context) ([]StatusCount, error)
}
