package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-gin-idea-board/internal/domain"
)

// AutoMigrate 建表 + 外键 + 唯一索引（ideas.slug、votes(user_id, idea_id)）
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Category{},
		&domain.Status{},
		&domain.Idea{},
		&domain.Comment{},
		&domain.Vote{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// DefaultStatuses 第一个即新想法的初始状态
var DefaultStatuses = []domain.Status{
	{Name: "Open", Classes: "bg-gray-200"},
	{Name: "Considering", Classes: "bg-purple text-white"},
	{Name: "In Progress", Classes: "bg-yellow text-white"},
	{Name: "Implemented", Classes: "bg-green text-white"},
	{Name: "Closed", Classes: "bg-red text-white"},
}

var DefaultCategories = []domain.Category{
	{Name: "Category 1"},
	{Name: "Category 2"},
	{Name: "Category 3"},
	{Name: "Category 4"},
}

// Seed 幂等写入默认分类与状态（按 name 去重）
func Seed(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, s := range DefaultStatuses {
			s := s
			if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&s).Error; err != nil {
				return fmt.Errorf("seed status %q: %w", s.Name, err)
			}
		}
		for _, c := range DefaultCategories {
			c := c
			if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&c).Error; err != nil {
				return fmt.Errorf("seed category %q: %w", c.Name, err)
			}
		}
		return nil
	})
}
