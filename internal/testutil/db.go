// Package testutil 测试用内存库与数据构造
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"go-gin-idea-board/internal/core/database"
	"go-gin-idea-board/internal/domain"
)

var seq atomic.Int64

// NewDB 每个测试一份独立的 sqlite 内存库，已迁移并写入默认分类/状态
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=1", name, seq.Add(1))
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          dsn,
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.Seed(context.Background(), db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func MakeUser(t testing.TB, db *gorm.DB, name string, admin bool) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Name:         name,
		PasswordHash: "x",
		IsAdmin:      admin,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func Category(t testing.TB, db *gorm.DB, name string) *domain.Category {
	t.Helper()
	var c domain.Category
	require.NoError(t, db.Where("name = ?", name).First(&c).Error)
	return &c
}

func Status(t testing.TB, db *gorm.DB, name string) *domain.Status {
	t.Helper()
	var s domain.Status
	require.NoError(t, db.Where("name = ?", name).First(&s).Error)
	return &s
}

// MakeIdea 直接落库（slug 由调用方给定），默认 Category 1 / Open
func MakeIdea(t testing.TB, db *gorm.DB, author *domain.User, title, slug string) *domain.Idea {
	t.Helper()
	i := &domain.Idea{
		UserID:      author.ID,
		CategoryID:  Category(t, db, "Category 1").ID,
		StatusID:    Status(t, db, "Open").ID,
		Title:       title,
		Slug:        slug,
		Description: "description of " + title,
	}
	require.NoError(t, db.Omit("User", "Category", "Status").Create(i).Error)
	return i
}

func MakeComment(t testing.TB, db *gorm.DB, author *domain.User, idea *domain.Idea, body string) *domain.Comment {
	t.Helper()
	c := &domain.Comment{IdeaID: idea.ID, UserID: author.ID, Body: body}
	require.NoError(t, db.Omit("User").Create(c).Error)
	return c
}

func MakeVote(t testing.TB, db *gorm.DB, u *domain.User, idea *domain.Idea) {
	t.Helper()
	require.NoError(t, db.Omit("User").Create(&domain.Vote{UserID: u.ID, IdeaID: idea.ID}).Error)
}
