package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-idea-board/internal/domain"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	cases := []struct {
		name, in, user, pass, want string
	}{
		{"native untouched", "u:p@tcp(db:3306)/ideas?parseTime=true", "", "", "u:p@tcp(db:3306)/ideas?parseTime=true"},
		{"url form", "mysql://u:p@db:3306/ideas", "", "", "u:p@tcp(db:3306)/ideas?charset=utf8mb4&parseTime=true"},
		{"jdbc with overrides", "jdbc:mysql://db:3306/ideas?useSSL=false&serverTimezone=UTC", "root", "pw",
			"root:pw@tcp(db:3306)/ideas?charset=utf8mb4&loc=UTC&parseTime=true&tls=false"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeMySQLDSN(tc.in, tc.user, tc.pass))
		})
	}
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "u:****@tcp(db)/x", maskDSN("u:secret@tcp(db)/x"))
	assert.Equal(t, "file.db", maskDSN("file.db"))
}

func TestNewGorm_UnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestMigrateAndSeedIdempotent(t *testing.T) {
	db, err := NewGorm(Opts{
		Driver:       "sqlite",
		DSN:          "file:migrate_seed?mode=memory&cache=shared&_foreign_keys=1",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	ctx := context.Background()
	require.NoError(t, Seed(ctx, db))
	require.NoError(t, Seed(ctx, db))

	var statuses []domain.Status
	require.NoError(t, db.Order("id").Find(&statuses).Error)
	require.Len(t, statuses, len(DefaultStatuses))
	assert.Equal(t, "Open", statuses[0].Name)
	assert.Equal(t, "bg-gray-200", statuses[0].Classes)

	var n int64
	require.NoError(t, db.Model(&domain.Category{}).Count(&n).Error)
	assert.EqualValues(t, len(DefaultCategories), n)
}
