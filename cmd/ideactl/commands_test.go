package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-gin-idea-board/internal/domain"
	"go-gin-idea-board/internal/repo"
	"go-gin-idea-board/internal/testutil"
)

func TestGrantAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.MakeUser(t, db, "Ada", false)
	users := repo.NewUserRepo(db)
	ctx := context.Background()

	require.NoError(t, grantAdmin(ctx, users, "  ADA@example.com ", true, zap.NewNop()))
	got, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)

	require.NoError(t, grantAdmin(ctx, users, "ada@example.com", false, zap.NewNop()))
	got, err = users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAdmin)

	err = grantAdmin(ctx, users, "nobody@example.com", true, zap.NewNop())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"migrate", "seed", "worker", "grant-admin"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
