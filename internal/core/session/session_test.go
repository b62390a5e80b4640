package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetPull(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour)

	v, err := m.Get(ctx, "s1", KeyPreviousURL)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, m.Set(ctx, "s1", KeyPreviousURL, "/?category=Category+1"))
	require.NoError(t, m.Set(ctx, "s1", KeyFlash, "done"))

	v, _ = m.Get(ctx, "s1", KeyPreviousURL)
	assert.Equal(t, "/?category=Category+1", v)
	v, _ = m.Get(ctx, "s2", KeyPreviousURL)
	assert.Empty(t, v, "sessions are isolated")

	v, _ = m.Pull(ctx, "s1", KeyFlash)
	assert.Equal(t, "done", v)
	v, _ = m.Pull(ctx, "s1", KeyFlash)
	assert.Empty(t, v, "flash is one-shot")
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "s", KeyPreviousURL, "/"))
	now = now.Add(2 * time.Minute)
	v, _ := m.Get(ctx, "s", KeyPreviousURL)
	assert.Empty(t, v)
}

func TestMemory_SweepsExpiredSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }
	m.lastSweep = now

	for i := 0; i < 1000; i++ {
		require.NoError(t, m.Set(ctx, fmt.Sprintf("guest-%d", i), KeyPreviousURL, "/"))
	}
	require.Len(t, m.data, 1000)

	now = now.Add(30 * time.Second)
	require.NoError(t, m.Set(ctx, "active", KeyPreviousURL, "/"))
	assert.Len(t, m.data, 1001, "nothing expired yet")

	now = now.Add(45 * time.Second)
	require.NoError(t, m.Set(ctx, "fresh", KeyPreviousURL, "/ideas/x"))
	assert.Len(t, m.data, 2, "only live sessions remain")
	v, _ := m.Get(ctx, "active", KeyPreviousURL)
	assert.Equal(t, "/", v)
}
