package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhumataybara/quiz-app/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	ms.Add(sessionFixture())
	reg := NewRegistry(ms, nil)
	reg.SetBroadcaster(&fakeBroadcaster{})
	return reg, ms
}

func TestRegistryGetOrCreateReturnsSameInstance(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	first, err := reg.GetOrCreate(ctx, "g1")
	require.NoError(t, err)
	second, err := reg.GetOrCreate(ctx, "g1")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestRegistryGetOrCreateConcurrent(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	const workers = 16
	sessions := make([]*Session, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := reg.GetOrCreate(ctx, "g1")
			require.NoError(t, err)
			sessions[i] = sess
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, sessions[0], sessions[i])
	}
}

func TestRegistryGetOrCreateUnknownGame(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.GetOrCreate(context.Background(), "missing")
	requireCode(t, err, "GAME_NOT_FOUND")
}

func TestRegistrySessionByCodeIsCaseInsensitive(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	sess, err := reg.SessionByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "g1", sess.GameID())

	upper, err := reg.SessionByCode(ctx, " ABC123 ")
	require.NoError(t, err)
	assert.Same(t, sess, upper)

	_, err = reg.SessionByCode(ctx, "ZZZ999")
	requireCode(t, err, "GAME_NOT_FOUND")
}

func TestRegistryGetAndRemove(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	_, ok := reg.Get("g1")
	assert.False(t, ok)

	created, err := reg.GetOrCreate(ctx, "g1")
	require.NoError(t, err)
	got, ok := reg.Get("g1")
	require.True(t, ok)
	assert.Same(t, created, got)

	reg.Remove("g1")
	_, ok = reg.Get("g1")
	assert.False(t, ok)

	// Removing twice is harmless.
	reg.Remove("g1")
}

func TestRegistrySessions(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	assert.Empty(t, reg.Sessions())

	sess, err := reg.GetOrCreate(ctx, "g1")
	require.NoError(t, err)
	_, _, err = sess.Join(ctx, "conn-1", "Alex")
	require.NoError(t, err)

	infos := reg.Sessions()
	require.Len(t, infos, 1)
	assert.Equal(t, "g1", infos[0].GameID)
	assert.Equal(t, "ABC123", infos[0].RoomCode)
	assert.Equal(t, 1, infos[0].PlayerCount)
	assert.Equal(t, 1, infos[0].ConnectedCount)
}
