package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "session:", time.Hour), mr
}

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	s, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.True(t, s.Empty())

	s.State = "form:profile:3"
	s.Set("fio", "Иванов Иван")
	s.Set("height", "170")
	require.NoError(t, store.Save(ctx, 42, s))

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "form:profile:3", got.State)
	assert.Equal(t, "Иванов Иван", got.Data["fio"])
	assert.Equal(t, "170", got.Data["height"])

	other, err := store.Get(ctx, 43)
	require.NoError(t, err)
	assert.True(t, other.Empty())

	require.NoError(t, store.Clear(ctx, 42))
	got, err = store.Get(ctx, 42)
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s := New()
	s.Set("k", "v")
	require.NoError(t, store.Save(ctx, 1, s))

	s.Set("k", "mutated")
	got, _ := store.Get(ctx, 1)
	assert.Equal(t, "v", got.Data["k"])
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t)
	exerciseStore(t, store)
}

func TestRedisStore_Expires(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	s := New()
	s.State = "labs:add"
	require.NoError(t, store.Save(ctx, 7, s))
	assert.True(t, mr.Exists("session:7"))

	mr.FastForward(2 * time.Hour)

	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestSessionHelpers(t *testing.T) {
	s := &Session{}
	s.Set("id", "15")
	assert.Equal(t, "15", s.Data["id"])

	c := s.Clone()
	c.Set("id", "16")
	assert.Equal(t, "15", s.Data["id"])

	s.Reset()
	assert.True(t, s.Empty())
}
