package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := NewRedis(RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store, mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		store, _ := setupRedisStore(t)

		val, ok, err := store.Get(ctx, "cau_missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("set then get", func(t *testing.T) {
		store, mr := setupRedisStore(t)

		require.NoError(t, store.Set(ctx, "cau_demo", []byte(`{"version":"1.2.0"}`), 150*time.Second))

		val, ok, err := store.Get(ctx, "cau_demo")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"version":"1.2.0"}`, string(val))
		assert.Equal(t, 150*time.Second, mr.TTL("cau_demo"))
	})

	t.Run("expires", func(t *testing.T) {
		store, mr := setupRedisStore(t)

		require.NoError(t, store.Set(ctx, "cau_demo", []byte("x"), 150*time.Second))
		mr.FastForward(151 * time.Second)

		_, ok, err := store.Get(ctx, "cau_demo")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("server gone", func(t *testing.T) {
		store, mr := setupRedisStore(t)
		mr.Close()

		_, ok, err := store.Get(ctx, "cau_demo")
		assert.Error(t, err)
		assert.False(t, ok)
	})
}

func TestNewRedisBadURL(t *testing.T) {
	_, err := NewRedis(RedisOptions{URL: "not-a-url://"})
	assert.Error(t, err)
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := Open(Config{Backend: BackendRedis, RedisURL: fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, err)
	defer store.(*Redis).Close()

	assert.IsType(t, &Redis{}, store)
}
