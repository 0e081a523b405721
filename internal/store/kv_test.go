package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestKV(t *testing.T) *RedisKV {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisKV(client)
}

func TestRedisKV_SetGet(t *testing.T) {
	kv := setupTestKV(t)
	ctx := context.Background()

	key := LatestVitalKey("user-1", "heart_rate")
	require.NoError(t, kv.Set(ctx, key, `{"type":"heart_rate"}`, time.Hour))

	val, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"heart_rate"}`, val)
}

func TestRedisKV_GetMiss(t *testing.T) {
	kv := setupTestKV(t)

	_, err := kv.Get(context.Background(), LatestVitalKey("user-1", "ecg"))
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisKV_ScanKeysByUser(t *testing.T) {
	kv := setupTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, LatestVitalKey("user-1", "steps"), "a", 0))
	require.NoError(t, kv.Set(ctx, LatestVitalKey("user-1", "blood_glucose"), "b", 0))
	require.NoError(t, kv.Set(ctx, LatestVitalKey("user-2", "steps"), "c", 0))

	keys, err := kv.ScanKeys(ctx, LatestVitalPattern("user-1"))
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	for _, k := range keys {
		assert.Contains(t, k, "user-1")
	}
}
