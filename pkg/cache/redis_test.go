package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a test Redis client using miniredis
func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	opts := &redis.Options{
		Addr: mr.Addr(),
	}
	client := NewClientFromRedis(redis.NewClient(opts))

	return client, mr
}

func TestClient_SetGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	err := client.Set(ctx, "test:key1", "value1", 1*time.Hour)
	require.NoError(t, err)

	val, err := client.Get(ctx, "test:key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", val)
}

func TestClient_SetGetJSON(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	type payload struct {
		Type   string  `json:"type"`
		AvgLTV float64 `json:"avg_ltv"`
	}

	err := client.SetJSON(ctx, "analytics:report:ltv:monthly:all", payload{Type: "ltv", AvgLTV: 42.5}, time.Hour)
	require.NoError(t, err)

	var got payload
	err = client.GetJSON(ctx, "analytics:report:ltv:monthly:all", &got)
	require.NoError(t, err)
	assert.Equal(t, payload{Type: "ltv", AvgLTV: 42.5}, got)
}

func TestClient_GetJSONMiss(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	var dest map[string]interface{}
	err := client.GetJSON(context.Background(), "missing", &dest)
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestClient_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	_ = client.Set(ctx, "test:key1", "value1", 1*time.Hour)
	_ = client.Set(ctx, "test:key2", "value2", 1*time.Hour)

	err := client.Delete(ctx, "test:key1")
	require.NoError(t, err)

	_, err = client.Get(ctx, "test:key1")
	assert.Error(t, err) // Should be redis.Nil error

	val, err := client.Get(ctx, "test:key2")
	require.NoError(t, err)
	assert.Equal(t, "value2", val)
}

func TestClient_InvalidateReports(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	_ = client.Set(ctx, ReportKey("ltv", "monthly", ""), "{}", time.Hour)
	_ = client.Set(ctx, ReportKey("retention", "weekly", "dev-1"), "{}", time.Hour)
	_ = client.Set(ctx, "session:abc", "keep", time.Hour)

	err := client.InvalidateReports(ctx)
	require.NoError(t, err)

	exists, err := client.Exists(ctx, ReportKey("ltv", "monthly", ""))
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = client.Exists(ctx, "session:abc")
	require.NoError(t, err)
	assert.True(t, exists, "non-report keys must survive invalidation")
}

func TestReportKey(t *testing.T) {
	assert.Equal(t, "analytics:report:ltv:monthly:all", ReportKey("ltv", "monthly", ""))
	assert.Equal(t, "analytics:report:retention:weekly:dev-1", ReportKey("retention", "weekly", "dev-1"))
}

func TestClient_TTLAndExpire(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	_ = client.Set(ctx, "test:key", "v", time.Hour)

	ttl, err := client.TTL(ctx, "test:key")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	err = client.Expire(ctx, "test:key", 30*time.Minute)
	require.NoError(t, err)

	ttl, err = client.TTL(ctx, "test:key")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, ttl)
}
