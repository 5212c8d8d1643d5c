package chatsession

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/checkin-kiosk-go/internal/model"
	redisclient "github.com/openclaw/checkin-kiosk-go/internal/redis"
)

var _ Store = (*RedisStore)(nil)

func setupTestRedis(t *testing.T) *goredis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)

	client := goredis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skip("redis not reachable, skipping")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	store := NewRedisStore(client, time.Minute)
	id := uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, redisclient.ChatSessionKey(id)) })

	history, err := store.GetOrCreate(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, store.Append(ctx, id, "hi", "hello"))
	require.NoError(t, store.Append(ctx, id, "where am I seated?", "Hall A."))

	history, err = store.GetOrCreate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []model.Turn{
		model.UserTurn("hi"),
		model.AssistantTurn("hello"),
		model.UserTurn("where am I seated?"),
		model.AssistantTurn("Hall A."),
	}, history)

	ttl, err := client.TTL(ctx, redisclient.ChatSessionKey(id)).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}
