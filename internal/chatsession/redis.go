package chatsession

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openclaw/checkin-kiosk-go/internal/model"
	redisclient "github.com/openclaw/checkin-kiosk-go/internal/redis"
)

// RedisStore keeps each session as a list of JSON turns whose key expires
// after the TTL. Redis handles eviction, so Sweep does nothing.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) GetOrCreate(ctx context.Context, id string) ([]model.Turn, error) {
	key := redisclient.ChatSessionKey(id)

	var values *redis.StringSliceCmd
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		values = pipe.LRange(ctx, key, 0, -1)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load chat session: %w", err)
	}

	raw := values.Val()
	history := make([]model.Turn, 0, len(raw))
	for _, item := range raw {
		var turn model.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("decode chat turn: %w", err)
		}
		history = append(history, turn)
	}
	return history, nil
}

func (s *RedisStore) Append(ctx context.Context, id, user, assistant string) error {
	userTurn, err := json.Marshal(model.UserTurn(user))
	if err != nil {
		return err
	}
	assistantTurn, err := json.Marshal(model.AssistantTurn(assistant))
	if err != nil {
		return err
	}

	key := redisclient.ChatSessionKey(id)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, userTurn, assistantTurn)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append chat session: %w", err)
	}
	return nil
}

func (s *RedisStore) Sweep(context.Context) (int64, error) {
	return 0, nil
}
