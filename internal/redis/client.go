package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

type Client struct {
	*redis.Client
}

// NewClient parses a redis:// or rediss:// URL and fails unless the server
// answers a PING.
func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	c := &Client{redis.NewClient(opts)}
	if err := c.Ready(ctx); err != nil {
		c.Client.Close()
		return nil, err
	}
	return c, nil
}

// Ready pings with a short timeout. Used at startup and by /health.
func (c *Client) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// CheckinChannel is the pub/sub channel carrying live check-ins for an event.
func CheckinChannel(eventID string) string {
	return fmt.Sprintf("checkins:%s", eventID)
}

// ChatSessionKey holds the ordered turn list of one kiosk conversation.
func ChatSessionKey(sessionID string) string {
	return fmt.Sprintf("chat:session:%s", sessionID)
}
