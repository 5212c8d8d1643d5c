package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "checkins:evt-1", CheckinChannel("evt-1"))
	assert.Equal(t, "chat:session:s1", ChatSessionKey("s1"))
}

func TestNewClient(t *testing.T) {
	t.Run("rejects malformed url", func(t *testing.T) {
		_, err := NewClient(context.Background(), "://not-a-url")
		assert.Error(t, err)
	})

	t.Run("fails when nothing listens", func(t *testing.T) {
		_, err := NewClient(context.Background(), "redis://127.0.0.1:1/0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ping redis")
	})
}
