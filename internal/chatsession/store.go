// Package chatsession keeps the short-lived turn history of kiosk
// conversations. Losing a session is harmless: the next call starts fresh.
package chatsession

import (
	"context"

	"github.com/openclaw/checkin-kiosk-go/internal/model"
)

type Store interface {
	// GetOrCreate returns the ordered history for id, starting an empty one
	// on first use, and refreshes its last access time.
	GetOrCreate(ctx context.Context, id string) ([]model.Turn, error)
	// Append records one exchange: the user turn immediately followed by
	// the assistant turn.
	Append(ctx context.Context, id, user, assistant string) error
	// Sweep removes idle sessions and reports how many it removed.
	Sweep(ctx context.Context) (int64, error)
}
