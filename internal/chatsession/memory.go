package chatsession

import (
	"context"
	"sync"
	"time"

	"github.com/openclaw/checkin-kiosk-go/internal/model"
)

type memoryEntry struct {
	mu         sync.Mutex
	turns      []model.Turn
	lastAccess time.Time
	evicted    bool
}

// MemoryStore is a per-process Store. Each session has its own lock; there
// is no store-wide lock.
type MemoryStore struct {
	sessions sync.Map // id -> *memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

type MemoryOption func(*MemoryStore)

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) GetOrCreate(_ context.Context, id string) ([]model.Turn, error) {
	e := s.acquire(id)
	defer e.mu.Unlock()

	history := make([]model.Turn, len(e.turns))
	copy(history, e.turns)
	return history, nil
}

func (s *MemoryStore) Append(_ context.Context, id, user, assistant string) error {
	e := s.acquire(id)
	defer e.mu.Unlock()

	e.turns = append(e.turns, model.UserTurn(user), model.AssistantTurn(assistant))
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context) (int64, error) {
	now := s.now()
	var removed int64

	s.sessions.Range(func(key, value any) bool {
		e := value.(*memoryEntry)
		e.mu.Lock()
		if !e.evicted && s.expired(e, now) {
			e.evicted = true
			s.sessions.CompareAndDelete(key, e)
			removed++
		}
		e.mu.Unlock()
		return true
	})

	return removed, nil
}

// Len counts live sessions, including idle ones the sweep has not reached.
func (s *MemoryStore) Len() int {
	n := 0
	s.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// acquire returns the live entry for id with its lock held and its last
// access refreshed. An entry idle past the TTL is reset in place, so reads
// between sweeps behave as if the sweep already ran.
func (s *MemoryStore) acquire(id string) *memoryEntry {
	for {
		now := s.now()
		value, _ := s.sessions.LoadOrStore(id, &memoryEntry{lastAccess: now})
		e := value.(*memoryEntry)

		e.mu.Lock()
		if e.evicted {
			// The sweep deleted it while we waited; load again.
			e.mu.Unlock()
			continue
		}
		if s.expired(e, now) {
			e.turns = nil
		}
		e.lastAccess = now
		return e
	}
}

func (s *MemoryStore) expired(e *memoryEntry, now time.Time) bool {
	return now.Sub(e.lastAccess) > s.ttl
}
