package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/checkin-kiosk-go/internal/model"
	"github.com/openclaw/checkin-kiosk-go/internal/sse"
)

type fakeBroker struct {
	mu           sync.Mutex
	client       *sse.Client
	subscribed   string
	unsubscribed bool
}

func newFakeBroker(pending ...sse.Event) *fakeBroker {
	client := &sse.Client{
		Events: make(chan sse.Event, len(pending)+1),
		Done:   make(chan struct{}),
	}
	for _, e := range pending {
		client.Events <- e
	}
	return &fakeBroker{client: client}
}

func (b *fakeBroker) Subscribe(eventID string) *sse.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribed = eventID
	b.client.EventID = eventID
	return b.client
}

func (b *fakeBroker) Unsubscribe(*sse.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribed = true
}

type mockActivity struct {
	mock.Mock
}

func (m *mockActivity) FindByEventID(ctx context.Context, eventID string, limit, offset int) ([]model.ActivityLog, error) {
	args := m.Called(ctx, eventID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityLog), args.Error(1)
}

// flushRecorder runs onFlush after every flush so tests can end the stream
// once the expected frames are out.
type flushRecorder struct {
	*httptest.ResponseRecorder
	flushes int
	onFlush func(n int)
}

func (f *flushRecorder) Flush() {
	f.ResponseRecorder.Flush()
	f.flushes++
	if f.onFlush != nil {
		f.onFlush(f.flushes)
	}
}

func eventsRouter(h *EventsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/events/{eventID}/checkins/stream", h.Stream)
	r.Get("/v1/events/{eventID}/activity", h.Activity)
	return r
}

func TestEventsHandler_Stream(t *testing.T) {
	t.Run("streams connected then check-in events", func(t *testing.T) {
		eventID := uuid.NewString()
		guest := testGuest()
		checkIn, err := sse.NewCheckInEvent(guest, "face")
		require.NoError(t, err)

		broker := newFakeBroker(checkIn)
		h := NewEventsHandler(broker, new(mockActivity))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		rec := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
		rec.onFlush = func(n int) {
			if n == 2 {
				cancel()
			}
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/events/"+eventID+"/checkins/stream", nil).WithContext(ctx)

		done := make(chan struct{})
		go func() {
			eventsRouter(h).ServeHTTP(rec, req)
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("stream did not stop after context cancel")
		}

		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

		body := rec.Body.String()
		assert.Contains(t, body, "event: connected\ndata: {\"eventId\":\""+eventID+"\"}\n\n")
		assert.Contains(t, body, "event: guest_checked_in\n")
		assert.Contains(t, body, guest.FullName)

		assert.Equal(t, eventID, broker.subscribed)
		assert.True(t, broker.unsubscribed)
	})

	t.Run("broker close ends the stream", func(t *testing.T) {
		broker := newFakeBroker()
		close(broker.client.Done)
		h := NewEventsHandler(broker, new(mockActivity))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/events/"+uuid.NewString()+"/checkins/stream", nil)

		eventsRouter(h).ServeHTTP(rec, req)

		assert.Contains(t, rec.Body.String(), "event: connected\n")
		assert.True(t, broker.unsubscribed)
	})

	t.Run("heartbeat writes a comment frame", func(t *testing.T) {
		broker := newFakeBroker()
		h := NewEventsHandler(broker, new(mockActivity))
		h.heartbeat = 10 * time.Millisecond

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		rec := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
		rec.onFlush = func(n int) {
			if n == 2 {
				cancel()
			}
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/events/"+uuid.NewString()+"/checkins/stream", nil).WithContext(ctx)
		eventsRouter(h).ServeHTTP(rec, req)

		assert.Contains(t, rec.Body.String(), ": ping\n\n")
	})

	t.Run("rejects non-uuid event id", func(t *testing.T) {
		broker := newFakeBroker()
		h := NewEventsHandler(broker, new(mockActivity))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/events/lobby/checkins/stream", nil)
		eventsRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, broker.subscribed)
	})
}

func TestEventsHandler_sendRawEvent(t *testing.T) {
	h := &EventsHandler{}
	rec := httptest.NewRecorder()

	err := h.sendRawEvent(rec, rec, sse.Event{
		Type: "guest_checked_in",
		Data: json.RawMessage(`{"guestId":"g-1"}`),
	})

	assert.NoError(t, err)
	assert.Equal(t, "event: guest_checked_in\ndata: {\"guestId\":\"g-1\"}\n\n", rec.Body.String())
}

func TestEventsHandler_Activity(t *testing.T) {
	t.Run("lists entries with pagination", func(t *testing.T) {
		activity := new(mockActivity)
		h := NewEventsHandler(newFakeBroker(), activity)

		eventID := uuid.NewString()
		guestID := uuid.NewString()
		activity.On("FindByEventID", mock.Anything, eventID, 10, 20).Return([]model.ActivityLog{{
			ID:        uuid.NewString(),
			EventID:   eventID,
			GuestID:   &guestID,
			Action:    model.ActivityCheckedIn,
			Details:   "Ada Lovelace checked in",
			CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		}}, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/events/"+eventID+"/activity?limit=10&offset=20", nil)
		eventsRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		items := body["items"].([]any)
		require.Len(t, items, 1)
		item := items[0].(map[string]any)
		assert.Equal(t, "checked_in", item["action"])
		assert.Equal(t, guestID, item["guestId"])
		assert.Equal(t, "2026-03-14T09:30:00Z", item["createdAt"])
		assert.Equal(t, float64(10), body["limit"])
		activity.AssertExpectations(t)
	})

	t.Run("empty log is an empty list", func(t *testing.T) {
		activity := new(mockActivity)
		h := NewEventsHandler(newFakeBroker(), activity)

		eventID := uuid.NewString()
		activity.On("FindByEventID", mock.Anything, eventID, DefaultLimit, 0).Return([]model.ActivityLog{}, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/events/"+eventID+"/activity", nil)
		eventsRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"items":[]`)
	})

	t.Run("storage failure is 500", func(t *testing.T) {
		activity := new(mockActivity)
		h := NewEventsHandler(newFakeBroker(), activity)

		eventID := uuid.NewString()
		activity.On("FindByEventID", mock.Anything, eventID, DefaultLimit, 0).Return(nil, errors.New("connection refused"))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/events/"+eventID+"/activity", nil)
		eventsRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", DefaultLimit, 0},
		{"limit=5&offset=3", 5, 3},
		{"limit=500", MaxLimit, 0},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		p, err := ParsePagination(req)
		require.NoError(t, err, tc.query)
		assert.Equal(t, tc.limit, p.Limit, tc.query)
		assert.Equal(t, tc.offset, p.Offset, tc.query)
	}

	for _, query := range []string{"limit=-1", "limit=0", "limit=ten", "offset=-4"} {
		req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
		_, err := ParsePagination(req)
		assert.Error(t, err, query)
	}
}

func TestEventsHandler_ActivityRejectsBadPagination(t *testing.T) {
	activity := new(mockActivity)
	h := NewEventsHandler(newFakeBroker(), activity)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/events/"+uuid.NewString()+"/activity?limit=lots", nil)
	eventsRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	activity.AssertNotCalled(t, "FindByEventID", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
