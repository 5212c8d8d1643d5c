package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/checkin-kiosk-go/internal/chatsession"
	"github.com/openclaw/checkin-kiosk-go/internal/config"
	apperrors "github.com/openclaw/checkin-kiosk-go/internal/errors"
	"github.com/openclaw/checkin-kiosk-go/internal/model"
	"github.com/openclaw/checkin-kiosk-go/internal/profile"
	"github.com/openclaw/checkin-kiosk-go/internal/prompt"
)

type chatFixture struct {
	now       time.Time
	store     *chatsession.MemoryStore
	completer *mockCompleter
	guests    *memGuestRepo
	event     *model.Event
	svc       *ChatService
}

func newChatFixture(ttl time.Duration) *chatFixture {
	f := &chatFixture{
		now:       time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		completer: &mockCompleter{},
		guests:    newMemGuestRepo(),
		event:     &model.Event{ID: uuid.NewString(), Name: "DevSummit"},
	}
	f.store = chatsession.NewMemoryStore(ttl, chatsession.WithClock(func() time.Time { return f.now }))
	f.svc = NewChatService(f.store, f.completer, prompt.NewBuilder("Harbour Centre"), f.guests, memEventRepo{f.event.ID: f.event})
	return f
}

func TestChat(t *testing.T) {
	ctx := context.Background()

	t.Run("feeds history back in order", func(t *testing.T) {
		f := newChatFixture(15 * time.Minute)
		f.completer.On("Complete", mock.Anything, mock.Anything, []model.Turn{}, "where is lunch?").
			Return("In the Garden Pavilion.", nil).Once()
		f.completer.On("Complete", mock.Anything, mock.Anything, []model.Turn{
			model.UserTurn("where is lunch?"),
			model.AssistantTurn("In the Garden Pavilion."),
		}, "and coffee?").Return("In the foyer.", nil).Once()

		reply, err := f.svc.Chat(ctx, ChatRequest{SessionID: "s1", Message: "where is lunch?"})
		require.NoError(t, err)
		assert.Equal(t, "In the Garden Pavilion.", reply.Reply)
		assert.False(t, reply.Personalized)

		reply, err = f.svc.Chat(ctx, ChatRequest{SessionID: "s1", Message: "and coffee?"})
		require.NoError(t, err)
		assert.Equal(t, "In the foyer.", reply.Reply)
		f.completer.AssertExpectations(t)
	})

	t.Run("messages 20 minutes apart start a fresh session", func(t *testing.T) {
		f := newChatFixture(15 * time.Minute)
		f.completer.On("Complete", mock.Anything, mock.Anything, []model.Turn{}, mock.Anything).
			Return("ok", nil).Twice()

		_, err := f.svc.Chat(ctx, ChatRequest{SessionID: "s1", Message: "first"})
		require.NoError(t, err)

		f.now = f.now.Add(20 * time.Minute)
		_, err = f.svc.Chat(ctx, ChatRequest{SessionID: "s1", Message: "second"})
		require.NoError(t, err)

		f.completer.AssertExpectations(t)
	})

	t.Run("completion failure leaves history untouched", func(t *testing.T) {
		f := newChatFixture(15 * time.Minute)
		f.completer.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("upstream 500")).Once()

		_, err := f.svc.Chat(ctx, ChatRequest{SessionID: "s1", Message: "hello"})
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable))

		history, _ := f.store.GetOrCreate(ctx, "s1")
		assert.Empty(t, history)
	})

	t.Run("known guest gets personalized prompt", func(t *testing.T) {
		f := newChatFixture(15 * time.Minute)
		guest := newGuest(f.event.ID, model.GuestStatusCheckedIn)
		guest.RegistrationID = strPtr("REG-001")
		f.guests.guests[guest.ID] = guest
		seat := profile.Assemble("REG-001").Seat

		f.completer.On("Complete", mock.Anything, mock.MatchedBy(func(system string) bool {
			return strings.Contains(system, "Ada Lovelace") &&
				strings.Contains(system, seat) &&
				strings.Contains(system, "DevSummit")
		}), mock.Anything, "where do I sit?").Return("Seat "+seat+".", nil).Once()

		reply, err := f.svc.Chat(ctx, ChatRequest{SessionID: "s2", Message: "where do I sit?", GuestID: guest.ID})
		require.NoError(t, err)
		assert.True(t, reply.Personalized)
		f.completer.AssertExpectations(t)
	})

	t.Run("unknown guest falls back to generic prompt", func(t *testing.T) {
		f := newChatFixture(15 * time.Minute)
		f.completer.On("Complete", mock.Anything, mock.MatchedBy(func(system string) bool {
			return strings.Contains(system, "You do not know who you are talking to")
		}), mock.Anything, mock.Anything).Return("hi", nil).Twice()

		reply, err := f.svc.Chat(ctx, ChatRequest{SessionID: "s3", Message: "hi", GuestID: uuid.NewString()})
		require.NoError(t, err)
		assert.False(t, reply.Personalized)

		reply, err = f.svc.Chat(ctx, ChatRequest{SessionID: "s4", Message: "hi", GuestID: "not-a-uuid", EventID: f.event.ID})
		require.NoError(t, err)
		assert.False(t, reply.Personalized)
		f.completer.AssertExpectations(t)
	})

	t.Run("length cap counts characters not bytes", func(t *testing.T) {
		f := newChatFixture(15 * time.Minute)
		message := strings.Repeat("\u4f1a", config.ChatMaxMessageLength)
		f.completer.On("Complete", mock.Anything, mock.Anything, []model.Turn{}, message).
			Return("ok", nil).Once()

		_, err := f.svc.Chat(ctx, ChatRequest{SessionID: "s1", Message: message})
		require.NoError(t, err)

		_, err = f.svc.Chat(ctx, ChatRequest{SessionID: "s2", Message: message + "\u4f1a"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
		f.completer.AssertExpectations(t)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		f := newChatFixture(15 * time.Minute)

		_, err := f.svc.Chat(ctx, ChatRequest{Message: "hi"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingRequired))

		_, err = f.svc.Chat(ctx, ChatRequest{SessionID: "s1", Message: "   "})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingRequired))

		_, err = f.svc.Chat(ctx, ChatRequest{SessionID: "s1", Message: strings.Repeat("a", config.ChatMaxMessageLength+1)})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

		f.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
