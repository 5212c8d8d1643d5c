package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/checkin-kiosk-go/internal/chatsession"
	"github.com/openclaw/checkin-kiosk-go/internal/completion"
	"github.com/openclaw/checkin-kiosk-go/internal/config"
	apperrors "github.com/openclaw/checkin-kiosk-go/internal/errors"
	"github.com/openclaw/checkin-kiosk-go/internal/metrics"
	"github.com/openclaw/checkin-kiosk-go/internal/model"
	"github.com/openclaw/checkin-kiosk-go/internal/profile"
	"github.com/openclaw/checkin-kiosk-go/internal/prompt"
	"github.com/openclaw/checkin-kiosk-go/internal/repository"
	"github.com/openclaw/checkin-kiosk-go/internal/util"
)

type ChatRequest struct {
	SessionID string
	Message   string
	GuestID   string
	EventID   string
}

type ChatReply struct {
	Reply        string
	Personalized bool
}

type ChatService struct {
	sessions  chatsession.Store
	completer completion.Completer
	prompts   *prompt.Builder
	guestRepo repository.GuestRepository
	eventRepo repository.EventRepository
}

func NewChatService(
	sessions chatsession.Store,
	completer completion.Completer,
	prompts *prompt.Builder,
	guestRepo repository.GuestRepository,
	eventRepo repository.EventRepository,
) *ChatService {
	return &ChatService{
		sessions:  sessions,
		completer: completer,
		prompts:   prompts,
		guestRepo: guestRepo,
		eventRepo: eventRepo,
	}
}

// Chat answers one kiosk message. History is only extended when the
// completion succeeds.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, apperrors.MissingRequired("sessionId")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperrors.MissingRequired("message")
	}
	if utf8.RuneCountInString(message) > config.ChatMaxMessageLength {
		return nil, apperrors.InvalidInput("message", "too long")
	}

	history, err := s.sessions.GetOrCreate(ctx, req.SessionID)
	if err != nil {
		log.Error().Err(err).Str("sessionId", req.SessionID).Msg("failed to load chat session")
		return nil, apperrors.ServiceUnavailable(err)
	}

	system, personalized, err := s.systemPrompt(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("sessionId", req.SessionID).Msg("failed to render system prompt")
		return nil, apperrors.ServiceUnavailable(err)
	}

	reply, err := s.completer.Complete(ctx, system, history, message)
	if err != nil {
		metrics.CompletionRequests.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("sessionId", req.SessionID).Msg("completion failed")
		return nil, apperrors.ServiceUnavailable(err)
	}
	metrics.CompletionRequests.WithLabelValues("success").Inc()

	if err := s.sessions.Append(ctx, req.SessionID, message, reply); err != nil {
		// The guest still gets the answer; only context is lost.
		log.Warn().Err(err).Str("sessionId", req.SessionID).Msg("failed to append chat turns")
	}

	log.Debug().
		Str("sessionId", req.SessionID).
		Bool("personalized", personalized).
		Int("historyTurns", len(history)).
		Msg("chat reply generated")

	return &ChatReply{Reply: reply, Personalized: personalized}, nil
}

func (s *ChatService) systemPrompt(ctx context.Context, req ChatRequest) (string, bool, error) {
	guest := s.lookupGuest(ctx, req)
	eventID := req.EventID
	if guest != nil {
		eventID = guest.EventID
	}
	event := s.lookupEvent(ctx, eventID)

	if guest == nil {
		text, err := s.prompts.Generic(event)
		return text, false, err
	}
	text, err := s.prompts.Personalized(event, guest, profile.ForGuest(guest))
	return text, true, err
}

func (s *ChatService) lookupGuest(ctx context.Context, req ChatRequest) *model.Guest {
	if req.GuestID == "" {
		return nil
	}
	if !util.IsValidUUID(req.GuestID) {
		log.Warn().Str("guestId", req.GuestID).Msg("chat guest id is not a uuid, using generic prompt")
		return nil
	}
	guest, err := s.guestRepo.FindByID(ctx, req.GuestID)
	if err != nil {
		log.Warn().Err(err).Str("guestId", req.GuestID).Msg("failed to load chat guest, using generic prompt")
		return nil
	}
	if guest == nil {
		log.Warn().Str("guestId", req.GuestID).Msg("chat guest not found, using generic prompt")
	}
	return guest
}

func (s *ChatService) lookupEvent(ctx context.Context, eventID string) *model.Event {
	if !util.IsValidUUID(eventID) {
		return nil
	}
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		log.Warn().Err(err).Str("eventId", eventID).Msg("failed to load chat event")
		return nil
	}
	return event
}
