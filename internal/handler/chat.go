package handler

import (
	"context"
	"net/http"

	"github.com/openclaw/checkin-kiosk-go/internal/httputil"
	"github.com/openclaw/checkin-kiosk-go/internal/service"
)

type ChatResponder interface {
	Chat(ctx context.Context, req service.ChatRequest) (*service.ChatReply, error)
}

type ChatHandler struct {
	chat ChatResponder
}

func NewChatHandler(chat ChatResponder) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	GuestID   string `json:"guestId"`
	EventID   string `json:"eventId"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	reply, err := h.chat.Chat(r.Context(), service.ChatRequest{
		SessionID: req.SessionID,
		Message:   req.Message,
		GuestID:   req.GuestID,
		EventID:   req.EventID,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reply":        reply.Reply,
		"personalized": reply.Personalized,
	})
}
