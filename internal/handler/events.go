package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/checkin-kiosk-go/internal/errors"
	"github.com/openclaw/checkin-kiosk-go/internal/httputil"
	"github.com/openclaw/checkin-kiosk-go/internal/model"
	"github.com/openclaw/checkin-kiosk-go/internal/sse"
	"github.com/openclaw/checkin-kiosk-go/internal/util"
)

type Subscriber interface {
	Subscribe(eventID string) *sse.Client
	Unsubscribe(client *sse.Client)
}

type ActivityLister interface {
	FindByEventID(ctx context.Context, eventID string, limit, offset int) ([]model.ActivityLog, error)
}

// EventsHandler serves the front desk views of an event: the live check-in
// stream and the activity log.
type EventsHandler struct {
	broker    Subscriber
	activity  ActivityLister
	heartbeat time.Duration
}

func NewEventsHandler(broker Subscriber, activity ActivityLister) *EventsHandler {
	return &EventsHandler{
		broker:    broker,
		activity:  activity,
		heartbeat: sse.HeartbeatInterval,
	}
}

func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(eventID)
	defer h.broker.Unsubscribe(client)

	log.Info().Str("eventId", eventID).Msg("sse connection established")

	if err := h.sendEvent(w, flusher, "connected", map[string]any{"eventId": eventID}); err != nil {
		return
	}

	ctx := r.Context()
	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("eventId", eventID).Msg("sse connection closed by client")
			return

		case <-client.Done:
			log.Info().Str("eventId", eventID).Msg("sse connection closed by broker")
			return

		case event := <-client.Events:
			if err := h.sendRawEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().Str("eventId", eventID).Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) Activity(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	p, err := ParsePagination(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.activity.FindByEventID(r.Context(), eventID, p.Limit, p.Offset)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, formatActivity(e))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return h.sendRawEvent(w, flusher, sse.Event{Type: eventType, Data: jsonData})
}

func (h *EventsHandler) sendRawEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func eventIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	eventID := chi.URLParam(r, "eventID")
	if !util.IsValidUUID(eventID) {
		httputil.WriteError(w, apperrors.InvalidInput("eventId", "must be a UUID"))
		return "", false
	}
	return util.NormalizeUUID(eventID), true
}
