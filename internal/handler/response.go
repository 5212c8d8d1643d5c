package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	apperrors "github.com/openclaw/checkin-kiosk-go/internal/errors"
	"github.com/openclaw/checkin-kiosk-go/internal/httputil"
	"github.com/openclaw/checkin-kiosk-go/internal/model"
	"github.com/openclaw/checkin-kiosk-go/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched so field validation can report what is missing.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.ValidationError("Invalid request body")
	}
	return nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func formatGuest(g *model.Guest) map[string]any {
	return map[string]any{
		"id":          g.ID,
		"eventId":     g.EventID,
		"fullName":    g.FullName,
		"badge":       g.Badge,
		"status":      g.Status,
		"agenda":      g.Agenda,
		"checkedInAt": formatTime(g.CheckedInAt),
	}
}

func formatEvent(e *model.Event) map[string]any {
	return map[string]any{
		"id":       e.ID,
		"name":     e.Name,
		"date":     e.Date.Format(time.RFC3339),
		"location": e.Location,
	}
}

func formatOutcome(o *service.Outcome) map[string]any {
	resp := map[string]any{
		"outcome": o.Kind,
		"message": o.Message(),
	}
	if o.Guest != nil {
		resp["guest"] = formatGuest(o.Guest)
	}
	if o.Event != nil {
		resp["event"] = formatEvent(o.Event)
	}
	if o.Score != nil {
		resp["score"] = *o.Score
	}
	if o.Kind == service.OutcomeMatched {
		resp["alreadyCheckedIn"] = o.AlreadyCheckedIn
	}
	if o.QualityPassed != nil {
		resp["qualityPassed"] = *o.QualityPassed
	}
	return resp
}

func formatActivity(a model.ActivityLog) map[string]any {
	return map[string]any{
		"id":        a.ID,
		"guestId":   a.GuestID,
		"action":    a.Action,
		"details":   a.Details,
		"createdAt": a.CreatedAt.Format(time.RFC3339),
	}
}
