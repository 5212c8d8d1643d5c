package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventIdentifyMatched EventType = "identify_matched"
	EventIdentifyMiss    EventType = "identify_miss"
	EventIdentifyFailure EventType = "identify_failure"
	EventOrphanedMatch   EventType = "orphaned_match"
	EventCheckIn         EventType = "check_in"
	EventFaceCaptured    EventType = "face_captured"
	EventFaceRemoved     EventType = "face_removed"
	EventRateLimitExceed EventType = "rate_limit_exceeded"
)

type Event struct {
	Type      EventType
	EventID   string
	GuestID   string
	Path      string
	Outcome   string
	Score     *float64
	IP        string
	UserAgent string
	Err       error
	Details   map[string]interface{}
}

// Level picks the log level for an event: misses are expected and logged
// at warn, failures and orphaned enrollments at error.
func (t EventType) Level() zerolog.Level {
	switch t {
	case EventIdentifyMiss, EventRateLimitExceed:
		return zerolog.WarnLevel
	case EventIdentifyFailure, EventOrphanedMatch:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "checkin").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.EventID != "" {
		logger = logger.With().Str("eventId", event.EventID).Logger()
	}
	if event.GuestID != "" {
		logger = logger.With().Str("guestId", event.GuestID).Logger()
	}
	if event.Path != "" {
		logger = logger.With().Str("path", event.Path).Logger()
	}
	if event.Outcome != "" {
		logger = logger.With().Str("outcome", event.Outcome).Logger()
	}
	if event.Score != nil {
		logger = logger.With().Float64("score", *event.Score).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := logger.WithLevel(event.Type.Level())
	if event.Err != nil {
		logEvent = logEvent.Err(event.Err)
	}
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("checkin audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case float64:
		return e.Float64(key, v)
	case bool:
		return e.Bool(key, v)
	case []string:
		return e.Strs(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = ClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
