package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/checkin-kiosk-go/internal/audit"
	"github.com/openclaw/checkin-kiosk-go/internal/biometric"
	"github.com/openclaw/checkin-kiosk-go/internal/config"
	apperrors "github.com/openclaw/checkin-kiosk-go/internal/errors"
	"github.com/openclaw/checkin-kiosk-go/internal/metrics"
	"github.com/openclaw/checkin-kiosk-go/internal/model"
	"github.com/openclaw/checkin-kiosk-go/internal/repository"
	"github.com/openclaw/checkin-kiosk-go/internal/util"
)

// OutcomeKind is the closed set of identity resolution results.
type OutcomeKind string

const (
	OutcomeMatched            OutcomeKind = "matched"
	OutcomeNotDetected        OutcomeKind = "not_detected"
	OutcomeNoEnrollment       OutcomeKind = "no_enrollment"
	OutcomeNotRecognized      OutcomeKind = "not_recognized"
	OutcomeOrphanedMatch      OutcomeKind = "orphaned_match"
	OutcomeNotFound           OutcomeKind = "not_found"
	OutcomeServiceUnavailable OutcomeKind = "service_unavailable"
)

var outcomeMessages = map[OutcomeKind]string{
	OutcomeMatched:            "Welcome! You're checked in.",
	OutcomeNotDetected:        "We couldn't see your face clearly. Please look at the camera and try again.",
	OutcomeNoEnrollment:       "Face check-in isn't available for this event yet. Please use manual lookup.",
	OutcomeNotRecognized:      "We couldn't recognize you. Please try again or use manual lookup.",
	OutcomeOrphanedMatch:      "We couldn't find your registration. Please see the front desk.",
	OutcomeNotFound:           "No registration matches those details. Please check them or see the front desk.",
	OutcomeServiceUnavailable: "Service temporarily unavailable, please try again.",
}

// Message is safe to show on the kiosk screen.
func (k OutcomeKind) Message() string {
	if msg, ok := outcomeMessages[k]; ok {
		return msg
	}
	return outcomeMessages[OutcomeServiceUnavailable]
}

// Outcome is returned for every resolution attempt; only the matched kind
// carries Guest and Event.
type Outcome struct {
	Kind             OutcomeKind
	Guest            *model.Guest
	Event            *model.Event
	Score            *float64
	AlreadyCheckedIn bool
	QualityPassed    *bool
}

func (o *Outcome) Message() string {
	if o.Kind == OutcomeMatched && o.AlreadyCheckedIn {
		return "Welcome back! You're already checked in."
	}
	return o.Kind.Message()
}

type LookupType string

const (
	LookupEmail          LookupType = "email"
	LookupRegistrationID LookupType = "registrationId"
)

type ManualQuery struct {
	Query   string
	Type    LookupType
	EventID string
}

type IdentityConfig struct {
	MinScore       float64
	EnforceQuality bool
}

type CheckInRunner interface {
	CheckIn(ctx context.Context, guestID string, method CheckInMethod) (*CheckInResult, error)
}

const (
	pathFace   = "face"
	pathManual = "manual"
)

type IdentityService struct {
	gateway   FaceGateway
	guestRepo repository.GuestRepository
	eventRepo repository.EventRepository
	checkIns  CheckInRunner
	cfg       IdentityConfig
}

func NewIdentityService(
	gateway FaceGateway,
	guestRepo repository.GuestRepository,
	eventRepo repository.EventRepository,
	checkIns CheckInRunner,
	cfg IdentityConfig,
) *IdentityService {
	if cfg.MinScore <= 0 {
		cfg.MinScore = config.DefaultFaceMinScore
	}
	return &IdentityService{
		gateway:   gateway,
		guestRepo: guestRepo,
		eventRepo: eventRepo,
		checkIns:  checkIns,
		cfg:       cfg,
	}
}

// IdentifyByFace resolves a kiosk capture against the event gallery and
// checks the guest in. The error is non-nil only for invalid input.
func (s *IdentityService) IdentifyByFace(ctx context.Context, imageBase64, eventID string) (*Outcome, error) {
	if strings.TrimSpace(imageBase64) == "" {
		return nil, apperrors.MissingRequired("image")
	}
	if strings.TrimSpace(eventID) == "" {
		return nil, apperrors.MissingRequired("eventId")
	}
	if !util.IsValidUUID(strings.TrimSpace(eventID)) {
		return nil, apperrors.InvalidInput("eventId", "must be a UUID")
	}
	// The gallery is named after the lower-case event id.
	eventID = util.NormalizeUUID(eventID)

	faces, err := s.gateway.ProcessFace(ctx, imageBase64)
	if err != nil {
		return s.unavailable(ctx, pathFace, eventID, err), nil
	}
	if len(faces) == 0 || faces[0].Template == "" {
		return s.miss(ctx, pathFace, eventID, &Outcome{Kind: OutcomeNotDetected}), nil
	}

	face := faces[0]
	passed := face.QualityPassed()
	if !passed {
		log.Warn().
			Str("eventId", eventID).
			Strs("failedMetrics", face.FailedMetrics()).
			Bool("enforced", s.cfg.EnforceQuality).
			Msg("capture failed quality checks")
		if s.cfg.EnforceQuality {
			return s.miss(ctx, pathFace, eventID, &Outcome{Kind: OutcomeNotDetected, QualityPassed: &passed}), nil
		}
	}

	candidates, err := s.gateway.Identify(ctx, biometric.IdentifyParams{
		Template:            face.Template,
		GalleryID:           eventID,
		CandidateListLength: config.FaceCandidateListLength,
		MinimumScore:        s.cfg.MinScore,
	})
	if err != nil {
		if biometric.IsNotFound(err) {
			return s.miss(ctx, pathFace, eventID, &Outcome{Kind: OutcomeNoEnrollment, QualityPassed: &passed}), nil
		}
		return s.unavailable(ctx, pathFace, eventID, err), nil
	}

	if len(candidates) == 0 {
		return s.miss(ctx, pathFace, eventID, &Outcome{Kind: OutcomeNotRecognized, QualityPassed: &passed}), nil
	}

	best := candidates[0]
	score := best.Score
	if score < s.cfg.MinScore {
		return s.miss(ctx, pathFace, eventID, &Outcome{Kind: OutcomeNotRecognized, Score: &score, QualityPassed: &passed}), nil
	}

	if !util.IsValidUUID(best.TemplateID) {
		return s.orphaned(ctx, eventID, best.TemplateID, score, &passed), nil
	}
	guest, err := s.guestRepo.FindByID(ctx, best.TemplateID)
	if err != nil {
		return s.unavailable(ctx, pathFace, eventID, fmt.Errorf("find matched guest: %w", err)), nil
	}
	if guest == nil || guest.EventID != eventID {
		return s.orphaned(ctx, eventID, best.TemplateID, score, &passed), nil
	}

	outcome := s.checkIn(ctx, pathFace, guest, CheckInMethod{Via: CheckInViaFace, Score: score})
	if outcome.Kind == OutcomeMatched {
		outcome.Score = &score
		outcome.QualityPassed = &passed
	}
	return outcome, nil
}

// IdentifyManual looks a guest up by exact email or registration id and
// checks them in. EventID is optional; without it the most recent
// registration wins.
func (s *IdentityService) IdentifyManual(ctx context.Context, q ManualQuery) (*Outcome, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, apperrors.MissingRequired("query")
	}
	if q.EventID = util.NormalizeUUID(q.EventID); q.EventID != "" && !util.IsValidUUID(q.EventID) {
		return nil, apperrors.InvalidInput("eventId", "must be a UUID")
	}

	var (
		guest *model.Guest
		err   error
	)
	switch q.Type {
	case LookupEmail:
		guest, err = s.guestRepo.FindByEmail(ctx, util.NormalizeEmail(q.Query), q.EventID)
	case LookupRegistrationID:
		guest, err = s.guestRepo.FindByRegistrationID(ctx, util.NormalizeRegistrationID(q.Query), q.EventID)
	default:
		return nil, apperrors.InvalidInput("type", "must be email or registrationId")
	}
	if err != nil {
		return s.unavailable(ctx, pathManual, q.EventID, fmt.Errorf("manual lookup: %w", err)), nil
	}
	if guest == nil {
		outcome := s.miss(ctx, pathManual, q.EventID, &Outcome{Kind: OutcomeNotFound})
		log.Warn().
			Str("eventId", q.EventID).
			Str("type", string(q.Type)).
			Str("query", maskQuery(q)).
			Msg("manual lookup found no guest")
		return outcome, nil
	}

	return s.checkIn(ctx, pathManual, guest, CheckInMethod{Via: CheckInViaManual, LookupType: q.Type}), nil
}

func (s *IdentityService) checkIn(ctx context.Context, path string, guest *model.Guest, method CheckInMethod) *Outcome {
	result, err := s.checkIns.CheckIn(ctx, guest.ID, method)
	if err != nil {
		return s.unavailable(ctx, path, guest.EventID, fmt.Errorf("check in guest %s: %w", guest.ID, err))
	}

	event, err := s.eventRepo.FindByID(ctx, result.Guest.EventID)
	if err != nil {
		log.Warn().Err(err).Str("eventId", result.Guest.EventID).Msg("failed to load event for matched guest")
		event = nil
	}

	outcome := &Outcome{
		Kind:             OutcomeMatched,
		Guest:            result.Guest,
		Event:            event,
		AlreadyCheckedIn: result.Already,
	}
	metrics.IdentifyOutcomes.WithLabelValues(path, string(outcome.Kind)).Inc()
	audit.Log(ctx, audit.Event{
		Type:    audit.EventIdentifyMatched,
		EventID: result.Guest.EventID,
		GuestID: result.Guest.ID,
		Path:    path,
		Outcome: string(outcome.Kind),
		Score:   scorePtr(method),
		Details: map[string]interface{}{"alreadyCheckedIn": result.Already},
	})
	return outcome
}

func (s *IdentityService) miss(ctx context.Context, path, eventID string, outcome *Outcome) *Outcome {
	metrics.IdentifyOutcomes.WithLabelValues(path, string(outcome.Kind)).Inc()
	event := audit.Event{
		Type:    audit.EventIdentifyMiss,
		EventID: eventID,
		Path:    path,
		Outcome: string(outcome.Kind),
		Score:   outcome.Score,
	}
	if outcome.QualityPassed != nil {
		event.Details = map[string]interface{}{"qualityPassed": *outcome.QualityPassed}
	}
	audit.Log(ctx, event)
	return outcome
}

func (s *IdentityService) orphaned(ctx context.Context, eventID, templateID string, score float64, passed *bool) *Outcome {
	outcome := &Outcome{Kind: OutcomeOrphanedMatch, Score: &score, QualityPassed: passed}
	metrics.IdentifyOutcomes.WithLabelValues(pathFace, string(outcome.Kind)).Inc()
	audit.Log(ctx, audit.Event{
		Type:    audit.EventOrphanedMatch,
		EventID: eventID,
		Path:    pathFace,
		Outcome: string(outcome.Kind),
		Score:   &score,
		Details: map[string]interface{}{"templateId": templateID},
	})
	return outcome
}

func (s *IdentityService) unavailable(ctx context.Context, path, eventID string, err error) *Outcome {
	outcome := &Outcome{Kind: OutcomeServiceUnavailable}
	metrics.IdentifyOutcomes.WithLabelValues(path, string(outcome.Kind)).Inc()
	details := map[string]interface{}{}
	if code := biometric.StatusCode(err); code != 0 {
		details["vendorStatus"] = code
	}
	audit.Log(ctx, audit.Event{
		Type:    audit.EventIdentifyFailure,
		EventID: eventID,
		Path:    path,
		Outcome: string(outcome.Kind),
		Err:     err,
		Details: details,
	})
	return outcome
}

func scorePtr(method CheckInMethod) *float64 {
	if method.Via != CheckInViaFace {
		return nil
	}
	score := method.Score
	return &score
}

func maskQuery(q ManualQuery) string {
	if q.Type == LookupEmail {
		return util.MaskEmail(util.NormalizeEmail(q.Query))
	}
	return util.NormalizeRegistrationID(q.Query)
}
