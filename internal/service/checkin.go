package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/checkin-kiosk-go/internal/audit"
	apperrors "github.com/openclaw/checkin-kiosk-go/internal/errors"
	"github.com/openclaw/checkin-kiosk-go/internal/metrics"
	"github.com/openclaw/checkin-kiosk-go/internal/model"
	"github.com/openclaw/checkin-kiosk-go/internal/repository"
	"github.com/openclaw/checkin-kiosk-go/internal/sse"
)

type CheckInVia string

const (
	CheckInViaFace   CheckInVia = "face"
	CheckInViaManual CheckInVia = "manual"
	CheckInViaDesk   CheckInVia = "desk"
)

// CheckInMethod describes how the guest was identified; it only shapes the
// activity log text.
type CheckInMethod struct {
	Via        CheckInVia
	Score      float64
	LookupType LookupType
}

type CheckInResult struct {
	Guest   *model.Guest
	Already bool
}

type CheckInService struct {
	tx           Transactor
	guestRepo    repository.GuestRepository
	activityRepo repository.ActivityLogRepository
	publisher    CheckInPublisher
	now          func() time.Time
}

func NewCheckInService(
	tx Transactor,
	guestRepo repository.GuestRepository,
	activityRepo repository.ActivityLogRepository,
	publisher CheckInPublisher,
) *CheckInService {
	return &CheckInService{
		tx:           tx,
		guestRepo:    guestRepo,
		activityRepo: activityRepo,
		publisher:    publisher,
		now:          time.Now,
	}
}

// CheckIn moves the guest to checked_in exactly once. Repeated or racing
// calls return Already=true and append nothing.
func (s *CheckInService) CheckIn(ctx context.Context, guestID string, method CheckInMethod) (*CheckInResult, error) {
	var result *CheckInResult

	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		guests := s.guestRepo.WithTx(tx)
		activity := s.activityRepo.WithTx(tx)

		guest, err := guests.FindByID(ctx, guestID)
		if err != nil {
			return fmt.Errorf("find guest: %w", err)
		}
		if guest == nil {
			return apperrors.NotFound("Guest")
		}
		if guest.IsCheckedIn() {
			result = &CheckInResult{Guest: guest, Already: true}
			return nil
		}

		at := s.now().UTC()
		won, err := guests.MarkCheckedIn(ctx, guest.ID, at)
		if err != nil {
			return fmt.Errorf("mark checked in: %w", err)
		}
		if !won {
			// Another resolver committed first; report its state.
			if fresh, err := guests.FindByID(ctx, guest.ID); err == nil && fresh != nil {
				guest = fresh
			}
			result = &CheckInResult{Guest: guest, Already: true}
			return nil
		}

		guest.Status = model.GuestStatusCheckedIn
		guest.CheckedInAt = &at

		if _, err := activity.Create(ctx, model.CreateActivityLogParams{
			EventID: guest.EventID,
			GuestID: &guest.ID,
			Action:  model.ActivityCheckedIn,
			Details: checkInDetails(guest.FullName, method),
		}); err != nil {
			return fmt.Errorf("append activity log: %w", err)
		}

		result = &CheckInResult{Guest: guest}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Already {
		metrics.CheckIns.WithLabelValues("already").Inc()
		return result, nil
	}

	metrics.CheckIns.WithLabelValues("transitioned").Inc()
	audit.Log(ctx, audit.Event{
		Type:    audit.EventCheckIn,
		EventID: result.Guest.EventID,
		GuestID: result.Guest.ID,
		Path:    string(method.Via),
	})
	s.publish(ctx, result.Guest, method.Via)

	return result, nil
}

func (s *CheckInService) publish(ctx context.Context, guest *model.Guest, via CheckInVia) {
	if s.publisher == nil {
		return
	}
	event, err := sse.NewCheckInEvent(guest, string(via))
	if err != nil {
		log.Warn().Err(err).Str("guestId", guest.ID).Msg("failed to build check-in event")
		return
	}
	if err := s.publisher.Publish(ctx, guest.EventID, event); err != nil {
		log.Warn().
			Err(err).
			Str("eventId", guest.EventID).
			Str("guestId", guest.ID).
			Msg("failed to publish check-in")
	}
}

func checkInDetails(name string, method CheckInMethod) string {
	switch method.Via {
	case CheckInViaFace:
		return fmt.Sprintf("%s checked in via face recognition (score=%.2f)", name, method.Score)
	case CheckInViaManual:
		if method.LookupType != "" {
			return fmt.Sprintf("%s checked in via manual lookup (%s)", name, method.LookupType)
		}
		return fmt.Sprintf("%s checked in via manual lookup", name)
	default:
		return fmt.Sprintf("%s checked in", name)
	}
}
