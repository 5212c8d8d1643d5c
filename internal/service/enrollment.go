package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/checkin-kiosk-go/internal/audit"
	"github.com/openclaw/checkin-kiosk-go/internal/biometric"
	apperrors "github.com/openclaw/checkin-kiosk-go/internal/errors"
	"github.com/openclaw/checkin-kiosk-go/internal/model"
	"github.com/openclaw/checkin-kiosk-go/internal/repository"
)

// EnrollmentService manages event galleries and guest face templates. It is
// the only caller that treats gallery 404/409 responses as success.
type EnrollmentService struct {
	gateway      FaceGateway
	tx           Transactor
	guestRepo    repository.GuestRepository
	activityRepo repository.ActivityLogRepository
}

func NewEnrollmentService(
	gateway FaceGateway,
	tx Transactor,
	guestRepo repository.GuestRepository,
	activityRepo repository.ActivityLogRepository,
) *EnrollmentService {
	return &EnrollmentService{
		gateway:      gateway,
		tx:           tx,
		guestRepo:    guestRepo,
		activityRepo: activityRepo,
	}
}

// EnsureGallery creates the event gallery; an existing one is fine.
func (s *EnrollmentService) EnsureGallery(ctx context.Context, eventID string) error {
	err := s.gateway.CreateGallery(ctx, eventID)
	if err != nil && !biometric.IsConflict(err) {
		return apperrors.External("biometric gateway", fmt.Errorf("create gallery: %w", err))
	}
	return nil
}

// DropGallery deletes the event gallery; a missing one is fine.
func (s *EnrollmentService) DropGallery(ctx context.Context, eventID string) error {
	err := s.gateway.DeleteGallery(ctx, eventID)
	if err != nil && !biometric.IsNotFound(err) {
		return apperrors.External("biometric gateway", fmt.Errorf("delete gallery: %w", err))
	}
	return nil
}

type CaptureResult struct {
	Guest         *model.Guest
	QualityPassed bool
}

// CaptureFace enrolls the guest's face in their event gallery under the
// guest id, replacing any previous enrollment.
func (s *EnrollmentService) CaptureFace(ctx context.Context, guestID, imageBase64 string) (*CaptureResult, error) {
	if strings.TrimSpace(imageBase64) == "" {
		return nil, apperrors.MissingRequired("image")
	}

	guest, err := s.guestRepo.FindByID(ctx, guestID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if guest == nil {
		return nil, apperrors.NotFound("Guest")
	}

	faces, err := s.gateway.ProcessFace(ctx, imageBase64)
	if err != nil {
		return nil, apperrors.External("biometric gateway", fmt.Errorf("process face: %w", err))
	}
	if len(faces) == 0 || faces[0].Template == "" {
		return nil, apperrors.NoFaceDetected()
	}
	face := faces[0]

	if err := s.EnsureGallery(ctx, guest.EventID); err != nil {
		return nil, err
	}
	if err := s.enroll(ctx, guest.EventID, guest.ID, face.Template); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.guestRepo.WithTx(tx).MarkFaceCaptured(ctx, guest.ID, guest.ID); err != nil {
			return fmt.Errorf("mark face captured: %w", err)
		}
		_, err := s.activityRepo.WithTx(tx).Create(ctx, model.CreateActivityLogParams{
			EventID: guest.EventID,
			GuestID: &guest.ID,
			Action:  model.ActivityFaceCaptured,
			Details: fmt.Sprintf("%s face captured", guest.FullName),
		})
		if err != nil {
			return fmt.Errorf("append activity log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	templateID := guest.ID
	guest.FaceTemplateID = &templateID
	if guest.Status.CanAdvanceTo(model.GuestStatusFaceCaptured) {
		guest.Status = model.GuestStatusFaceCaptured
	}

	audit.Log(ctx, audit.Event{
		Type:    audit.EventFaceCaptured,
		EventID: guest.EventID,
		GuestID: guest.ID,
		Details: map[string]interface{}{"qualityPassed": face.QualityPassed()},
	})

	return &CaptureResult{Guest: guest, QualityPassed: face.QualityPassed()}, nil
}

func (s *EnrollmentService) enroll(ctx context.Context, galleryID, personID, template string) error {
	err := s.gateway.Enroll(ctx, galleryID, personID, template)
	if err == nil {
		return nil
	}
	if !biometric.IsConflict(err) {
		return apperrors.External("biometric gateway", fmt.Errorf("enroll: %w", err))
	}

	log.Info().Str("eventId", galleryID).Str("guestId", personID).Msg("replacing existing face enrollment")
	if err := s.gateway.RemovePerson(ctx, galleryID, personID); err != nil && !biometric.IsNotFound(err) {
		return apperrors.External("biometric gateway", fmt.Errorf("remove stale enrollment: %w", err))
	}
	if err := s.gateway.Enroll(ctx, galleryID, personID, template); err != nil {
		return apperrors.External("biometric gateway", fmt.Errorf("re-enroll: %w", err))
	}
	return nil
}

// RemoveFace deletes the guest's enrollment; an absent one is fine.
func (s *EnrollmentService) RemoveFace(ctx context.Context, guestID string) error {
	guest, err := s.guestRepo.FindByID(ctx, guestID)
	if err != nil {
		return apperrors.Database(err)
	}
	if guest == nil {
		return apperrors.NotFound("Guest")
	}

	if err := s.gateway.RemovePerson(ctx, guest.EventID, guest.ID); err != nil && !biometric.IsNotFound(err) {
		return apperrors.External("biometric gateway", fmt.Errorf("remove person: %w", err))
	}

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.guestRepo.WithTx(tx).ClearFaceTemplate(ctx, guest.ID); err != nil {
			return fmt.Errorf("clear face template: %w", err)
		}
		_, err := s.activityRepo.WithTx(tx).Create(ctx, model.CreateActivityLogParams{
			EventID: guest.EventID,
			GuestID: &guest.ID,
			Action:  model.ActivityFaceRemoved,
			Details: fmt.Sprintf("%s face removed", guest.FullName),
		})
		return err
	})
	if err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventFaceRemoved, EventID: guest.EventID, GuestID: guest.ID})
	return nil
}
