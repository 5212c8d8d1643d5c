package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/checkin-kiosk-go/internal/model"
)

type GuestRepository interface {
	FindByID(ctx context.Context, id string) (*model.Guest, error)
	FindByEmail(ctx context.Context, email string, eventID string) (*model.Guest, error)
	FindByRegistrationID(ctx context.Context, registrationID string, eventID string) (*model.Guest, error)
	// MarkCheckedIn reports false when the guest was already checked in,
	// so concurrent callers race on a single conditional UPDATE.
	MarkCheckedIn(ctx context.Context, id string, at time.Time) (bool, error)
	MarkFaceCaptured(ctx context.Context, id string, templateID string) error
	ClearFaceTemplate(ctx context.Context, id string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) GuestRepository
}

type guestRepo struct {
	db queryer
}

func NewGuestRepository(db *sqlx.DB) GuestRepository {
	return &guestRepo{db: db}
}

func (r *guestRepo) WithTx(tx *sqlx.Tx) GuestRepository {
	return &guestRepo{db: tx}
}

func (r *guestRepo) FindByID(ctx context.Context, id string) (*model.Guest, error) {
	var guest model.Guest
	err := r.db.GetContext(ctx, &guest, `
		SELECT * FROM guests WHERE id = $1
	`, id)
	return HandleNotFound(&guest, err)
}

// An empty eventID searches across events and returns the most recent guest.
func (r *guestRepo) FindByEmail(ctx context.Context, email string, eventID string) (*model.Guest, error) {
	var guest model.Guest
	err := r.db.GetContext(ctx, &guest, `
		SELECT * FROM guests
		WHERE email = $1
		AND ($2 = '' OR event_id::text = $2)
		ORDER BY created_at DESC
		LIMIT 1
	`, email, eventID)
	return HandleNotFound(&guest, err)
}

func (r *guestRepo) FindByRegistrationID(ctx context.Context, registrationID string, eventID string) (*model.Guest, error) {
	var guest model.Guest
	err := r.db.GetContext(ctx, &guest, `
		SELECT * FROM guests
		WHERE registration_id = $1
		AND ($2 = '' OR event_id::text = $2)
		ORDER BY created_at DESC
		LIMIT 1
	`, registrationID, eventID)
	return HandleNotFound(&guest, err)
}

func (r *guestRepo) MarkCheckedIn(ctx context.Context, id string, at time.Time) (bool, error) {
	return affectedOne(r.db.ExecContext(ctx, `
		UPDATE guests SET
			status = 'checked_in',
			checked_in_at = $2,
			updated_at = $2
		WHERE id = $1 AND status <> 'checked_in'
	`, id, at))
}

func (r *guestRepo) MarkFaceCaptured(ctx context.Context, id string, templateID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE guests SET
			face_template_id = $2,
			status = CASE WHEN status IN ('invited', 'registered') THEN 'face_captured' ELSE status END,
			updated_at = $3
		WHERE id = $1
	`, id, templateID, time.Now())
	return err
}

func (r *guestRepo) ClearFaceTemplate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE guests SET
			face_template_id = NULL,
			updated_at = $2
		WHERE id = $1
	`, id, time.Now())
	return err
}
