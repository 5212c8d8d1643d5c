package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/checkin-kiosk-go/internal/model"
)

type ActivityLogRepository interface {
	Create(ctx context.Context, params model.CreateActivityLogParams) (*model.ActivityLog, error)
	FindByEventID(ctx context.Context, eventID string, limit, offset int) ([]model.ActivityLog, error)
	CountByGuestAndAction(ctx context.Context, guestID string, action model.ActivityAction) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) ActivityLogRepository
}

type activityLogRepo struct {
	db queryer
}

func NewActivityLogRepository(db *sqlx.DB) ActivityLogRepository {
	return &activityLogRepo{db: db}
}

func (r *activityLogRepo) WithTx(tx *sqlx.Tx) ActivityLogRepository {
	return &activityLogRepo{db: tx}
}

func (r *activityLogRepo) Create(ctx context.Context, params model.CreateActivityLogParams) (*model.ActivityLog, error) {
	var entry model.ActivityLog
	err := r.db.GetContext(ctx, &entry, `
		INSERT INTO activity_logs (event_id, guest_id, action, details)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.EventID, params.GuestID, params.Action, params.Details)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *activityLogRepo) FindByEventID(ctx context.Context, eventID string, limit, offset int) ([]model.ActivityLog, error) {
	var entries []model.ActivityLog
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM activity_logs
		WHERE event_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, eventID, limit, offset)
	return entries, err
}

func (r *activityLogRepo) CountByGuestAndAction(ctx context.Context, guestID string, action model.ActivityAction) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM activity_logs WHERE guest_id = $1 AND action = $2
	`, guestID, action)
	return count, err
}
