package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/checkin-kiosk-go/internal/model"
)

type EventRepository interface {
	FindByID(ctx context.Context, id string) (*model.Event, error)
}

type eventRepo struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	var event model.Event
	err := r.db.GetContext(ctx, &event, `
		SELECT * FROM events WHERE id = $1
	`, id)
	return HandleNotFound(&event, err)
}
