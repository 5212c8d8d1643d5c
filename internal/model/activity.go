package model

import "time"

// ActivityLog is an append-only audit row.
type ActivityLog struct {
	ID        string         `db:"id" json:"id"`
	EventID   string         `db:"event_id" json:"eventId"`
	GuestID   *string        `db:"guest_id" json:"guestId,omitempty"`
	Action    ActivityAction `db:"action" json:"action"`
	Details   string         `db:"details" json:"details"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

type CreateActivityLogParams struct {
	EventID string
	GuestID *string
	Action  ActivityAction
	Details string
}
