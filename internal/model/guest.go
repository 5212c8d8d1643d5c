package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Guest struct {
	ID             string      `db:"id" json:"id"`
	EventID        string      `db:"event_id" json:"eventId"`
	FullName       string      `db:"full_name" json:"fullName"`
	Email          string      `db:"email" json:"email"`
	Badge          GuestBadge  `db:"badge" json:"badge"`
	Status         GuestStatus `db:"status" json:"status"`
	RegistrationID *string     `db:"registration_id" json:"registrationId,omitempty"`
	FaceTemplateID *string     `db:"face_template_id" json:"-"`
	Agenda         Agenda      `db:"agenda" json:"agenda"`
	CheckedInAt    *time.Time  `db:"checked_in_at" json:"checkedInAt,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updatedAt"`
}

func (g *Guest) IsCheckedIn() bool {
	return g.Status == GuestStatusCheckedIn
}

type AgendaItem struct {
	Time     string `json:"time"`
	Title    string `json:"title"`
	Location string `json:"location,omitempty"`
}

// Agenda is stored as a JSONB array and keeps its recorded order.
type Agenda []AgendaItem

func (a Agenda) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *Agenda) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan agenda: unsupported type %T", src)
	}
	return json.Unmarshal(data, a)
}
