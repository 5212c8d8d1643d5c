package sse

import (
	"encoding/json"
	"time"

	"github.com/openclaw/checkin-kiosk-go/internal/model"
)

const EventGuestCheckedIn = "guest_checked_in"

// CheckIn is the payload shown on live arrival screens. It carries no
// biometric data.
type CheckIn struct {
	GuestID     string           `json:"guestId"`
	FullName    string           `json:"fullName"`
	Badge       model.GuestBadge `json:"badge"`
	Via         string           `json:"via"`
	CheckedInAt time.Time        `json:"checkedInAt"`
}

func NewCheckInEvent(guest *model.Guest, via string) (Event, error) {
	at := time.Now().UTC()
	if guest.CheckedInAt != nil {
		at = *guest.CheckedInAt
	}
	data, err := json.Marshal(CheckIn{
		GuestID:     guest.ID,
		FullName:    guest.FullName,
		Badge:       guest.Badge,
		Via:         via,
		CheckedInAt: at,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{Type: EventGuestCheckedIn, Data: data}, nil
}
