// Package profile derives a stable venue assignment from a guest identity.
// The assignment is a pure function of the identity key and is never
// stored; two guests can share a seat.
package profile

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/openclaw/checkin-kiosk-go/internal/model"
)

const seatCount = 200

type Slot struct {
	Hall       string `json:"hall"`
	Floor      string `json:"floor"`
	Zone       string `json:"zone"`
	Directions string `json:"directions"`
}

type Profile struct {
	Slot
	SeatNumber int    `json:"seatNumber"`
	Seat       string `json:"seat"`
}

var Catalog = []Slot{
	{Hall: "Main Hall", Floor: "Ground floor", Zone: "A", Directions: "Straight ahead past the registration desk, doors on the left."},
	{Hall: "Main Hall", Floor: "Ground floor", Zone: "B", Directions: "Straight ahead past the registration desk, doors on the right."},
	{Hall: "Hall C", Floor: "First floor", Zone: "C", Directions: "Take the escalator up one level and turn right."},
	{Hall: "Hall D", Floor: "First floor", Zone: "D", Directions: "Take the escalator up one level and turn left."},
	{Hall: "Garden Pavilion", Floor: "Ground floor", Zone: "G", Directions: "Follow the signs through the atrium to the terrace exit."},
	{Hall: "Summit Room", Floor: "Second floor", Zone: "S", Directions: "Use the lifts behind the cafe to the second floor."},
}

// IdentityKey returns the first non-empty of registration id, email and
// full name.
func IdentityKey(guest *model.Guest) string {
	if guest == nil {
		return ""
	}
	if guest.RegistrationID != nil {
		if key := strings.TrimSpace(*guest.RegistrationID); key != "" {
			return key
		}
	}
	if key := strings.TrimSpace(guest.Email); key != "" {
		return key
	}
	return strings.TrimSpace(guest.FullName)
}

func Assemble(key string) Profile {
	h := xxhash.Sum64String(key)
	slot := Catalog[h%uint64(len(Catalog))]
	seat := int(h % seatCount)
	return Profile{
		Slot:       slot,
		SeatNumber: seat,
		Seat:       fmt.Sprintf("%s-%03d", slot.Zone, seat),
	}
}

func ForGuest(guest *model.Guest) Profile {
	return Assemble(IdentityKey(guest))
}
