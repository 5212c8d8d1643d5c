package model

type GuestBadge string

const (
	BadgeVIP     GuestBadge = "vip"
	BadgeSpeaker GuestBadge = "speaker"
	BadgeGeneral GuestBadge = "general"
)

// GuestStatus only moves forward: invited -> registered -> face_captured -> checked_in.
type GuestStatus string

const (
	GuestStatusInvited      GuestStatus = "invited"
	GuestStatusRegistered   GuestStatus = "registered"
	GuestStatusFaceCaptured GuestStatus = "face_captured"
	GuestStatusCheckedIn    GuestStatus = "checked_in"
)

var guestStatusRank = map[GuestStatus]int{
	GuestStatusInvited:      0,
	GuestStatusRegistered:   1,
	GuestStatusFaceCaptured: 2,
	GuestStatusCheckedIn:    3,
}

// CanAdvanceTo reports whether moving from s to next keeps the status monotonic.
// Staying in the same status is allowed.
func (s GuestStatus) CanAdvanceTo(next GuestStatus) bool {
	from, ok := guestStatusRank[s]
	if !ok {
		return false
	}
	to, ok := guestStatusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

type ActivityAction string

const (
	ActivityCheckedIn    ActivityAction = "checked_in"
	ActivityFaceCaptured ActivityAction = "face_captured"
	ActivityFaceRemoved  ActivityAction = "face_removed"
)

type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)
