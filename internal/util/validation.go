package util

import (
	"strings"

	"github.com/google/uuid"
)

func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// NormalizeUUID lower-cases a UUID so it compares equal to Postgres uuid text.
func NormalizeUUID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// NormalizeEmail matches how emails are stored at registration.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeRegistrationID matches the upper-case form registration ids are issued in.
func NormalizeRegistrationID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// MaskEmail keeps the first character of the local part for logs.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
