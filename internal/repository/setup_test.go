package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/checkin-kiosk-go/internal/database"
	"github.com/openclaw/checkin-kiosk-go/internal/model"
)

// setupTestDB connects to TEST_DATABASE_URL and applies the schema.
// Tests skip when no database is configured.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.Connect(context.Background(), url)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func seedEvent(t *testing.T, db *database.DB) *model.Event {
	t.Helper()

	var event model.Event
	err := db.GetContext(context.Background(), &event, `
		INSERT INTO events (name, date, location) VALUES ($1, $2, $3) RETURNING *
	`, "Test Summit", time.Now().Add(24*time.Hour), "Hall A")
	require.NoError(t, err)
	return &event
}

func seedGuest(t *testing.T, db *database.DB, eventID string, status model.GuestStatus) *model.Guest {
	t.Helper()

	regID := "REG-" + uuid.NewString()[:8]
	var guest model.Guest
	err := db.GetContext(context.Background(), &guest, `
		INSERT INTO guests (event_id, full_name, email, status, registration_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, eventID, "Ada Lovelace", uuid.NewString()+"@example.com", status, regID)
	require.NoError(t, err)
	return &guest
}
