package service

import (
	"context"

	"github.com/openclaw/checkin-kiosk-go/internal/biometric"
	"github.com/openclaw/checkin-kiosk-go/internal/database"
	"github.com/openclaw/checkin-kiosk-go/internal/sse"
)

// FaceGateway is the part of the biometric client the services call.
type FaceGateway interface {
	ProcessFace(ctx context.Context, imageBase64 string) ([]biometric.DetectedFace, error)
	Identify(ctx context.Context, params biometric.IdentifyParams) ([]biometric.Candidate, error)
	CreateGallery(ctx context.Context, galleryID string) error
	DeleteGallery(ctx context.Context, galleryID string) error
	Enroll(ctx context.Context, galleryID, personID, template string) error
	RemovePerson(ctx context.Context, galleryID, personID string) error
}

// Transactor runs fn inside a database transaction. *database.DB satisfies it.
type Transactor interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// CheckInPublisher pushes live check-ins to arrival screens.
type CheckInPublisher interface {
	Publish(ctx context.Context, eventID string, event sse.Event) error
}

var (
	_ FaceGateway      = (*biometric.Client)(nil)
	_ Transactor       = (*database.DB)(nil)
	_ CheckInPublisher = (*sse.Broker)(nil)
)
