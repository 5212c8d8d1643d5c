package service

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/openclaw/checkin-kiosk-go/internal/biometric"
	"github.com/openclaw/checkin-kiosk-go/internal/database"
	"github.com/openclaw/checkin-kiosk-go/internal/model"
	"github.com/openclaw/checkin-kiosk-go/internal/repository"
	"github.com/openclaw/checkin-kiosk-go/internal/sse"
)

// fakeTx runs fn without a real transaction; the in-memory repos ignore tx.
type fakeTx struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTx) WithTx(ctx context.Context, fn database.TxFunc) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return fn(nil)
}

type memGuestRepo struct {
	mu      sync.Mutex
	guests  map[string]*model.Guest
	findErr error
}

func newMemGuestRepo(guests ...*model.Guest) *memGuestRepo {
	r := &memGuestRepo{guests: make(map[string]*model.Guest)}
	for _, g := range guests {
		r.guests[g.ID] = g
	}
	return r
}

func (r *memGuestRepo) get(id string) *model.Guest {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.guests[id]; ok {
		copied := *g
		return &copied
	}
	return nil
}

func (r *memGuestRepo) FindByID(ctx context.Context, id string) (*model.Guest, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.get(id), nil
}

func (r *memGuestRepo) find(match func(*model.Guest) bool, eventID string) (*model.Guest, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.guests {
		if match(g) && (eventID == "" || g.EventID == eventID) {
			copied := *g
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memGuestRepo) FindByEmail(ctx context.Context, email string, eventID string) (*model.Guest, error) {
	return r.find(func(g *model.Guest) bool { return g.Email == email }, eventID)
}

func (r *memGuestRepo) FindByRegistrationID(ctx context.Context, registrationID string, eventID string) (*model.Guest, error) {
	return r.find(func(g *model.Guest) bool {
		return g.RegistrationID != nil && *g.RegistrationID == registrationID
	}, eventID)
}

func (r *memGuestRepo) MarkCheckedIn(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guests[id]
	if !ok || g.Status == model.GuestStatusCheckedIn {
		return false, nil
	}
	g.Status = model.GuestStatusCheckedIn
	g.CheckedInAt = &at
	return true, nil
}

func (r *memGuestRepo) MarkFaceCaptured(ctx context.Context, id string, templateID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.guests[id]; ok {
		g.FaceTemplateID = &templateID
		if g.Status == model.GuestStatusInvited || g.Status == model.GuestStatusRegistered {
			g.Status = model.GuestStatusFaceCaptured
		}
	}
	return nil
}

func (r *memGuestRepo) ClearFaceTemplate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.guests[id]; ok {
		g.FaceTemplateID = nil
	}
	return nil
}

func (r *memGuestRepo) WithTx(tx *sqlx.Tx) repository.GuestRepository {
	return r
}

type memActivityRepo struct {
	mu      sync.Mutex
	entries []model.ActivityLog
}

func (r *memActivityRepo) Create(ctx context.Context, params model.CreateActivityLogParams) (*model.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := model.ActivityLog{
		EventID:   params.EventID,
		GuestID:   params.GuestID,
		Action:    params.Action,
		Details:   params.Details,
		CreatedAt: time.Now(),
	}
	r.entries = append(r.entries, entry)
	return &entry, nil
}

func (r *memActivityRepo) FindByEventID(ctx context.Context, eventID string, limit, offset int) ([]model.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ActivityLog
	for _, e := range r.entries {
		if e.EventID == eventID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memActivityRepo) CountByGuestAndAction(ctx context.Context, guestID string, action model.ActivityAction) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.GuestID != nil && *e.GuestID == guestID && e.Action == action {
			n++
		}
	}
	return n, nil
}

func (r *memActivityRepo) WithTx(tx *sqlx.Tx) repository.ActivityLogRepository {
	return r
}

type memEventRepo map[string]*model.Event

func (r memEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	return r[id], nil
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) ProcessFace(ctx context.Context, imageBase64 string) ([]biometric.DetectedFace, error) {
	args := m.Called(ctx, imageBase64)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]biometric.DetectedFace), args.Error(1)
}

func (m *mockGateway) Identify(ctx context.Context, params biometric.IdentifyParams) ([]biometric.Candidate, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]biometric.Candidate), args.Error(1)
}

func (m *mockGateway) CreateGallery(ctx context.Context, galleryID string) error {
	return m.Called(ctx, galleryID).Error(0)
}

func (m *mockGateway) DeleteGallery(ctx context.Context, galleryID string) error {
	return m.Called(ctx, galleryID).Error(0)
}

func (m *mockGateway) Enroll(ctx context.Context, galleryID, personID, template string) error {
	return m.Called(ctx, galleryID, personID, template).Error(0)
}

func (m *mockGateway) RemovePerson(ctx context.Context, galleryID, personID string) error {
	return m.Called(ctx, galleryID, personID).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, eventID string, event sse.Event) error {
	return m.Called(ctx, eventID, event).Error(0)
}

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, system string, history []model.Turn, message string) (string, error) {
	args := m.Called(ctx, system, history, message)
	return args.String(0), args.Error(1)
}

func strPtr(s string) *string { return &s }

func statusErr(code int) error {
	return &biometric.StatusError{Op: "test", StatusCode: code, Message: "vendor says no"}
}
