package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/openclaw/checkin-kiosk-go/internal/errors"
	"github.com/openclaw/checkin-kiosk-go/internal/httputil"
	"github.com/openclaw/checkin-kiosk-go/internal/service"
	"github.com/openclaw/checkin-kiosk-go/internal/util"
)

type IdentityResolver interface {
	IdentifyByFace(ctx context.Context, imageBase64, eventID string) (*service.Outcome, error)
	IdentifyManual(ctx context.Context, q service.ManualQuery) (*service.Outcome, error)
}

type FaceEnroller interface {
	CaptureFace(ctx context.Context, guestID, imageBase64 string) (*service.CaptureResult, error)
	RemoveFace(ctx context.Context, guestID string) error
}

type KioskHandler struct {
	identity IdentityResolver
	checkIns service.CheckInRunner
	faces    FaceEnroller
}

func NewKioskHandler(identity IdentityResolver, checkIns service.CheckInRunner, faces FaceEnroller) *KioskHandler {
	return &KioskHandler{
		identity: identity,
		checkIns: checkIns,
		faces:    faces,
	}
}

func (h *KioskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/identify/face", h.IdentifyFace)
	r.Post("/identify/manual", h.IdentifyManual)
	r.Post("/guests/{guestID}/check-in", h.CheckIn)
	r.Post("/guests/{guestID}/face", h.CaptureFace)
	r.Delete("/guests/{guestID}/face", h.RemoveFace)

	return r
}

type identifyFaceRequest struct {
	Image   string `json:"image"`
	EventID string `json:"eventId"`
}

// IdentifyFace answers 200 for every resolution outcome, misses included.
func (h *KioskHandler) IdentifyFace(w http.ResponseWriter, r *http.Request) {
	var req identifyFaceRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.identity.IdentifyByFace(r.Context(), req.Image, req.EventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, formatOutcome(outcome))
}

type identifyManualRequest struct {
	Query   string `json:"query"`
	Type    string `json:"type"`
	EventID string `json:"eventId"`
}

func (h *KioskHandler) IdentifyManual(w http.ResponseWriter, r *http.Request) {
	var req identifyManualRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.identity.IdentifyManual(r.Context(), service.ManualQuery{
		Query:   req.Query,
		Type:    service.LookupType(req.Type),
		EventID: req.EventID,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, formatOutcome(outcome))
}

// CheckIn is the front desk override; it needs no identification step.
func (h *KioskHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	guestID, ok := guestIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.checkIns.CheckIn(r.Context(), guestID, service.CheckInMethod{Via: service.CheckInViaDesk})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"already": result.Already,
		"guest":   formatGuest(result.Guest),
	})
}

type captureFaceRequest struct {
	Image string `json:"image"`
}

func (h *KioskHandler) CaptureFace(w http.ResponseWriter, r *http.Request) {
	guestID, ok := guestIDParam(w, r)
	if !ok {
		return
	}

	var req captureFaceRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.faces.CaptureFace(r.Context(), guestID, req.Image)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"guest":         formatGuest(result.Guest),
		"qualityPassed": result.QualityPassed,
	})
}

func (h *KioskHandler) RemoveFace(w http.ResponseWriter, r *http.Request) {
	guestID, ok := guestIDParam(w, r)
	if !ok {
		return
	}

	if err := h.faces.RemoveFace(r.Context(), guestID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func guestIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	guestID := chi.URLParam(r, "guestID")
	if !util.IsValidUUID(guestID) {
		httputil.WriteError(w, apperrors.InvalidInput("guestId", "must be a UUID"))
		return "", false
	}
	return util.NormalizeUUID(guestID), true
}
