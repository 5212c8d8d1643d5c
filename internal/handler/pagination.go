package handler

import (
	"net/http"
	"strconv"

	apperrors "github.com/openclaw/checkin-kiosk-go/internal/errors"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset from the query string. Missing
// values fall back to defaults, limit is clamped to MaxLimit, and
// non-numeric or negative values are rejected.
func ParsePagination(r *http.Request) (PaginationParams, error) {
	p := PaginationParams{Limit: DefaultLimit}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return p, apperrors.InvalidInput("limit", "must be a positive integer")
		}
		p.Limit = min(limit, MaxLimit)
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return p, apperrors.InvalidInput("offset", "must be a non-negative integer")
		}
		p.Offset = offset
	}

	return p, nil
}
