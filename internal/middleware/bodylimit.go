package middleware

import (
	"fmt"
	"net/http"

	apperrors "github.com/openclaw/checkin-kiosk-go/internal/errors"
	"github.com/openclaw/checkin-kiosk-go/internal/httputil"
)

const DefaultMaxBodySize = 1 << 20

// BodyLimitMiddleware caps request bodies on write methods.
type BodyLimitMiddleware struct {
	maxSize int64
}

func NewBodyLimitMiddleware(maxSize int64) *BodyLimitMiddleware {
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}
	return &BodyLimitMiddleware{maxSize: maxSize}
}

func (m *BodyLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > m.maxSize {
			httputil.WriteErrorWithStatus(w, http.StatusRequestEntityTooLarge, m.tooLarge())
			return
		}

		// Chunked uploads have no declared length; the reader enforces the cap.
		r.Body = http.MaxBytesReader(w, r.Body, m.maxSize)
		next.ServeHTTP(w, r)
	})
}

func (m *BodyLimitMiddleware) tooLarge() *apperrors.AppError {
	return apperrors.ValidationError(fmt.Sprintf("Request body too large (max %s)", formatBytes(m.maxSize))).
		WithDetails(map[string]int64{"maxBytes": m.maxSize})
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
