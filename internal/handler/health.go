package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const healthCheckTimeout = 3 * time.Second

// HealthCheck probes one dependency. A failing critical check makes the
// instance report 503; other failures are listed with a 200.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

type HealthHandler struct {
	checks     []HealthCheck
	sseClients func() int
	now        func() time.Time
}

func NewHealthHandler(sseClients func() int, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks:     checks,
		sseClients: sseClients,
		now:        time.Now,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		degraded bool
	)
	for _, c := range h.checks {
		wg.Add(1)
		go func(c HealthCheck) {
			defer wg.Done()
			err := c.Check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				results[c.Name] = "ok"
				return
			}
			results[c.Name] = "unavailable"
			if c.Critical {
				degraded = true
			}
			log.Warn().Err(err).Str("check", c.Name).Bool("critical", c.Critical).Msg("health check failed")
		}(c)
	}
	wg.Wait()

	status, code := "ok", http.StatusOK
	if degraded {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	resp := map[string]any{
		"status":    status,
		"checks":    results,
		"timestamp": h.now().UnixMilli(),
	}
	if h.sseClients != nil {
		resp["sseClients"] = h.sseClients()
	}
	writeJSON(w, code, resp)
}
