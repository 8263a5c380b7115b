package handlers

import (
	"context"
	"net/http"

	"github.com/veilport/veilport/internal/pkg/errors"
	"github.com/veilport/veilport/internal/pkg/utils"
)

// Pinger checks backing-store connectivity
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz. Readiness requires a reachable database.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		utils.WriteError(w, errors.New(errors.ErrCodeInternal, "Database unavailable", http.StatusServiceUnavailable))
		return
	}
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
}
