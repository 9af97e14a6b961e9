// Package statusapi exposes a small read-only HTTP surface over the
// indexer's health and progress: GET /healthz (liveness) and GET /status
// (the next block the driver will fetch). It carries no write path — the engine's state
// changes only through the Block Driver.
package statusapi

import (
	"net/http"
	"time"

	"github.com/dota-dot20/indexer/internal/health"
	"github.com/dota-dot20/indexer/internal/statusapi/respond"
)

// ProgressSource reports the driver's current position, used by the
// /status handler.
type ProgressSource interface {
	StartBlock() uint64
}

// Handlers bundles the dependencies the status endpoints read from.
type Handlers struct {
	health   *health.ServiceHealthChecker
	progress ProgressSource
	protocol string
}

// NewHandlers builds the status API's handler set.
func NewHandlers(healthChecker *health.ServiceHealthChecker, progress ProgressSource, protocol string) *Handlers {
	return &Handlers{health: healthChecker, progress: progress, protocol: protocol}
}

// Healthz handles GET /healthz. Always returns 200; the body reports
// healthy/unhealthy so load balancers and operators can distinguish a slow
// indexer from a dead process.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	if h.health == nil || h.health.IsHealthy() {
		status = "healthy"
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Status handles GET /status, reporting the protocol name and, as
// current_block, the next block the driver will fetch (Driver.StartBlock).
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"protocol": h.protocol,
	}
	if h.progress != nil {
		body["current_block"] = h.progress.StartBlock()
	}
	respond.WriteJSON(w, http.StatusOK, body)
}
