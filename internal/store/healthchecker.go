package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dota-dot20/indexer/internal/health"
)

// LedgerHealthChecker monitors Ledger Store connectivity via periodic pings.
type LedgerHealthChecker struct {
	store        LedgerStore
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewLedgerHealthChecker creates a new store health checker.
func NewLedgerHealthChecker(store LedgerStore, log zerolog.Logger, probeTimeout time.Duration) *LedgerHealthChecker {
	hc := &LedgerHealthChecker{store: store, log: log, probeTimeout: probeTimeout}
	hc.healthy.Store(0) // start unhealthy until first successful probe
	return hc
}

// Name returns the checker name.
func (hc *LedgerHealthChecker) Name() string { return "ledger-store" }

// IsHealthy returns the cached health status (non-blocking).
func (hc *LedgerHealthChecker) IsHealthy() bool { return hc.healthy.Load() == 1 }

// Start begins periodic health checking. Implements health.HealthChecker.
func (hc *LedgerHealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() {
		to := hc.probeTimeout
		if to <= 0 {
			to = 2 * time.Second
		}
		checkCtx, cancel := context.WithTimeout(ctx, to)
		defer cancel()

		if err := hc.store.HealthPing(checkCtx); err != nil {
			hc.log.Error().Stack().Str("checker", hc.Name()).Err(err).Msg("store health check failed")
			hc.healthy.Store(0)
			return
		}
		hc.healthy.Store(1)
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

var _ health.HealthChecker = (*LedgerHealthChecker)(nil)
