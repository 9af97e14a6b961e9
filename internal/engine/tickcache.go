package engine

import "github.com/dota-dot20/indexer/internal/model"

// TickModeCache is the process-local `ticks_mode` cache from spec.md §3: a
// small typed map from tick to its deployed mode, seeded with the protocol's
// first ticker and otherwise populated lazily by the Base Filter after a
// successful Ledger Store lookup. Passed explicitly into the Filter rather
// than kept as package state (spec.md §9 design notes) so the engine stays a
// pure function of (remarks, store, cache).
//
// The concurrency model is strictly single-threaded (spec.md §5), so this
// carries no lock.
type TickModeCache struct {
	modes map[string]model.Mode
}

// NewTickModeCache returns a cache seeded with {"dota": fair}, matching the
// original chain's first deployed ticker.
func NewTickModeCache() *TickModeCache {
	return &TickModeCache{modes: map[string]model.Mode{"dota": model.ModeFair}}
}

// Get returns the cached mode for tick, if any.
func (c *TickModeCache) Get(tick string) (model.Mode, bool) {
	m, ok := c.modes[tick]
	return m, ok
}

// Set populates the cache after a successful store lookup.
func (c *TickModeCache) Set(tick string, mode model.Mode) {
	c.modes[tick] = mode
}
