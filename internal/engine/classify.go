package engine

import (
	"github.com/rs/zerolog"

	"github.com/dota-dot20/indexer/internal/model"
)

// Classification is the Classifier's output (spec.md §4.4): valid batches
// partitioned by what the Executor must do with them.
type Classification struct {
	// DeployList holds singleton deploy batches, in arrival order.
	DeployList []model.Remark
	// MintsByTick holds singleton fair/normal mint batches, one remark per
	// accepted (tick, origin) pair in this block, grouped by tick and kept in
	// arrival order within each group.
	MintsByTick map[string][]model.Remark
	// OtherBatches holds everything else: multi-remark batches and singleton
	// owner-mode mints, transfers, transferFroms, and approves.
	OtherBatches []model.Batch
}

// Classify partitions a block's valid batches (already in arrival order
// across extrinsics) into deploys, per-tick fair/normal mints, and
// everything else. It enforces the per-block mint-uniqueness invariant
// (spec.md §3, rule P4): the first (tick, origin) mint in a block wins, later
// duplicates are dropped with a warning.
//
// cache is the same TickModeCache the Base Filter resolved tick modes into;
// by classification time every surviving mint's tick is guaranteed present
// (rule R3 already discarded mints on undeployed ticks).
func Classify(batches []model.Batch, cache *TickModeCache, log zerolog.Logger) Classification {
	c := Classification{MintsByTick: make(map[string][]model.Remark)}
	seenMint := make(map[string]bool) // key: tick + "\x00" + origin

	for _, batch := range batches {
		if len(batch) == 1 {
			r := batch[0]
			switch r.Memo.Op {
			case model.OpDeploy:
				c.DeployList = append(c.DeployList, r)
				continue

			case model.OpMint:
				tick := r.Memo.Mint.Tick
				if mode, ok := cache.Get(tick); ok && (mode == model.ModeFair || mode == model.ModeNormal) {
					key := tick + "\x00" + r.Origin
					if seenMint[key] {
						log.Warn().Str("tick", tick).Str("origin", r.Origin).
							Msg("duplicate mint for (tick, origin) in this block, dropping")
						continue
					}
					seenMint[key] = true
					c.MintsByTick[tick] = append(c.MintsByTick[tick], r)
					continue
				}
				// Owner-mode (or unresolvable, which should not happen post-filter):
				// falls through to OtherBatches below.
			}
		}
		c.OtherBatches = append(c.OtherBatches, batch)
	}

	return c
}
