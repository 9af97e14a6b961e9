// Package engine is the pure protocol engine: it turns one block's raw,
// ordered remark stream into ledger mutations. It has no knowledge of the
// chain client or the driver loop above it — callers hand it a block's
// remarks and a store, and get back a fatal error or nil.
package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dota-dot20/indexer/internal/model"
	"github.com/dota-dot20/indexer/internal/store"
)

// Engine wires the Base Filter, Classifier and Executor together, sharing
// one TickModeCache across the blocks it processes.
type Engine struct {
	filter   *Filter
	executor *Executor
	cache    *TickModeCache
	log      zerolog.Logger
}

// New builds an Engine over st, seeding a fresh tick-mode cache.
func New(st store.LedgerStore, log zerolog.Logger) *Engine {
	cache := NewTickModeCache()
	return &Engine{
		filter:   NewFilter(st, cache, log),
		executor: NewExecutor(st, log),
		cache:    cache,
		log:      log,
	}
}

// ProcessBlock runs one block's already-ordered remarks through the full
// pipeline: group by extrinsic, filter and normalize each extrinsic's
// batches, classify the survivors, then execute. Returns a fatal (storage)
// error, or nil on success — the only two outcomes the Block Driver needs to
// decide whether to advance start_block.
func (e *Engine) ProcessBlock(ctx context.Context, blockNum uint64, remarks []model.RawRemark) error {
	extrinsics := GroupByExtrinsic(remarks)

	var valid []model.Batch
	for _, ext := range extrinsics {
		batches, err := e.filter.FilterExtrinsic(ctx, ext)
		if err != nil {
			return err
		}
		valid = append(valid, batches...)
	}

	classification := Classify(valid, e.cache, e.log)

	if err := e.executor.Execute(ctx, blockNum, classification); err != nil {
		e.log.Error().Err(err).Uint64("block", blockNum).Msg("block execution failed, rolled back")
		return err
	}

	e.log.Debug().Uint64("block", blockNum).
		Int("deploys", len(classification.DeployList)).
		Int("mint_ticks", len(classification.MintsByTick)).
		Int("other_batches", len(classification.OtherBatches)).
		Msg("block processed")
	return nil
}
