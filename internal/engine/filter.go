package engine

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/dota-dot20/indexer/internal/model"
	"github.com/dota-dot20/indexer/internal/store"
)

// Filter is the Base Filter (spec.md §4.3): it normalizes and validates one
// extrinsic's remarks, batch by batch, discarding invalid batches or — on an
// R6 exclusivity violation — the whole extrinsic.
type Filter struct {
	store store.LedgerStore
	cache *TickModeCache
	log   zerolog.Logger
}

// NewFilter builds a Base Filter over store, sharing cache across blocks.
func NewFilter(st store.LedgerStore, cache *TickModeCache, log zerolog.Logger) *Filter {
	return &Filter{store: st, cache: cache, log: log}
}

// FilterExtrinsic applies rules R1-R8 to one extrinsic's remarks, already
// grouped by batchall_index is done internally. It returns the surviving
// batches in arrival order, or nil if an R6 violation discards the whole
// extrinsic. A non-nil error means a Ledger Store lookup failed for reasons
// other than "tick not found" and must propagate as a storage error.
func (f *Filter) FilterExtrinsic(ctx context.Context, raw []model.RawRemark) ([]model.Batch, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	rawBatches := splitRuns(raw, func(r model.RawRemark) uint32 { return r.BatchAllIdx })
	extrinsicTotal := len(raw)

	var surviving []model.Batch
	violated := false
	for _, rb := range rawBatches {
		batch, viol, err := f.processBatch(ctx, rb, extrinsicTotal)
		if err != nil {
			return nil, err
		}
		if viol {
			violated = true
		}
		if batch != nil {
			surviving = append(surviving, *batch)
		}
	}

	if violated {
		f.log.Warn().Int("extrinsic_remarks", extrinsicTotal).
			Msg("R6 exclusivity violation: discarding entire extrinsic")
		return nil, nil
	}
	return surviving, nil
}

// processBatch validates and normalizes one batch. It returns the surviving
// batch (nil if R1-R5 discarded it), whether the batch trips the R6
// exclusivity check (the caller decides whether that discards the whole
// extrinsic), and a storage error if a Ledger Store lookup failed.
func (f *Filter) processBatch(ctx context.Context, raw []model.RawRemark, extrinsicTotal int) (*model.Batch, bool, error) {
	remarks := make([]model.Remark, 0, len(raw))
	for _, rr := range raw {
		memo, err := ParseMemo(rr.MemoJSON)
		if err != nil {
			f.log.Warn().Err(err).Uint64("block", rr.BlockNum).Uint32("extrinsic", rr.ExtrinsicIdx).
				Uint32("batch", rr.BatchAllIdx).Msg("R1/R2: discarding batch")
			return nil, false, nil
		}
		remarks = append(remarks, model.Remark{
			BlockNum:     rr.BlockNum,
			ExtrinsicIdx: rr.ExtrinsicIdx,
			BatchAllIdx:  rr.BatchAllIdx,
			RemarkIdx:    rr.RemarkIdx,
			Origin:       rr.Origin,
			User:         rr.User,
			Memo:         memo,
		})
	}

	exclusive := false
	for i := range remarks {
		r := &remarks[i]
		switch r.Memo.Op {
		case model.OpDeploy:
			exclusive = true

		case model.OpMint:
			tick := Tick(r.Memo)
			mode, known, err := f.resolveMode(ctx, tick)
			if err != nil {
				return nil, false, err
			}
			if !known {
				f.log.Warn().Str("tick", tick).Msg("R3: mint on undeployed tick, discarding batch")
				return nil, false, nil
			}
			if mode == model.ModeFair || mode == model.ModeNormal {
				exclusive = true
			}
			if mode == model.ModeFair {
				r.Memo.Mint.Lim = 1 // R7: placeholder, Executor recomputes the real share.
			}
			if r.Memo.Mint.To == "" {
				r.Memo.Mint.To = r.User // R8
			}

		case model.OpTransfer, model.OpTransferFrom, model.OpApprove:
			tick := Tick(r.Memo)
			if _, known, err := f.resolveMode(ctx, tick); err != nil {
				return nil, false, err
			} else if !known {
				f.log.Warn().Str("tick", tick).Str("op", string(r.Memo.Op)).
					Msg("R3: op on undeployed tick, discarding batch")
				return nil, false, nil
			}

		case model.OpMemo:
			// No tick to resolve; validated structurally, positionally below.
		}
	}

	// R4: a memo terminator may only be the last remark, and only in a batch
	// of 2 or more.
	for i, r := range remarks {
		if r.Memo.Op == model.OpMemo && (i != len(remarks)-1 || len(remarks) < 2) {
			f.log.Warn().Int("position", i).Int("batch_len", len(remarks)).
				Msg("R4: misplaced memo terminator, discarding batch")
			return nil, false, nil
		}
	}

	origLen := len(remarks)
	lastIsMemo := origLen > 0 && remarks[origLen-1].Memo.Op == model.OpMemo

	// R5: propagate the terminator's text onto every preceding remark, then
	// drop the terminator itself.
	if lastIsMemo {
		text := remarks[origLen-1].Memo.Text.Text
		remarks = remarks[:origLen-1]
		for i := range remarks {
			remarks[i].MemoRemark = &text
		}
	}

	// R6: fair/normal mint and deploy are exclusive ops — the extrinsic that
	// carries one must not exceed two remarks in total, and a two-remark batch
	// holding one must end in a memo terminator.
	violatesR6 := false
	if exclusive {
		if extrinsicTotal > 2 {
			violatesR6 = true
		} else if origLen == 2 && !lastIsMemo {
			violatesR6 = true
		}
	}

	batch := model.Batch(remarks)
	return &batch, violatesR6, nil
}

// resolveMode resolves tick's mode via the cache, falling back to the Ledger
// Store on a miss and populating the cache on success (spec.md §4.3
// normalization step 2). The bool return is false iff the tick has never
// been deployed.
func (f *Filter) resolveMode(ctx context.Context, tick string) (model.Mode, bool, error) {
	if mode, ok := f.cache.Get(tick); ok {
		return mode, true, nil
	}
	info, err := f.store.GetDeployInfo(ctx, tick)
	if errors.Is(err, model.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	f.cache.Set(tick, info.Mode)
	return info.Mode, true, nil
}
