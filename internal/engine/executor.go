package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dota-dot20/indexer/internal/model"
	"github.com/dota-dot20/indexer/internal/store"
)

// Executor runs a block's classified batches against the Ledger Store with
// the transactional discipline spec.md §4.5 mandates: deploys each in their
// own outer transaction, then mints and other-ops together in one outer
// transaction with per-batch nested savepoints.
type Executor struct {
	store store.LedgerStore
	log   zerolog.Logger
}

// NewExecutor builds an Executor over st.
func NewExecutor(st store.LedgerStore, log zerolog.Logger) *Executor {
	return &Executor{store: st, log: log}
}

// Execute runs c against the store and advances indexer progress to
// blockNum. A returned error is always a storage error (fatal): the caller
// (the Block Driver) must not advance start_block and should expect the
// block to be reprocessed from scratch on retry.
func (e *Executor) Execute(ctx context.Context, blockNum uint64, c Classification) error {
	if err := e.runDeploys(ctx, c.DeployList); err != nil {
		return err
	}
	return e.runMintsAndOthers(ctx, blockNum, c)
}

// runDeploys is the deploy phase (spec.md §4.5 step 1): each deploy gets its
// own outer transaction because it performs DDL. A protocol-level failure
// (tick already exists) rolls back just that deploy and continues; a
// storage-level failure rolls back and propagates as fatal.
func (e *Executor) runDeploys(ctx context.Context, deploys []model.Remark) error {
	for _, r := range deploys {
		tx, err := e.store.BeginDeploy(ctx)
		if err != nil {
			return err
		}

		err = Deploy(ctx, tx, *r.Memo.Deploy, r.User)
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				return rbErr
			}
			if model.IsProtocolError(err) {
				e.log.Warn().Err(err).Str("tick", r.Memo.Deploy.Tick).Msg("deploy rejected")
				continue
			}
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}

// runMintsAndOthers is phase 2 (spec.md §4.5 step 2): one outer transaction
// holding a nested savepoint per mint and per other-batch, followed by an
// indexer-progress upsert and commit.
func (e *Executor) runMintsAndOthers(ctx context.Context, blockNum uint64, c Classification) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}

	for tick, remarks := range c.MintsByTick {
		if err := e.runMintGroup(ctx, tx, tick, remarks); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}

	for i, batch := range c.OtherBatches {
		if err := e.runOtherBatch(ctx, tx, fmt.Sprintf("batch_%d", i), batch); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}

	status := model.IndexerStatus{Protocol: "dot-20", IndexerHeight: blockNum, CrawlerHeight: blockNum}
	if err := tx.UpsertIndexerStatus(ctx, status); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

// runMintGroup processes every accepted mint remark for one tick. Fair-mode
// tickers share the deploy amount evenly (floor division, remainder
// burned); normal-mode mints use the submitter's declared lim, and a mint
// declaring more than the deploy's optional lim is dropped; owner mode never
// reaches here (the Classifier routes it to OtherBatches).
func (e *Executor) runMintGroup(ctx context.Context, tx store.Tx, tick string, remarks []model.Remark) error {
	info, err := tx.GetDeployInfo(ctx, tick)
	if err != nil {
		return err
	}

	var fairShare uint64
	if info.Mode == model.ModeFair {
		fairShare = info.Amt / uint64(len(remarks))
	}

	for _, r := range remarks {
		sp, err := tx.Savepoint(ctx, fmt.Sprintf("mint_%s_%d_%d", tick, r.ExtrinsicIdx, r.RemarkIdx))
		if err != nil {
			return err
		}

		lim := r.Memo.Mint.Lim
		if info.Mode == model.ModeFair {
			lim = fairShare
		} else if info.Lim > 0 && lim > info.Lim {
			e.log.Warn().Str("tick", tick).Uint64("lim", lim).Uint64("cap", info.Lim).
				Msg("mint exceeds deploy-capped lim, dropping")
			if err := sp.Rollback(ctx); err != nil {
				return err
			}
			continue
		}

		opErr := Mint(ctx, sp, tick, info.Mode, info.Deployer, r.User, r.Memo.Mint.To, lim)
		if opErr != nil {
			if model.IsProtocolError(opErr) {
				e.log.Warn().Err(opErr).Str("tick", tick).Str("to", r.Memo.Mint.To).Msg("mint rejected")
				if err := sp.Rollback(ctx); err != nil {
					return err
				}
				continue
			}
			return opErr
		}

		if err := sp.Release(ctx); err != nil {
			return err
		}
	}
	return nil
}

// runOtherBatch executes one batch's remarks inside a single nested
// savepoint: any protocol-level failure rolls back the whole batch (rule P2,
// batch atomicity); a storage-level failure propagates as fatal.
func (e *Executor) runOtherBatch(ctx context.Context, tx store.Tx, name string, batch model.Batch) error {
	sp, err := tx.Savepoint(ctx, name)
	if err != nil {
		return err
	}

	for _, r := range batch {
		var opErr error
		switch r.Memo.Op {
		case model.OpMint:
			var info *model.DeployInfo
			info, opErr = sp.GetDeployInfo(ctx, r.Memo.Mint.Tick)
			if opErr == nil {
				opErr = Mint(ctx, sp, r.Memo.Mint.Tick, info.Mode, info.Deployer, r.User, r.Memo.Mint.To, r.Memo.Mint.Lim)
			}
		case model.OpTransfer:
			opErr = Transfer(ctx, sp, r.Memo.Transfer.Tick, r.User, *r.Memo.Transfer)
		case model.OpTransferFrom:
			opErr = TransferFrom(ctx, sp, r.Memo.TransferFrom.Tick, r.User, *r.Memo.TransferFrom)
		case model.OpApprove:
			opErr = Approve(ctx, sp, r.Memo.Approve.Tick, r.User, *r.Memo.Approve)
		default:
			opErr = model.NewProtocolError("unexpected op in batch: " + string(r.Memo.Op))
		}

		if opErr != nil {
			if model.IsProtocolError(opErr) {
				e.log.Warn().Err(opErr).Str("op", string(r.Memo.Op)).Msg("batch op rejected, rolling back batch")
				return sp.Rollback(ctx)
			}
			return opErr
		}
	}

	return sp.Release(ctx)
}
