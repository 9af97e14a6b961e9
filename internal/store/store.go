// Package store defines the Ledger Store contract the engine depends on:
// ticker metadata, per-ticker balances and approvals, and indexer progress,
// behind transactional handles with savepoint support. Concrete backends
// (Postgres, SQLite) live in internal/store/<driver>.
package store

import (
	"context"

	"github.com/dota-dot20/indexer/internal/model"
)

// LedgerStore is the top-level persistence surface. It hands out two kinds
// of transactional handle because the protocol's two execution phases have
// incompatible transactional needs (spec.md §4.5): deploy creates schema
// (DDL) and must run in its own outer transaction; mints and other ops run
// as savepoints nested inside one shared outer transaction.
type LedgerStore interface {
	// GetDeployInfo reads ticker metadata outside any transaction — used by
	// the Base Filter to resolve/cache a tick's mode.
	// Returns model.ErrNotFound if the tick has never been deployed.
	GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error)

	GetIndexerStatus(ctx context.Context, protocol string) (*model.IndexerStatus, error)

	// BeginDeploy opens a fresh outer transaction for one deploy.
	BeginDeploy(ctx context.Context) (DeployTx, error)

	// Begin opens the block's single outer transaction for the mint+other
	// phase.
	Begin(ctx context.Context) (Tx, error)

	// HealthPing reports connectivity; implements health.HealthPinger.
	HealthPing(ctx context.Context) error
}

// DeployTx is the scope of one deploy. It creates the ticker row and the
// per-tick balance/approval tables atomically; any error rolls the whole
// thing back (spec.md §4.5 phase 1).
type DeployTx interface {
	GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error)
	// CreateTicker inserts the ticker row and idempotently creates its
	// balance/approval tables (DDL), in that order, within this transaction.
	CreateTicker(ctx context.Context, info model.DeployInfo) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Tx is the block's single mint+other-ops outer transaction.
type Tx interface {
	// GetDeployInfo reads ticker metadata within the outer transaction, e.g.
	// to resolve a tick's total supply before computing a fair-mode share.
	GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error)
	// Savepoint opens a nested savepoint scoped to one mint or one batch.
	Savepoint(ctx context.Context, name string) (Savepoint, error)
	UpsertIndexerStatus(ctx context.Context, status model.IndexerStatus) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Savepoint exposes the read/mutate primitives Operation Semantics (§4.6)
// are built from, all scoped to one nested savepoint. A protocol-level
// failure (insufficient balance, absent ticker, exceeded allowance) is
// returned as a *model.ProtocolError; anything else is a storage error and
// must abort the whole outer transaction.
type Savepoint interface {
	GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error)

	GetBalance(ctx context.Context, tick, user string) (uint64, error)
	CreditBalance(ctx context.Context, tick, user string, amt uint64) error
	// DebitBalance fails with a ProtocolError if the user's balance is below
	// amt.
	DebitBalance(ctx context.Context, tick, user string, amt uint64) error

	// DebitRemaining decrements a ticker's remaining supply. When strict is
	// true (fair/normal mode) it fails with a ProtocolError if remaining <
	// amt; when false (owner mode) it always succeeds and may drive
	// remaining negative (spec.md §3 invariant exemption).
	DebitRemaining(ctx context.Context, tick string, amt uint64, strict bool) error

	GetApproval(ctx context.Context, tick, owner, spender string) (uint64, error)
	// SetApproval overwrites (not adds to) the standing approval.
	SetApproval(ctx context.Context, tick, owner, spender string, amt uint64) error
	// DecrementApproval fails with a ProtocolError if the approval is below
	// amt.
	DecrementApproval(ctx context.Context, tick, owner, spender string, amt uint64) error

	Release(ctx context.Context) error
	Rollback(ctx context.Context) error
}
