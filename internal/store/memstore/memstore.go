// Package memstore is an in-memory Ledger Store used by engine unit tests.
// It implements the same transactional contract (savepoints included) as
// the Postgres and SQLite backends, backed by plain Go maps that are copied
// when a transaction or savepoint opens and restored on rollback, so a test
// can assert batch atomicity without a real database.
package memstore

import (
	"context"

	"github.com/dota-dot20/indexer/internal/model"
	"github.com/dota-dot20/indexer/internal/store"
)

type tickerState struct {
	info      model.DeployInfo
	balances  map[string]uint64
	approvals map[[2]string]uint64
}

// Store is the in-memory Ledger Store.
type Store struct {
	tickers map[string]*tickerState
	status  map[string]model.IndexerStatus
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{tickers: make(map[string]*tickerState), status: make(map[string]model.IndexerStatus)}
}

func (s *Store) GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error) {
	t, ok := s.tickers[tick]
	if !ok {
		return nil, model.ErrNotFound
	}
	info := t.info
	return &info, nil
}

func (s *Store) GetIndexerStatus(ctx context.Context, protocol string) (*model.IndexerStatus, error) {
	st, ok := s.status[protocol]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &st, nil
}

func (s *Store) BeginDeploy(ctx context.Context) (store.DeployTx, error) {
	return &deployTx{s: s}, nil
}

func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	status := make(map[string]model.IndexerStatus, len(s.status))
	for k, v := range s.status {
		status[k] = v
	}
	return &tx{s: s, snapshot: s.snapshot(), status: status}, nil
}

func (s *Store) HealthPing(ctx context.Context) error { return nil }

// snapshot deep-copies ticker state so a rolled-back outer transaction can
// be restored without touching a real database.
func (s *Store) snapshot() map[string]*tickerState {
	out := make(map[string]*tickerState, len(s.tickers))
	for tick, t := range s.tickers {
		out[tick] = t.clone()
	}
	return out
}

func (t *tickerState) clone() *tickerState {
	balances := make(map[string]uint64, len(t.balances))
	for k, v := range t.balances {
		balances[k] = v
	}
	approvals := make(map[[2]string]uint64, len(t.approvals))
	for k, v := range t.approvals {
		approvals[k] = v
	}
	return &tickerState{info: t.info, balances: balances, approvals: approvals}
}

type deployTx struct {
	s       *Store
	created []string
}

func (d *deployTx) GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error) {
	return d.s.GetDeployInfo(ctx, tick)
}

func (d *deployTx) CreateTicker(ctx context.Context, info model.DeployInfo) error {
	if _, exists := d.s.tickers[info.Tick]; exists {
		return model.NewProtocolError("tick already deployed: " + info.Tick)
	}
	d.s.tickers[info.Tick] = &tickerState{
		info:      info,
		balances:  make(map[string]uint64),
		approvals: make(map[[2]string]uint64),
	}
	d.created = append(d.created, info.Tick)
	return nil
}

func (d *deployTx) Commit(ctx context.Context) error { return nil }

func (d *deployTx) Rollback(ctx context.Context) error {
	for _, tick := range d.created {
		delete(d.s.tickers, tick)
	}
	return nil
}

// tx is the outer mint+other-ops transaction. It operates directly on the
// store's live maps and restores the pre-transaction snapshot on Rollback,
// mirroring a real database's all-or-nothing outer transaction.
type tx struct {
	s        *Store
	snapshot map[string]*tickerState
	status   map[string]model.IndexerStatus
}

func (t *tx) GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error) {
	return t.s.GetDeployInfo(ctx, tick)
}

func (t *tx) Savepoint(ctx context.Context, name string) (store.Savepoint, error) {
	return &savepoint{s: t.s, snapshot: t.s.snapshot()}, nil
}

func (t *tx) UpsertIndexerStatus(ctx context.Context, status model.IndexerStatus) error {
	t.s.status[status.Protocol] = status
	return nil
}

func (t *tx) Commit(ctx context.Context) error { return nil }

func (t *tx) Rollback(ctx context.Context) error {
	t.s.tickers = t.snapshot
	t.s.status = t.status
	return nil
}

// savepoint snapshots ticker state on open and restores it on Rollback;
// Release is a no-op since mutations already happened on the live maps.
type savepoint struct {
	s        *Store
	snapshot map[string]*tickerState
}

func (sp *savepoint) GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error) {
	return sp.s.GetDeployInfo(ctx, tick)
}

func (sp *savepoint) GetBalance(ctx context.Context, tick, user string) (uint64, error) {
	t, ok := sp.s.tickers[tick]
	if !ok {
		return 0, model.NewProtocolError("undeployed tick: " + tick)
	}
	return t.balances[user], nil
}

func (sp *savepoint) CreditBalance(ctx context.Context, tick, user string, amt uint64) error {
	t, ok := sp.s.tickers[tick]
	if !ok {
		return model.NewProtocolError("undeployed tick: " + tick)
	}
	t.balances[user] += amt
	return nil
}

func (sp *savepoint) DebitBalance(ctx context.Context, tick, user string, amt uint64) error {
	t, ok := sp.s.tickers[tick]
	if !ok {
		return model.NewProtocolError("undeployed tick: " + tick)
	}
	if t.balances[user] < amt {
		return model.NewProtocolError("insufficient balance: " + user)
	}
	t.balances[user] -= amt
	return nil
}

func (sp *savepoint) DebitRemaining(ctx context.Context, tick string, amt uint64, strict bool) error {
	t, ok := sp.s.tickers[tick]
	if !ok {
		return model.NewProtocolError("undeployed tick: " + tick)
	}
	if strict && t.info.Remaining < int64(amt) {
		return model.NewProtocolError("mint exceeds remaining supply: " + tick)
	}
	t.info.Remaining -= int64(amt)
	return nil
}

func (sp *savepoint) GetApproval(ctx context.Context, tick, owner, spender string) (uint64, error) {
	t, ok := sp.s.tickers[tick]
	if !ok {
		return 0, model.NewProtocolError("undeployed tick: " + tick)
	}
	return t.approvals[[2]string{owner, spender}], nil
}

func (sp *savepoint) SetApproval(ctx context.Context, tick, owner, spender string, amt uint64) error {
	t, ok := sp.s.tickers[tick]
	if !ok {
		return model.NewProtocolError("undeployed tick: " + tick)
	}
	t.approvals[[2]string{owner, spender}] = amt
	return nil
}

func (sp *savepoint) DecrementApproval(ctx context.Context, tick, owner, spender string, amt uint64) error {
	t, ok := sp.s.tickers[tick]
	if !ok {
		return model.NewProtocolError("undeployed tick: " + tick)
	}
	key := [2]string{owner, spender}
	if t.approvals[key] < amt {
		return model.NewProtocolError("insufficient approval: " + owner + " -> " + spender)
	}
	t.approvals[key] -= amt
	return nil
}

func (sp *savepoint) Release(ctx context.Context) error { return nil }

func (sp *savepoint) Rollback(ctx context.Context) error {
	sp.s.tickers = sp.snapshot
	return nil
}
