// Package postgres is the Postgres-backed Ledger Store, built on
// database/sql with the pgx/v5 stdlib driver. Nested savepoints are issued
// as raw SQL against the one outer *sql.Tx per block, since database/sql has
// no native savepoint primitive.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dota-dot20/indexer/internal/model"
	"github.com/dota-dot20/indexer/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and
// verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a Ledger Store backed directly by db.
func NewWithDB(db *sql.DB) store.LedgerStore { return &pgStore{db: db} }

// Bootstrap creates the ticker-registry and indexer-status tables if they do
// not already exist. Per-tick balance/approval tables are created lazily by
// CreateTicker on deploy.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tickers (
			tick TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			deployer TEXT NOT NULL,
			amt BIGINT NOT NULL,
			lim BIGINT NOT NULL DEFAULT 0,
			total_supply BIGINT NOT NULL,
			remaining BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS indexer_status (
			protocol TEXT PRIMARY KEY,
			indexer_height BIGINT NOT NULL,
			crawler_height BIGINT NOT NULL
		);
	`)
	return err
}

type pgStore struct{ db *sql.DB }

func (s *pgStore) GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error) {
	return scanDeployInfo(s.db.QueryRowContext(ctx, deployInfoQuery, tick))
}

func (s *pgStore) GetIndexerStatus(ctx context.Context, protocol string) (*model.IndexerStatus, error) {
	var out model.IndexerStatus
	var height, crawler int64
	row := s.db.QueryRowContext(ctx, `
		SELECT protocol, indexer_height, crawler_height FROM indexer_status WHERE protocol=$1
	`, protocol)
	if err := row.Scan(&out.Protocol, &height, &crawler); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	out.IndexerHeight, out.CrawlerHeight = uint64(height), uint64(crawler)
	return &out, nil
}

func (s *pgStore) BeginDeploy(ctx context.Context) (store.DeployTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &pgDeployTx{tx: tx}, nil
}

func (s *pgStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- deploy phase ---

type pgDeployTx struct{ tx *sql.Tx }

func (d *pgDeployTx) GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error) {
	return scanDeployInfo(d.tx.QueryRowContext(ctx, deployInfoQuery+" FOR UPDATE", tick))
}

func (d *pgDeployTx) CreateTicker(ctx context.Context, info model.DeployInfo) error {
	_, err := d.tx.ExecContext(ctx, `
		INSERT INTO tickers (tick, mode, deployer, amt, lim, total_supply, remaining)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, info.Tick, string(info.Mode), info.Deployer, int64(info.Amt), int64(info.Lim), int64(info.TotalSupply), info.Remaining)
	if err != nil {
		return err
	}
	return createTickTables(ctx, d.tx, info.Tick)
}

func (d *pgDeployTx) Commit(ctx context.Context) error   { return d.tx.Commit() }
func (d *pgDeployTx) Rollback(ctx context.Context) error { return d.tx.Rollback() }

func createTickTables(ctx context.Context, tx *sql.Tx, tick string) error {
	balTable, apprTable := quoteIdent(balanceTable(tick)), quoteIdent(approvalTable(tick))
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			user_addr TEXT PRIMARY KEY,
			amount BIGINT NOT NULL DEFAULT 0
		)`, balTable)); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			owner_addr TEXT NOT NULL,
			spender_addr TEXT NOT NULL,
			amount BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (owner_addr, spender_addr)
		)`, apprTable))
	return err
}

// --- mint + other-ops phase ---

type pgTx struct {
	tx      *sql.Tx
	spCount int
}

func (t *pgTx) GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error) {
	return scanDeployInfo(t.tx.QueryRowContext(ctx, deployInfoQuery, tick))
}

func (t *pgTx) Savepoint(ctx context.Context, name string) (store.Savepoint, error) {
	t.spCount++
	spName := fmt.Sprintf("sp_%d_%s", t.spCount, sanitizeSavepointName(name))
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+spName); err != nil {
		return nil, err
	}
	return &pgSavepoint{tx: t.tx, name: spName}, nil
}

func (t *pgTx) UpsertIndexerStatus(ctx context.Context, status model.IndexerStatus) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO indexer_status (protocol, indexer_height, crawler_height)
		VALUES ($1,$2,$3)
		ON CONFLICT (protocol) DO UPDATE SET
			indexer_height = EXCLUDED.indexer_height,
			crawler_height = EXCLUDED.crawler_height
	`, status.Protocol, int64(status.IndexerHeight), int64(status.CrawlerHeight))
	return err
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit() }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback() }

type pgSavepoint struct {
	tx   *sql.Tx
	name string
}

func (sp *pgSavepoint) GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error) {
	return scanDeployInfo(sp.tx.QueryRowContext(ctx, deployInfoQuery, tick))
}

func (sp *pgSavepoint) GetBalance(ctx context.Context, tick, user string) (uint64, error) {
	table := quoteIdent(balanceTable(tick))
	var amt int64
	row := sp.tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT amount FROM %s WHERE user_addr=$1`, table), user)
	if err := row.Scan(&amt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return uint64(amt), nil
}

func (sp *pgSavepoint) CreditBalance(ctx context.Context, tick, user string, amt uint64) error {
	table := quoteIdent(balanceTable(tick))
	_, err := sp.tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (user_addr, amount) VALUES ($1,$2)
		ON CONFLICT (user_addr) DO UPDATE SET amount = %s.amount + EXCLUDED.amount
	`, table, table), user, int64(amt))
	return err
}

func (sp *pgSavepoint) DebitBalance(ctx context.Context, tick, user string, amt uint64) error {
	table := quoteIdent(balanceTable(tick))
	res, err := sp.tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET amount = amount - $1 WHERE user_addr=$2 AND amount >= $1
	`, table), int64(amt), user)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NewProtocolError("insufficient balance: " + user)
	}
	return nil
}

func (sp *pgSavepoint) DebitRemaining(ctx context.Context, tick string, amt uint64, strict bool) error {
	query := `UPDATE tickers SET remaining = remaining - $1 WHERE tick=$2`
	if strict {
		query += " AND remaining >= $1"
	}
	res, err := sp.tx.ExecContext(ctx, query, int64(amt), tick)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if strict {
			return model.NewProtocolError("mint exceeds remaining supply: " + tick)
		}
		return model.NewProtocolError("mint on undeployed tick: " + tick)
	}
	return nil
}

func (sp *pgSavepoint) GetApproval(ctx context.Context, tick, owner, spender string) (uint64, error) {
	table := quoteIdent(approvalTable(tick))
	var amt int64
	row := sp.tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT amount FROM %s WHERE owner_addr=$1 AND spender_addr=$2
	`, table), owner, spender)
	if err := row.Scan(&amt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return uint64(amt), nil
}

func (sp *pgSavepoint) SetApproval(ctx context.Context, tick, owner, spender string, amt uint64) error {
	table := quoteIdent(approvalTable(tick))
	_, err := sp.tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (owner_addr, spender_addr, amount) VALUES ($1,$2,$3)
		ON CONFLICT (owner_addr, spender_addr) DO UPDATE SET amount = EXCLUDED.amount
	`, table), owner, spender, int64(amt))
	return err
}

func (sp *pgSavepoint) DecrementApproval(ctx context.Context, tick, owner, spender string, amt uint64) error {
	table := quoteIdent(approvalTable(tick))
	res, err := sp.tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET amount = amount - $1 WHERE owner_addr=$2 AND spender_addr=$3 AND amount >= $1
	`, table), int64(amt), owner, spender)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NewProtocolError("insufficient approval: " + owner + " -> " + spender)
	}
	return nil
}

func (sp *pgSavepoint) Release(ctx context.Context) error {
	_, err := sp.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp.name)
	return err
}

func (sp *pgSavepoint) Rollback(ctx context.Context) error {
	_, err := sp.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp.name)
	return err
}

// --- shared helpers ---

const deployInfoQuery = `
	SELECT tick, mode, deployer, amt, lim, total_supply, remaining
	FROM tickers WHERE tick=$1
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeployInfo(row rowScanner) (*model.DeployInfo, error) {
	var info model.DeployInfo
	var mode string
	var amt, lim, total int64
	if err := row.Scan(&info.Tick, &mode, &info.Deployer, &amt, &lim, &total, &info.Remaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	info.Mode, info.Amt, info.Lim, info.TotalSupply = model.Mode(mode), uint64(amt), uint64(lim), uint64(total)
	return &info, nil
}

// balanceTable and approvalTable name a tick's per-ticker tables. tick is
// already normalized (lowercased, non-ASCII escaped) by the engine before it
// ever reaches the store, so these names are deterministic across restarts.
func balanceTable(tick string) string  { return "bal_" + tick }
func approvalTable(tick string) string { return "appr_" + tick }

// quoteIdent double-quotes a Postgres identifier, escaping embedded double
// quotes. Table names are derived from on-chain tick strings, which may
// contain arbitrary characters once ASCII-escaped; quoting keeps them valid
// identifiers without risking SQL injection into the surrounding statement.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sanitizeSavepointName strips characters that are not valid in an
// unquoted SQL identifier, keeping savepoint names readable in logs/EXPLAIN
// output without needing to quote them.
func sanitizeSavepointName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
