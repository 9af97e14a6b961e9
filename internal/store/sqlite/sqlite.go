// Package sqlite is a Docker-less Ledger Store backend for local
// development and CI, built on modernc.org/sqlite (a cgo-free driver) so
// `go test` needs nothing beyond the standard toolchain. It implements the
// same transactional contract as internal/store/postgres, including nested
// savepoints, with SQLite's "?" placeholder syntax in place of Postgres's
// "$N".
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/dota-dot20/indexer/internal/model"
	"github.com/dota-dot20/indexer/internal/store"
)

// Open opens a SQLite database at path (":memory:" for an ephemeral store)
// and enables foreign keys, plus WAL mode for concurrent readers on a
// file-backed database (":memory:" keeps the default journal mode).
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// modernc.org/sqlite hands each pooled connection a distinct
		// in-memory database; pin the pool to one connection so every
		// caller sees the same data.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a Ledger Store backed directly by db.
func NewWithDB(db *sql.DB) store.LedgerStore { return &sqliteStore{db: db} }

// Bootstrap creates the ticker-registry and indexer-status tables.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tickers (
			tick TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			deployer TEXT NOT NULL,
			amt INTEGER NOT NULL,
			lim INTEGER NOT NULL DEFAULT 0,
			total_supply INTEGER NOT NULL,
			remaining INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS indexer_status (
			protocol TEXT PRIMARY KEY,
			indexer_height INTEGER NOT NULL,
			crawler_height INTEGER NOT NULL
		);
	`)
	return err
}

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error) {
	return scanDeployInfo(s.db.QueryRowContext(ctx, deployInfoQuery, tick))
}

func (s *sqliteStore) GetIndexerStatus(ctx context.Context, protocol string) (*model.IndexerStatus, error) {
	var out model.IndexerStatus
	var height, crawler int64
	row := s.db.QueryRowContext(ctx, `SELECT protocol, indexer_height, crawler_height FROM indexer_status WHERE protocol=?`, protocol)
	if err := row.Scan(&out.Protocol, &height, &crawler); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	out.IndexerHeight, out.CrawlerHeight = uint64(height), uint64(crawler)
	return &out, nil
}

func (s *sqliteStore) BeginDeploy(ctx context.Context) (store.DeployTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &deployTx{tx: tx}, nil
}

func (s *sqliteStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

func (s *sqliteStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

// --- deploy phase ---

type deployTx struct{ tx *sql.Tx }

func (d *deployTx) GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error) {
	return scanDeployInfo(d.tx.QueryRowContext(ctx, deployInfoQuery, tick))
}

func (d *deployTx) CreateTicker(ctx context.Context, info model.DeployInfo) error {
	_, err := d.tx.ExecContext(ctx, `
		INSERT INTO tickers (tick, mode, deployer, amt, lim, total_supply, remaining)
		VALUES (?,?,?,?,?,?,?)
	`, info.Tick, string(info.Mode), info.Deployer, int64(info.Amt), int64(info.Lim), int64(info.TotalSupply), info.Remaining)
	if err != nil {
		return err
	}
	return createTickTables(ctx, d.tx, info.Tick)
}

func (d *deployTx) Commit(ctx context.Context) error   { return d.tx.Commit() }
func (d *deployTx) Rollback(ctx context.Context) error { return d.tx.Rollback() }

func createTickTables(ctx context.Context, tx *sql.Tx, tick string) error {
	balTable, apprTable := quoteIdent(balanceTable(tick)), quoteIdent(approvalTable(tick))
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			user_addr TEXT PRIMARY KEY,
			amount INTEGER NOT NULL DEFAULT 0
		)`, balTable)); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			owner_addr TEXT NOT NULL,
			spender_addr TEXT NOT NULL,
			amount INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (owner_addr, spender_addr)
		)`, apprTable))
	return err
}

// --- mint + other-ops phase ---

type sqliteTx struct {
	tx      *sql.Tx
	spCount int
}

func (t *sqliteTx) GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error) {
	return scanDeployInfo(t.tx.QueryRowContext(ctx, deployInfoQuery, tick))
}

func (t *sqliteTx) Savepoint(ctx context.Context, name string) (store.Savepoint, error) {
	t.spCount++
	spName := fmt.Sprintf("sp_%d_%s", t.spCount, sanitizeSavepointName(name))
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+spName); err != nil {
		return nil, err
	}
	return &savepoint{tx: t.tx, name: spName}, nil
}

func (t *sqliteTx) UpsertIndexerStatus(ctx context.Context, status model.IndexerStatus) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO indexer_status (protocol, indexer_height, crawler_height) VALUES (?,?,?)
		ON CONFLICT (protocol) DO UPDATE SET
			indexer_height = excluded.indexer_height,
			crawler_height = excluded.crawler_height
	`, status.Protocol, int64(status.IndexerHeight), int64(status.CrawlerHeight))
	return err
}

func (t *sqliteTx) Commit(ctx context.Context) error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback(ctx context.Context) error { return t.tx.Rollback() }

type savepoint struct {
	tx   *sql.Tx
	name string
}

func (sp *savepoint) GetDeployInfo(ctx context.Context, tick string) (*model.DeployInfo, error) {
	return scanDeployInfo(sp.tx.QueryRowContext(ctx, deployInfoQuery, tick))
}

func (sp *savepoint) GetBalance(ctx context.Context, tick, user string) (uint64, error) {
	table := quoteIdent(balanceTable(tick))
	var amt int64
	row := sp.tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT amount FROM %s WHERE user_addr=?`, table), user)
	if err := row.Scan(&amt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return uint64(amt), nil
}

func (sp *savepoint) CreditBalance(ctx context.Context, tick, user string, amt uint64) error {
	table := quoteIdent(balanceTable(tick))
	_, err := sp.tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (user_addr, amount) VALUES (?,?)
		ON CONFLICT (user_addr) DO UPDATE SET amount = amount + excluded.amount
	`, table), user, int64(amt))
	return err
}

func (sp *savepoint) DebitBalance(ctx context.Context, tick, user string, amt uint64) error {
	table := quoteIdent(balanceTable(tick))
	res, err := sp.tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET amount = amount - ? WHERE user_addr=? AND amount >= ?
	`, table), int64(amt), user, int64(amt))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NewProtocolError("insufficient balance: " + user)
	}
	return nil
}

func (sp *savepoint) DebitRemaining(ctx context.Context, tick string, amt uint64, strict bool) error {
	query := `UPDATE tickers SET remaining = remaining - ? WHERE tick=?`
	args := []interface{}{int64(amt), tick}
	if strict {
		query += " AND remaining >= ?"
		args = append(args, int64(amt))
	}
	res, err := sp.tx.ExecContext(ctx, query, args...)
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

func (sp *savepoint) GetApproval(ctx context.Context, tick, owner, spender string) (uint64, error) {
	table := quoteIdent(approvalTable(tick))
	var amt int64
	row := sp.tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT amount FROM %s WHERE owner_addr=? AND spender_addr=?`, table), owner, spender)
	if err := row.Scan(&amt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return uint64(amt), nil
}

func (sp *savepoint) SetApproval(ctx context.Context, tick, owner, spender string, amt uint64) error {
	table := quoteIdent(approvalTable(tick))
	_, err := sp.tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (owner_addr, spender_addr, amount) VALUES (?,?,?)
		ON CONFLICT (owner_addr, spender_addr) DO UPDATE SET amount = excluded.amount
	`, table), owner, spender, int64(amt))
	return err
}

func (sp *savepoint) DecrementApproval(ctx context.Context, tick, owner, spender string, amt uint64) error {
	table := quoteIdent(approvalTable(tick))
	res, err := sp.tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET amount = amount - ? WHERE owner_addr=? AND spender_addr=? AND amount >= ?
	`, table), int64(amt), owner, spender, int64(amt))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NewProtocolError("insufficient approval: " + owner + " -> " + spender)
	}
	return nil
}

func (sp *savepoint) Release(ctx context.Context) error {
	_, err := sp.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp.name)
	return err
}

func (sp *savepoint) Rollback(ctx context.Context) error {
	_, err := sp.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp.name)
	return err
}

// --- shared helpers ---

const deployInfoQuery = `
	SELECT tick, mode, deployer, amt, lim, total_supply, remaining
	FROM tickers WHERE tick=?
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

func balanceTable(tick string) string  { return "bal_" + tick }
func approvalTable(tick string) string { return "appr_" + tick }

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

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
