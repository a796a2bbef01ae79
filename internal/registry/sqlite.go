package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"priceScope/internal/model"
)

// SQLiteStore is a local file-backed metadata cache.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the cache database, creating it and its schema when
// missing.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tokens (
			chain_id INTEGER NOT NULL,
			address TEXT NOT NULL,
			decimals INTEGER NOT NULL,
			symbol TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (chain_id, address)
		)`,
		`CREATE TABLE IF NOT EXISTS pools (
			chain_id INTEGER NOT NULL,
			address TEXT NOT NULL,
			kind TEXT NOT NULL,
			token0 TEXT NOT NULL,
			token1 TEXT NOT NULL,
			fee INTEGER NOT NULL DEFAULT 0,
			resolved_at TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (chain_id, address)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pools_tokens ON pools(token0, token1)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetToken(ctx context.Context, chainID uint64, address string) (model.TokenMeta, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT address, decimals, symbol, name FROM tokens WHERE chain_id = ? AND address = ?`,
		int64(chainID), address)

	var meta model.TokenMeta
	var decimals int64
	if err := row.Scan(&meta.Address, &decimals, &meta.Symbol, &meta.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TokenMeta{}, false, nil
		}
		return model.TokenMeta{}, false, err
	}
	meta.Decimals = uint8(decimals)
	return meta, true, nil
}

func (s *SQLiteStore) UpsertTokens(ctx context.Context, chainID uint64, tokens []model.TokenMeta) error {
	if len(tokens) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tokens (chain_id, address, decimals, symbol, name)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chain_id, address) DO UPDATE SET
			decimals = excluded.decimals,
			symbol = excluded.symbol,
			name = excluded.name,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, token := range tokens {
		if _, err := stmt.ExecContext(ctx, int64(chainID), token.Address, int64(token.Decimals), token.Symbol, token.Name); err != nil {
			return fmt.Errorf("upsert token %s: %w", token.Address, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetPool(ctx context.Context, chainID uint64, address string) (model.Pool, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chain_id, address, kind, token0, token1, fee, resolved_at FROM pools WHERE chain_id = ? AND address = ?`,
		int64(chainID), address)

	var pool model.Pool
	var chain int64
	var kind string
	var fee int64
	if err := row.Scan(&chain, &pool.Address, &kind, &pool.Token0, &pool.Token1, &fee, &pool.ResolvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Pool{}, false, nil
		}
		return model.Pool{}, false, err
	}
	pool.ChainID = uint64(chain)
	pool.Kind = model.PoolKind(kind)
	pool.Fee = uint32(fee)
	return pool, true, nil
}

func (s *SQLiteStore) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pools (chain_id, address, kind, token0, token1, fee, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chain_id, address) DO UPDATE SET
			kind = excluded.kind,
			token0 = excluded.token0,
			token1 = excluded.token1,
			fee = excluded.fee,
			resolved_at = excluded.resolved_at`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, pool := range pools {
		if _, err := stmt.ExecContext(ctx, int64(pool.ChainID), pool.Address, string(pool.Kind), pool.Token0, pool.Token1, int64(pool.Fee), pool.ResolvedAt); err != nil {
			return fmt.Errorf("upsert pool %s: %w", pool.Address, err)
		}
	}
	return tx.Commit()
}
