package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"priceScope/internal/model"
)

// PostgresStore is a shared metadata cache for multi-host deployments.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tokens (
			chain_id BIGINT NOT NULL,
			address TEXT NOT NULL,
			decimals SMALLINT NOT NULL,
			symbol TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (chain_id, address)
		)`,
		`CREATE TABLE IF NOT EXISTS pools (
			chain_id BIGINT NOT NULL,
			address TEXT NOT NULL,
			kind TEXT NOT NULL,
			token0 TEXT NOT NULL,
			token1 TEXT NOT NULL,
			fee BIGINT NOT NULL DEFAULT 0,
			resolved_at TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (chain_id, address)
		)`,
	}

	for _, statement := range statements {
		if _, err := s.pool.Exec(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) GetToken(ctx context.Context, chainID uint64, address string) (model.TokenMeta, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT address, decimals, symbol, name FROM tokens WHERE chain_id = $1 AND address = $2`,
		int64(chainID), address)

	var meta model.TokenMeta
	var decimals int16
	if err := row.Scan(&meta.Address, &decimals, &meta.Symbol, &meta.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TokenMeta{}, false, nil
		}
		return model.TokenMeta{}, false, err
	}
	meta.Decimals = uint8(decimals)
	return meta, true, nil
}

func (s *PostgresStore) UpsertTokens(ctx context.Context, chainID uint64, tokens []model.TokenMeta) error {
	if len(tokens) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, token := range tokens {
		batch.Queue(`
			INSERT INTO tokens (chain_id, address, decimals, symbol, name, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (chain_id, address)
			DO UPDATE SET
				decimals = EXCLUDED.decimals,
				symbol = EXCLUDED.symbol,
				name = EXCLUDED.name,
				updated_at = now()
		`,
			int64(chainID),
			token.Address,
			int16(token.Decimals),
			token.Symbol,
			token.Name,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range tokens {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) GetPool(ctx context.Context, chainID uint64, address string) (model.Pool, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT chain_id, address, kind, token0, token1, fee, resolved_at FROM pools WHERE chain_id = $1 AND address = $2`,
		int64(chainID), address)

	var pool model.Pool
	var chain int64
	var kind string
	var fee int64
	if err := row.Scan(&chain, &pool.Address, &kind, &pool.Token0, &pool.Token1, &fee, &pool.ResolvedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, false, nil
		}
		return model.Pool{}, false, err
	}
	pool.ChainID = uint64(chain)
	pool.Kind = model.PoolKind(kind)
	pool.Fee = uint32(fee)
	return pool, true, nil
}

func (s *PostgresStore) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (chain_id, address, kind, token0, token1, fee, resolved_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (chain_id, address)
			DO UPDATE SET
				kind = EXCLUDED.kind,
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				fee = EXCLUDED.fee,
				resolved_at = EXCLUDED.resolved_at,
				updated_at = now()
		`,
			int64(pool.ChainID),
			pool.Address,
			string(pool.Kind),
			pool.Token0,
			pool.Token1,
			int64(pool.Fee),
			pool.ResolvedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
