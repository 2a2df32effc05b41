package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolPilot/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pool_transactions (
	tx_hash      TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	stage        TEXT NOT NULL,
	pool_id      TEXT NOT NULL,
	from_address TEXT NOT NULL,
	to_address   TEXT NOT NULL,
	nonce        BIGINT NOT NULL,
	gas_price    NUMERIC NOT NULL,
	gas_limit    BIGINT NOT NULL,
	status       TEXT NOT NULL,
	block_number BIGINT,
	gas_used     BIGINT,
	error        TEXT,
	submitted_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS pool_transactions_run_idx ON pool_transactions (run_id);
`

// Store journals submitted transactions into Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the journal table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create pool_transactions: %w", err)
	}
	return nil
}

// Record inserts or updates a transaction by hash.
func (s *Store) Record(ctx context.Context, record model.TxRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_transactions (
			tx_hash, run_id, stage, pool_id, from_address, to_address, nonce, gas_price,
			gas_limit, status, block_number, gas_used, error, submitted_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9,$10,$11,$12,$13,$14::timestamptz,now(),now())
		ON CONFLICT (tx_hash)
		DO UPDATE SET
			status = EXCLUDED.status,
			block_number = EXCLUDED.block_number,
			gas_used = EXCLUDED.gas_used,
			error = EXCLUDED.error,
			updated_at = now()
	`,
		record.Hash,
		record.RunID,
		record.Stage,
		record.PoolID,
		record.From,
		record.To,
		int64(record.Nonce),
		record.GasPrice,
		int64(record.GasLimit),
		record.Status,
		nullableInt(record.BlockNumber),
		nullableInt(record.GasUsed),
		nullableText(record.Error),
		record.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert pool_transactions %s: %w", record.Hash, err)
	}
	return nil
}

// LoadRun returns the journal rows for a run in nonce order.
func (s *Store) LoadRun(ctx context.Context, runID string) ([]model.TxRecord, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id required")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT tx_hash, run_id, stage, pool_id, from_address, to_address, nonce, gas_price::text,
			gas_limit, status, COALESCE(block_number, 0), COALESCE(gas_used, 0), COALESCE(error, ''),
			to_char(submitted_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM pool_transactions
		WHERE run_id = $1
		ORDER BY nonce
	`, runID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.TxRecord, error) {
		var (
			r                         model.TxRecord
			nonce, gasLimit, blk, gas int64
		)
		err := row.Scan(&r.Hash, &r.RunID, &r.Stage, &r.PoolID, &r.From, &r.To, &nonce, &r.GasPrice,
			&gasLimit, &r.Status, &blk, &gas, &r.Error, &r.SubmittedAt)
		r.Nonce = uint64(nonce)
		r.GasLimit = uint64(gasLimit)
		r.BlockNumber = uint64(blk)
		r.GasUsed = uint64(gas)
		return r, err
	})
}

func nullableInt(v uint64) *int64 {
	if v == 0 {
		return nil
	}
	n := int64(v)
	return &n
}

func nullableText(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
