package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paddockhq/paddock/types"
)

// PostgresStore is a Store backed by PostgreSQL via pgx.
// The pool is safe for concurrent use across pipeline runs.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Schema is the DDL for the results table. Applied by operators, not by the
// store itself.
const Schema = `
CREATE TABLE IF NOT EXISTS race_results (
    day            text        NOT NULL,
    venue          text        NOT NULL,
    race_no        int         NOT NULL,
    lane           int         NOT NULL,
    rider_id       text        NOT NULL,
    rider_name     text        NOT NULL,
    finish_order   int         NOT NULL,
    finish_seconds double precision NOT NULL,
    odds           double precision NOT NULL,
    PRIMARY KEY (day, venue, race_no, lane)
);
CREATE INDEX IF NOT EXISTS race_results_rider_idx ON race_results (rider_id, day DESC);
`

// NewPostgresStore connects a pgx pool to the given DSN and verifies the
// connection with a ping.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("store: postgres DSN is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// LoadResults implements Store.
func (s *PostgresStore) LoadResults(ctx context.Context, key types.RaceKey) ([]types.ResultRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT lane, rider_id, rider_name, finish_order, finish_seconds, odds
		FROM race_results
		WHERE day = $1 AND venue = $2 AND race_no = $3
		ORDER BY lane`,
		key.Day, key.Venue, key.RaceNo)
	if err != nil {
		return nil, fmt.Errorf("store: load results for %s: %w", key, err)
	}
	defer rows.Close()

	var records []types.ResultRecord
	for rows.Next() {
		r := types.ResultRecord{Key: key}
		if err := rows.Scan(&r.Lane, &r.RiderID, &r.RiderName, &r.FinishOrder, &r.FinishSeconds, &r.Odds); err != nil {
			return nil, fmt.Errorf("store: scan result row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate results for %s: %w", key, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("store: %s: %w", key, ErrNotFound)
	}
	return records, nil
}

// SaveResults implements Store. The save is transactional: either all
// records for the race land, or none do.
func (s *PostgresStore) SaveResults(ctx context.Context, key types.RaceKey, records []types.ResultRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin save for %s: %w", key, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM race_results WHERE day = $1 AND venue = $2 AND race_no = $3`,
		key.Day, key.Venue, key.RaceNo); err != nil {
		return fmt.Errorf("store: clear previous save for %s: %w", key, err)
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO race_results
				(day, venue, race_no, lane, rider_id, rider_name, finish_order, finish_seconds, odds)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			key.Day, key.Venue, key.RaceNo,
			r.Lane, r.RiderID, r.RiderName, r.FinishOrder, r.FinishSeconds, r.Odds)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("store: insert results for %s: %w", key, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit save for %s: %w", key, err)
	}
	return nil
}

// DeleteResults implements Store.
func (s *PostgresStore) DeleteResults(ctx context.Context, key types.RaceKey) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM race_results WHERE day = $1 AND venue = $2 AND race_no = $3`,
		key.Day, key.Venue, key.RaceNo)
	if err != nil {
		return fmt.Errorf("store: delete results for %s: %w", key, err)
	}
	return nil
}

// LoadHistory implements Store.
func (s *PostgresStore) LoadHistory(ctx context.Context, riderID string, limit int) ([]types.ResultRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT day, venue, race_no, lane, rider_id, rider_name, finish_order, finish_seconds, odds
		FROM race_results
		WHERE rider_id = $1
		ORDER BY day DESC, race_no DESC
		LIMIT $2`,
		riderID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: load history for rider %s: %w", riderID, err)
	}
	defer rows.Close()

	var records []types.ResultRecord
	for rows.Next() {
		var r types.ResultRecord
		if err := rows.Scan(&r.Key.Day, &r.Key.Venue, &r.Key.RaceNo,
			&r.Lane, &r.RiderID, &r.RiderName, &r.FinishOrder, &r.FinishSeconds, &r.Odds); err != nil {
			return nil, fmt.Errorf("store: scan history row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate history for rider %s: %w", riderID, err)
	}
	return records, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Verify PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
