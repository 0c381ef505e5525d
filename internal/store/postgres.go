package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          UUID PRIMARY KEY,
	source      TEXT NOT NULL,
	feature     TEXT NOT NULL,
	window_size INTEGER NOT NULL,
	upper_delta DOUBLE PRECISION NOT NULL,
	lower_delta DOUBLE PRECISION NOT NULL,
	frame_count INTEGER NOT NULL,
	stopped     BOOLEAN NOT NULL DEFAULT FALSE,
	elapsed_ms  BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS boundaries (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	kind        TEXT NOT NULL,
	start_index INTEGER NOT NULL,
	end_index   INTEGER,
	UNIQUE (run_id, kind, start_index)
);

CREATE INDEX IF NOT EXISTS boundaries_run_idx ON boundaries (run_id, start_index);
`

// PostgresStore records runs and their boundary intervals in PostgreSQL.
// Frames are not stored.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore connects, verifies the connection and creates the schema.
func NewPostgresStore(ctx context.Context, logger zerolog.Logger, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "postgres").Logger(),
	}
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the tables if they do not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save inserts the run and every interval in one transaction. Open intervals
// get a NULL end_index.
func (s *PostgresStore) Save(ctx context.Context, r *Report) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	runID, err := uuid.Parse(r.ID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", r.ID, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO runs
		(id, source, feature, window_size, upper_delta, lower_delta, frame_count, stopped, elapsed_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		runID, r.Source, r.Feature, r.Params.WindowSize, r.Params.UpperDelta, r.Params.LowerDelta,
		r.FrameCount, r.Stopped, r.Elapsed.Milliseconds(), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, iv := range r.Intervals() {
		batch.Queue(
			`INSERT INTO boundaries (run_id, kind, start_index, end_index)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (run_id, kind, start_index) DO UPDATE SET end_index = EXCLUDED.end_index`,
			runID, iv.Kind.String(), iv.Start, iv.End,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to store boundaries: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}

	s.logger.Info().Str("run_id", r.ID).Int("boundaries", batch.Len()).Msg("run stored")
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
