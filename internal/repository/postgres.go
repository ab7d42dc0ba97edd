package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/irbid-geoai/geoai-monitor/internal/classify"
	"github.com/irbid-geoai/geoai-monitor/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS module_runs (
	id          TEXT PRIMARY KEY,
	module      TEXT NOT NULL,
	state       TEXT NOT NULL,
	error_kind  TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS module_runs_started_idx ON module_runs (started_at DESC);

CREATE TABLE IF NOT EXISTS reference_samples (
	id       BIGSERIAL PRIMARY KEY,
	model    TEXT NOT NULL,
	class    INTEGER NOT NULL,
	features JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS reference_samples_model_idx ON reference_samples (model);`

// Connect opens a PostgreSQL pool and makes sure the tables exist
func Connect(ctx context.Context, connStr string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}

// PostgresRunRepository stores run records in PostgreSQL
type PostgresRunRepository struct {
	db *sqlx.DB
}

func NewPostgresRunRepository(db *sqlx.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

func (r *PostgresRunRepository) SaveRun(ctx context.Context, run *models.RunRecord) error {
	const query = `
		INSERT INTO module_runs (id, module, state, error_kind, message, started_at, finished_at)
		VALUES (:id, :module, :state, :error_kind, :message, :started_at, :finished_at)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			error_kind = EXCLUDED.error_kind,
			message = EXCLUDED.message,
			finished_at = EXCLUDED.finished_at`

	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

func (r *PostgresRunRepository) GetRun(ctx context.Context, id string) (*models.RunRecord, error) {
	const query = `
		SELECT id, module, state, error_kind, message, started_at, finished_at
		FROM module_runs
		WHERE id = $1`

	var run models.RunRecord
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}
	return &run, nil
}

func (r *PostgresRunRepository) ListRuns(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	const query = `
		SELECT id, module, state, error_kind, message, started_at, finished_at
		FROM module_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1`

	if limit <= 0 {
		limit = 100
	}
	var runs []*models.RunRecord
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// PostgresReferenceRepository reads reference samples from PostgreSQL
type PostgresReferenceRepository struct {
	db *sqlx.DB
}

func NewPostgresReferenceRepository(db *sqlx.DB) *PostgresReferenceRepository {
	return &PostgresReferenceRepository{db: db}
}

type sampleRow struct {
	Class    int    `db:"class"`
	Features []byte `db:"features"`
}

func (r *PostgresReferenceRepository) ReferenceSamples(ctx context.Context, model string) ([]classify.Sample, error) {
	const query = `
		SELECT class, features
		FROM reference_samples
		WHERE model = $1
		ORDER BY id`

	var rows []sampleRow
	if err := r.db.SelectContext(ctx, &rows, query, model); err != nil {
		return nil, fmt.Errorf("failed to query reference samples for %s: %w", model, err)
	}

	samples := make([]classify.Sample, len(rows))
	for i, row := range rows {
		samples[i].Class = row.Class
		if err := json.Unmarshal(row.Features, &samples[i].Features); err != nil {
			return nil, fmt.Errorf("malformed features in reference sample %d of %s: %w", i, model, err)
		}
	}
	return samples, nil
}
