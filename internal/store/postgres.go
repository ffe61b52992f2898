package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/db"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/geodata"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO runs (id, dataset_id, checksum, status, settings, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"update_run_status": `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"complete_run":      `UPDATE runs SET result = $1, status = $2, duration_ms = $3, updated_at = $4 WHERE id = $5`,
	"fail_run":          `UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
	"get_run":           `SELECT id, dataset_id, checksum, status, settings, result, error, duration_ms, created_at, updated_at FROM runs WHERE id = $1`,
	"get_dataset":       `SELECT id, checksum, frame, unmatched, created_at FROM datasets WHERE id = $1`,
	"latest_dataset":    `SELECT id FROM datasets ORDER BY created_at DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS regions (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	geom BYTEA
);

CREATE TABLE IF NOT EXISTS datasets (
	id         TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL,
	frame      JSONB NOT NULL,
	unmatched  INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dataset_regions (
	dataset_id  TEXT NOT NULL REFERENCES datasets(id),
	position    INTEGER NOT NULL,
	region_id   TEXT NOT NULL REFERENCES regions(id),
	store_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (dataset_id, position)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	dataset_id  TEXT NOT NULL REFERENCES datasets(id),
	checksum    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'queued',
	settings    JSONB NOT NULL,
	result      JSONB,
	error       TEXT,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_dataset_id ON runs(dataset_id);
CREATE INDEX IF NOT EXISTS idx_datasets_created_at ON datasets(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_dataset_regions_region_id ON dataset_regions(region_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveDataset(ctx context.Context, ds *model.Dataset) error {
	frameJSON, err := json.Marshal(ds.Frame)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal frame")
	}

	regionRows := make([][]any, 0, len(ds.Regions))
	memberRows := make([][]any, 0, len(ds.Regions))
	for i, r := range ds.Regions {
		geomWKB, err := geodata.EncodeWKB(r.Geometry)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode geometry %s", r.ID)
		}
		count := 0
		if i < len(ds.Counts) {
			count = ds.Counts[i]
		}
		regionRows = append(regionRows, []any{r.ID, r.Name, geomWKB})
		memberRows = append(memberRows, []any{ds.ID, i, r.ID, count})
	}

	if _, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "regions",
		Columns:      []string{"id", "name", "geom"},
		ConflictKeys: []string{"id"},
	}, regionRows); err != nil {
		return eris.Wrap(err, "postgres: upsert regions")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO datasets (id, checksum, frame, unmatched, created_at) VALUES ($1, $2, $3, $4, $5)`,
		ds.ID, ds.Checksum, frameJSON, ds.Unmatched, ds.CreatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert dataset")
	}

	_, err = db.CopyFrom(ctx, s.pool, "dataset_regions",
		[]string{"dataset_id", "position", "region_id", "store_count"}, memberRows)
	return eris.Wrap(err, "postgres: copy dataset regions")
}

func (s *PostgresStore) GetDataset(ctx context.Context, id string) (*model.Dataset, error) {
	var ds model.Dataset
	var frameJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, checksum, frame, unmatched, created_at FROM datasets WHERE id = $1`,
		id,
	).Scan(&ds.ID, &ds.Checksum, &frameJSON, &ds.Unmatched, &ds.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "dataset %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get dataset %s", id)
	}
	if err := json.Unmarshal(frameJSON, &ds.Frame); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal frame")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.name, r.geom, dr.store_count
		 FROM dataset_regions dr
		 JOIN regions r ON r.id = dr.region_id
		 WHERE dr.dataset_id = $1
		 ORDER BY dr.position`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get dataset regions %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var r model.Region
		var geomWKB []byte
		var count int
		if err := rows.Scan(&r.ID, &r.Name, &geomWKB, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dataset region")
		}
		r.Geometry, err = geodata.DecodeWKB(geomWKB)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: region %s", r.ID)
		}
		ds.Regions = append(ds.Regions, r)
		ds.Counts = append(ds.Counts, count)
	}
	return &ds, eris.Wrap(rows.Err(), "postgres: dataset regions iterate")
}

func (s *PostgresStore) LatestDataset(ctx context.Context) (*model.Dataset, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM datasets ORDER BY created_at DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "no datasets ingested")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest dataset")
	}
	return s.GetDataset(ctx, id)
}

func (s *PostgresStore) CreateRun(ctx context.Context, datasetID, checksum string, settings model.AnalysisSettings) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal settings")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, dataset_id, checksum, status, settings, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, datasetID, checksum, string(model.RunStatusQueued), settingsJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		DatasetID: datasetID,
		Checksum:  checksum,
		Status:    model.RunStatusQueued,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult, durationMS int64) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, duration_ms = $3, updated_at = $4 WHERE id = $5`,
		resultJSON, string(model.RunStatusComplete), durationMS, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), cause, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, dataset_id, checksum, status, settings, result, error, duration_ms, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, dataset_id, checksum, status, settings, result, error, duration_ms, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.DatasetID != "" {
		query += fmt.Sprintf(` AND dataset_id = $%d`, argIdx)
		args = append(args, filter.DatasetID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row scannable) (*model.Run, error) {
	var r model.Run
	var settingsJSON []byte
	var resultJSON *[]byte
	var errMsg *string

	err := row.Scan(&r.ID, &r.DatasetID, &r.Checksum, &r.Status, &settingsJSON, &resultJSON, &errMsg, &r.DurationMS, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(settingsJSON, &r.Settings); err != nil {
		return nil, eris.Wrap(err, "unmarshal settings")
	}
	if resultJSON != nil {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(*resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "unmarshal result")
		}
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}
