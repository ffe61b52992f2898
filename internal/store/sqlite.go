package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/geodata"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Region geometries live in their own table keyed by region ID so the
// boundary blobs are stored once, not per dataset. dataset_regions pins
// the region order of each dataset; stats code relies on that order.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS regions (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	geom BLOB
);

CREATE TABLE IF NOT EXISTS datasets (
	id         TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL,
	frame      TEXT NOT NULL,
	unmatched  INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dataset_regions (
	dataset_id  TEXT NOT NULL REFERENCES datasets(id),
	position    INTEGER NOT NULL,
	region_id   TEXT NOT NULL REFERENCES regions(id),
	store_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (dataset_id, position)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	dataset_id  TEXT NOT NULL REFERENCES datasets(id),
	checksum    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'queued',
	settings    TEXT NOT NULL,
	result      TEXT,
	error       TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_dataset_id ON runs(dataset_id);
CREATE INDEX IF NOT EXISTS idx_datasets_created_at ON datasets(created_at);
CREATE INDEX IF NOT EXISTS idx_dataset_regions_region_id ON dataset_regions(region_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveDataset(ctx context.Context, ds *model.Dataset) error {
	frameJSON, err := json.Marshal(ds.Frame)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal frame")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	for _, r := range ds.Regions {
		geomWKB, err := geodata.EncodeWKB(r.Geometry)
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode geometry %s", r.ID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO regions (id, name, geom) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, geom = excluded.geom`,
			r.ID, r.Name, geomWKB,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert region %s", r.ID)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO datasets (id, checksum, frame, unmatched, created_at) VALUES (?, ?, ?, ?, ?)`,
		ds.ID, ds.Checksum, string(frameJSON), ds.Unmatched, ds.CreatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert dataset")
	}

	for i, r := range ds.Regions {
		count := 0
		if i < len(ds.Counts) {
			count = ds.Counts[i]
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO dataset_regions (dataset_id, position, region_id, store_count) VALUES (?, ?, ?, ?)`,
			ds.ID, i, r.ID, count,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert dataset region %s", r.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit dataset")
}

func (s *SQLiteStore) GetDataset(ctx context.Context, id string) (*model.Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, checksum, frame, unmatched, created_at FROM datasets WHERE id = ?`,
		id,
	)

	var ds model.Dataset
	var frameJSON string
	err := row.Scan(&ds.ID, &ds.Checksum, &frameJSON, &ds.Unmatched, &ds.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "dataset %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get dataset %s", id)
	}
	if err := json.Unmarshal([]byte(frameJSON), &ds.Frame); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal frame")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.name, r.geom, dr.store_count
		 FROM dataset_regions dr
		 JOIN regions r ON r.id = dr.region_id
		 WHERE dr.dataset_id = ?
		 ORDER BY dr.position`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get dataset regions %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var r model.Region
		var geomWKB []byte
		var count int
		if err := rows.Scan(&r.ID, &r.Name, &geomWKB, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dataset region")
		}
		r.Geometry, err = geodata.DecodeWKB(geomWKB)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: region %s", r.ID)
		}
		ds.Regions = append(ds.Regions, r)
		ds.Counts = append(ds.Counts, count)
	}
	return &ds, eris.Wrap(rows.Err(), "sqlite: dataset regions iterate")
}

func (s *SQLiteStore) LatestDataset(ctx context.Context) (*model.Dataset, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM datasets ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "no datasets ingested")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest dataset")
	}
	return s.GetDataset(ctx, id)
}

func (s *SQLiteStore) CreateRun(ctx context.Context, datasetID, checksum string, settings model.AnalysisSettings) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal settings")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, dataset_id, checksum, status, settings, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, datasetID, checksum, string(model.RunStatusQueued), string(settingsJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult, durationMS int64) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, duration_ms = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(model.RunStatusComplete), durationMS, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), cause, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dataset_id, checksum, status, settings, result, error, duration_ms, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, dataset_id, checksum, status, settings, result, error, duration_ms, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.DatasetID != "" {
		query += ` AND dataset_id = ?`
		args = append(args, filter.DatasetID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var settingsJSON string
	var resultJSON, errMsg sql.NullString

	err := row.Scan(&r.ID, &r.DatasetID, &r.Checksum, &r.Status, &settingsJSON, &resultJSON, &errMsg, &r.DurationMS, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(settingsJSON), &r.Settings); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal settings")
	}
	if resultJSON.Valid {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	if errMsg.Valid {
		r.Error = errMsg.String
	}
	return &r, nil
}
