package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

// ErrNotFound is returned when a requested dataset or run does not exist.
// Backends wrap it so callers can test with errors.Is.
var ErrNotFound = eris.New("not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status    model.RunStatus `json:"status,omitempty"`
	DatasetID string          `json:"dataset_id,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for ingested datasets and
// analysis runs.
type Store interface {
	// Datasets
	SaveDataset(ctx context.Context, ds *model.Dataset) error
	GetDataset(ctx context.Context, id string) (*model.Dataset, error)
	LatestDataset(ctx context.Context) (*model.Dataset, error)

	// Runs
	CreateRun(ctx context.Context, datasetID, checksum string, settings model.AnalysisSettings) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, result *model.RunResult, durationMS int64) error
	FailRun(ctx context.Context, runID string, cause string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
