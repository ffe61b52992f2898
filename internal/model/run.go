package model

import (
	"time"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/regress"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/spatial"
)

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusWeights  RunStatus = "building_weights"
	RunStatusTesting  RunStatus = "testing"
	RunStatusFitting  RunStatus = "fitting"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// AnalysisSettings is the frozen configuration of one run. It is stored
// alongside the results so a run can be reproduced exactly.
type AnalysisSettings struct {
	Contiguity  string   `json:"contiguity"`
	Weights     string   `json:"weights"`
	Sims        int      `json:"sims"`
	Seed        int64    `json:"seed"`
	Alternative string   `json:"alternative"`
	Islands     string   `json:"islands"`
	Regression  string   `json:"regression"`
	Response    string   `json:"response"`
	Covariates  []string `json:"covariates"`
}

// VariableSummary describes the distribution of one frame column entering
// a run, for the report's variables table.
type VariableSummary struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// RegionOutput is the per-region slice of a run's results.
type RegionOutput struct {
	RegionID string     `json:"region_id"`
	Name     string     `json:"name"`
	Value    float64    `json:"value"`     // the response variable
	Lag      float64    `json:"lag"`       // its spatial lag
	Tier     AccessTier `json:"tier"`
	Island   bool       `json:"island,omitempty"`
}

// RunResult holds the statistical outcome of a run.
type RunResult struct {
	Moran       *spatial.MoranResult         `json:"moran,omitempty"`
	Permutation *spatial.PermutationResult   `json:"permutation,omitempty"`
	OLS         *regress.OLSResult           `json:"ols,omitempty"`
	Lag         *regress.LagRegressionResult `json:"lag_model,omitempty"`
	Regions     []RegionOutput               `json:"regions"`
	Variables   []VariableSummary            `json:"variables,omitempty"`
	WeightsS0   float64                      `json:"weights_s0"`
	Islands     []string                     `json:"islands,omitempty"` // region IDs without neighbors
}

// Run represents a single analysis run over one ingested dataset.
type Run struct {
	ID         string           `json:"id"`
	DatasetID  string           `json:"dataset_id"`
	Checksum   string           `json:"checksum"` // dataset checksum at run time
	Status     RunStatus        `json:"status"`
	Settings   AnalysisSettings `json:"settings"`
	Result     *RunResult       `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	DurationMS int64            `json:"duration_ms"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
