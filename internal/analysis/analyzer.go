// Package analysis orchestrates a full spatial analysis over one ingested
// dataset: contiguity weights, Moran's I with its permutation test, then
// the regression models, with progress and results persisted as a run.
package analysis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/config"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/regress"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/spatial"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/store"
)

// Analyzer executes analysis runs against a store.
type Analyzer struct {
	cfg   *config.Config
	store store.Store
}

// New creates an Analyzer with all dependencies.
func New(cfg *config.Config, st store.Store) *Analyzer {
	return &Analyzer{cfg: cfg, store: st}
}

// plan is the parsed, validated form of the analysis configuration. The
// raw strings are canonicalized before they are frozen into the run's
// settings, so two runs with equivalent spellings record identically.
type plan struct {
	contiguity  spatial.Contiguity
	style       spatial.WeightStyle
	alternative spatial.Alternative
	islands     spatial.IslandPolicy
	sims        int
	seed        int64
	workers     int
	regression  string
	response    string
	covariates  []string
}

func buildPlan(cfg config.AnalysisConfig) (*plan, error) {
	contiguity, err := spatial.ParseContiguity(cfg.Contiguity)
	if err != nil {
		return nil, err
	}
	style, err := spatial.ParseWeightStyle(cfg.Weights)
	if err != nil {
		return nil, err
	}
	alternative, err := spatial.ParseAlternative(cfg.Alternative)
	if err != nil {
		return nil, err
	}
	islands, err := spatial.ParseIslandPolicy(cfg.Islands)
	if err != nil {
		return nil, err
	}
	regression := cfg.Regression
	switch regression {
	case "":
		regression = "spatial-lag"
	case "spatial-lag", "none":
	default:
		return nil, eris.Errorf("analysis: unknown regression %q", regression)
	}
	if cfg.Response == "" {
		return nil, eris.New("analysis: response variable is required")
	}

	seed := cfg.Seed
	if seed == 0 {
		// A fresh seed is drawn here, not inside the permutation test, so
		// the recorded settings always reproduce the run.
		seed = time.Now().UnixNano()
	}

	return &plan{
		contiguity:  contiguity,
		style:       style,
		alternative: alternative,
		islands:     islands,
		sims:        cfg.Sims,
		seed:        seed,
		workers:     cfg.Workers,
		regression:  regression,
		response:    cfg.Response,
		covariates:  cfg.Covariates,
	}, nil
}

func (p *plan) settings() model.AnalysisSettings {
	return model.AnalysisSettings{
		Contiguity:  p.contiguity.String(),
		Weights:     p.style.String(),
		Sims:        p.sims,
		Seed:        p.seed,
		Alternative: p.alternative.String(),
		Islands:     p.islands.String(),
		Regression:  p.regression,
		Response:    p.response,
		Covariates:  p.covariates,
	}
}

// Run executes the full analysis for one dataset. The run record is
// created up front and moved through the stage statuses; any stage error
// marks the run failed and is returned to the caller.
func (a *Analyzer) Run(ctx context.Context, ds *model.Dataset) (*model.Run, error) {
	log := zap.L().With(zap.String("dataset", ds.ID))

	p, err := buildPlan(a.cfg.Analysis)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: settings")
	}

	run, err := a.store.CreateRun(ctx, ds.ID, ds.Checksum, p.settings())
	if err != nil {
		return nil, eris.Wrap(err, "analysis: create run")
	}
	log = log.With(zap.String("run", run.ID))
	log.Info("analysis: starting run",
		zap.String("response", p.response),
		zap.Strings("covariates", p.covariates),
		zap.Int("sims", p.sims),
		zap.Int64("seed", p.seed),
	)

	start := time.Now()
	result, err := a.execute(ctx, log, run.ID, ds, p)
	if err != nil {
		if failErr := a.store.FailRun(ctx, run.ID, err.Error()); failErr != nil {
			log.Warn("analysis: failed to record failure", zap.Error(failErr))
		}
		log.Error("analysis: run failed", zap.Error(err))
		return nil, err
	}

	durationMS := time.Since(start).Milliseconds()
	if err := a.store.CompleteRun(ctx, run.ID, result, durationMS); err != nil {
		return nil, eris.Wrap(err, "analysis: complete run")
	}
	log.Info("analysis: run complete",
		zap.Int64("duration_ms", durationMS),
		zap.Float64("moran_i", result.Moran.I),
		zap.Float64("p_perm", result.Permutation.PValue),
	)

	run.Status = model.RunStatusComplete
	run.Result = result
	run.DurationMS = durationMS
	return run, nil
}

func (a *Analyzer) execute(ctx context.Context, log *zap.Logger, runID string, ds *model.Dataset, p *plan) (*model.RunResult, error) {
	setStatus := func(status model.RunStatus) {
		if err := a.store.UpdateRunStatus(ctx, runID, status); err != nil {
			log.Warn("analysis: failed to update status", zap.Error(err))
		}
	}

	y, err := ds.Frame.Column(p.response)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: response")
	}

	// Stage 1: contiguity and weights.
	setStatus(model.RunStatusWeights)
	stageStart := time.Now()
	geoms := make([]*geom.MultiPolygon, len(ds.Regions))
	for i := range ds.Regions {
		geoms[i] = ds.Regions[i].Geometry
	}
	nl, err := spatial.BuildNeighbors(geoms, spatial.NeighborOptions{Contiguity: p.contiguity})
	if err != nil {
		return nil, eris.Wrap(err, "analysis: neighbors")
	}
	w := spatial.BuildWeights(nl, p.style)
	islandIDs := regionIDs(ds, w.Islands())
	log.Info("analysis: weights built",
		zap.Duration("elapsed", time.Since(stageStart)),
		zap.Int("regions", w.Len()),
		zap.Int("edges", nl.EdgeCount()),
		zap.Int("islands", len(islandIDs)),
		zap.Float64("s0", w.S0()),
	)

	// Stage 2: Moran's I and its permutation test.
	setStatus(model.RunStatusTesting)
	stageStart = time.Now()
	moran, err := spatial.MoransI(w, y, spatial.MoranOptions{
		Alternative: p.alternative,
		Islands:     p.islands,
	})
	if err != nil {
		return nil, eris.Wrap(err, "analysis: morans i")
	}
	perm, err := spatial.PermutationTest(ctx, w, y, spatial.PermOptions{
		Sims:        p.sims,
		Seed:        p.seed,
		Alternative: p.alternative,
		Islands:     p.islands,
		Workers:     p.workers,
	})
	if err != nil {
		return nil, eris.Wrap(err, "analysis: permutation test")
	}
	log.Info("analysis: autocorrelation tested",
		zap.Duration("elapsed", time.Since(stageStart)),
		zap.Float64("moran_i", moran.I),
		zap.Float64("z", moran.ZScore),
		zap.Float64("p_normal", moran.PValue),
		zap.Float64("p_perm", perm.PValue),
	)

	// Stage 3: baseline OLS and the spatial-lag model. The regressions
	// always see the full weights; the island policy only reshapes the
	// autocorrelation statistic.
	var ols *regress.OLSResult
	var lagModel *regress.LagRegressionResult
	if p.regression != "none" {
		setStatus(model.RunStatusFitting)
		stageStart = time.Now()
		x, names, err := designMatrix(ds.Frame, p.covariates)
		if err != nil {
			return nil, eris.Wrap(err, "analysis: design matrix")
		}
		ols, err = regress.FitOLS(x, y, names)
		if err != nil {
			return nil, eris.Wrap(err, "analysis: ols")
		}
		lagModel, err = regress.FitSpatialLag(x, y, names, w, regress.LagOptions{})
		if err != nil {
			return nil, eris.Wrap(err, "analysis: spatial lag")
		}
		log.Info("analysis: models fitted",
			zap.Duration("elapsed", time.Since(stageStart)),
			zap.Float64("ols_r2", ols.R2),
			zap.Float64("rho", lagModel.Rho),
			zap.Float64("lag_loglik", lagModel.LogLik),
		)
	}

	lag, err := w.Lag(y)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: spatial lag vector")
	}
	tiers, err := classifyTiers(y)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: classify")
	}
	vars, err := summarizeVariables(ds.Frame)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: summarize")
	}

	isIsland := make(map[int]bool, len(w.Islands()))
	for _, i := range w.Islands() {
		isIsland[i] = true
	}
	regions := make([]model.RegionOutput, len(ds.Regions))
	for i, r := range ds.Regions {
		regions[i] = model.RegionOutput{
			RegionID: r.ID,
			Name:     r.Name,
			Value:    y[i],
			Lag:      lag[i],
			Tier:     tiers[i],
			Island:   isIsland[i],
		}
	}

	return &model.RunResult{
		Moran:       moran,
		Permutation: perm,
		OLS:         ols,
		Lag:         lagModel,
		Regions:     regions,
		Variables:   vars,
		WeightsS0:   w.S0(),
		Islands:     islandIDs,
	}, nil
}

// designMatrix assembles the intercept-first design matrix from the named
// frame columns.
func designMatrix(f *model.Frame, covariates []string) (*mat.Dense, []string, error) {
	cols, err := f.Select(covariates...)
	if err != nil {
		return nil, nil, err
	}
	n := f.Len()
	x := mat.NewDense(n, len(cols)+1, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		for j, col := range cols {
			x.Set(i, j+1, col[i])
		}
	}
	names := append([]string{"const"}, covariates...)
	return x, names, nil
}

func regionIDs(ds *model.Dataset, indices []int) []string {
	if len(indices) == 0 {
		return nil
	}
	ids := make([]string, len(indices))
	for i, j := range indices {
		ids[i] = ds.Regions[j].ID
	}
	return ids
}
