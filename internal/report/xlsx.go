package report

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/regress"
)

// BuildWorkbook assembles the XLSX report for a completed run: a Summary
// sheet of run facts and statistics, the Variables table, the per-region
// outputs, model coefficients and the raw permutation draws.
func BuildWorkbook(ds *model.Dataset, run *model.Run) (*xlsx.File, error) {
	result, err := resultOf(run)
	if err != nil {
		return nil, err
	}

	f := xlsx.NewFile()
	if err := addSummarySheet(f, ds, run, result); err != nil {
		return nil, err
	}
	if err := addVariablesSheet(f, result); err != nil {
		return nil, err
	}
	if err := addRegionsSheet(f, ds, result); err != nil {
		return nil, err
	}
	if err := addCoefficientsSheet(f, result); err != nil {
		return nil, err
	}
	if err := addSimulationsSheet(f, result); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteXLSX renders the workbook to a file on disk.
func WriteXLSX(path string, ds *model.Dataset, run *model.Run) error {
	f, err := BuildWorkbook(ds, run)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}

func addSummarySheet(f *xlsx.File, ds *model.Dataset, run *model.Run, result *model.RunResult) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	kv := func(label string, value any) {
		row := sheet.AddRow()
		row.AddCell().SetString(label)
		cell := row.AddCell()
		switch v := value.(type) {
		case string:
			cell.SetString(v)
		case int:
			cell.SetInt(v)
		case int64:
			cell.SetInt64(v)
		case float64:
			cell.SetFloat(v)
		default:
			cell.SetString(fmt.Sprint(v))
		}
	}

	kv("run_id", run.ID)
	kv("dataset_id", run.DatasetID)
	kv("checksum", run.Checksum)
	kv("status", string(run.Status))
	kv("created_at", run.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	kv("duration_ms", run.DurationMS)

	kv("contiguity", run.Settings.Contiguity)
	kv("weights", run.Settings.Weights)
	kv("alternative", run.Settings.Alternative)
	kv("islands_policy", run.Settings.Islands)
	kv("response", run.Settings.Response)

	kv("regions", len(result.Regions))
	kv("islands", len(result.Islands))
	kv("unmatched_stores", ds.Unmatched)
	kv("weights_s0", result.WeightsS0)

	if result.Moran != nil {
		kv("moran_i", result.Moran.I)
		kv("expected_i", result.Moran.Expected)
		kv("variance", result.Moran.Variance)
		kv("z_score", result.Moran.ZScore)
		kv("normal_p", result.Moran.PValue)
	}
	if result.Permutation != nil {
		kv("permutation_p", result.Permutation.PValue)
		kv("permutation_sims", len(result.Permutation.Sims))
		kv("permutation_rank", result.Permutation.Rank)
		kv("seed", result.Permutation.Seed)
	}
	if result.OLS != nil {
		kv("ols_r2", result.OLS.R2)
		kv("ols_adj_r2", result.OLS.AdjR2)
		kv("ols_aic", result.OLS.AIC)
		kv("ols_log_lik", result.OLS.LogLik)
	}
	if result.Lag != nil {
		kv("rho", result.Lag.Rho)
		kv("rho_p", result.Lag.RhoPValue)
		kv("lag_aic", result.Lag.AIC)
		kv("lag_log_lik", result.Lag.LogLik)
	}
	return nil
}

func addVariablesSheet(f *xlsx.File, result *model.RunResult) error {
	sheet, err := f.AddSheet("Variables")
	if err != nil {
		return eris.Wrap(err, "report: add variables sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"name", "mean", "median", "std_dev", "min", "max"} {
		header.AddCell().SetString(h)
	}
	for _, v := range result.Variables {
		row := sheet.AddRow()
		row.AddCell().SetString(v.Name)
		row.AddCell().SetFloat(v.Mean)
		row.AddCell().SetFloat(v.Median)
		row.AddCell().SetFloat(v.StdDev)
		row.AddCell().SetFloat(v.Min)
		row.AddCell().SetFloat(v.Max)
	}
	return nil
}

func addRegionsSheet(f *xlsx.File, ds *model.Dataset, result *model.RunResult) error {
	sheet, err := f.AddSheet("Regions")
	if err != nil {
		return eris.Wrap(err, "report: add regions sheet")
	}
	counts := storeCounts(ds)

	header := sheet.AddRow()
	for _, h := range []string{"region_id", "name", "value", "lag", "tier", "island", "store_count"} {
		header.AddCell().SetString(h)
	}
	for _, out := range result.Regions {
		row := sheet.AddRow()
		row.AddCell().SetString(out.RegionID)
		row.AddCell().SetString(out.Name)
		row.AddCell().SetFloat(out.Value)
		row.AddCell().SetFloat(out.Lag)
		row.AddCell().SetString(string(out.Tier))
		row.AddCell().SetBool(out.Island)
		row.AddCell().SetInt(counts[out.RegionID])
	}
	return nil
}

func addCoefficientsSheet(f *xlsx.File, result *model.RunResult) error {
	sheet, err := f.AddSheet("Coefficients")
	if err != nil {
		return eris.Wrap(err, "report: add coefficients sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"model", "name", "estimate", "std_err", "stat", "p_value"} {
		header.AddCell().SetString(h)
	}
	addCoef := func(modelName string, c regress.Coefficient) {
		row := sheet.AddRow()
		row.AddCell().SetString(modelName)
		row.AddCell().SetString(c.Name)
		row.AddCell().SetFloat(c.Estimate)
		row.AddCell().SetFloat(c.StdErr)
		row.AddCell().SetFloat(c.Stat)
		row.AddCell().SetFloat(c.PValue)
	}

	if result.OLS != nil {
		for _, c := range result.OLS.Coefficients {
			addCoef("ols", c)
		}
	}
	if result.Lag != nil {
		for _, c := range result.Lag.Coefficients {
			addCoef("spatial_lag", c)
		}
		addCoef("spatial_lag", regress.Coefficient{
			Name:     "rho",
			Estimate: result.Lag.Rho,
			StdErr:   result.Lag.RhoStdErr,
			Stat:     result.Lag.RhoZ,
			PValue:   result.Lag.RhoPValue,
		})
	}
	return nil
}

func addSimulationsSheet(f *xlsx.File, result *model.RunResult) error {
	if result.Permutation == nil {
		return nil
	}
	sheet, err := f.AddSheet("Simulations")
	if err != nil {
		return eris.Wrap(err, "report: add simulations sheet")
	}

	header := sheet.AddRow()
	header.AddCell().SetString("sim")
	header.AddCell().SetString("i")
	for i, v := range result.Permutation.Sims {
		row := sheet.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().SetFloat(v)
	}
	return nil
}
