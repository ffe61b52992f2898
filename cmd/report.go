package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/report"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export a stored run as GeoJSON, XLSX, CSV or text",
	Long: `Renders a completed analysis run. Formats: text (summary to stdout),
csv (per-region table), geojson (choropleth FeatureCollection), xlsx
(workbook; requires --output). Defaults to the most recent completed run.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runID, _ := cmd.Flags().GetString("run")
		run, err := resolveRun(ctx, st, runID)
		if err != nil {
			return err
		}
		ds, err := st.GetDataset(ctx, run.DatasetID)
		if err != nil {
			return eris.Wrap(err, "report: load dataset")
		}

		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		switch format {
		case "text":
			w, closeFn, err := openOutput(output)
			if err != nil {
				return err
			}
			defer closeFn()
			return report.WriteText(w, ds, run)
		case "csv":
			w, closeFn, err := openOutput(output)
			if err != nil {
				return err
			}
			defer closeFn()
			return report.WriteCSV(w, ds, run)
		case "geojson":
			data, err := report.GeoJSON(ds, run)
			if err != nil {
				return err
			}
			w, closeFn, err := openOutput(output)
			if err != nil {
				return err
			}
			defer closeFn()
			_, err = w.Write(data)
			return eris.Wrap(err, "report: write geojson")
		case "xlsx":
			if output == "" || output == "-" {
				output = "foodaccess-report.xlsx"
			}
			if err := report.WriteXLSX(output, ds, run); err != nil {
				return err
			}
			fmt.Printf("Workbook written to %s\n", output)
			return nil
		}
		return eris.Errorf("report: unknown format %q (text, csv, geojson, xlsx)", format)
	},
}

func init() {
	reportCmd.Flags().String("run", "", "run ID to render (default: most recent completed)")
	reportCmd.Flags().String("format", "text", "output format: text, csv, geojson or xlsx")
	reportCmd.Flags().String("output", "-", "output path, - for stdout")
	rootCmd.AddCommand(reportCmd)
}

// resolveRun loads the named run, or the most recent completed one.
func resolveRun(ctx context.Context, st store.Store, runID string) (*model.Run, error) {
	if runID != "" {
		run, err := st.GetRun(ctx, runID)
		if err != nil {
			return nil, eris.Wrap(err, "report: load run")
		}
		return run, nil
	}
	runs, err := st.ListRuns(ctx, store.RunFilter{Status: model.RunStatusComplete, Limit: 1})
	if err != nil {
		return nil, eris.Wrap(err, "report: list runs")
	}
	if len(runs) == 0 {
		return nil, eris.New("report: no completed runs; run analyze first")
	}
	return &runs[0], nil
}

// openOutput opens the output target; "-" or empty means stdout, which
// the returned closer leaves open.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "report: create %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}
