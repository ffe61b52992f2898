// Package report renders completed analysis runs as GeoJSON choropleth
// input, XLSX workbooks, CSV tables and formatted text summaries.
package report

import (
	"github.com/rotisserie/eris"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

// resultOf unwraps a run's result, rejecting runs that never completed.
func resultOf(run *model.Run) (*model.RunResult, error) {
	if run == nil {
		return nil, eris.New("report: nil run")
	}
	if run.Result == nil {
		return nil, eris.Errorf("report: run %s has no result (status %s)", run.ID, run.Status)
	}
	return run.Result, nil
}

// storeCounts maps region ID to the dataset's store count for that region.
func storeCounts(ds *model.Dataset) map[string]int {
	counts := make(map[string]int, len(ds.Regions))
	for i, r := range ds.Regions {
		if i < len(ds.Counts) {
			counts[r.ID] = ds.Counts[i]
		}
	}
	return counts
}
