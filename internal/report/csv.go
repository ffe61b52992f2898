package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

// WriteCSV streams the per-region outputs as a CSV table, one row per
// region in dataset order.
func WriteCSV(w io.Writer, ds *model.Dataset, run *model.Run) error {
	result, err := resultOf(run)
	if err != nil {
		return err
	}
	counts := storeCounts(ds)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"region_id", "name", "value", "lag", "tier", "island", "store_count"}); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, out := range result.Regions {
		record := []string{
			out.RegionID,
			out.Name,
			strconv.FormatFloat(out.Value, 'g', -1, 64),
			strconv.FormatFloat(out.Lag, 'g', -1, 64),
			string(out.Tier),
			strconv.FormatBool(out.Island),
			strconv.Itoa(counts[out.RegionID]),
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrapf(err, "report: write csv row %s", out.RegionID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}
