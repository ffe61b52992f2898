package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/regress"
)

// WriteText renders a run as a plain-text summary. Counts are printed
// with locale grouping; the statistics keep plain decimal formatting.
func WriteText(w io.Writer, ds *model.Dataset, run *model.Run) error {
	result, err := resultOf(run)
	if err != nil {
		return err
	}
	p := message.NewPrinter(language.English)

	totalStores := 0
	for _, c := range ds.Counts {
		totalStores += c
	}

	_, _ = fmt.Fprintf(w, "Food access run %s\n", truncateID(run.ID))
	_, _ = fmt.Fprintf(w, "  dataset    %s (checksum %s)\n", run.DatasetID, run.Checksum)
	if len(result.Islands) > 0 {
		_, _ = p.Fprintf(w, "  regions    %d (%d islands: %s)\n",
			len(result.Regions), len(result.Islands), strings.Join(result.Islands, ", "))
	} else {
		_, _ = p.Fprintf(w, "  regions    %d\n", len(result.Regions))
	}
	_, _ = p.Fprintf(w, "  stores     %d matched, %d unmatched\n", totalStores, ds.Unmatched)
	_, _ = p.Fprintf(w, "  completed  %s in %d ms\n\n", run.UpdatedAt.Format("2006-01-02 15:04"), run.DurationMS)

	_, _ = fmt.Fprintf(w, "Spatial autocorrelation (%s contiguity, %s weights)\n",
		run.Settings.Contiguity, run.Settings.Weights)
	if result.Moran != nil {
		_, _ = fmt.Fprintf(w, "  Moran's I      %.4f (expected %.4f)\n", result.Moran.I, result.Moran.Expected)
		_, _ = fmt.Fprintf(w, "  z-score        %.3f\n", result.Moran.ZScore)
		_, _ = fmt.Fprintf(w, "  normal p       %.4f (%s)\n", result.Moran.PValue, run.Settings.Alternative)
	}
	if result.Permutation != nil {
		// The seed stays ungrouped so it can be pasted back into a config.
		_, _ = fmt.Fprintf(w, "  permutation p  %.4f (%s sims, seed %d)\n",
			result.Permutation.PValue, p.Sprintf("%d", len(result.Permutation.Sims)), result.Permutation.Seed)
	}
	_, _ = fmt.Fprintln(w)

	tierCounts := make(map[model.AccessTier]int)
	for _, r := range result.Regions {
		tierCounts[r.Tier]++
	}
	_, _ = fmt.Fprintf(w, "Access tiers\n  desert %d, low %d, moderate %d, high %d\n\n",
		tierCounts[model.TierDesert], tierCounts[model.TierLow],
		tierCounts[model.TierModerate], tierCounts[model.TierHigh])

	if result.OLS != nil {
		_, _ = fmt.Fprintf(w, "OLS (response %s)\n", run.Settings.Response)
		_, _ = fmt.Fprintf(w, "  R2 %.4f (adj %.4f), AIC %.2f, log-lik %.2f\n",
			result.OLS.R2, result.OLS.AdjR2, result.OLS.AIC, result.OLS.LogLik)
		writeCoefficients(w, result.OLS.Coefficients)
		_, _ = fmt.Fprintln(w)
	}
	if result.Lag != nil {
		_, _ = fmt.Fprintln(w, "Spatial lag")
		_, _ = fmt.Fprintf(w, "  rho %.4f (se %.4f, z %.3f, p %.4f)%s\n",
			result.Lag.Rho, result.Lag.RhoStdErr, result.Lag.RhoZ, result.Lag.RhoPValue, stars(result.Lag.RhoPValue))
		_, _ = fmt.Fprintf(w, "  sigma2 %.4f, AIC %.2f, log-lik %.2f\n",
			result.Lag.Sigma2, result.Lag.AIC, result.Lag.LogLik)
		writeCoefficients(w, result.Lag.Coefficients)
	}
	return nil
}

func writeCoefficients(w io.Writer, coefs []regress.Coefficient) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "  NAME\tESTIMATE\tSTD ERR\tSTAT\tP")
	for _, c := range coefs {
		_, _ = fmt.Fprintf(tw, "  %s\t%.4f\t%.4f\t%.3f\t%.4f%s\n",
			c.Name, c.Estimate, c.StdErr, c.Stat, c.PValue, stars(c.PValue))
	}
	_ = tw.Flush()
}

// stars marks conventional significance levels.
func stars(p float64) string {
	switch {
	case p < 0.001:
		return " ***"
	case p < 0.01:
		return " **"
	case p < 0.05:
		return " *"
	}
	return ""
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
