package analysis

import (
	"github.com/montanaflynn/stats"
	"github.com/rotisserie/eris"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

// classifyTiers buckets the access metric into quartile tiers. The bottom
// quarter of regions is the desert tier, the top quarter high.
func classifyTiers(values []float64) ([]model.AccessTier, error) {
	q, err := stats.Quartile(stats.Float64Data(values))
	if err != nil {
		return nil, eris.Wrap(err, "quartiles")
	}
	tiers := make([]model.AccessTier, len(values))
	for i, v := range values {
		switch {
		case v <= q.Q1:
			tiers[i] = model.TierDesert
		case v <= q.Q2:
			tiers[i] = model.TierLow
		case v <= q.Q3:
			tiers[i] = model.TierModerate
		default:
			tiers[i] = model.TierHigh
		}
	}
	return tiers, nil
}
