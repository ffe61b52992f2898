package analysis

import (
	"github.com/montanaflynn/stats"
	"github.com/rotisserie/eris"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

// summarizeVariables computes a distribution summary for every frame
// column, in column order, for the report's variables table.
func summarizeVariables(f *model.Frame) ([]model.VariableSummary, error) {
	out := make([]model.VariableSummary, 0, len(f.Order))
	for _, name := range f.Order {
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		s, err := summarize(name, col)
		if err != nil {
			return nil, eris.Wrapf(err, "summarize %s", name)
		}
		out = append(out, s)
	}
	return out, nil
}

func summarize(name string, values []float64) (model.VariableSummary, error) {
	data := stats.Float64Data(values)

	mean, err := stats.Mean(data)
	if err != nil {
		return model.VariableSummary{}, eris.Wrap(err, "mean")
	}
	median, err := stats.Median(data)
	if err != nil {
		return model.VariableSummary{}, eris.Wrap(err, "median")
	}
	stdDev, err := stats.StandardDeviationSample(data)
	if err != nil {
		return model.VariableSummary{}, eris.Wrap(err, "std dev")
	}
	minV, err := stats.Min(data)
	if err != nil {
		return model.VariableSummary{}, eris.Wrap(err, "min")
	}
	maxV, err := stats.Max(data)
	if err != nil {
		return model.VariableSummary{}, eris.Wrap(err, "max")
	}

	return model.VariableSummary{
		Name:   name,
		Mean:   mean,
		Median: median,
		StdDev: stdDev,
		Min:    minV,
		Max:    maxV,
	}, nil
}
