// Package dataset turns portal table extracts into region-aligned numeric
// frames. Readers parse CSV, XLSX and JSON exports into tables keyed by
// region ID; Build joins a table against the region sequence per a YAML
// variable spec, cleaning values as declared and recording every
// correction it applies.
package dataset

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

// Clean actions recorded while assembling a frame.
const (
	ActionClamped   = "clamped"
	ActionDefaulted = "defaulted"
)

// CleanAction records one correction applied to a single value.
type CleanAction struct {
	RegionID string  `json:"region_id"`
	Variable string  `json:"variable"`
	Action   string  `json:"action"`
	From     float64 `json:"from,omitempty"`
	To       float64 `json:"to"`
}

// Build assembles the region-aligned frame from an attribute table per the
// variable spec. Every region must have a table record; the join is total
// or the build fails. Out-of-range values are pulled to their bound and
// missing optional values default to zero, with every correction returned;
// a missing required value fails the build instead.
func Build(regions []model.Region, tbl *Table, vars *Variables) (*model.Frame, []CleanAction, error) {
	if len(regions) == 0 {
		return nil, nil, eris.New("dataset: no regions to build a frame over")
	}
	if tbl == nil {
		return nil, nil, eris.New("dataset: nil attribute table")
	}
	if vars == nil {
		vars = DefaultVariables()
	}

	var missing []string
	for _, r := range regions {
		if !tbl.HasRegion(r.ID) {
			missing = append(missing, r.ID)
		}
	}
	if len(missing) > 0 {
		return nil, nil, eris.Errorf("dataset: table has no record for regions %s", strings.Join(missing, ", "))
	}

	ids := make([]string, len(regions))
	names := make([]string, len(regions))
	for i, r := range regions {
		ids[i] = r.ID
		names[i] = r.Name
	}
	frame := model.NewFrame(ids, names)

	var actions []CleanAction
	for _, v := range vars.Vars {
		col := v.sourceColumn()
		if !tbl.Has(col) {
			if v.Required {
				return nil, nil, eris.Errorf("dataset: table has no %q column for required variable %q", col, v.Name)
			}
			zap.L().Debug("dataset: optional variable absent from table", zap.String("variable", v.Name))
			continue
		}

		values := make([]float64, len(regions))
		for i, r := range regions {
			raw := tbl.Value(r.ID, col)
			val, ok := cleanNumber(raw)
			if !ok {
				if v.Required {
					return nil, nil, eris.Errorf("dataset: region %s has no usable %q value (%q)", r.ID, v.Name, raw)
				}
				actions = append(actions, CleanAction{RegionID: r.ID, Variable: v.Name, Action: ActionDefaulted})
				continue
			}
			clamped, moved := v.clampValue(val)
			if moved {
				actions = append(actions, CleanAction{RegionID: r.ID, Variable: v.Name, Action: ActionClamped, From: val, To: clamped})
			}
			values[i] = clamped
		}
		if err := frame.AddColumn(v.Name, values); err != nil {
			return nil, nil, err
		}
	}

	if len(frame.Order) == 0 {
		return nil, nil, eris.New("dataset: no declared variable present in table")
	}
	if len(actions) > 0 {
		zap.L().Info("dataset: cleaned values while building frame",
			zap.Int("actions", len(actions)),
			zap.Int("regions", len(regions)),
		)
	}
	return frame, actions, nil
}

// DeriveAccess appends the access metric column: store count per 1,000
// residents when the variable spec names a population column present in the
// frame, raw store counts otherwise. Regions without a recorded population get a
// zero rate, and the fallback is returned as a correction.
func DeriveAccess(frame *model.Frame, counts []int, vars *Variables, name string) ([]CleanAction, error) {
	if frame == nil {
		return nil, eris.New("dataset: nil frame")
	}
	if len(counts) != frame.Len() {
		return nil, eris.Errorf("dataset: %d store counts for %d regions", len(counts), frame.Len())
	}
	if vars == nil {
		vars = DefaultVariables()
	}

	var population []float64
	if vars.Population != "" && frame.HasColumn(vars.Population) {
		population, _ = frame.Column(vars.Population)
	}

	values := make([]float64, len(counts))
	var actions []CleanAction
	for i, c := range counts {
		if population == nil {
			values[i] = float64(c)
			continue
		}
		if population[i] <= 0 {
			values[i] = 0
			actions = append(actions, CleanAction{RegionID: frame.IDs[i], Variable: name, Action: ActionDefaulted})
			continue
		}
		values[i] = float64(c) / population[i] * 1000
	}

	if err := frame.AddColumn(name, values); err != nil {
		return nil, err
	}
	if population == nil {
		zap.L().Debug("dataset: access metric left as raw store counts (no population column)")
	}
	return actions, nil
}
