package dataset

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// VariableKind selects the implicit cleaning bounds of a variable.
type VariableKind string

const (
	// KindNumeric applies no implicit bounds.
	KindNumeric VariableKind = "numeric"
	// KindPercent clamps to [0, 100] unless an explicit clamp overrides.
	KindPercent VariableKind = "percent"
	// KindCount floors at zero unless an explicit clamp overrides.
	KindCount VariableKind = "count"
)

// ClampRule bounds a parsed value. Out-of-range values are pulled to the
// violated bound and the correction is recorded, never silently applied.
type ClampRule struct {
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

// Variable maps one frame column onto a source table column.
type Variable struct {
	Name     string       `yaml:"name"`
	Column   string       `yaml:"column,omitempty"` // defaults to Name
	Kind     VariableKind `yaml:"kind,omitempty"`   // defaults to numeric
	Required bool         `yaml:"required,omitempty"`
	Clamp    *ClampRule   `yaml:"clamp,omitempty"`
}

// sourceColumn returns the table column backing the variable.
func (v Variable) sourceColumn() string {
	if v.Column != "" {
		return v.Column
	}
	return v.Name
}

// bounds resolves the effective clamp interval from the explicit rule and
// the kind's implicit bounds.
func (v Variable) bounds() (lo, hi *float64) {
	if v.Clamp != nil {
		return v.Clamp.Min, v.Clamp.Max
	}
	switch v.Kind {
	case KindPercent:
		return floatPtr(0), floatPtr(100)
	case KindCount:
		return floatPtr(0), nil
	}
	return nil, nil
}

// clampValue pulls a value into the variable's bounds. The second return
// reports whether the value moved.
func (v Variable) clampValue(x float64) (float64, bool) {
	lo, hi := v.bounds()
	if lo != nil && x < *lo {
		return *lo, true
	}
	if hi != nil && x > *hi {
		return *hi, true
	}
	return x, false
}

// Variables declares the attribute columns to pull from the indicator
// table and how to clean them.
type Variables struct {
	// IDColumn keys table records to regions.
	IDColumn string `yaml:"id_column"`
	// Population names the frame column used for per-capita scaling of the
	// access metric. Empty keeps raw store counts.
	Population string `yaml:"population,omitempty"`

	Vars []Variable `yaml:"variables"`
}

// LoadVariables reads a variable spec from a YAML file and applies
// defaults.
func LoadVariables(path string) (*Variables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read variables %s", path)
	}

	var v Variables
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, eris.Wrap(err, "dataset: parse variables")
	}

	applyVariableDefaults(&v)
	if err := v.validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// DefaultVariables is the built-in spec for the Chicago socioeconomic
// indicator table, used when no variables file is configured.
func DefaultVariables() *Variables {
	v := &Variables{
		IDColumn:   "community area number",
		Population: "population",
		Vars: []Variable{
			{Name: "population", Column: "population", Kind: KindCount},
			{Name: "pct_below_poverty", Column: "percent households below poverty", Kind: KindPercent, Required: true},
			// The portal extract carries impossible crowding percentages for a
			// few areas; the clamp is declared here so the cleaning is visible
			// in the variable spec rather than buried in the kind's implicit
			// bounds.
			{Name: "pct_crowded_housing", Column: "percent of housing crowded", Kind: KindPercent, Clamp: &ClampRule{Min: floatPtr(0), Max: floatPtr(100)}},
			{Name: "per_capita_income", Column: "per capita income", Kind: KindNumeric, Required: true, Clamp: &ClampRule{Min: floatPtr(0)}},
			{Name: "pct_no_vehicle", Column: "percent households no vehicle", Kind: KindPercent},
			{Name: "pct_unemployed", Column: "percent aged 16+ unemployed", Kind: KindPercent},
			{Name: "hardship_index", Column: "hardship index", Kind: KindNumeric, Clamp: &ClampRule{Min: floatPtr(0), Max: floatPtr(100)}},
		},
	}
	applyVariableDefaults(v)
	return v
}

func applyVariableDefaults(v *Variables) {
	if v.IDColumn == "" {
		v.IDColumn = "community area number"
	}
	for i, vr := range v.Vars {
		if vr.Kind == "" {
			v.Vars[i].Kind = KindNumeric
		}
	}
}

func (v *Variables) validate() error {
	if len(v.Vars) == 0 {
		return eris.New("dataset: variables spec declares no variables")
	}
	seen := make(map[string]struct{}, len(v.Vars))
	for _, vr := range v.Vars {
		if vr.Name == "" {
			return eris.New("dataset: variable with empty name")
		}
		if _, dup := seen[vr.Name]; dup {
			return eris.Errorf("dataset: duplicate variable %q", vr.Name)
		}
		seen[vr.Name] = struct{}{}
		switch vr.Kind {
		case KindNumeric, KindPercent, KindCount:
		default:
			return eris.Errorf("dataset: variable %q has unknown kind %q", vr.Name, vr.Kind)
		}
	}
	return nil
}

func floatPtr(v float64) *float64 { return &v }
