package dataset

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

const buildCSV = `COMMUNITY AREA NUMBER,POPULATION,PERCENT HOUSEHOLDS BELOW POVERTY,PER CAPITA INCOME,PERCENT HOUSEHOLDS NO VEHICLE
35,18238,120,"$23,791",30.1
36,5918,39.7,"$19,252",
37,2876,51.2,"$10,432",45.5
`

func buildRegions() []model.Region {
	return []model.Region{
		{ID: "35", Name: "DOUGLAS"},
		{ID: "36", Name: "OAKLAND"},
		{ID: "37", Name: "FULLER PARK"},
	}
}

func buildVars() *Variables {
	return &Variables{
		IDColumn:   "community area number",
		Population: "population",
		Vars: []Variable{
			{Name: "population", Column: "population", Kind: KindCount},
			{Name: "pct_below_poverty", Column: "percent households below poverty", Kind: KindPercent, Required: true},
			{Name: "per_capita_income", Column: "per capita income", Kind: KindNumeric, Required: true},
			{Name: "pct_no_vehicle", Column: "percent households no vehicle", Kind: KindPercent},
			{Name: "hardship_index", Column: "hardship index", Kind: KindNumeric},
		},
	}
}

func buildTable(t *testing.T, csv string) *Table {
	t.Helper()
	tbl, err := ReadCSVTable(context.Background(), strings.NewReader(csv), "community area number")
	require.NoError(t, err)
	return tbl
}

func TestBuild(t *testing.T) {
	frame, actions, err := Build(buildRegions(), buildTable(t, buildCSV), buildVars())
	require.NoError(t, err)

	assert.Equal(t, 3, frame.Len())
	assert.Equal(t, []string{"35", "36", "37"}, frame.IDs)
	assert.Equal(t, []string{"DOUGLAS", "OAKLAND", "FULLER PARK"}, frame.Names)

	poverty, err := frame.Column("pct_below_poverty")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 39.7, 51.2}, poverty) // 120 clamped to 100

	income, err := frame.Column("per_capita_income")
	require.NoError(t, err)
	assert.Equal(t, []float64{23791, 19252, 10432}, income)

	vehicle, err := frame.Column("pct_no_vehicle")
	require.NoError(t, err)
	assert.Equal(t, []float64{30.1, 0, 45.5}, vehicle) // blank defaulted

	// Optional variable whose column is absent is skipped, not zero-filled.
	assert.False(t, frame.HasColumn("hardship_index"))

	require.Len(t, actions, 2)
	assert.Equal(t, CleanAction{RegionID: "35", Variable: "pct_below_poverty", Action: ActionClamped, From: 120, To: 100}, actions[0])
	assert.Equal(t, CleanAction{RegionID: "36", Variable: "pct_no_vehicle", Action: ActionDefaulted}, actions[1])
}

func TestBuild_DefaultVariables(t *testing.T) {
	frame, _, err := Build(buildRegions(), buildTable(t, buildCSV), nil)
	require.NoError(t, err)

	assert.True(t, frame.HasColumn("pct_below_poverty"))
	assert.True(t, frame.HasColumn("per_capita_income"))
	assert.True(t, frame.HasColumn("population"))
}

func TestBuild_RegionWithoutRecord(t *testing.T) {
	regions := append(buildRegions(), model.Region{ID: "99", Name: "NOWHERE"})

	_, _, err := Build(regions, buildTable(t, buildCSV), buildVars())
	require.Error(t, err)
	assert.ErrorContains(t, err, "no record for regions 99")
}

func TestBuild_RequiredValueMissing(t *testing.T) {
	csv := strings.Replace(buildCSV, `"$10,432"`, "", 1)

	_, _, err := Build(buildRegions(), buildTable(t, csv), buildVars())
	require.Error(t, err)
	assert.ErrorContains(t, err, `region 37 has no usable "per_capita_income" value`)
}

func TestBuild_RequiredColumnMissing(t *testing.T) {
	vars := buildVars()
	vars.Vars = append(vars.Vars, Variable{Name: "pct_crowded", Column: "percent housing crowded", Required: true})

	_, _, err := Build(buildRegions(), buildTable(t, buildCSV), vars)
	require.Error(t, err)
	assert.ErrorContains(t, err, `no "percent housing crowded" column`)
}

func TestBuild_BadInput(t *testing.T) {
	_, _, err := Build(nil, buildTable(t, buildCSV), buildVars())
	require.Error(t, err)

	_, _, err = Build(buildRegions(), nil, buildVars())
	require.Error(t, err)
}

func TestDeriveAccess_PerCapita(t *testing.T) {
	frame := model.NewFrame([]string{"35", "36", "37"}, []string{"A", "B", "C"})
	require.NoError(t, frame.AddColumn("population", []float64{1000, 0, 4000}))

	vars := &Variables{Population: "population", Vars: []Variable{{Name: "population"}}}
	actions, err := DeriveAccess(frame, []int{3, 5, 2}, vars, "access_rate")
	require.NoError(t, err)

	rate, err := frame.Column("access_rate")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, rate[0], 1e-12) // 3 stores per 1,000 residents
	assert.Equal(t, 0.0, rate[1])          // no population recorded
	assert.InDelta(t, 0.5, rate[2], 1e-12)

	require.Len(t, actions, 1)
	assert.Equal(t, CleanAction{RegionID: "36", Variable: "access_rate", Action: ActionDefaulted}, actions[0])
}

func TestDeriveAccess_RawCounts(t *testing.T) {
	frame := model.NewFrame([]string{"35", "36"}, []string{"A", "B"})

	vars := &Variables{Vars: []Variable{{Name: "x"}}}
	actions, err := DeriveAccess(frame, []int{3, 5}, vars, "access_rate")
	require.NoError(t, err)
	assert.Empty(t, actions)

	rate, err := frame.Column("access_rate")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5}, rate)
}

func TestDeriveAccess_CountMismatch(t *testing.T) {
	frame := model.NewFrame([]string{"35", "36"}, []string{"A", "B"})

	_, err := DeriveAccess(frame, []int{1}, nil, "access_rate")
	require.Error(t, err)
	assert.ErrorContains(t, err, "1 store counts for 2 regions")
}
