package dataset

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONArray(t *testing.T) {
	type item struct {
		ID   string  `json:"id"`
		Rate float64 `json:"rate"`
	}
	in := `[{"id":"35","rate":1.5},{"id":"36","rate":2.25}]`

	items, errs := DecodeJSONArray[item](context.Background(), strings.NewReader(in))
	var got []item
	for it := range items {
		got = append(got, it)
	}
	require.NoError(t, <-errs)

	require.Len(t, got, 2)
	assert.Equal(t, item{ID: "35", Rate: 1.5}, got[0])
	assert.Equal(t, item{ID: "36", Rate: 2.25}, got[1])
}

func TestDecodeJSONArray_NotAnArray(t *testing.T) {
	items, errs := DecodeJSONArray[map[string]any](context.Background(), strings.NewReader(`{"a":1}`))
	for range items {
	}
	err := <-errs
	require.Error(t, err)
	assert.ErrorContains(t, err, "expected '['")
}

func TestReadJSONTable(t *testing.T) {
	in := `[
		{"community_area_number":"35","community_area_name":"Douglas","per_capita_income":23791},
		{"community_area_number":36.0,"community_area_name":"Oakland"}
	]`

	tbl, err := ReadJSONTable(context.Background(), strings.NewReader(in), "community_area_number")
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "23791", tbl.Value("35", "per_capita_income"))
	assert.Equal(t, "Douglas", tbl.Value("35", "community_area_name"))
	// Number IDs join against the string form.
	assert.True(t, tbl.HasRegion("36"))
	// Key absent from the second element reads as empty.
	assert.Equal(t, "", tbl.Value("36", "per_capita_income"))
}

func TestReadJSONTable_MissingIDKey(t *testing.T) {
	in := `[{"name":"Douglas"}]`

	_, err := ReadJSONTable(context.Background(), strings.NewReader(in), "community_area_number")
	require.Error(t, err)
	assert.ErrorContains(t, err, `no "community_area_number" key`)
}

func TestReadJSONTable_Empty(t *testing.T) {
	_, err := ReadJSONTable(context.Background(), strings.NewReader(`[]`), "id")
	require.Error(t, err)
	assert.ErrorContains(t, err, "no elements")
}

func TestReadJSONTable_NotAnArray(t *testing.T) {
	_, err := ReadJSONTable(context.Background(), strings.NewReader(`{"a":1}`), "id")
	require.Error(t, err)
	assert.ErrorContains(t, err, "expected '['")
}

func TestStringifyJSON(t *testing.T) {
	assert.Equal(t, "", stringifyJSON(nil))
	assert.Equal(t, "x", stringifyJSON("x"))
	assert.Equal(t, "35", stringifyJSON(35.0))
	assert.Equal(t, "35.5", stringifyJSON(35.5))
	assert.Equal(t, "true", stringifyJSON(true))
	assert.Equal(t, `{"a":1}`, stringifyJSON(map[string]any{"a": 1}))
}
