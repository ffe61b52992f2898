package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_SaveGetDataset_RoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	ds := testDataset(t, "ds-1", time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	require.NoError(t, s.SaveDataset(ctx, ds))

	got, err := s.GetDataset(ctx, "ds-1")
	require.NoError(t, err)

	assert.Equal(t, "ds-1", got.ID)
	assert.Equal(t, "abc123", got.Checksum)
	assert.Equal(t, 1, got.Unmatched)
	assert.Equal(t, []int{3, 0}, got.Counts)

	require.NotNil(t, got.Frame)
	assert.Equal(t, []string{"35", "36"}, got.Frame.IDs)
	assert.Equal(t, []string{"access_rate", "pct_below_poverty"}, got.Frame.Order)
	assert.Equal(t, []float64{1.5, 2.5}, got.Frame.Columns["access_rate"])

	require.Len(t, got.Regions, 2)
	assert.Equal(t, "35", got.Regions[0].ID)
	assert.Equal(t, "Douglas", got.Regions[0].Name)
	require.NotNil(t, got.Regions[0].Geometry)
	assert.Equal(t, 4326, got.Regions[0].Geometry.SRID())
	assert.Equal(t, ds.Regions[0].Geometry.FlatCoords(), got.Regions[0].Geometry.FlatCoords())
}

func TestSQLite_SaveDataset_NilGeometry(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	ds := testDataset(t, "ds-1", time.Now().UTC())
	ds.Regions[1].Geometry = nil
	require.NoError(t, s.SaveDataset(ctx, ds))

	got, err := s.GetDataset(ctx, "ds-1")
	require.NoError(t, err)
	require.Len(t, got.Regions, 2)
	assert.NotNil(t, got.Regions[0].Geometry)
	assert.Nil(t, got.Regions[1].Geometry)
}

func TestSQLite_GetDataset_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetDataset(context.Background(), "no-such-dataset")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_LatestDataset(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveDataset(ctx, testDataset(t, "ds-old", base)))
	require.NoError(t, s.SaveDataset(ctx, testDataset(t, "ds-new", base.Add(time.Hour))))

	got, err := s.LatestDataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ds-new", got.ID)
}

func TestSQLite_LatestDataset_Empty(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.LatestDataset(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Region geometry is shared between datasets; saving a second snapshot
// must not duplicate region rows or disturb the first dataset's order.
func TestSQLite_SaveDataset_SharedRegions(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first := testDataset(t, "ds-1", base)
	require.NoError(t, s.SaveDataset(ctx, first))

	second := testDataset(t, "ds-2", base.Add(time.Hour))
	second.Counts = []int{5, 2}
	require.NoError(t, s.SaveDataset(ctx, second))

	got1, err := s.GetDataset(ctx, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0}, got1.Counts)
	assert.Equal(t, "35", got1.Regions[0].ID)

	got2, err := s.GetDataset(ctx, "ds-2")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 2}, got2.Counts)
}
