package geodata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func TestWKBRoundTrip(t *testing.T) {
	mp := toMultiPolygon(squareShape(-87.7, 41.8, -87.6, 41.9))
	require.NotNil(t, mp)

	data, err := EncodeWKB(mp)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := DecodeWKB(data)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, 4326, got.SRID())
	assert.Equal(t, mp.NumPolygons(), got.NumPolygons())
	assert.Equal(t, mp.FlatCoords(), got.FlatCoords())
}

func TestEncodeWKB_Nil(t *testing.T) {
	data, err := EncodeWKB(nil)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDecodeWKB_Empty(t *testing.T) {
	got, err := DecodeWKB(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecodeWKB_Garbage(t *testing.T) {
	_, err := DecodeWKB([]byte{0xde, 0xad, 0xbe, 0xef})
	require.Error(t, err)
}

func TestDecodeWKB_WrongType(t *testing.T) {
	pt := geom.NewPointFlat(geom.XY, []float64{-87.6, 41.8}).SetSRID(4326)
	data, err := ewkb.Marshal(pt, ewkb.NDR)
	require.NoError(t, err)

	_, err = DecodeWKB(data)
	require.Error(t, err)
	assert.ErrorContains(t, err, "expected multipolygon")
}
