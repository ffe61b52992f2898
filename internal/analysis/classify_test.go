package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

func TestClassifyTiers_Quartiles(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	tiers, err := classifyTiers(values)
	require.NoError(t, err)

	want := []model.AccessTier{
		model.TierDesert, model.TierDesert,
		model.TierLow, model.TierLow,
		model.TierModerate, model.TierModerate,
		model.TierHigh, model.TierHigh,
	}
	assert.Equal(t, want, tiers)
}

func TestClassifyTiers_UnsortedInput(t *testing.T) {
	values := []float64{8, 1, 5, 4, 2, 7, 3, 6}

	tiers, err := classifyTiers(values)
	require.NoError(t, err)

	assert.Equal(t, model.TierHigh, tiers[0])
	assert.Equal(t, model.TierDesert, tiers[1])
	assert.Equal(t, model.TierModerate, tiers[2])
	assert.Equal(t, model.TierLow, tiers[3])
}

func TestClassifyTiers_Empty(t *testing.T) {
	_, err := classifyTiers(nil)
	require.Error(t, err)
}
