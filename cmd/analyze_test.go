package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/config"
)

// analyzeFlagsFixture mirrors the analyze command's flag set on a
// throwaway command, so tests never mutate the real command's state.
func analyzeFlagsFixture() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("contiguity", "", "")
	cmd.Flags().String("weights", "", "")
	cmd.Flags().Int("sims", 0, "")
	cmd.Flags().Int64("seed", 0, "")
	cmd.Flags().String("alternative", "", "")
	cmd.Flags().String("islands", "", "")
	cmd.Flags().String("regression", "", "")
	cmd.Flags().String("response", "", "")
	cmd.Flags().StringSlice("covariates", nil, "")
	return cmd
}

func TestApplyAnalyzeOverrides(t *testing.T) {
	cfg = &config.Config{}
	cfg.Analysis.Contiguity = "queen"
	cfg.Analysis.Sims = 999
	cfg.Analysis.Response = "access_rate"
	cfg.Analysis.Covariates = []string{"pct_below_poverty"}

	cmd := analyzeFlagsFixture()
	require.NoError(t, cmd.Flags().Set("contiguity", "rook"))
	require.NoError(t, cmd.Flags().Set("sims", "199"))
	require.NoError(t, cmd.Flags().Set("seed", "42"))

	applyAnalyzeOverrides(cmd)

	assert.Equal(t, "rook", cfg.Analysis.Contiguity)
	assert.Equal(t, 199, cfg.Analysis.Sims)
	assert.Equal(t, int64(42), cfg.Analysis.Seed)
	// Untouched flags leave the config alone.
	assert.Equal(t, "access_rate", cfg.Analysis.Response)
	assert.Equal(t, []string{"pct_below_poverty"}, cfg.Analysis.Covariates)
}

func TestApplyAnalyzeOverrides_NothingChanged(t *testing.T) {
	cfg = &config.Config{}
	cfg.Analysis.Contiguity = "queen"
	cfg.Analysis.Weights = "row"
	cfg.Analysis.Sims = 999

	applyAnalyzeOverrides(analyzeFlagsFixture())

	assert.Equal(t, "queen", cfg.Analysis.Contiguity)
	assert.Equal(t, "row", cfg.Analysis.Weights)
	assert.Equal(t, 999, cfg.Analysis.Sims)
}
