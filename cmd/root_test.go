package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Metadata(t *testing.T) {
	assert.Equal(t, "foodaccess", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentPreRunE)
	assert.NotNil(t, rootCmd.PersistentPostRun)
}

func TestRootCmd_SubcommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"fetch", "ingest", "analyze", "report", "runs", "weights", "serve"} {
		assert.True(t, names[want], "command %q not registered", want)
	}
}

func TestRunsCmd_Subcommands(t *testing.T) {
	var runs *cobra.Command
	for _, c := range rootCmd.Commands() {
		if c.Name() == "runs" {
			runs = c
		}
	}
	require.NotNil(t, runs)

	sub := make(map[string]bool)
	for _, c := range runs.Commands() {
		sub[c.Name()] = true
	}
	assert.True(t, sub["list"])
	assert.True(t, sub["show"])
	assert.True(t, sub["stats"])
}
