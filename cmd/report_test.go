package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRun_ByID(t *testing.T) {
	st := newServeTestStore(t)
	_, runID := seedCompletedRun(t, st)

	run, err := resolveRun(context.Background(), st, runID)
	require.NoError(t, err)
	assert.Equal(t, runID, run.ID)
}

func TestResolveRun_LatestCompleted(t *testing.T) {
	st := newServeTestStore(t)
	_, runID := seedCompletedRun(t, st)

	run, err := resolveRun(context.Background(), st, "")
	require.NoError(t, err)
	assert.Equal(t, runID, run.ID)
}

func TestResolveRun_NoCompletedRuns(t *testing.T) {
	st := newServeTestStore(t)

	_, err := resolveRun(context.Background(), st, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no completed runs")
}

func TestOpenOutput(t *testing.T) {
	w, closeFn, err := openOutput("-")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)
	closeFn()

	path := filepath.Join(t.TempDir(), "out.csv")
	w, closeFn, err = openOutput(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("a,b\n"))
	require.NoError(t, err)
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}
