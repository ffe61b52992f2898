package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/spatial"
)

func listFixture() []model.Run {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []model.Run{
		{
			ID:        "0d9f6d4a-3c0e-4a46-9f3b-2f6f1c2a7b89",
			DatasetID: "11112222-aaaa-bbbb-cccc-444455556666",
			Status:    model.RunStatusComplete,
			Result: &model.RunResult{
				Moran:       &spatial.MoranResult{I: 0.4217},
				Permutation: &spatial.PermutationResult{PValue: 0.01},
			},
			DurationMS: 1500,
			CreatedAt:  created,
			UpdatedAt:  created.Add(1500 * time.Millisecond),
		},
		{
			ID:        "99998888-1111-2222-3333-777766665555",
			DatasetID: "11112222-aaaa-bbbb-cccc-444455556666",
			Status:    model.RunStatusFailed,
			Error:     "response column missing",
			CreatedAt: created.Add(time.Hour),
			UpdatedAt: created.Add(time.Hour),
		},
	}
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, listFixture())
	out := buf.String()

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "MORAN I")
	assert.Contains(t, out, "0d9f6d4a")
	assert.Contains(t, out, "11112222")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "0.4217")
	assert.Contains(t, out, "0.0100")
	assert.Contains(t, out, "failed")
	assert.NotContains(t, out, "0d9f6d4a-3c0e", "IDs are truncated for display")
}

func TestComputeRunStats(t *testing.T) {
	runs := listFixture()
	runs = append(runs, model.Run{ID: "r3", Status: model.RunStatusTesting})

	s := computeRunStats(runs)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Other)
	assert.InDelta(t, 1.5, s.AvgDurSecs, 1e-9)
	assert.InDelta(t, 0.4217, s.MeanMoranI, 1e-9)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{Total: 4, Complete: 2, Failed: 1, Other: 1, AvgDurSecs: 2.5, MeanMoranI: 0.31})
	out := buf.String()

	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "4")
	assert.Contains(t, out, "2.50s")
	assert.Contains(t, out, "0.3100")
	assert.Contains(t, out, "In progress:")
}

func TestTruncateIDDisplay(t *testing.T) {
	assert.Equal(t, "0d9f6d4a", truncateID("0d9f6d4a-3c0e-4a46-9f3b-2f6f1c2a7b89"))
	assert.Equal(t, "short", truncateID("short"))
}
