package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/estimate-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			ClientName:  "Acme Corp",
			ProjectName: "Network refresh",
			Status:      model.RunStatusComplete,
			CreatedAt:   now,
			UpdatedAt:   now.Add(2 * time.Minute),
		},
		{
			ID:          "def12345-6789-0000-0000-000000000000",
			ClientName:  "Beta Incorporated With A Very Long Legal Name",
			ProjectName: "Backup",
			Status:      model.RunStatusProcessingSurvey,
			CreatedAt:   now.Add(-1 * time.Hour),
			UpdatedAt:   now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "CLIENT")
	assert.Contains(t, output, "PROJECT")
	assert.Contains(t, output, "Acme Corp")
	assert.Contains(t, output, "Network refresh")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "processing_survey")
	assert.Contains(t, output, "Beta Incorporated With A Ve...")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestComputeRunStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{
			Status: model.RunStatusComplete, CreatedAt: now, UpdatedAt: now.Add(60 * time.Second),
			Result: &model.Estimate{Phases: []model.PhaseResult{{Name: "summary", Status: model.PhaseStatusComplete}}},
		},
		{
			Status: model.RunStatusComplete, CreatedAt: now, UpdatedAt: now.Add(120 * time.Second),
			Result: &model.Estimate{Phases: []model.PhaseResult{{Name: "summary", Status: model.PhaseStatusFailed}}},
		},
		{
			Status: model.RunStatusFailed, CreatedAt: now,
			Result: &model.Estimate{Phases: []model.PhaseResult{{Name: "document", Status: model.PhaseStatusFailed}}},
		},
		{Status: model.RunStatusFailed, CreatedAt: now},
		{Status: model.RunStatusGeneratingDocument, CreatedAt: now},
		{Status: model.RunStatusComplete, CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now},
	}

	s := computeRunStats(runs, now.Add(-24*time.Hour))
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Degraded)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 1, s.FailedAt["document"])
	assert.Equal(t, 1, s.FailedAt["unknown"])
	assert.Equal(t, 1, s.Other)
	assert.InDelta(t, 90.0, s.AvgDurSecs, 0.01)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{
		Total: 3, Complete: 2, Degraded: 1, Failed: 1,
		FailedAt:   map[string]int{"document": 1},
		AvgDurSecs: 42.5,
	})

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "Summary degraded:")
	assert.Contains(t, output, "at document:")
	assert.Contains(t, output, "42.5s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
