package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/sourdough-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	done := now.Add(4 * time.Minute)
	runs := []model.Run{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			Target:      model.Target{City: "Sandpoint", State: "ID"},
			Status:      model.RunStatusCompleted,
			Summary:     model.RunSummary{Found: 12, Processed: 9, Inserted: 1},
			StartedAt:   now,
			UpdatedAt:   done,
			CompletedAt: &done,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Target:    model.Target{City: "Bend", State: "OR"},
			Status:    model.RunStatusRunning,
			StartedAt: now,
			UpdatedAt: now.Add(30 * time.Second),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "abc12345")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "Sandpoint, ID")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "4m0s")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "30s")
	assert.Contains(t, out, "2026-06-15 10:30")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
