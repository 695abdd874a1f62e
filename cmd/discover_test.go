package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/pipeline"
)

func TestReadTargetLines(t *testing.T) {
	in := "# west\nSandpoint, ID\n\n  Bend, OR  \n# done\n"
	lines, err := readTargetLines(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Sandpoint, ID", "Bend, OR"}, lines)
}

func TestCollectTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.txt")
	require.NoError(t, os.WriteFile(path, []byte("Bend, OR\nsandpoint, id\nMissoula, MT\n"), 0o600))

	targets, err := collectTargets([]string{"Sandpoint, ID"}, path)
	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.Equal(t, "Sandpoint", targets[0].City)
	assert.Equal(t, "Bend", targets[1].City)
	assert.Equal(t, "Missoula", targets[2].City)
}

func TestCollectTargets_Errors(t *testing.T) {
	_, err := collectTargets(nil, "")
	assert.Error(t, err)

	_, err = collectTargets([]string{"Sandpoint"}, "")
	assert.Error(t, err)

	_, err = collectTargets(nil, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestFormatCityResults(t *testing.T) {
	results := []pipeline.CityResult{
		{
			Target:  model.Target{City: "Sandpoint", State: "ID"},
			Summary: &model.RunSummary{Found: 9, Processed: 7, Verified: 1, Inserted: 1, QueriesFailed: 2},
		},
		{
			Target:  model.Target{City: "Bend", State: "OR"},
			Summary: &model.RunSummary{Found: 4},
			Skipped: true,
		},
		{
			Target: model.Target{City: "Boise", State: "ID"},
			Err:    errors.New("pipeline: create run for Boise, ID: disk full"),
		},
	}

	var buf bytes.Buffer
	formatCityResults(&buf, results)
	out := buf.String()

	assert.Contains(t, out, "CITY")
	assert.Contains(t, out, "Sandpoint, ID")
	assert.Contains(t, out, "skipped (completed earlier)")
	assert.Contains(t, out, "disk full")
	assert.Equal(t, 4, strings.Count(out, "\n"))
}
