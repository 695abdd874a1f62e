package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/query"
)

func TestFormatPlan(t *testing.T) {
	plan := query.NewPlanner(nil, false).Plan(model.Target{City: "Sandpoint", State: "ID"})

	var buf bytes.Buffer
	formatPlan(&buf, plan)
	out := buf.String()

	assert.Equal(t, len(plan)+1, strings.Count(out, "\n"))
	assert.Contains(t, out, "sourdough pizza in Sandpoint, ID")
	assert.Contains(t, out, string(model.ChannelStyle))
}
