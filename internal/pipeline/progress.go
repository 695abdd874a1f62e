package pipeline

import (
	"sync/atomic"

	"github.com/sells-group/sourdough-cli/internal/model"
)

// Progress holds the live counters of one run. Workers update it
// concurrently; Snapshot reads a consistent-enough copy for reporting.
type Progress struct {
	found            atomic.Int64
	processed        atomic.Int64
	verified         atomic.Int64
	inserted         atomic.Int64
	skippedDuplicate atomic.Int64
	failed           atomic.Int64
	notPizza         atomic.Int64
	rejected         atomic.Int64
	resumed          atomic.Int64
	queriesRun       atomic.Int64
	queriesFailed    atomic.Int64
	searchCalls      atomic.Int64
}

// Snapshot returns the counters as a RunSummary.
func (p *Progress) Snapshot() model.RunSummary {
	return model.RunSummary{
		Found:            int(p.found.Load()),
		Processed:        int(p.processed.Load()),
		Verified:         int(p.verified.Load()),
		Inserted:         int(p.inserted.Load()),
		SkippedDuplicate: int(p.skippedDuplicate.Load()),
		Failed:           int(p.failed.Load()),
		NotPizza:         int(p.notPizza.Load()),
		Rejected:         int(p.rejected.Load()),
		Resumed:          int(p.resumed.Load()),
		QueriesRun:       int(p.queriesRun.Load()),
		QueriesFailed:    int(p.queriesFailed.Load()),
		SearchCalls:      int(p.searchCalls.Load()),
	}
}
