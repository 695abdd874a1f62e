// Package search submits discovery queries to a place-search provider and
// returns raw candidates.
package search

import (
	"context"
	"fmt"

	"github.com/sells-group/sourdough-cli/internal/model"
)

// Client searches a provider for places.
type Client interface {
	// Search returns up to limit raw candidates for q. Every candidate's
	// SourceQuery is q.ID. Failures are *ProviderError or *TimeoutError.
	Search(ctx context.Context, q model.Query, limit int) ([]model.RawCandidate, error)
	// Name identifies the provider in logs and errors.
	Name() string
}

// ProviderError means the provider rejected the request or returned a
// payload that could not be used. The query is abandoned; the run goes on.
type ProviderError struct {
	Provider   string
	Query      string
	StatusCode int
	// Submitted is set when the provider accepted the job before the
	// failure. Such errors are never retried by resubmitting.
	Submitted bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("search: %s rejected %q (HTTP %d): %v", e.Provider, e.Query, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("search: %s failed %q: %v", e.Provider, e.Query, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// TimeoutError means an asynchronous job did not finish within the poll
// budget.
type TimeoutError struct {
	Provider string
	Query    string
	JobID    string
	Attempts int
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("search: %s job %s for %q still pending after %d polls", e.Provider, e.JobID, e.Query, e.Attempts)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
