// Package store persists establishments, pipeline runs and candidate checks.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/textutil"
)

// ErrDuplicate is returned by InsertEstablishment when the unique
// (name, city) index already holds the row. Names and cities are compared
// by their folded keys, so case and diacritics do not matter.
var ErrDuplicate = eris.New("store: establishment already exists")

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// matchKey is the stored form of a name or city for duplicate checks.
func matchKey(s string) string {
	return textutil.Fold(strings.TrimSpace(s))
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	City   string          `json:"city,omitempty"`
	State  string          `json:"state,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// EstablishmentFilter specifies criteria for listing establishments. City
// and state match case-insensitively; empty matches all.
type EstablishmentFilter struct {
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for the discovery pipeline.
type Store interface {
	// Establishments
	EstablishmentExists(ctx context.Context, name, city string) (bool, error)
	InsertEstablishment(ctx context.Context, e *model.Establishment) (int64, error)
	ListEstablishments(ctx context.Context, filter EstablishmentFilter) ([]model.Establishment, error)

	// Runs
	CreateRun(ctx context.Context, target model.Target) (*model.Run, error)
	UpdateRunProgress(ctx context.Context, runID string, summary model.RunSummary) error
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary model.RunSummary) error
	FailRun(ctx context.Context, runID string, summary model.RunSummary, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	LastCompletedRun(ctx context.Context, target model.Target) (*model.Run, error)

	// Candidate checks
	RecordCheck(ctx context.Context, check model.CandidateCheck) error
	CheckedKeys(ctx context.Context, target model.Target) (map[string]bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
