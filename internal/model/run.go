package model

import (
	"fmt"
	"strings"
	"time"
)

// Target is a geographic area to discover establishments in.
type Target struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// String renders the target as "City, ST".
func (t Target) String() string {
	return fmt.Sprintf("%s, %s", t.City, t.State)
}

// ParseTarget parses "City, ST" (comma required).
func ParseTarget(s string) (Target, error) {
	i := strings.LastIndex(s, ",")
	if i < 0 {
		return Target{}, fmt.Errorf("target %q: expected \"City, ST\"", s)
	}
	t := Target{
		City:  strings.TrimSpace(s[:i]),
		State: strings.ToUpper(strings.TrimSpace(s[i+1:])),
	}
	if t.City == "" || t.State == "" {
		return Target{}, fmt.Errorf("target %q: city and state are required", s)
	}
	return t, nil
}

// RunStatus represents the current state of a discovery run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunSummary holds the per-city counts of a discovery run.
type RunSummary struct {
	Found            int `json:"found"`
	Processed        int `json:"processed"`
	Verified         int `json:"verified"`
	Inserted         int `json:"inserted"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	Failed           int `json:"failed"`
	NotPizza         int `json:"not_pizza"`
	Rejected         int `json:"rejected"`
	Resumed          int `json:"resumed"`
	QueriesRun       int `json:"queries_run"`
	QueriesFailed    int `json:"queries_failed"`
	SearchCalls      int `json:"search_calls"`
}

// Run records one pipeline run over one target.
type Run struct {
	ID          string     `json:"id"`
	Target      Target     `json:"target"`
	Status      RunStatus  `json:"status"`
	Summary     RunSummary `json:"summary"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CandidateCheck records that a candidate was verified in a previous run.
type CandidateCheck struct {
	Target     Target     `json:"target"`
	Key        string     `json:"key"`
	Name       string     `json:"name"`
	Verified   bool       `json:"verified"`
	Confidence Confidence `json:"confidence"`
	CheckedAt  time.Time  `json:"checked_at"`
}
