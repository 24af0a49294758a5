// Package history persists RunRecords: one JSON file per run, named by run
// id, under a runs directory, plus a capped index keyed by
// "<workspace>:<workflowPath>". Retargeted from a Postgres table to a
// flat-file store by default, with an optional Postgres-backed
// implementation of the same Store interface for deployments that want
// queryable history.
package history

import (
	"time"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// Status values a RunRecord settles into.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// RunRecord is one persisted execution.
type RunRecord struct {
	ID           string             `json:"id"`
	Workspace    string             `json:"workspace"`
	WorkflowPath string             `json:"workflowPath"`
	StartedAt    time.Time          `json:"startedAt"`
	CompletedAt  time.Time          `json:"completedAt"`
	Status       string             `json:"status"`
	Duration     time.Duration      `json:"duration"`
	NodeCount    int                `json:"nodeCount"`
	Results      []schema.NodeResult `json:"results"`
	Error        string             `json:"error,omitempty"`
	Source       string             `json:"source,omitempty"` // "manual", "cron", "idle"
}

// Summary is the trimmed projection stored in the capped index file —
// everything a history listing needs without re-reading every run's full
// result set.
type Summary struct {
	ID           string        `json:"id"`
	WorkflowPath string        `json:"workflowPath"`
	StartedAt    time.Time     `json:"startedAt"`
	CompletedAt  time.Time     `json:"completedAt"`
	Status       string        `json:"status"`
	Duration     time.Duration `json:"duration"`
	Source       string        `json:"source,omitempty"`
}

// ToSummary projects a RunRecord down to its index entry.
func (r *RunRecord) ToSummary() Summary {
	return Summary{
		ID:           r.ID,
		WorkflowPath: r.WorkflowPath,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
		Status:       r.Status,
		Duration:     r.Duration,
		Source:       r.Source,
	}
}

// IndexKey builds the "<workspace>:<workflowPath>" key used for the
// capped-per-key history index.
func IndexKey(workspace, workflowPath string) string {
	return workspace + ":" + workflowPath
}

// StatusFor maps a run's success flag and a cancellation flag to the
// persisted Status value.
func StatusFor(success, cancelled bool) string {
	switch {
	case cancelled:
		return StatusCancelled
	case success:
		return StatusCompleted
	default:
		return StatusFailed
	}
}
