package history

import "context"

// Store persists RunRecords and serves capped per-key history listings.
// FSStore is the default; PGStore is an optional drop-in for deployments
// that want queryable run history.
type Store interface {
	// Save writes a completed run record and updates the capped index for
	// its (workspace, workflowPath) key.
	Save(ctx context.Context, record *RunRecord) error
	// Get loads one run record by id.
	Get(ctx context.Context, runID string) (*RunRecord, error)
	// List returns the capped summary list for a (workspace, workflowPath)
	// key, most recent first.
	List(ctx context.Context, workspace, workflowPath string) ([]Summary, error)
}
