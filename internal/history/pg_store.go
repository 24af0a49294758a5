package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lyzr/workflow-engine/common/db"
)

// PGStore is the optional Postgres-backed Store (INSERT/SELECT against a
// `run` table). Deployments that want queryable run history (filter by
// workspace, join against other tables, retain unbounded history)
// configure POSTGRES_HOST and get this
// implementation instead of FSStore; both satisfy the same Store
// interface so callers never branch on which is active.
type PGStore struct {
	db  *db.DB
	cap int
}

// NewPGStore wires database to the history schema, creating the `run`
// table if it does not already exist.
func NewPGStore(ctx context.Context, database *db.DB, cap int) (*PGStore, error) {
	if cap < 1 {
		cap = 10
	}
	const ddl = `
CREATE TABLE IF NOT EXISTS run (
	id             TEXT PRIMARY KEY,
	workspace      TEXT NOT NULL,
	workflow_path  TEXT NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	completed_at   TIMESTAMPTZ NOT NULL,
	status         TEXT NOT NULL,
	duration_ns    BIGINT NOT NULL,
	node_count     INT NOT NULL,
	results        JSONB NOT NULL,
	error          TEXT,
	source         TEXT
);
CREATE INDEX IF NOT EXISTS run_workspace_workflow_idx ON run (workspace, workflow_path, started_at DESC);
`
	if _, err := database.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create run table: %w", err)
	}
	return &PGStore{db: database, cap: cap}, nil
}

// Save inserts a run record. Listing is capped on read (ORDER BY ... LIMIT
// cap) rather than on write, since Postgres makes that cheap and it keeps
// the full history queryable by direct SQL even past the cap.
func (s *PGStore) Save(ctx context.Context, record *RunRecord) error {
	results, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO run (id, workspace, workflow_path, started_at, completed_at, status, duration_ns, node_count, results, error, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			completed_at = EXCLUDED.completed_at,
			status = EXCLUDED.status,
			duration_ns = EXCLUDED.duration_ns,
			results = EXCLUDED.results,
			error = EXCLUDED.error
	`, record.ID, record.Workspace, record.WorkflowPath, record.StartedAt, record.CompletedAt,
		record.Status, record.Duration.Nanoseconds(), record.NodeCount, results, record.Error, record.Source)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// Get loads a run record by id.
func (s *PGStore) Get(ctx context.Context, runID string) (*RunRecord, error) {
	var record RunRecord
	var resultsRaw []byte
	var durationNS int64

	row := s.db.QueryRow(ctx, `
		SELECT id, workspace, workflow_path, started_at, completed_at, status, duration_ns, node_count, results, error, source
		FROM run WHERE id = $1
	`, runID)
	if err := row.Scan(&record.ID, &record.Workspace, &record.WorkflowPath, &record.StartedAt, &record.CompletedAt,
		&record.Status, &durationNS, &record.NodeCount, &resultsRaw, &record.Error, &record.Source); err != nil {
		return nil, fmt.Errorf("query run record %s: %w", runID, err)
	}
	record.Duration = nsToDuration(durationNS)
	if err := json.Unmarshal(resultsRaw, &record.Results); err != nil {
		return nil, fmt.Errorf("parse run results %s: %w", runID, err)
	}
	return &record, nil
}

// List returns the most recent summaries for a (workspace, workflowPath)
// key, capped.
func (s *PGStore) List(ctx context.Context, workspace, workflowPath string) ([]Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, workflow_path, started_at, completed_at, status, duration_ns, source
		FROM run WHERE workspace = $1 AND workflow_path = $2
		ORDER BY started_at DESC LIMIT $3
	`, workspace, workflowPath, s.cap)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var durationNS int64
		if err := rows.Scan(&sum.ID, &sum.WorkflowPath, &sum.StartedAt, &sum.CompletedAt, &sum.Status, &durationNS, &sum.Source); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		sum.Duration = nsToDuration(durationNS)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func nsToDuration(ns int64) time.Duration {
	return time.Duration(ns)
}
