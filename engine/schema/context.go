package schema

import "sync"

// RunResult is the outcome of one Scheduler.Run (top-level or sub-graph)
// call: whether the run succeeded, the per-node results in completion
// order, and the first terminal error (cancellation or a non-recoverable
// failure), if any.
type RunResult struct {
	Success bool
	Results []NodeResult
	Error   string
}

// DockContext is the mapping from a loop's dock handle ids to the current
// iteration's values, visible only to that loop's inner sub-graph.
type DockContext struct {
	Values map[string]any
}

// Get returns the value bound to a dock handle ("dock:<slot>:<role>" or
// "input:<name>" for the loop's own fan-out), and whether it was present.
func (d *DockContext) Get(handle string) (any, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.Values[handle]
	return v, ok
}

// ExecutionContext is the per-run mutable state exclusively owned by the
// Scheduler. Node executors only ever see a read-only snapshot of Outputs;
// only the Scheduler mutates it, and only between batches.
type ExecutionContext struct {
	RunID          string
	WorkflowInputs map[string]any
	Labels         map[string]string // normalized label -> nodeId, for {{ label.port }} lookups
	Dock           *DockContext

	mu      sync.RWMutex
	outputs map[string]map[string]any
}

// NewExecutionContext creates an empty context for a fresh top-level or
// sub-workflow run.
func NewExecutionContext(runID string, workflowInputs map[string]any) *ExecutionContext {
	return &ExecutionContext{
		RunID:          runID,
		WorkflowInputs: workflowInputs,
		Labels:         make(map[string]string),
		outputs:        make(map[string]map[string]any),
	}
}

// WithDock returns a shallow copy of ctx carrying dock, for running a loop's
// inner sub-graph without mutating the parent context.
func (c *ExecutionContext) WithDock(dock *DockContext) *ExecutionContext {
	return &ExecutionContext{
		RunID:          c.RunID,
		WorkflowInputs: c.WorkflowInputs,
		Labels:         c.Labels,
		Dock:           dock,
		outputs:        c.snapshotOutputs(),
	}
}

// StoreOutput records node n's outputs. Called only by the Scheduler,
// between batches.
func (c *ExecutionContext) StoreOutput(nodeID string, output map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs[nodeID] = output
}

// Output returns a snapshot of node nodeID's previously stored outputs.
func (c *ExecutionContext) Output(nodeID string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.outputs[nodeID]
	return v, ok
}

// HasOutput reports whether nodeID has completed and stored an output.
func (c *ExecutionContext) HasOutput(nodeID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.outputs[nodeID]
	return ok
}

func (c *ExecutionContext) snapshotOutputs() map[string]map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]map[string]any, len(c.outputs))
	for k, v := range c.outputs {
		out[k] = v
	}
	return out
}
