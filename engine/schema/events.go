package schema

import "time"

// Event types emitted on the run's event stream, encoded as
// newline-delimited JSON over the SSE transport.
const (
	EventNodeStart         = "node-start"
	EventNodeOutput        = "node-output"
	EventNodeComplete      = "node-complete"
	EventEdgeExecuted      = "edge-executed"
	EventIterationStart    = "iteration-start"
	EventIterationComplete = "iteration-complete"
	EventWorkflowComplete  = "workflow-complete"
)

// Event is the envelope for every entry on the execution event stream. Only
// the fields relevant to Type are populated.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	NodeID string      `json:"nodeId,omitempty"`
	Chunk  string      `json:"chunk,omitempty"`
	Result *NodeResult `json:"result,omitempty"`

	EdgeID       string `json:"edgeId,omitempty"`
	SourceNodeID string `json:"sourceNodeId,omitempty"`

	LoopID    string `json:"loopId,omitempty"`
	Iteration int    `json:"iteration,omitempty"`

	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

func now() time.Time { return time.Now() }

// NewNodeStart builds a node-start event.
func NewNodeStart(nodeID string) Event {
	return Event{Type: EventNodeStart, Timestamp: now(), NodeID: nodeID}
}

// NewNodeOutput builds a node-output chunk event.
func NewNodeOutput(nodeID, chunk string) Event {
	return Event{Type: EventNodeOutput, Timestamp: now(), NodeID: nodeID, Chunk: chunk}
}

// NewNodeComplete builds a node-complete event.
func NewNodeComplete(nodeID string, result *NodeResult) Event {
	return Event{Type: EventNodeComplete, Timestamp: now(), NodeID: nodeID, Result: result}
}

// NewEdgeExecuted builds an edge-executed event.
func NewEdgeExecuted(edgeID, sourceNodeID string) Event {
	return Event{Type: EventEdgeExecuted, Timestamp: now(), EdgeID: edgeID, SourceNodeID: sourceNodeID}
}

// NewIterationStart builds an iteration-start event.
func NewIterationStart(loopID string, iteration int) Event {
	return Event{Type: EventIterationStart, Timestamp: now(), LoopID: loopID, Iteration: iteration}
}

// NewIterationComplete builds an iteration-complete event.
func NewIterationComplete(loopID string, iteration int, success bool) Event {
	return Event{Type: EventIterationComplete, Timestamp: now(), LoopID: loopID, Iteration: iteration, Success: success}
}

// NewWorkflowComplete builds the terminal workflow-complete event.
func NewWorkflowComplete(success bool, errMsg string) Event {
	return Event{Type: EventWorkflowComplete, Timestamp: now(), Success: success, Error: errMsg}
}
