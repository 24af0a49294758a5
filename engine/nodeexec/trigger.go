package nodeexec

import (
	"context"
	"time"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// TriggerExecutor produces no side effects; it shapes its outputs from the
// node's resolved input bindings (timestamp, type, text, params). An
// unbound timestamp defaults to the current time and an unbound type to
// "manual"; the run's firing source is not passed in.
type TriggerExecutor struct{}

func (e *TriggerExecutor) Execute(ctx context.Context, node *schema.WorkflowNode, cwd string, bindings map[string]any, ectx *schema.ExecutionContext, emit Emit) (*schema.NodeResult, error) {
	start := time.Now()

	ts, _ := bindings["timestamp"].(string)
	if ts == "" {
		ts = time.Now().Format(time.RFC3339)
	}
	triggerType, _ := bindings["type"].(string)
	if triggerType == "" {
		triggerType = "manual"
	}

	output := map[string]any{
		"timestamp": ts,
		"type":      triggerType,
		"text":      bindings["text"],
		"params":    bindings["params"],
	}
	return completed(start, output), nil
}
