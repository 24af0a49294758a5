package nodeexec

import (
	"context"
	"time"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// ComponentExecutor loads the workflow referenced by `workflowPath` and runs
// it as a sub-run with the node's resolved bindings as workflowInputs; the
// sub-run's interface-output payload becomes this node's structured output.
type ComponentExecutor struct {
	Run ComponentRunner
}

func (e *ComponentExecutor) Execute(ctx context.Context, node *schema.WorkflowNode, cwd string, bindings map[string]any, ectx *schema.ExecutionContext, emit Emit) (*schema.NodeResult, error) {
	start := time.Now()

	if e.Run == nil {
		return failed(start, wrapf("component node %s: no ComponentRunner configured", node.ID)), nil
	}
	if node.Data.WorkflowPath == "" {
		return failed(start, wrapf("component node %s: workflowPath is required", node.ID)), nil
	}

	outputs, err := e.Run(ctx, node.Data.WorkflowPath, bindings)
	if err != nil {
		return failed(start, wrapf("component node %s: %w", node.ID, err)), nil
	}

	result := completed(start, outputs)
	result.StructuredOutput = outputs
	return result, nil
}
