package nodeexec

import (
	"context"
	"time"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// InterfaceInputExecutor produces its outputs from context.WorkflowInputs:
// the entry point of a loop body or component sub-graph.
type InterfaceInputExecutor struct{}

func (e *InterfaceInputExecutor) Execute(ctx context.Context, node *schema.WorkflowNode, cwd string, bindings map[string]any, ectx *schema.ExecutionContext, emit Emit) (*schema.NodeResult, error) {
	start := time.Now()
	return completed(start, ectx.WorkflowInputs), nil
}

// InterfaceOutputExecutor is a pass-through: its resolved bindings become
// the sub-run's external outputs.
type InterfaceOutputExecutor struct{}

func (e *InterfaceOutputExecutor) Execute(ctx context.Context, node *schema.WorkflowNode, cwd string, bindings map[string]any, ectx *schema.ExecutionContext, emit Emit) (*schema.NodeResult, error) {
	start := time.Now()
	return completed(start, bindings), nil
}

// InterfaceContinueExecutor is a pass-through: its `continue` binding is
// read by the enclosing Loop Executor after the sub-run completes.
type InterfaceContinueExecutor struct{}

func (e *InterfaceContinueExecutor) Execute(ctx context.Context, node *schema.WorkflowNode, cwd string, bindings map[string]any, ectx *schema.ExecutionContext, emit Emit) (*schema.NodeResult, error) {
	start := time.Now()
	return completed(start, bindings), nil
}
