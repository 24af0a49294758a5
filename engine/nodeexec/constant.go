package nodeexec

import (
	"context"
	"time"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// ConstantExecutor validates that the runtime type of the configured value
// matches the declared valueType and emits it unchanged.
type ConstantExecutor struct{}

func (e *ConstantExecutor) Execute(ctx context.Context, node *schema.WorkflowNode, cwd string, bindings map[string]any, ectx *schema.ExecutionContext, emit Emit) (*schema.NodeResult, error) {
	start := time.Now()

	value := node.Data.Value
	if err := checkRuntimeType(node.Data.ValueType, value); err != nil {
		return failed(start, wrapf("constant node %s: %w", node.ID, err)), nil
	}

	return completed(start, map[string]any{"value": value}), nil
}

func checkRuntimeType(declared schema.ValueType, value any) error {
	switch declared {
	case schema.ValueBoolean:
		if _, ok := value.(bool); !ok {
			return wrapf("declared valueType boolean but value is %T", value)
		}
	case schema.ValueNumber:
		switch value.(type) {
		case float64, float32, int, int64:
		default:
			return wrapf("declared valueType number but value is %T", value)
		}
	case schema.ValueString:
		if _, ok := value.(string); !ok {
			return wrapf("declared valueType string but value is %T", value)
		}
	default:
		return wrapf("constant valueType must be one of boolean, number, string; got %q", declared)
	}
	return nil
}
