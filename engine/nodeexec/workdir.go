package nodeexec

import (
	"context"
	"time"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// WorkdirExecutor is pure: it emits its configured path without touching
// the filesystem.
type WorkdirExecutor struct{}

func (e *WorkdirExecutor) Execute(ctx context.Context, node *schema.WorkflowNode, cwd string, bindings map[string]any, ectx *schema.ExecutionContext, emit Emit) (*schema.NodeResult, error) {
	start := time.Now()
	return completed(start, map[string]any{"path": node.Data.Path}), nil
}
