package nodeexec

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// ScriptExecutor dispatches by file extension: .ts -> tsx, .js -> node,
// .sh -> bash. An unsupported extension is a node failure.
type ScriptExecutor struct {
	Log Logger
}

func interpreterFor(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts":
		return "tsx", true
	case ".js":
		return "node", true
	case ".sh":
		return "bash", true
	default:
		return "", false
	}
}

func (e *ScriptExecutor) Execute(ctx context.Context, node *schema.WorkflowNode, cwd string, bindings map[string]any, ectx *schema.ExecutionContext, emit Emit) (*schema.NodeResult, error) {
	start := time.Now()

	interpreter, ok := interpreterFor(node.Data.ScriptFile)
	if !ok {
		return failed(start, wrapf("script node %s: unsupported extension for %q", node.ID, node.Data.ScriptFile)), nil
	}

	args := append([]string{node.Data.ScriptFile}, node.Data.ScriptArgs...)
	cmd := exec.CommandContext(ctx, interpreter, args...)
	cmd.Dir = cwd

	stdout, stderr, exitCode, runErr := runCaptured(cmd, emit)

	result := &schema.NodeResult{
		StartTime: start,
		EndTime:   time.Now(),
		Stdout:    stdout,
		Stderr:    stderr,
		ExitCode:  &exitCode,
		RawOutput: stdout,
	}
	if exitCode != 0 || runErr != nil {
		result.Status = schema.StatusFailed
		if runErr != nil {
			result.Error = runErr.Error()
		} else {
			result.Error = wrapf("script %s exited with status %d", node.Data.ScriptFile, exitCode).Error()
		}
		return result, nil
	}
	result.Status = schema.StatusCompleted
	return result, nil
}
