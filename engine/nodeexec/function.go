package nodeexec

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/lyzr/workflow-engine/engine/condition"
	"github.com/lyzr/workflow-engine/engine/schema"
)

// FunctionExecutor runs `code` inline as a CEL expression with access to
// `inputs.*` (wiring the cel-go dependency into a safe expression evaluator,
// per SPEC_FULL.md's domain-stack mapping), or executes a `file` export
// under the same interpreter dispatch as ScriptExecutor, passing bindings
// as a JSON object on stdin and parsing a JSON object from stdout.
type FunctionExecutor struct {
	Eval *condition.Evaluator
}

func (e *FunctionExecutor) evaluator() *condition.Evaluator {
	if e.Eval != nil {
		return e.Eval
	}
	return condition.NewEvaluator()
}

func (e *FunctionExecutor) Execute(ctx context.Context, node *schema.WorkflowNode, cwd string, bindings map[string]any, ectx *schema.ExecutionContext, emit Emit) (*schema.NodeResult, error) {
	start := time.Now()

	if node.Data.Code != "" {
		value, err := e.evaluator().Evaluate(node.Data.Code, bindings)
		if err != nil {
			return failed(start, wrapf("function node %s: %w", node.ID, err)), nil
		}
		return completed(start, outputsFromValue(value)), nil
	}

	if node.Data.File != "" {
		return e.runFile(ctx, node, cwd, bindings, start)
	}

	return failed(start, wrapf("function node %s: neither code nor file configured", node.ID)), nil
}

func (e *FunctionExecutor) runFile(ctx context.Context, node *schema.WorkflowNode, cwd string, bindings map[string]any, start time.Time) (*schema.NodeResult, error) {
	interpreter, ok := interpreterFor(node.Data.File)
	if !ok {
		return failed(start, wrapf("function node %s: unsupported extension for %q", node.ID, node.Data.File)), nil
	}

	payload, err := json.Marshal(bindings)
	if err != nil {
		return failed(start, wrapf("function node %s: marshal inputs: %w", node.ID, err)), nil
	}

	cmd := exec.CommandContext(ctx, interpreter, node.Data.File)
	cmd.Dir = cwd
	cmd.Stdin = strings.NewReader(string(payload))

	stdout, stderr, exitCode, runErr := runCaptured(cmd, nil)
	if exitCode != 0 || runErr != nil {
		result := failed(start, wrapf("function file %s exited with status %d", node.Data.File, exitCode))
		result.Stderr = stderr
		return result, nil
	}

	var out map[string]any
	if jsonErr := json.Unmarshal([]byte(stdout), &out); jsonErr != nil {
		out = map[string]any{"value": stdout}
	}

	result := completed(start, out)
	result.RawOutput = stdout
	result.Stdout = stdout
	result.Stderr = stderr
	return result, nil
}

func outputsFromValue(value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		return m
	}
	return map[string]any{"value": value}
}
