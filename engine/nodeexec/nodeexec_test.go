package nodeexec

import (
	"context"
	"testing"

	"github.com/lyzr/workflow-engine/engine/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellExecutor_HelloWorld(t *testing.T) {
	node := &schema.WorkflowNode{ID: "shell1", Data: schema.NodeData{Script: `echo "Hello from Core!"`}}
	ectx := schema.NewExecutionContext("run1", nil)

	e := &ShellExecutor{}
	result, err := e.Execute(context.Background(), node, t.TempDir(), nil, ectx, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusCompleted, result.Status)
	assert.Equal(t, "Hello from Core!", result.Stdout)
	assert.Equal(t, 0, *result.ExitCode)
}

func TestShellExecutor_NonZeroExitFails(t *testing.T) {
	node := &schema.WorkflowNode{ID: "shell1", Data: schema.NodeData{Script: "exit 3"}}
	ectx := schema.NewExecutionContext("run1", nil)

	e := &ShellExecutor{}
	result, err := e.Execute(context.Background(), node, t.TempDir(), nil, ectx, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusFailed, result.Status)
	assert.Equal(t, 3, *result.ExitCode)
}

func TestConstantExecutor_TypeMismatchFails(t *testing.T) {
	node := &schema.WorkflowNode{ID: "c1", Data: schema.NodeData{ValueType: schema.ValueBoolean, Value: "not-a-bool"}}
	ectx := schema.NewExecutionContext("run1", nil)

	e := &ConstantExecutor{}
	result, err := e.Execute(context.Background(), node, "", nil, ectx, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusFailed, result.Status)
}

func TestConstantExecutor_ValidValue(t *testing.T) {
	node := &schema.WorkflowNode{ID: "c1", Data: schema.NodeData{ValueType: schema.ValueNumber, Value: float64(42)}}
	ectx := schema.NewExecutionContext("run1", nil)

	e := &ConstantExecutor{}
	result, err := e.Execute(context.Background(), node, "", nil, ectx, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusCompleted, result.Status)
	assert.Equal(t, float64(42), result.Output["value"])
}

func TestBuildOutputValues_ShellStdoutFull(t *testing.T) {
	node := &schema.WorkflowNode{
		Data: schema.NodeData{
			NodeType: "shell",
			Outputs:  []schema.PortDefinition{{Name: "stdout", Type: schema.ValueString}},
		},
	}
	result := &schema.NodeResult{Stdout: "abc"}
	out := BuildOutputValues(node, result)
	assert.Equal(t, "abc", out["stdout"])
}

func TestBuildOutputValues_ShellStderrAndExitCodeDontCollapseToStdout(t *testing.T) {
	node := &schema.WorkflowNode{
		Data: schema.NodeData{
			NodeType: "shell",
			Outputs: []schema.PortDefinition{
				{Name: "stdout", Type: schema.ValueString},
				{Name: "stderr", Type: schema.ValueString},
				{Name: "exitCode", Type: schema.ValueNumber},
			},
		},
	}
	exitCode := 1
	result := &schema.NodeResult{Stdout: "out text", Stderr: "err text", ExitCode: &exitCode}
	out := BuildOutputValues(node, result)
	assert.Equal(t, "out text", out["stdout"])
	assert.Equal(t, "err text", out["stderr"])
	assert.Equal(t, 1, out["exitCode"])
}

func TestBuildOutputValues_AgentResponseUsesStructuredOverRaw(t *testing.T) {
	node := &schema.WorkflowNode{
		Data: schema.NodeData{
			NodeType: "agent",
			Outputs:  []schema.PortDefinition{{Name: "response", Type: schema.ValueJSON}},
		},
	}
	result := &schema.NodeResult{RawOutput: "raw", StructuredOutput: map[string]any{"answer": "42"}}
	out := BuildOutputValues(node, result)
	assert.Equal(t, map[string]any{"answer": "42"}, out["response"])
}

func TestBuildOutputValues_RegexExtract(t *testing.T) {
	node := &schema.WorkflowNode{
		Data: schema.NodeData{
			NodeType: "shell",
			Outputs:  []schema.PortDefinition{{Name: "version", Type: schema.ValueString, ExtractRaw: "regex(v(\\d+\\.\\d+))"}},
		},
	}
	result := &schema.NodeResult{Stdout: "current release v1.2 is live"}
	out := BuildOutputValues(node, result)
	assert.Equal(t, "1.2", out["version"])
}

func TestInterfaceInputExecutor_ReadsWorkflowInputs(t *testing.T) {
	ectx := schema.NewExecutionContext("run1", map[string]any{"a": 1})
	e := &InterfaceInputExecutor{}
	result, err := e.Execute(context.Background(), &schema.WorkflowNode{}, "", nil, ectx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Output["a"])
}
