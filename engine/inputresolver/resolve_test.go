package inputresolver

import (
	"testing"

	"github.com/lyzr/workflow-engine/engine/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_BindsFromUpstreamOutput(t *testing.T) {
	node := &schema.WorkflowNode{
		ID: "B",
		Data: schema.NodeData{
			Inputs: []schema.PortDefinition{{Name: "text", Type: schema.ValueString, Required: true}},
		},
	}
	edges := []schema.WorkflowEdge{
		{ID: "e1", Source: "A", Target: "B", SourceHandle: "output:stdout", TargetHandle: "input:text"},
	}
	ctx := schema.NewExecutionContext("run1", nil)
	ctx.StoreOutput("A", map[string]any{"stdout": "hello"})

	bindings, err := Resolve(node, edges, nil, ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", bindings["text"])
}

func TestResolve_MissingRequiredNoEdgeNoDefault(t *testing.T) {
	node := &schema.WorkflowNode{
		ID: "B",
		Data: schema.NodeData{
			Inputs: []schema.PortDefinition{{Name: "needed", Type: schema.ValueString, Required: true}},
		},
	}
	ctx := schema.NewExecutionContext("run1", nil)

	_, err := Resolve(node, nil, nil, ctx)
	require.Error(t, err)
	rerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, CodeMissingRequired, rerr.Code)
	assert.Contains(t, rerr.Error(), "needed")
}

func TestResolve_DefaultUsedWhenNoEdge(t *testing.T) {
	node := &schema.WorkflowNode{
		ID: "B",
		Data: schema.NodeData{
			Inputs: []schema.PortDefinition{{Name: "greeting", Type: schema.ValueString, Default: "hi"}},
		},
	}
	ctx := schema.NewExecutionContext("run1", nil)

	bindings, err := Resolve(node, nil, nil, ctx)
	require.NoError(t, err)
	assert.Equal(t, "hi", bindings["greeting"])
}

func TestResolve_DuplicateInputFails(t *testing.T) {
	node := &schema.WorkflowNode{
		ID:   "B",
		Data: schema.NodeData{Inputs: []schema.PortDefinition{{Name: "x", Type: schema.ValueString}}},
	}
	edges := []schema.WorkflowEdge{
		{ID: "e1", Source: "A", Target: "B", SourceHandle: "output:a", TargetHandle: "input:x"},
		{ID: "e2", Source: "C", Target: "B", SourceHandle: "output:c", TargetHandle: "input:x"},
	}
	ctx := schema.NewExecutionContext("run1", nil)

	_, err := Resolve(node, edges, nil, ctx)
	require.Error(t, err)
	rerr := err.(*Error)
	assert.Equal(t, CodeDuplicateInput, rerr.Code)
}

func TestResolve_MissingOutputWhenSourceNotYetRun(t *testing.T) {
	node := &schema.WorkflowNode{
		ID:   "B",
		Data: schema.NodeData{Inputs: []schema.PortDefinition{{Name: "x", Type: schema.ValueString}}},
	}
	edges := []schema.WorkflowEdge{
		{ID: "e1", Source: "A", Target: "B", SourceHandle: "output:a", TargetHandle: "input:x"},
	}
	ctx := schema.NewExecutionContext("run1", nil)

	_, err := Resolve(node, edges, nil, ctx)
	require.Error(t, err)
	assert.Equal(t, CodeMissingOutput, err.(*Error).Code)
}

func TestResolve_TypeMismatchFailsWhenIncompatible(t *testing.T) {
	source := &schema.WorkflowNode{
		ID:   "A",
		Data: schema.NodeData{Outputs: []schema.PortDefinition{{Name: "count", Type: schema.ValueNumber}}},
	}
	node := &schema.WorkflowNode{
		ID:   "B",
		Data: schema.NodeData{Inputs: []schema.PortDefinition{{Name: "text", Type: schema.ValueString}}},
	}
	edges := []schema.WorkflowEdge{
		{ID: "e1", Source: "A", Target: "B", SourceHandle: "output:count", TargetHandle: "input:text"},
	}
	nodeByID := map[string]*schema.WorkflowNode{"A": source, "B": node}
	ctx := schema.NewExecutionContext("run1", nil)
	ctx.StoreOutput("A", map[string]any{"count": float64(3)})

	_, err := Resolve(node, edges, nodeByID, ctx)
	require.Error(t, err)
	rerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, CodeTypeMismatch, rerr.Code)
}

func TestResolve_CompatibleTypesSucceedWithNodeByID(t *testing.T) {
	source := &schema.WorkflowNode{
		ID:   "A",
		Data: schema.NodeData{Outputs: []schema.PortDefinition{{Name: "stdout", Type: schema.ValueString}}},
	}
	node := &schema.WorkflowNode{
		ID:   "B",
		Data: schema.NodeData{Inputs: []schema.PortDefinition{{Name: "text", Type: schema.ValueString}}},
	}
	edges := []schema.WorkflowEdge{
		{ID: "e1", Source: "A", Target: "B", SourceHandle: "output:stdout", TargetHandle: "input:text"},
	}
	nodeByID := map[string]*schema.WorkflowNode{"A": source, "B": node}
	ctx := schema.NewExecutionContext("run1", nil)
	ctx.StoreOutput("A", map[string]any{"stdout": "hello"})

	bindings, err := Resolve(node, edges, nodeByID, ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", bindings["text"])
}

func TestResolve_ReadsFromDockContext(t *testing.T) {
	node := &schema.WorkflowNode{
		ID: "interface-output-1",
		Data: schema.NodeData{
			Inputs: []schema.PortDefinition{{Name: "result", Type: schema.ValueAny}},
		},
	}
	edges := []schema.WorkflowEdge{
		{ID: "e1", Source: "loop-body-node", Target: "interface-output-1", SourceHandle: "dock:result:output", TargetHandle: "input:result"},
	}
	ctx := schema.NewExecutionContext("run1", nil)
	dockCtx := ctx.WithDock(&schema.DockContext{Values: map[string]any{"dock:result:output": 42}})

	bindings, err := Resolve(node, edges, nil, dockCtx)
	require.NoError(t, err)
	assert.Equal(t, 42, bindings["result"])
}
