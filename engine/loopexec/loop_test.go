package loopexec

import (
	"context"
	"testing"

	"github.com/lyzr/workflow-engine/engine/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduler stands in for the real scheduler: it stores the counter
// it is called with in the inner context's interface-output and flips
// continue to false once it reaches a target.
type fakeScheduler struct {
	calls  int
	target int
}

func (f *fakeScheduler) RunSubgraph(ctx context.Context, allNodes []schema.WorkflowNode, allEdges []schema.WorkflowEdge, ectx *schema.ExecutionContext, parentID string, cwd string, events chan<- schema.Event) (*schema.RunResult, error) {
	f.calls++
	iteration, _ := ectx.WorkflowInputs["iteration"].(int)

	ectx.StoreOutput("out1", map[string]any{"count": iteration})
	ectx.StoreOutput("cont1", map[string]any{"continue": iteration < f.target})

	return &schema.RunResult{Success: true}, nil
}

func loopNodeWithChildren(maxIterations int) (loop schema.WorkflowNode, children []schema.WorkflowNode) {
	loop = schema.WorkflowNode{
		ID: "loop1",
		Data: schema.NodeData{
			NodeType:      "loop",
			MaxIterations: maxIterations,
			DockSlots: []schema.DockSlot{
				{Name: "iteration", Kind: "iteration"},
				{Name: "continue", Kind: "continue"},
				{Name: "count", Kind: "feedback"},
			},
		},
	}
	children = []schema.WorkflowNode{
		{ID: "out1", ParentID: "loop1", Data: schema.NodeData{NodeType: "interface-output"}},
		{ID: "cont1", ParentID: "loop1", Data: schema.NodeData{NodeType: "interface-continue"}},
	}
	return
}

func TestRun_CountsToFiveThenStopsOnCondition(t *testing.T) {
	loop, children := loopNodeWithChildren(0)
	sched := &fakeScheduler{target: 5}
	outerCtx := schema.NewExecutionContext("run1", nil)

	result, err := Run(context.Background(), &loop, children, nil, outerCtx, nil, sched, "", nil)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusCompleted, result.Status)
	assert.Equal(t, 5, sched.calls)
	assert.Equal(t, 5, result.Output["count"])
	assert.Equal(t, ReasonCondition, result.StructuredOutput.(map[string]any)["terminationReason"])
}

func TestRun_StopsAtMaxIterationsWhenConditionNeverFires(t *testing.T) {
	loop, children := loopNodeWithChildren(3)
	sched := &fakeScheduler{target: 100}
	outerCtx := schema.NewExecutionContext("run1", nil)

	result, err := Run(context.Background(), &loop, children, nil, outerCtx, nil, sched, "", nil)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusCompleted, result.Status)
	assert.Equal(t, 3, sched.calls)
	assert.Equal(t, ReasonMaxIterations, result.StructuredOutput.(map[string]any)["terminationReason"])
}

type failingScheduler struct{}

func (failingScheduler) RunSubgraph(ctx context.Context, allNodes []schema.WorkflowNode, allEdges []schema.WorkflowEdge, ectx *schema.ExecutionContext, parentID string, cwd string, events chan<- schema.Event) (*schema.RunResult, error) {
	return &schema.RunResult{Success: false}, nil
}

func TestRun_SubRunFailureTerminatesWithErrorReason(t *testing.T) {
	loop, children := loopNodeWithChildren(0)
	outerCtx := schema.NewExecutionContext("run1", nil)

	result, err := Run(context.Background(), &loop, children, nil, outerCtx, nil, failingScheduler{}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusFailed, result.Status)
	assert.Equal(t, ReasonError, result.StructuredOutput.(map[string]any)["terminationReason"])
}
