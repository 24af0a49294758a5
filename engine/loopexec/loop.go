// Package loopexec implements the Loop Executor: it drives a loop-kind
// node's inner sub-graph iteration by iteration, building a fresh dock
// context each time and reading the iteration's continue/feedback values
// back out once the sub-run settles.
//
// Iteration counting and the max-iterations guard run in-process against
// an in-memory dock context; loop continuation reads a plain boolean dock
// port rather than evaluating an expression. loopexec declares the narrow
// SubScheduler interface below instead of importing engine/scheduler,
// which implements it, avoiding an import cycle (scheduler -> loopexec ->
// scheduler).
package loopexec

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// SubScheduler is the subset of *scheduler.Scheduler that loopexec needs
// to dispatch a loop's inner nodes.
type SubScheduler interface {
	RunSubgraph(ctx context.Context, allNodes []schema.WorkflowNode, allEdges []schema.WorkflowEdge, ectx *schema.ExecutionContext, parentID string, cwd string, events chan<- schema.Event) (*schema.RunResult, error)
}

// Reasons a loop stops iterating.
const (
	ReasonCondition     = "condition"
	ReasonMaxIterations = "max_iterations"
	ReasonError         = "error"
)

// Run drives loopNode's inner sub-graph (the nodes whose ParentID equals
// loopNode.ID) until its interface-continue port reads false, its
// MaxIterations cap is hit, or a sub-run fails.
func Run(ctx context.Context, loopNode *schema.WorkflowNode, allNodes []schema.WorkflowNode, allEdges []schema.WorkflowEdge, outerCtx *schema.ExecutionContext, bindings map[string]any, sched SubScheduler, cwd string, events chan<- schema.Event) (*schema.NodeResult, error) {
	start := time.Now()

	continueNodeID, outputNodeID := findInterfaceNodes(allNodes, loopNode.ID)

	prev := make(map[string]any)
	var lastOutputs map[string]any
	reason := ReasonCondition
	var iterErr error

	iteration := 0
	for {
		iteration++

		dockValues := map[string]any{
			"dock:iteration:output": iteration,
		}
		for _, slot := range loopNode.Data.DockSlots {
			if slot.Kind == "feedback" {
				dockValues["dock:"+slot.Name+":prev"] = prev[slot.Name]
			}
		}
		for k, v := range bindings {
			dockValues["input:"+k] = v
		}

		iterationInputs := make(map[string]any, len(bindings)+1)
		for k, v := range bindings {
			iterationInputs[k] = v
		}
		iterationInputs["iteration"] = iteration

		innerCtx := outerCtx.WithDock(&schema.DockContext{Values: dockValues})
		innerCtx.WorkflowInputs = iterationInputs

		send(events, schema.NewIterationStart(loopNode.ID, iteration))

		subResult, err := sched.RunSubgraph(ctx, allNodes, allEdges, innerCtx, loopNode.ID, cwd, events)
		if err != nil || (subResult != nil && !subResult.Success) {
			reason = ReasonError
			iterErr = err
			if iterErr == nil {
				iterErr = fmt.Errorf("loop %s: iteration %d failed", loopNode.ID, iteration)
			}
			send(events, schema.NewIterationComplete(loopNode.ID, iteration, false))
			break
		}

		if outputNodeID != "" {
			if out, ok := innerCtx.Output(outputNodeID); ok {
				lastOutputs = out
			}
		}

		continueVal := false
		if continueNodeID != "" {
			if out, ok := innerCtx.Output(continueNodeID); ok {
				if v, ok := out["continue"].(bool); ok {
					continueVal = v
				}
			}
		}

		send(events, schema.NewIterationComplete(loopNode.ID, iteration, true))

		for _, slot := range loopNode.Data.DockSlots {
			if slot.Kind == "feedback" {
				if v, ok := lastOutputs[slot.Name]; ok {
					prev[slot.Name] = v
				}
			}
		}

		if !continueVal {
			reason = ReasonCondition
			break
		}
		if loopNode.Data.MaxIterations > 0 && iteration >= loopNode.Data.MaxIterations {
			reason = ReasonMaxIterations
			break
		}
	}

	raw, _ := json.Marshal(lastOutputs)
	result := &schema.NodeResult{
		Output:           lastOutputs,
		RawOutput:        string(raw),
		StructuredOutput: map[string]any{"iterations": iteration, "terminationReason": reason, "result": lastOutputs},
		StartTime:        start,
		EndTime:          time.Now(),
	}
	if reason == ReasonError {
		result.Status = schema.StatusFailed
		result.Error = iterErr.Error()
		return result, nil
	}
	result.Status = schema.StatusCompleted
	return result, nil
}

func findInterfaceNodes(allNodes []schema.WorkflowNode, loopID string) (continueID, outputID string) {
	for _, n := range allNodes {
		if n.ParentID != loopID {
			continue
		}
		switch n.Data.NodeType {
		case "interface-continue":
			continueID = n.ID
		case "interface-output":
			outputID = n.ID
		}
	}
	return
}

func send(events chan<- schema.Event, e schema.Event) {
	if events != nil {
		events <- e
	}
}
