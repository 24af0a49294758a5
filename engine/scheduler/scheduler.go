// Package scheduler runs a workflow graph to completion: a level-set
// topological dispatcher that resolves inputs, applies templates, and
// runs each node's nodeexec.Executor directly in goroutines joined with
// errgroup, batch by batch, rather than dispatching work items to
// out-of-process workers over a queue.
package scheduler

import (
	"context"
	"fmt"

	"github.com/lyzr/workflow-engine/engine/inputresolver"
	"github.com/lyzr/workflow-engine/engine/loopexec"
	"github.com/lyzr/workflow-engine/engine/nodeexec"
	"github.com/lyzr/workflow-engine/engine/schema"
	"github.com/lyzr/workflow-engine/engine/template"
	"golang.org/x/sync/errgroup"
)

// Logger is the narrow logging surface the scheduler depends on.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Scheduler dispatches a node graph in dependency level-sets. One
// Scheduler value is reused across an entire run, including every loop
// iteration's inner sub-graph, so that loopexec and nodeexec's component
// executor can recurse back into it without either package importing
// this one.
type Scheduler struct {
	Registry *nodeexec.Registry
	Log      Logger
}

// New builds a Scheduler bound to registry.
func New(registry *nodeexec.Registry, log Logger) *Scheduler {
	return &Scheduler{Registry: registry, Log: log}
}

// RunOptions configures one Run call.
type RunOptions struct {
	// ParentID restricts dispatch to nodes whose ParentID equals this
	// value: "" for a top-level run, a loop/component node's id for its
	// inner sub-graph.
	ParentID string
	// StartNodeIDs, if non-empty, overrides the default start set (nodes
	// at this level with no forward incoming edge from another node at
	// this level).
	StartNodeIDs []string
	Cwd          string
	// Events receives every emitted event if non-nil; sends block, so
	// callers must drain it (buffered at cap 256 is the documented
	// default backpressure point).
	Events chan<- schema.Event
}

// Run dispatches the nodes at opts.ParentID's level to completion,
// honoring each node's ContinueOnFailure policy and storing every
// completed node's output on ectx once its batch has joined. allNodes/allEdges carry
// the full schema so that loop and component nodes can find their inner
// sub-graphs regardless of which level is currently dispatching.
func (s *Scheduler) Run(ctx context.Context, allNodes []schema.WorkflowNode, allEdges []schema.WorkflowEdge, ectx *schema.ExecutionContext, opts RunOptions) (*schema.RunResult, error) {
	allByID := make(map[string]*schema.WorkflowNode, len(allNodes))
	for i := range allNodes {
		allByID[allNodes[i].ID] = &allNodes[i]
	}

	levelByID := make(map[string]*schema.WorkflowNode)
	for i := range allNodes {
		if allNodes[i].ParentID == opts.ParentID {
			levelByID[allNodes[i].ID] = &allNodes[i]
			if label := allNodes[i].Data.Label; label != "" {
				ectx.Labels[template.NormalizeLabel(label)] = allNodes[i].ID
			}
		}
	}

	deps := forwardDeps(levelByID, allEdges)
	frontier := startSet(levelByID, deps, opts.StartNodeIDs)
	visited := make(map[string]bool, len(levelByID))

	result := &schema.RunResult{Success: true}
	stop := false

	for len(frontier) > 0 && !stop {
		select {
		case <-ctx.Done():
			result.Success = false
			result.Error = ctx.Err().Error()
			return result, ctx.Err()
		default:
		}

		batch := frontier
		for _, id := range batch {
			visited[id] = true
		}

		results := s.runBatch(ctx, batch, allByID, allNodes, allEdges, ectx, opts)

		for _, r := range results {
			result.Results = append(result.Results, r)
			if r.Status == schema.StatusCompleted {
				continue
			}
			result.Success = false
			node := allByID[r.NodeID]
			if node == nil || !node.Data.ContinueOnFailure {
				stop = true
			}
		}

		for _, id := range batch {
			s.emitOutgoingEdges(id, allEdges, ectx, opts.Events)
		}

		if stop {
			break
		}
		frontier = nextFrontier(levelByID, deps, visited, ectx)
	}

	return result, nil
}

// RunSubgraph implements loopexec.SubScheduler, letting engine/loopexec
// recurse into the Scheduler for a loop's inner nodes without importing
// this package.
func (s *Scheduler) RunSubgraph(ctx context.Context, allNodes []schema.WorkflowNode, allEdges []schema.WorkflowEdge, ectx *schema.ExecutionContext, parentID string, cwd string, events chan<- schema.Event) (*schema.RunResult, error) {
	return s.Run(ctx, allNodes, allEdges, ectx, RunOptions{ParentID: parentID, Cwd: cwd, Events: events})
}

func (s *Scheduler) runBatch(ctx context.Context, batch []string, allByID map[string]*schema.WorkflowNode, allNodes []schema.WorkflowNode, allEdges []schema.WorkflowEdge, ectx *schema.ExecutionContext, opts RunOptions) []schema.NodeResult {
	results := make([]schema.NodeResult, len(batch))

	var g errgroup.Group
	for i, id := range batch {
		i, id := i, id
		g.Go(func() error {
			results[i] = s.runNode(ctx, allByID[id], allByID, allNodes, allEdges, ectx, opts)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Status == schema.StatusCompleted {
			ectx.StoreOutput(r.NodeID, r.Output)
		}
	}
	return results
}

func (s *Scheduler) runNode(ctx context.Context, node *schema.WorkflowNode, allByID map[string]*schema.WorkflowNode, allNodes []schema.WorkflowNode, allEdges []schema.WorkflowEdge, ectx *schema.ExecutionContext, opts RunOptions) schema.NodeResult {
	send(opts.Events, schema.NewNodeStart(node.ID))

	bindings, err := inputresolver.Resolve(node, allEdges, allByID, ectx)
	if err != nil {
		result := schema.NodeResult{NodeID: node.ID, Status: schema.StatusFailed, Error: err.Error()}
		send(opts.Events, schema.NewNodeComplete(node.ID, &result))
		return result
	}

	resolvedData := template.ApplyToNodeData(node.Data, ectx, ectx.Labels, bindings)
	resolvedNode := *node
	resolvedNode.Data = resolvedData

	var nodeResult *schema.NodeResult
	if node.Data.NodeType == "loop" {
		nodeResult, err = loopexec.Run(ctx, &resolvedNode, allNodes, allEdges, ectx, bindings, s, opts.Cwd, opts.Events)
	} else {
		exec, ok := s.Registry.Lookup(node.Data.NodeType)
		if !ok {
			err = fmt.Errorf("no executor registered for node type %q", node.Data.NodeType)
		} else {
			emit := func(chunk string) { send(opts.Events, schema.NewNodeOutput(node.ID, chunk)) }
			nodeResult, err = exec.Execute(ctx, &resolvedNode, opts.Cwd, bindings, ectx, emit)
		}
	}

	if err != nil {
		result := schema.NodeResult{NodeID: node.ID, Status: schema.StatusFailed, Error: err.Error()}
		send(opts.Events, schema.NewNodeComplete(node.ID, &result))
		return result
	}

	nodeResult.NodeID = node.ID
	if nodeResult.Status == schema.StatusCompleted {
		nodeResult.Output = nodeexec.BuildOutputValues(&resolvedNode, nodeResult)
	}
	send(opts.Events, schema.NewNodeComplete(node.ID, nodeResult))
	return *nodeResult
}

func (s *Scheduler) emitOutgoingEdges(nodeID string, edges []schema.WorkflowEdge, ectx *schema.ExecutionContext, events chan<- schema.Event) {
	if !ectx.HasOutput(nodeID) {
		return
	}
	for _, e := range edges {
		if e.Source == nodeID {
			send(events, schema.NewEdgeExecuted(e.ID, nodeID))
		}
	}
}

// forwardDeps maps each node in levelByID to the ids of its non-feedback
// predecessors also present in levelByID. Dock feedback handles
// (targetHandle "dock:<slot>:input" or "dock:<slot>:current") are excluded
// from the dependency graph.
func forwardDeps(levelByID map[string]*schema.WorkflowNode, edges []schema.WorkflowEdge) map[string][]string {
	deps := make(map[string][]string)
	for _, e := range edges {
		if _, ok := levelByID[e.Target]; !ok {
			continue
		}
		if _, ok := levelByID[e.Source]; !ok {
			continue
		}
		if isFeedbackHandle(e.TargetHandle) {
			continue
		}
		deps[e.Target] = append(deps[e.Target], e.Source)
	}
	return deps
}

func isFeedbackHandle(handle string) bool {
	if len(handle) < 5 || handle[:5] != "dock:" {
		return false
	}
	return hasSuffix(handle, ":input") || hasSuffix(handle, ":current")
}

func hasSuffix(s, suf string) bool {
	return len(s) >= len(suf) && s[len(s)-len(suf):] == suf
}

func startSet(levelByID map[string]*schema.WorkflowNode, deps map[string][]string, explicit []string) []string {
	if len(explicit) > 0 {
		out := make([]string, 0, len(explicit))
		for _, id := range explicit {
			if _, ok := levelByID[id]; ok {
				out = append(out, id)
			}
		}
		return out
	}
	var out []string
	for id := range levelByID {
		if len(deps[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

func nextFrontier(levelByID map[string]*schema.WorkflowNode, deps map[string][]string, visited map[string]bool, ectx *schema.ExecutionContext) []string {
	var out []string
	for id := range levelByID {
		if visited[id] {
			continue
		}
		ready := true
		for _, dep := range deps[id] {
			if !ectx.HasOutput(dep) {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, id)
		}
	}
	return out
}

func send(events chan<- schema.Event, e schema.Event) {
	if events != nil {
		events <- e
	}
}
