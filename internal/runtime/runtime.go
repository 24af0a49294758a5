// Package runtime wires the engine's leaf packages (schema, template,
// inputresolver, nodeexec, scheduler, loopexec, agentrunner) into the
// single entry point that drives a run end to end: Trigger Scheduler or
// external caller -> Scheduler -> (per node) Input Resolver -> Template
// Resolver -> Node Executor -> context update -> event emission.
// cmd/workflow, cmd/workflowd, and engine/trigger's RunFunc all call
// through here so the wiring (registry construction, component
// sub-workflow loading, history persistence) lives in exactly one place.
package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/workflow-engine/engine/agentrunner"
	"github.com/lyzr/workflow-engine/engine/nodeexec"
	"github.com/lyzr/workflow-engine/engine/scheduler"
	"github.com/lyzr/workflow-engine/engine/schema"
	"github.com/lyzr/workflow-engine/internal/history"
)

// Logger is the narrow logging surface Runtime depends on.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Options configures a Runtime.
type Options struct {
	Log                Logger
	DefaultAgentRunner string
	AgentTimeout       time.Duration
	Yolo               bool
	History            history.Store // optional; Save is skipped if nil
}

// Runtime executes workflow files against a root directory, resolving
// `component` nodes' workflowPath relative to that root, and optionally
// persisting each top-level run to a history.Store.
type Runtime struct {
	log     Logger
	agent   *agentrunner.Runner
	history history.Store
}

// New builds a Runtime from opts.
func New(opts Options) *Runtime {
	extraArgs := []string(nil)
	if opts.Yolo {
		extraArgs = []string{"--yolo"}
	}
	agent := agentrunner.NewRunner(opts.DefaultAgentRunner, loggerAdapter{opts.Log})
	if opts.AgentTimeout > 0 {
		agent.Timeout = opts.AgentTimeout
	}
	agent.ExtraArgs = extraArgs

	return &Runtime{log: opts.Log, agent: agent, history: opts.History}
}

// LoadWorkflow reads and parses a workflow file, auto-detecting YAML vs
// JSON from its extension/content per schema.DetectFormat.
func LoadWorkflow(path string) (*schema.WorkflowSchema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow %s: %w", path, err)
	}
	ws, err := schema.Parse(raw, schema.DetectFormat(path, raw))
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// Run executes ws to completion rooted at rootDir (used to resolve
// `component` node workflowPaths) with cwd as the process working
// directory for shell/script/agent nodes. workflowInputs feed
// `interface-input` nodes. events, if non-nil, receives every
// emitted schema.Event (buffered sends; the caller must drain it).
func (rt *Runtime) Run(ctx context.Context, ws *schema.WorkflowSchema, rootDir, cwd string, workflowInputs map[string]any, events chan<- schema.Event) (*schema.RunResult, error) {
	runID := uuid.NewString()
	ectx := schema.NewExecutionContext(runID, workflowInputs)

	registry := nodeexec.NewRegistry(loggerAdapter{rt.log}, rt.agent, rt.componentRunner(rootDir, cwd, events))
	sched := scheduler.New(registry, loggerAdapter{rt.log})

	result, err := sched.Run(ctx, ws.Nodes, ws.Edges, ectx, scheduler.RunOptions{Cwd: cwd, Events: events})

	if events != nil {
		errMsg := ""
		if result != nil {
			errMsg = result.Error
		}
		success := result != nil && result.Success
		events <- schema.NewWorkflowComplete(success, errMsg)
	}
	return result, err
}

// RunAndRecord loads workflowPath (relative to workspace's root unless
// absolute), runs it, and — if a history.Store was configured — persists
// the resulting RunRecord tagged with source (e.g. "manual", "cron",
// "idle"). Used by the CLI's `run` command, the REST server's POST
// /runs handler, and engine/trigger's RunFunc.
func (rt *Runtime) RunAndRecord(ctx context.Context, workspaceName, rootDir, workflowPath string, workflowInputs map[string]any, source string, events chan<- schema.Event) (*history.RunRecord, *schema.RunResult, error) {
	full := workflowPath
	if !filepath.IsAbs(full) {
		full = filepath.Join(rootDir, workflowPath)
	}

	ws, err := LoadWorkflow(full)
	if err != nil {
		return nil, nil, err
	}

	started := time.Now()
	runID := uuid.NewString()
	ectx := schema.NewExecutionContext(runID, workflowInputs)

	registry := nodeexec.NewRegistry(loggerAdapter{rt.log}, rt.agent, rt.componentRunner(rootDir, rootDir, events))
	sched := scheduler.New(registry, loggerAdapter{rt.log})

	result, runErr := sched.Run(ctx, ws.Nodes, ws.Edges, ectx, scheduler.RunOptions{Cwd: rootDir, Events: events})
	completed := time.Now()

	cancelled := runErr == ctx.Err() && ctx.Err() != nil
	success := result != nil && result.Success
	errMsg := ""
	if result != nil {
		errMsg = result.Error
	}
	if runErr != nil && errMsg == "" {
		errMsg = runErr.Error()
	}

	record := &history.RunRecord{
		ID:           runID,
		Workspace:    workspaceName,
		WorkflowPath: workflowPath,
		StartedAt:    started,
		CompletedAt:  completed,
		Status:       history.StatusFor(success, cancelled),
		Duration:     completed.Sub(started),
		NodeCount:    len(ws.Nodes),
		Error:        errMsg,
		Source:       source,
	}
	if result != nil {
		record.Results = result.Results
	}

	if events != nil {
		events <- schema.NewWorkflowComplete(success, errMsg)
	}

	if rt.history != nil {
		if saveErr := rt.history.Save(ctx, record); saveErr != nil && rt.log != nil {
			rt.log.Error("failed to save run history", "run_id", runID, "error", saveErr)
		}
	}

	return record, result, runErr
}

// componentRunner builds the ComponentRunner a `component` node calls to
// execute a referenced sub-workflow, recursing back into Run via a fresh
// Scheduler/registry pair (component sub-runs get their own
// ExecutionContext, since the Scheduler exclusively owns the context for
// a single run).
func (rt *Runtime) componentRunner(rootDir, cwd string, events chan<- schema.Event) nodeexec.ComponentRunner {
	return func(ctx context.Context, workflowPath string, workflowInputs map[string]any) (map[string]any, error) {
		full := workflowPath
		if !filepath.IsAbs(full) {
			full = filepath.Join(rootDir, workflowPath)
		}
		ws, err := LoadWorkflow(full)
		if err != nil {
			return nil, err
		}

		outputNodeID := ""
		for _, n := range ws.Nodes {
			if n.Data.NodeType == "interface-output" && n.ParentID == "" {
				outputNodeID = n.ID
				break
			}
		}

		runID := uuid.NewString()
		ectx := schema.NewExecutionContext(runID, workflowInputs)
		registry := nodeexec.NewRegistry(loggerAdapter{rt.log}, rt.agent, rt.componentRunner(rootDir, cwd, events))
		sched := scheduler.New(registry, loggerAdapter{rt.log})

		result, err := sched.Run(ctx, ws.Nodes, ws.Edges, ectx, scheduler.RunOptions{Cwd: cwd, Events: events})
		if err != nil {
			return nil, err
		}
		if !result.Success {
			return nil, fmt.Errorf("component workflow %s failed: %s", workflowPath, result.Error)
		}
		if outputNodeID == "" {
			return map[string]any{}, nil
		}
		out, _ := ectx.Output(outputNodeID)
		return out, nil
	}
}

type loggerAdapter struct{ log Logger }

func (l loggerAdapter) Info(msg string, args ...any) {
	if l.log != nil {
		l.log.Info(msg, args...)
	}
}
func (l loggerAdapter) Error(msg string, args ...any) {
	if l.log != nil {
		l.log.Error(msg, args...)
	}
}
func (l loggerAdapter) Debug(msg string, args ...any) {
	if l.log != nil {
		l.log.Debug(msg, args...)
	}
}
