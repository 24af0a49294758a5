// Package nodeexec implements the per-node-kind execution strategies:
// shell, script, trigger, constant, workdir, agent, function, component,
// and the loop interface ports. Each turns resolved inputs and a working
// directory into a schema.NodeResult.
//
// "loop" is intentionally absent from the Registry: the Scheduler invokes
// engine/loopexec directly when it encounters a loop-kind node, as a
// direct in-process call rather than a re-entrant completion signal.
package nodeexec

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// Logger is the narrow logging surface nodeexec depends on, a local
// interface so this package never imports common/logger directly.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Emit streams a raw output chunk (stdout/stderr) to the run's event
// stream as it is produced, ahead of the terminal NodeResult. May be nil.
type Emit func(chunk string)

// Executor runs one node kind to completion.
type Executor interface {
	Execute(ctx context.Context, node *schema.WorkflowNode, cwd string, bindings map[string]any, ectx *schema.ExecutionContext, emit Emit) (*schema.NodeResult, error)
}

// ComponentRunner runs a referenced sub-workflow to completion and returns
// its interface-output bindings. Supplied by engine/scheduler at registry
// construction time, keeping nodeexec free of an import cycle back to the
// scheduler package.
type ComponentRunner func(ctx context.Context, workflowPath string, workflowInputs map[string]any) (map[string]any, error)

// Registry maps a node's nodeType to the Executor that runs it.
type Registry struct {
	executors map[string]Executor
}

// NewRegistry builds the standard registry of node executors. runner may be
// nil if no component node will ever be scheduled.
func NewRegistry(log Logger, agentRunner AgentRunner, runner ComponentRunner) *Registry {
	r := &Registry{executors: make(map[string]Executor)}
	r.executors["shell"] = &ShellExecutor{Log: log}
	r.executors["script"] = &ScriptExecutor{Log: log}
	r.executors["trigger"] = &TriggerExecutor{}
	r.executors["constant"] = &ConstantExecutor{}
	r.executors["workdir"] = &WorkdirExecutor{}
	r.executors["agent"] = &AgentExecutor{Runner: agentRunner}
	r.executors["function"] = &FunctionExecutor{}
	r.executors["component"] = &ComponentExecutor{Run: runner}
	r.executors["interface-input"] = &InterfaceInputExecutor{}
	r.executors["interface-output"] = &InterfaceOutputExecutor{}
	r.executors["interface-continue"] = &InterfaceContinueExecutor{}
	return r
}

// Lookup returns the executor registered for nodeType.
func (r *Registry) Lookup(nodeType string) (Executor, bool) {
	e, ok := r.executors[nodeType]
	return e, ok
}

// Register overrides or adds an executor for nodeType, used by tests and by
// callers wiring a custom AgentRunner after construction.
func (r *Registry) Register(nodeType string, e Executor) {
	r.executors[nodeType] = e
}

func completed(start time.Time, output map[string]any) *schema.NodeResult {
	return &schema.NodeResult{
		Status:     schema.StatusCompleted,
		Output:     output,
		StartTime:  start,
		EndTime:    time.Now(),
	}
}

func failed(start time.Time, err error) *schema.NodeResult {
	return &schema.NodeResult{
		Status:    schema.StatusFailed,
		Error:     err.Error(),
		StartTime: start,
		EndTime:   time.Now(),
	}
}

func wrapf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
