package nodeexec

import (
	"context"
	"time"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// AgentRunConfig is the boundary value passed to an AgentRunner. The core
// makes no further assumption about the backend beyond this shape.
type AgentRunConfig struct {
	Runner       string
	Model        string
	Prompt       string
	PromptFiles  []string
	OutputSchema any
	Cwd          string
	Inputs       map[string]any
}

// AgentRunResult is an AgentRunner's response.
type AgentRunResult struct {
	Success           bool
	Output            string
	StructuredOutput  any
	Error             string
}

// AgentRunner is the consumed interface to an AI agent backend. Agent
// implementation details are deliberately kept out of the engine; this is
// the entire surface it depends on.
type AgentRunner interface {
	Run(ctx context.Context, cfg AgentRunConfig) (AgentRunResult, error)
}

// AgentExecutor delegates to the configured AgentRunner, identified by the
// node's `runner` + `model` fields.
type AgentExecutor struct {
	Runner AgentRunner
}

func (e *AgentExecutor) Execute(ctx context.Context, node *schema.WorkflowNode, cwd string, bindings map[string]any, ectx *schema.ExecutionContext, emit Emit) (*schema.NodeResult, error) {
	start := time.Now()

	if e.Runner == nil {
		return failed(start, wrapf("agent node %s: no AgentRunner configured", node.ID)), nil
	}

	cfg := AgentRunConfig{
		Runner:       node.Data.Runner,
		Model:        node.Data.Model,
		Prompt:       node.Data.Prompt,
		PromptFiles:  node.Data.PromptFiles,
		OutputSchema: node.Data.OutputSchema,
		Cwd:          cwd,
		Inputs:       bindings,
	}

	res, err := e.Runner.Run(ctx, cfg)
	if err != nil {
		return failed(start, wrapf("agent node %s: %w", node.ID, err)), nil
	}

	result := &schema.NodeResult{
		StartTime:         start,
		EndTime:           time.Now(),
		RawOutput:         res.Output,
		StructuredOutput:  res.StructuredOutput,
	}
	if !res.Success {
		result.Status = schema.StatusFailed
		if res.Error != "" {
			result.Error = res.Error
		} else {
			result.Error = "agent run reported failure"
		}
		return result, nil
	}
	result.Status = schema.StatusCompleted
	return result, nil
}
