// Package agentrunner provides the default AgentRunner implementation: it
// shells out to a configured agent CLI binary. This keeps agent
// implementation details out of engine/nodeexec's core while giving the
// module a working default so `workflow run` works out of the box against
// a real CLI-based coding agent.
package agentrunner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/lyzr/workflow-engine/engine/nodeexec"
)

// Logger is the narrow logging surface this package depends on.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Runner shells out to the binary named by a node's `runner` field, passing
// `model` as `--model` and the prompt on stdin. It implements
// nodeexec.AgentRunner.
type Runner struct {
	// DefaultBinary is used when a node's `runner` field is empty.
	DefaultBinary string
	Timeout       time.Duration
	Log           Logger
	// ExtraArgs is appended to every invocation, ahead of --model/--file.
	// The CLI's --yolo flag sets this to []string{"--yolo"} to pass
	// through an unattended-approval flag to agent CLIs that support one;
	// the core makes no further assumption about its meaning.
	ExtraArgs []string

	guard *pathGuard
}

// NewRunner creates a Runner with a default 30s external-call timeout,
// applied here to the agent subprocess instead of an HTTP round trip.
func NewRunner(defaultBinary string, log Logger) *Runner {
	return &Runner{DefaultBinary: defaultBinary, Timeout: 30 * time.Second, Log: log, guard: newPathGuard()}
}

func (r *Runner) Run(ctx context.Context, cfg nodeexec.AgentRunConfig) (nodeexec.AgentRunResult, error) {
	binary := cfg.Runner
	if binary == "" {
		binary = r.DefaultBinary
	}
	if binary == "" {
		return nodeexec.AgentRunResult{}, fmt.Errorf("no agent runner binary configured")
	}

	for _, f := range cfg.PromptFiles {
		if err := r.guard.Validate(f); err != nil {
			return nodeexec.AgentRunResult{}, err
		}
	}

	args := append([]string{}, r.ExtraArgs...)
	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}
	for _, f := range cfg.PromptFiles {
		args = append(args, "--file", f)
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, binary, args...)
	cmd.Dir = cfg.Cwd
	cmd.Stdin = strings.NewReader(cfg.Prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if r.Log != nil {
		r.Log.Info("agent run completed", "runner", binary, "model", cfg.Model, "duration_ms", duration.Milliseconds())
	}

	if err != nil {
		if r.Log != nil {
			r.Log.Error("agent run failed", "runner", binary, "error", err, "stderr", stderr.String())
		}
		return nodeexec.AgentRunResult{Success: false, Output: stdout.String(), Error: stderr.String()}, nil
	}

	output := stdout.String()
	result := nodeexec.AgentRunResult{Success: true, Output: output}

	if cfg.OutputSchema != nil {
		var structured any
		if jsonErr := json.Unmarshal([]byte(output), &structured); jsonErr == nil {
			result.StructuredOutput = structured
		}
	}

	return result, nil
}
