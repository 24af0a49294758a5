package nodeexec

import (
	"bufio"
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// ShellExecutor runs a node's `script` field (falling back to `commands[]`
// joined with "&&") under `sh -c` in cwd, inheriting the process
// environment, shaping a result map from the subprocess's output and
// capturing start/end timing.
type ShellExecutor struct {
	Log Logger
}

func (e *ShellExecutor) Execute(ctx context.Context, node *schema.WorkflowNode, cwd string, bindings map[string]any, ectx *schema.ExecutionContext, emit Emit) (*schema.NodeResult, error) {
	start := time.Now()

	script := node.Data.Script
	if script == "" && len(node.Data.Commands) > 0 {
		script = strings.Join(node.Data.Commands, " && ")
	}
	if script == "" {
		return failed(start, wrapf("shell node %s: no script or commands configured", node.ID)), nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", script)
	cmd.Dir = cwd

	stdout, stderr, exitCode, runErr := runCaptured(cmd, emit)

	result := &schema.NodeResult{
		StartTime: start,
		EndTime:   time.Now(),
		Stdout:    stdout,
		Stderr:    stderr,
		ExitCode:  &exitCode,
		RawOutput: stdout,
	}
	if exitCode != 0 || runErr != nil {
		result.Status = schema.StatusFailed
		if runErr != nil {
			result.Error = runErr.Error()
		} else {
			result.Error = wrapf("shell exited with status %d", exitCode).Error()
		}
		return result, nil
	}
	result.Status = schema.StatusCompleted
	return result, nil
}

// runCaptured runs cmd to completion, streaming combined stdout/stderr lines
// to emit as they arrive while retaining trimmed copies for the terminal
// NodeResult.
func runCaptured(cmd *exec.Cmd, emit Emit) (stdout, stderr string, exitCode int, err error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", "", -1, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", "", -1, err
	}

	var outBuf, errBuf strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)

	stream := func(r interface{ Read([]byte) (int, error) }, buf *strings.Builder) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			buf.WriteString(line)
			buf.WriteByte('\n')
			if emit != nil {
				emit(line)
			}
		}
	}

	if err := cmd.Start(); err != nil {
		return "", "", -1, err
	}

	go stream(stdoutPipe, &outBuf)
	go stream(stderrPipe, &errBuf)
	wg.Wait()

	waitErr := cmd.Wait()
	code := 0
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
		waitErr = nil
	} else if waitErr != nil {
		code = -1
	}

	return strings.TrimRight(outBuf.String(), "\n"), strings.TrimRight(errBuf.String(), "\n"), code, waitErr
}
