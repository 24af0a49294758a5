package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lyzr/workflow-engine/engine/schema"
	"github.com/lyzr/workflow-engine/internal/runtime"
	"github.com/spf13/cobra"
)

func runCmd(env *Env) *cobra.Command {
	var (
		cwd           string
		inputs        []string
		noValidation  bool
		yolo          bool
		eventsOut     bool
	)

	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Run a workflow to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			ws, err := runtime.LoadWorkflow(path)
			if err != nil {
				return usageErr(err)
			}

			if !noValidation {
				issues := schema.Validate(ws)
				if schema.HasErrors(issues) {
					for _, issue := range issues {
						fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s: %s\n", issue.Severity, issue.Code, issue.Message)
					}
					return failErr(fmt.Errorf("workflow failed validation"))
				}
			}

			workflowInputs, err := parseInputs(inputs)
			if err != nil {
				return usageErr(err)
			}

			runCwd := cwd
			if runCwd == "" {
				runCwd, _ = os.Getwd()
			}
			rootDir := filepath.Dir(path)

			rt := runtime.New(runtime.Options{
				Log:                env.Log,
				DefaultAgentRunner: env.Config.Workflow.DefaultAgentRunner,
				AgentTimeout:       env.Config.Workflow.AgentTimeout,
				Yolo:               yolo,
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigCh
				cancel()
			}()

			var events chan schema.Event
			if eventsOut {
				events = make(chan schema.Event, 256)
				go streamEvents(cmd.OutOrStdout(), events)
			}

			result, runErr := rt.Run(ctx, ws, rootDir, runCwd, workflowInputs, events)
			if events != nil {
				close(events)
			}
			if runErr != nil {
				return failErr(runErr)
			}
			if !result.Success {
				return failErr(fmt.Errorf("workflow run failed: %s", result.Error))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cwd, "cwd", "", "working directory for shell/script/agent nodes (default: current directory)")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "workflow input as key=value (repeatable)")
	cmd.Flags().BoolVar(&noValidation, "no-validation", false, "skip structural validation before running")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "pass an unattended-approval flag through to the agent runner")
	cmd.Flags().BoolVar(&eventsOut, "events", false, "stream newline-delimited JSON execution events to stdout")
	return cmd
}

func parseInputs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --input %q: expected key=value", p)
		}
		out[k] = v
	}
	return out, nil
}
