// Command workflow is the CLI entrypoint: run/validate a workflow file, or
// manage the registered-workspaces list. Bootstraps the same common
// components cmd/workflowd uses, minus telemetry, since a one-shot CLI
// invocation has nothing worth scraping pprof/metrics from.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lyzr/workflow-engine/cli"
	"github.com/lyzr/workflow-engine/common/bootstrap"
)

func main() {
	ctx := context.Background()

	components, err := bootstrap.Setup(ctx, "workflow", bootstrap.WithoutTelemetry())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	env := &cli.Env{Config: components.Config, Log: components.Logger}
	root := cli.RootCmd(env)

	err = root.Execute()
	os.Exit(cli.ExitCode(err))
}
