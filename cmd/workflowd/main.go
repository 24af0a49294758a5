// Command workflowd is the long-lived daemon: the REST/SSE server plus the
// Trigger Scheduler, with telemetry enabled and an optional Postgres-backed
// history store when POSTGRES_HOST is configured. Unlike `workflow serve`
// (the CLI's in-process equivalent, filesystem-history only), this is the
// entrypoint meant to run continuously behind a process supervisor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lyzr/workflow-engine/cli"
	"github.com/lyzr/workflow-engine/cli/server"
	"github.com/lyzr/workflow-engine/common/bootstrap"
	"github.com/lyzr/workflow-engine/internal/history"
	"github.com/lyzr/workflow-engine/internal/runtime"
)

func main() {
	ctx := context.Background()

	components, err := bootstrap.Setup(ctx, "workflowd")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	env := &cli.Env{Config: components.Config, Log: components.Logger}

	reg, err := cli.OpenRegistry(env)
	if err != nil {
		components.Logger.Error("failed to open workspace registry", "error", err)
		os.Exit(1)
	}

	hist, err := openHistory(ctx, env, components)
	if err != nil {
		components.Logger.Error("failed to open run history store", "error", err)
		os.Exit(1)
	}

	rl, err := cli.OpenRateLimiter(env)
	if err != nil {
		components.Logger.Error("failed to initialize rate limiter", "error", err)
		os.Exit(1)
	}

	rt := runtime.New(runtime.Options{
		Log:                components.Logger,
		DefaultAgentRunner: components.Config.Workflow.DefaultAgentRunner,
		AgentTimeout:       components.Config.Workflow.AgentTimeout,
		History:            hist,
	})

	srv := server.New(server.Config{
		Runtime:     rt,
		Registry:    reg,
		History:     hist,
		RateLimiter: rl,
		Log:         components.Logger,
	})

	sched := cli.BuildTriggerScheduler(env, reg, rt)

	runCtx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go sched.Start(runCtx)
	stopWatch := cli.WatchRegistry(env, reg, sched)
	defer stopWatch()

	serverErrCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", components.Config.Service.Port)
		components.Logger.Info("workflowd serving", "addr", addr)
		serverErrCh <- srv.Start(addr)
	}()

	select {
	case <-sigCh:
		components.Logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			components.Logger.Error("server error", "error", err)
		}
	}

	// Stop accepting new trigger fires and HTTP requests before the
	// deferred components.Shutdown closes the database pool out from
	// under any in-flight run.
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Echo.Shutdown(shutdownCtx); err != nil {
		components.Logger.Error("graceful HTTP shutdown failed", "error", err)
	}
}

func openHistory(ctx context.Context, env *cli.Env, components *bootstrap.Components) (history.Store, error) {
	if components.Config.UsesDatabase() {
		return history.NewPGStore(ctx, components.DB, components.Config.Workflow.HistoryCap)
	}
	return history.NewFSStore(components.Config.Workflow.HomeDir, components.Config.Workflow.HistoryCap)
}
