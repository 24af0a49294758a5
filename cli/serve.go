package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lyzr/workflow-engine/cli/server"
	"github.com/lyzr/workflow-engine/common/ratelimit"
	"github.com/lyzr/workflow-engine/internal/history"
	"github.com/lyzr/workflow-engine/internal/runtime"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func serveCmd(env *Env) *cobra.Command {
	var (
		port int
		yolo bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST/SSE server and trigger scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == 0 {
				port = env.Config.Service.Port
			}

			reg, err := OpenRegistry(env)
			if err != nil {
				return err
			}

			hist, err := OpenHistory(env)
			if err != nil {
				return failErr(err)
			}

			rt := runtime.New(runtime.Options{
				Log:                env.Log,
				DefaultAgentRunner: env.Config.Workflow.DefaultAgentRunner,
				AgentTimeout:       env.Config.Workflow.AgentTimeout,
				Yolo:               yolo,
				History:            hist,
			})

			rl, err := OpenRateLimiter(env)
			if err != nil {
				return failErr(err)
			}

			srv := server.New(server.Config{
				Runtime:     rt,
				Registry:    reg,
				History:     hist,
				RateLimiter: rl,
				Log:         env.Log,
			})

			sched := BuildTriggerScheduler(env, reg, rt)

			ctx, cancel := context.WithCancel(context.Background())
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			go sched.Start(ctx)
			stopWatch := WatchRegistry(env, reg, sched)
			defer stopWatch()

			serverErrCh := make(chan error, 1)
			go func() {
				addr := fmt.Sprintf(":%d", port)
				env.Log.Info("serving", "addr", addr)
				serverErrCh <- srv.Start(addr)
			}()

			select {
			case <-sigCh:
				env.Log.Info("shutdown signal received")
			case err := <-serverErrCh:
				if err != nil {
					cancel()
					sched.Stop()
					return failErr(err)
				}
			}

			cancel()
			sched.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			if err := srv.Echo.Shutdown(shutdownCtx); err != nil {
				return failErr(err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default: $PORT / 8080)")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "pass an unattended-approval flag through to the agent runner for all runs")
	return cmd
}

func OpenHistory(env *Env) (history.Store, error) {
	if env.Config.UsesDatabase() {
		return nil, fmt.Errorf("Postgres-backed history requires running through cmd/workflowd, which wires a *db.DB; `workflow serve` always uses the filesystem store")
	}
	return history.NewFSStore(env.Config.Workflow.HomeDir, env.Config.Workflow.HistoryCap)
}

func OpenRateLimiter(env *Env) (*ratelimit.RateLimiter, error) {
	if !env.Config.Workflow.RateLimitEnabled || env.Config.Workflow.RedisAddr == "" {
		return nil, nil
	}
	raw := goredis.NewClient(&goredis.Options{Addr: env.Config.Workflow.RedisAddr})
	return ratelimit.NewRateLimiter(raw, env.Log), nil
}
