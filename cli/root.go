// Package cli builds the cobra-based command tree: `run`, `validate`,
// `serve`, and the workspace operations `init`, `add`, `remove`, `list`,
// using a plain `&cobra.Command{}` root with `AddCommand` for each
// subcommand.
package cli

import (
	"github.com/lyzr/workflow-engine/common/config"
	"github.com/lyzr/workflow-engine/common/logger"
	"github.com/spf13/cobra"
)

// Env bundles the shared dependencies every subcommand needs, built once
// in cmd/workflow/main.go and threaded into each command constructor.
type Env struct {
	Config *config.Config
	Log    *logger.Logger
}

// RootCmd builds the `workflow` command tree.
func RootCmd(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "workflow",
		Short:         "Run and manage AI-agent workflow graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		runCmd(env),
		validateCmd(env),
		serveCmd(env),
		initCmd(env),
		addCmd(env),
		removeCmd(env),
		listCmd(env),
	)
	return root
}
