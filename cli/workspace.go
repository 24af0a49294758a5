package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lyzr/workflow-engine/internal/workspace"
	"github.com/spf13/cobra"
)

func OpenRegistry(env *Env) (*workspace.Registry, error) {
	reg, err := workspace.New(env.Config.Workflow.HomeDir)
	if err != nil {
		return nil, failErr(err)
	}
	return reg, nil
}

func initCmd(env *Env) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a new workspace directory and register it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			root := dir
			if root == "" {
				root = name
			}
			if err := os.MkdirAll(root, 0o755); err != nil {
				return failErr(fmt.Errorf("create workspace directory: %w", err))
			}

			reg, err := OpenRegistry(env)
			if err != nil {
				return err
			}
			if err := reg.Add(name, root); err != nil {
				return failErr(err)
			}
			abs, _ := filepath.Abs(root)
			fmt.Fprintf(cmd.OutOrStdout(), "initialized workspace %q at %s\n", name, abs)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to create (default: the workspace name)")
	return cmd
}

func addCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <path>",
		Short: "Register an existing directory of workflow files as a workspace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := OpenRegistry(env)
			if err != nil {
				return err
			}
			if err := reg.Add(args[0], args[1]); err != nil {
				return failErr(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered workspace %q\n", args[0])
			return nil
		},
	}
	return cmd
}

func removeCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Unregister a workspace (leaves its files on disk)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := OpenRegistry(env)
			if err != nil {
				return err
			}
			if err := reg.Remove(args[0]); err != nil {
				return failErr(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed workspace %q\n", args[0])
			return nil
		},
	}
	return cmd
}

func listCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := OpenRegistry(env)
			if err != nil {
				return err
			}
			all, err := reg.List()
			if err != nil {
				return failErr(err)
			}
			if len(all) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no registered workspaces")
				return nil
			}
			for _, w := range all {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", w.Name, w.RootDirectory)
			}
			return nil
		},
	}
	return cmd
}
