package cli

import (
	"fmt"

	"github.com/lyzr/workflow-engine/engine/schema"
	"github.com/lyzr/workflow-engine/internal/runtime"
	"github.com/spf13/cobra"
)

func validateCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <workflow>...",
		Short: "Validate one or more workflow files; exits 0 iff zero issues across all of them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total := 0
			for _, path := range args {
				ws, err := runtime.LoadWorkflow(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					total++
					continue
				}
				issues := schema.Validate(ws)
				for _, issue := range issues {
					fmt.Fprintf(cmd.OutOrStdout(), "%s [%s] %s: %s\n", path, issue.Severity, issue.Code, issue.Message)
				}
				total += len(issues)
			}
			if total > 0 {
				return failErr(fmt.Errorf("%d issue(s) found", total))
			}
			return nil
		},
	}
	return cmd
}
