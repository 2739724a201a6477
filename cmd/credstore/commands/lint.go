package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpgjournals/credstore"
)

func newLintCommand(a *app) *cobra.Command {
	var failOn string

	cmd := &cobra.Command{
		Use:   "lint",
		Args:  cobra.NoArgs,
		Short: "Validate the store configuration and report risky settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.settings.Store
			if err := cfg.Validate(); err != nil {
				return err
			}

			warnings := cfg.Lint()
			out := cmd.OutOrStdout()
			if len(warnings) == 0 {
				fmt.Fprintln(out, "ok")
				return nil
			}
			for _, w := range warnings {
				fmt.Fprintf(out, "%s\t%s\t%s\n", w.Severity, w.Code, w.Message)
			}

			switch failOn {
			case "":
				return nil
			case "high":
				return warnings.AsError(credstore.LintHigh)
			case "warn":
				return warnings.AsError(credstore.LintWarn)
			case "info":
				return warnings.AsError(credstore.LintInfo)
			default:
				return fmt.Errorf("unknown --fail-on severity %q", failOn)
			}
		},
	}

	cmd.Flags().StringVar(&failOn, "fail-on", "", "exit non-zero at or above this severity (info|warn|high)")
	return cmd
}
