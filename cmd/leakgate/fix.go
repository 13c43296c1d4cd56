package leakgate

import (
	"errors"
	"fmt"

	"github.com/leakgate/leakgate/internal/autofix"
	"github.com/spf13/cobra"
)

func newFixCmd(g *globalFlags) *cobra.Command {
	sf := &scanFlags{}
	var confirm, dryRun bool
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Replace leaked literals with secret references",
		Long: `Fix runs a scan, builds the remediation plan and rewrites the literal of
every replacement step. Revocation steps are listed but never executed.

Unless the policy sets autofix.require_confirmation to false, --confirm is
required. --dry-run reports what would change without writing.`,
		Example: `  leakgate fix --dry-run
  leakgate fix --confirm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, rep, err := runPipeline(cmd, g, sf, true)
			if err != nil {
				return err
			}
			results, err := autofix.Apply(cmd.Context(), sess.root, rep.Plan, autofix.ApplyOptions{
				RequireConfirmation: sess.policy.Autofix.RequireConfirmation,
				Confirm:             confirm,
				DryRun:              dryRun,
			})
			if errors.Is(err, autofix.ErrConfirmationRequired) {
				return fmt.Errorf("%w: re-run with --confirm or --dry-run", err)
			}
			w := cmd.OutOrStdout()
			for _, r := range results {
				line := fmt.Sprintf("%-11s %s %s:%d %s", r.Status, r.Item.Action, r.Item.Path, r.Item.Line, r.Item.Match)
				if r.Detail != "" {
					line += " (" + r.Detail + ")"
				}
				fmt.Fprintln(w, line)
			}
			verb := "replaced"
			if dryRun {
				verb = "would replace"
			}
			fmt.Fprintf(w, "%s %d literal(s) across %d plan step(s)\n", verb, autofix.Applied(results), len(results))
			return err
		},
	}
	sf.bind(cmd)
	cmd.Flags().BoolVar(&confirm, "confirm", false, "allow files to be rewritten")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without writing")
	return cmd
}
