package leakgate

import (
	"github.com/leakgate/leakgate/internal/report"
	"github.com/spf13/cobra"
)

func newPlanCmd(g *globalFlags) *cobra.Command {
	sf := &scanFlags{}
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the remediation plan without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, rep, err := runPipeline(cmd, g, sf, true)
			if err != nil {
				return err
			}
			if asJSON {
				env := rep.Envelope()
				env.Findings, env.Verdict = nil, nil
				return report.WriteJSON(cmd.OutOrStdout(), env)
			}
			report.PrintPlan(cmd.OutOrStdout(), rep.Plan)
			return nil
		},
	}
	sf.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}
