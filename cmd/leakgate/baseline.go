package leakgate

import (
	"fmt"

	"github.com/leakgate/leakgate/internal/report"
	"github.com/spf13/cobra"
)

func newBaselineCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage the baseline of accepted findings",
	}
	sf := &scanFlags{}
	update := &cobra.Command{
		Use:   "update",
		Short: "Record every current finding in the baseline file",
		Long:  "Update scans without the baseline filter and overwrites the baseline with the current findings. Later scans hide them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, rep, err := runPipeline(cmd, g, sf, false)
			if err != nil {
				return err
			}
			path := sf.baseline
			if path == "" {
				path = DefaultBaseline
			}
			path = sess.abs(path)
			if err := report.SaveBaseline(path, rep.Findings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "baseline updated: %s (%d findings)\n", path, len(rep.Findings))
			return nil
		},
	}
	sf.bind(update)
	cmd.AddCommand(update)
	return cmd
}
