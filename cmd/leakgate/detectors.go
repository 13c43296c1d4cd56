package leakgate

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/leakgate/leakgate/internal/classify"
	"github.com/leakgate/leakgate/internal/config"
	"github.com/leakgate/leakgate/internal/registry"
	"github.com/leakgate/leakgate/internal/report"
	"github.com/leakgate/leakgate/internal/risk"
	"github.com/leakgate/leakgate/internal/types"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newDetectorsCmd(g *globalFlags) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "detectors",
		Short: "List registered detectors and the kinds they emit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := localRegistry(path)
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Name", "Kinds")
			for _, d := range reg.All() {
				if err := table.Append([]string{d.Name(), strings.Join(d.Kinds(), ",")}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	cmd.PersistentFlags().StringVarP(&path, "path", "p", ".", "repository whose config supplies custom rules")

	test := &cobra.Command{
		Use:   "test <name>",
		Short: "Run one detector against text read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := localRegistry(path)
			if err != nil {
				return err
			}
			d, ok := reg.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown detector %q (available: %s)", args[0], strings.Join(reg.Names(), ", "))
			}
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			var fs []types.Finding
			for f := range d.Detect("stdin", string(data)) {
				f.RiskScore = risk.Score(risk.InputFor(f, risk.Exposure{}, 0))
				fs = append(fs, f)
			}
			classify.Apply(fs, time.Now())
			w := cmd.OutOrStdout()
			return report.PrintTable(w, fs, nil, report.PrintOptions{NoColor: g.noColor || !report.ColorEnabled(w)})
		},
	}
	cmd.AddCommand(test)
	return cmd
}

// localRegistry builds the built-ins plus any custom rules from the local
// config under path. Gitleaks is left out; its rule set is listed by gitleaks.
func localRegistry(path string) (*registry.Registry, error) {
	fc, err := config.LoadLocal(path)
	if err != nil && !errors.Is(err, config.ErrNoConfig) {
		return nil, err
	}
	return registry.Build(registry.Options{Rules: fc.Rules})
}
