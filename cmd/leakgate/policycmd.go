package leakgate

import (
	"fmt"
	"time"

	"github.com/leakgate/leakgate/internal/policy"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect policy files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a policy file and summarize its waivers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := policy.Load(args[0])
			if err != nil {
				return err
			}
			now := time.Now()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "policy OK: %s\n", args[0])
			fmt.Fprintf(w, "  network validation: %t (%.2f qps)\n", p.Validators.AllowNetwork, p.Validators.GlobalQPS)
			fmt.Fprintf(w, "  max risk score: %d\n", p.Budgets.MaxRiskScore)
			for _, wv := range p.Waivers {
				state := "active"
				if !wv.Active(now) {
					state = "expired"
				}
				fmt.Fprintf(w, "  waiver %-7s rule=%s path=%s expiry=%s\n", state, wv.Rule, wv.Path, wv.Expiry)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "default",
		Short: "Print the default policy as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := yaml.Marshal(policy.Default())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	})
	return cmd
}
