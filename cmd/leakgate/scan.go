package leakgate

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/leakgate/leakgate/internal/audit"
	"github.com/leakgate/leakgate/internal/log"
	"github.com/leakgate/leakgate/internal/report"
	"github.com/leakgate/leakgate/pkg/core"
	"github.com/spf13/cobra"
)

type outputFlags struct {
	table bool
	json  bool
	sarif bool
	plan  bool
	audit bool
}

func newScanCmd(g *globalFlags) *cobra.Command {
	sf := &scanFlags{}
	of := &outputFlags{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan files for secrets and evaluate the policy",
		Long: `Scan walks the path, runs every enabled detector, validates what it finds,
scores and classifies each finding and evaluates the policy.

Exit status is 0 when the policy passes, 1 on violations and 2 on errors.`,
		Example: `  leakgate scan
  leakgate scan -p ./service --policy ci-policy.yml --json
  leakgate scan --allow-network --qps 1 --public --sarif > leakgate.sarif`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if countTrue(of.table, of.json, of.sarif) > 1 {
				return errors.New("--table, --json and --sarif are mutually exclusive")
			}
			sess, err := sf.resolve(cmd, g, true)
			if err != nil {
				return err
			}
			rep, runErr := sess.run(cmd.Context())
			if runErr != nil && !rep.Canceled {
				return runErr
			}
			if err := writeReport(cmd.OutOrStdout(), rep, sess, of); err != nil {
				return err
			}
			if of.audit {
				appendAudit(sess, rep)
			}
			if runErr != nil {
				return fmt.Errorf("scan interrupted: %w", runErr)
			}
			if !rep.Verdict.Pass {
				return errViolations
			}
			return nil
		},
	}
	sf.bind(cmd)
	cmd.Flags().BoolVar(&of.table, "table", false, "emit a table (default)")
	cmd.Flags().BoolVar(&of.json, "json", false, "emit JSON")
	cmd.Flags().BoolVar(&of.sarif, "sarif", false, "emit SARIF 2.1.0")
	cmd.Flags().BoolVar(&of.plan, "plan", false, "include the autofix plan")
	cmd.Flags().BoolVar(&of.audit, "audit", false, "append a summary to the audit log")
	return cmd
}

func writeReport(w io.Writer, rep core.Report, sess *session, of *outputFlags) error {
	switch {
	case of.json:
		env := rep.Envelope()
		if !of.plan {
			env.Plan = nil
		}
		return report.WriteJSON(w, env)
	case of.sarif:
		return report.WriteSARIF(w, rep.Findings, version)
	}
	verdict := rep.Verdict
	err := report.PrintTable(w, rep.Findings, &verdict, report.PrintOptions{
		NoColor:      sess.noColor || !report.ColorEnabled(w),
		Duration:     rep.Duration,
		FilesScanned: rep.FilesScanned,
		SoftErrors:   len(rep.SoftErrors),
	})
	if err != nil {
		return err
	}
	if rep.Baselined > 0 {
		fmt.Fprintf(w, "Baselined findings hidden: %d\n", rep.Baselined)
	}
	if of.plan {
		report.PrintPlan(w, rep.Plan)
	}
	return nil
}

func countTrue(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

func appendAudit(sess *session, rep core.Report) {
	in := audit.Input{
		ScanID:       rep.ScanID,
		Root:         sess.root,
		All:          rep.All,
		New:          rep.Findings,
		FilesScanned: rep.FilesScanned,
		SoftErrors:   len(rep.SoftErrors),
		Duration:     rep.Duration,
		Verdict:      &rep.Verdict,
		Now:          time.Now().UTC(),
	}
	if sess.repo != nil {
		md := sess.repo.Metadata()
		in.Repo, in.Commit, in.Branch = md.Repo, md.Commit, md.Branch
	}
	l := audit.New(sess.root)
	if _, err := l.Append(audit.NewRecord(in)); err != nil {
		log.Warnf("audit log: %v", err)
		return
	}
	log.Debugf("audit record written to %s", l.Path())
}

// runPipeline is the shared body of plan, fix and baseline. An interrupted
// run is an error for them; none of them acts on partial results.
func runPipeline(cmd *cobra.Command, g *globalFlags, sf *scanFlags, useBaseline bool) (*session, core.Report, error) {
	sess, err := sf.resolve(cmd, g, useBaseline)
	if err != nil {
		return nil, core.Report{}, err
	}
	rep, err := sess.run(cmd.Context())
	return sess, rep, err
}
