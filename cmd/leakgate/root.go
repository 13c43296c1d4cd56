package leakgate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leakgate/leakgate/internal/log"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// errViolations signals a failing verdict. It maps to exit status 1 and is
// not printed as an error.
var errViolations = errors.New("policy violations")

type globalFlags struct {
	logLevel  string
	logFormat string
	noColor   bool
	threads   int
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "leakgate",
		Short:         "Find, verify and gate leaked credentials",
		Long:          "leakgate scans a working tree for credentials, optionally verifies them with their issuer, scores and classifies each finding, and enforces a policy.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return log.Configure(cmd.ErrOrStderr(), g.logLevel, g.logFormat)
		},
	}
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "log format: text|json")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colorized output")
	root.PersistentFlags().IntVar(&g.threads, "threads", 0, "worker count (0 = GOMAXPROCS)")

	root.AddCommand(
		newScanCmd(g),
		newPlanCmd(g),
		newFixCmd(g),
		newBaselineCmd(g),
		newDetectorsCmd(g),
		newPolicyCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

// exitCode maps a command error onto the process status: 0 pass, 1 policy
// violations, 2 anything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errViolations):
		return 1
	default:
		return 2
	}
}

// Execute runs the leakgate CLI. SIGINT and SIGTERM cancel the running scan:
// work in flight completes, nothing new starts.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil && !errors.Is(err, errViolations) {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(exitCode(err))
}
