package leakgate

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/leakgate/leakgate/internal/config"
	"github.com/leakgate/leakgate/internal/detectors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type configInitFlags struct {
	output          string
	enable          string
	threads         int
	maxBytes        int64
	public          bool
	defaultExcludes bool
	force           bool
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	f := &configInitFlags{}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .leakgate.yml with selected detectors and options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, f)
		},
	}
	initCmd.Flags().StringVar(&f.output, "output", config.LocalNames[0], "output file path")
	initCmd.Flags().StringVar(&f.enable, "enable", "", "comma-separated built-in detectors (default: all)")
	initCmd.Flags().IntVar(&f.threads, "threads", 0, "worker threads (0 = GOMAXPROCS)")
	initCmd.Flags().Int64Var(&f.maxBytes, "max-bytes", 512<<10, "skip files larger than this")
	initCmd.Flags().BoolVar(&f.public, "public", false, "mark the repository as public")
	initCmd.Flags().BoolVar(&f.defaultExcludes, "default-excludes", true, "enable default ignore patterns")
	initCmd.Flags().BoolVar(&f.force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func runConfigInit(cmd *cobra.Command, f *configInitFlags) error {
	enabled := detectors.BuiltinNames()
	if s := strings.TrimSpace(f.enable); s != "" {
		enabled = enabled[:0]
		for _, n := range strings.Split(s, ",") {
			if n = strings.TrimSpace(n); n != "" {
				enabled = append(enabled, n)
			}
		}
		if _, err := detectors.Select(enabled); err != nil {
			return err
		}
	}
	fc := config.FileConfig{
		MaxBytes:        &f.maxBytes,
		Threads:         intPtr(f.threads),
		DefaultExcludes: &f.defaultExcludes,
		Detectors:       enabled,
		Exposure:        &config.ExposureConfig{Public: &f.public},
	}
	b, err := yaml.Marshal(&fc)
	if err != nil {
		return err
	}
	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if f.force {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	out, err := os.OpenFile(f.output, flag, 0o644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s exists; pass --force to overwrite", f.output)
	}
	if err != nil {
		return err
	}
	if _, err := out.Write(b); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", f.output)
	return nil
}

func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
