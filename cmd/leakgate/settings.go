package leakgate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leakgate/leakgate/internal/config"
	"github.com/leakgate/leakgate/internal/detectors"
	"github.com/leakgate/leakgate/internal/engine"
	"github.com/leakgate/leakgate/internal/git"
	"github.com/leakgate/leakgate/internal/log"
	"github.com/leakgate/leakgate/internal/policy"
	"github.com/leakgate/leakgate/internal/registry"
	"github.com/leakgate/leakgate/internal/report"
	"github.com/leakgate/leakgate/internal/risk"
	"github.com/leakgate/leakgate/internal/validate"
	"github.com/leakgate/leakgate/pkg/core"
	"github.com/spf13/cobra"
)

// DefaultBaseline is the baseline file read from and written to the scan root.
const DefaultBaseline = "leakgate.baseline.json"

// policyNames are looked up in the scan root when no policy is given.
var policyNames = []string{".leakgate-policy.yml", ".leakgate-policy.yaml", "leakgate-policy.yml"}

// scanFlags are shared by every command that runs the pipeline.
type scanFlags struct {
	path            string
	policy          string
	include         string
	exclude         string
	enable          string
	baseline        string
	maxBytes        int64
	maxMatches      int
	qps             float64
	allowNetwork    bool
	public          bool
	external        bool
	noAge           bool
	gitleaks        bool
	defaultExcludes bool
}

func (s *scanFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&s.path, "path", "p", ".", "path to scan")
	f.StringVar(&s.policy, "policy", "", "policy file (default: .leakgate-policy.yml in the scan root)")
	f.StringVar(&s.include, "include", "", "comma-separated include globs")
	f.StringVar(&s.exclude, "exclude", "", "comma-separated exclude globs")
	f.StringVar(&s.enable, "enable", "", "only run these built-in detectors (comma-separated names)")
	f.StringVar(&s.baseline, "baseline", DefaultBaseline, "baseline file relative to the scan root")
	f.Int64Var(&s.maxBytes, "max-bytes", 0, "skip files larger than this (default 512 KiB)")
	f.IntVar(&s.maxMatches, "max-matches", 0, "cap matches per file and detector (default 100)")
	f.Float64Var(&s.qps, "qps", 0, "override validators.global_qps from the policy")
	f.BoolVar(&s.allowNetwork, "allow-network", false, "let network validators contact issuers (overrides the policy)")
	f.BoolVar(&s.public, "public", false, "the repository is public")
	f.BoolVar(&s.external, "external-contributors", false, "the repository accepts outside contributions")
	f.BoolVar(&s.noAge, "no-age", false, "skip git blame lookups for secret age")
	f.BoolVar(&s.gitleaks, "gitleaks", false, "also run the gitleaks rule set")
	f.BoolVar(&s.defaultExcludes, "default-excludes", true, "apply built-in exclude list (VCS dirs, node_modules, images, lockfiles)")
}

// session is everything a command needs to run the pipeline once.
type session struct {
	root         string
	walk         engine.WalkConfig
	opts         core.Options
	policy       policy.Policy
	noColor      bool
	baselinePath string
	repo         *git.Repo
}

// resolve merges flags, the local and global config and the policy
// (CLI > local > global). Configuration problems are returned before any
// file is read.
func (s *scanFlags) resolve(cmd *cobra.Command, g *globalFlags, useBaseline bool) (*session, error) {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return nil, err
	}
	var gcfg, lcfg config.FileConfig
	if c, err := config.LoadGlobal(); err == nil {
		gcfg = c
	} else if !errors.Is(err, config.ErrNoConfig) {
		return nil, fmt.Errorf("global config: %w", err)
	}
	if c, err := config.LoadLocal(abs); err == nil {
		lcfg = c
	} else if !errors.Is(err, config.ErrNoConfig) {
		return nil, fmt.Errorf("local config: %w", err)
	}

	pol, err := loadPolicy(abs, pickString(s.policy, lcfg.Policy, gcfg.Policy))
	if err != nil {
		return nil, err
	}
	if s.allowNetwork {
		pol.Validators.AllowNetwork = true
	}
	if s.qps > 0 {
		pol.Validators.GlobalQPS = s.qps
	}

	enabled := engine.SplitGlobs(s.enable)
	if len(enabled) == 0 {
		enabled = pickSlice(lcfg.Detectors, gcfg.Detectors)
	}
	ropts := registry.Options{Enabled: enabled, Rules: append(append([]detectors.Rule(nil), gcfg.Rules...), lcfg.Rules...)}
	if s.gitleaks || lcfg.GitleaksEnabled() || gcfg.GitleaksEnabled() {
		gl, err := detectors.NewGitleaks(firstNonEmpty(lcfg.GitleaksConfigPath(), gcfg.GitleaksConfigPath()))
		if err != nil {
			return nil, err
		}
		ropts.Gitleaks = gl
	}
	reg, err := registry.Build(ropts)
	if err != nil {
		return nil, err
	}

	defaultExcludes := s.defaultExcludes
	if !cmd.Flags().Changed("default-excludes") {
		for _, v := range []*bool{lcfg.DefaultExcludes, gcfg.DefaultExcludes} {
			if v != nil {
				defaultExcludes = *v
				break
			}
		}
	}

	sess := &session{
		root:    abs,
		policy:  pol,
		noColor: pickBool(g.noColor, lcfg.NoColor, gcfg.NoColor),
		walk: engine.WalkConfig{
			Root:            abs,
			Include:         engine.SplitGlobs(pickString(s.include, lcfg.Include, gcfg.Include)),
			Exclude:         engine.SplitGlobs(pickString(s.exclude, lcfg.Exclude, gcfg.Exclude)),
			MaxBytes:        pickInt64(s.maxBytes, lcfg.MaxBytes, gcfg.MaxBytes),
			DefaultExcludes: defaultExcludes,
		},
	}
	sess.opts = core.Options{
		Registry: reg,
		Scan: engine.Config{
			Threads:    pickInt(g.threads, lcfg.Threads, gcfg.Threads),
			MaxMatches: pickInt(s.maxMatches, lcfg.MaxMatches, gcfg.MaxMatches),
		},
		Validators: validate.Builtins(),
		Validation: validate.Options{
			Concurrency: firstInt(lcfg.ValidatorConcurrency(), gcfg.ValidatorConcurrency()),
			Timeout:     firstDuration(lcfg.ValidatorTimeout(), gcfg.ValidatorTimeout()),
			CacheTTL:    firstDuration(lcfg.ValidatorCacheTTL(), gcfg.ValidatorCacheTTL()),
		},
		Policy:   pol,
		Exposure: exposure(s, lcfg, gcfg),
	}

	if !s.noAge {
		if repo, err := git.Open(abs); err == nil {
			sess.repo = repo
			sess.opts.Ages = repo
		} else {
			log.Debugf("no git age data for %s: %v", abs, err)
		}
	}
	if useBaseline && s.baseline != "" {
		sess.baselinePath = sess.abs(s.baseline)
		base, err := report.LoadBaselineIfExists(sess.baselinePath)
		if err != nil {
			return nil, err
		}
		sess.opts.Baseline = &base
	}
	return sess, nil
}

// run walks the root and carries the files through the pipeline.
func (sess *session) run(ctx context.Context) (core.Report, error) {
	p, err := core.NewPipeline(sess.opts)
	if err != nil {
		return core.Report{}, err
	}
	files, err := engine.Walk(ctx, sess.walk)
	if err != nil {
		return core.Report{}, fmt.Errorf("walk %s: %w", sess.root, err)
	}
	return p.Run(ctx, files)
}

// abs resolves p against the scan root.
func (sess *session) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(sess.root, p)
}

func loadPolicy(root, path string) (policy.Policy, error) {
	if path == "" {
		for _, name := range policyNames {
			p := filepath.Join(root, name)
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path == "" {
		log.Debugf("no policy file, using defaults")
		return policy.Default(), nil
	}
	return policy.Load(path)
}

func exposure(s *scanFlags, local, global config.FileConfig) risk.Exposure {
	l, g := exposureOf(local), exposureOf(global)
	return risk.Exposure{
		Public:               pickBool(s.public, l.Public, g.Public),
		ExternalContributors: pickBool(s.external, l.ExternalContributors, g.ExternalContributors),
	}
}

func exposureOf(c config.FileConfig) config.ExposureConfig {
	if c.Exposure == nil {
		return config.ExposureConfig{}
	}
	return *c.Exposure
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt(cli int, local, global *int) int {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickInt64(cli int64, local, global *int64) int64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}

func pickSlice(local, global []string) []string {
	if len(local) > 0 {
		return local
	}
	return global
}

func firstInt(vs ...int) int {
	for _, v := range vs {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstDuration(vs ...time.Duration) time.Duration {
	for _, v := range vs {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
