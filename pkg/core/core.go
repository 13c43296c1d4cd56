package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leakgate/leakgate/internal/autofix"
	"github.com/leakgate/leakgate/internal/classify"
	"github.com/leakgate/leakgate/internal/detectors"
	"github.com/leakgate/leakgate/internal/engine"
	"github.com/leakgate/leakgate/internal/log"
	"github.com/leakgate/leakgate/internal/policy"
	"github.com/leakgate/leakgate/internal/registry"
	"github.com/leakgate/leakgate/internal/report"
	"github.com/leakgate/leakgate/internal/risk"
	"github.com/leakgate/leakgate/internal/types"
	"github.com/leakgate/leakgate/internal/validate"
)

// Re-export selected internal types as a stable public API surface.
type (
	Finding    = types.Finding
	File       = engine.File
	SoftError  = engine.SoftError
	WalkConfig = engine.WalkConfig
	Policy     = policy.Policy
	Verdict    = policy.Verdict
	PlanItem   = autofix.PlanItem
	Exposure   = risk.Exposure
	Validator  = validate.Validator
)

// DefaultPolicy is the policy used when no document is given.
func DefaultPolicy() Policy { return policy.Default() }

// Walk enumerates files under a root for Run.
func Walk(ctx context.Context, cfg WalkConfig) ([]File, error) { return engine.Walk(ctx, cfg) }

// DetectorIDs lists the built-in detector names.
func DetectorIDs() []string { return detectors.BuiltinNames() }

// AgeSource reports how many days a line has existed. internal/git's
// blame-backed repository satisfies it.
type AgeSource interface {
	AgeDays(path string, line int, now time.Time) int
}

// Options wires a Pipeline. Zero values select defaults: all built-in
// detectors, all built-in validators, no baseline, no age data.
type Options struct {
	Registry   *registry.Registry
	Scan       engine.Config
	Validators []Validator
	// Validation carries engine tuning; AllowNetwork and GlobalQPS always
	// come from Policy.
	Validation validate.Options
	Policy     Policy
	Exposure   Exposure
	Ages       AgeSource
	Baseline   *report.Baseline
	Now        func() time.Time
}

// Report is the result of one pipeline run.
type Report struct {
	ScanID       string              `json:"scan_id"`
	Findings     []Finding           `json:"findings"`
	Baselined    int                 `json:"baselined"`
	// All holds every finding before the baseline filter.
	All          []Finding           `json:"-"`
	Verdict      Verdict             `json:"verdict"`
	Plan         []PlanItem          `json:"plan"`
	SoftErrors   []SoftError         `json:"soft_errors,omitempty"`
	Truncated    []engine.Truncation `json:"truncated,omitempty"`
	FilesScanned int                 `json:"files_scanned"`
	Duration     time.Duration       `json:"duration"`
	Canceled     bool                `json:"canceled,omitempty"`
}

// Envelope converts the report into the JSON report shape.
func (r Report) Envelope() report.Envelope {
	v := r.Verdict
	return report.Envelope{
		ScanID:       r.ScanID,
		Findings:     r.Findings,
		Verdict:      &v,
		Plan:         r.Plan,
		SoftErrors:   r.SoftErrors,
		Truncated:    r.Truncated,
		FilesScanned: r.FilesScanned,
		DurationMS:   r.Duration.Milliseconds(),
	}
}

// Pipeline runs registry → orchestrator → validators → scorer → classifier
// → policy → planner. It is safe to Run more than once; results for the
// same input and clock are identical.
type Pipeline struct {
	orch    *engine.Orchestrator
	val     *validate.Engine
	opts    Options
	planner autofix.Planner
}

// NewPipeline validates the policy and builds every stage. Structural
// problems are returned here, before any file is read.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Policy.Version == 0 {
		opts.Policy = policy.Default()
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	if opts.Registry == nil {
		r, err := registry.Build(registry.Options{})
		if err != nil {
			return nil, err
		}
		opts.Registry = r
	}
	if opts.Validators == nil {
		opts.Validators = validate.Builtins()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	vo := opts.Validation
	vo.AllowNetwork = opts.Policy.Validators.AllowNetwork
	vo.GlobalQPS = opts.Policy.Validators.GlobalQPS
	if vo.Now == nil {
		vo.Now = opts.Now
	}
	val, err := validate.NewEngine(vo, opts.Validators...)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		orch:    engine.New(opts.Registry, opts.Scan),
		val:     val,
		opts:    opts,
		planner: autofix.Planner{MinRiskScore: opts.Policy.Autofix.MinRiskScore},
	}, nil
}

// Run scans files and carries the findings through every stage. If ctx is
// canceled the stages after detection still run over what was found, no
// new validator call is started, and the partial report is returned with
// ctx.Err().
func (p *Pipeline) Run(ctx context.Context, files []File) (Report, error) {
	rep := Report{ScanID: uuid.NewString()}
	res, scanErr := p.orch.Scan(ctx, files)
	rep.FilesScanned = res.FilesScanned
	rep.SoftErrors = res.SoftErrors
	rep.Truncated = res.Truncated
	findings := res.Findings

	valErr := p.val.Validate(ctx, findings)
	if valErr != nil && ctx.Err() == nil {
		return rep, valErr
	}

	now := p.opts.Now()
	for i := range findings {
		age := 0
		if p.opts.Ages != nil {
			age = p.opts.Ages.AgeDays(findings[i].Path, findings[i].Line, now)
		}
		findings[i].RiskScore = risk.Score(risk.InputFor(findings[i], p.opts.Exposure, age))
	}
	classify.Apply(findings, now)

	rep.All = findings
	if p.opts.Baseline != nil {
		fresh := report.FilterNewFindings(findings, *p.opts.Baseline)
		rep.Baselined = len(findings) - len(fresh)
		findings = fresh
	}
	rep.Findings = findings
	rep.Verdict = policy.Evaluate(p.opts.Policy, findings, now)
	rep.Plan = p.planner.Plan(findings)
	rep.Duration = res.Duration

	log.WithFields(map[string]any{
		"scan_id":  rep.ScanID,
		"files":    rep.FilesScanned,
		"findings": len(rep.Findings),
		"pass":     rep.Verdict.Pass,
	}).Debug("pipeline finished")

	if err := errors.Join(scanErr, valErr); err != nil {
		rep.Canceled = true
		return rep, ctx.Err()
	}
	return rep, nil
}
