package policy

import (
	"fmt"
	"time"

	"github.com/leakgate/leakgate/internal/log"
	"github.com/leakgate/leakgate/internal/types"
)

// ViolationType names what was breached.
type ViolationType string

const (
	BudgetExceeded   ViolationType = "budget_exceeded"
	RiskScoreTooHigh ViolationType = "risk_score_too_high"
)

// Violation is one breached budget or score ceiling.
type Violation struct {
	Type     ViolationType  `json:"type"`
	Message  string         `json:"message"`
	Category types.Category `json:"category,omitempty"`
	Count    int            `json:"count,omitempty"`
	Limit    int            `json:"limit"`
	Path     string         `json:"path,omitempty"`
	Line     int            `json:"line,omitempty"`
	Kind     string         `json:"kind,omitempty"`
	Score    int            `json:"risk_score,omitempty"`
}

// WaivedFinding records a finding removed from counting and the waiver that
// covered it.
type WaivedFinding struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Kind   string `json:"kind"`
	Match  string `json:"match"`
	Waiver Waiver `json:"waiver"`
}

// Verdict is the outcome of Evaluate.
type Verdict struct {
	Pass       bool                   `json:"pass"`
	Violations []Violation            `json:"violations"`
	Waived     []WaivedFinding        `json:"waived,omitempty"`
	Counts     map[types.Category]int `json:"counts"`
	// ExpiredWaivers are listed for cleanup; they never suppress counting.
	ExpiredWaivers []Waiver `json:"expired_waivers,omitempty"`
	// InvalidWaivers failed to compile and were ignored.
	InvalidWaivers []Waiver `json:"invalid_waivers,omitempty"`
}

// ExitCode maps the verdict to a process exit status.
func (v Verdict) ExitCode() int {
	if v.Pass {
		return 0
	}
	return 1
}

// Evaluate removes findings covered by an active waiver, then checks
// category budgets (in category order) and the per-finding score ceiling
// (in finding order). It does not modify findings.
func Evaluate(p Policy, findings []types.Finding, now time.Time) Verdict {
	v := Verdict{Counts: map[types.Category]int{}, Violations: []Violation{}}
	for _, c := range types.Categories {
		v.Counts[c] = 0
	}
	active := make([]Waiver, 0, len(p.Waivers))
	for _, w := range p.Waivers {
		c, err := w.compiled()
		fields := map[string]any{"rule": w.Rule, "path": w.Path, "expiry": w.Expiry}
		switch {
		case err != nil:
			fields["error"] = err.Error()
			log.WithFields(fields).Error("invalid waiver ignored")
			v.InvalidWaivers = append(v.InvalidWaivers, w)
		case !now.Before(c.expires):
			log.WithFields(fields).Warn("waiver expired")
			v.ExpiredWaivers = append(v.ExpiredWaivers, w)
		default:
			active = append(active, c)
		}
	}

	effective := make([]types.Finding, 0, len(findings))
	for _, f := range findings {
		if w, ok := coveringWaiver(active, f, now); ok {
			v.Waived = append(v.Waived, WaivedFinding{Path: f.Path, Line: f.Line, Kind: f.Kind, Match: f.Match, Waiver: w})
			continue
		}
		effective = append(effective, f)
		c := f.Category
		if !c.Valid() {
			c = types.CategoryUnknown
		}
		v.Counts[c]++
	}

	for _, c := range types.Categories {
		limit, ok := p.Budgets.Limit(c)
		if !ok || v.Counts[c] <= limit {
			continue
		}
		v.Violations = append(v.Violations, Violation{
			Type:     BudgetExceeded,
			Message:  fmt.Sprintf("found %d %s findings, budget allows %d", v.Counts[c], c, limit),
			Category: c,
			Count:    v.Counts[c],
			Limit:    limit,
		})
	}
	ceiling := p.Budgets.MaxRiskScore
	for _, f := range effective {
		if f.RiskScore <= ceiling {
			continue
		}
		v.Violations = append(v.Violations, Violation{
			Type:     RiskScoreTooHigh,
			Message:  fmt.Sprintf("%s:%d %s has risk score %d, exceeds limit %d", f.Path, f.Line, f.Kind, f.RiskScore, ceiling),
			Category: f.Category,
			Limit:    ceiling,
			Path:     f.Path,
			Line:     f.Line,
			Kind:     f.Kind,
			Score:    f.RiskScore,
		})
	}
	v.Pass = len(v.Violations) == 0
	return v
}

func coveringWaiver(ws []Waiver, f types.Finding, now time.Time) (Waiver, bool) {
	for _, w := range ws {
		if w.Covers(f, now) {
			return w, true
		}
	}
	return Waiver{}, false
}
