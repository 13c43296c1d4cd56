// Package policy loads the policy document and turns a finding set into a
// pass/fail verdict.
package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	doublestar "github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	"github.com/leakgate/leakgate/internal/log"
	"github.com/leakgate/leakgate/internal/types"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPolicy wraps every structural problem with a policy document.
var ErrInvalidPolicy = errors.New("invalid policy")

// Version is the only schema version understood.
const Version = 1

// Policy is the parsed policy document.
type Policy struct {
	Version    int        `yaml:"version" json:"version"`
	Validators Validators `yaml:"validators" json:"validators"`
	Budgets    Budgets    `yaml:"budgets" json:"budgets"`
	Waivers    []Waiver   `yaml:"waivers" json:"waivers"`
	Autofix    Autofix    `yaml:"autofix" json:"autofix"`
}

// Validators holds the network kill-switch and the shared rate.
type Validators struct {
	AllowNetwork bool    `yaml:"allow_network" json:"allow_network"`
	GlobalQPS    float64 `yaml:"global_qps" json:"global_qps"`
}

// Budgets caps effective findings per category. A category without an entry
// is unlimited.
type Budgets struct {
	Categories   map[types.Category]int `json:"categories,omitempty"`
	MaxRiskScore int                    `json:"max_risk_score"`
}

// Autofix controls which findings get a remediation plan.
type Autofix struct {
	MinRiskScore        int  `yaml:"min_risk_score" json:"min_risk_score"`
	RequireConfirmation bool `yaml:"require_confirmation" json:"require_confirmation"`
}

const maxRiskScoreKey = "max_risk_score"

// UnmarshalYAML reads category counts and max_risk_score from one mapping.
func (b *Budgets) UnmarshalYAML(n *yaml.Node) error {
	var raw map[string]int
	if err := n.Decode(&raw); err != nil {
		return err
	}
	for k, v := range raw {
		if k == maxRiskScoreKey {
			b.MaxRiskScore = v
			continue
		}
		c := types.Category(k)
		if !c.Valid() {
			return fmt.Errorf("unknown budget %q", k)
		}
		if b.Categories == nil {
			b.Categories = map[types.Category]int{}
		}
		b.Categories[c] = v
	}
	return nil
}

// MarshalYAML writes budgets back in document shape.
func (b Budgets) MarshalYAML() (any, error) {
	out := map[string]int{maxRiskScoreKey: b.MaxRiskScore}
	for c, v := range b.Categories {
		out[string(c)] = v
	}
	return out, nil
}

// Limit returns the budget for c and whether one is set.
func (b Budgets) Limit(c types.Category) (int, bool) {
	v, ok := b.Categories[c]
	return v, ok
}

// Default returns the policy used when no document is given: network off,
// no budgets, no score ceiling.
func Default() Policy {
	return Policy{
		Version:    Version,
		Validators: Validators{AllowNetwork: false, GlobalQPS: 2.0},
		Budgets:    Budgets{MaxRiskScore: 100},
		Autofix:    Autofix{MinRiskScore: 60, RequireConfirmation: true},
	}
}

// Parse decodes a policy document over the defaults and validates it.
// Unknown keys are rejected.
func Parse(b []byte) (Policy, error) {
	p := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Load reads and parses the policy at path.
func Load(path string) (Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	p, err := Parse(b)
	if err != nil {
		return Policy{}, fmt.Errorf("%s: %w", path, err)
	}
	log.WithFields(map[string]any{"path": path, "waivers": len(p.Waivers), "allow_network": p.Validators.AllowNetwork}).Info("loaded policy")
	return p, nil
}

// Validate checks ranges and compiles waivers. It is called by Parse and is
// safe to call again.
func (p *Policy) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidPolicy, fmt.Sprintf(format, args...))
	}
	if p.Version != Version {
		return bad("unsupported version %d", p.Version)
	}
	if p.Validators.GlobalQPS <= 0 {
		return bad("validators.global_qps must be positive, got %v", p.Validators.GlobalQPS)
	}
	cats := make([]string, 0, len(p.Budgets.Categories))
	for c := range p.Budgets.Categories {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		if v := p.Budgets.Categories[types.Category(c)]; v < 0 {
			return bad("budgets.%s must not be negative, got %d", c, v)
		}
	}
	if s := p.Budgets.MaxRiskScore; s < 0 || s > 100 {
		return bad("budgets.max_risk_score must be within [0,100], got %d", s)
	}
	if s := p.Autofix.MinRiskScore; s < 0 || s > 100 {
		return bad("autofix.min_risk_score must be within [0,100], got %d", s)
	}
	for i := range p.Waivers {
		if err := p.Waivers[i].compile(); err != nil {
			return bad("waivers[%d]: %v", i, err)
		}
	}
	return nil
}

// Waiver is a time-bound exception. Rule is a glob over finding kinds, Path
// a doublestar glob over finding paths.
type Waiver struct {
	Rule   string `yaml:"rule" json:"rule"`
	Path   string `yaml:"path" json:"path"`
	Expiry string `yaml:"expiry" json:"expiry"`
	Reason string `yaml:"reason" json:"reason"`

	expires time.Time
	rule    glob.Glob
}

func (w *Waiver) compile() error {
	switch {
	case w.Rule == "":
		return errors.New("rule is required")
	case w.Path == "":
		return errors.New("path is required")
	case w.Expiry == "":
		return errors.New("expiry is required")
	case w.Reason == "":
		return errors.New("reason is required")
	}
	exp, err := ParseExpiry(w.Expiry)
	if err != nil {
		return err
	}
	g, err := glob.Compile(w.Rule)
	if err != nil {
		return fmt.Errorf("rule %q: %v", w.Rule, err)
	}
	if !doublestar.ValidatePattern(w.Path) {
		return fmt.Errorf("path %q is not a valid glob", w.Path)
	}
	w.expires, w.rule = exp, g
	return nil
}

// ParseExpiry accepts RFC 3339 timestamps and bare dates, which mean
// midnight UTC at the start of that day.
func ParseExpiry(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("expiry %q is neither RFC 3339 nor YYYY-MM-DD", s)
}

// compiled returns w with its patterns and expiry resolved. Waivers built in
// code or decoded from JSON skip Validate and are compiled here on a copy.
func (w Waiver) compiled() (Waiver, error) {
	if w.rule != nil {
		return w, nil
	}
	err := w.compile()
	return w, err
}

// Expires returns the parsed expiry, or the zero time if it does not parse.
func (w Waiver) Expires() time.Time {
	c, err := w.compiled()
	if err != nil {
		return time.Time{}
	}
	return c.expires
}

// Active reports whether the waiver still applies at now. An invalid waiver
// is never active.
func (w Waiver) Active(now time.Time) bool {
	c, err := w.compiled()
	return err == nil && now.Before(c.expires)
}

// Expired reports whether a valid waiver has passed its expiry at now.
func (w Waiver) Expired(now time.Time) bool {
	c, err := w.compiled()
	return err == nil && !now.Before(c.expires)
}

// Covers reports whether an active waiver matches f.
func (w Waiver) Covers(f types.Finding, now time.Time) bool {
	c, err := w.compiled()
	if err != nil || !now.Before(c.expires) || !c.rule.Match(f.Kind) {
		return false
	}
	ok, _ := doublestar.Match(c.Path, f.Path)
	return ok
}
