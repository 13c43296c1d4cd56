package detectors

import (
	"fmt"
	"iter"
	"os"
	"strings"

	"github.com/leakgate/leakgate/internal/log"
	"github.com/leakgate/leakgate/internal/types"
	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	"github.com/zricethezav/gitleaks/v8/report"
)

// GitleaksName is the registry name of the gitleaks-backed detector.
const GitleaksName = "gitleaks"

type leakFinder interface {
	DetectBytes(content []byte) []report.Finding
}

// Gitleaks adapts the gitleaks rule engine. Its kinds are gitleaks rule IDs.
type Gitleaks struct {
	finder leakFinder
}

// NewGitleaks builds the detector from a gitleaks TOML rule file, or from the
// gitleaks default rules when configPath is empty.
func NewGitleaks(configPath string) (*Gitleaks, error) {
	if configPath == "" {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return nil, fmt.Errorf("gitleaks default config: %w", err)
		}
		return &Gitleaks{finder: d}, nil
	}
	log.Debugf("loading gitleaks configuration from %s", configPath)
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("gitleaks config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("read gitleaks config %s: %w", configPath, err)
	}
	var vc config.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return nil, fmt.Errorf("unmarshal gitleaks config %s: %w", configPath, err)
	}
	cfg, err := vc.Translate()
	if err != nil {
		return nil, fmt.Errorf("translate gitleaks config %s: %w", configPath, err)
	}
	if len(cfg.Rules) == 0 {
		log.Warnf("gitleaks config %s contains no rules", configPath)
	}
	return &Gitleaks{finder: detect.NewDetector(cfg)}, nil
}

func (g *Gitleaks) Name() string { return GitleaksName }

// Kinds is open-ended for gitleaks; rule IDs are only known per finding.
func (g *Gitleaks) Kinds() []string { return []string{"*"} }

func (g *Gitleaks) Detect(path, text string) iter.Seq[types.Finding] {
	return func(yield func(types.Finding) bool) {
		var rows []string
		for _, gf := range g.finder.DetectBytes([]byte(text)) {
			secret := gf.Secret
			if secret == "" {
				secret = gf.Match
			}
			if secret == "" {
				continue
			}
			if rows == nil {
				rows = strings.Split(text, "\n")
			}
			line := lineOf(text, rows, secret, gf.StartLine)
			if suppressed(text, line) {
				continue
			}
			f := newFinding(GitleaksName, gf.RuleID, path, line, secret, gf.Description)
			if f.Reason == "" {
				f.Reason = "gitleaks rule " + gf.RuleID
			}
			if !yield(f) {
				return
			}
		}
	}
}

// lineOf resolves the 1-based line of a gitleaks finding. DetectBytes
// reports a zero-based StartLine; a one-based value is accepted as well. The
// first textual occurrence is used only when neither line holds the secret.
func lineOf(text string, rows []string, secret string, start int) int {
	head, _, _ := strings.Cut(secret, "\n")
	for _, n := range []int{start + 1, start} {
		if n >= 1 && n <= len(rows) && strings.Contains(rows[n-1], head) {
			return n
		}
	}
	if i := strings.Index(text, secret); i >= 0 {
		return strings.Count(text[:i], "\n") + 1
	}
	return max(start+1, 1)
}

// suppressed reports whether an inline marker hides the given line.
func suppressed(text string, line int) bool {
	for n := range lines(text) {
		if n == line {
			return false
		}
		if n > line {
			break
		}
	}
	return true
}
