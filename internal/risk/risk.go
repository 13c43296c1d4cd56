// Package risk computes a deterministic 0-100 severity per finding.
package risk

import (
	"math"
	"path"
	"strings"

	"github.com/leakgate/leakgate/internal/types"
)

// Exposure describes who can read the repository.
type Exposure struct {
	Public               bool `json:"public" yaml:"public"`
	ExternalContributors bool `json:"external_contributors" yaml:"external_contributors"`
}

// Input is everything a score depends on.
type Input struct {
	Kind       string
	Validation types.ValidationState
	Path       string
	Exposure   Exposure
	// AgeDays is how long the secret has been present; zero when unknown.
	AgeDays int
}

var baseScores = map[string]float64{
	"private_key":             90,
	"gcp_service_account_key": 85,
	"aws_keypair":             80,
	"database_url":            75,
	"github_pat":              70,
	"azure_storage_sas":       70,
	"jwt_generic":             65,
	"api_key":                 60,
	"password":                50,
	"slack_webhook":           40,
}

const defaultBase = 50

// Base returns the kind's severity before adjustments.
func Base(kind string) int {
	if b, ok := baseScores[kind]; ok {
		return int(b)
	}
	return defaultBase
}

func validationFactor(s types.ValidationState) float64 {
	switch s {
	case types.StateValid:
		return 1.3
	case types.StateInvalid:
		return 0.4
	case types.StateIndeterminate:
		return 0.9
	}
	return 1.0
}

// pathTiers are checked in order; the first tier with a matching token wins.
var pathTiers = []struct {
	words  []string
	dotenv bool
	factor float64
}{
	{words: []string{"doc", "docs", "readme"}, factor: 0.3},
	{words: []string{"example", "examples", "sample", "samples", "demo", "demos"}, factor: 0.5},
	{words: []string{"mock", "mocks", "fixture", "fixtures"}, factor: 0.6},
	{words: []string{"test", "tests", "spec", "specs"}, factor: 0.7},
	{words: []string{"prod", "production", "deploy", "deployment", "release", "releases"}, dotenv: true, factor: 1.2},
	{words: []string{"config", "configs", "env", "settings"}, factor: 1.1},
}

// PathFactor returns the path-context multiplier for p.
func PathFactor(p string) float64 {
	p = strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
	tokens := map[string]bool{}
	for _, t := range strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '.' || r == '_' || r == '-'
	}) {
		tokens[t] = true
	}
	dotenv := strings.HasPrefix(path.Base(p), ".env")
	for _, tier := range pathTiers {
		if tier.dotenv && dotenv {
			return tier.factor
		}
		for _, w := range tier.words {
			if tokens[w] {
				return tier.factor
			}
		}
	}
	return 1.0
}

func exposureFactor(e Exposure) float64 {
	switch {
	case e.Public:
		return 1.2
	case e.ExternalContributors:
		return 1.1
	}
	return 1.0
}

func ageFactor(days int) float64 {
	switch {
	case days > 365:
		return 1.2
	case days > 90:
		return 1.1
	}
	return 1.0
}

// Score is a pure function of in, clamped to [0,100].
func Score(in Input) int {
	s := float64(Base(in.Kind))
	s *= validationFactor(in.Validation)
	s *= PathFactor(in.Path)
	s *= exposureFactor(in.Exposure)
	s *= ageFactor(in.AgeDays)
	return clamp(int(math.Round(s)))
}

func clamp(n int) int {
	return max(0, min(100, n))
}

// InputFor gathers a finding's scoring inputs.
func InputFor(f types.Finding, exp Exposure, ageDays int) Input {
	return Input{
		Kind:       f.Kind,
		Validation: f.ValidationState(),
		Path:       f.Path,
		Exposure:   exp,
		AgeDays:    ageDays,
	}
}

// Level names the band a score falls in.
func Level(score int) string {
	switch {
	case score >= 80:
		return "critical"
	case score >= 60:
		return "high"
	case score >= 40:
		return "medium"
	case score >= 20:
		return "low"
	}
	return "info"
}
