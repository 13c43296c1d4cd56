package detectors

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidRule marks a custom rule that cannot be compiled.
var ErrInvalidRule = errors.New("invalid detector rule")

// Rule is a user-defined pattern detector loaded from configuration.
type Rule struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Pattern string `yaml:"pattern"`
	// Redact defaults to true; disable only for matches that are not secret.
	Redact *bool  `yaml:"redact"`
	Group  int    `yaml:"group"`
	Reason string `yaml:"reason"`
}

// CompileRules turns rules into detectors. Every rule is checked eagerly and
// the first bad one fails the whole set.
func CompileRules(rules []Rule) ([]Detector, error) {
	out := make([]Detector, 0, len(rules))
	for i, r := range rules {
		d, err := compileRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i, r.Name, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func compileRule(r Rule) (Detector, error) {
	if r.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidRule)
	}
	if r.Kind == "" {
		return nil, fmt.Errorf("%w: missing kind", ErrInvalidRule)
	}
	if r.Pattern == "" {
		return nil, fmt.Errorf("%w: missing pattern", ErrInvalidRule)
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if r.Group < 0 || r.Group > re.NumSubexp() {
		return nil, fmt.Errorf("%w: group %d out of range (pattern has %d)", ErrInvalidRule, r.Group, re.NumSubexp())
	}
	reason := r.Reason
	if reason == "" {
		reason = "custom rule " + r.Name
	}
	red := true
	if r.Redact != nil {
		red = *r.Redact
	}
	return &regexDetector{
		name:     r.Name,
		kind:     r.Kind,
		patterns: []pattern{{re: re, group: r.Group, reason: reason}},
		redact:   red,
	}, nil
}
