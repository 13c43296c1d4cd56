package registry

import (
	"fmt"

	"github.com/leakgate/leakgate/internal/detectors"
)

// Options selects which detectors a registry is built with.
type Options struct {
	// Enabled names built-ins to keep; empty keeps all of them.
	Enabled []string
	Rules   []detectors.Rule
	// Gitleaks, when non-nil, is registered after every other detector.
	Gitleaks *detectors.Gitleaks
}

// Build registers the selected built-ins, then custom rules, then gitleaks.
// Unknown names, bad rules and name clashes are all fatal.
func Build(opts Options) (*Registry, error) {
	builtins, err := detectors.Select(opts.Enabled)
	if err != nil {
		return nil, err
	}
	custom, err := detectors.CompileRules(opts.Rules)
	if err != nil {
		return nil, err
	}
	r := New()
	for _, d := range builtins {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	for _, d := range custom {
		if err := r.Register(d); err != nil {
			return nil, fmt.Errorf("custom rule: %w", err)
		}
	}
	if opts.Gitleaks != nil {
		if err := r.Register(opts.Gitleaks); err != nil {
			return nil, err
		}
	}
	return r, nil
}
