package detectors

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/leakgate/leakgate/internal/types"
)

// Detector is a pure pattern matcher. Detect must not touch the network,
// the filesystem or any shared mutable state; the returned sequence is
// consumed at most once.
type Detector interface {
	Name() string
	Kinds() []string
	Detect(path, text string) iter.Seq[types.Finding]
}

// Builtins returns fresh instances of the built-in detectors in their
// canonical registration order.
func Builtins() []Detector {
	return []Detector{
		GitHubPAT(),
		AWSKeypair(),
		SlackWebhook(),
		JWTGeneric(),
		AzureStorageSAS(),
		GCPServiceAccountKey(),
		PrivateKey(),
	}
}

// BuiltinNames lists the built-in detector names in registration order.
func BuiltinNames() []string {
	ds := Builtins()
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name()
	}
	return out
}

// Select returns the built-ins named in enabled, preserving canonical order.
// An empty list selects every built-in. Unknown names are an error.
func Select(enabled []string) ([]Detector, error) {
	all := Builtins()
	if len(enabled) == 0 {
		return all, nil
	}
	want := map[string]bool{}
	for _, n := range enabled {
		n = strings.TrimSpace(n)
		if n != "" {
			want[n] = true
		}
	}
	var out []Detector
	for _, d := range all {
		if want[d.Name()] {
			out = append(out, d)
			delete(want, d.Name())
		}
	}
	// gitleaks is constructed separately since it needs its rule file
	delete(want, GitleaksName)
	if len(want) > 0 {
		var unknown []string
		for n := range want {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown detectors: %s", strings.Join(unknown, ","))
	}
	return out, nil
}
