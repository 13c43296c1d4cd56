package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/leakgate/leakgate/internal/types"
)

// Baseline is a set of accepted finding fingerprints.
type Baseline struct {
	Items map[string]bool `json:"items"`
}

// LoadBaseline reads a baseline file. A missing file yields an empty
// baseline and os.ErrNotExist so callers can tell the cases apart.
func LoadBaseline(path string) (Baseline, error) {
	b := Baseline{Items: map[string]bool{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(raw, &b); err != nil {
		return Baseline{Items: map[string]bool{}}, fmt.Errorf("parse baseline %s: %w", path, err)
	}
	if b.Items == nil {
		b.Items = map[string]bool{}
	}
	return b, nil
}

// LoadBaselineIfExists is LoadBaseline that treats a missing file as empty.
func LoadBaselineIfExists(path string) (Baseline, error) {
	b, err := LoadBaseline(path)
	if errors.Is(err, os.ErrNotExist) {
		return b, nil
	}
	return b, err
}

// SaveBaseline writes the fingerprints of findings to path.
func SaveBaseline(path string, findings []types.Finding) error {
	b := Baseline{Items: map[string]bool{}}
	for _, f := range findings {
		b.Items[Fingerprint(f)] = true
	}
	buf, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(buf, '\n'), 0o644)
}

// FilterNewFindings drops findings already in base, keeping order.
func FilterNewFindings(findings []types.Finding, base Baseline) []types.Finding {
	out := make([]types.Finding, 0, len(findings))
	for _, f := range findings {
		if !base.Items[Fingerprint(f)] {
			out = append(out, f)
		}
	}
	return out
}

// Fingerprint identifies a finding across runs. The line is left out so
// that edits above a finding do not resurface it; Match is already redacted.
func Fingerprint(f types.Finding) string {
	h := xxhash.New()
	_, _ = h.WriteString(f.Path)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(f.Kind)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(f.Match)
	return strconv.FormatUint(h.Sum64(), 16)
}
