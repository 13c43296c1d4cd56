package core

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/leakgate/leakgate/internal/policy"
	"github.com/leakgate/leakgate/internal/report"
)

// MarshalFindings writes findings as an indented JSON array. Raw values are
// excluded by the Finding struct tags.
func MarshalFindings(w io.Writer, findings []Finding) error {
	if findings == nil {
		findings = []Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

// UnmarshalFindings reads what MarshalFindings wrote. Findings read back have
// no raw values: they can be re-evaluated against a policy but neither
// validated nor fixed.
func UnmarshalFindings(r io.Reader) ([]Finding, error) {
	var fs []Finding
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fs); err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}
	for i, f := range fs {
		if f.Category != "" && !f.Category.Valid() {
			return nil, fmt.Errorf("finding %d: unknown category %q", i, f.Category)
		}
		if f.RiskScore < 0 || f.RiskScore > 100 {
			return nil, fmt.Errorf("finding %d: risk score %d out of range", i, f.RiskScore)
		}
	}
	return fs, nil
}

// WriteReport writes the JSON envelope of rep.
func WriteReport(w io.Writer, rep Report) error {
	return report.WriteJSON(w, rep.Envelope())
}

// Evaluate applies p to already scored and classified findings, such as
// those read back with UnmarshalFindings.
func Evaluate(p Policy, findings []Finding, now time.Time) Verdict {
	return policy.Evaluate(p, findings, now)
}
