package report

import (
	"encoding/json"
	"io"

	"github.com/leakgate/leakgate/internal/autofix"
	"github.com/leakgate/leakgate/internal/engine"
	"github.com/leakgate/leakgate/internal/policy"
	"github.com/leakgate/leakgate/internal/types"
)

// Envelope is the machine-readable scan report.
type Envelope struct {
	ScanID       string              `json:"scan_id"`
	Findings     []types.Finding     `json:"findings"`
	Verdict      *policy.Verdict     `json:"verdict,omitempty"`
	Plan         []autofix.PlanItem  `json:"plan,omitempty"`
	SoftErrors   []engine.SoftError  `json:"soft_errors,omitempty"`
	Truncated    []engine.Truncation `json:"truncated,omitempty"`
	FilesScanned int                 `json:"files_scanned"`
	DurationMS   int64               `json:"duration_ms"`
}

// WriteJSON writes env as indented JSON. Findings never carry raw values;
// those fields are not serialized.
func WriteJSON(w io.Writer, env Envelope) error {
	if env.Findings == nil {
		env.Findings = []types.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}
