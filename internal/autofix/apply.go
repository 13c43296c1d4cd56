package autofix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leakgate/leakgate/internal/log"
	"github.com/leakgate/leakgate/internal/redact"
)

// ErrConfirmationRequired is returned by Apply when confirmation is required
// and was not given. Nothing is written in that case.
var ErrConfirmationRequired = errors.New("autofix requires explicit confirmation")

// ApplyOptions gates Apply. RequireConfirmation mirrors the policy setting.
type ApplyOptions struct {
	RequireConfirmation bool
	Confirm             bool
	DryRun              bool
}

// Status is the outcome of one step.
type Status string

const (
	StatusApplied   Status = "applied"
	StatusWouldDo   Status = "would_apply"
	StatusManual    Status = "manual"
	StatusUnchanged Status = "unchanged"
	StatusFailed    Status = "failed"
)

// StepResult pairs a plan item with what happened to it.
type StepResult struct {
	Item   PlanItem `json:"item"`
	Status Status   `json:"status"`
	Detail string   `json:"detail,omitempty"`
}

// Applied counts steps that changed, or in dry-run would change, a file.
func Applied(results []StepResult) int {
	n := 0
	for _, r := range results {
		if r.Status == StatusApplied || r.Status == StatusWouldDo {
			n++
		}
	}
	return n
}

// Apply rewrites literals for the replacement steps of plan, resolving paths
// against root. Revocation steps are never executed; they come back as
// manual. A failing step does not stop the others. Cancellation stops before
// the next step and returns the results so far with ctx.Err().
func Apply(ctx context.Context, root string, plan []PlanItem, opts ApplyOptions) ([]StepResult, error) {
	if opts.RequireConfirmation && !opts.Confirm && !opts.DryRun {
		return nil, ErrConfirmationRequired
	}
	results := make([]StepResult, 0, len(plan))
	for _, it := range plan {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, applyOne(root, it, opts.DryRun))
	}
	return results, nil
}

func applyOne(root string, it PlanItem, dryRun bool) StepResult {
	res := StepResult{Item: it}
	if it.Action.Revocation() {
		res.Status = StatusManual
		res.Detail = fmt.Sprintf("run %s with the %s console or CLI", it.Action, it.Provider)
		return res
	}
	if it.Literal == "" {
		res.Status, res.Detail = StatusFailed, "plan item carries no literal; re-run the scan"
		return res
	}
	if !filepath.IsLocal(filepath.FromSlash(it.Path)) {
		res.Status, res.Detail = StatusFailed, "path escapes the scan root"
		return res
	}
	path := filepath.Join(root, filepath.FromSlash(it.Path))
	if dryRun {
		ok, err := lineContains(path, it.Line, it.Literal)
		switch {
		case err != nil:
			res.Status, res.Detail = StatusFailed, err.Error()
		case ok:
			res.Status = StatusWouldDo
		default:
			res.Status, res.Detail = StatusUnchanged, "literal not found on line"
		}
		return res
	}
	changed, err := redact.ReplaceLiteral(path, it.Line, it.Literal, it.Replacement)
	switch {
	case err != nil:
		res.Status, res.Detail = StatusFailed, err.Error()
		log.WithFields(map[string]any{"path": it.Path, "line": it.Line, "kind": it.Kind}).Warn("autofix step failed")
	case changed:
		res.Status = StatusApplied
		log.WithFields(map[string]any{"path": it.Path, "line": it.Line, "kind": it.Kind, "match": it.Match}).Info("replaced literal")
	default:
		res.Status, res.Detail = StatusUnchanged, "literal not found on line"
	}
	return res
}

func lineContains(path string, line int, literal string) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	lines := bytes.SplitAfter(b, []byte("\n"))
	if line < 1 || line > len(lines) {
		return false, fmt.Errorf("line %d out of range for %s", line, path)
	}
	return bytes.Contains(lines[line-1], []byte(literal)), nil
}
