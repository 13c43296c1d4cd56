package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/leakgate/leakgate/internal/autofix"
	"github.com/leakgate/leakgate/internal/policy"
	"github.com/leakgate/leakgate/internal/risk"
	"github.com/leakgate/leakgate/internal/types"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
)

// PrintOptions tune the human-readable output.
type PrintOptions struct {
	NoColor      bool
	Duration     time.Duration
	FilesScanned int
	SoftErrors   int
}

// ColorEnabled reports whether w is a terminal that should get ANSI colour.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// PrintTable renders findings as a table followed by the verdict, if any.
// Findings are printed in the order given.
func PrintTable(w io.Writer, findings []types.Finding, verdict *policy.Verdict, opts PrintOptions) error {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No secrets found")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("Risk", "Category", "Kind", "Location", "Match", "Validation")
		for _, f := range findings {
			level := risk.Level(f.RiskScore)
			if !opts.NoColor {
				level = colorLevel(level)
			}
			if err := table.Append([]string{
				level + " " + strconv.Itoa(f.RiskScore),
				string(f.Category),
				f.Kind,
				fmt.Sprintf("%s:%d", f.Path, f.Line),
				f.Match,
				validationLabel(f),
			}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if opts.Duration > 0 || opts.FilesScanned > 0 {
		fmt.Fprintln(w)
		counts := map[types.Category]int{}
		for _, f := range findings {
			counts[f.Category]++
		}
		fmt.Fprintf(w, "Findings: %d (actual: %d, expired: %d, test: %d, unknown: %d)\n", len(findings),
			counts[types.CategoryActual], counts[types.CategoryExpired], counts[types.CategoryTest], counts[types.CategoryUnknown])
		if opts.FilesScanned > 0 {
			fmt.Fprintf(w, "Files scanned: %d\n", opts.FilesScanned)
		}
		if opts.SoftErrors > 0 {
			fmt.Fprintf(w, "Files skipped with errors: %d\n", opts.SoftErrors)
		}
		if opts.Duration > 0 {
			fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
		}
	}
	if verdict != nil {
		PrintVerdict(w, *verdict)
	}
	return nil
}

// PrintVerdict writes the pass/fail line, violations and waiver notes.
func PrintVerdict(w io.Writer, v policy.Verdict) {
	fmt.Fprintln(w)
	if v.Pass {
		fmt.Fprintln(w, "Policy: PASS")
	} else {
		fmt.Fprintf(w, "Policy: FAIL (%d violations)\n", len(v.Violations))
	}
	for _, vi := range v.Violations {
		fmt.Fprintf(w, "  - [%s] %s\n", vi.Type, vi.Message)
	}
	if len(v.Waived) > 0 {
		fmt.Fprintf(w, "Waived: %d\n", len(v.Waived))
	}
	for _, ew := range v.ExpiredWaivers {
		fmt.Fprintf(w, "  expired waiver: rule=%s path=%s expiry=%s (%s)\n", ew.Rule, ew.Path, ew.Expiry, ew.Reason)
	}
}

// PrintPlan renders an autofix plan as a numbered list.
func PrintPlan(w io.Writer, plan []autofix.PlanItem) {
	if len(plan) == 0 {
		fmt.Fprintln(w, "No autofix actions planned.")
		return
	}
	fmt.Fprintln(w, "Autofix plan:")
	for i, it := range plan {
		fmt.Fprintf(w, "%d. %s\n", i+1, it.Description)
		fmt.Fprintf(w, "   action: %s  provider: %s  reversible: %t\n", it.Action, it.Provider, it.Reversible)
		if it.Replacement != "" {
			fmt.Fprintf(w, "   replacement: %s\n", it.Replacement)
		}
		fmt.Fprintf(w, "   safety: %s\n", it.SafetyNote)
	}
}

func validationLabel(f types.Finding) string {
	s := f.ValidationState()
	if s == types.StateNone {
		return "-"
	}
	return string(s)
}

func colorLevel(l string) string {
	switch l {
	case "critical":
		return "\x1b[35mcritical\x1b[0m" // magenta
	case "high":
		return "\x1b[31mhigh\x1b[0m" // red
	case "medium":
		return "\x1b[33mmedium\x1b[0m" // yellow
	default:
		return "\x1b[36m" + l + "\x1b[0m" // cyan
	}
}
