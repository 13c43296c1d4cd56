package report

import (
	"fmt"
	"io"

	"github.com/leakgate/leakgate/internal/risk"
	"github.com/leakgate/leakgate/internal/types"
	"github.com/owenrumney/go-sarif/v2/sarif"
)

const informationURI = "https://github.com/leakgate/leakgate"

// sarifLevel maps a risk band onto the three SARIF result levels.
func sarifLevel(score int) string {
	switch risk.Level(score) {
	case "critical", "high":
		return "error"
	case "medium":
		return "warning"
	default:
		return "note"
	}
}

// WriteSARIF writes findings as SARIF 2.1.0 with one rule per finding kind.
func WriteSARIF(w io.Writer, findings []types.Finding, version string) error {
	rep, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}
	run := sarif.NewRunWithInformationURI("leakgate", informationURI)
	if version != "" {
		run.Tool.Driver.Version = &version
	}
	seen := map[string]bool{}
	for _, f := range findings {
		if !seen[f.Kind] {
			seen[f.Kind] = true
			run.AddRule(f.Kind).WithDescription(fmt.Sprintf("%s credential detected", f.Kind))
		}
		msg := fmt.Sprintf("%s %s (risk %d, %s)", f.Kind, f.Match, f.RiskScore, categoryOr(f.Category))
		run.AddDistinctArtifact(f.Path)
		run.CreateResultForRule(f.Kind).
			WithLevel(sarifLevel(f.RiskScore)).
			WithMessage(sarif.NewTextMessage(msg)).
			AddLocation(sarif.NewLocationWithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewSimpleArtifactLocation(f.Path)).
					WithRegion(sarif.NewSimpleRegion(f.Line, f.Line)),
			))
	}
	rep.AddRun(run)
	return rep.PrettyWrite(w)
}

func categoryOr(c types.Category) string {
	if c == "" {
		return string(types.CategoryUnknown)
	}
	return string(c)
}
