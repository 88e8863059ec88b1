package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	sarif "github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/excflow/excflow/internal/model"
	"github.com/excflow/excflow/internal/query"
)

// SARIFFormatter renders an integration audit's uncovered exceptions as
// SARIF 2.1.0 results — one rule per exception type, one result per
// (entrypoint, exception type) pair that no handler covers.
type SARIFFormatter struct {
	writer io.Writer
}

// NewSARIFFormatter creates a SARIF formatter writing to stdout.
func NewSARIFFormatter() *SARIFFormatter {
	return &SARIFFormatter{writer: os.Stdout}
}

// NewSARIFFormatterWithWriter creates a formatter with a custom writer (for testing).
func NewSARIFFormatterWithWriter(w io.Writer) *SARIFFormatter {
	return &SARIFFormatter{writer: w}
}

// Format writes audit as a SARIF report. Only entrypoints with at least one
// uncovered exception contribute results; a fully-handled entrypoint
// contributes nothing.
func (f *SARIFFormatter) Format(audit []query.AuditResult) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}

	run := sarif.NewRunWithInformationURI("excflow", "https://github.com/excflow/excflow")
	f.buildRules(audit, run)
	for _, a := range audit {
		for _, u := range a.Uncovered {
			f.buildResult(a, u, run)
		}
	}
	report.AddRun(run)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func ruleID(excType string) string {
	return "uncaught-" + excType
}

func (f *SARIFFormatter) buildRules(audit []query.AuditResult, run *sarif.Run) {
	seen := make(map[string]bool)
	for _, a := range audit {
		for _, u := range a.Uncovered {
			if seen[u.ExceptionType] {
				continue
			}
			seen[u.ExceptionType] = true
			run.AddRule(ruleID(u.ExceptionType)).
				WithName(u.ExceptionType).
				WithDescription(fmt.Sprintf("%s can escape an entrypoint uncaught.", u.ExceptionType)).
				WithDefaultConfiguration(sarif.NewReportingConfiguration().WithLevel(levelForConfidence(u.Confidence)))
		}
	}
}

func levelForConfidence(c model.Confidence) string {
	switch c {
	case model.ConfidenceHigh:
		return "error"
	case model.ConfidenceMedium:
		return "warning"
	default:
		return "note"
	}
}

func (f *SARIFFormatter) buildResult(a query.AuditResult, u model.PropagatedRaise, run *sarif.Run) {
	message := fmt.Sprintf("%s reaches %s (%s) uncaught, %s confidence",
		u.ExceptionType, a.Entrypoint.Function, a.Entrypoint.Kind, u.Confidence)

	result := run.CreateResultForRule(ruleID(u.ExceptionType)).
		WithMessage(sarif.NewTextMessage(message))

	region := sarif.NewRegion().WithStartLine(u.Origin.Location.Line)
	if u.Origin.Location.Column > 0 {
		region.WithStartColumn(u.Origin.Location.Column)
	}
	location := sarif.NewLocation().
		WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(u.Origin.Location.File)).
				WithRegion(region),
		)
	result.AddLocation(location)

	if len(u.Path) > 0 {
		f.addCodeFlow(a, u, result)
	}
}

// addCodeFlow threads the call path from the entrypoint down to the raise
// origin as a SARIF thread flow, one location per hop.
func (f *SARIFFormatter) addCodeFlow(a query.AuditResult, u model.PropagatedRaise, result *sarif.Result) {
	var locations []*sarif.ThreadFlowLocation

	epLoc := sarif.NewLocation().
		WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(a.Entrypoint.Location.File)).
				WithRegion(sarif.NewRegion().WithStartLine(a.Entrypoint.Location.Line)),
		).
		WithMessage(sarif.NewTextMessage("entrypoint: " + a.Entrypoint.Function))
	locations = append(locations, sarif.NewThreadFlowLocation().WithLocation(epLoc))

	for _, edge := range u.Path {
		loc := sarif.NewLocation().
			WithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewArtifactLocation().WithUri(edge.Callee.File)),
			).
			WithMessage(sarif.NewTextMessage(fmt.Sprintf("%s -> %s via %s", edge.Caller.QualifiedName, edge.Callee.QualifiedName, edge.Resolution)))
		locations = append(locations, sarif.NewThreadFlowLocation().WithLocation(loc))
	}

	originLoc := sarif.NewLocation().
		WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(u.Origin.Location.File)).
				WithRegion(sarif.NewRegion().WithStartLine(u.Origin.Location.Line)),
		).
		WithMessage(sarif.NewTextMessage("raise " + u.ExceptionType))
	locations = append(locations, sarif.NewThreadFlowLocation().WithLocation(originLoc))

	threadFlow := sarif.NewThreadFlow().WithLocations(locations)
	codeFlow := sarif.NewCodeFlow().
		WithThreadFlows([]*sarif.ThreadFlow{threadFlow}).
		WithMessage(sarif.NewTextMessage(fmt.Sprintf("%s escapes to %s", u.ExceptionType, a.Entrypoint.Function)))
	result.WithCodeFlows([]*sarif.CodeFlow{codeFlow})
}
