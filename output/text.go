package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/excflow/excflow/internal/model"
	"github.com/excflow/excflow/internal/query"
)

// TextFormatter renders query results as human-readable text.
type TextFormatter struct {
	writer  io.Writer
	options *OutputOptions
	logger  *Logger
	color   bool
}

// NewTextFormatter creates a text formatter writing to stdout.
func NewTextFormatter(opts *OutputOptions, logger *Logger) *TextFormatter {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	return &TextFormatter{
		writer:  os.Stdout,
		options: opts,
		logger:  logger,
		color:   IsTTY(os.Stdout),
	}
}

// NewTextFormatterWithWriter creates a formatter with a custom writer (for testing).
func NewTextFormatterWithWriter(w io.Writer, opts *OutputOptions, logger *Logger) *TextFormatter {
	tf := NewTextFormatter(opts, logger)
	tf.writer = w
	tf.color = false
	return tf
}

func (f *TextFormatter) confidenceColor(c model.Confidence) func(format string, a ...interface{}) string {
	if !f.color {
		return fmt.Sprintf
	}
	switch c {
	case model.ConfidenceHigh:
		return color.New(color.FgRed, color.Bold).SprintfFunc()
	case model.ConfidenceMedium:
		return color.New(color.FgYellow).SprintfFunc()
	default:
		return color.New(color.FgCyan).SprintfFunc()
	}
}

// FormatRaises renders the raise sites found in one function.
func (f *TextFormatter) FormatRaises(functionName string, raises []model.RaiseSite) error {
	if len(raises) == 0 {
		fmt.Fprintf(f.writer, "%s raises nothing directly.\n", functionName)
		return nil
	}
	fmt.Fprintf(f.writer, "%s raises (%d):\n\n", functionName, len(raises))
	for _, r := range raises {
		reraise := ""
		if r.IsReraise {
			reraise = " (reraise)"
		}
		fmt.Fprintf(f.writer, "  %s  %s%s\n", r.Location, r.ExceptionType, reraise)
	}
	return nil
}

// FormatRaisesByException renders every raise site matching an exception
// name query.
func (f *TextFormatter) FormatRaisesByException(excName string, raises []model.RaiseSite) error {
	if len(raises) == 0 {
		fmt.Fprintf(f.writer, "No raise sites found for %s.\n", excName)
		return nil
	}
	fmt.Fprintf(f.writer, "Raise sites for %s (%d):\n\n", excName, len(raises))
	for _, r := range raises {
		reraise := ""
		if r.IsReraise {
			reraise = " (reraise)"
		}
		fmt.Fprintf(f.writer, "  %s  %s raises %s%s\n", r.Location, r.Function, r.ExceptionType, reraise)
	}
	return nil
}

// FormatCatchesByException renders every catch site matching an exception
// name query, noting whether each matched exactly or via a base class.
func (f *TextFormatter) FormatCatchesByException(excName string, matches []query.CatchMatch) error {
	if len(matches) == 0 {
		fmt.Fprintf(f.writer, "No catch sites found for %s.\n", excName)
		return nil
	}
	fmt.Fprintf(f.writer, "Catch sites for %s (%d):\n\n", excName, len(matches))
	for _, m := range matches {
		direction := "exact"
		if m.BySubclass {
			direction = fmt.Sprintf("%s is a subclass of %s", excName, m.MatchedType)
		}
		fmt.Fprintf(f.writer, "  %s  %s except %v  (%s)\n",
			m.Site.Location, m.Site.Function, m.Site.CaughtTypes, direction)
	}
	return nil
}

// FormatCatches renders the catch clauses found in one function.
func (f *TextFormatter) FormatCatches(functionName string, catches []model.CatchSite) error {
	if len(catches) == 0 {
		fmt.Fprintf(f.writer, "%s catches nothing.\n", functionName)
		return nil
	}
	fmt.Fprintf(f.writer, "%s catches (%d):\n\n", functionName, len(catches))
	for _, c := range catches {
		group := ""
		if c.IsGroup {
			group = "*"
		}
		fmt.Fprintf(f.writer, "  %s  except%s %v\n", c.Location, group, c.CaughtTypes)
	}
	return nil
}

// FormatCallers renders the call sites whose callee resolves to one function.
func (f *TextFormatter) FormatCallers(functionName string, calls []model.CallSite) error {
	if len(calls) == 0 {
		fmt.Fprintf(f.writer, "No resolved callers of %s.\n", functionName)
		return nil
	}
	fmt.Fprintf(f.writer, "Callers of %s (%d):\n\n", functionName, len(calls))
	for _, c := range calls {
		fmt.Fprintf(f.writer, "  %s  %s (%s)\n", c.Location, c.Caller.QualifiedName, c.Resolution)
	}
	return nil
}

// FormatCallersTransitive renders the transitive-caller closure of one
// function, grouped by depth.
func (f *TextFormatter) FormatCallersTransitive(functionName string, results []query.CallerResult) error {
	if len(results) == 0 {
		fmt.Fprintf(f.writer, "No callers reach %s.\n", functionName)
		return nil
	}
	fmt.Fprintf(f.writer, "Callers reaching %s, transitively (%d):\n\n", functionName, len(results))
	for _, r := range results {
		fmt.Fprintf(f.writer, "  depth %d  %s (%s)\n", r.Depth, r.Caller, r.Resolution)
	}
	return nil
}

// FormatExceptionHierarchy renders every known exception type with its
// immediate bases.
func (f *TextFormatter) FormatExceptionHierarchy(entries []ExceptionTypeEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(f.writer, "No exception types known.")
		return nil
	}
	fmt.Fprintf(f.writer, "Exception types (%d):\n\n", len(entries))
	for _, e := range entries {
		if len(e.Bases) == 0 {
			fmt.Fprintf(f.writer, "  %s\n", e.Name)
			continue
		}
		fmt.Fprintf(f.writer, "  %s  (%v)\n", e.Name, e.Bases)
	}
	return nil
}

// FormatSubclasses renders every known subclass of one exception type.
func (f *TextFormatter) FormatSubclasses(className string, subclasses []string) error {
	if len(subclasses) == 0 {
		fmt.Fprintf(f.writer, "No known subclasses of %s.\n", className)
		return nil
	}
	fmt.Fprintf(f.writer, "Subclasses of %s (%d):\n\n", className, len(subclasses))
	for _, name := range subclasses {
		fmt.Fprintf(f.writer, "  %s\n", name)
	}
	return nil
}

// FormatStats renders summary counts for one analyzed program.
func (f *TextFormatter) FormatStats(s StatsResult) error {
	fmt.Fprintln(f.writer, "Program statistics:")
	fmt.Fprintf(f.writer, "  files                %d\n", s.Files)
	fmt.Fprintf(f.writer, "  functions            %d\n", s.Functions)
	fmt.Fprintf(f.writer, "  classes              %d\n", s.Classes)
	fmt.Fprintf(f.writer, "  raise sites          %d\n", s.RaiseSites)
	fmt.Fprintf(f.writer, "  catch sites          %d\n", s.CatchSites)
	fmt.Fprintf(f.writer, "  call sites           %d\n", s.CallSites)
	fmt.Fprintf(f.writer, "  entrypoints          %d\n", s.Entrypoints)
	fmt.Fprintf(f.writer, "  global handlers      %d\n", s.GlobalHandlers)
	fmt.Fprintf(f.writer, "  diagnostics          %d\n", s.Diagnostics)
	fmt.Fprintf(f.writer, "  exception types      %d\n", s.ExceptionTypes)
	fmt.Fprintf(f.writer, "  stub entries         %d\n", s.StubEntries)
	fmt.Fprintf(f.writer, "  resolution mode      %s\n", s.ResolutionMode)
	return nil
}

// FormatEscapes renders the exception types escaping one function, grouped
// by confidence.
func (f *TextFormatter) FormatEscapes(functionName string, escapes []model.PropagatedRaise) error {
	if len(escapes) == 0 {
		fmt.Fprintf(f.writer, "Nothing escapes %s.\n", functionName)
		return nil
	}
	fmt.Fprintf(f.writer, "Exceptions escaping %s (%d):\n\n", functionName, len(escapes))
	f.writeConfidenceGroups(escapes, false)
	return nil
}

// FormatTrace renders a call tree produced by query.Engine.TraceFunction:
// one indented line per visited function, its direct raises, and the
// exception types escaping its subtree.
func (f *TextFormatter) FormatTrace(tree *model.TraceNode) error {
	if tree == nil {
		fmt.Fprintln(f.writer, "Nothing to trace.")
		return nil
	}
	f.writeTraceNode(tree, 0)
	return nil
}

func (f *TextFormatter) writeTraceNode(node *model.TraceNode, depth int) {
	indent := ""
	if depth > 0 {
		indent = fmt.Sprintf("%*s", depth*2, "")
	}

	if node.Cycle {
		fmt.Fprintf(f.writer, "%s%s  ...(see above)\n", indent, node.Function.QualifiedName)
		return
	}

	fmt.Fprintf(f.writer, "%s%s\n", indent, node.Function.QualifiedName)
	for _, r := range node.DirectRaises {
		reraise := ""
		if r.IsReraise {
			reraise = " (reraise)"
		}
		fmt.Fprintf(f.writer, "%s  raises %s at %s%s\n", indent, r.ExceptionType, r.Location, reraise)
	}
	if len(node.Escaping) > 0 {
		fmt.Fprintf(f.writer, "%s  escapes: %v\n", indent, node.Escaping)
	}
	if node.Truncated {
		fmt.Fprintf(f.writer, "%s  ...(max depth reached)\n", indent)
		return
	}
	for _, child := range node.Children {
		f.writeTraceNode(child, depth+1)
	}
}

func (f *TextFormatter) writeConfidenceGroups(escapes []model.PropagatedRaise, withPath bool) {
	grouped := map[model.Confidence][]model.PropagatedRaise{}
	for _, e := range escapes {
		grouped[e.Confidence] = append(grouped[e.Confidence], e)
	}
	for _, level := range []model.Confidence{model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow} {
		group := grouped[level]
		if len(group) == 0 {
			continue
		}
		colorize := f.confidenceColor(level)
		fmt.Fprintln(f.writer, colorize("  %s confidence (%d):", level, len(group)))
		for _, e := range group {
			fmt.Fprintf(f.writer, "    %-30s origin %s\n", e.ExceptionType, e.Origin.Location)
			if withPath {
				f.writePath(e.Path)
			}
		}
		fmt.Fprintln(f.writer)
	}
}

func (f *TextFormatter) writePath(path []model.ResolutionEdge) {
	for i, edge := range path {
		heuristic := ""
		if edge.Heuristic {
			heuristic = " (heuristic)"
		}
		fmt.Fprintf(f.writer, "      %d. %s -> %s via %s%s\n",
			i+1, edge.Caller.QualifiedName, edge.Callee.QualifiedName, edge.Resolution, heuristic)
	}
}

// FormatAudit renders an entrypoint-by-entrypoint unhandled-exception audit.
func (f *TextFormatter) FormatAudit(results []query.AuditResult) error {
	if len(results) == 0 {
		fmt.Fprintln(f.writer, "No entrypoints detected.")
		return nil
	}
	uncoveredTotal := 0
	for _, r := range results {
		uncoveredTotal += len(r.Uncovered)
	}
	fmt.Fprintf(f.writer, "Integration audit: %d entrypoints, %d with uncovered exceptions\n\n",
		len(results), countWithUncovered(results))

	for _, r := range results {
		fmt.Fprintf(f.writer, "%s  %s (%s)\n", r.Entrypoint.Location, r.Entrypoint.Function, r.Entrypoint.Kind)
		if len(r.Uncovered) == 0 {
			fmt.Fprintln(f.writer, "    fully covered")
			fmt.Fprintln(f.writer)
			continue
		}
		for _, u := range r.Uncovered {
			colorize := f.confidenceColor(u.Confidence)
			fmt.Fprintln(f.writer, colorize("    uncovered: %s (origin %s, %s confidence)", u.ExceptionType, u.Origin.Location, u.Confidence))
		}
		fmt.Fprintln(f.writer)
	}
	return nil
}

func countWithUncovered(results []query.AuditResult) int {
	n := 0
	for _, r := range results {
		if len(r.Uncovered) > 0 {
			n++
		}
	}
	return n
}

// FormatEntrypoints renders every detected entrypoint.
func (f *TextFormatter) FormatEntrypoints(eps []model.Entrypoint) error {
	if len(eps) == 0 {
		fmt.Fprintln(f.writer, "No entrypoints detected.")
		return nil
	}
	fmt.Fprintf(f.writer, "Entrypoints (%d):\n\n", len(eps))
	for _, ep := range eps {
		fmt.Fprintf(f.writer, "  %s  %s (%s)\n", ep.Location, ep.Function, ep.Kind)
	}
	return nil
}

// FormatRoutesTo renders every entrypoint from which one exception type can
// escape.
func (f *TextFormatter) FormatRoutesTo(excType string, results []query.AuditResult) error {
	if len(results) == 0 {
		fmt.Fprintf(f.writer, "No entrypoint reaches %s.\n", excType)
		return nil
	}
	fmt.Fprintf(f.writer, "Entrypoints reaching %s (%d):\n\n", excType, len(results))
	for _, r := range results {
		fmt.Fprintf(f.writer, "  %s  %s (%s)\n", r.Entrypoint.Location, r.Entrypoint.Function, r.Entrypoint.Kind)
	}
	return nil
}
