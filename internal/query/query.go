// Package query answers the fixed set of typed questions excflow supports
// over an assembled, propagated ProgramModel (spec.md §4.8).
package query

import (
	"sort"

	"github.com/excflow/excflow/internal/ident"
	"github.com/excflow/excflow/internal/model"
)

// Engine bundles a ProgramModel with its PropagationResult — every query
// needs both.
type Engine struct {
	Model  *model.ProgramModel
	Result *model.PropagationResult

	// HandledBaseClasses names classes (config.yaml's handled_base_classes,
	// spec.md §6) whose subclasses count as covered by AuditIntegration even
	// absent a literal GlobalHandler — a project-wide "assume this framework
	// base catches everything beneath it" declaration.
	HandledBaseClasses []string
}

func New(m *model.ProgramModel, r *model.PropagationResult) *Engine {
	return &Engine{Model: m, Result: r}
}

// FindRaises returns every RaiseSite in the function named name.
func (e *Engine) FindRaises(name string) ([]model.RaiseSite, error) {
	key, err := ident.Resolve(e.Model, name)
	if err != nil {
		return nil, err
	}
	var out []model.RaiseSite
	for _, r := range e.Model.RaiseSites {
		if r.Function == key {
			out = append(out, r)
		}
	}
	return out, nil
}

// FindRaisesByException collects every RaiseSite whose exception name
// equals excName, or, when includeSubclasses is set, transitively
// subclasses excName (spec §4.8 find_raises).
func (e *Engine) FindRaisesByException(excName string, includeSubclasses bool) []model.RaiseSite {
	var out []model.RaiseSite
	for _, r := range e.Model.RaiseSites {
		if r.ExceptionType == excName {
			out = append(out, r)
			continue
		}
		if includeSubclasses && e.Model.Hierarchy.IsSubclassOf(r.ExceptionType, excName) {
			out = append(out, r)
		}
	}
	return out
}

// CatchMatch is one CatchSite matched against a queried exception name,
// recording which of its caught types matched and whether the match was
// exact or via the base-class/subclass relationship (spec §4.8 find_catches
// asks implementations to "clarify in output which direction matched").
type CatchMatch struct {
	Site        model.CatchSite
	MatchedType string
	BySubclass  bool
}

// FindCatchesByException collects every CatchSite that would catch an
// exception named excName: one of its caught types equals excName exactly,
// or, when includeSubclasses is set, excName is a subclass of one of its
// caught types (catching a base class catches every subclass raised at
// runtime — the opposite direction from FindRaisesByException).
func (e *Engine) FindCatchesByException(excName string, includeSubclasses bool) []CatchMatch {
	var out []CatchMatch
	for _, c := range e.Model.CatchSites {
		for _, caught := range c.CaughtTypes {
			if caught == model.AllExceptionsSentinel || caught == excName {
				out = append(out, CatchMatch{Site: c, MatchedType: caught, BySubclass: false})
				break
			}
			if includeSubclasses && e.Model.Hierarchy.IsSubclassOf(excName, caught) {
				out = append(out, CatchMatch{Site: c, MatchedType: caught, BySubclass: true})
				break
			}
		}
	}
	return out
}

// FindCatches returns every CatchSite in the function named name.
func (e *Engine) FindCatches(name string) ([]model.CatchSite, error) {
	key, err := ident.Resolve(e.Model, name)
	if err != nil {
		return nil, err
	}
	var out []model.CatchSite
	for _, c := range e.Model.CatchSites {
		if c.Function == key {
			out = append(out, c)
		}
	}
	return out, nil
}

// FindCallers returns every resolved CallSite whose callee is the function
// named name.
func (e *Engine) FindCallers(name string) ([]model.CallSite, error) {
	key, err := ident.Resolve(e.Model, name)
	if err != nil {
		return nil, err
	}
	var out []model.CallSite
	for _, c := range e.Model.CallSites {
		if c.CalleeKey != nil && *c.CalleeKey == key {
			out = append(out, c)
		}
	}
	return out, nil
}

// CallerResult is one function reachable by walking backward from a
// queried function through the resolved call graph.
type CallerResult struct {
	Caller     model.FunctionKey
	Resolution model.ResolutionKind
	Depth      int
}

// FindCallersTransitive returns every function that can reach name through
// one or more resolved calls — the BFS closure FindCallers takes one step
// of (spec §4.8 find_callers with the "-r" / recursive mode).
func (e *Engine) FindCallersTransitive(name string) ([]CallerResult, error) {
	key, err := ident.Resolve(e.Model, name)
	if err != nil {
		return nil, err
	}

	byCallee := make(map[model.FunctionKey][]model.CallSite)
	for _, c := range e.Model.CallSites {
		if c.CalleeKey != nil {
			byCallee[*c.CalleeKey] = append(byCallee[*c.CalleeKey], c)
		}
	}

	visited := map[model.FunctionKey]bool{key: true}
	queue := []model.FunctionKey{key}
	depth := map[model.FunctionKey]int{key: 0}
	var out []CallerResult
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, c := range byCallee[current] {
			if visited[c.Caller] {
				continue
			}
			visited[c.Caller] = true
			depth[c.Caller] = depth[current] + 1
			out = append(out, CallerResult{Caller: c.Caller, Resolution: c.Resolution, Depth: depth[c.Caller]})
			queue = append(queue, c.Caller)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].Caller.String() < out[j].Caller.String()
	})
	return out, nil
}

// FindEscapes returns the exception types that escape the function named
// name, sorted by type name, each with its chosen evidence.
func (e *Engine) FindEscapes(name string) ([]model.PropagatedRaise, error) {
	key, err := ident.Resolve(e.Model, name)
	if err != nil {
		return nil, err
	}
	raises := e.Result.Escape[key]
	out := make([]model.PropagatedRaise, 0, len(raises))
	for _, r := range raises {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExceptionType < out[j].ExceptionType })
	return out, nil
}

// TraceFunction walks the forward call graph depth-first from the function
// named name, annotating every visited function with its direct raises and
// the exception types escaping its subtree (spec §4.8 trace_function). A
// function already on the current path is recorded as a cycle stub rather
// than walked again; maxDepth bounds how deep the walk goes before a node
// is marked truncated instead of expanded.
func (e *Engine) TraceFunction(name string, maxDepth int) (*model.TraceNode, error) {
	key, err := ident.Resolve(e.Model, name)
	if err != nil {
		return nil, err
	}

	byCaller := make(map[model.FunctionKey][]model.FunctionKey)
	for _, c := range e.Model.CallSites {
		for _, callee := range calleesOf(c) {
			byCaller[c.Caller] = appendUniqueKey(byCaller[c.Caller], callee)
		}
	}

	onPath := make(map[model.FunctionKey]bool)
	return e.traceNode(key, byCaller, onPath, 0, maxDepth), nil
}

func (e *Engine) traceNode(key model.FunctionKey, byCaller map[model.FunctionKey][]model.FunctionKey, onPath map[model.FunctionKey]bool, depth, maxDepth int) *model.TraceNode {
	if onPath[key] {
		return &model.TraceNode{Function: key, Cycle: true}
	}

	escaping := e.Result.EscapeTypes(key)
	sort.Strings(escaping)
	node := &model.TraceNode{
		Function:     key,
		DirectRaises: e.directRaises(key),
		Escaping:     escaping,
	}

	if depth >= maxDepth {
		node.Truncated = true
		return node
	}

	onPath[key] = true
	for _, callee := range byCaller[key] {
		node.Children = append(node.Children, e.traceNode(callee, byCaller, onPath, depth+1, maxDepth))
	}
	delete(onPath, key)

	return node
}

func (e *Engine) directRaises(key model.FunctionKey) []model.RaiseSite {
	var out []model.RaiseSite
	for _, r := range e.Model.RaiseSites {
		if r.Function == key {
			out = append(out, r)
		}
	}
	return out
}

// calleesOf returns every function a resolved CallSite can reach: the
// single CalleeKey for an ordinary resolution, or every CalleeCandidates
// entry for a polymorphic one.
func calleesOf(c model.CallSite) []model.FunctionKey {
	if c.CalleeKey != nil {
		return []model.FunctionKey{*c.CalleeKey}
	}
	return c.CalleeCandidates
}

func appendUniqueKey(list []model.FunctionKey, key model.FunctionKey) []model.FunctionKey {
	for _, k := range list {
		if k == key {
			return list
		}
	}
	return append(list, key)
}

// AuditResult is one entrypoint's unhandled-exception audit: whether any
// global handler covers everything that escapes it, and if not, what's
// left uncovered.
type AuditResult struct {
	Entrypoint model.Entrypoint
	Escaping   []model.PropagatedRaise
	Uncovered  []model.PropagatedRaise
}

// AuditIntegration evaluates every detected Entrypoint against the set of
// GlobalHandlers, reporting which escaping exception types no handler
// covers (spec §4.8's framework-boundary audit).
func (e *Engine) AuditIntegration() []AuditResult {
	var results []AuditResult
	for _, ep := range e.Model.Entrypoints {
		key, err := ident.Resolve(e.Model, ep.Function)
		if err != nil {
			continue
		}
		raises := e.Result.Escape[key]
		escaping := make([]model.PropagatedRaise, 0, len(raises))
		for _, r := range raises {
			escaping = append(escaping, r)
		}
		sort.Slice(escaping, func(i, j int) bool { return escaping[i].ExceptionType < escaping[j].ExceptionType })

		var uncovered []model.PropagatedRaise
		for _, r := range escaping {
			if !e.coveredByHandler(r.ExceptionType) {
				uncovered = append(uncovered, r)
			}
		}
		results = append(results, AuditResult{Entrypoint: ep, Escaping: escaping, Uncovered: uncovered})
	}
	sort.Slice(results, func(i, j int) bool {
		return lessLocation(results[i].Entrypoint.Location, results[j].Entrypoint.Location)
	})
	return results
}

func (e *Engine) coveredByHandler(excType string) bool {
	for _, h := range e.Model.Handlers {
		if h.ExceptionType == model.AllExceptionsSentinel || h.ExceptionType == excType {
			return true
		}
		if e.Model.Hierarchy.IsSubclassOf(excType, h.ExceptionType) {
			return true
		}
	}
	for _, base := range e.HandledBaseClasses {
		if excType == base || e.Model.Hierarchy.IsSubclassOf(excType, base) {
			return true
		}
	}
	return false
}

// RoutesToException returns every HTTP-route or CLI-script Entrypoint from
// which excType can escape, with evidence.
func (e *Engine) RoutesToException(excType string) []AuditResult {
	var results []AuditResult
	for _, ep := range e.Model.Entrypoints {
		key, err := ident.Resolve(e.Model, ep.Function)
		if err != nil {
			continue
		}
		if raise, ok := e.Result.Escape[key][excType]; ok {
			results = append(results, AuditResult{Entrypoint: ep, Escaping: []model.PropagatedRaise{raise}})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return lessLocation(results[i].Entrypoint.Location, results[j].Entrypoint.Location)
	})
	return results
}

func lessLocation(a, b model.Location) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	return a.Line < b.Line
}
