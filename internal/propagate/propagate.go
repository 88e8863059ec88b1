// Package propagate computes, for every function in a ProgramModel, the set
// of exception types that can escape it: raised locally and not caught, or
// raised by a callee and not caught here either. Propagation is a forward
// fixpoint over the resolved call graph (spec.md §4.7).
package propagate

import (
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/excflow/excflow/internal/hierarchy"
	"github.com/excflow/excflow/internal/model"
	"github.com/excflow/excflow/internal/stubs"
)

// maxIterations guards the fixpoint loop against a call graph whose
// resolution produced a cycle that keeps introducing "new" escape types
// forever — it shouldn't happen once a function's escape set is a subset
// of Exception, but a malformed or adversarial hierarchy could still defeat
// the monotonicity argument, so the guard is load-bearing, not decorative.
const maxIterations = 100

// resultCache memoizes PropagationResult by (model, mode, stub library)
// identity — rebuilding propagation for the same inputs is pure waste, and
// cmd/ calls Propagate once per query-serving session regardless of how
// many queries the user runs against it.
var resultCache, _ = lru.New[cacheKey, *model.PropagationResult](32)

type cacheKey struct {
	model *model.ProgramModel
	lib   *stubs.Library
	mode  model.ResolutionMode
}

// Propagate computes escape sets for every function in m under mode,
// consulting lib for external-call exception sets.
func Propagate(m *model.ProgramModel, lib *stubs.Library, mode model.ResolutionMode) *model.PropagationResult {
	key := cacheKey{model: m, lib: lib, mode: mode}
	if cached, ok := resultCache.Get(key); ok {
		return cached
	}

	g := buildGraph(m, lib, mode)
	result := fixpoint(m, g, mode)
	resultCache.Add(key, result)
	return result
}

// graphEdge is one resolved call, retained with enough evidence to build a
// PropagatedRaise path.
type graphEdge struct {
	callee     model.FunctionKey
	resolution model.ResolutionKind
	stubRaises []string // populated only when resolution == ResolutionStub
}

// graph is the forward call graph: caller -> outgoing resolved edges.
type graph struct {
	edges map[model.FunctionKey][]graphEdge
}

// buildGraph resolves every CallSite's CalleeKey/Resolution and records the
// result back onto m.CallSites — the only mutation a ProgramModel ever
// undergoes after internal/assemble builds it, since resolution only ever
// fills in a *FunctionKey that started nil, and is therefore idempotent
// no matter how many times Propagate runs.
func buildGraph(m *model.ProgramModel, lib *stubs.Library, mode model.ResolutionMode) *graph {
	g := &graph{edges: make(map[model.FunctionKey][]graphEdge)}

	for i := range m.CallSites {
		call := m.CallSites[i]
		kind, calleeKey, candidates := resolveCallee(call, m, lib)
		edgesResolved.WithLabelValues(string(kind)).Inc()
		m.CallSites[i].Resolution = kind
		m.CallSites[i].CalleeKey = calleeKey
		m.CallSites[i].CalleeCandidates = candidates

		if mode == model.ModeStrict && kind.IsHeuristic() {
			continue
		}

		if kind == model.ResolutionStub {
			raises, _ := lib.GetExceptions(call.CalleeBareName, call.CalleeBareName)
			g.edges[call.Caller] = append(g.edges[call.Caller], graphEdge{resolution: kind, stubRaises: raises})
			continue
		}

		if kind == model.ResolutionPolymorphic {
			// Every override sharing the call's bare name is considered, in
			// every mode but strict (already filtered above) — polymorphism
			// is modeled as name_to_keys expansion, not as a separate
			// aggressive-only mechanism (spec.md §9).
			for _, candidate := range candidates {
				g.edges[call.Caller] = append(g.edges[call.Caller], graphEdge{callee: candidate, resolution: kind})
			}
			continue
		}

		if calleeKey == nil {
			continue
		}
		g.edges[call.Caller] = append(g.edges[call.Caller], graphEdge{callee: *calleeKey, resolution: kind})
	}

	return g
}

// fixpoint runs the forward propagation to a monotone fixpoint: each
// iteration recomputes every function's escape set from its local raises
// (minus what it catches) plus each callee's current escape set (again
// minus what's caught locally), stopping when no function's escape set
// grew in a full pass.
func fixpoint(m *model.ProgramModel, g *graph, mode model.ResolutionMode) *model.PropagationResult {
	localRaises := groupRaisesByFunction(m)
	caughtBy := buildCaughtSets(m)

	escape := make(map[model.FunctionKey]map[string]model.PropagatedRaise)
	for key := range m.Functions {
		escape[key] = make(map[string]model.PropagatedRaise)
	}

	converged := false
	iteration := 0
	for ; iteration < maxIterations; iteration++ {
		changed := false

		for key := range m.Functions {
			caught := caughtBy[key]

			for _, origin := range localRaises[key] {
				if isCaught(m.Hierarchy, caught, origin.ExceptionType) {
					continue
				}
				if setIfNew(escape[key], origin.ExceptionType, model.PropagatedRaise{
					ExceptionType: origin.ExceptionType,
					Origin:        origin,
					Confidence:    model.ConfidenceHigh,
				}) {
					changed = true
				}
			}

			for _, edge := range g.edges[key] {
				if edge.resolution == model.ResolutionStub {
					for _, excType := range edge.stubRaises {
						if isCaught(m.Hierarchy, caught, excType) {
							continue
						}
						if setIfNew(escape[key], excType, model.PropagatedRaise{
							ExceptionType: excType,
							Confidence:    model.ConfidenceMedium,
						}) {
							changed = true
						}
					}
					continue
				}

				for excType, calleeRaise := range escape[edge.callee] {
					if isCaught(m.Hierarchy, caught, excType) {
						continue
					}
					candidate := extendPath(calleeRaise, key, edge)
					if mergeIfBetter(escape[key], excType, candidate) {
						changed = true
					}
				}
			}
		}

		if !changed {
			converged = true
			iteration++
			break
		}
	}

	iterationsRun.Observe(float64(iteration))
	functionsModeled.Set(float64(len(m.Functions)))

	return &model.PropagationResult{
		Mode:       mode,
		Escape:     escape,
		CaughtBy:   toBoolSets(m.Hierarchy, caughtBy),
		Converged:  converged,
		Iterations: iteration,
	}
}

func groupRaisesByFunction(m *model.ProgramModel) map[model.FunctionKey][]model.RaiseSite {
	out := make(map[model.FunctionKey][]model.RaiseSite)
	for _, r := range m.RaiseSites {
		if r.ExceptionType == "" || r.IsReraise {
			continue
		}
		out[r.Function] = append(out[r.Function], r)
	}
	return out
}

// buildCaughtSets groups catch clauses by function, leaving out a clause
// that re-raises: each reraise site belongs to the nearest preceding clause
// of its function that names its type, and that clause does not catch.
func buildCaughtSets(m *model.ProgramModel) map[model.FunctionKey][]model.CatchSite {
	reraising := make(map[int]bool)
	for _, r := range m.RaiseSites {
		best := -1
		for i, c := range m.CatchSites {
			if r.IsReraise && c.Function == r.Function && c.Location.Line <= r.Location.Line && slices.Contains(c.CaughtTypes, r.ExceptionType) && (best == -1 || c.Location.Line > m.CatchSites[best].Location.Line) {
				best = i
			}
		}
		reraising[best] = true
	}
	out := make(map[model.FunctionKey][]model.CatchSite)
	for i, c := range m.CatchSites {
		if !reraising[i] {
			out[c.Function] = append(out[c.Function], c)
		}
	}
	return out
}

func isCaught(h *hierarchy.Hierarchy, catches []model.CatchSite, excType string) bool {
	for _, c := range catches {
		if c.CatchesAll() {
			return true
		}
		for _, caughtType := range c.CaughtTypes {
			if excType == caughtType || h.IsSubclassOf(excType, caughtType) {
				return true
			}
		}
	}
	return false
}

func toBoolSets(h *hierarchy.Hierarchy, catches map[model.FunctionKey][]model.CatchSite) map[model.FunctionKey]map[string]bool {
	out := make(map[model.FunctionKey]map[string]bool, len(catches))
	for key, sites := range catches {
		set := make(map[string]bool)
		for _, c := range sites {
			for _, t := range c.CaughtTypes {
				set[t] = true
				for _, sub := range h.GetSubclasses(t) {
					set[sub] = true
				}
			}
		}
		out[key] = set
	}
	return out
}

// setIfNew records a PropagatedRaise only if excType isn't already present.
func setIfNew(set map[string]model.PropagatedRaise, excType string, raise model.PropagatedRaise) bool {
	if _, exists := set[excType]; exists {
		return false
	}
	set[excType] = raise
	return true
}

// mergeIfBetter keeps the shorter (or, tied, higher-confidence) evidence
// path when two call paths explain the same exception type escaping the
// same function.
func mergeIfBetter(set map[string]model.PropagatedRaise, excType string, candidate model.PropagatedRaise) bool {
	existing, ok := set[excType]
	if !ok {
		set[excType] = candidate
		return true
	}
	rank := map[model.Confidence]int{model.ConfidenceLow: 0, model.ConfidenceMedium: 1, model.ConfidenceHigh: 2}
	if candidate.HopCount() < existing.HopCount() ||
		(candidate.HopCount() == existing.HopCount() && rank[candidate.Confidence] > rank[existing.Confidence]) {
		set[excType] = candidate
		return true
	}
	return false
}

func extendPath(calleeRaise model.PropagatedRaise, caller model.FunctionKey, edge graphEdge) model.PropagatedRaise {
	path := append([]model.ResolutionEdge{{
		Caller:     caller,
		Callee:     edge.callee,
		Resolution: edge.resolution,
		Heuristic:  edge.resolution.IsHeuristic(),
	}}, calleeRaise.Path...)

	return model.PropagatedRaise{
		ExceptionType: calleeRaise.ExceptionType,
		Origin:        calleeRaise.Origin,
		Path:          path,
		Confidence:    confidenceFor(path),
	}
}

// confidenceFor derives a Confidence from the resolution kinds on a path:
// high if every edge is import/self/constructor, medium if the path
// includes a stub or return_type edge but no heuristic, low if any edge is
// name_fallback or polymorphic.
func confidenceFor(path []model.ResolutionEdge) model.Confidence {
	confidence := model.ConfidenceHigh
	for _, edge := range path {
		if edge.Heuristic {
			return model.ConfidenceLow
		}
		if edge.Resolution == model.ResolutionStub || edge.Resolution == model.ResolutionReturnType {
			confidence = model.ConfidenceMedium
		}
	}
	return confidence
}
