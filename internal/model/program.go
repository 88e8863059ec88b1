package model

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/excflow/excflow/internal/hierarchy"
)

// ProgramModel aggregates every FileExtraction in an analyzed directory,
// plus the merged class hierarchy and the bare/qualified-name reverse
// index used to resolve partial call targets. It is built once per session
// (internal/assemble.Build); after that the only in-place change is
// internal/propagate recording each CallSite's Resolution, CalleeKey and
// CalleeCandidates.
type ProgramModel struct {
	Root string

	Functions map[FunctionKey]FunctionDef
	Classes   map[string]ClassDef // keyed by qualified name
	Hierarchy *hierarchy.Hierarchy

	// NameToKeys indexes every function under its bare name, and again under
	// its qualified name when that differs from the bare name (spec
	// invariant: every FunctionKey appears in this index under at least its
	// bare name).
	NameToKeys map[string][]FunctionKey

	RaiseSites  []RaiseSite
	CatchSites  []CatchSite
	CallSites   []CallSite
	Imports     map[string]*ImportMap // keyed by file
	Entrypoints []Entrypoint
	Handlers    []GlobalHandler
	Diagnostics []Diagnostic
}

// AllFunctionKeys returns every key in m.Functions, sorted for deterministic
// iteration (map order is not stable across runs).
func (m *ProgramModel) AllFunctionKeys() []FunctionKey {
	keys := maps.Keys(m.Functions)
	slices.SortFunc(keys, func(a, b FunctionKey) int { return strings.Compare(a.String(), b.String()) })
	return keys
}

// FunctionsInFile returns every function defined in file, in source order.
func (m *ProgramModel) FunctionsInFile(file string) []FunctionDef {
	var out []FunctionDef
	for _, fn := range m.Functions {
		if fn.File == file {
			out = append(out, fn)
		}
	}
	slices.SortFunc(out, func(a, b FunctionDef) int { return a.Line - b.Line })
	return out
}
