package model

// ResolutionKind classifies how a CallSite's target was, or will be,
// resolved. Extraction records every call as unresolved; internal/propagate
// assigns import/self/constructor/stub/name_fallback/polymorphic once the
// whole-program model is available. No resolution step assigns return_type.
type ResolutionKind string

const (
	ResolutionImport      ResolutionKind = "import"
	ResolutionSelf        ResolutionKind = "self"
	ResolutionConstructor ResolutionKind = "constructor"
	ResolutionReturnType  ResolutionKind = "return_type"
	ResolutionNameFallback ResolutionKind = "name_fallback"
	ResolutionPolymorphic ResolutionKind = "polymorphic"
	ResolutionStub        ResolutionKind = "stub"
	ResolutionUnresolved  ResolutionKind = "unresolved"
)

// IsHeuristic reports whether edges carrying this kind should be suppressed
// under strict resolution mode.
func (k ResolutionKind) IsHeuristic() bool {
	return k == ResolutionNameFallback || k == ResolutionPolymorphic
}

// Argument is a positional or keyword actual argument of a call expression.
// Values are not evaluated (spec Non-goal: no value tracking) — only the
// written literal text is kept, for detector argument-slot extraction.
type Argument struct {
	Position int
	Keyword  string
	Text     string
}

// CallSite is one call expression.
type CallSite struct {
	Location       Location
	Caller         FunctionKey
	CalleeBareName string
	CalleeKey      *FunctionKey
	IsMethodCall   bool
	Resolution     ResolutionKind
	Arguments      []Argument

	// CalleeCandidates holds every override sharing CalleeBareName when
	// Resolution is polymorphic, regardless of mode — each candidate
	// contributes its own low-confidence escape path in every mode except
	// strict, where heuristic edges are suppressed entirely.
	CalleeCandidates []FunctionKey
}
