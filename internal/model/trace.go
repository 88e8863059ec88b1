package model

// TraceNode is one function visited while tracing the forward call graph
// from a root function (spec §4.8 trace_function). DirectRaises is what
// this function raises itself; Escaping is what the fixpoint already
// computed can escape it, which folds in its whole subtree. Children are
// walked only while depth stays under the configured bound.
type TraceNode struct {
	Function     FunctionKey
	DirectRaises []RaiseSite
	Escaping     []string
	Children     []*TraceNode

	// Cycle marks a stub node: Function was already on the path from the
	// trace root to here, so the walk stops instead of looping forever.
	Cycle bool

	// Truncated marks a node where the configured max depth was reached
	// before its callees, if any, could be expanded.
	Truncated bool
}
