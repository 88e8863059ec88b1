package model

// FunctionDef is a single function or method definition as seen by the
// extractor. ReturnType is the annotation exactly as written in source;
// resolving it to a concrete class is attempted elsewhere, never here.
type FunctionDef struct {
	Key            FunctionKey
	Name           string
	QualifiedName  string
	File           string
	Line           int
	ContainingClass string // qualified class name, empty for module-level functions
	ReturnType     string
	IsAsync        bool
}

// ClassDef is a single class declaration. BaseNames are recorded exactly as
// written in source (possibly dotted, possibly unresolved); IsException is
// set by the extractor from the class name and its bases as written (a name
// or base ending in Error/Exception, or a base of Exception/BaseException)
// and is not recomputed from the assembled ExceptionHierarchy.
type ClassDef struct {
	Name          string
	QualifiedName string
	File          string
	Line          int
	BaseNames     []string
	IsException   bool
}
