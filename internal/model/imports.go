package model

// ImportMap is one file's local-name -> origin-qualified-name bindings.
//
// "from pkg.mod import foo" binds foo -> pkg.mod.foo.
// "import pkg.mod" binds both pkg.mod -> pkg.mod and mod -> pkg.mod (the
// trailing segment is retained as a second, shorter key).
type ImportMap struct {
	File    string
	Bindings map[string]string
}

// NewImportMap creates an empty map for the given file.
func NewImportMap(file string) *ImportMap {
	return &ImportMap{File: file, Bindings: make(map[string]string)}
}

// Bind records a local-name -> qualified-name binding. A later call with the
// same local name overwrites an earlier one (last import wins, matching
// Python's own rebinding semantics).
func (m *ImportMap) Bind(local, qualified string) {
	m.Bindings[local] = qualified
}

// Resolve looks up a local name, reporting whether it is bound.
func (m *ImportMap) Resolve(local string) (string, bool) {
	qualified, ok := m.Bindings[local]
	return qualified, ok
}
