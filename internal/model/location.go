// Package model defines the shared data types that flow through every stage
// of the pipeline: extraction, assembly, propagation, and querying.
package model

import "fmt"

// Location is a source position within one analyzed file.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// KeySeparator joins a relative file path and a qualified name into a
// FunctionKey's string form. It must not appear inside either component,
// which rules out any character legal in a file path or a dotted Python
// identifier.
const KeySeparator = "::"

// FunctionKey is the canonical identity of a function or method: the pair
// (relative file path, qualified name) rendered unambiguously.
type FunctionKey struct {
	File          string
	QualifiedName string
}

// String renders the key in its "file::qualified.name" wire form.
func (k FunctionKey) String() string {
	return k.File + KeySeparator + k.QualifiedName
}

// NewFunctionKey builds a key from its two components.
func NewFunctionKey(file, qualifiedName string) FunctionKey {
	return FunctionKey{File: file, QualifiedName: qualifiedName}
}
