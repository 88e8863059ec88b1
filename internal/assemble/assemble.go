// Package assemble merges per-file extractions into one whole-program
// ProgramModel: seeding the class hierarchy, building the bare/qualified
// name reverse index, and sorting every slice into a deterministic order
// (spec.md §4.6).
package assemble

import (
	"sort"

	"github.com/excflow/excflow/internal/hierarchy"
	"github.com/excflow/excflow/internal/model"
)

// Build merges extractions (one per analyzed file, in any order) into a
// single immutable ProgramModel rooted at root.
func Build(root string, extractions []model.FileExtraction) *model.ProgramModel {
	m := &model.ProgramModel{
		Root:       root,
		Functions:  make(map[model.FunctionKey]model.FunctionDef),
		Classes:    make(map[string]model.ClassDef),
		Hierarchy:  hierarchy.New(),
		NameToKeys: make(map[string][]model.FunctionKey),
		Imports:    make(map[string]*model.ImportMap),
	}

	for _, fx := range extractions {
		for _, fn := range fx.Functions {
			m.Functions[fn.Key] = fn
			addName(m, fn.Name, fn.Key)
			if fn.QualifiedName != fn.Name {
				addName(m, fn.QualifiedName, fn.Key)
			}
		}
		for _, cls := range fx.Classes {
			m.Classes[cls.QualifiedName] = cls
			m.Hierarchy.AddClass(cls.QualifiedName, cls.BaseNames)
		}
		m.RaiseSites = append(m.RaiseSites, fx.Raises...)
		m.CatchSites = append(m.CatchSites, fx.Catches...)
		m.CallSites = append(m.CallSites, fx.Calls...)
		if fx.Imports != nil {
			m.Imports[fx.File] = fx.Imports
		}
		m.Entrypoints = append(m.Entrypoints, fx.Entrypoints...)
		m.Handlers = append(m.Handlers, fx.Handlers...)
		m.Diagnostics = append(m.Diagnostics, fx.Diagnostics...)
	}

	sortModel(m)
	return m
}

func addName(m *model.ProgramModel, name string, key model.FunctionKey) {
	for _, existing := range m.NameToKeys[name] {
		if existing == key {
			return
		}
	}
	m.NameToKeys[name] = append(m.NameToKeys[name], key)
}

// sortModel orders every slice by (file, line, name) so two runs over the
// same inputs always emit byte-identical results (spec §5).
func sortModel(m *model.ProgramModel) {
	sort.Slice(m.RaiseSites, func(i, j int) bool {
		return lessLocation(m.RaiseSites[i].Location, m.RaiseSites[j].Location)
	})
	sort.Slice(m.CatchSites, func(i, j int) bool {
		return lessLocation(m.CatchSites[i].Location, m.CatchSites[j].Location)
	})
	sort.Slice(m.CallSites, func(i, j int) bool {
		return lessLocation(m.CallSites[i].Location, m.CallSites[j].Location)
	})
	sort.Slice(m.Entrypoints, func(i, j int) bool {
		return lessLocation(m.Entrypoints[i].Location, m.Entrypoints[j].Location)
	})
	sort.Slice(m.Handlers, func(i, j int) bool {
		return lessLocation(m.Handlers[i].Location, m.Handlers[j].Location)
	})
	sort.Slice(m.Diagnostics, func(i, j int) bool {
		if m.Diagnostics[i].File != m.Diagnostics[j].File {
			return m.Diagnostics[i].File < m.Diagnostics[j].File
		}
		return m.Diagnostics[i].Line < m.Diagnostics[j].Line
	})
	for _, keys := range m.NameToKeys {
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	}
}

func lessLocation(a, b model.Location) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}
