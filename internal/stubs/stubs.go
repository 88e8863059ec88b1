// Package stubs loads the declarative exception-set library for external
// (non-analyzed) functions — standard-library and third-party calls the
// extractor can see but never walks into (spec.md §4.3).
package stubs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one declared external function and the exception types it is
// known to raise.
type Entry struct {
	Qualified string   `yaml:"qualified"`
	Bare      string   `yaml:"bare,omitempty"`
	Raises    []string `yaml:"raises"`
}

// fileFormat mirrors the on-disk YAML layout:
//
//	library: requests
//	entries:
//	  - qualified: requests.get
//	    raises: [requests.ConnectionError, requests.Timeout]
type fileFormat struct {
	Library string  `yaml:"library"`
	Entries []Entry `yaml:"entries"`
}

// Library resolves external calls to their declared exception sets. Lookup
// prefers an exact qualified-name match; a bare-name entry is a fallback for
// calls the extractor could only resolve by method name (spec §4.7,
// resolution kind "stub").
type Library struct {
	byQualified map[string][]string
	byBare      map[string][]string
	sources     []string
}

// New returns an empty Library.
func New() *Library {
	return &Library{
		byQualified: make(map[string][]string),
		byBare:      make(map[string][]string),
	}
}

// Load reads every *.yaml/*.yml file under dir and merges it into the
// Library. A later file's entries override an earlier file's entry for the
// same qualified name, so project-local stubs (loaded last) win over the
// bundled defaults.
func Load(dir string) (*Library, error) {
	lib := New()
	if err := lib.LoadDir(dir); err != nil {
		return nil, err
	}
	return lib, nil
}

// LoadDir merges every *.yaml/*.yml file under dir into an existing
// Library, in directory order. Used to layer project-local stubs
// (<config-dir>/stubs/) on top of an already-populated bundled Library.
func (l *Library) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read stub directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !isYAML(name) {
			continue
		}
		if err := l.LoadFile(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// LoadFS merges every *.yaml/*.yml file at the root of fsys into the
// Library, in directory order. Used to load the stub files embedded into
// the binary (data.StubsFS) without unpacking them to disk.
func (l *Library) LoadFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read embedded stub directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !isYAML(name) {
			continue
		}
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read embedded stub file %s: %w", name, err)
		}
		if err := l.loadBytes(name, raw); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile merges one stub file into the Library.
func (l *Library) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read stub file %s: %w", path, err)
	}
	if err := l.loadBytes(path, raw); err != nil {
		return err
	}
	return nil
}

func (l *Library) loadBytes(source string, raw []byte) error {
	var doc fileFormat
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse stub file %s: %w", source, err)
	}
	for _, entry := range doc.Entries {
		if entry.Qualified != "" {
			l.byQualified[entry.Qualified] = entry.Raises
		}
		if entry.Bare != "" {
			l.byBare[entry.Bare] = entry.Raises
		}
	}
	l.sources = append(l.sources, source)
	return nil
}

// GetExceptions returns the exception types declared for a call, checking
// the qualified name first and falling back to the bare name. The bool
// reports whether any stub matched at all.
func (l *Library) GetExceptions(qualifiedName, bareName string) ([]string, bool) {
	if raises, ok := l.byQualified[qualifiedName]; ok {
		return raises, true
	}
	if bareName != "" {
		if raises, ok := l.byBare[bareName]; ok {
			return raises, true
		}
	}
	return nil, false
}

// Len reports how many distinct qualified-name entries are loaded.
func (l *Library) Len() int {
	return len(l.byQualified)
}

// Sources lists every file merged into this Library, in load order.
func (l *Library) Sources() []string {
	return l.sources
}

// All returns every qualified-name entry in the Library, sorted by
// qualified name, for display (spec.md §6's `stubs list`).
func (l *Library) All() []Entry {
	out := make([]Entry, 0, len(l.byQualified))
	for qualified, raises := range l.byQualified {
		out = append(out, Entry{Qualified: qualified, Raises: raises})
	}
	sortEntries(out)
	return out
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Qualified < entries[j].Qualified })
}
