// Package hierarchy maintains the "is immediate base of" relation over class
// qualified names and answers is_subclass_of queries by BFS over it, with a
// memoized transitive closure (spec.md §4.2).
package hierarchy

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// BuiltinRoots are seeded into every new Hierarchy so that "except Exception"
// and "except BaseException" resolve even in a program that never declares
// them itself.
var BuiltinRoots = []string{"Exception", "BaseException"}

// memoCapacity bounds the is_subclass_of result cache. Real codebases see a
// working set of a few thousand distinct (child, ancestor) pairs; 1<<16
// keeps the cache far larger than that while staying fixed-size.
const memoCapacity = 1 << 16

// Hierarchy is an ordered set of class declarations with their bases, plus
// the memoized subclass closure computed over them.
type Hierarchy struct {
	bases map[string][]string // qualified name -> immediate base qualified names
	order []string            // insertion order, for deterministic enumeration
	memo  *lru.Cache[pairKey, bool]
}

type pairKey struct {
	child, ancestor string
}

// New returns a Hierarchy pre-seeded with BuiltinRoots.
func New() *Hierarchy {
	memo, _ := lru.New[pairKey, bool](memoCapacity)
	h := &Hierarchy{
		bases: make(map[string][]string),
		memo:  memo,
	}
	for _, root := range BuiltinRoots {
		h.AddClass(root, nil)
	}
	return h
}

// AddClass registers a class and its immediate bases. Bases named but never
// themselves registered remain roots — they are never fabricated as
// subclasses of anything (spec invariant).
//
// Adding a class invalidates the memoized closure: a newly declared base
// edge can only ever add reachability, so rather than reason about which
// entries are now stale we simply purge everything and let it repopulate
// lazily on the next round of queries.
func (h *Hierarchy) AddClass(qualifiedName string, baseNames []string) {
	if _, exists := h.bases[qualifiedName]; !exists {
		h.order = append(h.order, qualifiedName)
	}
	h.bases[qualifiedName] = append(h.bases[qualifiedName], baseNames...)
	h.memo.Purge()
}

// IsSubclassOf reports whether child transitively names ancestor as a base.
// is_subclass_of(X, X) is true for every class this Hierarchy has seen,
// including classes that only ever appear as an unresolved base name.
func (h *Hierarchy) IsSubclassOf(child, ancestor string) bool {
	if child == ancestor {
		return true
	}
	if cached, ok := h.memo.Get(pairKey{child, ancestor}); ok {
		return cached
	}

	visited := map[string]bool{child: true}
	queue := []string{child}
	found := false
	for len(queue) > 0 && !found {
		current := queue[0]
		queue = queue[1:]
		for _, base := range h.bases[current] {
			if base == ancestor {
				found = true
				break
			}
			if !visited[base] {
				visited[base] = true
				queue = append(queue, base)
			}
		}
	}

	h.memo.Add(pairKey{child, ancestor}, found)
	return found
}

// GetSubclasses returns every known class that transitively names ancestor
// as a base, in the order classes were added.
func (h *Hierarchy) GetSubclasses(ancestor string) []string {
	var result []string
	for _, name := range h.order {
		if name != ancestor && h.IsSubclassOf(name, ancestor) {
			result = append(result, name)
		}
	}
	return result
}

// GetAllExceptionTypes returns every known class that is a subclass of
// Exception (including Exception itself), in insertion order.
func (h *Hierarchy) GetAllExceptionTypes() []string {
	var result []string
	for _, name := range h.order {
		if h.IsSubclassOf(name, "Exception") {
			result = append(result, name)
		}
	}
	return result
}

// ExpandWithSubclasses returns name plus every known subclass of name —
// the set a catch clause naming `name` actually matches.
func (h *Hierarchy) ExpandWithSubclasses(name string) []string {
	return append([]string{name}, h.GetSubclasses(name)...)
}

// Known reports whether a qualified name has been registered through
// AddClass; a name that appears only as a base of some other class is not
// known.
func (h *Hierarchy) Known(qualifiedName string) bool {
	_, ok := h.bases[qualifiedName]
	return ok
}

// Bases returns name's immediate base names, in declaration order.
func (h *Hierarchy) Bases(qualifiedName string) []string {
	return append([]string(nil), h.bases[qualifiedName]...)
}
