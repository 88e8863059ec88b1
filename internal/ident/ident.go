// Package ident resolves user-supplied function names (CLI arguments,
// stub keys) against a ProgramModel's FunctionKey space, producing helpful
// errors with spelling suggestions when a name doesn't match exactly
// (spec.md §4.1).
package ident

import (
	"fmt"
	"sort"
	"strings"

	"github.com/excflow/excflow/internal/model"
)

// maxSuggestions bounds how many near-miss names an error reports.
const maxSuggestions = 3

// minSimilarity is the floor below which a candidate isn't worth suggesting.
const minSimilarity = 0.5

// FunctionNotFoundError is returned when name matches nothing in the model,
// optionally carrying nearby spellings.
type FunctionNotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *FunctionNotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("function not found: %q", e.Name)
	}
	return fmt.Sprintf("function not found: %q (did you mean %s?)", e.Name, strings.Join(e.Suggestions, ", "))
}

// AmbiguousFunctionError is returned when name matches more than one
// FunctionKey and the caller gave no file to disambiguate with.
type AmbiguousFunctionError struct {
	Name       string
	Candidates []model.FunctionKey
}

func (e *AmbiguousFunctionError) Error() string {
	keys := make([]string, len(e.Candidates))
	for i, k := range e.Candidates {
		keys[i] = k.String()
	}
	sort.Strings(keys)
	return fmt.Sprintf("ambiguous function %q matches %d definitions: %s", e.Name, len(keys), strings.Join(keys, ", "))
}

// Resolve maps a user-supplied name to exactly one FunctionKey.
//
// name may be:
//   - a full key in "file::qualified.name" form — looked up directly;
//   - a bare or qualified name with exactly one match in m.NameToKeys;
//   - a bare or qualified name with several matches — AmbiguousFunctionError;
//   - a name with no match at all — FunctionNotFoundError, with suggestions.
func Resolve(m *model.ProgramModel, name string) (model.FunctionKey, error) {
	if file, qualified, ok := strings.Cut(name, model.KeySeparator); ok {
		key := model.NewFunctionKey(file, qualified)
		if _, exists := m.Functions[key]; exists {
			return key, nil
		}
		return model.FunctionKey{}, &FunctionNotFoundError{Name: name, Suggestions: suggest(name, allKeyStrings(m))}
	}

	candidates := m.NameToKeys[name]
	switch len(candidates) {
	case 0:
		return model.FunctionKey{}, &FunctionNotFoundError{Name: name, Suggestions: suggest(name, allNames(m))}
	case 1:
		return candidates[0], nil
	default:
		sorted := append([]model.FunctionKey(nil), candidates...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
		return model.FunctionKey{}, &AmbiguousFunctionError{Name: name, Candidates: sorted}
	}
}

// ResolveInFile resolves name the same way Resolve does, but when multiple
// candidates share the name it narrows to the one defined in file before
// giving up and reporting ambiguity.
func ResolveInFile(m *model.ProgramModel, name, file string) (model.FunctionKey, error) {
	key, err := Resolve(m, name)
	if err == nil {
		return key, nil
	}
	var ambiguous *AmbiguousFunctionError
	if !isAmbiguous(err, &ambiguous) {
		return model.FunctionKey{}, err
	}
	var narrowed []model.FunctionKey
	for _, c := range ambiguous.Candidates {
		if c.File == file {
			narrowed = append(narrowed, c)
		}
	}
	if len(narrowed) == 1 {
		return narrowed[0], nil
	}
	if len(narrowed) > 1 {
		ambiguous.Candidates = narrowed
		return model.FunctionKey{}, ambiguous
	}
	return model.FunctionKey{}, ambiguous
}

func isAmbiguous(err error, out **AmbiguousFunctionError) bool {
	if a, ok := err.(*AmbiguousFunctionError); ok {
		*out = a
		return true
	}
	return false
}

func allNames(m *model.ProgramModel) []string {
	out := make([]string, 0, len(m.NameToKeys))
	for name := range m.NameToKeys {
		out = append(out, name)
	}
	return out
}

func allKeyStrings(m *model.ProgramModel) []string {
	out := make([]string, 0, len(m.Functions))
	for k := range m.Functions {
		out = append(out, k.String())
	}
	return out
}

// suggest returns up to maxSuggestions candidates similar enough to name,
// most similar first.
func suggest(name string, candidates []string) []string {
	type scored struct {
		name  string
		score float64
	}
	var scoredCandidates []scored
	for _, c := range candidates {
		s := similarity(name, c)
		if s >= minSimilarity {
			scoredCandidates = append(scoredCandidates, scored{c, s})
		}
	}
	sort.Slice(scoredCandidates, func(i, j int) bool {
		if scoredCandidates[i].score != scoredCandidates[j].score {
			return scoredCandidates[i].score > scoredCandidates[j].score
		}
		return scoredCandidates[i].name < scoredCandidates[j].name
	})
	if len(scoredCandidates) > maxSuggestions {
		scoredCandidates = scoredCandidates[:maxSuggestions]
	}
	out := make([]string, len(scoredCandidates))
	for i, s := range scoredCandidates {
		out[i] = s.name
	}
	return out
}

// similarity is 1 - (Levenshtein distance / longer length), in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longer)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
