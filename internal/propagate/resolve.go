package propagate

import (
	"path/filepath"
	"strings"

	"github.com/excflow/excflow/internal/model"
	"github.com/excflow/excflow/internal/stubs"
)

// resolveCallee assigns a CalleeKey and ResolutionKind to one CallSite,
// given the whole-program model and the stub library. It never mutates
// its inputs — buildGraph writes the result back onto the model's CallSite
// (spec §4.7: extraction produces unresolved calls, propagation resolves
// them against the assembled model).
//
// Resolution is attempted in this order, matching spec §4.7's precedence:
//  1. import: the bare name is bound in the caller's file's ImportMap, and
//     either binding.bare_name is a known qualified name or the binding
//     pkg.mod.f names a function f defined in the project file pkg/mod.py.
//  2. self: a call inside a method whose bare name is another method of
//     the same class; the call's receiver is not examined, so this is not
//     limited to `self.` calls.
//  3. constructor: call to a known class name resolves to its __init__.
//  4. stub: the call's bare name is found in the stub library, looked up
//     against both its qualified and its bare-name entries.
//  5. name_fallback: exactly one function anywhere in the program shares
//     this bare name (heuristic, suppressed in strict mode).
//  6. polymorphic: more than one function shares this bare name and the
//     call is a method call — every same-named override is a candidate
//     (heuristic, suppressed in strict mode).
//  7. unresolved: nothing matched.
func resolveCallee(call model.CallSite, m *model.ProgramModel, lib *stubs.Library) (model.ResolutionKind, *model.FunctionKey, []model.FunctionKey) {
	callerFile := call.Caller.File
	bare := call.CalleeBareName

	if imports, ok := m.Imports[callerFile]; ok {
		if qualified, ok := imports.Resolve(firstSegment(bare)); ok {
			candidate := joinQualified(qualified, bare)
			if key, ok := lookupQualified(m, candidate); ok {
				return model.ResolutionImport, &key, nil
			}
			if module, name, ok := splitMethod(qualified); ok {
				key := model.NewFunctionKey(filepath.FromSlash(strings.ReplaceAll(module, ".", "/"))+".py", name)
				if _, ok := m.Functions[key]; ok {
					return model.ResolutionImport, &key, nil
				}
			}
		}
	}

	if call.Caller.QualifiedName != "" {
		if containing, _, ok := splitMethod(call.Caller.QualifiedName); ok {
			methodQualified := containing + "." + bare
			if key, ok := lookupQualified(m, methodQualified); ok {
				return model.ResolutionSelf, &key, nil
			}
		}
	}

	if cls, ok := m.Classes[bare]; ok {
		initQualified := cls.QualifiedName + ".__init__"
		if key, ok := lookupQualified(m, initQualified); ok {
			return model.ResolutionConstructor, &key, nil
		}
		// Class has no explicit __init__: still a constructor call, just
		// with nothing further to propagate into.
		return model.ResolutionConstructor, nil, nil
	}

	if _, ok := lib.GetExceptions(bare, bare); ok {
		return model.ResolutionStub, nil, nil
	}

	if candidates := m.NameToKeys[bare]; len(candidates) == 1 {
		return model.ResolutionNameFallback, &candidates[0], nil
	} else if call.IsMethodCall && len(candidates) > 1 {
		return model.ResolutionPolymorphic, nil, append([]model.FunctionKey(nil), candidates...)
	}

	return model.ResolutionUnresolved, nil, nil
}

func lookupQualified(m *model.ProgramModel, qualified string) (model.FunctionKey, bool) {
	for _, key := range m.NameToKeys[qualified] {
		return key, true
	}
	return model.FunctionKey{}, false
}

func firstSegment(name string) string {
	if idx := strings.IndexByte(name, '.'); idx != -1 {
		return name[:idx]
	}
	return name
}

func joinQualified(module, bare string) string {
	last := bare
	if idx := strings.LastIndexByte(bare, '.'); idx != -1 {
		last = bare[idx+1:]
	}
	return module + "." + last
}

func splitMethod(qualifiedName string) (containing, method string, ok bool) {
	idx := strings.LastIndexByte(qualifiedName, '.')
	if idx == -1 {
		return "", "", false
	}
	return qualifiedName[:idx], qualifiedName[idx+1:], true
}
