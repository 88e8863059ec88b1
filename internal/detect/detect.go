// Package detect classifies functions and classes as entrypoints (HTTP
// routes, CLI scripts) or global exception handlers using a small set of
// declarative, framework-specific patterns (spec.md §4.5).
package detect

import (
	"strings"

	"github.com/excflow/excflow/internal/model"
)

// DecoratorRoutePattern matches a function decorated with one of Names
// (e.g. "app.route", "app.get") as an HTTP-route entrypoint.
type DecoratorRoutePattern struct {
	Framework string   `yaml:"framework"`
	Names     []string `yaml:"names"`
}

// Match reports whether decorator (its bare call text, e.g. "app.get")
// matches this pattern.
func (p DecoratorRoutePattern) Match(decorator string) bool {
	for _, name := range p.Names {
		if decoratorMatches(decorator, name) {
			return true
		}
	}
	return false
}

// ClassRoutePattern matches a class whose bases include one of Names (e.g.
// Django's View, DRF's APIView) as containing route-handler methods.
type ClassRoutePattern struct {
	Framework string   `yaml:"framework"`
	BaseNames []string `yaml:"base_names"`
	// MethodNames restricts which methods of a matching class count as
	// entrypoints; empty means every method does.
	MethodNames []string `yaml:"method_names"`
}

func (p ClassRoutePattern) MatchBases(bases []string) bool {
	for _, base := range bases {
		for _, name := range p.BaseNames {
			if base == name {
				return true
			}
		}
	}
	return false
}

func (p ClassRoutePattern) MatchMethod(name string) bool {
	if len(p.MethodNames) == 0 {
		return true
	}
	for _, m := range p.MethodNames {
		if m == name {
			return true
		}
	}
	return false
}

// RegistrationCallPattern matches a call that registers a bare function as
// a route outside of a decorator, e.g. `app.add_url_rule("/x", view_func=f)`.
type RegistrationCallPattern struct {
	Framework   string   `yaml:"framework"`
	CalleeNames []string `yaml:"callee_names"`
	// ArgKeyword is the keyword argument (or, if empty, the first positional
	// argument) carrying the registered callable's name.
	ArgKeyword string `yaml:"arg_keyword"`
}

func (p RegistrationCallPattern) Match(calleeName string) bool {
	for _, name := range p.CalleeNames {
		if calleeName == name {
			return true
		}
	}
	return false
}

// HandlerPattern matches a function that globally handles exceptions: a
// Flask/FastAPI `@app.errorhandler(ExcType)`-style decorator, or a Django
// `process_exception` method.
type HandlerPattern struct {
	Framework string `yaml:"framework"`
	// DecoratorNames matches decorator call targets like "app.errorhandler".
	DecoratorNames []string `yaml:"decorator_names"`
	// MethodNames matches bare method names regardless of decorator, e.g.
	// "process_exception".
	MethodNames []string `yaml:"method_names"`
}

func (p HandlerPattern) MatchDecorator(decorator string) bool {
	for _, name := range p.DecoratorNames {
		if decoratorMatches(decorator, name) {
			return true
		}
	}
	return false
}

func (p HandlerPattern) MatchMethod(name string) bool {
	for _, m := range p.MethodNames {
		if m == name {
			return true
		}
	}
	return false
}

// Registry bundles every configured pattern for one analysis run. It is
// built once from Default() extended by LoadDir's project pattern files
// and consulted per-function by internal/extract.
type Registry struct {
	Routes       []DecoratorRoutePattern
	ClassRoutes  []ClassRoutePattern
	Registration []RegistrationCallPattern
	Handlers     []HandlerPattern
	CLIMarkers   []string // decorator or call names marking a CLI entrypoint, e.g. "click.command"
}

// Default returns the built-in pattern set covering Flask, FastAPI, Django
// and click/argparse-style CLI entrypoints. Project pattern files loaded by
// LoadDir append to this set; they do not remove or replace its entries.
func Default() Registry {
	return Registry{
		Routes: []DecoratorRoutePattern{
			{Framework: "flask", Names: []string{"app.route", "*.route", "blueprint.route"}},
			{Framework: "fastapi", Names: []string{"app.get", "app.post", "app.put", "app.delete", "app.patch", "router.get", "router.post", "router.put", "router.delete", "router.patch"}},
		},
		ClassRoutes: []ClassRoutePattern{
			{Framework: "django", BaseNames: []string{"View", "APIView", "generics.GenericAPIView"}, MethodNames: []string{"get", "post", "put", "delete", "patch", "head", "options"}},
		},
		Registration: []RegistrationCallPattern{
			{Framework: "flask", CalleeNames: []string{"add_url_rule"}, ArgKeyword: "view_func"},
		},
		Handlers: []HandlerPattern{
			{Framework: "flask", DecoratorNames: []string{"app.errorhandler", "*.errorhandler"}},
			{Framework: "fastapi", DecoratorNames: []string{"app.exception_handler"}},
			{Framework: "django", MethodNames: []string{"process_exception"}},
		},
		CLIMarkers: []string{"click.command", "click.group", "cli.command", "app.command"},
	}
}

// ClassifyDecorator returns the Entrypoint this Registry assigns to a
// decorated function, or false if none of the configured patterns match.
func (r Registry) ClassifyDecorator(loc model.Location, funcName, decorator string) (model.Entrypoint, bool) {
	for _, p := range r.Routes {
		if p.Match(decorator) {
			return model.Entrypoint{
				Location: loc,
				Function: funcName,
				Kind:     model.EntrypointHTTPRoute,
				Metadata: map[string]string{"framework": p.Framework, "decorator": decorator},
			}, true
		}
	}
	for _, marker := range r.CLIMarkers {
		if decoratorMatches(decorator, marker) {
			return model.Entrypoint{
				Location: loc,
				Function: funcName,
				Kind:     model.EntrypointCLIScript,
				Metadata: map[string]string{"decorator": decorator},
			}, true
		}
	}
	return model.Entrypoint{}, false
}

// ClassifyHandler returns the GlobalHandler a decorated function represents,
// given the exception type named in the decorator's argument.
func (r Registry) ClassifyHandler(loc model.Location, funcName, decorator, exceptionArg string) (model.GlobalHandler, bool) {
	for _, p := range r.Handlers {
		if p.MatchDecorator(decorator) {
			return model.GlobalHandler{Location: loc, HandlerName: funcName, ExceptionType: exceptionArg}, true
		}
	}
	return model.GlobalHandler{}, false
}

// ClassifyMethod returns the Entrypoint or GlobalHandler classification for
// a method defined on a class with the given base names.
func (r Registry) ClassifyMethod(loc model.Location, funcName, methodName string, classBases []string) (entrypoint model.Entrypoint, isEntrypoint bool, handler model.GlobalHandler, isHandler bool) {
	for _, p := range r.ClassRoutes {
		if p.MatchBases(classBases) && p.MatchMethod(methodName) {
			entrypoint = model.Entrypoint{
				Location: loc,
				Function: funcName,
				Kind:     model.EntrypointHTTPRoute,
				Metadata: map[string]string{"framework": p.Framework},
			}
			isEntrypoint = true
			return
		}
	}
	for _, p := range r.Handlers {
		if p.MatchMethod(methodName) {
			handler = model.GlobalHandler{Location: loc, HandlerName: funcName, ExceptionType: model.AllExceptionsSentinel}
			isHandler = true
			return
		}
	}
	return
}

// IsCLIScriptFile reports whether a module-level `if __name__ == "__main__"`
// guard (text form, passed by the extractor) marks the file as a CLI
// entrypoint on its own, independent of decorators.
func IsCLIScriptFile(guardText string) bool {
	normalized := strings.TrimSpace(guardText)
	return normalized == `__name__ == "__main__"` || normalized == `__name__ == '__main__'`
}

// decoratorMatches supports a single leading "*." wildcard — "*.route"
// matches "app.route" and "blueprint.route" alike, since the extractor
// can't always resolve which object a decorator attribute is bound to.
func decoratorMatches(decorator, pattern string) bool {
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(decorator, pattern[1:])
	}
	return decorator == pattern
}
