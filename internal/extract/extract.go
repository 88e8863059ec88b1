// Package extract walks one Python source file's tree-sitter CST and
// produces a model.FileExtraction: every function, class, raise, catch,
// call, import and entrypoint candidate the file contains (spec.md §4.4).
//
// Extraction never looks outside the file it's walking — cross-file
// resolution is internal/assemble and internal/propagate's job. Within a
// file, a raise_statement with no operand ("bare raise") is resolved
// against the nearest enclosing except clause's bound exception type; a
// raise this can't resolve is recorded as a RaiseSite naming the sentinel
// type "<reraise>", left for internal/propagate to treat specially.
package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/excflow/excflow/internal/detect"
	"github.com/excflow/excflow/internal/model"
)

// ReraiseSentinel marks a bare `raise` whose target exception type could
// not be determined from the immediately enclosing except clause.
const ReraiseSentinel = "<reraise>"

// File parses source and extracts everything File's caller asked for,
// against the given pattern Registry. path is recorded on every Location
// and used as the FileExtraction's and every FunctionKey's file component.
func File(ctx context.Context, path string, source []byte, registry detect.Registry) (model.FileExtraction, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return model.FileExtraction{}, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	w := &walker{
		file:     path,
		src:      source,
		registry: registry,
		imports:  model.NewImportMap(path),
	}
	w.walk(tree.RootNode(), nil, nil)

	return model.FileExtraction{
		File:        path,
		Functions:   w.functions,
		Classes:     w.classes,
		Raises:      w.raises,
		Catches:     w.catches,
		Calls:       w.calls,
		Imports:     w.imports,
		Entrypoints: w.entrypoints,
		Handlers:    w.handlers,
		Diagnostics: w.diagnostics,
	}, nil
}

// scope tracks the function a node lexically belongs to, for attributing
// raise/catch/call sites to the right FunctionKey.
type scope struct {
	key  model.FunctionKey
	name string
}

// catchFrame records one active except clause while walking its body, so a
// bare `raise` — or a `raise e` naming the clause's bound exception —
// inside it can resolve to the types it caught.
type catchFrame struct {
	types     []string
	tryLine   int
	boundName string
}

type walker struct {
	file     string
	src      []byte
	registry detect.Registry

	currentClassBases []string
	currentClassName  string

	functions   []model.FunctionDef
	classes     []model.ClassDef
	raises      []model.RaiseSite
	catches     []model.CatchSite
	calls       []model.CallSite
	imports     *model.ImportMap
	entrypoints []model.Entrypoint
	handlers    []model.GlobalHandler
	diagnostics []model.Diagnostic
}

func (w *walker) content(n *sitter.Node) string {
	return n.Content(w.src)
}

func (w *walker) loc(n *sitter.Node) model.Location {
	return model.Location{File: w.file, Line: int(n.StartPoint().Row) + 1}
}

// walk descends the tree. fn is the innermost enclosing function (nil at
// module level); catchStack is the stack of active except frames, used to
// resolve bare raises.
func (w *walker) walk(n *sitter.Node, fn *scope, catchStack []catchFrame) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "import_statement":
		w.handleImportStatement(n)
		return
	case "import_from_statement":
		w.handleImportFromStatement(n)
		return

	case "decorated_definition":
		w.handleDecoratedDefinition(n, fn, catchStack)
		return

	case "function_definition":
		w.handleFunctionDefinition(n, nil, fn, catchStack)
		return

	case "class_definition":
		w.handleClassDefinition(n, fn, catchStack)
		return

	case "try_statement":
		w.handleTryStatement(n, fn, catchStack)
		return

	case "raise_statement":
		w.handleRaiseStatement(n, fn, catchStack)

	case "call":
		w.handleCall(n, fn)

	case "if_statement":
		if w.isMainGuard(n) {
			w.entrypoints = append(w.entrypoints, model.Entrypoint{
				Location: w.loc(n),
				Function: "__main__",
				Kind:     model.EntrypointCLIScript,
				Metadata: map[string]string{"form": "name-main-guard"},
			})
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i), fn, catchStack)
	}
}

func (w *walker) isMainGuard(n *sitter.Node) bool {
	cond := n.ChildByFieldName("condition")
	if cond == nil {
		return false
	}
	return detect.IsCLIScriptFile(w.content(cond))
}

// --- imports ---

func (w *walker) handleImportStatement(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	if nameNode.Type() == "aliased_import" {
		module := nameNode.ChildByFieldName("name")
		alias := nameNode.ChildByFieldName("alias")
		if module != nil && alias != nil {
			w.imports.Bind(w.content(alias), w.content(module))
		}
		return
	}
	module := w.content(nameNode)
	w.imports.Bind(module, module)
	if idx := strings.LastIndex(module, "."); idx != -1 {
		w.imports.Bind(module[idx+1:], module)
	}
}

func (w *walker) handleImportFromStatement(n *sitter.Node) {
	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}
	module := w.content(moduleNode)

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == moduleNode {
			continue
		}
		switch child.Type() {
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name != nil && alias != nil {
				w.imports.Bind(w.content(alias), module+"."+w.content(name))
			}
		case "dotted_name", "identifier":
			name := w.content(child)
			w.imports.Bind(name, module+"."+name)
		}
	}
}

// --- decorators ---

func (w *walker) handleDecoratedDefinition(n *sitter.Node, fn *scope, catchStack []catchFrame) {
	var decorators []string
	var defNode *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "decorator":
			decorators = append(decorators, decoratorName(w.content(child)))
		case "function_definition", "class_definition":
			defNode = child
		}
	}
	if defNode == nil {
		return
	}
	if defNode.Type() == "class_definition" {
		w.handleClassDefinition(defNode, fn, catchStack)
		return
	}
	w.handleFunctionDefinition(defNode, decorators, fn, catchStack)
}

func decoratorName(text string) string {
	text = strings.TrimPrefix(strings.TrimSpace(text), "@")
	if idx := strings.Index(text, "("); idx != -1 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// --- functions ---

func (w *walker) handleFunctionDefinition(n *sitter.Node, decorators []string, fn *scope, catchStack []catchFrame) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.content(nameNode)

	qualified := name
	if w.currentClassName != "" {
		qualified = w.currentClassName + "." + name
	}

	key := model.NewFunctionKey(w.file, qualified)
	isAsync := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "async" {
			isAsync = true
			break
		}
	}

	var returnType string
	if retNode := n.ChildByFieldName("return_type"); retNode != nil {
		returnType = w.content(retNode)
	}

	w.functions = append(w.functions, model.FunctionDef{
		Key:             key,
		Name:            name,
		QualifiedName:   qualified,
		File:            w.file,
		Line:            int(n.StartPoint().Row) + 1,
		ContainingClass: w.currentClassName,
		ReturnType:      returnType,
		IsAsync:         isAsync,
	})

	loc := w.loc(n)
	for _, dec := range decorators {
		if ep, ok := w.registry.ClassifyDecorator(loc, qualified, dec); ok {
			w.entrypoints = append(w.entrypoints, ep)
		}
		if h, ok := w.registry.ClassifyHandler(loc, qualified, dec, handlerArg(dec, n, w.src)); ok {
			w.handlers = append(w.handlers, h)
		}
	}
	if w.currentClassName != "" {
		ep, isEP, h, isHandler := w.registry.ClassifyMethod(loc, qualified, name, w.currentClassBases)
		if isEP {
			w.entrypoints = append(w.entrypoints, ep)
		}
		if isHandler {
			w.handlers = append(w.handlers, h)
		}
	}

	inner := &scope{key: key, name: qualified}
	body := n.ChildByFieldName("body")
	w.walk(body, inner, catchStack)
}

// handlerArg best-effort extracts the exception type argument of a
// framework errorhandler decorator, e.g. `@app.errorhandler(NotFound)`.
// The decorator node itself isn't passed in; instead this re-derives it
// from the enclosing decorated_definition's decorator sibling whose name is
// dec. Framework handlers name at most one exception type, so the first
// comma-separated item of the parenthesized argument list is taken as
// written; a decorator with no argument yields AllExceptionsSentinel.
func handlerArg(dec string, n *sitter.Node, src []byte) string {
	parent := n.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return model.AllExceptionsSentinel
	}
	for i := 0; i < int(parent.ChildCount()); i++ {
		child := parent.Child(i)
		text := strings.TrimSpace(child.Content(src))
		open, end := strings.Index(text, "("), strings.LastIndex(text, ")")
		if child.Type() != "decorator" || decoratorName(text) != dec || open == -1 || end <= open {
			continue
		}
		if arg := strings.TrimSpace(strings.SplitN(text[open+1:end], ",", 2)[0]); arg != "" {
			return arg
		}
	}
	return model.AllExceptionsSentinel
}

// --- classes ---

func (w *walker) handleClassDefinition(n *sitter.Node, fn *scope, catchStack []catchFrame) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.content(nameNode)

	var bases []string
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			arg := supers.NamedChild(i)
			if arg.Type() == "keyword_argument" {
				continue
			}
			bases = append(bases, w.content(arg))
		}
	}

	w.classes = append(w.classes, model.ClassDef{
		Name:          name,
		QualifiedName: name,
		File:          w.file,
		Line:          int(n.StartPoint().Row) + 1,
		BaseNames:     bases,
		IsException:   looksLikeException(name, bases),
	})

	prevName, prevBases := w.currentClassName, w.currentClassBases
	w.currentClassName, w.currentClassBases = name, bases

	body := n.ChildByFieldName("body")
	w.walk(body, fn, catchStack)

	w.currentClassName, w.currentClassBases = prevName, prevBases
}

func looksLikeException(name string, bases []string) bool {
	if strings.HasSuffix(name, "Error") || strings.HasSuffix(name, "Exception") {
		return true
	}
	for _, b := range bases {
		if b == "Exception" || b == "BaseException" || strings.HasSuffix(b, "Error") || strings.HasSuffix(b, "Exception") {
			return true
		}
	}
	return false
}

// --- try/except/finally ---

func (w *walker) handleTryStatement(n *sitter.Node, fn *scope, catchStack []catchFrame) {
	tryLine := int(n.StartPoint().Row) + 1

	tryBlock := n.ChildByFieldName("body")
	w.walk(tryBlock, fn, catchStack)

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "except_clause":
			w.handleExceptClause(child, fn, catchStack, tryLine, false)
		case "except_group_clause":
			w.handleExceptClause(child, fn, catchStack, tryLine, true)
		case "finally_clause":
			// finally always runs; its body is walked in the enclosing
			// catch context so a bare raise inside it still resolves.
			w.walk(child, fn, catchStack)
		case "else_clause":
			w.walk(child, fn, catchStack)
		}
	}
}

func (w *walker) handleExceptClause(n *sitter.Node, fn *scope, catchStack []catchFrame, tryLine int, isGroup bool) {
	var caught []string
	var boundName string

	valueNode := n.ChildByFieldName("value")
	if valueNode != nil {
		caught = flattenExceptionTypes(valueNode, w.src)
	}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		boundName = w.content(nameNode)
	}
	if len(caught) == 0 {
		caught = []string{model.AllExceptionsSentinel}
	}

	var fnKey model.FunctionKey
	if fn != nil {
		fnKey = fn.key
	}
	w.catches = append(w.catches, model.CatchSite{
		Location:    w.loc(n),
		Function:    fnKey,
		CaughtTypes: caught,
		BoundName:   boundName,
		TryLine:     tryLine,
		IsGroup:     isGroup,
	})

	frame := catchFrame{types: caught, tryLine: tryLine, boundName: boundName}
	body := n.ChildByFieldName("body")
	w.walk(body, fn, append(catchStack, frame))
}

// flattenExceptionTypes handles `except ValueError`, `except (ValueError,
// TypeError)`, and `except* ValueError` uniformly — value is either a
// single expression or a tuple of them.
func flattenExceptionTypes(n *sitter.Node, src []byte) []string {
	if n.Type() == "tuple" {
		var out []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			out = append(out, n.NamedChild(i).Content(src))
		}
		return out
	}
	return []string{n.Content(src)}
}

// --- raise ---

func (w *walker) handleRaiseStatement(n *sitter.Node, fn *scope, catchStack []catchFrame) {
	var fnKey model.FunctionKey
	if fn != nil {
		fnKey = fn.key
	}
	loc := w.loc(n)

	var operand *sitter.Node
	for i := 1; i < int(n.ChildCount()); i++ { // skip the "raise" token
		child := n.Child(i)
		if child.Type() == "from" {
			break
		}
		if child.IsNamed() {
			operand = child
			break
		}
	}

	if operand == nil {
		// bare raise: resolve against the nearest enclosing except frame
		if len(catchStack) > 0 {
			top := catchStack[len(catchStack)-1]
			for _, t := range top.types {
				w.raises = append(w.raises, model.RaiseSite{
					Location:      loc,
					Function:      fnKey,
					ExceptionType: t,
					IsReraise:     true,
				})
			}
			return
		}
		w.raises = append(w.raises, model.RaiseSite{
			Location:      loc,
			Function:      fnKey,
			ExceptionType: ReraiseSentinel,
			IsReraise:     true,
		})
		return
	}

	if operand.Type() == "identifier" {
		if frame, ok := findBoundFrame(catchStack, w.content(operand)); ok {
			// `raise e` re-raises the exception the enclosing except clause
			// bound as e: likewise a reraise, not a new raise of an exception
			// type literally named "e".
			for _, t := range frame.types {
				w.raises = append(w.raises, model.RaiseSite{
					Location:      loc,
					Function:      fnKey,
					ExceptionType: t,
					IsReraise:     true,
				})
			}
			return
		}
	}

	excType := raisedExceptionType(operand, w.src)
	w.raises = append(w.raises, model.RaiseSite{
		Location:      loc,
		Function:      fnKey,
		ExceptionType: excType,
		IsReraise:     false,
	})
}

// findBoundFrame searches catchStack from the innermost frame outward for
// one whose except clause bound name, so `raise e` resolves to the
// nearest enclosing `except ... as e`.
func findBoundFrame(catchStack []catchFrame, name string) (catchFrame, bool) {
	for i := len(catchStack) - 1; i >= 0; i-- {
		if catchStack[i].boundName != "" && catchStack[i].boundName == name {
			return catchStack[i], true
		}
	}
	return catchFrame{}, false
}

// raisedExceptionType extracts the type name from a raise operand: a call
// `ValueError(...)` contributes its function name, a bare identifier or
// attribute contributes itself.
func raisedExceptionType(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case "call":
		if f := n.ChildByFieldName("function"); f != nil {
			return f.Content(src)
		}
	}
	return n.Content(src)
}

// --- calls ---

func (w *walker) handleCall(n *sitter.Node, fn *scope) {
	funcNode := n.ChildByFieldName("function")
	if funcNode == nil {
		return
	}

	var fnKey model.FunctionKey
	if fn != nil {
		fnKey = fn.key
	}

	bareName, isMethod := calleeBareName(funcNode, w.src)

	var args []model.Argument
	if argList := n.ChildByFieldName("arguments"); argList != nil {
		pos := 0
		for i := 0; i < int(argList.NamedChildCount()); i++ {
			arg := argList.NamedChild(i)
			if arg.Type() == "keyword_argument" {
				kwName := arg.ChildByFieldName("name")
				kwVal := arg.ChildByFieldName("value")
				kw := ""
				val := ""
				if kwName != nil {
					kw = kwName.Content(w.src)
				}
				if kwVal != nil {
					val = kwVal.Content(w.src)
				}
				args = append(args, model.Argument{Position: -1, Keyword: kw, Text: val})
				continue
			}
			args = append(args, model.Argument{Position: pos, Text: arg.Content(w.src)})
			pos++
		}
	}

	w.calls = append(w.calls, model.CallSite{
		Location:       w.loc(n),
		Caller:         fnKey,
		CalleeBareName: bareName,
		IsMethodCall:   isMethod,
		Resolution:     model.ResolutionUnresolved, // filled in by internal/propagate
		Arguments:      args,
	})
}

// calleeBareName returns the rightmost identifier of a call target and
// whether the target was an attribute access (a.b() is a method call
// candidate; b() is a plain name).
func calleeBareName(n *sitter.Node, src []byte) (string, bool) {
	if n.Type() == "attribute" {
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			return attr.Content(src), true
		}
	}
	return n.Content(src), false
}
