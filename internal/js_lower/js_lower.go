package js_lower

// This pass rewrites "async" functions for engines without them. Each body
// becomes a state machine driven by the regenerator runtime, and the original
// function becomes a wrapper that forwards "this" and the arguments to a
// generator function that is created on first use:
//
//   var _bar_ref;
//   function bar() {
//     return _bar().apply(this, arguments);
//   }
//   function _bar() {
//     return _bar_ref || (_bar_ref = _helpers.asyncToGenerator(regeneratorRuntime.mark(function _callee() {
//       return regeneratorRuntime.wrap(function _callee$(_ctx) { ... }, _callee);
//     })));
//   }
//
// Function expressions and arrow functions use an immediately-invoked wrapper
// instead so that the generator is created once per evaluation.

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/esdown/esdown/internal/ast"
	"github.com/esdown/esdown/internal/config"
	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/logger"
	"github.com/esdown/esdown/internal/runtime"
)

// Everything the lowering needs to know about one function. Descriptors are
// built after the function body has been visited, so nested async functions
// have already been lowered.
type FunctionDescriptor struct {
	Name              *js_ast.LocName
	Args              []js_ast.Arg
	Body              js_ast.FnBody
	Loc               logger.Loc
	IsAsync           bool
	IsArrow           bool
	HasRestArg        bool
	CapturesThis      bool
	CapturesArguments bool
}

type Stats struct {
	LoweredFunctions int
	LoweredClasses   int
	SuspensionPoints int
}

type fnFrame struct {
	isArrow        bool
	isAsync        bool
	isTopLevel     bool
	inArgs         bool
	needsThis      bool
	needsArguments bool
}

// Generated names are shared by every function in the file. Each one is only
// generated the first time it is needed.
type generatedNames struct {
	ctx         string
	callee      string
	args        string
	this        string
	arguments   string
	ref         string
	helpers     string
	regenerator string
	arity       []string
}

type lowerer struct {
	log         logger.Log
	source      logger.Source
	options     config.Options
	used        map[string]bool
	frames      []*fnFrame
	names       generatedNames
	shouldLower bool
	hasErrors   bool
	stats       Stats

	// Classes become constructor functions for targets without them
	lowerClasses bool
}

func Lower(log logger.Log, source logger.Source, tree js_ast.AST, options config.Options) (result js_ast.AST, stats Stats, ok bool) {
	l := &lowerer{
		log:         log,
		source:      source,
		options:     options,
		used:        make(map[string]bool, len(tree.UsedNames)),
		frames:      []*fnFrame{{isTopLevel: true}},
		shouldLower: !options.Target.SupportsAsync(),

		lowerClasses: !options.Target.SupportsClasses(),
	}
	for name := range tree.UsedNames {
		l.used[name] = true
	}

	stmts := l.visitStmts(tree.Stmts)
	stmts = prependCaptures(stmts, l.frames[0], &l.names)

	result = tree
	result.UsedNames = l.used
	if (l.stats.LoweredFunctions > 0 || l.stats.LoweredClasses > 0) && !options.OmitRuntimeImportsForTests {
		stmts, result.ImportRecords = l.injectRuntimeImports(stmts, tree)
	}
	result.Stmts = stmts

	Logger().Debug("lowered file",
		zap.String("path", source.PrettyPath),
		zap.Int("functions", l.stats.LoweredFunctions),
		zap.Int("classes", l.stats.LoweredClasses),
		zap.Int("suspensionPoints", l.stats.SuspensionPoints),
		zap.Bool("ok", !l.hasErrors))
	return result, l.stats, !l.hasErrors
}

func (l *lowerer) generate(cell *string, base string) string {
	if *cell == "" {
		*cell = js_ast.GenerateUniqueName(l.used, base)
	}
	return *cell
}

func (l *lowerer) ctxName() string     { return l.generate(&l.names.ctx, "_ctx") }
func (l *lowerer) calleeName() string  { return l.generate(&l.names.callee, "_callee") }
func (l *lowerer) argsName() string    { return l.generate(&l.names.args, "_args") }
func (l *lowerer) refName() string     { return l.generate(&l.names.ref, "_ref") }
func (l *lowerer) helpersName() string { return l.generate(&l.names.helpers, runtime.HelpersRef) }
func (l *lowerer) regeneratorName() string {
	return l.generate(&l.names.regenerator, runtime.RegeneratorRef)
}

func (l *lowerer) arityName(i int) string {
	for len(l.names.arity) <= i {
		l.names.arity = append(l.names.arity, js_ast.GenerateUniqueName(l.used, "_x"))
	}
	return l.names.arity[i]
}

func (l *lowerer) addError(loc logger.Loc, text string) {
	l.hasErrors = true
	l.log.AddError(&l.source, loc, text)
}

func (l *lowerer) currentFrame() *fnFrame {
	return l.frames[len(l.frames)-1]
}

// "this" and "arguments" inside an arrow function belong to the closest
// function that is not an arrow function
func (l *lowerer) lexicalFrame() *fnFrame {
	for i := len(l.frames) - 1; i >= 0; i-- {
		if !l.frames[i].isArrow {
			return l.frames[i]
		}
	}
	panic("Internal error")
}

func (l *lowerer) visitStmts(stmts []js_ast.Stmt) []js_ast.Stmt {
	result := make([]js_ast.Stmt, 0, len(stmts))
	for _, stmt := range stmts {
		result = l.visitAndAppendStmt(result, stmt)
	}
	return result
}

func (l *lowerer) visitSingleStmt(stmt js_ast.Stmt) js_ast.Stmt {
	if stmt.Data == nil {
		return stmt
	}
	stmts := l.visitAndAppendStmt(nil, stmt)
	if len(stmts) == 1 {
		return stmts[0]
	}
	return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SBlock{Stmts: stmts}}
}

func (l *lowerer) visitBlock(block js_ast.SBlock) js_ast.SBlock {
	return js_ast.SBlock{Stmts: l.visitStmts(block.Stmts)}
}

func (l *lowerer) visitAndAppendStmt(stmts []js_ast.Stmt, stmt js_ast.Stmt) []js_ast.Stmt {
	switch s := stmt.Data.(type) {
	case *js_ast.SFunction:
		fn := l.visitFn(s.Fn, stmt.Loc)
		if fn.IsAsync && l.shouldLower {
			desc := l.describe(fn.Name, fn.Args, fn.Body, fn.HasRestArg, false, stmt.Loc)
			return append(stmts, l.lowerDeclaration(desc, s.IsExport, false)...)
		}
		return append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SFunction{Fn: fn, IsExport: s.IsExport}})

	case *js_ast.SClass:
		class := l.visitClass(s.Class)
		if l.lowerClasses {
			name, value := l.lowerClass(class, stmt.Loc)
			return append(stmts, classVar(stmt.Loc, name, value, s.IsExport))
		}
		return append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SClass{Class: class, IsExport: s.IsExport}})

	case *js_ast.SExportDefault:
		if classStmt, ok := s.Value.Data.(*js_ast.SClass); ok {
			class := l.visitClass(classStmt.Class)
			if !l.lowerClasses {
				value := js_ast.Stmt{Loc: s.Value.Loc, Data: &js_ast.SClass{Class: class}}
				return append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SExportDefault{Value: value}})
			}

			// "export default class Foo {}" keeps "Foo" as a local binding
			name, lowered := l.lowerClass(class, s.Value.Loc)
			if class.Name == nil {
				value := js_ast.Stmt{Loc: s.Value.Loc, Data: &js_ast.SExpr{Value: lowered}}
				return append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SExportDefault{Value: value}})
			}
			value := js_ast.Stmt{Loc: s.Value.Loc, Data: &js_ast.SExpr{Value: js_ast.Ident(class.Name.Loc, name)}}
			return append(stmts,
				classVar(s.Value.Loc, name, lowered, false),
				js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SExportDefault{Value: value}})
		}

		if fnStmt, ok := s.Value.Data.(*js_ast.SFunction); ok {
			fn := l.visitFn(fnStmt.Fn, s.Value.Loc)
			if fn.IsAsync && l.shouldLower {
				desc := l.describe(fn.Name, fn.Args, fn.Body, fn.HasRestArg, false, s.Value.Loc)
				return append(stmts, l.lowerDeclaration(desc, false, true)...)
			}
			value := js_ast.Stmt{Loc: s.Value.Loc, Data: &js_ast.SFunction{Fn: fn}}
			return append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SExportDefault{Value: value}})
		}
		value := js_ast.Stmt{Loc: s.Value.Loc, Data: &js_ast.SExpr{Value: l.visitExpr(s.Value.Data.(*js_ast.SExpr).Value)}}
		return append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SExportDefault{Value: value}})

	case *js_ast.SExpr:
		stmt.Data = &js_ast.SExpr{Value: l.visitExpr(s.Value)}

	case *js_ast.SLocal:
		decls := make([]js_ast.Decl, len(s.Decls))
		for i, decl := range s.Decls {
			decls[i] = js_ast.Decl{Binding: decl.Binding, ValueOrNil: l.visitExprOrNil(decl.ValueOrNil)}
		}
		stmt.Data = &js_ast.SLocal{Kind: s.Kind, IsExport: s.IsExport, Decls: decls}

	case *js_ast.SBlock:
		stmt.Data = &js_ast.SBlock{Stmts: l.visitStmts(s.Stmts)}

	case *js_ast.SLabel:
		stmt.Data = &js_ast.SLabel{Name: s.Name, Stmt: l.visitSingleStmt(s.Stmt)}

	case *js_ast.SIf:
		stmt.Data = &js_ast.SIf{Test: l.visitExpr(s.Test), Yes: l.visitSingleStmt(s.Yes), NoOrNil: l.visitSingleStmt(s.NoOrNil)}

	case *js_ast.SFor:
		stmt.Data = &js_ast.SFor{
			InitOrNil:   l.visitSingleStmt(s.InitOrNil),
			TestOrNil:   l.visitExprOrNil(s.TestOrNil),
			UpdateOrNil: l.visitExprOrNil(s.UpdateOrNil),
			Body:        l.visitSingleStmt(s.Body),
		}

	case *js_ast.SForIn:
		stmt.Data = &js_ast.SForIn{Init: l.visitSingleStmt(s.Init), Value: l.visitExpr(s.Value), Body: l.visitSingleStmt(s.Body)}

	case *js_ast.SForOf:
		stmt.Data = &js_ast.SForOf{Init: l.visitSingleStmt(s.Init), Value: l.visitExpr(s.Value), Body: l.visitSingleStmt(s.Body)}

	case *js_ast.SWhile:
		stmt.Data = &js_ast.SWhile{Test: l.visitExpr(s.Test), Body: l.visitSingleStmt(s.Body)}

	case *js_ast.SDoWhile:
		stmt.Data = &js_ast.SDoWhile{Body: l.visitSingleStmt(s.Body), Test: l.visitExpr(s.Test)}

	case *js_ast.STry:
		try := &js_ast.STry{Block: l.visitBlock(s.Block)}
		if s.Catch != nil {
			try.Catch = &js_ast.Catch{Loc: s.Catch.Loc, BindingOrNil: s.Catch.BindingOrNil, Block: l.visitBlock(s.Catch.Block)}
		}
		if s.Finally != nil {
			try.Finally = &js_ast.Finally{Loc: s.Finally.Loc, Block: l.visitBlock(s.Finally.Block)}
		}
		stmt.Data = try

	case *js_ast.SSwitch:
		test := l.visitExpr(s.Test)
		cases := make([]js_ast.Case, len(s.Cases))
		for i, c := range s.Cases {
			cases[i] = js_ast.Case{ValueOrNil: l.visitExprOrNil(c.ValueOrNil), Body: l.visitStmts(c.Body)}
		}
		stmt.Data = &js_ast.SSwitch{Test: test, Cases: cases}

	case *js_ast.SReturn:
		stmt.Data = &js_ast.SReturn{ValueOrNil: l.visitExprOrNil(s.ValueOrNil)}

	case *js_ast.SThrow:
		stmt.Data = &js_ast.SThrow{Value: l.visitExpr(s.Value)}
	}

	return append(stmts, stmt)
}

func (l *lowerer) visitExprOrNil(expr js_ast.Expr) js_ast.Expr {
	if expr.Data == nil {
		return expr
	}
	return l.visitExpr(expr)
}

func (l *lowerer) visitExprs(exprs []js_ast.Expr) []js_ast.Expr {
	if exprs == nil {
		return nil
	}
	result := make([]js_ast.Expr, len(exprs))
	for i, expr := range exprs {
		result[i] = l.visitExpr(expr)
	}
	return result
}

func (l *lowerer) visitExpr(expr js_ast.Expr) js_ast.Expr {
	switch e := expr.Data.(type) {
	case *js_ast.EAwait:
		l.checkAwait(expr.Loc)
		expr.Data = &js_ast.EAwait{Value: l.visitExpr(e.Value)}

	case *js_ast.EFunction:
		fn := l.visitFn(e.Fn, expr.Loc)
		if fn.IsAsync && l.shouldLower {
			desc := l.describe(fn.Name, fn.Args, fn.Body, fn.HasRestArg, false, expr.Loc)
			return l.lowerExpression(desc)
		}
		expr.Data = &js_ast.EFunction{Fn: fn}

	case *js_ast.EArrow:
		frame := &fnFrame{isArrow: true, isAsync: e.IsAsync}
		l.frames = append(l.frames, frame)
		args := l.visitArgs(e.Args, frame)
		body := js_ast.FnBody{Loc: e.Body.Loc, Stmts: l.visitStmts(e.Body.Stmts)}
		l.frames = l.frames[:len(l.frames)-1]
		if e.IsAsync && l.shouldLower {
			desc := l.describe(nil, args, body, e.HasRestArg, true, expr.Loc)
			return l.lowerExpression(desc)
		}
		clone := *e
		clone.Args, clone.Body = args, body
		expr.Data = &clone

	case *js_ast.EClass:
		class := l.visitClass(e.Class)
		if l.lowerClasses {
			_, value := l.lowerClass(class, expr.Loc)
			return value
		}
		expr.Data = &js_ast.EClass{Class: class}

	case *js_ast.EArray:
		expr.Data = &js_ast.EArray{Items: l.visitExprs(e.Items), IsSingleLine: e.IsSingleLine}

	case *js_ast.EUnary:
		expr.Data = &js_ast.EUnary{Op: e.Op, Value: l.visitExpr(e.Value)}

	case *js_ast.EBinary:
		expr.Data = &js_ast.EBinary{Op: e.Op, Left: l.visitExpr(e.Left), Right: l.visitExpr(e.Right)}

	case *js_ast.ENew:
		expr.Data = &js_ast.ENew{Target: l.visitExpr(e.Target), Args: l.visitExprs(e.Args)}

	case *js_ast.ECall:
		expr.Data = &js_ast.ECall{Target: l.visitExpr(e.Target), Args: l.visitExprs(e.Args)}

	case *js_ast.EDot:
		expr.Data = &js_ast.EDot{Target: l.visitExpr(e.Target), Name: e.Name, NameLoc: e.NameLoc}

	case *js_ast.EIndex:
		expr.Data = &js_ast.EIndex{Target: l.visitExpr(e.Target), Index: l.visitExpr(e.Index)}

	case *js_ast.EObject:
		properties := make([]js_ast.Property, len(e.Properties))
		for i, property := range e.Properties {
			if property.IsComputed {
				property.KeyOrNil = l.visitExpr(property.KeyOrNil)
			}
			property.ValueOrNil = l.visitExprOrNil(property.ValueOrNil)

			// A lowered async method is no longer a function expression
			if property.IsMethod {
				if _, ok := property.ValueOrNil.Data.(*js_ast.EFunction); !ok {
					property.IsMethod = false
				}
			}
			properties[i] = property
		}
		expr.Data = &js_ast.EObject{Properties: properties, IsSingleLine: e.IsSingleLine}

	case *js_ast.ESpread:
		expr.Data = &js_ast.ESpread{Value: l.visitExpr(e.Value)}

	case *js_ast.EYield:
		expr.Data = &js_ast.EYield{ValueOrNil: l.visitExprOrNil(e.ValueOrNil), IsStar: e.IsStar}

	case *js_ast.EIf:
		expr.Data = &js_ast.EIf{Test: l.visitExpr(e.Test), Yes: l.visitExpr(e.Yes), No: l.visitExpr(e.No)}
	}

	return expr
}

func (l *lowerer) checkAwait(loc logger.Loc) {
	frame := l.currentFrame()
	switch {
	case frame.inArgs && !frame.isTopLevel:
		l.addError(loc, "Cannot use an \"await\" expression here")

	case frame.isTopLevel:
		if l.options.OutputFormat == config.FormatCommonJS {
			l.addError(loc, "Top-level await is currently not supported with the \"cjs\" output format")
		} else if !l.options.Target.SupportsTopLevelAwait() {
			l.addError(loc, fmt.Sprintf("Top-level await is not available in the configured target environment (%s)", l.options.Target))
		}

	case !frame.isAsync:
		l.addError(loc, "\"await\" can only be used inside an \"async\" function")
	}
}

func (l *lowerer) visitArgs(args []js_ast.Arg, frame *fnFrame) []js_ast.Arg {
	frame.inArgs = true
	result := make([]js_ast.Arg, len(args))
	for i, arg := range args {
		result[i] = js_ast.Arg{Binding: arg.Binding, DefaultOrNil: l.visitExprOrNil(arg.DefaultOrNil)}
	}
	frame.inArgs = false
	return result
}

func (l *lowerer) visitFn(fn js_ast.Fn, loc logger.Loc) js_ast.Fn {
	if fn.IsAsync && fn.IsGenerator && l.options.Target < config.ESNext {
		l.addError(loc, fmt.Sprintf("Transforming async generator functions to the configured target environment (%s) is not supported", l.options.Target))
	}

	frame := &fnFrame{isAsync: fn.IsAsync}
	l.frames = append(l.frames, frame)
	fn.Args = l.visitArgs(fn.Args, frame)
	fn.Body = js_ast.FnBody{Loc: fn.Body.Loc, Stmts: l.visitStmts(fn.Body.Stmts)}
	l.frames = l.frames[:len(l.frames)-1]

	fn.Body.Stmts = prependCaptures(fn.Body.Stmts, frame, &l.names)
	return fn
}

// Adds "var _this = this, _arguments = arguments;" for lowered arrow functions
// nested in this function that used "this" or "arguments"
func prependCaptures(stmts []js_ast.Stmt, frame *fnFrame, names *generatedNames) []js_ast.Stmt {
	if !frame.needsThis && !frame.needsArguments {
		return stmts
	}
	var decls []js_ast.Decl
	if frame.needsThis {
		decls = append(decls, js_ast.Decl{
			Binding:    js_ast.Binding{Data: &js_ast.BIdentifier{Name: names.this}},
			ValueOrNil: js_ast.Expr{Data: &js_ast.EThis{}},
		})
	}
	if frame.needsArguments {
		decls = append(decls, js_ast.Decl{
			Binding:    js_ast.Binding{Data: &js_ast.BIdentifier{Name: names.arguments}},
			ValueOrNil: js_ast.Ident(logger.Loc{}, "arguments"),
		})
	}
	return insertAfterDirectives(stmts, js_ast.Stmt{Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls}})
}

func insertAfterDirectives(stmts []js_ast.Stmt, inserted ...js_ast.Stmt) []js_ast.Stmt {
	i := 0
	for i < len(stmts) {
		if _, ok := stmts[i].Data.(*js_ast.SDirective); !ok {
			break
		}
		i++
	}
	result := make([]js_ast.Stmt, 0, len(stmts)+len(inserted))
	result = append(result, stmts[:i]...)
	result = append(result, inserted...)
	return append(result, stmts[i:]...)
}

func (l *lowerer) describe(name *js_ast.LocName, args []js_ast.Arg, body js_ast.FnBody, hasRestArg bool, isArrow bool, loc logger.Loc) FunctionDescriptor {
	desc := FunctionDescriptor{
		Name:       name,
		Args:       args,
		Body:       body,
		Loc:        loc,
		IsAsync:    true,
		IsArrow:    isArrow,
		HasRestArg: hasRestArg,
	}

	if isArrow {
		// The generator is a regular function, so "this" and "arguments" must
		// be read from the enclosing function before entering it
		frame := l.lexicalFrame()
		desc.Args, desc.Body.Stmts = replaceThisAndArguments(args, body.Stmts,
			func() string {
				frame.needsThis = true
				return l.generate(&l.names.this, "_this")
			},
			func() string {
				frame.needsArguments = true
				return l.generate(&l.names.arguments, "_arguments")
			})
	} else {
		desc.CapturesThis, desc.CapturesArguments = capturesThisAndArguments(body.Stmts)
	}
	return desc
}

type loweredFunction struct {
	generator   js_ast.Expr
	machine     StateMachine
	suspensions []SuspensionPoint
}

// Returns "regeneratorRuntime.mark(function _callee(...) { ... })"
func (l *lowerer) lowerFunction(desc FunctionDescriptor) loweredFunction {
	body := desc.Body.Stmts

	// Directives stay with the generator function
	var directives []js_ast.Stmt
	for len(body) > 0 {
		if _, ok := body[0].Data.(*js_ast.SDirective); !ok {
			break
		}
		directives = append(directives, body[0])
		body = body[1:]
	}

	var extraDecls []js_ast.Decl
	if desc.CapturesArguments {
		argsName := l.argsName()
		body = replaceArguments(body, js_ast.Ident(desc.Loc, argsName))
		extraDecls = append(extraDecls, js_ast.Decl{
			Binding:    js_ast.Binding{Loc: desc.Loc, Data: &js_ast.BIdentifier{Name: argsName}},
			ValueOrNil: js_ast.Ident(desc.Loc, "arguments"),
		})
		l.log.AddID(logger.MsgID_Lower_ArgumentsCaptured, logger.Debug, &l.source, logger.Range{Loc: desc.Loc},
			fmt.Sprintf("\"arguments\" is saved as %q because the function body moves into a nested function", argsName))
	}

	body, hoisted := hoistDeclarations(body, desc.Args)
	for _, loc := range hoisted.letConsts {
		l.log.AddID(logger.MsgID_Lower_LetConstHoisted, logger.Debug, &l.source, logger.Range{Loc: loc},
			"This block-scoped declaration becomes function-scoped when the async function is lowered")
	}

	body = awaitToYield(body)
	ids, suspensions := numberSuspensionPoints(body)

	ctx := l.ctxName()
	callee := l.calleeName()
	regenerator := l.regeneratorName()
	e := newEmitter(ctx, regenerator, ids, suspensions)
	e.onError = l.addError
	e.explodeStatements(body)
	sm := e.stateMachine()

	contextFn := js_ast.Expr{Loc: desc.Body.Loc, Data: &js_ast.EFunction{Fn: js_ast.Fn{
		Name: &js_ast.LocName{Loc: desc.Body.Loc, Name: callee + "$"},
		Args: []js_ast.Arg{{Binding: js_ast.Binding{Loc: desc.Body.Loc, Data: &js_ast.BIdentifier{Name: ctx}}}},
		Body: js_ast.FnBody{Loc: desc.Body.Loc, Stmts: []js_ast.Stmt{e.dispatchLoop(sm)}},
	}}}

	wrapArgs := []js_ast.Expr{contextFn, js_ast.Ident(desc.Loc, callee)}
	tryLocs := tryLocsList(sm)
	if desc.CapturesThis {
		wrapArgs = append(wrapArgs, js_ast.Expr{Loc: desc.Loc, Data: &js_ast.EThis{}})
	} else if tryLocs.Data != nil {
		wrapArgs = append(wrapArgs, js_ast.Expr{Loc: desc.Loc, Data: &js_ast.ENull{}})
	}
	if tryLocs.Data != nil {
		wrapArgs = append(wrapArgs, tryLocs)
	}
	wrap := js_ast.Call(js_ast.Dot(js_ast.Ident(desc.Loc, regenerator), runtime.Wrap), wrapArgs...)

	calleeBody := directives
	if decl := hoisted.varDecl(desc.Loc, extraDecls...); decl.Data != nil {
		calleeBody = append(calleeBody, decl)
	}
	calleeBody = append(calleeBody, hoisted.fns...)
	calleeBody = append(calleeBody, js_ast.Stmt{Loc: desc.Body.Loc, Data: &js_ast.SReturn{ValueOrNil: wrap}})

	generator := js_ast.Expr{Loc: desc.Loc, Data: &js_ast.EFunction{Fn: js_ast.Fn{
		Name:       &js_ast.LocName{Loc: desc.Loc, Name: callee},
		Args:       desc.Args,
		Body:       js_ast.FnBody{Loc: desc.Body.Loc, Stmts: calleeBody},
		HasRestArg: desc.HasRestArg,
	}}}

	l.stats.LoweredFunctions++
	l.stats.SuspensionPoints += len(suspensions)
	Logger().Debug("lowered async function",
		zap.String("name", descriptorName(desc)),
		zap.Bool("arrow", desc.IsArrow),
		zap.Int("suspensionPoints", len(suspensions)),
		zap.Int("states", len(sm.Cases)+1),
		zap.Int("tryEntries", len(sm.TryEntries)))

	return loweredFunction{
		generator:   js_ast.Call(js_ast.Dot(js_ast.Ident(desc.Loc, regenerator), runtime.Mark), generator),
		machine:     sm,
		suspensions: suspensions,
	}
}

func descriptorName(desc FunctionDescriptor) string {
	if desc.Name != nil {
		return desc.Name.Name
	}
	return "<anonymous>"
}

// The wrapper declares one parameter for each parameter that counts toward
// the original function's "length"
func (l *lowerer) arityArgs(desc FunctionDescriptor) []js_ast.Arg {
	var args []js_ast.Arg
	for i, arg := range desc.Args {
		if arg.DefaultOrNil.Data != nil || (desc.HasRestArg && i == len(desc.Args)-1) {
			break
		}
		args = append(args, js_ast.Arg{Binding: js_ast.Binding{Loc: arg.Binding.Loc, Data: &js_ast.BIdentifier{Name: l.arityName(i)}}})
	}
	return args
}

// Returns "return <target>.apply(this, arguments);"
func forwardCall(loc logger.Loc, target js_ast.Expr) js_ast.Stmt {
	apply := js_ast.Call(js_ast.Dot(target, "apply"),
		js_ast.Expr{Loc: loc, Data: &js_ast.EThis{}},
		js_ast.Ident(loc, "arguments"))
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SReturn{ValueOrNil: apply}}
}

func (l *lowerer) asyncToGenerator(generator js_ast.Expr) js_ast.Expr {
	return js_ast.Call(js_ast.Dot(js_ast.Ident(generator.Loc, l.helpersName()), runtime.AsyncToGenerator), generator)
}

// Lowers a function declaration into the cell, the wrapper, and the accessor
func (l *lowerer) lowerDeclaration(desc FunctionDescriptor, isExport bool, isExportDefault bool) []js_ast.Stmt {
	lowered := l.lowerFunction(desc)
	loc := desc.Loc

	accessorBase := "_default"
	if desc.Name != nil {
		accessorBase = "_" + desc.Name.Name
	}
	accessor := js_ast.GenerateUniqueName(l.used, accessorBase)
	cell := js_ast.GenerateUniqueName(l.used, accessor+"_ref")

	cellDecl := js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: []js_ast.Decl{
		{Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: cell}}},
	}}}

	wrapper := js_ast.Stmt{Loc: loc, Data: &js_ast.SFunction{IsExport: isExport, Fn: js_ast.Fn{
		Name: desc.Name,
		Args: l.arityArgs(desc),
		Body: js_ast.FnBody{Loc: desc.Body.Loc, Stmts: []js_ast.Stmt{forwardCall(loc, js_ast.Call(js_ast.Ident(loc, accessor)))}},
	}}}
	if isExportDefault {
		wrapper = js_ast.Stmt{Loc: loc, Data: &js_ast.SExportDefault{Value: wrapper}}
	}

	// "_bar_ref || (_bar_ref = ...)" creates the generator function once
	init := js_ast.Assign(js_ast.Ident(loc, cell), l.asyncToGenerator(lowered.generator))
	get := js_ast.Expr{Loc: loc, Data: &js_ast.EBinary{Op: js_ast.BinOpLogicalOr, Left: js_ast.Ident(loc, cell), Right: init}}
	accessorFn := js_ast.Stmt{Loc: loc, Data: &js_ast.SFunction{Fn: js_ast.Fn{
		Name: &js_ast.LocName{Loc: loc, Name: accessor},
		Body: js_ast.FnBody{Loc: loc, Stmts: []js_ast.Stmt{{Loc: loc, Data: &js_ast.SReturn{ValueOrNil: get}}}},
	}}}

	return []js_ast.Stmt{cellDecl, wrapper, accessorFn}
}

// Lowers a function expression or an arrow function into an immediately
// invoked function that holds the generator function and returns the wrapper
func (l *lowerer) lowerExpression(desc FunctionDescriptor) js_ast.Expr {
	lowered := l.lowerFunction(desc)
	loc := desc.Loc
	ref := l.refName()

	refDecl := js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: []js_ast.Decl{{
		Binding:    js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: ref}},
		ValueOrNil: l.asyncToGenerator(lowered.generator),
	}}}}

	wrapper := js_ast.Fn{
		Name: desc.Name,
		Args: l.arityArgs(desc),
		Body: js_ast.FnBody{Loc: desc.Body.Loc, Stmts: []js_ast.Stmt{forwardCall(loc, js_ast.Ident(loc, ref))}},
	}

	// A named function expression can refer to itself, so the wrapper is
	// declared under that name inside the outer function
	var stmts []js_ast.Stmt
	if desc.Name != nil {
		stmts = []js_ast.Stmt{
			refDecl,
			{Loc: loc, Data: &js_ast.SFunction{Fn: wrapper}},
			{Loc: loc, Data: &js_ast.SReturn{ValueOrNil: js_ast.Ident(loc, desc.Name.Name)}},
		}
	} else {
		stmts = []js_ast.Stmt{
			refDecl,
			{Loc: loc, Data: &js_ast.SReturn{ValueOrNil: js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: wrapper}}}},
		}
	}

	outer := js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: js_ast.Fn{Body: js_ast.FnBody{Loc: loc, Stmts: stmts}}}}
	return js_ast.Call(outer)
}

type runtimeModule struct {
	name string
	path string
}

// Files with ES module syntax import the runtime and other files require it
func (l *lowerer) injectRuntimeImports(stmts []js_ast.Stmt, tree js_ast.AST) ([]js_ast.Stmt, []ast.ImportRecord) {
	records := append([]ast.ImportRecord{}, tree.ImportRecords...)
	helpersPath := l.options.HelpersModuleOrDefault()
	regeneratorPath := l.options.RegeneratorModuleOrDefault()
	needsRegenerator := l.stats.LoweredFunctions > 0

	var imports []js_ast.Stmt
	if tree.HasESMSyntax {
		records = append(records, ast.ImportRecord{Path: helpersPath, Kind: ast.ImportStmt, Flags: ast.ContainsImportStar})
		imports = append(imports, js_ast.Stmt{Data: &js_ast.SImport{
			NamespaceName:     &js_ast.LocName{Name: l.helpersName()},
			ImportRecordIndex: uint32(len(records) - 1),
		}})
		if needsRegenerator {
			records = append(records, ast.ImportRecord{Path: regeneratorPath, Kind: ast.ImportStmt, Flags: ast.ContainsDefaultAlias})
			imports = append(imports, js_ast.Stmt{Data: &js_ast.SImport{
				DefaultName:       &js_ast.LocName{Name: l.regeneratorName()},
				ImportRecordIndex: uint32(len(records) - 1),
			}})
		}
	} else {
		modules := []runtimeModule{{l.helpersName(), helpersPath}}
		if needsRegenerator {
			modules = append(modules, runtimeModule{l.regeneratorName(), regeneratorPath})
		}
		for _, item := range modules {
			records = append(records, ast.ImportRecord{Path: item.path, Kind: ast.ImportRequire})
			require := js_ast.Call(js_ast.Ident(logger.Loc{}, "require"), js_ast.Str(logger.Loc{}, item.path))
			imports = append(imports, js_ast.Stmt{Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: []js_ast.Decl{{
				Binding:    js_ast.Binding{Data: &js_ast.BIdentifier{Name: item.name}},
				ValueOrNil: require,
			}}}})
		}
	}

	return insertAfterDirectives(stmts, imports...), records
}
