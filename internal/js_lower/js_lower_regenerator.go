package js_lower

// This file compiles the body of a generator function into an explicit state
// machine that runs under the regenerator runtime:
//
//   regeneratorRuntime.wrap(function _callee$(_ctx) {
//     while (1) switch (_ctx.prev = _ctx.next) {
//       case 0:
//         _ctx.next = 2;
//         return x;
//       case 2:
//         f(_ctx.sent);
//       case 3:
//       case "end":
//         return _ctx.stop();
//     }
//   }, _callee);
//
// Every statement that can suspend or jump is flattened into a listing of
// simple statements. Positions in that listing are the state numbers, and a
// state starts wherever some jump can land. Statements that cannot suspend or
// jump are copied into the listing unchanged.

import (
	"fmt"
	"strconv"

	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/logger"
	"github.com/esdown/esdown/internal/runtime"
)

// One per "await" in a lowered function. IDs follow source order, and the
// resume state is the case that runs when the awaited value arrives.
type SuspensionPoint struct {
	ID          int
	ResumeState int
	Loc         logger.Loc
}

type StateCase struct {
	State int
	Body  []js_ast.Stmt
}

// The runtime uses these to route an exception thrown in the protected
// region. States that do not exist are -1.
type TryEntry struct {
	TryState     int
	CatchState   int
	FinallyState int
	AfterState   int
}

type StateMachine struct {
	Cases      []StateCase
	FinalState int
	TryEntries []TryEntry
}

// A state number that is filled in when the listing reaches it. Every jump to
// that state shares the same node, so setting the value updates all of them.
func newLoc() *js_ast.ENumber {
	return &js_ast.ENumber{Value: -1}
}

func locExpr(loc *js_ast.ENumber) js_ast.Expr {
	return js_ast.Expr{Data: loc}
}

type leapKind uint8

const (
	leapFunction leapKind = iota
	leapLoop
	leapSwitch
	leapLabel
)

type leapEntry struct {
	breakLoc    *js_ast.ENumber
	continueLoc *js_ast.ENumber
	label       string
	kind        leapKind
}

type tryEntry struct {
	firstLoc   *js_ast.ENumber
	catchLoc   *js_ast.ENumber
	finallyLoc *js_ast.ENumber
	afterLoc   *js_ast.ENumber
}

type emitter struct {
	ctx            string
	regeneratorRef string

	listing    []js_ast.Stmt
	marked     map[int]bool
	finalLoc   *js_ast.ENumber
	leaps      []leapEntry
	tryEntries []*tryEntry
	nextTempID int

	awaitIDs    map[*js_ast.EYield]int
	suspensions []SuspensionPoint

	leapyExprs map[js_ast.E]bool
	leapyStmts map[js_ast.S]bool

	onError func(loc logger.Loc, text string)
}

func newEmitter(ctx string, regeneratorRef string, awaitIDs map[*js_ast.EYield]int, suspensions []SuspensionPoint) *emitter {
	e := &emitter{
		ctx:            ctx,
		regeneratorRef: regeneratorRef,
		marked:         map[int]bool{0: true},
		finalLoc:       newLoc(),
		awaitIDs:       awaitIDs,
		suspensions:    suspensions,
		leapyExprs:     make(map[js_ast.E]bool),
		leapyStmts:     make(map[js_ast.S]bool),
	}
	e.leaps = []leapEntry{{kind: leapFunction}}
	return e
}

func (e *emitter) ctxProp(name string) js_ast.Expr {
	return js_ast.Dot(js_ast.Ident(logger.Loc{}, e.ctx), name)
}

func (e *emitter) emit(stmt js_ast.Stmt) {
	e.listing = append(e.listing, stmt)
}

func (e *emitter) emitExpr(expr js_ast.Expr) {
	e.emit(js_ast.Stmt{Loc: expr.Loc, Data: &js_ast.SExpr{Value: expr}})
}

func (e *emitter) emitAssign(lhs js_ast.Expr, rhs js_ast.Expr) js_ast.Expr {
	e.emit(js_ast.AssignStmt(lhs, rhs))
	return lhs
}

func (e *emitter) makeTempVar() js_ast.Expr {
	temp := e.ctxProp("t" + strconv.Itoa(e.nextTempID))
	e.nextTempID++
	return temp
}

func (e *emitter) mark(loc *js_ast.ENumber) *js_ast.ENumber {
	index := len(e.listing)
	if loc.Value == -1 {
		loc.Value = float64(index)
	} else if int(loc.Value) != index {
		panic("Internal error")
	}
	e.marked[index] = true
	return loc
}

// Used for states that are only the target of "_ctx.prev" and are never
// jumped to, so they do not start a new case.
func (e *emitter) unmarkedCurrentLoc() *js_ast.ENumber {
	return &js_ast.ENumber{Value: float64(len(e.listing))}
}

func (e *emitter) updateContextPrevLoc(loc *js_ast.ENumber) {
	e.emitAssign(e.ctxProp(runtime.CtxPrev), locExpr(loc))
}

func (e *emitter) jumpStmts(to js_ast.Expr) []js_ast.Stmt {
	return []js_ast.Stmt{
		js_ast.AssignStmt(e.ctxProp(runtime.CtxNext), to),
		{Data: &js_ast.SBreak{}},
	}
}

func (e *emitter) jump(to js_ast.Expr) {
	for _, stmt := range e.jumpStmts(to) {
		e.emit(stmt)
	}
}

func (e *emitter) jumpIf(test js_ast.Expr, to *js_ast.ENumber) {
	e.emit(js_ast.Stmt{Loc: test.Loc, Data: &js_ast.SIf{
		Test: test,
		Yes:  js_ast.Stmt{Loc: test.Loc, Data: &js_ast.SBlock{Stmts: e.jumpStmts(locExpr(to))}},
	}})
}

func (e *emitter) jumpIfNot(test js_ast.Expr, to *js_ast.ENumber) {
	if unary, ok := test.Data.(*js_ast.EUnary); ok && unary.Op == js_ast.UnOpNot {
		test = unary.Value
	} else {
		test = js_ast.Expr{Loc: test.Loc, Data: &js_ast.EUnary{Op: js_ast.UnOpNot, Value: test}}
	}
	e.jumpIf(test, to)
}

func (e *emitter) emitAbruptCompletion(kind string, value js_ast.Expr) {
	args := []js_ast.Expr{js_ast.Str(logger.Loc{}, kind)}
	if value.Data != nil {
		args = append(args, value)
	}
	e.emit(js_ast.Stmt{Data: &js_ast.SReturn{ValueOrNil: js_ast.Call(e.ctxProp(runtime.CtxAbrupt), args...)}})
}

func (e *emitter) clearPendingException(tryLoc *js_ast.ENumber, assignee js_ast.Expr) {
	catchCall := js_ast.Call(e.ctxProp(runtime.CtxCatch), locExpr(tryLoc))
	if assignee.Data != nil {
		e.emitAssign(assignee, catchCall)
	} else {
		e.emitExpr(catchCall)
	}
}

func (e *emitter) withEntry(entry leapEntry, callback func()) {
	e.leaps = append(e.leaps, entry)
	callback()
	e.leaps = e.leaps[:len(e.leaps)-1]
}

func (e *emitter) findLeapLocation(isContinue bool, label string) *js_ast.ENumber {
	for i := len(e.leaps) - 1; i >= 0; i-- {
		entry := e.leaps[i]
		loc := entry.breakLoc
		if isContinue {
			loc = entry.continueLoc
		}
		if loc == nil {
			continue
		}
		if label != "" {
			if entry.label == label {
				return loc
			}
		} else if entry.kind != leapLabel {
			// Labeled blocks are only targeted by labeled jumps
			return loc
		}
	}
	return nil
}

// A "leap" is anything that suspends the function or moves control somewhere
// other than the next statement. Nested functions are opaque.
func (e *emitter) exprContainsLeap(expr js_ast.Expr) bool {
	if expr.Data == nil {
		return false
	}
	if result, ok := e.leapyExprs[expr.Data]; ok {
		return result
	}
	found := false
	w := js_ast.Walker{Expr: func(expr js_ast.Expr) bool {
		if _, ok := expr.Data.(*js_ast.EYield); ok {
			found = true
		}
		return !found
	}}
	w.VisitExpr(expr)
	e.leapyExprs[expr.Data] = found
	return found
}

func (e *emitter) stmtContainsLeap(stmt js_ast.Stmt) bool {
	if stmt.Data == nil {
		return false
	}
	if result, ok := e.leapyStmts[stmt.Data]; ok {
		return result
	}
	found := false
	w := js_ast.Walker{
		Expr: func(expr js_ast.Expr) bool {
			if _, ok := expr.Data.(*js_ast.EYield); ok {
				found = true
			}
			return !found
		},
		Stmt: func(stmt js_ast.Stmt) bool {
			switch stmt.Data.(type) {
			case *js_ast.SBreak, *js_ast.SContinue, *js_ast.SReturn, *js_ast.SThrow:
				found = true
			}
			return !found
		},
	}
	w.VisitStmt(stmt)
	e.leapyStmts[stmt.Data] = found
	return found
}

func (e *emitter) childrenContainLeap(expr js_ast.Expr) bool {
	found := false
	isRoot := true
	w := js_ast.Walker{Expr: func(child js_ast.Expr) bool {
		if isRoot {
			isRoot = false
			return true
		}
		if !found && e.exprContainsLeap(child) {
			found = true
		}
		return false
	}}
	w.VisitExpr(expr)
	return found
}

func (e *emitter) explodeStatements(stmts []js_ast.Stmt) {
	for _, stmt := range stmts {
		e.explodeStatement(stmt, "")
	}
}

// The label is the one directly attached to this statement, if any, so that
// "continue label" can find the loop it names.
func (e *emitter) explodeStatement(stmt js_ast.Stmt, label string) {
	switch s := stmt.Data.(type) {
	case *js_ast.SBlock:
		e.explodeStatements(s.Stmts)
		return
	case *js_ast.SEmpty:
		return
	}

	if !e.stmtContainsLeap(stmt) {
		e.emit(stmt)
		return
	}

	switch s := stmt.Data.(type) {
	case *js_ast.SExpr:
		e.explodeExpression(s.Value, true)

	case *js_ast.SLabel:
		after := newLoc()
		e.withEntry(leapEntry{kind: leapLabel, breakLoc: after, label: s.Name.Name}, func() {
			e.explodeStatement(s.Stmt, s.Name.Name)
		})
		e.mark(after)

	case *js_ast.SWhile:
		before := newLoc()
		after := newLoc()
		e.mark(before)
		e.jumpIfNot(e.explodeExpression(s.Test, false), after)
		e.withEntry(leapEntry{kind: leapLoop, breakLoc: after, continueLoc: before, label: label}, func() {
			e.explodeStatement(s.Body, "")
		})
		e.jump(locExpr(before))
		e.mark(after)

	case *js_ast.SDoWhile:
		first := newLoc()
		test := newLoc()
		after := newLoc()
		e.mark(first)
		e.withEntry(leapEntry{kind: leapLoop, breakLoc: after, continueLoc: test, label: label}, func() {
			e.explodeStatement(s.Body, "")
		})
		e.mark(test)
		e.jumpIf(e.explodeExpression(s.Test, false), first)
		e.mark(after)

	case *js_ast.SFor:
		head := newLoc()
		update := newLoc()
		after := newLoc()
		if s.InitOrNil.Data != nil {
			e.explodeStatement(s.InitOrNil, "")
		}
		e.mark(head)
		if s.TestOrNil.Data != nil {
			e.jumpIfNot(e.explodeExpression(s.TestOrNil, false), after)
		}
		e.withEntry(leapEntry{kind: leapLoop, breakLoc: after, continueLoc: update, label: label}, func() {
			e.explodeStatement(s.Body, "")
		})
		e.mark(update)
		if s.UpdateOrNil.Data != nil {
			e.explodeExpression(s.UpdateOrNil, true)
		}
		e.jump(locExpr(head))
		e.mark(after)

	case *js_ast.SForIn:
		head := newLoc()
		after := newLoc()
		keyIterNextFn := e.makeTempVar()
		keys := js_ast.Dot(js_ast.Ident(logger.Loc{}, e.regeneratorRef), runtime.Keys)
		e.emitAssign(keyIterNextFn, js_ast.Call(keys, e.explodeExpression(s.Value, false)))
		e.mark(head)
		keyInfo := e.makeTempVar()
		e.jumpIf(js_ast.Dot(js_ast.Assign(keyInfo, js_ast.Call(keyIterNextFn)), "done"), after)
		e.emitAssign(forLoopTarget(s.Init), js_ast.Dot(keyInfo, "value"))
		e.withEntry(leapEntry{kind: leapLoop, breakLoc: after, continueLoc: head, label: label}, func() {
			e.explodeStatement(s.Body, "")
		})
		e.jump(locExpr(head))
		e.mark(after)

	case *js_ast.SForOf:
		// Iterators are driven by hand. Leaving the loop early does not call
		// the iterator's "return" method.
		head := newLoc()
		after := newLoc()
		iterator := e.makeTempVar()
		symbolIterator := js_ast.Dot(js_ast.Ident(logger.Loc{}, "Symbol"), "iterator")
		iterable := e.explodeExpression(s.Value, false)
		e.emitAssign(iterator, js_ast.Call(js_ast.Expr{Loc: iterable.Loc, Data: &js_ast.EIndex{Target: iterable, Index: symbolIterator}}))
		e.mark(head)
		step := e.makeTempVar()
		e.jumpIf(js_ast.Dot(js_ast.Assign(step, js_ast.Call(js_ast.Dot(iterator, "next"))), "done"), after)
		e.emitAssign(forLoopTarget(s.Init), js_ast.Dot(step, "value"))
		e.withEntry(leapEntry{kind: leapLoop, breakLoc: after, continueLoc: head, label: label}, func() {
			e.explodeStatement(s.Body, "")
		})
		e.jump(locExpr(head))
		e.mark(after)

	case *js_ast.SBreak:
		e.explodeJump(stmt.Loc, "break", false, s.Label)

	case *js_ast.SContinue:
		e.explodeJump(stmt.Loc, "continue", true, s.Label)

	case *js_ast.SSwitch:
		// Always save the discriminant in case the case tests overwrite values
		// like "_ctx.sent"
		disc := e.emitAssign(e.makeTempVar(), e.explodeExpression(s.Test, false))
		after := newLoc()
		defaultLoc := newLoc()
		condition := locExpr(defaultLoc)
		caseLocs := make([]*js_ast.ENumber, len(s.Cases))
		for i := len(s.Cases) - 1; i >= 0; i-- {
			c := s.Cases[i]
			if c.ValueOrNil.Data == nil {
				caseLocs[i] = defaultLoc
				continue
			}
			caseLocs[i] = newLoc()
			condition = js_ast.Expr{Loc: c.ValueOrNil.Loc, Data: &js_ast.EIf{
				Test: js_ast.Expr{Loc: c.ValueOrNil.Loc, Data: &js_ast.EBinary{Op: js_ast.BinOpStrictEq, Left: disc, Right: c.ValueOrNil}},
				Yes:  locExpr(caseLocs[i]),
				No:   condition,
			}}
		}
		e.jump(e.explodeExpression(condition, false))
		e.withEntry(leapEntry{kind: leapSwitch, breakLoc: after}, func() {
			for i, c := range s.Cases {
				e.mark(caseLocs[i])
				e.explodeStatements(c.Body)
			}
		})
		e.mark(after)
		if defaultLoc.Value == -1 {
			e.mark(defaultLoc)
		}

	case *js_ast.SIf:
		var elseLoc *js_ast.ENumber
		after := newLoc()
		target := after
		if s.NoOrNil.Data != nil {
			elseLoc = newLoc()
			target = elseLoc
		}
		e.jumpIfNot(e.explodeExpression(s.Test, false), target)
		e.explodeStatement(s.Yes, "")
		if elseLoc != nil {
			e.jump(locExpr(after))
			e.mark(elseLoc)
			e.explodeStatement(s.NoOrNil, "")
		}
		e.mark(after)

	case *js_ast.SReturn:
		var value js_ast.Expr
		if s.ValueOrNil.Data != nil {
			value = e.explodeExpression(s.ValueOrNil, false)
		}
		e.emitAbruptCompletion("return", value)

	case *js_ast.SThrow:
		e.emit(js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SThrow{Value: e.explodeExpression(s.Value, false)}})

	case *js_ast.STry:
		e.explodeTry(s)

	default:
		panic(fmt.Sprintf("Internal error: unexpected statement %T", stmt.Data))
	}
}

func (e *emitter) explodeJump(loc logger.Loc, kind string, isContinue bool, label *js_ast.LocName) {
	name := ""
	if label != nil {
		name = label.Name
	}
	target := e.findLeapLocation(isContinue, name)
	if target == nil {
		if e.onError != nil {
			if name != "" {
				e.onError(loc, fmt.Sprintf("There is no containing label named %q", name))
			} else {
				e.onError(loc, fmt.Sprintf("Cannot use %q here", kind))
			}
		}
		return
	}
	e.emitAbruptCompletion(kind, locExpr(target))
}

func (e *emitter) explodeTry(s *js_ast.STry) {
	after := newLoc()
	entry := &tryEntry{firstLoc: e.unmarkedCurrentLoc(), afterLoc: after}
	if s.Catch != nil {
		entry.catchLoc = newLoc()
	}
	if s.Finally != nil {
		entry.finallyLoc = newLoc()
	}
	e.tryEntries = append(e.tryEntries, entry)
	e.updateContextPrevLoc(entry.firstLoc)

	e.explodeStatements(s.Block.Stmts)

	if entry.catchLoc != nil {
		// The catch block comes first, so jump over it
		if entry.finallyLoc != nil {
			e.jump(locExpr(entry.finallyLoc))
		} else {
			e.jump(locExpr(after))
		}

		e.updateContextPrevLoc(e.mark(entry.catchLoc))
		body := s.Catch.Block.Stmts
		if binding, ok := s.Catch.BindingOrNil.Data.(*js_ast.BIdentifier); ok {
			safeParam := e.makeTempVar()
			e.clearPendingException(entry.firstLoc, safeParam)
			body = replaceIdentifier(body, binding.Name, safeParam)
		} else {
			e.clearPendingException(entry.firstLoc, js_ast.Expr{})
		}
		e.explodeStatements(body)
	}

	if entry.finallyLoc != nil {
		e.updateContextPrevLoc(e.mark(entry.finallyLoc))
		e.explodeStatements(s.Finally.Block.Stmts)
		e.emit(js_ast.Stmt{Data: &js_ast.SReturn{ValueOrNil: js_ast.Call(e.ctxProp(runtime.CtxFinish), locExpr(entry.finallyLoc))}})
	}

	e.mark(after)
}

// Returns the expression that a "for-in" or "for-of" loop assigns each value
// to. Declarations have already been hoisted by this point.
func forLoopTarget(init js_ast.Stmt) js_ast.Expr {
	switch s := init.Data.(type) {
	case *js_ast.SExpr:
		return s.Value
	case *js_ast.SLocal:
		if len(s.Decls) == 1 {
			if id, ok := s.Decls[0].Binding.Data.(*js_ast.BIdentifier); ok {
				return js_ast.Ident(init.Loc, id.Name)
			}
		}
	}
	panic("Internal error")
}

func (e *emitter) explodeExpression(expr js_ast.Expr, ignoreResult bool) js_ast.Expr {
	finish := func(result js_ast.Expr) js_ast.Expr {
		if ignoreResult {
			e.emitExpr(result)
			return js_ast.Expr{}
		}
		return result
	}

	if !e.exprContainsLeap(expr) {
		return finish(expr)
	}

	// Whenever a later sibling suspends, an earlier sibling may observe a
	// different value after resuming, so its value is saved in a temporary.
	// Literals are the exception since nothing can change them.
	hasLeapingChildren := e.childrenContainLeap(expr)
	explodeViaTempVar := func(tempVar js_ast.Expr, child js_ast.Expr, ignoreChildResult bool) js_ast.Expr {
		result := e.explodeExpression(child, ignoreChildResult)
		if ignoreChildResult {
			// Side effects were already emitted
		} else if tempVar.Data != nil || (hasLeapingChildren && !js_ast.IsPrimitiveLiteral(result.Data)) {
			if tempVar.Data == nil {
				tempVar = e.makeTempVar()
			}
			result = e.emitAssign(tempVar, result)
		}
		return result
	}
	explodeArgs := func(args []js_ast.Expr) []js_ast.Expr {
		result := make([]js_ast.Expr, 0, len(args))
		for _, arg := range args {
			if spread, ok := arg.Data.(*js_ast.ESpread); ok {
				value := explodeViaTempVar(js_ast.Expr{}, spread.Value, false)
				result = append(result, js_ast.Expr{Loc: arg.Loc, Data: &js_ast.ESpread{Value: value}})
			} else {
				result = append(result, explodeViaTempVar(js_ast.Expr{}, arg, false))
			}
		}
		return result
	}

	switch ex := expr.Data.(type) {
	case *js_ast.EDot:
		return finish(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EDot{
			Target:  e.explodeExpression(ex.Target, false),
			Name:    ex.Name,
			NameLoc: ex.NameLoc,
		}})

	case *js_ast.EIndex:
		var target js_ast.Expr
		if e.exprContainsLeap(ex.Index) {
			target = explodeViaTempVar(js_ast.Expr{}, ex.Target, false)
		} else {
			target = e.explodeExpression(ex.Target, false)
		}
		return finish(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EIndex{
			Target: target,
			Index:  explodeViaTempVar(js_ast.Expr{}, ex.Index, false),
		}})

	case *js_ast.ECall:
		hasLeapingArgs := false
		for _, arg := range ex.Args {
			if e.exprContainsLeap(arg) {
				hasLeapingArgs = true
				break
			}
		}

		var newCallee js_ast.Expr
		var injectFirstArg js_ast.Expr
		switch callee := ex.Target.Data.(type) {
		case *js_ast.EDot:
			if hasLeapingArgs {
				// Evaluate the callee before the arguments, but keep the object
				// of the member expression bound to "this" for the call
				newObject := explodeViaTempVar(e.makeTempVar(), callee.Target, false)
				injectFirstArg = newObject
				newCallee = js_ast.Dot(js_ast.Dot(newObject, callee.Name), "call")
			} else {
				newCallee = e.explodeExpression(ex.Target, false)
			}

		case *js_ast.EIndex:
			if hasLeapingArgs {
				newObject := explodeViaTempVar(e.makeTempVar(), callee.Target, false)
				newProperty := explodeViaTempVar(js_ast.Expr{}, callee.Index, false)
				injectFirstArg = newObject
				member := js_ast.Expr{Loc: ex.Target.Loc, Data: &js_ast.EIndex{Target: newObject, Index: newProperty}}
				newCallee = js_ast.Dot(member, "call")
			} else {
				newCallee = e.explodeExpression(ex.Target, false)
			}

		default:
			newCallee = explodeViaTempVar(js_ast.Expr{}, ex.Target, false)
			switch newCallee.Data.(type) {
			case *js_ast.EDot, *js_ast.EIndex:
				// The original call was unqualified, so the temporary must not
				// become "this" for the call
				zero := js_ast.Expr{Loc: newCallee.Loc, Data: &js_ast.ENumber{Value: 0}}
				newCallee = js_ast.Expr{Loc: newCallee.Loc, Data: &js_ast.EBinary{Op: js_ast.BinOpComma, Left: zero, Right: newCallee}}
			}
		}

		args := ex.Args
		if hasLeapingArgs {
			args = explodeArgs(ex.Args)
			if injectFirstArg.Data != nil {
				args = append([]js_ast.Expr{injectFirstArg}, args...)
			}
		}
		return finish(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.ECall{Target: newCallee, Args: args}})

	case *js_ast.ENew:
		target := explodeViaTempVar(js_ast.Expr{}, ex.Target, false)
		return finish(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.ENew{Target: target, Args: explodeArgs(ex.Args)}})

	case *js_ast.EArray:
		return finish(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EArray{Items: explodeArgs(ex.Items), IsSingleLine: ex.IsSingleLine}})

	case *js_ast.EObject:
		properties := make([]js_ast.Property, len(ex.Properties))
		for i, property := range ex.Properties {
			if property.IsComputed {
				property.KeyOrNil = explodeViaTempVar(js_ast.Expr{}, property.KeyOrNil, false)
			}
			if property.Kind == js_ast.PropertySpread || (property.Kind == js_ast.PropertyNormal && !property.IsMethod) {
				property.ValueOrNil = explodeViaTempVar(js_ast.Expr{}, property.ValueOrNil, false)
				if _, ok := property.ValueOrNil.Data.(*js_ast.EIdentifier); !ok {
					property.WasShorthand = false
				}
			}
			properties[i] = property
		}
		return finish(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EObject{Properties: properties, IsSingleLine: ex.IsSingleLine}})

	case *js_ast.ESpread:
		return finish(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.ESpread{Value: e.explodeExpression(ex.Value, false)}})

	case *js_ast.EUnary:
		return finish(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EUnary{Op: ex.Op, Value: e.explodeExpression(ex.Value, false)}})

	case *js_ast.EIf:
		elseLoc := newLoc()
		after := newLoc()
		test := e.explodeExpression(ex.Test, false)
		e.jumpIfNot(test, elseLoc)
		var result js_ast.Expr
		if !ignoreResult {
			result = e.makeTempVar()
		}
		explodeViaTempVar(result, ex.Yes, ignoreResult)
		e.jump(locExpr(after))
		e.mark(elseLoc)
		explodeViaTempVar(result, ex.No, ignoreResult)
		e.mark(after)
		return result

	case *js_ast.EBinary:
		switch {
		case ex.Op == js_ast.BinOpComma:
			e.explodeExpression(ex.Left, true)
			return e.explodeExpression(ex.Right, ignoreResult)

		case ex.Op.IsLogical():
			after := newLoc()
			var result js_ast.Expr
			if !ignoreResult {
				result = e.makeTempVar()
			}
			left := explodeViaTempVar(result, ex.Left, false)
			switch ex.Op {
			case js_ast.BinOpLogicalAnd:
				e.jumpIfNot(left, after)
			case js_ast.BinOpLogicalOr:
				e.jumpIf(left, after)
			case js_ast.BinOpNullishCoalescing:
				null := js_ast.Expr{Loc: left.Loc, Data: &js_ast.ENull{}}
				e.jumpIf(js_ast.Expr{Loc: left.Loc, Data: &js_ast.EBinary{Op: js_ast.BinOpLooseNe, Left: left, Right: null}}, after)
			}
			explodeViaTempVar(result, ex.Right, ignoreResult)
			e.mark(after)
			return result

		case ex.Op == js_ast.BinOpAssign:
			// The target of a simple assignment is not read, so it does not
			// need to be saved before the value suspends
			return finish(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EBinary{
				Op:    js_ast.BinOpAssign,
				Left:  e.explodeExpression(ex.Left, false),
				Right: e.explodeExpression(ex.Right, false),
			}})

		case ex.Op.IsAssign():
			// "x += await y" becomes "_ctx.t0 = x; x = _ctx.t0 += _ctx.sent"
			lhs := e.explodeExpression(ex.Left, false)
			temp := e.emitAssign(e.makeTempVar(), lhs)
			right := e.explodeExpression(ex.Right, false)
			return finish(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EBinary{
				Op:    js_ast.BinOpAssign,
				Left:  lhs,
				Right: js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EBinary{Op: ex.Op, Left: temp, Right: right}},
			}})

		default:
			return finish(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EBinary{
				Op:    ex.Op,
				Left:  explodeViaTempVar(js_ast.Expr{}, ex.Left, false),
				Right: explodeViaTempVar(js_ast.Expr{}, ex.Right, false),
			}})
		}

	case *js_ast.EYield:
		after := newLoc()
		var arg js_ast.Expr
		if ex.ValueOrNil.Data != nil {
			arg = e.explodeExpression(ex.ValueOrNil, false)
		}
		e.emitAssign(e.ctxProp(runtime.CtxNext), locExpr(after))
		e.emit(js_ast.Stmt{Loc: expr.Loc, Data: &js_ast.SReturn{ValueOrNil: arg}})
		e.mark(after)
		if id, ok := e.awaitIDs[ex]; ok {
			e.suspensions[id].ResumeState = int(after.Value)
		}
		return e.ctxProp(runtime.CtxSent)
	}

	panic(fmt.Sprintf("Internal error: unexpected expression %T", expr.Data))
}

// Splits the listing into cases. Statements after a completion statement in
// the same case can never run and are dropped.
func (e *emitter) stateMachine() StateMachine {
	var sm StateMachine
	alreadyEnded := false
	for i, stmt := range e.listing {
		if e.marked[i] {
			sm.Cases = append(sm.Cases, StateCase{State: i})
			alreadyEnded = false
		}
		if !alreadyEnded {
			c := &sm.Cases[len(sm.Cases)-1]
			c.Body = append(c.Body, stmt)
			if isCompletionStatement(stmt) {
				alreadyEnded = true
			}
		}
	}

	e.finalLoc.Value = float64(len(e.listing))
	sm.FinalState = len(e.listing)

	for _, entry := range e.tryEntries {
		sm.TryEntries = append(sm.TryEntries, TryEntry{
			TryState:     locValue(entry.firstLoc),
			CatchState:   locValue(entry.catchLoc),
			FinallyState: locValue(entry.finallyLoc),
			AfterState:   locValue(entry.afterLoc),
		})
	}
	return sm
}

func locValue(loc *js_ast.ENumber) int {
	if loc == nil {
		return -1
	}
	if loc.Value == -1 {
		panic("Internal error")
	}
	return int(loc.Value)
}

func isCompletionStatement(stmt js_ast.Stmt) bool {
	switch stmt.Data.(type) {
	case *js_ast.SReturn, *js_ast.SBreak, *js_ast.SContinue, *js_ast.SThrow:
		return true
	}
	return false
}

// Renders the dispatch loop that goes inside the "_callee$" function
func (e *emitter) dispatchLoop(sm StateMachine) js_ast.Stmt {
	cases := make([]js_ast.Case, 0, len(sm.Cases)+2)
	for _, c := range sm.Cases {
		cases = append(cases, js_ast.Case{
			ValueOrNil: js_ast.Expr{Data: &js_ast.ENumber{Value: float64(c.State)}},
			Body:       c.Body,
		})
	}
	stop := js_ast.Stmt{Data: &js_ast.SReturn{ValueOrNil: js_ast.Call(e.ctxProp(runtime.CtxStop))}}
	cases = append(cases,
		js_ast.Case{ValueOrNil: js_ast.Expr{Data: &js_ast.ENumber{Value: float64(sm.FinalState)}}},
		js_ast.Case{ValueOrNil: js_ast.Str(logger.Loc{}, "end"), Body: []js_ast.Stmt{stop}},
	)
	return js_ast.Stmt{Data: &js_ast.SWhile{
		Test: js_ast.Expr{Data: &js_ast.ENumber{Value: 1}},
		Body: js_ast.Stmt{Data: &js_ast.SSwitch{
			Test:  js_ast.Assign(e.ctxProp(runtime.CtxPrev), e.ctxProp(runtime.CtxNext)),
			Cases: cases,
		}},
	}}
}

// Returns "[[try, catch, finally, after], ...]" or nil if there are no try
// statements. A missing catch is a hole and a missing finally is omitted.
func tryLocsList(sm StateMachine) js_ast.Expr {
	if len(sm.TryEntries) == 0 {
		return js_ast.Expr{}
	}
	number := func(value int) js_ast.Expr {
		return js_ast.Expr{Data: &js_ast.ENumber{Value: float64(value)}}
	}
	lists := make([]js_ast.Expr, 0, len(sm.TryEntries))
	for _, entry := range sm.TryEntries {
		locs := []js_ast.Expr{number(entry.TryState), {Data: &js_ast.EMissing{}}}
		if entry.CatchState != -1 {
			locs[1] = number(entry.CatchState)
		}
		if entry.FinallyState != -1 {
			locs = append(locs, number(entry.FinallyState), number(entry.AfterState))
		}
		lists = append(lists, js_ast.Expr{Data: &js_ast.EArray{Items: locs, IsSingleLine: true}})
	}
	return js_ast.Expr{Data: &js_ast.EArray{Items: lists, IsSingleLine: true}}
}
