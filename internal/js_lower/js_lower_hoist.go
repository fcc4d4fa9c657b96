package js_lower

import (
	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/logger"
)

// The state machine runs in a different function than the original body, so
// every declaration in the body is moved to the enclosing generator function
// where all states can see it. Variables become assignments and function
// declarations are moved as-is. Nested functions are left alone.
//
// Function declarations inside a "catch" clause with a binding can't move,
// since the binding becomes a context temporary that only exists inside the
// state machine. They become assignments at the top of their block instead.
type hoister struct {
	vars       []string
	seen       map[string]bool
	fns        []js_ast.Stmt
	letConsts  []logger.Loc
	catchDepth int
}

func hoistDeclarations(stmts []js_ast.Stmt, args []js_ast.Arg) (body []js_ast.Stmt, h *hoister) {
	h = &hoister{seen: make(map[string]bool)}
	for _, arg := range args {
		if id, ok := arg.Binding.Data.(*js_ast.BIdentifier); ok {
			h.seen[id.Name] = true
		}
	}
	return h.stmts(stmts), h
}

func (h *hoister) declare(name string) {
	if !h.seen[name] {
		h.seen[name] = true
		h.vars = append(h.vars, name)
	}
}

func (h *hoister) stmts(stmts []js_ast.Stmt) []js_ast.Stmt {
	result := make([]js_ast.Stmt, 0, len(stmts))
	if h.catchDepth > 0 {
		for _, stmt := range stmts {
			if s, ok := stmt.Data.(*js_ast.SFunction); ok {
				result = append(result, h.fnAssign(s, stmt.Loc))
			}
		}
	}
	for _, stmt := range stmts {
		if _, ok := stmt.Data.(*js_ast.SFunction); ok && h.catchDepth > 0 {
			continue
		}
		stmt = h.stmt(stmt)
		if _, ok := stmt.Data.(*js_ast.SEmpty); ok {
			continue
		}
		result = append(result, stmt)
	}
	return result
}

func (h *hoister) block(block js_ast.SBlock) js_ast.SBlock {
	return js_ast.SBlock{Stmts: h.stmts(block.Stmts)}
}

// Returns the assignments that replace a declaration, or nil if there are none
func (h *hoister) local(s *js_ast.SLocal, loc logger.Loc) js_ast.Expr {
	if s.Kind != js_ast.LocalVar {
		h.letConsts = append(h.letConsts, loc)
	}
	var value js_ast.Expr
	for _, decl := range s.Decls {
		id := decl.Binding.Data.(*js_ast.BIdentifier)
		h.declare(id.Name)
		target := js_ast.Ident(decl.Binding.Loc, id.Name)
		switch {
		case decl.ValueOrNil.Data != nil:
			value = js_ast.JoinWithComma(value, js_ast.Assign(target, decl.ValueOrNil))
		case s.Kind != js_ast.LocalVar:
			// "let" starts out undefined every time it is evaluated, while a
			// hoisted "var" would keep the value from the previous iteration
			undefined := js_ast.Expr{Loc: decl.Binding.Loc, Data: &js_ast.EUndefined{}}
			value = js_ast.JoinWithComma(value, js_ast.Assign(target, undefined))
		}
	}
	return value
}

func (h *hoister) stmt(stmt js_ast.Stmt) js_ast.Stmt {
	switch s := stmt.Data.(type) {
	case *js_ast.SLocal:
		if value := h.local(s, stmt.Loc); value.Data != nil {
			return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SExpr{Value: value}}
		}
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SEmpty{}}

	case *js_ast.SFunction:
		if h.catchDepth > 0 {
			return h.fnAssign(s, stmt.Loc)
		}
		h.seen[s.Fn.Name.Name] = true
		h.fns = append(h.fns, stmt)
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SEmpty{}}

	case *js_ast.SClass:
		// "class Foo {}" becomes "Foo = class Foo {};"
		h.letConsts = append(h.letConsts, stmt.Loc)
		h.declare(s.Class.Name.Name)
		class := js_ast.Expr{Loc: stmt.Loc, Data: &js_ast.EClass{Class: s.Class}}
		return js_ast.AssignStmt(js_ast.Ident(s.Class.Name.Loc, s.Class.Name.Name), class)

	case *js_ast.SBlock:
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SBlock{Stmts: h.stmts(s.Stmts)}}

	case *js_ast.SLabel:
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SLabel{Name: s.Name, Stmt: h.stmt(s.Stmt)}}

	case *js_ast.SIf:
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SIf{Test: s.Test, Yes: h.stmt(s.Yes), NoOrNil: h.stmtOrNil(s.NoOrNil)}}

	case *js_ast.SFor:
		init := s.InitOrNil
		if local, ok := init.Data.(*js_ast.SLocal); ok {
			if value := h.local(local, init.Loc); value.Data != nil {
				init = js_ast.Stmt{Loc: init.Loc, Data: &js_ast.SExpr{Value: value}}
			} else {
				init = js_ast.Stmt{}
			}
		}
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SFor{
			InitOrNil:   init,
			TestOrNil:   s.TestOrNil,
			UpdateOrNil: s.UpdateOrNil,
			Body:        h.stmt(s.Body),
		}}

	case *js_ast.SForIn:
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SForIn{Init: h.forLoopInit(s.Init), Value: s.Value, Body: h.stmt(s.Body)}}

	case *js_ast.SForOf:
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SForOf{Init: h.forLoopInit(s.Init), Value: s.Value, Body: h.stmt(s.Body)}}

	case *js_ast.SWhile:
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SWhile{Test: s.Test, Body: h.stmt(s.Body)}}

	case *js_ast.SDoWhile:
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SDoWhile{Body: h.stmt(s.Body), Test: s.Test}}

	case *js_ast.STry:
		try := &js_ast.STry{Block: h.block(s.Block)}
		if s.Catch != nil {
			hasBinding := s.Catch.BindingOrNil.Data != nil
			if hasBinding {
				h.catchDepth++
			}
			try.Catch = &js_ast.Catch{Loc: s.Catch.Loc, BindingOrNil: s.Catch.BindingOrNil, Block: h.block(s.Catch.Block)}
			if hasBinding {
				h.catchDepth--
			}
		}
		if s.Finally != nil {
			try.Finally = &js_ast.Finally{Loc: s.Finally.Loc, Block: h.block(s.Finally.Block)}
		}
		return js_ast.Stmt{Loc: stmt.Loc, Data: try}

	case *js_ast.SSwitch:
		cases := make([]js_ast.Case, len(s.Cases))
		for i, c := range s.Cases {
			cases[i] = js_ast.Case{ValueOrNil: c.ValueOrNil, Body: h.stmts(c.Body)}
		}
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SSwitch{Test: s.Test, Cases: cases}}
	}

	return stmt
}

// "function g() {}" becomes "g = function g() {};"
func (h *hoister) fnAssign(s *js_ast.SFunction, loc logger.Loc) js_ast.Stmt {
	h.declare(s.Fn.Name.Name)
	fn := js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: s.Fn}}
	return js_ast.AssignStmt(js_ast.Ident(s.Fn.Name.Loc, s.Fn.Name.Name), fn)
}

func (h *hoister) stmtOrNil(stmt js_ast.Stmt) js_ast.Stmt {
	if stmt.Data == nil {
		return stmt
	}
	return h.stmt(stmt)
}

// "for (var x in y)" becomes "for (x in y)"
func (h *hoister) forLoopInit(init js_ast.Stmt) js_ast.Stmt {
	if local, ok := init.Data.(*js_ast.SLocal); ok && len(local.Decls) == 1 {
		if local.Kind != js_ast.LocalVar {
			h.letConsts = append(h.letConsts, init.Loc)
		}
		id := local.Decls[0].Binding.Data.(*js_ast.BIdentifier)
		h.declare(id.Name)
		return js_ast.Stmt{Loc: init.Loc, Data: &js_ast.SExpr{Value: js_ast.Ident(local.Decls[0].Binding.Loc, id.Name)}}
	}
	return init
}

// Returns "var a, b, c;" for the hoisted variables plus any extra
// declarations, or nil if there are none
func (h *hoister) varDecl(loc logger.Loc, extra ...js_ast.Decl) js_ast.Stmt {
	decls := make([]js_ast.Decl, 0, len(h.vars)+len(extra))
	for _, name := range h.vars {
		decls = append(decls, js_ast.Decl{Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: name}}})
	}
	decls = append(decls, extra...)
	if len(decls) == 0 {
		return js_ast.Stmt{}
	}
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls}}
}

func argsDeclare(args []js_ast.Arg, name string) bool {
	for _, arg := range args {
		if id, ok := arg.Binding.Data.(*js_ast.BIdentifier); ok && id.Name == name {
			return true
		}
	}
	return false
}

// Replaces every reference to "name" in the statements with "replacement".
// Nested functions with a parameter of the same name are skipped.
func replaceIdentifier(stmts []js_ast.Stmt, name string, replacement js_ast.Expr) []js_ast.Stmt {
	m := js_ast.Mapper{
		Expr: func(expr js_ast.Expr) js_ast.Expr {
			if id, ok := expr.Data.(*js_ast.EIdentifier); ok && id.Name == name {
				return js_ast.Expr{Loc: expr.Loc, Data: replacement.Data}
			}
			return expr
		},
		EnterFn: func(args []js_ast.Arg, isArrow bool) bool {
			return !argsDeclare(args, name)
		},
	}
	return m.Stmts(stmts)
}

// Replaces "arguments" with "replacement" in the statements and in nested
// arrow functions, which share "arguments" with their parent
func replaceArguments(stmts []js_ast.Stmt, replacement js_ast.Expr) []js_ast.Stmt {
	m := js_ast.Mapper{
		Expr: func(expr js_ast.Expr) js_ast.Expr {
			if id, ok := expr.Data.(*js_ast.EIdentifier); ok && id.Name == "arguments" {
				return js_ast.Expr{Loc: expr.Loc, Data: replacement.Data}
			}
			return expr
		},
		EnterFn: func(args []js_ast.Arg, isArrow bool) bool {
			return isArrow
		},
	}
	return m.Stmts(stmts)
}

// Reports whether "this" or "arguments" in the body refers to the function
// itself. Arrow functions share both with their parent.
func capturesThisAndArguments(body []js_ast.Stmt) (capturesThis bool, capturesArguments bool) {
	w := js_ast.Walker{
		Expr: func(expr js_ast.Expr) bool {
			switch e := expr.Data.(type) {
			case *js_ast.EThis:
				capturesThis = true
			case *js_ast.EIdentifier:
				if e.Name == "arguments" {
					capturesArguments = true
				}
			}
			return true
		},
		EnterFn: func(args []js_ast.Arg, isArrow bool) bool {
			return isArrow
		},
	}
	w.Stmts(body)
	return
}

// Rewrites "this" and "arguments" in an arrow function body (and in arrow
// functions nested inside it) to the given identifiers
func replaceThisAndArguments(args []js_ast.Arg, body []js_ast.Stmt, thisName func() string, argumentsName func() string) ([]js_ast.Arg, []js_ast.Stmt) {
	m := js_ast.Mapper{
		Expr: func(expr js_ast.Expr) js_ast.Expr {
			switch e := expr.Data.(type) {
			case *js_ast.EThis:
				return js_ast.Ident(expr.Loc, thisName())
			case *js_ast.EIdentifier:
				if e.Name == "arguments" {
					return js_ast.Ident(expr.Loc, argumentsName())
				}
			}
			return expr
		},
		EnterFn: func(args []js_ast.Arg, isArrow bool) bool {
			return isArrow
		},
	}
	newArgs := make([]js_ast.Arg, len(args))
	for i, arg := range args {
		newArgs[i] = js_ast.Arg{Binding: arg.Binding, DefaultOrNil: m.MapExpr(arg.DefaultOrNil)}
	}
	return newArgs, m.Stmts(body)
}

// Turns every "await x" that belongs to this function into "yield x"
func awaitToYield(body []js_ast.Stmt) []js_ast.Stmt {
	m := js_ast.Mapper{
		Expr: func(expr js_ast.Expr) js_ast.Expr {
			if e, ok := expr.Data.(*js_ast.EAwait); ok {
				return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EYield{ValueOrNil: e.Value}}
			}
			return expr
		},
	}
	return m.Stmts(body)
}

// Numbers the suspension points in source order. An await that contains
// another await comes first.
func numberSuspensionPoints(body []js_ast.Stmt) (map[*js_ast.EYield]int, []SuspensionPoint) {
	ids := make(map[*js_ast.EYield]int)
	var points []SuspensionPoint
	w := js_ast.Walker{Expr: func(expr js_ast.Expr) bool {
		if e, ok := expr.Data.(*js_ast.EYield); ok {
			ids[e] = len(points)
			points = append(points, SuspensionPoint{ID: len(points), ResumeState: -1, Loc: expr.Loc})
		}
		return true
	}}
	w.Stmts(body)
	return ids, points
}
