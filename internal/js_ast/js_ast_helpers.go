package js_ast

import (
	"github.com/esdown/esdown/internal/logger"
)

func Assign(a Expr, b Expr) Expr {
	return Expr{Loc: a.Loc, Data: &EBinary{Op: BinOpAssign, Left: a, Right: b}}
}

func AssignStmt(a Expr, b Expr) Stmt {
	return Stmt{Loc: a.Loc, Data: &SExpr{Value: Assign(a, b)}}
}

// Wraps the provided expression in the "!" prefix operator. Calling this
// with "!x" returns "x" only when "x" is itself a "!" expression, since that
// is the only case where the boolean conversion is already applied.
func Not(expr Expr) Expr {
	if e, ok := expr.Data.(*EUnary); ok && e.Op == UnOpNot {
		if inner, ok := e.Value.Data.(*EUnary); ok && inner.Op == UnOpNot {
			return e.Value
		}
	}
	return Expr{Loc: expr.Loc, Data: &EUnary{Op: UnOpNot, Value: expr}}
}

func JoinWithComma(a Expr, b Expr) Expr {
	if a.Data == nil {
		return b
	}
	if b.Data == nil {
		return a
	}
	return Expr{Loc: a.Loc, Data: &EBinary{Op: BinOpComma, Left: a, Right: b}}
}

func JoinAllWithComma(all []Expr) (result Expr) {
	for _, value := range all {
		result = JoinWithComma(result, value)
	}
	return
}

func Ident(loc logger.Loc, name string) Expr {
	return Expr{Loc: loc, Data: &EIdentifier{Name: name}}
}

func Dot(target Expr, name string) Expr {
	return Expr{Loc: target.Loc, Data: &EDot{Target: target, Name: name, NameLoc: target.Loc}}
}

func Str(loc logger.Loc, value string) Expr {
	return Expr{Loc: loc, Data: &EString{Value: value}}
}

func Call(target Expr, args ...Expr) Expr {
	return Expr{Loc: target.Loc, Data: &ECall{Target: target, Args: args}}
}

// Literal values never need to be saved before evaluating a sibling
// expression because nothing can change them.
func IsPrimitiveLiteral(data E) bool {
	switch data.(type) {
	case *ENull, *EUndefined, *EString, *EBoolean, *ENumber, *EMissing:
		return true
	}
	return false
}

// This walks a tree in source order, calling "Expr" and "Stmt" before
// visiting children. Returning false from a callback skips the children of
// that node. Function bodies are only entered if "EnterFn" returns true.
type Walker struct {
	Expr    func(expr Expr) bool
	Stmt    func(stmt Stmt) bool
	EnterFn func(args []Arg, isArrow bool) bool
}

func (w *Walker) Stmts(stmts []Stmt) {
	for _, stmt := range stmts {
		w.VisitStmt(stmt)
	}
}

func (w *Walker) fn(args []Arg, body FnBody, isArrow bool) {
	if w.EnterFn == nil || !w.EnterFn(args, isArrow) {
		return
	}
	for _, arg := range args {
		w.VisitExpr(arg.DefaultOrNil)
	}
	w.Stmts(body.Stmts)
}

func (w *Walker) VisitStmt(stmt Stmt) {
	if stmt.Data == nil {
		return
	}
	if w.Stmt != nil && !w.Stmt(stmt) {
		return
	}

	switch s := stmt.Data.(type) {
	case *SBlock:
		w.Stmts(s.Stmts)
	case *SExpr:
		w.VisitExpr(s.Value)
	case *SLocal:
		for _, decl := range s.Decls {
			w.VisitExpr(decl.ValueOrNil)
		}
	case *SFunction:
		w.fn(s.Fn.Args, s.Fn.Body, false)
	case *SClass:
		w.properties(s.Class.Properties)
	case *SExportDefault:
		w.VisitStmt(s.Value)
	case *SLabel:
		w.VisitStmt(s.Stmt)
	case *SIf:
		w.VisitExpr(s.Test)
		w.VisitStmt(s.Yes)
		w.VisitStmt(s.NoOrNil)
	case *SFor:
		w.VisitStmt(s.InitOrNil)
		w.VisitExpr(s.TestOrNil)
		w.VisitExpr(s.UpdateOrNil)
		w.VisitStmt(s.Body)
	case *SForIn:
		w.VisitStmt(s.Init)
		w.VisitExpr(s.Value)
		w.VisitStmt(s.Body)
	case *SForOf:
		w.VisitStmt(s.Init)
		w.VisitExpr(s.Value)
		w.VisitStmt(s.Body)
	case *SDoWhile:
		w.VisitStmt(s.Body)
		w.VisitExpr(s.Test)
	case *SWhile:
		w.VisitExpr(s.Test)
		w.VisitStmt(s.Body)
	case *STry:
		w.Stmts(s.Block.Stmts)
		if s.Catch != nil {
			w.Stmts(s.Catch.Block.Stmts)
		}
		if s.Finally != nil {
			w.Stmts(s.Finally.Block.Stmts)
		}
	case *SSwitch:
		w.VisitExpr(s.Test)
		for _, c := range s.Cases {
			w.VisitExpr(c.ValueOrNil)
			w.Stmts(c.Body)
		}
	case *SReturn:
		w.VisitExpr(s.ValueOrNil)
	case *SThrow:
		w.VisitExpr(s.Value)
	}
}

func (w *Walker) VisitExpr(expr Expr) {
	if expr.Data == nil {
		return
	}
	if w.Expr != nil && !w.Expr(expr) {
		return
	}

	switch e := expr.Data.(type) {
	case *EArray:
		for _, item := range e.Items {
			w.VisitExpr(item)
		}
	case *EUnary:
		w.VisitExpr(e.Value)
	case *EBinary:
		w.VisitExpr(e.Left)
		w.VisitExpr(e.Right)
	case *ENew:
		w.VisitExpr(e.Target)
		for _, arg := range e.Args {
			w.VisitExpr(arg)
		}
	case *ECall:
		w.VisitExpr(e.Target)
		for _, arg := range e.Args {
			w.VisitExpr(arg)
		}
	case *EDot:
		w.VisitExpr(e.Target)
	case *EIndex:
		w.VisitExpr(e.Target)
		w.VisitExpr(e.Index)
	case *EArrow:
		w.fn(e.Args, e.Body, true)
	case *EFunction:
		w.fn(e.Fn.Args, e.Fn.Body, false)
	case *EObject:
		w.properties(e.Properties)
	case *EClass:
		w.properties(e.Class.Properties)
	case *ESpread:
		w.VisitExpr(e.Value)
	case *EAwait:
		w.VisitExpr(e.Value)
	case *EYield:
		w.VisitExpr(e.ValueOrNil)
	case *EIf:
		w.VisitExpr(e.Test)
		w.VisitExpr(e.Yes)
		w.VisitExpr(e.No)
	}
}

func (w *Walker) properties(properties []Property) {
	for _, property := range properties {
		if property.IsComputed {
			w.VisitExpr(property.KeyOrNil)
		}
		w.VisitExpr(property.ValueOrNil)
	}
}

// This rebuilds a tree bottom-up. "Expr" is called on every expression after
// its children have been rebuilt and returns the replacement. Function bodies
// are only entered if "EnterFn" returns true. Nodes are always copied so the
// input tree is never modified.
type Mapper struct {
	Expr    func(expr Expr) Expr
	EnterFn func(args []Arg, isArrow bool) bool
}

func (m *Mapper) Stmts(stmts []Stmt) []Stmt {
	if stmts == nil {
		return nil
	}
	result := make([]Stmt, len(stmts))
	for i, stmt := range stmts {
		result[i] = m.MapStmt(stmt)
	}
	return result
}

func (m *Mapper) exprs(exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}
	result := make([]Expr, len(exprs))
	for i, expr := range exprs {
		result[i] = m.MapExpr(expr)
	}
	return result
}

func (m *Mapper) fn(args []Arg, body FnBody, isArrow bool) ([]Arg, FnBody) {
	if m.EnterFn == nil || !m.EnterFn(args, isArrow) {
		return args, body
	}
	newArgs := make([]Arg, len(args))
	for i, arg := range args {
		newArgs[i] = Arg{Binding: arg.Binding, DefaultOrNil: m.MapExpr(arg.DefaultOrNil)}
	}
	return newArgs, FnBody{Loc: body.Loc, Stmts: m.Stmts(body.Stmts)}
}

func (m *Mapper) block(block SBlock) SBlock {
	return SBlock{Stmts: m.Stmts(block.Stmts)}
}

func (m *Mapper) MapStmt(stmt Stmt) Stmt {
	if stmt.Data == nil {
		return stmt
	}

	switch s := stmt.Data.(type) {
	case *SBlock:
		stmt.Data = &SBlock{Stmts: m.Stmts(s.Stmts)}
	case *SExpr:
		stmt.Data = &SExpr{Value: m.MapExpr(s.Value)}
	case *SLocal:
		decls := make([]Decl, len(s.Decls))
		for i, decl := range s.Decls {
			decls[i] = Decl{Binding: decl.Binding, ValueOrNil: m.MapExpr(decl.ValueOrNil)}
		}
		stmt.Data = &SLocal{Kind: s.Kind, IsExport: s.IsExport, Decls: decls}
	case *SFunction:
		fn := s.Fn
		fn.Args, fn.Body = m.fn(fn.Args, fn.Body, false)
		stmt.Data = &SFunction{Fn: fn, IsExport: s.IsExport}
	case *SClass:
		stmt.Data = &SClass{Class: m.class(s.Class), IsExport: s.IsExport}
	case *SExportDefault:
		stmt.Data = &SExportDefault{Value: m.MapStmt(s.Value)}
	case *SLabel:
		stmt.Data = &SLabel{Name: s.Name, Stmt: m.MapStmt(s.Stmt)}
	case *SIf:
		stmt.Data = &SIf{Test: m.MapExpr(s.Test), Yes: m.MapStmt(s.Yes), NoOrNil: m.MapStmt(s.NoOrNil)}
	case *SFor:
		stmt.Data = &SFor{
			InitOrNil:   m.MapStmt(s.InitOrNil),
			TestOrNil:   m.MapExpr(s.TestOrNil),
			UpdateOrNil: m.MapExpr(s.UpdateOrNil),
			Body:        m.MapStmt(s.Body),
		}
	case *SForIn:
		stmt.Data = &SForIn{Init: m.MapStmt(s.Init), Value: m.MapExpr(s.Value), Body: m.MapStmt(s.Body)}
	case *SForOf:
		stmt.Data = &SForOf{Init: m.MapStmt(s.Init), Value: m.MapExpr(s.Value), Body: m.MapStmt(s.Body)}
	case *SDoWhile:
		stmt.Data = &SDoWhile{Body: m.MapStmt(s.Body), Test: m.MapExpr(s.Test)}
	case *SWhile:
		stmt.Data = &SWhile{Test: m.MapExpr(s.Test), Body: m.MapStmt(s.Body)}
	case *STry:
		try := &STry{Block: m.block(s.Block)}
		if s.Catch != nil {
			try.Catch = &Catch{Loc: s.Catch.Loc, BindingOrNil: s.Catch.BindingOrNil, Block: m.block(s.Catch.Block)}
		}
		if s.Finally != nil {
			try.Finally = &Finally{Loc: s.Finally.Loc, Block: m.block(s.Finally.Block)}
		}
		stmt.Data = try
	case *SSwitch:
		cases := make([]Case, len(s.Cases))
		for i, c := range s.Cases {
			cases[i] = Case{ValueOrNil: m.MapExpr(c.ValueOrNil), Body: m.Stmts(c.Body)}
		}
		stmt.Data = &SSwitch{Test: m.MapExpr(s.Test), Cases: cases}
	case *SReturn:
		stmt.Data = &SReturn{ValueOrNil: m.MapExpr(s.ValueOrNil)}
	case *SThrow:
		stmt.Data = &SThrow{Value: m.MapExpr(s.Value)}
	}

	return stmt
}

func (m *Mapper) MapExpr(expr Expr) Expr {
	if expr.Data == nil {
		return expr
	}

	switch e := expr.Data.(type) {
	case *EArray:
		expr.Data = &EArray{Items: m.exprs(e.Items), IsSingleLine: e.IsSingleLine}
	case *EUnary:
		expr.Data = &EUnary{Op: e.Op, Value: m.MapExpr(e.Value)}
	case *EBinary:
		expr.Data = &EBinary{Op: e.Op, Left: m.MapExpr(e.Left), Right: m.MapExpr(e.Right)}
	case *ENew:
		expr.Data = &ENew{Target: m.MapExpr(e.Target), Args: m.exprs(e.Args)}
	case *ECall:
		expr.Data = &ECall{Target: m.MapExpr(e.Target), Args: m.exprs(e.Args)}
	case *EDot:
		expr.Data = &EDot{Target: m.MapExpr(e.Target), Name: e.Name, NameLoc: e.NameLoc}
	case *EIndex:
		expr.Data = &EIndex{Target: m.MapExpr(e.Target), Index: m.MapExpr(e.Index)}
	case *EArrow:
		clone := *e
		clone.Args, clone.Body = m.fn(e.Args, e.Body, true)
		expr.Data = &clone
	case *EFunction:
		fn := e.Fn
		fn.Args, fn.Body = m.fn(fn.Args, fn.Body, false)
		expr.Data = &EFunction{Fn: fn}
	case *EObject:
		expr.Data = &EObject{Properties: m.properties(e.Properties), IsSingleLine: e.IsSingleLine}
	case *EClass:
		expr.Data = &EClass{Class: m.class(e.Class)}
	case *ESpread:
		expr.Data = &ESpread{Value: m.MapExpr(e.Value)}
	case *EAwait:
		expr.Data = &EAwait{Value: m.MapExpr(e.Value)}
	case *EYield:
		expr.Data = &EYield{ValueOrNil: m.MapExpr(e.ValueOrNil), IsStar: e.IsStar}
	case *EIf:
		expr.Data = &EIf{Test: m.MapExpr(e.Test), Yes: m.MapExpr(e.Yes), No: m.MapExpr(e.No)}
	}

	if m.Expr != nil {
		expr = m.Expr(expr)
	}
	return expr
}

func (m *Mapper) properties(properties []Property) []Property {
	result := make([]Property, len(properties))
	for i, property := range properties {
		if property.IsComputed {
			property.KeyOrNil = m.MapExpr(property.KeyOrNil)
		}
		property.ValueOrNil = m.MapExpr(property.ValueOrNil)
		result[i] = property
	}
	return result
}

func (m *Mapper) class(class Class) Class {
	class.Properties = m.properties(class.Properties)
	return class
}
