package js_printer

import (
	"fmt"
	"strconv"

	"github.com/esdown/esdown/internal/js_ast"
)

type exprFlags uint8

const (
	forbidCall exprFlags = 1 << iota
	forbidIn
	isCallTarget
)

func (p *printer) printExpr(expr js_ast.Expr, level js_ast.L, flags exprFlags) {
	switch e := expr.Data.(type) {
	case *js_ast.EMissing:

	case *js_ast.EUndefined:
		wrap := level >= js_ast.LPrefix
		p.openParenIf(wrap)
		p.printWord("void 0")
		p.closeParenIf(wrap)

	case *js_ast.ENull:
		p.printWord("null")

	case *js_ast.EThis:
		p.printWord("this")

	case *js_ast.EBoolean:
		p.printWord(strconv.FormatBool(e.Value))

	case *js_ast.ENumber:
		p.printNumber(e.Value, level)

	case *js_ast.EString:
		p.printQuoted(e.Value)

	case *js_ast.EIdentifier:
		p.printWord(e.Name)

	case *js_ast.EImportIdentifier:
		// Calling "_m.name()" would pass "_m" as "this"
		wrap := flags&isCallTarget != 0
		if wrap {
			p.print("(0, ")
		}
		p.printWord(e.Namespace)
		p.printDotName(e.Alias)
		p.closeParenIf(wrap)

	case *js_ast.ESpread:
		p.print("...")
		p.printExpr(e.Value, js_ast.LComma, 0)

	case *js_ast.ENew:
		wrap := level >= js_ast.LCall
		p.openParenIf(wrap)
		p.printWord("new")
		p.print(" ")
		p.printExpr(e.Target, js_ast.LNew, forbidCall)
		p.printArgs(e.Args)
		p.closeParenIf(wrap)

	case *js_ast.ECall:
		wrap := level >= js_ast.LNew || flags&forbidCall != 0
		p.openParenIf(wrap)
		p.printExpr(e.Target, js_ast.LPostfix, isCallTarget)
		p.printArgs(e.Args)
		p.closeParenIf(wrap)

	case *js_ast.EDot:
		p.printExpr(e.Target, js_ast.LPostfix, flags&forbidCall)
		p.printDotName(e.Name)

	case *js_ast.EIndex:
		p.printExpr(e.Target, js_ast.LPostfix, flags&forbidCall)
		p.print("[")
		p.printExpr(e.Index, js_ast.LLowest, 0)
		p.print("]")

	case *js_ast.EIf:
		wrap := level >= js_ast.LConditional
		if wrap {
			flags &^= forbidIn
		}
		p.openParenIf(wrap)
		p.printExpr(e.Test, js_ast.LConditional, flags&forbidIn)
		p.print(" ? ")
		p.printExpr(e.Yes, js_ast.LYield, 0)
		p.print(" : ")
		p.printExpr(e.No, js_ast.LYield, flags&forbidIn)
		p.closeParenIf(wrap)

	case *js_ast.EArrow:
		wrap := level >= js_ast.LAssign
		p.openParenIf(wrap)
		if e.IsAsync {
			p.printWord("async")
			p.print(" ")
		}
		p.printParams(e.Args, e.HasRestArg)
		p.print(" => ")
		if value, ok := arrowExprBody(e); ok {
			p.arrowExprStart = len(p.js)
			p.printExpr(value, js_ast.LComma, flags&forbidIn)
		} else {
			p.printBlock(e.Body.Stmts)
		}
		p.closeParenIf(wrap)

	case *js_ast.EFunction:
		// A statement starting with "function" is a declaration
		wrap := p.stmtStart == len(p.js)
		p.openParenIf(wrap)
		p.printFunction(e.Fn, "")
		p.closeParenIf(wrap)

	case *js_ast.EClass:
		wrap := p.stmtStart == len(p.js)
		p.openParenIf(wrap)
		p.printClass(e.Class, "")
		p.closeParenIf(wrap)

	case *js_ast.EArray:
		p.print("[")
		p.printList(len(e.Items), e.IsSingleLine, false, func(i int) {
			item := e.Items[i]
			p.printExpr(item, js_ast.LComma, 0)

			// "[a,]" has one item, so a trailing hole needs its own comma
			if _, ok := item.Data.(*js_ast.EMissing); ok && i == len(e.Items)-1 {
				p.print(",")
			}
		})
		p.print("]")

	case *js_ast.EObject:
		// "{" at the start of a statement or an arrow body opens a block
		n := len(p.js)
		wrap := p.stmtStart == n || p.arrowExprStart == n
		p.openParenIf(wrap)
		p.print("{")
		p.printList(len(e.Properties), e.IsSingleLine, true, func(i int) {
			p.printProperty(e.Properties[i])
		})
		p.print("}")
		p.closeParenIf(wrap)

	case *js_ast.EAwait:
		wrap := level >= js_ast.LPrefix
		p.openParenIf(wrap)
		p.printWord("await")
		p.print(" ")
		p.printExpr(e.Value, js_ast.LPrefix-1, 0)
		p.closeParenIf(wrap)

	case *js_ast.EYield:
		wrap := level >= js_ast.LAssign
		p.openParenIf(wrap)
		p.printWord("yield")
		if e.ValueOrNil.Data != nil {
			if e.IsStar {
				p.print("*")
			}
			p.print(" ")
			p.printExpr(e.ValueOrNil, js_ast.LYield, 0)
		}
		p.closeParenIf(wrap)

	case *js_ast.EUnary:
		entry := js_ast.OpTable[e.Op]
		wrap := level >= entry.Level
		p.openParenIf(wrap)
		if e.Op.IsPrefix() {
			p.printOperator(e.Op)
			if entry.IsKeyword {
				p.print(" ")
			}
			p.printExpr(e.Value, js_ast.LPrefix-1, 0)
		} else {
			p.printExpr(e.Value, js_ast.LPostfix-1, 0)
			p.printOperator(e.Op)
		}
		p.closeParenIf(wrap)

	case *js_ast.EBinary:
		wrap := level >= js_ast.OpTable[e.Op].Level || (e.Op == js_ast.BinOpIn && flags&forbidIn != 0)
		if wrap {
			flags &^= forbidIn
		}
		leftLevel, rightLevel := operandLevels(e)
		p.openParenIf(wrap)
		p.printExpr(e.Left, leftLevel, flags&forbidIn)
		if e.Op != js_ast.BinOpComma {
			p.print(" ")
		}
		p.printOperator(e.Op)
		p.print(" ")
		p.printExpr(e.Right, rightLevel, flags&forbidIn)
		p.closeParenIf(wrap)

	default:
		panic(fmt.Sprintf("Unexpected expression of type %T", expr.Data))
	}
}

// The levels at which each side of a binary expression must be wrapped
func operandLevels(e *js_ast.EBinary) (left js_ast.L, right js_ast.L) {
	level := js_ast.OpTable[e.Op].Level
	left, right = level-1, level-1
	if e.Op.IsRightAssociative() {
		left = level
	}
	if e.Op.IsLeftAssociative() {
		right = level
	}

	switch e.Op {
	case js_ast.BinOpNullishCoalescing:
		// "??" can't directly contain "||" or "&&"
		if isAndOr(e.Left) {
			left = js_ast.LPrefix
		}
		if isAndOr(e.Right) {
			right = js_ast.LPrefix
		}

	case js_ast.BinOpPow:
		// "-a ** b" is a syntax error
		switch l := e.Left.Data.(type) {
		case *js_ast.EUnary:
			if !l.Op.IsUpdate() {
				left = js_ast.LCall
			}
		case *js_ast.EAwait, *js_ast.EUndefined, *js_ast.ENumber:
			left = js_ast.LCall
		}
	}
	return
}

func isAndOr(expr js_ast.Expr) bool {
	e, ok := expr.Data.(*js_ast.EBinary)
	return ok && (e.Op == js_ast.BinOpLogicalOr || e.Op == js_ast.BinOpLogicalAnd)
}

// An arrow written with an expression body keeps that form
func arrowExprBody(e *js_ast.EArrow) (js_ast.Expr, bool) {
	if e.PreferExpr && len(e.Body.Stmts) == 1 {
		if s, ok := e.Body.Stmts[0].Data.(*js_ast.SReturn); ok && s.ValueOrNil.Data != nil {
			return s.ValueOrNil, true
		}
	}
	return js_ast.Expr{}, false
}

// Prints n comma-separated items on one line or one per line. A padded
// single line gets a space inside each bracket: "{ a, b }".
func (p *printer) printList(n int, singleLine bool, padded bool, item func(int)) {
	if n == 0 {
		return
	}

	if singleLine {
		if padded {
			p.print(" ")
		}
		for i := 0; i < n; i++ {
			if i != 0 {
				p.print(", ")
			}
			item(i)
		}
		if padded {
			p.print(" ")
		}
		return
	}

	p.indent++
	for i := 0; i < n; i++ {
		if i != 0 {
			p.print(",")
		}
		p.print("\n")
		p.printIndent()
		item(i)
	}
	p.indent--
	p.print("\n")
	p.printIndent()
}

func (p *printer) printArgs(args []js_ast.Expr) {
	p.print("(")
	for i, arg := range args {
		if i != 0 {
			p.print(", ")
		}
		p.printExpr(arg, js_ast.LComma, 0)
	}
	p.print(")")
}

func (p *printer) printParams(args []js_ast.Arg, hasRestArg bool) {
	p.print("(")
	for i, arg := range args {
		if i != 0 {
			p.print(", ")
		}
		if hasRestArg && i == len(args)-1 {
			p.print("...")
		}
		p.printBinding(arg.Binding)
		if arg.DefaultOrNil.Data != nil {
			p.print(" = ")
			p.printExpr(arg.DefaultOrNil, js_ast.LComma, 0)
		}
	}
	p.print(")")
}

func (p *printer) printBinding(binding js_ast.Binding) {
	b, ok := binding.Data.(*js_ast.BIdentifier)
	if !ok {
		panic(fmt.Sprintf("Unexpected binding of type %T", binding.Data))
	}
	p.printWord(b.Name)
}

// Prints "[prefix][async ]function[*][ name](args) {...}". The prefix is
// "export " or "export default " for declarations.
func (p *printer) printFunction(fn js_ast.Fn, prefix string) {
	p.printWord(prefix)
	if fn.IsAsync {
		p.print("async ")
	}
	p.print("function")
	if fn.IsGenerator {
		p.print("*")
	}
	if fn.Name != nil {
		p.print(" ")
		p.printWord(fn.Name.Name)
	}
	p.printFnBody(fn)
}

func (p *printer) printClass(class js_ast.Class, prefix string) {
	p.printWord(prefix + "class")
	if class.Name != nil {
		p.print(" ")
		p.printWord(class.Name.Name)
	}
	p.print(" {\n")
	p.indent++
	for _, property := range class.Properties {
		p.printIndent()
		if property.IsStatic {
			p.print("static ")
		}
		p.printProperty(property)
		p.print("\n")
	}
	p.indent--
	p.printIndent()
	p.print("}")
}

func (p *printer) printFnBody(fn js_ast.Fn) {
	p.printParams(fn.Args, fn.HasRestArg)
	p.print(" ")
	p.printBlock(fn.Body.Stmts)
}

func (p *printer) printProperty(item js_ast.Property) {
	if item.Kind == js_ast.PropertySpread {
		p.print("...")
		p.printExpr(item.ValueOrNil, js_ast.LComma, 0)
		return
	}

	switch item.Kind {
	case js_ast.PropertyGet:
		p.printWord("get ")
	case js_ast.PropertySet:
		p.printWord("set ")
	}

	fn, isFn := item.ValueOrNil.Data.(*js_ast.EFunction)
	if isFn && item.IsMethod {
		if fn.Fn.IsAsync {
			p.printWord("async ")
		}
		if fn.Fn.IsGenerator {
			p.print("*")
		}
	}

	if item.IsComputed {
		p.print("[")
		p.printExpr(item.KeyOrNil, js_ast.LComma, 0)
		p.print("]")
	} else if key, ok := item.KeyOrNil.Data.(*js_ast.EString); ok && js_ast.IsIdentifier(key.Value) {
		p.printWord(key.Value)

		// "{ a }" stays shorthand
		if id, ok := item.ValueOrNil.Data.(*js_ast.EIdentifier); ok && item.WasShorthand && id.Name == key.Value {
			return
		}
	} else {
		p.printExpr(item.KeyOrNil, js_ast.LLowest, 0)
	}

	if isFn && (item.IsMethod || item.Kind != js_ast.PropertyNormal) {
		p.printFnBody(fn.Fn)
		return
	}
	p.print(": ")
	p.printExpr(item.ValueOrNil, js_ast.LComma, 0)
}
