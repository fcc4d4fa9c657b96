package js_printer

import (
	"fmt"

	"github.com/esdown/esdown/internal/js_ast"
)

type stmtFlags uint8

const (
	// The statement continues the current line instead of starting a new one,
	// as in "while (1) switch (x) {"
	isInlineStmt stmtFlags = 1 << iota
)

func (p *printer) printStmts(stmts []js_ast.Stmt) {
	for _, stmt := range stmts {
		p.printStmt(stmt, 0)
	}
}

func (p *printer) startStmt(keyword string) {
	p.printIndent()
	p.printWord(keyword)
}

func (p *printer) endStmt() {
	p.print(";\n")
}

// Prints the " (test)" following "if", "while" and "switch"
func (p *printer) printCondition(test js_ast.Expr) {
	p.print(" (")
	p.printExpr(test, js_ast.LLowest, 0)
	p.print(")")
}

func (p *printer) printBlock(stmts []js_ast.Stmt) {
	p.print("{\n")
	p.indent++
	p.printStmts(stmts)
	p.indent--
	p.printIndent()
	p.print("}")
}

// Prints a non-block statement on its own line, one level deeper
func (p *printer) printNested(stmt js_ast.Stmt) {
	p.print("\n")
	p.indent++
	p.printStmt(stmt, 0)
	p.indent--
}

// Blocks open on the header line of their loop or label
func (p *printer) printBody(body js_ast.Stmt) {
	if block, ok := body.Data.(*js_ast.SBlock); ok {
		p.print(" ")
		p.printBlock(block.Stmts)
		p.print("\n")
		return
	}
	p.printNested(body)
}

func (p *printer) printStmt(stmt js_ast.Stmt, flags stmtFlags) {
	switch s := stmt.Data.(type) {
	case *js_ast.SEmpty:
		p.printIndent()
		p.endStmt()

	case *js_ast.SDirective:
		p.printIndent()
		p.printQuoted(s.Value)
		p.endStmt()

	case *js_ast.SExpr:
		p.printIndent()
		p.stmtStart = len(p.js)
		p.printExpr(s.Value, js_ast.LLowest, 0)
		p.endStmt()

	case *js_ast.SBlock:
		p.printIndent()
		p.printBlock(s.Stmts)
		p.print("\n")

	case *js_ast.SFunction:
		prefix := ""
		if s.IsExport {
			prefix = "export "
		}
		p.printIndent()
		p.printFunction(s.Fn, prefix)
		p.print("\n")

	case *js_ast.SClass:
		prefix := ""
		if s.IsExport {
			prefix = "export "
		}
		p.printIndent()
		p.printClass(s.Class, prefix)
		p.print("\n")

	case *js_ast.SLocal:
		p.printIndent()
		if s.IsExport {
			p.print("export ")
		}
		p.printDecls(s.Kind, s.Decls, 0)
		p.endStmt()

	case *js_ast.SReturn:
		p.startStmt("return")
		if s.ValueOrNil.Data != nil {
			p.print(" ")
			p.printExpr(s.ValueOrNil, js_ast.LLowest, 0)
		}
		p.endStmt()

	case *js_ast.SThrow:
		p.startStmt("throw")
		p.print(" ")
		p.printExpr(s.Value, js_ast.LLowest, 0)
		p.endStmt()

	case *js_ast.SBreak:
		p.printJump("break", s.Label)

	case *js_ast.SContinue:
		p.printJump("continue", s.Label)

	case *js_ast.SLabel:
		p.printIndent()
		p.printWord(s.Name.Name)
		p.print(":")
		p.printBody(s.Stmt)

	case *js_ast.SIf:
		p.printIndent()
		p.printIf(s)

	case *js_ast.SWhile:
		p.startStmt("while")
		p.printCondition(s.Test)

		// The dispatch loop of a lowered function keeps its switch on the same line
		if _, ok := s.Body.Data.(*js_ast.SSwitch); ok {
			p.print(" ")
			p.printStmt(s.Body, isInlineStmt)
		} else {
			p.printBody(s.Body)
		}

	case *js_ast.SDoWhile:
		p.startStmt("do")
		if block, ok := s.Body.Data.(*js_ast.SBlock); ok {
			p.print(" ")
			p.printBlock(block.Stmts)
			p.print(" ")
		} else {
			p.printNested(s.Body)
			p.printIndent()
		}
		p.printWord("while")
		p.printCondition(s.Test)
		p.endStmt()

	case *js_ast.SFor:
		p.startStmt("for")
		p.print(" (")
		if s.InitOrNil.Data != nil {
			p.printForInit(s.InitOrNil)
		}
		p.print("; ")
		if s.TestOrNil.Data != nil {
			p.printExpr(s.TestOrNil, js_ast.LLowest, 0)
		}
		p.print("; ")
		if s.UpdateOrNil.Data != nil {
			p.printExpr(s.UpdateOrNil, js_ast.LLowest, 0)
		}
		p.print(")")
		p.printBody(s.Body)

	case *js_ast.SForIn:
		p.printForEach("in", s.Init, s.Value, js_ast.LLowest, s.Body)

	case *js_ast.SForOf:
		p.printForEach("of", s.Init, s.Value, js_ast.LComma, s.Body)

	case *js_ast.SSwitch:
		if flags&isInlineStmt == 0 {
			p.printIndent()
		}
		p.printWord("switch")
		p.printCondition(s.Test)
		p.print(" {\n")
		p.indent++
		for _, c := range s.Cases {
			p.printCase(c)
		}
		p.indent--
		p.printIndent()
		p.print("}\n")

	case *js_ast.STry:
		p.startStmt("try")
		p.print(" ")
		p.printBlock(s.Block.Stmts)
		if s.Catch != nil {
			p.print(" catch")
			if s.Catch.BindingOrNil.Data != nil {
				p.print(" (")
				p.printBinding(s.Catch.BindingOrNil)
				p.print(")")
			}
			p.print(" ")
			p.printBlock(s.Catch.Block.Stmts)
		}
		if s.Finally != nil {
			p.print(" finally ")
			p.printBlock(s.Finally.Block.Stmts)
		}
		p.print("\n")

	case *js_ast.SImport:
		p.printImport(s)

	case *js_ast.SExportClause:
		p.startStmt("export")
		p.print(" ")
		p.printClauseItems(s.Items, false)
		p.endStmt()

	case *js_ast.SExportFrom:
		p.startStmt("export")
		p.print(" ")
		p.printClauseItems(s.Items, false)
		p.printFrom(s.ImportRecordIndex)
		p.endStmt()

	case *js_ast.SExportStar:
		p.startStmt("export")
		p.print(" *")
		if s.Alias != nil {
			p.print(" as ")
			p.printClauseAlias(s.Alias.Alias)
		}
		p.printFrom(s.ImportRecordIndex)
		p.endStmt()

	case *js_ast.SExportDefault:
		p.printIndent()
		switch value := s.Value.Data.(type) {
		case *js_ast.SFunction:
			p.printFunction(value.Fn, "export default ")
			p.print("\n")

		case *js_ast.SClass:
			p.printClass(value.Class, "export default ")
			p.print("\n")

		case *js_ast.SExpr:
			p.print("export default ")

			// "export default function() {}" would be a declaration
			p.stmtStart = len(p.js)
			p.printExpr(value.Value, js_ast.LComma, 0)
			p.endStmt()

		default:
			panic(fmt.Sprintf("Unexpected default export of type %T", s.Value.Data))
		}

	default:
		panic(fmt.Sprintf("Unexpected statement of type %T", stmt.Data))
	}
}

func (p *printer) printJump(keyword string, label *js_ast.LocName) {
	p.startStmt(keyword)
	if label != nil {
		p.print(" ")
		p.printWord(label.Name)
	}
	p.endStmt()
}

func localKeyword(kind js_ast.LocalKind) string {
	switch kind {
	case js_ast.LocalLet:
		return "let"
	case js_ast.LocalConst:
		return "const"
	default:
		return "var"
	}
}

func (p *printer) printDecls(kind js_ast.LocalKind, decls []js_ast.Decl, flags exprFlags) {
	p.printWord(localKeyword(kind))
	p.print(" ")
	for i, decl := range decls {
		if i != 0 {
			p.print(", ")
		}
		p.printBinding(decl.Binding)
		if decl.ValueOrNil.Data != nil {
			p.print(" = ")
			p.printExpr(decl.ValueOrNil, js_ast.LComma, flags)
		}
	}
}

// "in" inside a loop initializer would be read as a for-in loop
func (p *printer) printForInit(init js_ast.Stmt) {
	switch s := init.Data.(type) {
	case *js_ast.SExpr:
		p.printExpr(s.Value, js_ast.LLowest, forbidIn)
	case *js_ast.SLocal:
		p.printDecls(s.Kind, s.Decls, forbidIn)
	default:
		panic(fmt.Sprintf("Unexpected loop initializer of type %T", init.Data))
	}
}

func (p *printer) printForEach(op string, init js_ast.Stmt, value js_ast.Expr, level js_ast.L, body js_ast.Stmt) {
	p.startStmt("for")
	p.print(" (")
	p.printForInit(init)
	p.print(" ")
	p.printWord(op)
	p.print(" ")
	p.printExpr(value, level, 0)
	p.print(")")
	p.printBody(body)
}

func (p *printer) printCase(c js_ast.Case) {
	p.printIndent()
	if c.ValueOrNil.Data != nil {
		p.print("case ")
		p.printExpr(c.ValueOrNil, js_ast.LLogicalAnd, 0)
	} else {
		p.print("default")
	}
	p.print(":")

	// A lone block stays on the label line: "case 1: {"
	if len(c.Body) == 1 {
		if block, ok := c.Body[0].Data.(*js_ast.SBlock); ok {
			p.print(" ")
			p.printBlock(block.Stmts)
			p.print("\n")
			return
		}
	}

	p.print("\n")
	p.indent++
	p.printStmts(c.Body)
	p.indent--
}

// An "if" without an "else" at the end of the "yes" branch would capture a
// following "else", so that branch is printed as a block
func hasDanglingIf(s js_ast.S) bool {
	for {
		switch current := s.(type) {
		case *js_ast.SIf:
			if current.NoOrNil.Data == nil {
				return true
			}
			s = current.NoOrNil.Data
		case *js_ast.SFor:
			s = current.Body.Data
		case *js_ast.SForIn:
			s = current.Body.Data
		case *js_ast.SForOf:
			s = current.Body.Data
		case *js_ast.SWhile:
			s = current.Body.Data
		case *js_ast.SLabel:
			s = current.Stmt.Data
		default:
			return false
		}
	}
}

func (p *printer) printIf(s *js_ast.SIf) {
	p.printWord("if")
	p.printCondition(s.Test)
	hasElse := s.NoOrNil.Data != nil

	yes, isBlock := s.Yes.Data.(*js_ast.SBlock)
	switch {
	case isBlock || hasDanglingIf(s.Yes.Data):
		stmts := []js_ast.Stmt{s.Yes}
		if isBlock {
			stmts = yes.Stmts
		}
		p.print(" ")
		p.printBlock(stmts)
		if hasElse {
			p.print(" ")
		} else {
			p.print("\n")
		}

	default:
		p.printNested(s.Yes)
		if hasElse {
			p.printIndent()
		}
	}

	if !hasElse {
		return
	}
	p.printWord("else")
	switch no := s.NoOrNil.Data.(type) {
	case *js_ast.SBlock:
		p.print(" ")
		p.printBlock(no.Stmts)
		p.print("\n")
	case *js_ast.SIf:
		p.print(" ")
		p.printIf(no)
	default:
		p.printNested(s.NoOrNil)
	}
}

func (p *printer) printImport(s *js_ast.SImport) {
	p.startStmt("import")
	p.print(" ")

	parts := 0
	next := func() {
		if parts > 0 {
			p.print(", ")
		}
		parts++
	}
	if s.DefaultName != nil {
		next()
		p.printWord(s.DefaultName.Name)
	}
	if s.Items != nil {
		next()
		p.printClauseItems(*s.Items, true)
	}
	if s.NamespaceName != nil {
		next()
		p.print("* as ")
		p.printWord(s.NamespaceName.Name)
	}

	if parts > 0 {
		p.print(" from ")
	}
	p.printQuoted(p.importPaths[s.ImportRecordIndex])
	p.endStmt()
}

func (p *printer) printFrom(importRecordIndex uint32) {
	p.print(" from ")
	p.printQuoted(p.importPaths[importRecordIndex])
}

// Import clauses read "alias as name" and export clauses "name as alias"
func (p *printer) printClauseItems(items []js_ast.ClauseItem, isImport bool) {
	p.print("{")
	for i, item := range items {
		if i != 0 {
			p.print(",")
		}
		p.print(" ")
		first, second := item.Name.Name, item.Alias
		if isImport {
			first, second = second, first
		}
		p.printClauseAlias(first)
		if first != second {
			p.print(" as ")
			p.printClauseAlias(second)
		}
	}
	if len(items) > 0 {
		p.print(" ")
	}
	p.print("}")
}
