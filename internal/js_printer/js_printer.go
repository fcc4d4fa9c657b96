package js_printer

import (
	"github.com/esdown/esdown/internal/js_ast"
)

type Options struct {
	// Nesting level of the first printed statement
	Indent int
}

type PrintResult struct {
	JS []byte
}

type printer struct {
	js          []byte
	importPaths []string
	indent      int

	// Byte offsets into "js" that decide where a space or parentheses are
	// needed. They are -1 until something is printed there.
	stmtStart      int
	arrowExprStart int
	prevNumEnd     int
	prevOpEnd      int
	prevOp         js_ast.OpCode
}

func newPrinter(indent int) *printer {
	return &printer{
		indent:         indent,
		stmtStart:      -1,
		arrowExprStart: -1,
		prevNumEnd:     -1,
		prevOpEnd:      -1,
	}
}

func Print(tree js_ast.AST, options Options) PrintResult {
	p := newPrinter(options.Indent)
	for _, record := range tree.ImportRecords {
		p.importPaths = append(p.importPaths, record.Path)
	}
	p.printStmts(tree.Stmts)
	return PrintResult{JS: p.js}
}

// Used when printing a single expression in diagnostics and tests
func PrintExpr(expr js_ast.Expr) string {
	p := newPrinter(0)
	p.printExpr(expr, js_ast.LLowest, 0)
	return string(p.js)
}

func (p *printer) print(text string) {
	p.js = append(p.js, text...)
}

func (p *printer) printIndent() {
	for i := 0; i < p.indent; i++ {
		p.print("  ")
	}
}

// Prints an identifier or keyword, separated from a preceding word
func (p *printer) printWord(word string) {
	if n := len(p.js); n > 0 && js_ast.IsIdentifierContinue(rune(p.js[n-1])) {
		p.print(" ")
	}
	p.print(word)
}

func (p *printer) openParenIf(wrap bool) {
	if wrap {
		p.print("(")
	}
}

func (p *printer) closeParenIf(wrap bool) {
	if wrap {
		p.print(")")
	}
}

// Adjacent operators that would lex as a different token are kept apart:
// "+ +x", "- --x", "x-- > y" and "<! --x".
func (p *printer) printSpaceBeforeOperator(next js_ast.OpCode) {
	if p.prevOpEnd != len(p.js) {
		return
	}
	prev := p.prevOp
	switch {
	case operatorSign(prev) != 0 && operatorSign(prev) == operatorSign(next):
	case prev == js_ast.UnOpPostDec && next == js_ast.BinOpGt:
	case prev == js_ast.UnOpNot && next == js_ast.UnOpPreDec && len(p.js) > 1 && p.js[len(p.js)-2] == '<':
	default:
		return
	}
	p.print(" ")
}

func operatorSign(op js_ast.OpCode) byte {
	switch op {
	case js_ast.BinOpAdd, js_ast.UnOpPos, js_ast.UnOpPreInc:
		return '+'
	case js_ast.BinOpSub, js_ast.UnOpNeg, js_ast.UnOpPreDec:
		return '-'
	}
	return 0
}

func (p *printer) printOperator(op js_ast.OpCode) {
	entry := js_ast.OpTable[op]
	if entry.IsKeyword {
		p.printWord(entry.Text)
		return
	}
	p.printSpaceBeforeOperator(op)
	p.print(entry.Text)
	p.prevOp = op
	p.prevOpEnd = len(p.js)
}
