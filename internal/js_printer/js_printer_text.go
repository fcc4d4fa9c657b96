package js_printer

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/esdown/esdown/internal/js_ast"
)

var shortEscapes = map[rune]string{
	'\b':     `\b`,
	'\f':     `\f`,
	'\n':     `\n`,
	'\r':     `\r`,
	'\t':     `\t`,
	'\v':     `\v`,
	'\\':     `\\`,
	'"':      `\"`,
	'\u2028': `\u2028`,
	'\u2029': `\u2029`,
	'\uFEFF': `\uFEFF`,
}

const hexDigits = "0123456789ABCDEF"

// Strings are always printed with double quotes
func (p *printer) printQuoted(text string) {
	js := append(p.js, '"')
	for i, c := range text {
		if escape, ok := shortEscapes[c]; ok {
			js = append(js, escape...)
			continue
		}
		switch {
		case c == 0:
			// "\01" would be an octal escape
			if next := i + 1; next < len(text) && text[next] >= '0' && text[next] <= '9' {
				js = append(js, `\x00`...)
			} else {
				js = append(js, `\0`...)
			}

		case c < 0x20 || c == 0x7F:
			js = append(js, '\\', 'x', hexDigits[c>>4], hexDigits[c&15])

		default:
			js = utf8.AppendRune(js, c)
		}
	}
	p.js = append(js, '"')
}

func (p *printer) printClauseAlias(alias string) {
	if js_ast.IsIdentifier(alias) {
		p.printWord(alias)
	} else {
		p.printQuoted(alias)
	}
}

// Reserved words are valid property names in ES5, but older engines reject
// them after a ".", so they are always printed using index syntax
func canPrintPropertyName(name string) bool {
	return js_ast.IsIdentifier(name) && !js_ast.Keywords[name]
}

func (p *printer) printDotName(name string) {
	if !canPrintPropertyName(name) {
		p.print("[")
		p.printQuoted(name)
		p.print("]")
		return
	}
	if p.prevNumEnd == len(p.js) {
		// "1.toString" is a syntax error
		p.print(" ")
	}
	p.print(".")
	p.print(name)
}

func (p *printer) printNumber(value float64, level js_ast.L) {
	if math.IsNaN(value) {
		p.printWord("NaN")
		return
	}

	if !math.Signbit(value) {
		p.printWord(formatNumber(value))
	} else {
		// Checking the sign bit instead of "value < 0" keeps "-0" negative
		wrap := level >= js_ast.LPrefix
		p.openParenIf(wrap)
		if !wrap {
			p.printSpaceBeforeOperator(js_ast.UnOpNeg)
		}
		p.print("-")
		p.print(formatNumber(-value))
		p.closeParenIf(wrap)
		if wrap {
			return
		}
	}

	if !math.IsInf(value, 0) {
		p.prevNumEnd = len(p.js)
	}
}

// Formats a non-negative number in its shortest form: "1e21", "1e-7", "0.1"
func formatNumber(value float64) string {
	if math.IsInf(value, 1) {
		return "Infinity"
	}
	if value < 1000 && value == math.Trunc(value) {
		return strconv.FormatInt(int64(value), 10)
	}
	text := strconv.FormatFloat(value, 'g', -1, 64)
	if mantissa, exponent, ok := strings.Cut(text, "e"); ok {
		n, _ := strconv.Atoi(exponent)
		return mantissa + "e" + strconv.Itoa(n)
	}
	return text
}
