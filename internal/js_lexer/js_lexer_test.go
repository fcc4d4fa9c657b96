package js_lexer

import (
	"math"
	"testing"

	"github.com/esdown/esdown/internal/logger"
	"github.com/esdown/esdown/internal/test"
)

func lexAll(t *testing.T, contents string) (lexers []Lexer, text string) {
	t.Helper()
	log := logger.NewDeferLog(logger.DeferLogNoVerboseOrDebug, nil)
	func() {
		defer func() {
			r := recover()
			if _, isLexerPanic := r.(LexerPanic); r != nil && !isLexerPanic {
				panic(r)
			}
		}()
		lexer := NewLexer(log, test.SourceForTest(contents))
		for {
			lexers = append(lexers, lexer)
			if lexer.Token == TEndOfFile {
				break
			}
			lexer.Next()
		}
	}()
	for _, msg := range log.Done() {
		text += msg.String(logger.OutputOptions{}, logger.TerminalInfo{})
	}
	return
}

func expectLexerError(t *testing.T, contents string, expected string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		_, text := lexAll(t, contents)
		test.AssertEqual(t, text, expected)
	})
}

func expectTokens(t *testing.T, contents string, expected ...T) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		lexers, text := lexAll(t, contents)
		test.AssertEqual(t, text, "")
		test.AssertEqual(t, len(lexers), len(expected)+1)
		for i, token := range expected {
			test.AssertEqual(t, lexers[i].Token, token)
		}
	})
}

func expectString(t *testing.T, contents string, expected string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		lexers, text := lexAll(t, contents)
		test.AssertEqual(t, text, "")
		test.AssertEqual(t, lexers[0].Token, TStringLiteral)
		test.AssertEqual(t, lexers[0].StringLiteral, expected)
	})
}

func expectNumber(t *testing.T, contents string, expected float64) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		lexers, text := lexAll(t, contents)
		test.AssertEqual(t, text, "")
		test.AssertEqual(t, lexers[0].Token, TNumericLiteral)
		test.AssertEqual(t, lexers[0].Number, expected)
	})
}

func TestComment(t *testing.T) {
	expectLexerError(t, "/*", "<stdin>: error: Expected \"*/\" to terminate multi-line comment\n")
	expectLexerError(t, "/**/", "")
	expectLexerError(t, "//", "")
	expectTokens(t, "a /* b */ c // d", TIdentifier, TIdentifier)
}

func TestHashbang(t *testing.T) {
	expectTokens(t, "#!/usr/bin/env node\nlet x", THashbang, TIdentifier, TIdentifier)
	expectLexerError(t, " #!/usr/bin/env node", "<stdin>: error: Private name is not supported\n")
}

func TestNewlineBefore(t *testing.T) {
	lexers, _ := lexAll(t, "a\nb c")
	test.AssertEqual(t, lexers[0].HasNewlineBefore, true)
	test.AssertEqual(t, lexers[1].HasNewlineBefore, true)
	test.AssertEqual(t, lexers[2].HasNewlineBefore, false)
}

func TestPunctuation(t *testing.T) {
	expectTokens(t, ">>>=", TGreaterThanGreaterThanGreaterThanEquals)
	expectTokens(t, ">>> =", TGreaterThanGreaterThanGreaterThan, TEquals)
	expectTokens(t, "a??b", TIdentifier, TQuestionQuestion, TIdentifier)
	expectTokens(t, "a?.5:b", TIdentifier, TQuestion, TNumericLiteral, TColon, TIdentifier)
	expectTokens(t, "...x", TDotDotDot, TIdentifier)
	expectTokens(t, "x.y", TIdentifier, TDot, TIdentifier)
	expectTokens(t, "!==", TExclamationEqualsEquals)
	expectTokens(t, "**=", TAsteriskAsteriskEquals)
	expectTokens(t, "=>", TEqualsGreaterThan)
	expectLexerError(t, "a?.b", "<stdin>: error: Optional chaining is not supported\n")
	expectLexerError(t, "`x`", "<stdin>: error: Template literal is not supported\n")
}

func TestKeywords(t *testing.T) {
	expectTokens(t, "function await async", TFunction, TIdentifier, TIdentifier)
	expectTokens(t, "catch finally", TCatch, TFinally)
}

func TestStringLiteral(t *testing.T) {
	expectString(t, "''", "")
	expectString(t, "'abc'", "abc")
	expectString(t, "\"a'b\"", "a'b")
	expectString(t, "'\\n\\t\\\\'", "\n\t\\")
	expectString(t, "'\\x41'", "A")
	expectString(t, "'\\u0041'", "A")
	expectString(t, "'\\u{1F600}'", "\U0001F600")
	expectString(t, "'\\uD83D\\uDE00'", "\U0001F600")
	expectString(t, "'a\\\nb'", "ab")
	expectString(t, "'a\\\r\nb'", "ab")
	expectLexerError(t, "'abc", "<stdin>: error: Unexpected end of file\n")
	expectLexerError(t, "'a\nb'", "<stdin>: error: Unterminated string literal\n")
}

func TestNumericLiteral(t *testing.T) {
	expectNumber(t, "0", 0)
	expectNumber(t, "42", 42)
	expectNumber(t, "1.5", 1.5)
	expectNumber(t, ".5", 0.5)
	expectNumber(t, "1e3", 1000)
	expectNumber(t, "1_000", 1000)
	expectNumber(t, "0x10", 16)
	expectNumber(t, "0b101", 5)
	expectNumber(t, "0o17", 15)
	expectNumber(t, "1e400", math.Inf(1))
	expectLexerError(t, "1a", "<stdin>: error: Syntax error \"a\"\n")
	expectLexerError(t, "1n", "<stdin>: error: BigInt literal is not supported\n")
}
