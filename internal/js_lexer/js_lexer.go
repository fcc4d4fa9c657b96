package js_lexer

// The lexer converts a source file to a stream of tokens. The lexer is not
// run to completion before the parser is started. Instead, the parser calls
// it repeatedly as it parses the file, and reads the current token from the
// exported fields.
//
// Identifiers are slices of the input file. String literals are decoded into
// Go strings when the token is scanned.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/logger"
)

type T uint

// If you add a new token, remember to add it to "tokenToString" too
const (
	TEndOfFile T = iota
	TSyntaxError

	// "#!/usr/bin/env node"
	THashbang

	// Literals
	TNumericLiteral // Contents are in lexer.Number (float64)
	TStringLiteral  // Contents are in lexer.StringLiteral (string)

	// Punctuation
	TAmpersand
	TAmpersandAmpersand
	TAsterisk
	TAsteriskAsterisk
	TBar
	TBarBar
	TCaret
	TCloseBrace
	TCloseBracket
	TCloseParen
	TColon
	TComma
	TDot
	TDotDotDot
	TEqualsEquals
	TEqualsEqualsEquals
	TEqualsGreaterThan
	TExclamation
	TExclamationEquals
	TExclamationEqualsEquals
	TGreaterThan
	TGreaterThanEquals
	TGreaterThanGreaterThan
	TGreaterThanGreaterThanGreaterThan
	TLessThan
	TLessThanEquals
	TLessThanLessThan
	TMinus
	TMinusMinus
	TOpenBrace
	TOpenBracket
	TOpenParen
	TPercent
	TPlus
	TPlusPlus
	TQuestion
	TQuestionQuestion
	TSemicolon
	TSlash
	TTilde

	// Assignments
	TAmpersandEquals
	TAsteriskAsteriskEquals
	TAsteriskEquals
	TBarEquals
	TCaretEquals
	TEquals
	TGreaterThanGreaterThanEquals
	TGreaterThanGreaterThanGreaterThanEquals
	TLessThanLessThanEquals
	TMinusEquals
	TPercentEquals
	TPlusEquals
	TSlashEquals

	// Identifiers
	TIdentifier // Contents are in lexer.Identifier (string)

	// Reserved words
	TBreak
	TCase
	TCatch
	TClass
	TConst
	TContinue
	TDebugger
	TDefault
	TDelete
	TDo
	TElse
	TEnum
	TExport
	TExtends
	TFalse
	TFinally
	TFor
	TFunction
	TIf
	TImport
	TIn
	TInstanceof
	TNew
	TNull
	TReturn
	TSuper
	TSwitch
	TThis
	TThrow
	TTrue
	TTry
	TTypeof
	TVar
	TVoid
	TWhile
	TWith
)

var Keywords = map[string]T{
	// Reserved words
	"break":      TBreak,
	"case":       TCase,
	"catch":      TCatch,
	"class":      TClass,
	"const":      TConst,
	"continue":   TContinue,
	"debugger":   TDebugger,
	"default":    TDefault,
	"delete":     TDelete,
	"do":         TDo,
	"else":       TElse,
	"enum":       TEnum,
	"export":     TExport,
	"extends":    TExtends,
	"false":      TFalse,
	"finally":    TFinally,
	"for":        TFor,
	"function":   TFunction,
	"if":         TIf,
	"import":     TImport,
	"in":         TIn,
	"instanceof": TInstanceof,
	"new":        TNew,
	"null":       TNull,
	"return":     TReturn,
	"super":      TSuper,
	"switch":     TSwitch,
	"this":       TThis,
	"throw":      TThrow,
	"true":       TTrue,
	"try":        TTry,
	"typeof":     TTypeof,
	"var":        TVar,
	"void":       TVoid,
	"while":      TWhile,
	"with":       TWith,
}

var tokenToString = map[T]string{
	TEndOfFile:   "end of file",
	TSyntaxError: "syntax error",
	THashbang:    "hashbang comment",

	// Literals
	TNumericLiteral: "number",
	TStringLiteral:  "string",

	// Punctuation
	TAmpersand:                         "\"&\"",
	TAmpersandAmpersand:                "\"&&\"",
	TAsterisk:                          "\"*\"",
	TAsteriskAsterisk:                  "\"**\"",
	TBar:                               "\"|\"",
	TBarBar:                            "\"||\"",
	TCaret:                             "\"^\"",
	TCloseBrace:                        "\"}\"",
	TCloseBracket:                      "\"]\"",
	TCloseParen:                        "\")\"",
	TColon:                             "\":\"",
	TComma:                             "\",\"",
	TDot:                               "\".\"",
	TDotDotDot:                         "\"...\"",
	TEqualsEquals:                      "\"==\"",
	TEqualsEqualsEquals:                "\"===\"",
	TEqualsGreaterThan:                 "\"=>\"",
	TExclamation:                       "\"!\"",
	TExclamationEquals:                 "\"!=\"",
	TExclamationEqualsEquals:           "\"!==\"",
	TGreaterThan:                       "\">\"",
	TGreaterThanEquals:                 "\">=\"",
	TGreaterThanGreaterThan:            "\">>\"",
	TGreaterThanGreaterThanGreaterThan: "\">>>\"",
	TLessThan:                          "\"<\"",
	TLessThanEquals:                    "\"<=\"",
	TLessThanLessThan:                  "\"<<\"",
	TMinus:                             "\"-\"",
	TMinusMinus:                        "\"--\"",
	TOpenBrace:                         "\"{\"",
	TOpenBracket:                       "\"[\"",
	TOpenParen:                         "\"(\"",
	TPercent:                           "\"%\"",
	TPlus:                              "\"+\"",
	TPlusPlus:                          "\"++\"",
	TQuestion:                          "\"?\"",
	TQuestionQuestion:                  "\"??\"",
	TSemicolon:                         "\";\"",
	TSlash:                             "\"/\"",
	TTilde:                             "\"~\"",

	// Assignments
	TAmpersandEquals:                         "\"&=\"",
	TAsteriskAsteriskEquals:                  "\"**=\"",
	TAsteriskEquals:                          "\"*=\"",
	TBarEquals:                               "\"|=\"",
	TCaretEquals:                             "\"^=\"",
	TEquals:                                  "\"=\"",
	TGreaterThanGreaterThanEquals:            "\">>=\"",
	TGreaterThanGreaterThanGreaterThanEquals: "\">>>=\"",
	TLessThanLessThanEquals:                  "\"<<=\"",
	TMinusEquals:                             "\"-=\"",
	TPercentEquals:                           "\"%=\"",
	TPlusEquals:                              "\"+=\"",
	TSlashEquals:                             "\"/=\"",

	// Identifiers
	TIdentifier: "identifier",
}

type Lexer struct {
	log              logger.Log
	source           logger.Source
	current          int
	start            int
	end              int
	Token            T
	HasNewlineBefore bool
	codePoint        rune
	StringLiteral    string
	Identifier       string
	Number           float64
}

type LexerPanic struct{}

func NewLexer(log logger.Log, source logger.Source) Lexer {
	lexer := Lexer{
		log:    log,
		source: source,
	}
	lexer.step()
	lexer.Next()
	return lexer
}

func (lexer *Lexer) Loc() logger.Loc {
	return logger.Loc{Start: int32(lexer.start)}
}

func (lexer *Lexer) Range() logger.Range {
	return logger.Range{Loc: logger.Loc{Start: int32(lexer.start)}, Len: int32(lexer.end - lexer.start)}
}

func (lexer *Lexer) Raw() string {
	return lexer.source.Contents[lexer.start:lexer.end]
}

func (lexer *Lexer) IsIdentifierOrKeyword() bool {
	return lexer.Token >= TIdentifier
}

func (lexer *Lexer) IsContextualKeyword(text string) bool {
	return lexer.Token == TIdentifier && lexer.Raw() == text
}

func (lexer *Lexer) ExpectContextualKeyword(text string) {
	if !lexer.IsContextualKeyword(text) {
		lexer.ExpectedString(fmt.Sprintf("%q", text))
	}
	lexer.Next()
}

func (lexer *Lexer) SyntaxError() {
	loc := logger.Loc{Start: int32(lexer.end)}
	message := "Unexpected end of file"
	if lexer.end < len(lexer.source.Contents) {
		c, _ := utf8.DecodeRuneInString(lexer.source.Contents[lexer.end:])
		if c < 0x20 {
			message = fmt.Sprintf("Syntax error \"\\x%02X\"", c)
		} else if c >= 0x80 {
			message = fmt.Sprintf("Syntax error \"\\u{%x}\"", c)
		} else if c != '"' {
			message = fmt.Sprintf("Syntax error \"%c\"", c)
		} else {
			message = "Syntax error '\"'"
		}
	}
	lexer.log.AddError(&lexer.source, loc, message)
	panic(LexerPanic{})
}

func (lexer *Lexer) ExpectedString(text string) {
	found := fmt.Sprintf("%q", lexer.Raw())
	if lexer.start == len(lexer.source.Contents) {
		found = "end of file"
	}
	lexer.log.AddRangeError(&lexer.source, lexer.Range(), fmt.Sprintf("Expected %s but found %s", text, found))
	panic(LexerPanic{})
}

func (lexer *Lexer) Expected(token T) {
	if text, ok := tokenToString[token]; ok {
		lexer.ExpectedString(text)
	} else if text, ok := keywordText(token); ok {
		lexer.ExpectedString(fmt.Sprintf("%q", text))
	} else {
		lexer.Unexpected()
	}
}

func keywordText(token T) (string, bool) {
	for text, t := range Keywords {
		if t == token {
			return text, true
		}
	}
	return "", false
}

func (lexer *Lexer) Unexpected() {
	found := fmt.Sprintf("%q", lexer.Raw())
	if lexer.start == len(lexer.source.Contents) {
		found = "end of file"
	}
	lexer.log.AddRangeError(&lexer.source, lexer.Range(), fmt.Sprintf("Unexpected %s", found))
	panic(LexerPanic{})
}

// Reports an error at the current token for syntax that is valid JavaScript
// but that this tool does not handle.
func (lexer *Lexer) Unsupported(what string) {
	lexer.log.AddRangeError(&lexer.source, lexer.Range(), fmt.Sprintf("%s is not supported", what))
	panic(LexerPanic{})
}

func (lexer *Lexer) Expect(token T) {
	if lexer.Token != token {
		lexer.Expected(token)
	}
	lexer.Next()
}

func (lexer *Lexer) ExpectOrInsertSemicolon() {
	if lexer.Token == TSemicolon || (!lexer.HasNewlineBefore &&
		lexer.Token != TCloseBrace && lexer.Token != TEndOfFile) {
		lexer.Expect(TSemicolon)
	}
}

func (lexer *Lexer) Next() {
	lexer.HasNewlineBefore = lexer.end == 0

	for {
		lexer.start = lexer.end
		lexer.Token = 0

		switch lexer.codePoint {
		case -1: // This indicates the end of the file
			lexer.Token = TEndOfFile

		case '#':
			if lexer.start != 0 || !strings.HasPrefix(lexer.source.Contents, "#!") {
				lexer.Unsupported("Private name")
			}

			// "#!/usr/bin/env node"
			lexer.Token = THashbang
		hashbang:
			for {
				lexer.step()
				switch lexer.codePoint {
				case '\r', '\n', '\u2028', '\u2029', -1:
					break hashbang
				}
			}
			lexer.Identifier = lexer.Raw()

		case '\r', '\n', '\u2028', '\u2029':
			lexer.step()
			lexer.HasNewlineBefore = true
			continue

		case '\t', ' ':
			lexer.step()
			continue

		case '(':
			lexer.step()
			lexer.Token = TOpenParen

		case ')':
			lexer.step()
			lexer.Token = TCloseParen

		case '[':
			lexer.step()
			lexer.Token = TOpenBracket

		case ']':
			lexer.step()
			lexer.Token = TCloseBracket

		case '{':
			lexer.step()
			lexer.Token = TOpenBrace

		case '}':
			lexer.step()
			lexer.Token = TCloseBrace

		case ',':
			lexer.step()
			lexer.Token = TComma

		case ':':
			lexer.step()
			lexer.Token = TColon

		case ';':
			lexer.step()
			lexer.Token = TSemicolon

		case '~':
			lexer.step()
			lexer.Token = TTilde

		case '`':
			lexer.Unsupported("Template literal")

		case '?':
			// '?' or '??'
			lexer.step()
			switch lexer.codePoint {
			case '?':
				lexer.step()
				lexer.Token = TQuestionQuestion
			case '.':
				if current := lexer.current; current < len(lexer.source.Contents) {
					if c := lexer.source.Contents[current]; c < '0' || c > '9' {
						lexer.Unsupported("Optional chaining")
					}
				}
				lexer.Token = TQuestion
			default:
				lexer.Token = TQuestion
			}

		case '%':
			// '%' or '%='
			lexer.step()
			lexer.Token = lexer.maybeEquals(TPercent, TPercentEquals)

		case '&':
			// '&' or '&=' or '&&'
			lexer.step()
			switch lexer.codePoint {
			case '=':
				lexer.step()
				lexer.Token = TAmpersandEquals
			case '&':
				lexer.step()
				lexer.Token = TAmpersandAmpersand
			default:
				lexer.Token = TAmpersand
			}

		case '|':
			// '|' or '|=' or '||'
			lexer.step()
			switch lexer.codePoint {
			case '=':
				lexer.step()
				lexer.Token = TBarEquals
			case '|':
				lexer.step()
				lexer.Token = TBarBar
			default:
				lexer.Token = TBar
			}

		case '^':
			// '^' or '^='
			lexer.step()
			lexer.Token = lexer.maybeEquals(TCaret, TCaretEquals)

		case '+':
			// '+' or '+=' or '++'
			lexer.step()
			switch lexer.codePoint {
			case '=':
				lexer.step()
				lexer.Token = TPlusEquals
			case '+':
				lexer.step()
				lexer.Token = TPlusPlus
			default:
				lexer.Token = TPlus
			}

		case '-':
			// '-' or '-=' or '--'
			lexer.step()
			switch lexer.codePoint {
			case '=':
				lexer.step()
				lexer.Token = TMinusEquals
			case '-':
				lexer.step()
				lexer.Token = TMinusMinus
			default:
				lexer.Token = TMinus
			}

		case '*':
			// '*' or '*=' or '**' or '**='
			lexer.step()
			switch lexer.codePoint {
			case '=':
				lexer.step()
				lexer.Token = TAsteriskEquals
			case '*':
				lexer.step()
				lexer.Token = lexer.maybeEquals(TAsteriskAsterisk, TAsteriskAsteriskEquals)
			default:
				lexer.Token = TAsterisk
			}

		case '/':
			// '/' or '/=' or '//' or '/* ... */'
			lexer.step()
			switch lexer.codePoint {
			case '=':
				lexer.step()
				lexer.Token = TSlashEquals

			case '/':
			singleLineComment:
				for {
					lexer.step()
					switch lexer.codePoint {
					case '\r', '\n', '\u2028', '\u2029', -1:
						break singleLineComment
					}
				}
				continue

			case '*':
				lexer.step()
			multiLineComment:
				for {
					switch lexer.codePoint {
					case '*':
						lexer.step()
						if lexer.codePoint == '/' {
							lexer.step()
							break multiLineComment
						}

					case '\r', '\n', '\u2028', '\u2029':
						lexer.step()
						lexer.HasNewlineBefore = true

					case -1: // This indicates the end of the file
						lexer.start = lexer.end
						lexer.log.AddError(&lexer.source, lexer.Loc(), "Expected \"*/\" to terminate multi-line comment")
						panic(LexerPanic{})

					default:
						lexer.step()
					}
				}
				continue

			default:
				lexer.Token = TSlash
			}

		case '=':
			// '=' or '=>' or '==' or '==='
			lexer.step()
			switch lexer.codePoint {
			case '>':
				lexer.step()
				lexer.Token = TEqualsGreaterThan
			case '=':
				lexer.step()
				lexer.Token = lexer.maybeEquals(TEqualsEquals, TEqualsEqualsEquals)
			default:
				lexer.Token = TEquals
			}

		case '<':
			// '<' or '<<' or '<=' or '<<='
			lexer.step()
			switch lexer.codePoint {
			case '=':
				lexer.step()
				lexer.Token = TLessThanEquals
			case '<':
				lexer.step()
				lexer.Token = lexer.maybeEquals(TLessThanLessThan, TLessThanLessThanEquals)
			default:
				lexer.Token = TLessThan
			}

		case '>':
			// '>' or '>>' or '>>>' or '>=' or '>>=' or '>>>='
			lexer.step()
			switch lexer.codePoint {
			case '=':
				lexer.step()
				lexer.Token = TGreaterThanEquals
			case '>':
				lexer.step()
				switch lexer.codePoint {
				case '=':
					lexer.step()
					lexer.Token = TGreaterThanGreaterThanEquals
				case '>':
					lexer.step()
					lexer.Token = lexer.maybeEquals(TGreaterThanGreaterThanGreaterThan, TGreaterThanGreaterThanGreaterThanEquals)
				default:
					lexer.Token = TGreaterThanGreaterThan
				}
			default:
				lexer.Token = TGreaterThan
			}

		case '!':
			// '!' or '!=' or '!=='
			lexer.step()
			switch lexer.codePoint {
			case '=':
				lexer.step()
				lexer.Token = lexer.maybeEquals(TExclamationEquals, TExclamationEqualsEquals)
			default:
				lexer.Token = TExclamation
			}

		case '\'', '"':
			lexer.scanStringLiteral()

		case '.', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			lexer.parseNumericLiteralOrDot()

		case '\\':
			lexer.Unsupported("Escaped identifier")

		default:
			// Check for unusual whitespace characters
			if js_ast.IsWhitespace(lexer.codePoint) {
				lexer.step()
				continue
			}

			if js_ast.IsIdentifierStart(lexer.codePoint) {
				lexer.step()
				for js_ast.IsIdentifierContinue(lexer.codePoint) {
					lexer.step()
				}
				if lexer.codePoint == '\\' {
					lexer.Unsupported("Escaped identifier")
				}
				contents := lexer.Raw()
				lexer.Identifier = contents
				lexer.Token = Keywords[contents]
				if lexer.Token == 0 {
					lexer.Token = TIdentifier
				}
				break
			}

			lexer.end = lexer.current
			lexer.Token = TSyntaxError
		}

		return
	}
}

func (lexer *Lexer) maybeEquals(without T, with T) T {
	if lexer.codePoint == '=' {
		lexer.step()
		return with
	}
	return without
}

func (lexer *Lexer) scanStringLiteral() {
	quote := lexer.codePoint
	needsSlowPath := false
	lexer.Token = TStringLiteral
	lexer.step()

stringLiteral:
	for {
		switch lexer.codePoint {
		case '\\':
			needsSlowPath = true
			lexer.step()

			// Handle Windows CRLF
			if lexer.codePoint == '\r' {
				lexer.step()
				if lexer.codePoint == '\n' {
					lexer.step()
				}
				continue
			}

		case -1: // This indicates the end of the file
			lexer.SyntaxError()

		case '\r', '\n':
			lexer.log.AddError(&lexer.source, logger.Loc{Start: int32(lexer.end)}, "Unterminated string literal")
			panic(LexerPanic{})

		case quote:
			lexer.step()
			break stringLiteral
		}
		lexer.step()
	}

	text := lexer.source.Contents[lexer.start+1 : lexer.end-1]
	if needsSlowPath {
		lexer.StringLiteral = lexer.decodeEscapeSequences(lexer.start+1, text)
	} else {
		lexer.StringLiteral = text
	}
}

func (lexer *Lexer) decodeEscapeSequences(start int, text string) string {
	sb := strings.Builder{}
	i := 0

	for i < len(text) {
		c, width := utf8.DecodeRuneInString(text[i:])
		i += width

		if c != '\\' {
			sb.WriteRune(c)
			continue
		}

		c, width = utf8.DecodeRuneInString(text[i:])
		i += width

		switch c {
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'v':
			sb.WriteByte('\v')

		case '0':
			if i < len(text) && text[i] >= '0' && text[i] <= '9' {
				lexer.log.AddError(&lexer.source, logger.Loc{Start: int32(start + i - 2)}, "Legacy octal escape sequences are not supported")
				panic(LexerPanic{})
			}
			sb.WriteByte(0)

		case 'x':
			if i+2 > len(text) {
				lexer.syntaxErrorAt(start + i)
			}
			value, err := strconv.ParseUint(text[i:i+2], 16, 8)
			if err != nil {
				lexer.syntaxErrorAt(start + i)
			}
			sb.WriteRune(rune(value))
			i += 2

		case 'u':
			var hex string
			if i < len(text) && text[i] == '{' {
				end := strings.IndexByte(text[i:], '}')
				if end < 0 {
					lexer.syntaxErrorAt(start + i)
				}
				hex = text[i+1 : i+end]
				i += end + 1
			} else {
				if i+4 > len(text) {
					lexer.syntaxErrorAt(start + i)
				}
				hex = text[i : i+4]
				i += 4
			}
			value, err := strconv.ParseUint(hex, 16, 32)
			if err != nil || value > 0x10FFFF {
				lexer.syntaxErrorAt(start + i)
			}
			r := rune(value)

			// Join a surrogate pair written as two escapes
			if r >= 0xD800 && r <= 0xDBFF && strings.HasPrefix(text[i:], "\\u") && i+6 <= len(text) {
				if low, err := strconv.ParseUint(text[i+2:i+6], 16, 32); err == nil && low >= 0xDC00 && low <= 0xDFFF {
					r = (r-0xD800)<<10 | (rune(low) - 0xDC00) + 0x10000
					i += 6
				}
			}
			sb.WriteRune(r)

		case '\r':
			// Line continuation, including Windows CRLF
			if i < len(text) && text[i] == '\n' {
				i++
			}

		case '\n', '\u2028', '\u2029':
			// Line continuation

		default:
			sb.WriteRune(c)
		}
	}

	return sb.String()
}

func (lexer *Lexer) syntaxErrorAt(offset int) {
	lexer.end = offset
	lexer.SyntaxError()
}

func (lexer *Lexer) parseNumericLiteralOrDot() {
	// Number or dot
	first := lexer.codePoint
	lexer.step()

	// Dot without a digit after it
	if first == '.' && (lexer.codePoint < '0' || lexer.codePoint > '9') {
		// "..."
		if lexer.codePoint == '.' && lexer.current < len(lexer.source.Contents) &&
			lexer.source.Contents[lexer.current] == '.' {
			lexer.step()
			lexer.step()
			lexer.Token = TDotDotDot
			return
		}

		// "."
		lexer.Token = TDot
		return
	}

	lexer.Token = TNumericLiteral

	// Radix literals
	if first == '0' {
		base := 0
		switch lexer.codePoint {
		case 'b', 'B':
			base = 2
		case 'o', 'O':
			base = 8
		case 'x', 'X':
			base = 16
		}
		if base != 0 {
			lexer.step()
			for isHexOrUnderscore(lexer.codePoint) {
				lexer.step()
			}
			digits := strings.ReplaceAll(lexer.Raw()[2:], "_", "")
			value, err := strconv.ParseUint(digits, base, 64)
			if err != nil {
				lexer.SyntaxError()
			}
			lexer.Number = float64(value)
			lexer.checkNoIdentifierAfterNumber()
			return
		}
	}

	// Decimal literal
	for isDigitOrUnderscore(lexer.codePoint) {
		lexer.step()
	}
	if first != '.' && lexer.codePoint == '.' {
		lexer.step()
		for isDigitOrUnderscore(lexer.codePoint) {
			lexer.step()
		}
	}
	if lexer.codePoint == 'e' || lexer.codePoint == 'E' {
		lexer.step()
		if lexer.codePoint == '+' || lexer.codePoint == '-' {
			lexer.step()
		}
		if lexer.codePoint < '0' || lexer.codePoint > '9' {
			lexer.SyntaxError()
		}
		for isDigitOrUnderscore(lexer.codePoint) {
			lexer.step()
		}
	}
	if lexer.codePoint == 'n' {
		lexer.Unsupported("BigInt literal")
	}

	// Out-of-range values become infinity, the same as in JavaScript
	text := strings.ReplaceAll(lexer.Raw(), "_", "")
	value, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		lexer.SyntaxError()
	}
	lexer.Number = value
	lexer.checkNoIdentifierAfterNumber()
}

// An identifier can't immediately follow a number
func (lexer *Lexer) checkNoIdentifierAfterNumber() {
	if js_ast.IsIdentifierStart(lexer.codePoint) {
		lexer.SyntaxError()
	}
}

func isDigitOrUnderscore(c rune) bool {
	return (c >= '0' && c <= '9') || c == '_'
}

func isHexOrUnderscore(c rune) bool {
	return isDigitOrUnderscore(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (lexer *Lexer) step() {
	codePoint, width := utf8.DecodeRuneInString(lexer.source.Contents[lexer.current:])

	// Use -1 to indicate the end of the file
	if width == 0 {
		codePoint = -1
	}

	lexer.codePoint = codePoint
	lexer.end = lexer.current
	lexer.current += width
}

func RangeOfIdentifier(source logger.Source, loc logger.Loc) logger.Range {
	text := source.Contents[loc.Start:]
	if len(text) == 0 {
		return logger.Range{Loc: loc, Len: 0}
	}

	i := 0
	for i < len(text) {
		c, width := utf8.DecodeRuneInString(text[i:])
		if (i == 0 && !js_ast.IsIdentifierStart(c)) || (i > 0 && !js_ast.IsIdentifierContinue(c)) {
			break
		}
		i += width
	}
	return logger.Range{Loc: loc, Len: int32(i)}
}
