package js_parser

import (
	"fmt"

	"github.com/esdown/esdown/internal/ast"
	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/js_lexer"
	"github.com/esdown/esdown/internal/logger"
)

// This parser does a single pass over the token stream and produces an AST
// with name-based identifiers. It covers the subset of the language that the
// lowering passes understand: class inheritance and fields, destructuring,
// template literals, regular expressions and optional chaining are reported
// as errors instead of being passed through silently.
type parser struct {
	log           logger.Log
	source        logger.Source
	lexer         js_lexer.Lexer
	importRecords []ast.ImportRecord
	usedNames     map[string]bool
	fnOrArrowData fnOrArrowDataParse

	// "in" is not an operator inside the initializer of a "for" loop
	allowIn bool

	hasESMSyntax   bool
	usesExportsRef bool
	usesModuleRef  bool
}

type fnOrArrowDataParse struct {
	isTopLevel  bool
	isGenerator bool
}

func (p *parser) storeName(name string) {
	p.usedNames[name] = true
	switch name {
	case "exports":
		p.usesExportsRef = true
	case "module":
		p.usesModuleRef = true
	}
}

func (p *parser) addImportRecord(kind ast.ImportKind, r logger.Range, path string, flags ast.ImportRecordFlags) uint32 {
	index := uint32(len(p.importRecords))
	p.importRecords = append(p.importRecords, ast.ImportRecord{
		Kind:  kind,
		Range: r,
		Path:  path,
		Flags: flags,
	})
	return index
}

func (p *parser) parseIdentifierBinding() js_ast.Binding {
	switch p.lexer.Token {
	case js_lexer.TOpenBracket, js_lexer.TOpenBrace:
		p.lexer.Unsupported("Destructuring")
	}
	loc := p.lexer.Loc()
	name := p.lexer.Identifier
	p.lexer.Expect(js_lexer.TIdentifier)
	p.storeName(name)
	return js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: name}}
}

func (p *parser) parseLocName() js_ast.LocName {
	loc := p.lexer.Loc()
	name := p.lexer.Identifier
	p.lexer.Expect(js_lexer.TIdentifier)
	p.storeName(name)
	return js_ast.LocName{Loc: loc, Name: name}
}

////////////////////////////////////////////////////////////////////////////////
// Expressions

func (p *parser) parseExpr(level js_ast.L) js_ast.Expr {
	return p.parseSuffix(p.parsePrefix(level), level)
}

func (p *parser) parseExprWithAllowIn(level js_ast.L, allowIn bool) js_ast.Expr {
	oldAllowIn := p.allowIn
	p.allowIn = allowIn
	expr := p.parseExpr(level)
	p.allowIn = oldAllowIn
	return expr
}

func (p *parser) parseExprOrNil(level js_ast.L) js_ast.Expr {
	switch p.lexer.Token {
	case js_lexer.TCloseParen, js_lexer.TCloseBracket, js_lexer.TCloseBrace,
		js_lexer.TComma, js_lexer.TSemicolon, js_lexer.TColon, js_lexer.TEndOfFile:
		return js_ast.Expr{}
	}
	if p.lexer.HasNewlineBefore {
		return js_ast.Expr{}
	}
	return p.parseExpr(level)
}

func (p *parser) parsePrefix(level js_ast.L) js_ast.Expr {
	loc := p.lexer.Loc()

	switch p.lexer.Token {
	case js_lexer.TSuper:
		p.lexer.Unsupported("\"super\"")

	case js_lexer.TClass:
		p.lexer.Next()
		var name *js_ast.LocName
		if p.lexer.Token == js_lexer.TIdentifier {
			n := p.parseLocName()
			name = &n
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EClass{Class: p.parseClass(name)}}

	case js_lexer.TImport:
		p.lexer.Unsupported("Dynamic import")

	case js_lexer.TSlash, js_lexer.TSlashEquals:
		p.lexer.Unsupported("Regular expression literal")

	case js_lexer.TOpenParen:
		p.lexer.Next()
		return p.parseParenExpr(loc, level, false)

	case js_lexer.TFalse:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBoolean{Value: false}}

	case js_lexer.TTrue:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBoolean{Value: true}}

	case js_lexer.TNull:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENull{}}

	case js_lexer.TThis:
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EThis{}}

	case js_lexer.TIdentifier:
		name := p.lexer.Identifier
		nameRange := p.lexer.Range()
		p.lexer.Next()

		switch name {
		case "async":
			if expr, ok := p.parseAsyncPrefixExpr(nameRange, level); ok {
				return expr
			}

		case "await":
			// Every file is parsed as a module, where "await" is always reserved.
			// Using it outside of an async function is reported when lowering.
			value := p.parseExpr(js_ast.LPrefix)
			return js_ast.Expr{Loc: loc, Data: &js_ast.EAwait{Value: value}}

		case "yield":
			if p.fnOrArrowData.isGenerator {
				return p.parseYieldExpr(loc)
			}

		case "undefined":
			p.storeName(name)
			return js_ast.Expr{Loc: loc, Data: &js_ast.EUndefined{}}
		}

		// Handle the start of an arrow function
		if p.lexer.Token == js_lexer.TEqualsGreaterThan && level <= js_ast.LAssign && !p.lexer.HasNewlineBefore {
			p.storeName(name)
			arg := js_ast.Arg{Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: name}}}
			return js_ast.Expr{Loc: loc, Data: p.parseArrowBody([]js_ast.Arg{arg}, false, false)}
		}

		p.storeName(name)
		return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Name: name}}

	case js_lexer.TStringLiteral:
		value := p.lexer.StringLiteral
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: value}}

	case js_lexer.TNumericLiteral:
		value := p.lexer.Number
		p.lexer.Next()
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENumber{Value: value}}

	case js_lexer.TVoid:
		return p.parseUnary(loc, js_ast.UnOpVoid)

	case js_lexer.TTypeof:
		return p.parseUnary(loc, js_ast.UnOpTypeof)

	case js_lexer.TDelete:
		return p.parseUnary(loc, js_ast.UnOpDelete)

	case js_lexer.TMinus:
		return p.parseUnary(loc, js_ast.UnOpNeg)

	case js_lexer.TPlus:
		return p.parseUnary(loc, js_ast.UnOpPos)

	case js_lexer.TTilde:
		return p.parseUnary(loc, js_ast.UnOpCpl)

	case js_lexer.TExclamation:
		return p.parseUnary(loc, js_ast.UnOpNot)

	case js_lexer.TMinusMinus:
		return p.parseUnary(loc, js_ast.UnOpPreDec)

	case js_lexer.TPlusPlus:
		return p.parseUnary(loc, js_ast.UnOpPreInc)

	case js_lexer.TFunction:
		return p.parseFnExpr(loc, false)

	case js_lexer.TNew:
		p.lexer.Next()
		target := p.parseSuffix(p.parsePrefix(js_ast.LMember), js_ast.LMember)
		var args []js_ast.Expr
		if p.lexer.Token == js_lexer.TOpenParen {
			args = p.parseCallArgs()
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENew{Target: target, Args: args}}

	case js_lexer.TOpenBracket:
		return p.parseArrayLiteral(loc)

	case js_lexer.TOpenBrace:
		return p.parseObjectLiteral(loc)
	}

	p.lexer.Unexpected()
	return js_ast.Expr{}
}

func (p *parser) parseUnary(loc logger.Loc, op js_ast.OpCode) js_ast.Expr {
	p.lexer.Next()
	value := p.parseExpr(js_ast.LPrefix)
	if op.IsUpdate() {
		p.checkAssignTarget(value)
	}
	return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: op, Value: value}}
}

func (p *parser) checkAssignTarget(expr js_ast.Expr) {
	switch expr.Data.(type) {
	case *js_ast.EIdentifier, *js_ast.EDot, *js_ast.EIndex:
		return
	case *js_ast.EArray, *js_ast.EObject:
		p.log.AddError(&p.source, expr.Loc, "Destructuring is not supported")
	default:
		p.log.AddError(&p.source, expr.Loc, "Invalid assignment target")
	}
	panic(js_lexer.LexerPanic{})
}

func (p *parser) parseYieldExpr(loc logger.Loc) js_ast.Expr {
	isStar := false
	if p.lexer.Token == js_lexer.TAsterisk && !p.lexer.HasNewlineBefore {
		isStar = true
		p.lexer.Next()
	}

	var value js_ast.Expr
	if isStar {
		value = p.parseExpr(js_ast.LYield)
	} else {
		value = p.parseExprOrNil(js_ast.LYield)
	}
	return js_ast.Expr{Loc: loc, Data: &js_ast.EYield{ValueOrNil: value, IsStar: isStar}}
}

// This assumes the "async" identifier has already been consumed
func (p *parser) parseAsyncPrefixExpr(asyncRange logger.Range, level js_ast.L) (js_ast.Expr, bool) {
	// "async\nfunction() {}" is the identifier "async" followed by a function
	if p.lexer.HasNewlineBefore {
		return js_ast.Expr{}, false
	}

	switch p.lexer.Token {
	case js_lexer.TFunction:
		// "async function() {}"
		return p.parseFnExpr(asyncRange.Loc, true), true

	case js_lexer.TIdentifier:
		// "async x => {}"
		if level <= js_ast.LAssign {
			binding := p.parseIdentifierBinding()
			if p.lexer.Token != js_lexer.TEqualsGreaterThan || p.lexer.HasNewlineBefore {
				p.lexer.Expected(js_lexer.TEqualsGreaterThan)
			}
			arrow := p.parseArrowBody([]js_ast.Arg{{Binding: binding}}, true, false)
			return js_ast.Expr{Loc: asyncRange.Loc, Data: arrow}, true
		}

	case js_lexer.TOpenParen:
		// "async (x) => {}" or the call "async(x)"
		p.lexer.Next()
		return p.parseParenExpr(asyncRange.Loc, level, true), true
	}

	return js_ast.Expr{}, false
}

// This assumes the "(" token has already been consumed. If "isAsync" is true,
// the "async" identifier came before the "(" and this is either an async
// arrow function or a call to a function named "async".
func (p *parser) parseParenExpr(loc logger.Loc, level js_ast.L, isAsync bool) js_ast.Expr {
	var items []js_ast.Expr
	hasSpread := false

	for p.lexer.Token != js_lexer.TCloseParen {
		itemLoc := p.lexer.Loc()
		if p.lexer.Token == js_lexer.TDotDotDot {
			p.lexer.Next()
			hasSpread = true
			items = append(items, js_ast.Expr{Loc: itemLoc, Data: &js_ast.ESpread{Value: p.parseExprWithAllowIn(js_ast.LComma, true)}})
		} else {
			items = append(items, p.parseExprWithAllowIn(js_ast.LComma, true))
		}
		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}
	p.lexer.Expect(js_lexer.TCloseParen)

	// Arrow functions
	if p.lexer.Token == js_lexer.TEqualsGreaterThan && !p.lexer.HasNewlineBefore && level <= js_ast.LAssign {
		args, hasRestArg := p.convertExprsToArgs(items)
		arrow := p.parseArrowBody(args, isAsync, hasRestArg)
		return js_ast.Expr{Loc: loc, Data: arrow}
	}

	// A call to a function named "async"
	if isAsync {
		p.storeName("async")
		return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{
			Target: js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Name: "async"}},
			Args:   items,
		}}
	}

	// Parenthesized expression
	if len(items) == 0 || hasSpread {
		p.lexer.Expected(js_lexer.TEqualsGreaterThan)
	}
	return js_ast.JoinAllWithComma(items)
}

func (p *parser) convertExprsToArgs(items []js_ast.Expr) (args []js_ast.Arg, hasRestArg bool) {
	for i, item := range items {
		var defaultOrNil js_ast.Expr
		if spread, ok := item.Data.(*js_ast.ESpread); ok {
			if i != len(items)-1 {
				p.log.AddError(&p.source, item.Loc, "Unexpected \"...\"")
				panic(js_lexer.LexerPanic{})
			}
			hasRestArg = true
			item = spread.Value
		} else if binary, ok := item.Data.(*js_ast.EBinary); ok && binary.Op == js_ast.BinOpAssign {
			item = binary.Left
			defaultOrNil = binary.Right
		}

		switch e := item.Data.(type) {
		case *js_ast.EIdentifier:
			args = append(args, js_ast.Arg{
				Binding:      js_ast.Binding{Loc: item.Loc, Data: &js_ast.BIdentifier{Name: e.Name}},
				DefaultOrNil: defaultOrNil,
			})

		case *js_ast.EArray, *js_ast.EObject:
			p.log.AddError(&p.source, item.Loc, "Destructuring is not supported")
			panic(js_lexer.LexerPanic{})

		default:
			p.log.AddError(&p.source, item.Loc, "Invalid binding pattern")
			panic(js_lexer.LexerPanic{})
		}
	}
	return
}

// This assumes the current token is "=>"
func (p *parser) parseArrowBody(args []js_ast.Arg, isAsync bool, hasRestArg bool) *js_ast.EArrow {
	p.lexer.Expect(js_lexer.TEqualsGreaterThan)

	// Arrow functions are never generators and "yield" is not a keyword in them
	oldFnOrArrowData := p.fnOrArrowData
	p.fnOrArrowData = fnOrArrowDataParse{}
	defer func() { p.fnOrArrowData = oldFnOrArrowData }()

	arrow := &js_ast.EArrow{Args: args, IsAsync: isAsync, HasRestArg: hasRestArg}

	if p.lexer.Token == js_lexer.TOpenBrace {
		arrow.Body = p.parseFnBody()
		return arrow
	}

	bodyLoc := p.lexer.Loc()
	value := p.parseExpr(js_ast.LComma)
	arrow.Body = js_ast.FnBody{Loc: bodyLoc, Stmts: []js_ast.Stmt{{Loc: value.Loc, Data: &js_ast.SReturn{ValueOrNil: value}}}}
	arrow.PreferExpr = true
	return arrow
}

func (p *parser) parseFnExpr(loc logger.Loc, isAsync bool) js_ast.Expr {
	p.lexer.Expect(js_lexer.TFunction)
	isGenerator := false
	if p.lexer.Token == js_lexer.TAsterisk {
		isGenerator = true
		p.lexer.Next()
	}

	var name *js_ast.LocName
	if p.lexer.Token != js_lexer.TOpenParen {
		n := p.parseLocName()
		name = &n
	}

	fn := p.parseFn(name, isAsync, isGenerator)
	return js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: fn}}
}

// This assumes the function name (if any) has already been consumed
func (p *parser) parseFn(name *js_ast.LocName, isAsync bool, isGenerator bool) js_ast.Fn {
	fn := js_ast.Fn{
		Name:         name,
		OpenParenLoc: p.lexer.Loc(),
		IsAsync:      isAsync,
		IsGenerator:  isGenerator,
	}

	oldFnOrArrowData := p.fnOrArrowData
	p.fnOrArrowData = fnOrArrowDataParse{isGenerator: isGenerator}
	defer func() { p.fnOrArrowData = oldFnOrArrowData }()

	p.lexer.Expect(js_lexer.TOpenParen)
	for p.lexer.Token != js_lexer.TCloseParen {
		if p.lexer.Token == js_lexer.TDotDotDot {
			p.lexer.Next()
			fn.HasRestArg = true
			fn.Args = append(fn.Args, js_ast.Arg{Binding: p.parseIdentifierBinding()})
			break
		}

		arg := js_ast.Arg{Binding: p.parseIdentifierBinding()}
		if p.lexer.Token == js_lexer.TEquals {
			p.lexer.Next()
			arg.DefaultOrNil = p.parseExprWithAllowIn(js_ast.LComma, true)
		}
		fn.Args = append(fn.Args, arg)

		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}
	p.lexer.Expect(js_lexer.TCloseParen)

	fn.Body = p.parseFnBody()
	return fn
}

func (p *parser) parseFnBody() js_ast.FnBody {
	loc := p.lexer.Loc()
	oldAllowIn := p.allowIn
	p.allowIn = true
	p.lexer.Expect(js_lexer.TOpenBrace)
	stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, true)
	p.lexer.Next()
	p.allowIn = oldAllowIn
	return js_ast.FnBody{Loc: loc, Stmts: stmts}
}

func (p *parser) parseCallArgs() []js_ast.Expr {
	// Allow "in" inside call arguments
	oldAllowIn := p.allowIn
	p.allowIn = true

	args := []js_ast.Expr{}
	p.lexer.Expect(js_lexer.TOpenParen)

	for p.lexer.Token != js_lexer.TCloseParen {
		loc := p.lexer.Loc()
		isSpread := p.lexer.Token == js_lexer.TDotDotDot
		if isSpread {
			p.lexer.Next()
		}
		arg := p.parseExpr(js_ast.LComma)
		if isSpread {
			arg = js_ast.Expr{Loc: loc, Data: &js_ast.ESpread{Value: arg}}
		}
		args = append(args, arg)
		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}

	p.lexer.Expect(js_lexer.TCloseParen)
	p.allowIn = oldAllowIn
	return args
}

func (p *parser) parseArrayLiteral(loc logger.Loc) js_ast.Expr {
	p.lexer.Next()
	isSingleLine := !p.lexer.HasNewlineBefore
	items := []js_ast.Expr{}

	oldAllowIn := p.allowIn
	p.allowIn = true

	for p.lexer.Token != js_lexer.TCloseBracket {
		switch p.lexer.Token {
		case js_lexer.TComma:
			items = append(items, js_ast.Expr{Loc: p.lexer.Loc(), Data: &js_ast.EMissing{}})

		case js_lexer.TDotDotDot:
			dotsLoc := p.lexer.Loc()
			p.lexer.Next()
			items = append(items, js_ast.Expr{Loc: dotsLoc, Data: &js_ast.ESpread{Value: p.parseExpr(js_ast.LComma)}})

		default:
			items = append(items, p.parseExpr(js_ast.LComma))
		}

		if p.lexer.Token != js_lexer.TComma {
			break
		}
		if p.lexer.HasNewlineBefore {
			isSingleLine = false
		}
		p.lexer.Next()
		if p.lexer.HasNewlineBefore {
			isSingleLine = false
		}
	}

	if p.lexer.HasNewlineBefore {
		isSingleLine = false
	}
	p.lexer.Expect(js_lexer.TCloseBracket)
	p.allowIn = oldAllowIn
	return js_ast.Expr{Loc: loc, Data: &js_ast.EArray{Items: items, IsSingleLine: isSingleLine}}
}

func (p *parser) parseObjectLiteral(loc logger.Loc) js_ast.Expr {
	p.lexer.Next()
	isSingleLine := !p.lexer.HasNewlineBefore
	properties := []js_ast.Property{}

	oldAllowIn := p.allowIn
	p.allowIn = true

	for p.lexer.Token != js_lexer.TCloseBrace {
		properties = append(properties, p.parseProperty())

		if p.lexer.Token != js_lexer.TComma {
			break
		}
		if p.lexer.HasNewlineBefore {
			isSingleLine = false
		}
		p.lexer.Next()
		if p.lexer.HasNewlineBefore {
			isSingleLine = false
		}
	}

	if p.lexer.HasNewlineBefore {
		isSingleLine = false
	}
	p.lexer.Expect(js_lexer.TCloseBrace)
	p.allowIn = oldAllowIn
	return js_ast.Expr{Loc: loc, Data: &js_ast.EObject{Properties: properties, IsSingleLine: isSingleLine}}
}

func (p *parser) parseProperty() js_ast.Property {
	// "...x"
	if p.lexer.Token == js_lexer.TDotDotDot {
		p.lexer.Next()
		return js_ast.Property{Kind: js_ast.PropertySpread, ValueOrNil: p.parseExpr(js_ast.LComma)}
	}

	kind := js_ast.PropertyNormal
	isAsync := false
	isGenerator := false

	// "get x() {}", "set x(v) {}", "async x() {}"
	if p.lexer.Token == js_lexer.TIdentifier {
		switch raw := p.lexer.Identifier; raw {
		case "get", "set", "async":
			oldLexer := p.lexer
			p.lexer.Next()
			switch p.lexer.Token {
			case js_lexer.TOpenParen, js_lexer.TColon, js_lexer.TComma, js_lexer.TCloseBrace, js_lexer.TEquals:
				p.lexer = oldLexer
			default:
				if raw == "async" && p.lexer.HasNewlineBefore {
					p.lexer = oldLexer
				} else {
					switch raw {
					case "get":
						kind = js_ast.PropertyGet
					case "set":
						kind = js_ast.PropertySet
					case "async":
						isAsync = true
					}
				}
			}
		}
	}

	// "*x() {}"
	if p.lexer.Token == js_lexer.TAsterisk {
		p.lexer.Next()
		isGenerator = true
	}

	keyLoc := p.lexer.Loc()
	var key js_ast.Expr
	isComputed := false
	isIdentifier := false
	name := ""

	switch p.lexer.Token {
	case js_lexer.TStringLiteral:
		key = js_ast.Expr{Loc: keyLoc, Data: &js_ast.EString{Value: p.lexer.StringLiteral}}
		p.lexer.Next()

	case js_lexer.TNumericLiteral:
		key = js_ast.Expr{Loc: keyLoc, Data: &js_ast.ENumber{Value: p.lexer.Number}}
		p.lexer.Next()

	case js_lexer.TOpenBracket:
		p.lexer.Next()
		isComputed = true
		key = p.parseExprWithAllowIn(js_ast.LComma, true)
		p.lexer.Expect(js_lexer.TCloseBracket)

	default:
		if !p.lexer.IsIdentifierOrKeyword() {
			p.lexer.Expect(js_lexer.TIdentifier)
		}
		name = p.lexer.Identifier
		isIdentifier = p.lexer.Token == js_lexer.TIdentifier
		key = js_ast.Expr{Loc: keyLoc, Data: &js_ast.EString{Value: name}}
		p.lexer.Next()
	}

	// Methods
	if p.lexer.Token == js_lexer.TOpenParen || kind != js_ast.PropertyNormal || isAsync || isGenerator {
		fnLoc := p.lexer.Loc()
		fn := p.parseFn(nil, isAsync, isGenerator)
		return js_ast.Property{
			Kind:       kind,
			KeyOrNil:   key,
			ValueOrNil: js_ast.Expr{Loc: fnLoc, Data: &js_ast.EFunction{Fn: fn}},
			IsComputed: isComputed,
			IsMethod:   true,
		}
	}

	// "a: b"
	if p.lexer.Token == js_lexer.TColon {
		p.lexer.Next()
		return js_ast.Property{
			KeyOrNil:   key,
			ValueOrNil: p.parseExpr(js_ast.LComma),
			IsComputed: isComputed,
		}
	}

	// Shorthand properties only work with identifiers
	if !isIdentifier {
		p.lexer.Expect(js_lexer.TColon)
	}
	p.storeName(name)
	return js_ast.Property{
		KeyOrNil:     key,
		ValueOrNil:   js_ast.Expr{Loc: keyLoc, Data: &js_ast.EIdentifier{Name: name}},
		WasShorthand: true,
	}
}

func (p *parser) parseSuffix(left js_ast.Expr, level js_ast.L) js_ast.Expr {
	for {
		switch p.lexer.Token {
		case js_lexer.TDot:
			p.lexer.Next()
			if !p.lexer.IsIdentifierOrKeyword() {
				p.lexer.Expect(js_lexer.TIdentifier)
			}
			name := p.lexer.Identifier
			nameLoc := p.lexer.Loc()
			p.lexer.Next()
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EDot{Target: left, Name: name, NameLoc: nameLoc}}

		case js_lexer.TOpenBracket:
			p.lexer.Next()
			index := p.parseExprWithAllowIn(js_ast.LLowest, true)
			p.lexer.Expect(js_lexer.TCloseBracket)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EIndex{Target: left, Index: index}}

		case js_lexer.TOpenParen:
			if level >= js_ast.LCall {
				return left
			}
			args := p.parseCallArgs()
			p.maybeRecordRequire(left, args)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.ECall{Target: left, Args: args}}

		case js_lexer.TQuestion:
			if level >= js_ast.LConditional {
				return left
			}
			p.lexer.Next()

			// Allow "in" in between "?" and ":"
			yes := p.parseExprWithAllowIn(js_ast.LComma, true)
			p.lexer.Expect(js_lexer.TColon)
			no := p.parseExpr(js_ast.LComma)
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EIf{Test: left, Yes: yes, No: no}}

		case js_lexer.TMinusMinus, js_lexer.TPlusPlus:
			if p.lexer.HasNewlineBefore || level >= js_ast.LPostfix {
				return left
			}
			op := js_ast.UnOpPostDec
			if p.lexer.Token == js_lexer.TPlusPlus {
				op = js_ast.UnOpPostInc
			}
			p.checkAssignTarget(left)
			p.lexer.Next()
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EUnary{Op: op, Value: left}}

		case js_lexer.TComma:
			if level >= js_ast.LComma {
				return left
			}
			p.lexer.Next()
			left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EBinary{Op: js_ast.BinOpComma, Left: left, Right: p.parseExpr(js_ast.LComma)}}

		case js_lexer.TIn:
			if level >= js_ast.LCompare || !p.allowIn {
				return left
			}
			left = p.parseBinary(left, js_ast.BinOpIn, js_ast.LCompare)

		default:
			op, ok := binaryOps[p.lexer.Token]
			if !ok {
				return left
			}
			entry := js_ast.OpTable[op]
			if op.IsAssign() {
				if level >= js_ast.LAssign {
					return left
				}
				p.checkAssignTarget(left)
				p.lexer.Next()
				left = js_ast.Expr{Loc: left.Loc, Data: &js_ast.EBinary{Op: op, Left: left, Right: p.parseExpr(js_ast.LAssign - 1)}}
				continue
			}
			if level >= entry.Level {
				return left
			}
			if op == js_ast.BinOpPow {
				// "**" is right-associative
				left = p.parseBinary(left, op, js_ast.LExponentiation-1)
			} else {
				left = p.parseBinary(left, op, entry.Level)
			}
		}
	}
}

func (p *parser) parseBinary(left js_ast.Expr, op js_ast.OpCode, rightLevel js_ast.L) js_ast.Expr {
	p.lexer.Next()
	right := p.parseExpr(rightLevel)
	return js_ast.Expr{Loc: left.Loc, Data: &js_ast.EBinary{Op: op, Left: left, Right: right}}
}

var binaryOps = map[js_lexer.T]js_ast.OpCode{
	js_lexer.TPlus:                              js_ast.BinOpAdd,
	js_lexer.TMinus:                             js_ast.BinOpSub,
	js_lexer.TAsterisk:                          js_ast.BinOpMul,
	js_lexer.TSlash:                             js_ast.BinOpDiv,
	js_lexer.TPercent:                           js_ast.BinOpRem,
	js_lexer.TAsteriskAsterisk:                  js_ast.BinOpPow,
	js_lexer.TLessThan:                          js_ast.BinOpLt,
	js_lexer.TLessThanEquals:                    js_ast.BinOpLe,
	js_lexer.TGreaterThan:                       js_ast.BinOpGt,
	js_lexer.TGreaterThanEquals:                 js_ast.BinOpGe,
	js_lexer.TInstanceof:                        js_ast.BinOpInstanceof,
	js_lexer.TLessThanLessThan:                  js_ast.BinOpShl,
	js_lexer.TGreaterThanGreaterThan:            js_ast.BinOpShr,
	js_lexer.TGreaterThanGreaterThanGreaterThan: js_ast.BinOpUShr,
	js_lexer.TEqualsEquals:                      js_ast.BinOpLooseEq,
	js_lexer.TExclamationEquals:                 js_ast.BinOpLooseNe,
	js_lexer.TEqualsEqualsEquals:                js_ast.BinOpStrictEq,
	js_lexer.TExclamationEqualsEquals:           js_ast.BinOpStrictNe,
	js_lexer.TQuestionQuestion:                  js_ast.BinOpNullishCoalescing,
	js_lexer.TBarBar:                            js_ast.BinOpLogicalOr,
	js_lexer.TAmpersandAmpersand:                js_ast.BinOpLogicalAnd,
	js_lexer.TBar:                               js_ast.BinOpBitwiseOr,
	js_lexer.TAmpersand:                         js_ast.BinOpBitwiseAnd,
	js_lexer.TCaret:                             js_ast.BinOpBitwiseXor,

	js_lexer.TEquals:                                  js_ast.BinOpAssign,
	js_lexer.TPlusEquals:                              js_ast.BinOpAddAssign,
	js_lexer.TMinusEquals:                             js_ast.BinOpSubAssign,
	js_lexer.TAsteriskEquals:                          js_ast.BinOpMulAssign,
	js_lexer.TSlashEquals:                             js_ast.BinOpDivAssign,
	js_lexer.TPercentEquals:                           js_ast.BinOpRemAssign,
	js_lexer.TAsteriskAsteriskEquals:                  js_ast.BinOpPowAssign,
	js_lexer.TLessThanLessThanEquals:                  js_ast.BinOpShlAssign,
	js_lexer.TGreaterThanGreaterThanEquals:            js_ast.BinOpShrAssign,
	js_lexer.TGreaterThanGreaterThanGreaterThanEquals: js_ast.BinOpUShrAssign,
	js_lexer.TBarEquals:                               js_ast.BinOpBitwiseOrAssign,
	js_lexer.TAmpersandEquals:                         js_ast.BinOpBitwiseAndAssign,
	js_lexer.TCaretEquals:                             js_ast.BinOpBitwiseXorAssign,
}

// Calls to "require" with a single string argument are recorded so the
// module graph knows about CommonJS dependencies
func (p *parser) maybeRecordRequire(target js_ast.Expr, args []js_ast.Expr) {
	if id, ok := target.Data.(*js_ast.EIdentifier); ok && id.Name == "require" && len(args) == 1 {
		if str, ok := args[0].Data.(*js_ast.EString); ok {
			r := p.source.RangeOfString(args[0].Loc)
			p.addImportRecord(ast.ImportRequire, r, str.Value, 0)
		}
	}
}

////////////////////////////////////////////////////////////////////////////////
// Statements

func (p *parser) parseStmtsUpTo(end js_lexer.T, allowDirectives bool) []js_ast.Stmt {
	stmts := []js_ast.Stmt{}

	for p.lexer.Token != end {
		stmt := p.parseStmt()

		// Only the leading string literals of a body are directives
		if allowDirectives {
			if s, ok := stmt.Data.(*js_ast.SExpr); ok {
				if str, ok := s.Value.Data.(*js_ast.EString); ok {
					stmt.Data = &js_ast.SDirective{Value: str.Value}
				} else {
					allowDirectives = false
				}
			} else {
				allowDirectives = false
			}
		}

		stmts = append(stmts, stmt)
	}

	return stmts
}

func (p *parser) parseStmt() js_ast.Stmt {
	loc := p.lexer.Loc()

	switch p.lexer.Token {
	case js_lexer.TSemicolon:
		p.lexer.Next()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SEmpty{}}

	case js_lexer.THashbang:
		if loc.Start != 0 {
			p.lexer.Unexpected()
		}
		p.lexer.Next()
		return p.parseStmt()

	case js_lexer.TExport:
		return p.parseExportStmt(loc)

	case js_lexer.TImport:
		return p.parseImportStmt(loc)

	case js_lexer.TFunction:
		return p.parseFnStmt(loc, false, false)

	case js_lexer.TClass:
		return p.parseClassStmt(loc, false)

	case js_lexer.TEnum:
		p.lexer.Unsupported("Enum")

	case js_lexer.TWith:
		p.lexer.Unsupported("\"with\" statement")

	case js_lexer.TDebugger:
		p.lexer.Unsupported("\"debugger\" statement")

	case js_lexer.TVar:
		p.lexer.Next()
		decls := p.parseAndDeclareDecls(js_ast.LocalVar)
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls}}

	case js_lexer.TConst:
		p.lexer.Next()
		decls := p.parseAndDeclareDecls(js_ast.LocalConst)
		p.requireInitializers(js_ast.LocalConst, decls)
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalConst, Decls: decls}}

	case js_lexer.TIf:
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExprWithAllowIn(js_ast.LLowest, true)
		p.lexer.Expect(js_lexer.TCloseParen)
		yes := p.parseStmt()
		var noOrNil js_ast.Stmt
		if p.lexer.Token == js_lexer.TElse {
			p.lexer.Next()
			noOrNil = p.parseStmt()
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SIf{Test: test, Yes: yes, NoOrNil: noOrNil}}

	case js_lexer.TDo:
		p.lexer.Next()
		body := p.parseStmt()
		p.lexer.Expect(js_lexer.TWhile)
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExprWithAllowIn(js_ast.LLowest, true)
		p.lexer.Expect(js_lexer.TCloseParen)

		// This is a weird corner case where automatic semicolon insertion applies
		// even without a newline present
		if p.lexer.Token == js_lexer.TSemicolon {
			p.lexer.Next()
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SDoWhile{Body: body, Test: test}}

	case js_lexer.TWhile:
		p.lexer.Next()
		p.lexer.Expect(js_lexer.TOpenParen)
		test := p.parseExprWithAllowIn(js_ast.LLowest, true)
		p.lexer.Expect(js_lexer.TCloseParen)
		body := p.parseStmt()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SWhile{Test: test, Body: body}}

	case js_lexer.TFor:
		return p.parseForStmt(loc)

	case js_lexer.TSwitch:
		return p.parseSwitchStmt(loc)

	case js_lexer.TTry:
		return p.parseTryStmt(loc)

	case js_lexer.TThrow:
		p.lexer.Next()
		if p.lexer.HasNewlineBefore {
			p.log.AddError(&p.source, logger.Loc{Start: loc.Start + 5}, "Unexpected newline after \"throw\"")
			panic(js_lexer.LexerPanic{})
		}
		value := p.parseExprWithAllowIn(js_ast.LLowest, true)
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SThrow{Value: value}}

	case js_lexer.TReturn:
		p.lexer.Next()
		var value js_ast.Expr
		if p.lexer.Token != js_lexer.TSemicolon && !p.lexer.HasNewlineBefore &&
			p.lexer.Token != js_lexer.TCloseBrace && p.lexer.Token != js_lexer.TEndOfFile {
			value = p.parseExprWithAllowIn(js_ast.LLowest, true)
		}
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SReturn{ValueOrNil: value}}

	case js_lexer.TBreak:
		p.lexer.Next()
		label := p.parseLabelName()
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SBreak{Label: label}}

	case js_lexer.TContinue:
		p.lexer.Next()
		label := p.parseLabelName()
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SContinue{Label: label}}

	case js_lexer.TOpenBrace:
		p.lexer.Next()
		stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, false)
		p.lexer.Next()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SBlock{Stmts: stmts}}

	case js_lexer.TIdentifier:
		switch p.lexer.Identifier {
		case "let":
			// "let" is only a keyword when followed by a binding
			oldLexer := p.lexer
			p.lexer.Next()
			switch p.lexer.Token {
			case js_lexer.TIdentifier, js_lexer.TOpenBracket, js_lexer.TOpenBrace:
				decls := p.parseAndDeclareDecls(js_ast.LocalLet)
				p.lexer.ExpectOrInsertSemicolon()
				return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalLet, Decls: decls}}
			}
			p.lexer = oldLexer

		case "async":
			oldLexer := p.lexer
			p.lexer.Next()
			if p.lexer.Token == js_lexer.TFunction && !p.lexer.HasNewlineBefore {
				return p.parseFnStmt(loc, true, false)
			}
			p.lexer = oldLexer
		}
	}

	// Parse either an expression statement or a labeled statement
	expr := p.parseExprWithAllowIn(js_ast.LLowest, true)
	if id, ok := expr.Data.(*js_ast.EIdentifier); ok && p.lexer.Token == js_lexer.TColon {
		p.lexer.Next()
		stmt := p.parseStmt()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SLabel{Name: js_ast.LocName{Loc: expr.Loc, Name: id.Name}, Stmt: stmt}}
	}
	p.lexer.ExpectOrInsertSemicolon()
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: expr}}
}

func (p *parser) parseLabelName() *js_ast.LocName {
	if p.lexer.Token != js_lexer.TIdentifier || p.lexer.HasNewlineBefore {
		return nil
	}
	name := p.parseLocName()
	return &name
}

func (p *parser) parseAndDeclareDecls(kind js_ast.LocalKind) []js_ast.Decl {
	decls := []js_ast.Decl{}

	for {
		decl := js_ast.Decl{Binding: p.parseIdentifierBinding()}
		if p.lexer.Token == js_lexer.TEquals {
			p.lexer.Next()
			decl.ValueOrNil = p.parseExpr(js_ast.LComma)
		}
		decls = append(decls, decl)

		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}

	return decls
}

func (p *parser) requireInitializers(kind js_ast.LocalKind, decls []js_ast.Decl) {
	if kind == js_ast.LocalConst {
		for _, decl := range decls {
			if decl.ValueOrNil.Data == nil {
				p.log.AddError(&p.source, decl.Binding.Loc, "The constant must be initialized")
				panic(js_lexer.LexerPanic{})
			}
		}
	}
}

// This assumes the "async" keyword (if any) has already been consumed
func (p *parser) parseFnStmt(loc logger.Loc, isAsync bool, isExport bool) js_ast.Stmt {
	p.lexer.Expect(js_lexer.TFunction)
	isGenerator := false
	if p.lexer.Token == js_lexer.TAsterisk {
		isGenerator = true
		p.lexer.Next()
	}
	name := p.parseLocName()
	fn := p.parseFn(&name, isAsync, isGenerator)
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SFunction{Fn: fn, IsExport: isExport}}
}

func (p *parser) parseClassStmt(loc logger.Loc, isExport bool) js_ast.Stmt {
	p.lexer.Expect(js_lexer.TClass)
	name := p.parseLocName()
	class := p.parseClass(&name)
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SClass{Class: class, IsExport: isExport}}
}

// This assumes the "class" keyword and the name (if any) have been consumed
func (p *parser) parseClass(name *js_ast.LocName) js_ast.Class {
	if p.lexer.Token == js_lexer.TExtends {
		p.lexer.Unsupported("Class inheritance")
	}

	bodyLoc := p.lexer.Loc()
	p.lexer.Expect(js_lexer.TOpenBrace)
	oldAllowIn := p.allowIn
	p.allowIn = true

	properties := []js_ast.Property{}
	hasConstructor := false
	for p.lexer.Token != js_lexer.TCloseBrace {
		if p.lexer.Token == js_lexer.TSemicolon {
			p.lexer.Next()
			continue
		}
		memberLoc := p.lexer.Loc()

		// "static m() {}" but not the method "static() {}"
		isStatic := false
		if p.lexer.IsContextualKeyword("static") {
			oldLexer := p.lexer
			p.lexer.Next()
			if p.lexer.Token == js_lexer.TOpenParen {
				p.lexer = oldLexer
			} else {
				isStatic = true
			}
		}

		property := p.parseProperty()
		if !property.IsMethod {
			p.classError(memberLoc, "Class fields are not supported")
		}
		property.IsStatic = isStatic

		if key, ok := property.KeyOrNil.Data.(*js_ast.EString); ok && key.Value == "constructor" && !property.IsComputed && !isStatic {
			fn := property.ValueOrNil.Data.(*js_ast.EFunction).Fn
			switch {
			case hasConstructor:
				p.classError(memberLoc, "Classes cannot contain more than one constructor")
			case property.Kind != js_ast.PropertyNormal:
				p.classError(memberLoc, "Class constructor may not be an accessor")
			case fn.IsAsync:
				p.classError(memberLoc, "Class constructor may not be an async method")
			case fn.IsGenerator:
				p.classError(memberLoc, "Class constructor may not be a generator")
			}
			hasConstructor = true
		}
		properties = append(properties, property)
	}

	p.lexer.Expect(js_lexer.TCloseBrace)
	p.allowIn = oldAllowIn
	return js_ast.Class{Name: name, BodyLoc: bodyLoc, Properties: properties}
}

func (p *parser) classError(loc logger.Loc, text string) {
	p.log.AddError(&p.source, loc, text)
	panic(js_lexer.LexerPanic{})
}

func (p *parser) parseForStmt(loc logger.Loc) js_ast.Stmt {
	p.lexer.Next()

	// "for await (x of y) {}"
	if p.lexer.IsContextualKeyword("await") {
		p.lexer.Unsupported("\"for await\" loop")
	}

	p.lexer.Expect(js_lexer.TOpenParen)

	// "in" expressions aren't allowed in the initializer
	var initOrNil js_ast.Stmt
	var decls []js_ast.Decl
	var localKind js_ast.LocalKind
	initLoc := p.lexer.Loc()
	isLocal := false

	switch p.lexer.Token {
	case js_lexer.TVar:
		isLocal, localKind = true, js_ast.LocalVar
	case js_lexer.TConst:
		isLocal, localKind = true, js_ast.LocalConst
	case js_lexer.TIdentifier:
		if p.lexer.Identifier == "let" {
			oldLexer := p.lexer
			p.lexer.Next()
			isLocal = p.lexer.Token == js_lexer.TIdentifier
			p.lexer = oldLexer
			localKind = js_ast.LocalLet
		}
	}

	oldAllowIn := p.allowIn
	p.allowIn = false
	if isLocal {
		p.lexer.Next()
		decls = p.parseAndDeclareDecls(localKind)
		initOrNil = js_ast.Stmt{Loc: initLoc, Data: &js_ast.SLocal{Kind: localKind, Decls: decls}}
	} else if p.lexer.Token != js_lexer.TSemicolon {
		initOrNil = js_ast.Stmt{Loc: initLoc, Data: &js_ast.SExpr{Value: p.parseExpr(js_ast.LLowest)}}
	}
	p.allowIn = oldAllowIn

	// "for (a in b) {}" and "for (a of b) {}"
	isForIn := p.lexer.Token == js_lexer.TIn
	if isForIn || p.lexer.IsContextualKeyword("of") {
		if initOrNil.Data == nil || (isLocal && (len(decls) != 1 || decls[0].ValueOrNil.Data != nil)) {
			p.log.AddRangeError(&p.source, p.lexer.Range(), "Invalid left-hand side in for-in loop")
			panic(js_lexer.LexerPanic{})
		}
		if expr, ok := initOrNil.Data.(*js_ast.SExpr); ok {
			p.checkAssignTarget(expr.Value)
		}
		p.lexer.Next()
		var value js_ast.Expr
		if isForIn {
			value = p.parseExprWithAllowIn(js_ast.LLowest, true)
		} else {
			value = p.parseExprWithAllowIn(js_ast.LComma, true)
		}
		p.lexer.Expect(js_lexer.TCloseParen)
		body := p.parseStmt()
		if isForIn {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SForIn{Init: initOrNil, Value: value, Body: body}}
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SForOf{Init: initOrNil, Value: value, Body: body}}
	}

	if isLocal {
		p.requireInitializers(localKind, decls)
	}
	p.lexer.Expect(js_lexer.TSemicolon)

	var testOrNil js_ast.Expr
	if p.lexer.Token != js_lexer.TSemicolon {
		testOrNil = p.parseExprWithAllowIn(js_ast.LLowest, true)
	}
	p.lexer.Expect(js_lexer.TSemicolon)

	var updateOrNil js_ast.Expr
	if p.lexer.Token != js_lexer.TCloseParen {
		updateOrNil = p.parseExprWithAllowIn(js_ast.LLowest, true)
	}
	p.lexer.Expect(js_lexer.TCloseParen)

	body := p.parseStmt()
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SFor{
		InitOrNil:   initOrNil,
		TestOrNil:   testOrNil,
		UpdateOrNil: updateOrNil,
		Body:        body,
	}}
}

func (p *parser) parseSwitchStmt(loc logger.Loc) js_ast.Stmt {
	p.lexer.Next()
	p.lexer.Expect(js_lexer.TOpenParen)
	test := p.parseExprWithAllowIn(js_ast.LLowest, true)
	p.lexer.Expect(js_lexer.TCloseParen)
	p.lexer.Expect(js_lexer.TOpenBrace)

	cases := []js_ast.Case{}
	foundDefault := false

	for p.lexer.Token != js_lexer.TCloseBrace {
		var value js_ast.Expr

		if p.lexer.Token == js_lexer.TDefault {
			if foundDefault {
				p.log.AddRangeError(&p.source, p.lexer.Range(), "Multiple default clauses are not allowed")
				panic(js_lexer.LexerPanic{})
			}
			foundDefault = true
			p.lexer.Next()
			p.lexer.Expect(js_lexer.TColon)
		} else {
			p.lexer.Expect(js_lexer.TCase)
			value = p.parseExprWithAllowIn(js_ast.LLowest, true)
			p.lexer.Expect(js_lexer.TColon)
		}

		body := []js_ast.Stmt{}
	caseBody:
		for {
			switch p.lexer.Token {
			case js_lexer.TCloseBrace, js_lexer.TCase, js_lexer.TDefault:
				break caseBody
			default:
				body = append(body, p.parseStmt())
			}
		}

		cases = append(cases, js_ast.Case{ValueOrNil: value, Body: body})
	}

	p.lexer.Expect(js_lexer.TCloseBrace)
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SSwitch{Test: test, Cases: cases}}
}

func (p *parser) parseTryStmt(loc logger.Loc) js_ast.Stmt {
	p.lexer.Next()
	p.lexer.Expect(js_lexer.TOpenBrace)
	body := p.parseStmtsUpTo(js_lexer.TCloseBrace, false)
	p.lexer.Next()

	var catch *js_ast.Catch
	var finally *js_ast.Finally

	if p.lexer.Token == js_lexer.TCatch {
		catchLoc := p.lexer.Loc()
		p.lexer.Next()

		// The catch binding is optional
		var bindingOrNil js_ast.Binding
		if p.lexer.Token == js_lexer.TOpenParen {
			p.lexer.Next()
			bindingOrNil = p.parseIdentifierBinding()
			p.lexer.Expect(js_lexer.TCloseParen)
		}

		p.lexer.Expect(js_lexer.TOpenBrace)
		stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, false)
		p.lexer.Next()
		catch = &js_ast.Catch{Loc: catchLoc, BindingOrNil: bindingOrNil, Block: js_ast.SBlock{Stmts: stmts}}
	}

	if p.lexer.Token == js_lexer.TFinally || catch == nil {
		finallyLoc := p.lexer.Loc()
		p.lexer.Expect(js_lexer.TFinally)
		p.lexer.Expect(js_lexer.TOpenBrace)
		stmts := p.parseStmtsUpTo(js_lexer.TCloseBrace, false)
		p.lexer.Next()
		finally = &js_ast.Finally{Loc: finallyLoc, Block: js_ast.SBlock{Stmts: stmts}}
	}

	return js_ast.Stmt{Loc: loc, Data: &js_ast.STry{
		Block:   js_ast.SBlock{Stmts: body},
		Catch:   catch,
		Finally: finally,
	}}
}

////////////////////////////////////////////////////////////////////////////////
// Module syntax

func (p *parser) checkTopLevel(loc logger.Loc, keyword string) {
	if !p.fnOrArrowData.isTopLevel {
		p.log.AddError(&p.source, loc, fmt.Sprintf("Unexpected %q", keyword))
		panic(js_lexer.LexerPanic{})
	}
	p.hasESMSyntax = true
}

func (p *parser) parsePath() (logger.Range, string) {
	r := p.lexer.Range()
	path := p.lexer.StringLiteral
	if p.lexer.Token != js_lexer.TStringLiteral {
		p.lexer.Expect(js_lexer.TStringLiteral)
	}
	p.lexer.Next()
	return r, path
}

func (p *parser) parseImportStmt(loc logger.Loc) js_ast.Stmt {
	p.checkTopLevel(loc, "import")
	p.lexer.Next()
	if p.lexer.Token == js_lexer.TOpenParen {
		p.lexer.Unsupported("Dynamic import")
	}
	stmt := &js_ast.SImport{}
	var flags ast.ImportRecordFlags

	switch p.lexer.Token {
	case js_lexer.TStringLiteral:
		// "import 'path'"
		flags |= ast.WasOriginallyBareImport

	case js_lexer.TAsterisk:
		// "import * as ns from 'path'"
		p.lexer.Next()
		p.lexer.ExpectContextualKeyword("as")
		name := p.parseLocName()
		stmt.NamespaceName = &name
		flags |= ast.ContainsImportStar
		p.lexer.ExpectContextualKeyword("from")

	case js_lexer.TOpenBrace:
		// "import {item1, item2} from 'path'"
		items, hasDefault := p.parseImportClause()
		stmt.Items = &items
		if hasDefault {
			flags |= ast.ContainsDefaultAlias
		}
		p.lexer.ExpectContextualKeyword("from")

	case js_lexer.TIdentifier:
		// "import defaultItem from 'path'"
		name := p.parseLocName()
		stmt.DefaultName = &name
		flags |= ast.ContainsDefaultAlias

		if p.lexer.Token == js_lexer.TComma {
			p.lexer.Next()
			switch p.lexer.Token {
			case js_lexer.TAsterisk:
				// "import defaultItem, * as ns from 'path'"
				p.lexer.Next()
				p.lexer.ExpectContextualKeyword("as")
				name := p.parseLocName()
				stmt.NamespaceName = &name
				flags |= ast.ContainsImportStar

			case js_lexer.TOpenBrace:
				// "import defaultItem, {item1, item2} from 'path'"
				items, _ := p.parseImportClause()
				stmt.Items = &items

			default:
				p.lexer.Unexpected()
			}
		}
		p.lexer.ExpectContextualKeyword("from")

	default:
		p.lexer.Unexpected()
	}

	r, path := p.parsePath()
	stmt.ImportRecordIndex = p.addImportRecord(ast.ImportStmt, r, path, flags)
	p.lexer.ExpectOrInsertSemicolon()
	return js_ast.Stmt{Loc: loc, Data: stmt}
}

func (p *parser) parseImportClause() ([]js_ast.ClauseItem, bool) {
	items := []js_ast.ClauseItem{}
	hasDefault := false
	p.lexer.Expect(js_lexer.TOpenBrace)

	for p.lexer.Token != js_lexer.TCloseBrace {
		aliasLoc := p.lexer.Loc()
		alias := p.parseClauseAlias()
		nameLoc := aliasLoc
		name := alias

		// "import { default as foo } from 'path'"
		if p.lexer.IsContextualKeyword("as") {
			p.lexer.Next()
			nameLoc = p.lexer.Loc()
			name = p.lexer.Identifier
			p.lexer.Expect(js_lexer.TIdentifier)
		} else if !js_ast.IsIdentifier(alias) || js_ast.Keywords[alias] {
			p.lexer.ExpectedString("\"as\"")
		}
		if alias == "default" {
			hasDefault = true
		}

		p.storeName(name)
		items = append(items, js_ast.ClauseItem{
			Alias:    alias,
			AliasLoc: aliasLoc,
			Name:     js_ast.LocName{Loc: nameLoc, Name: name},
		})

		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}

	p.lexer.Expect(js_lexer.TCloseBrace)
	return items, hasDefault
}

// Clause aliases may be keywords or string literals
func (p *parser) parseClauseAlias() string {
	var alias string
	if p.lexer.Token == js_lexer.TStringLiteral {
		alias = p.lexer.StringLiteral
	} else if p.lexer.IsIdentifierOrKeyword() {
		alias = p.lexer.Identifier
	} else {
		p.lexer.Expect(js_lexer.TIdentifier)
	}
	p.lexer.Next()
	return alias
}

func (p *parser) parseExportClause() ([]js_ast.ClauseItem, bool) {
	items := []js_ast.ClauseItem{}
	firstNonIdentifierLoc := logger.Loc{}
	hasNonIdentifier := false
	p.lexer.Expect(js_lexer.TOpenBrace)

	for p.lexer.Token != js_lexer.TCloseBrace {
		nameLoc := p.lexer.Loc()
		isIdentifier := p.lexer.Token == js_lexer.TIdentifier
		name := p.parseClauseAlias()
		if !isIdentifier && !hasNonIdentifier {
			hasNonIdentifier = true
			firstNonIdentifierLoc = nameLoc
		}
		alias := name
		aliasLoc := nameLoc

		// "export { foo as bar }"
		if p.lexer.IsContextualKeyword("as") {
			p.lexer.Next()
			aliasLoc = p.lexer.Loc()
			alias = p.parseClauseAlias()
		}

		items = append(items, js_ast.ClauseItem{
			Alias:    alias,
			AliasLoc: aliasLoc,
			Name:     js_ast.LocName{Loc: nameLoc, Name: name},
		})

		if p.lexer.Token != js_lexer.TComma {
			break
		}
		p.lexer.Next()
	}

	p.lexer.Expect(js_lexer.TCloseBrace)

	// "export { default } from 'path'" is valid but "export { default }" is not
	if hasNonIdentifier && !p.lexer.IsContextualKeyword("from") {
		p.log.AddError(&p.source, firstNonIdentifierLoc, "Expected identifier in export clause")
		panic(js_lexer.LexerPanic{})
	}
	return items, hasNonIdentifier
}

func (p *parser) parseExportStmt(loc logger.Loc) js_ast.Stmt {
	p.checkTopLevel(loc, "export")
	p.lexer.Next()

	switch p.lexer.Token {
	case js_lexer.TVar, js_lexer.TConst:
		stmt := p.parseStmt()
		stmt.Loc = loc
		stmt.Data.(*js_ast.SLocal).IsExport = true
		return stmt

	case js_lexer.TFunction:
		return p.parseFnStmt(loc, false, true)

	case js_lexer.TIdentifier:
		switch p.lexer.Identifier {
		case "let":
			stmt := p.parseStmt()
			local, ok := stmt.Data.(*js_ast.SLocal)
			if !ok {
				p.lexer.Unexpected()
			}
			local.IsExport = true
			stmt.Loc = loc
			return stmt

		case "async":
			p.lexer.Next()
			if p.lexer.Token != js_lexer.TFunction || p.lexer.HasNewlineBefore {
				p.lexer.Expected(js_lexer.TFunction)
			}
			return p.parseFnStmt(loc, true, true)
		}
		p.lexer.Unexpected()

	case js_lexer.TDefault:
		return p.parseExportDefault(loc)

	case js_lexer.TAsterisk:
		// "export * from 'path'" or "export * as ns from 'path'"
		p.lexer.Next()
		var alias *js_ast.ClauseItem
		if p.lexer.IsContextualKeyword("as") {
			p.lexer.Next()
			aliasLoc := p.lexer.Loc()
			name := p.parseClauseAlias()
			alias = &js_ast.ClauseItem{Alias: name, AliasLoc: aliasLoc}
		}
		p.lexer.ExpectContextualKeyword("from")
		r, path := p.parsePath()
		flags := ast.ContainsImportStar
		if alias == nil {
			flags |= ast.IsExportStar
		}
		index := p.addImportRecord(ast.ImportStmt, r, path, flags)
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportStar{Alias: alias, ImportRecordIndex: index}}

	case js_lexer.TOpenBrace:
		items, _ := p.parseExportClause()
		if p.lexer.IsContextualKeyword("from") {
			// "export { a } from 'path'"
			p.lexer.Next()
			r, path := p.parsePath()
			var flags ast.ImportRecordFlags
			for _, item := range items {
				if item.Name.Name == "default" {
					flags |= ast.ContainsDefaultAlias
				}
			}
			index := p.addImportRecord(ast.ImportStmt, r, path, flags)
			p.lexer.ExpectOrInsertSemicolon()
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportFrom{Items: items, ImportRecordIndex: index}}
		}

		// "export { a }"
		for _, item := range items {
			p.storeName(item.Name.Name)
		}
		p.lexer.ExpectOrInsertSemicolon()
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportClause{Items: items}}

	case js_lexer.TClass:
		return p.parseClassStmt(loc, true)
	}

	p.lexer.Unexpected()
	return js_ast.Stmt{}
}

func (p *parser) parseExportDefault(loc logger.Loc) js_ast.Stmt {
	p.lexer.Next()
	valueLoc := p.lexer.Loc()

	// "export default async function() {}"
	if p.lexer.IsContextualKeyword("async") {
		oldLexer := p.lexer
		p.lexer.Next()
		if p.lexer.Token == js_lexer.TFunction && !p.lexer.HasNewlineBefore {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportDefault{Value: p.parseDefaultFn(valueLoc, true)}}
		}
		p.lexer = oldLexer
	}

	// "export default function() {}"
	if p.lexer.Token == js_lexer.TFunction {
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportDefault{Value: p.parseDefaultFn(valueLoc, false)}}
	}

	// "export default class {}"
	if p.lexer.Token == js_lexer.TClass {
		p.lexer.Next()
		var name *js_ast.LocName
		if p.lexer.Token == js_lexer.TIdentifier {
			n := p.parseLocName()
			name = &n
		}
		value := js_ast.Stmt{Loc: valueLoc, Data: &js_ast.SClass{Class: p.parseClass(name)}}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportDefault{Value: value}}
	}

	// "export default expr;"
	expr := p.parseExprWithAllowIn(js_ast.LComma, true)
	p.lexer.ExpectOrInsertSemicolon()
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportDefault{Value: js_ast.Stmt{Loc: valueLoc, Data: &js_ast.SExpr{Value: expr}}}}
}

// The function name is optional for default exports
func (p *parser) parseDefaultFn(loc logger.Loc, isAsync bool) js_ast.Stmt {
	p.lexer.Expect(js_lexer.TFunction)
	isGenerator := false
	if p.lexer.Token == js_lexer.TAsterisk {
		isGenerator = true
		p.lexer.Next()
	}
	var name *js_ast.LocName
	if p.lexer.Token == js_lexer.TIdentifier {
		n := p.parseLocName()
		name = &n
	}
	fn := p.parseFn(name, isAsync, isGenerator)
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SFunction{Fn: fn}}
}

func Parse(log logger.Log, source logger.Source) (result js_ast.AST, ok bool) {
	ok = true
	defer func() {
		r := recover()
		if _, isLexerPanic := r.(js_lexer.LexerPanic); isLexerPanic {
			ok = false
		} else if r != nil {
			panic(r)
		}
	}()

	p := &parser{
		log:           log,
		source:        source,
		usedNames:     make(map[string]bool),
		allowIn:       true,
		fnOrArrowData: fnOrArrowDataParse{isTopLevel: true},
	}
	p.lexer = js_lexer.NewLexer(log, source)
	stmts := p.parseStmtsUpTo(js_lexer.TEndOfFile, true)

	result = js_ast.AST{
		Stmts:          stmts,
		ImportRecords:  p.importRecords,
		UsedNames:      p.usedNames,
		HasESMSyntax:   p.hasESMSyntax,
		UsesExportsRef: p.usesExportsRef,
		UsesModuleRef:  p.usesModuleRef,
	}
	return
}
