package js_ast

import (
	"github.com/esdown/esdown/internal/ast"
	"github.com/esdown/esdown/internal/logger"
)

// Every module (i.e. file) is parsed into a separate AST data structure.
//
// Identifiers in the tree are referenced by name. The transforms in this
// repository only need to tell whether a name is free in some subtree and to
// generate names that do not collide with any name in the file, so there is
// no symbol table.
//
// Parse trees are treated as immutable. Any pass that operates on an AST after
// it has been parsed creates a copy of the mutated parts of the tree instead
// of mutating the original tree.

type L int

// https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Operators/Operator_Precedence
const (
	LLowest L = iota
	LComma
	LSpread
	LYield
	LAssign
	LConditional
	LNullishCoalescing
	LLogicalOr
	LLogicalAnd
	LBitwiseOr
	LBitwiseXor
	LBitwiseAnd
	LEquals
	LCompare
	LShift
	LAdd
	LMultiply
	LExponentiation
	LPrefix
	LPostfix
	LNew
	LCall
	LMember
)

type OpCode int

func (op OpCode) IsPrefix() bool {
	return op < UnOpPostDec
}

func (op OpCode) IsUpdate() bool {
	return op >= UnOpPreDec && op <= UnOpPostInc
}

func (op OpCode) IsLeftAssociative() bool {
	return op >= BinOpAdd && op < BinOpComma && op != BinOpPow
}

func (op OpCode) IsRightAssociative() bool {
	return op >= BinOpAssign || op == BinOpPow
}

func (op OpCode) IsAssign() bool {
	return op >= BinOpAssign
}

func (op OpCode) IsLogical() bool {
	return op == BinOpLogicalOr || op == BinOpLogicalAnd || op == BinOpNullishCoalescing
}

// Maps "a += b" to "+" and so on. Only valid for compound assignments.
func (op OpCode) CompoundToBinary() OpCode {
	switch op {
	case BinOpAddAssign:
		return BinOpAdd
	case BinOpSubAssign:
		return BinOpSub
	case BinOpMulAssign:
		return BinOpMul
	case BinOpDivAssign:
		return BinOpDiv
	case BinOpRemAssign:
		return BinOpRem
	case BinOpPowAssign:
		return BinOpPow
	case BinOpShlAssign:
		return BinOpShl
	case BinOpShrAssign:
		return BinOpShr
	case BinOpUShrAssign:
		return BinOpUShr
	case BinOpBitwiseOrAssign:
		return BinOpBitwiseOr
	case BinOpBitwiseAndAssign:
		return BinOpBitwiseAnd
	case BinOpBitwiseXorAssign:
		return BinOpBitwiseXor
	}
	panic("Internal error")
}

// If you add a new token, remember to add it to "OpTable" too
const (
	// Prefix
	UnOpPos OpCode = iota
	UnOpNeg
	UnOpCpl
	UnOpNot
	UnOpVoid
	UnOpTypeof
	UnOpDelete

	// Prefix update
	UnOpPreDec
	UnOpPreInc

	// Postfix update
	UnOpPostDec
	UnOpPostInc

	// Left-associative
	BinOpAdd
	BinOpSub
	BinOpMul
	BinOpDiv
	BinOpRem
	BinOpPow
	BinOpLt
	BinOpLe
	BinOpGt
	BinOpGe
	BinOpIn
	BinOpInstanceof
	BinOpShl
	BinOpShr
	BinOpUShr
	BinOpLooseEq
	BinOpLooseNe
	BinOpStrictEq
	BinOpStrictNe
	BinOpNullishCoalescing
	BinOpLogicalOr
	BinOpLogicalAnd
	BinOpBitwiseOr
	BinOpBitwiseAnd
	BinOpBitwiseXor

	// Non-associative
	BinOpComma

	// Right-associative
	BinOpAssign
	BinOpAddAssign
	BinOpSubAssign
	BinOpMulAssign
	BinOpDivAssign
	BinOpRemAssign
	BinOpPowAssign
	BinOpShlAssign
	BinOpShrAssign
	BinOpUShrAssign
	BinOpBitwiseOrAssign
	BinOpBitwiseAndAssign
	BinOpBitwiseXorAssign
)

type opTableEntry struct {
	Text      string
	Level     L
	IsKeyword bool
}

var OpTable = []opTableEntry{
	// Prefix
	{"+", LPrefix, false},
	{"-", LPrefix, false},
	{"~", LPrefix, false},
	{"!", LPrefix, false},
	{"void", LPrefix, true},
	{"typeof", LPrefix, true},
	{"delete", LPrefix, true},

	// Prefix update
	{"--", LPrefix, false},
	{"++", LPrefix, false},

	// Postfix update
	{"--", LPostfix, false},
	{"++", LPostfix, false},

	// Left-associative
	{"+", LAdd, false},
	{"-", LAdd, false},
	{"*", LMultiply, false},
	{"/", LMultiply, false},
	{"%", LMultiply, false},
	{"**", LExponentiation, false}, // Right-associative
	{"<", LCompare, false},
	{"<=", LCompare, false},
	{">", LCompare, false},
	{">=", LCompare, false},
	{"in", LCompare, true},
	{"instanceof", LCompare, true},
	{"<<", LShift, false},
	{">>", LShift, false},
	{">>>", LShift, false},
	{"==", LEquals, false},
	{"!=", LEquals, false},
	{"===", LEquals, false},
	{"!==", LEquals, false},
	{"??", LNullishCoalescing, false},
	{"||", LLogicalOr, false},
	{"&&", LLogicalAnd, false},
	{"|", LBitwiseOr, false},
	{"&", LBitwiseAnd, false},
	{"^", LBitwiseXor, false},

	// Non-associative
	{",", LComma, false},

	// Right-associative
	{"=", LAssign, false},
	{"+=", LAssign, false},
	{"-=", LAssign, false},
	{"*=", LAssign, false},
	{"/=", LAssign, false},
	{"%=", LAssign, false},
	{"**=", LAssign, false},
	{"<<=", LAssign, false},
	{">>=", LAssign, false},
	{">>>=", LAssign, false},
	{"|=", LAssign, false},
	{"&=", LAssign, false},
	{"^=", LAssign, false},
}

type LocName struct {
	Loc  logger.Loc
	Name string
}

type PropertyKind int

const (
	PropertyNormal PropertyKind = iota
	PropertyGet
	PropertySet
	PropertySpread
)

type Property struct {
	// This is nil for spread properties
	KeyOrNil Expr

	// For spread properties this is the spread argument
	ValueOrNil Expr

	Kind         PropertyKind
	IsComputed   bool
	IsMethod     bool
	IsStatic     bool
	WasShorthand bool
}

// Class bodies only contain methods and accessors
type Class struct {
	Name       *LocName
	BodyLoc    logger.Loc
	Properties []Property
}

type Arg struct {
	Binding      Binding
	DefaultOrNil Expr
}

type Fn struct {
	Name         *LocName
	OpenParenLoc logger.Loc
	Args         []Arg
	Body         FnBody

	IsAsync     bool
	IsGenerator bool
	HasRestArg  bool
}

type FnBody struct {
	Loc   logger.Loc
	Stmts []Stmt
}

type Binding struct {
	Loc  logger.Loc
	Data B
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type B interface{ isBinding() }

func (*BIdentifier) isBinding() {}

type BIdentifier struct{ Name string }

type Expr struct {
	Loc  logger.Loc
	Data E
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type E interface{ isExpr() }

type EArray struct {
	Items        []Expr
	IsSingleLine bool
}

type EUnary struct {
	Op    OpCode
	Value Expr
}

type EBinary struct {
	Left  Expr
	Right Expr
	Op    OpCode
}

type EBoolean struct{ Value bool }

type ENull struct{}

type EUndefined struct{}

type EThis struct{}

type ENew struct {
	Target Expr
	Args   []Expr
}

type ECall struct {
	Target Expr
	Args   []Expr
}

type EDot struct {
	Target  Expr
	Name    string
	NameLoc logger.Loc
}

type EIndex struct {
	Target Expr
	Index  Expr
}

type EArrow struct {
	Args []Arg
	Body FnBody

	IsAsync    bool
	HasRestArg bool
	PreferExpr bool // Use shorthand if true and "Body" is a single return statement
}

type EFunction struct{ Fn Fn }

type EClass struct{ Class Class }

type EIdentifier struct{ Name string }

// A use of an imported binding after the module has been converted to
// CommonJS. It is read from the required module each time so that later
// assignments in that module are observed, and calls through it leave "this"
// unset: "(0, _m.name)()".
type EImportIdentifier struct {
	Namespace string
	Alias     string
}

// This is used to represent an array hole: "[1, , 3]"
type EMissing struct{}

type ENumber struct{ Value float64 }

type EString struct{ Value string }

type EObject struct {
	Properties   []Property
	IsSingleLine bool
}

type ESpread struct{ Value Expr }

type EAwait struct {
	Value Expr
}

type EYield struct {
	ValueOrNil Expr
	IsStar     bool
}

type EIf struct {
	Test Expr
	Yes  Expr
	No   Expr
}

func (*EArray) isExpr()            {}
func (*EUnary) isExpr()            {}
func (*EBinary) isExpr()           {}
func (*EBoolean) isExpr()          {}
func (*ENull) isExpr()             {}
func (*EUndefined) isExpr()        {}
func (*EThis) isExpr()             {}
func (*ENew) isExpr()              {}
func (*ECall) isExpr()             {}
func (*EDot) isExpr()              {}
func (*EIndex) isExpr()            {}
func (*EArrow) isExpr()            {}
func (*EFunction) isExpr()         {}
func (*EClass) isExpr()            {}
func (*EIdentifier) isExpr()       {}
func (*EImportIdentifier) isExpr() {}
func (*EMissing) isExpr()          {}
func (*ENumber) isExpr()           {}
func (*EString) isExpr()           {}
func (*EObject) isExpr()           {}
func (*ESpread) isExpr()           {}
func (*EAwait) isExpr()            {}
func (*EYield) isExpr()            {}
func (*EIf) isExpr()               {}

type Stmt struct {
	Loc  logger.Loc
	Data S
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type S interface{ isStmt() }

type SBlock struct {
	Stmts []Stmt
}

type SEmpty struct{}

type SDirective struct {
	Value string
}

type SExportClause struct {
	Items []ClauseItem
}

type SExportFrom struct {
	Items []ClauseItem

	// This is the index into "AST.ImportRecords"
	ImportRecordIndex uint32
}

type SExportDefault struct {
	Value Stmt // May be a SExpr, SFunction or SClass
}

type SExportStar struct {
	// Set for "export * as ns from 'path'"
	Alias *ClauseItem

	ImportRecordIndex uint32
}

type SExpr struct {
	Value Expr
}

type LocalKind uint8

const (
	LocalVar LocalKind = iota
	LocalLet
	LocalConst
)

type SLocal struct {
	Decls    []Decl
	Kind     LocalKind
	IsExport bool
}

type SFunction struct {
	Fn       Fn
	IsExport bool
}

type SClass struct {
	Class    Class
	IsExport bool
}

type SLabel struct {
	Name LocName
	Stmt Stmt
}

type SIf struct {
	Test    Expr
	Yes     Stmt
	NoOrNil Stmt
}

type SFor struct {
	InitOrNil   Stmt // May be a SConst, SLet, SVar, or SExpr
	TestOrNil   Expr
	UpdateOrNil Expr
	Body        Stmt
}

type SForIn struct {
	Init  Stmt // May be a SConst, SLet, SVar, or SExpr
	Value Expr
	Body  Stmt
}

type SForOf struct {
	Init  Stmt // May be a SConst, SLet, SVar, or SExpr
	Value Expr
	Body  Stmt
}

type SDoWhile struct {
	Body Stmt
	Test Expr
}

type SWhile struct {
	Test Expr
	Body Stmt
}

type Catch struct {
	BindingOrNil Binding
	Block        SBlock
	Loc          logger.Loc
}

type Finally struct {
	Block SBlock
	Loc   logger.Loc
}

type STry struct {
	Block   SBlock
	Catch   *Catch
	Finally *Finally
}

type Case struct {
	ValueOrNil Expr // If this is nil, this is "default" instead of "case"
	Body       []Stmt
}

type SSwitch struct {
	Test  Expr
	Cases []Case
}

// This object represents all of these types of import statements:
//
//	import 'path'
//	import {item1, item2} from 'path'
//	import * as ns from 'path'
//	import defaultItem, {item1, item2} from 'path'
//	import defaultItem, * as ns from 'path'
type SImport struct {
	DefaultName   *LocName
	Items         *[]ClauseItem
	NamespaceName *LocName

	ImportRecordIndex uint32
}

type SReturn struct {
	ValueOrNil Expr
}

type SThrow struct {
	Value Expr
}

type SBreak struct {
	Label *LocName
}

type SContinue struct {
	Label *LocName
}

func (*SBlock) isStmt()         {}
func (*SEmpty) isStmt()         {}
func (*SDirective) isStmt()     {}
func (*SExportClause) isStmt()  {}
func (*SExportFrom) isStmt()    {}
func (*SExportDefault) isStmt() {}
func (*SExportStar) isStmt()    {}
func (*SExpr) isStmt()          {}
func (*SLocal) isStmt()         {}
func (*SFunction) isStmt()      {}
func (*SClass) isStmt()         {}
func (*SLabel) isStmt()         {}
func (*SIf) isStmt()            {}
func (*SFor) isStmt()           {}
func (*SForIn) isStmt()         {}
func (*SForOf) isStmt()         {}
func (*SDoWhile) isStmt()       {}
func (*SWhile) isStmt()         {}
func (*STry) isStmt()           {}
func (*SSwitch) isStmt()        {}
func (*SImport) isStmt()        {}
func (*SReturn) isStmt()        {}
func (*SThrow) isStmt()         {}
func (*SBreak) isStmt()         {}
func (*SContinue) isStmt()      {}

type ClauseItem struct {
	Alias    string
	AliasLoc logger.Loc
	Name     LocName
}

type Decl struct {
	Binding    Binding
	ValueOrNil Expr
}

type AST struct {
	Stmts         []Stmt
	ImportRecords []ast.ImportRecord

	// Every identifier name that appears anywhere in the file. Passes that
	// generate new top-level or function-level names avoid these.
	UsedNames map[string]bool

	// These are used to detect the module format of the file
	HasESMSyntax   bool
	UsesExportsRef bool
	UsesModuleRef  bool
}
