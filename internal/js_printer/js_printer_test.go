package js_printer

import (
	"testing"

	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/js_parser"
	"github.com/esdown/esdown/internal/logger"
	"github.com/esdown/esdown/internal/test"
)

func expectPrinted(t *testing.T, contents string, expected string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		log := logger.NewDeferLog(logger.DeferLogNoVerboseOrDebug, nil)
		tree, ok := js_parser.Parse(log, test.SourceForTest(contents))
		msgs := log.Done()
		text := ""
		for _, msg := range msgs {
			text += msg.String(logger.OutputOptions{}, logger.TerminalInfo{})
		}
		test.AssertEqualWithDiff(t, text, "")
		if !ok {
			t.Fatal("Parse error")
		}
		js := Print(tree, Options{}).JS
		test.AssertEqualWithDiff(t, string(js), expected)
	})
}

func TestNumber(t *testing.T) {
	expectPrinted(t, "x = 1e-100", "x = 1e-100;\n")
	expectPrinted(t, "x = 1e-1", "x = 0.1;\n")
	expectPrinted(t, "x = 1e0", "x = 1;\n")
	expectPrinted(t, "x = 1e2", "x = 100;\n")
	expectPrinted(t, "x = 1e21", "x = 1e21;\n")
	expectPrinted(t, "x = 0x10", "x = 16;\n")
	expectPrinted(t, "x = 1_000", "x = 1000;\n")
	expectPrinted(t, "x = 1e400", "x = Infinity;\n")
	expectPrinted(t, "x = -1e400", "x = -Infinity;\n")
	expectPrinted(t, "x = (-1).toString()", "x = (-1).toString();\n")
	expectPrinted(t, "x = 1..toString()", "x = 1 .toString();\n")
}

func TestArray(t *testing.T) {
	expectPrinted(t, "[]", "[];\n")
	expectPrinted(t, "[,]", "[,];\n")
	expectPrinted(t, "[,,]", "[, ,];\n")
	expectPrinted(t, "[1, , 3]", "[1, , 3];\n")
	expectPrinted(t, "[\n1,\n2\n]", "[\n  1,\n  2\n];\n")
}

func TestSplat(t *testing.T) {
	expectPrinted(t, "[...(a, b)]", "[...(a, b)];\n")
	expectPrinted(t, "x(...(a, b))", "x(...(a, b));\n")
	expectPrinted(t, "({...(a, b)})", "({ ...(a, b) });\n")
}

func TestNew(t *testing.T) {
	expectPrinted(t, "new x", "new x();\n")
	expectPrinted(t, "new x()", "new x();\n")
	expectPrinted(t, "new (x)", "new x();\n")
	expectPrinted(t, "new (x())", "new (x())();\n")
	expectPrinted(t, "new (new x())", "new new x()();\n")
	expectPrinted(t, "new (x + x)", "new (x + x)();\n")
	expectPrinted(t, "(new x)()", "new x()();\n")

	expectPrinted(t, "new foo().bar", "new foo().bar;\n")
	expectPrinted(t, "new (foo().bar)", "new (foo()).bar();\n")
	expectPrinted(t, "new (foo()).bar", "new (foo()).bar();\n")
	expectPrinted(t, "new foo()[bar]", "new foo()[bar];\n")
	expectPrinted(t, "new (foo()[bar])", "new (foo())[bar]();\n")
}

func TestCall(t *testing.T) {
	expectPrinted(t, "x()()()", "x()()();\n")
	expectPrinted(t, "x().y()[z]()", "x().y()[z]();\n")
	expectPrinted(t, "(--x)();", "(--x)();\n")
	expectPrinted(t, "(x--)();", "(x--)();\n")
	expectPrinted(t, "(function() {})()", "(function() {\n})();\n")
	expectPrinted(t, "x = function() {}()", "x = function() {\n}();\n")
}

func TestMember(t *testing.T) {
	expectPrinted(t, "x.y[z]", "x.y[z];\n")
	expectPrinted(t, "((x+1).y+1)[z]", "((x + 1).y + 1)[z];\n")

	// Reserved words are printed using index syntax
	expectPrinted(t, "x.catch(y)", "x[\"catch\"](y);\n")
	expectPrinted(t, "x.finally", "x[\"finally\"];\n")
	expectPrinted(t, "x.delete = 1", "x[\"delete\"] = 1;\n")
}

func TestComma(t *testing.T) {
	expectPrinted(t, "1, 2, 3", "1, 2, 3;\n")
	expectPrinted(t, "(1, 2), 3", "1, 2, 3;\n")
	expectPrinted(t, "1, (2, 3)", "1, 2, 3;\n")
	expectPrinted(t, "a ? (b, c) : (d, e)", "a ? (b, c) : (d, e);\n")
	expectPrinted(t, "let x = (a, b)", "let x = (a, b);\n")
	expectPrinted(t, "(x = a), b", "x = a, b;\n")
	expectPrinted(t, "x = (a, b)", "x = (a, b);\n")
	expectPrinted(t, "x((1, 2))", "x((1, 2));\n")
}

func TestUnary(t *testing.T) {
	expectPrinted(t, "+(x--)", "+x--;\n")
	expectPrinted(t, "-(x++)", "-x++;\n")
	expectPrinted(t, "- -x", "- -x;\n")
	expectPrinted(t, "+ +x", "+ +x;\n")
	expectPrinted(t, "!(a && b)", "!(a && b);\n")
	expectPrinted(t, "typeof x", "typeof x;\n")
	expectPrinted(t, "void 0", "void 0;\n")
	expectPrinted(t, "x = undefined", "x = void 0;\n")
	expectPrinted(t, "delete x.y", "delete x.y;\n")
}

func TestBinary(t *testing.T) {
	expectPrinted(t, "a + b * c", "a + b * c;\n")
	expectPrinted(t, "(a + b) * c", "(a + b) * c;\n")
	expectPrinted(t, "a - (b - c)", "a - (b - c);\n")
	expectPrinted(t, "(a - b) - c", "a - b - c;\n")
	expectPrinted(t, "a ** b ** c", "a ** b ** c;\n")
	expectPrinted(t, "(a ** b) ** c", "(a ** b) ** c;\n")
	expectPrinted(t, "(-a) ** b", "(-a) ** b;\n")
	expectPrinted(t, "a = b = c", "a = b = c;\n")
	expectPrinted(t, "a || (b = c)", "a || (b = c);\n")
	expectPrinted(t, "a instanceof b", "a instanceof b;\n")
	expectPrinted(t, "a in b", "a in b;\n")
	expectPrinted(t, "a + +b", "a + +b;\n")
	expectPrinted(t, "a - -b", "a - -b;\n")
}

func TestNullish(t *testing.T) {
	// "??" can't directly contain "||" or "&&"
	expectPrinted(t, "(a && b) ?? c", "(a && b) ?? c;\n")
	expectPrinted(t, "(a || b) ?? c", "(a || b) ?? c;\n")
	expectPrinted(t, "a ?? (b && c)", "a ?? (b && c);\n")
	expectPrinted(t, "a ?? (b || c)", "a ?? (b || c);\n")
}

func TestString(t *testing.T) {
	expectPrinted(t, "let x = ''", "let x = \"\";\n")
	expectPrinted(t, "let x = '\\b'", "let x = \"\\b\";\n")
	expectPrinted(t, "let x = '\\f'", "let x = \"\\f\";\n")
	expectPrinted(t, "let x = '\\t'", "let x = \"\\t\";\n")
	expectPrinted(t, "let x = '\\v'", "let x = \"\\v\";\n")
	expectPrinted(t, "let x = '\\n'", "let x = \"\\n\";\n")
	expectPrinted(t, "let x = '\\r'", "let x = \"\\r\";\n")
	expectPrinted(t, "let x = '\\\\'", "let x = \"\\\\\";\n")
	expectPrinted(t, "let x = '\"'", "let x = \"\\\"\";\n")
	expectPrinted(t, "let x = \"'\"", "let x = \"'\";\n")
	expectPrinted(t, "let x = '\\0'", "let x = \"\\0\";\n")
	expectPrinted(t, "let x = '\\x001'", "let x = \"\\x001\";\n")
	expectPrinted(t, "let x = '\\x01'", "let x = \"\\x01\";\n")
	expectPrinted(t, "let x = '\\u2028'", "let x = \"\\u2028\";\n")
	expectPrinted(t, "let x = '\\u{1F600}'", "let x = \"\U0001F600\";\n")
}

func TestObject(t *testing.T) {
	expectPrinted(t, "x = {}", "x = {};\n")
	expectPrinted(t, "x = {a, b}", "x = { a, b };\n")
	expectPrinted(t, "x = {a: a}", "x = { a: a };\n")
	expectPrinted(t, "x = {'a-b': 1, 2: 3}", "x = { \"a-b\": 1, 2: 3 };\n")
	expectPrinted(t, "x = {[a]: b}", "x = { [a]: b };\n")
	expectPrinted(t, "x = {get a() {}, set a(v) {}}", "x = { get a() {\n}, set a(v) {\n} };\n")
	expectPrinted(t, "x = {async a() {}, *b() {}, async *c() {}}", "x = { async a() {\n}, *b() {\n}, async *c() {\n} };\n")
	expectPrinted(t, "x = {async: 1, get: 2}", "x = { async: 1, get: 2 };\n")
	expectPrinted(t, "x = {\na: 1\n}", "x = {\n  a: 1\n};\n")
	expectPrinted(t, "({}.x)", "({}).x;\n")
}

func TestFor(t *testing.T) {
	// Make sure "in" expressions are forbidden in the right places
	expectPrinted(t, "for ((a in b);;);", "for ((a in b); ; )\n  ;\n")
	expectPrinted(t, "for (a ? b : (c in d);;);", "for (a ? b : (c in d); ; )\n  ;\n")
	expectPrinted(t, "for (var x = (a in b);;);", "for (var x = (a in b); ; )\n  ;\n")
	expectPrinted(t, "for (x = (a in b);;);", "for (x = (a in b); ; )\n  ;\n")
	expectPrinted(t, "for (x(a in b);;);", "for (x(a in b); ; )\n  ;\n")
	expectPrinted(t, "for (x[a in b];;);", "for (x[a in b]; ; )\n  ;\n")

	expectPrinted(t, "for (var i = 0; i < 10; i++) {}", "for (var i = 0; i < 10; i++) {\n}\n")
	expectPrinted(t, "for (let a in b, c);", "for (let a in b, c)\n  ;\n")
	expectPrinted(t, "for (let a of (b, c));", "for (let a of (b, c))\n  ;\n")
	expectPrinted(t, "for (a.b in c) x()", "for (a.b in c)\n  x();\n")
}

func TestFunction(t *testing.T) {
	expectPrinted(t,
		"function foo(a = (b, c), ...d) {}",
		"function foo(a = (b, c), ...d) {\n}\n")
	expectPrinted(t,
		"function* foo() { yield; yield* x; yield y }",
		"function* foo() {\n  yield;\n  yield* x;\n  yield y;\n}\n")
	expectPrinted(t,
		"async function foo() { await x; return await (a, b) }",
		"async function foo() {\n  await x;\n  return await (a, b);\n}\n")
	expectPrinted(t,
		"x = function foo() {}",
		"x = function foo() {\n};\n")
}

func TestClass(t *testing.T) {
	expectPrinted(t, "class Foo {}", "class Foo {\n}\n")
	expectPrinted(t,
		"class Foo { constructor(a) { this.a = a } m() {} static s() {} get x() {} static async *g() {} }",
		"class Foo {\n  constructor(a) {\n    this.a = a;\n  }\n  m() {\n  }\n  static s() {\n  }\n  get x() {\n  }\n  static async *g() {\n  }\n}\n")
	expectPrinted(t, "x = class { [a]() {} }", "x = class {\n  [a]() {\n  }\n};\n")
	expectPrinted(t, "(class {}).name", "(class {\n}).name;\n")
	expectPrinted(t, "export class Foo {}", "export class Foo {\n}\n")
	expectPrinted(t, "export default class {}", "export default class {\n}\n")
	expectPrinted(t, "export default class Foo { m() {} }", "export default class Foo {\n  m() {\n  }\n}\n")
	expectPrinted(t, "export default (class {})", "export default (class {\n});\n")
}

func TestArrow(t *testing.T) {
	expectPrinted(t, "() => {}", "() => {\n};\n")
	expectPrinted(t, "x => (x, 0)", "(x) => (x, 0);\n")
	expectPrinted(t, "x => {y}", "(x) => {\n  y;\n};\n")
	expectPrinted(t, "x => ({})", "(x) => ({});\n")
	expectPrinted(t, "async x => x", "async (x) => x;\n")
	expectPrinted(t, "async (x, ...y) => {}", "async (x, ...y) => {\n};\n")
	expectPrinted(t, "(a = (b, c), ...d) => {}", "(a = (b, c), ...d) => {\n};\n")
	expectPrinted(t, "x = (a => b) || c", "x = ((a) => b) || c;\n")
}

func TestStatements(t *testing.T) {
	expectPrinted(t, "if (a) b; else c", "if (a)\n  b;\nelse\n  c;\n")
	expectPrinted(t, "if (a) {b} else if (c) {d} else {e}", "if (a) {\n  b;\n} else if (c) {\n  d;\n} else {\n  e;\n}\n")
	expectPrinted(t, "if (a) if (b) c; else d", "if (a)\n  if (b)\n    c;\n  else\n    d;\n")
	expectPrinted(t, "if (a) { if (b) c } else d", "if (a) {\n  if (b)\n    c;\n} else\n  d;\n")
	expectPrinted(t, "while (x) y()", "while (x)\n  y();\n")
	expectPrinted(t, "do x(); while (y)", "do\n  x();\nwhile (y);\n")
	expectPrinted(t, "do {} while (y)", "do {\n} while (y);\n")
	expectPrinted(t, "a: for (;;) { break a; continue a }", "a:\n  for (; ; ) {\n    break a;\n    continue a;\n  }\n")
	expectPrinted(t, "try { a } catch (e) { b } finally { c }", "try {\n  a;\n} catch (e) {\n  b;\n} finally {\n  c;\n}\n")
	expectPrinted(t, "try { a } catch { b }", "try {\n  a;\n} catch {\n  b;\n}\n")
	expectPrinted(t, "switch (x) { case 1: a; case 2: default: b }", "switch (x) {\n  case 1:\n    a;\n  case 2:\n  default:\n    b;\n}\n")
	expectPrinted(t, "switch (x) { case 1: { a } }", "switch (x) {\n  case 1: {\n    a;\n  }\n}\n")
	expectPrinted(t, "while (1) switch (x) { case 0: a }", "while (1) switch (x) {\n  case 0:\n    a;\n}\n")
	expectPrinted(t, "throw x", "throw x;\n")
	expectPrinted(t, "function f() { return\nx }", "function f() {\n  return;\n  x;\n}\n")
	expectPrinted(t, "'use strict'; x", "\"use strict\";\nx;\n")
	expectPrinted(t, ";", ";\n")
	expectPrinted(t, "{ a }", "{\n  a;\n}\n")
}

func TestImport(t *testing.T) {
	expectPrinted(t, "import 'path'", "import \"path\";\n")
	expectPrinted(t, "import {} from 'path'", "import {} from \"path\";\n")
	expectPrinted(t, "import x from 'path'", "import x from \"path\";\n")
	expectPrinted(t, "import * as ns from 'path'", "import * as ns from \"path\";\n")
	expectPrinted(t, "import x, * as ns from 'path'", "import x, * as ns from \"path\";\n")
	expectPrinted(t, "import x, {y as z, w} from 'path'", "import x, { y as z, w } from \"path\";\n")
	expectPrinted(t, "import {default as x, 'a-b' as y} from 'path'", "import { default as x, \"a-b\" as y } from \"path\";\n")
}

func TestExport(t *testing.T) {
	expectPrinted(t, "export var x = 1", "export var x = 1;\n")
	expectPrinted(t, "export let x", "export let x;\n")
	expectPrinted(t, "export const x = 1", "export const x = 1;\n")
	expectPrinted(t, "export function f() {}", "export function f() {\n}\n")
	expectPrinted(t, "export async function f() {}", "export async function f() {\n}\n")
	expectPrinted(t, "export {a, b as c}", "export { a, b as c };\n")
	expectPrinted(t, "export {a as default}", "export { a as default };\n")
	expectPrinted(t, "export {default} from 'path'", "export { default } from \"path\";\n")
	expectPrinted(t, "export {a as b} from 'path'", "export { a as b } from \"path\";\n")
	expectPrinted(t, "export * from 'path'", "export * from \"path\";\n")
	expectPrinted(t, "export * as ns from 'path'", "export * as ns from \"path\";\n")
}

func TestExportDefault(t *testing.T) {
	expectPrinted(t, "export default function() {}", "export default function() {\n}\n")
	expectPrinted(t, "export default function foo() {}", "export default function foo() {\n}\n")
	expectPrinted(t, "export default async function() {}", "export default async function() {\n}\n")
	expectPrinted(t, "export default async function foo() {}", "export default async function foo() {\n}\n")

	expectPrinted(t, "export default (function() {})", "export default (function() {\n});\n")
	expectPrinted(t, "export default (async function foo() {})", "export default (async function foo() {\n});\n")
	expectPrinted(t, "export default (function() {}.toString())", "export default (function() {\n}).toString();\n")
	expectPrinted(t, "export default 1 + 2", "export default 1 + 2;\n")
}

func TestPrintExpr(t *testing.T) {
	expr := js_ast.Call(js_ast.Dot(js_ast.Ident(logger.Loc{}, "_ctx"), "abrupt"), js_ast.Str(logger.Loc{}, "return"))
	test.AssertEqual(t, PrintExpr(expr), "_ctx.abrupt(\"return\")")
}
