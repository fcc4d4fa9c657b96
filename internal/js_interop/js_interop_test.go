package js_interop

import (
	"strings"
	"testing"

	"github.com/esdown/esdown/internal/config"
	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/js_parser"
	"github.com/esdown/esdown/internal/js_printer"
	"github.com/esdown/esdown/internal/logger"
	"github.com/esdown/esdown/internal/test"
)

var cjs = config.Options{OutputFormat: config.FormatCommonJS}

func parseForTest(t *testing.T, path string, contents string) (logger.Source, js_ast.AST) {
	t.Helper()
	log := logger.NewDeferLog(logger.DeferLogNoVerboseOrDebug, nil)
	source := logger.Source{PrettyPath: path, Contents: contents, IdentifierName: "stdin"}
	tree, ok := js_parser.Parse(log, source)
	if !ok {
		t.Fatal("Parse error")
	}
	return source, tree
}

func msgsToString(msgs []logger.Msg) string {
	text := ""
	for _, msg := range msgs {
		text += msg.String(logger.OutputOptions{}, logger.TerminalInfo{})
	}
	return text
}

type convertResult struct {
	js     string
	msgs   string
	result Result
	ok     bool
}

func convertForTest(t *testing.T, path string, contents string, resolver Resolver) convertResult {
	t.Helper()
	source, tree := parseForTest(t, path, contents)
	log := logger.NewDeferLog(logger.DeferLogNoVerboseOrDebug, nil)
	result, ok := Convert(log, source, tree, resolver, cjs)
	return convertResult{
		js:     string(js_printer.Print(result.AST, js_printer.Options{}).JS),
		msgs:   msgsToString(log.Done()),
		result: result,
		ok:     ok,
	}
}

func expectConverted(t *testing.T, contents string, expected string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		r := convertForTest(t, "<stdin>", contents, DynamicResolver{})
		test.AssertEqualWithDiff(t, r.msgs, "")
		test.AssertEqual(t, r.ok, true)
		test.AssertEqualWithDiff(t, r.js, expected)
	})
}

func expectConvertedContains(t *testing.T, contents string, expected ...string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		r := convertForTest(t, "<stdin>", contents, DynamicResolver{})
		test.AssertEqual(t, r.ok, true)
		for _, text := range expected {
			if !strings.Contains(r.js, text) {
				t.Fatalf("Expected output to contain %q:\n%s", text, r.js)
			}
		}
	})
}

// Resolves "./name" to "name.js" among the given files
func resolvePathForTest(files map[string]string) func(string, string) (string, bool) {
	return func(importer string, specifier string) (string, bool) {
		if !strings.HasPrefix(specifier, "./") {
			return "", false
		}
		path := strings.TrimPrefix(specifier, "./")
		if !strings.HasSuffix(path, ".js") {
			path += ".js"
		}
		_, ok := files[path]
		return path, ok
	}
}

func graphForTest(t *testing.T, files map[string]string) *GraphResolver {
	t.Helper()
	var records []*ModuleRecord
	for path, contents := range files {
		source, tree := parseForTest(t, path, contents)
		records = append(records, ScanModule(source, tree))
	}
	return NewGraphResolver(records, resolvePathForTest(files))
}

func TestConvertExports(t *testing.T) {
	expectConverted(t, "export const a = 1; export default a;", `"use strict";
Object.defineProperty(exports, "__esModule", { value: true });
Object.defineProperty(exports, "a", {
  enumerable: true,
  get: function() {
    return a;
  }
});
Object.defineProperty(exports, "default", {
  enumerable: true,
  get: function() {
    return _default;
  }
});
const a = 1;
var _default = a;
`)

	expectConverted(t, "'use strict'; let x; export { x as y };", `"use strict";
Object.defineProperty(exports, "__esModule", { value: true });
Object.defineProperty(exports, "y", {
  enumerable: true,
  get: function() {
    return x;
  }
});
let x;
`)

	expectConvertedContains(t, "export function foo() {}",
		"get: function() {\n    return foo;\n  }",
		"\nfunction foo() {\n}\n")
	expectConvertedContains(t, "export default function() {}",
		"return _default;",
		"\nfunction _default() {\n}\n")
	expectConvertedContains(t, "export default function named() {}",
		"Object.defineProperty(exports, \"default\"",
		"return named;",
		"\nfunction named() {\n}\n")
	expectConvertedContains(t, "export default 1; var _default;",
		"var _default2 = 1;",
		"return _default2;")
}

func TestConvertClassExports(t *testing.T) {
	expectConvertedContains(t, "export class Foo { m() { return Foo; } }",
		"get: function() {\n    return Foo;\n  }",
		"\nclass Foo {\n  m() {\n    return Foo;\n  }\n}\n")
	expectConvertedContains(t, "export default class {}",
		"return _default;",
		"\nclass _default {\n}\n")
	expectConvertedContains(t, "export default class Bar {} Bar.x = 1;",
		"return Bar;",
		"\nclass Bar {\n}\nBar.x = 1;\n")

	// Declared classes are not undeclared exports
	r := convertForTest(t, "<stdin>", "class Foo {} export { Foo as Bar };", DynamicResolver{})
	test.AssertEqualWithDiff(t, r.msgs, "")
	test.AssertEqual(t, r.ok, true)
	if !strings.Contains(r.js, "return Foo;") {
		t.Fatalf("Expected a getter for \"Foo\":\n%s", r.js)
	}
}

func TestConvertImports(t *testing.T) {
	expectConverted(t, "import { a } from './a'; a(); a.b();", `"use strict";
Object.defineProperty(exports, "__esModule", { value: true });
var _a = require("./a");
(0, _a.a)();
_a.a.b();
`)

	expectConvertedContains(t, "import 'side-effect';", "\nrequire(\"side-effect\");\n")
	expectConvertedContains(t, "import x from 'pkg'; x;",
		"var _helpers = require(\"@esdown/helpers\");",
		"var _pkg = _helpers.interopRequireDefault(require(\"pkg\"));",
		"\n_pkg[\"default\"];\n")
	expectConvertedContains(t, "import * as ns from 'pkg'; ns.a;",
		"var ns = _helpers.interopRequireWildcard(require(\"pkg\"));",
		"\nns.a;\n")
	expectConvertedContains(t, "import x, { y } from 'pkg'; x(y);",
		"var _pkg = _helpers.interopRequireWildcard(require(\"pkg\"));",
		"(0, _pkg[\"default\"])(_pkg.y);")

	// Later assignments in the imported module are observed through the getter
	expectConvertedContains(t, "import { a } from './a'; export { a };", "return _a.a;")

	// A parameter with the same name refers to the parameter
	expectConvertedContains(t, "import { a } from './a'; function f(a) { return a; }", "return a;")

	// The runtime modules are required directly
	expectConvertedContains(t, "import * as _helpers from '@esdown/helpers'; import regeneratorRuntime from 'regenerator-runtime';",
		"var _helpers = require(\"@esdown/helpers\");",
		"var regeneratorRuntime = require(\"regenerator-runtime\");")
}

func TestConvertImportUses(t *testing.T) {
	r := convertForTest(t, "<stdin>", "import { a } from './a'; a(); a.b(); f(a); export { a };", DynamicResolver{})
	test.AssertEqual(t, r.ok, true)

	// Every use gets its own node
	seen := make(map[*js_ast.EImportIdentifier]bool)
	w := js_ast.Walker{Expr: func(expr js_ast.Expr) bool {
		if e, ok := expr.Data.(*js_ast.EImportIdentifier); ok {
			if seen[e] {
				t.Fatalf("Node for %s.%s is shared", e.Namespace, e.Alias)
			}
			seen[e] = true
		}
		return true
	}}
	w.Stmts(r.result.AST.Stmts)
	test.AssertEqual(t, len(seen), 4)

	for _, text := range []string{"(0, _a.a)();\n", "_a.a.b();\n", "f(_a.a);\n", "return _a.a;\n"} {
		if !strings.Contains(r.js, text) {
			t.Fatalf("Expected output to contain %q:\n%s", text, r.js)
		}
	}
}

func TestConvertReexports(t *testing.T) {
	expectConvertedContains(t, "export { a, b as c } from './m';",
		"var _m = require(\"./m\");",
		"Object.defineProperty(exports, \"a\"",
		"return _m.a;",
		"Object.defineProperty(exports, \"c\"",
		"return _m.b;")
	expectConvertedContains(t, "export * as ns from './m';",
		"var _m = _helpers.interopRequireWildcard(require(\"./m\"));",
		"Object.defineProperty(exports, \"ns\"",
		"return _m;")

	// Without a module graph the names are copied at run time
	expectConvertedContains(t, "export * from './m';",
		"var _m = require(\"./m\");\n_helpers.exportStar(_m, exports);")
}

func TestConvertStarMerging(t *testing.T) {
	files := map[string]string{
		"func.js": "export function func() {}",
		"cls.js":  "export const Foo = 1;",
		"bar2.js": "import { Foo } from './cls'; export * from './func'; export * from './cls'; export { Foo };",
	}
	resolver := graphForTest(t, files)
	r := convertForTest(t, "bar2.js", files["bar2.js"], resolver)
	test.AssertEqualWithDiff(t, r.msgs, "")
	test.AssertEqual(t, r.ok, true)
	test.AssertEqual(t, strings.Join(r.result.Namespace.Names(), ","), "Foo,func")
	test.AssertEqual(t, strings.Join(r.result.Target.PropertyNames(), ","), "Foo,func")
	test.AssertEqual(t, r.result.Namespace.IsDynamic, false)
	if !strings.Contains(r.js, "return _cls.Foo;") || !strings.Contains(r.js, "return _func.func;") {
		t.Fatalf("Unexpected getters:\n%s", r.js)
	}
	if strings.Contains(r.js, "exportStar") {
		t.Fatalf("Unexpected run-time copy:\n%s", r.js)
	}
}

func TestConvertExportFromStar(t *testing.T) {
	// "Foo" is not declared in bar2.js, so it is read through "./cls"
	files := map[string]string{
		"func.js": "export function func() {}",
		"cls.js":  "export const Foo = 1;",
		"bar2.js": "export * from './func'; export * from './cls'; export { Foo };",
	}
	resolver := graphForTest(t, files)
	r := convertForTest(t, "bar2.js", files["bar2.js"], resolver)
	test.AssertEqualWithDiff(t, r.msgs, "")
	test.AssertEqual(t, r.ok, true)
	test.AssertEqual(t, strings.Join(r.result.Namespace.Names(), ","), "func,Foo")
	if !strings.Contains(r.js, "return _cls.Foo;") || strings.Contains(r.js, "return Foo;") {
		t.Fatalf("Unexpected getters:\n%s", r.js)
	}

	// Importers see the same binding as the one in cls.js
	view, err := resolver.Resolve("main.js", "./bar2")
	if err != nil {
		t.Fatal(err)
	}
	foo, _ := view.Get("Foo")
	test.AssertEqual(t, foo.SourceModule, "cls.js")

	files["alias.js"] = "export * from './cls'; export { Foo as Bar };"
	resolver = graphForTest(t, files)
	r = convertForTest(t, "alias.js", files["alias.js"], resolver)
	test.AssertEqual(t, r.ok, true)
	test.AssertEqual(t, strings.Join(r.result.Namespace.Names(), ","), "Foo,Bar")
	if !strings.Contains(r.js, "Object.defineProperty(exports, \"Bar\", {\n  enumerable: true,\n  get: function() {\n    return _cls.Foo;") {
		t.Fatalf("Unexpected getters:\n%s", r.js)
	}

	// Without a module graph the name is read at run time
	expectConvertedContains(t, "export * from './m'; export { Foo };",
		"_helpers.exportStar(_m, exports);",
		"return _m.Foo;")
}

func TestConvertUndeclaredExport(t *testing.T) {
	r := convertForTest(t, "<stdin>", "export { Foo };", DynamicResolver{})
	test.AssertEqual(t, r.ok, false)
	test.AssertEqualWithDiff(t, r.msgs, "<stdin>: error: \"Foo\" is not declared in this file\n")

	// No star re-export provides "Foo"
	files := map[string]string{
		"func.js": "export function func() {}",
		"bar.js":  "export * from './func'; export { Foo };",
	}
	r = convertForTest(t, "bar.js", files["bar.js"], graphForTest(t, files))
	test.AssertEqual(t, r.ok, false)
	test.AssertEqualWithDiff(t, r.msgs, "bar.js: error: \"Foo\" is not declared in this file\n")

	// Declarations nested in blocks count, and so do imports
	expectConvertedContains(t, "if (a) { var Foo = 1; } export { Foo };", "return Foo;")
	expectConvertedContains(t, "import Foo from './m'; export { Foo };", "return _m[\"default\"];")
}

func TestConvertAmbiguousStar(t *testing.T) {
	files := map[string]string{
		"a.js":    "export const x = 1; export const onlyA = 2;",
		"b.js":    "export const x = 3;",
		"c.js":    "export * from './a';",
		"main.js": "export * from './a'; export * from './b'; export * from './c';",
	}
	resolver := graphForTest(t, files)
	r := convertForTest(t, "main.js", files["main.js"], resolver)
	test.AssertEqual(t, r.ok, true)
	test.AssertEqualWithDiff(t, r.msgs,
		"main.js: warning: Re-export of \"x\" is ambiguous and has been removed because both \"./a\" and \"./b\" export it\n")

	// "./c" reaches the same declaration as "./a", so it adds no ambiguity
	test.AssertEqual(t, strings.Join(r.result.Namespace.Names(), ","), "onlyA")
	if strings.Contains(r.js, "\"x\"") {
		t.Fatalf("Ambiguous export was emitted:\n%s", r.js)
	}
}

func TestConvertLocalShadowsStar(t *testing.T) {
	files := map[string]string{
		"a.js":    "export const x = 1; export default 2;",
		"main.js": "export const x = 2; export * from './a';",
	}
	resolver := graphForTest(t, files)
	r := convertForTest(t, "main.js", files["main.js"], resolver)
	test.AssertEqualWithDiff(t, r.msgs, "")
	test.AssertEqual(t, strings.Join(r.result.Namespace.Names(), ","), "x")
	test.AssertEqual(t, r.result.Target.DefaultValue.Data == nil, true)
	if !strings.Contains(r.js, "return x;") {
		t.Fatalf("Local export did not win:\n%s", r.js)
	}
}

func TestConvertStarOfCommonJS(t *testing.T) {
	files := map[string]string{
		"lib.js":  "exports.a = 1; module.exports.b = 2;",
		"main.js": "export * from './lib';",
	}
	resolver := graphForTest(t, files)
	r := convertForTest(t, "main.js", files["main.js"], resolver)
	test.AssertEqual(t, r.ok, true)
	test.AssertEqual(t, strings.Join(r.result.Namespace.Names(), ","), "a,b")
	test.AssertEqual(t, r.result.Namespace.IsDynamic, true)
	if !strings.Contains(r.js, "_helpers.exportStar(_lib, exports);") {
		t.Fatalf("Expected a run-time copy:\n%s", r.js)
	}
}

func TestConvertUnresolved(t *testing.T) {
	files := map[string]string{
		"main.js": "import { a } from './missing'; export * from './missing'; export { b } from 'external';",
	}
	resolver := graphForTest(t, files)
	r := convertForTest(t, "main.js", files["main.js"], resolver)
	test.AssertEqual(t, r.ok, false)
	test.AssertEqualWithDiff(t, r.msgs, "main.js: error: Could not resolve \"./missing\"\n")
}

func TestCommonJsTarget(t *testing.T) {
	r := convertForTest(t, "<stdin>", "var ns = {}; module.exports = ns;", DynamicResolver{})
	test.AssertEqual(t, r.result.Target.WholesaleAssignment.Data != nil, true)
	test.AssertEqual(t, len(r.result.Target.NamedProperties), 0)

	r = convertForTest(t, "<stdin>", "var ns = {}; module.exports.ns = ns;", DynamicResolver{})
	test.AssertEqual(t, r.result.Target.WholesaleAssignment.Data == nil, true)
	test.AssertEqual(t, strings.Join(r.result.Target.PropertyNames(), ","), "ns")

	r = convertForTest(t, "<stdin>", `
		exports.a = 1;
		exports["b"] = 2;
		Object.defineProperty(exports, "__esModule", { value: true });
		Object.defineProperty(exports, "c", { enumerable: true, get: function() { return c; } });
		exports.a = 3;
		function f() { exports.d = 4; }
	`, DynamicResolver{})
	test.AssertEqual(t, strings.Join(r.result.Target.PropertyNames(), ","), "a,b,c")
	test.AssertEqual(t, js_printer.PrintExpr(r.result.Target.NamedProperties[0].Value), "3")
	test.AssertEqual(t, js_printer.PrintExpr(r.result.Target.NamedProperties[2].Value), "c")

	// An ES module that replaces "module.exports" drops its export declarations
	r = convertForTest(t, "<stdin>", "export const a = 1; module.exports = {};", DynamicResolver{})
	test.AssertEqual(t, r.result.Target.WholesaleAssignment.Data != nil, true)
	test.AssertEqualWithDiff(t, r.msgs, "<stdin>: warning: This assignment to \"module.exports\" replaces the exports object, "+
		"so the export declarations in this file have no effect\n")
	if strings.Contains(r.js, "defineProperty") {
		t.Fatalf("Unexpected getters:\n%s", r.js)
	}
}

func TestConvertIdempotent(t *testing.T) {
	for _, contents := range []string{
		"var a = require('a');\nmodule.exports = a;\n",
		"export const a = 1; import { b } from './b'; export default b;",
	} {
		first := convertForTest(t, "<stdin>", contents, DynamicResolver{})
		second := convertForTest(t, "<stdin>", first.js, DynamicResolver{})
		test.AssertEqual(t, second.ok, true)
		test.AssertEqualWithDiff(t, second.js, first.js)
		test.AssertEqual(t, strings.Join(second.result.Target.PropertyNames(), ","),
			strings.Join(first.result.Target.PropertyNames(), ","))
	}
}

func TestConvertPreserveFormat(t *testing.T) {
	source, tree := parseForTest(t, "<stdin>", "export const a = 1;")
	log := logger.NewDeferLog(logger.DeferLogNoVerboseOrDebug, nil)
	result, ok := Convert(log, source, tree, DynamicResolver{}, config.Options{})
	test.AssertEqual(t, ok, true)
	test.AssertEqualWithDiff(t, string(js_printer.Print(result.AST, js_printer.Options{}).JS), "export const a = 1;\n")
}

func TestGraphResolverCycles(t *testing.T) {
	files := map[string]string{
		"a.js": "export * from './b'; export const fromA = 1;",
		"b.js": "export * from './a'; export const fromB = 2;",
	}
	resolver := graphForTest(t, files)

	view, err := resolver.Resolve("main.js", "./a")
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, strings.Join(view.Names(), ","), "fromA,fromB")

	view, err = resolver.Resolve("main.js", "./b")
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, strings.Join(view.Names(), ","), "fromB,fromA")

	_, err = resolver.Resolve("main.js", "./c")
	test.AssertEqual(t, err.Error(), "Could not resolve \"./c\" from \"main.js\"")

	view, err = resolver.Resolve("main.js", "react")
	test.AssertEqual(t, err, nil)
	test.AssertEqual(t, view.IsDynamic, true)
}

func TestNamespaceView(t *testing.T) {
	view := NewModuleNamespaceView("a.js")
	test.AssertEqual(t, view.Add(ExportBinding{LocalName: "x", ExportedName: "y"}), true)
	test.AssertEqual(t, view.Add(ExportBinding{LocalName: "z", ExportedName: "y"}), false)
	binding, ok := view.Get("y")
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, binding.LocalName, "x")
	test.AssertEqual(t, binding.origin, "a.js#x")
	test.AssertEqual(t, view.Len(), 1)
}

func TestEmitTarget(t *testing.T) {
	target := CommonJsTarget{}
	target.setProperty("b", js_ast.Ident(logger.Loc{}, "b"))
	target.setProperty("default", js_ast.Ident(logger.Loc{}, "d"))
	target.setProperty("a", js_ast.Ident(logger.Loc{}, "a"))
	target.setProperty("b", js_ast.Ident(logger.Loc{}, "b2"))

	js := js_printer.Print(js_ast.AST{Stmts: EmitTarget(target)}, js_printer.Options{}).JS
	test.AssertEqualWithDiff(t, string(js), `Object.defineProperty(exports, "__esModule", { value: true });
Object.defineProperty(exports, "b", {
  enumerable: true,
  get: function() {
    return b2;
  }
});
Object.defineProperty(exports, "a", {
  enumerable: true,
  get: function() {
    return a;
  }
});
Object.defineProperty(exports, "default", {
  enumerable: true,
  get: function() {
    return d;
  }
});
`)

	test.AssertEqual(t, len(EmitTarget(CommonJsTarget{WholesaleAssignment: js_ast.Ident(logger.Loc{}, "x")})), 0)
}
