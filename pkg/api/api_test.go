package api

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/esdown/esdown/internal/test"
)

func readFileForTest(files map[string]string) func(string) (string, error) {
	return func(path string) (string, error) {
		if contents, ok := files[filepath.ToSlash(path)]; ok {
			return contents, nil
		}
		return "", fmt.Errorf("no such file")
	}
}

func outputFileForTest(t *testing.T, result BuildResult, path string) OutputFile {
	t.Helper()
	for _, file := range result.OutputFiles {
		if file.Path == filepath.FromSlash(path) {
			return file
		}
	}
	t.Fatalf("Missing output file %q", path)
	return OutputFile{}
}

func TestTransform(t *testing.T) {
	result := Transform("async function bar() { !await 42; }", TransformOptions{LogLevel: LogLevelSilent})
	test.AssertEqual(t, len(result.Errors), 0)
	test.AssertEqual(t, result.Stats.LoweredFunctions, 1)
	test.AssertEqual(t, result.Stats.SuspensionPoints, 1)
	code := string(result.Code)
	for _, text := range []string{
		"var _helpers = require(\"@esdown/helpers\");\n",
		"var regeneratorRuntime = require(\"regenerator-runtime\");\n",
		"_helpers.asyncToGenerator(regeneratorRuntime.mark(function _callee() {",
		"!_ctx.sent;",
	} {
		if !strings.Contains(code, text) {
			t.Fatalf("Expected output to contain %q:\n%s", text, code)
		}
	}
}

func TestTransformCommonJSStats(t *testing.T) {
	result := Transform("var ns = require('./cls'); module.exports.ns = ns; exports.b = 1;", TransformOptions{LogLevel: LogLevelSilent})
	test.AssertEqual(t, len(result.Errors), 0)
	test.AssertEqual(t, strings.Join(result.Stats.Exports, ","), "ns,b")
	test.AssertEqual(t, result.Stats.WholesaleExports, false)

	result = Transform("var ns = require('./cls'); module.exports = ns;", TransformOptions{LogLevel: LogLevelSilent})
	test.AssertEqual(t, len(result.Stats.Exports), 0)
	test.AssertEqual(t, result.Stats.WholesaleExports, true)
}

func TestTransformClasses(t *testing.T) {
	result := Transform("export class Foo {}\nexport default class Bar { m() { return new Foo(); } }", TransformOptions{LogLevel: LogLevelSilent})
	test.AssertEqual(t, len(result.Errors), 0)
	test.AssertEqual(t, result.Stats.LoweredFunctions, 0)
	test.AssertEqual(t, strings.Join(result.Stats.Exports, ","), "Foo,default")
	code := string(result.Code)
	for _, text := range []string{
		"require(\"@esdown/helpers\")",
		"var Foo = function Foo() {\n",
		"classCallCheck(this, Foo);\n",
		"createClass(Bar, [\n",
	} {
		if !strings.Contains(code, text) {
			t.Fatalf("Expected output to contain %q:\n%s", text, code)
		}
	}
	if strings.Contains(code, "regenerator-runtime") {
		t.Fatalf("Unexpected regenerator runtime:\n%s", code)
	}

	result = Transform("class Foo { async m() { await 1; } }", TransformOptions{LogLevel: LogLevelSilent, Target: ES2015})
	test.AssertEqual(t, len(result.Errors), 0)
	test.AssertEqual(t, result.Stats.LoweredFunctions, 1)
	if !strings.Contains(string(result.Code), "class Foo {\n  m() {\n") {
		t.Fatalf("Expected the class to be kept:\n%s", result.Code)
	}
}

func TestTransformStarReexport(t *testing.T) {
	result := Transform("export * from './lib'; export const a = 1;", TransformOptions{LogLevel: LogLevelSilent})
	test.AssertEqual(t, len(result.Errors), 0)
	test.AssertEqual(t, strings.Join(result.Stats.Exports, ","), "a")
	if !strings.Contains(string(result.Code), "_helpers.exportStar(_lib, exports);") {
		t.Fatalf("Expected a run-time copy:\n%s", result.Code)
	}
}

func TestTransformPreserve(t *testing.T) {
	result := Transform("export async function f() { await g(); }", TransformOptions{
		LogLevel: LogLevelSilent,
		Target:   ESNext,
		Format:   FormatPreserve,
	})
	test.AssertEqual(t, len(result.Errors), 0)
	test.AssertEqualWithDiff(t, string(result.Code), "export async function f() {\n  await g();\n}\n")
	test.AssertEqual(t, result.Stats.LoweredFunctions, 0)
}

func TestTransformErrors(t *testing.T) {
	result := Transform("function f() { await x; }", TransformOptions{LogLevel: LogLevelSilent, Sourcefile: "f.js"})
	test.AssertEqual(t, len(result.Errors), 1)
	test.AssertEqual(t, result.Errors[0].Text, "\"await\" can only be used inside an \"async\" function")
	test.AssertEqual(t, result.Errors[0].Location.File, "f.js")
	test.AssertEqual(t, result.Errors[0].Location.Line, 1)
	test.AssertEqual(t, len(result.Code), 0)

	result = Transform("", TransformOptions{LogLevel: LogLevelSilent, HelpersModule: " helpers"})
	test.AssertEqual(t, len(result.Errors), 1)
	test.AssertEqual(t, result.Errors[0].Text, "Invalid helpers module: \" helpers\"")
}

func TestTransformLogOverride(t *testing.T) {
	input := "export * from './a'; export * from './b';"
	result := Transform(input, TransformOptions{LogLevel: LogLevelSilent})
	test.AssertEqual(t, len(result.Warnings), 0)

	result = Transform("export const a = 1; module.exports = {};", TransformOptions{
		LogLevel:    LogLevelSilent,
		LogOverride: map[string]LogLevel{"commonjs-mixed-with-esm": LogLevelError},
	})
	test.AssertEqual(t, len(result.Warnings), 0)
	test.AssertEqual(t, len(result.Errors), 1)
	test.AssertEqual(t, result.Errors[0].ID, "commonjs-mixed-with-esm")
}

func TestBuild(t *testing.T) {
	files := map[string]string{
		"src/func.js":    "export function func() {}",
		"src/cls.js":     "export class Foo {}",
		"src/bar2.js":    "import { Foo } from './cls'; export * from './func'; export * from './cls'; export { Foo };",
		"src/bar3.js":    "export * from './func'; export * from './cls'; export { Foo };",
		"src/lib/bar.js": "export async function bar() { !await 42; }",
	}
	result := buildImpl(BuildOptions{
		LogLevel:    LogLevelSilent,
		Outdir:      "out",
		EntryPoints: []string{"src/func.js", "src/cls.js", "src/bar2.js", "src/bar3.js", "src/lib/bar.js"},
	}, readFileForTest(files))
	test.AssertEqual(t, len(result.Errors), 0)
	test.AssertEqual(t, len(result.Warnings), 0)
	test.AssertEqual(t, len(result.OutputFiles), 5)

	bar2 := outputFileForTest(t, result, "out/bar2.js")
	test.AssertEqual(t, strings.Join(bar2.Stats.Exports, ","), "Foo,func")
	if strings.Contains(string(bar2.Contents), "exportStar") {
		t.Fatalf("Unexpected run-time copy:\n%s", bar2.Contents)
	}

	bar3 := outputFileForTest(t, result, "out/bar3.js")
	test.AssertEqual(t, strings.Join(bar3.Stats.Exports, ","), "func,Foo")
	if !strings.Contains(string(bar3.Contents), "return _cls.Foo;") {
		t.Fatalf("Expected \"Foo\" to be read from \"./cls\":\n%s", bar3.Contents)
	}

	cls := outputFileForTest(t, result, "out/cls.js")
	test.AssertEqual(t, strings.Join(cls.Stats.Exports, ","), "Foo")
	if !strings.Contains(string(cls.Contents), "var Foo = function Foo() {\n  \"use strict\";\n  _helpers.classCallCheck(this, Foo);\n};\n") {
		t.Fatalf("Expected a constructor function:\n%s", cls.Contents)
	}

	bar := outputFileForTest(t, result, "out/lib/bar.js")
	test.AssertEqual(t, bar.Stats.LoweredFunctions, 1)
	test.AssertEqual(t, strings.Join(bar.Stats.Exports, ","), "bar")
	code := string(bar.Contents)
	test.AssertEqual(t, strings.Count(code, "require(\"@esdown/helpers\")"), 1)
	if !strings.HasPrefix(code, "\"use strict\";\nObject.defineProperty(exports, \"__esModule\", { value: true });\n") {
		t.Fatalf("Missing prologue:\n%s", code)
	}
}

func TestBuildUnresolved(t *testing.T) {
	files := map[string]string{
		"a.js": "import { x } from './missing'; export { x };",
		"b.js": "export const y = 1;",
	}
	result := buildImpl(BuildOptions{
		LogLevel:    LogLevelSilent,
		EntryPoints: []string{"a.js", "b.js", "c.js"},
	}, readFileForTest(files))
	test.AssertEqual(t, len(result.Errors), 2)
	test.AssertEqual(t, result.Errors[0].Text, "Could not read from file \"c.js\": no such file")
	test.AssertEqual(t, result.Errors[1].Text, "Could not resolve \"./missing\"")
	test.AssertEqual(t, len(result.OutputFiles), 1)
	test.AssertEqual(t, result.OutputFiles[0].Path, "b.js")
}

func TestBuildValidation(t *testing.T) {
	result := buildImpl(BuildOptions{
		LogLevel:    LogLevelSilent,
		Write:       true,
		EntryPoints: []string{"a.js", "./a.js"},
	}, readFileForTest(nil))
	test.AssertEqual(t, len(result.Errors), 2)
	test.AssertEqual(t, result.Errors[0].Text, "Duplicate entry point \"./a.js\"")
	test.AssertEqual(t, result.Errors[1].Text, "Must use \"outdir\" when writing output files")
}

func TestLowestCommonAncestorDirectory(t *testing.T) {
	join := filepath.FromSlash
	test.AssertEqual(t, lowestCommonAncestorDirectory([]string{join("a/b/c.js"), join("a/b/d/e.js")}), join("a/b"))
	test.AssertEqual(t, lowestCommonAncestorDirectory([]string{join("a/b/c.js"), join("a/x/e.js")}), "a")
	test.AssertEqual(t, lowestCommonAncestorDirectory([]string{"c.js"}), ".")
}

func TestResolvePath(t *testing.T) {
	resolvePath := makeResolvePath(map[string]bool{
		filepath.FromSlash("src/a.js"):         true,
		filepath.FromSlash("src/lib/index.js"): true,
	})
	path, ok := resolvePath(filepath.FromSlash("src/b.js"), "./a")
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, path, filepath.FromSlash("src/a.js"))

	path, ok = resolvePath(filepath.FromSlash("src/b.js"), "./lib")
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, path, filepath.FromSlash("src/lib/index.js"))

	_, ok = resolvePath(filepath.FromSlash("src/b.js"), "../a")
	test.AssertEqual(t, ok, false)

	_, ok = resolvePath(filepath.FromSlash("src/b.js"), "react")
	test.AssertEqual(t, ok, false)
}
