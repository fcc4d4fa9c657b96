package js_lower

import (
	"fmt"
	"strings"
	"testing"

	"github.com/esdown/esdown/internal/config"
	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/js_parser"
	"github.com/esdown/esdown/internal/js_printer"
	"github.com/esdown/esdown/internal/logger"
	"github.com/esdown/esdown/internal/test"
)

var es5 = config.Options{Target: config.ES5, OmitRuntimeImportsForTests: true}

func lowerForTest(t *testing.T, contents string, options config.Options) (string, string, Stats) {
	t.Helper()
	log := logger.NewDeferLog(logger.DeferLogNoVerboseOrDebug, nil)
	source := test.SourceForTest(contents)
	tree, ok := js_parser.Parse(log, source)
	if !ok {
		t.Fatal("Parse error")
	}
	result, stats, _ := Lower(log, source, tree, options)
	text := ""
	for _, msg := range log.Done() {
		text += msg.String(logger.OutputOptions{}, logger.TerminalInfo{})
	}
	return string(js_printer.Print(result, js_printer.Options{}).JS), text, stats
}

func expectLowered(t *testing.T, contents string, expected string) {
	t.Helper()
	expectLoweredWith(t, contents, es5, expected)
}

func expectLoweredWith(t *testing.T, contents string, options config.Options, expected string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		js, msgs, _ := lowerForTest(t, contents, options)
		test.AssertEqualWithDiff(t, msgs, "")
		test.AssertEqualWithDiff(t, js, expected)
	})
}

func expectLoweredContains(t *testing.T, contents string, expected ...string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		js, msgs, _ := lowerForTest(t, contents, es5)
		test.AssertEqualWithDiff(t, msgs, "")
		for _, text := range expected {
			if !strings.Contains(js, text) {
				t.Fatalf("Expected output to contain %q:\n%s", text, js)
			}
		}
	})
}

func expectLowerError(t *testing.T, contents string, options config.Options, expected string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		_, msgs, _ := lowerForTest(t, contents, options)
		test.AssertEqualWithDiff(t, msgs, expected)
	})
}

// Builds the expected output for "async function <name>() { ... }" given the
// cases of the dispatch loop and anything passed to "wrap" after "_callee"
func loweredDecl(name string, cases string, wrapExtra string) string {
	return fmt.Sprintf(`var _%[1]s_ref;
function %[1]s() {
  return _%[1]s().apply(this, arguments);
}
function _%[1]s() {
  return _%[1]s_ref || (_%[1]s_ref = _helpers.asyncToGenerator(regeneratorRuntime.mark(function _callee() {
    return regeneratorRuntime.wrap(function _callee$(_ctx) {
      while (1) switch (_ctx.prev = _ctx.next) {
%[2]s        case "end":
          return _ctx.stop();
      }
    }, _callee%[3]s);
  })));
}
`, name, cases, wrapExtra)
}

func TestLowerAwaitStatement(t *testing.T) {
	expectLowered(t, "async function bar() { !await 42; }", `var _bar_ref;
function bar() {
  return _bar().apply(this, arguments);
}
function _bar() {
  return _bar_ref || (_bar_ref = _helpers.asyncToGenerator(regeneratorRuntime.mark(function _callee() {
    return regeneratorRuntime.wrap(function _callee$(_ctx) {
      while (1) switch (_ctx.prev = _ctx.next) {
        case 0:
          _ctx.next = 2;
          return 42;
        case 2:
          !_ctx.sent;
        case 3:
        case "end":
          return _ctx.stop();
      }
    }, _callee);
  })));
}
`)

	expectLowered(t, "async function bar() { await 42; }", loweredDecl("bar", `        case 0:
          _ctx.next = 2;
          return 42;
        case 2:
`, ""))

	for _, op := range []string{"+", "-", "~", "typeof "} {
		expectLowered(t, "async function bar() { "+op+"await 42; }", loweredDecl("bar", `        case 0:
          _ctx.next = 2;
          return 42;
        case 2:
          `+op+`_ctx.sent;
        case 3:
`, ""))
	}
}

func TestLowerNoAwait(t *testing.T) {
	expectLowered(t, "async function foo() {}", loweredDecl("foo", `        case 0:
`, ""))

	expectLowered(t, "async function foo() { return 1; }", loweredDecl("foo", `        case 0:
          return _ctx.abrupt("return", 1);
        case 1:
`, ""))
}

func TestLowerReturnAwait(t *testing.T) {
	expectLowered(t, "async function foo() { return await x; }", loweredDecl("foo", `        case 0:
          _ctx.next = 2;
          return x;
        case 2:
          return _ctx.abrupt("return", _ctx.sent);
        case 3:
`, ""))
}

func TestLowerWhile(t *testing.T) {
	expectLowered(t, "async function foo() { while (a) { await b; } }", loweredDecl("foo", `        case 0:
          if (!a) {
            _ctx.next = 5;
            break;
          }
          _ctx.next = 3;
          return b;
        case 3:
          _ctx.next = 0;
          break;
        case 5:
`, ""))

	expectLoweredContains(t, "async function foo() { for (let i = 0; i < n; i++) { if (await a(i)) break; } }",
		"var i;",
		"i = 0;",
		"return _ctx.abrupt(\"break\", ",
		"i++;")

	expectLoweredContains(t, "async function foo() { for (const k in obj) { await k; } }",
		"var k;",
		"_ctx.t0 = regeneratorRuntime.keys(obj);",
		"if ((_ctx.t1 = _ctx.t0()).done) {",
		"k = _ctx.t1.value;")

	expectLoweredContains(t, "async function foo() { for (const v of list) { await v; } }",
		"_ctx.t0 = list[Symbol.iterator]();",
		"if ((_ctx.t1 = _ctx.t0.next()).done) {",
		"v = _ctx.t1.value;")

	expectLoweredContains(t, "async function foo() { outer: while (a) { while (b) { await c; continue outer; } } }",
		"return _ctx.abrupt(\"continue\", 0);")
}

func TestLowerLogical(t *testing.T) {
	expectLowered(t, "async function foo() { x = a || await b; }", loweredDecl("foo", `        case 0:
          _ctx.t0 = a;
          if (_ctx.t0) {
            _ctx.next = 5;
            break;
          }
          _ctx.next = 4;
          return b;
        case 4:
          _ctx.t0 = _ctx.sent;
        case 5:
          x = _ctx.t0;
        case 6:
`, ""))

	expectLoweredContains(t, "async function foo() { x = a ?? await b; }", "if (_ctx.t0 != null) {")
	expectLoweredContains(t, "async function foo() { x = a && await b; }", "if (!_ctx.t0) {")
	expectLoweredContains(t, "async function foo() { x = a ? await b : c; }", "if (!a) {", "_ctx.t0 = c;")
	expectLoweredContains(t, "async function foo() { x += await y; }", "_ctx.t0 = x;", "x = _ctx.t0 += _ctx.sent;")
}

func TestLowerCalls(t *testing.T) {
	expectLoweredContains(t, "async function foo() { a.b(await c); }",
		"_ctx.t0 = a;",
		"_ctx.t1 = _ctx.sent;",
		"_ctx.t0.b.call(_ctx.t0, _ctx.t1);")
	expectLoweredContains(t, "async function foo() { f(x, await y); }",
		"_ctx.t0 = f;",
		"_ctx.t1 = x;",
		"_ctx.t2 = _ctx.sent;",
		"(0, _ctx.t0)(_ctx.t1, _ctx.t2);")
	expectLoweredContains(t, "async function foo() { f(1, await y); }", "(0, _ctx.t0)(1, _ctx.t1);")
}

func TestLowerTry(t *testing.T) {
	expectLowered(t, "async function foo() { try { await a(); } catch (e) { b(e); } }", loweredDecl("foo", `        case 0:
          _ctx.prev = 0;
          _ctx.next = 3;
          return a();
        case 3:
          _ctx.next = 8;
          break;
        case 5:
          _ctx.prev = 5;
          _ctx.t0 = _ctx["catch"](0);
          b(_ctx.t0);
        case 8:
`, ", null, [[0, 5]]"))

	expectLoweredContains(t, "async function foo() { try { await a(); } finally { b(); } }",
		"return _ctx.finish(",
		", null, [[0, , ")

	expectLoweredContains(t, "async function foo() { try { await a(); } catch { b(); } }",
		"_ctx[\"catch\"](0);")
}

func TestLowerFunctionInCatch(t *testing.T) {
	// The catch binding only exists inside the state machine, so functions
	// declared in the catch block must stay there
	contents := "async function f() { try { await a(); } catch (e) { function g() { return e.message; } return g(); } }"
	expectLoweredContains(t, contents,
		"var g;",
		"_ctx.t0 = _ctx[\"catch\"](0);\n          g = function g() {\n            return _ctx.t0.message;\n          };",
		"return _ctx.abrupt(\"return\", g());")

	js, _, _ := lowerForTest(t, contents, es5)
	if strings.Contains(js, "return e.message;") {
		t.Fatalf("The catch binding escaped the catch clause:\n%s", js)
	}

	// Called before its declaration
	expectLoweredContains(t, "async function f() { try { await a(); } catch (e) { b(g()); function g() { return e; } } }",
		"g = function g() {\n            return _ctx.t0;\n          };\n          b(g());")

	// Without a binding there is nothing to rename
	expectLoweredContains(t, "async function f() { try { await a(); } catch { function g() {} } }",
		"    function g() {\n    }\n    return regeneratorRuntime.wrap(")
}

func TestLowerSwitch(t *testing.T) {
	expectLoweredContains(t, "async function foo() { switch (await x) { case 1: a(); break; default: b(); } }",
		"_ctx.t0 = _ctx.sent;",
		"_ctx.next = _ctx.t0 === 1 ? ",
		"return _ctx.abrupt(\"break\", ")
}

func TestLowerThisAndArguments(t *testing.T) {
	expectLoweredContains(t, "async function foo() { await this.x; }", ", _callee, this);")
	expectLoweredContains(t, "async function foo() { return arguments[0] + await x; }",
		"var _args = arguments;",
		"_args[0]")
	expectLoweredContains(t, "async function foo(a, b = 1, ...c) {}", "function foo(_x) {")
	expectLoweredContains(t, "async function foo(a, b) {}", "function foo(_x, _x2) {", "function _callee(a, b) {")
}

func TestLowerArrow(t *testing.T) {
	expectLowered(t, "var g = async () => await x;", `var g = function() {
  var _ref = _helpers.asyncToGenerator(regeneratorRuntime.mark(function _callee() {
    return regeneratorRuntime.wrap(function _callee$(_ctx) {
      while (1) switch (_ctx.prev = _ctx.next) {
        case 0:
          _ctx.next = 2;
          return x;
        case 2:
          return _ctx.abrupt("return", _ctx.sent);
        case 3:
        case "end":
          return _ctx.stop();
      }
    }, _callee);
  }));
  return function() {
    return _ref.apply(this, arguments);
  };
}();
`)

	expectLowered(t, "function f() { return async () => this.x; }", `function f() {
  var _this = this;
  return function() {
    var _ref = _helpers.asyncToGenerator(regeneratorRuntime.mark(function _callee() {
      return regeneratorRuntime.wrap(function _callee$(_ctx) {
        while (1) switch (_ctx.prev = _ctx.next) {
          case 0:
            return _ctx.abrupt("return", _this.x);
          case 1:
          case "end":
            return _ctx.stop();
        }
      }, _callee);
    }));
    return function() {
      return _ref.apply(this, arguments);
    };
  }();
}
`)

	expectLoweredContains(t, "function f() { return async () => arguments[0]; }",
		"var _arguments = arguments;",
		"_arguments[0]")
}

func TestLowerFunctionExpression(t *testing.T) {
	expectLoweredContains(t, "x = async function named(a) { await a; };",
		"var _ref = _helpers.asyncToGenerator(",
		"function named(_x) {",
		"return named;")
	expectLoweredContains(t, "x = { async m() { await a; } };", "m: function() {")
}

func TestLowerNested(t *testing.T) {
	_, msgs, stats := lowerForTest(t, "async function a() { await (async function b() { await c; })(); }", es5)
	test.AssertEqualWithDiff(t, msgs, "")
	test.AssertEqual(t, stats.LoweredFunctions, 2)
	test.AssertEqual(t, stats.SuspensionPoints, 2)
}

func TestLowerRenamesGeneratedNames(t *testing.T) {
	expectLoweredContains(t, "var _ctx, _foo; async function foo() { await 1; }",
		"function _callee$(_ctx2) {",
		"function _foo2() {",
		"var _foo2_ref;")
}

func TestLowerTargetSupportsAsync(t *testing.T) {
	options := config.Options{Target: config.ES2017, OmitRuntimeImportsForTests: true}
	expectLoweredWith(t, "async function foo() { await x; }", options, "async function foo() {\n  await x;\n}\n")
}

func TestLowerRuntimeImports(t *testing.T) {
	js, msgs, _ := lowerForTest(t, "async function foo() {}", config.Options{Target: config.ES5})
	test.AssertEqualWithDiff(t, msgs, "")
	if !strings.HasPrefix(js, "var _helpers = require(\"@esdown/helpers\");\nvar regeneratorRuntime = require(\"regenerator-runtime\");\n") {
		t.Fatalf("Missing runtime requires:\n%s", js)
	}

	js, msgs, _ = lowerForTest(t, "\"use strict\"; export async function foo() {}", config.Options{
		Target:            config.ES5,
		HelpersModule:     "./helpers",
		RegeneratorModule: "./regenerator",
	})
	test.AssertEqualWithDiff(t, msgs, "")
	if !strings.HasPrefix(js, "\"use strict\";\nimport * as _helpers from \"./helpers\";\nimport regeneratorRuntime from \"./regenerator\";\n") {
		t.Fatalf("Missing runtime imports:\n%s", js)
	}
	if !strings.Contains(js, "export function foo() {") {
		t.Fatalf("Missing exported wrapper:\n%s", js)
	}

	js, _, _ = lowerForTest(t, "function foo() {}", config.Options{Target: config.ES5})
	test.AssertEqualWithDiff(t, js, "function foo() {\n}\n")
}

func TestLowerErrors(t *testing.T) {
	expectLowerError(t, "function foo() { await x; }", es5,
		"<stdin>: error: \"await\" can only be used inside an \"async\" function\n")
	expectLowerError(t, "async function foo() { (() => await x)(); }", es5,
		"<stdin>: error: \"await\" can only be used inside an \"async\" function\n")
	expectLowerError(t, "await x;", config.Options{Target: config.ESNext, OutputFormat: config.FormatCommonJS},
		"<stdin>: error: Top-level await is currently not supported with the \"cjs\" output format\n")
	expectLowerError(t, "await x;", es5,
		"<stdin>: error: Top-level await is not available in the configured target environment (es5)\n")
	expectLowerError(t, "await x;", config.Options{Target: config.ESNext}, "")
	expectLowerError(t, "async function* foo() {}", es5,
		"<stdin>: error: Transforming async generator functions to the configured target environment (es5) is not supported\n")
	expectLowerError(t, "async function foo(a = await b) {}", es5,
		"<stdin>: error: Cannot use an \"await\" expression here\n")
}

// The suspension points of a function are numbered in source order, and each
// one resumes in a state of its own
func TestSuspensionPoints(t *testing.T) {
	for _, count := range []int{1, 2, 5} {
		var sb strings.Builder
		sb.WriteString("async function foo() {")
		for i := 0; i < count; i++ {
			fmt.Fprintf(&sb, " f(await x%d);", i)
		}
		sb.WriteString(" }")
		contents := sb.String()

		t.Run(contents, func(t *testing.T) {
			lowered := lowerFirstFunction(t, contents)
			test.AssertEqual(t, len(lowered.suspensions), count)
			last := 0
			for i, point := range lowered.suspensions {
				test.AssertEqual(t, point.ID, i)
				if point.ResumeState <= last {
					t.Fatalf("Resume state %d of suspension point %d is not after %d", point.ResumeState, i, last)
				}
				last = point.ResumeState
			}
			test.AssertEqual(t, len(lowered.machine.Cases), count+1)
			test.AssertEqual(t, len(lowered.machine.TryEntries), 0)
		})
	}
}

func TestStateMachineTryEntries(t *testing.T) {
	lowered := lowerFirstFunction(t, "async function foo() { try { await a; } catch (e) { await b; } finally { c(); } }")
	test.AssertEqual(t, len(lowered.machine.TryEntries), 1)
	entry := lowered.machine.TryEntries[0]
	test.AssertEqual(t, entry.TryState, 0)
	if !(entry.TryState < entry.CatchState && entry.CatchState < entry.FinallyState && entry.FinallyState < entry.AfterState) {
		t.Fatalf("Unexpected try entry %+v", entry)
	}
	test.AssertEqual(t, entry.AfterState, lowered.machine.FinalState)
}

func lowerFirstFunction(t *testing.T, contents string) loweredFunction {
	t.Helper()
	log := logger.NewDeferLog(logger.DeferLogNoVerboseOrDebug, nil)
	source := test.SourceForTest(contents)
	tree, ok := js_parser.Parse(log, source)
	if !ok {
		t.Fatal("Parse error")
	}
	l := &lowerer{
		log:         log,
		source:      source,
		options:     es5,
		used:        tree.UsedNames,
		frames:      []*fnFrame{{isTopLevel: true}},
		shouldLower: true,
	}
	fn := tree.Stmts[0].Data.(*js_ast.SFunction).Fn
	lowered := l.lowerFunction(l.describe(fn.Name, fn.Args, fn.Body, fn.HasRestArg, false, tree.Stmts[0].Loc))
	if log.HasErrors() {
		t.Fatal("Unexpected errors")
	}
	return lowered
}
