package js_lower

import (
	"strings"
	"testing"

	"github.com/esdown/esdown/internal/config"
	"github.com/esdown/esdown/internal/test"
)

var es2015 = config.Options{Target: config.ES2015, OmitRuntimeImportsForTests: true}

func TestLowerClassConstructor(t *testing.T) {
	expectLowered(t, "class Foo {}", `var Foo = function Foo() {
  "use strict";
  _helpers.classCallCheck(this, Foo);
};
`)
	expectLowered(t, "export class Foo { constructor(a) { this.a = a; } }", `export var Foo = function Foo(a) {
  "use strict";
  _helpers.classCallCheck(this, Foo);
  this.a = a;
};
`)

	// "use strict" can't be added to a function with default parameters
	expectLowered(t, "class Foo { constructor(a = 1) {} }", `var Foo = function Foo(a = 1) {
  _helpers.classCallCheck(this, Foo);
};
`)
	expectLowered(t, "class Foo { constructor() { 'use strict'; } }", `var Foo = function Foo() {
  "use strict";
  _helpers.classCallCheck(this, Foo);
};
`)
	expectLowered(t, "x = class {};", `x = function _class() {
  "use strict";
  _helpers.classCallCheck(this, _class);
};
`)
}

func TestLowerClassMethods(t *testing.T) {
	expectLowered(t, "class Foo { m() { return 1; } static s() {} get x() { return 2; } set x(v) {} }", `var Foo = function() {
  "use strict";
  function Foo() {
    _helpers.classCallCheck(this, Foo);
  }
  _helpers.createClass(Foo, [
    {
      key: "m",
      value: function m() {
        return 1;
      }
    },
    {
      key: "x",
      get: function() {
        return 2;
      },
      set: function(v) {
      }
    }
  ], [
    {
      key: "s",
      value: function s() {
      }
    }
  ]);
  return Foo;
}();
`)

	expectLoweredContains(t, "class Foo { static s() {} }", "_helpers.createClass(Foo, null, [")
	expectLoweredContains(t, "class Foo { m() { return m; } }", "value: function() {")
	expectLoweredContains(t, "class Foo { delete() {} }", "key: \"delete\",\n      value: function() {")
	expectLoweredContains(t, "class Foo { [a]() {} 1() {} }", "key: a,\n      value: function() {", "key: 1,")

	// Something defined in between splits the getter from the setter
	js, msgs, _ := lowerForTest(t, "class Foo { get x() {} x() {} set x(v) {} }", es5)
	test.AssertEqualWithDiff(t, msgs, "")
	test.AssertEqual(t, strings.Count(js, "key: \"x\""), 3)
}

func TestLowerClassExportDefault(t *testing.T) {
	expectLoweredContains(t, "export default class Foo { m() {} }",
		"var Foo = function() {\n",
		"\nexport default Foo;\n")
	expectLowered(t, "export default class {}", `export default (function _class() {
  "use strict";
  _helpers.classCallCheck(this, _class);
});
`)
}

func TestLowerAsyncMethods(t *testing.T) {
	js, msgs, stats := lowerForTest(t, "class Foo { async m(a) { await a; } }", es5)
	test.AssertEqualWithDiff(t, msgs, "")
	test.AssertEqual(t, stats.LoweredFunctions, 1)
	test.AssertEqual(t, stats.LoweredClasses, 1)
	for _, text := range []string{
		"value: function m(_x) {\n",
		"return _helpers.asyncToGenerator(regeneratorRuntime.mark(function _callee(a) {\n",
		"})).apply(this, arguments);\n",
	} {
		if !strings.Contains(js, text) {
			t.Fatalf("Expected output to contain %q:\n%s", text, js)
		}
	}

	// Classes are kept when only async functions need lowering
	js, msgs, stats = lowerForTest(t, "class Foo { async m() { await this.a; } }", es2015)
	test.AssertEqualWithDiff(t, msgs, "")
	test.AssertEqual(t, stats.LoweredClasses, 0)
	for _, text := range []string{
		"class Foo {\n  m() {\n",
		"}, _callee, this);\n",
	} {
		if !strings.Contains(js, text) {
			t.Fatalf("Expected output to contain %q:\n%s", text, js)
		}
	}
}

func TestLowerClassTargetSupportsClasses(t *testing.T) {
	expectLoweredWith(t, "class Foo { m() {} }", es2015, "class Foo {\n  m() {\n  }\n}\n")

	// Block-scoped classes move out of the state machine like "let"
	js, msgs, _ := lowerForTest(t, "async function f() { class Foo {} await new Foo(); }", es2015)
	test.AssertEqualWithDiff(t, msgs, "")
	for _, text := range []string{"var Foo;\n", "Foo = class Foo {\n"} {
		if !strings.Contains(js, text) {
			t.Fatalf("Expected output to contain %q:\n%s", text, js)
		}
	}
}

func TestLowerClassRuntimeImports(t *testing.T) {
	js, msgs, _ := lowerForTest(t, "class Foo {}", config.Options{Target: config.ES5})
	test.AssertEqualWithDiff(t, msgs, "")
	if !strings.HasPrefix(js, "var _helpers = require(\"@esdown/helpers\");\nvar Foo = ") {
		t.Fatalf("Missing helpers require:\n%s", js)
	}
	if strings.Contains(js, "regenerator") {
		t.Fatalf("Unexpected regenerator runtime:\n%s", js)
	}

	js, msgs, _ = lowerForTest(t, "export class Foo {}", config.Options{Target: config.ES5})
	test.AssertEqualWithDiff(t, msgs, "")
	if !strings.HasPrefix(js, "import * as _helpers from \"@esdown/helpers\";\nexport var Foo = ") {
		t.Fatalf("Missing helpers import:\n%s", js)
	}
}

func TestLowerClassErrors(t *testing.T) {
	expectLowerError(t, "async function f() { class Foo { [await x]() {} } }", es5,
		"<stdin>: error: Transforming \"await\" in a computed class member name to the configured target environment (es5) is not supported\n")
	expectLowerError(t, "async function f() { class Foo { [await x]() {} } }", es2015,
		"<stdin>: error: Transforming \"await\" in a computed class member name to the configured target environment (es2015) is not supported\n")
	expectLowerError(t, "function f() { class Foo { [this.x]() {} } }", es5,
		"<stdin>: error: Transforming \"this\" or \"arguments\" in a computed class member name to the configured target environment (es5) is not supported\n")
	expectLowerError(t, "function f() { class Foo { [this.x]() {} } }", es2015, "")
	expectLowerError(t, "function f() { class Foo { [(() => arguments)()]() {} } }", es5,
		"<stdin>: error: Transforming \"this\" or \"arguments\" in a computed class member name to the configured target environment (es5) is not supported\n")
}
