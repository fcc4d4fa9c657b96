package js_interop

import (
	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/logger"
)

func defineProperty(name string, descriptor js_ast.Expr) js_ast.Stmt {
	target := js_ast.Dot(js_ast.Ident(logger.Loc{}, "Object"), "defineProperty")
	call := js_ast.Call(target, js_ast.Ident(logger.Loc{}, "exports"), js_ast.Str(logger.Loc{}, name), descriptor)
	return js_ast.Stmt{Data: &js_ast.SExpr{Value: call}}
}

func property(key string, value js_ast.Expr) js_ast.Property {
	return js_ast.Property{KeyOrNil: js_ast.Str(logger.Loc{}, key), ValueOrNil: value}
}

// Returns 'Object.defineProperty(exports, name, { enumerable: true, get: ... })'
func getter(name string, value js_ast.Expr) js_ast.Stmt {
	fn := js_ast.Fn{Body: js_ast.FnBody{Loc: value.Loc, Stmts: []js_ast.Stmt{{Loc: value.Loc, Data: &js_ast.SReturn{ValueOrNil: value}}}}}
	return defineProperty(name, js_ast.Expr{Data: &js_ast.EObject{Properties: []js_ast.Property{
		property("enumerable", js_ast.Expr{Data: &js_ast.EBoolean{Value: true}}),
		property("get", js_ast.Expr{Data: &js_ast.EFunction{Fn: fn}}),
	}}})
}

// Binds a target to the statements that build the "exports" object: the
// "__esModule" marker, then one getter per named property, then the default
// export. A target with a wholesale assignment emits nothing because the
// module's own "module.exports = value" statement replaces the object.
func EmitTarget(target CommonJsTarget) []js_ast.Stmt {
	if target.WholesaleAssignment.Data != nil {
		return nil
	}

	stmts := make([]js_ast.Stmt, 0, len(target.NamedProperties)+2)
	stmts = append(stmts, defineProperty("__esModule", js_ast.Expr{Data: &js_ast.EObject{
		Properties:   []js_ast.Property{property("value", js_ast.Expr{Data: &js_ast.EBoolean{Value: true}})},
		IsSingleLine: true,
	}}))
	for _, named := range target.NamedProperties {
		stmts = append(stmts, getter(named.Name, named.Value))
	}
	if target.DefaultValue.Data != nil {
		stmts = append(stmts, getter("default", target.DefaultValue))
	}
	return stmts
}
