package js_lower

// Classes are rewritten as constructor functions for ES5. A class without
// methods becomes a single function expression:
//
//   var Foo = function Foo() {
//     "use strict";
//     _helpers.classCallCheck(this, Foo);
//   };
//
// Otherwise an immediately-invoked function declares the constructor and
// passes the methods to "createClass" as property descriptors:
//
//   var Foo = function() {
//     "use strict";
//     function Foo() {
//       _helpers.classCallCheck(this, Foo);
//     }
//     _helpers.createClass(Foo, [
//       {
//         key: "bar",
//         value: function bar() {
//         }
//       }
//     ]);
//     return Foo;
//   }();

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/logger"
	"github.com/esdown/esdown/internal/runtime"
)

func (l *lowerer) visitClass(class js_ast.Class) js_ast.Class {
	properties := make([]js_ast.Property, len(class.Properties))
	for i, property := range class.Properties {
		if property.IsComputed {
			property.KeyOrNil = l.checkComputedKey(l.visitExpr(property.KeyOrNil))
		}
		loc := property.ValueOrNil.Loc
		fn := l.visitFn(property.ValueOrNil.Data.(*js_ast.EFunction).Fn, loc)
		if fn.IsAsync && l.shouldLower {
			fn = l.lowerMethod(l.describe(nil, fn.Args, fn.Body, fn.HasRestArg, false, loc))
		}
		property.ValueOrNil = js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: fn}}
		properties[i] = property
	}
	class.Properties = properties
	return class
}

// Computed member names are evaluated outside of the methods. They can't be
// split into states, and when classes are lowered they move into a nested
// function that has its own "this" and "arguments".
func (l *lowerer) checkComputedKey(key js_ast.Expr) js_ast.Expr {
	var suspends, usesScope bool
	w := js_ast.Walker{
		Expr: func(expr js_ast.Expr) bool {
			switch e := expr.Data.(type) {
			case *js_ast.EAwait, *js_ast.EYield:
				suspends = true
			case *js_ast.EThis:
				usesScope = true
			case *js_ast.EIdentifier:
				if e.Name == "arguments" {
					usesScope = true
				}
			}
			return true
		},
		EnterFn: func(args []js_ast.Arg, isArrow bool) bool {
			return isArrow
		},
	}
	w.VisitExpr(key)

	switch {
	case suspends && (l.shouldLower || l.lowerClasses):
		l.addError(key.Loc, fmt.Sprintf(
			"Transforming \"await\" in a computed class member name to the configured target environment (%s) is not supported", l.options.Target))
		return js_ast.Expr{Loc: key.Loc, Data: &js_ast.EMissing{}}

	case usesScope && l.lowerClasses:
		l.addError(key.Loc, fmt.Sprintf(
			"Transforming \"this\" or \"arguments\" in a computed class member name to the configured target environment (%s) is not supported", l.options.Target))
	}
	return key
}

// "async m(a) {}" becomes a method that creates its generator function on
// each call:
//
//	m(_x) {
//	  return _helpers.asyncToGenerator(regeneratorRuntime.mark(function _callee(a) { ... })).apply(this, arguments);
//	}
func (l *lowerer) lowerMethod(desc FunctionDescriptor) js_ast.Fn {
	lowered := l.lowerFunction(desc)
	return js_ast.Fn{
		Args: l.arityArgs(desc),
		Body: js_ast.FnBody{Loc: desc.Body.Loc, Stmts: []js_ast.Stmt{forwardCall(desc.Loc, l.asyncToGenerator(lowered.generator))}},
	}
}

type classMember struct {
	key        js_ast.Expr
	isAccessor bool
	fields     []js_ast.Property
}

// Returns the name the class is bound to inside the result and the function
// expression that replaces it
func (l *lowerer) lowerClass(class js_ast.Class, loc logger.Loc) (string, js_ast.Expr) {
	nameLoc := loc
	var name string
	if class.Name != nil {
		name, nameLoc = class.Name.Name, class.Name.Loc
	} else {
		name = js_ast.GenerateUniqueName(l.used, "_class")
	}

	var ctor *js_ast.Fn
	var proto, static []classMember
	for _, property := range class.Properties {
		fn := property.ValueOrNil.Data.(*js_ast.EFunction).Fn
		if isConstructor(property) {
			ctor = &fn
			continue
		}
		if property.IsStatic {
			static = addClassMember(static, property, fn)
		} else {
			proto = addClassMember(proto, property, fn)
		}
	}

	ctorFn := js_ast.Fn{Name: &js_ast.LocName{Loc: nameLoc, Name: name}, Body: js_ast.FnBody{Loc: class.BodyLoc}}
	if ctor != nil {
		ctorFn.OpenParenLoc = ctor.OpenParenLoc
		ctorFn.Args = ctor.Args
		ctorFn.HasRestArg = ctor.HasRestArg
		ctorFn.Body = ctor.Body
	}

	check := js_ast.Stmt{Loc: nameLoc, Data: &js_ast.SExpr{Value: js_ast.Call(
		js_ast.Dot(js_ast.Ident(nameLoc, l.helpersName()), runtime.ClassCallCheck),
		js_ast.Expr{Loc: nameLoc, Data: &js_ast.EThis{}},
		js_ast.Ident(nameLoc, name))}}
	useStrict := js_ast.Stmt{Loc: loc, Data: &js_ast.SDirective{Value: "use strict"}}

	l.stats.LoweredClasses++
	Logger().Debug("lowered class",
		zap.String("name", name),
		zap.Int("prototypeMembers", len(proto)),
		zap.Int("staticMembers", len(static)))

	if len(proto) == 0 && len(static) == 0 {
		// "use strict" is a syntax error in a function with default or rest
		// parameters
		if hasSimpleParameters(ctorFn) && !hasDirective(ctorFn.Body.Stmts, "use strict") {
			ctorFn.Body.Stmts = insertAfterDirectives(ctorFn.Body.Stmts, useStrict, check)
		} else {
			ctorFn.Body.Stmts = insertAfterDirectives(ctorFn.Body.Stmts, check)
		}
		return name, js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: ctorFn}}
	}

	ctorFn.Body.Stmts = insertAfterDirectives(ctorFn.Body.Stmts, check)
	args := []js_ast.Expr{js_ast.Ident(nameLoc, name), descriptorArray(proto, loc)}
	if len(static) > 0 {
		args = append(args, descriptorArray(static, loc))
	}
	createClass := js_ast.Call(js_ast.Dot(js_ast.Ident(loc, l.helpersName()), runtime.CreateClass), args...)

	iife := js_ast.Fn{Body: js_ast.FnBody{Loc: class.BodyLoc, Stmts: []js_ast.Stmt{
		useStrict,
		{Loc: nameLoc, Data: &js_ast.SFunction{Fn: ctorFn}},
		{Loc: loc, Data: &js_ast.SExpr{Value: createClass}},
		{Loc: loc, Data: &js_ast.SReturn{ValueOrNil: js_ast.Ident(nameLoc, name)}},
	}}}
	return name, js_ast.Call(js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: iife}})
}

// Returns "var Foo = <value>;"
func classVar(loc logger.Loc, name string, value js_ast.Expr, isExport bool) js_ast.Stmt {
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, IsExport: isExport, Decls: []js_ast.Decl{{
		Binding:    js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: name}},
		ValueOrNil: value,
	}}}}
}

func isConstructor(property js_ast.Property) bool {
	if property.IsStatic || property.IsComputed || property.Kind != js_ast.PropertyNormal {
		return false
	}
	key, ok := property.KeyOrNil.Data.(*js_ast.EString)
	return ok && key.Value == "constructor"
}

func addClassMember(members []classMember, property js_ast.Property, fn js_ast.Fn) []classMember {
	field := "value"
	switch property.Kind {
	case js_ast.PropertyGet:
		field = "get"
	case js_ast.PropertySet:
		field = "set"
	}
	if field == "value" {
		fn.Name = methodName(property, fn)
	}
	loc := property.ValueOrNil.Loc
	value := js_ast.Property{KeyOrNil: js_ast.Str(loc, field), ValueOrNil: js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: fn}}}

	// A getter and a setter for the same name share a descriptor unless
	// something else was defined under that name in between
	if field != "value" && !property.IsComputed {
		for i := len(members) - 1; i >= 0; i-- {
			if !sameStaticKey(members[i].key, property.KeyOrNil) {
				continue
			}
			if members[i].isAccessor && !hasField(members[i].fields, field) {
				members[i].fields = append(members[i].fields, value)
				return members
			}
			break
		}
	}

	return append(members, classMember{
		key:        property.KeyOrNil,
		isAccessor: field != "value",
		fields:     []js_ast.Property{value},
	})
}

func sameStaticKey(a js_ast.Expr, b js_ast.Expr) bool {
	switch a := a.Data.(type) {
	case *js_ast.EString:
		b, ok := b.Data.(*js_ast.EString)
		return ok && a.Value == b.Value
	case *js_ast.ENumber:
		b, ok := b.Data.(*js_ast.ENumber)
		return ok && a.Value == b.Value
	}
	return false
}

func hasField(fields []js_ast.Property, name string) bool {
	for _, field := range fields {
		if key, ok := field.KeyOrNil.Data.(*js_ast.EString); ok && key.Value == name {
			return true
		}
	}
	return false
}

// Methods keep their name as a function name when that can't change what an
// identifier in the body refers to
func methodName(property js_ast.Property, fn js_ast.Fn) *js_ast.LocName {
	if property.IsComputed {
		return nil
	}
	key, ok := property.KeyOrNil.Data.(*js_ast.EString)
	if !ok || !js_ast.IsIdentifier(key.Value) || js_ast.Keywords[key.Value] ||
		key.Value == "arguments" || key.Value == "eval" || referencesName(fn, key.Value) {
		return nil
	}
	return &js_ast.LocName{Loc: property.KeyOrNil.Loc, Name: key.Value}
}

func referencesName(fn js_ast.Fn, name string) (found bool) {
	w := js_ast.Walker{
		Expr: func(expr js_ast.Expr) bool {
			if id, ok := expr.Data.(*js_ast.EIdentifier); ok && id.Name == name {
				found = true
			}
			return !found
		},
		EnterFn: func(args []js_ast.Arg, isArrow bool) bool {
			return !found
		},
	}
	for _, arg := range fn.Args {
		w.VisitExpr(arg.DefaultOrNil)
	}
	w.Stmts(fn.Body.Stmts)
	return
}

// Returns "[{ key: ..., value: ... }, ...]" or "null" if there are no members
func descriptorArray(members []classMember, loc logger.Loc) js_ast.Expr {
	if len(members) == 0 {
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENull{}}
	}
	items := make([]js_ast.Expr, len(members))
	for i, member := range members {
		properties := append([]js_ast.Property{{KeyOrNil: js_ast.Str(member.key.Loc, "key"), ValueOrNil: member.key}}, member.fields...)
		items[i] = js_ast.Expr{Loc: member.key.Loc, Data: &js_ast.EObject{Properties: properties}}
	}
	return js_ast.Expr{Loc: loc, Data: &js_ast.EArray{Items: items}}
}

func hasSimpleParameters(fn js_ast.Fn) bool {
	if fn.HasRestArg {
		return false
	}
	for _, arg := range fn.Args {
		if arg.DefaultOrNil.Data != nil {
			return false
		}
	}
	return true
}

func hasDirective(stmts []js_ast.Stmt, value string) bool {
	for _, stmt := range stmts {
		directive, ok := stmt.Data.(*js_ast.SDirective)
		if !ok {
			return false
		}
		if directive.Value == value {
			return true
		}
	}
	return false
}
