package js_interop

// This pass turns the import and export declarations of an ES module into
// CommonJS. Every export becomes a getter on the "exports" object so that
// importers observe later assignments to the exported binding:
//
//   "use strict";
//   Object.defineProperty(exports, "__esModule", { value: true });
//   Object.defineProperty(exports, "foo", {
//     enumerable: true,
//     get: function() {
//       return foo;
//     }
//   });
//
// Names that come from "export * from" statements are merged into the
// module's namespace first. A local export shadows a star re-export, and a
// name that two different star re-exports provide is ambiguous and left out.

import (
	"fmt"

	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/logger"
)

type ExportBinding struct {
	// The name of the binding inside the module that provides it. This is "*"
	// for "export * as ns from" re-exports.
	LocalName string

	// The name that importers of the module see
	ExportedName string

	// The path of the module that provides the binding, or "" if the binding is
	// declared in the module itself
	SourceModule string

	Loc logger.Loc

	// Identifies the declaration that the binding ultimately refers to. Two
	// star re-exports that reach the same declaration are not ambiguous.
	origin string
}

// The exports of one module in the order they were declared
type ModuleNamespaceView struct {
	Path string

	// Set for CommonJS modules and for modules that re-export one. Some of
	// their exports are only known at run time.
	IsDynamic bool

	bindings []ExportBinding
	index    map[string]int
}

func NewModuleNamespaceView(path string) *ModuleNamespaceView {
	return &ModuleNamespaceView{Path: path, index: make(map[string]int)}
}

// Adds the binding unless another binding already uses the same exported
// name. Returns false if the binding was not added.
func (v *ModuleNamespaceView) Add(binding ExportBinding) bool {
	if _, ok := v.index[binding.ExportedName]; ok {
		return false
	}
	if binding.origin == "" {
		if binding.SourceModule == "" {
			binding.origin = v.Path + "#" + binding.LocalName
		} else {
			binding.origin = binding.SourceModule + "#" + binding.LocalName
		}
	}
	v.index[binding.ExportedName] = len(v.bindings)
	v.bindings = append(v.bindings, binding)
	return true
}

func (v *ModuleNamespaceView) Get(name string) (ExportBinding, bool) {
	if i, ok := v.index[name]; ok {
		return v.bindings[i], true
	}
	return ExportBinding{}, false
}

func (v *ModuleNamespaceView) Has(name string) bool {
	_, ok := v.index[name]
	return ok
}

func (v *ModuleNamespaceView) Len() int {
	return len(v.bindings)
}

func (v *ModuleNamespaceView) Bindings() []ExportBinding {
	return append([]ExportBinding{}, v.bindings...)
}

func (v *ModuleNamespaceView) Names() []string {
	names := make([]string, len(v.bindings))
	for i, binding := range v.bindings {
		names[i] = binding.ExportedName
	}
	return names
}

// Looks up the exports of the module that "specifier" refers to from inside
// the module "importer". Implementations must be safe to call from several
// goroutines at once.
type Resolver interface {
	Resolve(importer string, specifier string) (*ModuleNamespaceView, error)
}

type UnresolvedModuleError struct {
	Importer  string
	Specifier string
}

func (err *UnresolvedModuleError) Error() string {
	return fmt.Sprintf("Could not resolve %q from %q", err.Specifier, err.Importer)
}

type NamedProperty struct {
	Name  string
	Value js_ast.Expr
}

// The shape of a module's "module.exports" object. For converted ES modules
// each property is a live reference to the exported binding.
type CommonJsTarget struct {
	// The value of the "default" export, or nil if there is none
	DefaultValue js_ast.Expr

	NamedProperties []NamedProperty

	// The value of a "module.exports = value" assignment, or nil. This
	// replaces the exports object instead of adding properties to it.
	WholesaleAssignment js_ast.Expr
}

func (target *CommonJsTarget) PropertyNames() []string {
	names := make([]string, len(target.NamedProperties))
	for i, property := range target.NamedProperties {
		names[i] = property.Name
	}
	return names
}

// Sets the property with the given name. A property that is assigned again
// keeps its original position.
func (target *CommonJsTarget) setProperty(name string, value js_ast.Expr) {
	if name == "default" {
		target.DefaultValue = value
		return
	}
	for i, property := range target.NamedProperties {
		if property.Name == name {
			target.NamedProperties[i].Value = value
			return
		}
	}
	target.NamedProperties = append(target.NamedProperties, NamedProperty{Name: name, Value: value})
}
