package js_interop

import (
	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/logger"
)

type scannedExport struct {
	exportedName string
	localName    string
	specifier    string // Empty for exports declared in this module
	loc          logger.Loc

	// "export { Foo }" where nothing in the module declares or imports "Foo".
	// The name is looked up in the star re-exports instead.
	undeclared bool
}

type scannedStar struct {
	specifier string
	loc       logger.Loc
}

// What a module exports before any of its star re-exports are resolved. The
// records of all files in a build are collected first, then handed to a
// GraphResolver.
type ModuleRecord struct {
	Path       string
	IsCommonJS bool
	Target     CommonJsTarget

	exports []scannedExport
	stars   []scannedStar
}

func ScanModule(source logger.Source, tree js_ast.AST) *ModuleRecord {
	record := &ModuleRecord{Path: source.PrettyPath}
	if !tree.HasESMSyntax {
		record.IsCommonJS = true
		record.Target = DetectCommonJsTarget(tree.Stmts)
		return record
	}
	record.exports, record.stars = scanExports(tree)
	return record
}

// Collects the export declarations of an ES module in order. The default
// export always comes last.
func scanExports(tree js_ast.AST) (exports []scannedExport, stars []scannedStar) {
	var defaultExport *scannedExport
	declared := moduleScopeNames(tree.Stmts)

	for _, stmt := range tree.Stmts {
		switch s := stmt.Data.(type) {
		case *js_ast.SLocal:
			if s.IsExport {
				for _, decl := range s.Decls {
					if id, ok := decl.Binding.Data.(*js_ast.BIdentifier); ok {
						exports = append(exports, scannedExport{exportedName: id.Name, localName: id.Name, loc: decl.Binding.Loc})
					}
				}
			}

		case *js_ast.SFunction:
			if s.IsExport && s.Fn.Name != nil {
				exports = append(exports, scannedExport{exportedName: s.Fn.Name.Name, localName: s.Fn.Name.Name, loc: s.Fn.Name.Loc})
			}

		case *js_ast.SClass:
			if s.IsExport {
				exports = append(exports, scannedExport{exportedName: s.Class.Name.Name, localName: s.Class.Name.Name, loc: s.Class.Name.Loc})
			}

		case *js_ast.SExportClause:
			for _, item := range s.Items {
				export := scannedExport{exportedName: item.Alias, localName: item.Name.Name, loc: item.AliasLoc, undeclared: !declared[item.Name.Name]}
				if item.Alias == "default" {
					defaultExport = &export
					continue
				}
				exports = append(exports, export)
			}

		case *js_ast.SExportFrom:
			path := tree.ImportRecords[s.ImportRecordIndex].Path
			for _, item := range s.Items {
				export := scannedExport{exportedName: item.Alias, localName: item.Name.Name, specifier: path, loc: item.AliasLoc}
				if item.Alias == "default" {
					defaultExport = &export
					continue
				}
				exports = append(exports, export)
			}

		case *js_ast.SExportStar:
			path := tree.ImportRecords[s.ImportRecordIndex].Path
			if s.Alias != nil {
				exports = append(exports, scannedExport{exportedName: s.Alias.Alias, localName: "*", specifier: path, loc: s.Alias.AliasLoc})
			} else {
				stars = append(stars, scannedStar{specifier: path, loc: stmt.Loc})
			}

		case *js_ast.SExportDefault:
			localName := "default"
			if name := defaultDeclName(s); name != nil {
				localName = name.Name
			}
			defaultExport = &scannedExport{exportedName: "default", localName: localName, loc: s.Value.Loc}
		}
	}

	if defaultExport != nil {
		exports = append(exports, *defaultExport)
	}
	return
}

// Returns the name of "export default function foo() {}" or "export default
// class Foo {}", which is also a local binding
func defaultDeclName(s *js_ast.SExportDefault) *js_ast.LocName {
	switch value := s.Value.Data.(type) {
	case *js_ast.SFunction:
		return value.Fn.Name
	case *js_ast.SClass:
		return value.Class.Name
	}
	return nil
}

// Returns the names declared at module scope, including imports and "var"
// declarations nested in blocks
func moduleScopeNames(stmts []js_ast.Stmt) map[string]bool {
	names := make(map[string]bool)
	var visit func(stmt js_ast.Stmt, topLevel bool)
	visitAll := func(stmts []js_ast.Stmt, topLevel bool) {
		for _, stmt := range stmts {
			visit(stmt, topLevel)
		}
	}
	visit = func(stmt js_ast.Stmt, topLevel bool) {
		switch s := stmt.Data.(type) {
		case *js_ast.SLocal:
			if topLevel || s.Kind == js_ast.LocalVar {
				for _, decl := range s.Decls {
					if id, ok := decl.Binding.Data.(*js_ast.BIdentifier); ok {
						names[id.Name] = true
					}
				}
			}
		case *js_ast.SFunction:
			if topLevel && s.Fn.Name != nil {
				names[s.Fn.Name.Name] = true
			}
		case *js_ast.SClass:
			if topLevel {
				names[s.Class.Name.Name] = true
			}
		case *js_ast.SImport:
			if s.DefaultName != nil {
				names[s.DefaultName.Name] = true
			}
			if s.NamespaceName != nil {
				names[s.NamespaceName.Name] = true
			}
			if s.Items != nil {
				for _, item := range *s.Items {
					names[item.Name.Name] = true
				}
			}
		case *js_ast.SExportDefault:
			if name := defaultDeclName(s); name != nil {
				names[name.Name] = true
			}
		case *js_ast.SBlock:
			visitAll(s.Stmts, false)
		case *js_ast.SLabel:
			visit(s.Stmt, false)
		case *js_ast.SIf:
			visit(s.Yes, false)
			if s.NoOrNil.Data != nil {
				visit(s.NoOrNil, false)
			}
		case *js_ast.SFor:
			if s.InitOrNil.Data != nil {
				visit(s.InitOrNil, false)
			}
			visit(s.Body, false)
		case *js_ast.SForIn:
			visit(s.Init, false)
			visit(s.Body, false)
		case *js_ast.SForOf:
			visit(s.Init, false)
			visit(s.Body, false)
		case *js_ast.SWhile:
			visit(s.Body, false)
		case *js_ast.SDoWhile:
			visit(s.Body, false)
		case *js_ast.STry:
			visitAll(s.Block.Stmts, false)
			if s.Catch != nil {
				visitAll(s.Catch.Block.Stmts, false)
			}
			if s.Finally != nil {
				visitAll(s.Finally.Block.Stmts, false)
			}
		case *js_ast.SSwitch:
			for _, c := range s.Cases {
				visitAll(c.Body, false)
			}
		}
	}
	visitAll(stmts, true)
	return names
}

func isModuleExports(expr js_ast.Expr) bool {
	if dot, ok := expr.Data.(*js_ast.EDot); ok && dot.Name == "exports" {
		if id, ok := dot.Target.Data.(*js_ast.EIdentifier); ok && id.Name == "module" {
			return true
		}
	}
	return false
}

func isExportsObject(expr js_ast.Expr) bool {
	if id, ok := expr.Data.(*js_ast.EIdentifier); ok && id.Name == "exports" {
		return true
	}
	return isModuleExports(expr)
}

// Finds how a CommonJS module populates "module.exports". Assignments inside
// nested functions are not considered since they may never run.
func DetectCommonJsTarget(stmts []js_ast.Stmt) CommonJsTarget {
	var target CommonJsTarget

	w := js_ast.Walker{Expr: func(expr js_ast.Expr) bool {
		switch e := expr.Data.(type) {
		case *js_ast.EBinary:
			if e.Op != js_ast.BinOpAssign {
				break
			}
			if isModuleExports(e.Left) {
				// "module.exports = value"
				target.WholesaleAssignment = e.Right
				break
			}
			switch left := e.Left.Data.(type) {
			case *js_ast.EDot:
				// "exports.name = value" or "module.exports.name = value"
				if isExportsObject(left.Target) {
					target.setProperty(left.Name, e.Right)
				}
			case *js_ast.EIndex:
				// "exports['name'] = value"
				if str, ok := left.Index.Data.(*js_ast.EString); ok && isExportsObject(left.Target) {
					target.setProperty(str.Value, e.Right)
				}
			}

		case *js_ast.ECall:
			// "Object.defineProperty(exports, 'name', descriptor)"
			if len(e.Args) != 3 || !isExportsObject(e.Args[0]) {
				break
			}
			dot, ok := e.Target.Data.(*js_ast.EDot)
			if !ok || dot.Name != "defineProperty" {
				break
			}
			if id, ok := dot.Target.Data.(*js_ast.EIdentifier); !ok || id.Name != "Object" {
				break
			}
			if str, ok := e.Args[1].Data.(*js_ast.EString); ok && str.Value != "__esModule" {
				target.setProperty(str.Value, descriptorValue(e.Args[2]))
			}
		}
		return true
	}}
	w.Stmts(stmts)

	return target
}

// Returns the value a property descriptor provides: the expression a getter
// returns, the "value" property, or the descriptor itself
func descriptorValue(descriptor js_ast.Expr) js_ast.Expr {
	object, ok := descriptor.Data.(*js_ast.EObject)
	if !ok {
		return descriptor
	}
	for _, property := range object.Properties {
		key, ok := property.KeyOrNil.Data.(*js_ast.EString)
		if !ok || property.IsComputed {
			continue
		}
		switch key.Value {
		case "value":
			return property.ValueOrNil
		case "get":
			if fn, ok := property.ValueOrNil.Data.(*js_ast.EFunction); ok && len(fn.Fn.Body.Stmts) == 1 {
				if ret, ok := fn.Fn.Body.Stmts[0].Data.(*js_ast.SReturn); ok && ret.ValueOrNil.Data != nil {
					return ret.ValueOrNil
				}
			}
		}
	}
	return descriptor
}

type starSource struct {
	specifier string
	loc       logger.Loc
	view      *ModuleNamespaceView
}

type ambiguousExport struct {
	name   string
	loc    logger.Loc
	first  string
	second string
}

// Builds the namespace of a module from its own exports and the namespaces of
// the modules it star re-exports. The "resolve" callback returns nil for
// modules that could not be resolved. Undeclared exports that no star
// re-export provides are returned last.
func buildNamespace(
	path string,
	exports []scannedExport,
	stars []starSource,
	resolve func(specifier string) *ModuleNamespaceView,
) (*ModuleNamespaceView, []ambiguousExport, []scannedExport) {
	view := NewModuleNamespaceView(path)

	var defaultBinding *ExportBinding
	var forwarded []scannedExport
	for _, export := range exports {
		if export.undeclared {
			forwarded = append(forwarded, export)
			continue
		}
		binding := ExportBinding{LocalName: export.localName, ExportedName: export.exportedName, Loc: export.loc}
		if export.specifier != "" {
			binding.SourceModule = export.specifier
			if other := resolve(export.specifier); other != nil {
				binding.SourceModule = other.Path
				if export.localName == "*" {
					binding.origin = other.Path + "#*"
				} else if original, ok := other.Get(export.localName); ok {
					binding.origin = original.origin
				}
			}
		}
		if export.exportedName == "default" {
			defaultBinding = &binding
			continue
		}
		view.Add(binding)
	}

	ambiguous := mergeStarExports(view, stars)

	var missing []scannedExport
	for _, export := range forwarded {
		binding, ok := forwardToStar(view, stars, export)
		if !ok {
			missing = append(missing, export)
			continue
		}
		if export.exportedName == "default" {
			defaultBinding = &binding
			continue
		}
		view.Add(binding)
	}

	if defaultBinding != nil {
		view.Add(*defaultBinding)
	}
	return view, ambiguous, missing
}

// Binds "export { name as alias }" to the star re-export that provides
// "name". If only modules with unknown exports could provide it, the first
// of them is read at run time.
func forwardToStar(view *ModuleNamespaceView, stars []starSource, export scannedExport) (ExportBinding, bool) {
	binding := ExportBinding{LocalName: export.localName, ExportedName: export.exportedName, Loc: export.loc}
	if merged, ok := view.Get(export.localName); ok && merged.SourceModule != "" {
		binding.LocalName = merged.LocalName
		binding.SourceModule = merged.SourceModule
		binding.origin = merged.origin
		return binding, true
	}
	if export.localName == "default" {
		return binding, false
	}
	for _, star := range stars {
		if star.view.IsDynamic && !star.view.Has(export.localName) {
			binding.SourceModule = star.view.Path
			return binding, true
		}
	}
	return binding, false
}

// Adds the names from each star re-export in declaration order. Names the
// module exports itself take precedence. A name that two star re-exports
// resolve to different declarations is left out.
func mergeStarExports(view *ModuleNamespaceView, stars []starSource) []ambiguousExport {
	type candidate struct {
		binding   ExportBinding
		specifier string
		ambiguous bool
	}
	var order []string
	candidates := make(map[string]*candidate)
	var ambiguous []ambiguousExport

	for _, star := range stars {
		if star.view.IsDynamic {
			view.IsDynamic = true
		}
		for _, other := range star.view.bindings {
			name := other.ExportedName

			// Star re-exports never include the default export
			if name == "default" || view.Has(name) {
				continue
			}

			if existing, ok := candidates[name]; ok {
				if existing.binding.origin != other.origin && !existing.ambiguous {
					existing.ambiguous = true
					ambiguous = append(ambiguous, ambiguousExport{
						name:   name,
						loc:    star.loc,
						first:  existing.specifier,
						second: star.specifier,
					})
				}
				continue
			}

			order = append(order, name)
			candidates[name] = &candidate{
				specifier: star.specifier,
				binding: ExportBinding{
					LocalName:    name,
					ExportedName: name,
					SourceModule: star.view.Path,
					Loc:          star.loc,
					origin:       other.origin,
				},
			}
		}
	}

	for _, name := range order {
		if c := candidates[name]; !c.ambiguous {
			view.Add(c.binding)
		}
	}
	return ambiguous
}
