package js_interop

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/esdown/esdown/internal/ast"
	"github.com/esdown/esdown/internal/config"
	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/logger"
	"github.com/esdown/esdown/internal/runtime"
)

type Result struct {
	AST       js_ast.AST
	Target    CommonJsTarget
	Namespace *ModuleNamespaceView
}

type converter struct {
	log      logger.Log
	source   logger.Source
	tree     js_ast.AST
	resolver Resolver
	options  config.Options
	used     map[string]bool

	helpersRef   string
	needsHelpers bool
	hasErrors    bool

	// Keyed by specifier. Unresolved modules map to nil.
	resolved map[string]*ModuleNamespaceView

	// Imported names and the module properties that replace them
	importRefs map[string]js_ast.EImportIdentifier

	exportValues map[string]js_ast.Expr
	stars        []starSource
	starRefs     map[string]string
}

// Converts an ES module to CommonJS. Modules without import or export
// statements are returned unchanged, which makes the conversion idempotent.
// The result is only usable if "ok" is true: an import of a module that can't
// be resolved fails the conversion of this module.
func Convert(log logger.Log, source logger.Source, tree js_ast.AST, resolver Resolver, options config.Options) (result Result, ok bool) {
	result.AST = tree
	if options.OutputFormat.KeepES6ImportExportSyntax() || !tree.HasESMSyntax {
		result.Target = DetectCommonJsTarget(tree.Stmts)
		return result, true
	}

	c := &converter{
		log:          log,
		source:       source,
		tree:         tree,
		resolver:     resolver,
		options:      options,
		used:         make(map[string]bool, len(tree.UsedNames)),
		resolved:     make(map[string]*ModuleNamespaceView),
		importRefs:   make(map[string]js_ast.EImportIdentifier),
		exportValues: make(map[string]js_ast.Expr),
		starRefs:     make(map[string]string),
	}
	for name := range tree.UsedNames {
		c.used[name] = true
	}
	c.findHelpersImport()

	directives, body := c.convertStmts()
	body = c.mapLiveRefs(body)
	namespace := c.buildNamespace()
	target := c.buildTarget(body, namespace)

	stmts := make([]js_ast.Stmt, 0, len(directives)+len(body)+len(target.NamedProperties)+4)
	if !hasDirective(directives, "use strict") {
		stmts = append(stmts, js_ast.Stmt{Data: &js_ast.SDirective{Value: "use strict"}})
	}
	stmts = append(stmts, directives...)
	stmts = append(stmts, EmitTarget(target)...)
	if c.needsHelpers {
		stmts = append(stmts, varStmt(logger.Loc{}, c.helpersRef, c.require(c.options.HelpersModuleOrDefault())))
	}
	stmts = append(stmts, body...)

	records := make([]ast.ImportRecord, len(tree.ImportRecords))
	for i, record := range tree.ImportRecords {
		record.Kind = ast.ImportRequire
		records[i] = record
	}

	result.AST.Stmts = stmts
	result.AST.ImportRecords = records
	result.AST.UsedNames = c.used
	result.AST.HasESMSyntax = false
	result.AST.UsesExportsRef = true
	result.Target = target
	result.Namespace = namespace

	Logger().Debug("converted module",
		zap.String("path", source.PrettyPath),
		zap.Strings("exports", namespace.Names()),
		zap.Bool("wholesale", target.WholesaleAssignment.Data != nil),
		zap.Bool("ok", !c.hasErrors))
	return result, !c.hasErrors
}

func hasDirective(directives []js_ast.Stmt, value string) bool {
	for _, stmt := range directives {
		if d, ok := stmt.Data.(*js_ast.SDirective); ok && d.Value == value {
			return true
		}
	}
	return false
}

// Reuses the namespace that the async lowering pass imported the helpers
// module into, if there is one
func (c *converter) findHelpersImport() {
	helpersPath := c.options.HelpersModuleOrDefault()
	for _, stmt := range c.tree.Stmts {
		if s, ok := stmt.Data.(*js_ast.SImport); ok && s.NamespaceName != nil && s.DefaultName == nil &&
			c.tree.ImportRecords[s.ImportRecordIndex].Path == helpersPath {
			c.helpersRef = s.NamespaceName.Name
			return
		}
	}
}

func (c *converter) helpers() string {
	if c.helpersRef == "" {
		c.helpersRef = js_ast.GenerateUniqueName(c.used, runtime.HelpersRef)
		c.needsHelpers = true
	}
	return c.helpersRef
}

func (c *converter) resolve(specifier string, loc logger.Loc) *ModuleNamespaceView {
	if view, ok := c.resolved[specifier]; ok {
		return view
	}
	view, err := c.resolver.Resolve(c.source.PrettyPath, specifier)
	if err != nil {
		var unresolved *UnresolvedModuleError
		if errors.As(err, &unresolved) {
			c.log.AddError(&c.source, loc, fmt.Sprintf("Could not resolve %q", specifier))
		} else {
			c.log.AddError(&c.source, loc, err.Error())
		}
		c.hasErrors = true
		view = nil
	}
	c.resolved[specifier] = view
	return view
}

// Returns a name like "_util" for "./util.js"
func (c *converter) moduleRef(specifier string) string {
	for _, ext := range []string{".js", ".mjs", ".cjs"} {
		if strings.HasSuffix(specifier, ext) {
			specifier = specifier[:len(specifier)-len(ext)]
			break
		}
	}
	return js_ast.GenerateUniqueName(c.used, "_"+ast.GenerateNonUniqueNameFromPath(specifier))
}

func (c *converter) require(path string) js_ast.Expr {
	return js_ast.Call(js_ast.Ident(logger.Loc{}, "require"), js_ast.Str(logger.Loc{}, path))
}

func (c *converter) interop(helper string, value js_ast.Expr) js_ast.Expr {
	return js_ast.Call(js_ast.Dot(js_ast.Ident(value.Loc, c.helpers()), helper), value)
}

func liveRef(ref string, name string) js_ast.EImportIdentifier {
	return js_ast.EImportIdentifier{Namespace: ref, Alias: name}
}

func varStmt(loc logger.Loc, name string, value js_ast.Expr) js_ast.Stmt {
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: []js_ast.Decl{{
		Binding:    js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: name}},
		ValueOrNil: value,
	}}}}
}

func (c *converter) convertStmts() (directives []js_ast.Stmt, body []js_ast.Stmt) {
	declared := moduleScopeNames(c.tree.Stmts)
	for _, stmt := range c.tree.Stmts {
		switch s := stmt.Data.(type) {
		case *js_ast.SDirective:
			directives = append(directives, stmt)

		case *js_ast.SImport:
			body = append(body, c.convertImport(stmt.Loc, s))

		case *js_ast.SExportFrom:
			record := c.tree.ImportRecords[s.ImportRecordIndex]
			c.resolve(record.Path, record.Range.Loc)
			ref := c.moduleRef(record.Path)
			value := c.require(record.Path)
			if record.Flags.Has(ast.ContainsDefaultAlias) {
				value = c.interop(runtime.InteropRequireWildcard, value)
			}
			body = append(body, varStmt(stmt.Loc, ref, value))
			for _, item := range s.Items {
				c.exportValues[item.Alias] = js_ast.Dot(js_ast.Ident(item.Name.Loc, ref), item.Name.Name)
			}

		case *js_ast.SExportStar:
			record := c.tree.ImportRecords[s.ImportRecordIndex]
			view := c.resolve(record.Path, record.Range.Loc)
			ref := c.moduleRef(record.Path)

			// "export * as ns from 'path'"
			if s.Alias != nil {
				body = append(body, varStmt(stmt.Loc, ref, c.interop(runtime.InteropRequireWildcard, c.require(record.Path))))
				c.exportValues[s.Alias.Alias] = js_ast.Ident(s.Alias.AliasLoc, ref)
				break
			}

			body = append(body, varStmt(stmt.Loc, ref, c.require(record.Path)))
			if view == nil {
				break
			}
			c.stars = append(c.stars, starSource{specifier: record.Path, loc: stmt.Loc, view: view})
			if _, ok := c.starRefs[view.Path]; !ok {
				c.starRefs[view.Path] = ref
			}

			// Names that can't be found ahead of time are copied at run time.
			// The helper skips names that are already defined on "exports".
			if view.IsDynamic {
				exportStar := js_ast.Call(js_ast.Dot(js_ast.Ident(stmt.Loc, c.helpers()), runtime.ExportStar),
					js_ast.Ident(stmt.Loc, ref), js_ast.Ident(stmt.Loc, "exports"))
				body = append(body, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SExpr{Value: exportStar}})
				c.log.AddID(logger.MsgID_Interop_DynamicReexport, logger.Debug, &c.source, record.Range,
					fmt.Sprintf("The exports of %q will be copied at run time because they cannot be determined ahead of time", record.Path))
			}

		case *js_ast.SExportClause:
			// Undeclared names are bound to a star re-export later
			for _, item := range s.Items {
				if declared[item.Name.Name] {
					c.exportValues[item.Alias] = js_ast.Ident(item.Name.Loc, item.Name.Name)
				}
			}

		case *js_ast.SExportDefault:
			switch value := s.Value.Data.(type) {
			case *js_ast.SFunction:
				fn := value.Fn
				if fn.Name == nil {
					fn.Name = &js_ast.LocName{Loc: s.Value.Loc, Name: js_ast.GenerateUniqueName(c.used, "_default")}
				}
				body = append(body, js_ast.Stmt{Loc: s.Value.Loc, Data: &js_ast.SFunction{Fn: fn}})
				c.exportValues["default"] = js_ast.Ident(fn.Name.Loc, fn.Name.Name)

			case *js_ast.SClass:
				class := value.Class
				if class.Name == nil {
					class.Name = &js_ast.LocName{Loc: s.Value.Loc, Name: js_ast.GenerateUniqueName(c.used, "_default")}
				}
				body = append(body, js_ast.Stmt{Loc: s.Value.Loc, Data: &js_ast.SClass{Class: class}})
				c.exportValues["default"] = js_ast.Ident(class.Name.Loc, class.Name.Name)

			case *js_ast.SExpr:
				name := js_ast.GenerateUniqueName(c.used, "_default")
				body = append(body, varStmt(s.Value.Loc, name, value.Value))
				c.exportValues["default"] = js_ast.Ident(s.Value.Loc, name)
			}

		case *js_ast.SLocal:
			if s.IsExport {
				clone := *s
				clone.IsExport = false
				for _, decl := range s.Decls {
					if id, ok := decl.Binding.Data.(*js_ast.BIdentifier); ok {
						c.exportValues[id.Name] = js_ast.Ident(decl.Binding.Loc, id.Name)
					}
				}
				stmt = js_ast.Stmt{Loc: stmt.Loc, Data: &clone}
			}
			body = append(body, stmt)

		case *js_ast.SFunction:
			if s.IsExport {
				c.exportValues[s.Fn.Name.Name] = js_ast.Ident(s.Fn.Name.Loc, s.Fn.Name.Name)
				stmt = js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SFunction{Fn: s.Fn}}
			}
			body = append(body, stmt)

		case *js_ast.SClass:
			if s.IsExport {
				c.exportValues[s.Class.Name.Name] = js_ast.Ident(s.Class.Name.Loc, s.Class.Name.Name)
				stmt = js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SClass{Class: s.Class}}
			}
			body = append(body, stmt)

		default:
			body = append(body, stmt)
		}
	}
	return
}

func (c *converter) convertImport(loc logger.Loc, s *js_ast.SImport) js_ast.Stmt {
	record := c.tree.ImportRecords[s.ImportRecordIndex]
	path := record.Path
	require := c.require(path)

	// The runtime modules don't need to be part of the build
	if path != c.options.HelpersModuleOrDefault() && path != c.options.RegeneratorModuleOrDefault() {
		c.resolve(path, record.Range.Loc)
	}

	// "import 'path'"
	if s.DefaultName == nil && s.NamespaceName == nil && s.Items == nil {
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: require}}
	}

	// The runtime modules are CommonJS and are used without an interop helper
	if s.Items == nil {
		if path == c.options.HelpersModuleOrDefault() && s.NamespaceName != nil && s.DefaultName == nil {
			return varStmt(loc, s.NamespaceName.Name, require)
		}
		if path == c.options.RegeneratorModuleOrDefault() && s.DefaultName != nil && s.NamespaceName == nil {
			return varStmt(loc, s.DefaultName.Name, require)
		}
	}

	// "import * as ns from 'path'" keeps the namespace name
	if s.NamespaceName != nil {
		ref := s.NamespaceName.Name
		if s.DefaultName != nil {
			c.importRefs[s.DefaultName.Name] = liveRef(ref, "default")
		}
		return varStmt(loc, ref, c.interop(runtime.InteropRequireWildcard, require))
	}

	ref := c.moduleRef(path)
	value := require
	if s.DefaultName != nil || record.Flags.Has(ast.ContainsDefaultAlias) {
		if s.Items == nil {
			value = c.interop(runtime.InteropRequireDefault, require)
		} else {
			value = c.interop(runtime.InteropRequireWildcard, require)
		}
	}
	if s.DefaultName != nil {
		c.importRefs[s.DefaultName.Name] = liveRef(ref, "default")
	}
	if s.Items != nil {
		for _, item := range *s.Items {
			c.importRefs[item.Name.Name] = liveRef(ref, item.Alias)
		}
	}
	return varStmt(loc, ref, value)
}

// Replaces each use of an imported binding with a property read from the
// required module
func (c *converter) mapper() *js_ast.Mapper {
	return &js_ast.Mapper{
		Expr: func(expr js_ast.Expr) js_ast.Expr {
			if id, ok := expr.Data.(*js_ast.EIdentifier); ok {
				if ref, ok := c.importRefs[id.Name]; ok {
					return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EImportIdentifier{Namespace: ref.Namespace, Alias: ref.Alias}}
				}
			}
			return expr
		},

		// A function with a parameter named like an import refers to the
		// parameter instead
		EnterFn: func(args []js_ast.Arg, isArrow bool) bool {
			for _, arg := range args {
				if id, ok := arg.Binding.Data.(*js_ast.BIdentifier); ok {
					if _, ok := c.importRefs[id.Name]; ok {
						return false
					}
				}
			}
			return true
		},
	}
}

func (c *converter) mapLiveRefs(body []js_ast.Stmt) []js_ast.Stmt {
	if len(c.importRefs) == 0 {
		return body
	}
	m := c.mapper()
	for name, value := range c.exportValues {
		c.exportValues[name] = m.MapExpr(value)
	}
	return m.Stmts(body)
}

func (c *converter) buildNamespace() *ModuleNamespaceView {
	exports, _ := scanExports(c.tree)
	namespace, ambiguous, missing := buildNamespace(c.source.PrettyPath, exports, c.stars, func(specifier string) *ModuleNamespaceView {
		return c.resolved[specifier]
	})

	for _, export := range missing {
		c.log.AddError(&c.source, export.loc, fmt.Sprintf("%q is not declared in this file", export.localName))
		c.hasErrors = true
	}

	for _, a := range ambiguous {
		c.log.AddID(logger.MsgID_Interop_AmbiguousReexport, logger.Warning, &c.source, logger.Range{Loc: a.loc},
			fmt.Sprintf("Re-export of %q is ambiguous and has been removed because both %q and %q export it", a.name, a.first, a.second))
	}
	return namespace
}

func (c *converter) buildTarget(body []js_ast.Stmt, namespace *ModuleNamespaceView) CommonJsTarget {
	// "module.exports = value" in an ES module replaces the exports object,
	// and with it every export declaration
	if detected := DetectCommonJsTarget(body); detected.WholesaleAssignment.Data != nil {
		if namespace.Len() > 0 || len(c.stars) > 0 {
			c.log.AddID(logger.MsgID_Interop_CommonJSMixedWithESM, logger.Warning, &c.source, logger.Range{Loc: detected.WholesaleAssignment.Loc},
				"This assignment to \"module.exports\" replaces the exports object, so the export declarations in this file have no effect")
		}
		return CommonJsTarget{WholesaleAssignment: detected.WholesaleAssignment}
	}

	var target CommonJsTarget
	for _, binding := range namespace.bindings {
		value, ok := c.exportValues[binding.ExportedName]
		if !ok {
			// This name comes from a star re-export
			ref := c.starRefs[binding.SourceModule]
			value = js_ast.Dot(js_ast.Ident(binding.Loc, ref), binding.LocalName)
		}
		target.setProperty(binding.ExportedName, value)
	}
	return target
}
