package js_interop

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

func isRelativeSpecifier(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") ||
		specifier == "." || specifier == ".." || strings.HasPrefix(specifier, "/")
}

// Used for modules whose exports can't be known ahead of time
func dynamicView(path string) *ModuleNamespaceView {
	view := NewModuleNamespaceView(path)
	view.IsDynamic = true
	return view
}

// Treats every module as external. This is used when a single file is
// transformed on its own: star re-exports are then copied at run time.
type DynamicResolver struct{}

func (DynamicResolver) Resolve(importer string, specifier string) (*ModuleNamespaceView, error) {
	return dynamicView(specifier), nil
}

// Resolves modules against the set of files that are compiled together.
// Relative specifiers must refer to one of those files. Other specifiers name
// packages, which are treated as external.
type GraphResolver struct {
	records     map[string]*ModuleRecord
	resolvePath func(importer string, specifier string) (string, bool)

	mutex sync.Mutex
	cache map[string]*ModuleNamespaceView
}

func NewGraphResolver(records []*ModuleRecord, resolvePath func(importer string, specifier string) (string, bool)) *GraphResolver {
	r := &GraphResolver{
		records:     make(map[string]*ModuleRecord, len(records)),
		resolvePath: resolvePath,
		cache:       make(map[string]*ModuleNamespaceView),
	}
	for _, record := range records {
		r.records[record.Path] = record
	}
	return r
}

func (r *GraphResolver) Resolve(importer string, specifier string) (*ModuleNamespaceView, error) {
	path, ok := r.resolvePath(importer, specifier)
	if !ok {
		if isRelativeSpecifier(specifier) {
			return nil, &UnresolvedModuleError{Importer: importer, Specifier: specifier}
		}
		return dynamicView(specifier), nil
	}

	r.mutex.Lock()
	view, ok := r.cache[path]
	r.mutex.Unlock()
	if ok {
		return view, nil
	}

	view = r.namespace(path, nil)
	Logger().Debug("resolved module namespace",
		zap.String("importer", importer),
		zap.String("specifier", specifier),
		zap.String("path", path),
		zap.Strings("exports", view.Names()),
		zap.Bool("dynamic", view.IsDynamic))

	r.mutex.Lock()
	r.cache[path] = view
	r.mutex.Unlock()
	return view, nil
}

// Only complete namespaces are cached. Namespaces computed while a cycle is
// being broken may be missing names, so they are rebuilt on every visit.
func (r *GraphResolver) namespace(path string, stack []string) *ModuleNamespaceView {
	// Avoid infinite loops due to cycles in the export star graph
	for _, prev := range stack {
		if prev == path {
			return NewModuleNamespaceView(path)
		}
	}
	stack = append(stack, path)

	record, ok := r.records[path]
	if !ok {
		return dynamicView(path)
	}

	if record.IsCommonJS {
		view := dynamicView(path)
		if record.Target.WholesaleAssignment.Data == nil {
			for _, property := range record.Target.NamedProperties {
				view.Add(ExportBinding{LocalName: property.Name, ExportedName: property.Name})
			}
		}
		return view
	}

	resolve := func(specifier string) *ModuleNamespaceView {
		childPath, ok := r.resolvePath(path, specifier)
		if !ok {
			if isRelativeSpecifier(specifier) {
				return nil
			}
			return dynamicView(specifier)
		}
		return r.namespace(childPath, stack)
	}

	var stars []starSource
	for _, star := range record.stars {
		if view := resolve(star.specifier); view != nil {
			stars = append(stars, starSource{specifier: star.specifier, loc: star.loc, view: view})
		}
	}

	// Ambiguous names are reported when the module itself is converted
	view, _, _ := buildNamespace(path, record.exports, stars, resolve)
	return view
}
