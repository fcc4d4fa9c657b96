package api

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/esdown/esdown/internal/api_helpers"
	"github.com/esdown/esdown/internal/ast"
	"github.com/esdown/esdown/internal/config"
	"github.com/esdown/esdown/internal/helpers"
	"github.com/esdown/esdown/internal/js_ast"
	"github.com/esdown/esdown/internal/js_interop"
	"github.com/esdown/esdown/internal/js_lower"
	"github.com/esdown/esdown/internal/js_parser"
	"github.com/esdown/esdown/internal/js_printer"
	"github.com/esdown/esdown/internal/logger"
)

func validateTarget(value Target) config.LanguageTarget {
	switch value {
	case DefaultTarget, ES5:
		return config.ES5
	case ES2015:
		return config.ES2015
	case ES2017:
		return config.ES2017
	case ESNext:
		return config.ESNext
	default:
		panic("Invalid target")
	}
}

func validateFormat(value Format) config.Format {
	switch value {
	case FormatDefault, FormatCommonJS:
		return config.FormatCommonJS
	case FormatPreserve:
		return config.FormatPreserve
	default:
		panic("Invalid format")
	}
}

func validateColor(value StderrColor) logger.UseColor {
	switch value {
	case ColorIfTerminal:
		return logger.ColorIfTerminal
	case ColorNever:
		return logger.ColorNever
	case ColorAlways:
		return logger.ColorAlways
	default:
		panic("Invalid color")
	}
}

func validateLogLevel(value LogLevel) logger.LogLevel {
	switch value {
	case LogLevelVerbose:
		return logger.LevelVerbose
	case LogLevelDebug:
		return logger.LevelDebug
	case LogLevelInfo:
		return logger.LevelInfo
	case LogLevelWarning:
		return logger.LevelWarning
	case LogLevelError:
		return logger.LevelError
	case LogLevelSilent:
		return logger.LevelSilent
	default:
		panic("Invalid log level")
	}
}

func validateLogOverrides(input map[string]LogLevel) map[logger.MsgID]logger.LogLevel {
	if input == nil {
		return nil
	}
	output := make(map[logger.MsgID]logger.LogLevel)
	for k, v := range input {
		logger.StringToMsgIDs(k, validateLogLevel(v), output)
	}
	return output
}

func validateModulePath(log logger.Log, path string, kind string) string {
	if path != "" && strings.TrimSpace(path) != path {
		log.AddError(nil, logger.Loc{}, fmt.Sprintf("Invalid %s module: %q", kind, path))
	}
	return path
}

type logOptions struct {
	color       StderrColor
	errorLimit  int
	logLevel    LogLevel
	logOverride map[string]LogLevel
}

func newLog(options logOptions) logger.Log {
	overrides := validateLogOverrides(options.logOverride)
	if options.logLevel == LogLevelSilent {
		return logger.NewDeferLog(logger.DeferLogNoVerboseOrDebug, overrides)
	}
	logLevel := validateLogLevel(options.logLevel)
	if options.logLevel == LogLevelNone {
		logLevel = logger.LevelInfo
	}
	return logger.NewStderrLog(logger.OutputOptions{
		IncludeSource:         true,
		MessageLevelOverrides: overrides,
		ErrorLimit:            options.errorLimit,
		Color:                 validateColor(options.color),
		LogLevel:              logLevel,
	})
}

func convertMessagesToPublic(kind logger.MsgKind, msgs []logger.Msg) []Message {
	var filtered []Message
	for _, msg := range msgs {
		if msg.Kind != kind {
			continue
		}
		var location *Location
		if loc := msg.Location; loc != nil {
			location = &Location{
				File:     loc.File,
				Line:     loc.Line,
				Column:   loc.Column,
				Length:   loc.Length,
				LineText: loc.LineText,
			}
		}
		filtered = append(filtered, Message{
			ID:       logger.MsgIDToString(msg.ID),
			Text:     msg.Text,
			Location: location,
		})
	}
	return filtered
}

func newTimer() *helpers.Timer {
	if api_helpers.UseTimer {
		return &helpers.Timer{}
	}
	return nil
}

// A panic while compiling one file is reported as an error for that file
// instead of crashing the whole process
func recoverFromPanic(log logger.Log, path string, ok *bool) {
	if r := recover(); r != nil {
		log.AddError(nil, logger.Loc{}, fmt.Sprintf("panic: %v (while compiling %q)\n%s", r, path, helpers.PrettyPrintedStack()))
		*ok = false
	}
}

// The first half of compiling a file. Async functions are lowered before
// the export scan so that the scan sees the final set of declarations.
type parsedFile struct {
	source logger.Source
	tree   js_ast.AST
	record *js_interop.ModuleRecord
	stats  js_lower.Stats
	ok     bool
}

func parseAndLower(log logger.Log, source logger.Source, options config.Options, timer *helpers.Timer) (result parsedFile) {
	result.source = source
	defer recoverFromPanic(log, source.PrettyPath, &result.ok)

	timer.Begin("Parse " + source.PrettyPath)
	tree, ok := js_parser.Parse(log, source)
	timer.End("Parse " + source.PrettyPath)
	if !ok {
		return
	}

	timer.Begin("Lower " + source.PrettyPath)
	tree, result.stats, ok = js_lower.Lower(log, source, tree, options)
	timer.End("Lower " + source.PrettyPath)
	if !ok {
		return
	}

	result.tree = tree
	result.record = js_interop.ScanModule(source, tree)
	result.ok = true
	return
}

func convertAndPrint(log logger.Log, file parsedFile, resolver js_interop.Resolver, options config.Options, timer *helpers.Timer) (code []byte, stats Stats, ok bool) {
	defer recoverFromPanic(log, file.source.PrettyPath, &ok)

	timer.Begin("Convert " + file.source.PrettyPath)
	result, ok := js_interop.Convert(log, file.source, file.tree, resolver, options)
	timer.End("Convert " + file.source.PrettyPath)
	if !ok {
		return nil, Stats{}, false
	}

	timer.Begin("Print " + file.source.PrettyPath)
	code = js_printer.Print(result.AST, js_printer.Options{}).JS
	timer.End("Print " + file.source.PrettyPath)

	stats = Stats{
		LoweredFunctions: file.stats.LoweredFunctions,
		SuspensionPoints: file.stats.SuspensionPoints,
		WholesaleExports: result.Target.WholesaleAssignment.Data != nil,
	}
	if result.Namespace != nil {
		stats.Exports = result.Namespace.Names()
	} else if !stats.WholesaleExports {
		// CommonJS input keeps its own "exports.name = value" assignments
		stats.Exports = result.Target.PropertyNames()
		if result.Target.DefaultValue.Data != nil {
			stats.Exports = append(stats.Exports, "default")
		}
	}
	return code, stats, true
}

////////////////////////////////////////////////////////////////////////////////
// Build API

func osReadFile(path string) (string, error) {
	bytes, err := os.ReadFile(path)
	return string(bytes), err
}

// Looks up relative specifiers among the input files, trying the path as
// written and then with a ".js" extension
func makeResolvePath(paths map[string]bool) func(importer string, specifier string) (string, bool) {
	return func(importer string, specifier string) (string, bool) {
		if !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") && !strings.HasPrefix(specifier, "/") {
			return "", false
		}
		path := specifier
		if !filepath.IsAbs(specifier) {
			path = filepath.Join(filepath.Dir(importer), specifier)
		}
		for _, candidate := range []string{path, path + ".js", filepath.Join(path, "index.js")} {
			if paths[candidate] {
				return candidate, true
			}
		}
		return path, false
	}
}

func lowestCommonAncestorDirectory(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	common := filepath.Dir(paths[0])
	for _, path := range paths[1:] {
		dir := filepath.Dir(path)
		for common != dir && !strings.HasPrefix(dir, common+string(filepath.Separator)) {
			parent := filepath.Dir(common)
			if parent == common {
				break
			}
			common = parent
		}
	}
	return common
}

func buildImpl(options BuildOptions, readFile func(path string) (string, error)) BuildResult {
	log := newLog(logOptions{
		color:       options.Color,
		errorLimit:  options.ErrorLimit,
		logLevel:    options.LogLevel,
		logOverride: options.LogOverride,
	})
	timer := newTimer()
	defer timer.Log(Logger())

	// Convert and validate the options
	compileOptions := config.Options{
		Target:            validateTarget(options.Target),
		OutputFormat:      validateFormat(options.Format),
		HelpersModule:     validateModulePath(log, options.HelpersModule, "helpers"),
		RegeneratorModule: validateModulePath(log, options.RegeneratorModule, "regenerator"),
	}
	paths := make([]string, len(options.EntryPoints))
	pathSet := make(map[string]bool, len(paths))
	for i, entryPoint := range options.EntryPoints {
		path := filepath.Clean(entryPoint)
		if pathSet[path] {
			log.AddError(nil, logger.Loc{}, fmt.Sprintf("Duplicate entry point %q", entryPoint))
		}
		paths[i] = path
		pathSet[path] = true
	}
	if options.Write && options.Outdir == "" {
		log.AddError(nil, logger.Loc{}, "Must use \"outdir\" when writing output files")
	}

	// Stop now if there were errors
	if log.HasErrors() {
		msgs := log.Done()
		return BuildResult{
			Errors:   convertMessagesToPublic(logger.Error, msgs),
			Warnings: convertMessagesToPublic(logger.Warning, msgs),
		}
	}

	// Parse and lower all files in parallel
	timer.Begin("Scan phase")
	files := make([]parsedFile, len(paths))
	forks := make([]*helpers.Timer, 0, len(paths)*2)
	waitGroup := sync.WaitGroup{}
	for i, path := range paths {
		contents, err := readFile(path)
		if err != nil {
			log.AddError(nil, logger.Loc{}, fmt.Sprintf("Could not read from file %q: %s", path, err.Error()))
			continue
		}
		source := logger.Source{
			Index:          uint32(i),
			PrettyPath:     path,
			Contents:       contents,
			IdentifierName: ast.GenerateNonUniqueNameFromPath(path),
		}
		fork := timer.Fork()
		forks = append(forks, fork)
		waitGroup.Add(1)
		go func(i int, source logger.Source) {
			files[i] = parseAndLower(log, source, compileOptions, fork)
			waitGroup.Done()
		}(i, source)
	}
	waitGroup.Wait()
	for _, fork := range forks {
		timer.Join(fork)
	}
	forks = forks[:0]
	timer.End("Scan phase")

	// Every namespace can be resolved now
	var records []*js_interop.ModuleRecord
	for _, file := range files {
		if file.ok {
			records = append(records, file.record)
		}
	}
	resolver := js_interop.NewGraphResolver(records, makeResolvePath(pathSet))

	// Convert and print all files in parallel
	timer.Begin("Compile phase")
	outputFiles := make([]*OutputFile, len(files))
	for i, file := range files {
		if !file.ok {
			continue
		}
		fork := timer.Fork()
		forks = append(forks, fork)
		waitGroup.Add(1)
		go func(i int, file parsedFile) {
			if code, stats, ok := convertAndPrint(log, file, resolver, compileOptions, fork); ok {
				outputFiles[i] = &OutputFile{Path: file.source.PrettyPath, Contents: code, Stats: stats}
			}
			waitGroup.Done()
		}(i, file)
	}
	waitGroup.Wait()
	for _, fork := range forks {
		timer.Join(fork)
	}
	timer.End("Compile phase")

	// Place the output files relative to the common directory of the inputs
	var result []OutputFile
	if options.Outdir != "" {
		base := lowestCommonAncestorDirectory(paths)
		for _, file := range outputFiles {
			if file == nil {
				continue
			}
			if rel, err := filepath.Rel(base, file.Path); err == nil {
				file.Path = filepath.Join(options.Outdir, rel)
			} else {
				file.Path = filepath.Join(options.Outdir, filepath.Base(file.Path))
			}
		}
	}
	for _, file := range outputFiles {
		if file != nil {
			result = append(result, *file)
		}
	}

	if options.Write {
		for _, file := range result {
			if err := os.MkdirAll(filepath.Dir(file.Path), 0755); err != nil {
				log.AddError(nil, logger.Loc{}, fmt.Sprintf("Failed to create output directory: %s", err.Error()))
				continue
			}
			if err := os.WriteFile(file.Path, file.Contents, 0644); err != nil {
				log.AddError(nil, logger.Loc{}, fmt.Sprintf("Failed to write to output file: %s", err.Error()))
			}
		}
	}

	msgs := log.Done()
	Logger().Debug("build finished",
		zap.Int("inputs", len(paths)),
		zap.Int("outputs", len(result)),
		zap.Int("errors", len(convertMessagesToPublic(logger.Error, msgs))))
	return BuildResult{
		Errors:      convertMessagesToPublic(logger.Error, msgs),
		Warnings:    convertMessagesToPublic(logger.Warning, msgs),
		OutputFiles: result,
	}
}

////////////////////////////////////////////////////////////////////////////////
// Transform API

func transformImpl(input string, options TransformOptions) TransformResult {
	log := newLog(logOptions{
		color:       options.Color,
		errorLimit:  options.ErrorLimit,
		logLevel:    options.LogLevel,
		logOverride: options.LogOverride,
	})
	timer := newTimer()
	defer timer.Log(Logger())

	// Convert and validate the options
	compileOptions := config.Options{
		Target:            validateTarget(options.Target),
		OutputFormat:      validateFormat(options.Format),
		HelpersModule:     validateModulePath(log, options.HelpersModule, "helpers"),
		RegeneratorModule: validateModulePath(log, options.RegeneratorModule, "regenerator"),
	}

	// Stop now if there were errors
	if log.HasErrors() {
		msgs := log.Done()
		return TransformResult{
			Errors:   convertMessagesToPublic(logger.Error, msgs),
			Warnings: convertMessagesToPublic(logger.Warning, msgs),
		}
	}

	sourcefile := options.Sourcefile
	if sourcefile == "" {
		sourcefile = "<stdin>"
	}
	source := logger.Source{
		PrettyPath:     sourcefile,
		Contents:       input,
		IdentifierName: "stdin",
	}

	var code []byte
	var stats Stats
	if file := parseAndLower(log, source, compileOptions, timer); file.ok {
		code, stats, _ = convertAndPrint(log, file, js_interop.DynamicResolver{}, compileOptions, timer)
	}

	msgs := log.Done()
	return TransformResult{
		Errors:   convertMessagesToPublic(logger.Error, msgs),
		Warnings: convertMessagesToPublic(logger.Warning, msgs),
		Code:     code,
		Stats:    stats,
	}
}
