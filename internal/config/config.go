package config

type LanguageTarget int8

const (
	// These are arranged such that ESNext is the default zero value and such
	// that earlier releases are less than later releases
	ES5    LanguageTarget = -3
	ES2015 LanguageTarget = -2
	ES2017 LanguageTarget = -1
	ESNext LanguageTarget = 0
)

// Async functions first appeared in ES2017
func (target LanguageTarget) SupportsAsync() bool {
	return target >= ES2017
}

// Classes first appeared in ES2015
func (target LanguageTarget) SupportsClasses() bool {
	return target >= ES2015
}

// Top-level await is only valid in an ES module on an engine that has it
func (target LanguageTarget) SupportsTopLevelAwait() bool {
	return target >= ESNext
}

func (target LanguageTarget) String() string {
	switch target {
	case ES5:
		return "es5"
	case ES2015:
		return "es2015"
	case ES2017:
		return "es2017"
	case ESNext:
		return "esnext"
	}
	return ""
}

type Format uint8

const (
	// This means to preserve whatever form the import or export was originally
	// in. ES6 syntax stays ES6 syntax and CommonJS syntax stays CommonJS syntax.
	FormatPreserve Format = iota

	// The CommonJS format looks like this:
	//
	//   "use strict";
	//   Object.defineProperty(exports, "__esModule", { value: true });
	//   Object.defineProperty(exports, "name", { enumerable: true, get: ... });
	//   ... module code ...
	//
	FormatCommonJS
)

func (f Format) KeepES6ImportExportSyntax() bool {
	return f == FormatPreserve
}

func (f Format) String() string {
	switch f {
	case FormatPreserve:
		return "preserve"
	case FormatCommonJS:
		return "cjs"
	}
	return ""
}

const (
	DefaultHelpersModule     = "@esdown/helpers"
	DefaultRegeneratorModule = "regenerator-runtime"
)

type Options struct {
	Target       LanguageTarget
	OutputFormat Format

	// The module that provides "asyncToGenerator", "classCallCheck",
	// "createClass" and the interop helpers
	HelpersModule string

	// The module that provides the "regeneratorRuntime" global
	RegeneratorModule string

	// If true, the runtime imports are not added to lowered files. Tests use
	// this to keep expected outputs short.
	OmitRuntimeImportsForTests bool
}

func (options *Options) HelpersModuleOrDefault() string {
	if options.HelpersModule != "" {
		return options.HelpersModule
	}
	return DefaultHelpersModule
}

func (options *Options) RegeneratorModuleOrDefault() string {
	if options.RegeneratorModule != "" {
		return options.RegeneratorModule
	}
	return DefaultRegeneratorModule
}
