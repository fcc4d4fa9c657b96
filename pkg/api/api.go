package api

type Target uint8

const (
	DefaultTarget Target = iota
	ESNext
	ES2017
	ES2015
	ES5
)

type Format uint8

const (
	FormatDefault Format = iota
	FormatPreserve
	FormatCommonJS
)

type Location struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, in bytes
	Length   int // in bytes
	LineText string
}

type Message struct {
	ID       string
	Text     string
	Location *Location
}

type StderrColor uint8

const (
	ColorIfTerminal StderrColor = iota
	ColorNever
	ColorAlways
)

type LogLevel uint8

const (
	LogLevelNone LogLevel = iota
	LogLevelVerbose
	LogLevelDebug
	LogLevelInfo
	LogLevelWarning
	LogLevelError
	LogLevelSilent
)

// What the compiler did to one file
type Stats struct {
	LoweredFunctions int
	SuspensionPoints int

	// The exported names of the module in declaration order, or nil if the
	// module was not converted
	Exports []string

	// True if "module.exports" is replaced by a single assignment
	WholesaleExports bool
}

////////////////////////////////////////////////////////////////////////////////
// Build API

type BuildOptions struct {
	Color       StderrColor
	ErrorLimit  int
	LogLevel    LogLevel
	LogOverride map[string]LogLevel

	Target            Target
	Format            Format
	HelpersModule     string
	RegeneratorModule string

	// If empty, output files are given the paths of their input files
	Outdir string

	// Write the output files to the file system
	Write bool

	EntryPoints []string
}

type BuildResult struct {
	Errors   []Message
	Warnings []Message

	OutputFiles []OutputFile
}

type OutputFile struct {
	Path     string
	Contents []byte
	Stats    Stats
}

// Compiles all entry points together. Relative imports between them are
// resolved so that star re-exports can be merged ahead of time. Files that
// fail to compile are left out of the result without affecting the others.
func Build(options BuildOptions) BuildResult {
	return buildImpl(options, osReadFile)
}

////////////////////////////////////////////////////////////////////////////////
// Transform API

type TransformOptions struct {
	Color       StderrColor
	ErrorLimit  int
	LogLevel    LogLevel
	LogOverride map[string]LogLevel

	Target            Target
	Format            Format
	HelpersModule     string
	RegeneratorModule string

	Sourcefile string
}

type TransformResult struct {
	Errors   []Message
	Warnings []Message

	Code  []byte
	Stats Stats
}

// Compiles a single module. Other modules are not available, so names that
// come from star re-exports are copied at run time.
func Transform(input string, options TransformOptions) TransformResult {
	return transformImpl(input, options)
}
