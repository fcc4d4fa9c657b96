package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/esdown/esdown/internal/helpers"
	"github.com/esdown/esdown/internal/logger"
	"github.com/esdown/esdown/pkg/api"
)

func newBuildOptions() api.BuildOptions {
	return api.BuildOptions{
		LogOverride: make(map[string]api.LogLevel),
	}
}

func newTransformOptions() api.TransformOptions {
	return api.TransformOptions{
		LogOverride: make(map[string]api.LogLevel),
	}
}

// Options that only affect the CLI itself
type parseOptionsExtras struct {
	summary bool
}

var validFlags = []string{
	"--color",
	"--error-limit",
	"--format",
	"--helpers",
	"--log-level",
	"--log-override",
	"--outdir",
	"--regenerator",
	"--sourcefile",
	"--summary",
	"--target",
}

// Returns a helpful error for a flag that was mistyped
func invalidFlagError(arg string, isBuild bool) error {
	kind := "transform"
	if isBuild {
		kind = "build"
	}

	name := arg
	if i := strings.IndexAny(name, "=:"); i != -1 {
		name = name[:i]
	}
	typoDetector := helpers.MakeTypoDetector(validFlags)
	if corrected, ok := typoDetector.MaybeCorrectTypo(name); ok {
		return fmt.Errorf("Invalid %s flag: %q (did you mean %q?)", kind, arg, corrected+arg[len(name):])
	}
	return fmt.Errorf("Invalid %s flag: %q", kind, arg)
}

func parseLogLevel(value string) (api.LogLevel, error) {
	switch value {
	case "verbose":
		return api.LogLevelVerbose, nil
	case "debug":
		return api.LogLevelDebug, nil
	case "info":
		return api.LogLevelInfo, nil
	case "warning":
		return api.LogLevelWarning, nil
	case "error":
		return api.LogLevelError, nil
	case "silent":
		return api.LogLevelSilent, nil
	default:
		return api.LogLevelNone, fmt.Errorf("Invalid log level: %q (valid: verbose, debug, info, warning, error, silent)", value)
	}
}

func parseOptionsImpl(osArgs []string, buildOpts *api.BuildOptions, transformOpts *api.TransformOptions) (extras parseOptionsExtras, err error) {
	// Both option types share these fields
	var color *api.StderrColor
	var errorLimit *int
	var logLevel *api.LogLevel
	var logOverride map[string]api.LogLevel
	var target *api.Target
	var format *api.Format
	var helpersModule *string
	var regeneratorModule *string
	if buildOpts != nil {
		color, errorLimit, logLevel, logOverride = &buildOpts.Color, &buildOpts.ErrorLimit, &buildOpts.LogLevel, buildOpts.LogOverride
		target, format = &buildOpts.Target, &buildOpts.Format
		helpersModule, regeneratorModule = &buildOpts.HelpersModule, &buildOpts.RegeneratorModule
	} else {
		color, errorLimit, logLevel, logOverride = &transformOpts.Color, &transformOpts.ErrorLimit, &transformOpts.LogLevel, transformOpts.LogOverride
		target, format = &transformOpts.Target, &transformOpts.Format
		helpersModule, regeneratorModule = &transformOpts.HelpersModule, &transformOpts.RegeneratorModule
	}

	for _, arg := range osArgs {
		switch {
		case arg == "--summary":
			extras.summary = true

		case strings.HasPrefix(arg, "--outdir=") && buildOpts != nil:
			buildOpts.Outdir = arg[len("--outdir="):]

		case strings.HasPrefix(arg, "--sourcefile=") && transformOpts != nil:
			transformOpts.Sourcefile = arg[len("--sourcefile="):]

		case strings.HasPrefix(arg, "--helpers="):
			*helpersModule = arg[len("--helpers="):]

		case strings.HasPrefix(arg, "--regenerator="):
			*regeneratorModule = arg[len("--regenerator="):]

		case strings.HasPrefix(arg, "--target="):
			value := arg[len("--target="):]
			switch strings.ToLower(value) {
			case "es5":
				*target = api.ES5
			case "es6", "es2015":
				*target = api.ES2015
			case "es2017":
				*target = api.ES2017
			case "esnext":
				*target = api.ESNext
			default:
				return parseOptionsExtras{}, fmt.Errorf("Invalid target: %q (valid: es5, es6, es2015, es2017, esnext)", value)
			}

		case strings.HasPrefix(arg, "--format="):
			value := arg[len("--format="):]
			switch value {
			case "cjs":
				*format = api.FormatCommonJS
			case "preserve":
				*format = api.FormatPreserve
			default:
				return parseOptionsExtras{}, fmt.Errorf("Invalid format: %q (valid: cjs, preserve)", value)
			}

		case strings.HasPrefix(arg, "--color="):
			value := arg[len("--color="):]
			switch value {
			case "false":
				*color = api.ColorNever
			case "true":
				*color = api.ColorAlways
			default:
				return parseOptionsExtras{}, fmt.Errorf("Invalid color: %q (valid: false, true)", value)
			}

		case strings.HasPrefix(arg, "--error-limit="):
			value := arg[len("--error-limit="):]
			limit, err := strconv.Atoi(value)
			if err != nil || limit < 0 {
				return parseOptionsExtras{}, fmt.Errorf("Invalid error limit: %q", value)
			}
			*errorLimit = limit

		case strings.HasPrefix(arg, "--log-level="):
			level, err := parseLogLevel(arg[len("--log-level="):])
			if err != nil {
				return parseOptionsExtras{}, err
			}
			*logLevel = level

		case strings.HasPrefix(arg, "--log-override:"):
			value := arg[len("--log-override:"):]
			equals := strings.IndexByte(value, '=')
			if equals == -1 {
				return parseOptionsExtras{}, fmt.Errorf("Missing \"=\" in %q", arg)
			}
			level, err := parseLogLevel(value[equals+1:])
			if err != nil {
				return parseOptionsExtras{}, err
			}
			logOverride[value[:equals]] = level

		case strings.HasPrefix(arg, "'--"):
			return parseOptionsExtras{}, fmt.Errorf("Unexpected single quote character before flag (use \\\" to escape double quotes): %s", arg)

		case !strings.HasPrefix(arg, "-") && buildOpts != nil:
			buildOpts.EntryPoints = append(buildOpts.EntryPoints, arg)

		default:
			return parseOptionsExtras{}, invalidFlagError(arg, buildOpts != nil)
		}
	}

	return
}

// This returns either BuildOptions, TransformOptions, or an error
func parseOptionsForRun(osArgs []string) (*api.BuildOptions, *api.TransformOptions, parseOptionsExtras, error) {
	// If there's an entry point, then we're building
	for _, arg := range osArgs {
		if !strings.HasPrefix(arg, "-") {
			options := newBuildOptions()

			// Apply defaults appropriate for the CLI
			options.ErrorLimit = 10
			options.LogLevel = api.LogLevelInfo

			extras, err := parseOptionsImpl(osArgs, &options, nil)
			if err != nil {
				return nil, nil, parseOptionsExtras{}, err
			}
			if options.Outdir == "" && len(options.EntryPoints) > 1 {
				return nil, nil, parseOptionsExtras{}, fmt.Errorf("Must use \"--outdir\" when there are multiple input files")
			}
			options.Write = options.Outdir != ""
			return &options, nil, extras, nil
		}
	}

	// Otherwise, we're transforming
	options := newTransformOptions()

	// Apply defaults appropriate for the CLI
	options.ErrorLimit = 10
	options.LogLevel = api.LogLevelInfo

	extras, err := parseOptionsImpl(osArgs, nil, &options)
	if err != nil {
		return nil, nil, parseOptionsExtras{}, err
	}
	return nil, &options, extras, nil
}

func runImpl(osArgs []string) int {
	buildOptions, transformOptions, extras, err := parseOptionsForRun(osArgs)

	switch {
	case err != nil:
		logger.PrintErrorToStderr(osArgs, err.Error())
		return 1

	case buildOptions != nil:
		result := api.Build(*buildOptions)
		if extras.summary {
			os.Stderr.WriteString(renderSummary(result.OutputFiles, len(result.Errors), len(result.Warnings)))
		}
		if len(result.Errors) > 0 {
			return 1
		}

		// Without an output directory there is exactly one file to write
		if buildOptions.Outdir == "" && len(result.OutputFiles) == 1 {
			if _, err := os.Stdout.Write(result.OutputFiles[0].Contents); err != nil {
				logger.PrintErrorToStderr(osArgs, fmt.Sprintf("Failed to write to stdout: %s", err.Error()))
				return 1
			}
		}

	case transformOptions != nil:
		// Waiting on a terminal for input is never what was intended
		if term.IsTerminal(int(os.Stdin.Fd())) {
			logger.PrintErrorToStderr(osArgs, "No input files (pass file names or pipe a file to stdin)")
			return 1
		}

		bytes, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.PrintErrorToStderr(osArgs, fmt.Sprintf("Could not read from stdin: %s", err.Error()))
			return 1
		}

		result := api.Transform(string(bytes), *transformOptions)
		if extras.summary {
			path := transformOptions.Sourcefile
			if path == "" {
				path = "<stdin>"
			}
			file := api.OutputFile{Path: path, Contents: result.Code, Stats: result.Stats}
			os.Stderr.WriteString(renderSummary([]api.OutputFile{file}, len(result.Errors), len(result.Warnings)))
		}
		if len(result.Errors) > 0 {
			return 1
		}

		if _, err := os.Stdout.Write(result.Code); err != nil {
			logger.PrintErrorToStderr(osArgs, fmt.Sprintf("Failed to write to stdout: %s", err.Error()))
			return 1
		}
	}

	return 0
}
