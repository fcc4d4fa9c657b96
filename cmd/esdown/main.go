package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/esdown/esdown/internal/api_helpers"
	"github.com/esdown/esdown/internal/logger"
	"github.com/esdown/esdown/pkg/api"
	"github.com/esdown/esdown/pkg/cli"
)

const esdownVersion = "0.3.0"

const helpText = `
Usage:
  esdown [options] [files]

Options:
  --outdir=...          The output directory (required for multiple files)
  --target=...          Environment target (es5, es2015, es2017, esnext;
                        default es5). Async functions are lowered below es2017
                        and classes below es2015.
  --format=...          Output format (cjs, preserve; default cjs)
  --helpers=...         Module that provides the runtime helpers
                        (default "@esdown/helpers")
  --regenerator=...     Module that provides "regeneratorRuntime"
                        (default "regenerator-runtime")
  --summary             Print a table of what was done to each file
  --color=...           Force use of color terminal escapes (true or false)

Advanced options:
  --version                 Print the current version and exit (` + esdownVersion + `)
  --sourcefile=...          Set the file name used in messages (for stdin)
  --error-limit=...         Maximum error count or 0 to disable (default 10)
  --log-level=...           Disable logging (verbose, debug, info, warning,
                            error, silent)
  --log-override:X=Y        Use log level Y for log messages with identifier X
  --verbose                 Trace each compiler pass to stderr
  --timing                  Print the time taken by each phase (with --verbose)

Examples:
  # Produces dist/a.js and dist/b.js
  esdown src/a.js src/b.js --outdir=dist

  # Provide input via stdin, get output via stdout
  esdown --target=es2015 < input.js > output.js
`

func main() {
	osArgs := os.Args[1:]
	cpuprofileFile := ""
	verbose := false

	// Do an initial scan over the argument list
	argsEnd := 0
	for _, arg := range osArgs {
		switch {
		// Show help if a common help flag is provided
		case arg == "-h", arg == "-help", arg == "--help", arg == "/?":
			fmt.Fprintf(os.Stderr, "%s\n", helpText)
			os.Exit(0)

		// Special-case the version flag here
		case arg == "--version":
			fmt.Fprintf(os.Stderr, "%s\n", esdownVersion)
			os.Exit(0)

		case arg == "--verbose":
			verbose = true

		case arg == "--timing":
			api_helpers.UseTimer = true

		case strings.HasPrefix(arg, "--cpuprofile="):
			cpuprofileFile = arg[len("--cpuprofile="):]

		default:
			// Strip any arguments that were handled above
			osArgs[argsEnd] = arg
			argsEnd++
		}
	}
	osArgs = osArgs[:argsEnd]

	// Print help text when there are no arguments
	if len(osArgs) == 0 && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "%s\n", helpText)
		os.Exit(0)
	}

	if verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			logger.PrintErrorToStderr(osArgs, fmt.Sprintf("Failed to create logger: %s", err.Error()))
			os.Exit(1)
		}
		api.SetLogger(log)
	}

	// Capture the defer statements below so the "done" message comes last
	exitCode := 1
	func() {
		// To view a CPU profile, drop the file into https://speedscope.app
		if cpuprofileFile != "" {
			f, err := os.Create(cpuprofileFile)
			if err != nil {
				logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
					"Failed to create cpuprofile file: %s", err.Error()))
				return
			}
			defer f.Close()
			pprof.StartCPUProfile(f)
			defer pprof.StopCPUProfile()
		}

		exitCode = cli.Run(osArgs)
	}()

	api.Logger().Sync()
	os.Exit(exitCode)
}
