// This API exposes the command-line interface for esdown. It can be used to
// run esdown from Go without the overhead of creating a child process.
//
// Example usage:
//
//	package main
//
//	import (
//	    "os"
//
//	    "github.com/esdown/esdown/pkg/cli"
//	)
//
//	func main() {
//	    os.Exit(cli.Run(os.Args[1:]))
//	}
package cli

import (
	"github.com/esdown/esdown/pkg/api"
)

// This function invokes the esdown CLI. It takes an array of command-line
// arguments (excluding the executable argument itself) and returns an exit
// code. There are some minor differences between this CLI and the actual
// "esdown" executable such as the lack of "--verbose" and "--version" flags.
func Run(osArgs []string) int {
	return runImpl(osArgs)
}

// This parses an array of strings into an options object suitable for passing
// to "api.Build()". Use this if you need to reuse the same argument parsing
// logic as the esdown CLI.
//
// Example usage:
//
//	options, err := cli.ParseBuildOptions([]string{
//	    "src/a.js", "src/b.js", "--outdir=lib", "--target=es2015"})
//
//	result := api.Build(options)
func ParseBuildOptions(osArgs []string) (options api.BuildOptions, err error) {
	options = newBuildOptions()
	_, err = parseOptionsImpl(osArgs, &options, nil)
	return
}

// This parses an array of strings into an options object suitable for passing
// to "api.Transform()". Use this if you need to reuse the same argument
// parsing logic as the esdown CLI.
//
// Example usage:
//
//	options, err := cli.ParseTransformOptions([]string{
//	    "--format=cjs", "--helpers=./runtime/helpers.js"})
//
//	result := api.Transform(input, options)
func ParseTransformOptions(osArgs []string) (options api.TransformOptions, err error) {
	options = newTransformOptions()
	_, err = parseOptionsImpl(osArgs, nil, &options)
	return
}
