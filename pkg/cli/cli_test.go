package cli

import (
	"strings"
	"testing"

	"github.com/esdown/esdown/internal/test"
	"github.com/esdown/esdown/pkg/api"
)

func TestParseBuildOptions(t *testing.T) {
	options, err := ParseBuildOptions([]string{
		"src/a.js", "src/b.js",
		"--outdir=lib",
		"--target=es2015",
		"--format=preserve",
		"--helpers=./runtime/helpers.js",
		"--regenerator=regenerator",
		"--log-level=warning",
		"--log-override:ambiguous-reexport=error",
		"--color=false",
		"--error-limit=5",
	})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, strings.Join(options.EntryPoints, ","), "src/a.js,src/b.js")
	test.AssertEqual(t, options.Outdir, "lib")
	test.AssertEqual(t, options.Target, api.ES2015)
	test.AssertEqual(t, options.Format, api.FormatPreserve)
	test.AssertEqual(t, options.HelpersModule, "./runtime/helpers.js")
	test.AssertEqual(t, options.RegeneratorModule, "regenerator")
	test.AssertEqual(t, options.LogLevel, api.LogLevelWarning)
	test.AssertEqual(t, options.LogOverride["ambiguous-reexport"], api.LogLevelError)
	test.AssertEqual(t, options.Color, api.ColorNever)
	test.AssertEqual(t, options.ErrorLimit, 5)
}

func TestParseTransformOptions(t *testing.T) {
	options, err := ParseTransformOptions([]string{"--sourcefile=a.js", "--format=cjs", "--target=esnext"})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, options.Sourcefile, "a.js")
	test.AssertEqual(t, options.Format, api.FormatCommonJS)
	test.AssertEqual(t, options.Target, api.ESNext)

	_, err = ParseTransformOptions([]string{"--outdir=lib"})
	test.AssertEqual(t, err.Error(), "Invalid transform flag: \"--outdir=lib\"")
}

func TestParseErrors(t *testing.T) {
	expectError := func(args []string, expected string) {
		t.Helper()
		_, err := ParseBuildOptions(args)
		if err == nil {
			t.Fatalf("Expected an error for %v", args)
		}
		test.AssertEqualWithDiff(t, err.Error(), expected)
	}

	expectError([]string{"a.js", "--outdr=lib"}, "Invalid build flag: \"--outdr=lib\" (did you mean \"--outdir=lib\"?)")
	expectError([]string{"a.js", "--tagret=es5"}, "Invalid build flag: \"--tagret=es5\" (did you mean \"--target=es5\"?)")
	expectError([]string{"a.js", "--bundle"}, "Invalid build flag: \"--bundle\"")
	expectError([]string{"a.js", "--target=es3"}, "Invalid target: \"es3\" (valid: es5, es6, es2015, es2017, esnext)")
	expectError([]string{"a.js", "--format=esm"}, "Invalid format: \"esm\" (valid: cjs, preserve)")
	expectError([]string{"a.js", "--error-limit=x"}, "Invalid error limit: \"x\"")
	expectError([]string{"a.js", "--log-override:foo"}, "Missing \"=\" in \"--log-override:foo\"")
	expectError([]string{"a.js", "--log-level=loud"}, "Invalid log level: \"loud\" (valid: verbose, debug, info, warning, error, silent)")
}

func TestParseOptionsForRun(t *testing.T) {
	build, transform, _, err := parseOptionsForRun([]string{"a.js", "--summary"})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, transform == nil, true)
	test.AssertEqual(t, build.Write, false)
	test.AssertEqual(t, build.ErrorLimit, 10)

	build, _, extras, err := parseOptionsForRun([]string{"a.js", "b.js", "--outdir=out", "--summary"})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, build.Write, true)
	test.AssertEqual(t, extras.summary, true)

	_, _, _, err = parseOptionsForRun([]string{"a.js", "b.js"})
	test.AssertEqual(t, err.Error(), "Must use \"--outdir\" when there are multiple input files")

	build, transform, _, err = parseOptionsForRun([]string{"--target=es5"})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, build == nil, true)
	test.AssertEqual(t, transform.Target, api.ES5)
}

func TestRenderSummary(t *testing.T) {
	text := renderSummary([]api.OutputFile{
		{Path: "out/bar.js", Contents: []byte("abc"), Stats: api.Stats{LoweredFunctions: 2, SuspensionPoints: 3, Exports: []string{"bar", "baz"}}},
		{Path: "out/cjs.js", Stats: api.Stats{WholesaleExports: true}},
	}, 1, 0)
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	test.AssertEqual(t, len(lines), 4)
	for _, text := range []string{"File", "Async", "Awaits", "Exports"} {
		if !strings.Contains(lines[0], text) {
			t.Fatalf("Missing header %q: %q", text, lines[0])
		}
	}
	if !strings.Contains(lines[1], "out/bar.js") || !strings.Contains(lines[1], "bar, baz") {
		t.Fatalf("Unexpected row: %q", lines[1])
	}
	if !strings.Contains(lines[2], "module.exports") {
		t.Fatalf("Unexpected row: %q", lines[2])
	}
	if !strings.Contains(lines[3], "1 error(s), 0 warning(s)") {
		t.Fatalf("Unexpected footer: %q", lines[3])
	}
}

func TestExportsColumn(t *testing.T) {
	long := api.Stats{Exports: []string{strings.Repeat("a", 30), strings.Repeat("b", 30)}}
	test.AssertEqual(t, len(exportsColumn(long)), maxExportsWidth)
	test.AssertEqual(t, exportsColumn(api.Stats{}), "")
}
