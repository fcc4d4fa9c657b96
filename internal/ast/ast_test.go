package ast

import (
	"testing"

	"github.com/esdown/esdown/internal/test"
)

func TestGenerateNonUniqueNameFromPath(t *testing.T) {
	test.AssertEqual(t, GenerateNonUniqueNameFromPath("<stdin>"), "stdin")
	test.AssertEqual(t, GenerateNonUniqueNameFromPath("./cls"), "cls")
	test.AssertEqual(t, GenerateNonUniqueNameFromPath("foo/bar.js"), "bar")
	test.AssertEqual(t, GenerateNonUniqueNameFromPath("foo/bar.min.js"), "bar_min")
	test.AssertEqual(t, GenerateNonUniqueNameFromPath("trailing//slashes//"), "slashes")
	test.AssertEqual(t, GenerateNonUniqueNameFromPath("path\\on\\windows.js"), "windows")
	test.AssertEqual(t, GenerateNonUniqueNameFromPath("node_modules/demo-pkg/index.js"), "demo_pkg")
	test.AssertEqual(t, GenerateNonUniqueNameFromPath("regenerator-runtime"), "regenerator_runtime")
	test.AssertEqual(t, GenerateNonUniqueNameFromPath("@esdown/helpers"), "helpers")
	test.AssertEqual(t, GenerateNonUniqueNameFromPath("123_invalid_identifier.js"), "invalid_identifier")
}

func TestUniqueImportPaths(t *testing.T) {
	records := []ImportRecord{
		{Path: "./a", Kind: ImportStmt},
		{Path: "./b", Kind: ImportRequire},
		{Path: "./a", Kind: ImportStmt},
		{Path: "./c", Kind: ImportStmt},
	}
	paths := UniqueImportPaths(records, ImportStmt)
	test.AssertEqual(t, len(paths), 2)
	test.AssertEqual(t, paths[0], "./a")
	test.AssertEqual(t, paths[1], "./c")
}
