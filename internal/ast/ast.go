package ast

// This file contains the module-level bookkeeping shared by the parser and the
// module interop pass: one import record per module specifier that a file
// references, and a helper to derive readable identifiers from those paths.

import (
	"strings"

	"github.com/esdown/esdown/internal/logger"
)

type ImportKind uint8

const (
	// An ES6 import or re-export statement
	ImportStmt ImportKind = iota

	// A call to "require()"
	ImportRequire
)

func (kind ImportKind) String() string {
	switch kind {
	case ImportStmt:
		return "import-statement"
	case ImportRequire:
		return "require-call"
	default:
		panic("Internal error")
	}
}

type ImportRecordFlags uint8

const (
	// If this is true, the import contains syntax like "* as ns"
	ContainsImportStar ImportRecordFlags = 1 << iota

	// If this is true, the import contains an import for the alias "default",
	// either via the "import x from" or "import {default as x} from" syntax.
	ContainsDefaultAlias

	// If this is true, this is an "export * from 'path'" statement
	IsExportStar

	// If true, this was originally written as a bare "import 'file'" statement
	WasOriginallyBareImport
)

func (flags ImportRecordFlags) Has(flag ImportRecordFlags) bool {
	return (flags & flag) != 0
}

type ImportRecord struct {
	Path  string
	Range logger.Range
	Flags ImportRecordFlags
	Kind  ImportKind
}

// Returns the records of the given kind with duplicate paths merged, in order
// of first appearance.
func UniqueImportPaths(records []ImportRecord, kind ImportKind) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, record := range records {
		if record.Kind == kind && !seen[record.Path] {
			seen[record.Path] = true
			paths = append(paths, record.Path)
		}
	}
	return paths
}

func platformIndependentPathDirBase(path string) (dir string, base string) {
	// Trim trailing slashes
	for {
		trimmed := strings.TrimRight(path, "/\\")
		if trimmed == path {
			break
		}
		path = trimmed
	}

	if i := strings.LastIndexAny(path, "/\\"); i != -1 {
		dir, base = path[:i], path[i+1:]
	} else {
		base = path
	}

	// Strip every extension ("bar.min.js" becomes "bar_min" below)
	if dot := strings.LastIndexByte(base, '.'); dot > 0 {
		base = base[:dot]
	}
	return
}

func GenerateNonUniqueNameFromPath(path string) string {
	dir, base := platformIndependentPathDirBase(path)

	// If the name is "index", use the directory name instead. This is because
	// many packages in npm use the file name "index.js" because it triggers
	// node's implicit module resolution rules that allows you to import it by
	// just naming the directory.
	if base == "index" {
		if _, dirBase := platformIndependentPathDirBase(dir); dirBase != "" {
			base = dirBase
		}
	}

	// Convert it to an ASCII identifier
	bytes := []byte{}
	needsGap := false
	for _, c := range base {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (len(bytes) > 0 && c >= '0' && c <= '9') {
			if needsGap {
				bytes = append(bytes, '_')
				needsGap = false
			}
			bytes = append(bytes, byte(c))
		} else if len(bytes) > 0 {
			needsGap = true
		}
	}

	// Make sure the name isn't empty
	if len(bytes) == 0 {
		return "_"
	}
	return string(bytes)
}
