// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Fixtests adds the totalValue argument to AggregatedInventoryItem constructor
calls in inventory test files.

Usage:

	$ fixtests [flags] [file...]

Every call that assigns categoryName a string literal followed by a comma
gets a new line with "totalValue: 0.0," right after that argument. Calls that
already have a totalValue argument are left alone, so running the tool twice
is safe.

Without file arguments, the four inventory test files under
test/features/inventory/presentation are fixed. Files are processed one by
one; a file that can't be read or written is reported and the remaining
files are still processed. The tool prints "Fixed: <file>" or
"Error fixing <file>: <error>" for each file and "Done!" at the end, and
always exits successfully.

The -config flag reads a txtar archive that can contain the following files:

  - paths.txt: files to fix, one per line. Empty lines and lines starting
    with # are ignored. File arguments take precedence.
  - rule.json: a JSON object overriding parts of the rule, with the keys
    constructor, field, new_field, value, indent and allow_duplicates.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/fieldpatch/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
