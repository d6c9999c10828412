// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package testutil holds assertions and golden-file helpers shared by tests.
package testutil

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.astrophena.name/fieldpatch/txtar"
)

// AssertEqual stops the test with a diff if got and want differ. Unexported
// fields are compared too.
func AssertEqual(t *testing.T, got, want any) {
	t.Helper()
	exportAll := cmp.Exporter(func(reflect.Type) bool { return true })
	if diff := cmp.Diff(want, got, exportAll); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

// Run calls f in a subtest for every file matching glob. Subtests are named
// after the file without its extension. No matches is a failure.
func Run(t *testing.T, glob string, f func(t *testing.T, match string)) {
	t.Helper()
	matches, err := filepath.Glob(glob)
	switch {
	case err != nil:
		t.Fatal(err)
	case len(matches) == 0:
		t.Fatalf("%s: no matches", glob)
	}
	for _, m := range matches {
		t.Run(strings.TrimSuffix(filepath.Base(m), filepath.Ext(m)), func(t *testing.T) { f(t, m) })
	}
}

// RunGolden is like [Run], but compares what f returns with the file next to
// the match that has the ".golden" extension. With update set, the golden
// file is rewritten instead.
func RunGolden(t *testing.T, glob string, f func(t *testing.T, match string) []byte, update bool) {
	t.Helper()
	Run(t, glob, func(t *testing.T, match string) {
		golden := strings.TrimSuffix(match, filepath.Ext(match)) + ".golden"
		got := f(t, match)
		if update {
			if err := os.WriteFile(golden, got, 0o644); err != nil {
				t.Fatal(err)
			}
			return
		}
		want, err := os.ReadFile(golden)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(string(want), string(got)); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", golden, diff)
		}
	})
}

// ParseTxtar reads the archive at path.
func ParseTxtar(t *testing.T, path string) *txtar.Archive {
	t.Helper()
	a, err := txtar.ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

// ExtractTxtar writes the files of a into dir.
func ExtractTxtar(t *testing.T, a *txtar.Archive, dir string) {
	t.Helper()
	if err := txtar.Extract(a, dir); err != nil {
		t.Fatal(err)
	}
}

// BuildTxtar returns the files under dir as a formatted archive.
func BuildTxtar(t *testing.T, dir string) []byte {
	t.Helper()
	a, err := txtar.FromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	return txtar.Format(a)
}
