// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package patch inserts a missing named argument into constructor calls of
// source files using a textual rule.
//
// Files are processed one at a time in the given order. Each file is read
// fully, rewritten in memory and replaced as a whole. A failure on one file
// is reported and never stops the others.
package patch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/natefinch/atomic"
	"github.com/pmezard/go-difflib/difflib"

	"go.astrophena.name/fieldpatch/logger"
)

// ErrInvalidUTF8 is reported for files that are not valid UTF-8 text.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// Result is the outcome of processing a single file.
type Result struct {
	Path string
	// Matches is the number of matched constructor-call fragments.
	Matches int
	// Inserted is the number of inserted arguments. It is less than Matches
	// when some calls already had the argument.
	Inserted int
	// Err is the read, decode or write failure, if any.
	Err error
}

// Changed reports whether the file content was modified.
func (r Result) Changed() bool { return r.Err == nil && r.Inserted > 0 }

// Report holds per-file results in processing order.
type Report struct {
	Results []Result
}

// Failed returns the results with an error.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Inserted returns the total number of insertions across all files.
func (r *Report) Inserted() int {
	var n int
	for _, res := range r.Results {
		n += res.Inserted
	}
	return n
}

// Patcher applies a [Rule] to files.
type Patcher struct {
	// Rule is the substitution to apply.
	Rule *Rule
	// Stdout receives one line per file and a final "Done!" line.
	Stdout io.Writer
	// DryRun reports what would change without writing anything.
	DryRun bool
	// Diff prints a unified diff of each changed file in dry-run mode.
	Diff bool
}

// Run processes paths sequentially. It never fails as a whole: errors are
// printed per file and recorded in the returned [Report]. If ctx is done, the
// remaining paths are reported as failed with the context error.
func (p *Patcher) Run(ctx context.Context, paths []string) *Report {
	rep := &Report{Results: make([]Result, 0, len(paths))}

	for _, path := range paths {
		var res Result
		if err := ctx.Err(); err != nil {
			res = Result{Path: path, Err: err}
		} else {
			res = p.fix(path)
		}
		rep.Results = append(rep.Results, res)

		attrs := []slog.Attr{
			slog.String("path", path),
			slog.Int("matches", res.Matches),
			slog.Int("inserted", res.Inserted),
		}
		switch {
		case res.Err != nil:
			fmt.Fprintf(p.Stdout, "Error fixing %s: %v\n", path, res.Err)
			logger.Warn(ctx, "fixing failed", append(attrs, slog.Any("err", res.Err))...)
		case p.DryRun:
			fmt.Fprintf(p.Stdout, "Would fix: %s\n", path)
			logger.Debug(ctx, "dry run", attrs...)
		default:
			fmt.Fprintf(p.Stdout, "Fixed: %s\n", path)
			logger.Debug(ctx, "fixed", attrs...)
		}
	}

	fmt.Fprintln(p.Stdout, "Done!")
	logger.Debug(ctx, "done",
		slog.Int("files", len(paths)),
		slog.Int("failed", len(rep.Failed())),
		slog.Int("inserted", rep.Inserted()),
	)
	return rep
}

func (p *Patcher) fix(path string) Result {
	res := Result{Path: path}

	src, err := readText(path)
	if err != nil {
		res.Err = err
		return res
	}

	res.Matches = p.Rule.Count(src)
	out, inserted := p.Rule.Apply(src)
	res.Inserted = inserted

	if p.DryRun {
		if p.Diff && inserted > 0 {
			if err := writeDiff(p.Stdout, path, src, out); err != nil {
				res.Err = err
			}
		}
		return res
	}

	// Replace the file a symlink points to, not the link itself.
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		res.Err = err
		return res
	}
	if err := atomic.WriteFile(target, bytes.NewReader(out)); err != nil {
		res.Err = err
	}
	return res
}

func readText(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("%w at byte %d", ErrInvalidUTF8, invalidOffset(src))
	}
	return src, nil
}

func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(b)
}

func writeDiff(w io.Writer, path string, before, after []byte) error {
	return difflib.WriteUnifiedDiff(w, difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
}
