// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package patch

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.astrophena.name/fieldpatch/logger"
	"go.astrophena.name/fieldpatch/testutil"
)

// copyTestdata copies testdata files into a temporary directory and returns
// their new paths in the same order.
func copyTestdata(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join("testdata", name))
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	return paths
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func readGolden(t *testing.T, name string) string {
	t.Helper()
	return readFile(t, filepath.Join("testdata", strings.TrimSuffix(name, ".dart")+".golden"))
}

func newPatcher(t *testing.T, stdout *bytes.Buffer) *Patcher {
	t.Helper()
	return &Patcher{Rule: defaultRule(t), Stdout: stdout}
}

func TestRun(t *testing.T) {
	names := []string{"single.dart", "multiple.dart", "none.dart", "patched.dart"}
	paths := copyTestdata(t, names...)

	var stdout bytes.Buffer
	rep := newPatcher(t, &stdout).Run(context.Background(), paths)

	var want strings.Builder
	for _, p := range paths {
		want.WriteString("Fixed: " + p + "\n")
	}
	want.WriteString("Done!\n")
	testutil.AssertEqual(t, stdout.String(), want.String())

	for i, name := range names {
		testutil.AssertEqual(t, readFile(t, paths[i]), readGolden(t, name))
	}

	testutil.AssertEqual(t, len(rep.Results), 4)
	testutil.AssertEqual(t, len(rep.Failed()), 0)
	testutil.AssertEqual(t, rep.Inserted(), 4)
	testutil.AssertEqual(t, rep.Results[3].Matches, 2)
	testutil.AssertEqual(t, rep.Results[3].Changed(), false)
	testutil.AssertEqual(t, rep.Results[0].Changed(), true)
}

func TestRunTwiceIsNoop(t *testing.T) {
	paths := copyTestdata(t, "multiple.dart")
	p := newPatcher(t, new(bytes.Buffer))

	p.Run(context.Background(), paths)
	first := readFile(t, paths[0])
	rep := p.Run(context.Background(), paths)

	testutil.AssertEqual(t, readFile(t, paths[0]), first)
	testutil.AssertEqual(t, rep.Inserted(), 0)
}

func TestRunContinuesAfterErrors(t *testing.T) {
	paths := copyTestdata(t, "single.dart")
	dir := filepath.Dir(paths[0])

	missing := filepath.Join(dir, "missing.dart")
	binary := filepath.Join(dir, "binary.dart")
	if err := os.WriteFile(binary, []byte("ok\xff\xfe"), 0o644); err != nil {
		t.Fatal(err)
	}
	all := []string{missing, binary, paths[0]}

	var stdout bytes.Buffer
	rep := newPatcher(t, &stdout).Run(context.Background(), all)

	lines := strings.Split(strings.TrimSuffix(stdout.String(), "\n"), "\n")
	testutil.AssertEqual(t, len(lines), 4)
	if !strings.HasPrefix(lines[0], "Error fixing "+missing+": ") {
		t.Errorf("line 0 = %q, want an error for %s", lines[0], missing)
	}
	testutil.AssertEqual(t, lines[1], "Error fixing "+binary+": invalid UTF-8 at byte 2")
	testutil.AssertEqual(t, lines[2], "Fixed: "+paths[0])
	testutil.AssertEqual(t, lines[3], "Done!")

	failed := rep.Failed()
	testutil.AssertEqual(t, len(failed), 2)
	if !errors.Is(failed[0].Err, fs.ErrNotExist) {
		t.Errorf("missing file error = %v, want fs.ErrNotExist", failed[0].Err)
	}
	if !errors.Is(failed[1].Err, ErrInvalidUTF8) {
		t.Errorf("binary file error = %v, want ErrInvalidUTF8", failed[1].Err)
	}

	testutil.AssertEqual(t, readFile(t, binary), "ok\xff\xfe")
	testutil.AssertEqual(t, readFile(t, paths[0]), readGolden(t, "single.dart"))
}

func TestRunDirectory(t *testing.T) {
	var stdout bytes.Buffer
	rep := newPatcher(t, &stdout).Run(context.Background(), []string{t.TempDir()})
	testutil.AssertEqual(t, len(rep.Failed()), 1)
	if !strings.HasSuffix(stdout.String(), "Done!\n") {
		t.Errorf("stdout must end with Done!, got %q", stdout.String())
	}
}

func TestRunDryRun(t *testing.T) {
	paths := copyTestdata(t, "single.dart", "none.dart")
	before := readFile(t, paths[0])

	var stdout bytes.Buffer
	p := newPatcher(t, &stdout)
	p.DryRun = true
	p.Diff = true
	rep := p.Run(context.Background(), paths)

	testutil.AssertEqual(t, readFile(t, paths[0]), before)
	testutil.AssertEqual(t, rep.Inserted(), 1)

	out := stdout.String()
	for _, want := range []string{
		"--- a/" + paths[0],
		"+++ b/" + paths[0],
		"+        totalValue: 0.0,\n",
		"Would fix: " + paths[0] + "\n",
		"Would fix: " + paths[1] + "\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout must contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "a/"+paths[1]) {
		t.Errorf("unchanged file must not get a diff, got:\n%s", out)
	}
}

func TestRunCanceled(t *testing.T) {
	paths := copyTestdata(t, "single.dart")
	before := readFile(t, paths[0])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout bytes.Buffer
	rep := newPatcher(t, &stdout).Run(ctx, paths)

	testutil.AssertEqual(t, readFile(t, paths[0]), before)
	if !errors.Is(rep.Results[0].Err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", rep.Results[0].Err)
	}
	testutil.AssertEqual(t, stdout.String(), "Error fixing "+paths[0]+": context canceled\nDone!\n")
}

func TestRunLogs(t *testing.T) {
	paths := copyTestdata(t, "single.dart")

	l := logger.New(nil)
	l.Level.Set(slog.LevelDebug)
	var logs bytes.Buffer
	l.Attach(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: l.Level}))
	ctx := logger.Put(context.Background(), l)

	newPatcher(t, new(bytes.Buffer)).Run(ctx, paths)

	out := logs.String()
	for _, want := range []string{
		"msg=fixed",
		"inserted=1",
		"msg=done",
		"failed=0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("logs must contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunLogsFailuresAtWarn(t *testing.T) {
	l := logger.New(nil)
	var logs bytes.Buffer
	l.Attach(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: l.Level}))
	ctx := logger.Put(context.Background(), l)

	missing := filepath.Join(t.TempDir(), "missing.dart")
	newPatcher(t, new(bytes.Buffer)).Run(ctx, []string{missing})

	out := logs.String()
	for _, want := range []string{"level=WARN", `msg="fixing failed"`, "path=" + missing} {
		if !strings.Contains(out, want) {
			t.Errorf("logs must contain %q at the default level, got:\n%s", want, out)
		}
	}
}

func TestRunWritesThroughSymlink(t *testing.T) {
	paths := copyTestdata(t, "single.dart")
	target := paths[0]
	link := filepath.Join(filepath.Dir(target), "link.dart")
	if err := os.Symlink(filepath.Base(target), link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	var stdout bytes.Buffer
	rep := newPatcher(t, &stdout).Run(context.Background(), []string{link})

	testutil.AssertEqual(t, len(rep.Failed()), 0)
	testutil.AssertEqual(t, stdout.String(), "Fixed: "+link+"\nDone!\n")

	fi, err := os.Lstat(link)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode()&fs.ModeSymlink == 0 {
		t.Errorf("%s was replaced by a regular file", link)
	}
	testutil.AssertEqual(t, readFile(t, target), readGolden(t, "single.dart"))
}
