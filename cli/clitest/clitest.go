// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package clitest runs [cli.App] implementations against tables of
// command lines.
package clitest

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.astrophena.name/fieldpatch/cli"
)

// Case is one command line and what it must produce.
type Case[App cli.App] struct {
	// Args are the arguments after the program name.
	Args []string

	// WantErr must match the returned error with errors.Is.
	WantErr error
	// WantErrType must match the returned error with errors.As.
	WantErrType error
	// WantNothingPrinted requires empty stdout and stderr.
	WantNothingPrinted bool
	// WantInStdout and WantInStderr must be substrings of the output.
	WantInStdout string
	WantInStderr string
	// CheckFunc inspects the application after it has run.
	CheckFunc func(*testing.T, App)
}

// Run runs every case in a subtest against an application made by setup.
// A case without WantErr or WantErrType must succeed.
func Run[App cli.App](t *testing.T, setup func(*testing.T) App, cases map[string]Case[App]) {
	t.Helper()
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			app := setup(t)
			var stdout, stderr bytes.Buffer
			err := cli.Run(cli.WithEnv(t.Context(), &cli.Env{
				Args:   tc.Args,
				Getenv: func(string) string { return "" },
				Stdin:  strings.NewReader(""),
				Stdout: &stdout,
				Stderr: &stderr,
			}), app)

			checkErr(t, err, tc.WantErr, tc.WantErrType)
			out, errOut := stdout.String(), stderr.String()
			if tc.WantNothingPrinted && out+errOut != "" {
				t.Errorf("want no output, got stdout %q, stderr %q", out, errOut)
			}
			if !strings.Contains(out, tc.WantInStdout) {
				t.Errorf("stdout must contain %q, got %q", tc.WantInStdout, out)
			}
			if !strings.Contains(errOut, tc.WantInStderr) {
				t.Errorf("stderr must contain %q, got %q", tc.WantInStderr, errOut)
			}
			if tc.CheckFunc != nil {
				tc.CheckFunc(t, app)
			}
		})
	}
}

func checkErr(t *testing.T, err, want, wantType error) {
	t.Helper()
	if want != nil && !errors.Is(err, want) {
		t.Fatalf("want error %v, got %v", want, err)
	}
	if wantType != nil {
		target := reflect.New(reflect.TypeOf(wantType))
		if !errors.As(err, target.Interface()) {
			t.Fatalf("want error of type %T, got %v", wantType, err)
		}
	}
	if want == nil && wantType == nil && err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
