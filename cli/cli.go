// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package cli runs single-command programs: it parses flags, sets up
// logging on stderr and reports errors the way a shell user expects.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"

	"golang.org/x/term"

	"go.astrophena.name/fieldpatch/logger"
	"go.astrophena.name/fieldpatch/version"
)

var (
	// ErrInvalidArgs is wrapped by applications to report bad command-line
	// arguments.
	ErrInvalidArgs = errors.New("invalid arguments")

	// ErrExitVersion is returned by [Run] after printing the version for
	// -version. [Main] exits with status 1 without printing it.
	ErrExitVersion error = silent{errors.New("version printed")}
)

// silent marks errors that were already reported to the user.
type silent struct{ error }

func (s silent) Unwrap() error { return s.error }

func shouldPrint(err error) bool {
	var s silent
	return !errors.As(err, &s) && !errors.Is(err, flag.ErrHelp)
}

// IsTerminal decides whether log output is colored. Tests may replace it.
var IsTerminal = term.IsTerminal

// App is a command-line program.
type App interface {
	Run(context.Context) error
}

// HasFlags is implemented by applications that define flags.
type HasFlags interface {
	App
	Flags(*flag.FlagSet)
}

// AppFunc turns a function into an [App].
type AppFunc func(context.Context) error

// Run calls f.
func (f AppFunc) Run(ctx context.Context) error { return f(ctx) }

// Env is what an application sees of the outside world.
type Env struct {
	// Args are the arguments left after flag parsing.
	Args   []string
	Getenv func(string) string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// OSEnv returns the environment of the current process.
func OSEnv() *Env {
	return &Env{
		Args:   os.Args[1:],
		Getenv: os.Getenv,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

type envKey struct{}

// WithEnv returns a copy of ctx carrying e.
func WithEnv(ctx context.Context, e *Env) context.Context {
	return context.WithValue(ctx, envKey{}, e)
}

// GetEnv returns the environment carried by ctx, or [OSEnv] if there is none.
func GetEnv(ctx context.Context) *Env {
	if e, ok := ctx.Value(envKey{}).(*Env); ok {
		return e
	}
	return OSEnv()
}

// Main runs app in the current process and exits with status 1 if it fails.
// Interrupting the process cancels the context passed to app.
func Main(app App) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := Run(ctx, app)
	stop()
	if err == nil {
		return
	}
	if shouldPrint(err) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

// Run parses flags from the environment in ctx and runs app. Besides the
// application's own flags it understands -v, which enables debug logging,
// and -version, unless app defines flags with those names.
//
// If ctx has no [logger.Logger], one writing to the environment's stderr is
// put into the context passed to app.
func Run(ctx context.Context, app App) error {
	env := GetEnv(ctx)

	fs, opts := newFlagSet(app, env.Stderr)
	if err := fs.Parse(env.Args); err != nil {
		// The flag package has already printed the problem.
		return silent{err}
	}
	if opts.version {
		fmt.Fprint(env.Stderr, version.Version())
		return ErrExitVersion
	}
	env.Args = fs.Args()

	ctx = setupLogger(ctx, env.Stderr, opts.verbose)
	return app.Run(WithEnv(ctx, env))
}

type builtinFlags struct {
	verbose bool
	version bool
}

func newFlagSet(app App, stderr io.Writer) (*flag.FlagSet, *builtinFlags) {
	fs := flag.NewFlagSet(version.CmdName(), flag.ContinueOnError)
	fs.SetOutput(stderr)
	if hf, ok := app.(HasFlags); ok {
		hf.Flags(fs)
	}

	opts := new(builtinFlags)
	if fs.Lookup("v") == nil {
		fs.BoolVar(&opts.verbose, "v", false, "Log debug messages.")
	}
	if fs.Lookup("version") == nil {
		fs.BoolVar(&opts.version, "version", false, "Print version and exit.")
	}

	fs.Usage = func() {
		if d := docComment(); d != "" {
			fmt.Fprintln(stderr, d)
		}
		fmt.Fprint(stderr, "Available flags:\n\n")
		fs.PrintDefaults()
	}
	return fs, opts
}

func setupLogger(ctx context.Context, stderr io.Writer, verbose bool) context.Context {
	l := logger.Get(ctx)
	if logger.IsDefault(l) {
		l = logger.New(nil)
		l.Attach(l.Console(stderr, isTerminal(stderr)))
		ctx = logger.Put(ctx, l)
	}
	if verbose {
		l.Level.Set(slog.LevelDebug)
	}
	return ctx
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && IsTerminal(int(f.Fd()))
}

var docComment = func() string { return "" }

// SetDocComment makes -h print the block comment of a Go source file before
// the flag list. It is meant for the program's own doc.go:
//
//	//go:embed doc.go
//	var doc []byte
//
//	func init() { cli.SetDocComment(doc) }
//
// The comment must be delimited by "/*" and "*/" on lines of their own.
func SetDocComment(src []byte) {
	docComment = sync.OnceValue(func() string { return extractDoc(string(src)) })
}

func extractDoc(src string) string {
	_, rest, ok := strings.Cut(src, "/*\n")
	if !ok {
		return ""
	}
	body, _, _ := strings.Cut(rest, "\n*/")
	if body == "" {
		return ""
	}
	return body + "\n"
}
