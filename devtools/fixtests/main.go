// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"

	"go.astrophena.name/fieldpatch/cli"
	"go.astrophena.name/fieldpatch/logger"
	"go.astrophena.name/fieldpatch/patch"
	"go.astrophena.name/fieldpatch/txtar"
)

var defaultPaths = []string{
	"test/features/inventory/presentation/widgets/simple_inventory_card_test.dart",
	"test/features/inventory/presentation/widgets/aggregated_inventory_card_test.dart",
	"test/features/inventory/presentation/screens/inventory_query_screen_test.dart",
	"test/features/inventory/presentation/providers/inventory_query_providers_test.dart",
}

type config struct {
	paths []string
	rule  patch.RuleConfig
}

func parseConfig(file string) (*config, error) {
	cfg := &config{
		paths: defaultPaths,
		rule:  patch.DefaultRuleConfig,
	}
	if file == "" {
		return cfg, nil
	}

	ar, err := txtar.ParseFile(file)
	if err != nil {
		return nil, err
	}

	if data, ok := txtar.Lookup(ar, "paths.txt"); ok {
		paths, err := parsePaths(data)
		if err != nil {
			return nil, fmt.Errorf("%s: paths.txt: %w", file, err)
		}
		cfg.paths = paths
	}
	if data, ok := txtar.Lookup(ar, "rule.json"); ok {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg.rule); err != nil {
			return nil, fmt.Errorf("%s: rule.json: %w", file, err)
		}
	}

	return cfg, nil
}

func parsePaths(data []byte) ([]string, error) {
	var paths []string
	s := bufio.NewScanner(bytes.NewReader(data))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no paths")
	}
	return paths, nil
}

func main() { cli.Main(new(app)) }

type app struct {
	config    string
	dry       bool
	diff      bool
	duplicate bool
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.config, "config", "", "Read paths and rule overrides from txtar `file`.")
	fs.BoolVar(&a.dry, "dry", false, "Print the files that would be fixed, without making changes.")
	fs.BoolVar(&a.diff, "diff", false, "Print a unified diff of each change. Requires -dry.")
	fs.BoolVar(&a.duplicate, "duplicate", false, "Insert the argument even into calls that already have it.")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	if a.diff && !a.dry {
		return fmt.Errorf("%w: -diff requires -dry", cli.ErrInvalidArgs)
	}

	cfg, err := parseConfig(a.config)
	if err != nil {
		return err
	}
	if a.duplicate {
		cfg.rule.AllowDuplicates = true
	}
	rule, err := patch.NewRule(cfg.rule)
	if err != nil {
		return err
	}

	paths := cfg.paths
	if len(env.Args) > 0 {
		paths = env.Args
	}
	logger.Debug(ctx, "fixing files",
		slog.Int("count", len(paths)),
		slog.String("pattern", rule.Pattern.String()),
		slog.Bool("dry", a.dry),
	)

	p := &patch.Patcher{
		Rule:   rule,
		Stdout: env.Stdout,
		DryRun: a.dry,
		Diff:   a.diff,
	}
	// Per-file failures are already reported and don't affect the exit status.
	p.Run(ctx, paths)
	return nil
}
