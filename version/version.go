// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package version reports build information of the running program.
package version

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

// Info describes the running binary.
type Info struct {
	// Name is the command name.
	Name string
	// Version is the module version, "devel" for local builds.
	Version string
	// Commit is the VCS revision, if known.
	Commit string
	// Modified reports whether the working tree had uncommitted changes.
	Modified bool
	// Go is the Go toolchain version.
	Go string
}

func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", i.Name, i.Version)
	if i.Commit != "" {
		fmt.Fprintf(&sb, " (%s", i.Commit)
		if i.Modified {
			sb.WriteString(", modified")
		}
		sb.WriteString(")")
	}
	fmt.Fprintf(&sb, " built with %s\n", i.Go)
	return sb.String()
}

// Version returns build information of the running program.
var Version = sync.OnceValue(readInfo)

// CmdName returns the base name of the running program.
func CmdName() string {
	if len(os.Args) == 0 {
		return "fieldpatch"
	}
	return strings.TrimSuffix(filepath.Base(os.Args[0]), ".exe")
}

func readInfo() Info {
	i := Info{
		Name:    CmdName(),
		Version: "devel",
		Go:      runtime.Version(),
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return i
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		i.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			i.Commit = s.Value
			if len(i.Commit) > 12 {
				i.Commit = i.Commit[:12]
			}
		case "vcs.modified":
			i.Modified = s.Value == "true"
		}
	}
	return i
}
