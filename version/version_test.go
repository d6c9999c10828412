// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package version

import (
	"testing"

	"go.astrophena.name/fieldpatch/testutil"
)

func TestInfoString(t *testing.T) {
	cases := map[string]struct {
		in   Info
		want string
	}{
		"no commit": {
			in:   Info{Name: "fixtests", Version: "devel", Go: "go1.26.0"},
			want: "fixtests devel built with go1.26.0\n",
		},
		"commit": {
			in:   Info{Name: "fixtests", Version: "v1.0.0", Commit: "abc", Go: "go1.26.0"},
			want: "fixtests v1.0.0 (abc) built with go1.26.0\n",
		},
		"modified": {
			in:   Info{Name: "fixtests", Version: "devel", Commit: "abc", Modified: true, Go: "go1.26.0"},
			want: "fixtests devel (abc, modified) built with go1.26.0\n",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, tc.in.String(), tc.want)
		})
	}
}

func TestVersionIsStable(t *testing.T) {
	testutil.AssertEqual(t, Version(), Version())
}
