// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package unwrap turns errors that can't happen into panics. It is meant for
// values built from constants, like compiled rules and test fixtures.
package unwrap

import "fmt"

// Value returns val if err is nil and panics otherwise.
func Value[T any](val T, err error) T {
	NoError(err)
	return val
}

// NoError panics if err is not nil. The panic value wraps err.
func NoError(err error) {
	if err != nil {
		panic(fmt.Errorf("unwrap: %w", err))
	}
}
