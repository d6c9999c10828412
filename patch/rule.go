// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package patch

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRule is returned by [NewRule] for unusable configurations.
var ErrInvalidRule = errors.New("invalid rule")

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// space matches Unicode whitespace, including no-break spaces.
const space = `[\s\p{Z}]*`

// RuleConfig describes which constructor calls to patch and what to insert.
type RuleConfig struct {
	// Constructor is the name of the constructed type, e.g.
	// AggregatedInventoryItem.
	Constructor string `json:"constructor"`
	// Field is the named argument after which the new one is inserted. It
	// must be assigned a quoted string literal followed by a comma.
	Field string `json:"field"`
	// NewField is the name of the inserted argument.
	NewField string `json:"new_field"`
	// Value is the source text of the inserted argument's value.
	Value string `json:"value"`
	// Indent precedes the inserted argument on its new line.
	Indent string `json:"indent"`
	// AllowDuplicates disables the check for an already present NewField,
	// so every run inserts another copy.
	AllowDuplicates bool `json:"allow_duplicates"`
}

// DefaultRuleConfig inserts totalValue after categoryName in
// AggregatedInventoryItem constructor calls.
var DefaultRuleConfig = RuleConfig{
	Constructor: "AggregatedInventoryItem",
	Field:       "categoryName",
	NewField:    "totalValue",
	Value:       "0.0",
	Indent:      "        ",
}

// Rule is a compiled substitution rule.
type Rule struct {
	// Pattern matches a constructor-call fragment ending with the comma after
	// the string literal assigned to the matched field.
	Pattern *regexp.Regexp
	// Insert is appended right after every match.
	Insert string
	// Guard, if not nil, skips matches whose call already matches it in its
	// top-level arguments. Nested calls, strings and comments are not
	// searched.
	Guard *regexp.Regexp
}

// NewRule compiles c into a Rule.
func NewRule(c RuleConfig) (*Rule, error) {
	for _, f := range []struct{ name, val string }{
		{"constructor", c.Constructor},
		{"field", c.Field},
		{"new_field", c.NewField},
	} {
		if !identRe.MatchString(f.val) {
			return nil, fmt.Errorf("%w: %s %q is not an identifier", ErrInvalidRule, f.name, f.val)
		}
	}
	if strings.TrimSpace(c.Value) == "" {
		return nil, fmt.Errorf("%w: value is empty", ErrInvalidRule)
	}
	if strings.TrimLeft(c.Indent, " \t") != "" {
		return nil, fmt.Errorf("%w: indent %q must contain only spaces and tabs", ErrInvalidRule, c.Indent)
	}

	r := &Rule{
		Pattern: regexp.MustCompile(regexp.QuoteMeta(c.Constructor) +
			space + `\([^)]*?` + regexp.QuoteMeta(c.Field) + `:` + space + `['"][^'"]*['"],`),
		Insert: "\n" + c.Indent + c.NewField + ": " + c.Value + ",",
	}
	if !c.AllowDuplicates {
		r.Guard = regexp.MustCompile(`(^|[^A-Za-z0-9_$])` + regexp.QuoteMeta(c.NewField) + space + `:`)
	}
	return r, nil
}

// Count returns the number of non-overlapping matches in src.
func (r *Rule) Count(src []byte) int {
	return len(r.Pattern.FindAllIndex(src, -1))
}

// Apply appends Insert after every non-overlapping match in src, scanning
// left to right, and returns the result with the number of insertions.
// Bytes outside of the insertion points are left untouched.
func (r *Rule) Apply(src []byte) ([]byte, int) {
	locs := r.Pattern.FindAllIndex(src, -1)
	if len(locs) == 0 {
		return src, 0
	}

	var (
		buf      bytes.Buffer
		last     int
		inserted int
	)
	buf.Grow(len(src) + len(locs)*len(r.Insert))
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if r.Guard != nil && r.Guard.Match(topLevelArgs(src, start)) {
			continue
		}
		buf.Write(src[last:end])
		buf.WriteString(r.Insert)
		last = end
		inserted++
	}
	if inserted == 0 {
		return src, 0
	}
	buf.Write(src[last:])
	return buf.Bytes(), inserted
}

// topLevelArgs returns the source of the call whose opening parenthesis is
// the first one at or after start, keeping only what sits directly in its
// argument list. Nested groups, string literals and comments are each
// replaced by a single space. An unterminated call extends to the end of src.
func topLevelArgs(src []byte, start int) []byte {
	open := bytes.IndexByte(src[start:], '(')
	if open < 0 {
		return nil
	}

	var (
		out   []byte
		depth int
	)
	for i := start + open; i < len(src); {
		c := src[i]
		switch {
		case bytes.HasPrefix(src[i:], lineComment):
			i = skipPast(src, i, newline)
			out = append(out, ' ')
			continue
		case bytes.HasPrefix(src[i:], blockComment):
			i = skipPast(src, i+2, blockCommentEnd)
			out = append(out, ' ')
			continue
		case c == '\'' || c == '"':
			i = skipString(src, i)
			out = append(out, ' ')
			continue
		case c == '(' || c == '[' || c == '{':
			depth++
			if depth == 2 {
				out = append(out, ' ')
			}
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth == 0 {
				return out
			}
		case depth == 1:
			out = append(out, c)
		}
		i++
	}
	return out
}

var (
	lineComment     = []byte("//")
	blockComment    = []byte("/*")
	blockCommentEnd = []byte("*/")
	newline         = []byte("\n")
)

// skipPast returns the index right after the first sep at or after i, or
// len(src) if there is none.
func skipPast(src []byte, i int, sep []byte) int {
	j := bytes.Index(src[i:], sep)
	if j < 0 {
		return len(src)
	}
	return i + j + len(sep)
}

// skipString returns the index right after the string literal starting at i.
// Single-line literals also end at a newline.
func skipString(src []byte, i int) int {
	q := src[i]
	if triple := []byte{q, q, q}; bytes.HasPrefix(src[i:], triple) {
		return skipPast(src, i+3, triple)
	}
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j + 1
		case '\n':
			return j
		}
	}
	return len(src)
}
