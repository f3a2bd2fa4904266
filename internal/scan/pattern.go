// Package scan implements AOB (array-of-bytes) pattern parsing and
// paged scanning over a remote process's virtual address space.
package scan

import (
	"fmt"
	"strconv"
	"strings"
)

// Cell is one position in a Pattern: either a literal byte to match
// exactly, or a wildcard that matches anything.
type Cell struct {
	Value  byte
	IsWild bool
}

// Pattern is a parsed AOB signature: an ordered, non-empty sequence of
// literal-or-wildcard cells.
type Pattern []Cell

// Parse converts a textual pattern (whitespace-separated hex pairs, "??"
// for a wildcard, case-insensitive) into a Pattern. It fails on an
// odd-length token stream, a non-hex literal token, or an empty pattern.
func Parse(text string) (Pattern, error) {
	fields := strings.Fields(text)
	joined := strings.Join(fields, "")
	if len(joined)%2 != 0 {
		return nil, fmt.Errorf("scan: pattern %q has odd length after stripping whitespace", text)
	}
	if joined == "" {
		return nil, fmt.Errorf("scan: empty pattern")
	}

	cells := make(Pattern, 0, len(joined)/2)
	for i := 0; i < len(joined); i += 2 {
		tok := joined[i : i+2]
		if tok == "??" {
			cells = append(cells, Cell{IsWild: true})
			continue
		}
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("scan: invalid hex token %q in pattern %q", tok, text)
		}
		cells = append(cells, Cell{Value: byte(v)})
	}
	return cells, nil
}

// MustParse is Parse but panics on error; used for compile-time-known
// patterns (see patch.SkillBypassSites).
func MustParse(text string) Pattern {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of cells (bytes) the pattern spans.
func (p Pattern) Len() int { return len(p) }

// MatchAt reports whether the pattern matches buf starting at offset off.
func (p Pattern) MatchAt(buf []byte, off int) bool {
	if off+len(p) > len(buf) {
		return false
	}
	for i, c := range p {
		if !c.IsWild && buf[off+i] != c.Value {
			return false
		}
	}
	return true
}
