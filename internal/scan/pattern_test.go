package scan

import "testing"

func TestParseWildcardMatchesAnything(t *testing.T) {
	p, err := Parse("?? ?? ?? ??")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Len() != 4 {
		t.Fatalf("expected 4 cells, got %d", p.Len())
	}
	if !p.MatchAt([]byte{0x01, 0x02, 0x03, 0x04}, 0) {
		t.Fatalf("wildcard pattern should match any 4-byte window")
	}
}

func TestParseLiteralMatchesExactBytes(t *testing.T) {
	p, err := Parse("DE AD BE EF")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.MatchAt([]byte{0xDE, 0xAD, 0xBE, 0xEF}, 0) {
		t.Fatalf("expected exact match")
	}
	if p.MatchAt([]byte{0xDE, 0xAD, 0xBE, 0xEE}, 0) {
		t.Fatalf("expected mismatch on last byte")
	}
}

func TestParseCaseInsensitive(t *testing.T) {
	p, err := Parse("de ad be ef")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.MatchAt([]byte{0xDE, 0xAD, 0xBE, 0xEF}, 0) {
		t.Fatalf("lowercase hex should parse the same as uppercase")
	}
}

func TestParseMixedLiteralAndWildcard(t *testing.T) {
	p, err := Parse("48 8B D5 49 8B CA E8 ?? ?? ?? ??")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Len() != 11 {
		t.Fatalf("expected 11 cells, got %d", p.Len())
	}
}

func TestParseOddLengthFails(t *testing.T) {
	if _, err := Parse("48 8B D"); err == nil {
		t.Fatalf("expected error for odd-length token stream")
	}
}

func TestParseNonHexFails(t *testing.T) {
	if _, err := Parse("ZZ"); err == nil {
		t.Fatalf("expected error for non-hex literal token")
	}
}

func TestParseEmptyFails(t *testing.T) {
	if _, err := Parse("   "); err == nil {
		t.Fatalf("expected error for empty pattern")
	}
}

func TestParseRoundTrip(t *testing.T) {
	// parse(render(P)) == P for a representative pattern.
	text := "75 43 0F B7 CF E8"
	p, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var rendered string
	for i, c := range p {
		if i > 0 {
			rendered += " "
		}
		if c.IsWild {
			rendered += "??"
		} else {
			rendered += hexByte(c.Value)
		}
	}
	p2, err := Parse(rendered)
	if err != nil {
		t.Fatalf("Parse(rendered): %v", err)
	}
	if len(p) != len(p2) {
		t.Fatalf("round trip length mismatch")
	}
	for i := range p {
		if p[i] != p2[i] {
			t.Fatalf("round trip mismatch at cell %d", i)
		}
	}
}

func hexByte(b byte) string {
	const hex = "0123456789ABCDEF"
	return string([]byte{hex[b>>4], hex[b&0xF]})
}
