package notation

import "testing"

const startCompact = "Wbbbbbbbbbbbbbbbbbbbbeeeeeeeeeewwwwwwwwwwwwwwwwwwww"

func TestStartPositionCompact(t *testing.T) {
	if got := StartPosition().Hub(); got != startCompact {
		t.Fatalf("start = %q", got)
	}
}

func TestParseCompactRoundTrip(t *testing.T) {
	p, err := ParsePosition(startCompact)
	if err != nil {
		t.Fatalf("ParsePosition: %v", err)
	}
	if p.Turn != White {
		t.Fatalf("turn = %v", p.Turn)
	}
	if len(p.WhiteMen) != 20 || len(p.BlackMen) != 20 {
		t.Fatalf("men = %d/%d", len(p.WhiteMen), len(p.BlackMen))
	}
	if got := p.Hub(); got != startCompact {
		t.Fatalf("round trip = %q", got)
	}
}

func TestParseDelimited(t *testing.T) {
	p, err := ParsePosition("B:31,36:19,20:36")
	if err != nil {
		t.Fatalf("ParsePosition: %v", err)
	}
	if p.Turn != Black {
		t.Fatalf("turn = %v", p.Turn)
	}
	if len(p.WhiteMen) != 1 || p.WhiteMen[0] != 31 {
		t.Fatalf("white men = %v", p.WhiteMen)
	}
	if len(p.WhiteKings) != 1 || p.WhiteKings[0] != 36 {
		t.Fatalf("white kings = %v", p.WhiteKings)
	}
	if len(p.BlackMen) != 2 {
		t.Fatalf("black men = %v", p.BlackMen)
	}
	if got := p.String(); got != "B:31,36:19,20:36" {
		t.Fatalf("delimited round trip = %q", got)
	}
}

func TestParsePositionRejects(t *testing.T) {
	for _, s := range []string{
		"",
		"X" + startCompact[1:],
		"W" + startCompact[2:],  // short
		"W:1,99:2",              // square out of range
		"W:31:19:40",            // king on empty square
		"Wzbbbbbbbbbbbbbbbbbbbeeeeeeeeeewwwwwwwwwwwwwwwwwwww", // bad piece char
	} {
		if _, err := ParsePosition(s); err == nil {
			t.Fatalf("ParsePosition(%q) accepted", s)
		}
	}
}

func TestPieceAt(t *testing.T) {
	p := StartPosition()
	if got := p.PieceAt(1); got != 'b' {
		t.Fatalf("square 1 = %c", got)
	}
	if got := p.PieceAt(25); got != 'e' {
		t.Fatalf("square 25 = %c", got)
	}
	if got := p.PieceAt(50); got != 'w' {
		t.Fatalf("square 50 = %c", got)
	}
}

func TestParseMoveQuiet(t *testing.T) {
	m, err := ParseMove("32-28")
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	if m.From != 32 || m.To() != 28 || m.IsCapture() {
		t.Fatalf("move = %+v", m)
	}
	if m.String() != "32-28" {
		t.Fatalf("String = %q", m.String())
	}
}

func TestParseMoveCapture(t *testing.T) {
	m, err := ParseMove("32x21x12")
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	if !m.IsCapture() || m.From != 32 || m.To() != 12 {
		t.Fatalf("move = %+v", m)
	}
	if len(m.Landings) != 2 {
		t.Fatalf("landings = %v", m.Landings)
	}
	if m.String() != "32x21x12" {
		t.Fatalf("String = %q", m.String())
	}
}

func TestParseMoveSingleCaptureKeepsNotation(t *testing.T) {
	m, err := ParseMove("27x18")
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	if !m.IsCapture() {
		t.Fatalf("single jump not marked capture")
	}
	if m.String() != "27x18" {
		t.Fatalf("String = %q", m.String())
	}
}

func TestParseMoveRejects(t *testing.T) {
	for _, s := range []string{"", "32", "32-", "0-5", "32-99", "99-99", "a-b", "32-28-24"} {
		if _, err := ParseMove(s); err == nil {
			t.Fatalf("ParseMove(%q) accepted", s)
		}
	}
}

func TestParseMoveList(t *testing.T) {
	moves, err := ParseMoveList("32-28 19-23 28x19")
	if err != nil {
		t.Fatalf("ParseMoveList: %v", err)
	}
	if len(moves) != 3 || moves[2].String() != "28x19" {
		t.Fatalf("moves = %v", moves)
	}

	partial, err := ParseMoveList("32-28 99-99")
	if err == nil {
		t.Fatalf("expected error on bad second move")
	}
	if len(partial) != 1 {
		t.Fatalf("valid prefix = %v", partial)
	}
}
