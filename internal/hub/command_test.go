package hub

import (
	"errors"
	"testing"
)

func TestParseBasicPairs(t *testing.T) {
	c, err := Parse("set-param name=threads value=4")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Name != "set-param" {
		t.Fatalf("name = %q", c.Name)
	}
	if got := c.Value("name"); got != "threads" {
		t.Fatalf("name pair = %q", got)
	}
	if got := c.Value("value"); got != "4" {
		t.Fatalf("value pair = %q", got)
	}
}

func TestParseQuotedValueSpansTokens(t *testing.T) {
	c, err := Parse(`info pv="32-28 19-23"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := c.Value("pv"); got != "32-28 19-23" {
		t.Fatalf("pv = %q, want spaces preserved and quotes stripped", got)
	}
}

func TestParseQuotedValueUnterminated(t *testing.T) {
	c, err := Parse(`id author="Fabien Letouzey`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := c.Value("author"); got != "Fabien Letouzey" {
		t.Fatalf("author = %q", got)
	}
}

func TestParseBareFlag(t *testing.T) {
	c, err := Parse("go think")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.Has("think") {
		t.Fatalf("think flag not retained")
	}
	if v, ok := c.Lookup("think"); !ok || v != "" {
		t.Fatalf("flag lookup = %q, %v", v, ok)
	}
	if c.Has("ponder") {
		t.Fatalf("absent key reported present")
	}
}

func TestParseLastWins(t *testing.T) {
	c, err := Parse("level depth=3 depth=7")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := c.Value("depth"); got != "7" {
		t.Fatalf("depth = %q, want last value", got)
	}
	if len(c.Pairs) != 2 {
		t.Fatalf("pairs = %d, want both retained", len(c.Pairs))
	}
}

func TestParseEmptyLine(t *testing.T) {
	for _, line := range []string{"", "   ", "\t"} {
		_, err := Parse(line)
		var perr *ProtocolError
		if !errors.As(err, &perr) || perr.Kind != MalformedLine {
			t.Fatalf("Parse(%q) err = %v, want MalformedLine", line, err)
		}
	}
}

func TestParseSkipsKeylessFragment(t *testing.T) {
	c, err := Parse("pos =oops pos=start")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := c.Value("pos"); got != "start" {
		t.Fatalf("pos = %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	lines := []string{
		"ping",
		"go think",
		"level depth=12 nodes=500000",
		"pos pos=Wbbbbbbbbbbbbbbbbbbbbeeeeeeeeeewwwwwwwwwwwwwwwwwwww",
	}
	for _, line := range lines {
		c1, err := Parse(line)
		if err != nil {
			t.Fatalf("Parse(%q): %v", line, err)
		}
		c2, err := Parse(c1.String())
		if err != nil {
			t.Fatalf("re-Parse(%q): %v", c1.String(), err)
		}
		if c1.Name != c2.Name || len(c1.Pairs) != len(c2.Pairs) {
			t.Fatalf("round trip changed shape: %q vs %q", line, c2.String())
		}
		for i := range c1.Pairs {
			if c1.Pairs[i] != c2.Pairs[i] {
				t.Fatalf("pair %d changed: %+v vs %+v", i, c1.Pairs[i], c2.Pairs[i])
			}
		}
	}
}

func TestRoundTripQuoted(t *testing.T) {
	c1, err := Parse(`error message="unknown command: foo"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c2, err := Parse(c1.String())
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}
	if got := c2.Value("message"); got != "unknown command: foo" {
		t.Fatalf("message = %q", got)
	}
}
