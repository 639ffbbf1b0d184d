package engine

import (
	"bytes"
	"testing"
)

type pipeRecorder struct {
	bytes.Buffer
}

func (*pipeRecorder) Close() error { return nil }

func TestNewGameSendsSingleLine(t *testing.T) {
	var stdin pipeRecorder
	p := &Process{stdin: &stdin}

	p.ClearHash()
	if stdin.Len() != 0 {
		t.Fatalf("ClearHash wrote %q", stdin.String())
	}

	p.NewGame()
	if got := stdin.String(); got != "new-game\n" {
		t.Fatalf("NewGame wrote %q, want a single new-game line", got)
	}
}

func TestLevelLine(t *testing.T) {
	cases := []struct {
		limits Limits
		want   string
	}{
		{Limits{}, "level"},
		{Limits{Depth: 12}, "level depth=12"},
		{Limits{Nodes: 500000}, "level nodes=500000"},
		{Limits{MoveTime: 2.5}, "level move-time=2.5"},
		{Limits{Infinite: true}, "level infinite"},
		{Limits{Depth: 8, MoveTime: 1}, "level depth=8 move-time=1"},
	}
	for _, tc := range cases {
		if got := levelLine(tc.limits); got != tc.want {
			t.Fatalf("levelLine(%+v) = %q, want %q", tc.limits, got, tc.want)
		}
	}
}

func TestLimitsIsZero(t *testing.T) {
	if !(Limits{}).IsZero() {
		t.Fatalf("zero limits not reported zero")
	}
	for _, l := range []Limits{
		{Depth: 1},
		{Nodes: 1},
		{MoveTime: 0.1},
		{Infinite: true},
	} {
		if l.IsZero() {
			t.Fatalf("%+v reported zero", l)
		}
	}
}
