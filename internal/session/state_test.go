package session

import (
	"testing"
	"time"
)

func TestStatusStrings(t *testing.T) {
	cases := map[Status]string{
		Stopped:      "stopped",
		Initializing: "initializing",
		Ready:        "ready",
		Thinking:     "thinking",
		ErrorState:   "error",
	}
	for st, want := range cases {
		if st.String() != want {
			t.Fatalf("%d.String() = %q", st, st.String())
		}
	}
}

func TestWaitReadyObservesReady(t *testing.T) {
	st := &state{}
	go func() {
		time.Sleep(20 * time.Millisecond)
		st.set(Ready)
	}()
	if !st.waitReady(time.Second) {
		t.Fatalf("waitReady missed Ready")
	}
}

func TestWaitReadyShortCircuitsOnError(t *testing.T) {
	st := &state{}
	st.fail("engine fault")
	start := time.Now()
	if st.waitReady(time.Second) {
		t.Fatalf("waitReady true in error state")
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Fatalf("waitReady did not short-circuit on error")
	}
	if st.lastError() != "engine fault" {
		t.Fatalf("lastError = %q", st.lastError())
	}
}
