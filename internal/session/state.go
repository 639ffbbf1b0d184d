package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Status is the engine session status. Reads are wait-free; writes happen
// only on the worker goroutine.
type Status int32

const (
	Stopped Status = iota
	Initializing
	Ready
	Thinking
	ErrorState
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Thinking:
		return "thinking"
	case ErrorState:
		return "error"
	}
	return "unknown"
}

const waitReadyPoll = 50 * time.Millisecond

// state holds the session status plus the last error message. The status
// itself is a single atomic word so concurrent readers never contend with
// the worker.
type state struct {
	v      atomic.Int32
	mu     sync.Mutex
	errMsg string
}

func (s *state) status() Status {
	return Status(s.v.Load())
}

func (s *state) set(st Status) {
	s.v.Store(int32(st))
}

func (s *state) fail(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	s.v.Store(int32(ErrorState))
}

func (s *state) lastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// waitReady polls until Ready is observed, ErrorState is observed, or the
// timeout elapses. Timeout and error both report false; neither is an
// exceptional outcome.
func (s *state) waitReady(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		switch s.status() {
		case Ready:
			return true
		case ErrorState:
			return false
		}
		if !time.Now().Before(deadline) {
			return false
		}
		remaining := time.Until(deadline)
		if remaining > waitReadyPoll {
			remaining = waitReadyPoll
		}
		time.Sleep(remaining)
	}
}
