package hub

import "fmt"

// ErrKind classifies protocol-level failures.
type ErrKind string

const (
	MalformedLine         ErrKind = "malformed-line"
	InvalidState          ErrKind = "invalid-state"
	UnknownCommand        ErrKind = "unknown-command"
	UnknownParameter      ErrKind = "unknown-parameter"
	InvalidParameterValue ErrKind = "invalid-parameter-value"
	IllegalMove           ErrKind = "illegal-move"
	BadPosition           ErrKind = "bad-position"
	InitFailure           ErrKind = "init-failure"
	EngineFault           ErrKind = "engine-fault"
	AlreadyRunning        ErrKind = "already-running"
)

// ProtocolError is the uniform error carried across dispatch boundaries.
// It never escapes the worker as a panic; it becomes an "error" response
// line or a state transition.
type ProtocolError struct {
	Kind    ErrKind
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// Errorf builds a ProtocolError with a formatted message.
func Errorf(kind ErrKind, format string, args ...any) *ProtocolError {
	return &ProtocolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
