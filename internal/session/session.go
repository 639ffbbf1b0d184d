// Package session implements the HUB protocol session: a single worker
// goroutine owns all command dispatch and search invocations, while any
// number of caller goroutines submit commands and read status.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dawikk/hubbridge/internal/engine"
	"github.com/dawikk/hubbridge/internal/hub"
	"github.com/dawikk/hubbridge/internal/notation"
	"github.com/dawikk/hubbridge/internal/obslog"
)

const (
	defaultQueueSize = 128
	// Bounded wake so the worker observes the quit flag even while the
	// queue stays empty.
	workerWakeInterval = 100 * time.Millisecond
)

// Config tunes a Session.
type Config struct {
	// QueueSize bounds the pending command queue; zero means the default.
	QueueSize int
	// CatalogPath optionally overrides the embedded parameter catalogue.
	CatalogPath string
	// Reentrant must be set when the oracle is confirmed safe to run in
	// several sessions of the same process. Left false, constructing a
	// second live session fails with AlreadyRunning.
	Reentrant bool
}

// Ack acknowledges submission of one command. Started is closed when the
// worker has dequeued and begun the command; it says nothing about search
// completion, which is observable only on the event stream.
type Ack struct {
	Token   string
	Started <-chan struct{}
}

type pendingCommand struct {
	cmd     hub.Command
	token   string
	started chan struct{}
}

func (pc pendingCommand) begin() {
	select {
	case <-pc.started:
	default:
		close(pc.started)
	}
}

// liveSessions guards against accidentally sharing a non-reentrant oracle.
var liveSessions atomic.Int32

// Session owns the protocol state machine, the command queue and the
// worker goroutine driving the oracle.
type Session struct {
	oracle  engine.Oracle
	cfg     Config
	st      *state
	catalog *Catalog

	onLine  func(string)
	onEvent func(hub.Event)

	pending  chan pendingCommand
	quitCh   chan struct{}
	quitOnce sync.Once
	quitting atomic.Bool
	stopFlag atomic.Bool
	wg       sync.WaitGroup

	// Worker-owned; read elsewhere only through snapshot accessors.
	limits   engine.Limits
	position notation.Position
	posMu    sync.Mutex

	bookEnabled atomic.Bool
	bbEnabled   atomic.Bool
}

// Option configures callbacks at construction time.
type Option func(*Session)

// WithLineCallback registers the raw response-line sink. It is invoked on
// the worker goroutine; the receiver must hand lines off to its own
// goroutine and must never submit commands from inside the callback.
func WithLineCallback(fn func(string)) Option {
	return func(s *Session) { s.onLine = fn }
}

// WithEventCallback additionally delivers parsed events. Same threading
// contract as WithLineCallback.
func WithEventCallback(fn func(hub.Event)) Option {
	return func(s *Session) { s.onEvent = fn }
}

// New builds a session around the oracle and starts its worker. The
// session begins Stopped; issue init to reach Ready.
func New(oracle engine.Oracle, cfg Config, opts ...Option) (*Session, error) {
	if oracle == nil {
		return nil, fmt.Errorf("oracle required")
	}
	if !cfg.Reentrant {
		if !liveSessions.CompareAndSwap(0, 1) {
			return nil, hub.Errorf(hub.AlreadyRunning, "a session already owns the oracle engine")
		}
	} else {
		liveSessions.Add(1)
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	s := &Session{
		oracle:   oracle,
		cfg:      cfg,
		st:       &state{},
		pending:  make(chan pendingCommand, queueSize),
		quitCh:   make(chan struct{}),
		position: notation.StartPosition(),
	}
	for _, opt := range opts {
		opt(s)
	}

	catalog, err := LoadCatalog(cfg.CatalogPath)
	if err != nil {
		liveSessions.Add(-1)
		return nil, err
	}
	s.catalog = catalog
	s.bookEnabled.Store(catalog.GetBool("book"))
	s.bbEnabled.Store(catalog.GetInt("bb-size") > 0)

	s.wg.Add(1)
	go s.workerLoop()
	return s, nil
}

// Submit parses and enqueues one command line. It never blocks on command
// execution; a full queue or a malformed line fails fast. stop and quit
// additionally set their cooperative flags here, on the caller goroutine,
// because the worker may be deep inside a search and the flags are the
// only channel that reaches it.
func (s *Session) Submit(line string) (Ack, error) {
	if s.quitting.Load() {
		return Ack{}, fmt.Errorf("session is shutting down")
	}

	cmd, err := hub.Parse(line)
	if err != nil {
		return Ack{}, err
	}

	switch cmd.Name {
	case "stop":
		if s.st.status() == Thinking {
			s.stopFlag.Store(true)
		}
	case "quit":
		s.stopFlag.Store(true)
		s.quitting.Store(true)
	}

	pc := pendingCommand{
		cmd:     cmd,
		token:   uuid.NewString(),
		started: make(chan struct{}),
	}

	select {
	case s.pending <- pc:
	default:
		return Ack{}, fmt.Errorf("command queue full")
	}
	if cmd.Name == "quit" {
		s.signalQuit()
	}
	return Ack{Token: pc.token, Started: pc.started}, nil
}

// Status returns the current session status without blocking.
func (s *Session) Status() Status { return s.st.status() }

// LastError returns the message recorded with the last ErrorState entry.
func (s *Session) LastError() string { return s.st.lastError() }

// WaitReady blocks the caller until Ready, ErrorState or the timeout.
func (s *Session) WaitReady(timeout time.Duration) bool {
	return s.st.waitReady(timeout)
}

// Position returns a snapshot of the current board position.
func (s *Session) Position() notation.Position {
	s.posMu.Lock()
	defer s.posMu.Unlock()
	return s.position
}

// BookEnabled reports whether the opening book survived init.
func (s *Session) BookEnabled() bool { return s.bookEnabled.Load() }

// BitbaseEnabled reports whether the endgame bitbase survived init.
func (s *Session) BitbaseEnabled() bool { return s.bbEnabled.Load() }

// Shutdown stops the worker and joins it. An in-flight search is asked to
// stop cooperatively; Shutdown returns only once the worker has exited,
// so the oracle is no longer referenced afterwards.
func (s *Session) Shutdown() {
	s.quitting.Store(true)
	s.stopFlag.Store(true)
	s.signalQuit()
	s.wg.Wait()
}

// Close shuts the session down and releases the oracle.
func (s *Session) Close() error {
	s.Shutdown()
	return s.oracle.Close()
}

func (s *Session) signalQuit() {
	s.quitOnce.Do(func() { close(s.quitCh) })
}

func (s *Session) workerLoop() {
	defer s.wg.Done()
	defer liveSessions.Add(-1)
	defer s.st.set(Stopped)
	defer s.drainPending()

	for {
		if s.quitting.Load() {
			return
		}
		select {
		case pc := <-s.pending:
			pc.begin()
			s.safeDispatch(pc.cmd)
		case <-s.quitCh:
			// Re-check the quit flag at the top of the loop.
		case <-time.After(workerWakeInterval):
		}
	}
}

// drainPending unblocks any callers still waiting for their Started
// signal after the worker exits; their commands are dropped.
func (s *Session) drainPending() {
	for {
		select {
		case pc := <-s.pending:
			pc.begin()
		default:
			return
		}
	}
}

// safeDispatch isolates one command: a panic in a handler moves the
// session to ErrorState and is reported on the event stream, and the
// worker keeps serving the queue.
func (s *Session) safeDispatch(cmd hub.Command) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("command %s faulted: %v", cmd.Name, r)
			obslog.L().Error("dispatch panic", zap.String("command", cmd.Raw), zap.Any("panic", r))
			s.st.fail(msg)
			s.emitError(msg)
		}
	}()
	s.dispatch(cmd)
}

func (s *Session) emit(ev hub.Event) {
	if s.onLine != nil {
		s.onLine(ev.String())
	}
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

func (s *Session) emitError(message string) {
	s.emit(hub.ErrorEvent{Message: message})
}
