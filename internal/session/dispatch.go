package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dawikk/hubbridge/internal/engine"
	"github.com/dawikk/hubbridge/internal/hub"
	"github.com/dawikk/hubbridge/internal/notation"
	"github.com/dawikk/hubbridge/internal/obslog"
)

// dispatch routes one parsed command. Precondition failures emit a
// structured error line and leave state untouched; they never panic.
func (s *Session) dispatch(cmd hub.Command) {
	switch cmd.Name {
	case "hub":
		s.handleHub()
	case "init":
		s.handleInit()
	case "pos":
		s.handlePos(cmd)
	case "level":
		s.handleLevel(cmd)
	case "go":
		s.handleGo(cmd)
	case "stop":
		// Cooperative flag was set at submission time when a search was
		// in flight; dispatched here it is a no-op either way.
	case "new-game":
		s.handleNewGame()
	case "ping":
		s.emit(hub.PongEvent{})
	case "set-param":
		s.handleSetParam(cmd)
	case "quit":
		s.quitting.Store(true)
		s.signalQuit()
	default:
		s.emitError(fmt.Sprintf("unknown command: %s", cmd.Name))
	}
}

func (s *Session) handleHub() {
	id := s.oracle.Identity()
	s.emit(hub.IDEvent{Name: id.Name, Version: id.Version, Author: id.Author, Country: id.Country})
	for _, param := range s.catalog.Events() {
		s.emit(param)
	}
	s.emit(hub.WaitEvent{})
}

// handleInit brings the oracle subsystems up. Book and bitbase failures
// disable the subsystem and init proceeds; an evaluation or hash failure
// is fatal and moves the session to ErrorState without emitting ready.
func (s *Session) handleInit() {
	switch s.st.status() {
	case Stopped, Ready, ErrorState:
	default:
		s.emitError(fmt.Sprintf("init not allowed while %s", s.st.status()))
		return
	}
	s.st.set(Initializing)

	if variant, ok := s.catalog.Get("variant"); ok {
		if err := s.oracle.SetVariant(variant); err != nil {
			s.st.fail(fmt.Sprintf("init failed: variant %s: %v", variant, err))
			s.emitError(s.st.lastError())
			return
		}
	}

	if s.catalog.GetBool("book") {
		if err := s.oracle.InitBook(); err != nil {
			obslog.L().Warn("opening book disabled", zap.Error(err))
			s.catalog.Set("book", "false")
			s.bookEnabled.Store(false)
		} else {
			s.bookEnabled.Store(true)
		}
	}
	if s.catalog.GetInt("bb-size") > 0 {
		if err := s.oracle.InitBitbase(); err != nil {
			obslog.L().Warn("endgame bitbase disabled", zap.Error(err))
			s.catalog.Set("bb-size", "0")
			s.bbEnabled.Store(false)
		} else {
			s.bbEnabled.Store(true)
		}
	}

	if err := s.oracle.InitEval(); err != nil {
		s.st.fail(fmt.Sprintf("init failed: %v", err))
		s.emitError(s.st.lastError())
		return
	}
	if err := s.oracle.ResizeHash(s.catalog.GetInt("tt-size")); err != nil {
		s.st.fail(fmt.Sprintf("init failed: hash table: %v", err))
		s.emitError(s.st.lastError())
		return
	}

	s.st.set(Ready)
	s.emit(hub.ReadyEvent{})
}

// handlePos replaces the position and applies trailing moves in order.
// The first illegal move stops the list; moves already applied stay
// applied, mirroring incremental application on the engine side.
func (s *Session) handlePos(cmd hub.Command) {
	if s.st.status() == Thinking {
		s.emitError("pos not allowed while thinking")
		return
	}

	pos := notation.StartPosition()
	var movesField string
	for _, pair := range cmd.Pairs {
		switch pair.Key {
		case "start":
			pos = notation.StartPosition()
		case "pos":
			parsed, err := notation.ParsePosition(pair.Value)
			if err != nil {
				s.emitError(fmt.Sprintf("bad position: %v", err))
				return
			}
			pos = parsed
		case "moves":
			movesField = pair.Value
		}
	}

	if err := s.oracle.SetPosition(pos); err != nil {
		s.emitError(fmt.Sprintf("bad position: %v", err))
		return
	}
	s.setPosition(pos)
	s.limits = engine.Limits{}

	for _, token := range strings.Fields(movesField) {
		move, err := notation.ParseMove(token)
		if err != nil {
			s.emitError(fmt.Sprintf("bad move: %s", token))
			return
		}
		if err := s.oracle.ApplyMove(move); err != nil {
			s.emitError(fmt.Sprintf("illegal move: %s", token))
			return
		}
	}
}

// handleLevel merges supplied fields into the pending search limits.
// Unknown fields are ignored; unparsable values are skipped.
func (s *Session) handleLevel(cmd hub.Command) {
	if s.st.status() == Thinking {
		s.emitError("level not allowed while thinking")
		return
	}

	for _, pair := range cmd.Pairs {
		switch pair.Key {
		case "depth":
			if n, err := strconv.Atoi(pair.Value); err == nil && n >= 0 {
				s.limits.Depth = n
			}
		case "nodes":
			if n, err := strconv.ParseInt(pair.Value, 10, 64); err == nil && n >= 0 {
				s.limits.Nodes = n
			}
		case "time", "move-time":
			if f, err := strconv.ParseFloat(pair.Value, 64); err == nil && f >= 0 {
				s.limits.MoveTime = f
			}
		case "infinite":
			s.limits.Infinite = true
		}
	}
}

// handleGo runs the search synchronously on the worker goroutine; this is
// what guarantees at most one in-flight search. The accumulated limits
// are consumed and cleared regardless of outcome.
func (s *Session) handleGo(cmd hub.Command) {
	if st := s.st.status(); st != Ready {
		s.emitError(fmt.Sprintf("go not allowed while %s", st))
		return
	}

	ponder := cmd.Has("ponder")
	analyze := cmd.Has("analyze")
	limits := s.limits
	s.limits = engine.Limits{}

	s.stopFlag.Store(false)
	s.st.set(Thinking)

	result, err := s.oracle.Search(context.Background(), engine.SearchSpec{
		Limits:  limits,
		Ponder:  ponder,
		Analyze: analyze,
		Stop:    &s.stopFlag,
		OnInfo: func(info engine.Info) {
			s.emit(hub.InfoEvent{
				Depth:     info.Depth,
				MeanDepth: info.MeanDepth,
				Score:     info.Score,
				HasScore:  info.HasScore,
				Nodes:     info.Nodes,
				Time:      info.Time,
				NPS:       info.NPS,
				PV:        info.PV,
			})
		},
	})
	if err != nil {
		// Engine faults abandon the search without a done line and
		// require explicit recovery by the caller.
		s.st.fail(fmt.Sprintf("search failed: %v", err))
		s.emitError(s.st.lastError())
		return
	}

	s.emit(hub.DoneEvent{Move: result.Move, Ponder: result.Ponder})
	s.st.set(Ready)
}

func (s *Session) handleNewGame() {
	s.oracle.ClearHash()
	s.oracle.NewGame()
	s.setPosition(notation.StartPosition())
}

func (s *Session) handleSetParam(cmd hub.Command) {
	name := cmd.Value("name")
	if name == "" {
		s.emitError("missing parameter name")
		return
	}
	value, ok := cmd.Lookup("value")
	if !ok {
		s.emitError(fmt.Sprintf("missing value for parameter %s", name))
		return
	}

	applied, perr := s.catalog.Set(name, value)
	if perr != nil {
		s.emitError(perr.Message)
		return
	}

	// Every accepted assignment reaches the oracle, clamped value and all.
	if err := s.oracle.SetParam(name, applied); err != nil {
		s.emitError(fmt.Sprintf("parameter %s not applied: %v", name, err))
	}
}

func (s *Session) setPosition(p notation.Position) {
	s.posMu.Lock()
	s.position = p
	s.posMu.Unlock()
}
