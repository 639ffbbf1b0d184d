// Package engine defines the boundary to the draughts search oracle. The
// session layer drives an Oracle from a single goroutine, so
// implementations do not need to be safe for concurrent use.
package engine

import (
	"context"
	"sync/atomic"

	"github.com/dawikk/hubbridge/internal/notation"
)

// Identity is the engine self-description emitted on the "hub" handshake.
type Identity struct {
	Name    string
	Version string
	Author  string
	Country string
}

// Limits bound a search. Several may be set at once; the oracle stops at
// whichever triggers first. A zero Limits with Infinite unset means the
// oracle picks its own default effort.
type Limits struct {
	Depth    int
	Nodes    int64
	MoveTime float64
	Infinite bool
}

func (l Limits) IsZero() bool {
	return l.Depth == 0 && l.Nodes == 0 && l.MoveTime == 0 && !l.Infinite
}

// Info is a periodic search progress report.
type Info struct {
	Depth     int
	MeanDepth float64
	Score     float64
	HasScore  bool
	Nodes     int64
	Time      float64
	NPS       float64
	PV        []string
}

// SearchResult is the outcome of a completed search. Ponder may be empty.
type SearchResult struct {
	Move   string
	Ponder string
}

// SearchSpec configures one search invocation. Stop is the cooperative
// cancellation flag: the oracle observes it at its own internal check
// boundaries and returns the best move found so far. Analyze asks for an
// analysis search: the opening book is bypassed and the result is not
// meant to be played. OnInfo, when set, is invoked on the searching
// goroutine.
type SearchSpec struct {
	Limits  Limits
	Ponder  bool
	Analyze bool
	Stop    *atomic.Bool
	OnInfo  func(Info)
}

// Oracle is the external search engine consumed as a black box. All calls
// are made from the session worker goroutine.
//
// InitEval is the critical init step: its failure leaves the engine
// unusable. InitBook and InitBitbase are optional subsystems; a failure
// disables the subsystem without failing initialization. SetParam
// forwards an already-validated parameter assignment; SetVariant and
// ResizeHash are the typed init-time entry points for the same knobs.
type Oracle interface {
	Identity() Identity
	InitEval() error
	InitBook() error
	InitBitbase() error
	ResizeHash(logSize int) error
	ClearHash()
	SetVariant(variant string) error
	SetParam(name, value string) error
	NewGame()
	SetPosition(p notation.Position) error
	ApplyMove(m notation.Move) error
	Search(ctx context.Context, spec SearchSpec) (SearchResult, error)
	Close() error
}
