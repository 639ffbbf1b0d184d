package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dawikk/hubbridge/internal/hub"
	"github.com/dawikk/hubbridge/internal/notation"
	"github.com/dawikk/hubbridge/internal/obslog"
	"go.uber.org/zap"
)

const (
	defaultHandshakeTimeout = 5 * time.Second
	defaultInitTimeout      = 30 * time.Second
	defaultBarrierTimeout   = 4 * time.Second
	stopPollInterval        = 25 * time.Millisecond
)

// Process drives an external HUB engine binary over stdin/stdout pipes.
// It satisfies Oracle; legality checks and search both delegate to the
// subprocess. Not safe for concurrent use, matching the Oracle contract.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex

	identity Identity
	params   []hub.ParamEvent

	position notation.Position
	moves    []notation.Move
}

// ProcessOption configures the engine subprocess before launch.
type ProcessOption func(*processConfig)

type processConfig struct {
	args    []string
	workDir string
}

// WithArgs passes extra command line arguments to the engine binary.
func WithArgs(args ...string) ProcessOption {
	return func(pc *processConfig) { pc.args = append(pc.args, args...) }
}

// WithWorkDir sets the working directory the engine runs in. Engines
// usually resolve their data files relative to it.
func WithWorkDir(dir string) ProcessOption {
	return func(pc *processConfig) { pc.workDir = dir }
}

// NewProcess spawns the engine binary and completes the "hub" handshake,
// capturing its identity and parameter catalogue.
func NewProcess(ctx context.Context, binaryPath string, opts ...ProcessOption) (*Process, error) {
	if strings.TrimSpace(binaryPath) == "" {
		return nil, fmt.Errorf("engine binary path required")
	}
	if _, err := os.Stat(binaryPath); err != nil {
		return nil, fmt.Errorf("engine binary check: %w", err)
	}

	var pc processConfig
	for _, opt := range opts {
		opt(&pc)
	}

	cmd := exec.CommandContext(ctx, binaryPath, pc.args...)
	if pc.workDir != "" {
		cmd.Dir = pc.workDir
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	p := &Process{
		cmd:      cmd,
		stdin:    stdin,
		stdout:   bufio.NewReader(stdoutPipe),
		position: notation.StartPosition(),
	}

	if err := p.handshake(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Process) handshake(ctx context.Context) error {
	hsCtx, cancel := context.WithTimeout(ctx, defaultHandshakeTimeout)
	defer cancel()

	if err := p.send("hub"); err != nil {
		return fmt.Errorf("send hub: %w", err)
	}
	for {
		line, err := p.readLine(hsCtx)
		if err != nil {
			return fmt.Errorf("hub handshake: %w", err)
		}
		if line == "" {
			continue
		}
		ev, err := hub.ParseEvent(line)
		if err != nil {
			obslog.L().Debug("engine handshake noise", zap.String("line", line))
			continue
		}
		switch e := ev.(type) {
		case hub.IDEvent:
			p.identity = Identity{Name: e.Name, Version: e.Version, Author: e.Author, Country: e.Country}
		case hub.ParamEvent:
			p.params = append(p.params, e)
		case hub.WaitEvent:
			return nil
		}
	}
}

func (p *Process) Identity() Identity { return p.identity }

// Params returns the catalogue the engine announced during the handshake.
func (p *Process) Params() []hub.ParamEvent {
	return append([]hub.ParamEvent(nil), p.params...)
}

// InitEval runs the engine's full init and waits for ready. The external
// engine folds book and bitbase loading into the same command, so this is
// the single critical step.
func (p *Process) InitEval() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultInitTimeout)
	defer cancel()

	if err := p.send("init"); err != nil {
		return fmt.Errorf("send init: %w", err)
	}
	for {
		line, err := p.readLine(ctx)
		if err != nil {
			return fmt.Errorf("wait ready: %w", err)
		}
		ev, perr := hub.ParseEvent(line)
		if perr != nil {
			continue
		}
		switch e := ev.(type) {
		case hub.ReadyEvent:
			return nil
		case hub.ErrorEvent:
			return fmt.Errorf("engine init: %s", e.Message)
		}
	}
}

// InitBook and InitBitbase are folded into InitEval for a subprocess
// engine; the toggles are applied through set-param instead.
func (p *Process) InitBook() error    { return nil }
func (p *Process) InitBitbase() error { return nil }

func (p *Process) ResizeHash(logSize int) error {
	return p.SetParam("tt-size", strconv.Itoa(logSize))
}

// ClearHash is a no-op: the subprocess clears its transposition table on
// new-game, and NewGame sends that line.
func (p *Process) ClearHash() {}

func (p *Process) SetVariant(variant string) error {
	return p.SetParam("variant", variant)
}

func (p *Process) NewGame() {
	_ = p.send("new-game")
	p.position = notation.StartPosition()
	p.moves = nil
}

// SetPosition replaces the engine position wholesale.
func (p *Process) SetPosition(pos notation.Position) error {
	p.position = pos
	p.moves = nil
	return p.syncPosition()
}

// ApplyMove forwards the move and uses a ping barrier to learn whether the
// engine accepted it: the engine answers pos errors out of band, so the
// pong doubles as the success acknowledgement.
func (p *Process) ApplyMove(m notation.Move) error {
	p.moves = append(p.moves, m)
	if err := p.syncPosition(); err != nil {
		p.moves = p.moves[:len(p.moves)-1]
		return err
	}
	return nil
}

func (p *Process) syncPosition() error {
	cmd := hub.Command{Name: "pos", Pairs: []hub.Pair{{Key: "pos", Value: p.position.Hub()}}}
	if len(p.moves) > 0 {
		parts := make([]string, len(p.moves))
		for i, m := range p.moves {
			parts[i] = m.String()
		}
		cmd.Pairs = append(cmd.Pairs, hub.Pair{Key: "moves", Value: strings.Join(parts, " ")})
	}
	if err := p.send(cmd.String()); err != nil {
		return fmt.Errorf("send pos: %w", err)
	}
	return p.barrier()
}

// barrier sends a ping and drains output until the matching pong,
// surfacing any error line seen in between.
func (p *Process) barrier() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultBarrierTimeout)
	defer cancel()

	if err := p.send("ping"); err != nil {
		return fmt.Errorf("send ping: %w", err)
	}
	for {
		line, err := p.readLine(ctx)
		if err != nil {
			return fmt.Errorf("wait pong: %w", err)
		}
		ev, perr := hub.ParseEvent(line)
		if perr != nil {
			continue
		}
		switch e := ev.(type) {
		case hub.PongEvent:
			return nil
		case hub.ErrorEvent:
			return fmt.Errorf("%s", e.Message)
		}
	}
}

// Search issues level+go and streams the engine's output until done. The
// cooperative stop flag is relayed to the subprocess as a stop command.
func (p *Process) Search(ctx context.Context, spec SearchSpec) (SearchResult, error) {
	if err := p.send(levelLine(spec.Limits)); err != nil {
		return SearchResult{}, fmt.Errorf("send level: %w", err)
	}
	goCmd := "go think"
	switch {
	case spec.Analyze:
		goCmd = "go analyze"
	case spec.Ponder:
		goCmd = "go ponder"
	}
	if err := p.send(goCmd); err != nil {
		return SearchResult{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if spec.Stop != nil {
		go p.relayStop(searchCtx, spec.Stop)
	}

	for {
		line, err := p.readLine(searchCtx)
		if err != nil {
			return SearchResult{}, fmt.Errorf("read search output: %w", err)
		}
		if line == "" {
			continue
		}
		ev, perr := hub.ParseEvent(line)
		if perr != nil {
			obslog.L().Debug("engine search noise", zap.String("line", line))
			continue
		}
		switch e := ev.(type) {
		case hub.InfoEvent:
			if spec.OnInfo != nil {
				spec.OnInfo(Info{
					Depth:     e.Depth,
					MeanDepth: e.MeanDepth,
					Score:     e.Score,
					HasScore:  e.HasScore,
					Nodes:     e.Nodes,
					Time:      e.Time,
					NPS:       e.NPS,
					PV:        e.PV,
				})
			}
		case hub.DoneEvent:
			return SearchResult{Move: e.Move, Ponder: e.Ponder}, nil
		case hub.ErrorEvent:
			return SearchResult{}, fmt.Errorf("engine search: %s", e.Message)
		}
	}
}

func (p *Process) relayStop(ctx context.Context, stop *atomic.Bool) {
	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if stop.Load() {
				_ = p.send("stop")
				return
			}
		}
	}
}

func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stdin != nil {
		_, _ = io.WriteString(p.stdin, "quit\n")
		p.stdin.Close()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		done := make(chan error, 1)
		go func() { done <- p.cmd.Wait() }()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			_ = p.cmd.Process.Kill()
			return <-done
		}
	}
	return nil
}

// SetParam forwards one validated assignment and barriers on it.
func (p *Process) SetParam(name, value string) error {
	cmd := hub.Command{Name: "set-param", Pairs: []hub.Pair{
		{Key: "name", Value: name},
		{Key: "value", Value: value},
	}}
	if err := p.send(cmd.String()); err != nil {
		return fmt.Errorf("send set-param: %w", err)
	}
	return p.barrier()
}

// levelLine renders the limits as a HUB level command. An empty Limits
// still produces a valid line resetting the engine to its defaults.
func levelLine(l Limits) string {
	cmd := hub.Command{Name: "level"}
	if l.Infinite {
		cmd.Pairs = append(cmd.Pairs, hub.Pair{Key: "infinite"})
	}
	if l.Depth > 0 {
		cmd.Pairs = append(cmd.Pairs, hub.Pair{Key: "depth", Value: strconv.Itoa(l.Depth)})
	}
	if l.Nodes > 0 {
		cmd.Pairs = append(cmd.Pairs, hub.Pair{Key: "nodes", Value: strconv.FormatInt(l.Nodes, 10)})
	}
	if l.MoveTime > 0 {
		cmd.Pairs = append(cmd.Pairs, hub.Pair{Key: "move-time", Value: strconv.FormatFloat(l.MoveTime, 'f', -1, 64)})
	}
	return cmd.String()
}

func (p *Process) send(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.stdin, line+"\n")
	return err
}

func (p *Process) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := p.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return "", res.err
		}
		return res.line, nil
	}
}
