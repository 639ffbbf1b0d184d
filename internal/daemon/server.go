// Package daemon exposes a running session over HTTP and websocket.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/dawikk/hubbridge/internal/board"
	"github.com/dawikk/hubbridge/internal/engine"
	"github.com/dawikk/hubbridge/internal/history"
	"github.com/dawikk/hubbridge/internal/hub"
	"github.com/dawikk/hubbridge/internal/notation"
	"github.com/dawikk/hubbridge/internal/obslog"
	"github.com/dawikk/hubbridge/internal/session"
	"github.com/dawikk/hubbridge/internal/store"
	"github.com/dawikk/hubbridge/pkg/hubdto"
)

const (
	defaultAnalyzeTimeout = 120 * time.Second
	defaultAnalyzeDepth   = 21
	defaultHistoryLimit   = 20
)

// Config tunes the API surface. Zero values fall back to defaults.
type Config struct {
	Variant string
	// AnalyzeDepth is the search depth used when an analyze request
	// carries no limits of its own.
	AnalyzeDepth int
	// HistoryLimit caps /history responses without an explicit limit.
	HistoryLimit int
}

// Server wires the session, the event broker and the optional cache and
// history stores behind an HTTP API. The cache and repo may be nil.
type Server struct {
	sess         *session.Session
	ident        engine.Identity
	variant      string
	analyzeDepth int
	historyLimit int
	broker       *Broker
	renderer     board.Renderer
	cache        *store.Cache
	repo         *history.Repository

	analyzeMu sync.Mutex
	startedAt time.Time
}

func NewServer(sess *session.Session, ident engine.Identity, cfg Config, broker *Broker, cache *store.Cache, repo *history.Repository) *Server {
	if cfg.Variant == "" {
		cfg.Variant = "normal"
	}
	if cfg.AnalyzeDepth <= 0 {
		cfg.AnalyzeDepth = defaultAnalyzeDepth
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	return &Server{
		sess:         sess,
		ident:        ident,
		variant:      cfg.Variant,
		analyzeDepth: cfg.AnalyzeDepth,
		historyLimit: cfg.HistoryLimit,
		broker:       broker,
		renderer:     board.NewSVGBoardRenderer(),
		cache:        cache,
		repo:         repo,
		startedAt:    time.Now(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/submit", s.handleSubmit)
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/board", s.handleBoard)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.sess.Status() == session.ErrorState {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "error",
			"reason": s.sess.LastError(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := hubdto.SessionStatus{
		Status:    s.sess.Status().String(),
		LastError: s.sess.LastError(),
		Position:  s.sess.Position().Hub(),
		Book:      s.sess.BookEnabled(),
		Bitbase:   s.sess.BitbaseEnabled(),
		Uptime:    time.Since(s.startedAt).Seconds(),
	}
	if s.ident.Name != "" {
		resp.Engine = &hubdto.Identity{
			Name:    s.ident.Name,
			Version: s.ident.Version,
			Author:  s.ident.Author,
			Country: s.ident.Country,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}
	var req hubdto.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}
	ack, err := s.sess.Submit(req.Line)
	if err != nil {
		var perr *hub.ProtocolError
		if errors.As(err, &perr) {
			writeError(w, http.StatusBadRequest, string(perr.Kind), perr.Message)
			return
		}
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, hubdto.SubmitResponse{Token: ack.Token, Accepted: true})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}
	var req hubdto.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}
	if _, err := notation.ParsePosition(req.Position); err != nil {
		writeError(w, http.StatusBadRequest, "bad_position", err.Error())
		return
	}
	limits := engine.Limits{Depth: req.Depth, MoveTime: req.MoveTime}
	if limits.IsZero() {
		limits.Depth = s.analyzeDepth
	}

	resp, err := s.analyze(r.Context(), req.Position, req.Moves, limits)
	if err != nil {
		var perr *hub.ProtocolError
		if errors.As(err, &perr) {
			writeError(w, http.StatusBadRequest, string(perr.Kind), perr.Message)
			return
		}
		writeError(w, http.StatusBadGateway, "engine_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, *resp)
}

// analyze runs one position through the engine and waits for the result
// on the event stream. Requests are serialized; the session runs a single
// worker anyway and interleaved event streams could not be told apart.
func (s *Server) analyze(ctx context.Context, position, moves string, limits engine.Limits) (*hubdto.AnalyzeResponse, error) {
	s.analyzeMu.Lock()
	defer s.analyzeMu.Unlock()

	key := store.Key{Variant: s.variant, Position: position, Limits: limits}
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err != nil {
			obslog.L().Warn("analysis cache read failed", zap.Error(err))
		} else if cached != nil {
			return &hubdto.AnalyzeResponse{
				Move:     cached.Move,
				Ponder:   cached.Ponder,
				Depth:    cached.Depth,
				Score:    cached.Score,
				Nodes:    cached.Nodes,
				Duration: cached.Duration,
				Cached:   true,
			}, nil
		}
	}

	events, cancel := s.broker.Subscribe()
	defer cancel()

	posCmd := hub.Command{Name: "pos", Pairs: []hub.Pair{{Key: "pos", Value: position}}}
	if strings.TrimSpace(moves) != "" {
		posCmd.Pairs = append(posCmd.Pairs, hub.Pair{Key: "moves", Value: moves})
	}
	if _, err := s.sess.Submit(posCmd.String()); err != nil {
		return nil, err
	}
	if _, err := s.sess.Submit(levelCommand(limits)); err != nil {
		return nil, err
	}
	goAck, err := s.sess.Submit("go think")
	if err != nil {
		return nil, err
	}

	timeout := defaultAnalyzeTimeout
	if limits.MoveTime > 0 {
		timeout = time.Duration(limits.MoveTime*float64(time.Second)) + 30*time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	began := time.Now()
	var lastInfo *hub.InfoEvent
	for {
		select {
		case <-ctx.Done():
			s.sess.Submit("stop")
			return nil, ctx.Err()
		case <-timer.C:
			s.sess.Submit("stop")
			return nil, fmt.Errorf("analysis timed out after %s", timeout)
		case ev, ok := <-events:
			if !ok {
				return nil, fmt.Errorf("event stream closed")
			}
			switch e := ev.(type) {
			case hub.InfoEvent:
				lastInfo = &e
			case hub.ErrorEvent:
				return nil, fmt.Errorf("engine: %s", e.Message)
			case hub.DoneEvent:
				resp := &hubdto.AnalyzeResponse{
					Move:     e.Move,
					Ponder:   e.Ponder,
					Duration: time.Since(began).Seconds(),
				}
				if lastInfo != nil {
					resp.Depth = lastInfo.Depth
					resp.Score = lastInfo.Score
					resp.Nodes = lastInfo.Nodes
				}
				s.persistAnalysis(key, goAck.Token, resp)
				return resp, nil
			}
		}
	}
}

func (s *Server) persistAnalysis(key store.Key, token string, resp *hubdto.AnalyzeResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if s.cache != nil {
		a := store.Analysis{
			Move:     resp.Move,
			Ponder:   resp.Ponder,
			Depth:    resp.Depth,
			Score:    resp.Score,
			Nodes:    resp.Nodes,
			Duration: resp.Duration,
		}
		if err := s.cache.Put(ctx, key, a); err != nil {
			obslog.L().Warn("analysis cache write failed", zap.Error(err))
		}
	}
	if s.repo != nil {
		rec := history.Record{
			Token:    token,
			Variant:  key.Variant,
			Position: key.Position,
			Move:     resp.Move,
			Ponder:   resp.Ponder,
			Depth:    resp.Depth,
			Score:    resp.Score,
			Nodes:    resp.Nodes,
			Duration: time.Duration(resp.Duration * float64(time.Second)),
		}
		if err := s.repo.SaveSearch(ctx, rec); err != nil {
			obslog.L().Warn("search history write failed", zap.Error(err))
		}
	}
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	posParam := strings.TrimSpace(r.URL.Query().Get("pos"))
	var pos notation.Position
	if posParam == "" {
		pos = s.sess.Position()
	} else {
		parsed, err := notation.ParsePosition(posParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_position", err.Error())
			return
		}
		pos = parsed
	}

	opts := board.RenderOptions{ShowNumbers: r.URL.Query().Get("numbers") == "1"}
	if mv := strings.TrimSpace(r.URL.Query().Get("move")); mv != "" {
		parsed, err := notation.ParseMove(mv)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_move", err.Error())
			return
		}
		opts.Highlight = &board.MoveHighlight{From: parsed.From, To: parsed.To()}
	}

	png, err := s.renderer.RenderPNG(r.Context(), pos, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "render_error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusNotFound, "history_disabled", "no database configured")
		return
	}
	limit := s.historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	records, err := s.repo.RecentSearches(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history_error", err.Error())
		return
	}
	resp := hubdto.HistoryResponse{Searches: []hubdto.HistoryEntry{}}
	for _, rec := range records {
		resp.Searches = append(resp.Searches, hubdto.HistoryEntry{
			Token:    rec.Token,
			Variant:  rec.Variant,
			Position: rec.Position,
			Move:     rec.Move,
			Ponder:   rec.Ponder,
			Depth:    rec.Depth,
			Score:    rec.Score,
			Nodes:    rec.Nodes,
			Duration: rec.Duration.Seconds(),
			At:       rec.At.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	events, cancel := s.broker.Subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "server shutdown")
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "broker closed")
				return
			}
			msg := hubdto.EventMessage{Kind: ev.Kind(), Line: ev.String(), At: time.Now()}
			writeCtx, cancelWrite := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, msg)
			cancelWrite()
			if err != nil {
				return
			}
		}
	}
}

func levelCommand(limits engine.Limits) string {
	cmd := hub.Command{Name: "level"}
	if limits.Infinite {
		cmd.Pairs = append(cmd.Pairs, hub.Pair{Key: "infinite", Value: "true"})
	}
	if limits.Depth > 0 {
		cmd.Pairs = append(cmd.Pairs, hub.Pair{Key: "depth", Value: strconv.Itoa(limits.Depth)})
	}
	if limits.Nodes > 0 {
		cmd.Pairs = append(cmd.Pairs, hub.Pair{Key: "nodes", Value: strconv.FormatInt(limits.Nodes, 10)})
	}
	if limits.MoveTime > 0 {
		cmd.Pairs = append(cmd.Pairs, hub.Pair{Key: "move-time", Value: strconv.FormatFloat(limits.MoveTime, 'f', -1, 64)})
	}
	return cmd.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Debug("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, hubdto.BridgeError{Kind: kind, Message: message})
}
