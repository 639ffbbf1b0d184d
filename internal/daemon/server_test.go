package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/dawikk/hubbridge/internal/engine"
	"github.com/dawikk/hubbridge/internal/notation"
	"github.com/dawikk/hubbridge/internal/session"
	"github.com/dawikk/hubbridge/pkg/hubdto"
)

type fakeOracle struct{}

func (fakeOracle) Identity() engine.Identity {
	return engine.Identity{Name: "Scan", Version: "3.1", Author: "Fabien Letouzey", Country: "France"}
}
func (fakeOracle) InitEval() error                     { return nil }
func (fakeOracle) InitBook() error                     { return nil }
func (fakeOracle) InitBitbase() error                  { return nil }
func (fakeOracle) ResizeHash(int) error                { return nil }
func (fakeOracle) ClearHash()                          {}
func (fakeOracle) SetVariant(string) error             { return nil }
func (fakeOracle) SetParam(string, string) error       { return nil }
func (fakeOracle) NewGame()                            {}
func (fakeOracle) SetPosition(notation.Position) error { return nil }
func (fakeOracle) ApplyMove(notation.Move) error       { return nil }
func (fakeOracle) Close() error                        { return nil }

func (fakeOracle) Search(ctx context.Context, spec engine.SearchSpec) (engine.SearchResult, error) {
	if spec.OnInfo != nil {
		spec.OnInfo(engine.Info{Depth: spec.Limits.Depth, Score: 0.32, HasScore: true, Nodes: 100000})
	}
	return engine.SearchResult{Move: "32-28", Ponder: "19-23"}, nil
}

func newTestServer(t *testing.T) (*Server, *httptest.Server, *session.Session) {
	t.Helper()
	return newTestServerWithConfig(t, Config{Variant: "normal"})
}

func newTestServerWithConfig(t *testing.T, cfg Config) (*Server, *httptest.Server, *session.Session) {
	t.Helper()
	broker := NewBroker()
	sess, err := session.New(fakeOracle{}, session.Config{Reentrant: true},
		session.WithEventCallback(broker.Publish))
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	t.Cleanup(sess.Shutdown)

	srv := NewServer(sess, fakeOracle{}.Identity(), cfg, broker, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts, sess
}

func mustReady(t *testing.T, sess *session.Session) {
	t.Helper()
	if _, err := sess.Submit("init"); err != nil {
		t.Fatalf("submit init: %v", err)
	}
	if !sess.WaitReady(2 * time.Second) {
		t.Fatalf("session never became ready: %s", sess.LastError())
	}
}

func TestHealthz(t *testing.T) {
	_, ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, ts, sess := newTestServer(t)
	mustReady(t, sess)

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var status hubdto.SessionStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != "ready" {
		t.Fatalf("status = %q, want ready", status.Status)
	}
	if status.Engine == nil || status.Engine.Name != "Scan" {
		t.Fatalf("unexpected engine identity: %+v", status.Engine)
	}
	if !strings.HasPrefix(status.Position, "W") {
		t.Fatalf("unexpected position %q", status.Position)
	}
}

func TestSubmitEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t)

	body, _ := json.Marshal(hubdto.SubmitRequest{Line: "ping"})
	resp, err := http.Post(ts.URL+"/submit", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var ack hubdto.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ack.Accepted || ack.Token == "" {
		t.Fatalf("unexpected ack %+v", ack)
	}
}

func TestSubmitRejectsMalformed(t *testing.T) {
	_, ts, _ := newTestServer(t)

	body, _ := json.Marshal(hubdto.SubmitRequest{Line: "   "})
	resp, err := http.Post(ts.URL+"/submit", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestSubmitRequiresPost(t *testing.T) {
	_, ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/submit")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status %d, want 405", resp.StatusCode)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	_, ts, sess := newTestServer(t)
	mustReady(t, sess)

	req := hubdto.AnalyzeRequest{Position: notation.StartPosition().Hub(), Depth: 15}
	body, _ := json.Marshal(req)
	resp, err := http.Post(ts.URL+"/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out hubdto.AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Move != "32-28" || out.Ponder != "19-23" {
		t.Fatalf("unexpected result %+v", out)
	}
	if out.Depth != 15 {
		t.Fatalf("depth = %d, want 15", out.Depth)
	}
	if out.Cached {
		t.Fatal("first analysis should not be cached")
	}
}

func TestAnalyzeUsesConfiguredDefaultDepth(t *testing.T) {
	_, ts, sess := newTestServerWithConfig(t, Config{Variant: "normal", AnalyzeDepth: 17})
	mustReady(t, sess)

	// No limits in the request, so the server falls back to its
	// configured default depth.
	body, _ := json.Marshal(hubdto.AnalyzeRequest{Position: notation.StartPosition().Hub()})
	resp, err := http.Post(ts.URL+"/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out hubdto.AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Depth != 17 {
		t.Fatalf("depth = %d, want 17", out.Depth)
	}
}

func TestConfigDefaults(t *testing.T) {
	broker := NewBroker()
	sess, err := session.New(fakeOracle{}, session.Config{Reentrant: true})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	t.Cleanup(sess.Shutdown)

	srv := NewServer(sess, fakeOracle{}.Identity(), Config{}, broker, nil, nil)
	if srv.variant != "normal" {
		t.Fatalf("variant = %q, want normal", srv.variant)
	}
	if srv.analyzeDepth != defaultAnalyzeDepth {
		t.Fatalf("analyzeDepth = %d, want %d", srv.analyzeDepth, defaultAnalyzeDepth)
	}
	if srv.historyLimit != defaultHistoryLimit {
		t.Fatalf("historyLimit = %d, want %d", srv.historyLimit, defaultHistoryLimit)
	}
}

func TestAnalyzeRejectsBadPosition(t *testing.T) {
	_, ts, sess := newTestServer(t)
	mustReady(t, sess)

	body, _ := json.Marshal(hubdto.AnalyzeRequest{Position: "not-a-position"})
	resp, err := http.Post(ts.URL+"/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestBoardEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/board?numbers=1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type %q", ct)
	}
}

func TestHistoryDisabledWithoutDatabase(t *testing.T) {
	_, ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/history")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestWSStreamsEvents(t *testing.T) {
	_, ts, sess := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	// The handler subscribes after the handshake; keep pinging until an
	// event comes through.
	stopPinging := make(chan struct{})
	defer close(stopPinging)
	go func() {
		for {
			select {
			case <-stopPinging:
				return
			case <-time.After(50 * time.Millisecond):
				sess.Submit("ping")
			}
		}
	}()

	var msg hubdto.EventMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Kind != "pong" || msg.Line != "pong" {
		t.Fatalf("unexpected message %+v", msg)
	}
}
