package bridgeclient

import (
	"context"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/dawikk/hubbridge/pkg/hubdto"
)

type EventCallback func(hubdto.EventMessage)

// EventStream maintains the websocket subscription to a bridge daemon
// and replays engine events into a callback, reconnecting on failure.
type EventStream struct {
	wsURL string

	conn  *websocket.Conn
	connM sync.Mutex

	callback EventCallback

	maxReconnectAttempts int

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewEventStream(wsURL string, cb EventCallback, maxReconnectAttempts int) *EventStream {
	return &EventStream{
		wsURL:                wsURL,
		callback:             cb,
		maxReconnectAttempts: maxReconnectAttempts,
		stopCh:               make(chan struct{}),
	}
}

func (es *EventStream) Connect(ctx context.Context) error {
	es.rootCtx, es.rootCancel = context.WithCancel(context.Background())

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, es.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return err
	}

	es.setConn(conn)
	es.wg.Add(1)
	go es.listen()
	return nil
}

func (es *EventStream) listen() {
	defer es.wg.Done()
	for {
		select {
		case <-es.stopCh:
			return
		default:
		}

		conn := es.getConn()
		if conn == nil {
			return
		}
		var msg hubdto.EventMessage
		if err := wsjson.Read(es.rootCtx, conn, &msg); err != nil {
			if es.isStopping() {
				return
			}
			es.closeConn(websocket.StatusGoingAway, "reconnect")
			es.scheduleReconnect()
			return
		}
		if es.callback != nil {
			es.callback(msg)
		}
	}
}

func (es *EventStream) scheduleReconnect() {
	if es.maxReconnectAttempts <= 0 {
		return
	}
	go func() {
		for attempt := 1; attempt <= es.maxReconnectAttempts; attempt++ {
			select {
			case <-es.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}

			dialCtx, cancel := context.WithTimeout(es.rootCtx, 10*time.Second)
			conn, _, err := websocket.Dial(dialCtx, es.wsURL, &websocket.DialOptions{
				CompressionMode: websocket.CompressionNoContextTakeover,
			})
			cancel()
			if err != nil {
				continue
			}

			es.setConn(conn)
			es.wg.Add(1)
			go es.listen()
			return
		}
	}()
}

func (es *EventStream) Close(ctx context.Context) error {
	es.stopOnce.Do(func() { close(es.stopCh) })
	es.closeConn(websocket.StatusNormalClosure, "close")

	done := make(chan struct{})
	go func() {
		es.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if es.rootCancel != nil {
			es.rootCancel()
		}
		return nil
	}
}

func (es *EventStream) setConn(conn *websocket.Conn) {
	es.connM.Lock()
	es.conn = conn
	es.connM.Unlock()
}

func (es *EventStream) getConn() *websocket.Conn {
	es.connM.Lock()
	defer es.connM.Unlock()
	return es.conn
}

func (es *EventStream) closeConn(code websocket.StatusCode, reason string) {
	es.connM.Lock()
	defer es.connM.Unlock()
	if es.conn == nil {
		return
	}
	es.conn.Close(code, reason)
	es.conn = nil
}

func (es *EventStream) isStopping() bool {
	select {
	case <-es.stopCh:
		return true
	default:
		return false
	}
}
