package socket

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketDialer dials binary websocket transports.
type WebSocketDialer struct {
	Dialer       *websocket.Dialer
	Header       http.Header
	WriteTimeout time.Duration
}

// NewWebSocketDialer returns a dialer with gorilla's default settings and the
// given per-frame write timeout.
func NewWebSocketDialer(handshakeTimeout, writeTimeout time.Duration) *WebSocketDialer {
	d := *websocket.DefaultDialer
	if handshakeTimeout > 0 {
		d.HandshakeTimeout = handshakeTimeout
	}
	return &WebSocketDialer{Dialer: &d, WriteTimeout: writeTimeout}
}

// Dial connects to url and returns once the handshake has completed.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	t := &wsTransport{
		conn:         conn,
		writeTimeout: d.WriteTimeout,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	go t.writeLoop()
	return t, nil
}

var errTransportClosed = stderrors.New("transport closed")

// wsTransport owns one websocket connection. Writes go through an unbounded
// queue drained by a dedicated goroutine, so Send never blocks the loop.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	queue  [][]byte
	closed bool
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (t *wsTransport) Listen(s Sink) {
	go t.readLoop(s)
}

func (t *wsTransport) Send(data []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errTransportClosed
	}
	t.queue = append(t.queue, data)
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
	return nil
}

func (t *wsTransport) Close() error {
	var err error
	t.once.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		close(t.done)

		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		err = t.conn.Close()
	})
	return err
}

func (t *wsTransport) writeLoop() {
	for {
		select {
		case <-t.done:
			return
		case <-t.wake:
		}

		t.mu.Lock()
		batch := t.queue
		t.queue = nil
		t.mu.Unlock()

		for _, data := range batch {
			if t.writeTimeout > 0 {
				_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
			}
			if err := t.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				// The reader observes the broken connection and reports it.
				_ = t.conn.Close()
				return
			}
		}
	}
}

func (t *wsTransport) readLoop(s Sink) {
	defer s.Closed()
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			local := t.closed
			t.mu.Unlock()
			if !local && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.Error(err)
			}
			return
		}
		s.Message(data)
	}
}
