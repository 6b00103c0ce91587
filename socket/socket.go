package socket

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/loop"
)

// State is the lifecycle state of one connection.
type State uint8

const (
	Connecting State = iota
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Sink receives transport events. Implementations are called from transport
// goroutines.
type Sink interface {
	Message(data []byte)
	Error(err error)
	Closed()
}

// Transport is an established message-oriented connection.
type Transport interface {
	// Listen starts event delivery to sink. Events before Listen are held.
	Listen(sink Sink)
	Send(data []byte) error
	Close() error
}

// Dialer establishes transports. Dial blocks until the transport is ready.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// Handler receives connection notifications on the loop.
type Handler struct {
	OnOpen      func(id uint64)
	OnMessage   func(id uint64, data []byte)
	OnError     func(id uint64, msg string)
	OnClose     func(id uint64)
	OnReconnect func(id uint64)
	OnSent      func(id uint64, n int)
}

// Options tune reconnect pacing.
type Options struct {
	// ReconnectInterval is the minimum spacing between dials of one id.
	ReconnectInterval time.Duration
	// ReconnectBurst is the number of dials allowed back to back.
	ReconnectBurst int
}

// DefaultOptions returns the pacing used when none is configured.
func DefaultOptions() Options {
	return Options{
		ReconnectInterval: 500 * time.Millisecond,
		ReconnectBurst:    1,
	}
}

type conn struct {
	id            uint64
	url           string
	autoReconnect bool
	state         State
	pending       [][]byte
	transport     Transport
	gen           uint64
	limiter       *rate.Limiter
}

// Manager owns every socket the module opened. All methods except the Sink
// callbacks must be called from the loop goroutine.
type Manager struct {
	loop    *loop.Loop
	dialer  Dialer
	handler Handler
	opts    Options
	conns   map[uint64]*conn
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a manager that dials through d and reports to h.
func NewManager(l *loop.Loop, d Dialer, h Handler, opts Options) *Manager {
	if opts.ReconnectBurst <= 0 {
		opts.ReconnectBurst = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		loop:    l,
		dialer:  d,
		handler: h,
		opts:    opts,
		conns:   make(map[uint64]*conn),
		log:     Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// WithLogger replaces the manager's logger.
func (m *Manager) WithLogger(l *zap.Logger) *Manager {
	if l != nil {
		m.log = l
	}
	return m
}

// Open starts connecting id to url. An id that is still connecting or open
// is rejected; a terminally closed id may be reopened.
func (m *Manager) Open(id uint64, url string, autoReconnect bool) error {
	if m.ctx.Err() != nil {
		return errors.Closed(errors.PhaseSocket, "socket manager")
	}
	if c, ok := m.conns[id]; ok && c.state != Closed {
		return errors.DuplicateID(errors.PhaseSocket, "socket", id)
	}
	limit := rate.Inf
	if m.opts.ReconnectInterval > 0 {
		limit = rate.Every(m.opts.ReconnectInterval)
	}
	c := &conn{
		id:            id,
		url:           url,
		autoReconnect: autoReconnect,
		limiter:       rate.NewLimiter(limit, m.opts.ReconnectBurst),
	}
	m.conns[id] = c
	m.connect(c)
	return nil
}

// Send transmits data on id, or queues it while the connection is not yet
// open. The manager takes ownership of data.
func (m *Manager) Send(id uint64, data []byte) error {
	c, ok := m.conns[id]
	if !ok {
		return errors.NotFound(errors.PhaseSocket, "socket", id)
	}
	switch c.state {
	case Connecting:
		c.pending = append(c.pending, data)
		return nil
	case Open:
		return m.transmit(c, data)
	default:
		return errors.New(errors.PhaseSocket, errors.KindClosed).
			ID(id).
			Detail("send on closed socket").
			Build()
	}
}

// State returns the state of id.
func (m *Manager) State(id uint64) (State, bool) {
	c, ok := m.conns[id]
	if !ok {
		return Closed, false
	}
	return c.state, true
}

// Queued returns the number of sends waiting for id to open.
func (m *Manager) Queued(id uint64) int {
	if c, ok := m.conns[id]; ok {
		return len(c.pending)
	}
	return 0
}

// Len returns the number of connections that are not terminally closed.
func (m *Manager) Len() int {
	n := 0
	for _, c := range m.conns {
		if c.state != Closed {
			n++
		}
	}
	return n
}

// CloseAll tears down every connection without notifying the module and
// stops pending reconnects. The manager refuses new sockets afterwards.
func (m *Manager) CloseAll() {
	m.cancel()
	for id, c := range m.conns {
		c.gen++
		c.state = Closed
		c.pending = nil
		if c.transport != nil {
			if err := c.transport.Close(); err != nil {
				m.log.Debug("socket close", zap.Uint64("id", id), zap.Error(err))
			}
			c.transport = nil
		}
	}
}

func (m *Manager) connect(c *conn) {
	c.gen++
	c.state = Connecting
	gen := c.gen
	id, url := c.id, c.url
	m.log.Debug("socket connecting", zap.Uint64("id", id), zap.String("url", url))

	go func() {
		if err := c.limiter.Wait(m.ctx); err != nil {
			return
		}
		t, err := m.dialer.Dial(m.ctx, url)
		if !m.loop.Post(func() { m.dialed(c, gen, t, err) }) && t != nil {
			_ = t.Close()
		}
	}()
}

func (m *Manager) dialed(c *conn, gen uint64, t Transport, err error) {
	if c.gen != gen {
		if t != nil {
			_ = t.Close()
		}
		return
	}
	if err != nil {
		m.log.Warn("socket dial failed", zap.Uint64("id", c.id), zap.String("url", c.url), zap.Error(err))
		m.reportError(c.id, errors.Transport(c.id, err))
		m.closed(c, gen)
		return
	}

	c.transport = t
	c.state = Open
	queued := c.pending
	c.pending = nil
	for _, data := range queued {
		if err := m.transmit(c, data); err != nil {
			m.log.Warn("socket flush failed", zap.Uint64("id", c.id), zap.Error(err))
			break
		}
	}
	t.Listen(&sink{m: m, c: c, gen: gen})
	if m.handler.OnOpen != nil {
		m.handler.OnOpen(c.id)
	}
}

func (m *Manager) transmit(c *conn, data []byte) error {
	if err := c.transport.Send(data); err != nil {
		return errors.Transport(c.id, err)
	}
	if m.handler.OnSent != nil {
		m.handler.OnSent(c.id, len(data))
	}
	return nil
}

func (m *Manager) reportError(id uint64, err error) {
	if m.handler.OnError != nil {
		m.handler.OnError(id, err.Error())
	}
}

func (m *Manager) closed(c *conn, gen uint64) {
	if c.gen != gen || c.state == Closed {
		return
	}
	if c.transport != nil {
		_ = c.transport.Close()
		c.transport = nil
	}
	c.state = Closed
	reconnect := c.autoReconnect && m.ctx.Err() == nil
	if reconnect {
		// Sends raised while the module handles the close are queued for the
		// next connection.
		m.connect(c)
	} else {
		c.gen++
		c.pending = nil
	}
	m.log.Debug("socket closed", zap.Uint64("id", c.id), zap.Bool("reconnect", reconnect))
	if m.handler.OnClose != nil {
		m.handler.OnClose(c.id)
	}
	if reconnect && m.handler.OnReconnect != nil {
		m.handler.OnReconnect(c.id)
	}
}

// sink forwards transport events of one connection generation onto the loop.
type sink struct {
	m   *Manager
	c   *conn
	gen uint64
}

func (s *sink) Message(data []byte) {
	s.m.loop.Post(func() {
		if s.c.gen != s.gen || s.c.state != Open {
			return
		}
		if s.m.handler.OnMessage != nil {
			s.m.handler.OnMessage(s.c.id, data)
		}
	})
}

func (s *sink) Error(err error) {
	s.m.loop.Post(func() {
		if s.c.gen != s.gen {
			return
		}
		s.m.log.Warn("socket error", zap.Uint64("id", s.c.id), zap.Error(err))
		s.m.reportError(s.c.id, errors.Transport(s.c.id, err))
	})
}

func (s *sink) Closed() {
	s.m.loop.Post(func() { s.m.closed(s.c, s.gen) })
}
