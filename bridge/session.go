package bridge

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/arena"
	"github.com/wippyai/wasm-bridge/deps"
	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/input"
	"github.com/wippyai/wasm-bridge/loop"
	"github.com/wippyai/wasm-bridge/metrics"
	"github.com/wippyai/wasm-bridge/socket"
	"github.com/wippyai/wasm-bridge/thread"
	"github.com/wippyai/wasm-bridge/timer"
)

// Session owns everything the module sees of the outside world: timers,
// sockets, input state, execution contexts and pending signals. Apart from
// PostSignal, Ready and Loop, its methods must be called on the loop; other
// goroutines go through Loop().Post.
type Session struct {
	id      uuid.UUID
	loop    *loop.Loop
	mod     Module
	arena   *arena.Arena
	log     *zap.Logger
	metrics *metrics.Metrics
	ctx     context.Context

	host      Host
	clipboard Clipboard
	midi      MIDI
	frames    FrameSource
	fetcher   deps.Fetcher
	dialer    socket.Dialer

	sockOpts      socket.Options
	parallel      int
	stackSize     uint32
	wheel         input.WheelConfig
	overlayDelay  time.Duration
	frameInterval time.Duration

	handlers map[envelope.Tag]handler

	timers  *timer.Registry
	sockets *socket.Manager
	input   *input.Normalizer
	overlay *input.ScrollOverlay
	text    input.TextArea
	threads *thread.Provisioner

	window         envelope.WindowInfo
	depth          int
	started        bool
	running        bool
	closed         bool
	ready          chan struct{}
	frameRequested bool
	depPaths       []string

	sigMu          sync.Mutex
	pendingSignals []wasmbridge.Signal
	flushScheduled bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock drives timers and frames from clock instead of the wall clock.
func WithClock(c loop.Clock) Option {
	return func(s *Session) { s.loop = loop.New(c) }
}

// WithHost sets the presentation host. The default is a 1280x720 HeadlessHost.
func WithHost(h Host) Option {
	return func(s *Session) { s.host = h }
}

// WithClipboard enables clipboard requests.
func WithClipboard(c Clipboard) Option {
	return func(s *Session) { s.clipboard = c }
}

// WithMIDI enables MIDI input.
func WithMIDI(m MIDI) Option {
	return func(s *Session) { s.midi = m }
}

// WithFrames replaces the loop frame source.
func WithFrames(f FrameSource) Option {
	return func(s *Session) { s.frames = f }
}

// WithFetcher sets where dependency blobs come from.
func WithFetcher(f deps.Fetcher, parallel int) Option {
	return func(s *Session) {
		s.fetcher = f
		s.parallel = parallel
	}
}

// WithFrameInterval sets the spacing of the default loop frame source.
func WithFrameInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.frameInterval = d
		}
	}
}

// WithDialer overrides the websocket dialer.
func WithDialer(d socket.Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithSocketOptions sets reconnect pacing.
func WithSocketOptions(o socket.Options) Option {
	return func(s *Session) { s.sockOpts = o }
}

// WithMetrics records session activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithWheelConfig overrides the wheel classifier thresholds.
func WithWheelConfig(c input.WheelConfig) Option {
	return func(s *Session) { s.wheel = c }
}

// WithStackSize sets the stack given to each execution context.
func WithStackSize(n uint32) Option {
	return func(s *Session) { s.stackSize = n }
}

// WithOverlayDelay sets the scroll overlay recenter delay.
func WithOverlayDelay(d time.Duration) Option {
	return func(s *Session) { s.overlayDelay = d }
}

// New creates a session for mod. Nothing runs until Start.
func New(mod Module, opts ...Option) *Session {
	s := &Session{
		id:           uuid.New(),
		mod:          mod,
		arena:        arena.New(mod.Memory()),
		log:          Logger(),
		ctx:          context.Background(),
		sockOpts:      socket.DefaultOptions(),
		stackSize:     thread.DefaultStackSize,
		wheel:         input.DefaultWheelConfig(),
		overlayDelay:  input.OverlayRecenterDelay,
		frameInterval: time.Second / 60,
		ready:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loop == nil {
		s.loop = loop.New(nil)
	}
	s.log = s.log.With(zap.String("session", s.id.String()))
	if s.host == nil {
		s.host = NewHeadlessHost(envelope.HostInfo{}, 1280, 720)
	}
	if s.frames == nil {
		s.frames = NewLoopFrames(s.loop, s.frameInterval)
	}
	if s.dialer == nil {
		s.dialer = socket.NewWebSocketDialer(10*time.Second, 10*time.Second)
	}

	s.timers = timer.NewRegistry(s.loop, s.timerFired).WithLogger(s.log)
	s.sockets = socket.NewManager(s.loop, s.dialer, socket.Handler{
		OnOpen:      s.socketOpened,
		OnMessage:   s.socketMessage,
		OnError:     s.socketError,
		OnClose:     s.socketClosed,
		OnReconnect: func(uint64) { s.metrics.Reconnect() },
		OnSent:      func(_ uint64, n int) { s.metrics.Sent(n) },
	}, s.sockOpts).WithLogger(s.log)
	s.input = input.NewNormalizer(s.wheel).WithLogger(s.log)
	s.overlay = input.NewScrollOverlay(s.loop, s.overlayDelay, nil)
	s.registerHandlers()
	return s
}

// ID returns the session identifier carried in every log line.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Loop returns the loop the session runs on.
func (s *Session) Loop() *loop.Loop {
	return s.loop
}

// Ready is closed once the startup handshake has completed.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Running reports whether the handshake completed and the session is open.
func (s *Session) Running() bool {
	return s.running && !s.closed
}

// Window returns the last window geometry sent to the module.
func (s *Session) Window() envelope.WindowInfo {
	return s.window
}

// Timers exposes the timer registry.
func (s *Session) Timers() *timer.Registry {
	return s.timers
}

// Sockets exposes the socket manager.
func (s *Session) Sockets() *socket.Manager {
	return s.sockets
}

// Input exposes the input normalizer.
func (s *Session) Input() *input.Normalizer {
	return s.input
}

// Overlay exposes the scroll overlay so hosts can install a recenter hook.
func (s *Session) Overlay() *input.ScrollOverlay {
	return s.overlay
}

// Run starts the session on the loop and drives the loop until ctx is done,
// the session is closed or startup fails.
func (s *Session) Run(ctx context.Context) error {
	var startErr error
	s.loop.Post(func() {
		if err := s.Start(ctx); err != nil {
			startErr = err
			s.loop.Close()
		}
	})
	err := s.loop.Run(ctx)
	if startErr != nil {
		return startErr
	}
	return err
}

// Close tears the session down: timers, sockets, execution contexts and the
// module. Every step runs even when an earlier one fails.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.timers.StopAll()
	s.sockets.CloseAll()
	s.overlay.Stop()

	var errs []error
	if s.started {
		if err := s.mod.TerminateThreadPools(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.threads != nil {
		if err := s.threads.Terminate(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.mod.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	s.loop.Close()

	err := stderrors.Join(errs...)
	if err != nil {
		s.log.Warn("session teardown incomplete", zap.Error(err))
	} else {
		s.log.Info("session closed")
	}
	return err
}

// report logs a failure that must not stop the session.
func (s *Session) report(msg string, err error, fields ...zap.Field) {
	var e *errors.Error
	if stderrors.As(err, &e) {
		switch e.Kind {
		case errors.KindUnimplemented:
			s.log.Error("unimplemented host capability", append(fields, zap.String("what", e.Detail))...)
			return
		case errors.KindDuplicateID, errors.KindDigitMiss, errors.KindNotFound:
			s.log.Warn(msg, append(fields, zap.Error(err))...)
			return
		}
		s.metrics.PumpError(string(e.Kind))
	}
	s.log.Error(msg, append(fields, zap.Error(err))...)
}

func errorKind(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return string(e.Kind)
	}
	return "unknown"
}
