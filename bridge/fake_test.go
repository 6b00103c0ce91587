package bridge

import (
	"context"
	"sync"
	"time"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/arena"
	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/input"
	"github.com/wippyai/wasm-bridge/loop"
	"github.com/wippyai/wasm-bridge/socket"
	"github.com/wippyai/wasm-bridge/thread"
)

const (
	outPtr  = 0x1000
	inPtr   = 0x10000
	dataPtr = 0x30000
)

// fakeModule stands in for a compiled module. Every pump is decoded and
// recorded; respond scripts what the module sends back.
type fakeModule struct {
	mem     *arena.SliceMemory
	respond func(msgs []envelope.Message) []envelope.Message
	depth   func() int
	msgPtr  uint32
	callCtx context.Context

	pumps     [][]envelope.Message
	depths    []int
	freedMsgs []uint32
	freedData [][2]uint32
	signal    wasmbridge.SignalFunc

	terminated bool
	closed     bool
}

func newFakeModule() *fakeModule {
	return &fakeModule{mem: arena.NewSliceMemory(4)}
}

func (m *fakeModule) Memory() wasmbridge.Memory { return m.mem }

func (m *fakeModule) CreateApp(context.Context) (uint32, error) { return 7, nil }

func (m *fakeModule) NewMsg(context.Context, uint32) (uint32, error) {
	if m.msgPtr != 0 {
		return m.msgPtr, nil
	}
	return outPtr, nil
}

func (m *fakeModule) ProcessMsg(ctx context.Context, msg uint32) (uint32, error) {
	m.callCtx = ctx
	header, _ := m.mem.Read(msg, envelope.HeaderSize)
	n, err := envelope.Length(header)
	if err != nil {
		return 0, err
	}
	raw, _ := m.mem.Read(msg, n)
	msgs, err := envelope.Decode(envelope.ToWasm, raw)
	if err != nil {
		return 0, err
	}
	m.pumps = append(m.pumps, msgs)
	if m.depth != nil {
		m.depths = append(m.depths, m.depth())
	}

	if m.respond == nil {
		return 0, nil
	}
	reply := m.respond(msgs)
	if reply == nil {
		return 0, nil
	}
	data, err := envelope.Encode(reply...)
	if err != nil {
		return 0, err
	}
	m.mem.Write(inPtr, data)
	return inPtr, nil
}

func (m *fakeModule) FreeMsg(_ context.Context, msg uint32) error {
	m.freedMsgs = append(m.freedMsgs, msg)
	return nil
}

func (m *fakeModule) FreeData(_ context.Context, ptr, capacity uint32) error {
	m.freedData = append(m.freedData, [2]uint32{ptr, capacity})
	return nil
}

func (m *fakeModule) TerminateThreadPools(context.Context) error {
	m.terminated = true
	return nil
}

func (m *fakeModule) Close(context.Context) error {
	m.closed = true
	return nil
}

func (m *fakeModule) OnSignal(fn wasmbridge.SignalFunc) { m.signal = fn }

// tags flattens every recorded pump into "Tag" strings, one slice per pump.
func (m *fakeModule) tags() [][]string {
	out := make([][]string, len(m.pumps))
	for i, p := range m.pumps {
		for _, msg := range p {
			out[i] = append(out[i], msg.Tag().String())
		}
	}
	return out
}

// last returns the messages of the most recent pump.
func (m *fakeModule) last() []envelope.Message {
	if len(m.pumps) == 0 {
		return nil
	}
	return m.pumps[len(m.pumps)-1]
}

// since returns the pumps recorded after the first n.
func (m *fakeModule) since(n int) [][]envelope.Message {
	return m.pumps[n:]
}

// threadedModule adds execution context support to fakeModule.
type threadedModule struct {
	*fakeModule
	mu      sync.Mutex
	next    uint32
	layouts []thread.Layout
	kinds   []thread.Kind
}

func newThreadedModule() *threadedModule {
	return &threadedModule{fakeModule: newFakeModule(), next: 0x20000}
}

func (m *threadedModule) HasThreadSupport() bool { return true }
func (m *threadedModule) HasStackPointer() bool  { return true }

func (m *threadedModule) TLSSize() (uint32, error) { return 24, nil }

func (m *threadedModule) AllocTLSAndStack(_ context.Context, units uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.next
	m.next += units * 8
	return p, nil
}

func (m *threadedModule) Spawn(_ context.Context, kind thread.Kind, layout thread.Layout, _ wasmbridge.SignalFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds = append(m.kinds, kind)
	m.layouts = append(m.layouts, layout)
	return nil
}

func (m *threadedModule) TerminateAll(context.Context) error { return nil }

// recordingHost is a HeadlessHost whose title changes can be observed.
type recordingHost struct {
	*HeadlessHost
	onTitle    func(string)
	fullScreen []bool
}

func newRecordingHost() *recordingHost {
	return &recordingHost{HeadlessHost: NewHeadlessHost(envelope.HostInfo{Protocol: "http:"}, 800, 600)}
}

func (h *recordingHost) SetTitle(title string) error {
	if err := h.HeadlessHost.SetTitle(title); err != nil {
		return err
	}
	if h.onTitle != nil {
		h.onTitle(title)
	}
	return nil
}

func (h *recordingHost) SetFullScreen(on bool) error {
	h.fullScreen = append(h.fullScreen, on)
	return nil
}

type fakeClipboard struct {
	text string
}

func (c *fakeClipboard) ReadAll() (string, error) { return c.text, nil }

func (c *fakeClipboard) WriteAll(text string) error {
	c.text = text
	return nil
}

type fakeMIDI struct {
	inputs func([]envelope.MidiInput)
	data   func(uint32, uint32)
}

func (f *fakeMIDI) Start(inputs func([]envelope.MidiInput), data func(uint32, uint32)) error {
	f.inputs = inputs
	f.data = data
	return nil
}

type fakeTransport struct {
	mu   sync.Mutex
	sent [][]byte
	sink socket.Sink
}

func (t *fakeTransport) Listen(s socket.Sink) {
	t.mu.Lock()
	t.sink = s
	t.mu.Unlock()
}

func (t *fakeTransport) Send(data []byte) error {
	t.mu.Lock()
	t.sent = append(t.sent, data)
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) Close() error { return nil }

func (t *fakeTransport) Sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sent))
	for i, b := range t.sent {
		out[i] = string(b)
	}
	return out
}

// instantDialer connects every url to the same transport without blocking.
type instantDialer struct {
	transport *fakeTransport
}

func (d *instantDialer) Dial(context.Context, string) (socket.Transport, error) {
	return d.transport, nil
}

// harness wires a session to a fake module on a manual clock.
type harness struct {
	clock *loop.ManualClock
	mod   *fakeModule
	host  *recordingHost
	s     *Session
}

func newHarness(mod Module, opts ...Option) *harness {
	h := &harness{
		clock: loop.NewManualClock(time.Unix(0, 0)),
		host:  newRecordingHost(),
	}
	switch m := mod.(type) {
	case *fakeModule:
		h.mod = m
	case *threadedModule:
		h.mod = m.fakeModule
	}
	opts = append([]Option{WithClock(h.clock), WithHost(h.host)}, opts...)
	h.s = New(mod, opts...)
	h.mod.depth = h.s.Depth
	return h
}

// advance moves the clock and runs whatever became due.
func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.s.Loop().RunPending()
}

// settle runs the loop until cond holds or a second of real time passes.
func settle(s *Session, cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.Loop().RunPending()
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func ctrl(code uint32) input.KeyEvent {
	return input.KeyEvent{KeyCode: code, Modifiers: input.ModCtrl}
}
