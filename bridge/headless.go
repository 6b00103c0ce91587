package bridge

import (
	"sync"
	"time"

	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/input"
	"github.com/wippyai/wasm-bridge/loop"
)

// HeadlessHost is a Host without a display. It records what the module asks
// for; full screen and IME are unimplemented.
type HeadlessHost struct {
	Location envelope.HostInfo
	Geometry envelope.WindowInfo

	mu     sync.Mutex
	title  string
	cursor input.Cursor
}

// NewHeadlessHost creates a host reporting location and a fixed window.
func NewHeadlessHost(location envelope.HostInfo, width, height float64) *HeadlessHost {
	return &HeadlessHost{
		Location: location,
		Geometry: envelope.WindowInfo{
			InnerWidth:  width,
			InnerHeight: height,
			DPIFactor:   1,
		},
		cursor: input.CursorDefault,
	}
}

func (h *HeadlessHost) Info() envelope.HostInfo     { return h.Location }
func (h *HeadlessHost) Window() envelope.WindowInfo { return h.Geometry }

func (h *HeadlessHost) SetFullScreen(bool) error {
	return errors.Unimplemented("full screen")
}

func (h *HeadlessHost) SetCursor(c input.Cursor) error {
	h.mu.Lock()
	h.cursor = c
	h.mu.Unlock()
	return nil
}

func (h *HeadlessHost) SetTitle(title string) error {
	h.mu.Lock()
	h.title = title
	h.mu.Unlock()
	return nil
}

func (h *HeadlessHost) ShowTextIME(x, y float64) error {
	return errors.Unimplemented("text IME")
}

func (h *HeadlessHost) HideTextIME() error {
	return errors.Unimplemented("text IME")
}

// Title returns the last title set by the module.
func (h *HeadlessHost) Title() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.title
}

// Cursor returns the last cursor set by the module.
func (h *HeadlessHost) Cursor() input.Cursor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// LoopFrames paces animation frames on the loop clock.
type LoopFrames struct {
	loop     *loop.Loop
	interval time.Duration
	start    time.Time
}

// NewLoopFrames creates a frame source firing interval after each request.
func NewLoopFrames(l *loop.Loop, interval time.Duration) *LoopFrames {
	return &LoopFrames{loop: l, interval: interval, start: l.Clock().Now()}
}

// RequestFrame implements FrameSource.
func (f *LoopFrames) RequestFrame(fn func(seconds float64)) {
	f.loop.AfterFunc(f.interval, func() {
		fn(f.loop.Clock().Now().Sub(f.start).Seconds())
	})
}
