package input

import (
	"time"

	"github.com/wippyai/wasm-bridge/loop"
)

const (
	// OverlayCenter is the resting scroll offset of the overlay on both axes.
	OverlayCenter = 200000
	// OverlayRecenterDelay is the quiet period after which the overlay is
	// scrolled back to its center.
	OverlayRecenterDelay = 200 * time.Millisecond
)

// ScrollOverlay turns the scroll offsets of a large invisible scrollable
// surface into deltas. Hosts whose touch surfaces lack native momentum events
// scroll the overlay and report its offsets here. After a quiet period the
// overlay is recentered so it never runs out of range.
type ScrollOverlay struct {
	loop     *loop.Loop
	delay    time.Duration
	lastTop  float64
	lastLeft float64
	pending  *loop.Handle
	recenter func(top, left float64)
}

// NewScrollOverlay creates an overlay. recenter is called on the loop when the
// host must move the surface back to the center; it may be nil.
func NewScrollOverlay(l *loop.Loop, delay time.Duration, recenter func(top, left float64)) *ScrollOverlay {
	if delay <= 0 {
		delay = OverlayRecenterDelay
	}
	return &ScrollOverlay{
		loop:     l,
		delay:    delay,
		lastTop:  OverlayCenter,
		lastLeft: OverlayCenter,
		recenter: recenter,
	}
}

// Scrolled records the surface's new offsets and returns the deltas since the
// previous report.
func (o *ScrollOverlay) Scrolled(top, left float64) (dx, dy float64) {
	dx = left - o.lastLeft
	dy = top - o.lastTop
	o.lastTop = top
	o.lastLeft = left

	if o.pending != nil {
		o.pending.Cancel()
	}
	o.pending = o.loop.AfterFunc(o.delay, o.center)
	return dx, dy
}

// Offsets returns the last known offsets.
func (o *ScrollOverlay) Offsets() (top, left float64) {
	return o.lastTop, o.lastLeft
}

// Stop cancels a pending recenter.
func (o *ScrollOverlay) Stop() {
	if o.pending != nil {
		o.pending.Cancel()
		o.pending = nil
	}
}

func (o *ScrollOverlay) center() {
	o.pending = nil
	o.lastTop = OverlayCenter
	o.lastLeft = OverlayCenter
	if o.recenter != nil {
		o.recenter(OverlayCenter, OverlayCenter)
	}
}
