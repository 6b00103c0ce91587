package input

import (
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/errors"
)

// Normalizer turns raw mouse, touch and wheel events into the unified finger
// model. It is not safe for concurrent use; the bridge drives it from the loop.
type Normalizer struct {
	digits     *DigitAllocator
	buttons    []uint32 // held, ascending
	lastMouse  Finger
	hasMouse   bool
	wheel      *WheelClassifier
	pageHeight float64
	misses     int
	log        *zap.Logger
}

// NewNormalizer creates a normalizer using cfg for wheel classification.
func NewNormalizer(cfg WheelConfig) *Normalizer {
	return &Normalizer{
		digits: NewDigitAllocator(),
		wheel:  NewWheelClassifier(cfg),
		log:    Logger(),
	}
}

// WithLogger replaces the normalizer's logger.
func (n *Normalizer) WithLogger(l *zap.Logger) *Normalizer {
	if l != nil {
		n.log = l
	}
	return n
}

// SetPageHeight sets the height used to scale page-mode wheel deltas.
func (n *Normalizer) SetPageHeight(h float64) {
	n.pageHeight = h
}

// Digits exposes the touch digit allocator.
func (n *Normalizer) Digits() *DigitAllocator {
	return n.digits
}

// Misses returns the number of touch lookups that fell back to digit 0.
func (n *Normalizer) Misses() int {
	return n.misses
}

// LastMouse returns the most recent hover finger.
func (n *Normalizer) LastMouse() (Finger, bool) {
	return n.lastMouse, n.hasMouse
}

// ButtonDown reports whether button is held.
func (n *Normalizer) ButtonDown(button uint32) bool {
	_, held := slices.BinarySearch(n.buttons, button)
	return held
}

func mouseFinger(e MouseEvent) Finger {
	return Finger{
		X:         e.X,
		Y:         e.Y,
		Digit:     e.Button,
		Time:      e.Time,
		Modifiers: e.Modifiers,
	}
}

func (n *Normalizer) setButton(button uint32, down bool) {
	i, held := slices.BinarySearch(n.buttons, button)
	switch {
	case down && !held:
		n.buttons = slices.Insert(n.buttons, i, button)
	case !down && held:
		n.buttons = slices.Delete(n.buttons, i, i+1)
	}
}

// MouseDown presses e.Button.
func (n *Normalizer) MouseDown(e MouseEvent) []Event {
	n.setButton(e.Button, true)
	return []Event{{Kind: FingerDown, Finger: mouseFinger(e)}}
}

// MouseUp releases e.Button.
func (n *Normalizer) MouseUp(e MouseEvent) []Event {
	n.setButton(e.Button, false)
	return []Event{{Kind: FingerUp, Finger: mouseFinger(e)}}
}

// MouseMove emits a drag for every held button, or a hover when none is held.
func (n *Normalizer) MouseMove(e MouseEvent) []Event {
	var out []Event
	for _, b := range n.buttons {
		f := mouseFinger(e)
		f.Digit = b
		out = append(out, Event{Kind: FingerMove, Finger: f})
	}

	n.lastMouse = mouseFinger(e)
	n.hasMouse = true
	if len(out) == 0 {
		out = append(out, Event{Kind: FingerHover, Finger: n.lastMouse})
	}
	return out
}

// MouseOut reports the pointer leaving the window.
func (n *Normalizer) MouseOut(e MouseEvent) []Event {
	return []Event{{Kind: FingerOut, Finger: mouseFinger(e)}}
}

func touchFinger(p TouchPoint, digit uint32, e TouchEvent) Finger {
	return Finger{
		X:         p.X,
		Y:         p.Y,
		Digit:     digit,
		Time:      e.Time,
		Modifiers: e.Modifiers,
		IsTouch:   true,
	}
}

// TouchStart allocates a digit per new contact.
func (n *Normalizer) TouchStart(e TouchEvent) []Event {
	out := make([]Event, 0, len(e.Changed))
	for _, p := range e.Changed {
		d := n.digits.Alloc(p.Identifier)
		out = append(out, Event{Kind: FingerDown, Finger: touchFinger(p, d, e)})
	}
	return out
}

// TouchMove looks up the digit of every moved contact.
func (n *Normalizer) TouchMove(e TouchEvent) []Event {
	out := make([]Event, 0, len(e.Changed))
	for _, p := range e.Changed {
		d, ok := n.digits.Lookup(p.Identifier)
		if !ok {
			d = n.miss("move", p.Identifier)
		}
		out = append(out, Event{Kind: FingerMove, Finger: touchFinger(p, d, e)})
	}
	return out
}

// TouchEnd frees the digits of ended, cancelled or departed contacts.
func (n *Normalizer) TouchEnd(e TouchEvent) []Event {
	out := make([]Event, 0, len(e.Changed))
	for _, p := range e.Changed {
		d, ok := n.digits.Free(p.Identifier)
		if !ok {
			d = n.miss("end", p.Identifier)
		}
		out = append(out, Event{Kind: FingerUp, Finger: touchFinger(p, d, e)})
	}
	return out
}

func (n *Normalizer) miss(phase string, identifier int64) uint32 {
	n.misses++
	n.log.Warn("touch digit lookup missed, using digit 0",
		zap.String("event", phase),
		zap.Error(errors.DigitMiss(identifier)))
	return 0
}

// Wheel converts a wheel event to a scroll, classifying its source.
func (n *Normalizer) Wheel(e WheelEvent) []Event {
	f := mouseFinger(e.MouseEvent)
	f.IsTouch = n.wheel.Classify(e)
	scale := n.wheel.Scale(e, n.pageHeight)
	return []Event{{
		Kind:    FingerScroll,
		Finger:  f,
		ScrollX: e.DeltaX * scale,
		ScrollY: e.DeltaY * scale,
	}}
}

// OverlayScroll converts scroll-overlay deltas into a scroll at the last hover
// position. Nothing is emitted before the pointer has moved.
func (n *Normalizer) OverlayScroll(dx, dy float64) []Event {
	if !n.hasMouse {
		return nil
	}
	f := n.lastMouse
	f.IsTouch = false
	return []Event{{Kind: FingerScroll, Finger: f, ScrollX: dx, ScrollY: dy}}
}

// Reset forgets held buttons and live touches, as after focus loss.
func (n *Normalizer) Reset() {
	n.buttons = n.buttons[:0]
	n.digits.Reset()
}
