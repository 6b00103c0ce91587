package bridge

import (
	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/input"
)

// Host events. Each is dropped until the startup handshake completes, then
// turned into one envelope and pumped.

// Resize records new window geometry, notifies the module and asks for a frame.
func (s *Session) Resize(w envelope.WindowInfo) error {
	s.window = w
	s.input.SetPageHeight(w.InnerHeight)
	if !s.Running() {
		return nil
	}
	err := s.send(s.ctx, &envelope.ResizeWindow{Window: w})
	s.requestFrame()
	return err
}

// Focus reports the window gaining or losing focus. Losing it forgets held
// buttons and live touches.
func (s *Session) Focus(gained bool) error {
	if !s.Running() {
		return nil
	}
	if gained {
		return s.send(s.ctx, &envelope.FocusGained{})
	}
	s.input.Reset()
	return s.send(s.ctx, &envelope.FocusLost{})
}

func (s *Session) MouseDown(e input.MouseEvent) error {
	if !s.Running() {
		return nil
	}
	return s.sendEvents(s.input.MouseDown(e))
}

func (s *Session) MouseUp(e input.MouseEvent) error {
	if !s.Running() {
		return nil
	}
	return s.sendEvents(s.input.MouseUp(e))
}

func (s *Session) MouseMove(e input.MouseEvent) error {
	if !s.Running() {
		return nil
	}
	return s.sendEvents(s.input.MouseMove(e))
}

func (s *Session) MouseOut(e input.MouseEvent) error {
	if !s.Running() {
		return nil
	}
	return s.sendEvents(s.input.MouseOut(e))
}

func (s *Session) TouchStart(e input.TouchEvent) error {
	if !s.Running() {
		return nil
	}
	return s.sendEvents(s.input.TouchStart(e))
}

func (s *Session) TouchMove(e input.TouchEvent) error {
	if !s.Running() {
		return nil
	}
	return s.sendEvents(s.input.TouchMove(e))
}

// TouchEnd handles end, cancel and leave alike.
func (s *Session) TouchEnd(e input.TouchEvent) error {
	if !s.Running() {
		return nil
	}
	return s.sendEvents(s.input.TouchEnd(e))
}

func (s *Session) Wheel(e input.WheelEvent) error {
	if !s.Running() {
		return nil
	}
	return s.sendEvents(s.input.Wheel(e))
}

// OverlayScroll reports new scroll offsets of the scroll overlay.
func (s *Session) OverlayScroll(top, left float64) error {
	if !s.Running() {
		return nil
	}
	dx, dy := s.overlay.Scrolled(top, left)
	return s.sendEvents(s.input.OverlayScroll(dx, dy))
}

// KeyDown delivers a key press. A copy or cut chord first asks the module for
// the text to place on the clipboard.
func (s *Session) KeyDown(e input.KeyEvent) error {
	if !s.Running() {
		return nil
	}
	if e.IsCopyOrCut() {
		if err := s.send(s.ctx, &envelope.TextCopy{}); err != nil {
			return err
		}
		s.text.Clear()
	}
	if e.IsNavigation() {
		s.text.Clear()
	}
	return s.send(s.ctx, &envelope.KeyDown{Key: keyMessage(e)})
}

func (s *Session) KeyUp(e input.KeyEvent) error {
	if !s.Running() {
		return nil
	}
	return s.send(s.ctx, &envelope.KeyUp{Key: keyMessage(e)})
}

// Paste marks the next text area input as pasted.
func (s *Session) Paste() {
	s.text.Paste()
}

// TextAreaInput reports the hidden text area's contents after an input event.
func (s *Session) TextAreaInput(value string) error {
	if !s.Running() {
		return nil
	}
	in, emit, _ := s.text.Input(value)
	if !emit {
		return nil
	}
	return s.send(s.ctx, &envelope.TextInput{
		Input:       in.Input,
		WasPaste:    in.WasPaste,
		ReplaceLast: in.ReplaceLast,
	})
}

// TextArea returns the hidden text area contents.
func (s *Session) TextArea() string {
	return s.text.Value()
}

func (s *Session) sendEvents(events []input.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]envelope.Message, 0, len(events))
	for _, e := range events {
		s.metrics.Input(e.Kind.String())
		msgs = append(msgs, fingerMessage(e))
	}
	return s.send(s.ctx, msgs...)
}

func fingerMessage(e input.Event) envelope.Message {
	f := envelope.Finger{
		X:         e.Finger.X,
		Y:         e.Finger.Y,
		Digit:     e.Finger.Digit,
		Time:      e.Finger.Time,
		Modifiers: uint32(e.Finger.Modifiers),
		IsTouch:   e.Finger.IsTouch,
	}
	switch e.Kind {
	case input.FingerDown:
		return &envelope.FingerDown{Finger: f}
	case input.FingerUp:
		return &envelope.FingerUp{Finger: f}
	case input.FingerMove:
		return &envelope.FingerMove{Finger: f}
	case input.FingerHover:
		return &envelope.FingerHover{Finger: f}
	case input.FingerOut:
		return &envelope.FingerOut{Finger: f}
	default:
		return &envelope.FingerScroll{Finger: f, ScrollX: e.ScrollX, ScrollY: e.ScrollY}
	}
}

func keyMessage(e input.KeyEvent) envelope.Key {
	return envelope.Key{
		KeyCode:   e.KeyCode,
		CharCode:  e.CharCode,
		IsRepeat:  e.IsRepeat,
		Time:      e.Time,
		Modifiers: uint32(e.Modifiers),
	}
}
