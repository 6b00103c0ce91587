package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-bridge/bridge"
	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/input"
)

// trace is a recorded sequence of host events. Each step waits, then
// delivers at most one event.
type trace struct {
	Steps []step `yaml:"steps"`
	// Settle is how long the session keeps running after the last step.
	Settle time.Duration `yaml:"settle"`
}

type step struct {
	Wait   time.Duration `yaml:"wait"`
	Mouse  *mouseStep    `yaml:"mouse,omitempty"`
	Touch  *touchStep    `yaml:"touch,omitempty"`
	Wheel  *wheelStep    `yaml:"wheel,omitempty"`
	Key    *keyStep      `yaml:"key,omitempty"`
	Text   *string       `yaml:"text,omitempty"`
	Paste  *string       `yaml:"paste,omitempty"`
	Resize *resizeStep   `yaml:"resize,omitempty"`
	Focus  *bool         `yaml:"focus,omitempty"`
	Scroll *scrollStep   `yaml:"scroll,omitempty"`
}

type mods struct {
	Shift bool `yaml:"shift"`
	Ctrl  bool `yaml:"ctrl"`
	Alt   bool `yaml:"alt"`
	Meta  bool `yaml:"meta"`
}

func (m mods) pack() input.Modifiers {
	return input.PackModifiers(m.Shift, m.Ctrl, m.Alt, m.Meta)
}

type mouseStep struct {
	Action string  `yaml:"action"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Button uint32  `yaml:"button"`
	mods   `yaml:",inline"`
}

type touchPoint struct {
	ID int64   `yaml:"id"`
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
}

type touchStep struct {
	Action string       `yaml:"action"`
	Points []touchPoint `yaml:"points"`
	mods   `yaml:",inline"`
}

type wheelStep struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	DX      float64 `yaml:"dx"`
	DY      float64 `yaml:"dy"`
	WheelDY float64 `yaml:"wheel_dy"`
	Mode    string  `yaml:"mode"`
	mods    `yaml:",inline"`
}

type keyStep struct {
	Action string `yaml:"action"`
	Code   uint32 `yaml:"code"`
	Char   uint32 `yaml:"char"`
	Repeat bool   `yaml:"repeat"`
	mods   `yaml:",inline"`
}

type resizeStep struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	DPI    float64 `yaml:"dpi"`
}

type scrollStep struct {
	Top  float64 `yaml:"top"`
	Left float64 `yaml:"left"`
}

func loadTrace(path string) (*trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return parseTrace(data)
}

func parseTrace(data []byte) (*trace, error) {
	var tr trace
	if err := yaml.Unmarshal(data, &tr); err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Cause(err).
			Detail("parse trace").
			Build()
	}
	for i, st := range tr.Steps {
		if err := st.validate(); err != nil {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				ID(uint64(i)).
				Cause(err).
				Detail("trace step %d", i).
				Build()
		}
	}
	return &tr, nil
}

func (st step) events() int {
	n := 0
	for _, set := range []bool{
		st.Mouse != nil, st.Touch != nil, st.Wheel != nil, st.Key != nil,
		st.Text != nil, st.Paste != nil, st.Resize != nil, st.Focus != nil,
		st.Scroll != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func (st step) validate() error {
	if st.Wait < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "negative wait")
	}
	if st.events() > 1 {
		return errors.InvalidInput(errors.PhaseConfig, "a step carries at most one event")
	}
	switch {
	case st.Mouse != nil:
		return oneOf("mouse action", st.Mouse.Action, "down", "up", "move", "out")
	case st.Touch != nil:
		return oneOf("touch action", st.Touch.Action, "start", "move", "end")
	case st.Key != nil:
		return oneOf("key action", st.Key.Action, "down", "up", "press")
	case st.Wheel != nil:
		return oneOf("wheel mode", st.Wheel.Mode, "", "pixel", "line", "page")
	}
	return nil
}

func oneOf(what, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown %s %q", what, v))
}

// apply delivers the step's event. at is the event time in seconds. It must
// run on the session loop.
func (st step) apply(s *bridge.Session, at float64) error {
	switch {
	case st.Mouse != nil:
		e := input.MouseEvent{X: st.Mouse.X, Y: st.Mouse.Y, Button: st.Mouse.Button, Time: at, Modifiers: st.Mouse.pack()}
		switch st.Mouse.Action {
		case "down":
			return s.MouseDown(e)
		case "up":
			return s.MouseUp(e)
		case "move":
			return s.MouseMove(e)
		default:
			return s.MouseOut(e)
		}
	case st.Touch != nil:
		e := input.TouchEvent{Time: at, Modifiers: st.Touch.pack()}
		for _, p := range st.Touch.Points {
			e.Changed = append(e.Changed, input.TouchPoint{Identifier: p.ID, X: p.X, Y: p.Y})
		}
		switch st.Touch.Action {
		case "start":
			return s.TouchStart(e)
		case "move":
			return s.TouchMove(e)
		default:
			return s.TouchEnd(e)
		}
	case st.Wheel != nil:
		return s.Wheel(input.WheelEvent{
			MouseEvent:  input.MouseEvent{X: st.Wheel.X, Y: st.Wheel.Y, Time: at, Modifiers: st.Wheel.pack()},
			DeltaX:      st.Wheel.DX,
			DeltaY:      st.Wheel.DY,
			WheelDeltaY: st.Wheel.WheelDY,
			DeltaMode:   deltaMode(st.Wheel.Mode),
		})
	case st.Key != nil:
		e := input.KeyEvent{KeyCode: st.Key.Code, CharCode: st.Key.Char, IsRepeat: st.Key.Repeat, Time: at, Modifiers: st.Key.pack()}
		switch st.Key.Action {
		case "down":
			return s.KeyDown(e)
		case "up":
			return s.KeyUp(e)
		default:
			if err := s.KeyDown(e); err != nil {
				return err
			}
			return s.KeyUp(e)
		}
	case st.Text != nil:
		return s.TextAreaInput(*st.Text)
	case st.Paste != nil:
		s.Paste()
		return s.TextAreaInput(s.TextArea() + *st.Paste)
	case st.Resize != nil:
		dpi := st.Resize.DPI
		if dpi == 0 {
			dpi = 1
		}
		return s.Resize(envelope.WindowInfo{
			InnerWidth:  st.Resize.Width,
			InnerHeight: st.Resize.Height,
			DPIFactor:   dpi,
		})
	case st.Focus != nil:
		return s.Focus(*st.Focus)
	case st.Scroll != nil:
		return s.OverlayScroll(st.Scroll.Top, st.Scroll.Left)
	}
	return nil
}

func deltaMode(mode string) input.DeltaMode {
	switch mode {
	case "line":
		return input.DeltaLine
	case "page":
		return input.DeltaPage
	default:
		return input.DeltaPixel
	}
}

// runReplay starts the session, feeds it the trace in real time and closes
// it once the trace has settled.
func runReplay(ctx context.Context, s *bridge.Session, tr *trace, log *zap.Logger) error {
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	select {
	case <-s.Ready():
	case err := <-runErr:
		if err == nil {
			err = errors.Closed(errors.PhaseStartup, "session")
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	start := time.Now()
	for i, st := range tr.Steps {
		if !sleep(ctx, st.Wait) {
			break
		}
		if st.events() == 0 {
			continue
		}
		at := time.Since(start).Seconds()
		s.Loop().Post(func() {
			if err := st.apply(s, at); err != nil {
				log.Warn("replay step failed", zap.Int("step", i), zap.Error(err))
			}
		})
	}
	sleep(ctx, tr.Settle)

	done := make(chan error, 1)
	if !s.Loop().Post(func() { done <- closeSession(s) }) {
		return <-runErr
	}
	err := <-runErr
	if err != nil && err != context.Canceled {
		return err
	}
	select {
	case closeErr := <-done:
		log.Info("replay finished", zap.Int("steps", len(tr.Steps)))
		return closeErr
	default:
		// Interrupted before the close ran.
		return closeSession(s)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
