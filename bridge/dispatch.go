package bridge

import (
	"context"
	"math"
	"time"

	"github.com/wippyai/wasm-bridge/arena"
	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/input"
	"github.com/wippyai/wasm-bridge/thread"
)

type handler func(ctx context.Context, m envelope.Message) error

func on[T envelope.Message](fn func(ctx context.Context, m T) error) handler {
	return func(ctx context.Context, m envelope.Message) error {
		return fn(ctx, m.(T))
	}
}

func (s *Session) registerHandlers() {
	s.handlers = map[envelope.Tag]handler{
		envelope.TagLoadDeps:              on(s.onLoadDeps),
		envelope.TagStartTimer:            on(s.onStartTimer),
		envelope.TagStopTimer:             on(s.onStopTimer),
		envelope.TagOpenSocket:            on(s.onOpenSocket),
		envelope.TagSendSocket:            on(s.onSendSocket),
		envelope.TagCreateThread:          on(s.onCreateThread),
		envelope.TagSpawnAudioOutput:      on(s.onSpawnAudioOutput),
		envelope.TagFullScreen:            on(s.onFullScreen),
		envelope.TagNormalScreen:          on(s.onNormalScreen),
		envelope.TagSetCursor:             on(s.onSetCursor),
		envelope.TagSetTitle:              on(s.onSetTitle),
		envelope.TagShowTextIME:           on(s.onShowTextIME),
		envelope.TagHideTextIME:           on(s.onHideTextIME),
		envelope.TagRequestAnimationFrame: on(s.onRequestAnimationFrame),
		envelope.TagTextCopyResponse:      on(s.onTextCopyResponse),
		envelope.TagReadClipboard:         on(s.onReadClipboard),
		envelope.TagStartMidiInput:        on(s.onStartMidiInput),
	}
}

// Timers

func (s *Session) onStartTimer(_ context.Context, m *envelope.StartTimer) error {
	interval, err := timerInterval(m.Interval)
	if err != nil {
		return err
	}
	err = s.timers.Start(m.TimerID, interval, m.Repeats)
	s.metrics.Timers(s.timers.Len())
	return err
}

// timerInterval converts an interval in seconds. Intervals past the Duration
// range saturate instead of wrapping.
func timerInterval(seconds float64) (time.Duration, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, errors.InvalidInput(errors.PhaseTimer, "timer interval must be a finite, non-negative number of seconds")
	}
	if seconds >= float64(math.MaxInt64)/float64(time.Second) {
		return math.MaxInt64, nil
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func (s *Session) onStopTimer(_ context.Context, m *envelope.StopTimer) error {
	s.timers.Stop(m.TimerID)
	s.metrics.Timers(s.timers.Len())
	return nil
}

func (s *Session) timerFired(id uint64) {
	s.metrics.TimerFired(s.timers.Len())
	s.emit(&envelope.TimerFired{TimerID: id})
}

// Sockets

func (s *Session) onOpenSocket(_ context.Context, m *envelope.OpenSocket) error {
	err := s.sockets.Open(m.ID, m.URL, m.AutoReconnect)
	s.metrics.Sockets(s.sockets.Len())
	return err
}

// onSendSocket copies the payload out of the module buffer, hands it to the
// socket and releases the buffer whether or not the send succeeded.
func (s *Session) onSendSocket(ctx context.Context, m *envelope.SendSocket) error {
	data, err := s.arena.Read(arena.Ptr(m.Data.Ptr), m.Data.Len)
	if err == nil {
		err = s.sockets.Send(m.ID, data)
	}
	if m.Data.Cap > 0 {
		freeErr := s.mod.FreeData(ctx, m.Data.Ptr, m.Data.Cap)
		s.arena.Invalidate()
		if err == nil {
			err = freeErr
		}
	}
	return err
}

func (s *Session) socketOpened(id uint64) {
	s.metrics.Sockets(s.sockets.Len())
	s.emit(&envelope.SocketOpened{ID: id})
}

func (s *Session) socketMessage(id uint64, data []byte) {
	s.emit(&envelope.SocketMessage{ID: id, Data: data})
}

func (s *Session) socketError(id uint64, msg string) {
	s.emit(&envelope.SocketError{ID: id, Error: msg})
}

func (s *Session) socketClosed(id uint64) {
	s.metrics.Sockets(s.sockets.Len())
	s.emit(&envelope.SocketClosed{ID: id})
}

// Execution contexts

func (s *Session) onCreateThread(ctx context.Context, m *envelope.CreateThread) error {
	return s.spawn(ctx, thread.Worker, m.ClosurePtr)
}

func (s *Session) onSpawnAudioOutput(ctx context.Context, m *envelope.SpawnAudioOutput) error {
	return s.spawn(ctx, thread.AudioOutput, m.ClosurePtr)
}

// spawn starts an execution context. Failures are logged by the provisioner
// and abort only this spawn.
func (s *Session) spawn(ctx context.Context, kind thread.Kind, closure uint32) error {
	if s.threads == nil {
		s.metrics.SpawnFailed(string(errors.KindCapability))
		return errors.Capability(errors.PhaseProvision, "module has no execution context support")
	}
	_, err := s.threads.Spawn(ctx, kind, closure)
	s.arena.Invalidate()
	if err != nil {
		s.metrics.SpawnFailed(errorKind(err))
		return nil
	}
	s.metrics.Spawned(kind.String())
	return nil
}

// Presentation

func (s *Session) onFullScreen(context.Context, *envelope.FullScreen) error {
	return s.host.SetFullScreen(true)
}

func (s *Session) onNormalScreen(context.Context, *envelope.NormalScreen) error {
	return s.host.SetFullScreen(false)
}

func (s *Session) onSetCursor(_ context.Context, m *envelope.SetCursor) error {
	c, ok := input.CursorFromWire(m.Cursor)
	if !ok {
		return errors.New(errors.PhaseHost, errors.KindInvalidData).
			Value(m.Cursor).
			Detail("unknown cursor %d", m.Cursor).
			Build()
	}
	return s.host.SetCursor(c)
}

func (s *Session) onSetTitle(_ context.Context, m *envelope.SetTitle) error {
	return s.host.SetTitle(m.Title)
}

func (s *Session) onShowTextIME(_ context.Context, m *envelope.ShowTextIME) error {
	return s.host.ShowTextIME(m.X, m.Y)
}

func (s *Session) onHideTextIME(context.Context, *envelope.HideTextIME) error {
	return s.host.HideTextIME()
}

func (s *Session) onRequestAnimationFrame(context.Context, *envelope.RequestAnimationFrame) error {
	s.requestFrame()
	return nil
}

// requestFrame schedules one animation frame. Requests while one is
// outstanding, or while an immersive display is presenting, are dropped.
func (s *Session) requestFrame() {
	if s.frameRequested || s.window.XRIsPresenting {
		return
	}
	s.frameRequested = true
	s.frames.RequestFrame(s.animationFrame)
}

func (s *Session) animationFrame(seconds float64) {
	s.frameRequested = false
	if s.window.XRIsPresenting {
		return
	}
	s.emit(&envelope.AnimationFrame{Time: seconds})
}

// FrameRequested reports whether an animation frame is outstanding.
func (s *Session) FrameRequested() bool {
	return s.frameRequested
}

// Clipboard

func (s *Session) onTextCopyResponse(_ context.Context, m *envelope.TextCopyResponse) error {
	s.text.SetValue(m.Response)
	if s.clipboard == nil {
		return errors.Unimplemented("clipboard")
	}
	if err := s.clipboard.WriteAll(m.Response); err != nil {
		return errors.Wrap(errors.PhaseHost, errors.KindTransport, err, "write clipboard")
	}
	return nil
}

func (s *Session) onReadClipboard(context.Context, *envelope.ReadClipboard) error {
	if s.clipboard == nil {
		return errors.Unimplemented("clipboard")
	}
	text, err := s.clipboard.ReadAll()
	if err != nil {
		return errors.Wrap(errors.PhaseHost, errors.KindTransport, err, "read clipboard")
	}
	s.loop.Post(func() {
		s.emit(&envelope.TextInput{Input: text, WasPaste: true})
	})
	return nil
}

// MIDI

func (s *Session) onStartMidiInput(context.Context, *envelope.StartMidiInput) error {
	if s.midi == nil {
		return errors.Unimplemented("MIDI input")
	}
	return s.midi.Start(
		func(inputs []envelope.MidiInput) {
			s.loop.Post(func() {
				s.emit(&envelope.MidiInputList{Inputs: inputs})
			})
		},
		func(port uint32, packed uint32) {
			s.loop.Post(func() {
				s.emit(&envelope.MidiInputData{InputID: port, Data: packed})
			})
		},
	)
}
