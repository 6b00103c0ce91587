package bridge

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/input"
	"github.com/wippyai/wasm-bridge/metrics"
	"github.com/wippyai/wasm-bridge/socket"
	"github.com/wippyai/wasm-bridge/thread"
)

// replyOnce makes the module answer the next pump with msgs.
func replyOnce(mod *fakeModule, msgs ...envelope.Message) {
	sent := false
	mod.respond = func([]envelope.Message) []envelope.Message {
		if sent {
			return nil
		}
		sent = true
		return msgs
	}
}

// request pumps a FocusGained so the module can answer with msgs.
func request(t *testing.T, h *harness, msgs ...envelope.Message) {
	t.Helper()
	replyOnce(h.mod, msgs...)
	require.NoError(t, h.s.Focus(true))
}

func TestTimerFiresThroughPump(t *testing.T) {
	h := newHarness(newFakeModule())
	start(t, h)

	request(t, h, &envelope.StartTimer{TimerID: 5, Interval: 0.25})
	assert.True(t, h.s.Timers().Has(5))

	h.advance(249 * time.Millisecond)
	assert.Len(t, h.mod.pumps, 1)

	h.advance(time.Millisecond)
	require.Len(t, h.mod.pumps, 2)
	fired := h.mod.last()[0].(*envelope.TimerFired)
	assert.Equal(t, uint64(5), fired.TimerID)
	assert.False(t, h.s.Timers().Has(5))
}

func TestRepeatingTimerStops(t *testing.T) {
	h := newHarness(newFakeModule())
	start(t, h)

	request(t, h, &envelope.StartTimer{TimerID: 2, Interval: 0.1, Repeats: true})
	h.advance(100 * time.Millisecond)
	h.advance(100 * time.Millisecond)
	assert.Equal(t, [][]string{{"FocusGained"}, {"TimerFired"}, {"TimerFired"}}, h.mod.tags())

	request(t, h, &envelope.StopTimer{TimerID: 2})
	h.advance(time.Second)
	assert.Len(t, h.mod.pumps, 4)
	assert.Equal(t, 0, h.s.Timers().Len())
}

func TestDuplicateTimerKeepsFirst(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h := newHarness(newFakeModule(), WithLogger(zap.New(core)))
	start(t, h)

	request(t, h,
		&envelope.StartTimer{TimerID: 1, Interval: 1},
		&envelope.StartTimer{TimerID: 1, Interval: 5},
	)

	tm, ok := h.s.Timers().Get(1)
	require.True(t, ok)
	assert.Equal(t, time.Second, tm.Interval)
	assert.Equal(t, 1, logs.FilterMessage("timer start rejected").Len())
	assert.Equal(t, 1, logs.FilterMessage("module request failed").Len())
}

func TestTimerIntervalBounds(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h := newHarness(newFakeModule(), WithLogger(zap.New(core)))
	start(t, h)

	request(t, h,
		&envelope.StartTimer{TimerID: 1, Interval: 1e11, Repeats: true},
		&envelope.StartTimer{TimerID: 2, Interval: math.NaN(), Repeats: true},
		&envelope.StartTimer{TimerID: 3, Interval: math.Inf(1), Repeats: true},
		&envelope.StartTimer{TimerID: 4, Interval: -1},
	)

	tm, ok := h.s.Timers().Get(1)
	require.True(t, ok)
	assert.Equal(t, time.Duration(math.MaxInt64), tm.Interval)
	for _, id := range []uint64{2, 3, 4} {
		assert.False(t, h.s.Timers().Has(id), "timer %d", id)
	}
	assert.Equal(t, 3, logs.FilterMessage("module request failed").Len())

	h.advance(time.Hour)
	assert.Len(t, h.mod.pumps, 1)
}

func TestSendSocketQueuesAndFreesBuffer(t *testing.T) {
	tr := &fakeTransport{}
	m := metrics.New()
	h := newHarness(newFakeModule(),
		WithDialer(&instantDialer{transport: tr}),
		WithSocketOptions(socket.Options{}),
		WithMetrics(m))
	start(t, h)

	h.mod.mem.Write(dataPtr, []byte("hey"))
	request(t, h,
		&envelope.OpenSocket{ID: 1, URL: "ws://example.test/ws"},
		&envelope.SendSocket{ID: 1, Data: envelope.Buffer{Ptr: dataPtr, Len: 3, Cap: 16}},
	)
	assert.Equal(t, [][2]uint32{{dataPtr, 16}}, h.mod.freedData)

	opened := func() bool {
		for _, p := range h.mod.pumps {
			if _, ok := p[0].(*envelope.SocketOpened); ok {
				return true
			}
		}
		return false
	}
	require.True(t, settle(h.s, opened))
	assert.Equal(t, []string{"hey"}, tr.Sent())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.BytesSent))

	tr.sink.Message([]byte("pong"))
	h.s.Loop().RunPending()
	msg := h.mod.last()[0].(*envelope.SocketMessage)
	assert.Equal(t, uint64(1), msg.ID)
	assert.Equal(t, []byte("pong"), msg.Data)
}

func TestSendSocketUnknownIDStillFrees(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h := newHarness(newFakeModule(), WithLogger(zap.New(core)))
	start(t, h)

	request(t, h, &envelope.SendSocket{ID: 42, Data: envelope.Buffer{Ptr: dataPtr, Len: 2, Cap: 8}})
	assert.Equal(t, [][2]uint32{{dataPtr, 8}}, h.mod.freedData)
	assert.Equal(t, 1, logs.FilterMessage("module request failed").Len())
}

func TestSpawnWithoutThreadSupport(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	m := metrics.New()
	h := newHarness(newFakeModule(), WithLogger(zap.New(core)), WithMetrics(m))
	start(t, h)

	request(t, h, &envelope.CreateThread{ClosurePtr: 99})

	assert.Equal(t, 1, logs.FilterMessage("module request failed").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SpawnFailures.WithLabelValues("capability")))
}

func TestSpawnExecutionContexts(t *testing.T) {
	mod := newThreadedModule()
	m := metrics.New()
	h := newHarness(mod, WithStackSize(4096), WithMetrics(m))
	require.NoError(t, h.s.Start(context.Background()))

	get := mod.pumps[0][0].(*envelope.GetDeps)
	assert.True(t, get.Info.HasThreadSupport)

	request(t, h,
		&envelope.CreateThread{ClosurePtr: 0x500},
		&envelope.SpawnAudioOutput{ClosurePtr: 0x600},
	)

	require.Len(t, mod.layouts, 2)
	assert.Equal(t, []thread.Kind{thread.Worker, thread.AudioOutput}, mod.kinds)
	first := mod.layouts[0]
	assert.Equal(t, uint32(0x20000), first.TLSPtr)
	assert.Equal(t, uint32(0x500), first.ClosurePtr)
	assert.Equal(t, thread.RegionUnits(24, 4096), first.Units)
	assert.Equal(t, first.TLSPtr+first.Units*8, mod.layouts[1].TLSPtr)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContextsSpawned.WithLabelValues("worker")))
}

func TestPresentationRequests(t *testing.T) {
	h := newHarness(newFakeModule())
	start(t, h)

	request(t, h,
		&envelope.SetTitle{Title: "hello"},
		&envelope.SetCursor{Cursor: uint32(input.CursorText)},
		&envelope.FullScreen{},
		&envelope.NormalScreen{},
	)

	assert.Equal(t, "hello", h.host.Title())
	assert.Equal(t, input.CursorText, h.host.Cursor())
	assert.Equal(t, []bool{true, false}, h.host.fullScreen)
}

func TestInvalidCursorRejected(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := newHarness(newFakeModule(), WithLogger(zap.New(core)))
	start(t, h)

	request(t, h, &envelope.SetCursor{Cursor: 1000})
	assert.Equal(t, input.CursorDefault, h.host.Cursor())
	assert.Equal(t, 1, logs.FilterMessage("module request failed").Len())
}

func TestUnimplementedCapabilityLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := newHarness(newFakeModule(),
		WithLogger(zap.New(core)),
		WithHost(NewHeadlessHost(envelope.HostInfo{}, 100, 100)))
	start(t, h)

	request(t, h, &envelope.FullScreen{}, &envelope.ShowTextIME{X: 1, Y: 2}, &envelope.SetTitle{Title: "still runs"})

	entries := logs.FilterMessage("unimplemented host capability").All()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].ContextMap()["what"], "full screen")
	assert.True(t, h.s.Running())
}

func TestAnimationFrameGate(t *testing.T) {
	h := newHarness(newFakeModule())
	start(t, h)

	request(t, h, &envelope.RequestAnimationFrame{}, &envelope.RequestAnimationFrame{})
	assert.True(t, h.s.FrameRequested())

	h.advance(time.Second / 60)
	assert.Equal(t, [][]string{{"FocusGained"}, {"AnimationFrame"}}, h.mod.tags())
	frame := h.mod.last()[0].(*envelope.AnimationFrame)
	assert.InDelta(t, 1.0/60, frame.Time, 1e-6)

	h.advance(time.Second)
	assert.Len(t, h.mod.pumps, 2)
}

func TestAnimationFrameSuppressedWhilePresenting(t *testing.T) {
	h := newHarness(newFakeModule())
	start(t, h)

	require.NoError(t, h.s.Resize(envelope.WindowInfo{InnerWidth: 10, InnerHeight: 10, XRIsPresenting: true}))
	assert.False(t, h.s.FrameRequested())

	request(t, h, &envelope.RequestAnimationFrame{})
	assert.False(t, h.s.FrameRequested())
	h.advance(time.Second)
	assert.Equal(t, [][]string{{"ResizeWindow"}, {"FocusGained"}}, h.mod.tags())
}

func TestCopyChordWritesClipboard(t *testing.T) {
	clip := &fakeClipboard{}
	mod := newFakeModule()
	h := newHarness(mod, WithClipboard(clip))
	start(t, h)

	mod.respond = func(msgs []envelope.Message) []envelope.Message {
		if _, ok := msgs[0].(*envelope.TextCopy); ok {
			return []envelope.Message{&envelope.TextCopyResponse{Response: "copied"}}
		}
		return nil
	}
	require.NoError(t, h.s.KeyDown(ctrl(input.KeyC)))

	assert.Equal(t, [][]string{{"TextCopy"}, {"KeyDown"}}, mod.tags())
	assert.Equal(t, "copied", clip.text)
	assert.Empty(t, h.s.TextArea())
	key := mod.last()[0].(*envelope.KeyDown)
	assert.Equal(t, uint32(input.KeyC), key.Key.KeyCode)
	assert.Equal(t, uint32(input.ModCtrl), key.Key.Modifiers)
}

func TestReadClipboardPostsPaste(t *testing.T) {
	clip := &fakeClipboard{text: "pasted"}
	h := newHarness(newFakeModule(), WithClipboard(clip))
	start(t, h)

	request(t, h, &envelope.ReadClipboard{})
	assert.Len(t, h.mod.pumps, 1)

	h.s.Loop().RunPending()
	require.Len(t, h.mod.pumps, 2)
	in := h.mod.last()[0].(*envelope.TextInput)
	assert.Equal(t, "pasted", in.Input)
	assert.True(t, in.WasPaste)
}

func TestTextAreaInput(t *testing.T) {
	h := newHarness(newFakeModule())
	start(t, h)

	require.NoError(t, h.s.TextAreaInput("a"))
	in := h.mod.last()[0].(*envelope.TextInput)
	assert.Equal(t, "a", in.Input)
	assert.False(t, in.WasPaste)

	h.s.Paste()
	require.NoError(t, h.s.TextAreaInput("ahello"))
	in = h.mod.last()[0].(*envelope.TextInput)
	assert.Equal(t, "hello", in.Input)
	assert.True(t, in.WasPaste)
}

func TestMIDIInput(t *testing.T) {
	midi := &fakeMIDI{}
	h := newHarness(newFakeModule(), WithMIDI(midi))
	start(t, h)

	request(t, h, &envelope.StartMidiInput{})
	require.NotNil(t, midi.inputs)

	midi.inputs([]envelope.MidiInput{{UID: "1", Name: "keys"}})
	midi.data(0, envelope.PackMidi(0x90, 60, 100))
	h.s.Loop().RunPending()

	assert.Equal(t, [][]string{{"FocusGained"}, {"MidiInputList"}, {"MidiInputData"}}, h.mod.tags())
	data := h.mod.last()[0].(*envelope.MidiInputData)
	assert.Equal(t, uint32(0x903C64), data.Data)
}

func TestUnknownTagSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h := newHarness(newFakeModule(), WithLogger(zap.New(core)))
	start(t, h)

	// A host-to-module tag is not a request the host serves.
	request(t, h, &envelope.RedrawAll{}, &envelope.SetTitle{Title: "after"})
	assert.Equal(t, 1, logs.FilterMessage("unhandled module request").Len())
	assert.Equal(t, "after", h.host.Title())
}
