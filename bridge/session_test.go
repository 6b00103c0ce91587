package bridge

import (
	"context"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/deps"
	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/input"
)

// start completes the handshake and forgets what it pumped.
func start(t *testing.T, h *harness) {
	t.Helper()
	require.NoError(t, h.s.Start(context.Background()))
	h.mod.pumps = nil
	h.mod.depths = nil
	h.mod.freedMsgs = nil
}

func TestStartupHandshake(t *testing.T) {
	mod := newFakeModule()
	mod.respond = func(msgs []envelope.Message) []envelope.Message {
		if _, ok := msgs[0].(*envelope.GetDeps); ok {
			return []envelope.Message{&envelope.LoadDeps{Deps: []string{"fonts/a.bin", "/b.bin"}}}
		}
		return nil
	}
	fsys := fstest.MapFS{
		"fonts/a.bin": {Data: []byte("AAA")},
		"b.bin":       {Data: []byte("B")},
	}
	h := newHarness(mod, WithFetcher(deps.NewDirFetcher(fsys), 2))

	require.NoError(t, h.s.Start(context.Background()))

	assert.Equal(t, [][]string{{"GetDeps"}, {"Init"}, {"RedrawAll"}}, mod.tags())

	get := mod.pumps[0][0].(*envelope.GetDeps)
	assert.Equal(t, "http:", get.Info.Protocol)
	assert.False(t, get.Info.HasThreadSupport)

	init := mod.pumps[1][0].(*envelope.Init)
	assert.Equal(t, 800.0, init.Window.InnerWidth)
	assert.Equal(t, 600.0, init.Window.InnerHeight)
	assert.Equal(t, []envelope.Dep{
		{Path: "fonts/a.bin", Data: []byte("AAA")},
		{Path: "/b.bin", Data: []byte("B")},
	}, init.Deps)

	assert.Equal(t, []uint32{inPtr}, mod.freedMsgs)
	assert.True(t, h.s.Running())
	select {
	case <-h.s.Ready():
	default:
		t.Fatal("ready not closed")
	}
}

func TestStartupFailsWhenDependencyMissing(t *testing.T) {
	mod := newFakeModule()
	mod.respond = func(msgs []envelope.Message) []envelope.Message {
		return []envelope.Message{&envelope.LoadDeps{Deps: []string{"missing.bin"}}}
	}
	h := newHarness(mod, WithFetcher(deps.NewDirFetcher(fstest.MapFS{}), 0))

	err := h.s.Start(context.Background())
	assert.ErrorIs(t, err, errors.New(errors.PhaseStartup, errors.KindNotFound).Build())
	assert.Equal(t, [][]string{{"GetDeps"}}, mod.tags())
	assert.False(t, h.s.Running())
}

func TestStartupNeedsFetcherOnlyForDependencies(t *testing.T) {
	h := newHarness(newFakeModule())
	require.NoError(t, h.s.Start(context.Background()))
	assert.Equal(t, [][]string{{"GetDeps"}, {"Init"}, {"RedrawAll"}}, h.mod.tags())

	mod := newFakeModule()
	mod.respond = func([]envelope.Message) []envelope.Message {
		return []envelope.Message{&envelope.LoadDeps{Deps: []string{"a.bin"}}}
	}
	h = newHarness(mod)
	err := h.s.Start(context.Background())
	assert.ErrorIs(t, err, errors.NotInitialized(errors.PhaseStartup, "dependency fetcher"))
}

func TestStartTwiceFails(t *testing.T) {
	h := newHarness(newFakeModule())
	start(t, h)
	assert.Error(t, h.s.Start(context.Background()))
}

func TestLoadDepsAfterStartupIgnored(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	mod := newFakeModule()
	h := newHarness(mod, WithLogger(zap.New(core)))
	start(t, h)

	mod.respond = func([]envelope.Message) []envelope.Message {
		return []envelope.Message{&envelope.LoadDeps{Deps: []string{"late.bin"}}}
	}
	require.NoError(t, h.s.Focus(true))
	assert.Equal(t, 1, logs.FilterMessage("dependency request after startup ignored").Len())
}

func TestEventsDroppedBeforeReady(t *testing.T) {
	mod := newFakeModule()
	h := newHarness(mod)

	require.NoError(t, h.s.MouseDown(input.MouseEvent{X: 1, Y: 2}))
	require.NoError(t, h.s.KeyDown(input.KeyEvent{KeyCode: 65}))
	require.NoError(t, h.s.Focus(false))
	require.NoError(t, h.s.TextAreaInput("a"))
	assert.Empty(t, mod.pumps)

	err := h.s.Pump(context.Background(), envelope.NewBuilder())
	assert.ErrorIs(t, err, errors.NotInitialized(errors.PhasePump, "application"))
}

func TestSignalsCoalesceIntoOneBatch(t *testing.T) {
	mod := newFakeModule()
	h := newHarness(mod)
	start(t, h)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.s.PostSignal(wasmbridge.Signal{Hi: uint32(i), Lo: 1})
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, h.s.PendingSignals())

	h.s.Loop().RunPending()
	require.Equal(t, [][]string{{"SignalBatch"}}, mod.tags())
	batch := mod.last()[0].(*envelope.SignalBatch)
	assert.Len(t, batch.Signals, 8)
	assert.Equal(t, 0, h.s.PendingSignals())

	h.s.Loop().RunPending()
	assert.Len(t, mod.pumps, 1)
}

func TestSignalsKeepOrder(t *testing.T) {
	mod := newFakeModule()
	h := newHarness(mod)
	start(t, h)

	h.s.PostSignal(wasmbridge.Signal{Hi: 1, Lo: 2})
	h.s.PostSignal(wasmbridge.Signal{Hi: 3, Lo: 4})
	h.s.Loop().RunPending()

	batch := mod.last()[0].(*envelope.SignalBatch)
	assert.Equal(t, []wasmbridge.Signal{{Hi: 1, Lo: 2}, {Hi: 3, Lo: 4}}, batch.Signals)
}

func TestSignalsHeldUntilStartup(t *testing.T) {
	mod := newFakeModule()
	h := newHarness(mod)

	h.s.PostSignal(wasmbridge.Signal{Hi: 9, Lo: 9})
	h.s.Loop().RunPending()
	assert.Empty(t, mod.pumps)
	assert.Equal(t, 1, h.s.PendingSignals())

	start(t, h)
	h.s.Loop().RunPending()
	assert.Equal(t, [][]string{{"SignalBatch"}}, mod.tags())
}

func TestModuleSignalDuringPump(t *testing.T) {
	mod := newFakeModule()
	h := newHarness(mod)
	start(t, h)

	mod.respond = func(msgs []envelope.Message) []envelope.Message {
		if _, ok := msgs[0].(*envelope.KeyDown); ok {
			mod.signal(wasmbridge.Signal{Hi: 5, Lo: 6})
		}
		return nil
	}
	require.NoError(t, h.s.KeyDown(input.KeyEvent{KeyCode: 65}))
	assert.Equal(t, [][]string{{"KeyDown"}}, mod.tags())

	h.s.Loop().RunPending()
	assert.Equal(t, [][]string{{"KeyDown"}, {"SignalBatch"}}, mod.tags())
}

func TestNestedPumpCompletesBeforeOuterResumes(t *testing.T) {
	mod := newFakeModule()
	h := newHarness(mod)
	start(t, h)

	var titles []string
	h.host.onTitle = func(title string) {
		titles = append(titles, title)
		require.NoError(t, h.s.Focus(true))
	}
	mod.respond = func(msgs []envelope.Message) []envelope.Message {
		if _, ok := msgs[0].(*envelope.KeyDown); ok {
			return []envelope.Message{
				&envelope.SetTitle{Title: "first"},
				&envelope.SetTitle{Title: "second"},
			}
		}
		return nil
	}

	require.NoError(t, h.s.KeyDown(input.KeyEvent{KeyCode: 65}))

	assert.Equal(t, [][]string{{"KeyDown"}, {"FocusGained"}, {"FocusGained"}}, mod.tags())
	assert.Equal(t, []int{1, 2, 2}, mod.depths)
	assert.Equal(t, []string{"first", "second"}, titles)
	assert.Equal(t, "second", h.host.Title())
	assert.Equal(t, []uint32{inPtr}, mod.freedMsgs)
	assert.Equal(t, 0, h.s.Depth())
}

func TestFocusLostResetsInput(t *testing.T) {
	mod := newFakeModule()
	h := newHarness(mod)
	start(t, h)

	require.NoError(t, h.s.MouseDown(input.MouseEvent{Button: 0}))
	require.NoError(t, h.s.TouchStart(input.TouchEvent{Changed: []input.TouchPoint{{Identifier: 11}}}))
	require.NoError(t, h.s.Focus(false))

	assert.Equal(t, []string{"FocusLost"}, mod.tags()[2])
	assert.False(t, h.s.Input().ButtonDown(0))
	assert.Equal(t, 0, h.s.Input().Digits().Live())
}

func TestTouchDigitsThroughSession(t *testing.T) {
	mod := newFakeModule()
	h := newHarness(mod)
	start(t, h)

	require.NoError(t, h.s.TouchStart(input.TouchEvent{Changed: []input.TouchPoint{
		{Identifier: 101, X: 1},
		{Identifier: 202, X: 2},
	}}))

	msgs := mod.last()
	require.Len(t, msgs, 2)
	first := msgs[0].(*envelope.FingerDown)
	second := msgs[1].(*envelope.FingerDown)
	assert.Equal(t, uint32(0), first.Finger.Digit)
	assert.Equal(t, uint32(1), second.Finger.Digit)
	assert.True(t, first.Finger.IsTouch)
}

func TestResizeRequestsFrame(t *testing.T) {
	mod := newFakeModule()
	h := newHarness(mod)
	start(t, h)

	w := envelope.WindowInfo{InnerWidth: 1024, InnerHeight: 768, DPIFactor: 2}
	require.NoError(t, h.s.Resize(w))
	assert.Equal(t, [][]string{{"ResizeWindow"}}, mod.tags())
	assert.Equal(t, w, h.s.Window())
	assert.True(t, h.s.FrameRequested())

	h.advance(time.Second / 60)
	assert.Equal(t, [][]string{{"ResizeWindow"}, {"AnimationFrame"}}, mod.tags())
	assert.False(t, h.s.FrameRequested())
}

func TestGuestCallsOutliveRunContext(t *testing.T) {
	h := newHarness(newFakeModule())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.s.Start(ctx))
	cancel()

	require.NoError(t, h.s.Focus(true))
	require.NotNil(t, h.mod.callCtx)
	assert.NoError(t, h.mod.callCtx.Err())

	require.NoError(t, h.s.Close(context.Background()))
	assert.True(t, h.mod.terminated)
	assert.True(t, h.mod.closed)
}

func TestOutboundFreedWhenWriteFails(t *testing.T) {
	h := newHarness(newFakeModule())
	start(t, h)

	h.mod.msgPtr = 4*65536 - 4
	err := h.s.Focus(true)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.OutOfBounds(errors.PhaseMemory, 0, 0, 0))
	assert.Equal(t, []uint32{4*65536 - 4}, h.mod.freedMsgs)
	assert.Empty(t, h.mod.pumps)
	assert.Equal(t, 0, h.s.Depth())
}

func TestCloseTearsDown(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mod := newFakeModule()
	h := newHarness(mod, WithLogger(zap.New(core)))
	start(t, h)

	mod.respond = func([]envelope.Message) []envelope.Message {
		return []envelope.Message{&envelope.StartTimer{TimerID: 1, Interval: 1, Repeats: true}}
	}
	require.NoError(t, h.s.Focus(true))
	require.Equal(t, 1, h.s.Timers().Len())

	require.NoError(t, h.s.Close(context.Background()))
	assert.True(t, mod.terminated)
	assert.True(t, mod.closed)
	assert.Equal(t, 0, h.s.Timers().Len())
	assert.False(t, h.s.Running())
	assert.Equal(t, 1, logs.FilterMessage("session closed").Len())

	require.NoError(t, h.s.Close(context.Background()))
	err := h.s.Pump(context.Background(), envelope.NewBuilder())
	assert.ErrorIs(t, err, errors.Closed(errors.PhasePump, "session"))
}

func TestCloseBeforeStartSkipsThreadPools(t *testing.T) {
	mod := newFakeModule()
	h := newHarness(mod)
	require.NoError(t, h.s.Close(context.Background()))
	assert.False(t, mod.terminated)
	assert.True(t, mod.closed)
}
