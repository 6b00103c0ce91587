package main

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/arena"
	"github.com/wippyai/wasm-bridge/bridge"
	"github.com/wippyai/wasm-bridge/config"
	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/input"
	"github.com/wippyai/wasm-bridge/loop"
)

// recorder is a module that accepts every envelope and answers with nothing.
type recorder struct {
	mem  *arena.SliceMemory
	msgs []envelope.Message
}

func newRecorder() *recorder {
	return &recorder{mem: arena.NewSliceMemory(1)}
}

func (r *recorder) Memory() wasmbridge.Memory                      { return r.mem }
func (r *recorder) CreateApp(context.Context) (uint32, error)      { return 1, nil }
func (r *recorder) NewMsg(context.Context, uint32) (uint32, error) { return 1024, nil }
func (r *recorder) FreeMsg(context.Context, uint32) error          { return nil }
func (r *recorder) FreeData(context.Context, uint32, uint32) error { return nil }
func (r *recorder) TerminateThreadPools(context.Context) error     { return nil }
func (r *recorder) Close(context.Context) error                    { return nil }

func (r *recorder) ProcessMsg(_ context.Context, msg uint32) (uint32, error) {
	header, _ := r.mem.Read(msg, envelope.HeaderSize)
	n, err := envelope.Length(header)
	if err != nil {
		return 0, err
	}
	raw, _ := r.mem.Read(msg, n)
	msgs, err := envelope.Decode(envelope.ToWasm, raw)
	if err != nil {
		return 0, err
	}
	r.msgs = append(r.msgs, msgs...)
	return 0, nil
}

func (r *recorder) tags() []string {
	out := make([]string, len(r.msgs))
	for i, m := range r.msgs {
		out[i] = m.Tag().String()
	}
	return out
}

// startedSession returns a running session on a manual clock with the
// handshake messages forgotten.
func startedSession(t *testing.T, opts ...bridge.Option) (*bridge.Session, *recorder) {
	t.Helper()
	rec := newRecorder()
	opts = append([]bridge.Option{bridge.WithClock(loop.NewManualClock(time.Unix(0, 0)))}, opts...)
	s := bridge.New(rec, opts...)
	require.NoError(t, s.Start(context.Background()))
	rec.msgs = nil
	return s, rec
}

func TestSetDepsBase(t *testing.T) {
	cfg := config.Default()
	setDepsBase(cfg, "https://cdn.example.test/app/")
	assert.Equal(t, "https://cdn.example.test/app/", cfg.Deps.Base)
	assert.Empty(t, cfg.Deps.Dir)

	setDepsBase(cfg, "./assets")
	assert.Equal(t, "./assets", cfg.Deps.Dir)
}

func TestNewFetcher(t *testing.T) {
	f, info, err := newFetcher(config.DepsConfig{})
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, envelope.HostInfo{}, info)

	f, info, err = newFetcher(config.DepsConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.NotNil(t, f)
	assert.Equal(t, "file:", info.Protocol)

	f, info, err = newFetcher(config.DepsConfig{Base: "http://localhost:8080/app/", Timeout: time.Second})
	require.NoError(t, err)
	assert.NotNil(t, f)
	assert.Equal(t, "localhost:8080", info.Host)
}

func TestParseTrace(t *testing.T) {
	tr, err := parseTrace([]byte(`
settle: 50ms
steps:
  - resize: {width: 640, height: 480}
  - wait: 10ms
    mouse: {action: down, x: 5, y: 6, button: 0, shift: true}
  - key: {action: press, code: 67, ctrl: true}
  - text: "a"
  - wheel: {x: 1, y: 1, dy: 120, mode: line}
  - touch:
      action: start
      points:
        - {id: 101, x: 1, y: 2}
  - focus: false
`))
	require.NoError(t, err)
	require.Len(t, tr.Steps, 7)
	assert.Equal(t, 50*time.Millisecond, tr.Settle)
	assert.Equal(t, 10*time.Millisecond, tr.Steps[1].Wait)
	assert.True(t, tr.Steps[1].Mouse.Shift)
	assert.Equal(t, input.ModCtrl, tr.Steps[2].Key.pack())
	assert.Equal(t, int64(101), tr.Steps[5].Touch.Points[0].ID)
	assert.False(t, *tr.Steps[6].Focus)
}

func TestParseTraceRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "steps: [\n"},
		{"two events", "steps:\n  - text: a\n    focus: true\n"},
		{"unknown mouse action", "steps:\n  - mouse: {action: click}\n"},
		{"unknown key action", "steps:\n  - key: {action: tap}\n"},
		{"unknown wheel mode", "steps:\n  - wheel: {mode: furlong}\n"},
		{"negative wait", "steps:\n  - wait: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTrace([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := parseTrace([]byte("steps:\n  - mouse: {action: click}\n"))
	assert.ErrorIs(t, err, errors.InvalidInput(errors.PhaseConfig, ""))
}

func TestApplySteps(t *testing.T) {
	s, rec := startedSession(t)

	tr, err := parseTrace([]byte(`
steps:
  - mouse: {action: down, x: 5, y: 6}
  - mouse: {action: move, x: 7, y: 8}
  - mouse: {action: up, x: 7, y: 8}
  - key: {action: press, code: 65, char: 97}
  - text: "a"
  - focus: true
  - resize: {width: 320, height: 200}
`))
	require.NoError(t, err)
	for i, st := range tr.Steps {
		require.NoError(t, st.apply(s, float64(i)))
	}

	assert.Equal(t, []string{
		"FingerDown", "FingerMove", "FingerUp",
		"KeyDown", "KeyUp",
		"TextInput",
		"FocusGained",
		"ResizeWindow",
	}, rec.tags())
	assert.Equal(t, 320.0, s.Window().InnerWidth)
	assert.Equal(t, 1.0, s.Window().DPIFactor)
}

func TestRuneKeyCode(t *testing.T) {
	assert.Equal(t, uint32('A'), runeKeyCode('a'))
	assert.Equal(t, uint32('7'), runeKeyCode('7'))
	assert.Equal(t, uint32(0), runeKeyCode('é'))
}

func TestTermHostForwardsRequests(t *testing.T) {
	host := newTermHost(envelope.HostInfo{Protocol: "file:"})
	var got []tea.Msg
	host.send = func(m tea.Msg) { got = append(got, m) }

	require.NoError(t, host.SetTitle("demo"))
	require.NoError(t, host.SetCursor(input.CursorHand))
	require.NoError(t, host.SetFullScreen(true))
	assert.ErrorIs(t, host.ShowTextIME(1, 2), errors.Unimplemented("text IME"))

	assert.Equal(t, []tea.Msg{titleMsg("demo"), cursorMsg(input.CursorHand), screenMsg(true)}, got)
	assert.True(t, host.Window().IsFullscreen)
}

func TestInteractiveModelMapsInput(t *testing.T) {
	host := newTermHost(envelope.HostInfo{})
	host.send = func(tea.Msg) {}
	s, rec := startedSession(t, bridge.WithHost(host))
	m := newInteractiveModel(s, host)

	m.Update(tea.MouseMsg{X: 2, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonRight})
	m.Update(tea.MouseMsg{X: 2, Y: 3, Action: tea.MouseActionRelease, Button: tea.MouseButtonNone})
	m.Update(tea.MouseMsg{X: 2, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m.Update(tea.FocusMsg{})
	s.Loop().RunPending()

	assert.Equal(t, []string{"FingerDown", "FingerUp", "FingerScroll", "KeyDown", "KeyUp", "FocusGained"}, rec.tags())
	down := rec.msgs[0].(*envelope.FingerDown)
	assert.Equal(t, uint32(2), down.Finger.Digit)
	assert.Equal(t, 2.5*cellWidth, down.Finger.X)
	up := rec.msgs[1].(*envelope.FingerUp)
	assert.Equal(t, uint32(2), up.Finger.Digit)
	key := rec.msgs[3].(*envelope.KeyDown)
	assert.Equal(t, uint32(input.KeyLeft), key.Key.KeyCode)
}

func TestInteractiveModelHostMessages(t *testing.T) {
	host := newTermHost(envelope.HostInfo{})
	s, _ := startedSession(t, bridge.WithHost(host))
	m := newInteractiveModel(s, host)

	_, cmd := m.Update(titleMsg("hello"))
	assert.NotNil(t, cmd)
	assert.Equal(t, "hello", m.title)

	m.Update(cursorMsg(input.CursorWait))
	assert.Equal(t, input.CursorWait, m.cursor)

	m.Update(readyMsg{})
	assert.Contains(t, m.View(), "hello")

	_, cmd = m.Update(doneMsg{err: errors.Closed(errors.PhasePump, "session")})
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Error")
}
