package bridge

import (
	"context"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/input"
)

// Module is the running module as the session drives it. engine.Instance
// implements it.
type Module interface {
	Memory() wasmbridge.Memory
	CreateApp(ctx context.Context) (uint32, error)
	NewMsg(ctx context.Context, units uint32) (uint32, error)
	ProcessMsg(ctx context.Context, msg uint32) (uint32, error)
	FreeMsg(ctx context.Context, msg uint32) error
	FreeData(ctx context.Context, ptr, capacity uint32) error
	TerminateThreadPools(ctx context.Context) error
	Close(ctx context.Context) error
}

// signalSource is implemented by modules whose main instance can raise
// signals.
type signalSource interface {
	OnSignal(wasmbridge.SignalFunc)
}

// Host is the environment the module is presented in. Methods are called on
// the loop. A capability the host lacks returns errors.Unimplemented.
type Host interface {
	Info() envelope.HostInfo
	Window() envelope.WindowInfo
	SetFullScreen(on bool) error
	SetCursor(c input.Cursor) error
	SetTitle(title string) error
	ShowTextIME(x, y float64) error
	HideTextIME() error
}

// Clipboard is the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// MIDI delivers MIDI input. Start may call back from any goroutine: inputs on
// every change of the port list, data for each message packed as
// status<<16 | data1<<8 | data2.
type MIDI interface {
	Start(inputs func([]envelope.MidiInput), data func(input uint32, packed uint32)) error
}

// FrameSource schedules animation frames. fn must run on the loop and
// receives the frame time in seconds.
type FrameSource interface {
	RequestFrame(fn func(seconds float64))
}
