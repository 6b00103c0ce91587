package envelope

import (
	"encoding/binary"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

func TestBuilder_Layout(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add(&TimerFired{TimerID: 7}))
	require.NoError(t, b.Add(&SetTitle{Title: "abc"}))
	assert.Equal(t, 2, b.Len())

	data, err := b.Take()
	require.NoError(t, err)

	assert.Equal(t, uint32(len(data)), binary.LittleEndian.Uint32(data[0:]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[4:]))
	assert.Zero(t, len(data)%8, "envelope must be 8-byte aligned")

	// TimerFired: tag, len=8, u64
	assert.Equal(t, uint32(TagTimerFired), binary.LittleEndian.Uint32(data[8:]))
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(data[12:]))
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(data[16:]))

	// SetTitle starts at the next 8-byte boundary: len prefix + "abc" + 1 pad
	assert.Equal(t, uint32(TagSetTitle), binary.LittleEndian.Uint32(data[24:]))
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(data[28:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(data[32:]))
	assert.Equal(t, "abc", string(data[36:39]))
}

func TestBuilder_ConsumedOnce(t *testing.T) {
	b := NewBuilder()
	_, err := b.Take()
	require.NoError(t, err)
	assert.True(t, b.Taken())

	_, err = b.Take()
	assert.True(t, stderrors.Is(err, errors.Closed(errors.PhaseEncode, "")))

	err = b.Add(&RedrawAll{})
	assert.True(t, stderrors.Is(err, errors.Closed(errors.PhaseEncode, "")))
}

func TestDecode_ToWasm(t *testing.T) {
	in := []Message{
		&Init{
			Window: WindowInfo{InnerWidth: 800, InnerHeight: 600, DPIFactor: 2, CanFullscreen: true},
			Deps: []Dep{
				{Path: "fonts/a.ttf", Data: []byte{1, 2, 3}},
				{Path: "b", Data: nil},
			},
		},
		&FingerScroll{
			Finger:  Finger{X: 1.5, Y: -2, Digit: 3, Time: 12.25, Modifiers: 5, IsTouch: true},
			ScrollX: 0,
			ScrollY: 120,
		},
		&SignalBatch{Signals: []wasmbridge.Signal{{Hi: 1, Lo: 2}, {Hi: 3, Lo: 4}}},
		&TextInput{Input: "é", ReplaceLast: true},
		&MidiInputList{Inputs: []MidiInput{{UID: "1", Name: "keys", Manufacturer: "acme"}}},
	}
	data, err := Encode(in...)
	require.NoError(t, err)

	out, err := Decode(ToWasm, data)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	assert.Equal(t, in[0].(*Init).Window, out[0].(*Init).Window)
	assert.Equal(t, "fonts/a.ttf", out[0].(*Init).Deps[0].Path)
	assert.Equal(t, []byte{1, 2, 3}, out[0].(*Init).Deps[0].Data)
	assert.Empty(t, out[0].(*Init).Deps[1].Data)
	assert.Equal(t, in[1], out[1])
	assert.Equal(t, in[2], out[2])
	assert.Equal(t, in[3], out[3])
	assert.Equal(t, in[4], out[4])
}

func TestDecode_FromWasm(t *testing.T) {
	data, err := Encode(
		&LoadDeps{Deps: []string{"a", "bb"}},
		&StartTimer{TimerID: 9, Interval: 0.5, Repeats: true},
		&SendSocket{ID: 2, Data: Buffer{Ptr: 1024, Len: 3, Cap: 16}},
		&OpenSocket{ID: 2, URL: "ws://x", AutoReconnect: true},
	)
	require.NoError(t, err)

	out, err := Decode(FromWasm, data)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, []string{"a", "bb"}, out[0].(*LoadDeps).Deps)
	assert.Equal(t, &StartTimer{TimerID: 9, Interval: 0.5, Repeats: true}, out[1])
	assert.Equal(t, Buffer{Ptr: 1024, Len: 3, Cap: 16}, out[2].(*SendSocket).Data)
	assert.Equal(t, "ws://x", out[3].(*OpenSocket).URL)
}

func TestDecode_WrongDirection(t *testing.T) {
	data, err := Encode(&TimerFired{TimerID: 1})
	require.NoError(t, err)
	_, err = Decode(FromWasm, data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown message tag")
}

func TestParse_Malformed(t *testing.T) {
	good, err := Encode(&SetTitle{Title: "hello"})
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"short header", good[:4]},
		{"length below header", func() []byte {
			b := append([]byte(nil), good...)
			binary.LittleEndian.PutUint32(b, 4)
			return b
		}()},
		{"length beyond buffer", good[:len(good)-8]},
		{"count too large", func() []byte {
			b := append([]byte(nil), good...)
			binary.LittleEndian.PutUint32(b[4:], 5)
			return b
		}()},
		{"body beyond envelope", func() []byte {
			b := append([]byte(nil), good...)
			binary.LittleEndian.PutUint32(b[12:], 1000)
			return b
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			var e *errors.Error
			require.True(t, stderrors.As(err, &e), "got %v", err)
			assert.Equal(t, errors.KindInvalidData, e.Kind)
		})
	}
}

func TestDecoder_TruncatedBody(t *testing.T) {
	var m StartTimer
	err := m.DecodeFrom(NewDecoder(TagStartTimer, []byte{1, 2, 3}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "StartTimer")
}

func TestDecoder_HugeVectorRefused(t *testing.T) {
	body := binary.LittleEndian.AppendUint32(nil, 1<<30)
	var m LoadDeps
	err := m.DecodeFrom(NewDecoder(TagLoadDeps, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector length")
}

func TestPackMidi(t *testing.T) {
	assert.Equal(t, uint32(0x903C7F), PackMidi(0x90, 0x3C, 0x7F))
}

func TestTag_String(t *testing.T) {
	assert.Equal(t, "SignalBatch", TagSignalBatch.String())
	assert.Equal(t, "RequestAnimationFrame", TagRequestAnimationFrame.String())
	assert.Equal(t, "Tag(999)", Tag(999).String())
}

func TestCatalogueComplete(t *testing.T) {
	for tag := TagGetDeps; tag <= TagRedrawAll; tag++ {
		m := New(ToWasm, tag)
		require.NotNil(t, m, "missing to-wasm %s", tag)
		assert.Equal(t, tag, m.Tag())
	}
	for tag := TagLoadDeps; tag <= TagStartMidiInput; tag++ {
		m := New(FromWasm, tag)
		require.NotNil(t, m, "missing from-wasm %s", tag)
		assert.Equal(t, tag, m.Tag())
	}
}
