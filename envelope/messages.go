package envelope

import wasmbridge "github.com/wippyai/wasm-bridge"

// WindowInfo describes the host window geometry and presentation state.
type WindowInfo struct {
	InnerWidth     float64
	InnerHeight    float64
	DPIFactor      float64
	IsFullscreen   bool
	CanFullscreen  bool
	XRIsPresenting bool
	XRCanPresent   bool
}

func (w *WindowInfo) encode(e *Encoder) {
	e.F64(w.InnerWidth)
	e.F64(w.InnerHeight)
	e.F64(w.DPIFactor)
	e.Bool(w.IsFullscreen)
	e.Bool(w.CanFullscreen)
	e.Bool(w.XRIsPresenting)
	e.Bool(w.XRCanPresent)
}

func (w *WindowInfo) decode(d *Decoder) {
	w.InnerWidth = d.F64()
	w.InnerHeight = d.F64()
	w.DPIFactor = d.F64()
	w.IsFullscreen = d.Bool()
	w.CanFullscreen = d.Bool()
	w.XRIsPresenting = d.Bool()
	w.XRCanPresent = d.Bool()
}

// HostInfo is the capability report sent at the start of the handshake.
type HostInfo struct {
	Protocol         string
	Host             string
	Hostname         string
	Pathname         string
	Search           string
	Hash             string
	HasThreadSupport bool
}

// Dep is one fetched dependency blob.
type Dep struct {
	Path string
	Data []byte
}

// Finger is the wire form of a pointer contact.
type Finger struct {
	X         float64
	Y         float64
	Digit     uint32
	Time      float64
	Modifiers uint32
	IsTouch   bool
}

func (f *Finger) encode(e *Encoder) {
	e.F64(f.X)
	e.F64(f.Y)
	e.U32(f.Digit)
	e.U32(f.Modifiers)
	e.F64(f.Time)
	e.Bool(f.IsTouch)
}

func (f *Finger) decode(d *Decoder) {
	f.X = d.F64()
	f.Y = d.F64()
	f.Digit = d.U32()
	f.Modifiers = d.U32()
	f.Time = d.F64()
	f.IsTouch = d.Bool()
}

// Key is the wire form of a key event.
type Key struct {
	KeyCode   uint32
	CharCode  uint32
	IsRepeat  bool
	Time      float64
	Modifiers uint32
}

func (k *Key) encode(e *Encoder) {
	e.U32(k.KeyCode)
	e.U32(k.CharCode)
	e.Bool(k.IsRepeat)
	e.U32(k.Modifiers)
	e.F64(k.Time)
}

func (k *Key) decode(d *Decoder) {
	k.KeyCode = d.U32()
	k.CharCode = d.U32()
	k.IsRepeat = d.Bool()
	k.Modifiers = d.U32()
	k.Time = d.F64()
}

// MidiInput describes one MIDI input port.
type MidiInput struct {
	UID          string
	Name         string
	Manufacturer string
}

// Buffer references a byte buffer owned by the module.
type Buffer struct {
	Ptr uint32
	Len uint32
	Cap uint32
}

// Host to module notifications

type GetDeps struct {
	Info HostInfo
}

func (*GetDeps) Tag() Tag { return TagGetDeps }

func (m *GetDeps) EncodeTo(e *Encoder) {
	e.Text(m.Info.Protocol)
	e.Text(m.Info.Host)
	e.Text(m.Info.Hostname)
	e.Text(m.Info.Pathname)
	e.Text(m.Info.Search)
	e.Text(m.Info.Hash)
	e.Bool(m.Info.HasThreadSupport)
}

func (m *GetDeps) DecodeFrom(d *Decoder) error {
	m.Info.Protocol = d.Text()
	m.Info.Host = d.Text()
	m.Info.Hostname = d.Text()
	m.Info.Pathname = d.Text()
	m.Info.Search = d.Text()
	m.Info.Hash = d.Text()
	m.Info.HasThreadSupport = d.Bool()
	return d.Err()
}

type Init struct {
	Window WindowInfo
	Deps   []Dep
}

func (*Init) Tag() Tag { return TagInit }

func (m *Init) EncodeTo(e *Encoder) {
	m.Window.encode(e)
	e.U32(uint32(len(m.Deps)))
	for i := range m.Deps {
		e.Text(m.Deps[i].Path)
		e.Bytes(m.Deps[i].Data)
	}
}

func (m *Init) DecodeFrom(d *Decoder) error {
	m.Window.decode(d)
	n := d.Count(8)
	m.Deps = make([]Dep, 0, n)
	for i := 0; i < n && d.Err() == nil; i++ {
		path := d.Text()
		data := d.Bytes()
		m.Deps = append(m.Deps, Dep{Path: path, Data: data})
	}
	return d.Err()
}

type ResizeWindow struct {
	Window WindowInfo
}

func (*ResizeWindow) Tag() Tag { return TagResizeWindow }

func (m *ResizeWindow) EncodeTo(e *Encoder) { m.Window.encode(e) }

func (m *ResizeWindow) DecodeFrom(d *Decoder) error {
	m.Window.decode(d)
	return d.Err()
}

type FocusGained struct{}

func (*FocusGained) Tag() Tag                    { return TagFocusGained }
func (*FocusGained) EncodeTo(*Encoder)           {}
func (*FocusGained) DecodeFrom(d *Decoder) error { return d.Err() }

type FocusLost struct{}

func (*FocusLost) Tag() Tag                    { return TagFocusLost }
func (*FocusLost) EncodeTo(*Encoder)           {}
func (*FocusLost) DecodeFrom(d *Decoder) error { return d.Err() }

type FingerDown struct{ Finger Finger }

func (*FingerDown) Tag() Tag                      { return TagFingerDown }
func (m *FingerDown) EncodeTo(e *Encoder)         { m.Finger.encode(e) }
func (m *FingerDown) DecodeFrom(d *Decoder) error { m.Finger.decode(d); return d.Err() }

type FingerUp struct{ Finger Finger }

func (*FingerUp) Tag() Tag                      { return TagFingerUp }
func (m *FingerUp) EncodeTo(e *Encoder)         { m.Finger.encode(e) }
func (m *FingerUp) DecodeFrom(d *Decoder) error { m.Finger.decode(d); return d.Err() }

type FingerMove struct{ Finger Finger }

func (*FingerMove) Tag() Tag                      { return TagFingerMove }
func (m *FingerMove) EncodeTo(e *Encoder)         { m.Finger.encode(e) }
func (m *FingerMove) DecodeFrom(d *Decoder) error { m.Finger.decode(d); return d.Err() }

type FingerHover struct{ Finger Finger }

func (*FingerHover) Tag() Tag                      { return TagFingerHover }
func (m *FingerHover) EncodeTo(e *Encoder)         { m.Finger.encode(e) }
func (m *FingerHover) DecodeFrom(d *Decoder) error { m.Finger.decode(d); return d.Err() }

type FingerOut struct{ Finger Finger }

func (*FingerOut) Tag() Tag                      { return TagFingerOut }
func (m *FingerOut) EncodeTo(e *Encoder)         { m.Finger.encode(e) }
func (m *FingerOut) DecodeFrom(d *Decoder) error { m.Finger.decode(d); return d.Err() }

type FingerScroll struct {
	Finger  Finger
	ScrollX float64
	ScrollY float64
}

func (*FingerScroll) Tag() Tag { return TagFingerScroll }

func (m *FingerScroll) EncodeTo(e *Encoder) {
	m.Finger.encode(e)
	e.F64(m.ScrollX)
	e.F64(m.ScrollY)
}

func (m *FingerScroll) DecodeFrom(d *Decoder) error {
	m.Finger.decode(d)
	m.ScrollX = d.F64()
	m.ScrollY = d.F64()
	return d.Err()
}

type KeyDown struct{ Key Key }

func (*KeyDown) Tag() Tag                      { return TagKeyDown }
func (m *KeyDown) EncodeTo(e *Encoder)         { m.Key.encode(e) }
func (m *KeyDown) DecodeFrom(d *Decoder) error { m.Key.decode(d); return d.Err() }

type KeyUp struct{ Key Key }

func (*KeyUp) Tag() Tag                      { return TagKeyUp }
func (m *KeyUp) EncodeTo(e *Encoder)         { m.Key.encode(e) }
func (m *KeyUp) DecodeFrom(d *Decoder) error { m.Key.decode(d); return d.Err() }

type TextInput struct {
	Input       string
	WasPaste    bool
	ReplaceLast bool
}

func (*TextInput) Tag() Tag { return TagTextInput }

func (m *TextInput) EncodeTo(e *Encoder) {
	e.Bool(m.WasPaste)
	e.Bool(m.ReplaceLast)
	e.Text(m.Input)
}

func (m *TextInput) DecodeFrom(d *Decoder) error {
	m.WasPaste = d.Bool()
	m.ReplaceLast = d.Bool()
	m.Input = d.Text()
	return d.Err()
}

// TextCopy asks the module for the text it wants on the clipboard.
type TextCopy struct{}

func (*TextCopy) Tag() Tag                    { return TagTextCopy }
func (*TextCopy) EncodeTo(*Encoder)           {}
func (*TextCopy) DecodeFrom(d *Decoder) error { return d.Err() }

type TimerFired struct {
	TimerID uint64
}

func (*TimerFired) Tag() Tag                      { return TagTimerFired }
func (m *TimerFired) EncodeTo(e *Encoder)         { e.U64(m.TimerID) }
func (m *TimerFired) DecodeFrom(d *Decoder) error { m.TimerID = d.U64(); return d.Err() }

// SignalBatch carries every signal coalesced within one scheduling tick.
type SignalBatch struct {
	Signals []wasmbridge.Signal
}

func (*SignalBatch) Tag() Tag { return TagSignalBatch }

func (m *SignalBatch) EncodeTo(e *Encoder) {
	e.U32(uint32(len(m.Signals)))
	for _, s := range m.Signals {
		e.U32(s.Hi)
		e.U32(s.Lo)
	}
}

func (m *SignalBatch) DecodeFrom(d *Decoder) error {
	n := d.Count(8)
	m.Signals = make([]wasmbridge.Signal, 0, n)
	for i := 0; i < n && d.Err() == nil; i++ {
		hi := d.U32()
		lo := d.U32()
		m.Signals = append(m.Signals, wasmbridge.Signal{Hi: hi, Lo: lo})
	}
	return d.Err()
}

type SocketOpened struct {
	ID uint64
}

func (*SocketOpened) Tag() Tag                      { return TagSocketOpened }
func (m *SocketOpened) EncodeTo(e *Encoder)         { e.U64(m.ID) }
func (m *SocketOpened) DecodeFrom(d *Decoder) error { m.ID = d.U64(); return d.Err() }

type SocketMessage struct {
	ID   uint64
	Data []byte
}

func (*SocketMessage) Tag() Tag { return TagSocketMessage }

func (m *SocketMessage) EncodeTo(e *Encoder) {
	e.U64(m.ID)
	e.Bytes(m.Data)
}

func (m *SocketMessage) DecodeFrom(d *Decoder) error {
	m.ID = d.U64()
	m.Data = d.Bytes()
	return d.Err()
}

type SocketError struct {
	ID    uint64
	Error string
}

func (*SocketError) Tag() Tag { return TagSocketError }

func (m *SocketError) EncodeTo(e *Encoder) {
	e.U64(m.ID)
	e.Text(m.Error)
}

func (m *SocketError) DecodeFrom(d *Decoder) error {
	m.ID = d.U64()
	m.Error = d.Text()
	return d.Err()
}

type SocketClosed struct {
	ID uint64
}

func (*SocketClosed) Tag() Tag                      { return TagSocketClosed }
func (m *SocketClosed) EncodeTo(e *Encoder)         { e.U64(m.ID) }
func (m *SocketClosed) DecodeFrom(d *Decoder) error { m.ID = d.U64(); return d.Err() }

// AnimationFrame carries the frame time in seconds.
type AnimationFrame struct {
	Time float64
}

func (*AnimationFrame) Tag() Tag                      { return TagAnimationFrame }
func (m *AnimationFrame) EncodeTo(e *Encoder)         { e.F64(m.Time) }
func (m *AnimationFrame) DecodeFrom(d *Decoder) error { m.Time = d.F64(); return d.Err() }

type MidiInputList struct {
	Inputs []MidiInput
}

func (*MidiInputList) Tag() Tag { return TagMidiInputList }

func (m *MidiInputList) EncodeTo(e *Encoder) {
	e.U32(uint32(len(m.Inputs)))
	for _, in := range m.Inputs {
		e.Text(in.UID)
		e.Text(in.Name)
		e.Text(in.Manufacturer)
	}
}

func (m *MidiInputList) DecodeFrom(d *Decoder) error {
	n := d.Count(12)
	m.Inputs = make([]MidiInput, 0, n)
	for i := 0; i < n && d.Err() == nil; i++ {
		var in MidiInput
		in.UID = d.Text()
		in.Name = d.Text()
		in.Manufacturer = d.Text()
		m.Inputs = append(m.Inputs, in)
	}
	return d.Err()
}

// MidiInputData carries one packed MIDI message: status<<16 | data1<<8 | data2.
type MidiInputData struct {
	InputID uint32
	Data    uint32
}

func (*MidiInputData) Tag() Tag { return TagMidiInputData }

func (m *MidiInputData) EncodeTo(e *Encoder) {
	e.U32(m.InputID)
	e.U32(m.Data)
}

func (m *MidiInputData) DecodeFrom(d *Decoder) error {
	m.InputID = d.U32()
	m.Data = d.U32()
	return d.Err()
}

// PackMidi packs a three byte MIDI message.
func PackMidi(status, data1, data2 byte) uint32 {
	return uint32(status)<<16 | uint32(data1)<<8 | uint32(data2)
}

type RedrawAll struct{}

func (*RedrawAll) Tag() Tag                    { return TagRedrawAll }
func (*RedrawAll) EncodeTo(*Encoder)           {}
func (*RedrawAll) DecodeFrom(d *Decoder) error { return d.Err() }

// Module to host requests

type LoadDeps struct {
	Deps []string
}

func (*LoadDeps) Tag() Tag { return TagLoadDeps }

func (m *LoadDeps) EncodeTo(e *Encoder) {
	e.U32(uint32(len(m.Deps)))
	for _, p := range m.Deps {
		e.Text(p)
	}
}

func (m *LoadDeps) DecodeFrom(d *Decoder) error {
	n := d.Count(4)
	m.Deps = make([]string, 0, n)
	for i := 0; i < n && d.Err() == nil; i++ {
		m.Deps = append(m.Deps, d.Text())
	}
	return d.Err()
}

// StartTimer interval is in seconds. Repeats selects a repeating timer.
type StartTimer struct {
	TimerID  uint64
	Interval float64
	Repeats  bool
}

func (*StartTimer) Tag() Tag { return TagStartTimer }

func (m *StartTimer) EncodeTo(e *Encoder) {
	e.U64(m.TimerID)
	e.F64(m.Interval)
	e.Bool(m.Repeats)
}

func (m *StartTimer) DecodeFrom(d *Decoder) error {
	m.TimerID = d.U64()
	m.Interval = d.F64()
	m.Repeats = d.Bool()
	return d.Err()
}

type StopTimer struct {
	TimerID uint64
}

func (*StopTimer) Tag() Tag                      { return TagStopTimer }
func (m *StopTimer) EncodeTo(e *Encoder)         { e.U64(m.TimerID) }
func (m *StopTimer) DecodeFrom(d *Decoder) error { m.TimerID = d.U64(); return d.Err() }

type OpenSocket struct {
	ID            uint64
	URL           string
	AutoReconnect bool
}

func (*OpenSocket) Tag() Tag { return TagOpenSocket }

func (m *OpenSocket) EncodeTo(e *Encoder) {
	e.U64(m.ID)
	e.Bool(m.AutoReconnect)
	e.Text(m.URL)
}

func (m *OpenSocket) DecodeFrom(d *Decoder) error {
	m.ID = d.U64()
	m.AutoReconnect = d.Bool()
	m.URL = d.Text()
	return d.Err()
}

// SendSocket references a module buffer the host must release after handoff.
type SendSocket struct {
	ID   uint64
	Data Buffer
}

func (*SendSocket) Tag() Tag { return TagSendSocket }

func (m *SendSocket) EncodeTo(e *Encoder) {
	e.U64(m.ID)
	e.U32(m.Data.Ptr)
	e.U32(m.Data.Len)
	e.U32(m.Data.Cap)
}

func (m *SendSocket) DecodeFrom(d *Decoder) error {
	m.ID = d.U64()
	m.Data.Ptr = d.U32()
	m.Data.Len = d.U32()
	m.Data.Cap = d.U32()
	return d.Err()
}

type CreateThread struct {
	ClosurePtr uint32
}

func (*CreateThread) Tag() Tag                      { return TagCreateThread }
func (m *CreateThread) EncodeTo(e *Encoder)         { e.U32(m.ClosurePtr) }
func (m *CreateThread) DecodeFrom(d *Decoder) error { m.ClosurePtr = d.U32(); return d.Err() }

type SpawnAudioOutput struct {
	ClosurePtr uint32
}

func (*SpawnAudioOutput) Tag() Tag                      { return TagSpawnAudioOutput }
func (m *SpawnAudioOutput) EncodeTo(e *Encoder)         { e.U32(m.ClosurePtr) }
func (m *SpawnAudioOutput) DecodeFrom(d *Decoder) error { m.ClosurePtr = d.U32(); return d.Err() }

type FullScreen struct{}

func (*FullScreen) Tag() Tag                    { return TagFullScreen }
func (*FullScreen) EncodeTo(*Encoder)           {}
func (*FullScreen) DecodeFrom(d *Decoder) error { return d.Err() }

type NormalScreen struct{}

func (*NormalScreen) Tag() Tag                    { return TagNormalScreen }
func (*NormalScreen) EncodeTo(*Encoder)           {}
func (*NormalScreen) DecodeFrom(d *Decoder) error { return d.Err() }

type SetCursor struct {
	Cursor uint32
}

func (*SetCursor) Tag() Tag                      { return TagSetCursor }
func (m *SetCursor) EncodeTo(e *Encoder)         { e.U32(m.Cursor) }
func (m *SetCursor) DecodeFrom(d *Decoder) error { m.Cursor = d.U32(); return d.Err() }

type SetTitle struct {
	Title string
}

func (*SetTitle) Tag() Tag                      { return TagSetTitle }
func (m *SetTitle) EncodeTo(e *Encoder)         { e.Text(m.Title) }
func (m *SetTitle) DecodeFrom(d *Decoder) error { m.Title = d.Text(); return d.Err() }

type ShowTextIME struct {
	X float64
	Y float64
}

func (*ShowTextIME) Tag() Tag { return TagShowTextIME }

func (m *ShowTextIME) EncodeTo(e *Encoder) {
	e.F64(m.X)
	e.F64(m.Y)
}

func (m *ShowTextIME) DecodeFrom(d *Decoder) error {
	m.X = d.F64()
	m.Y = d.F64()
	return d.Err()
}

type HideTextIME struct{}

func (*HideTextIME) Tag() Tag                    { return TagHideTextIME }
func (*HideTextIME) EncodeTo(*Encoder)           {}
func (*HideTextIME) DecodeFrom(d *Decoder) error { return d.Err() }

type RequestAnimationFrame struct{}

func (*RequestAnimationFrame) Tag() Tag                    { return TagRequestAnimationFrame }
func (*RequestAnimationFrame) EncodeTo(*Encoder)           {}
func (*RequestAnimationFrame) DecodeFrom(d *Decoder) error { return d.Err() }

type TextCopyResponse struct {
	Response string
}

func (*TextCopyResponse) Tag() Tag                      { return TagTextCopyResponse }
func (m *TextCopyResponse) EncodeTo(e *Encoder)         { e.Text(m.Response) }
func (m *TextCopyResponse) DecodeFrom(d *Decoder) error { m.Response = d.Text(); return d.Err() }

// ReadClipboard asks the host to deliver the clipboard as a pasted TextInput.
type ReadClipboard struct{}

func (*ReadClipboard) Tag() Tag                    { return TagReadClipboard }
func (*ReadClipboard) EncodeTo(*Encoder)           {}
func (*ReadClipboard) DecodeFrom(d *Decoder) error { return d.Err() }

type StartMidiInput struct{}

func (*StartMidiInput) Tag() Tag                    { return TagStartMidiInput }
func (*StartMidiInput) EncodeTo(*Encoder)           {}
func (*StartMidiInput) DecodeFrom(d *Decoder) error { return d.Err() }
