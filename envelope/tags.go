package envelope

import "strconv"

// Tag identifies a message type within an envelope.
type Tag uint32

// Direction selects the message catalogue.
type Direction int

const (
	ToWasm   Direction = iota // host to module notifications
	FromWasm                  // module to host requests
)

// Host to module notifications.
const (
	TagGetDeps Tag = iota + 1
	TagInit
	TagResizeWindow
	TagFocusGained
	TagFocusLost
	TagFingerDown
	TagFingerUp
	TagFingerMove
	TagFingerHover
	TagFingerOut
	TagFingerScroll
	TagKeyDown
	TagKeyUp
	TagTextInput
	TagTextCopy
	TagTimerFired
	TagSignalBatch
	TagSocketOpened
	TagSocketMessage
	TagSocketError
	TagSocketClosed
	TagAnimationFrame
	TagMidiInputList
	TagMidiInputData
	TagRedrawAll
)

// Module to host requests.
const (
	TagLoadDeps Tag = iota + 0x101
	TagStartTimer
	TagStopTimer
	TagOpenSocket
	TagSendSocket
	TagCreateThread
	TagSpawnAudioOutput
	TagFullScreen
	TagNormalScreen
	TagSetCursor
	TagSetTitle
	TagShowTextIME
	TagHideTextIME
	TagRequestAnimationFrame
	TagTextCopyResponse
	TagReadClipboard
	TagStartMidiInput
)

var tagNames = map[Tag]string{
	TagGetDeps:        "GetDeps",
	TagInit:           "Init",
	TagResizeWindow:   "ResizeWindow",
	TagFocusGained:    "FocusGained",
	TagFocusLost:      "FocusLost",
	TagFingerDown:     "FingerDown",
	TagFingerUp:       "FingerUp",
	TagFingerMove:     "FingerMove",
	TagFingerHover:    "FingerHover",
	TagFingerOut:      "FingerOut",
	TagFingerScroll:   "FingerScroll",
	TagKeyDown:        "KeyDown",
	TagKeyUp:          "KeyUp",
	TagTextInput:      "TextInput",
	TagTextCopy:       "TextCopy",
	TagTimerFired:     "TimerFired",
	TagSignalBatch:    "SignalBatch",
	TagSocketOpened:   "SocketOpened",
	TagSocketMessage:  "SocketMessage",
	TagSocketError:    "SocketError",
	TagSocketClosed:   "SocketClosed",
	TagAnimationFrame: "AnimationFrame",
	TagMidiInputList:  "MidiInputList",
	TagMidiInputData:  "MidiInputData",
	TagRedrawAll:      "RedrawAll",

	TagLoadDeps:              "LoadDeps",
	TagStartTimer:            "StartTimer",
	TagStopTimer:             "StopTimer",
	TagOpenSocket:            "OpenSocket",
	TagSendSocket:            "SendSocket",
	TagCreateThread:          "CreateThread",
	TagSpawnAudioOutput:      "SpawnAudioOutput",
	TagFullScreen:            "FullScreen",
	TagNormalScreen:          "NormalScreen",
	TagSetCursor:             "SetCursor",
	TagSetTitle:              "SetTitle",
	TagShowTextIME:           "ShowTextIME",
	TagHideTextIME:           "HideTextIME",
	TagRequestAnimationFrame: "RequestAnimationFrame",
	TagTextCopyResponse:      "TextCopyResponse",
	TagReadClipboard:         "ReadClipboard",
	TagStartMidiInput:        "StartMidiInput",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "Tag(" + strconv.FormatUint(uint64(t), 10) + ")"
}

var toWasm = map[Tag]func() Message{
	TagGetDeps:        func() Message { return &GetDeps{} },
	TagInit:           func() Message { return &Init{} },
	TagResizeWindow:   func() Message { return &ResizeWindow{} },
	TagFocusGained:    func() Message { return &FocusGained{} },
	TagFocusLost:      func() Message { return &FocusLost{} },
	TagFingerDown:     func() Message { return &FingerDown{} },
	TagFingerUp:       func() Message { return &FingerUp{} },
	TagFingerMove:     func() Message { return &FingerMove{} },
	TagFingerHover:    func() Message { return &FingerHover{} },
	TagFingerOut:      func() Message { return &FingerOut{} },
	TagFingerScroll:   func() Message { return &FingerScroll{} },
	TagKeyDown:        func() Message { return &KeyDown{} },
	TagKeyUp:          func() Message { return &KeyUp{} },
	TagTextInput:      func() Message { return &TextInput{} },
	TagTextCopy:       func() Message { return &TextCopy{} },
	TagTimerFired:     func() Message { return &TimerFired{} },
	TagSignalBatch:    func() Message { return &SignalBatch{} },
	TagSocketOpened:   func() Message { return &SocketOpened{} },
	TagSocketMessage:  func() Message { return &SocketMessage{} },
	TagSocketError:    func() Message { return &SocketError{} },
	TagSocketClosed:   func() Message { return &SocketClosed{} },
	TagAnimationFrame: func() Message { return &AnimationFrame{} },
	TagMidiInputList:  func() Message { return &MidiInputList{} },
	TagMidiInputData:  func() Message { return &MidiInputData{} },
	TagRedrawAll:      func() Message { return &RedrawAll{} },
}

var fromWasm = map[Tag]func() Message{
	TagLoadDeps:              func() Message { return &LoadDeps{} },
	TagStartTimer:            func() Message { return &StartTimer{} },
	TagStopTimer:             func() Message { return &StopTimer{} },
	TagOpenSocket:            func() Message { return &OpenSocket{} },
	TagSendSocket:            func() Message { return &SendSocket{} },
	TagCreateThread:          func() Message { return &CreateThread{} },
	TagSpawnAudioOutput:      func() Message { return &SpawnAudioOutput{} },
	TagFullScreen:            func() Message { return &FullScreen{} },
	TagNormalScreen:          func() Message { return &NormalScreen{} },
	TagSetCursor:             func() Message { return &SetCursor{} },
	TagSetTitle:              func() Message { return &SetTitle{} },
	TagShowTextIME:           func() Message { return &ShowTextIME{} },
	TagHideTextIME:           func() Message { return &HideTextIME{} },
	TagRequestAnimationFrame: func() Message { return &RequestAnimationFrame{} },
	TagTextCopyResponse:      func() Message { return &TextCopyResponse{} },
	TagReadClipboard:         func() Message { return &ReadClipboard{} },
	TagStartMidiInput:        func() Message { return &StartMidiInput{} },
}

// New returns a zero message for tag in direction dir, or nil if unknown.
func New(dir Direction, tag Tag) Message {
	var table map[Tag]func() Message
	if dir == ToWasm {
		table = toWasm
	} else {
		table = fromWasm
	}
	if f, ok := table[tag]; ok {
		return f()
	}
	return nil
}
