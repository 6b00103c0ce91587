package wasmbridge

// Memory is the slice of a module's linear memory the bridge relies on.
// wazero's api.Memory satisfies it.
type Memory interface {
	Size() uint32
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
	ReadUint32Le(offset uint32) (uint32, bool)
	WriteUint32Le(offset, v uint32) bool
}

// Signal is an asynchronous wake notification raised by a background
// execution context. The two words are opaque to the host.
type Signal struct {
	Hi uint32
	Lo uint32
}

// SignalFunc receives signals from any goroutine.
type SignalFunc func(Signal)
