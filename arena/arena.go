package arena

import (
	"encoding/binary"
	"sync/atomic"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

// Ptr is a byte offset into module linear memory.
type Ptr uint32

// Arena provides typed, bounds-checked access to a module's linear memory.
//
// Every call into the module may grow or move memory, so the arena counts
// generations. The engine calls Invalidate after each guest call; views taken
// in an earlier generation refuse to resolve.
type Arena struct {
	mem wasmbridge.Memory
	gen atomic.Uint64
}

// New wraps mem.
func New(mem wasmbridge.Memory) *Arena {
	return &Arena{mem: mem}
}

// Generation returns the current generation.
func (a *Arena) Generation() uint64 {
	return a.gen.Load()
}

// Invalidate starts a new generation. Outstanding views become stale.
func (a *Arena) Invalidate() {
	a.gen.Add(1)
}

// Size returns the current memory size in bytes.
func (a *Arena) Size() uint32 {
	return a.mem.Size()
}

// Read copies n bytes starting at ptr.
func (a *Arena) Read(ptr Ptr, n uint32) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf, ok := a.mem.Read(uint32(ptr), n)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseMemory, uint32(ptr), n, a.mem.Size())
	}
	out := make([]byte, n)
	copy(out, buf)
	return out, nil
}

// Write copies data into memory at ptr.
func (a *Arena) Write(ptr Ptr, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if !a.mem.Write(uint32(ptr), data) {
		return errors.OutOfBounds(errors.PhaseMemory, uint32(ptr), uint32(len(data)), a.mem.Size())
	}
	return nil
}

// U32 reads a little-endian uint32 at ptr.
func (a *Arena) U32(ptr Ptr) (uint32, error) {
	v, ok := a.mem.ReadUint32Le(uint32(ptr))
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, uint32(ptr), 4, a.mem.Size())
	}
	return v, nil
}

// PutU32 writes a little-endian uint32 at ptr.
func (a *Arena) PutU32(ptr Ptr, v uint32) error {
	if !a.mem.WriteUint32Le(uint32(ptr), v) {
		return errors.OutOfBounds(errors.PhaseMemory, uint32(ptr), 4, a.mem.Size())
	}
	return nil
}

// U64 reads a little-endian uint64 at ptr.
func (a *Arena) U64(ptr Ptr) (uint64, error) {
	buf, ok := a.mem.Read(uint32(ptr), 8)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, uint32(ptr), 8, a.mem.Size())
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// View borrows n bytes at ptr for the current generation.
func (a *Arena) View(ptr Ptr, n uint32) (View, error) {
	if uint64(ptr)+uint64(n) > uint64(a.mem.Size()) {
		return View{}, errors.OutOfBounds(errors.PhaseMemory, uint32(ptr), n, a.mem.Size())
	}
	return View{arena: a, ptr: ptr, n: n, gen: a.Generation()}, nil
}

// View is a borrowed range of linear memory. It is only valid until the next
// call into the module.
type View struct {
	arena *Arena
	ptr   Ptr
	n     uint32
	gen   uint64
}

// Ptr returns the start offset.
func (v View) Ptr() Ptr { return v.ptr }

// Len returns the length in bytes.
func (v View) Len() uint32 { return v.n }

// Bytes resolves the view without copying. The returned slice aliases memory.
func (v View) Bytes() ([]byte, error) {
	if v.arena == nil {
		return nil, errors.NotInitialized(errors.PhaseMemory, "view")
	}
	if cur := v.arena.Generation(); cur != v.gen {
		return nil, errors.Stale(uint32(v.ptr), v.gen, cur)
	}
	if v.n == 0 {
		return nil, nil
	}
	buf, ok := v.arena.mem.Read(uint32(v.ptr), v.n)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseMemory, uint32(v.ptr), v.n, v.arena.mem.Size())
	}
	return buf, nil
}

// Align8 rounds n up to a multiple of 8.
func Align8(n uint32) uint32 {
	return (n + 7) &^ 7
}

// Units returns the number of 8-byte units needed to hold n bytes.
func Units(n uint32) uint32 {
	return (n + 7) >> 3
}
