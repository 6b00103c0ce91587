package arena

import "encoding/binary"

// PageSize is the WebAssembly page size.
const PageSize = 65536

// SliceMemory is an in-process Memory backed by a byte slice. It stands in for
// guest memory in hosts that drive a module without a wasm engine, and in tests.
type SliceMemory struct {
	buf []byte
}

// NewSliceMemory allocates pages of zeroed memory.
func NewSliceMemory(pages uint32) *SliceMemory {
	return &SliceMemory{buf: make([]byte, int(pages)*PageSize)}
}

// Grow appends pages and returns the previous size in pages. The backing
// array is replaced, so earlier Read results no longer alias memory.
func (m *SliceMemory) Grow(pages uint32) uint32 {
	prev := uint32(len(m.buf) / PageSize)
	next := make([]byte, len(m.buf)+int(pages)*PageSize)
	copy(next, m.buf)
	m.buf = next
	return prev
}

func (m *SliceMemory) Size() uint32 {
	return uint32(len(m.buf))
}

func (m *SliceMemory) Read(offset, byteCount uint32) ([]byte, bool) {
	if !m.inRange(offset, byteCount) {
		return nil, false
	}
	return m.buf[offset : offset+byteCount : offset+byteCount], true
}

func (m *SliceMemory) Write(offset uint32, v []byte) bool {
	if !m.inRange(offset, uint32(len(v))) {
		return false
	}
	copy(m.buf[offset:], v)
	return true
}

func (m *SliceMemory) ReadUint32Le(offset uint32) (uint32, bool) {
	if !m.inRange(offset, 4) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(m.buf[offset:]), true
}

func (m *SliceMemory) WriteUint32Le(offset, v uint32) bool {
	if !m.inRange(offset, 4) {
		return false
	}
	binary.LittleEndian.PutUint32(m.buf[offset:], v)
	return true
}

func (m *SliceMemory) inRange(offset, n uint32) bool {
	return uint64(offset)+uint64(n) <= uint64(len(m.buf))
}
