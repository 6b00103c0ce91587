package arena

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/wasm-bridge/errors"
)

func TestArena_ReadWrite(t *testing.T) {
	a := New(NewSliceMemory(1))

	if err := a.Write(16, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := a.Read(16, 5)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("read = %q", got)
	}

	// Read returns a copy.
	got[0] = 'j'
	again, _ := a.Read(16, 5)
	if string(again) != "hello" {
		t.Errorf("read aliased memory: %q", again)
	}
}

func TestArena_U32U64(t *testing.T) {
	a := New(NewSliceMemory(1))
	if err := a.PutU32(8, 0xDEADBEEF); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, err := a.U32(8)
	if err != nil || v != 0xDEADBEEF {
		t.Fatalf("U32 = %x, %v", v, err)
	}
	if err := a.PutU32(12, 1); err != nil {
		t.Fatal(err)
	}
	v64, err := a.U64(8)
	if err != nil {
		t.Fatal(err)
	}
	if v64 != 0x00000001DEADBEEF {
		t.Errorf("U64 = %x", v64)
	}
}

func TestArena_OutOfBounds(t *testing.T) {
	a := New(NewSliceMemory(1))

	tests := []struct {
		name string
		fn   func() error
	}{
		{"read", func() error { _, err := a.Read(PageSize-2, 4); return err }},
		{"write", func() error { return a.Write(PageSize, []byte{1}) }},
		{"u32", func() error { _, err := a.U32(PageSize - 1); return err }},
		{"u64", func() error { _, err := a.U64(PageSize - 4); return err }},
		{"view", func() error { _, err := a.View(PageSize-1, 2); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindOutOfBounds {
				t.Fatalf("want out of bounds, got %v", err)
			}
		})
	}
}

func TestView_StaleAfterInvalidate(t *testing.T) {
	mem := NewSliceMemory(1)
	a := New(mem)
	_ = a.Write(0, []byte{1, 2, 3, 4})

	v, err := a.View(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	b, err := v.Bytes()
	if err != nil || len(b) != 4 {
		t.Fatalf("fresh view: %v %v", b, err)
	}

	mem.Grow(1)
	a.Invalidate()

	_, err = v.Bytes()
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindStale {
		t.Fatalf("want stale error, got %v", err)
	}

	fresh, err := a.View(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	b, err = fresh.Bytes()
	if err != nil || b[3] != 4 {
		t.Fatalf("re-taken view: %v %v", b, err)
	}
}

func TestAlign(t *testing.T) {
	tests := []struct{ in, align, units uint32 }{
		{0, 0, 0},
		{1, 8, 1},
		{7, 8, 1},
		{8, 8, 1},
		{9, 16, 2},
		{100, 104, 13},
	}
	for _, tt := range tests {
		if got := Align8(tt.in); got != tt.align {
			t.Errorf("Align8(%d) = %d, want %d", tt.in, got, tt.align)
		}
		if got := Units(tt.in); got != tt.units {
			t.Errorf("Units(%d) = %d, want %d", tt.in, got, tt.units)
		}
	}
}
