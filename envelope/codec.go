package envelope

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/wasm-bridge/errors"
)

// Encoder appends little-endian primitives to a message body.
type Encoder struct {
	buf []byte
}

func (e *Encoder) U32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) U64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *Encoder) F64(v float64) {
	e.U64(math.Float64bits(v))
}

func (e *Encoder) Bool(v bool) {
	if v {
		e.U32(1)
		return
	}
	e.U32(0)
}

// Text writes a length-prefixed string padded to 4 bytes.
func (e *Encoder) Text(s string) {
	e.U32(uint32(len(s)))
	e.buf = append(e.buf, s...)
	e.pad(4)
}

// Bytes writes a length-prefixed byte slice padded to 4 bytes.
func (e *Encoder) Bytes(b []byte) {
	e.U32(uint32(len(b)))
	e.buf = append(e.buf, b...)
	e.pad(4)
}

func (e *Encoder) pad(align int) {
	for len(e.buf)%align != 0 {
		e.buf = append(e.buf, 0)
	}
}

// Decoder reads primitives from a message body. The first failure is sticky;
// check Err once after decoding a message.
type Decoder struct {
	tag Tag
	buf []byte
	off int
	err error
}

// NewDecoder decodes body for the message identified by tag.
func NewDecoder(tag Tag, body []byte) *Decoder {
	return &Decoder{tag: tag, buf: body}
}

// Err returns the first decoding failure.
func (d *Decoder) Err() error {
	return d.err
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.off+n > len(d.buf) {
		d.err = errors.InvalidData(errors.PhaseDecode, d.tag.String(),
			"body truncated")
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *Decoder) U32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *Decoder) U64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *Decoder) F64() float64 {
	return math.Float64frombits(d.U64())
}

func (d *Decoder) Bool() bool {
	return d.U32() != 0
}

// Text reads a length-prefixed string.
func (d *Decoder) Text() string {
	return string(d.Bytes())
}

// Bytes reads a length-prefixed byte slice. The result aliases the body.
func (d *Decoder) Bytes() []byte {
	n := int(d.U32())
	b := d.take(n)
	d.skipPad(4)
	return b
}

// Count reads a vector length, refusing lengths the body cannot hold.
func (d *Decoder) Count(minItemSize int) int {
	n := int(d.U32())
	if d.err == nil && minItemSize > 0 && n > d.Remaining()/minItemSize {
		d.err = errors.InvalidData(errors.PhaseDecode, d.tag.String(),
			"vector length exceeds body")
		return 0
	}
	return n
}

func (d *Decoder) skipPad(align int) {
	if d.err != nil {
		return
	}
	for d.off%align != 0 && d.off < len(d.buf) {
		d.off++
	}
}
