package envelope

import (
	"encoding/binary"

	"github.com/wippyai/wasm-bridge/errors"
)

// HeaderSize is the size of the envelope header: total length and message count.
const HeaderSize = 8

// Message is one typed entry of an envelope.
type Message interface {
	Tag() Tag
	EncodeTo(e *Encoder)
	DecodeFrom(d *Decoder) error
}

// Builder assembles an outbound envelope. It is consumed exactly once by Take;
// after that it refuses further use.
type Builder struct {
	buf   []byte
	count uint32
	taken bool
}

// NewBuilder returns an empty outbound envelope.
func NewBuilder() *Builder {
	return &Builder{buf: make([]byte, HeaderSize, 256)}
}

// Add appends m.
func (b *Builder) Add(m Message) error {
	if b.taken {
		return errors.Closed(errors.PhaseEncode, "outbound envelope")
	}
	start := len(b.buf)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(m.Tag()))
	b.buf = binary.LittleEndian.AppendUint32(b.buf, 0)

	enc := Encoder{buf: b.buf}
	m.EncodeTo(&enc)
	b.buf = enc.buf

	bodyLen := len(b.buf) - start - 8
	binary.LittleEndian.PutUint32(b.buf[start+4:], uint32(bodyLen))
	for len(b.buf)%8 != 0 {
		b.buf = append(b.buf, 0)
	}
	b.count++
	return nil
}

// Len returns the number of messages added so far.
func (b *Builder) Len() int {
	return int(b.count)
}

// Taken reports whether the envelope has been consumed.
func (b *Builder) Taken() bool {
	return b.taken
}

// Take finalizes the header and transfers the bytes to the caller.
func (b *Builder) Take() ([]byte, error) {
	if b.taken {
		return nil, errors.Closed(errors.PhaseEncode, "outbound envelope")
	}
	b.taken = true
	binary.LittleEndian.PutUint32(b.buf[0:], uint32(len(b.buf)))
	binary.LittleEndian.PutUint32(b.buf[4:], b.count)
	out := b.buf
	b.buf = nil
	return out, nil
}

// Item is a raw message: tag plus body bytes.
type Item struct {
	Tag  Tag
	Body []byte
}

// Length reads the total envelope length from a header.
func Length(header []byte) (uint32, error) {
	if len(header) < HeaderSize {
		return 0, errors.InvalidData(errors.PhaseDecode, "", "short envelope header")
	}
	n := binary.LittleEndian.Uint32(header)
	if n < HeaderSize {
		return 0, errors.InvalidData(errors.PhaseDecode, "", "envelope length below header size")
	}
	return n, nil
}

// Parse splits an envelope into raw items. Bodies alias data.
func Parse(data []byte) ([]Item, error) {
	total, err := Length(data)
	if err != nil {
		return nil, err
	}
	if int(total) > len(data) {
		return nil, errors.InvalidData(errors.PhaseDecode, "", "envelope length exceeds buffer")
	}
	count := binary.LittleEndian.Uint32(data[4:])
	items := make([]Item, 0, min(int(count), int(total)/8))

	off := HeaderSize
	for i := uint32(0); i < count; i++ {
		if off+8 > int(total) {
			return nil, errors.InvalidData(errors.PhaseDecode, "", "message header past envelope end")
		}
		tag := Tag(binary.LittleEndian.Uint32(data[off:]))
		n := int(binary.LittleEndian.Uint32(data[off+4:]))
		off += 8
		if n < 0 || off+n > int(total) {
			return nil, errors.InvalidData(errors.PhaseDecode, tag.String(), "message body past envelope end")
		}
		items = append(items, Item{Tag: tag, Body: data[off : off+n]})
		off += n
		off = (off + 7) &^ 7
	}
	return items, nil
}

// Encode builds a complete envelope from msgs.
func Encode(msgs ...Message) ([]byte, error) {
	b := NewBuilder()
	for _, m := range msgs {
		if err := b.Add(m); err != nil {
			return nil, err
		}
	}
	return b.Take()
}

// Decode parses data and decodes every item with the catalogue for dir.
func Decode(dir Direction, data []byte) ([]Message, error) {
	items, err := Parse(data)
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(items))
	for _, it := range items {
		m, err := DecodeItem(dir, it)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// DecodeItem decodes a single raw item.
func DecodeItem(dir Direction, it Item) (Message, error) {
	m := New(dir, it.Tag)
	if m == nil {
		return nil, errors.InvalidData(errors.PhaseDecode, it.Tag.String(), "unknown message tag")
	}
	if err := m.DecodeFrom(NewDecoder(it.Tag, it.Body)); err != nil {
		return nil, err
	}
	return m, nil
}
