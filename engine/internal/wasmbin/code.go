package wasmbin

// Code is an instruction sequence under construction.
type Code []byte

func (c Code) I32Const(v int32) Code {
	return AppendSLEB128(append(c, 0x41), v)
}

func (c Code) LocalGet(i uint32) Code {
	return AppendULEB128(append(c, 0x20), i)
}

func (c Code) GlobalGet(i uint32) Code {
	return AppendULEB128(append(c, 0x23), i)
}

func (c Code) GlobalSet(i uint32) Code {
	return AppendULEB128(append(c, 0x24), i)
}

func (c Code) Call(fn uint32) Code {
	return AppendULEB128(append(c, 0x10), fn)
}

func (c Code) Drop() Code {
	return append(c, 0x1a)
}

// I32Store stores with natural alignment at the given static offset.
func (c Code) I32Store(offset uint32) Code {
	c = append(c, 0x36, 0x02)
	return AppendULEB128(c, offset)
}

// I32Load loads with natural alignment from the given static offset.
func (c Code) I32Load(offset uint32) Code {
	c = append(c, 0x28, 0x02)
	return AppendULEB128(c, offset)
}

func (c Code) I32Add() Code {
	return append(c, 0x6a)
}
