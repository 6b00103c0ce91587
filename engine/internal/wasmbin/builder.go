package wasmbin

import (
	"github.com/tetratelabs/wazero/api"
)

// Section ids.
const (
	sectionType   = 0x01
	sectionImport = 0x02
	sectionFunc   = 0x03
	sectionMemory = 0x05
	sectionGlobal = 0x06
	sectionExport = 0x07
	sectionCode   = 0x0a
	sectionData   = 0x0b
)

// External kinds shared by imports and exports.
const (
	kindFunc   = 0x00
	kindMemory = 0x02
	kindGlobal = 0x03
)

// Limits describes a memory's page range.
type Limits struct {
	Min    uint32
	Max    uint32
	HasMax bool
	Shared bool
}

func (l Limits) appendTo(dst []byte) []byte {
	switch {
	case l.Shared:
		dst = append(dst, 0x03)
	case l.HasMax:
		dst = append(dst, 0x01)
	default:
		dst = append(dst, 0x00)
	}
	dst = AppendULEB128(dst, l.Min)
	if l.HasMax || l.Shared {
		dst = AppendULEB128(dst, l.Max)
	}
	return dst
}

type funcType struct {
	params  []api.ValueType
	results []api.ValueType
}

type importEntry struct {
	module, name string
	kind         byte
	typeIdx      uint32
	limits       Limits
}

type funcEntry struct {
	typeIdx uint32
	locals  []api.ValueType
	body    []byte
}

type globalEntry struct {
	valType api.ValueType
	mutable bool
	init    int64
}

type exportEntry struct {
	name string
	kind byte
	idx  uint32
}

type dataEntry struct {
	offset uint32
	bytes  []byte
}

// Builder assembles a core module binary. Function imports must be declared
// before any local function so indices stay stable.
type Builder struct {
	types       []funcType
	imports     []importEntry
	funcImports uint32
	funcs       []funcEntry
	memory      *Limits
	globals     []globalEntry
	exports     []exportEntry
	data        []dataEntry
}

// NewBuilder returns an empty module builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) typeIndex(params, results []api.ValueType) uint32 {
	for i, t := range b.types {
		if equalTypes(t.params, params) && equalTypes(t.results, results) {
			return uint32(i)
		}
	}
	b.types = append(b.types, funcType{params: params, results: results})
	return uint32(len(b.types) - 1)
}

func equalTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ImportFunc declares a function import and returns its function index.
func (b *Builder) ImportFunc(module, name string, params, results []api.ValueType) uint32 {
	if len(b.funcs) > 0 {
		panic("wasmbin: function import after local function")
	}
	b.imports = append(b.imports, importEntry{
		module:  module,
		name:    name,
		kind:    kindFunc,
		typeIdx: b.typeIndex(params, results),
	})
	b.funcImports++
	return b.funcImports - 1
}

// ImportMemory declares memory index 0 as imported.
func (b *Builder) ImportMemory(module, name string, l Limits) {
	b.imports = append(b.imports, importEntry{module: module, name: name, kind: kindMemory, limits: l})
}

// Memory declares a local memory at index 0.
func (b *Builder) Memory(l Limits) {
	b.memory = &l
}

// Func adds a local function and returns its function index. body holds the
// instructions without the trailing end.
func (b *Builder) Func(params, results []api.ValueType, locals []api.ValueType, body []byte) uint32 {
	b.funcs = append(b.funcs, funcEntry{
		typeIdx: b.typeIndex(params, results),
		locals:  locals,
		body:    body,
	})
	return b.funcImports + uint32(len(b.funcs)-1)
}

// Global adds an i32 or i64 global initialised to init and returns its index.
func (b *Builder) Global(t api.ValueType, mutable bool, init int64) uint32 {
	b.globals = append(b.globals, globalEntry{valType: t, mutable: mutable, init: init})
	return uint32(len(b.globals) - 1)
}

// ExportFunc exports function idx as name.
func (b *Builder) ExportFunc(name string, idx uint32) {
	b.exports = append(b.exports, exportEntry{name: name, kind: kindFunc, idx: idx})
}

// ExportMemory exports memory 0 as name.
func (b *Builder) ExportMemory(name string) {
	b.exports = append(b.exports, exportEntry{name: name, kind: kindMemory})
}

// ExportGlobal exports global idx as name.
func (b *Builder) ExportGlobal(name string, idx uint32) {
	b.exports = append(b.exports, exportEntry{name: name, kind: kindGlobal, idx: idx})
}

// Data adds an active data segment for memory 0.
func (b *Builder) Data(offset uint32, bytes []byte) {
	b.data = append(b.data, dataEntry{offset: offset, bytes: bytes})
}

// Build encodes the module.
func (b *Builder) Build() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(b.types) > 0 {
		sec := AppendULEB128(nil, uint32(len(b.types)))
		for _, t := range b.types {
			sec = append(sec, 0x60)
			sec = AppendULEB128(sec, uint32(len(t.params)))
			for _, p := range t.params {
				sec = append(sec, valType(p))
			}
			sec = AppendULEB128(sec, uint32(len(t.results)))
			for _, r := range t.results {
				sec = append(sec, valType(r))
			}
		}
		out = appendSection(out, sectionType, sec)
	}

	if len(b.imports) > 0 {
		sec := AppendULEB128(nil, uint32(len(b.imports)))
		for _, imp := range b.imports {
			sec = appendName(sec, imp.module)
			sec = appendName(sec, imp.name)
			sec = append(sec, imp.kind)
			if imp.kind == kindMemory {
				sec = imp.limits.appendTo(sec)
			} else {
				sec = AppendULEB128(sec, imp.typeIdx)
			}
		}
		out = appendSection(out, sectionImport, sec)
	}

	if len(b.funcs) > 0 {
		sec := AppendULEB128(nil, uint32(len(b.funcs)))
		for _, f := range b.funcs {
			sec = AppendULEB128(sec, f.typeIdx)
		}
		out = appendSection(out, sectionFunc, sec)
	}

	if b.memory != nil {
		sec := AppendULEB128(nil, 1)
		sec = b.memory.appendTo(sec)
		out = appendSection(out, sectionMemory, sec)
	}

	if len(b.globals) > 0 {
		sec := AppendULEB128(nil, uint32(len(b.globals)))
		for _, g := range b.globals {
			sec = append(sec, valType(g.valType))
			if g.mutable {
				sec = append(sec, 0x01)
			} else {
				sec = append(sec, 0x00)
			}
			if g.valType == api.ValueTypeI64 {
				sec = append(sec, 0x42)
				sec = AppendSLEB128(sec, g.init)
			} else {
				sec = append(sec, 0x41)
				sec = AppendSLEB128(sec, int32(g.init))
			}
			sec = append(sec, 0x0b)
		}
		out = appendSection(out, sectionGlobal, sec)
	}

	if len(b.exports) > 0 {
		sec := AppendULEB128(nil, uint32(len(b.exports)))
		for _, e := range b.exports {
			sec = appendName(sec, e.name)
			sec = append(sec, e.kind)
			sec = AppendULEB128(sec, e.idx)
		}
		out = appendSection(out, sectionExport, sec)
	}

	if len(b.funcs) > 0 {
		sec := AppendULEB128(nil, uint32(len(b.funcs)))
		for _, f := range b.funcs {
			var body []byte
			body = AppendULEB128(body, uint32(len(f.locals)))
			for _, l := range f.locals {
				body = append(body, 0x01, valType(l))
			}
			body = append(body, f.body...)
			body = append(body, 0x0b)
			sec = AppendULEB128(sec, uint32(len(body)))
			sec = append(sec, body...)
		}
		out = appendSection(out, sectionCode, sec)
	}

	if len(b.data) > 0 {
		sec := AppendULEB128(nil, uint32(len(b.data)))
		for _, d := range b.data {
			sec = append(sec, 0x00, 0x41)
			sec = AppendSLEB128(sec, int32(d.offset))
			sec = append(sec, 0x0b)
			sec = AppendULEB128(sec, uint32(len(d.bytes)))
			sec = append(sec, d.bytes...)
		}
		out = appendSection(out, sectionData, sec)
	}

	return out
}

func appendSection(dst []byte, id byte, contents []byte) []byte {
	dst = append(dst, id)
	dst = AppendULEB128(dst, uint32(len(contents)))
	return append(dst, contents...)
}
