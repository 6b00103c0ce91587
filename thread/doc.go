// Package thread provisions execution contexts that share the module's
// linear memory.
//
// A context needs a thread-local block and a stack. Both come from a single
// region the module allocates through wasm_thread_alloc_tls_and_stack. The
// thread-local size is rounded up to 8 bytes, the stack sits directly above it
// and the stack pointer starts 8 bytes below the region's end:
//
//	units     = (align8(tls) + stack) / 8
//	stack_ptr = start + align8(tls) + stack - 8
//
// The layout is the only contract with the spawned context and stays valid
// for its whole life. Contexts are only ever terminated together.
package thread
