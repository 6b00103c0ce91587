// Package engine runs bridge modules on wazero.
//
// An Engine owns one wazero runtime. Load compiles a module, provides the
// host imports it expects and returns an Instance:
//
//	bridge.post_signal(hi, lo)     wake the host from any execution context
//	bridge.console_log(ptr, len)   guest text to the engine logger (info)
//	bridge.console_error(ptr, len) guest text to the engine logger (error)
//	bridge.time_now() f64          seconds since the engine started
//
// # Threaded builds
//
// A module that imports env.memory is a threaded build. With threads enabled
// the engine instantiates a shared memory satisfying the import before the
// module itself. Each execution context spawned afterwards is a fresh
// instance of the same compiled module over that memory, with its own
// globals: the engine points its __stack_pointer at the allocated region,
// runs __wasm_init_tls and calls the entrypoint on a new goroutine.
//
// Loading a threaded build with threads disabled fails with a capability
// error.
//
// # Calls
//
// Instance methods map one to one onto the module's exports. A trap in any of
// them is returned as an errors.KindTrap error tagged with the export name.
// Instances are driven from a single goroutine; only post_signal may arrive
// from elsewhere.
package engine
