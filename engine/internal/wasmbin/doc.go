// Package wasmbin encodes small core WebAssembly modules.
//
// The engine uses it for the shared memory module it provides to threaded
// builds, and tests use it to synthesize bridge modules without a toolchain.
package wasmbin
