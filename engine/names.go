package engine

// Host import namespaces.
const (
	HostModule   = "bridge"
	MemoryModule = "env"
	MemoryName   = "memory"
)

// Host functions provided under HostModule.
const (
	importPostSignal   = "post_signal"
	importConsoleLog   = "console_log"
	importConsoleError = "console_error"
	importTimeNow      = "time_now"
)

// Module exports the bridge calls.
const (
	exportInitialize     = "_initialize"
	exportCreateApp      = "wasm_create_app"
	exportNewMsg         = "wasm_new_msg_with_u64_capacity"
	exportProcessMsg     = "wasm_process_msg"
	exportFreeMsg        = "wasm_free_msg"
	exportFreeU8         = "wasm_free_u8"
	exportAllocTLSStack  = "wasm_thread_alloc_tls_and_stack"
	exportThreadEntry    = "wasm_thread_entrypoint"
	exportAudioEntry     = "wasm_audio_entrypoint"
	exportTerminatePools = "wasm_terminate_thread_pools"
	exportInitTLS        = "__wasm_init_tls"
	exportTLSSize        = "__tls_size"
	exportStackPointer   = "__stack_pointer"
)

// requiredExports must be present for a module to be driven at all.
var requiredExports = []string{
	exportCreateApp,
	exportNewMsg,
	exportProcessMsg,
	exportFreeMsg,
}

// cachedExports are resolved once after instantiation.
var cachedExports = []string{
	exportCreateApp,
	exportNewMsg,
	exportProcessMsg,
	exportFreeMsg,
	exportFreeU8,
	exportAllocTLSStack,
	exportTerminatePools,
}
