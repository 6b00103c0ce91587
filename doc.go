// Package wasmbridge runs a sandboxed WebAssembly compute module inside an
// interactive host and keeps the module's view of the outside world (input
// devices, timers, sockets, window geometry) in sync with reality.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmbridge/          Root package with the Memory interface and Signal type
//	├── arena/           Generation-checked typed access to linear memory
//	├── envelope/        Binary envelope codec and the tagged message catalogue
//	├── engine/          wazero integration: exports, host imports, shared memory, workers
//	├── loop/            Single-threaded cooperative scheduler and clocks
//	├── timer/           Timer registry keyed by module-chosen ids
//	├── socket/          Socket channel manager and websocket transport
//	├── thread/          Execution context provisioner (TLS + stack layout, spawn, teardown)
//	├── input/           Digit allocator and input normalizer (mouse, touch, wheel, text)
//	├── bridge/          Session: message pump, dispatch table, signal coalescing, handshake
//	├── deps/            Batched startup dependency fetching (HTTP or directory)
//	├── config/          YAML + environment configuration
//	├── metrics/         Prometheus instrumentation
//	├── errors/          Structured error types
//	└── cmd/bridge/      CLI with headless and interactive terminal hosts
//
// # Quick Start
//
//	eng := engine.New(ctx, &engine.Config{EnableThreads: true})
//	defer eng.Close(ctx)
//
//	inst, err := eng.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sess := bridge.New(inst,
//	    bridge.WithLogger(logger),
//	    bridge.WithFetcher(deps.NewDirFetcher(os.DirFS(dir)), deps.DefaultParallel))
//	defer sess.Close(ctx)
//	if err := sess.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Scheduling
//
// The host side is single threaded. Every host event, timer firing, socket
// notification and signal batch is posted onto the session loop, and each one
// ends in at most one synchronous pump cycle. Handlers running inside a pump
// may start a nested pump; the nested cycle completes before the outer
// dispatch resumes. Worker threads never call into the pump, they only post
// signals.
//
// # Memory Model
//
// Linear memory can grow or move on any call into the module. Raw views into
// it are tagged with the arena generation and refused once the generation
// moves on, so code re-reads through typed offsets after every call.
package wasmbridge
