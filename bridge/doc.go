// Package bridge runs one module session: the startup handshake, the pump
// that carries envelopes in and out of linear memory, and the host services
// the module requests through them.
//
// A Session is single threaded. Host events, timer firings, socket traffic
// and animation frames all run on the session's loop, and each becomes one
// outbound envelope. Whatever the module sends back is dispatched before the
// pump returns; a handler that needs to notify the module pumps again, and
// that nested pump finishes before the outer dispatch moves on.
//
// Execution contexts are the one source of concurrency. They raise signals
// from their own goroutines through PostSignal, which queues them and lets
// the loop deliver everything queued so far as a single batch.
//
// Typical use:
//
//	inst, err := eng.Load(ctx, wasm)
//	if err != nil {
//	    return err
//	}
//	s := bridge.New(inst,
//	    bridge.WithLogger(log),
//	    bridge.WithFetcher(deps.NewDirFetcher(os.DirFS(root)), 8))
//	defer s.Close(ctx)
//	return s.Run(ctx)
package bridge
