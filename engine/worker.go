package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/thread"
)

// Spawn starts an execution context on layout. The context runs on a fresh
// instance of the same compiled module that imports the shared memory, with
// its own globals. Signals it raises go to sig from the worker goroutine.
func (i *Instance) Spawn(ctx context.Context, kind thread.Kind, layout thread.Layout, sig wasmbridge.SignalFunc) error {
	if !i.threaded {
		return errors.Capability(errors.PhaseProvision, "module does not import shared memory")
	}
	if i.workerCtx.Err() != nil {
		return errors.Closed(errors.PhaseProvision, "workers")
	}

	wctx := withSink(i.workerCtx, sig)
	mod, err := i.engine.runtime.InstantiateModule(wctx, i.compiled,
		wazero.NewModuleConfig().WithName("").WithStartFunctions())
	if err != nil {
		return errors.New(errors.PhaseProvision, errors.KindInstantiation).
			Tag(kind.String()).
			Cause(err).
			Detail("worker instance").
			Build()
	}

	fail := func(err error) error {
		_ = mod.Close(ctx)
		return err
	}

	sp, ok := mod.ExportedGlobal(exportStackPointer).(api.MutableGlobal)
	if !ok {
		return fail(errors.MissingExport(exportStackPointer))
	}
	sp.Set(api.EncodeU32(layout.StackPtr))

	if initTLS := mod.ExportedFunction(exportInitTLS); initTLS != nil {
		if _, err := initTLS.Call(wctx, api.EncodeU32(layout.TLSPtr)); err != nil {
			return fail(errors.Trap(errors.PhaseProvision, exportInitTLS, err))
		}
	}

	entry := entrypoint(mod, kind)
	if entry == nil {
		return fail(errors.MissingExport(exportThreadEntry))
	}

	i.workers.Add(1)
	i.active.Add(1)
	go func() {
		defer i.workers.Done()
		defer i.active.Add(-1)
		defer mod.Close(context.Background())

		if _, err := entry.Call(wctx, api.EncodeU32(layout.ClosurePtr)); err != nil && wctx.Err() == nil {
			i.log.Error("execution context trapped",
				zap.Stringer("kind", kind),
				zap.Uint32("tls", layout.TLSPtr),
				zap.Error(err))
		}
	}()
	return nil
}

// entrypoint picks the export a context of kind starts in.
func entrypoint(mod api.Module, kind thread.Kind) api.Function {
	if kind == thread.AudioOutput {
		if fn := mod.ExportedFunction(exportAudioEntry); fn != nil {
			return fn
		}
	}
	return mod.ExportedFunction(exportThreadEntry)
}

// Workers returns the number of execution contexts still running.
func (i *Instance) Workers() int {
	return int(i.active.Load())
}

// TerminateAll cancels every worker and waits for them to exit or for ctx to
// end. Workers blocked outside guest code are abandoned.
func (i *Instance) TerminateAll(ctx context.Context) error {
	i.cancelWorkers()

	done := make(chan struct{})
	go func() {
		i.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.PhaseProvision, errors.KindClosed, ctx.Err(), "workers still running")
	}
}
