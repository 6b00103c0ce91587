package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

// Instance is a running bridge module.
// It is NOT safe for concurrent use from multiple goroutines. Every call except
// the worker entrypoints happens on the host loop; workers run on their own
// instances over the shared memory.
type Instance struct {
	engine   *Engine
	compiled wazero.CompiledModule
	mod      api.Module
	fns      map[string]api.Function
	threaded bool
	app      uint32
	log      *zap.Logger

	sinkMu sync.RWMutex
	sink   wasmbridge.SignalFunc

	workerCtx     context.Context
	cancelWorkers context.CancelFunc
	workers       sync.WaitGroup
	active        atomic.Int32
}

// Memory returns the module's linear memory, shared with workers in
// threaded builds.
func (i *Instance) Memory() wasmbridge.Memory {
	if i.mod == nil {
		return nil
	}
	if mem := i.mod.Memory(); mem != nil {
		return mem
	}
	return nil
}

// Threaded reports whether the module runs on shared memory.
func (i *Instance) Threaded() bool {
	return i.threaded
}

// App returns the application pointer returned by CreateApp.
func (i *Instance) App() uint32 {
	return i.app
}

// OnSignal routes post_signal calls from the main instance to sig. Workers
// carry the function they were spawned with.
func (i *Instance) OnSignal(sig wasmbridge.SignalFunc) {
	i.sinkMu.Lock()
	i.sink = sig
	i.sinkMu.Unlock()
}

func (i *Instance) deliver(s wasmbridge.Signal) {
	i.sinkMu.RLock()
	sig := i.sink
	i.sinkMu.RUnlock()
	if sig != nil {
		sig(s)
	}
}

func (i *Instance) callCtx(ctx context.Context) context.Context {
	return withSink(ctx, i.deliver)
}

// call invokes a cached export. Traps are reported as KindTrap errors.
func (i *Instance) call(ctx context.Context, phase errors.Phase, name string, args ...uint64) ([]uint64, error) {
	if i.mod == nil {
		return nil, errors.Closed(phase, "instance")
	}
	fn := i.fns[name]
	if fn == nil {
		return nil, errors.MissingExport(name)
	}
	res, err := fn.Call(i.callCtx(ctx), args...)
	if err != nil {
		return nil, errors.Trap(phase, name, err)
	}
	return res, nil
}

// CreateApp constructs the application inside the module.
func (i *Instance) CreateApp(ctx context.Context) (uint32, error) {
	res, err := i.call(ctx, errors.PhaseStartup, exportCreateApp)
	if err != nil {
		return 0, err
	}
	i.app = api.DecodeU32(res[0])
	return i.app, nil
}

// NewMsg allocates an outbound envelope of units 8-byte units.
func (i *Instance) NewMsg(ctx context.Context, units uint32) (uint32, error) {
	res, err := i.call(ctx, errors.PhaseEncode, exportNewMsg, api.EncodeU32(units))
	if err != nil {
		return 0, err
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseEncode, units)
	}
	return ptr, nil
}

// ProcessMsg hands the outbound envelope at msg to the module and returns the
// inbound envelope pointer.
func (i *Instance) ProcessMsg(ctx context.Context, msg uint32) (uint32, error) {
	res, err := i.call(ctx, errors.PhasePump, exportProcessMsg, api.EncodeU32(msg), api.EncodeU32(i.app))
	if err != nil {
		return 0, err
	}
	return api.DecodeU32(res[0]), nil
}

// FreeMsg releases an inbound envelope.
func (i *Instance) FreeMsg(ctx context.Context, msg uint32) error {
	_, err := i.call(ctx, errors.PhasePump, exportFreeMsg, api.EncodeU32(msg))
	return err
}

// FreeData releases a module byte buffer. Modules without wasm_free_u8 leak
// the buffer.
func (i *Instance) FreeData(ctx context.Context, ptr, capacity uint32) error {
	if i.fns[exportFreeU8] == nil {
		return nil
	}
	_, err := i.call(ctx, errors.PhasePump, exportFreeU8, api.EncodeU32(ptr), api.EncodeU32(capacity))
	return err
}

// TerminateThreadPools asks the module to wind down its own pools.
func (i *Instance) TerminateThreadPools(ctx context.Context) error {
	if i.fns[exportTerminatePools] == nil {
		return nil
	}
	_, err := i.call(ctx, errors.PhaseProvision, exportTerminatePools, api.EncodeU32(i.app))
	return err
}

// HasThreadSupport reports whether execution contexts can be spawned.
func (i *Instance) HasThreadSupport() bool {
	return i.threaded && i.fns[exportAllocTLSStack] != nil
}

// HasStackPointer reports whether the module exports a mutable __stack_pointer.
func (i *Instance) HasStackPointer() bool {
	if i.mod == nil {
		return false
	}
	_, ok := i.mod.ExportedGlobal(exportStackPointer).(api.MutableGlobal)
	return ok
}

// TLSSize reads the module's thread-local block size.
func (i *Instance) TLSSize() (uint32, error) {
	if i.mod == nil {
		return 0, errors.Closed(errors.PhaseProvision, "instance")
	}
	g := i.mod.ExportedGlobal(exportTLSSize)
	if g == nil {
		return 0, errors.MissingExport(exportTLSSize)
	}
	return api.DecodeU32(g.Get()), nil
}

// AllocTLSAndStack reserves units 8-byte units for a new execution context.
func (i *Instance) AllocTLSAndStack(ctx context.Context, units uint32) (uint32, error) {
	res, err := i.call(ctx, errors.PhaseProvision, exportAllocTLSStack, api.EncodeU32(units))
	if err != nil {
		return 0, err
	}
	return api.DecodeU32(res[0]), nil
}

// Close stops workers and releases the main instance.
func (i *Instance) Close(ctx context.Context) error {
	var firstErr error
	if err := i.TerminateAll(ctx); err != nil {
		firstErr = err
	}
	if i.mod != nil {
		if err := i.mod.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		i.mod = nil
	}
	i.fns = nil
	return firstErr
}
