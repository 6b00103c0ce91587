package engine

import (
	"context"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/engine/internal/wasmbin"
	"github.com/wippyai/wasm-bridge/errors"
)

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// EnableThreads enables the WebAssembly threads proposal. Modules that
	// import a shared env.memory can then spawn execution contexts.
	EnableThreads bool

	// SharedMemoryMaxPages caps the shared memory when the module's import
	// declares no maximum. 0 means 16384 pages (1GB).
	SharedMemoryMaxPages uint32
}

const defaultSharedMaxPages = 16384

// Engine compiles and instantiates bridge modules on one wazero runtime.
type Engine struct {
	runtime wazero.Runtime
	cfg     Config
	started time.Time
	log     *zap.Logger

	hostMu   sync.Mutex
	hostDone bool
}

// New creates an engine. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) *Engine {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if c.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}
	if c.EnableThreads {
		runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
	}
	return &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		cfg:     c,
		started: time.Now(),
		log:     Logger(),
	}
}

// Load compiles wasmBytes, provides its imports and instantiates it.
func (e *Engine) Load(ctx context.Context, wasmBytes []byte) (*Instance, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}

	shared, limits := sharedMemoryImport(compiled)
	if shared && !e.cfg.EnableThreads {
		return nil, errors.Capability(errors.PhaseLoad,
			"module imports env.memory but threads are disabled")
	}
	if shared {
		if err := e.provideSharedMemory(ctx, limits); err != nil {
			return nil, err
		}
	}
	if err := e.provideHostModule(ctx); err != nil {
		return nil, err
	}

	inst := &Instance{
		engine:   e,
		compiled: compiled,
		threaded: shared,
		fns:      make(map[string]api.Function, len(cachedExports)),
		log:      e.log,
	}
	inst.workerCtx, inst.cancelWorkers = context.WithCancel(context.Background())

	mod, err := e.runtime.InstantiateModule(inst.callCtx(ctx), compiled,
		wazero.NewModuleConfig().WithName("").WithStartFunctions())
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	inst.mod = mod

	if initFn := mod.ExportedFunction(exportInitialize); initFn != nil {
		if _, err := initFn.Call(inst.callCtx(ctx)); err != nil {
			_ = mod.Close(ctx)
			return nil, errors.Trap(errors.PhaseLoad, exportInitialize, err)
		}
	}
	for _, name := range requiredExports {
		if mod.ExportedFunction(name) == nil {
			_ = mod.Close(ctx)
			return nil, errors.MissingExport(name)
		}
	}
	for _, name := range cachedExports {
		if fn := mod.ExportedFunction(name); fn != nil {
			inst.fns[name] = fn
		}
	}

	e.log.Debug("module loaded",
		zap.Bool("threaded", shared),
		zap.Uint32("memory_bytes", mod.Memory().Size()))
	return inst, nil
}

// Close releases the runtime and every instance created from it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Threads reports whether the threads proposal is enabled.
func (e *Engine) Threads() bool {
	return e.cfg.EnableThreads
}

func (e *Engine) now() float64 {
	return time.Since(e.started).Seconds()
}

// sharedMemoryImport reports whether compiled imports env.memory and returns
// the limits the provided memory must satisfy.
func sharedMemoryImport(compiled wazero.CompiledModule) (bool, wasmbin.Limits) {
	for _, def := range compiled.ImportedMemories() {
		mod, name, ok := def.Import()
		if !ok || mod != MemoryModule || name != MemoryName {
			continue
		}
		l := wasmbin.Limits{Min: def.Min(), HasMax: true, Shared: true}
		if max, ok := def.Max(); ok {
			l.Max = max
		}
		return true, l
	}
	return false, wasmbin.Limits{}
}

// SharedMemoryModule encodes a module that defines and exports one shared
// memory with the given limits.
func SharedMemoryModule(l wasmbin.Limits) []byte {
	b := wasmbin.NewBuilder()
	b.Memory(l)
	b.ExportMemory(MemoryName)
	return b.Build()
}

func (e *Engine) provideSharedMemory(ctx context.Context, l wasmbin.Limits) error {
	if e.runtime.Module(MemoryModule) != nil {
		return nil
	}
	if l.Max == 0 {
		l.Max = e.cfg.SharedMemoryMaxPages
		if l.Max == 0 {
			l.Max = defaultSharedMaxPages
		}
		if l.Max < l.Min {
			l.Max = l.Min
		}
	}
	_, err := e.runtime.InstantiateWithConfig(ctx, SharedMemoryModule(l),
		wazero.NewModuleConfig().WithName(MemoryModule))
	if err != nil {
		return errors.New(errors.PhaseLoad, errors.KindInstantiation).
			Tag(MemoryModule).
			Cause(err).
			Detail("shared memory %d..%d pages", l.Min, l.Max).
			Build()
	}
	return nil
}
