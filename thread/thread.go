package thread

import (
	"context"
	"sync"

	"go.uber.org/zap"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/arena"
	"github.com/wippyai/wasm-bridge/errors"
)

// DefaultStackSize is the stack carved out for every execution context.
const DefaultStackSize = 2 << 20

// Kind is the flavour of execution context being spawned.
type Kind uint8

const (
	Worker Kind = iota
	AudioOutput
)

func (k Kind) String() string {
	if k == AudioOutput {
		return "audio"
	}
	return "worker"
}

// Layout is the memory handed to a new execution context. The region starts at
// TLSPtr, the stack sits above the thread-local block and grows down from
// StackPtr. The region is never reclaimed.
type Layout struct {
	TLSPtr     uint32
	StackPtr   uint32
	ClosurePtr uint32
	Units      uint32
}

// Exports is the part of the module the provisioner needs.
type Exports interface {
	HasThreadSupport() bool
	HasStackPointer() bool
	TLSSize() (uint32, error)
	AllocTLSAndStack(ctx context.Context, units uint32) (uint32, error)
}

// Spawner starts execution contexts on a layout. Signals raised by the new
// context are delivered to sig from its own goroutine.
type Spawner interface {
	Spawn(ctx context.Context, kind Kind, layout Layout, sig wasmbridge.SignalFunc) error
	TerminateAll(ctx context.Context) error
}

// RegionUnits returns the number of 8-byte units requested for a context with
// thread-local size tls and stack size stack.
func RegionUnits(tls, stack uint32) uint32 {
	return arena.Units(arena.Align8(tls) + stack)
}

// ComputeLayout places the stack pointer for a region starting at start.
func ComputeLayout(start, tls, stack, closure uint32) Layout {
	aligned := arena.Align8(tls)
	return Layout{
		TLSPtr:     start,
		StackPtr:   start + aligned + stack - 8,
		ClosurePtr: closure,
		Units:      arena.Units(aligned + stack),
	}
}

// Provisioner allocates layouts and spawns execution contexts.
type Provisioner struct {
	exports   Exports
	spawner   Spawner
	signals   wasmbridge.SignalFunc
	stackSize uint32
	log       *zap.Logger

	mu         sync.Mutex
	spawned    int
	terminated bool
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithStackSize overrides DefaultStackSize.
func WithStackSize(n uint32) Option {
	return func(p *Provisioner) { p.stackSize = n }
}

// WithLogger sets the provisioner's logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.log = l
		}
	}
}

// NewProvisioner creates a provisioner. Contexts it spawns feed signals to sig.
func NewProvisioner(exports Exports, spawner Spawner, sig wasmbridge.SignalFunc, opts ...Option) *Provisioner {
	p := &Provisioner{
		exports:   exports,
		spawner:   spawner,
		signals:   sig,
		stackSize: DefaultStackSize,
		log:       Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Allocate reserves a region for a new context running closure.
func (p *Provisioner) Allocate(ctx context.Context, closure uint32) (Layout, error) {
	if !p.exports.HasThreadSupport() {
		return Layout{}, errors.Capability(errors.PhaseProvision,
			"module was not built with shared memory")
	}
	if !p.exports.HasStackPointer() {
		return Layout{}, errors.MissingExport("__stack_pointer")
	}
	tls, err := p.exports.TLSSize()
	if err != nil {
		return Layout{}, err
	}
	size := uint64(arena.Align8(tls)) + uint64(p.stackSize)
	if size%8 != 0 {
		return Layout{}, errors.Misaligned(errors.PhaseProvision, "thread region size", size, 8)
	}

	units := RegionUnits(tls, p.stackSize)
	start, err := p.exports.AllocTLSAndStack(ctx, units)
	if err != nil {
		return Layout{}, errors.New(errors.PhaseProvision, errors.KindAllocation).
			Value(units).
			Cause(err).
			Detail("allocate %d units", units).
			Build()
	}
	if start == 0 {
		return Layout{}, errors.AllocationFailed(errors.PhaseProvision, units)
	}
	if start%8 != 0 {
		return Layout{}, errors.Misaligned(errors.PhaseProvision, "thread region start", uint64(start), 8)
	}
	return ComputeLayout(start, tls, p.stackSize, closure), nil
}

// Spawn allocates a layout and starts a context on it. Failures abort the
// spawn and are returned for the caller to log; the host keeps running.
func (p *Provisioner) Spawn(ctx context.Context, kind Kind, closure uint32) (Layout, error) {
	p.mu.Lock()
	terminated := p.terminated
	p.mu.Unlock()
	if terminated {
		return Layout{}, errors.Closed(errors.PhaseProvision, "provisioner")
	}

	layout, err := p.Allocate(ctx, closure)
	if err != nil {
		p.log.Error("execution context not spawned",
			zap.Stringer("kind", kind),
			zap.Uint32("closure", closure),
			zap.Error(err))
		return Layout{}, err
	}
	if err := p.spawner.Spawn(ctx, kind, layout, p.signals); err != nil {
		p.log.Error("execution context failed to start",
			zap.Stringer("kind", kind),
			zap.Uint32("tls", layout.TLSPtr),
			zap.Error(err))
		return layout, err
	}

	p.mu.Lock()
	p.spawned++
	p.mu.Unlock()
	p.log.Debug("execution context spawned",
		zap.Stringer("kind", kind),
		zap.Uint32("tls", layout.TLSPtr),
		zap.Uint32("stack", layout.StackPtr),
		zap.Uint32("closure", closure))
	return layout, nil
}

// Spawned returns the number of contexts started.
func (p *Provisioner) Spawned() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spawned
}

// Terminate stops every spawned context. Later spawns are refused. Regions are
// not recycled.
func (p *Provisioner) Terminate(ctx context.Context) error {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return nil
	}
	p.terminated = true
	p.mu.Unlock()
	return p.spawner.TerminateAll(ctx)
}
