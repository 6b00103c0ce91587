package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

// sinkKey carries the SignalFunc of the execution context making a call.
type sinkKey struct{}

func withSink(ctx context.Context, sig wasmbridge.SignalFunc) context.Context {
	return context.WithValue(ctx, sinkKey{}, sig)
}

func sinkFrom(ctx context.Context) wasmbridge.SignalFunc {
	sig, _ := ctx.Value(sinkKey{}).(wasmbridge.SignalFunc)
	return sig
}

// provideHostModule instantiates the HostModule functions once per runtime.
func (e *Engine) provideHostModule(ctx context.Context) error {
	e.hostMu.Lock()
	defer e.hostMu.Unlock()
	if e.hostDone {
		return nil
	}

	i32 := api.ValueTypeI32
	b := e.runtime.NewHostModuleBuilder(HostModule)
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.postSignal), []api.ValueType{i32, i32}, nil).
		WithParameterNames("hi", "lo").
		Export(importPostSignal)
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.consoleLog), []api.ValueType{i32, i32}, nil).
		WithParameterNames("ptr", "len").
		Export(importConsoleLog)
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.consoleError), []api.ValueType{i32, i32}, nil).
		WithParameterNames("ptr", "len").
		Export(importConsoleError)
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.timeNow), nil, []api.ValueType{api.ValueTypeF64}).
		Export(importTimeNow)

	if _, err := b.Instantiate(ctx); err != nil {
		return errors.New(errors.PhaseLoad, errors.KindInstantiation).
			Tag(HostModule).
			Cause(err).
			Detail("host imports").
			Build()
	}
	e.hostDone = true
	return nil
}

func (e *Engine) postSignal(ctx context.Context, _ api.Module, stack []uint64) {
	s := wasmbridge.Signal{Hi: api.DecodeU32(stack[0]), Lo: api.DecodeU32(stack[1])}
	sig := sinkFrom(ctx)
	if sig == nil {
		e.log.Warn("signal dropped: no receiver", zap.Uint32("hi", s.Hi), zap.Uint32("lo", s.Lo))
		return
	}
	sig(s)
}

func (e *Engine) consoleLog(_ context.Context, mod api.Module, stack []uint64) {
	e.log.Info(guestText(mod, stack), zap.String("source", "guest"))
}

func (e *Engine) consoleError(_ context.Context, mod api.Module, stack []uint64) {
	e.log.Error(guestText(mod, stack), zap.String("source", "guest"))
}

func (e *Engine) timeNow(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeF64(e.now())
}

// guestText reads a UTF-8 string from the caller's memory. Invalid ranges
// produce a placeholder rather than a trap.
func guestText(mod api.Module, stack []uint64) string {
	ptr, n := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
	mem := mod.Memory()
	if mem == nil {
		return "<no memory>"
	}
	buf, ok := mem.Read(ptr, n)
	if !ok {
		return "<out of bounds>"
	}
	return string(buf)
}
