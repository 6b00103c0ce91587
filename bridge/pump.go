package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/arena"
	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/errors"
)

// send builds one envelope from msgs and pumps it.
func (s *Session) send(ctx context.Context, msgs ...envelope.Message) error {
	out := envelope.NewBuilder()
	for _, m := range msgs {
		if err := out.Add(m); err != nil {
			return err
		}
		s.metrics.Message("out", m.Tag().String())
	}
	return s.Pump(ctx, out)
}

// emit sends msgs from a loop callback, where there is no caller to return
// an error to.
func (s *Session) emit(msgs ...envelope.Message) {
	if s.closed {
		return
	}
	if err := s.send(s.ctx, msgs...); err != nil {
		s.report("pump failed", err)
	}
}

// Pump hands out to the module and dispatches everything it sends back.
// Handlers may pump again; a nested pump completes, dispatch and release
// included, before the outer dispatch resumes. out is consumed.
func (s *Session) Pump(ctx context.Context, out *envelope.Builder) error {
	if s.closed {
		return errors.Closed(errors.PhasePump, "session")
	}
	if !s.started {
		return errors.NotInitialized(errors.PhasePump, "application")
	}
	data, err := out.Take()
	if err != nil {
		return err
	}

	s.depth++
	defer func() { s.depth-- }()
	s.metrics.PumpCycle(s.depth)

	units := arena.Units(uint32(len(data)))
	msg, err := s.mod.NewMsg(ctx, units)
	s.arena.Invalidate()
	if err != nil {
		return err
	}
	if err := s.arena.Write(arena.Ptr(msg), data); err != nil {
		// Hand the allocation back; the module never saw it.
		if freeErr := s.mod.FreeMsg(ctx, msg); freeErr != nil {
			s.log.Warn("outbound envelope leaked", zap.Uint32("ptr", msg), zap.Error(freeErr))
		}
		s.arena.Invalidate()
		return err
	}

	in, err := s.mod.ProcessMsg(ctx, msg)
	s.arena.Invalidate()
	if err != nil {
		return err
	}
	if in == 0 {
		return nil
	}

	raw, err := s.readInbound(arena.Ptr(in))
	if err == nil {
		s.dispatch(ctx, raw)
	}
	if freeErr := s.mod.FreeMsg(ctx, in); freeErr != nil && err == nil {
		err = freeErr
	}
	s.arena.Invalidate()
	return err
}

// readInbound copies the envelope at ptr out of linear memory.
func (s *Session) readInbound(ptr arena.Ptr) ([]byte, error) {
	header, err := s.arena.Read(ptr, envelope.HeaderSize)
	if err != nil {
		return nil, err
	}
	n, err := envelope.Length(header)
	if err != nil {
		return nil, err
	}
	return s.arena.Read(ptr, n)
}

// Depth returns the current pump nesting depth; 0 outside any pump.
func (s *Session) Depth() int {
	return s.depth
}

func (s *Session) dispatch(ctx context.Context, raw []byte) {
	items, err := envelope.Parse(raw)
	if err != nil {
		s.report("inbound envelope rejected", err)
		return
	}
	for _, it := range items {
		s.metrics.Message("in", it.Tag.String())
		h, ok := s.handlers[it.Tag]
		if !ok {
			s.log.Warn("unhandled module request", zap.Stringer("tag", it.Tag))
			continue
		}
		m, err := envelope.DecodeItem(envelope.FromWasm, it)
		if err != nil {
			s.report("module request rejected", err)
			continue
		}
		if err := h(ctx, m); err != nil {
			s.report("module request failed", err, zap.Stringer("tag", it.Tag))
		}
	}
}
