package bridge

import (
	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/envelope"
)

// PostSignal queues sig for the module. It is safe from any goroutine. All
// signals queued before the loop reaches the flush are delivered together in
// one SignalBatch.
func (s *Session) PostSignal(sig wasmbridge.Signal) {
	s.sigMu.Lock()
	s.pendingSignals = append(s.pendingSignals, sig)
	schedule := !s.flushScheduled
	s.flushScheduled = true
	s.sigMu.Unlock()

	if schedule {
		s.loop.Post(s.flushSignals)
	}
}

// PendingSignals returns the number of signals waiting for a flush.
func (s *Session) PendingSignals() int {
	s.sigMu.Lock()
	defer s.sigMu.Unlock()
	return len(s.pendingSignals)
}

func (s *Session) flushSignals() {
	s.sigMu.Lock()
	s.flushScheduled = false
	if !s.running || s.closed {
		s.sigMu.Unlock()
		return
	}
	batch := s.pendingSignals
	s.pendingSignals = nil
	s.sigMu.Unlock()

	if len(batch) == 0 {
		return
	}
	s.metrics.SignalBatch(len(batch))
	s.emit(&envelope.SignalBatch{Signals: batch})
}
