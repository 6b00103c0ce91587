package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/deps"
	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/thread"
)

// Start runs the startup handshake: the module reports the dependencies it
// needs in answer to the host's capabilities, the host fetches them in one
// batch, then the module is initialized with the blobs and the window. Input
// is accepted only afterwards. A failed fetch fails startup; nothing is
// retried.
func (s *Session) Start(ctx context.Context) error {
	if s.started {
		return errors.New(errors.PhaseStartup, errors.KindInvalidInput).
			Detail("session already started").
			Build()
	}
	// Cancelling ctx stops the loop but never aborts a guest call midway;
	// Close bounds teardown with its own context.
	s.ctx = context.WithoutCancel(ctx)
	ctx = s.ctx

	if src, ok := s.mod.(signalSource); ok {
		src.OnSignal(s.PostSignal)
	}
	s.setupThreads()

	if _, err := s.mod.CreateApp(ctx); err != nil {
		return err
	}
	s.arena.Invalidate()
	s.started = true

	info := s.host.Info()
	info.HasThreadSupport = s.threads != nil
	if err := s.send(ctx, &envelope.GetDeps{Info: info}); err != nil {
		return err
	}

	var blobs []envelope.Dep
	if len(s.depPaths) > 0 {
		if s.fetcher == nil {
			return errors.NotInitialized(errors.PhaseStartup, "dependency fetcher")
		}
		var err error
		blobs, err = deps.FetchAll(ctx, s.fetcher, s.depPaths, s.parallel)
		if err != nil {
			s.log.Error("dependency fetch failed", zap.Strings("paths", s.depPaths), zap.Error(err))
			return err
		}
	}

	s.window = s.host.Window()
	s.input.SetPageHeight(s.window.InnerHeight)
	if err := s.send(ctx, &envelope.Init{Window: s.window, Deps: blobs}); err != nil {
		return err
	}
	s.running = true
	close(s.ready)

	if err := s.send(ctx, &envelope.RedrawAll{}); err != nil {
		s.report("redraw after init failed", err)
	}

	s.log.Info("session started",
		zap.Int("deps", len(blobs)),
		zap.Bool("threads", s.threads != nil))

	s.sigMu.Lock()
	pending := len(s.pendingSignals) > 0 && !s.flushScheduled
	if pending {
		s.flushScheduled = true
	}
	s.sigMu.Unlock()
	if pending {
		s.loop.Post(s.flushSignals)
	}
	return nil
}

// setupThreads builds the provisioner when the module can run execution
// contexts.
func (s *Session) setupThreads() {
	exports, ok := s.mod.(thread.Exports)
	if !ok || !exports.HasThreadSupport() {
		return
	}
	spawner, ok := s.mod.(thread.Spawner)
	if !ok {
		return
	}
	s.threads = thread.NewProvisioner(exports, spawner, s.PostSignal,
		thread.WithStackSize(s.stackSize),
		thread.WithLogger(s.log))
}

func (s *Session) onLoadDeps(_ context.Context, m *envelope.LoadDeps) error {
	if s.running {
		s.log.Warn("dependency request after startup ignored", zap.Strings("paths", m.Deps))
		return nil
	}
	s.depPaths = append(s.depPaths, m.Deps...)
	return nil
}
