package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/bridge"
	"github.com/wippyai/wasm-bridge/config"
	"github.com/wippyai/wasm-bridge/deps"
	"github.com/wippyai/wasm-bridge/engine"
	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/input"
	"github.com/wippyai/wasm-bridge/internal/logging"
	"github.com/wippyai/wasm-bridge/metrics"
	"github.com/wippyai/wasm-bridge/socket"
	"github.com/wippyai/wasm-bridge/thread"
	"github.com/wippyai/wasm-bridge/timer"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		wasmFile    = flag.String("wasm", "", "Path to module wasm file (overrides module.path)")
		depsBase    = flag.String("deps", "", "Dependency base: http(s) URL or directory (overrides deps)")
		threads     = flag.Bool("threads", false, "Enable shared memory and execution contexts")
		replayFile  = flag.String("replay", "", "Replay a YAML input trace, then exit")
		width       = flag.Float64("width", 1280, "Window width for headless and replay modes")
		height      = flag.Float64("height", 720, "Window height for headless and replay modes")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		interactive = flag.Bool("i", false, "Interactive mode in the terminal")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *wasmFile != "" {
		cfg.Module.Path = *wasmFile
	}
	if *depsBase != "" {
		setDepsBase(cfg, *depsBase)
	}
	if *threads {
		cfg.Module.Threads = true
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	if cfg.Module.Path == "" {
		fmt.Fprintln(os.Stderr, "Usage: bridge -wasm <module.wasm> [-deps <url|dir>] [-config bridge.yaml]")
		fmt.Fprintln(os.Stderr, "       bridge -wasm <module.wasm> -replay trace.yaml")
		fmt.Fprintln(os.Stderr, "       bridge -wasm <module.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		// The terminal belongs to the UI; logs go to a file when configured.
		if len(cfg.Logging.OutputPaths) == 0 || cfg.Logging.OutputPaths[0] == "stderr" {
			cfg.Logging.OutputPaths = []string{filepath.Join(os.TempDir(), "bridge.log")}
		}
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	setLoggers(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode := "headless"
	switch {
	case *interactive:
		mode = "interactive"
	case *replayFile != "":
		mode = "replay"
	}
	if err := run(ctx, cfg, log, mode, *replayFile, *width, *height); err != nil {
		log.Error("bridge failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setDepsBase(cfg *config.Config, base string) {
	if isURL(base) {
		cfg.Deps.Base = base
		cfg.Deps.Dir = ""
		return
	}
	cfg.Deps.Dir = base
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func setLoggers(log *zap.Logger) {
	engine.SetLogger(log.Named("engine"))
	bridge.SetLogger(log.Named("bridge"))
	deps.SetLogger(log.Named("deps"))
	socket.SetLogger(log.Named("socket"))
	timer.SetLogger(log.Named("timer"))
	thread.SetLogger(log.Named("thread"))
	input.SetLogger(log.Named("input"))
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, mode, replayFile string, width, height float64) error {
	wasm, err := os.ReadFile(cfg.Module.Path)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		srv := serveMetrics(cfg.Metrics.Addr, m, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// The runtime closes modules whose call context ends, so guest calls must
	// not inherit the signal context.
	eng := engine.New(context.Background(), &engine.Config{
		MemoryLimitPages:     cfg.Module.MemoryLimitPages,
		EnableThreads:        cfg.Module.Threads,
		SharedMemoryMaxPages: cfg.Module.SharedMaxPages,
	})
	defer eng.Close(context.Background())

	inst, err := eng.Load(context.Background(), wasm)
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}
	log.Info("module loaded",
		zap.String("path", cfg.Module.Path),
		zap.Bool("threaded", inst.Threaded()))

	fetcher, location, err := newFetcher(cfg.Deps)
	if err != nil {
		return err
	}

	opts := []bridge.Option{
		bridge.WithLogger(log.Named("session")),
		bridge.WithMetrics(m),
		bridge.WithFetcher(fetcher, cfg.Deps.Parallel),
		bridge.WithDialer(socket.NewWebSocketDialer(cfg.Socket.HandshakeTimeout, cfg.Socket.WriteTimeout)),
		bridge.WithSocketOptions(cfg.SocketOptions()),
		bridge.WithWheelConfig(cfg.Input.Wheel),
		bridge.WithStackSize(cfg.Module.StackSize),
		bridge.WithOverlayDelay(cfg.Input.OverlayRecenter),
		bridge.WithFrameInterval(cfg.FrameInterval()),
	}

	switch mode {
	case "interactive":
		return runInteractive(ctx, inst, location, opts)
	case "replay":
		tr, err := loadTrace(replayFile)
		if err != nil {
			return err
		}
		host := bridge.NewHeadlessHost(location, width, height)
		s := bridge.New(inst, append(opts, bridge.WithHost(host))...)
		return runReplay(ctx, s, tr, log)
	default:
		host := bridge.NewHeadlessHost(location, width, height)
		s := bridge.New(inst, append(opts, bridge.WithHost(host))...)
		return runHeadless(ctx, s)
	}
}

// newFetcher picks the dependency source. A directory is reported to the
// module as a file URL.
func newFetcher(cfg config.DepsConfig) (deps.Fetcher, envelope.HostInfo, error) {
	if cfg.Dir != "" {
		abs, err := filepath.Abs(cfg.Dir)
		if err != nil {
			return nil, envelope.HostInfo{}, fmt.Errorf("deps dir: %w", err)
		}
		base := cfg.Base
		if base == "" {
			base = "file://" + filepath.ToSlash(abs) + "/"
		}
		return deps.NewDirFetcher(os.DirFS(abs)), deps.HostInfo(base), nil
	}
	if cfg.Base != "" {
		f, err := deps.NewHTTPFetcher(cfg.Base, cfg.Timeout)
		if err != nil {
			return nil, envelope.HostInfo{}, err
		}
		return f, deps.HostInfo(cfg.Base), nil
	}
	return nil, envelope.HostInfo{}, nil
}

func serveMetrics(addr string, m *metrics.Metrics, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics endpoint failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	log.Info("metrics endpoint listening", zap.String("addr", addr))
	return srv
}

// runHeadless drives the session until interrupted.
func runHeadless(ctx context.Context, s *bridge.Session) error {
	err := s.Run(ctx)
	closeErr := closeSession(s)
	if err != nil && err != context.Canceled {
		return err
	}
	return closeErr
}

// closeSession tears the session down with a bounded wait. Call it on the
// loop, or after the loop has stopped.
func closeSession(s *bridge.Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Close(ctx)
}
