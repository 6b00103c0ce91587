package config

import (
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/input"
	"github.com/wippyai/wasm-bridge/internal/logging"
	"github.com/wippyai/wasm-bridge/socket"
	"github.com/wippyai/wasm-bridge/thread"
)

// EnvPrefix prefixes every environment override, e.g. BRIDGE_MODULE_PATH.
const EnvPrefix = "BRIDGE"

// Config holds all bridge configuration.
type Config struct {
	Module  ModuleConfig   `yaml:"module"`
	Deps    DepsConfig     `yaml:"deps"`
	Socket  SocketConfig   `yaml:"socket"`
	Input   InputConfig    `yaml:"input"`
	Frame   FrameConfig    `yaml:"frame"`
	Logging logging.Config `yaml:"logging"`
	Metrics MetricsConfig  `yaml:"metrics"`
}

// ModuleConfig selects the module and how it is run.
type ModuleConfig struct {
	Path             string `yaml:"path" split_words:"true"`
	MemoryLimitPages uint32 `yaml:"memory_limit_pages" split_words:"true"`
	Threads          bool   `yaml:"threads" split_words:"true"`
	SharedMaxPages   uint32 `yaml:"shared_max_pages" split_words:"true"`
	StackSize        uint32 `yaml:"stack_size" split_words:"true"`
}

// DepsConfig locates dependency blobs. Base is an http(s) URL or, when Dir is
// set, only reported to the module as its location.
type DepsConfig struct {
	Base     string        `yaml:"base" split_words:"true"`
	Dir      string        `yaml:"dir" split_words:"true"`
	Timeout  time.Duration `yaml:"timeout" split_words:"true"`
	Parallel int           `yaml:"parallel" split_words:"true"`
}

// SocketConfig tunes socket transports and reconnect pacing.
type SocketConfig struct {
	ReconnectInterval time.Duration `yaml:"reconnect_interval" split_words:"true"`
	ReconnectBurst    int           `yaml:"reconnect_burst" split_words:"true"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout" split_words:"true"`
	WriteTimeout      time.Duration `yaml:"write_timeout" split_words:"true"`
}

// InputConfig holds input normalization constants.
type InputConfig struct {
	Wheel           input.WheelConfig `yaml:"wheel"`
	OverlayRecenter time.Duration     `yaml:"overlay_recenter" split_words:"true"`
}

// FrameConfig sets the animation frame cadence of hosts without a display clock.
type FrameConfig struct {
	Rate float64 `yaml:"rate" split_words:"true"`
}

// MetricsConfig holds the optional metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" split_words:"true"`
	Addr    string `yaml:"addr" split_words:"true"`
}

// Default returns the default configuration.
func Default() *Config {
	sock := socket.DefaultOptions()
	return &Config{
		Module: ModuleConfig{
			StackSize: thread.DefaultStackSize,
		},
		Deps: DepsConfig{
			Timeout:  30 * time.Second,
			Parallel: 8,
		},
		Socket: SocketConfig{
			ReconnectInterval: sock.ReconnectInterval,
			ReconnectBurst:    sock.ReconnectBurst,
			HandshakeTimeout:  10 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		Input: InputConfig{
			Wheel:           input.DefaultWheelConfig(),
			OverlayRecenter: input.OverlayRecenterDelay,
		},
		Frame: FrameConfig{
			Rate: 60,
		},
		Logging: logging.DefaultConfig(),
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
	}
}

// Load starts from Default, overlays the YAML file at path when path is not
// empty, then applies BRIDGE_* environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.New(errors.PhaseConfig, errors.KindNotFound).
				Cause(err).
				Detail("read %s", path).
				Build()
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
				Cause(err).
				Detail("parse %s", path).
				Build()
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "environment overrides")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the bridge cannot run with.
func (c *Config) Validate() error {
	if c.Module.StackSize == 0 {
		return errors.InvalidInput(errors.PhaseConfig, "module.stack_size must be positive")
	}
	if c.Module.StackSize%8 != 0 {
		return errors.Misaligned(errors.PhaseConfig, "module.stack_size", uint64(c.Module.StackSize), 8)
	}
	if c.Frame.Rate <= 0 {
		return errors.InvalidInput(errors.PhaseConfig, "frame.rate must be positive")
	}
	if c.Deps.Parallel < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "deps.parallel must not be negative")
	}
	if c.Deps.Timeout < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "deps.timeout must not be negative")
	}
	if c.Socket.ReconnectInterval < 0 || c.Socket.ReconnectBurst < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "socket reconnect pacing must not be negative")
	}
	w := c.Input.Wheel
	if w.TouchRatio < 0 || w.RatioEpsilon < 0 || w.GestureWindow < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "input.wheel thresholds must not be negative")
	}
	if w.LineHeight <= 0 {
		return errors.InvalidInput(errors.PhaseConfig, "input.wheel.line_height must be positive")
	}
	if c.Input.OverlayRecenter < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "input.overlay_recenter must not be negative")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "logging.level")
	}
	return nil
}

// FrameInterval returns the spacing of animation frames.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Frame.Rate)
}

// SocketOptions returns the socket manager pacing.
func (c *Config) SocketOptions() socket.Options {
	return socket.Options{
		ReconnectInterval: c.Socket.ReconnectInterval,
		ReconnectBurst:    c.Socket.ReconnectBurst,
	}
}
