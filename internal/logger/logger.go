// Package logger builds the process slog logger with a std or zap backend.
package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu  sync.Mutex
	def *slog.Logger
)

// New builds a logger for cfg, filling in defaults.
func New(cfg Config) *slog.Logger {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "app"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	cfg.InstanceID = ensureInstanceID(cfg.InstanceID)

	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	return slog.New(h.WithAttrs(commonAttr(cfg)))
}

// Init builds a logger and installs it as the slog default.
func Init(cfg Config) *slog.Logger {
	l := New(cfg)
	slog.SetDefault(l)

	mu.Lock()
	def = l
	mu.Unlock()
	return l
}

// L returns the logger installed by Init, initializing a default one if
// needed.
func L() *slog.Logger {
	mu.Lock()
	l := def
	mu.Unlock()
	if l != nil {
		return l
	}
	return Init(Config{})
}
