// Package config loads client and server settings from defaults, an
// optional YAML file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/omochice/toy-room-chat/internal/client"
	"github.com/omochice/toy-room-chat/internal/logger"
	"github.com/omochice/toy-room-chat/pkg/protocol"
)

// PathEnv names the variable pointing at an optional YAML file.
const PathEnv = "CHAT_CONFIG_PATH"

// DefaultServerURL is the local development endpoint.
const DefaultServerURL = "ws://localhost:3001/ws"

type Client struct {
	ServerURL           string        `yaml:"serverUrl" env:"CHAT_SERVER_URL"`
	Transport           string        `yaml:"transport" env:"CHAT_TRANSPORT"` // nhooyr|gobwas
	TypingIdle          time.Duration `yaml:"typingIdle" env:"CHAT_TYPING_IDLE"`
	RemoteTypingTTL     time.Duration `yaml:"remoteTypingTtl" env:"CHAT_REMOTE_TYPING_TTL"` // 0 keeps entries until cleared
	JoinTimeout         time.Duration `yaml:"joinTimeout" env:"CHAT_JOIN_TIMEOUT"`
	ReconnectInitial    time.Duration `yaml:"reconnectInitial" env:"CHAT_RECONNECT_INITIAL"`
	ReconnectMax        time.Duration `yaml:"reconnectMax" env:"CHAT_RECONNECT_MAX"`
	ReconnectMaxElapsed time.Duration `yaml:"reconnectMaxElapsed" env:"CHAT_RECONNECT_MAX_ELAPSED"` // 0 retries forever
}

type Server struct {
	ListenAddr   string `yaml:"listenAddr" env:"CHAT_LISTEN_ADDR"`
	HistoryLimit int    `yaml:"historyLimit" env:"CHAT_HISTORY_LIMIT"`
}

type Logging struct {
	Env       string `yaml:"env" env:"APP_ENV"`         // dev|stage|prod
	Backend   string `yaml:"backend" env:"LOG_BACKEND"` // std|zap
	Level     string `yaml:"level" env:"LOG_LEVEL"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource" env:"LOG_ADD_SOURCE"`
}

type Config struct {
	Codec   string  `yaml:"codec" env:"CHAT_CODEC"` // json|proto
	Client  Client  `yaml:"client"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Codec: "json",
		Client: Client{
			ServerURL:        DefaultServerURL,
			Transport:        client.TransportNhooyr,
			TypingIdle:       time.Second,
			JoinTimeout:      10 * time.Second,
			ReconnectInitial: 500 * time.Millisecond,
			ReconnectMax:     10 * time.Second,
		},
		Server: Server{
			ListenAddr:   ":3001",
			HistoryLimit: 100,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then the file named by
// CHAT_CONFIG_PATH if set, then environment variables.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(PathEnv); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if _, err := protocol.CodecByName(c.Codec); err != nil {
		return err
	}

	u, err := url.Parse(c.Client.ServerURL)
	if err != nil {
		return fmt.Errorf("client.serverUrl: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("client.serverUrl must be a ws:// or wss:// URL, got %q", c.Client.ServerURL)
	}
	switch c.Client.Transport {
	case "", client.TransportNhooyr, client.TransportGobwas:
	default:
		return fmt.Errorf("client.transport must be %q or %q, got %q", client.TransportNhooyr, client.TransportGobwas, c.Client.Transport)
	}
	if c.Client.TypingIdle <= 0 {
		return errors.New("client.typingIdle must be positive")
	}
	if c.Client.RemoteTypingTTL < 0 || c.Client.JoinTimeout < 0 || c.Client.ReconnectMaxElapsed < 0 {
		return errors.New("client durations must not be negative")
	}
	if c.Client.ReconnectInitial <= 0 || c.Client.ReconnectMax < c.Client.ReconnectInitial {
		return errors.New("client.reconnectInitial must be positive and not above client.reconnectMax")
	}

	if c.Server.ListenAddr == "" {
		return errors.New("server.listenAddr is required")
	}
	if c.Server.HistoryLimit <= 0 {
		return errors.New("server.historyLimit must be positive")
	}

	if _, err := c.Logging.level(); err != nil {
		return err
	}
	switch logger.Backend(c.Logging.Backend) {
	case "", logger.BackendStd, logger.BackendZap:
	default:
		return fmt.Errorf("logging.backend must be %q or %q, got %q", logger.BackendStd, logger.BackendZap, c.Logging.Backend)
	}
	return nil
}

// ProtocolCodec returns the configured wire codec.
func (c Config) ProtocolCodec() protocol.Codec {
	codec, err := protocol.CodecByName(c.Codec)
	if err != nil {
		return protocol.JSONCodec{}
	}
	return codec
}

// ReconnectPolicy returns the connection manager retry settings.
func (c Client) ReconnectPolicy() client.ReconnectPolicy {
	return client.ReconnectPolicy{
		InitialInterval: c.ReconnectInitial,
		MaxInterval:     c.ReconnectMax,
		MaxElapsedTime:  c.ReconnectMaxElapsed,
	}
}

// Logger returns the logger settings for service.
func (l Logging) Logger(service, version string) logger.Config {
	level, _ := l.level()
	return logger.Config{
		Service:   service,
		Version:   version,
		Env:       logger.ParseEnv(l.Env),
		Backend:   logger.Backend(l.Backend),
		Level:     level,
		AddSource: l.AddSource,
	}
}

func (l Logging) level() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
