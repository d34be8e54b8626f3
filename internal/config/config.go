package config

import (
	"time"

	"github.com/rickgao/empire-trade/internal/connection"
)

// Config is the root configuration shared by empirectl and the recorder.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DBConfig       `yaml:"database"`
	Recorder RecorderConfig `yaml:"recorder"`
}

// APIConfig holds REST API settings.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// RealtimeConfig holds trade socket settings.
//
// Enabled turns the trade socket on for the recorder and makes Validate
// require an API key and valid socket settings. empirectl watch connects
// regardless of it.
type RealtimeConfig struct {
	Enabled            bool            `yaml:"enabled"`
	URL                string          `yaml:"url"`
	Path               string          `yaml:"path"`
	Namespace          string          `yaml:"namespace"`
	UserAgent          string          `yaml:"user_agent"`
	InsecureSkipVerify *bool           `yaml:"insecure_skip_verify"` // default true
	HandshakeTimeout   time.Duration   `yaml:"handshake_timeout"`
	WriteTimeout       time.Duration   `yaml:"write_timeout"`
	IdentifyTimeout    time.Duration   `yaml:"identify_timeout"`
	BufferSize         int             `yaml:"buffer_size"`
	Reconnect          ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig holds socket reconnection settings.
type ReconnectConfig struct {
	Enabled   *bool         `yaml:"enabled"` // default true
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
	Attempts  int           `yaml:"attempts"` // 0 = unlimited
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level string      `yaml:"level"`
	JSON  bool        `yaml:"json"`
	File  FileLogging `yaml:"file"`
}

// FileLogging enables a rotating log file next to stderr output.
type FileLogging struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RecorderConfig holds socket event recorder settings.
type RecorderConfig struct {
	Enabled       bool           `yaml:"enabled"`
	Events        []string       `yaml:"events"`
	BatchSize     int            `yaml:"batch_size"`
	FlushInterval time.Duration  `yaml:"flush_interval"`
	BufferSize    int            `yaml:"buffer_size"`
	Snapshots     SnapshotConfig `yaml:"snapshots"`
}

// SnapshotConfig holds the account snapshot poller settings.
type SnapshotConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ManagerConfig converts the realtime section into connection settings.
// Call after defaults are applied.
func (r RealtimeConfig) ManagerConfig() connection.ManagerConfig {
	cfg := connection.DefaultManagerConfig()

	cfg.Socket.Client = connection.ClientConfig{
		URL:                r.URL,
		Path:               r.Path,
		Namespace:          r.Namespace,
		UserAgent:          r.UserAgent,
		InsecureSkipVerify: boolOr(r.InsecureSkipVerify, true),
		HandshakeTimeout:   r.HandshakeTimeout,
		WriteTimeout:       r.WriteTimeout,
		BufferSize:         r.BufferSize,
	}
	cfg.Socket.Reconnect = boolOr(r.Reconnect.Enabled, true)
	cfg.Socket.ReconnectBaseWait = r.Reconnect.BaseDelay
	cfg.Socket.ReconnectMaxWait = r.Reconnect.MaxDelay
	cfg.Socket.ReconnectAttempts = r.Reconnect.Attempts
	cfg.IdentifyTimeout = r.IdentifyTimeout

	return cfg
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
