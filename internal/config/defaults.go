package config

import (
	"time"

	"github.com/rickgao/empire-trade/internal/api"
)

// Default values for optional configuration fields.
const (
	DefaultBaseURL            = api.DefaultBaseURL
	DefaultAPITimeout         = 30 * time.Second
	DefaultUserAgent          = "empire-trade API Bot"
	DefaultSocketURL          = "wss://trade.csgoempire.com/trade"
	DefaultSocketPath         = "/s/"
	DefaultNamespace          = "/trade"
	DefaultHandshakeTimeout   = 20 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultIdentifyTimeout    = 30 * time.Second
	DefaultSocketBufferSize   = 1000
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 5 * time.Second
	DefaultLogLevel           = "info"
	DefaultLogMaxSizeMB       = 100
	DefaultLogMaxBackups      = 5
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultBatchSize          = 500
	DefaultFlushInterval      = 1 * time.Second
	DefaultBufferSize         = 10000
	DefaultSnapshotInterval   = 5 * time.Minute
	DefaultSnapshotWorkers    = 4
	DefaultSnapshotTimeout    = 10 * time.Second
)

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = DefaultUserAgent
	}

	// Realtime defaults
	r := &c.Realtime
	if r.URL == "" {
		r.URL = DefaultSocketURL
	}
	if r.Path == "" {
		r.Path = DefaultSocketPath
	}
	if r.Namespace == "" {
		r.Namespace = DefaultNamespace
	}
	if r.UserAgent == "" {
		r.UserAgent = c.API.UserAgent
	}
	if r.InsecureSkipVerify == nil {
		r.InsecureSkipVerify = boolPtr(true)
	}
	if r.HandshakeTimeout == 0 {
		r.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if r.WriteTimeout == 0 {
		r.WriteTimeout = DefaultWriteTimeout
	}
	if r.IdentifyTimeout == 0 {
		r.IdentifyTimeout = DefaultIdentifyTimeout
	}
	if r.BufferSize == 0 {
		r.BufferSize = DefaultSocketBufferSize
	}
	if r.Reconnect.Enabled == nil {
		r.Reconnect.Enabled = boolPtr(true)
	}
	if r.Reconnect.BaseDelay == 0 {
		r.Reconnect.BaseDelay = DefaultReconnectBaseDelay
	}
	if r.Reconnect.MaxDelay == 0 {
		r.Reconnect.MaxDelay = DefaultReconnectMaxDelay
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.File.Path != "" {
		if c.Logging.File.MaxSizeMB == 0 {
			c.Logging.File.MaxSizeMB = DefaultLogMaxSizeMB
		}
		if c.Logging.File.MaxBackups == 0 {
			c.Logging.File.MaxBackups = DefaultLogMaxBackups
		}
	}

	// Database defaults
	applyDBDefaults(&c.Database)

	// Recorder defaults
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.BufferSize == 0 {
		c.Recorder.BufferSize = DefaultBufferSize
	}
	snap := &c.Recorder.Snapshots
	if snap.Interval == 0 {
		snap.Interval = DefaultSnapshotInterval
	}
	if snap.Concurrency == 0 {
		snap.Concurrency = DefaultSnapshotWorkers
	}
	if snap.Timeout == 0 {
		snap.Timeout = DefaultSnapshotTimeout
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func boolPtr(b bool) *bool {
	return &b
}
