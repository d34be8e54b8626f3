package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url is invalid: %w", err)
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must be >= 0")
	}

	if c.Realtime.Enabled {
		if c.API.APIKey == "" {
			return errors.New("api.api_key is required when realtime is enabled")
		}
		if err := c.Realtime.validate(); err != nil {
			return err
		}
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("logging.level must be one of %s, got %q", strings.Join(logLevels, ", "), c.Logging.Level)
	}

	if c.Recorder.Enabled {
		if !c.Realtime.Enabled {
			return errors.New("recorder requires realtime.enabled")
		}
		if err := c.Database.validate("database"); err != nil {
			return err
		}
		if c.Recorder.BatchSize < 1 {
			return errors.New("recorder.batch_size must be >= 1")
		}
		if c.Recorder.BufferSize < 1 {
			return errors.New("recorder.buffer_size must be >= 1")
		}
		if snap := c.Recorder.Snapshots; snap.Enabled {
			if snap.Interval <= 0 {
				return errors.New("recorder.snapshots.interval must be > 0")
			}
			if snap.Concurrency < 1 {
				return errors.New("recorder.snapshots.concurrency must be >= 1")
			}
		}
	}

	return nil
}

func (r *RealtimeConfig) validate() error {
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("realtime.url is invalid: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("realtime.url scheme must be ws, wss, http or https, got %q", u.Scheme)
	}
	if !strings.HasPrefix(r.Namespace, "/") {
		return fmt.Errorf("realtime.namespace must start with /, got %q", r.Namespace)
	}
	if r.BufferSize < 1 {
		return errors.New("realtime.buffer_size must be >= 1")
	}
	if r.Reconnect.Attempts < 0 {
		return errors.New("realtime.reconnect.attempts must be >= 0")
	}
	if r.Reconnect.MaxDelay < r.Reconnect.BaseDelay {
		return fmt.Errorf("realtime.reconnect.max_delay (%s) cannot be less than base_delay (%s)",
			r.Reconnect.MaxDelay, r.Reconnect.BaseDelay)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
