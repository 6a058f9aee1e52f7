package config

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidLogLevel        = errors.New("invalid log level provided")
	ErrInvalidCollectorBind   = errors.New("invalid collector bind address provided")
	ErrInvalidCollectorPort   = errors.New("invalid collector port provided")
	ErrInvalidControlPort     = errors.New("invalid control API port provided")
	ErrNoFeeders              = errors.New("no feeders configured")
	ErrInvalidFeederKind      = errors.New("feeder kind must be M (mono) or S (stereo)")
	ErrDuplicateFeederAddress = errors.New("two feeders share the same ip:port address")
	ErrInvalidRedisPort       = errors.New("invalid Redis port provided")
)

// Validate checks the fatal-at-startup conditions called out in spec §7
// (configuration error, kind 5). It does not touch the network.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return ErrInvalidLogLevel
	}

	if c.Collector.Bind == "" {
		return ErrInvalidCollectorBind
	}
	if c.Collector.Port <= 0 || c.Collector.Port > 65535 {
		return ErrInvalidCollectorPort
	}
	if c.Control.Port <= 0 || c.Control.Port > 65535 {
		return ErrInvalidControlPort
	}
	if c.Redis.Enabled && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		return ErrInvalidRedisPort
	}

	if len(c.Media.Feeders) == 0 {
		return ErrNoFeeders
	}
	seen := make(map[string]struct{}, len(c.Media.Feeders))
	for _, f := range c.Media.Feeders {
		if f.Kind != FeederMono && f.Kind != FeederStereo {
			return fmt.Errorf("feeder %q: %w", f.Stream, ErrInvalidFeederKind)
		}
		key := fmt.Sprintf("%s:%d", f.IP, f.Port)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("feeder %q: %w", f.Stream, ErrDuplicateFeederAddress)
		}
		seen[key] = struct{}{}
	}

	return nil
}
