package memoize

import "time"

// Config configures a Memoizer (spec §6 QueryMemoizer configuration).
type Config struct {
	DefaultTTL           time.Duration
	MaxQueryTime         time.Duration
	EnableStats          bool
	RecoveryCheckInterval time.Duration
}

// NewDefaultConfig returns the defaults named in spec §4.3.
func NewDefaultConfig() Config {
	return Config{
		DefaultTTL:            time.Hour,
		MaxQueryTime:          30 * time.Second,
		EnableStats:           true,
		RecoveryCheckInterval: 5 * time.Second,
	}
}
