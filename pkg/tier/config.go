package tier

import "time"

// Config configures a single Store (spec §6 "Per tier" configuration).
type Config struct {
	Name                     string         `mapstructure:"name"`
	Enabled                  bool           `mapstructure:"enabled"`
	MaxEntries               int            `mapstructure:"max_entries"`
	MemoryBudgetBytes        int64          `mapstructure:"memory_budget_bytes"`
	DefaultTTL               time.Duration  `mapstructure:"default_ttl"`
	Eviction                 EvictionPolicy `mapstructure:"eviction"`
	CleanupInterval          time.Duration  `mapstructure:"cleanup_interval"`
	MemoryPressureThreshold  float64        `mapstructure:"memory_pressure_threshold"`
	EnableStats              bool           `mapstructure:"enable_stats"`
	HalfLife                 time.Duration  `mapstructure:"half_life"`
	DecayFactor              float64        `mapstructure:"decay_factor"`
	TTLSweepBatchSize        int            `mapstructure:"ttl_sweep_batch_size"`
}

// NewDefaultConfig returns the defaults referenced throughout spec §4.1.
func NewDefaultConfig(name string) *Config {
	return &Config{
		Name:                    name,
		Enabled:                 true,
		MaxEntries:              10_000,
		MemoryBudgetBytes:       64 * 1024 * 1024,
		DefaultTTL:              0,
		Eviction:                EvictionLRU,
		CleanupInterval:         30 * time.Second,
		MemoryPressureThreshold: 0.9,
		EnableStats:             true,
		HalfLife:                24 * time.Hour,
		DecayFactor:             0.95,
		TTLSweepBatchSize:       256,
	}
}
