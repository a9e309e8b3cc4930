package orchestrator

// StrategyContext carries the inputs a tier's strategy predicate needs
// to decide whether an entry belongs in that tier (spec §4.2).
type StrategyContext struct {
	SizeBytes      int64
	ProducerCostMs int64
	HitCount       int64
	Priority       string
}

// Strategy decides whether a value should be stored in a given tier.
type Strategy func(StrategyContext) bool

// TierConfig describes one tier in the orchestrator's priority list.
// Index 0 is the highest-priority (hottest) tier.
type TierConfig struct {
	Name     string
	Enabled  bool
	Backend  Backend
	Strategy Strategy
}

const (
	kib = 1024
)

// DefaultL0Strategy: size < 10 KiB AND (cost > 500 ms OR hit_count >= 1).
func DefaultL0Strategy() Strategy {
	return func(c StrategyContext) bool {
		return c.SizeBytes < 10*kib && (c.ProducerCostMs > 500 || c.HitCount >= 1)
	}
}

// DefaultL1Strategy: size < 50 KiB AND cost > 500 ms.
func DefaultL1Strategy() Strategy {
	return func(c StrategyContext) bool {
		return c.SizeBytes < 50*kib && c.ProducerCostMs > 500
	}
}

// DefaultL2Strategy always accepts (catch-all spillover tier).
func DefaultL2Strategy() Strategy {
	return func(StrategyContext) bool { return true }
}

// DefaultL3Strategy: size < 100 KiB AND the remote tier is enabled.
func DefaultL3Strategy(remoteEnabled bool) Strategy {
	return func(c StrategyContext) bool {
		return remoteEnabled && c.SizeBytes < 100*kib
	}
}
