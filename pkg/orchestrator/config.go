package orchestrator

// Config configures orchestrator-wide behavior (spec §6).
type Config struct {
	ReadThrough             bool
	WriteThrough            bool
	WriteBehind             bool
	Failover                bool
	PromotionThresholds     map[string]int
	WarmBatchSize           int
	WarmConcurrency         int
	EventChannelSize        int
}

// NewDefaultConfig returns the orchestrator defaults referenced in
// spec §4.2 (promotion thresholds) and §4.6 (warm batch/concurrency).
func NewDefaultConfig() Config {
	return Config{
		ReadThrough:  true,
		WriteThrough: true,
		WriteBehind:  false,
		Failover:     true,
		PromotionThresholds: map[string]int{
			"L1": 2,
			"L2": 3,
		},
		WarmBatchSize:    10,
		WarmConcurrency:  3,
		EventChannelSize: defaultEventChannelSize(),
	}
}

func (c Config) promotionThreshold(sourceTierName string) int {
	if c.PromotionThresholds != nil {
		if v, ok := c.PromotionThresholds[sourceTierName]; ok && v > 0 {
			return v
		}
	}
	return 1
}
