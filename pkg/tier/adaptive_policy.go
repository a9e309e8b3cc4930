package tier

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"
)

// adaptivePolicy is the hybrid strategy from spec §4.1: entries whose
// frequency score sits at or above the 90th percentile are treated as hot and
// protected like LFU would protect them; everything else is evicted in
// LRU order. Recency order is delegated to simplelru; frequency is
// tracked alongside it so victim() can classify hot vs cold.
type adaptivePolicy struct {
	order *lru.LRU[string, struct{}]
	freq  map[string]float64
}

func newAdaptivePolicy() *adaptivePolicy {
	l, _ := lru.NewLRU[string, struct{}](1<<30, nil)
	return &adaptivePolicy{order: l, freq: make(map[string]float64)}
}

func (p *adaptivePolicy) add(key string) {
	p.order.Add(key, struct{}{})
	if _, ok := p.freq[key]; !ok {
		p.freq[key] = 0
	}
}

func (p *adaptivePolicy) touch(key string, freq float64) {
	p.order.Add(key, struct{}{})
	p.freq[key] = freq
}

func (p *adaptivePolicy) remove(key string) {
	p.order.Remove(key)
	delete(p.freq, key)
}

func (p *adaptivePolicy) len() int { return p.order.Len() }

func (p *adaptivePolicy) onMiss(string) []string { return nil }

// percentile90 returns the frequency score at the 90th percentile
// across all tracked entries, or 0 when there are too few to rank.
func (p *adaptivePolicy) percentile90() float64 {
	n := len(p.freq)
	if n == 0 {
		return 0
	}
	vals := make([]float64, 0, n)
	for _, f := range p.freq {
		vals = append(vals, f)
	}
	sort.Float64s(vals)
	idx := int(float64(n) * 0.9)
	if idx >= n {
		idx = n - 1
	}
	return vals[idx]
}

// victim scans recency order (oldest first) for the first cold entry;
// if every entry is hot, the plain LRU tail is evicted instead so the
// store always makes progress under sustained write pressure.
func (p *adaptivePolicy) victim() (string, bool) {
	if p.order.Len() == 0 {
		return "", false
	}
	threshold := p.percentile90()
	keys := p.order.Keys()
	for _, k := range keys {
		if p.freq[k] < threshold {
			return k, true
		}
	}
	return keys[0], true
}
