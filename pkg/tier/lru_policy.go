package tier

import (
	lru "github.com/hashicorp/golang-lru/v2/simplelru"
)

// lruPolicy delegates recency bookkeeping to hashicorp/golang-lru's
// simplelru.LRU, sized large enough that it never self-evicts: the
// Store owns the memory/entry-count budget decision and only asks this
// policy which key is the current LRU tail.
type lruPolicy struct {
	order *lru.LRU[string, struct{}]
}

func newLRUPolicy(capacity int) *lruPolicy {
	size := capacity
	if size <= 0 {
		size = 1 << 30
	} else {
		// Give the underlying structure headroom so Add never triggers
		// its own eviction before the Store decides to evict.
		size = size*2 + 16
	}
	l, _ := lru.NewLRU[string, struct{}](size, nil)
	return &lruPolicy{order: l}
}

func (p *lruPolicy) add(key string)            { p.order.Add(key, struct{}{}) }
func (p *lruPolicy) touch(key string, _ float64) { p.order.Add(key, struct{}{}) }
func (p *lruPolicy) remove(key string)         { p.order.Remove(key) }
func (p *lruPolicy) len() int                  { return p.order.Len() }

func (p *lruPolicy) victim() (string, bool) {
	key, _, ok := p.order.GetOldest()
	return key, ok
}

func (p *lruPolicy) onMiss(string) []string { return nil }
