package tier

import "container/list"

// lfuPolicy is a bucket-based LFU: entries are kept in per-frequency
// buckets (frequency floored to an int64 bucket id) so eviction always
// pulls from the lowest populated bucket. Spec §4.1 explicitly allows a
// bucket-based implementation in place of an exact heap.
type lfuPolicy struct {
	buckets  map[int64]*list.List
	elem     map[string]*list.Element
	bucketOf map[string]int64
	minBucket int64
}

type lfuItem struct {
	key string
}

func newLFUPolicy() *lfuPolicy {
	return &lfuPolicy{
		buckets:   make(map[int64]*list.List),
		elem:      make(map[string]*list.Element),
		bucketOf:  make(map[string]int64),
		minBucket: 0,
	}
}

func (p *lfuPolicy) bucketID(freq float64) int64 {
	b := int64(freq)
	if b < 0 {
		b = 0
	}
	return b
}

func (p *lfuPolicy) add(key string) {
	p.insert(key, 0)
}

func (p *lfuPolicy) insert(key string, bucket int64) {
	l, ok := p.buckets[bucket]
	if !ok {
		l = list.New()
		p.buckets[bucket] = l
	}
	e := l.PushBack(&lfuItem{key: key})
	p.elem[key] = e
	p.bucketOf[key] = bucket
	if bucket < p.minBucket || len(p.elem) == 1 {
		p.minBucket = bucket
	}
}

func (p *lfuPolicy) removeFromBucket(key string) {
	bucket, ok := p.bucketOf[key]
	if !ok {
		return
	}
	if e, ok := p.elem[key]; ok {
		if l, ok := p.buckets[bucket]; ok {
			l.Remove(e)
			if l.Len() == 0 {
				delete(p.buckets, bucket)
			}
		}
	}
	delete(p.elem, key)
	delete(p.bucketOf, key)
}

func (p *lfuPolicy) touch(key string, freq float64) {
	p.removeFromBucket(key)
	p.insert(key, p.bucketID(freq))
}

func (p *lfuPolicy) remove(key string) {
	p.removeFromBucket(key)
}

func (p *lfuPolicy) len() int { return len(p.elem) }

func (p *lfuPolicy) victim() (string, bool) {
	if len(p.elem) == 0 {
		return "", false
	}
	// Advance minBucket until a populated bucket is found; buckets only
	// grow in id over the lifetime of a key so this converges quickly in
	// practice even though it is an O(distinct buckets) scan.
	for {
		if l, ok := p.buckets[p.minBucket]; ok && l.Len() > 0 {
			it := l.Front().Value.(*lfuItem)
			return it.key, true
		}
		found := false
		for b := range p.buckets {
			if b >= p.minBucket {
				found = true
			}
		}
		if !found {
			break
		}
		p.minBucket++
	}
	// Fall back to a linear scan for the globally lowest bucket.
	var best int64 = -1
	for b, l := range p.buckets {
		if l.Len() == 0 {
			continue
		}
		if best == -1 || b < best {
			best = b
		}
	}
	if best == -1 {
		return "", false
	}
	p.minBucket = best
	it := p.buckets[best].Front().Value.(*lfuItem)
	return it.key, true
}

func (p *lfuPolicy) onMiss(string) []string { return nil }
