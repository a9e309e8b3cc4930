package tier

import "container/list"

// arcPolicy implements Adaptive Replacement Cache (spec §4.1): two live
// lists (T1 recency, T2 frequency) and two ghost lists (B1, B2) that
// remember recently evicted keys without their values. The adaptation
// parameter p tracks the target size of T1 and shifts toward whichever
// list is producing more ghost hits.
//
// Ghost hits can only be observed when a key is about to be inserted
// again, so onMiss — invoked by the Store right before a brand new
// write — is where B1/B2 lookups and the p adaptation happen. touch
// handles the cheap case: a hit on a key already live in T1 or T2 just
// promotes it to the MRU end of T2.
type arcPolicy struct {
	capacity int
	p        int

	t1, t2, b1, b2 *list.List
	elems          map[string]*list.Element
	where          map[string]listID
}

type listID int

const (
	inNone listID = iota
	inT1
	inT2
	inB1
	inB2
)

func newARCPolicy(capacity int) *arcPolicy {
	if capacity <= 0 {
		capacity = 1
	}
	return &arcPolicy{
		capacity: capacity,
		t1:       list.New(),
		t2:       list.New(),
		b1:       list.New(),
		b2:       list.New(),
		elems:    make(map[string]*list.Element),
		where:    make(map[string]listID),
	}
}

func (p *arcPolicy) listFor(id listID) *list.List {
	switch id {
	case inT1:
		return p.t1
	case inT2:
		return p.t2
	case inB1:
		return p.b1
	case inB2:
		return p.b2
	default:
		return nil
	}
}

func (p *arcPolicy) detach(key string) {
	id, ok := p.where[key]
	if !ok {
		return
	}
	if l := p.listFor(id); l != nil {
		if e, ok := p.elems[key]; ok {
			l.Remove(e)
		}
	}
	delete(p.elems, key)
	delete(p.where, key)
}

func (p *arcPolicy) pushMRU(id listID, key string) {
	l := p.listFor(id)
	e := l.PushBack(key)
	p.elems[key] = e
	p.where[key] = id
}

func (p *arcPolicy) lru(id listID) (string, bool) {
	l := p.listFor(id)
	if l == nil || l.Len() == 0 {
		return "", false
	}
	return l.Front().Value.(string), true
}

// add places a brand new key into T1, matching Case IV of the ARC
// algorithm. Replacement/ghost bookkeeping already happened in onMiss.
func (p *arcPolicy) add(key string) {
	p.detach(key)
	p.pushMRU(inT1, key)
}

// touch promotes a live hit to the MRU end of T2 (Case I).
func (p *arcPolicy) touch(key string, _ float64) {
	if _, ok := p.where[key]; !ok {
		p.add(key)
		return
	}
	p.detach(key)
	p.pushMRU(inT2, key)
}

func (p *arcPolicy) remove(key string) {
	p.detach(key)
}

func (p *arcPolicy) len() int {
	return p.t1.Len() + p.t2.Len()
}

// victim reports the current REPLACE candidate without committing to
// the adaptation side effects; used for diagnostics and manual
// capacity pressure outside the normal miss path.
func (p *arcPolicy) victim() (string, bool) {
	if p.t1.Len() >= 1 && p.t1.Len() > p.p {
		return p.lru(inT1)
	}
	if k, ok := p.lru(inT2); ok {
		return k, true
	}
	return p.lru(inT1)
}

// replace evicts one live key per the ARC REPLACE procedure, demoting
// it to the matching ghost list, and returns the evicted key so the
// Store can drop its value.
func (p *arcPolicy) replace(hitInB2 bool) (string, bool) {
	t1Len := p.t1.Len()
	if t1Len >= 1 && (t1Len > p.p || (hitInB2 && t1Len == p.p)) {
		key, ok := p.lru(inT1)
		if !ok {
			return "", false
		}
		p.detach(key)
		p.pushMRU(inB1, key)
		return key, true
	}
	key, ok := p.lru(inT2)
	if !ok {
		return "", false
	}
	p.detach(key)
	p.pushMRU(inB2, key)
	return key, true
}

// onMiss runs the full ARC miss path (Cases II, III, IV) for key,
// which is not currently live. It returns the live keys the Store must
// now drop: the REPLACE victim, or the T1 LRU key when T1 alone holds c
// entries. Ghost entries trimmed from B1 or B2 are not returned.
func (p *arcPolicy) onMiss(key string) []string {
	c := p.capacity
	var evicted []string

	switch p.where[key] {
	case inB1:
		delta := 1
		if p.b1.Len() > 0 {
			if d := p.b2.Len() / p.b1.Len(); d > delta {
				delta = d
			}
		}
		p.p += delta
		if p.p > c {
			p.p = c
		}
		p.detach(key)
		if v, ok := p.replace(false); ok {
			evicted = append(evicted, v)
		}
		return evicted

	case inB2:
		delta := 1
		if p.b2.Len() > 0 {
			if d := p.b1.Len() / p.b2.Len(); d > delta {
				delta = d
			}
		}
		p.p -= delta
		if p.p < 0 {
			p.p = 0
		}
		p.detach(key)
		if v, ok := p.replace(true); ok {
			evicted = append(evicted, v)
		}
		return evicted

	default:
		t1 := p.t1.Len()
		b1 := p.b1.Len()
		t2 := p.t2.Len()
		b2 := p.b2.Len()

		if t1+b1 == c {
			if t1 < c {
				if v, ok := p.lru(inB1); ok {
					p.detach(v)
				}
				if v, ok := p.replace(false); ok {
					evicted = append(evicted, v)
				}
			} else {
				if v, ok := p.lru(inT1); ok {
					p.detach(v)
					evicted = append(evicted, v)
				}
			}
		} else if t1+b1 < c && t1+t2+b1+b2 >= c {
			if t1+t2+b1+b2 == 2*c {
				if v, ok := p.lru(inB2); ok {
					p.detach(v)
				}
			}
			if v, ok := p.replace(false); ok {
				evicted = append(evicted, v)
			}
		}
		return evicted
	}
}
