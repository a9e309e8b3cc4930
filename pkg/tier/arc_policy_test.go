package tier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestARCPolicySizeInvariants(t *testing.T) {
	c := 8
	p := newARCPolicy(c)

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("scan-%d", i)
		for _, v := range p.onMiss(key) {
			p.remove(v)
		}
		p.add(key)

		assert.LessOrEqual(t, p.t1.Len()+p.t2.Len(), c)
		assert.LessOrEqual(t, p.t1.Len()+p.b1.Len(), c)
		assert.LessOrEqual(t, p.t2.Len()+p.b2.Len(), 2*c)
	}
}

func TestARCPolicyHotKeysSurviveScan(t *testing.T) {
	c := 4
	p := newARCPolicy(c)

	hot := []string{"hot-1", "hot-2"}
	for _, k := range hot {
		p.onMiss(k)
		p.add(k)
		p.touch(k, 1)
	}

	// A long scan of unique, never-repeated keys.
	for i := 0; i < 4*c; i++ {
		key := fmt.Sprintf("scan-%d", i)
		evicted := p.onMiss(key)
		for _, v := range evicted {
			if contains(hot, v) {
				t.Fatalf("hot key %s evicted during scan", v)
			}
		}
		p.add(key)
	}

	for _, k := range hot {
		assert.Equal(t, inT2, p.where[k], "repeatedly-hit key should remain in T2")
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
