package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUPolicyVictimIsOldest(t *testing.T) {
	p := newLRUPolicy(10)
	p.add("a")
	p.add("b")
	p.add("c")
	p.touch("a", 0) // "a" becomes MRU; "b" is now the tail

	v, ok := p.victim()
	require := assert.New(t)
	require.True(ok)
	require.Equal("b", v)
}

func TestLFUPolicyVictimIsLowestFrequency(t *testing.T) {
	p := newLFUPolicy()
	p.add("a")
	p.touch("a", 5)
	p.add("b")
	p.touch("b", 1)
	p.add("c")
	p.touch("c", 9)

	v, ok := p.victim()
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestAdaptivePolicyProtectsHotEntries(t *testing.T) {
	p := newAdaptivePolicy()
	for i := 0; i < 9; i++ {
		key := "cold-" + string(rune('a'+i))
		p.add(key)
		p.touch(key, 0)
	}
	p.touch("hot", 100)

	v, ok := p.victim()
	assert.True(t, ok)
	assert.NotEqual(t, "hot", v)
}

func TestNewPolicyDispatch(t *testing.T) {
	assert.IsType(t, &lruPolicy{}, newPolicy(EvictionLRU, 4))
	assert.IsType(t, &lfuPolicy{}, newPolicy(EvictionLFU, 4))
	assert.IsType(t, &arcPolicy{}, newPolicy(EvictionARC, 4))
	assert.IsType(t, &adaptivePolicy{}, newPolicy(EvictionAdaptive, 4))
}
