package memoize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKeyDeterministic(t *testing.T) {
	d := Descriptor{
		Kind:      KindSearch,
		Operation: "find-users",
		Version:   "v1",
		Parameters: map[string]interface{}{
			"b": 2,
			"a": 1,
			"nested": map[string]interface{}{
				"z": "last",
				"y": nil,
				"x": "first",
			},
		},
	}
	k1, err := CanonicalKey(d)
	require.NoError(t, err)
	k2, err := CanonicalKey(d)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestCanonicalKeyStableAcrossFieldOrder(t *testing.T) {
	d1 := Descriptor{Kind: KindAPI, Operation: "op", Version: "v1", Parameters: map[string]interface{}{"a": 1, "b": 2}}
	d2 := Descriptor{Kind: KindAPI, Operation: "op", Version: "v1", Parameters: map[string]interface{}{"b": 2, "a": 1}}
	k1, err := CanonicalKey(d1)
	require.NoError(t, err)
	k2, err := CanonicalKey(d2)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestCanonicalKeyDiffersOnParameterChange(t *testing.T) {
	d1 := Descriptor{Kind: KindAPI, Operation: "op", Version: "v1", Parameters: map[string]interface{}{"a": 1}}
	d2 := Descriptor{Kind: KindAPI, Operation: "op", Version: "v1", Parameters: map[string]interface{}{"a": 2}}
	k1, _ := CanonicalKey(d1)
	k2, _ := CanonicalKey(d2)
	assert.NotEqual(t, k1, k2)
}

func TestCanonicalKeyFormat(t *testing.T) {
	d := Descriptor{Kind: KindDatabase, Operation: "fetch", Version: "v2", Parameters: map[string]interface{}{"id": 1}}
	k, err := CanonicalKey(d)
	require.NoError(t, err)
	assert.Regexp(t, `^query:database:fetch:[a-z2-7]{16}:v2$`, k)
}
