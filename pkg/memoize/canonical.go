package memoize

import (
	"encoding/base32"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// normalize recursively sorts object keys (handled by encoding/json's
// map ordering) and drops nil-valued fields so two semantically
// identical parameter sets serialize byte-identically (spec §4.3 step 1).
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, vv := range t {
			if vv == nil {
				continue
			}
			out[k] = normalize(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, vv := range t {
			if vv == nil {
				continue
			}
			out = append(out, normalize(vv))
		}
		return out
	default:
		return v
	}
}

// hashParameters computes a short stable hash of parameters (spec
// §4.3 step 2): two xxhash64 passes over the canonical JSON, rendered
// in base32 and truncated to 16 characters.
func hashParameters(parameters interface{}) (string, error) {
	raw, err := json.Marshal(normalize(parameters))
	if err != nil {
		return "", err
	}
	h1 := xxhash.Sum64(raw)
	h2 := xxhash.Sum64(append(append([]byte{}, raw...), 0xAA))

	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], h1)
	binary.BigEndian.PutUint64(buf[8:16], h2)

	encoded := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf))
	if len(encoded) > 16 {
		encoded = encoded[:16]
	}
	return encoded, nil
}

// CanonicalKey derives the deterministic cache key for d (spec §4.3
// step 3): "query:<kind>:<operation>:<hash>:<version>".
func CanonicalKey(d Descriptor) (string, error) {
	hash, err := hashParameters(d.Parameters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("query:%s:%s:%s:%s", d.Kind, d.Operation, hash, d.Version), nil
}
