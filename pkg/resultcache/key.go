package resultcache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// KeyPrefix namespaces every key this package writes. Bump the version when
// the cached payload shape changes.
const KeyPrefix = "fanfiq:v1:"

// Key derives a stable cache key for request within namespace. The request is
// serialized to JSON, then null values, empty strings and empty collections are
// dropped and object fields are written in name order before hashing, so
// field order and omitted-versus-empty differences never change the key.
//
// Callers are expected to zero out fields that sit at their default value
// before calling Key.
func Key(namespace string, request interface{}) (string, error) {
	raw, err := json.Marshal(request)
	if err != nil {
		return "", errors.Wrap(err, "failed to serialize cache key request")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return "", errors.Wrap(err, "failed to decode cache key request")
	}

	// encoding a map writes its keys in sorted order
	canonical, err := json.Marshal(prune(v))
	if err != nil {
		return "", errors.Wrap(err, "failed to serialize canonical request")
	}

	sum := sha256.Sum256(canonical)
	return KeyPrefix + namespace + ":" + hex.EncodeToString(sum[:]), nil
}

// prune drops empty values recursively. Numbers and booleans are kept as is:
// a zero bound is a real constraint.
func prune(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, child := range t {
			child = prune(child)
			if isEmpty(child) {
				continue
			}
			out[k] = child
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, child := range t {
			out = append(out, prune(child))
		}
		return out
	default:
		return v
	}
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}
