// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlgraph

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// encodeProps serializes a property map. uri lives in its own column and
// nil values are dropped, mirroring how a graph store removes a property
// set to null.
func encodeProps(m map[string]any) (string, error) {
	clean := make(map[string]any, len(m))
	for k, v := range m {
		if k == "uri" || v == nil {
			continue
		}
		clean[k] = v
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return "", ontoerr.Wrap(err, ontoerr.CodeStoreInvalidInput, "property values must be JSON scalars")
	}
	return string(data), nil
}

// decodeProps parses a stored property map. Corrupt data is logged and
// treated as empty rather than failing the read.
func (r *runner) decodeProps(raw, owner string) map[string]any {
	out := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		r.logger.Warn("corrupt property map", "owner", owner, "error", err)
		return map[string]any{}
	}
	for k, v := range out {
		out[k] = fromJSON(v)
	}
	return out
}

// applyPatch merges patch into dst; nil values remove keys.
func applyPatch(dst, patch map[string]any) {
	for k, v := range patch {
		if k == "uri" {
			continue
		}
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
}

// fromJSON turns json.Number into int64 when integral, float64 otherwise.
func fromJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		for i := range t {
			t[i] = fromJSON(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = fromJSON(t[k])
		}
		return t
	default:
		return v
	}
}

// normalize passes v through the same JSON encoding used for storage so it
// compares equal to a decoded stored value.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return v
	}
	return fromJSON(out)
}

func equalValues(stored, want any) bool {
	return reflect.DeepEqual(normalize(stored), want)
}
