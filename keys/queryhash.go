package keys

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
)

// QueryKind distinguishes the shape of a query result so that complete and
// partial (faceted) results get independent fingerprints and TTLs even when
// their parameters coincide.
type QueryKind struct {
	Base string // "all", "one", "facet", "allFacet", "find", "findOne"
	Name string // finder/facet name; empty for "all"/"one"
}

func (k QueryKind) String() string {
	if k.Name == "" {
		return k.Base
	}
	return k.Base + ":" + k.Name
}

// IsComplete reports whether this query kind is expected to enumerate every
// matching entity (as opposed to a computed, partial, or named-finder view).
func (k QueryKind) IsComplete() bool {
	return k.Base == "all" || k.Base == "one"
}

// QueryFingerprint is the deterministic hash of an item type, a query kind,
// and its (canonicalized) parameters and locations.
type QueryFingerprint string

// orderlessFields names parameter keys whose array values are semantically
// unordered (e.g. a set of requested ids) and must be sorted before hashing
// so that equivalent queries collide regardless of caller-supplied order.
type orderlessFields map[string]bool

// HashQuery produces a QueryFingerprint for (itemType, kind, params, locations).
// params is canonicalized by sorting object keys lexicographically and, for
// any key named in orderless, sorting its array value; the result is folded
// through FNV-1a 64-bit into the fingerprint's fixed-width hex suffix.
func HashQuery(itemType string, kind QueryKind, params map[string]interface{}, locations []LocationCoordinate, orderless orderlessFields) (QueryFingerprint, error) {
	canon, err := canonicalizeParams(params, orderless)
	if err != nil {
		return "", fmt.Errorf("entitycache: canonicalize query params: %w", err)
	}

	locs := append([]LocationCoordinate(nil), locations...)

	payload := struct {
		Type   string                `json:"t"`
		Kind   string                `json:"k"`
		Params json.RawMessage       `json:"p"`
		Locs   []LocationCoordinate  `json:"l"`
	}{
		Type:   itemType,
		Kind:   kind.String(),
		Params: canon,
		Locs:   locs,
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("entitycache: marshal query payload: %w", err)
	}

	h := fnv.New64a()
	h.Write(buf)
	return QueryFingerprint(fmt.Sprintf("%s:%016x", itemType, h.Sum64())), nil
}

// canonicalizeParams renders params as JSON with object keys sorted
// lexicographically (via an ordered intermediate) so that two maps built in
// different insertion order produce byte-identical output.
func canonicalizeParams(params map[string]interface{}, orderless orderlessFields) (json.RawMessage, error) {
	if params == nil {
		return json.RawMessage("null"), nil
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b []byte
	b = append(b, '{')
	for i, k := range keys {
		if i > 0 {
			b = append(b, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		b = append(b, kb...)
		b = append(b, ':')

		v := params[k]
		if orderless != nil && orderless[k] {
			v = sortedCopyIfSlice(v)
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		b = append(b, vb...)
	}
	b = append(b, '}')
	return json.RawMessage(b), nil
}

// sortedCopyIfSlice returns a sorted copy of v when it is a []string or
// []interface{} of comparable scalars; otherwise it returns v unchanged.
func sortedCopyIfSlice(v interface{}) interface{} {
	switch s := v.(type) {
	case []string:
		out := append([]string(nil), s...)
		sort.Strings(out)
		return out
	case []interface{}:
		out := append([]interface{}(nil), s...)
		sort.Slice(out, func(i, j int) bool {
			return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
		})
		return out
	default:
		return v
	}
}
