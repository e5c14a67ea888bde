// Package keys provides the deterministic key and query-fingerprint
// canonicalization shared by the item layer and the query layer: it has no
// dependency on either, so both can import it without an import cycle
// through the orchestrating cache package.
package keys

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidKey is returned when a Key or its location coordinates are
// malformed: an empty type tag, an empty token, or a location coordinate
// missing either half of its pair.
var ErrInvalidKey = errors.New("entitycache: invalid key")

// LocationCoordinate is one (type, token) pair in a composite key's location
// path, e.g. {Type: "org", Token: "42"} for an entity scoped under org 42.
type LocationCoordinate struct {
	Type  string
	Token string
}

// Key identifies a single entity: a type tag, a primary token, and zero or
// more ordered location coordinates. Two keys are equal when their type,
// stringified token, and ordered locations are pairwise equal — a numeric
// token and its string form collide by design (Token is always the
// stringified form once a Key is constructed via NewKey).
type Key struct {
	Type      string
	Token     string
	Locations []LocationCoordinate
}

// NewKey builds a Key from a type tag and a primary token (string, int,
// int32, int64, uint64, or an integral float64), stringifying the token so
// that 123 and "123" hash identically. Any other token type is rejected
// with ErrInvalidKey.
func NewKey(itemType string, token interface{}, locations ...LocationCoordinate) (Key, error) {
	tok, err := stringifyToken(token)
	if err != nil {
		return Key{}, err
	}
	if itemType == "" || tok == "" {
		return Key{}, ErrInvalidKey
	}
	for _, loc := range locations {
		if loc.Type == "" || loc.Token == "" {
			return Key{}, ErrInvalidKey
		}
	}
	locsCopy := append([]LocationCoordinate(nil), locations...)
	return Key{Type: itemType, Token: tok, Locations: locsCopy}, nil
}

func stringifyToken(token interface{}) (string, error) {
	switch v := token.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		// Only accept float64 tokens that are exact integers; fractional
		// primary keys are not a supported entity-key shape.
		if v != float64(int64(v)) {
			return "", ErrInvalidKey
		}
		return strconv.FormatInt(int64(v), 10), nil
	default:
		return "", ErrInvalidKey
	}
}

// CanonicalKeyHash is the deterministic string form of a Key used as a map
// key throughout the cache: "kt:pk" for a primary key, or
// "kt:pk:lkt1:lk1:..." when location coordinates are present.
func CanonicalKeyHash(k Key) (string, error) {
	if k.Type == "" || k.Token == "" {
		return "", ErrInvalidKey
	}
	var b strings.Builder
	b.WriteString(k.Type)
	b.WriteByte(':')
	b.WriteString(k.Token)
	for _, loc := range k.Locations {
		if loc.Type == "" || loc.Token == "" {
			return "", ErrInvalidKey
		}
		b.WriteByte(':')
		b.WriteString(loc.Type)
		b.WriteByte(':')
		b.WriteString(loc.Token)
	}
	return b.String(), nil
}

// MustCanonicalKeyHash panics on an invalid key; reserved for call sites
// that have already validated the key (e.g. round-trip tests).
func MustCanonicalKeyHash(k Key) string {
	h, err := CanonicalKeyHash(k)
	if err != nil {
		panic(err)
	}
	return h
}
