// Package lookup resolves possibly-ambiguous external document identifiers
// (raw names, percent-encoded forms, underscored forms, path-qualified forms)
// to stored document IDs.
package lookup

import (
	"net/url"
	"strings"
)

// Resolver maps derived key forms to canonical document IDs. Each Register
// call records several key variants so that later lookups by any of them
// succeed. Resolver is not safe for concurrent use; the owning engine
// serializes access.
type Resolver struct {
	keys  map[string]string // derived key -> canonical id
	order []string          // keys in first-registration order
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{keys: make(map[string]string)}
}

// Register records the document ID under its derived key forms: the raw ID,
// the percent-encoded form, spaces replaced by underscores, underscores
// replaced by spaces, and the path basename. Re-registering a key points it
// at the new ID (last-write-wins, matching document overwrite semantics).
func (r *Resolver) Register(id string) {
	r.put(id, id)
	r.put(url.PathEscape(id), id)
	r.put(strings.ReplaceAll(id, " ", "_"), id)
	r.put(strings.ReplaceAll(id, "_", " "), id)
	r.put(basename(id), id)
}

func (r *Resolver) put(key, id string) {
	if _, seen := r.keys[key]; !seen {
		r.order = append(r.order, key)
	}
	r.keys[key] = id
}

// Resolve maps an external identifier to a canonical document ID. Attempts in
// strict precedence order, first match wins:
//
//  1. exact match as given;
//  2. match after percent-decoding;
//  3. match after replacing spaces with underscores;
//  4. match after replacing underscores with spaces;
//  5. match on the path basename;
//  6. fallback scan over all registered keys, in registration order,
//     accepting a key that is a suffix of the identifier or vice versa.
//
// The fallback is ambiguous by construction when several IDs share suffixes;
// registration order makes it deterministic.
func (r *Resolver) Resolve(externalID string) (string, bool) {
	if id, ok := r.keys[externalID]; ok {
		return id, true
	}

	decoded := externalID
	if d, err := url.PathUnescape(externalID); err == nil {
		decoded = d
		if id, ok := r.keys[decoded]; ok {
			return id, true
		}
	}

	if id, ok := r.keys[strings.ReplaceAll(decoded, " ", "_")]; ok {
		return id, true
	}
	if id, ok := r.keys[strings.ReplaceAll(decoded, "_", " ")]; ok {
		return id, true
	}
	if id, ok := r.keys[basename(decoded)]; ok {
		return id, true
	}

	for _, key := range r.order {
		if strings.HasSuffix(key, decoded) || strings.HasSuffix(decoded, key) {
			return r.keys[key], true
		}
	}

	return "", false
}

// Len returns the number of registered key forms.
func (r *Resolver) Len() int { return len(r.keys) }

// Keys returns all registered key forms in registration order.
func (r *Resolver) Keys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// basename strips any directory-like prefix up to the last separator.
func basename(s string) string {
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}
