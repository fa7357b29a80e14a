package version

import (
	"encoding/json"
	"fmt"
)

// MultiVersion aggregates a set of sub-versions into one canonical version.
//
// Some resources track a set of independent items (branches, open pull
// requests) rather than a single advancing value. Collapsing the set into one
// order-independent version lets the dispatcher treat it like any linear
// version: re-observing the same set yields a byte-identical flat form, and
// any membership change yields a different one.
type MultiVersion struct {
	key  string
	subs []Ordered // deduplicated, sorted oldest first
}

// Combine builds a MultiVersion from a collection of sub-versions. The
// collection is treated as a set: duplicates are dropped by fingerprint, and
// the remainder is sorted by natural order so any discovery order produces
// the same canonical version.
func Combine(key string, subs []Ordered) (*MultiVersion, error) {
	if key == "" {
		return nil, fmt.Errorf("multi-version key must not be empty")
	}
	seen := make(map[string]struct{}, len(subs))
	canonical := make([]Ordered, 0, len(subs))
	for _, sub := range subs {
		fp, err := Fingerprint(sub)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		canonical = append(canonical, sub)
	}
	Sort(canonical)
	return &MultiVersion{key: key, subs: canonical}, nil
}

// Decompose reconstructs a MultiVersion from its wire representation,
// rebuilding each sub-version through parse.
func Decompose(flat Flat, key string, parse func(Flat) (Ordered, error)) (*MultiVersion, error) {
	raw, ok := flat[key]
	if !ok {
		return nil, &DecodingError{Field: key, Kind: Text, Raw: "<absent>"}
	}
	var subFlats []Flat
	if err := json.Unmarshal([]byte(raw), &subFlats); err != nil {
		return nil, &DecodingError{Field: key, Kind: Text, Raw: raw, Err: err}
	}
	subs := make([]Ordered, 0, len(subFlats))
	for _, subFlat := range subFlats {
		sub, err := parse(subFlat)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return Combine(key, subs)
}

// Key returns the single flat key this version serializes under.
func (m *MultiVersion) Key() string { return m.key }

// Subversions returns the canonical sub-version sequence, oldest first.
func (m *MultiVersion) Subversions() []Ordered {
	out := make([]Ordered, len(m.subs))
	copy(out, m.subs)
	return out
}

// SubversionData returns the flattened sub-versions in canonical order.
func (m *MultiVersion) SubversionData() ([]Flat, error) {
	data := make([]Flat, 0, len(m.subs))
	for _, sub := range m.subs {
		flat, err := sub.Flatten()
		if err != nil {
			return nil, err
		}
		data = append(data, flat)
	}
	return data, nil
}

// Flatten produces a single-field flat form: the JSON encoding of the sorted
// sub-version data under the configured key.
func (m *MultiVersion) Flatten() (Flat, error) {
	data, err := m.SubversionData()
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return Flat{m.key: string(encoded)}, nil
}

// VersionKind discriminates multi-versions by their key, not the carrier type.
func (m *MultiVersion) VersionKind() string { return "multi-version:" + m.key }
