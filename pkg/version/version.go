// Package version defines the canonical version model for resource types.
//
// A version is a snapshot of the state of an external resource. The
// orchestrator only ever sees a version in its flat wire form: a mapping of
// string keys to string values. Everything else in this package exists to
// move between that wire form and something a resource author actually wants
// to work with.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
)

// Flat is the canonical wire representation of a version. The orchestrator
// requires both keys and values to be strings.
type Flat map[string]string

// Version is a snapshot of an external resource's state.
//
// Two versions of the same concrete kind are equal iff their flat
// representations contain identical key/value pairs.
type Version interface {
	// Flatten converts the version to its canonical wire representation.
	Flatten() (Flat, error)
}

// Ordered is implemented by version kinds that admit a strict total order.
// Before must be consistent with equality: if Equal(a, b) then neither
// a.Before(b) nor b.Before(a).
type Ordered interface {
	Version

	// Before reports whether the receiver is strictly older than other.
	Before(other Version) bool
}

// Parser reconstructs a version from its wire representation.
type Parser func(Flat) (Version, error)

// Kinded lets a version kind override the discriminator used by Fingerprint.
// Without it the concrete Go type is used, which is wrong for shared carrier
// types such as Typed, where distinct schemas share one Go type.
type Kinded interface {
	VersionKind() string
}

// KindOf returns the kind discriminator for a version.
func KindOf(v Version) string {
	if k, ok := v.(Kinded); ok {
		return k.VersionKind()
	}
	return reflect.TypeOf(v).String()
}

// Fingerprint returns a deterministic digest of a version, derived from its
// sorted flat pairs combined with the kind discriminator. Equal versions
// always produce equal fingerprints; versions of different kinds never share
// a fingerprint even when their flat data coincides.
func Fingerprint(v Version) (string, error) {
	flat, err := v.Flatten()
	if err != nil {
		return "", err
	}

	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	h := sha256.New()
	writeField(h, KindOf(v))
	for _, key := range keys {
		writeField(h, key)
		writeField(h, flat[key])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeField length-prefixes each field so adjacent fields cannot collide.
func writeField(h interface{ Write([]byte) (int, error) }, s string) {
	fmt.Fprintf(h, "%d:%s", len(s), s)
}

// Equal reports whether two versions are of the same kind and carry identical
// flat representations.
func Equal(a, b Version) (bool, error) {
	if a == nil || b == nil {
		return a == nil && b == nil, nil
	}
	if KindOf(a) != KindOf(b) {
		return false, nil
	}
	fa, err := a.Flatten()
	if err != nil {
		return false, err
	}
	fb, err := b.Flatten()
	if err != nil {
		return false, err
	}
	if len(fa) != len(fb) {
		return false, nil
	}
	for key, value := range fa {
		other, ok := fb[key]
		if !ok || other != value {
			return false, nil
		}
	}
	return true, nil
}

// Sort orders versions oldest first, in place. The sort is stable so that
// versions comparing equal keep their discovery order.
func Sort(versions []Ordered) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].Before(versions[j])
	})
}

// Dedupe removes duplicate versions, keeping the first occurrence of each
// fingerprint and preserving order.
func Dedupe(versions []Version) ([]Version, error) {
	seen := make(map[string]struct{}, len(versions))
	out := versions[:0:0]
	for _, v := range versions {
		fp, err := Fingerprint(v)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
