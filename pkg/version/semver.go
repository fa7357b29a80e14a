package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Semver is a ready-made ordered version kind backed by a semantic version.
// The original tag string is preserved so the flat form round-trips exactly,
// "v" prefix included.
type Semver struct {
	v *semver.Version
}

// NewSemver parses a semantic version string into a Semver version.
func NewSemver(raw string) (*Semver, error) {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid semantic version %q: %w", raw, err)
	}
	return &Semver{v: v}, nil
}

// MustSemver is like NewSemver but panics on an invalid version string.
// Use only for known-good values.
func MustSemver(raw string) *Semver {
	v, err := NewSemver(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseSemver reconstructs a Semver version from its wire representation.
func ParseSemver(flat Flat) (*Semver, error) {
	raw, ok := flat["version"]
	if !ok {
		return nil, &DecodingError{Field: "version", Kind: Text, Raw: "<absent>"}
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, &DecodingError{Field: "version", Kind: Text, Raw: raw, Err: err}
	}
	return &Semver{v: v}, nil
}

// Flatten returns the original version string under the "version" key.
func (s *Semver) Flatten() (Flat, error) {
	return Flat{"version": s.v.Original()}, nil
}

// Before reports semantic-version precedence. A non-Semver argument is never
// considered newer.
func (s *Semver) Before(other Version) bool {
	o, ok := other.(*Semver)
	if !ok {
		return false
	}
	return s.v.LessThan(o.v)
}

// Underlying returns the parsed semantic version.
func (s *Semver) Underlying() *semver.Version { return s.v }

func (s *Semver) String() string { return s.v.Original() }
