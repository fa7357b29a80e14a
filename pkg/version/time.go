package version

import (
	"strconv"
	"time"
)

// TimeVersion is a placeholder version containing only the instant it was
// created, at whole-second granularity. It backs trigger-only download
// actions where no externally retrievable artifact exists.
type TimeVersion struct {
	at time.Time
}

// NewTimeVersion builds a TimeVersion truncated to whole seconds, UTC.
func NewTimeVersion(at time.Time) TimeVersion {
	return TimeVersion{at: time.Unix(at.Unix(), 0).UTC()}
}

// Now returns the version corresponding to the current instant.
func Now() TimeVersion {
	return NewTimeVersion(time.Now())
}

// ParseTimeVersion reconstructs a TimeVersion from its wire representation.
func ParseTimeVersion(flat Flat) (TimeVersion, error) {
	raw, ok := flat["time"]
	if !ok {
		return TimeVersion{}, &DecodingError{Field: "time", Kind: Timestamp, Raw: "<absent>"}
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return TimeVersion{}, &DecodingError{Field: "time", Kind: Timestamp, Raw: raw, Err: err}
	}
	return TimeVersion{at: time.Unix(secs, 0).UTC()}, nil
}

// Flatten encodes the instant as an epoch-seconds string under "time".
func (t TimeVersion) Flatten() (Flat, error) {
	return Flat{"time": strconv.FormatInt(t.at.Unix(), 10)}, nil
}

// Before orders time versions chronologically.
func (t TimeVersion) Before(other Version) bool {
	o, ok := other.(TimeVersion)
	if !ok {
		return false
	}
	return t.at.Before(o.at)
}

// Time returns the wrapped instant.
func (t TimeVersion) Time() time.Time { return t.at }
