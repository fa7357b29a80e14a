// Package payload converts between the orchestrator's JSON wire payloads and
// typed in-memory representations. It performs pure transformation only; all
// stream and file I/O belongs to the caller.
package payload

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"

	"github.com/relicta-tech/resourcekit/pkg/version"
)

// Source is the resource configuration from the pipeline definition. A
// missing or null source parses to an empty, non-nil map.
type Source map[string]any

// Params are the operation-specific step parameters.
type Params map[string]any

// MetadataField is one name/value pair surfaced in the orchestrator's UI.
// Values may be of any type; they are coerced to strings at format time.
type MetadataField struct {
	Name  string
	Value any
}

// Metadata is an order-preserving sequence of metadata fields.
type Metadata []MetadataField

// Pair builds a single metadata field.
func Pair(name string, value any) MetadataField {
	return MetadataField{Name: name, Value: value}
}

// Error reports a malformed orchestrator payload. Payload errors are fatal
// and detected before any resource code runs.
type Error struct {
	Op  string
	Msg string
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// envelope matches the common structure of all three request payloads.
type envelope struct {
	Source  map[string]any `json:"source"`
	Version map[string]any `json:"version"`
	Params  map[string]any `json:"params"`
}

func parseEnvelope(op string, raw []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &Error{Op: op, Msg: "malformed request payload", Err: err}
	}
	return &env, nil
}

func (e *envelope) source() Source {
	if e.Source == nil {
		return Source{}
	}
	return Source(e.Source)
}

func (e *envelope) params() Params {
	if e.Params == nil {
		return Params{}
	}
	return Params(e.Params)
}

// flatVersion coerces every version value to its string form, matching the
// orchestrator's string-only version contract.
func (e *envelope) flatVersion() version.Flat {
	if e.Version == nil {
		return nil
	}
	flat := make(version.Flat, len(e.Version))
	for key, value := range e.Version {
		flat[key] = cast.ToString(value)
	}
	return flat
}

// ParseCheck parses a check request. The returned flat version is nil, not
// empty, when no previous version was supplied.
func ParseCheck(raw []byte) (Source, version.Flat, error) {
	env, err := parseEnvelope("parse check payload", raw)
	if err != nil {
		return nil, nil, err
	}
	return env.source(), env.flatVersion(), nil
}

// ParseIn parses an in request. The version is required.
func ParseIn(raw []byte) (Source, version.Flat, Params, error) {
	env, err := parseEnvelope("parse in payload", raw)
	if err != nil {
		return nil, nil, nil, err
	}
	flat := env.flatVersion()
	if flat == nil {
		return nil, nil, nil, &Error{Op: "parse in payload", Msg: "missing required version"}
	}
	return env.source(), flat, env.params(), nil
}

// ParseOut parses an out request.
func ParseOut(raw []byte) (Source, Params, error) {
	env, err := parseEnvelope("parse out payload", raw)
	if err != nil {
		return nil, nil, err
	}
	return env.source(), env.params(), nil
}

// wireMetadataField is the orchestrator-facing metadata shape.
type wireMetadataField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ParseMetadata parses a metadata fragment back into ordered pairs.
func ParseMetadata(raw []byte) (Metadata, error) {
	var pairs []wireMetadataField
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, &Error{Op: "parse metadata", Msg: "malformed metadata fragment", Err: err}
	}
	meta := make(Metadata, 0, len(pairs))
	for _, pair := range pairs {
		meta = append(meta, MetadataField{Name: pair.Name, Value: pair.Value})
	}
	return meta, nil
}

// FormatCheck renders check output: a JSON array of flat versions in exactly
// the given order, oldest first. A nil slice renders as an empty array.
func FormatCheck(versions []version.Flat) ([]byte, error) {
	if versions == nil {
		versions = []version.Flat{}
	}
	return json.Marshal(versions)
}

// FormatInOut renders in/out output: the flat version plus the metadata
// pairs, every value coerced to its string form. Metadata order is preserved;
// empty metadata renders as an empty array, never null.
func FormatInOut(flat version.Flat, meta Metadata) ([]byte, error) {
	wire := make([]wireMetadataField, 0, len(meta))
	for _, pair := range meta {
		wire = append(wire, wireMetadataField{
			Name:  pair.Name,
			Value: cast.ToString(pair.Value),
		})
	}
	return json.Marshal(struct {
		Version  version.Flat        `json:"version"`
		Metadata []wireMetadataField `json:"metadata"`
	}{Version: flat, Metadata: wire})
}

// FormatCheckInput renders the payload the orchestrator would send to a
// check. Inverse of ParseCheck; used by test harnesses.
func FormatCheckInput(source Source, prev version.Flat) ([]byte, error) {
	body := map[string]any{"source": source}
	if prev != nil {
		body["version"] = prev
	}
	return json.Marshal(body)
}

// FormatInInput renders the payload the orchestrator would send to an in.
func FormatInInput(source Source, flat version.Flat, params Params) ([]byte, error) {
	body := map[string]any{
		"source":  source,
		"version": flat,
	}
	if params != nil {
		body["params"] = params
	}
	return json.Marshal(body)
}

// FormatOutInput renders the payload the orchestrator would send to an out.
func FormatOutInput(source Source, params Params) ([]byte, error) {
	body := map[string]any{"source": source}
	if params != nil {
		body["params"] = params
	}
	return json.Marshal(body)
}
