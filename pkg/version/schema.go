package version

import (
	"fmt"
	"strconv"
	"time"
)

// FieldKind identifies one of the supported field codecs. The set is closed:
// codecs are selected when the schema is declared, never by inspecting
// runtime values.
type FieldKind uint8

const (
	// Text passes string values through unchanged.
	Text FieldKind = iota
	// Integer encodes int values in base 10.
	Integer
	// Boolean encodes bool values as the literals "True" and "False",
	// byte-compatible with payloads from older resource implementations.
	Boolean
	// Timestamp encodes time.Time values as whole-second UTC epoch strings.
	// Sub-second precision is dropped so round-trips are stable.
	Timestamp
	// Name encodes a symbolic name validated against a declared set.
	Name
	// Path encodes a filesystem path in its string form.
	Path
)

// String returns a human-readable name for the field kind.
func (k FieldKind) String() string {
	switch k {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Boolean:
		return "boolean"
	case Timestamp:
		return "timestamp"
	case Name:
		return "name"
	case Path:
		return "path"
	default:
		return "unknown"
	}
}

// Field is one declared attribute of a typed version schema.
type Field struct {
	name    string
	kind    FieldKind
	allowed []string // Name fields only
}

// TextField declares a string field.
func TextField(name string) Field { return Field{name: name, kind: Text} }

// IntegerField declares an int field.
func IntegerField(name string) Field { return Field{name: name, kind: Integer} }

// BooleanField declares a bool field.
func BooleanField(name string) Field { return Field{name: name, kind: Boolean} }

// TimestampField declares a time.Time field with whole-second precision.
func TimestampField(name string) Field { return Field{name: name, kind: Timestamp} }

// NameField declares a symbolic-name field restricted to the given names.
func NameField(name string, allowed ...string) Field {
	return Field{name: name, kind: Name, allowed: allowed}
}

// PathField declares a filesystem-path field.
func PathField(name string) Field { return Field{name: name, kind: Path} }

// Name returns the field's declared name.
func (f Field) Name() string { return f.name }

// Kind returns the field's declared kind.
func (f Field) Kind() FieldKind { return f.kind }

func (f Field) encode(value any) (string, error) {
	switch f.kind {
	case Text, Path:
		s, ok := value.(string)
		if !ok {
			return "", &EncodingError{Field: f.name, Kind: f.kind, Value: value}
		}
		return s, nil
	case Integer:
		n, ok := value.(int)
		if !ok {
			return "", &EncodingError{Field: f.name, Kind: f.kind, Value: value}
		}
		return strconv.Itoa(n), nil
	case Boolean:
		b, ok := value.(bool)
		if !ok {
			return "", &EncodingError{Field: f.name, Kind: f.kind, Value: value}
		}
		if b {
			return "True", nil
		}
		return "False", nil
	case Timestamp:
		t, ok := value.(time.Time)
		if !ok {
			return "", &EncodingError{Field: f.name, Kind: f.kind, Value: value}
		}
		return strconv.FormatInt(t.Unix(), 10), nil
	case Name:
		s, ok := value.(string)
		if !ok || !f.allows(s) {
			return "", &EncodingError{Field: f.name, Kind: f.kind, Value: value}
		}
		return s, nil
	default:
		return "", &EncodingError{Field: f.name, Kind: f.kind, Value: value}
	}
}

func (f Field) decode(raw string) (any, error) {
	switch f.kind {
	case Text, Path:
		return raw, nil
	case Integer:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &DecodingError{Field: f.name, Kind: f.kind, Raw: raw, Err: err}
		}
		return n, nil
	case Boolean:
		switch raw {
		case "True":
			return true, nil
		case "False":
			return false, nil
		default:
			return nil, &DecodingError{Field: f.name, Kind: f.kind, Raw: raw}
		}
	case Timestamp:
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &DecodingError{Field: f.name, Kind: f.kind, Raw: raw, Err: err}
		}
		return time.Unix(secs, 0).UTC(), nil
	case Name:
		if !f.allows(raw) {
			return nil, &DecodingError{Field: f.name, Kind: f.kind, Raw: raw}
		}
		return raw, nil
	default:
		return nil, &DecodingError{Field: f.name, Kind: f.kind, Raw: raw}
	}
}

func (f Field) allows(name string) bool {
	if len(f.allowed) == 0 {
		return true
	}
	for _, candidate := range f.allowed {
		if candidate == name {
			return true
		}
	}
	return false
}

// Schema is a declared set of typed version fields. Declaration order is
// significant: Flatten emits fields in the order they were declared.
type Schema struct {
	kind   string
	fields []Field
	byName map[string]Field
}

// NewSchema declares a typed version schema. The kind acts as the equality
// discriminator for every version built from this schema.
func NewSchema(kind string, fields ...Field) (*Schema, error) {
	if kind == "" {
		return nil, fmt.Errorf("schema kind must not be empty")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema %q must declare at least one field", kind)
	}
	byName := make(map[string]Field, len(fields))
	for _, field := range fields {
		if field.name == "" {
			return nil, fmt.Errorf("schema %q declares a field with no name", kind)
		}
		if _, dup := byName[field.name]; dup {
			return nil, fmt.Errorf("schema %q declares field %q twice", kind, field.name)
		}
		byName[field.name] = field
	}
	return &Schema{kind: kind, fields: fields, byName: byName}, nil
}

// MustSchema is like NewSchema but panics on an invalid declaration.
// Use only for schemas declared at package init.
func MustSchema(kind string, fields ...Field) *Schema {
	s, err := NewSchema(kind, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Kind returns the schema's discriminator.
func (s *Schema) Kind() string { return s.kind }

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Build constructs a typed version from field values. Every declared field
// must be present and carry a value of its declared Go type.
func (s *Schema) Build(values map[string]any) (*Typed, error) {
	held := make(map[string]any, len(s.fields))
	for _, field := range s.fields {
		value, ok := values[field.name]
		if !ok {
			return nil, &EncodingError{Field: field.name, Kind: field.kind, Value: nil}
		}
		if _, err := field.encode(value); err != nil {
			return nil, err
		}
		if field.kind == Timestamp {
			// Normalize on entry so equality matches the wire form.
			t := value.(time.Time)
			value = time.Unix(t.Unix(), 0).UTC()
		}
		held[field.name] = value
	}
	for name := range values {
		if _, ok := s.byName[name]; !ok {
			return nil, fmt.Errorf("schema %q has no field %q", s.kind, name)
		}
	}
	return &Typed{schema: s, values: held}, nil
}

// Parse reconstructs a typed version from its wire representation.
func (s *Schema) Parse(flat Flat) (*Typed, error) {
	values := make(map[string]any, len(s.fields))
	for _, field := range s.fields {
		raw, ok := flat[field.name]
		if !ok {
			return nil, &DecodingError{Field: field.name, Kind: field.kind, Raw: "<absent>"}
		}
		value, err := field.decode(raw)
		if err != nil {
			return nil, err
		}
		values[field.name] = value
	}
	return &Typed{schema: s, values: values}, nil
}

// ParseVersion adapts Parse to the Parser signature.
func (s *Schema) ParseVersion(flat Flat) (Version, error) {
	return s.Parse(flat)
}

// Typed is a version whose fields are declared by a Schema. Values are held
// in their Go types and encoded only at the wire boundary.
type Typed struct {
	schema *Schema
	values map[string]any
}

// Flatten encodes the declared fields, in declaration order, through their
// schema codecs.
func (t *Typed) Flatten() (Flat, error) {
	flat := make(Flat, len(t.schema.fields))
	for _, field := range t.schema.fields {
		encoded, err := field.encode(t.values[field.name])
		if err != nil {
			return nil, err
		}
		flat[field.name] = encoded
	}
	return flat, nil
}

// VersionKind returns the schema kind, so typed versions built from distinct
// schemas never compare equal.
func (t *Typed) VersionKind() string { return t.schema.kind }

// String returns a text, name or path field value.
func (t *Typed) String(name string) string {
	s, _ := t.values[name].(string)
	return s
}

// Int returns an integer field value.
func (t *Typed) Int(name string) int {
	n, _ := t.values[name].(int)
	return n
}

// Bool returns a boolean field value.
func (t *Typed) Bool(name string) bool {
	b, _ := t.values[name].(bool)
	return b
}

// Time returns a timestamp field value.
func (t *Typed) Time(name string) time.Time {
	ts, _ := t.values[name].(time.Time)
	return ts
}
