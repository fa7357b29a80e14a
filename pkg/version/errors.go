package version

import "fmt"

// EncodingError reports a field whose runtime value does not match its
// declared kind, discovered while flattening a version.
type EncodingError struct {
	Field string
	Kind  FieldKind
	Value any
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode field %q: %T is not a valid %s value", e.Field, e.Value, e.Kind)
}

// DecodingError reports a flat mapping that cannot be parsed back into its
// declared schema: a required key is absent or a value is malformed.
type DecodingError struct {
	Field string
	Kind  FieldKind
	Raw   string
	Err   error
}

func (e *DecodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode field %q: %q is not a valid %s value: %v", e.Field, e.Raw, e.Kind, e.Err)
	}
	return fmt.Sprintf("decode field %q: %q is not a valid %s value", e.Field, e.Raw, e.Kind)
}

func (e *DecodingError) Unwrap() error { return e.Err }
