package payload

import (
	"github.com/go-viper/mapstructure/v2"
)

// DecodeSource decodes the untyped source configuration into a developer
// config struct. Fields are matched by `json` tag, and scalar values are
// converted weakly, so a pipeline author writing `port: "8080"` still fills
// an int field.
func DecodeSource(source Source, out any) error {
	if err := decode(map[string]any(source), out); err != nil {
		return &Error{Op: "decode source", Msg: "source configuration does not match the resource's schema", Err: err}
	}
	return nil
}

// DecodeParams decodes the untyped step parameters into a developer params
// struct, with the same matching rules as DecodeSource.
func DecodeParams(params Params, out any) error {
	if err := decode(map[string]any(params), out); err != nil {
		return &Error{Op: "decode params", Msg: "step params do not match the resource's schema", Err: err}
	}
	return nil
}

func decode(in map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(in)
}
