package payload

import (
	"errors"
	"testing"
)

type gitConfig struct {
	URI     string `json:"uri"`
	Branch  string `json:"branch"`
	Depth   int    `json:"depth"`
	Shallow bool   `json:"shallow"`
}

func TestDecodeSource(t *testing.T) {
	var config gitConfig
	err := DecodeSource(Source{
		"uri":     "git://some-uri",
		"branch":  "main",
		"depth":   float64(3),
		"shallow": true,
	}, &config)
	if err != nil {
		t.Fatalf("DecodeSource error: %v", err)
	}
	want := gitConfig{URI: "git://some-uri", Branch: "main", Depth: 3, Shallow: true}
	if config != want {
		t.Errorf("config = %+v, want %+v", config, want)
	}
}

func TestDecodeSource_WeakTyping(t *testing.T) {
	var config gitConfig
	err := DecodeSource(Source{"depth": "5", "shallow": "true"}, &config)
	if err != nil {
		t.Fatalf("DecodeSource error: %v", err)
	}
	if config.Depth != 5 {
		t.Errorf("Depth = %d, want 5", config.Depth)
	}
	if !config.Shallow {
		t.Error("Shallow = false, want true")
	}
}

func TestDecodeSource_Mismatch(t *testing.T) {
	var config gitConfig
	err := DecodeSource(Source{"depth": "not a number"}, &config)
	var payloadErr *Error
	if !errors.As(err, &payloadErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
}

func TestDecodeParams(t *testing.T) {
	var params struct {
		FileName string `json:"file_name"`
		Indent   int    `json:"indent"`
	}
	err := DecodeParams(Params{"file_name": "branches", "indent": float64(2)}, &params)
	if err != nil {
		t.Fatalf("DecodeParams error: %v", err)
	}
	if params.FileName != "branches" || params.Indent != 2 {
		t.Errorf("params = %+v", params)
	}
}
