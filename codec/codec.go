// Package codec centralizes manifest encoding.
//
// Manifests record the codec name, so a dictionary saved with one codec can be
// reopened after the default changes. Both built-in codecs write the same
// indented document, one manifest per blob, ending in a newline.
package codec

import (
	"errors"
	"fmt"
)

const (
	jsonName   = "json"
	goJSONName = "go-json"

	indent = "  "
)

// ErrTrailingData is returned when a manifest blob holds more than one value.
var ErrTrailingData = errors.New("codec: trailing data after manifest")

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used for new manifests.
var Default Codec = GoJSON{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case jsonName:
		return JSON{}, true
	case goJSONName:
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// decoder is the part of a streaming JSON decoder that unmarshal needs.
type decoder interface {
	Decode(v any) error
	More() bool
}

func unmarshal(name string, dec decoder, v any) error {
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%s: decode: %w", name, err)
	}
	if dec.More() {
		return fmt.Errorf("%s: %w", name, ErrTrailingData)
	}
	return nil
}
