package codec

import (
	"bytes"
	"fmt"

	gojson "github.com/goccy/go-json"
)

// GoJSON encodes manifests with github.com/goccy/go-json.
type GoJSON struct{}

// Marshal writes v as an indented document with a trailing newline.
func (GoJSON) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := gojson.NewEncoder(&buf)
	enc.SetIndent("", indent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%s: encode: %w", goJSONName, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes exactly one manifest from data.
func (GoJSON) Unmarshal(data []byte, v any) error {
	return unmarshal(goJSONName, gojson.NewDecoder(bytes.NewReader(data)), v)
}

func (GoJSON) Name() string { return goJSONName }
