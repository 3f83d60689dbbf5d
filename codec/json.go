package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSON is the standard-library codec, for manifests read by tools that only
// ship encoding/json. Its output matches GoJSON byte for byte.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", indent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%s: encode: %w", jsonName, err)
	}
	return buf.Bytes(), nil
}

func (JSON) Unmarshal(data []byte, v any) error {
	return unmarshal(jsonName, json.NewDecoder(bytes.NewReader(data)), v)
}

func (JSON) Name() string { return jsonName }
