package model

import (
	"bytes"
	"encoding/json"
)

// Codec provides content-type aware marshaling.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}

// jsonCodec implements Codec for JSON.
// It is the codec used for json casts and ToJSON.
type jsonCodec struct{}

// JSON returns the JSON codec.
func JSON() Codec {
	return jsonCodec{}
}

// ContentType returns the MIME type for JSON.
func (jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON without HTML escaping.
func (jsonCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Unmarshal decodes JSON data into v.
func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
