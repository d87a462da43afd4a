// Package msgpack provides a MessagePack codec for models.
package msgpack

import (
	"bytes"

	model "github.com/artisanbr/generic-model"
	"github.com/vmihailenco/msgpack/v5"
)

// msgpackCodec implements model.Codec for MessagePack.
type msgpackCodec struct{}

// New returns a MessagePack codec.
func New() model.Codec {
	return &msgpackCodec{}
}

// ContentType returns the MIME type for MessagePack.
func (c *msgpackCodec) ContentType() string {
	return "application/msgpack"
}

// Marshal encodes v as MessagePack with sorted map keys, so equal
// attribute maps encode to equal bytes.
func (c *msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes MessagePack data into v. Generic numbers decode as
// int64, uint64 or float64 rather than the narrowest wire type.
func (c *msgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(v)
}
