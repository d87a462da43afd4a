// Package bson provides a BSON codec for models.
package bson

import (
	model "github.com/artisanbr/generic-model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// bsonCodec implements model.Codec for BSON.
type bsonCodec struct{}

// New returns a BSON codec.
func New() model.Codec {
	return &bsonCodec{}
}

// ContentType returns the MIME type for BSON.
func (c *bsonCodec) ContentType() string {
	return "application/bson"
}

// Marshal encodes v as a BSON document.
func (c *bsonCodec) Marshal(v any) ([]byte, error) {
	return bson.Marshal(v)
}

// Unmarshal decodes BSON data into v. Embedded documents and arrays inside
// attribute maps are converted to map[string]any and []any.
func (c *bsonCodec) Unmarshal(data []byte, v any) error {
	if err := bson.Unmarshal(data, v); err != nil {
		return err
	}
	if target, ok := v.(*map[string]any); ok {
		for k, e := range *target {
			(*target)[k] = normalize(e)
		}
	}
	return nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case primitive.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}
