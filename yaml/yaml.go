// Package yaml provides a YAML codec for models.
package yaml

import (
	"fmt"

	model "github.com/artisanbr/generic-model"
	"gopkg.in/yaml.v3"
)

// yamlCodec implements model.Codec for YAML.
type yamlCodec struct{}

// New returns a YAML codec.
func New() model.Codec {
	return &yamlCodec{}
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Marshal encodes v as YAML.
func (c *yamlCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// Unmarshal decodes YAML data into v. Mappings with non-string keys found
// inside a generic value are converted to map[string]any so decoded
// attributes have the shape every other codec produces.
func (c *yamlCodec) Unmarshal(data []byte, v any) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		return err
	}
	switch target := v.(type) {
	case *map[string]any:
		for k, e := range *target {
			(*target)[k] = normalize(e)
		}
	case *any:
		*target = normalize(*target)
	}
	return nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	}
	return v
}
