package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// modelCaster stores a nested model as a JSON object.
type modelCaster[M Modeler] struct {
	build func(parent *Model) M
}

// AsModel returns a caster storing a nested model of schema as JSON. The
// nested model shares the parent's registry, encrypter, date handler and
// codec.
func AsModel(schema *Schema) Caster {
	return &modelCaster[*Model]{
		build: func(parent *Model) *Model {
			return New(schema, parent.inherited()...)
		},
	}
}

// AsModelOf returns a caster storing a nested model built by factory.
func AsModelOf[M Modeler](factory func() M) Caster {
	return &modelCaster[M]{
		build: func(*Model) M { return factory() },
	}
}

func (c *modelCaster[M]) Get(m *Model, key string, value any, _ map[string]any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if child, ok := value.(M); ok {
		return child, nil
	}
	raw, err := decodeObject(m, value)
	if err != nil {
		return nil, &InvalidCastError{Model: m.Name(), Key: key, Cast: "model", Value: value, Cause: err}
	}
	child := c.build(m)
	child.Base().SetRawAttributes(raw, true)
	return child, nil
}

func (c *modelCaster[M]) Set(m *Model, key string, value any, _ map[string]any) (map[string]any, error) {
	if value == nil {
		return map[string]any{key: nil}, nil
	}
	child, err := c.from(m, key, value)
	if err != nil {
		return nil, err
	}
	text, err := encodeModel(m, key, child)
	if err != nil {
		return nil, err
	}
	return map[string]any{key: text}, nil
}

// from accepts a model or a map of typed values.
func (c *modelCaster[M]) from(m *Model, key string, value any) (Modeler, error) {
	switch v := value.(type) {
	case Modeler:
		return v, nil
	case map[string]any:
		child := c.build(m)
		for _, k := range sortedKeys(v) {
			if err := child.Base().Set(k, v[k]); err != nil {
				return nil, err
			}
		}
		return child, nil
	}
	return nil, &InvalidCastError{
		Model: m.Name(), Key: key, Cast: "model", Value: value,
		Cause: fmt.Errorf("expected a model or map, got %T", value),
	}
}

// collectionCaster stores a list of nested models as a JSON array.
type collectionCaster[M Modeler] struct {
	item *modelCaster[M]
}

// AsCollectionOf returns a caster storing a list of models built by
// factory. Get yields []M.
func AsCollectionOf[M Modeler](factory func() M) Caster {
	return &collectionCaster[M]{item: &modelCaster[M]{build: func(*Model) M { return factory() }}}
}

// asCollectionOfSchema is the collection caster a *Schema supplies.
func asCollectionOfSchema(schema *Schema) Caster {
	return &collectionCaster[*Model]{item: &modelCaster[*Model]{
		build: func(parent *Model) *Model { return New(schema, parent.inherited()...) },
	}}
}

func (c *collectionCaster[M]) Get(m *Model, key string, value any, attributes map[string]any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if items, ok := value.([]M); ok {
		return items, nil
	}
	decoded, err := fromJSON(m.codec, value, false)
	if err != nil {
		return nil, &InvalidCastError{Model: m.Name(), Key: key, Cast: "collection", Value: value, Cause: err}
	}

	list := toCollection(decoded)
	items := make([]M, 0, len(list))
	for _, raw := range list {
		child, err := c.item.Get(m, key, raw, attributes)
		if err != nil {
			return nil, err
		}
		if child == nil {
			continue
		}
		items = append(items, child.(M))
	}
	return items, nil
}

func (c *collectionCaster[M]) Set(m *Model, key string, value any, _ map[string]any) (map[string]any, error) {
	if value == nil {
		return map[string]any{key: nil}, nil
	}

	var list Collection
	switch v := value.(type) {
	case []M:
		list = make(Collection, len(v))
		for i, item := range v {
			list[i] = item
		}
	default:
		list = toCollection(value)
	}

	out := make([]any, 0, len(list))
	for _, item := range list {
		child, err := c.item.from(m, key, item)
		if err != nil {
			return nil, err
		}
		attrs, err := child.Base().Attributes()
		if err != nil {
			return nil, err
		}
		out = append(out, attrs)
	}

	text, err := asJSON(m.codec, out)
	if err != nil {
		return nil, &JSONEncodingError{Model: m.Name(), Key: key, Cause: err}
	}
	return map[string]any{key: text}, nil
}

// arrayCaster stores a typed list as a JSON array.
type arrayCaster[T any] struct{}

// AsArrayOf returns a caster decoding a JSON array into []T.
func AsArrayOf[T any]() Caster {
	return arrayCaster[T]{}
}

func (arrayCaster[T]) Get(m *Model, key string, value any, _ map[string]any) (any, error) {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []T:
		return v, nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		encoded, err := m.codec.Marshal(v)
		if err != nil {
			return nil, &InvalidCastError{Model: m.Name(), Key: key, Cast: "array", Value: value, Cause: err}
		}
		data = encoded
	}

	var out []T
	if err := m.codec.Unmarshal(data, &out); err != nil {
		return nil, &InvalidCastError{Model: m.Name(), Key: key, Cast: "array", Value: value, Cause: err}
	}
	return out, nil
}

func (arrayCaster[T]) Set(m *Model, key string, value any, _ map[string]any) (map[string]any, error) {
	if value == nil {
		return map[string]any{key: nil}, nil
	}
	text, err := asJSON(m.codec, value)
	if err != nil {
		return nil, &JSONEncodingError{Model: m.Name(), Key: key, Cause: err}
	}
	return map[string]any{key: text}, nil
}

// uuidCaster stores UUIDs in canonical text form.
type uuidCaster struct{}

// AsUUID returns a caster reading text or 16-byte values as uuid.UUID.
func AsUUID() SerializingCaster {
	return uuidCaster{}
}

func (uuidCaster) Get(m *Model, key string, value any, _ map[string]any) (any, error) {
	if value == nil {
		return nil, nil
	}
	id, err := parseUUID(value)
	if err != nil {
		return nil, &InvalidCastError{Model: m.Name(), Key: key, Cast: "uuid", Value: value, Cause: err}
	}
	return id, nil
}

func (uuidCaster) Set(m *Model, key string, value any, _ map[string]any) (map[string]any, error) {
	if value == nil {
		return map[string]any{key: nil}, nil
	}
	id, err := parseUUID(value)
	if err != nil {
		return nil, &InvalidCastError{Model: m.Name(), Key: key, Cast: "uuid", Value: value, Cause: err}
	}
	return map[string]any{key: id.String()}, nil
}

func (uuidCaster) Serialize(_ *Model, _ string, value any, _ map[string]any) (any, error) {
	if id, ok := value.(uuid.UUID); ok {
		return id.String(), nil
	}
	return value, nil
}

func parseUUID(value any) (uuid.UUID, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	}
	return uuid.Nil, fmt.Errorf("unsupported uuid value %T", value)
}

// decodeObject reads a nested model's raw attributes from a map or JSON text.
func decodeObject(m *Model, value any) (map[string]any, error) {
	if obj, ok := value.(map[string]any); ok {
		return obj, nil
	}
	decoded, err := fromJSON(m.codec, value, false)
	if err != nil {
		return nil, err
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, errors.New("value is not a JSON object")
	}
	return obj, nil
}

func encodeModel(m *Model, key string, child Modeler) (string, error) {
	attrs, err := child.Base().Attributes()
	if err != nil {
		return "", err
	}
	text, err := asJSON(m.codec, attrs)
	if err != nil {
		return "", &JSONEncodingError{Model: m.Name(), Key: key, Cause: err}
	}
	return text, nil
}
