package model

import (
	"context"
	"reflect"
	"slices"
	"time"
)

// View names reported in serialize events.
const (
	viewArray    = "array"
	viewJSON     = "json"
	viewFillable = "fillable"
)

// ToArray projects the model into a plain map: visible attributes with
// mutators, casts and appends applied.
func (m *Model) ToArray() (map[string]any, error) {
	start := time.Now()
	out, err := m.attributesToArray(false)
	emitSerializeComplete(context.Background(), m.Name(), viewArray, len(out), time.Since(start), err)
	return out, err
}

// JSONSerialize is the array projection without appended and temporary
// fields. Nested values prefer JSONSerializable over Arrayable.
func (m *Model) JSONSerialize() (map[string]any, error) {
	start := time.Now()
	out, err := m.jsonSerialize()
	emitSerializeComplete(context.Background(), m.Name(), viewJSON, len(out), time.Since(start), err)
	return out, err
}

func (m *Model) jsonSerialize() (map[string]any, error) {
	out, err := m.attributesToArray(true)
	if err != nil {
		return nil, err
	}
	for _, key := range m.appends {
		delete(out, key)
	}
	for _, key := range m.temporary {
		delete(out, key)
	}
	return out, nil
}

// ToJSON encodes JSONSerialize as JSON text.
func (m *Model) ToJSON() (string, error) {
	data, err := m.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MarshalJSON implements json.Marshaler.
func (m *Model) MarshalJSON() ([]byte, error) {
	view, err := m.JSONSerialize()
	if err != nil {
		return nil, err
	}
	data, err := m.codec.Marshal(view)
	if err != nil {
		return nil, &JSONEncodingError{Model: m.Name(), Cause: err}
	}
	return data, nil
}

// ToFillable returns the array view restricted to fields the guard would
// accept from Fill. The unguarded scope does not widen it.
func (m *Model) ToFillable() (map[string]any, error) {
	start := time.Now()
	out, err := m.attributesToArray(false)
	if err == nil {
		for key := range out {
			if !m.isFillableGuarded(key) {
				delete(out, key)
			}
		}
	}
	emitSerializeComplete(context.Background(), m.Name(), viewFillable, len(out), time.Since(start), err)
	return out, err
}

// Encode renders the JSON view with codec.
func (m *Model) Encode(codec Codec) ([]byte, error) {
	view, err := m.JSONSerialize()
	if err != nil {
		return nil, err
	}
	data, err := codec.Marshal(view)
	if err != nil {
		return nil, newCodecError(ErrMarshal, err)
	}
	return data, nil
}

// attributesToArray builds the array view. forJSON selects the JSON
// projection of nested values.
func (m *Model) attributesToArray(forJSON bool) (map[string]any, error) {
	raw, err := m.Attributes()
	if err != nil {
		return nil, err
	}
	attrs := m.arrayableItems(raw)

	if err := m.addDateAttributesToArray(attrs); err != nil {
		return nil, err
	}

	mutated := m.mutatedAttributes()
	for _, key := range mutated {
		value, ok := attrs[key]
		if !ok {
			continue
		}
		if attrs[key], err = m.mutateAttributeForArray(key, value); err != nil {
			return nil, err
		}
	}

	if err := m.addCastAttributesToArray(attrs, mutated); err != nil {
		return nil, err
	}

	for _, key := range m.arrayableAppends() {
		if attrs[key], err = m.mutateAttributeForArray(key, nil); err != nil {
			return nil, err
		}
	}

	for key, value := range attrs {
		if attrs[key], err = toPlain(value, forJSON); err != nil {
			return nil, err
		}
	}
	return attrs, nil
}

// arrayableItems applies visibility. A non-empty visible list wins over
// hidden.
func (m *Model) arrayableItems(values map[string]any) map[string]any {
	if len(m.visible) > 0 {
		out := make(map[string]any, len(m.visible))
		for _, key := range m.visible {
			if v, ok := values[key]; ok {
				out[key] = v
			}
		}
		return out
	}
	for _, key := range m.hidden {
		delete(values, key)
	}
	return values
}

func (m *Model) arrayableAppends() []string {
	if len(m.visible) > 0 {
		out := make([]string, 0, len(m.appends))
		for _, key := range m.appends {
			if slices.Contains(m.visible, key) {
				out = append(out, key)
			}
		}
		return out
	}
	return without(m.appends, m.hidden)
}

func (m *Model) addDateAttributesToArray(attrs map[string]any) error {
	for _, key := range m.dateFields {
		value, ok := attrs[key]
		if !ok || value == nil {
			continue
		}
		if m.HasCast(key) {
			continue
		}
		t, err := m.asDateTime(key, value)
		if err != nil {
			return err
		}
		attrs[key] = serializeDate(t)
	}
	return nil
}

// mutateAttributeForArray reads key through its class cast, accessor or
// getter mutator for the array view.
func (m *Model) mutateAttributeForArray(key string, value any) (any, error) {
	ct, ok, err := m.castFor(key)
	if err != nil {
		return nil, err
	}
	if ok && ct.kind == castClass {
		return m.getClassCastableAttributeValue(key, ct, value)
	}
	if m.hasAttributeGetMutator(key) {
		out, err := m.mutateAttributeMarkedAttribute(key, value)
		if err != nil {
			return nil, err
		}
		if t, ok := out.(time.Time); ok {
			return serializeDate(t), nil
		}
		return out, nil
	}
	if idx, ok := m.getMutator(key); ok {
		return m.mutateAttribute(key, idx, value)
	}
	return m.transformModelValue(key, value)
}

func (m *Model) addCastAttributesToArray(attrs map[string]any, mutated []string) error {
	for _, key := range sortedKeys(m.casts) {
		value, ok := attrs[key]
		if !ok || slices.Contains(mutated, key) {
			continue
		}
		ct, _, err := m.castFor(key)
		if err != nil {
			return err
		}

		out, err := m.castAttribute(key, ct, value)
		if err != nil {
			return err
		}

		if t, ok := out.(time.Time); ok {
			switch {
			case ct.isCustomDateCast():
				out = m.dateHandler.Format(t, ct.args[0])
			case ct.isDateCast(), ct.kind == castClass:
				out = serializeDate(t)
			}
		}

		if out != nil && ct.kind == castClass {
			if sc, ok := ct.caster.(SerializingCaster); ok {
				if out, err = sc.Serialize(m, key, out, m.rawCopy()); err != nil {
					return err
				}
			}
		}

		if ct.kind == castEnum {
			if e, ok := out.(Enum); ok {
				out = e.Value()
			}
		}

		attrs[key] = out
	}
	return nil
}

// toPlain converts a view value into maps, slices and scalars. With
// forJSON, JSONSerializable is preferred over Arrayable, enums become their
// backing value and times are rendered as text.
func toPlain(v any, forJSON bool) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case JSONSerializable:
		if forJSON {
			out, err := t.JSONSerialize()
			if err != nil {
				return nil, err
			}
			return toPlain(out, forJSON)
		}
	}

	switch t := v.(type) {
	case Arrayable:
		out, err := t.ToArray()
		if err != nil {
			return nil, err
		}
		return toPlain(out, forJSON)
	case Enum:
		if forJSON {
			return toPlain(t.Value(), forJSON)
		}
		return t, nil
	case time.Time:
		if forJSON {
			return serializeDate(t), nil
		}
		return t, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			p, err := toPlain(e, forJSON)
			if err != nil {
				return nil, err
			}
			out[k] = p
		}
		return out, nil
	case []byte:
		return t, nil
	}

	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Slice && !val.IsNil() {
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			p, err := toPlain(val.Index(i).Interface(), forJSON)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	}
	return v, nil
}
