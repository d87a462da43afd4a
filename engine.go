package model

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// pathSeparator splits a JSON path write such as "meta->color".
const pathSeparator = "->"

// Get returns the value of key after mutators and casts.
//
// Precedence: getter mutator, accessor object, declared cast, date field,
// raw value.
func (m *Model) Get(key string) (any, error) {
	if key == "" {
		return nil, nil
	}
	return m.transformModelValue(key, m.attributes[key])
}

// MustGet is like Get but panics on error.
func (m *Model) MustGet(key string) any {
	v, err := m.Get(key)
	if err != nil {
		panic(err)
	}
	return v
}

func (m *Model) transformModelValue(key string, value any) (any, error) {
	if idx, ok := m.getMutator(key); ok {
		return m.mutateAttribute(key, idx, value)
	}
	if m.hasAttributeGetMutator(key) {
		return m.mutateAttributeMarkedAttribute(key, value)
	}

	ct, ok, err := m.castFor(key)
	if err != nil {
		return nil, err
	}
	if ok {
		return m.castAttribute(key, ct, value)
	}

	if value != nil && m.isDateField(key) {
		return m.asDateTime(key, value)
	}
	return value, nil
}

// Set writes value to key.
//
// Precedence: setter mutator, accessor object, date normalisation, enum
// cast, class cast, JSON encoding, path write, encryption, hashing.
func (m *Model) Set(key string, value any) error {
	if idx, ok := m.setMutator(key); ok {
		return m.setMutatedAttributeValue(key, idx, value)
	}
	if m.hasAttributeSetMutator(key) {
		return m.setAttributeMarkedMutatedAttributeValue(key, value)
	}
	// A get-only accessor must not keep serving the value it read before this write.
	delete(m.attributeCastCache, key)

	ct, hasCast, err := m.castFor(key)
	if err != nil {
		return err
	}

	if !isBlank(value) && m.isDateAttribute(key, ct) {
		if value, err = m.fromDateTime(key, value); err != nil {
			return err
		}
	}

	if hasCast && ct.kind == castEnum {
		m.setEnumCastableAttribute(key, ct, value)
		return nil
	}
	if hasCast && ct.kind == castClass {
		return m.setClassCastableAttribute(key, ct, value)
	}

	if value != nil && hasCast && ct.isJSONCast() {
		if value, err = m.castAttributeAsJSON(key, value); err != nil {
			return err
		}
	}

	if strings.Contains(key, pathSeparator) {
		return m.fillJSONAttribute(key, value)
	}

	if value != nil && hasCast && ct.isEncryptedCast() {
		if value, err = m.castAttributeAsEncryptedString(key, value); err != nil {
			return err
		}
	}

	if value != nil && hasCast && ct.is("hashed") {
		if value, err = m.castAttributeAsHashedString(key, ct, value); err != nil {
			return err
		}
	}

	m.attributes[key] = value
	return nil
}

// castAttribute runs a raw value through its declared cast.
func (m *Model) castAttribute(key string, ct *castType, value any) (any, error) {
	switch ct.kind {
	case castEnum:
		return m.getEnumCastableAttributeValue(key, ct, value)
	case castClass:
		return m.getClassCastableAttributeValue(key, ct, value)
	}

	if value == nil {
		return nil, nil
	}

	name := ct.name
	if ct.isEncryptedCast() {
		plain, err := m.fromEncryptedString(key, value)
		if err != nil {
			return nil, err
		}
		value = plain
		name = strings.TrimPrefix(name, "encrypted:")
	}

	switch name {
	case "int", "integer":
		return toInt(value), nil
	case "real", "float", "double":
		return toFloat(value), nil
	case "decimal":
		d, err := toDecimal(value, ct.digits)
		if err != nil {
			return nil, m.invalidCast(key, ct, value, err)
		}
		return d, nil
	case "string":
		return toString(value), nil
	case "bool", "boolean":
		return toBool(value), nil
	case "object":
		return m.decodeJSON(key, ct, value, true)
	case "array", "json":
		return m.decodeJSON(key, ct, value, false)
	case "collection":
		decoded, err := m.decodeJSON(key, ct, value, false)
		if err != nil {
			return nil, err
		}
		return toCollection(decoded), nil
	case "date", "immutable_date":
		t, err := m.asDateTime(key, value)
		if err != nil {
			return nil, err
		}
		return startOfDay(t), nil
	case "datetime", "custom_datetime", "immutable_datetime", "immutable_custom_datetime":
		return m.asDateTime(key, value)
	case "timestamp":
		t, err := m.asDateTime(key, value)
		if err != nil {
			return nil, err
		}
		return t.Unix(), nil
	}

	// encrypted and hashed expose the stored text.
	return value, nil
}

func (m *Model) decodeJSON(key string, ct *castType, value any, asObject bool) (any, error) {
	decoded, err := fromJSON(m.codec, value, asObject)
	if err != nil {
		return nil, m.invalidCast(key, ct, value, err)
	}
	return decoded, nil
}

func (m *Model) invalidCast(key string, ct *castType, value any, cause error) error {
	return &InvalidCastError{Model: m.Name(), Key: key, Cast: ct.spec, Value: value, Cause: cause}
}

// getEnumCastableAttributeValue returns the enum member backing value.
func (m *Model) getEnumCastableAttributeValue(key string, ct *castType, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	e, err := ct.enum.From(value)
	if err != nil {
		return nil, m.invalidCast(key, ct, value, err)
	}
	return e, nil
}

// setEnumCastableAttribute stores the backing value of value, or nil when
// value matches no member.
func (m *Model) setEnumCastableAttribute(key string, ct *castType, value any) {
	if value == nil {
		m.attributes[key] = nil
		return
	}
	if e, ok := ct.enum.TryFrom(value); ok {
		m.attributes[key] = e.Value()
		return
	}
	m.attributes[key] = nil
}

// getClassCastableAttributeValue delegates to the caster, caching composite
// results until the field is written again.
func (m *Model) getClassCastableAttributeValue(key string, ct *castType, value any) (any, error) {
	if cached, ok := m.classCastCache[key]; ok {
		return cached, nil
	}

	out, err := ct.caster.Get(m, key, value, m.rawCopy())
	if err != nil {
		return nil, err
	}

	if isComposite(out) {
		m.classCastCache[key] = out
	} else {
		delete(m.classCastCache, key)
	}
	return out, nil
}

func (m *Model) setClassCastableAttribute(key string, ct *castType, value any) error {
	pairs, err := ct.caster.Set(m, key, value, m.rawCopy())
	if err != nil {
		return err
	}
	m.mergeCastResponse(key, pairs)
	delete(m.classCastCache, key)
	return nil
}

// mergeCastResponse merges caster output into the store. An empty response
// clears key.
func (m *Model) mergeCastResponse(key string, pairs map[string]any) {
	if len(pairs) == 0 {
		m.attributes[key] = nil
		return
	}
	for k, v := range pairs {
		m.attributes[k] = v
	}
}

// mergeAttributesFromCachedCasts writes cached caster and accessor values
// back into the store so in-place changes to them are not lost.
func (m *Model) mergeAttributesFromCachedCasts() error {
	for _, key := range sortedKeys(m.classCastCache) {
		ct, ok, err := m.castFor(key)
		if err != nil {
			return err
		}
		if !ok || ct.kind != castClass {
			continue
		}
		pairs, err := ct.caster.Set(m, key, m.classCastCache[key], m.rawCopy())
		if err != nil {
			return err
		}
		m.mergeCastResponse(key, pairs)
	}

	for _, key := range sortedKeys(m.attributeCastCache) {
		attr, ok := m.accessorFor(key)
		if !ok || attr.Set == nil {
			continue
		}
		out, err := attr.Set(m.attributeCastCache[key], m.rawCopy())
		if err != nil {
			return err
		}
		m.mergeAccessorResponse(key, out)
	}
	return nil
}

// castAttributeAsJSON encodes value for a JSON cast.
func (m *Model) castAttributeAsJSON(key string, value any) (string, error) {
	value, err := toPlain(value, true)
	if err != nil {
		return "", err
	}
	text, err := asJSON(m.codec, value)
	if err != nil {
		return "", &JSONEncodingError{Model: m.Name(), Key: key, Cause: err}
	}
	return text, nil
}

// fillJSONAttribute writes value at a nested path of a JSON attribute.
func (m *Model) fillJSONAttribute(key string, value any) error {
	base, path, _ := strings.Cut(key, pathSeparator)

	obj, err := m.getArrayAttributeByKey(base)
	if err != nil {
		return err
	}
	setPath(obj, strings.Split(path, pathSeparator), value)

	text, err := asJSON(m.codec, obj)
	if err != nil {
		return &JSONEncodingError{Model: m.Name(), Key: base, Cause: err}
	}

	var stored any = text
	ct, ok, err := m.castFor(base)
	if err != nil {
		return err
	}
	if ok && ct.isEncryptedCast() {
		if stored, err = m.castAttributeAsEncryptedString(base, text); err != nil {
			return err
		}
	}
	m.attributes[base] = stored

	if ok && ct.kind == castClass {
		delete(m.classCastCache, base)
	}
	return nil
}

// getArrayAttributeByKey decodes the JSON object stored at key, decrypting
// it first when the field is encrypted.
func (m *Model) getArrayAttributeByKey(key string) (map[string]any, error) {
	raw, ok := m.attributes[key]
	if !ok || raw == nil {
		return make(map[string]any), nil
	}

	ct, hasCast, err := m.castFor(key)
	if err != nil {
		return nil, err
	}
	if hasCast && ct.isEncryptedCast() {
		if raw, err = m.fromEncryptedString(key, raw); err != nil {
			return nil, err
		}
	}

	decoded, err := fromJSON(m.codec, raw, true)
	if err != nil {
		return nil, &InvalidCastError{Model: m.Name(), Key: key, Cast: "json", Value: raw, Cause: err}
	}
	if obj, ok := decoded.(map[string]any); ok {
		return obj, nil
	}
	return make(map[string]any), nil
}

// setPath assigns value at path inside obj, replacing non-object
// intermediates.
func setPath(obj map[string]any, path []string, value any) {
	for _, seg := range path[:len(path)-1] {
		next, ok := obj[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			obj[seg] = next
		}
		obj = next
	}
	obj[path[len(path)-1]] = value
}

func (m *Model) encrypterFor(key string) (Encryptor, error) {
	if m.encrypter != nil {
		return m.encrypter, nil
	}
	if enc := m.registry.Encrypter(); enc != nil {
		return enc, nil
	}
	return nil, newConfigError(ErrMissingEncrypter, "", key)
}

func (m *Model) castAttributeAsEncryptedString(key string, value any) (string, error) {
	enc, err := m.encrypterFor(key)
	if err != nil {
		return "", err
	}
	text, err := encryptString(enc, toString(value))
	if err != nil {
		return "", newTransformError(ErrEncrypt, "encrypt", key, err)
	}
	return text, nil
}

func (m *Model) fromEncryptedString(key string, value any) (string, error) {
	enc, err := m.encrypterFor(key)
	if err != nil {
		return "", err
	}
	plain, err := decryptString(enc, toString(value))
	if err != nil {
		return "", newTransformError(ErrDecrypt, "decrypt", key, err)
	}
	return plain, nil
}

// castAttributeAsHashedString hashes value unless it already is a hash of
// the configured algorithm.
func (m *Model) castAttributeAsHashedString(key string, ct *castType, value any) (string, error) {
	algo := HashAlgo(ct.args[0])
	text := toString(value)
	if alreadyHashed(algo, text) {
		return text, nil
	}

	h, ok := m.registry.hasher(algo)
	if !ok {
		return "", newConfigError(ErrMissingHasher, string(algo), key)
	}
	hashed, err := h.Hash([]byte(text))
	if err != nil {
		return "", newTransformError(ErrHash, "hash", key, err)
	}
	return hashed, nil
}

// isDateField reports whether key is a declared date field without a cast.
func (m *Model) isDateField(key string) bool {
	for _, d := range m.dateFields {
		if d == key {
			return true
		}
	}
	return false
}

// isDateAttribute reports whether writes to key are normalised to the
// storage layout.
func (m *Model) isDateAttribute(key string, ct *castType) bool {
	return m.isDateField(key) || (ct != nil && ct.isDateCast())
}

func (m *Model) asDateTime(key string, value any) (time.Time, error) {
	t, err := m.dateHandler.Parse(value, m.dateFormat)
	if err != nil {
		return time.Time{}, &InvalidCastError{Model: m.Name(), Key: key, Cast: "datetime", Value: value, Cause: err}
	}
	return t, nil
}

// fromDateTime converts value to the storage layout.
func (m *Model) fromDateTime(key string, value any) (string, error) {
	t, err := m.asDateTime(key, value)
	if err != nil {
		return "", err
	}
	return m.dateHandler.Format(t, m.dateFormat), nil
}

// isBlank reports whether v is falsy: nil, false, zero numbers, "" and
// "0", and empty lists and maps.
func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == "" || t == "0"
	case bool:
		return !t
	case time.Time:
		return false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// String implements fmt.Stringer for debugging.
func (m *Model) String() string {
	return fmt.Sprintf("%s%v", m.Name(), m.attributes)
}
