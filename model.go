package model

import (
	"errors"
	"maps"
	"reflect"
	"slices"
	"sort"
)

// Option configures a Model.
type Option func(*Model)

// WithRegistry binds the model to r instead of the default registry.
func WithRegistry(r *Registry) Option {
	return func(m *Model) {
		if r != nil {
			m.registry = r
		}
	}
}

// WithMutators sets the value whose methods supply getter mutators,
// setter mutators and accessor objects. It is normally the struct that
// embeds the model.
func WithMutators(owner any) Option {
	return func(m *Model) {
		if owner != nil {
			m.owner = reflect.ValueOf(owner)
		}
	}
}

// WithEncrypter sets the encrypter for encrypted casts, overriding the
// registry-wide one.
func WithEncrypter(enc Encryptor) Option {
	return func(m *Model) {
		m.encrypter = enc
	}
}

// WithDateHandler replaces the date parser and formatter.
func WithDateHandler(h DateHandler) Option {
	return func(m *Model) {
		if h != nil {
			m.dateHandler = h
		}
	}
}

// WithCodec replaces the codec used by JSON casts and ToJSON.
func WithCodec(c Codec) Option {
	return func(m *Model) {
		if c != nil {
			m.codec = c
		}
	}
}

// Model holds the raw attributes of one entity and the rules for reading,
// writing and projecting them.
//
// A Model is not safe for concurrent use.
type Model struct {
	schema      *Schema
	registry    *Registry
	owner       reflect.Value
	encrypter   Encryptor
	dateHandler DateHandler
	codec       Codec

	attributes map[string]any
	original   map[string]any

	// Typed values produced by casters and accessor objects, keyed by field.
	classCastCache     map[string]any
	attributeCastCache map[string]any

	fillable   []string
	guarded    []string
	hidden     []string
	visible    []string
	appends    []string
	temporary  []string
	dateFields []string
	casts      map[string]Cast
	dateFormat string

	resolved map[string]*castType
}

// New returns an empty model of the given schema.
func New(schema *Schema, opts ...Option) *Model {
	if schema == nil {
		schema = &Schema{Name: "Model"}
	}

	m := &Model{
		schema:             schema,
		registry:           defaultRegistry,
		dateHandler:        DateHandlerIn(nil),
		codec:              JSON(),
		attributes:         make(map[string]any),
		original:           make(map[string]any),
		classCastCache:     make(map[string]any),
		attributeCastCache: make(map[string]any),
		fillable:           slices.Clone(schema.Fillable),
		guarded:            slices.Clone(schema.Guarded),
		hidden:             slices.Clone(schema.Hidden),
		visible:            slices.Clone(schema.Visible),
		appends:            slices.Clone(schema.Appends),
		temporary:          slices.Clone(schema.Temporary),
		dateFields:         slices.Clone(schema.Dates),
		casts:              maps.Clone(schema.Casts),
		dateFormat:         schema.DateFormat,
		resolved:           make(map[string]*castType),
	}
	if m.casts == nil {
		m.casts = make(map[string]Cast)
	}
	if m.dateFormat == "" {
		m.dateFormat = DefaultDateFormat
	}

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Base returns m. It lets types embedding *Model satisfy Modeler.
func (m *Model) Base() *Model {
	return m
}

// Schema returns the schema the model was built from.
func (m *Model) Schema() *Schema {
	return m.schema
}

// Name returns the class name used in errors and events.
func (m *Model) Name() string {
	return m.schema.Name
}

// Registry returns the registry the model resolves casts against.
func (m *Model) Registry() *Registry {
	return m.registry
}

// DateFormat returns the storage layout for date attributes.
func (m *Model) DateFormat() string {
	return m.dateFormat
}

// inherited returns the options a nested model takes from its parent.
func (m *Model) inherited() []Option {
	return []Option{
		WithRegistry(m.registry),
		WithEncrypter(m.encrypter),
		WithDateHandler(m.dateHandler),
		WithCodec(m.codec),
	}
}

// RawAttribute returns the stored value of key without any transformation.
func (m *Model) RawAttribute(key string) (any, bool) {
	v, ok := m.attributes[key]
	return v, ok
}

// SetRawAttribute stores value under key verbatim.
func (m *Model) SetRawAttribute(key string, value any) {
	m.attributes[key] = value
	delete(m.classCastCache, key)
	delete(m.attributeCastCache, key)
}

// SetRawAttributes replaces the whole store. Cached cast values are
// dropped; with sync the original snapshot is replaced too.
func (m *Model) SetRawAttributes(attributes map[string]any, sync bool) {
	m.attributes = maps.Clone(attributes)
	if m.attributes == nil {
		m.attributes = make(map[string]any)
	}
	m.classCastCache = make(map[string]any)
	m.attributeCastCache = make(map[string]any)

	if sync {
		m.original = cloneAttributes(m.attributes)
	}
}

// Attributes returns a copy of the raw attributes after writing cached
// caster and accessor values back through their setters.
func (m *Model) Attributes() (map[string]any, error) {
	if err := m.mergeAttributesFromCachedCasts(); err != nil {
		return nil, err
	}
	return maps.Clone(m.attributes), nil
}

// rawCopy returns a shallow copy of the store for caster callbacks.
func (m *Model) rawCopy() map[string]any {
	return maps.Clone(m.attributes)
}

// SyncOriginal snapshots the current attributes as the original state.
func (m *Model) SyncOriginal() error {
	attrs, err := m.Attributes()
	if err != nil {
		return err
	}
	m.original = cloneAttributes(attrs)
	return nil
}

// Original returns a deep copy of the original snapshot.
func (m *Model) Original() map[string]any {
	return cloneAttributes(m.original)
}

// RawOriginal returns the original raw value of key.
func (m *Model) RawOriginal(key string) (any, bool) {
	v, ok := m.original[key]
	return v, ok
}

// Dirty returns the attributes whose raw value differs from the original.
func (m *Model) Dirty() (map[string]any, error) {
	attrs, err := m.Attributes()
	if err != nil {
		return nil, err
	}
	dirty := make(map[string]any)
	for k, v := range attrs {
		old, ok := m.original[k]
		if !ok || !equivalent(old, v) {
			dirty[k] = v
		}
	}
	return dirty, nil
}

// IsDirty reports whether any of keys changed, or any attribute at all
// when keys is empty.
func (m *Model) IsDirty(keys ...string) (bool, error) {
	dirty, err := m.Dirty()
	if err != nil {
		return false, err
	}
	if len(keys) == 0 {
		return len(dirty) > 0, nil
	}
	for _, k := range keys {
		if _, ok := dirty[k]; ok {
			return true, nil
		}
	}
	return false, nil
}

// IsClean is the negation of IsDirty.
func (m *Model) IsClean(keys ...string) (bool, error) {
	dirty, err := m.IsDirty(keys...)
	return !dirty, err
}

// Fillable returns the mass-assignment allow-list.
func (m *Model) Fillable() []string { return slices.Clone(m.fillable) }

// Guarded returns the mass-assignment deny-list.
func (m *Model) Guarded() []string { return slices.Clone(m.guarded) }

// Hidden returns the fields excluded from the views.
func (m *Model) Hidden() []string { return slices.Clone(m.hidden) }

// Visible returns the fields the views are restricted to.
func (m *Model) Visible() []string { return slices.Clone(m.visible) }

// Appends returns the computed fields added to the array view.
func (m *Model) Appends() []string { return slices.Clone(m.appends) }

// Temporary returns the fields never included in the JSON view.
func (m *Model) Temporary() []string { return slices.Clone(m.temporary) }

// Dates returns the fields treated as dates without a cast.
func (m *Model) Dates() []string { return slices.Clone(m.dateFields) }

// SetFillable replaces the allow-list.
func (m *Model) SetFillable(fields ...string) *Model {
	m.fillable = slices.Clone(fields)
	return m
}

// MergeFillable adds fields to the allow-list.
func (m *Model) MergeFillable(fields ...string) *Model {
	m.fillable = union(m.fillable, fields)
	return m
}

// SetGuarded replaces the deny-list.
func (m *Model) SetGuarded(fields ...string) *Model {
	m.guarded = slices.Clone(fields)
	return m
}

// MergeGuarded adds fields to the deny-list.
func (m *Model) MergeGuarded(fields ...string) *Model {
	m.guarded = union(m.guarded, fields)
	return m
}

// SetHidden replaces the hidden fields.
func (m *Model) SetHidden(fields ...string) *Model {
	m.hidden = slices.Clone(fields)
	return m
}

// SetVisible replaces the visible fields.
func (m *Model) SetVisible(fields ...string) *Model {
	m.visible = slices.Clone(fields)
	return m
}

// SetAppends replaces the appended fields.
func (m *Model) SetAppends(fields ...string) *Model {
	m.appends = slices.Clone(fields)
	return m
}

// Append adds computed fields to the array view.
func (m *Model) Append(fields ...string) *Model {
	m.appends = union(m.appends, fields)
	return m
}

// MakeVisible un-hides fields, and adds them to the visible list when one
// is in use.
func (m *Model) MakeVisible(fields ...string) *Model {
	m.hidden = without(m.hidden, fields)
	if len(m.visible) > 0 {
		m.visible = union(m.visible, fields)
	}
	return m
}

// MakeHidden hides fields.
func (m *Model) MakeHidden(fields ...string) *Model {
	m.hidden = union(m.hidden, fields)
	m.visible = without(m.visible, fields)
	return m
}

// Casts returns a copy of the declared casts.
func (m *Model) Casts() map[string]Cast {
	return maps.Clone(m.casts)
}

// HasCast reports whether key declares a cast.
func (m *Model) HasCast(key string) bool {
	_, ok := m.casts[key]
	return ok
}

// MergeCasts adds or replaces cast declarations.
func (m *Model) MergeCasts(casts map[string]Cast) *Model {
	for k, c := range casts {
		m.casts[k] = c
		delete(m.resolved, k)
		delete(m.classCastCache, k)
	}
	return m
}

// castFor resolves the declared cast of key. The second result is false
// when key has no cast.
func (m *Model) castFor(key string) (*castType, bool, error) {
	c, ok := m.casts[key]
	if !ok {
		return nil, false, nil
	}
	if ct, ok := m.resolved[key]; ok {
		return ct, true, nil
	}

	ct, err := m.registry.resolve(c)
	if err != nil {
		var ice *InvalidCasterError
		if errors.As(err, &ice) {
			ice.Model, ice.Key = m.Name(), key
		}
		return nil, true, err
	}
	m.resolved[key] = ct
	return ct, true, nil
}

// sortedKeys returns the keys of attrs in order.
func sortedKeys[V any](attrs map[string]V) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, s := range b {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func without(a, b []string) []string {
	out := make([]string, 0, len(a))
	for _, s := range a {
		if !slices.Contains(b, s) {
			out = append(out, s)
		}
	}
	return out
}
