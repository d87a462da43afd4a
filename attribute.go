package model

// AttributeFunc transforms the value of one field. attributes is a copy
// of the raw attributes of the model.
type AttributeFunc func(value any, attributes map[string]any) (any, error)

// Attribute is the descriptor returned by accessor-object methods.
//
// Get receives the raw value and returns the value exposed to callers.
// Set receives the value being written and returns either a map of raw
// key/value pairs to merge into the model or a single value stored under
// the field itself.
type Attribute struct {
	Get AttributeFunc
	Set AttributeFunc

	cache         bool
	noObjectCache bool
}

// NewAttribute returns an accessor with both callbacks. Either may be nil.
func NewAttribute(get, set AttributeFunc) Attribute {
	return Attribute{Get: get, Set: set}
}

// Getter returns a read-only accessor.
func Getter(get AttributeFunc) Attribute {
	return Attribute{Get: get}
}

// Setter returns a write-only accessor.
func Setter(set AttributeFunc) Attribute {
	return Attribute{Set: set}
}

// ShouldCache caches every value produced by Get, scalars included, until
// the field is written again.
func (a Attribute) ShouldCache() Attribute {
	a.cache = true
	return a
}

// WithoutObjectCaching disables the default caching of composite values.
func (a Attribute) WithoutObjectCaching() Attribute {
	a.noObjectCache = true
	return a
}

// cacheable reports whether value produced by Get may be cached.
func (a Attribute) cacheable(value any) bool {
	if a.cache {
		return true
	}
	return !a.noObjectCache && isComposite(value)
}
