package model

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/iancoleman/strcase"
)

var (
	attributeType = reflect.TypeFor[Attribute]()
	anyType       = reflect.TypeFor[any]()
	errorType     = reflect.TypeFor[error]()

	getterPattern = regexp.MustCompile(`^Get(.+)Attribute$`)
	setterPattern = regexp.MustCompile(`^Set(.+)Attribute$`)
)

// mutatorSet indexes the mutator methods of one owner type by normalised
// field name.
type mutatorSet struct {
	getters   map[string]int
	setters   map[string]int
	accessors map[string]int
}

// accessorKey identifies an accessor-object method of one owner type.
type accessorKey struct {
	typ reflect.Type
	key string
}

// mutatorCache memoises mutator reflection per owner type. Method sets are
// invariant per type, so entries live as long as the registry.
type mutatorCache struct {
	mu          sync.RWMutex
	types       map[reflect.Type]*mutatorSet
	accessorGet map[accessorKey]bool
	accessorSet map[accessorKey]bool
	mutated     map[reflect.Type][]string
}

func newMutatorCache() *mutatorCache {
	return &mutatorCache{
		types:       make(map[reflect.Type]*mutatorSet),
		accessorGet: make(map[accessorKey]bool),
		accessorSet: make(map[accessorKey]bool),
		mutated:     make(map[reflect.Type][]string),
	}
}

func (c *mutatorCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = make(map[reflect.Type]*mutatorSet)
	c.accessorGet = make(map[accessorKey]bool)
	c.accessorSet = make(map[accessorKey]bool)
	c.mutated = make(map[reflect.Type][]string)
}

// normalizeField maps "full_name", "fullName" and "FullName" to one key.
func normalizeField(s string) string {
	return strcase.ToCamel(strcase.ToSnake(s))
}

// methods returns the mutator index of typ, scanning it once.
func (c *mutatorCache) methods(typ reflect.Type) *mutatorSet {
	c.mu.RLock()
	if set, ok := c.types[typ]; ok {
		c.mu.RUnlock()
		return set
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if set, ok := c.types[typ]; ok {
		return set
	}
	set := scanMutators(typ)
	c.types[typ] = set
	return set
}

func scanMutators(typ reflect.Type) *mutatorSet {
	set := &mutatorSet{
		getters:   make(map[string]int),
		setters:   make(map[string]int),
		accessors: make(map[string]int),
	}

	for i := 0; i < typ.NumMethod(); i++ {
		m := typ.Method(i)
		mt := m.Type // In(0) is the receiver

		if match := getterPattern.FindStringSubmatch(m.Name); match != nil && isGetterSignature(mt) {
			set.getters[normalizeField(match[1])] = m.Index
			continue
		}
		if match := setterPattern.FindStringSubmatch(m.Name); match != nil && isSetterSignature(mt) {
			set.setters[normalizeField(match[1])] = m.Index
			continue
		}
		if mt.NumIn() == 1 && mt.NumOut() == 1 && mt.Out(0) == attributeType {
			set.accessors[normalizeField(m.Name)] = m.Index
		}
	}

	return set
}

// isGetterSignature accepts func(any) T and func(any) (T, error).
func isGetterSignature(mt reflect.Type) bool {
	if mt.NumIn() != 2 || mt.In(1) != anyType {
		return false
	}
	switch mt.NumOut() {
	case 1:
		return true
	case 2:
		return mt.Out(1) == errorType
	}
	return false
}

// isSetterSignature accepts func(any) and func(any) error.
func isSetterSignature(mt reflect.Type) bool {
	if mt.NumIn() != 2 || mt.In(1) != anyType {
		return false
	}
	switch mt.NumOut() {
	case 0:
		return true
	case 1:
		return mt.Out(0) == errorType
	}
	return false
}

func (c *mutatorCache) getter(typ reflect.Type, key string) (int, bool) {
	idx, ok := c.methods(typ).getters[normalizeField(key)]
	return idx, ok
}

func (c *mutatorCache) setter(typ reflect.Type, key string) (int, bool) {
	idx, ok := c.methods(typ).setters[normalizeField(key)]
	return idx, ok
}

func (c *mutatorCache) accessor(typ reflect.Type, key string) (int, bool) {
	idx, ok := c.methods(typ).accessors[normalizeField(key)]
	return idx, ok
}

// accessorHas reports whether the accessor of key carries a get (or set)
// callback. Answering requires calling the method once per type and key.
func (c *mutatorCache) accessorHas(owner reflect.Value, key string, wantSet bool) bool {
	typ := owner.Type()
	ak := accessorKey{typ: typ, key: normalizeField(key)}

	cache := c.accessorGet
	if wantSet {
		cache = c.accessorSet
	}

	c.mu.RLock()
	has, ok := cache[ak]
	c.mu.RUnlock()
	if ok {
		return has
	}

	idx, found := c.accessor(typ, key)
	if found {
		attr := callAccessor(owner, idx)
		if wantSet {
			has = attr.Set != nil
		} else {
			has = attr.Get != nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if wantSet {
		c.accessorSet[ak] = has
	} else {
		c.accessorGet[ak] = has
	}
	return has
}

// mutatedAttributes lists the snake_case fields with a getter mutator or
// an accessor object carrying a get callback.
func (c *mutatorCache) mutatedAttributes(owner reflect.Value) []string {
	typ := owner.Type()

	c.mu.RLock()
	if names, ok := c.mutated[typ]; ok {
		c.mu.RUnlock()
		return names
	}
	c.mu.RUnlock()

	set := c.methods(typ)
	seen := make(map[string]bool)
	for name := range set.getters {
		seen[strcase.ToSnake(name)] = true
	}
	for name := range set.accessors {
		if c.accessorHas(owner, name, false) {
			seen[strcase.ToSnake(name)] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.mutated[typ]; ok {
		return cached
	}
	c.mutated[typ] = names
	return names
}

// argValue wraps v as a reflect value of interface type, nil included.
func argValue(v any) reflect.Value {
	return reflect.ValueOf(&v).Elem()
}

func callGetter(owner reflect.Value, idx int, value any) (any, error) {
	out := owner.Method(idx).Call([]reflect.Value{argValue(value)})
	if len(out) == 2 {
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, err
		}
	}
	return out[0].Interface(), nil
}

func callSetter(owner reflect.Value, idx int, value any) error {
	out := owner.Method(idx).Call([]reflect.Value{argValue(value)})
	if len(out) == 1 {
		if err, _ := out[0].Interface().(error); err != nil {
			return err
		}
	}
	return nil
}

func callAccessor(owner reflect.Value, idx int) Attribute {
	return owner.Method(idx).Call(nil)[0].Interface().(Attribute)
}

// getMutator returns the getter mutator method of key on the owner.
func (m *Model) getMutator(key string) (int, bool) {
	if !m.owner.IsValid() || strings.Contains(key, pathSeparator) {
		return 0, false
	}
	return m.registry.mutators.getter(m.owner.Type(), key)
}

// setMutator returns the setter mutator method of key on the owner.
func (m *Model) setMutator(key string) (int, bool) {
	if !m.owner.IsValid() || strings.Contains(key, pathSeparator) {
		return 0, false
	}
	return m.registry.mutators.setter(m.owner.Type(), key)
}

func (m *Model) hasAttributeGetMutator(key string) bool {
	if !m.owner.IsValid() || strings.Contains(key, pathSeparator) {
		return false
	}
	return m.registry.mutators.accessorHas(m.owner, key, false)
}

func (m *Model) hasAttributeSetMutator(key string) bool {
	if !m.owner.IsValid() || strings.Contains(key, pathSeparator) {
		return false
	}
	return m.registry.mutators.accessorHas(m.owner, key, true)
}

// accessorFor calls the accessor-object method of key.
func (m *Model) accessorFor(key string) (Attribute, bool) {
	if !m.owner.IsValid() {
		return Attribute{}, false
	}
	idx, ok := m.registry.mutators.accessor(m.owner.Type(), key)
	if !ok {
		return Attribute{}, false
	}
	return callAccessor(m.owner, idx), true
}

// mutatedAttributes lists the fields with a getter mutator or accessor.
func (m *Model) mutatedAttributes() []string {
	if !m.owner.IsValid() {
		return nil
	}
	return m.registry.mutators.mutatedAttributes(m.owner)
}

func (m *Model) mutateAttribute(key string, idx int, value any) (any, error) {
	out, err := callGetter(m.owner, idx, value)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return out, nil
}

func (m *Model) mutateAttributeMarkedAttribute(key string, value any) (any, error) {
	if cached, ok := m.attributeCastCache[key]; ok {
		return cached, nil
	}

	attr, _ := m.accessorFor(key)
	out := value
	if attr.Get != nil {
		var err error
		if out, err = attr.Get(value, m.rawCopy()); err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
	}

	if attr.cacheable(out) {
		m.attributeCastCache[key] = out
	} else {
		delete(m.attributeCastCache, key)
	}
	return out, nil
}

func (m *Model) setMutatedAttributeValue(key string, idx int, value any) error {
	if err := callSetter(m.owner, idx, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (m *Model) setAttributeMarkedMutatedAttributeValue(key string, value any) error {
	attr, _ := m.accessorFor(key)
	out, err := attr.Set(value, m.rawCopy())
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	m.mergeAccessorResponse(key, out)

	if attr.cacheable(value) {
		m.attributeCastCache[key] = value
	} else {
		delete(m.attributeCastCache, key)
	}
	return nil
}

// mergeAccessorResponse merges a map result into the store, or stores any
// other result under key.
func (m *Model) mergeAccessorResponse(key string, out any) {
	if pairs, ok := out.(map[string]any); ok {
		for k, v := range pairs {
			m.attributes[k] = v
		}
		return
	}
	m.attributes[key] = out
}
