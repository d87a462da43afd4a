package model

import (
	"fmt"
	"reflect"

	"github.com/spf13/cast"
)

// Enum is implemented by backed enumeration members. Value returns the
// backing value stored in the raw attributes.
type Enum interface {
	Value() any
}

// EnumType describes a closed set of enum members sharing one Go type.
type EnumType struct {
	name  string
	typ   reflect.Type
	cases []Enum
}

// NewEnumType declares an enum type. name is the registry name used by
// string specifiers.
func NewEnumType[E Enum](name string, cases ...E) *EnumType {
	t := &EnumType{
		name:  name,
		typ:   reflect.TypeFor[E](),
		cases: make([]Enum, len(cases)),
	}
	for i, c := range cases {
		t.cases[i] = c
	}
	return t
}

// Name returns the registry name of the enum.
func (t *EnumType) Name() string {
	return t.name
}

// Cases returns the members in declaration order.
func (t *EnumType) Cases() []Enum {
	out := make([]Enum, len(t.cases))
	copy(out, t.cases)
	return out
}

// Is reports whether v is a member instance of this enum.
func (t *EnumType) Is(v any) bool {
	return v != nil && reflect.TypeOf(v) == t.typ
}

// From returns the member backed by v.
func (t *EnumType) From(v any) (Enum, error) {
	if e, ok := t.TryFrom(v); ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %v is not a valid backing value for enum %s", ErrInvalidCast, v, t.name)
}

// TryFrom returns the member backed by v, or false.
func (t *EnumType) TryFrom(v any) (Enum, bool) {
	if t.Is(v) {
		return v.(Enum), true
	}
	for _, c := range t.cases {
		if sameBacking(c.Value(), v) {
			return c, true
		}
	}
	return nil, false
}

// sameBacking compares backing values, treating 1, 1.0 and "1" alike so
// members survive a trip through text codecs.
func sameBacking(backing, v any) bool {
	if backing == nil || v == nil {
		return backing == v
	}
	if reflect.TypeOf(backing) == reflect.TypeOf(v) && reflect.TypeOf(v).Comparable() {
		return backing == v
	}
	a, errA := cast.ToStringE(backing)
	b, errB := cast.ToStringE(v)
	return errA == nil && errB == nil && a == b
}
