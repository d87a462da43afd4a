package model

import (
	"fmt"
	"strings"
)

// Cast declares how a field is transformed on read and write.
// It is a tagged variant: a specifier string, an enum type, a caster
// instance, or a castable with arguments. Build one with As, AsEnum,
// Using or UsingCastable.
type Cast struct {
	spec     string
	enum     *EnumType
	caster   Caster
	castable Castable
	args     []string
}

// As declares a cast by specifier: a primitive type ("integer",
// "decimal:2", "encrypted:array") or a registry name with optional
// arguments ("Money:USD,2").
func As(spec string) Cast {
	return Cast{spec: spec}
}

// AsEnum declares an enum cast.
func AsEnum(t *EnumType) Cast {
	return Cast{enum: t}
}

// Using declares a cast handled by the given caster.
func Using(c Caster) Cast {
	return Cast{caster: c}
}

// UsingCastable declares a cast whose caster is supplied by c.
func UsingCastable(c Castable, args ...string) Cast {
	return Cast{castable: c, args: args}
}

// String returns a readable form of the cast for errors and events.
func (c Cast) String() string {
	switch {
	case c.spec != "":
		return c.spec
	case c.enum != nil:
		return c.enum.Name()
	case c.caster != nil:
		return fmt.Sprintf("%T", c.caster)
	case c.castable != nil:
		if len(c.args) > 0 {
			return fmt.Sprintf("%T:%s", c.castable, strings.Join(c.args, ","))
		}
		return fmt.Sprintf("%T", c.castable)
	}
	return ""
}

// castKind classifies a resolved cast.
type castKind int

const (
	castPrimitive castKind = iota
	castEnum
	castClass
)

func (k castKind) String() string {
	switch k {
	case castEnum:
		return "enum"
	case castClass:
		return "class"
	}
	return "primitive"
}

// castType is a cast resolved to exactly one transformation path.
type castType struct {
	kind   castKind
	spec   string   // specifier as declared
	name   string   // normalised primitive name ("int", "decimal", "custom_datetime", ...)
	args   []string // decimal digits, datetime layout, hash algorithm
	digits int      // decimal places, parsed from args when resolved
	enum   *EnumType
	caster Caster
}

// primitiveCastTypes lists every cast name handled without a caster.
var primitiveCastTypes = map[string]bool{
	"array":                     true,
	"bool":                      true,
	"boolean":                   true,
	"collection":                true,
	"custom_datetime":           true,
	"date":                      true,
	"datetime":                  true,
	"decimal":                   true,
	"double":                    true,
	"encrypted":                 true,
	"encrypted:array":           true,
	"encrypted:collection":      true,
	"encrypted:json":            true,
	"encrypted:object":          true,
	"float":                     true,
	"hashed":                    true,
	"immutable_date":            true,
	"immutable_datetime":        true,
	"immutable_custom_datetime": true,
	"int":                       true,
	"integer":                   true,
	"json":                      true,
	"object":                    true,
	"real":                      true,
	"string":                    true,
	"timestamp":                 true,
}

// parsePrimitive normalises a primitive specifier. The second result is
// false when spec does not name a primitive cast.
func parsePrimitive(spec string) (*castType, bool) {
	lower := strings.ToLower(strings.TrimSpace(spec))

	prefixed := func(prefix, name string) (*castType, bool) {
		if !strings.HasPrefix(lower, prefix) {
			return nil, false
		}
		// Layouts keep their case.
		arg := strings.TrimSpace(spec)[len(prefix):]
		return &castType{kind: castPrimitive, spec: spec, name: name, args: []string{arg}}, true
	}

	if ct, ok := prefixed("immutable_datetime:", "immutable_custom_datetime"); ok {
		return ct, true
	}
	if ct, ok := prefixed("immutable_date:", "immutable_custom_datetime"); ok {
		return ct, true
	}
	if ct, ok := prefixed("datetime:", "custom_datetime"); ok {
		return ct, true
	}
	if ct, ok := prefixed("date:", "custom_datetime"); ok {
		return ct, true
	}
	if ct, ok := prefixed("decimal:", "decimal"); ok {
		return ct, true
	}
	if ct, ok := prefixed("hashed:", "hashed"); ok {
		ct.args[0] = strings.ToLower(ct.args[0])
		return ct, true
	}
	if !primitiveCastTypes[lower] || lower == "custom_datetime" || lower == "immutable_custom_datetime" {
		return nil, false
	}

	ct := &castType{kind: castPrimitive, spec: spec, name: lower}
	if lower == "hashed" {
		ct.args = []string{string(HashBcrypt)}
	}
	return ct, true
}

// splitCasterSpec splits "Name:arg1,arg2" into its class name and arguments.
func splitCasterSpec(spec string) (string, []string) {
	name, rest, found := strings.Cut(spec, ":")
	if !found {
		return name, nil
	}
	return name, strings.Split(rest, ",")
}

// isDateCast reports whether the cast produces a timestamp.
func (ct *castType) isDateCast() bool {
	switch ct.name {
	case "date", "datetime", "immutable_date", "immutable_datetime",
		"custom_datetime", "immutable_custom_datetime":
		return ct.kind == castPrimitive
	}
	return false
}

// isCustomDateCast reports whether the cast carries its own layout.
func (ct *castType) isCustomDateCast() bool {
	return ct.kind == castPrimitive &&
		(ct.name == "custom_datetime" || ct.name == "immutable_custom_datetime")
}

// isJSONCast reports whether writes encode the value as JSON text.
func (ct *castType) isJSONCast() bool {
	if ct.kind != castPrimitive {
		return false
	}
	switch ct.name {
	case "array", "json", "object", "collection",
		"encrypted:array", "encrypted:collection", "encrypted:json", "encrypted:object":
		return true
	}
	return false
}

// isEncryptedCast reports whether the raw value is ciphertext.
func (ct *castType) isEncryptedCast() bool {
	return ct.kind == castPrimitive && strings.HasPrefix(ct.name, "encrypted")
}

// is reports whether the cast is a primitive with one of the given names.
func (ct *castType) is(names ...string) bool {
	if ct.kind != castPrimitive {
		return false
	}
	for _, n := range names {
		if ct.name == n {
			return true
		}
	}
	return false
}
