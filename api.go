// Package model provides a storage-agnostic attribute model: a bag of raw
// named values with casting, mutators, mass-assignment protection and
// serialization views.
//
// The package never persists anything. Callers load raw values into a
// Model, read typed values back out through the cast pipeline, and project
// the model into plain maps or JSON when it crosses a boundary.
//
// # Schemas
//
// A Schema is the class-level declaration shared by every model of a kind:
//
//	var userSchema = &model.Schema{
//	    Name:     "User",
//	    Fillable: []string{"name", "email", "age"},
//	    Hidden:   []string{"password"},
//	    Casts: map[string]model.Cast{
//	        "age":      model.As("integer"),
//	        "price":    model.As("decimal:2"),
//	        "meta":     model.As("json"),
//	        "status":   model.AsEnum(statusEnum),
//	        "password": model.As("hashed:bcrypt"),
//	    },
//	}
//
// Schemas can also be declared with struct tags through SchemaOf:
//
//	type userAttributes struct {
//	    Name  string `attr:"name" model:"fillable"`
//	    Email string `attr:"email" model:"fillable" cast:"encrypted" mask:"email"`
//	    Age   int    `attr:"age" model:"fillable" cast:"integer"`
//	}
//
//	schema, err := model.SchemaOf[userAttributes]("User")
//
// # Mutators
//
// A type that embeds *Model can supply per-field transforms through methods
// discovered by reflection once per type:
//
//	type User struct{ *model.Model }
//
//	func NewUser() *User {
//	    u := &User{}
//	    u.Model = model.New(userSchema, model.WithMutators(u))
//	    return u
//	}
//
//	// Getter mutator for "full_name".
//	func (u *User) GetFullNameAttribute(value any) any { ... }
//
//	// Setter mutator for "email".
//	func (u *User) SetEmailAttribute(value any) error { ... }
//
//	// Accessor object for "first_name".
//	func (u *User) FirstName() model.Attribute {
//	    return model.NewAttribute(get, set)
//	}
//
// # Casts
//
// Primitive casts: int, integer, real, float, double, decimal:<digits>,
// string, bool, boolean, object, array, json, collection, date, datetime,
// date:<layout>, datetime:<layout>, immutable_date, immutable_datetime,
// timestamp, encrypted, encrypted:array, encrypted:collection,
// encrypted:json, encrypted:object, hashed, hashed:<algo>.
//
// Anything else names an entry of the Registry: a Caster, a Castable or a
// CasterFactory, optionally followed by colon-delimited arguments
// ("Money:USD,2").
//
// # Views
//
//   - ToArray: visible attributes with mutators, casts and appends applied
//   - JSONSerialize: the same projection minus appends and temporary fields
//   - ToJSON: JSONSerialize encoded as JSON text
//   - ToFillable: the array view restricted to mass-assignable fields
//
// # Boundaries
//
// Processor moves models across four boundaries with any Codec:
//
//   - receive: external input, applied through Fill
//   - load: storage input, applied as raw attributes
//   - store: raw attributes out to storage
//   - send: the JSON view out to clients, with masks and redactions
package model

// Caster is a pluggable field transform used when a cast names a
// non-primitive type.
type Caster interface {
	// Get turns the raw value of key into its typed form.
	// attributes is a copy of every raw attribute of the model.
	Get(m *Model, key string, value any, attributes map[string]any) (any, error)

	// Set turns a typed value back into raw attributes. The returned pairs
	// are merged into the model verbatim, so one field may write several
	// raw keys.
	Set(m *Model, key string, value any, attributes map[string]any) (map[string]any, error)
}

// SerializingCaster customises how a class-cast value appears in the array view.
type SerializingCaster interface {
	Caster

	// Serialize returns the array-view form of a value produced by Get.
	Serialize(m *Model, key string, value any, attributes map[string]any) (any, error)
}

// Castable is implemented by types that supply their own caster.
// The arguments are the comma separated values following the colon of the
// cast specifier.
type Castable interface {
	CastUsing(args []string) (Caster, error)
}

// CasterFactory builds a caster from specifier arguments.
type CasterFactory func(args ...string) (Caster, error)

// Arrayable is implemented by values that project into a plain map.
type Arrayable interface {
	ToArray() (map[string]any, error)
}

// JSONSerializable is implemented by values with a dedicated JSON projection.
// The JSON view prefers it over Arrayable.
type JSONSerializable interface {
	JSONSerialize() (map[string]any, error)
}

// Modeler is implemented by *Model and every type embedding it.
type Modeler interface {
	Base() *Model
}
