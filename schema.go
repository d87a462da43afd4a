package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/zoobzio/sentinel"
)

func init() {
	// Register schema tags with sentinel
	sentinel.Tag("attr")
	sentinel.Tag("cast")
	sentinel.Tag("model")
	sentinel.Tag("mask")
	sentinel.Tag("redact")
}

// GuardAll is the deny-list of a totally guarded schema.
var GuardAll = []string{"*"}

// Schema is the class-level declaration shared by every model of a kind.
// Models copy the lists on construction, so a schema may be shared freely
// but should not be modified once models exist.
type Schema struct {
	// Name identifies the class in errors, events and registry lookups.
	Name string

	Fillable  []string // Mass-assignment allow-list
	Guarded   []string // Mass-assignment deny-list, empty means open
	Hidden    []string // Fields excluded from the views
	Visible   []string // Fields the views are restricted to
	Appends   []string // Computed fields added to the array view
	Temporary []string // Fields never included in the JSON view
	Dates     []string // Fields parsed as dates without a cast

	Casts map[string]Cast

	// DateFormat is the Go layout dates are stored in.
	// Defaults to DefaultDateFormat.
	DateFormat string

	// Masks and Redacts apply when a Processor sends the model.
	Masks   map[string]MaskType
	Redacts map[string]string
}

// CastUsing makes a schema usable as a cast: "Address" stores one nested
// model and "Address:collection" a list of them.
func (s *Schema) CastUsing(args []string) (Caster, error) {
	if len(args) == 0 || args[0] == "" {
		return AsModel(s), nil
	}
	if args[0] == "collection" {
		return asCollectionOfSchema(s), nil
	}
	return nil, fmt.Errorf("unknown schema cast argument %q", args[0])
}

// Validate resolves every cast and mask of the schema against r, reporting
// the first misconfiguration.
func (s *Schema) Validate(r *Registry) error {
	if r == nil {
		r = defaultRegistry
	}
	for _, key := range sortedKeys(s.Casts) {
		if _, err := r.resolve(s.Casts[key]); err != nil {
			var ice *InvalidCasterError
			if errors.As(err, &ice) {
				ice.Model, ice.Key = s.Name, key
			}
			return err
		}
	}
	for _, key := range sortedKeys(s.Masks) {
		if !IsValidMaskType(s.Masks[key]) {
			return &ConfigError{Err: ErrInvalidTag, Field: key, Algorithm: string(s.Masks[key])}
		}
	}
	return nil
}

// schemaFlags maps model tag flags to the list they add a field to.
var schemaFlags = map[string]func(s *Schema, field string){
	"fillable":  func(s *Schema, f string) { s.Fillable = append(s.Fillable, f) },
	"guarded":   func(s *Schema, f string) { s.Guarded = append(s.Guarded, f) },
	"hidden":    func(s *Schema, f string) { s.Hidden = append(s.Hidden, f) },
	"visible":   func(s *Schema, f string) { s.Visible = append(s.Visible, f) },
	"append":    func(s *Schema, f string) { s.Appends = append(s.Appends, f) },
	"temporary": func(s *Schema, f string) { s.Temporary = append(s.Temporary, f) },
	"date":      func(s *Schema, f string) { s.Dates = append(s.Dates, f) },
}

// SchemaOf builds a schema from the struct tags of T:
//
//	attr:"name"              field name, defaults to the snake_case Go name; "-" skips
//	cast:"decimal:2"         cast specifier
//	model:"fillable,hidden"  fillable, guarded, hidden, visible, append, temporary, date
//	mask:"email"             mask applied on send
//	redact:"***"             replacement applied on send
//
// name defaults to the type name of T.
func SchemaOf[T any](name string) (*Schema, error) {
	spec := sentinel.Scan[T]()
	rt := reflect.TypeFor[T]()

	s := &Schema{
		Name:    name,
		Casts:   make(map[string]Cast),
		Masks:   make(map[string]MaskType),
		Redacts: make(map[string]string),
	}
	if s.Name == "" {
		s.Name = spec.TypeName
	}

	for _, field := range spec.Fields {
		tag := func(key string) (string, bool) {
			if v, ok := field.Tags[key]; ok {
				return v, true
			}
			return rt.FieldByIndex(field.Index).Tag.Lookup(key)
		}

		attr, _ := tag("attr")
		if attr == "-" {
			continue
		}
		if attr == "" {
			attr = strcase.ToSnake(field.Name)
		}

		if c, ok := tag("cast"); ok && c != "" {
			s.Casts[attr] = As(c)
		}

		if flags, ok := tag("model"); ok && flags != "" {
			for _, flag := range strings.Split(flags, ",") {
				flag = strings.TrimSpace(flag)
				add, known := schemaFlags[flag]
				if !known {
					return nil, &ConfigError{Err: ErrInvalidTag, Field: field.Name, Algorithm: flag}
				}
				add(s, attr)
			}
		}

		if mt, ok := tag("mask"); ok && mt != "" {
			if !IsValidMaskType(MaskType(mt)) {
				return nil, &ConfigError{Err: ErrInvalidTag, Field: field.Name, Algorithm: mt}
			}
			s.Masks[attr] = MaskType(mt)
		}

		if r, ok := tag("redact"); ok {
			s.Redacts[attr] = r
		}
	}

	return s, nil
}
