// Package testing provides test utilities for models.
package testing

import (
	"strings"
	"testing"

	model "github.com/artisanbr/generic-model"
)

// TestKey returns a valid 32-byte AES key for testing.
func TestKey(tb testing.TB) []byte {
	tb.Helper()
	return []byte("32-byte-key-for-aes-256-encrypt!")
}

// TestEncryptor returns an AES encryptor configured for testing.
func TestEncryptor(tb testing.TB) model.Encryptor {
	tb.Helper()
	enc, err := model.AES(TestKey(tb))
	if err != nil {
		tb.Fatalf("AES encryptor: %v", err)
	}
	return enc
}

// Status is a string-backed enum used by the fixture schema.
type Status string

// Status members.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusBanned   Status = "banned"
)

// Value implements model.Enum.
func (s Status) Value() any { return string(s) }

// StatusEnum declares Status for casts.
var StatusEnum = model.NewEnumType("Status", StatusActive, StatusInactive, StatusBanned)

// UserSchema returns a fixture schema exercising the common casts,
// visibility lists and send rules.
func UserSchema() *model.Schema {
	return &model.Schema{
		Name:      "User",
		Fillable: []string{
			"first_name", "last_name", "nickname", "email", "age", "price",
			"meta", "status", "password", "ssn", "secret",
		},
		Hidden:    []string{"password"},
		Appends:   []string{"full_name"},
		Temporary: []string{"note"},
		Casts: map[string]model.Cast{
			"age":        model.As("integer"),
			"price":      model.As("decimal:2"),
			"meta":       model.As("json"),
			"status":     model.AsEnum(StatusEnum),
			"email":      model.As("encrypted"),
			"password":   model.As("hashed:sha256"),
			"created_at": model.As("datetime"),
		},
		Masks:   map[string]model.MaskType{"email": model.MaskEmail, "ssn": model.MaskSSN},
		Redacts: map[string]string{"secret": "[REDACTED]"},
	}
}

// User is a fixture model with mutators.
type User struct {
	*model.Model
}

// NewUser returns a User of UserSchema. The options are applied after the
// mutator owner is bound.
func NewUser(opts ...model.Option) *User {
	u := &User{}
	u.Model = model.New(UserSchema(), append([]model.Option{model.WithMutators(u)}, opts...)...)
	return u
}

// GetFullNameAttribute computes full_name from the name fields.
func (u *User) GetFullNameAttribute(_ any) any {
	first, _ := u.RawAttribute("first_name")
	last, _ := u.RawAttribute("last_name")
	return strings.TrimSpace(toText(first) + " " + toText(last))
}

// SetFirstNameAttribute stores first names trimmed.
func (u *User) SetFirstNameAttribute(value any) {
	u.SetRawAttribute("first_name", strings.TrimSpace(toText(value)))
}

// Nickname lower-cases nicknames on write and upper-cases them on read.
func (u *User) Nickname() model.Attribute {
	return model.NewAttribute(
		func(value any, _ map[string]any) (any, error) {
			return strings.ToUpper(toText(value)), nil
		},
		func(value any, _ map[string]any) (any, error) {
			return strings.ToLower(toText(value)), nil
		},
	)
}

func toText(v any) string {
	s, _ := v.(string)
	return s
}
