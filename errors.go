package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrMassAssignment indicates a write to a field the guard does not allow.
	ErrMassAssignment = errors.New("mass assignment")

	// ErrJSONEncoding indicates a value could not be encoded as JSON.
	ErrJSONEncoding = errors.New("json encoding failed")

	// ErrInvalidCast indicates a cast could not resolve a value.
	ErrInvalidCast = errors.New("invalid cast")

	// ErrInvalidCaster indicates a cast specifier names something that is not a usable caster.
	ErrInvalidCaster = errors.New("invalid caster")

	// ErrMissingEncrypter indicates an encrypted cast was used without an encrypter.
	ErrMissingEncrypter = errors.New("missing encrypter")

	// ErrMissingHasher indicates a hashed cast names an unregistered algorithm.
	ErrMissingHasher = errors.New("missing hasher")

	// ErrMissingMasker indicates a schema mask names an unregistered masker.
	ErrMissingMasker = errors.New("missing masker")

	// ErrInvalidTag indicates a schema struct tag has an invalid format or value.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrUnmarshal indicates the codec failed to unmarshal input data.
	ErrUnmarshal = errors.New("unmarshal failed")

	// ErrMarshal indicates the codec failed to marshal output data.
	ErrMarshal = errors.New("marshal failed")

	// ErrEncrypt indicates encryption of a field failed.
	ErrEncrypt = errors.New("encrypt failed")

	// ErrDecrypt indicates decryption of a field failed.
	ErrDecrypt = errors.New("decrypt failed")

	// ErrHash indicates hashing of a field failed.
	ErrHash = errors.New("hash failed")
)

// MassAssignmentError reports fields rejected by the mass-assignment guard.
type MassAssignmentError struct {
	Model string   // Class name of the model being filled
	Keys  []string // Rejected field names

	// Discarded is true when the keys were dropped by the allow-list
	// rather than refused individually.
	Discarded bool
}

func (e *MassAssignmentError) Error() string {
	if e.Discarded {
		return fmt.Sprintf("add fillable property [%s] to allow mass assignment on [%s]",
			strings.Join(e.Keys, ", "), e.Model)
	}
	return fmt.Sprintf("add [%s] to fillable property to allow mass assignment on [%s]",
		strings.Join(e.Keys, ", "), e.Model)
}

func (e *MassAssignmentError) Unwrap() error {
	return ErrMassAssignment
}

// JSONEncodingError reports a value that could not be stored or rendered as JSON.
type JSONEncodingError struct {
	Model string // Class name
	Key   string // Field name, empty when the whole model failed to encode
	Cause error  // Error from the encoder
}

func (e *JSONEncodingError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("unable to encode model [%s] to JSON: %v", e.Model, e.Cause)
	}
	return fmt.Sprintf("unable to encode attribute [%s] for model [%s] to JSON: %v", e.Key, e.Model, e.Cause)
}

func (e *JSONEncodingError) Unwrap() error {
	return ErrJSONEncoding
}

// InvalidCastError reports a cast that could not turn a raw value into its typed form.
type InvalidCastError struct {
	Model string // Class name
	Key   string // Field name
	Cast  string // Cast specifier
	Value any    // Raw value that failed
	Cause error
}

func (e *InvalidCastError) Error() string {
	msg := fmt.Sprintf("cannot cast [%s] on model [%s] with cast [%s]", e.Key, e.Model, e.Cast)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InvalidCastError) Unwrap() error {
	return ErrInvalidCast
}

// InvalidCasterError reports a cast specifier that does not resolve to a caster.
type InvalidCasterError struct {
	Model string // Class name, empty when resolved outside a model
	Key   string // Field name, empty when resolved outside a model
	Cast  string // Cast specifier
	Cause error
}

func (e *InvalidCasterError) Error() string {
	msg := fmt.Sprintf("cast [%s] is not a valid caster", e.Cast)
	if e.Key != "" {
		msg = fmt.Sprintf("cast [%s] for [%s] on model [%s] is not a valid caster", e.Cast, e.Key, e.Model)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InvalidCasterError) Unwrap() error {
	return ErrInvalidCaster
}

// ConfigError represents a configuration error.
// It wraps a sentinel error with additional context about the field and algorithm.
type ConfigError struct {
	Err       error  // Underlying sentinel error (ErrMissingEncrypter, etc.)
	Field     string // Field name that triggered the error
	Algorithm string // Algorithm or type that was missing/invalid
}

func (e *ConfigError) Error() string {
	if e.Field != "" && e.Algorithm != "" {
		return fmt.Sprintf("%s for algorithm %q (field %s)", e.Err.Error(), e.Algorithm, e.Field)
	}
	if e.Algorithm != "" {
		return fmt.Sprintf("%s for algorithm %q", e.Err.Error(), e.Algorithm)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s (field %s)", e.Err.Error(), e.Field)
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TransformError represents an error during field transformation.
// It wraps a sentinel error with context about which field and operation failed.
type TransformError struct {
	Err       error  // Underlying sentinel error (ErrEncrypt, ErrDecrypt, ErrHash)
	Field     string // Field name that failed
	Operation string // Operation that failed (encrypt, decrypt, hash)
	Cause     error  // Original error from the underlying operation
}

func (e *TransformError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s field %s: %v", e.Operation, e.Field, e.Cause)
	}
	return fmt.Sprintf("%s field %s", e.Operation, e.Field)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// CodecError represents a marshal/unmarshal error.
type CodecError struct {
	Err   error // Underlying sentinel error (ErrMarshal, ErrUnmarshal)
	Cause error // Original error from the codec
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Err.Error(), e.Cause)
	}
	return e.Err.Error()
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// newConfigError creates a ConfigError for missing handler scenarios.
func newConfigError(sentinel error, algorithm, field string) error {
	return &ConfigError{
		Err:       sentinel,
		Algorithm: algorithm,
		Field:     field,
	}
}

// newTransformError creates a TransformError for field transformation failures.
func newTransformError(sentinel error, operation, field string, cause error) error {
	return &TransformError{
		Err:       sentinel,
		Field:     field,
		Operation: operation,
		Cause:     cause,
	}
}

// newCodecError creates a CodecError for marshal/unmarshal failures.
func newCodecError(sentinel error, cause error) error {
	return &CodecError{
		Err:   sentinel,
		Cause: cause,
	}
}
