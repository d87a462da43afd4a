package model

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"sync"
	"time"
)

// Processor moves models of one kind across system boundaries with a codec.
// Use Receive/Load for ingress and Store/Send for egress.
//
// Processors are safe for concurrent use. SetMasker may be called at any
// time to replace a masker.
//
// Validation occurs automatically on first operation. Configure all
// required maskers and casts before the first call to Receive, Load, Store,
// or Send.
type Processor[M Modeler] struct {
	codec   Codec
	factory func() M

	// Mutable configuration protected by mu
	mu      sync.RWMutex
	maskers map[MaskType]Masker

	// Validation state (runs once on first operation)
	validateOnce sync.Once
	validateErr  error

	schema   *Schema
	registry *Registry
	typeName string
}

// NewProcessor creates a Processor for the models built by factory.
//
// The processor is created with the builtin maskers. Mask types declared
// by the schema are checked immediately; casts are checked by Validate.
func NewProcessor[M Modeler](codec Codec, factory func() M) (*Processor[M], error) {
	if codec == nil {
		return nil, errors.New("processor requires a codec")
	}
	if factory == nil {
		return nil, errors.New("processor requires a model factory")
	}

	sample := factory().Base()
	schema := sample.Schema()

	for _, field := range sortedKeys(schema.Masks) {
		if mt := schema.Masks[field]; !IsValidMaskType(mt) {
			return nil, &ConfigError{Err: ErrInvalidTag, Field: field, Algorithm: string(mt)}
		}
	}

	p := &Processor[M]{
		codec:    codec,
		factory:  factory,
		maskers:  builtinMaskers(),
		schema:   schema,
		registry: sample.Registry(),
		typeName: schema.Name,
	}

	emitProcessorCreated(context.Background(), codec.ContentType(), p.typeName)
	return p, nil
}

// SetMasker registers a masker for the given type.
// Returns the processor for chaining. Safe for concurrent use.
func (p *Processor[M]) SetMasker(mt MaskType, m Masker) *Processor[M] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maskers[mt] = m
	return p
}

// Validate checks that every cast of the schema resolves and every mask has
// a masker.
//
// Validation also runs automatically on first operation. Calling Validate
// explicitly allows catching configuration errors at startup.
func (p *Processor[M]) Validate() error {
	return p.ensureValidated()
}

// ensureValidated runs validation once and caches the result.
func (p *Processor[M]) ensureValidated() error {
	p.validateOnce.Do(func() {
		p.mu.RLock()
		defer p.mu.RUnlock()
		p.validateErr = p.validateCapabilities()
	})
	return p.validateErr
}

func (p *Processor[M]) validateCapabilities() error {
	if err := p.schema.Validate(p.registry); err != nil {
		return err
	}
	// Skip masker checks if the model masks itself
	if _, ok := any(p.factory()).(Maskable); ok {
		return nil
	}
	for _, field := range sortedKeys(p.schema.Masks) {
		mt := p.schema.Masks[field]
		if _, ok := p.maskers[mt]; !ok {
			return newConfigError(ErrMissingMasker, string(mt), field)
		}
	}
	return nil
}

// Receive decodes external input and mass-assigns it to a new model.
// Use for data coming from external sources (API requests, events).
//
//nolint:dupl // Intentional parallel structure with Load for boundary operations
func (p *Processor[M]) Receive(ctx context.Context, data []byte) (M, error) {
	var zero M
	if err := p.ensureValidated(); err != nil {
		return zero, err
	}

	start := time.Now()
	emitReceiveStart(ctx, p.codec.ContentType(), p.typeName)

	var retErr error
	defer func() {
		emitReceiveComplete(ctx, p.codec.ContentType(), p.typeName, len(data), time.Since(start), retErr)
	}()

	input, err := p.decode(data)
	if err != nil {
		retErr = err
		return zero, retErr
	}

	obj := p.factory()
	if err := obj.Base().Fill(input); err != nil {
		retErr = err
		return zero, retErr
	}
	return obj, nil
}

// Load decodes stored raw attributes into a new model and syncs its
// original state.
// Use for data coming from storage (database, cache).
//
//nolint:dupl // Intentional parallel structure with Receive for boundary operations
func (p *Processor[M]) Load(ctx context.Context, data []byte) (M, error) {
	var zero M
	if err := p.ensureValidated(); err != nil {
		return zero, err
	}

	start := time.Now()
	emitLoadStart(ctx, p.codec.ContentType(), p.typeName)

	var retErr error
	defer func() {
		emitLoadComplete(ctx, p.codec.ContentType(), p.typeName, len(data), time.Since(start), retErr)
	}()

	raw, err := p.decode(data)
	if err != nil {
		retErr = err
		return zero, retErr
	}

	obj := p.factory()
	obj.Base().SetRawAttributes(raw, true)
	return obj, nil
}

// Store encodes the raw attributes of obj.
// Use for data going to storage (database, cache).
func (p *Processor[M]) Store(ctx context.Context, obj M) ([]byte, error) {
	if err := p.ensureValidated(); err != nil {
		return nil, err
	}

	start := time.Now()
	emitStoreStart(ctx, p.codec.ContentType(), p.typeName)

	var retErr error
	var retData []byte
	defer func() {
		emitStoreComplete(ctx, p.codec.ContentType(), p.typeName, len(retData), time.Since(start), retErr)
	}()

	if isNilModel(obj) {
		retData, retErr = p.encode(nil)
		return retData, retErr
	}

	attrs, err := obj.Base().Attributes()
	if err != nil {
		retErr = err
		return nil, retErr
	}

	retData, retErr = p.encode(attrs)
	return retData, retErr
}

// Send encodes the JSON view of obj after applying the schema's masks and
// redactions.
// Use for data going to external destinations (API responses, events).
func (p *Processor[M]) Send(ctx context.Context, obj M) ([]byte, error) {
	if err := p.ensureValidated(); err != nil {
		return nil, err
	}

	start := time.Now()
	emitSendStart(ctx, p.codec.ContentType(), p.typeName)

	var retErr error
	var retData []byte
	var masked, redacted int
	defer func() {
		emitSendComplete(ctx, p.codec.ContentType(), p.typeName,
			len(retData), time.Since(start), masked, redacted, retErr)
	}()

	if isNilModel(obj) {
		retData, retErr = p.encode(nil)
		return retData, retErr
	}

	view, err := obj.Base().JSONSerialize()
	if err != nil {
		retErr = err
		return nil, retErr
	}

	if mk, ok := any(obj).(Maskable); ok {
		p.mu.RLock()
		maskers := maps.Clone(p.maskers)
		p.mu.RUnlock()
		if err := mk.Mask(view, maskers); err != nil {
			retErr = fmt.Errorf("mask: %w", err)
			return nil, retErr
		}
	} else {
		p.mu.RLock()
		masked = p.applyMask(view)
		p.mu.RUnlock()
	}

	if r, ok := any(obj).(Redactable); ok {
		if err := r.Redact(view); err != nil {
			retErr = fmt.Errorf("redact: %w", err)
			return nil, retErr
		}
	} else {
		redacted = p.applyRedact(view)
	}

	retData, retErr = p.encode(view)
	return retData, retErr
}

// applyMask masks the string content of masked fields present in view.
func (p *Processor[M]) applyMask(view map[string]any) int {
	count := 0
	for _, field := range sortedKeys(p.schema.Masks) {
		value, ok := view[field]
		if !ok || value == nil {
			continue
		}
		view[field] = maskValue(p.maskers[p.schema.Masks[field]], value)
		count++
	}
	return count
}

// applyRedact replaces redacted fields present in view.
func (p *Processor[M]) applyRedact(view map[string]any) int {
	count := 0
	for _, field := range sortedKeys(p.schema.Redacts) {
		if _, ok := view[field]; !ok {
			continue
		}
		view[field] = p.schema.Redacts[field]
		count++
	}
	return count
}

func (p *Processor[M]) decode(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := p.codec.Unmarshal(data, &raw); err != nil {
		return nil, newCodecError(ErrUnmarshal, err)
	}
	return raw, nil
}

func (p *Processor[M]) encode(v any) ([]byte, error) {
	data, err := p.codec.Marshal(v)
	if err != nil {
		return nil, newCodecError(ErrMarshal, err)
	}
	return data, nil
}

func isNilModel[M Modeler](obj M) bool {
	v := reflect.ValueOf(obj)
	if !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return true
	}
	return obj.Base() == nil
}
