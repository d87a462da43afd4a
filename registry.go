package model

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
)

// Registry holds the process-wide state shared by every model: named
// casters and enums, resolved cast specifiers, mutator reflection results,
// hashers, the default encrypter and the mass-assignment flags.
//
// Registries are safe for concurrent use. Most programs use Default; tests
// and embedders can isolate state with NewRegistry and WithRegistry.
type Registry struct {
	mu        sync.RWMutex
	casters   map[string]any
	enums     map[string]*EnumType
	casts     map[string]*castType
	hashers   map[HashAlgo]Hasher
	encrypter Encryptor

	mutators *mutatorCache

	unguardDepth atomic.Int64
	unguarded    atomic.Bool
	strict       atomic.Bool
}

var defaultRegistry = NewRegistry()

// Default returns the shared registry used by models built without WithRegistry.
func Default() *Registry {
	return defaultRegistry
}

// NewRegistry returns an empty registry with the builtin hashers.
func NewRegistry() *Registry {
	return &Registry{
		casters:  make(map[string]any),
		enums:    make(map[string]*EnumType),
		casts:    make(map[string]*castType),
		hashers:  builtinHashers(),
		mutators: newMutatorCache(),
	}
}

// RegisterCaster makes c available to casts naming it.
func (r *Registry) RegisterCaster(name string, c Caster) *Registry {
	return r.register(name, c)
}

// RegisterCastable makes c available to casts naming it. Specifier
// arguments are passed to c.CastUsing.
func (r *Registry) RegisterCastable(name string, c Castable) *Registry {
	return r.register(name, c)
}

// RegisterCasterFactory makes f available to casts naming it. Specifier
// arguments are passed to f.
func (r *Registry) RegisterCasterFactory(name string, f CasterFactory) *Registry {
	return r.register(name, f)
}

// Register stores an arbitrary value under name. Resolution fails with
// InvalidCasterError unless v is a Caster, Castable or CasterFactory.
func (r *Registry) Register(name string, v any) *Registry {
	return r.register(name, v)
}

func (r *Registry) register(name string, v any) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.casters[name] = v
	r.casts = make(map[string]*castType)
	return r
}

// RegisterEnum makes t available to casts naming t.Name().
func (r *Registry) RegisterEnum(t *EnumType) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enums[t.Name()] = t
	r.casts = make(map[string]*castType)
	return r
}

// SetHasher registers a hasher for the given algorithm.
func (r *Registry) SetHasher(algo HashAlgo, h Hasher) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashers[algo] = h
	return r
}

// EncryptUsing sets the encrypter used by models without their own.
func (r *Registry) EncryptUsing(enc Encryptor) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encrypter = enc
	return r
}

// Encrypter returns the registry-wide encrypter, or nil.
func (r *Registry) Encrypter() Encryptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.encrypter
}

func (r *Registry) hasher(algo HashAlgo) (Hasher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hashers[algo]
	return h, ok
}

// Reset clears registrations, caches and flags.
// This is primarily useful for test isolation.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.casters = make(map[string]any)
	r.enums = make(map[string]*EnumType)
	r.casts = make(map[string]*castType)
	r.hashers = builtinHashers()
	r.encrypter = nil
	r.mu.Unlock()

	r.mutators.reset()

	r.unguardDepth.Store(0)
	r.unguarded.Store(false)
	r.strict.Store(false)
}

// resolve turns a declared cast into its transformation path.
func (r *Registry) resolve(c Cast) (*castType, error) {
	switch {
	case c.enum != nil:
		return &castType{kind: castEnum, spec: c.String(), enum: c.enum}, nil
	case c.caster != nil:
		return &castType{kind: castClass, spec: c.String(), caster: c.caster}, nil
	case c.castable != nil:
		caster, err := c.castable.CastUsing(c.args)
		if err != nil {
			return nil, &InvalidCasterError{Cast: c.String(), Cause: err}
		}
		if caster == nil {
			return nil, &InvalidCasterError{Cast: c.String(), Cause: errors.New("castable returned no caster")}
		}
		return &castType{kind: castClass, spec: c.String(), caster: caster}, nil
	case c.spec != "":
		return r.resolveSpec(c.spec)
	}
	return nil, &InvalidCasterError{Cause: errors.New("empty cast")}
}

// resolveSpec resolves a specifier string once per registry.
func (r *Registry) resolveSpec(spec string) (*castType, error) {
	// Fast path: read-lock cache check
	r.mu.RLock()
	if ct, ok := r.casts[spec]; ok {
		r.mu.RUnlock()
		return ct, nil
	}
	r.mu.RUnlock()

	// Built outside the lock: factories and castables may call back into the registry.
	ct, err := r.buildSpec(spec)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	// Double-check pattern
	if cached, ok := r.casts[spec]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.casts[spec] = ct
	r.mu.Unlock()

	if ct.kind != castPrimitive {
		emitCastResolved(context.Background(), spec, ct.kind)
	}
	return ct, nil
}

func (r *Registry) buildSpec(spec string) (*castType, error) {
	if ct, ok := parsePrimitive(spec); ok {
		switch ct.name {
		case "decimal":
			if len(ct.args) > 0 {
				digits, err := strconv.Atoi(ct.args[0])
				if err != nil || digits < 0 {
					return nil, &InvalidCasterError{Cast: spec, Cause: fmt.Errorf("invalid decimal places %q", ct.args[0])}
				}
				ct.digits = digits
			}
		case "hashed":
			if !IsValidHashAlgo(HashAlgo(ct.args[0])) {
				return nil, &InvalidCasterError{Cast: spec, Cause: fmt.Errorf("unknown hash algorithm %q", ct.args[0])}
			}
		}
		return ct, nil
	}

	name, args := splitCasterSpec(spec)

	r.mu.RLock()
	enum, isEnum := r.enums[name]
	entry, ok := r.casters[name]
	r.mu.RUnlock()

	if isEnum {
		return &castType{kind: castEnum, spec: spec, enum: enum}, nil
	}
	if !ok {
		return nil, &InvalidCasterError{Cast: spec, Cause: fmt.Errorf("nothing registered under %q", name)}
	}

	caster, err := casterFrom(entry, args)
	if err != nil {
		return nil, &InvalidCasterError{Cast: spec, Cause: err}
	}
	return &castType{kind: castClass, spec: spec, args: args, caster: caster}, nil
}

// casterFrom builds a caster from a registry entry. Castable is checked
// first so a type may supply a different caster than itself.
func casterFrom(entry any, args []string) (Caster, error) {
	var (
		c   Caster
		err error
	)
	switch v := entry.(type) {
	case Castable:
		c, err = v.CastUsing(args)
	case CasterFactory:
		c, err = v(args...)
	case func(args ...string) (Caster, error):
		c, err = v(args...)
	case Caster:
		c = v
	default:
		return nil, fmt.Errorf("%T implements neither Caster nor Castable", entry)
	}
	if err != nil {
		return nil, err
	}
	if c == nil || (reflect.ValueOf(c).Kind() == reflect.Pointer && reflect.ValueOf(c).IsNil()) {
		return nil, errors.New("resolved to a nil caster")
	}
	return c, nil
}

// processorKey combines type and codec for processor cache lookup.
type processorKey struct {
	typ         reflect.Type
	contentType string
}

var (
	processors   = make(map[processorKey]any)
	processorsMu sync.RWMutex
)

// Use returns a cached processor or builds a new one.
// The processor is cached by model type and codec content type.
func Use[M Modeler](codec Codec, factory func() M) (*Processor[M], error) {
	typ := reflect.TypeFor[M]()
	key := processorKey{typ: typ, contentType: codec.ContentType()}

	// Fast path: read-lock cache check
	processorsMu.RLock()
	if cached, ok := processors[key]; ok {
		processorsMu.RUnlock()
		return cached.(*Processor[M]), nil
	}
	processorsMu.RUnlock()

	// Slow path: build and cache with write-lock
	processorsMu.Lock()
	defer processorsMu.Unlock()

	// Double-check pattern
	if cached, ok := processors[key]; ok {
		return cached.(*Processor[M]), nil
	}

	processor, err := NewProcessor[M](codec, factory)
	if err != nil {
		return nil, err
	}

	processors[key] = processor
	return processor, nil
}

// Reset clears the processor cache and the default registry.
// This is primarily useful for test isolation.
func Reset() {
	processorsMu.Lock()
	processors = make(map[processorKey]any)
	processorsMu.Unlock()

	defaultRegistry.Reset()
}
