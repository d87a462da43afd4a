package model

import (
	"context"
	"strings"
)

// Fill mass-assigns attributes through the guard. Keys are applied in
// sorted order.
//
// Keys outside the allow-list are dropped silently unless the model is
// totally guarded or strict mode is on, in which case a
// MassAssignmentError is returned.
func (m *Model) Fill(attributes map[string]any) error {
	filled, discarded, err := m.fill(attributes)
	emitFillComplete(context.Background(), m.Name(), filled, discarded, err)
	return err
}

func (m *Model) fill(attributes map[string]any) (filled, discarded int, err error) {
	totallyGuarded := m.TotallyGuarded()
	strict := m.registry.PreventsSilentlyDiscardingAttributes()
	allowed := m.fillableFromArray(attributes)

	for _, key := range sortedKeys(allowed) {
		if m.IsFillable(key) {
			if err := m.Set(key, allowed[key]); err != nil {
				return filled, discarded, err
			}
			filled++
			continue
		}
		discarded++
		if totallyGuarded || strict {
			return filled, discarded, &MassAssignmentError{Model: m.Name(), Keys: []string{key}}
		}
	}

	if len(allowed) != len(attributes) {
		dropped := make([]string, 0, len(attributes)-len(allowed))
		for _, key := range sortedKeys(attributes) {
			if _, ok := allowed[key]; !ok {
				dropped = append(dropped, key)
			}
		}
		discarded += len(dropped)
		if strict {
			return filled, discarded, &MassAssignmentError{Model: m.Name(), Keys: dropped, Discarded: true}
		}
	}

	return filled, discarded, nil
}

// ForceFill assigns attributes with the guard disabled.
func (m *Model) ForceFill(attributes map[string]any) error {
	return m.registry.Unguarded(func() error {
		return m.Fill(attributes)
	})
}

// fillableFromArray restricts attributes to the allow-list when one is
// declared and the guard is active.
func (m *Model) fillableFromArray(attributes map[string]any) map[string]any {
	if len(m.fillable) == 0 || m.registry.IsUnguarded() {
		return attributes
	}
	out := make(map[string]any, len(m.fillable))
	for _, key := range m.fillable {
		if v, ok := attributes[key]; ok {
			out[key] = v
		}
	}
	return out
}

// IsFillable reports whether key may be mass-assigned.
func (m *Model) IsFillable(key string) bool {
	if m.registry.IsUnguarded() {
		return true
	}
	return m.isFillableGuarded(key)
}

// isFillableGuarded answers IsFillable as if the guard were active.
func (m *Model) isFillableGuarded(key string) bool {
	for _, f := range m.fillable {
		if f == key {
			return true
		}
	}
	if m.IsGuarded(key) {
		return false
	}
	return len(m.fillable) == 0 && !strings.Contains(key, ".") && !strings.HasPrefix(key, "_")
}

// IsGuarded reports whether key is on the deny-list. Matching ignores case.
func (m *Model) IsGuarded(key string) bool {
	if len(m.guarded) == 0 {
		return false
	}
	for _, g := range m.guarded {
		if g == "*" || strings.EqualFold(g, key) {
			return true
		}
	}
	return false
}

// TotallyGuarded reports whether no field may be mass-assigned.
func (m *Model) TotallyGuarded() bool {
	return len(m.fillable) == 0 && len(m.guarded) == 1 && m.guarded[0] == "*"
}

// Unguarded runs fn with mass-assignment protection disabled. The previous
// state is restored when fn returns or panics. Scopes nest.
//
// The flag is registry-wide: models of other goroutines sharing the
// registry are unguarded for the duration of fn as well.
func (r *Registry) Unguarded(fn func() error) error {
	r.unguardDepth.Add(1)
	defer r.unguardDepth.Add(-1)
	return fn()
}

// Unguard disables mass-assignment protection until Reguard.
func (r *Registry) Unguard() {
	r.unguarded.Store(true)
}

// Reguard re-enables mass-assignment protection disabled by Unguard.
func (r *Registry) Reguard() {
	r.unguarded.Store(false)
}

// IsUnguarded reports whether mass-assignment protection is disabled.
func (r *Registry) IsUnguarded() bool {
	return r.unguarded.Load() || r.unguardDepth.Load() > 0
}

// PreventSilentlyDiscardingAttributes turns strict mode on or off. In
// strict mode Fill reports every key it would otherwise drop.
func (r *Registry) PreventSilentlyDiscardingAttributes(on bool) {
	r.strict.Store(on)
}

// PreventsSilentlyDiscardingAttributes reports whether strict mode is on.
func (r *Registry) PreventsSilentlyDiscardingAttributes() bool {
	return r.strict.Load()
}

// Unguarded runs fn with the default registry unguarded.
func Unguarded(fn func() error) error {
	return defaultRegistry.Unguarded(fn)
}

// PreventSilentlyDiscardingAttributes sets strict mode on the default registry.
func PreventSilentlyDiscardingAttributes(on bool) {
	defaultRegistry.PreventSilentlyDiscardingAttributes(on)
}
