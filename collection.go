package model

// Collection is the ordered sequence produced by collection casts.
type Collection []any

// All returns the underlying items.
func (c Collection) All() []any {
	return []any(c)
}

// Len returns the number of items.
func (c Collection) Len() int {
	return len(c)
}

// Get returns the item at i, or nil when out of range.
func (c Collection) Get(i int) any {
	if i < 0 || i >= len(c) {
		return nil
	}
	return c[i]
}

// Map returns a new collection with fn applied to every item.
func (c Collection) Map(fn func(item any, i int) any) Collection {
	out := make(Collection, len(c))
	for i, item := range c {
		out[i] = fn(item, i)
	}
	return out
}

// Filter returns the items for which fn reports true.
func (c Collection) Filter(fn func(item any, i int) bool) Collection {
	out := make(Collection, 0, len(c))
	for i, item := range c {
		if fn(item, i) {
			out = append(out, item)
		}
	}
	return out
}
