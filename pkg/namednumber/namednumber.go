// Package namednumber defines the numeric protocol constants that appear in
// packet headers together with their symbolic names.
//
// Every type resolves a name for a raw value (Name), formats itself as
// "value (name)" (String) and supports reverse lookup by name. Lookups are
// case-insensitive. Names may be added at init time with the RegisterXxx
// functions; the tables are guarded so that lookups stay safe afterwards.
package namednumber

import (
	"strings"
	"sync"
)

const unknownName = "unknown"

type number interface {
	~uint8 | ~uint16 | ~int
}

// registry maps values of one named-number class to names and back.
type registry[T number] struct {
	mu     sync.RWMutex
	names  map[T]string
	values map[string]T
}

func newRegistry[T number](names map[T]string) *registry[T] {
	r := &registry[T]{
		names:  make(map[T]string, len(names)),
		values: make(map[string]T, len(names)),
	}
	for v, n := range names {
		r.register(v, n)
	}
	return r
}

func (r *registry[T]) name(v T) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.names[v]; ok {
		return n
	}
	return unknownName
}

func (r *registry[T]) known(v T) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[v]
	return ok
}

func (r *registry[T]) lookup(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[strings.ToLower(name)]
	return v, ok
}

func (r *registry[T]) register(v T, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.names[v]; ok {
		delete(r.values, strings.ToLower(old))
	}
	r.names[v] = name
	r.values[strings.ToLower(name)] = v
}
