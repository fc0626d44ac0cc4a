package hooks

import (
	"context"
	"sync"
)

// Extensions carries values between the hooks of a single pipeline call.
// A fresh value is created per call unless one is attached to the context.
type Extensions struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewExtensions() *Extensions {
	return &Extensions{values: make(map[string]any)}
}

func (e *Extensions) Set(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[key] = value
}

func (e *Extensions) Get(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[key]
	return v, ok
}

func (e *Extensions) Delete(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.values, key)
}

// Key gives typed access to one extension slot.
type Key[T any] struct {
	name string
}

func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

func (k Key[T]) Name() string { return k.name }

func (k Key[T]) Set(e *Extensions, value T) {
	e.Set(k.name, value)
}

// Get returns the zero value and false when the slot is empty or holds a
// value of another type.
func (k Key[T]) Get(e *Extensions) (T, bool) {
	var zero T
	v, ok := e.Get(k.name)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

type extensionsKey struct{}

// WithExtensions attaches ext to ctx so a pipeline call shares it with the caller.
func WithExtensions(ctx context.Context, ext *Extensions) context.Context {
	return context.WithValue(ctx, extensionsKey{}, ext)
}

func ExtensionsFrom(ctx context.Context) *Extensions {
	if ext, ok := ctx.Value(extensionsKey{}).(*Extensions); ok && ext != nil {
		return ext
	}
	return NewExtensions()
}
