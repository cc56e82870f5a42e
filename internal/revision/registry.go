// Package revision tracks one opaque revision token per collection.
//
// A Registry is passed explicitly to every guard that writes a collection.
// Tokens change on every successful mutation and never on reads; they live
// for the lifetime of the registry.
package revision

import (
	"sync"

	"github.com/google/uuid"
)

// Registry holds the current token and the write lock of each collection.
type Registry struct {
	mu     sync.Mutex
	tokens map[string]string
	locks  map[string]*sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tokens: make(map[string]string),
		locks:  make(map[string]*sync.RWMutex),
	}
}

// Token returns the collection's current token, issuing one on first use.
func (r *Registry) Token(collection string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, ok := r.tokens[collection]
	if !ok {
		tok = newToken()
		r.tokens[collection] = tok
	}
	return tok
}

// Bump replaces the collection's token and returns the new one.
func (r *Registry) Bump(collection string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok := newToken()
	r.tokens[collection] = tok
	return tok
}

// Matches reports whether tok is the collection's current token.
func (r *Registry) Matches(collection, tok string) bool {
	return tok != "" && r.Token(collection) == tok
}

// Lock returns the collection's lock. Mutations hold it exclusively,
// queries hold it shared.
func (r *Registry) Lock(collection string) *sync.RWMutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[collection]
	if !ok {
		l = &sync.RWMutex{}
		r.locks[collection] = l
	}
	return l
}

// newToken generates a UUID v7 token, falling back to v4.
func newToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
