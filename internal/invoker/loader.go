// Package invoker loads handlers and executes them against synthesized
// invocation events under a hard deadline.
package invoker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/contracts"
)

// Handler resolution and execution errors.
var (
	// ErrHandlerNotFound is returned when a handler reference is unknown
	ErrHandlerNotFound = errors.New("handler not found")
	// ErrHandlerNotCallable is returned when the resolved entry is not invocable
	ErrHandlerNotCallable = errors.New("handler is not callable")
	// ErrHandlerTimeout is returned when the deadline elapses before completion
	ErrHandlerTimeout = errors.New("handler timed out")
)

// Registry is the in-process handler registry. It implements
// contracts.Loader and is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]contracts.Handler
}

// NewRegistry creates a new handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]contracts.Handler),
	}
}

// Ensure interface compliance
var _ contracts.Loader = (*Registry)(nil)

// Register binds a handler to a reference. Registering nil reserves the
// reference but resolving it reports ErrHandlerNotCallable.
func (r *Registry) Register(ref string, handler contracts.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[ref] = handler
}

// Resolve returns the handler for ref.
func (r *Registry) Resolve(ref string) (contracts.Handler, error) {
	r.mu.RLock()
	handler, ok := r.handlers[ref]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, ref)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotCallable, ref)
	}
	return handler, nil
}

// Refs returns all registered handler references.
func (r *Registry) Refs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make([]string, 0, len(r.handlers))
	for ref := range r.handlers {
		refs = append(refs, ref)
	}
	return refs
}

// ReloadingLoader caches resolved handlers per reference. Unless invalidation
// is skipped, the cached entry is discarded before every resolve so that
// handler edits are picked up without a process restart. The cache is shared
// across all polling loops and safe for concurrent use.
type ReloadingLoader struct {
	base             contracts.Loader
	skipInvalidation bool

	mu    sync.Mutex
	cache map[string]contracts.Handler
}

// NewReloadingLoader wraps a base loader with the invalidate-before-load
// policy.
func NewReloadingLoader(base contracts.Loader, skipInvalidation bool) *ReloadingLoader {
	return &ReloadingLoader{
		base:             base,
		skipInvalidation: skipInvalidation,
		cache:            make(map[string]contracts.Handler),
	}
}

// Ensure interface compliance
var _ contracts.Loader = (*ReloadingLoader)(nil)

// Resolve returns the handler for ref, reloading it from the base loader
// unless a cached entry survives the invalidation policy.
func (l *ReloadingLoader) Resolve(ref string) (contracts.Handler, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.skipInvalidation {
		delete(l.cache, ref)
	}
	if handler, ok := l.cache[ref]; ok {
		return handler, nil
	}

	handler, err := l.base.Resolve(ref)
	if err != nil {
		return nil, err
	}
	l.cache[ref] = handler
	return handler, nil
}

// Invalidate drops the cached entry for ref regardless of policy.
func (l *ReloadingLoader) Invalidate(ref string) {
	l.mu.Lock()
	delete(l.cache, ref)
	l.mu.Unlock()
}
