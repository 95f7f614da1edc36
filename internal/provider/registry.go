package provider

import (
	"context"
	"io"
	"sort"
	"sync"
)

// Factory builds the client for one provider kind.
type Factory[T any] func(ctx context.Context, kind string) (T, error)

// Registry lazily builds and caches one client per provider kind. Different
// kinds coexist; asking for a new kind never evicts an old one. Failed
// constructions are not cached, so a fixed configuration can be retried.
type Registry[T any] struct {
	factory Factory[T]

	mu      sync.Mutex
	entries map[string]*entry[T]
}

// entry is one kind's client. done is closed once client and err are set.
type entry[T any] struct {
	done   chan struct{}
	client T
	err    error
}

// NewRegistry returns an empty registry backed by factory.
func NewRegistry[T any](factory Factory[T]) *Registry[T] {
	return &Registry[T]{
		factory: factory,
		entries: make(map[string]*entry[T]),
	}
}

// Get returns the cached client for kind, building it on first use.
// Concurrent first calls for the same kind share one construction; other
// kinds are served while it runs. A caller waiting on another caller's
// construction returns early when ctx ends.
func (r *Registry[T]) Get(ctx context.Context, kind string) (T, error) {
	r.mu.Lock()
	e, ok := r.entries[kind]
	if !ok {
		e = &entry[T]{done: make(chan struct{})}
		r.entries[kind] = e
	}
	r.mu.Unlock()

	if ok {
		select {
		case <-e.done:
			return e.client, e.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	e.client, e.err = r.factory(ctx, kind)
	if e.err != nil {
		r.mu.Lock()
		if r.entries[kind] == e {
			delete(r.entries, kind)
		}
		r.mu.Unlock()
	}
	close(e.done)
	return e.client, e.err
}

// Kinds lists the kinds built so far, sorted.
func (r *Registry[T]) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]string, 0, len(r.entries))
	for k, e := range r.entries {
		if built(e) {
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)
	return kinds
}

// Close closes every built client that implements io.Closer and empties
// the registry. Constructions still running are dropped from the registry
// but not waited for. The first close error is returned.
func (r *Registry[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	for kind, e := range r.entries {
		if built(e) {
			if closer, ok := any(e.client).(io.Closer); ok {
				if err := closer.Close(); err != nil && first == nil {
					first = err
				}
			}
		}
		delete(r.entries, kind)
	}
	return first
}

func built[T any](e *entry[T]) bool {
	select {
	case <-e.done:
		return e.err == nil
	default:
		return false
	}
}
