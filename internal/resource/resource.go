// Package resource factors the fetch/loading/error cycle shared by every page.
package resource

import (
	"context"
	"reflect"
	"sync"
)

// Status is the lifecycle of one load.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusEmpty   Status = "empty"
	StatusFailed  Status = "failed"
)

// FetchFunc loads the data of a resource.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Snapshot is the observable state of a Resource.
type Snapshot[T any] struct {
	Status     Status
	Data       T
	Err        error
	Generation uint64
}

// Resource runs fetches one generation at a time. Starting a load cancels the
// previous in-flight fetch, and results of a stale generation are dropped.
type Resource[T any] struct {
	fetch   FetchFunc[T]
	isEmpty func(T) bool

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	snap   Snapshot[T]
}

// Option configures a Resource.
type Option[T any] func(*Resource[T])

// WithEmpty overrides the emptiness predicate.
func WithEmpty[T any](fn func(T) bool) Option[T] {
	return func(r *Resource[T]) {
		if fn != nil {
			r.isEmpty = fn
		}
	}
}

// New creates an idle resource. fetch may be nil when every load supplies its own.
func New[T any](fetch FetchFunc[T], opts ...Option[T]) *Resource[T] {
	r := &Resource[T]{
		fetch:   fetch,
		isEmpty: defaultEmpty[T],
		snap:    Snapshot[T]{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load runs the configured fetch as a new generation.
func (r *Resource[T]) Load(ctx context.Context) Snapshot[T] {
	r.mu.Lock()
	fetch := r.fetch
	r.mu.Unlock()
	return r.Reload(ctx, fetch)
}

// Reload replaces the fetch function (e.g. for new filters) and loads it. When
// a newer generation starts before this one finishes, the returned snapshot is
// the newer state and this result is discarded.
func (r *Resource[T]) Reload(ctx context.Context, fetch FetchFunc[T]) Snapshot[T] {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	r.gen++
	gen := r.gen
	r.fetch = fetch
	r.cancel = cancel
	r.snap = Snapshot[T]{Status: StatusLoading, Data: r.snap.Data, Generation: gen}
	r.mu.Unlock()

	defer cancel()

	var (
		data T
		err  error
	)
	if fetch != nil {
		data, err = fetch(fetchCtx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return r.snap
	}
	r.cancel = nil
	switch {
	case err != nil:
		r.snap = Snapshot[T]{Status: StatusFailed, Data: r.snap.Data, Err: err, Generation: gen}
	case r.isEmpty(data):
		r.snap = Snapshot[T]{Status: StatusEmpty, Data: data, Generation: gen}
	default:
		r.snap = Snapshot[T]{Status: StatusReady, Data: data, Generation: gen}
	}
	return r.snap
}

// Snapshot returns the current state.
func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Cancel aborts the in-flight fetch, if any. Its result will be dropped.
func (r *Resource[T]) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.gen++
	if r.snap.Status == StatusLoading {
		r.snap.Status = StatusIdle
	}
	r.snap.Generation = r.gen
}

func defaultEmpty[T any](v T) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Invalid:
		return true
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Set keeps one Resource per key, typically per browser session.
type Set[T any] struct {
	opts []Option[T]

	mu    sync.Mutex
	items map[string]*Resource[T]
}

func NewSet[T any](opts ...Option[T]) *Set[T] {
	return &Set[T]{opts: opts, items: make(map[string]*Resource[T])}
}

// Get returns the resource for key, creating it on first use.
func (s *Set[T]) Get(key string) *Resource[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[key]
	if !ok {
		r = New[T](nil, s.opts...)
		s.items[key] = r
	}
	return r
}

// Forget cancels and drops the resource for key.
func (s *Set[T]) Forget(key string) {
	s.mu.Lock()
	r, ok := s.items[key]
	delete(s.items, key)
	s.mu.Unlock()
	if ok {
		r.Cancel()
	}
}
