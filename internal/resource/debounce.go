package resource

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned to a debounced call replaced by a newer one.
var ErrSuperseded = errors.New("resource: superseded by a newer call")

// Debouncer delays calls by a fixed interval. A newer call cancels both the
// pending timer and the in-flight run of the previous call, so only the last
// call's result is ever delivered.
type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelCauseFunc
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Run waits for the debounce interval and then calls fn, unless superseded.
func (d *Debouncer) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel(ErrSuperseded)
	}
	runCtx, cancel := context.WithCancelCause(ctx)
	d.gen++
	gen := d.gen
	d.cancel = cancel
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.gen == gen {
			d.cancel = nil
		}
		d.mu.Unlock()
		cancel(nil)
	}()

	if d.delay > 0 {
		timer := time.NewTimer(d.delay)
		defer timer.Stop()
		select {
		case <-runCtx.Done():
			return context.Cause(runCtx)
		case <-timer.C:
		}
	}

	err := fn(runCtx)
	if cause := context.Cause(runCtx); errors.Is(cause, ErrSuperseded) {
		return ErrSuperseded
	}
	return err
}

// Debounce runs fn through d and returns its value.
func Debounce[T any](ctx context.Context, d *Debouncer, fn FetchFunc[T]) (T, error) {
	var out T
	err := d.Run(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Debouncers keeps one Debouncer per key.
type Debouncers struct {
	delay time.Duration

	mu    sync.Mutex
	items map[string]*Debouncer
}

func NewDebouncers(delay time.Duration) *Debouncers {
	return &Debouncers{delay: delay, items: make(map[string]*Debouncer)}
}

func (s *Debouncers) For(key string) *Debouncer {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[key]
	if !ok {
		d = NewDebouncer(s.delay)
		s.items[key] = d
	}
	return d
}

func (s *Debouncers) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}
