// Package lfm holds the list-filter-mutate building blocks shared by every
// listing page: a fetcher that tracks loading state, a predicate-composing
// filter, and a mutation dispatcher that reloads after each change.
package lfm

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by Load when a newer Load started before this
// one settled. The stale result is discarded.
var ErrSuperseded = errors.New("lfm: load superseded")

// Fetcher wraps a single network read and tracks its state.
type Fetcher[T any] struct {
	load      func(ctx context.Context) (T, error)
	onFailure func(error)

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	loading bool
	data    T
	err     error
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*fetcherOptions)

type fetcherOptions struct {
	onFailure func(error)
}

// OnFailure registers fn to run after a load fails (e.g. toast + redirect).
// It is not called for superseded loads.
func OnFailure(fn func(error)) FetcherOption {
	return func(o *fetcherOptions) {
		o.onFailure = fn
	}
}

// NewFetcher creates a Fetcher whose data starts as initial.
func NewFetcher[T any](load func(ctx context.Context) (T, error), initial T, opts ...FetcherOption) *Fetcher[T] {
	var o fetcherOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Fetcher[T]{load: load, data: initial, onFailure: o.onFailure}
}

// NewListFetcher creates a collection fetcher starting from an empty slice.
func NewListFetcher[E any](load func(ctx context.Context) ([]E, error), opts ...FetcherOption) *Fetcher[[]E] {
	return NewFetcher(load, []E{}, opts...)
}

// NewItemFetcher creates a single-record fetcher starting from nil.
func NewItemFetcher[E any](load func(ctx context.Context) (E, error), opts ...FetcherOption) *Fetcher[*E] {
	return NewFetcher(func(ctx context.Context) (*E, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}, nil, opts...)
}

// Load runs the read. Any in-flight Load is cancelled and its result
// dropped. Loading reports true until the newest Load settles.
func (f *Fetcher[T]) Load(ctx context.Context) (T, error) {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	gen := f.gen
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.loading = true
	f.mu.Unlock()

	v, err := f.load(ctx)

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		cancel()
		var zero T
		return zero, ErrSuperseded
	}
	cancel()
	f.cancel = nil
	f.loading = false
	if err != nil {
		f.err = err
		data := f.data
		f.mu.Unlock()
		if f.onFailure != nil {
			f.onFailure(err)
		}
		return data, err
	}
	f.data = v
	f.err = nil
	f.mu.Unlock()
	return v, nil
}

// Loading reports whether a Load is in flight.
func (f *Fetcher[T]) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// Data returns the last successfully loaded value (or the initial value).
func (f *Fetcher[T]) Data() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

// Err returns the error of the last settled Load, nil after a success.
func (f *Fetcher[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
