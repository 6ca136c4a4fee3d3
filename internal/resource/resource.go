// Package resource holds the latest snapshot of each upstream resource with
// stale-while-error semantics and notifies subscribers on every transition.
package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"overseerr-about/internal/latest"
)

// CacheStatus represents the health/freshness status of a resource
type CacheStatus int

const (
	Pending  CacheStatus = iota // No fetch has completed yet
	Fresh                       // Within TTL, no errors
	Stale                       // Past TTL, needs refresh
	Degraded                    // Upstream unreachable, serving last known state
)

// String returns human-readable status
func (s CacheStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

func (s CacheStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *CacheStatus) UnmarshalText(b []byte) error {
	for _, c := range []CacheStatus{Pending, Fresh, Stale, Degraded} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("resource: unknown cache status %q", b)
}

// Loader fetches one copy of the resource from upstream.
type Loader[T any] func(ctx context.Context) (T, error)

// Observer receives fetch outcomes, typically a metrics recorder.
type Observer interface {
	ObserveFetch(key string, d time.Duration, err error)
}

// State is a point-in-time copy of a resource.
type State[T any] struct {
	Key       string      `json:"key"`
	Data      *T          `json:"data,omitempty"`
	Err       error       `json:"-"`
	Error     string      `json:"error,omitempty"`
	Status    CacheStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"` // last successful fetch
	CheckedAt time.Time   `json:"checked_at"` // last attempt
}

// Snapshot drops the bookkeeping and keeps what the deriver consumes.
func (s State[T]) Snapshot() latest.Snapshot[T] {
	return latest.Snapshot[T]{Data: s.Data, Err: s.Err}
}

// Resource keeps the latest snapshot of one upstream resource.
// Data is nil until the first successful fetch and survives later failures.
type Resource[T any] struct {
	key      string
	load     Loader[T]
	ttl      time.Duration
	observer Observer

	mu        sync.RWMutex
	data      *T
	err       error
	updatedAt time.Time
	checkedAt time.Time

	subMu       sync.RWMutex
	subscribers []func()

	// guards against overlapping revalidations
	inflight sync.Mutex
}

// New creates a Resource with the given TTL. A zero TTL never marks data stale.
func New[T any](key string, load Loader[T], ttl time.Duration) *Resource[T] {
	return &Resource[T]{
		key:  key,
		load: load,
		ttl:  ttl,
	}
}

// WithObserver attaches an Observer and returns the resource for chaining.
func (r *Resource[T]) WithObserver(o Observer) *Resource[T] {
	r.observer = o
	return r
}

// Key returns the resource key.
func (r *Resource[T]) Key() string { return r.key }

// Subscribe registers fn to run after every state transition.
func (r *Resource[T]) Subscribe(fn func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Revalidate runs the loader once. On success data is replaced wholesale and
// the error cleared; on failure existing data is kept and the error recorded.
// Concurrent calls are serialized.
func (r *Resource[T]) Revalidate(ctx context.Context) State[T] {
	r.inflight.Lock()
	defer r.inflight.Unlock()

	start := time.Now()
	v, err := r.load(ctx)
	if r.observer != nil {
		r.observer.ObserveFetch(r.key, time.Since(start), err)
	}

	r.mu.Lock()
	now := time.Now()
	r.checkedAt = now
	if err != nil {
		r.err = err
	} else {
		r.data = &v
		r.err = nil
		r.updatedAt = now
	}
	r.mu.Unlock()

	r.notify()
	return r.State()
}

// Seed stores previously persisted data without touching the error state.
// It is a no-op once live data exists.
func (r *Resource[T]) Seed(v T, fetchedAt time.Time) bool {
	r.mu.Lock()
	if r.data != nil {
		r.mu.Unlock()
		return false
	}
	r.data = &v
	r.updatedAt = fetchedAt
	r.mu.Unlock()

	r.notify()
	return true
}

// Snapshot returns the latest data/error pair.
func (r *Resource[T]) Snapshot() latest.Snapshot[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return latest.Snapshot[T]{Data: r.copyData(), Err: r.err}
}

// State returns a copy of the full resource state.
func (r *Resource[T]) State() State[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := State[T]{
		Key:       r.key,
		Data:      r.copyData(),
		Err:       r.err,
		Status:    r.statusLocked(time.Now()),
		UpdatedAt: r.updatedAt,
		CheckedAt: r.checkedAt,
	}
	if r.err != nil {
		st.Error = r.err.Error()
	}
	return st
}

// Health is the type-erased view of a resource used by health reporting.
type Health struct {
	Key       string      `json:"key"`
	Status    CacheStatus `json:"status"`
	HasData   bool        `json:"has_data"`
	Error     string      `json:"error,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
	CheckedAt time.Time   `json:"checked_at"`
}

// Health summarizes the resource without exposing its data.
func (r *Resource[T]) Health() Health {
	st := r.State()
	return Health{
		Key:       st.Key,
		Status:    st.Status,
		HasData:   st.Data != nil,
		Error:     st.Error,
		UpdatedAt: st.UpdatedAt,
		CheckedAt: st.CheckedAt,
	}
}

func (r *Resource[T]) statusLocked(now time.Time) CacheStatus {
	switch {
	case r.data == nil && r.err == nil:
		return Pending
	case r.err != nil:
		return Degraded
	case r.ttl > 0 && now.Sub(r.updatedAt) >= r.ttl:
		return Stale
	default:
		return Fresh
	}
}

// copyData hands out a private copy so readers never share the stored value.
func (r *Resource[T]) copyData() *T {
	if r.data == nil {
		return nil
	}
	v := *r.data
	return &v
}

func (r *Resource[T]) notify() {
	r.subMu.RLock()
	subs := make([]func(), len(r.subscribers))
	copy(subs, r.subscribers)
	r.subMu.RUnlock()

	for _, fn := range subs {
		fn()
	}
}
