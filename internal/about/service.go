// Package about wires the two upstream resources to the deriver and the
// view builder. Each evaluation recomputes from the latest snapshots.
package about

import (
	"context"
	"sync"
	"time"

	"overseerr-about/internal/latest"
	"overseerr-about/internal/panel"
	"overseerr-about/internal/resource"
	"overseerr-about/internal/status"
)

const (
	AboutKey  = "about"
	StatusKey = "status"
)

// Upstream is the subset of the Overseerr client the service needs.
type Upstream interface {
	About(ctx context.Context) (status.AboutInfo, error)
	Status(ctx context.Context) (status.StatusInfo, error)
}

// DerivedObserver is notified with every freshly derived value.
type DerivedObserver interface {
	ObserveDerived(d status.Derived)
}

type Service struct {
	About  *resource.Resource[status.AboutInfo]
	Status *resource.Resource[status.StatusInfo]

	deriver status.Deriver
	builder *panel.Builder

	// serializes derive-then-observe so the last observation is the latest state
	observeMu sync.Mutex
}

// Snapshot is one evaluation of the panel.
type Snapshot struct {
	Derived status.Derived `json:"derived"`
	View    panel.View     `json:"view"`
}

// NewService builds both resources on top of up. ttl marks data stale for
// health reporting only; revalidation is driven externally.
func NewService(up Upstream, deriver status.Deriver, builder *panel.Builder, ttl time.Duration, fetchObs resource.Observer) *Service {
	s := &Service{
		About:   resource.New[status.AboutInfo](AboutKey, up.About, ttl),
		Status:  resource.New[status.StatusInfo](StatusKey, up.Status, ttl),
		deriver: deriver,
		builder: builder,
	}
	if fetchObs != nil {
		s.About.WithObserver(fetchObs)
		s.Status.WithObserver(fetchObs)
	}
	return s
}

// WithDerivedObserver reports the derived state to o once now and after
// every resource transition, and returns s.
func (s *Service) WithDerivedObserver(o DerivedObserver) *Service {
	observe := func() {
		s.observeMu.Lock()
		defer s.observeMu.Unlock()
		o.ObserveDerived(s.deriver.FromPair(s.Pair()))
	}
	observe()
	s.OnChange(observe)
	return s
}

// Pair returns the combine-latest of both resources.
func (s *Service) Pair() latest.Pair[status.AboutInfo, status.StatusInfo] {
	return latest.Combine(s.About.Snapshot(), s.Status.Snapshot())
}

// RawVersion is the unparsed about.version, empty until about arrives.
func (s *Service) RawVersion() string {
	if snap := s.About.Snapshot(); snap.Data != nil {
		return snap.Data.Version
	}
	return ""
}

// Current derives and builds the view from the latest snapshots.
func (s *Service) Current() Snapshot {
	pair := s.Pair()
	d := s.deriver.FromPair(pair)

	var raw string
	if pair.First.Data != nil {
		raw = pair.First.Data.Version
	}
	return Snapshot{Derived: d, View: s.builder.Build(d, raw)}
}

// Revalidate refreshes both resources concurrently. Neither waits on the
// other; a status failure never affects the about resource.
func (s *Service) Revalidate(ctx context.Context) (resource.State[status.AboutInfo], resource.State[status.StatusInfo]) {
	var (
		wg      sync.WaitGroup
		aboutSt resource.State[status.AboutInfo]
		statSt  resource.State[status.StatusInfo]
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		aboutSt = s.About.Revalidate(ctx)
	}()
	go func() {
		defer wg.Done()
		statSt = s.Status.Revalidate(ctx)
	}()
	wg.Wait()
	return aboutSt, statSt
}

// OnChange registers fn on both resources.
func (s *Service) OnChange(fn func()) {
	s.About.Subscribe(fn)
	s.Status.Subscribe(fn)
}
