package about

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overseerr-about/internal/config"
	"overseerr-about/internal/latest"
	"overseerr-about/internal/panel"
	"overseerr-about/internal/status"
)

// fakeUpstream lets each test gate and script the two resources independently.
type fakeUpstream struct {
	mu        sync.Mutex
	about     status.AboutInfo
	aboutErr  error
	status    status.StatusInfo
	statusErr error

	aboutGate  chan struct{}
	statusGate chan struct{}
}

func (f *fakeUpstream) About(ctx context.Context) (status.AboutInfo, error) {
	if f.aboutGate != nil {
		<-f.aboutGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.about, f.aboutErr
}

func (f *fakeUpstream) Status(ctx context.Context) (status.StatusInfo, error) {
	if f.statusGate != nil {
		<-f.statusGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.statusErr
}

func newService(up Upstream) *Service {
	b := panel.NewBuilder(status.DefaultDeriver, config.DefaultLinks(), "en")
	return NewService(up, status.DefaultDeriver, b, time.Minute, nil)
}

func TestCurrentBeforeAnyFetch(t *testing.T) {
	s := newService(&fakeUpstream{})
	snap := s.Current()
	assert.Equal(t, status.Loading, snap.Derived.Phase)
	assert.Equal(t, status.Loading, snap.View.Phase)
	assert.Equal(t, latest.BothPending, s.Pair().Arrival())
}

func TestRevalidateBothReady(t *testing.T) {
	up := &fakeUpstream{
		about:  status.AboutInfo{Version: "1.33.2", TotalMediaItems: 500, TotalRequests: 20, TZ: "UTC"},
		status: status.StatusInfo{CommitTag: "abc123"},
	}
	s := newService(up)

	aboutSt, statSt := s.Revalidate(context.Background())
	require.NotNil(t, aboutSt.Data)
	require.NotNil(t, statSt.Data)

	snap := s.Current()
	assert.Equal(t, status.Ready, snap.Derived.Phase)
	assert.Equal(t, status.UpToDate, snap.Derived.Freshness)
	assert.Equal(t, "1.33.2", snap.View.CurrentVersion)
	assert.Equal(t, latest.BothReady, s.Pair().Arrival())
}

func TestStatusFailureIsAdvisory(t *testing.T) {
	up := &fakeUpstream{
		about:     status.AboutInfo{Version: "1.0.0"},
		statusErr: errors.New("status down"),
	}
	s := newService(up)
	s.Revalidate(context.Background())

	snap := s.Current()
	assert.Equal(t, status.Ready, snap.Derived.Phase)
	assert.Equal(t, status.Unknown, snap.Derived.Freshness)
	assert.Nil(t, snap.View.VersionBadge)
}

func TestAboutFailureFailsPage(t *testing.T) {
	up := &fakeUpstream{
		aboutErr: errors.New("about down"),
		status:   status.StatusInfo{UpdateAvailable: true},
	}
	s := newService(up)
	s.Revalidate(context.Background())

	snap := s.Current()
	assert.Equal(t, status.Failed, snap.Derived.Phase)
	assert.Equal(t, 500, snap.View.StatusCode)
}

func TestStatusArrivesFirst(t *testing.T) {
	up := &fakeUpstream{
		about:     status.AboutInfo{Version: "develop-abc123"},
		status:    status.StatusInfo{UpdateAvailable: true, CommitTag: "def456"},
		aboutGate: make(chan struct{}),
	}
	s := newService(up)

	var changes atomic.Int32
	statusSeen := make(chan struct{}, 1)
	s.OnChange(func() {
		if changes.Add(1) == 1 {
			statusSeen <- struct{}{}
		}
	})

	done := make(chan struct{})
	go func() {
		s.Revalidate(context.Background())
		close(done)
	}()

	select {
	case <-statusSeen:
	case <-time.After(2 * time.Second):
		t.Fatal("status transition not observed")
	}
	assert.Equal(t, latest.SecondOnly, s.Pair().Arrival())
	assert.Equal(t, status.Loading, s.Current().Derived.Phase)

	close(up.aboutGate)
	<-done

	snap := s.Current()
	assert.Equal(t, status.Ready, snap.Derived.Phase)
	assert.True(t, snap.Derived.IsDevelopBuild())
	assert.Equal(t, "abc123", snap.Derived.DisplayVersion)
	assert.Equal(t, status.OutOfDate, snap.Derived.Freshness)
	assert.True(t, snap.View.DevelopBanner)
	assert.Equal(t, int32(2), changes.Load())
}

type derivedRecorder struct {
	mu   sync.Mutex
	n    int
	last status.Derived
}

func (r *derivedRecorder) ObserveDerived(d status.Derived) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	r.last = d
}

func (r *derivedRecorder) snapshot() (int, status.Derived) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n, r.last
}

func TestDerivedObserverFollowsTransitions(t *testing.T) {
	obs := &derivedRecorder{}
	s := newService(&fakeUpstream{
		about:  status.AboutInfo{Version: "1.0.0"},
		status: status.StatusInfo{CommitTag: "abc"},
	}).WithDerivedObserver(obs)

	n, last := obs.snapshot()
	assert.Equal(t, 1, n)
	assert.Equal(t, status.Loading, last.Phase)

	// reads do not touch the observer
	s.Current()
	s.Current()
	n, _ = obs.snapshot()
	assert.Equal(t, 1, n)

	s.Revalidate(context.Background())
	n, last = obs.snapshot()
	assert.Equal(t, 3, n)
	assert.Equal(t, status.Ready, last.Phase)
	assert.Equal(t, status.UpToDate, last.Freshness)
}

func TestRawVersion(t *testing.T) {
	up := &fakeUpstream{about: status.AboutInfo{Version: "develop-abc123"}}
	s := newService(up)
	assert.Empty(t, s.RawVersion())

	s.Revalidate(context.Background())
	assert.Equal(t, "develop-abc123", s.RawVersion())
}
