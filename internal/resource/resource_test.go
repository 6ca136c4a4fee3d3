package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Version string
}

// scripted returns each result in turn, repeating the last one.
func scripted(results ...func() (payload, error)) Loader[payload] {
	var i atomic.Int32
	return func(ctx context.Context) (payload, error) {
		n := int(i.Add(1)) - 1
		if n >= len(results) {
			n = len(results) - 1
		}
		return results[n]()
	}
}

func ok(v string) func() (payload, error) {
	return func() (payload, error) { return payload{Version: v}, nil }
}

func fail(msg string) func() (payload, error) {
	return func() (payload, error) { return payload{}, errors.New(msg) }
}

func TestNewIsPending(t *testing.T) {
	r := New("about", scripted(ok("1.0.0")), time.Minute)

	st := r.State()
	assert.Equal(t, "about", st.Key)
	assert.Equal(t, Pending, st.Status)
	assert.Nil(t, st.Data)
	assert.True(t, r.Snapshot().Pending())
}

func TestRevalidateSuccess(t *testing.T) {
	r := New("about", scripted(ok("1.0.0")), time.Minute)

	st := r.Revalidate(context.Background())
	require.NotNil(t, st.Data)
	assert.Equal(t, "1.0.0", st.Data.Version)
	assert.Equal(t, Fresh, st.Status)
	assert.False(t, st.UpdatedAt.IsZero())
	assert.True(t, r.Snapshot().Ready())
}

func TestFailureBeforeData(t *testing.T) {
	r := New("about", scripted(fail("connection refused")), time.Minute)

	st := r.Revalidate(context.Background())
	assert.Nil(t, st.Data)
	assert.Equal(t, "connection refused", st.Error)
	assert.Equal(t, Degraded, st.Status)
	assert.True(t, r.Snapshot().Failed())
}

func TestStaleWhileError(t *testing.T) {
	r := New("about", scripted(ok("1.0.0"), fail("timeout"), ok("1.1.0")), time.Minute)
	ctx := context.Background()

	r.Revalidate(ctx)
	st := r.Revalidate(ctx)
	require.NotNil(t, st.Data)
	assert.Equal(t, "1.0.0", st.Data.Version)
	assert.Equal(t, Degraded, st.Status)
	assert.True(t, r.Snapshot().Ready())

	st = r.Revalidate(ctx)
	assert.Equal(t, "1.1.0", st.Data.Version)
	assert.Empty(t, st.Error)
	assert.Equal(t, Fresh, st.Status)
}

func TestStaleAfterTTL(t *testing.T) {
	r := New("status", scripted(ok("x")), 50*time.Millisecond)
	r.Revalidate(context.Background())
	assert.Equal(t, Fresh, r.State().Status)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, Stale, r.State().Status)
}

func TestSnapshotIsCopy(t *testing.T) {
	r := New("about", scripted(ok("1.0.0")), 0)
	r.Revalidate(context.Background())

	snap := r.Snapshot()
	snap.Data.Version = "mutated"
	assert.Equal(t, "1.0.0", r.Snapshot().Data.Version)
}

func TestSeed(t *testing.T) {
	r := New("about", scripted(fail("down")), time.Minute)
	at := time.Now().Add(-time.Hour)

	assert.True(t, r.Seed(payload{Version: "0.9.0"}, at))
	st := r.State()
	require.NotNil(t, st.Data)
	assert.Equal(t, "0.9.0", st.Data.Version)
	assert.Equal(t, Stale, st.Status)

	// failure keeps the seeded data
	st = r.Revalidate(context.Background())
	assert.Equal(t, "0.9.0", st.Data.Version)
	assert.Equal(t, Degraded, st.Status)

	// seeding never overrides existing data
	assert.False(t, r.Seed(payload{Version: "0.1.0"}, at))
}

func TestSubscribersNotified(t *testing.T) {
	r := New("about", scripted(ok("1.0.0"), fail("x")), time.Minute)
	var calls atomic.Int32
	r.Subscribe(func() { calls.Add(1) })
	r.Subscribe(func() { calls.Add(1) })

	r.Revalidate(context.Background())
	r.Revalidate(context.Background())
	assert.Equal(t, int32(4), calls.Load())
}

type recordingObserver struct {
	mu   sync.Mutex
	keys []string
	errs int
}

func (o *recordingObserver) ObserveFetch(key string, d time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.keys = append(o.keys, key)
	if err != nil {
		o.errs++
	}
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	r := New("status", scripted(ok("a"), fail("b")), time.Minute).WithObserver(obs)

	r.Revalidate(context.Background())
	r.Revalidate(context.Background())
	assert.Equal(t, []string{"status", "status"}, obs.keys)
	assert.Equal(t, 1, obs.errs)
}

func TestConcurrency(t *testing.T) {
	r := New("about", scripted(ok("1.0.0")), time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Revalidate(context.Background())
		}()
		go func() {
			defer wg.Done()
			_ = r.Snapshot()
			_ = r.State()
		}()
	}
	wg.Wait()

	assert.Equal(t, Fresh, r.State().Status)
}

func TestCacheStatusString(t *testing.T) {
	tests := []struct {
		status   CacheStatus
		expected string
	}{
		{Pending, "pending"},
		{Fresh, "fresh"},
		{Stale, "stale"},
		{Degraded, "degraded"},
		{CacheStatus(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.status.String())
	}
}

func TestHealth(t *testing.T) {
	r := New("status", scripted(ok("1.0.0"), fail("timeout")), time.Minute)
	h := r.Health()
	assert.Equal(t, "status", h.Key)
	assert.False(t, h.HasData)

	r.Revalidate(context.Background())
	r.Revalidate(context.Background())
	h = r.Health()
	assert.True(t, h.HasData)
	assert.Equal(t, Degraded, h.Status)
	assert.Equal(t, "timeout", h.Error)
}
