package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"overseerr-about/internal/about"
	"overseerr-about/internal/db"
	"overseerr-about/internal/logging"
	"overseerr-about/internal/status"
)

// Store is the persistence the revalidator writes through.
type Store interface {
	SaveSnapshot(ctx context.Context, key string, v any, fetchedAt time.Time) error
	LoadSnapshot(ctx context.Context, key string, dst any) (time.Time, bool, error)
	RecordVersion(ctx context.Context, e db.VersionEntry) (bool, error)
}

// Revalidator refreshes both upstream resources on a schedule and persists
// the results.
type Revalidator struct {
	svc       *about.Service
	store     Store
	interval  time.Duration
	timeout   time.Duration
	scheduler gocron.Scheduler
}

func NewRevalidator(svc *about.Service, store Store, interval, timeout time.Duration) (*Revalidator, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Revalidator{
		svc:       svc,
		store:     store,
		interval:  interval,
		timeout:   timeout,
		scheduler: s,
	}, nil
}

// Start schedules the periodic job, running the first pass immediately.
func (r *Revalidator) Start() error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.tick),
		gocron.WithName("revalidate-about"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to create revalidation job: %w", err)
	}
	logging.Info("Starting revalidation scheduler", "interval", r.interval.String())
	r.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for a running pass.
func (r *Revalidator) Stop() error {
	logging.Info("Stopping revalidation scheduler")
	return r.scheduler.Shutdown()
}

func (r *Revalidator) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.RunOnce(ctx)
}

// RunOnce revalidates both resources, persists what succeeded, and records
// the observed version when the page is ready.
func (r *Revalidator) RunOnce(ctx context.Context) {
	aboutSt, statusSt := r.svc.Revalidate(ctx)

	if aboutSt.Err != nil {
		logging.Warn("About revalidation failed", "resource", about.AboutKey, "status", aboutSt.Status.String(), "error", aboutSt.Err)
	} else if aboutSt.Data != nil {
		if err := r.store.SaveSnapshot(ctx, about.AboutKey, aboutSt.Data, aboutSt.UpdatedAt); err != nil {
			logging.Error("Persist about snapshot failed", "error", err)
		}
	}

	if statusSt.Err != nil {
		logging.Debug("Status revalidation failed", "resource", about.StatusKey, "error", statusSt.Err)
	} else if statusSt.Data != nil {
		if err := r.store.SaveSnapshot(ctx, about.StatusKey, statusSt.Data, statusSt.UpdatedAt); err != nil {
			logging.Error("Persist status snapshot failed", "error", err)
		}
	}

	r.recordVersion(ctx)
}

func (r *Revalidator) recordVersion(ctx context.Context) {
	pair := r.svc.Pair()
	if pair.First.Data == nil {
		return
	}
	d := r.svc.Current().Derived
	entry := db.VersionEntry{
		Version:   pair.First.Data.Version,
		BuildKind: d.Kind.String(),
		Freshness: d.Freshness.String(),
	}
	if pair.Second.Data != nil {
		entry.CommitTag = pair.Second.Data.CommitTag
	}
	wrote, err := r.store.RecordVersion(ctx, entry)
	if err != nil {
		logging.Error("Record version failed", "error", err)
		return
	}
	if wrote {
		logging.Info("Observed version change", "version", entry.Version, "freshness", entry.Freshness)
	}
}

// Seed preloads the last persisted snapshots so a restart serves data
// before the first upstream round trip completes.
func (r *Revalidator) Seed(ctx context.Context) error {
	var a status.AboutInfo
	at, found, err := r.store.LoadSnapshot(ctx, about.AboutKey, &a)
	if err != nil {
		return err
	}
	if found && r.svc.About.Seed(a, at) {
		logging.Info("Seeded about snapshot", "version", a.Version, "fetched_at", at)
	}

	var s status.StatusInfo
	at, found, err = r.store.LoadSnapshot(ctx, about.StatusKey, &s)
	if err != nil {
		return err
	}
	if found && r.svc.Status.Seed(s, at) {
		logging.Info("Seeded status snapshot", "fetched_at", at)
	}
	return nil
}
