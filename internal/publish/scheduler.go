// Package publish executes scheduled publish jobs: draining due queue
// entries, honoring the global pause flag and per-platform rate limits,
// and driving publish-outcome transitions.
package publish

import (
	"context"
	"time"

	"github.com/copydesk/copydesk/internal/approval"
	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/event"
	"github.com/copydesk/copydesk/internal/logging"
	"github.com/copydesk/copydesk/internal/platform"
	"github.com/copydesk/copydesk/internal/ratelimit"
	"github.com/copydesk/copydesk/internal/recovery"
	"github.com/copydesk/copydesk/internal/store"
)

// Notifier receives publish events.
type Notifier interface {
	Dispatch(e event.Event)
}

// Scheduler drains the publish queue on ticks.
type Scheduler struct {
	store     store.Store
	machine   *approval.Machine
	limiter   *ratelimit.Limiter
	platforms *platform.Registry
	recoverer *recovery.Coordinator
	notifier  Notifier
	log       *logging.Logger
	now       func() time.Time
}

// Config assembles a Scheduler.
type Config struct {
	Store     store.Store
	Machine   *approval.Machine
	Limiter   *ratelimit.Limiter
	Platforms *platform.Registry
	Recoverer *recovery.Coordinator
	Notifier  Notifier
	Logger    *logging.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Store == nil || cfg.Machine == nil || cfg.Limiter == nil || cfg.Platforms == nil {
		return nil, errors.New("scheduler requires store, machine, limiter, and platforms")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	return &Scheduler{
		store:     cfg.Store,
		machine:   cfg.Machine,
		limiter:   cfg.Limiter,
		platforms: cfg.Platforms,
		recoverer: cfg.Recoverer,
		notifier:  cfg.Notifier,
		log:       cfg.Logger,
		now:       time.Now,
	}, nil
}

// WithClock overrides the time source. For tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Pause stops all publish execution until Resume.
func (s *Scheduler) Pause(ctx context.Context, actor string) error {
	return s.setPaused(ctx, true, actor)
}

// Resume re-enables publish execution.
func (s *Scheduler) Resume(ctx context.Context, actor string) error {
	return s.setPaused(ctx, false, actor)
}

func (s *Scheduler) setPaused(ctx context.Context, paused bool, actor string) error {
	err := s.store.SetPublishState(ctx, draft.PublishState{
		Paused:    paused,
		ChangedBy: actor,
		ChangedAt: s.now(),
	})
	if err != nil {
		return errors.Wrap(err, "updating publish state")
	}

	s.log.Info("publish state changed", "paused", paused, "actor", actor)
	if s.notifier != nil {
		s.notifier.Dispatch(event.NewPublishStateChangedEvent(paused, actor))
	}
	return nil
}

// Tick claims every due queue entry and executes it. Rate-limited entries
// are re-queued for the platform's next available slot rather than
// consumed. Returns the number of publishes executed.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	state, err := s.store.PublishState(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "reading publish state")
	}
	if state.Paused {
		return 0, nil
	}

	due, err := s.store.DueEntries(ctx, s.now())
	if err != nil {
		return 0, errors.Wrap(err, "claiming due entries")
	}

	executed := 0
	for i, entry := range due {
		published, err := s.execute(ctx, entry)
		if err != nil {
			// DueEntries claimed the whole batch. Return this entry and
			// the unprocessed remainder to the queue so a transient fault
			// cannot lose publish jobs.
			s.requeue(ctx, due[i:])
			return executed, err
		}
		if published {
			executed++
		}
	}
	return executed, nil
}

// requeue puts claimed entries back on the queue after a failed tick.
func (s *Scheduler) requeue(ctx context.Context, entries []draft.QueueEntry) {
	for _, e := range entries {
		if err := s.store.Enqueue(ctx, e); err != nil {
			s.log.Error("failed to return claimed entry to queue",
				"draft", e.DraftID, "error", err)
		}
	}
}

// execute runs one queue entry. Returns whether a publish call was made;
// dropped or deferred entries return false without error.
func (s *Scheduler) execute(ctx context.Context, entry draft.QueueEntry) (bool, error) {
	d, err := s.store.GetDraft(ctx, entry.DraftID)
	if err != nil {
		if errors.Is(err, errors.ErrDraftNotFound) {
			// The draft is gone; the job has nothing left to publish.
			s.log.Warn("queue entry for missing draft, dropping", "draft", entry.DraftID)
			return false, nil
		}
		return false, errors.Wrap(err, "loading draft for publish")
	}
	log := s.log.WithDraft(d.ID).WithClient(d.ClientID).With("platform", d.Platform)

	if d.Status != draft.StatusScheduled {
		log.Warn("queue entry for draft no longer scheduled, dropping", "status", string(d.Status))
		return false, nil
	}

	if !s.limiter.TryAcquire(d.Platform) {
		// Push the job to the window's next opening.
		next := s.limiter.NextAvailable(d.Platform)
		log.Info("platform out of budget, deferring", "until", next)
		if err := s.store.Enqueue(ctx, draft.QueueEntry{
			DraftID:    entry.DraftID,
			PublishAt:  next,
			RetryCount: entry.RetryCount + 1,
		}); err != nil {
			return false, errors.Wrap(err, "deferring rate-limited job")
		}
		return false, nil
	}

	api, err := s.platforms.Get(d.Platform)
	if err != nil {
		return true, s.fail(ctx, d, "", "no integration for platform "+d.Platform)
	}

	postID, err := api.Publish(ctx, d)
	if err != nil {
		log.Error("publish failed", "error", err)
		return true, s.fail(ctx, d, postID, err.Error())
	}

	if _, err := s.machine.MarkPublished(ctx, d.ID); err != nil {
		return true, errors.Wrap(err, "marking draft published")
	}

	log.Info("published", "post_id", postID)
	if s.notifier != nil {
		s.notifier.Dispatch(event.NewPublishAttemptedEvent(d.ID, d.Platform, true, postID, ""))
	}
	return true, nil
}

// fail records the failed attempt and hands the draft to recovery.
func (s *Scheduler) fail(ctx context.Context, d *draft.ContentDraft, postID, reason string) error {
	if _, err := s.machine.MarkPublishFailed(ctx, d.ID, reason); err != nil {
		return errors.Wrap(err, "marking draft failed")
	}
	if s.notifier != nil {
		s.notifier.Dispatch(event.NewPublishAttemptedEvent(d.ID, d.Platform, false, postID, reason))
	}
	if s.recoverer != nil {
		if _, err := s.recoverer.Recover(ctx, d, postID); err != nil {
			return errors.Wrap(err, "running recovery")
		}
	}
	return nil
}

// Run drains the queue on the given interval until the context ends.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				s.log.Error("publish tick failed", "error", err)
			}
		}
	}
}
