// Package stale flags drafts stuck in review past a staleness threshold.
package stale

import (
	"context"
	"time"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/event"
	"github.com/copydesk/copydesk/internal/logging"
	"github.com/copydesk/copydesk/internal/store"
)

// DefaultThreshold is how long a draft may sit in review before it is
// flagged.
const DefaultThreshold = 4 * time.Hour

// Notifier receives stale-draft events.
type Notifier interface {
	Dispatch(e event.Event)
}

// Monitor sweeps the draft store for stale reviews. A draft is re-flagged
// on every sweep while it stays in review; repeated nagging is the point,
// there is no dedup window.
type Monitor struct {
	store     store.Store
	notifier  Notifier
	log       *logging.Logger
	threshold time.Duration
	now       func() time.Time
}

// NewMonitor creates a Monitor. A zero threshold means DefaultThreshold.
func NewMonitor(s store.Store, notifier Notifier, log *logging.Logger, threshold time.Duration) (*Monitor, error) {
	if s == nil {
		return nil, errors.New("stale monitor requires a store")
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold < 0 {
		return nil, errors.NewValidationError("threshold", "must not be negative").WithValue(threshold.String())
	}
	if log == nil {
		log = logging.NopLogger()
	}
	return &Monitor{
		store:     s,
		notifier:  notifier,
		log:       log,
		threshold: threshold,
		now:       time.Now,
	}, nil
}

// WithClock overrides the time source. For tests.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// Sweep flags every in-review draft whose last update exceeds the
// threshold, emitting one event per stale draft. Returns how many drafts
// were flagged.
func (m *Monitor) Sweep(ctx context.Context) (int, error) {
	drafts, err := m.store.ListDraftsByStatus(ctx, draft.StatusInReview)
	if err != nil {
		return 0, errors.Wrap(err, "listing drafts in review")
	}

	now := m.now()
	flagged := 0
	for _, d := range drafts {
		age := now.Sub(d.UpdatedAt)
		if age < m.threshold {
			continue
		}

		hours := age.Hours()
		m.log.WithDraft(d.ID).WithClient(d.ClientID).Warn("draft stale in review", "hours", hours)
		if m.notifier != nil {
			m.notifier.Dispatch(event.NewStaleDraftEvent(d.ID, d.ClientID, hours))
		}
		flagged++
	}
	return flagged, nil
}

// Run sweeps on the given interval until the context ends.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.log.Error("stale sweep failed", "error", err)
			}
		}
	}
}
