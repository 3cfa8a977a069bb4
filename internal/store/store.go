// Package store persists drafts, audit events, recovery logs, the publish
// queue, and the global publish state. Two implementations exist: an
// in-memory store for tests and local runs, and a postgres store for
// deployments.
package store

import (
	"context"
	"time"

	"github.com/copydesk/copydesk/internal/draft"
)

// Store is the persistence contract. Implementations hand out copies of
// drafts; mutating a returned draft does not change stored state until it
// is saved back.
type Store interface {
	// SaveDraft inserts or replaces a draft.
	SaveDraft(ctx context.Context, d *draft.ContentDraft) error

	// GetDraft returns the draft or a NotFoundError.
	GetDraft(ctx context.Context, id string) (*draft.ContentDraft, error)

	// ListDraftsByStatus returns drafts in the given status ordered by
	// creation time ascending.
	ListDraftsByStatus(ctx context.Context, status draft.Status) ([]*draft.ContentDraft, error)

	// ApplyTransition atomically sets the draft's status to "to" and
	// appends the audit row, but only when the current status equals
	// "from". Returns false without error when the draft's status changed
	// underneath the caller; in that case no audit row is written. A
	// committed transition always has its audit row.
	ApplyTransition(ctx context.Context, id string, from, to draft.Status, audit draft.ApprovalEvent) (bool, error)

	// ApprovalEvents returns the audit rows for a draft, oldest first.
	ApprovalEvents(ctx context.Context, draftID string) ([]draft.ApprovalEvent, error)

	// SaveRecoveryLog inserts or replaces a recovery row.
	SaveRecoveryLog(ctx context.Context, r draft.RecoveryLog) error

	// RecoveryLogs returns the recovery rows for a draft, oldest first.
	RecoveryLogs(ctx context.Context, draftID string) ([]draft.RecoveryLog, error)

	// PublishState returns the global pause flag.
	PublishState(ctx context.Context) (draft.PublishState, error)

	// SetPublishState replaces the global pause flag.
	SetPublishState(ctx context.Context, s draft.PublishState) error

	// Enqueue adds a publish job.
	Enqueue(ctx context.Context, e draft.QueueEntry) error

	// DueEntries removes and returns the queue entries whose publish time
	// is at or before now, ordered by publish time.
	DueEntries(ctx context.Context, now time.Time) ([]draft.QueueEntry, error)

	// QueueLength returns the number of pending publish jobs.
	QueueLength(ctx context.Context) (int, error)
}
