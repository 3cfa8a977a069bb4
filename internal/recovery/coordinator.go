// Package recovery remediates publish failures per platform capability.
package recovery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/event"
	"github.com/copydesk/copydesk/internal/logging"
	"github.com/copydesk/copydesk/internal/platform"
	"github.com/copydesk/copydesk/internal/store"
)

// Notifier receives recovery events.
type Notifier interface {
	Dispatch(e event.Event)
}

// Coordinator runs platform-specific remediation after a publish failure.
type Coordinator struct {
	store     store.Store
	platforms *platform.Registry
	notifier  Notifier
	log       *logging.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(s store.Store, platforms *platform.Registry, notifier Notifier, log *logging.Logger) (*Coordinator, error) {
	if s == nil {
		return nil, errors.New("recovery coordinator requires a store")
	}
	if platforms == nil {
		return nil, errors.New("recovery coordinator requires a platform registry")
	}
	if log == nil {
		log = logging.NopLogger()
	}
	return &Coordinator{store: s, platforms: platforms, notifier: notifier, log: log}, nil
}

// Recover remediates a failed publish for the draft. When the platform
// supports deletion the live post is removed and the log completes; when
// it does not, the log records manual_recovery_needed with the post id
// preserved for human action. A notification fires regardless of outcome.
func (c *Coordinator) Recover(ctx context.Context, d *draft.ContentDraft, platformPostID string) (draft.RecoveryLog, error) {
	log := c.log.WithDraft(d.ID).WithClient(d.ClientID).With("platform", d.Platform)

	rec := draft.RecoveryLog{
		ID:             uuid.NewString(),
		DraftID:        d.ID,
		ClientID:       d.ClientID,
		Platform:       d.Platform,
		PlatformPostID: platformPostID,
		Status:         draft.RecoveryPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := c.store.SaveRecoveryLog(ctx, rec); err != nil {
		return rec, errors.Wrap(err, "recording recovery attempt")
	}

	rec.Status = c.remediate(ctx, d, platformPostID, log)
	rec.UpdatedAt = time.Now()
	if err := c.store.SaveRecoveryLog(ctx, rec); err != nil {
		return rec, errors.Wrap(err, "updating recovery log")
	}

	log.Info("recovery finished", "status", string(rec.Status), "post_id", platformPostID)
	if c.notifier != nil {
		c.notifier.Dispatch(event.NewRecoveryCompletedEvent(d.ID, d.Platform, string(rec.Status), platformPostID))
	}
	return rec, nil
}

func (c *Coordinator) remediate(ctx context.Context, d *draft.ContentDraft, postID string, log *logging.Logger) draft.RecoveryStatus {
	// Nothing went live, nothing to remediate.
	if postID == "" {
		return draft.RecoveryCompleted
	}

	api, err := c.platforms.Get(d.Platform)
	if err != nil {
		log.Warn("no integration registered for platform, requiring manual recovery")
		return draft.RecoveryManual
	}

	if !api.SupportsDelete() {
		return draft.RecoveryManual
	}

	if err := api.Delete(ctx, postID); err != nil {
		log.Error("programmatic deletion failed", "error", err)
		return draft.RecoveryFailedState
	}
	return draft.RecoveryCompleted
}
