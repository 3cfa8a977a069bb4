// Package approval implements the draft lifecycle state machine: the
// exhaustive transition table, atomic check-then-apply transitions, the
// append-only audit trail, and the operator-facing review queue.
package approval

import (
	"context"
	"time"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/event"
	"github.com/copydesk/copydesk/internal/logging"
	"github.com/copydesk/copydesk/internal/store"
)

// Action is an operator or system action driving a transition.
type Action string

const (
	ActionGatePass    Action = "gate_pass"
	ActionGateFail    Action = "gate_fail"
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionEdit        Action = "edit"
	ActionSkip        Action = "skip"
	ActionSchedule    Action = "schedule"
	ActionPublishOK   Action = "publish_succeeded"
	ActionPublishFail Action = "publish_failed"
	ActionArchive     Action = "archive"
	ActionRequeue     Action = "requeue"
)

// transitions is the exhaustive table. Any (status, action) pair absent
// here is invalid and leaves the draft untouched.
var transitions = map[draft.Status]map[Action]draft.Status{
	draft.StatusDraft: {
		ActionGatePass: draft.StatusInReview,
		ActionGateFail: draft.StatusRejected,
	},
	draft.StatusInReview: {
		ActionApprove: draft.StatusApproved,
		ActionReject:  draft.StatusRejected,
		ActionEdit:    draft.StatusApproved,
		ActionSkip:    draft.StatusSkipped,
	},
	draft.StatusSkipped: {
		// Skip is a soft-terminal: the draft re-enters review on the
		// next queue build.
		ActionRequeue: draft.StatusInReview,
	},
	draft.StatusApproved: {
		ActionSchedule: draft.StatusScheduled,
	},
	draft.StatusScheduled: {
		ActionPublishOK:   draft.StatusPublished,
		ActionPublishFail: draft.StatusFailed,
	},
	draft.StatusFailed: {
		// Recovery completion archives the draft; absent that it stays
		// failed pending manual action.
		ActionArchive: draft.StatusRejected,
	},
}

// Target returns the destination status for a (status, action) pair, or
// ok=false when the table does not allow it.
func Target(current draft.Status, action Action) (draft.Status, bool) {
	row, ok := transitions[current]
	if !ok {
		return "", false
	}
	to, ok := row[action]
	return to, ok
}

// Notifier receives transition events.
type Notifier interface {
	Dispatch(e event.Event)
}

// Machine validates and applies draft status transitions.
type Machine struct {
	store    store.Store
	notifier Notifier
	log      *logging.Logger

	// maxRegenerations bounds reject-with-regeneration cycles.
	maxRegenerations int
}

// Config assembles a Machine.
type Config struct {
	Store    store.Store
	Notifier Notifier
	Logger   *logging.Logger

	// MaxRegenerations is the regeneration budget per draft line.
	// Zero means the default of 3.
	MaxRegenerations int
}

// DefaultMaxRegenerations is the per-draft regeneration budget.
const DefaultMaxRegenerations = 3

// NewMachine creates a Machine.
func NewMachine(cfg Config) (*Machine, error) {
	if cfg.Store == nil {
		return nil, errors.New("approval machine requires a store")
	}
	if cfg.MaxRegenerations == 0 {
		cfg.MaxRegenerations = DefaultMaxRegenerations
	}
	if cfg.MaxRegenerations < 0 {
		return nil, errors.NewValidationError("max_regenerations", "must not be negative").WithValue(cfg.MaxRegenerations)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	return &Machine{
		store:            cfg.Store,
		notifier:         cfg.Notifier,
		log:              cfg.Logger,
		maxRegenerations: cfg.MaxRegenerations,
	}, nil
}

// Transition validates the action against the table and applies it through
// the store's conditional update. Exactly one of two concurrent calls on
// the same draft wins; the loser gets an InvalidTransitionError carrying
// the now-current status.
func (m *Machine) Transition(ctx context.Context, draftID string, action Action, actor, message string) (*draft.ContentDraft, error) {
	d, err := m.store.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}

	to, ok := Target(d.Status, action)
	if !ok {
		return nil, errors.NewInvalidTransitionError(draftID, string(d.Status), string(action))
	}

	from := d.Status
	audit := draft.NewApprovalEvent(d, actor, from, to, message)
	won, err := m.store.ApplyTransition(ctx, draftID, from, to, audit)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race. Reload so the error names the actual status.
		current, err := m.store.GetDraft(ctx, draftID)
		if err != nil {
			return nil, err
		}
		return nil, errors.NewInvalidTransitionError(draftID, string(current.Status), string(action))
	}

	d.Status = to
	d.UpdatedAt = time.Now()

	m.log.WithDraft(d.ID).WithClient(d.ClientID).Info("draft transitioned",
		"action", string(action),
		"from", string(from),
		"to", string(to),
		"actor", actor)

	if m.notifier != nil {
		m.notifier.Dispatch(event.NewDraftStatusChangedEvent(d.ID, d.ClientID, actor, string(from), string(to), message))
	}
	return d, nil
}

// ApproveOptions carries approve-specific side effects.
type ApproveOptions struct {
	Mode draft.PublishMode

	// PostAt overrides the publish time; nil means now for auto mode.
	PostAt *time.Time
}

// Approve transitions in_review -> approved and, in auto mode, schedules
// the draft and enqueues a publish job.
func (m *Machine) Approve(ctx context.Context, draftID, actor string, opts ApproveOptions) (*draft.ContentDraft, error) {
	if opts.Mode == "" {
		opts.Mode = draft.PublishManual
	}

	d, err := m.Transition(ctx, draftID, ActionApprove, actor, "approved ("+string(opts.Mode)+")")
	if err != nil {
		return nil, err
	}

	if opts.Mode == draft.PublishAuto {
		return m.Schedule(ctx, draftID, actor, opts.PostAt)
	}
	return d, nil
}

// Schedule transitions approved -> scheduled and enqueues the publish job.
func (m *Machine) Schedule(ctx context.Context, draftID, actor string, postAt *time.Time) (*draft.ContentDraft, error) {
	d, err := m.Transition(ctx, draftID, ActionSchedule, actor, "")
	if err != nil {
		return nil, err
	}

	at := time.Now()
	if postAt != nil {
		at = *postAt
	} else if d.PublishHint != nil && d.PublishHint.After(at) {
		at = *d.PublishHint
	}

	if err := m.store.Enqueue(ctx, draft.QueueEntry{DraftID: d.ID, PublishAt: at}); err != nil {
		return nil, errors.Wrap(err, "enqueueing publish job")
	}
	return d, nil
}

// RejectOptions carries reject-specific side effects.
type RejectOptions struct {
	// Guidance is appended to the draft's regeneration guidance.
	Guidance []string

	// Regenerate requests a replacement draft, consuming budget.
	Regenerate bool
}

// Reject transitions in_review -> rejected, appending guidance for future
// regenerations. Requesting regeneration past the budget fails before any
// state changes.
func (m *Machine) Reject(ctx context.Context, draftID, actor, message string, opts RejectOptions) (*draft.ContentDraft, error) {
	if opts.Regenerate {
		d, err := m.store.GetDraft(ctx, draftID)
		if err != nil {
			return nil, err
		}
		if d.RegenerationCount >= m.maxRegenerations {
			return nil, errors.NewRegenerationLimitError(draftID, d.RegenerationCount, m.maxRegenerations)
		}
	}

	d, err := m.Transition(ctx, draftID, ActionReject, actor, message)
	if err != nil {
		return nil, err
	}

	changed := false
	if len(opts.Guidance) > 0 {
		d.RegenerationGuidance = append(d.RegenerationGuidance, opts.Guidance...)
		changed = true
	}
	if opts.Regenerate {
		d.RegenerationCount++
		changed = true
	}
	if changed {
		if err := m.store.SaveDraft(ctx, d); err != nil {
			return nil, errors.Wrap(err, "saving rejection guidance")
		}
	}
	return d, nil
}

// Edit overwrites the copy and approves in one operator action. The copy
// is saved before the transition commits, so a save failure leaves the
// draft in review with its original text.
func (m *Machine) Edit(ctx context.Context, draftID, actor, newCopy string) (*draft.ContentDraft, error) {
	d, err := m.store.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if _, ok := Target(d.Status, ActionEdit); !ok {
		return nil, errors.NewInvalidTransitionError(draftID, string(d.Status), string(ActionEdit))
	}

	d.Copy = newCopy
	d.UpdatedAt = time.Now()
	if err := m.store.SaveDraft(ctx, d); err != nil {
		return nil, errors.Wrap(err, "saving edited copy")
	}

	return m.Transition(ctx, draftID, ActionEdit, actor, "copy edited before approval")
}

// Skip defers the decision. The draft stays queue-eligible.
func (m *Machine) Skip(ctx context.Context, draftID, actor string) (*draft.ContentDraft, error) {
	return m.Transition(ctx, draftID, ActionSkip, actor, "deferred by operator")
}

// AdmitFromPipeline moves a draft out of the draft status based on its
// pipeline report: into review on pass, rejected on terminal failure.
func (m *Machine) AdmitFromPipeline(ctx context.Context, d *draft.ContentDraft, report draft.QualityReport) (*draft.ContentDraft, error) {
	if err := m.store.SaveDraft(ctx, d); err != nil {
		return nil, errors.Wrap(err, "saving draft gate fields")
	}

	if report.Passed {
		return m.Transition(ctx, d.ID, ActionGatePass, "system", "all gates passed")
	}
	return m.Transition(ctx, d.ID, ActionGateFail, "system", "terminal failure at gate "+report.FailedGate)
}

// Queue returns the review queue oldest-first. Skipped drafts are
// re-admitted to review as part of the build, so a deferred draft
// resurfaces on the next fetch.
func (m *Machine) Queue(ctx context.Context) ([]*draft.ContentDraft, error) {
	skipped, err := m.store.ListDraftsByStatus(ctx, draft.StatusSkipped)
	if err != nil {
		return nil, err
	}
	for _, d := range skipped {
		if _, err := m.Transition(ctx, d.ID, ActionRequeue, "system", "re-admitted after skip"); err != nil {
			// A concurrent transition already moved it; leave it out.
			if errors.Is(err, errors.ErrInvalidTransition) {
				continue
			}
			return nil, err
		}
	}

	return m.store.ListDraftsByStatus(ctx, draft.StatusInReview)
}

// MarkPublished records a successful publish execution.
func (m *Machine) MarkPublished(ctx context.Context, draftID string) (*draft.ContentDraft, error) {
	return m.Transition(ctx, draftID, ActionPublishOK, "system", "")
}

// MarkPublishFailed records a failed publish execution.
func (m *Machine) MarkPublishFailed(ctx context.Context, draftID, reason string) (*draft.ContentDraft, error) {
	return m.Transition(ctx, draftID, ActionPublishFail, "system", reason)
}

// Archive closes out a failed draft after recovery completes.
func (m *Machine) Archive(ctx context.Context, draftID, actor string) (*draft.ContentDraft, error) {
	return m.Transition(ctx, draftID, ActionArchive, actor, "archived after recovery")
}
