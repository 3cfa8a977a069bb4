package draft

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a content draft.
type Status string

const (
	// StatusDraft indicates the draft was produced by the generator and has
	// not yet passed the quality gate pipeline.
	StatusDraft Status = "draft"

	// StatusInReview indicates the draft passed all gates and is waiting
	// for an operator decision.
	StatusInReview Status = "in_review"

	// StatusApproved indicates an operator approved the draft for publishing.
	StatusApproved Status = "approved"

	// StatusRejected indicates the draft was rejected, either by a terminal
	// gate failure or by an operator.
	StatusRejected Status = "rejected"

	// StatusSkipped indicates an operator deferred the decision. Skipped
	// drafts return to the review queue on the next queue fetch.
	StatusSkipped Status = "skipped"

	// StatusScheduled indicates the draft is queued for publish execution.
	StatusScheduled Status = "scheduled"

	// StatusPublished indicates the draft went live on its platform.
	StatusPublished Status = "published"

	// StatusFailed indicates a publish attempt failed and the draft is
	// pending recovery.
	StatusFailed Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
// Skipped is deliberately not terminal: skipped drafts re-enter review.
func (s Status) IsTerminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// GateOutcome is the result classification of a single gate evaluation.
type GateOutcome string

const (
	// OutcomePass indicates the gate passed on the first attempt.
	OutcomePass GateOutcome = "pass"

	// OutcomeFail indicates the gate failed. With Attempts == 2 this is a
	// terminal failure: the auto-fix did not repair the draft.
	OutcomeFail GateOutcome = "fail"

	// OutcomeFixed indicates the gate failed once and passed after the
	// single auto-fix attempt. Always carries Attempts == 2.
	OutcomeFixed GateOutcome = "fixed"
)

// MaxEvidenceEntries caps the evidence map on a GateResult so report
// snapshots cannot grow without bound.
const MaxEvidenceEntries = 8

// GateResult is the outcome of one gate evaluation, embedded in the draft's
// quality report.
type GateResult struct {
	// Gate is the gate's stable name (e.g. "brand_safety").
	Gate string `json:"gate"`

	// Outcome is pass, fail, or fixed.
	Outcome GateOutcome `json:"outcome"`

	// Reason is a human-readable explanation of the outcome.
	Reason string `json:"reason,omitempty"`

	// Evidence maps signal names to formatted values, capped at
	// MaxEvidenceEntries.
	Evidence map[string]string `json:"evidence,omitempty"`

	// Attempts is 1 for a first-pass outcome, 2 after an auto-fix attempt.
	Attempts int `json:"attempts"`
}

// AddEvidence records a signal on the result, silently dropping entries
// beyond the cap.
func (r *GateResult) AddEvidence(signal, value string) {
	if r.Evidence == nil {
		r.Evidence = make(map[string]string)
	}
	if _, exists := r.Evidence[signal]; !exists && len(r.Evidence) >= MaxEvidenceEntries {
		return
	}
	r.Evidence[signal] = value
}

// QualityReport aggregates the gate results of one pipeline run.
// Gates after a terminal failure are never executed, so Results holds one
// entry per gate attempted, not always one per configured gate.
type QualityReport struct {
	Results []GateResult `json:"results"`
	Passed  bool         `json:"passed"`

	// FailedGate names the gate that caused terminal failure, empty on pass.
	FailedGate string `json:"failed_gate,omitempty"`

	RanAt time.Time `json:"ran_at"`
}

// GateStatus summarizes the draft's relationship to the pipeline.
type GateStatus string

const (
	GatePending GateStatus = "pending"
	GatePassed  GateStatus = "passed"
	GateFailed  GateStatus = "failed"
)

// ContentDraft is the unit under validation and approval. It is created by
// the generator, mutated by the pipeline (gate fields) and the approval
// state machine (status), and never deleted.
type ContentDraft struct {
	ID          string `json:"id"`
	ClientID    string `json:"client_id"`
	Platform    string `json:"platform"`
	ContentType string `json:"content_type"`

	// Copy is the post text under validation. The auto-fix step and the
	// operator edit action are the only writers after generation.
	Copy string `json:"copy"`

	// ImageRef is an opaque descriptor for the attached visual, if any.
	ImageRef string `json:"image_ref,omitempty"`

	// PublishHint is the generator's suggested publish time.
	PublishHint *time.Time `json:"publish_hint,omitempty"`

	// Lineage metadata carried from generation for operator context.
	Pillar       string   `json:"pillar,omitempty"`
	Persona      string   `json:"persona,omitempty"`
	Format       string   `json:"format,omitempty"`
	Freshness    string   `json:"freshness,omitempty"`
	ResearchRefs []string `json:"research_refs,omitempty"`

	GateStatus GateStatus     `json:"gate_status"`
	GateReport *QualityReport `json:"gate_report,omitempty"`

	Status Status `json:"status"`

	// RegenerationCount tracks how many times this draft's content line has
	// been regenerated. It never exceeds the configured maximum; exceeding
	// it is a terminal rejection, not a retry.
	RegenerationCount int `json:"regeneration_count"`

	// RegenerationGuidance accumulates rejection guidance for the generator.
	RegenerationGuidance []string `json:"regeneration_guidance,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a ContentDraft in the initial draft state.
func New(clientID, platform, contentType, copyText string) *ContentDraft {
	now := time.Now()
	return &ContentDraft{
		ID:          uuid.NewString(),
		ClientID:    clientID,
		Platform:    platform,
		ContentType: contentType,
		Copy:        copyText,
		GateStatus:  GatePending,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy of the draft. Stores hand out clones so callers
// cannot mutate shared state.
func (d *ContentDraft) Clone() *ContentDraft {
	cp := *d
	if d.PublishHint != nil {
		t := *d.PublishHint
		cp.PublishHint = &t
	}
	if d.ResearchRefs != nil {
		cp.ResearchRefs = append([]string(nil), d.ResearchRefs...)
	}
	if d.RegenerationGuidance != nil {
		cp.RegenerationGuidance = append([]string(nil), d.RegenerationGuidance...)
	}
	if d.GateReport != nil {
		rep := *d.GateReport
		rep.Results = make([]GateResult, len(d.GateReport.Results))
		for i, r := range d.GateReport.Results {
			rc := r
			if r.Evidence != nil {
				rc.Evidence = make(map[string]string, len(r.Evidence))
				for k, v := range r.Evidence {
					rc.Evidence[k] = v
				}
			}
			rep.Results[i] = rc
		}
		cp.GateReport = &rep
	}
	return &cp
}

// ApprovalEvent is one immutable audit row recording a status transition.
type ApprovalEvent struct {
	ID        string    `json:"id"`
	DraftID   string    `json:"draft_id"`
	ClientID  string    `json:"client_id"`
	Actor     string    `json:"actor"`
	OldStatus Status    `json:"old_status"`
	NewStatus Status    `json:"new_status"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// NewApprovalEvent creates an audit row for a completed transition.
func NewApprovalEvent(d *ContentDraft, actor string, oldStatus, newStatus Status, message string) ApprovalEvent {
	return ApprovalEvent{
		ID:        uuid.NewString(),
		DraftID:   d.ID,
		ClientID:  d.ClientID,
		Actor:     actor,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Message:   message,
		At:        time.Now(),
	}
}

// RecoveryStatus classifies a publish-failure remediation attempt.
type RecoveryStatus string

const (
	RecoveryPending     RecoveryStatus = "pending"
	RecoveryCompleted   RecoveryStatus = "completed"
	RecoveryManual      RecoveryStatus = "manual_recovery_needed"
	RecoveryFailedState RecoveryStatus = "failed"
)

// RecoveryLog is one row per publish-failure remediation attempt.
type RecoveryLog struct {
	ID             string         `json:"id"`
	DraftID        string         `json:"draft_id"`
	ClientID       string         `json:"client_id"`
	Platform       string         `json:"platform"`
	PlatformPostID string         `json:"platform_post_id,omitempty"`
	Status         RecoveryStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// PublishState is the process-wide pause flag controlling whether approved
// drafts may proceed to publish.
type PublishState struct {
	Paused    bool      `json:"paused"`
	ChangedBy string    `json:"changed_by,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// QueueEntry is a scheduled, not-yet-executed publish job.
type QueueEntry struct {
	DraftID    string    `json:"draft_id"`
	PublishAt  time.Time `json:"publish_at"`
	RetryCount int       `json:"retry_count"`
}

// PublishMode selects how an approved draft proceeds to publishing.
type PublishMode string

const (
	// PublishAuto schedules the draft immediately on approval.
	PublishAuto PublishMode = "auto"

	// PublishManual leaves the draft approved until explicitly scheduled.
	PublishManual PublishMode = "manual"
)
