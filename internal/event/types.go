package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "draft.status_changed").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Draft Lifecycle Events
// -----------------------------------------------------------------------------

// DraftStatusChangedEvent is emitted after every successful approval
// transition.
type DraftStatusChangedEvent struct {
	baseEvent
	DraftID   string // Draft that transitioned
	ClientID  string // Owning client
	Actor     string // Who drove the transition (operator or "system")
	OldStatus string // Status before the transition
	NewStatus string // Status after the transition
	Message   string // Free-text context (rejection guidance, etc.)
}

// NewDraftStatusChangedEvent creates a DraftStatusChangedEvent.
func NewDraftStatusChangedEvent(draftID, clientID, actor, oldStatus, newStatus, message string) DraftStatusChangedEvent {
	return DraftStatusChangedEvent{
		baseEvent: newBaseEvent("draft.status_changed"),
		DraftID:   draftID,
		ClientID:  clientID,
		Actor:     actor,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Message:   message,
	}
}

// -----------------------------------------------------------------------------
// Pipeline Events
// -----------------------------------------------------------------------------

// GateCompletedEvent is emitted after each gate finishes (pass, fixed, or
// terminal fail).
type GateCompletedEvent struct {
	baseEvent
	DraftID  string // Draft under evaluation
	Gate     string // Gate name
	Outcome  string // pass, fail, or fixed
	Attempts int    // 1 or 2
	Reason   string // Failure reason, empty on first-attempt pass
}

// NewGateCompletedEvent creates a GateCompletedEvent.
func NewGateCompletedEvent(draftID, gate, outcome string, attempts int, reason string) GateCompletedEvent {
	return GateCompletedEvent{
		baseEvent: newBaseEvent("pipeline.gate_completed"),
		DraftID:   draftID,
		Gate:      gate,
		Outcome:   outcome,
		Attempts:  attempts,
		Reason:    reason,
	}
}

// PipelineCompletedEvent is emitted when a pipeline run finishes.
type PipelineCompletedEvent struct {
	baseEvent
	DraftID    string // Draft that was evaluated
	Passed     bool   // Overall outcome
	GatesRun   int    // Number of gates attempted
	FailedGate string // Terminal failure gate, empty on pass
}

// NewPipelineCompletedEvent creates a PipelineCompletedEvent.
func NewPipelineCompletedEvent(draftID string, passed bool, gatesRun int, failedGate string) PipelineCompletedEvent {
	return PipelineCompletedEvent{
		baseEvent:  newBaseEvent("pipeline.completed"),
		DraftID:    draftID,
		Passed:     passed,
		GatesRun:   gatesRun,
		FailedGate: failedGate,
	}
}

// -----------------------------------------------------------------------------
// Publish Events
// -----------------------------------------------------------------------------

// PublishAttemptedEvent is emitted after each publish execution.
type PublishAttemptedEvent struct {
	baseEvent
	DraftID        string // Draft that was published
	Platform       string // Target platform
	Success        bool   // Whether the platform accepted the post
	PlatformPostID string // Post id returned by the platform, if any
	Error          string // Error message on failure
}

// NewPublishAttemptedEvent creates a PublishAttemptedEvent.
func NewPublishAttemptedEvent(draftID, platform string, success bool, postID, errMsg string) PublishAttemptedEvent {
	return PublishAttemptedEvent{
		baseEvent:      newBaseEvent("publish.attempted"),
		DraftID:        draftID,
		Platform:       platform,
		Success:        success,
		PlatformPostID: postID,
		Error:          errMsg,
	}
}

// PublishStateChangedEvent is emitted when global publishing is paused or
// resumed.
type PublishStateChangedEvent struct {
	baseEvent
	Paused bool   // New state
	Actor  string // Who flipped the switch
}

// NewPublishStateChangedEvent creates a PublishStateChangedEvent.
func NewPublishStateChangedEvent(paused bool, actor string) PublishStateChangedEvent {
	return PublishStateChangedEvent{
		baseEvent: newBaseEvent("publish.state_changed"),
		Paused:    paused,
		Actor:     actor,
	}
}

// -----------------------------------------------------------------------------
// Recovery Events
// -----------------------------------------------------------------------------

// RecoveryCompletedEvent is emitted when a remediation attempt finishes,
// regardless of outcome.
type RecoveryCompletedEvent struct {
	baseEvent
	DraftID        string // Draft whose publish failed
	Platform       string // Target platform
	Status         string // completed, manual_recovery_needed, or failed
	PlatformPostID string // Surfaced for human action when deletion is unsupported
}

// NewRecoveryCompletedEvent creates a RecoveryCompletedEvent.
func NewRecoveryCompletedEvent(draftID, platform, status, postID string) RecoveryCompletedEvent {
	return RecoveryCompletedEvent{
		baseEvent:      newBaseEvent("recovery.completed"),
		DraftID:        draftID,
		Platform:       platform,
		Status:         status,
		PlatformPostID: postID,
	}
}

// -----------------------------------------------------------------------------
// Stale Content Events
// -----------------------------------------------------------------------------

// StaleDraftEvent is emitted for each draft stuck in review past the
// staleness threshold. A draft is re-flagged on every sweep while it stays
// in review.
type StaleDraftEvent struct {
	baseEvent
	DraftID    string  // Stale draft
	ClientID   string  // Owning client
	HoursStale float64 // Hours since last update
}

// NewStaleDraftEvent creates a StaleDraftEvent.
func NewStaleDraftEvent(draftID, clientID string, hoursStale float64) StaleDraftEvent {
	return StaleDraftEvent{
		baseEvent:  newBaseEvent("draft.stale"),
		DraftID:    draftID,
		ClientID:   clientID,
		HoursStale: hoursStale,
	}
}
