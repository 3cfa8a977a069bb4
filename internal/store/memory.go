package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
)

// MemoryStore is a mutex-guarded in-process Store.
type MemoryStore struct {
	mu             sync.RWMutex
	drafts         map[string]*draft.ContentDraft
	approvalEvents map[string][]draft.ApprovalEvent
	recoveryLogs   map[string][]draft.RecoveryLog
	publishState   draft.PublishState
	queue          []draft.QueueEntry
}

// NewMemoryStore creates an empty MemoryStore with publishing resumed.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts:         make(map[string]*draft.ContentDraft),
		approvalEvents: make(map[string][]draft.ApprovalEvent),
		recoveryLogs:   make(map[string][]draft.RecoveryLog),
	}
}

var _ Store = (*MemoryStore)(nil)

// SaveDraft implements Store.
func (m *MemoryStore) SaveDraft(_ context.Context, d *draft.ContentDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[d.ID] = d.Clone()
	return nil
}

// GetDraft implements Store.
func (m *MemoryStore) GetDraft(_ context.Context, id string) (*draft.ContentDraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.drafts[id]
	if !ok {
		return nil, errors.NewNotFoundError("draft", id)
	}
	return d.Clone(), nil
}

// ListDraftsByStatus implements Store.
func (m *MemoryStore) ListDraftsByStatus(_ context.Context, status draft.Status) ([]*draft.ContentDraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*draft.ContentDraft
	for _, d := range m.drafts {
		if d.Status == status {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ApplyTransition implements Store. The compare, the swap, and the audit
// append happen under one lock acquisition: concurrent transitions are
// single-winner, and a committed transition always carries its audit row.
func (m *MemoryStore) ApplyTransition(_ context.Context, id string, from, to draft.Status, audit draft.ApprovalEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.drafts[id]
	if !ok {
		return false, errors.NewNotFoundError("draft", id)
	}
	if d.Status != from {
		return false, nil
	}
	d.Status = to
	d.UpdatedAt = time.Now()
	m.approvalEvents[id] = append(m.approvalEvents[id], audit)
	return true, nil
}

// ApprovalEvents implements Store.
func (m *MemoryStore) ApprovalEvents(_ context.Context, draftID string) ([]draft.ApprovalEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]draft.ApprovalEvent(nil), m.approvalEvents[draftID]...), nil
}

// SaveRecoveryLog implements Store.
func (m *MemoryStore) SaveRecoveryLog(_ context.Context, r draft.RecoveryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logs := m.recoveryLogs[r.DraftID]
	for i, existing := range logs {
		if existing.ID == r.ID {
			logs[i] = r
			return nil
		}
	}
	m.recoveryLogs[r.DraftID] = append(logs, r)
	return nil
}

// RecoveryLogs implements Store.
func (m *MemoryStore) RecoveryLogs(_ context.Context, draftID string) ([]draft.RecoveryLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]draft.RecoveryLog(nil), m.recoveryLogs[draftID]...), nil
}

// PublishState implements Store.
func (m *MemoryStore) PublishState(_ context.Context) (draft.PublishState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.publishState, nil
}

// SetPublishState implements Store.
func (m *MemoryStore) SetPublishState(_ context.Context, s draft.PublishState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishState = s
	return nil
}

// Enqueue implements Store.
func (m *MemoryStore) Enqueue(_ context.Context, e draft.QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, e)
	return nil
}

// DueEntries implements Store.
func (m *MemoryStore) DueEntries(_ context.Context, now time.Time) ([]draft.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due, remaining []draft.QueueEntry
	for _, e := range m.queue {
		if !e.PublishAt.After(now) {
			due = append(due, e)
		} else {
			remaining = append(remaining, e)
		}
	}
	m.queue = remaining

	sort.Slice(due, func(i, j int) bool {
		return due[i].PublishAt.Before(due[j].PublishAt)
	})
	return due, nil
}

// QueueLength implements Store.
func (m *MemoryStore) QueueLength(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queue), nil
}
