package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
)

func TestMemoryStore_SaveAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	d := draft.New("c-1", "linkedin", "post", "hello")
	if err := s.SaveDraft(ctx, d); err != nil {
		t.Fatalf("SaveDraft failed: %v", err)
	}

	got, err := s.GetDraft(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDraft failed: %v", err)
	}
	if got.Copy != "hello" {
		t.Errorf("Expected copy 'hello', got %q", got.Copy)
	}

	// Returned drafts are copies.
	got.Copy = "mutated"
	again, _ := s.GetDraft(ctx, d.ID)
	if again.Copy != "hello" {
		t.Error("mutating a returned draft must not change stored state")
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetDraft(context.Background(), "nope")
	if !errors.Is(err, errors.ErrDraftNotFound) {
		t.Errorf("Expected ErrDraftNotFound, got %v", err)
	}
}

func TestMemoryStore_ListDraftsByStatus_OrderedOldestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	older := draft.New("c-1", "linkedin", "post", "first")
	older.Status = draft.StatusInReview
	older.CreatedAt = time.Now().Add(-2 * time.Hour)

	newer := draft.New("c-1", "linkedin", "post", "second")
	newer.Status = draft.StatusInReview

	other := draft.New("c-1", "linkedin", "post", "third")
	other.Status = draft.StatusApproved

	for _, d := range []*draft.ContentDraft{newer, older, other} {
		if err := s.SaveDraft(ctx, d); err != nil {
			t.Fatalf("SaveDraft failed: %v", err)
		}
	}

	got, err := s.ListDraftsByStatus(ctx, draft.StatusInReview)
	if err != nil {
		t.Fatalf("ListDraftsByStatus failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 drafts in review, got %d", len(got))
	}
	if got[0].ID != older.ID {
		t.Error("Expected oldest draft first")
	}
}

func TestMemoryStore_ApplyTransition(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	d := draft.New("c-1", "linkedin", "post", "copy")
	d.Status = draft.StatusInReview
	_ = s.SaveDraft(ctx, d)

	approve := draft.NewApprovalEvent(d, "op", draft.StatusInReview, draft.StatusApproved, "")
	ok, err := s.ApplyTransition(ctx, d.ID, draft.StatusInReview, draft.StatusApproved, approve)
	if err != nil || !ok {
		t.Fatalf("Expected successful transition, got ok=%v err=%v", ok, err)
	}

	// Second attempt from the stale status loses.
	reject := draft.NewApprovalEvent(d, "op", draft.StatusInReview, draft.StatusRejected, "")
	ok, err = s.ApplyTransition(ctx, d.ID, draft.StatusInReview, draft.StatusRejected, reject)
	if err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}
	if ok {
		t.Error("Transition from a stale status must fail")
	}

	got, _ := s.GetDraft(ctx, d.ID)
	if got.Status != draft.StatusApproved {
		t.Errorf("Expected approved, got %s", got.Status)
	}

	// Only the winning transition leaves an audit row.
	events, _ := s.ApprovalEvents(ctx, d.ID)
	if len(events) != 1 {
		t.Fatalf("Expected 1 audit row, got %d", len(events))
	}
	if events[0].NewStatus != draft.StatusApproved {
		t.Errorf("Expected audit row for approval, got %s", events[0].NewStatus)
	}
}

func TestMemoryStore_ApplyTransition_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	d := draft.New("c-1", "linkedin", "post", "copy")
	d.Status = draft.StatusInReview
	_ = s.SaveDraft(ctx, d)

	var wg sync.WaitGroup
	var wins int64
	var mu sync.Mutex

	for i := 0; i < 10; i++ {
		to := draft.StatusApproved
		if i%2 == 1 {
			to = draft.StatusRejected
		}
		wg.Add(1)
		go func(to draft.Status) {
			defer wg.Done()
			audit := draft.NewApprovalEvent(d, "op", draft.StatusInReview, to, "")
			ok, err := s.ApplyTransition(ctx, d.ID, draft.StatusInReview, to, audit)
			if err != nil {
				t.Errorf("ApplyTransition failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(to)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly one winning transition, got %d", wins)
	}

	// One winner, one audit row.
	events, _ := s.ApprovalEvents(ctx, d.ID)
	if len(events) != 1 {
		t.Errorf("Expected exactly one audit row, got %d", len(events))
	}
}

func TestMemoryStore_ApprovalEventsAppendOnly(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	d := draft.New("c-1", "linkedin", "post", "copy")
	_ = s.SaveDraft(ctx, d)

	e1 := draft.NewApprovalEvent(d, "op", draft.StatusDraft, draft.StatusInReview, "")
	e2 := draft.NewApprovalEvent(d, "op", draft.StatusInReview, draft.StatusApproved, "")
	if ok, err := s.ApplyTransition(ctx, d.ID, draft.StatusDraft, draft.StatusInReview, e1); err != nil || !ok {
		t.Fatalf("ApplyTransition failed: ok=%v err=%v", ok, err)
	}
	if ok, err := s.ApplyTransition(ctx, d.ID, draft.StatusInReview, draft.StatusApproved, e2); err != nil || !ok {
		t.Fatalf("ApplyTransition failed: ok=%v err=%v", ok, err)
	}

	got, err := s.ApprovalEvents(ctx, d.ID)
	if err != nil {
		t.Fatalf("ApprovalEvents failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(got))
	}
	if got[0].NewStatus != draft.StatusInReview || got[1].NewStatus != draft.StatusApproved {
		t.Error("Expected events in append order")
	}
}

func TestMemoryStore_PublishState(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	state, err := s.PublishState(ctx)
	if err != nil {
		t.Fatalf("PublishState failed: %v", err)
	}
	if state.Paused {
		t.Error("Expected publishing resumed by default")
	}

	_ = s.SetPublishState(ctx, draft.PublishState{Paused: true, ChangedBy: "op", ChangedAt: time.Now()})
	state, _ = s.PublishState(ctx)
	if !state.Paused || state.ChangedBy != "op" {
		t.Errorf("Expected paused by op, got %+v", state)
	}
}

func TestMemoryStore_Queue(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	_ = s.Enqueue(ctx, draft.QueueEntry{DraftID: "due-1", PublishAt: now.Add(-time.Minute)})
	_ = s.Enqueue(ctx, draft.QueueEntry{DraftID: "due-2", PublishAt: now.Add(-time.Hour)})
	_ = s.Enqueue(ctx, draft.QueueEntry{DraftID: "future", PublishAt: now.Add(time.Hour)})

	due, err := s.DueEntries(ctx, now)
	if err != nil {
		t.Fatalf("DueEntries failed: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("Expected 2 due entries, got %d", len(due))
	}
	if due[0].DraftID != "due-2" {
		t.Error("Expected due entries ordered by publish time")
	}

	// Claimed entries leave the queue.
	n, _ := s.QueueLength(ctx)
	if n != 1 {
		t.Errorf("Expected 1 remaining entry, got %d", n)
	}
}
