package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/event"
	"github.com/copydesk/copydesk/internal/store"
)

type collectingNotifier struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *collectingNotifier) Dispatch(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collectingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func newMachine(t *testing.T, s store.Store, n Notifier) *Machine {
	t.Helper()
	m, err := NewMachine(Config{Store: s, Notifier: n})
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	return m
}

func seedDraft(t *testing.T, s store.Store, status draft.Status) *draft.ContentDraft {
	t.Helper()
	d := draft.New("c-1", "linkedin", "post", "copy")
	d.Status = status
	if err := s.SaveDraft(context.Background(), d); err != nil {
		t.Fatalf("SaveDraft failed: %v", err)
	}
	return d
}

func TestTarget_TableExhaustiveness(t *testing.T) {
	allStatuses := []draft.Status{
		draft.StatusDraft, draft.StatusInReview, draft.StatusApproved,
		draft.StatusRejected, draft.StatusSkipped, draft.StatusScheduled,
		draft.StatusPublished, draft.StatusFailed,
	}
	allActions := []Action{
		ActionGatePass, ActionGateFail, ActionApprove, ActionReject,
		ActionEdit, ActionSkip, ActionSchedule, ActionPublishOK,
		ActionPublishFail, ActionArchive, ActionRequeue,
	}

	valid := map[draft.Status]map[Action]draft.Status{
		draft.StatusDraft:     {ActionGatePass: draft.StatusInReview, ActionGateFail: draft.StatusRejected},
		draft.StatusInReview:  {ActionApprove: draft.StatusApproved, ActionReject: draft.StatusRejected, ActionEdit: draft.StatusApproved, ActionSkip: draft.StatusSkipped},
		draft.StatusSkipped:   {ActionRequeue: draft.StatusInReview},
		draft.StatusApproved:  {ActionSchedule: draft.StatusScheduled},
		draft.StatusScheduled: {ActionPublishOK: draft.StatusPublished, ActionPublishFail: draft.StatusFailed},
		draft.StatusFailed:    {ActionArchive: draft.StatusRejected},
	}

	for _, status := range allStatuses {
		for _, action := range allActions {
			wantTo, wantOK := "", false
			if row, ok := valid[status]; ok {
				if to, ok := row[action]; ok {
					wantTo, wantOK = string(to), true
				}
			}
			to, ok := Target(status, action)
			if ok != wantOK || string(to) != wantTo {
				t.Errorf("Target(%s, %s) = (%s, %v), want (%s, %v)", status, action, to, ok, wantTo, wantOK)
			}
		}
	}
}

func TestTransition_InvalidLeavesDraftUnchanged(t *testing.T) {
	s := store.NewMemoryStore()
	m := newMachine(t, s, nil)
	d := seedDraft(t, s, draft.StatusPublished)

	_, err := m.Transition(context.Background(), d.ID, ActionApprove, "op", "")
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Fatalf("Expected invalid transition, got %v", err)
	}

	got, _ := s.GetDraft(context.Background(), d.ID)
	if got.Status != draft.StatusPublished {
		t.Errorf("Draft must be unchanged after invalid transition, got %s", got.Status)
	}

	events, _ := s.ApprovalEvents(context.Background(), d.ID)
	if len(events) != 0 {
		t.Error("No audit row may be written for a failed transition")
	}
}

func TestTransition_NotFound(t *testing.T) {
	m := newMachine(t, store.NewMemoryStore(), nil)
	_, err := m.Transition(context.Background(), "missing", ActionApprove, "op", "")
	if !errors.Is(err, errors.ErrDraftNotFound) {
		t.Errorf("Expected not-found, got %v", err)
	}
}

// Scenario C: approve in auto mode appends exactly one audit row for the
// in_review -> approved hop and broadcasts the transition.
func TestApprove_AutoMode(t *testing.T) {
	s := store.NewMemoryStore()
	notifier := &collectingNotifier{}
	m := newMachine(t, s, notifier)
	d := seedDraft(t, s, draft.StatusInReview)

	got, err := m.Approve(context.Background(), d.ID, "operator-1", ApproveOptions{Mode: draft.PublishAuto})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if got.Status != draft.StatusScheduled {
		t.Errorf("Expected auto mode to land at scheduled, got %s", got.Status)
	}

	events, _ := s.ApprovalEvents(context.Background(), d.ID)
	if len(events) != 2 {
		t.Fatalf("Expected 2 audit rows (approve, schedule), got %d", len(events))
	}
	first := events[0]
	if first.OldStatus != draft.StatusInReview || first.NewStatus != draft.StatusApproved {
		t.Errorf("Expected in_review->approved audit row, got %s->%s", first.OldStatus, first.NewStatus)
	}
	if first.Actor != "operator-1" {
		t.Errorf("Expected actor recorded, got %q", first.Actor)
	}

	if notifier.count() != 2 {
		t.Errorf("Expected 2 broadcast events, got %d", notifier.count())
	}

	n, _ := s.QueueLength(context.Background())
	if n != 1 {
		t.Errorf("Expected 1 queued publish job, got %d", n)
	}
}

func TestApprove_ManualModeDoesNotSchedule(t *testing.T) {
	s := store.NewMemoryStore()
	m := newMachine(t, s, nil)
	d := seedDraft(t, s, draft.StatusInReview)

	got, err := m.Approve(context.Background(), d.ID, "op", ApproveOptions{Mode: draft.PublishManual})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if got.Status != draft.StatusApproved {
		t.Errorf("Expected approved, got %s", got.Status)
	}

	n, _ := s.QueueLength(context.Background())
	if n != 0 {
		t.Errorf("Manual approval must not enqueue, got %d entries", n)
	}
}

func TestApprove_CustomPostTime(t *testing.T) {
	s := store.NewMemoryStore()
	m := newMachine(t, s, nil)
	d := seedDraft(t, s, draft.StatusInReview)

	at := time.Now().Add(3 * time.Hour)
	if _, err := m.Approve(context.Background(), d.ID, "op", ApproveOptions{Mode: draft.PublishAuto, PostAt: &at}); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	due, _ := s.DueEntries(context.Background(), time.Now())
	if len(due) != 0 {
		t.Error("custom-time job must not be due yet")
	}
	due, _ = s.DueEntries(context.Background(), at)
	if len(due) != 1 {
		t.Errorf("Expected job due at custom time, got %d", len(due))
	}
}

func TestReject_AppendsGuidance(t *testing.T) {
	s := store.NewMemoryStore()
	m := newMachine(t, s, nil)
	d := seedDraft(t, s, draft.StatusInReview)

	got, err := m.Reject(context.Background(), d.ID, "op", "off brand", RejectOptions{
		Guidance:   []string{"avoid pricing talk", "shorter sentences"},
		Regenerate: true,
	})
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if got.Status != draft.StatusRejected {
		t.Errorf("Expected rejected, got %s", got.Status)
	}

	stored, _ := s.GetDraft(context.Background(), d.ID)
	if len(stored.RegenerationGuidance) != 2 {
		t.Errorf("Expected 2 guidance entries, got %d", len(stored.RegenerationGuidance))
	}
	if stored.RegenerationCount != 1 {
		t.Errorf("Expected regeneration count 1, got %d", stored.RegenerationCount)
	}
}

func TestReject_RegenerationBudgetExhausted(t *testing.T) {
	s := store.NewMemoryStore()
	m := newMachine(t, s, nil)

	d := draft.New("c-1", "linkedin", "post", "copy")
	d.Status = draft.StatusInReview
	d.RegenerationCount = DefaultMaxRegenerations
	_ = s.SaveDraft(context.Background(), d)

	_, err := m.Reject(context.Background(), d.ID, "op", "again", RejectOptions{Regenerate: true})
	if !errors.Is(err, errors.ErrRegenerationLimit) {
		t.Fatalf("Expected regeneration limit error, got %v", err)
	}

	// Budget check happens before any state change.
	stored, _ := s.GetDraft(context.Background(), d.ID)
	if stored.Status != draft.StatusInReview {
		t.Errorf("Draft must be unchanged after budget refusal, got %s", stored.Status)
	}
}

func TestEdit_OverwritesCopyAndApproves(t *testing.T) {
	s := store.NewMemoryStore()
	m := newMachine(t, s, nil)
	d := seedDraft(t, s, draft.StatusInReview)

	got, err := m.Edit(context.Background(), d.ID, "op", "better copy")
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if got.Status != draft.StatusApproved || got.Copy != "better copy" {
		t.Errorf("Expected approved with new copy, got %s %q", got.Status, got.Copy)
	}
}

// failingSaveStore rejects SaveDraft once armed, delegating otherwise.
type failingSaveStore struct {
	store.Store
	saveErr error
}

func (f *failingSaveStore) SaveDraft(ctx context.Context, d *draft.ContentDraft) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.SaveDraft(ctx, d)
}

func TestEdit_SaveFailureLeavesDraftInReview(t *testing.T) {
	s := store.NewMemoryStore()
	failing := &failingSaveStore{Store: s}
	m := newMachine(t, failing, nil)
	d := seedDraft(t, s, draft.StatusInReview)

	failing.saveErr = errors.New("disk full")
	if _, err := m.Edit(context.Background(), d.ID, "op", "better copy"); err == nil {
		t.Fatal("Expected edit to surface the save failure")
	}

	stored, _ := s.GetDraft(context.Background(), d.ID)
	if stored.Status != draft.StatusInReview {
		t.Errorf("Expected draft still in review, got %s", stored.Status)
	}
	if stored.Copy != "copy" {
		t.Errorf("Expected original copy preserved, got %q", stored.Copy)
	}

	events, _ := s.ApprovalEvents(context.Background(), d.ID)
	if len(events) != 0 {
		t.Error("No audit row may be written when the edit never committed")
	}
}

func TestEdit_InvalidFromStatus(t *testing.T) {
	s := store.NewMemoryStore()
	m := newMachine(t, s, nil)
	d := seedDraft(t, s, draft.StatusPublished)

	_, err := m.Edit(context.Background(), d.ID, "op", "better copy")
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Fatalf("Expected invalid transition, got %v", err)
	}

	stored, _ := s.GetDraft(context.Background(), d.ID)
	if stored.Copy != "copy" {
		t.Errorf("Invalid edit must not change the copy, got %q", stored.Copy)
	}
}

func TestSkip_ThenQueueReadmits(t *testing.T) {
	s := store.NewMemoryStore()
	m := newMachine(t, s, nil)
	d := seedDraft(t, s, draft.StatusInReview)

	if _, err := m.Skip(context.Background(), d.ID, "op"); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}

	stored, _ := s.GetDraft(context.Background(), d.ID)
	if stored.Status != draft.StatusSkipped {
		t.Fatalf("Expected skipped, got %s", stored.Status)
	}

	queue, err := m.Queue(context.Background())
	if err != nil {
		t.Fatalf("Queue failed: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != d.ID {
		t.Fatalf("Expected skipped draft re-admitted to the queue, got %d entries", len(queue))
	}

	stored, _ = s.GetDraft(context.Background(), d.ID)
	if stored.Status != draft.StatusInReview {
		t.Errorf("Expected in_review after re-admission, got %s", stored.Status)
	}
}

func TestQueue_OrderedOldestFirst(t *testing.T) {
	s := store.NewMemoryStore()
	m := newMachine(t, s, nil)

	older := draft.New("c-1", "linkedin", "post", "old")
	older.Status = draft.StatusInReview
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := draft.New("c-1", "linkedin", "post", "new")
	newer.Status = draft.StatusInReview
	_ = s.SaveDraft(context.Background(), newer)
	_ = s.SaveDraft(context.Background(), older)

	queue, err := m.Queue(context.Background())
	if err != nil {
		t.Fatalf("Queue failed: %v", err)
	}
	if len(queue) != 2 || queue[0].ID != older.ID {
		t.Error("Expected oldest draft first in the queue")
	}
}

func TestConcurrentTransitions_SingleWinner(t *testing.T) {
	s := store.NewMemoryStore()
	m := newMachine(t, s, nil)
	d := seedDraft(t, s, draft.StatusInReview)

	var wg sync.WaitGroup
	results := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := m.Approve(context.Background(), d.ID, "op-a", ApproveOptions{Mode: draft.PublishManual})
		results <- err
	}()
	go func() {
		defer wg.Done()
		_, err := m.Reject(context.Background(), d.ID, "op-b", "no", RejectOptions{})
		results <- err
	}()
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		losses++
		var invalid *errors.InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Errorf("loser must get InvalidTransitionError, got %v", err)
			continue
		}
		// The error names the now-current status, not in_review.
		if invalid.Current == string(draft.StatusInReview) {
			t.Errorf("loser's error should reference the winner's status, got %q", invalid.Current)
		}
	}
	if wins != 1 || losses != 1 {
		t.Errorf("Expected exactly one winner and one loser, got %d/%d", wins, losses)
	}
}

func TestAdmitFromPipeline(t *testing.T) {
	s := store.NewMemoryStore()
	m := newMachine(t, s, nil)

	t.Run("pass admits to review", func(t *testing.T) {
		d := seedDraft(t, s, draft.StatusDraft)
		report := draft.QualityReport{Passed: true}
		got, err := m.AdmitFromPipeline(context.Background(), d, report)
		if err != nil {
			t.Fatalf("AdmitFromPipeline failed: %v", err)
		}
		if got.Status != draft.StatusInReview {
			t.Errorf("Expected in_review, got %s", got.Status)
		}
	})

	t.Run("terminal failure rejects", func(t *testing.T) {
		d := seedDraft(t, s, draft.StatusDraft)
		report := draft.QualityReport{Passed: false, FailedGate: "brand_safety"}
		got, err := m.AdmitFromPipeline(context.Background(), d, report)
		if err != nil {
			t.Fatalf("AdmitFromPipeline failed: %v", err)
		}
		if got.Status != draft.StatusRejected {
			t.Errorf("Expected rejected, got %s", got.Status)
		}

		events, _ := s.ApprovalEvents(context.Background(), d.ID)
		if len(events) != 1 || events[0].Actor != "system" {
			t.Error("Expected one system audit row")
		}
	})
}

func TestMarkPublishedAndFailed(t *testing.T) {
	s := store.NewMemoryStore()
	m := newMachine(t, s, nil)

	ok := seedDraft(t, s, draft.StatusScheduled)
	got, err := m.MarkPublished(context.Background(), ok.ID)
	if err != nil || got.Status != draft.StatusPublished {
		t.Errorf("Expected published, got %v %v", got, err)
	}

	bad := seedDraft(t, s, draft.StatusScheduled)
	got, err = m.MarkPublishFailed(context.Background(), bad.ID, "api timeout")
	if err != nil || got.Status != draft.StatusFailed {
		t.Errorf("Expected failed, got %v %v", got, err)
	}

	got, err = m.Archive(context.Background(), bad.ID, "op")
	if err != nil || got.Status != draft.StatusRejected {
		t.Errorf("Expected rejected after archive, got %v %v", got, err)
	}
}
