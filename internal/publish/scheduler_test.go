package publish

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/copydesk/copydesk/internal/approval"
	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/event"
	"github.com/copydesk/copydesk/internal/platform"
	"github.com/copydesk/copydesk/internal/ratelimit"
	"github.com/copydesk/copydesk/internal/recovery"
	"github.com/copydesk/copydesk/internal/store"
)

type fakePlatform struct {
	mu         sync.Mutex
	name       string
	canDelete  bool
	publishErr error
	published  []string
}

func (f *fakePlatform) Name() string         { return f.name }
func (f *fakePlatform) SupportsDelete() bool { return f.canDelete }

func (f *fakePlatform) Publish(_ context.Context, d *draft.ContentDraft) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.published = append(f.published, d.ID)
	return "post-" + d.ID, nil
}

func (f *fakePlatform) Delete(context.Context, string) error { return nil }

func (f *fakePlatform) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

type collectingNotifier struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *collectingNotifier) Dispatch(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

type fixture struct {
	store     *store.MemoryStore
	machine   *approval.Machine
	limiter   *ratelimit.Limiter
	registry  *platform.Registry
	scheduler *Scheduler
	notifier  *collectingNotifier
	api       *fakePlatform
}

func newFixture(t *testing.T, rules map[string]ratelimit.Rule) *fixture {
	t.Helper()

	s := store.NewMemoryStore()
	machine, err := approval.NewMachine(approval.Config{Store: s})
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	limiter, err := ratelimit.New(rules)
	if err != nil {
		t.Fatalf("ratelimit.New failed: %v", err)
	}

	registry := platform.NewRegistry()
	api := &fakePlatform{name: "linkedin", canDelete: true}
	registry.Register(api)

	notifier := &collectingNotifier{}
	recoverer, err := recovery.NewCoordinator(s, registry, notifier, nil)
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}

	scheduler, err := NewScheduler(Config{
		Store:     s,
		Machine:   machine,
		Limiter:   limiter,
		Platforms: registry,
		Recoverer: recoverer,
		Notifier:  notifier,
	})
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	return &fixture{store: s, machine: machine, limiter: limiter, registry: registry,
		scheduler: scheduler, notifier: notifier, api: api}
}

func (f *fixture) seedScheduled(t *testing.T, publishAt time.Time) *draft.ContentDraft {
	t.Helper()
	d := draft.New("c-1", "linkedin", "post", "copy")
	d.Status = draft.StatusScheduled
	if err := f.store.SaveDraft(context.Background(), d); err != nil {
		t.Fatalf("SaveDraft failed: %v", err)
	}
	if err := f.store.Enqueue(context.Background(), draft.QueueEntry{DraftID: d.ID, PublishAt: publishAt}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	return d
}

func TestTick_PublishesDueEntries(t *testing.T) {
	f := newFixture(t, nil)
	d := f.seedScheduled(t, time.Now().Add(-time.Minute))
	f.seedScheduled(t, time.Now().Add(time.Hour)) // not due

	n, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 publish, got %d", n)
	}
	if f.api.count() != 1 {
		t.Errorf("Expected 1 platform call, got %d", f.api.count())
	}

	got, _ := f.store.GetDraft(context.Background(), d.ID)
	if got.Status != draft.StatusPublished {
		t.Errorf("Expected published, got %s", got.Status)
	}
}

func TestTick_PausedPublishesNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.seedScheduled(t, time.Now().Add(-time.Minute))

	if err := f.scheduler.Pause(context.Background(), "op"); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	n, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if n != 0 || f.api.count() != 0 {
		t.Error("Expected no publishes while paused")
	}

	// Queue preserved for after resume.
	qlen, _ := f.store.QueueLength(context.Background())
	if qlen != 1 {
		t.Errorf("Expected queue preserved while paused, got %d entries", qlen)
	}

	if err := f.scheduler.Resume(context.Background(), "op"); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	n, _ = f.scheduler.Tick(context.Background())
	if n != 1 {
		t.Errorf("Expected publish after resume, got %d", n)
	}
}

func TestTick_RateLimitedJobsDeferred(t *testing.T) {
	f := newFixture(t, map[string]ratelimit.Rule{
		"linkedin": {MaxCalls: 1, Window: time.Hour},
	})
	f.seedScheduled(t, time.Now().Add(-2*time.Minute))
	f.seedScheduled(t, time.Now().Add(-time.Minute))

	n, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 publish within budget, got %d", n)
	}

	// The second job is re-queued for the window's next opening.
	qlen, _ := f.store.QueueLength(context.Background())
	if qlen != 1 {
		t.Errorf("Expected 1 deferred entry, got %d", qlen)
	}

	deferred, _ := f.store.DueEntries(context.Background(), time.Now().Add(2*time.Hour))
	if len(deferred) != 1 {
		t.Fatalf("Expected deferred entry, got %d", len(deferred))
	}
	if deferred[0].RetryCount != 1 {
		t.Errorf("Expected retry count 1, got %d", deferred[0].RetryCount)
	}
	if !deferred[0].PublishAt.After(time.Now().Add(50 * time.Minute)) {
		t.Errorf("Expected deferral near window expiry, got %v", deferred[0].PublishAt)
	}
}

func TestTick_PublishFailureRunsRecovery(t *testing.T) {
	f := newFixture(t, nil)
	f.api.publishErr = errors.New("platform 500")
	d := f.seedScheduled(t, time.Now().Add(-time.Minute))

	if _, err := f.scheduler.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	got, _ := f.store.GetDraft(context.Background(), d.ID)
	if got.Status != draft.StatusFailed {
		t.Errorf("Expected failed, got %s", got.Status)
	}

	logs, _ := f.store.RecoveryLogs(context.Background(), d.ID)
	if len(logs) != 1 {
		t.Fatalf("Expected one recovery log, got %d", len(logs))
	}
	// No post went live, so recovery completes without deletion.
	if logs[0].Status != draft.RecoveryCompleted {
		t.Errorf("Expected completed recovery, got %s", logs[0].Status)
	}
}

func TestTick_StaleQueueEntryDropped(t *testing.T) {
	f := newFixture(t, nil)
	d := f.seedScheduled(t, time.Now().Add(-time.Minute))

	// Operator archived the draft between scheduling and the tick.
	archived, _ := f.store.GetDraft(context.Background(), d.ID)
	archived.Status = draft.StatusPublished
	_ = f.store.SaveDraft(context.Background(), archived)

	n, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if n != 0 || f.api.count() != 0 {
		t.Error("Entries for drafts no longer scheduled must be dropped")
	}
}

func TestTick_MissingDraftEntryDropped(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.store.Enqueue(context.Background(), draft.QueueEntry{DraftID: "gone", PublishAt: time.Now().Add(-time.Hour)}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	d := f.seedScheduled(t, time.Now().Add(-time.Minute))

	n, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 publish past the dropped entry, got %d", n)
	}

	got, _ := f.store.GetDraft(context.Background(), d.ID)
	if got.Status != draft.StatusPublished {
		t.Errorf("Expected published, got %s", got.Status)
	}

	// The entry for the missing draft is consumed, not re-queued forever.
	qlen, _ := f.store.QueueLength(context.Background())
	if qlen != 0 {
		t.Errorf("Expected empty queue, got %d entries", qlen)
	}
}

// flakyStore fails a bounded number of GetDraft calls, then delegates.
type flakyStore struct {
	store.Store
	mu       sync.Mutex
	failures int
}

func (f *flakyStore) GetDraft(ctx context.Context, id string) (*draft.ContentDraft, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return nil, errors.New("store unavailable")
	}
	f.mu.Unlock()
	return f.Store.GetDraft(ctx, id)
}

func TestTick_FaultedBatchRequeued(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	flaky := &flakyStore{Store: mem, failures: 1}

	machine, err := approval.NewMachine(approval.Config{Store: flaky})
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	limiter, err := ratelimit.New(nil)
	if err != nil {
		t.Fatalf("ratelimit.New failed: %v", err)
	}
	registry := platform.NewRegistry()
	api := &fakePlatform{name: "linkedin", canDelete: true}
	registry.Register(api)

	scheduler, err := NewScheduler(Config{Store: flaky, Machine: machine, Limiter: limiter, Platforms: registry})
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		d := draft.New("c-1", "linkedin", "post", "copy")
		d.Status = draft.StatusScheduled
		if err := mem.SaveDraft(ctx, d); err != nil {
			t.Fatalf("SaveDraft failed: %v", err)
		}
		if err := mem.Enqueue(ctx, draft.QueueEntry{DraftID: d.ID, PublishAt: time.Now().Add(-time.Minute)}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	if _, err := scheduler.Tick(ctx); err == nil {
		t.Fatal("Expected tick to surface the store fault")
	}

	// Both claimed entries are back on the queue: the failed one and the
	// remainder it blocked.
	qlen, _ := mem.QueueLength(ctx)
	if qlen != 2 {
		t.Fatalf("Expected both entries re-queued after fault, got %d", qlen)
	}

	n, err := scheduler.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick after recovery failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected both jobs published on retry, got %d", n)
	}
	if qlen, _ := mem.QueueLength(ctx); qlen != 0 {
		t.Errorf("Expected empty queue after retry, got %d entries", qlen)
	}
}
