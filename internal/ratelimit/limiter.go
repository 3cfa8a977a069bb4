// Package ratelimit provides a per-platform sliding-window call budget for
// publish execution.
package ratelimit

import (
	"sync"
	"time"

	"github.com/copydesk/copydesk/internal/errors"
)

// Rule is one platform's call budget.
type Rule struct {
	MaxCalls int
	Window   time.Duration
}

// Limiter tracks publish calls per platform against configured windows.
// Platforms without a rule are unrestricted: the fail-open policy is a
// deliberate choice so a new platform integration is never silently
// blocked by missing configuration.
//
// Prune, check, and record run under one mutex so concurrent publishers
// cannot overshoot a budget between the check and the record.
type Limiter struct {
	mu    sync.Mutex
	rules map[string]Rule
	calls map[string][]time.Time
	now   func() time.Time
}

// New creates a Limiter over an immutable rule table.
func New(rules map[string]Rule) (*Limiter, error) {
	for platform, r := range rules {
		if r.MaxCalls <= 0 {
			return nil, errors.NewValidationError("max_calls", "must be positive for platform "+platform).WithValue(r.MaxCalls)
		}
		if r.Window <= 0 {
			return nil, errors.NewValidationError("window", "must be positive for platform "+platform).WithValue(r.Window.String())
		}
	}

	copied := make(map[string]Rule, len(rules))
	for k, v := range rules {
		copied[k] = v
	}
	return &Limiter{
		rules: copied,
		calls: make(map[string][]time.Time),
		now:   time.Now,
	}, nil
}

// WithClock overrides the time source. For tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	return l
}

// CanPublish reports whether the platform has budget for another call.
func (l *Limiter) CanPublish(platform string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rule, ok := l.rules[platform]
	if !ok {
		return true
	}
	l.prune(platform, rule)
	return len(l.calls[platform]) < rule.MaxCalls
}

// RecordCall registers a publish call at the current time.
func (l *Limiter) RecordCall(platform string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.rules[platform]; !ok {
		return
	}
	l.calls[platform] = append(l.calls[platform], l.now())
}

// TryAcquire checks the budget and records the call as one unit. Returns
// false without recording when the platform is out of budget.
func (l *Limiter) TryAcquire(platform string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rule, ok := l.rules[platform]
	if !ok {
		return true
	}
	l.prune(platform, rule)
	if len(l.calls[platform]) >= rule.MaxCalls {
		return false
	}
	l.calls[platform] = append(l.calls[platform], l.now())
	return true
}

// NextAvailable returns when the platform next has budget: now when under
// budget, otherwise the expiry of the oldest call in the window.
func (l *Limiter) NextAvailable(platform string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rule, ok := l.rules[platform]
	if !ok {
		return now
	}
	l.prune(platform, rule)

	calls := l.calls[platform]
	if len(calls) < rule.MaxCalls {
		return now
	}
	return calls[0].Add(rule.Window)
}

// Remaining returns how many calls the platform has left in the current
// window, or -1 for unrestricted platforms.
func (l *Limiter) Remaining(platform string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rule, ok := l.rules[platform]
	if !ok {
		return -1
	}
	l.prune(platform, rule)

	left := rule.MaxCalls - len(l.calls[platform])
	if left < 0 {
		left = 0
	}
	return left
}

// Rules returns a copy of the rule table.
func (l *Limiter) Rules() map[string]Rule {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]Rule, len(l.rules))
	for k, v := range l.rules {
		out[k] = v
	}
	return out
}

// prune drops calls older than the window. Caller holds the lock.
func (l *Limiter) prune(platform string, rule Rule) {
	cutoff := l.now().Add(-rule.Window)
	calls := l.calls[platform]

	i := 0
	for i < len(calls) && !calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls[platform] = calls[i:]
	}
}
