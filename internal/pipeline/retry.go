package pipeline

import (
	"github.com/copydesk/copydesk/internal/errors"
)

// DefaultMaxAttempts allows one evaluation plus one post-fix re-evaluation
// per gate.
const DefaultMaxAttempts = 2

// RetryPolicy bounds how many times a single gate may be attempted within
// one pipeline run. The bound exists to cap latency and generation cost,
// and it is enforced here rather than inside any gate so every gate gets
// the same budget.
type RetryPolicy struct {
	MaxAttempts int
}

// DefaultRetryPolicy returns the auto-fix-once policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts}
}

// Validate checks the policy is usable.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.NewValidationError("max_attempts", "must be at least 1").WithValue(p.MaxAttempts)
	}
	return nil
}

// AllowsFix reports whether another attempt is permitted after attempt n.
func (p RetryPolicy) AllowsFix(attempt int) bool {
	return attempt < p.MaxAttempts
}
