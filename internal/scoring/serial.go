package scoring

import (
	"context"
	"sync"
)

// SerialService wraps a Service so all embedding requests serialize through
// a single lock. The underlying accelerator has a fixed memory budget; the
// lock protects that budget, not correctness. Callers queue and are served
// in lock-acquisition order.
//
// Feature extraction and sentiment are not serialized: only Embed contends
// for the shared accelerator.
type SerialService struct {
	inner Service
	mu    sync.Mutex
}

// NewSerialService wraps the given service.
func NewSerialService(inner Service) *SerialService {
	return &SerialService{inner: inner}
}

// StylometricFeatures implements Service.
func (s *SerialService) StylometricFeatures(ctx context.Context, text string) (Features, error) {
	return s.inner.StylometricFeatures(ctx, text)
}

// Embed implements Service, holding the accelerator lock for the duration
// of the call.
func (s *SerialService) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Embed(ctx, text)
}

// Sentiment implements Service.
func (s *SerialService) Sentiment(ctx context.Context, comments []string) (Polarity, error) {
	return s.inner.Sentiment(ctx, comments)
}
