// Package platform defines the publish API contract and a capability
// registry over the configured platform integrations.
package platform

import (
	"context"
	"sync"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
)

// API is one platform integration. Publish mechanics live behind this
// interface; the core only drives decisions.
type API interface {
	// Name returns the platform identifier ("instagram", "linkedin", ...).
	Name() string

	// Publish posts the draft and returns the platform's post id.
	Publish(ctx context.Context, d *draft.ContentDraft) (string, error)

	// SupportsDelete reports whether the platform allows programmatic
	// deletion of a live post.
	SupportsDelete() bool

	// Delete removes a live post. Only called when SupportsDelete is true.
	Delete(ctx context.Context, postID string) error
}

// Registry holds the configured platform integrations.
type Registry struct {
	mu        sync.RWMutex
	platforms map[string]API
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{platforms: make(map[string]API)}
}

// Register adds an integration, replacing any prior one of the same name.
func (r *Registry) Register(api API) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.platforms[api.Name()] = api
}

// Get returns the integration for a platform.
func (r *Registry) Get(name string) (API, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	api, ok := r.platforms[name]
	if !ok {
		return nil, errors.NewNotFoundError("platform", name)
	}
	return api, nil
}

// Names returns the registered platform names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.platforms))
	for name := range r.platforms {
		out = append(out, name)
	}
	return out
}
