package bot

import (
	"context"
	"fmt"
	"sync"
)

// Registry is an explicit, host-owned collection of bots keyed by bot
// id. Hosts running multiple bot identities construct each Bot, add it
// here, and look it up when a webhook arrives for it. There is no
// hidden per-identity cache; the registry's scope is whatever the host
// gives it.
type Registry struct {
	mu   sync.RWMutex
	bots map[string]*Bot
}

// NewRegistry creates an empty bot registry.
func NewRegistry() *Registry {
	return &Registry{bots: make(map[string]*Bot)}
}

// Add registers a bot under its identity. Adding a second bot with the
// same id is an error.
func (r *Registry) Add(b *Bot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bots[b.ID()]; exists {
		return fmt.Errorf("bot %s already registered", b.ID())
	}
	r.bots[b.ID()] = b
	return nil
}

// Get returns the bot registered under the given id.
func (r *Registry) Get(botID string) (*Bot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bots[botID]
	return b, ok
}

// Bots returns all registered bots.
func (r *Registry) Bots() []*Bot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Bot, 0, len(r.bots))
	for _, b := range r.bots {
		out = append(out, b)
	}
	return out
}

// CloseAll runs every bot's shutdown finalizer. Failures are logged by
// the bots themselves and never block shutdown.
func (r *Registry) CloseAll(ctx context.Context) {
	for _, b := range r.Bots() {
		b.Close(ctx)
	}
}
