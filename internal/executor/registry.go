package executor

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// Handler executes one command payload and returns its JSON result. A handler
// may return a result together with an error; the executor records both.
type Handler func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

// Registry maps command names to handlers. Registration normally happens once
// during startup, but the registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a command name to a handler, replacing any previous binding.
// Empty names and nil handlers are ignored.
func (r *Registry) Register(name string, handler Handler) {
	name = strings.TrimSpace(name)
	if name == "" || handler == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Lookup returns the handler bound to name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[name]
	return handler, ok
}

// Commands lists registered command names in sorted order.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
