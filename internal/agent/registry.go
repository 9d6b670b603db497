package agent

import (
	"log/slog"
	"sync"
)

// Registry maps agent names to handlers. It is populated at startup and
// read on every request.
//
// Registering a second agent under an existing name replaces the first
// (last write wins) and keeps the original position in List order.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	order  []string
	logger *slog.Logger
}

// NewRegistry creates an empty agent registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		agents: make(map[string]Agent),
		logger: logger,
	}
}

// Register stores the agent under a.Name(), replacing any prior entry.
func (r *Registry) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.agents[name]; exists {
		r.agents[name] = a
		r.logger.Warn("agent replaced", slog.String("agent", name))
		return
	}
	r.agents[name] = a
	r.order = append(r.order, name)
	r.logger.Info("agent registered",
		slog.String("agent", name),
		slog.Int("registered", len(r.order)),
	)
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// List returns all agents in registration order.
func (r *Registry) List() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Agent, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.agents[name])
	}
	return result
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
