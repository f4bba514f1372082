package scheduler

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Status is the last observed state of a component.
type Status struct {
	Healthy     bool      `json:"healthy"`
	Message     string    `json:"message"`
	LastCheck   time.Time `json:"last_check"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   error     `json:"-"`
}

// Health tracks the health of the backend's components (database, llm,
// feeds). It is safe for concurrent use.
type Health struct {
	mu         sync.RWMutex
	components map[string]Status
	now        func() time.Time
}

// NewHealth creates a new health tracker.
func NewHealth() *Health {
	return &Health{
		components: make(map[string]Status),
		now:        time.Now,
	}
}

// SetHealthy marks a component as healthy.
func (h *Health) SetHealthy(component, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	h.components[component] = Status{
		Healthy:     true,
		Message:     message,
		LastCheck:   now,
		LastSuccess: now,
	}
}

// SetUnhealthy marks a component as unhealthy, keeping the time of its
// last success.
func (h *Health) SetUnhealthy(component string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.components[component]
	h.components[component] = Status{
		Healthy:     false,
		Message:     err.Error(),
		LastCheck:   h.now(),
		LastSuccess: prev.LastSuccess,
		LastError:   err,
	}
}

// Probe runs check and records the outcome under component.
func (h *Health) Probe(ctx context.Context, component, okMessage string, check func(context.Context) error) error {
	if err := check(ctx); err != nil {
		h.SetUnhealthy(component, err)
		return err
	}
	h.SetHealthy(component, okMessage)
	return nil
}

// Status returns the status of a component.
func (h *Health) Status(component string) (Status, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, ok := h.components[component]
	return s, ok
}

// Snapshot returns a copy of all component statuses.
func (h *Health) Snapshot() map[string]Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return maps.Clone(h.components)
}

// Healthy returns true if all components are healthy.
func (h *Health) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, status := range h.components {
		if !status.Healthy {
			return false
		}
	}
	return true
}
