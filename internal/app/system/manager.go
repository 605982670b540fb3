package system

import (
	"context"
	"fmt"
	"sync"
)

// Manager starts registered services in order and stops them in reverse.
type Manager struct {
	mu       sync.Mutex
	services []Service
	started  []Service
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a service. Registration order is start order.
func (m *Manager) Register(svc Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, svc)
}

// StartAll starts every registered service. On failure, already-started
// services are stopped before the error is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, svc := range m.services {
		if err := svc.Start(ctx); err != nil {
			m.stopLocked(ctx)
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
		m.started = append(m.started, svc)
	}
	return nil
}

// StopAll stops started services in reverse order. The first error is
// returned; remaining services are still stopped.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	var firstErr error
	for i := len(m.started) - 1; i >= 0; i-- {
		if err := m.started[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop %s: %w", m.started[i].Name(), err)
		}
	}
	m.started = nil
	return firstErr
}
