package state

import "sync"

// Manager owns the current State and serializes commands against it.
// Concurrent writers are last-writer-wins; there is no version check.
type Manager struct {
	mu    sync.RWMutex
	state State
}

func NewManager() *Manager {
	return &Manager{}
}

// Snapshot returns the current state. The result must be treated as read-only.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Dispatch applies cmds in order and returns the resulting state.
func (m *Manager) Dispatch(cmds ...Command) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cmd := range cmds {
		m.state = Reduce(m.state, cmd)
	}
	return m.state
}

// Update runs decide against the current state while holding the write lock
// and applies the commands it returns. Nothing is applied when decide fails.
func (m *Manager) Update(decide func(State) ([]Command, error)) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmds, err := decide(m.state)
	if err != nil {
		return m.state, err
	}
	for _, cmd := range cmds {
		m.state = Reduce(m.state, cmd)
	}
	return m.state, nil
}
