// Package session holds the client-shell session manager: the single
// consumer of authorization-failure signals emitted by the auth middleware.
package session

import "sync"

// Manager caches the bearer token for a client session and turns repeated
// invalidation signals into at most one callback invocation. The guard stays
// set until Clear re-arms it, so a burst of 401s on in-flight requests cannot
// trigger a redirect loop.
type Manager struct {
	mu          sync.Mutex
	token       string
	invalidated bool
	onInvalid   func()
}

func NewManager() *Manager {
	return &Manager{}
}

// OnInvalidated registers the single callback fired when the session is
// invalidated. The expected consumer drops its cached credentials and sends
// the user back to authentication.
func (m *Manager) OnInvalidated(cb func()) {
	m.mu.Lock()
	m.onInvalid = cb
	m.mu.Unlock()
}

// SetToken stores a freshly issued token and re-arms the invalidation guard.
func (m *Manager) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	m.invalidated = false
	m.mu.Unlock()
}

// Token returns the cached token, or empty after invalidation or Clear.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.invalidated {
		return ""
	}
	return m.token
}

// Invalidate is the fire-and-forget signal from the auth layer. The first
// call after SetToken/Clear discards the token and fires the callback;
// further calls are no-ops until Clear.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	if m.invalidated {
		m.mu.Unlock()
		return
	}
	m.invalidated = true
	m.token = ""
	cb := m.onInvalid
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Clear discards any cached token and re-arms the invalidation guard.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.token = ""
	m.invalidated = false
	m.mu.Unlock()
}
