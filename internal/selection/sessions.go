package selection

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session is one client's selection state
type Session struct {
	ID string

	mu         sync.Mutex
	controller *Controller
	lastSeen   time.Time
}

// Do runs fn with exclusive access to the session's controller and returns
// the resulting state
func (s *Session) Do(fn func(c *Controller)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		fn(s.controller)
	}
	return s.controller.state
}

// Render returns the session's current view
func (s *Session) Render() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Render(s.controller.catalog, s.controller.state, s.controller.pageSize)
}

// Manager owns all live sessions
type Manager struct {
	catalog  Catalog
	pageSize int
	logger   *logrus.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(catalog Catalog, pageSize int, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		catalog:  catalog,
		pageSize: pageSize,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session in the initial state
func (m *Manager) Create() *Session {
	s := &Session{
		ID:         uuid.NewString(),
		controller: NewController(m.catalog, m.pageSize),
		lastSeen:   m.now(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.WithField("session_id", s.ID).Debug("Created session")
	return s
}

// Get returns a session and marks it as recently used
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	s.lastSeen = m.now()
	s.mu.Unlock()
	return s, true
}

// Delete discards a session; it reports whether the session existed
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Prune removes sessions idle for longer than idle and returns their ids
func (m *Manager) Prune(idle time.Duration) []string {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for id, s := range m.sessions {
		s.mu.Lock()
		stale := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(m.sessions, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		m.logger.WithFields(logrus.Fields{
			"removed":   len(removed),
			"remaining": len(m.sessions),
		}).Info("Pruned idle sessions")
	}
	return removed
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
