package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/citations"
)

// Manager hands out the per-session citation registry. All activity
// invocations for one research session share a single registry so
// global ids stay consistent across concurrent sub-question loops;
// separate sessions never share numbering.
type Manager struct {
	mu         sync.Mutex
	registries map[string]*citations.Registry
	logger     *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		registries: make(map[string]*citations.Registry),
		logger:     logger,
	}
}

// Registry returns the registry for a session, creating it on first use.
func (m *Manager) Registry(sessionID string) *citations.Registry {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.registries[sessionID]
	if !ok {
		reg = citations.NewRegistry()
		m.registries[sessionID] = reg
		m.logger.Debug("created citation registry", zap.String("session_id", sessionID))
	}
	return reg
}

// Release drops a finished session's registry.
func (m *Manager) Release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.registries[sessionID]; ok {
		delete(m.registries, sessionID)
		m.logger.Debug("released citation registry", zap.String("session_id", sessionID))
	}
}

// Active reports how many sessions currently hold a registry.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.registries)
}
