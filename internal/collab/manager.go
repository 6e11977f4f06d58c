package collab

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/serroba/rich-docs/internal/acl"
	"github.com/serroba/rich-docs/internal/storage"
	"github.com/serroba/rich-docs/internal/ws"
)

// Manager owns one Session per open document.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	// Shared by every session
	store          storage.Store
	permChecker    *acl.Checker
	hub            *ws.Hub
	snapshotPolicy *storage.SnapshotPolicy
	historySize    int
	undoDepth      int
	logger         *zap.Logger
}

// ManagerConfig holds configuration for creating a manager.
type ManagerConfig struct {
	Store          storage.Store
	PermStore      acl.Store // nil switches access control off
	Hub            *ws.Hub
	SnapshotPolicy *storage.SnapshotPolicy
	HistorySize    int
	UndoDepth      int
	Logger         *zap.Logger
}

// NewManager creates a new session manager.
func NewManager(cfg ManagerConfig) *Manager {
	historySize := cfg.HistorySize
	if historySize == 0 {
		historySize = DefaultHistorySize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var permChecker *acl.Checker
	if cfg.PermStore != nil {
		permChecker = acl.NewChecker(cfg.PermStore)
	}

	return &Manager{
		sessions:       make(map[string]*Session),
		store:          cfg.Store,
		permChecker:    permChecker,
		hub:            cfg.Hub,
		snapshotPolicy: cfg.SnapshotPolicy,
		historySize:    historySize,
		undoDepth:      cfg.UndoDepth,
		logger:         logger,
	}
}

// GetOrCreateSession returns an existing session or creates a new one.
func (m *Manager) GetOrCreateSession(docID string) (*Session, error) {
	// Try read lock first
	m.mu.RLock()
	session, exists := m.sessions[docID]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	// Need to create - acquire write lock
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if session, exists = m.sessions[docID]; exists {
		return session, nil
	}

	session = NewSession(SessionConfig{
		DocID:          docID,
		Store:          m.store,
		PermChecker:    m.permChecker,
		Hub:            m.hub,
		SnapshotPolicy: m.snapshotPolicy,
		HistorySize:    m.historySize,
		UndoDepth:      m.undoDepth,
		Logger:         m.logger,
	})

	if err := session.Load(); err != nil {
		return nil, err
	}

	m.sessions[docID] = session

	return session, nil
}

// GetSession returns an existing session or nil if not found.
func (m *Manager) GetSession(docID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sessions[docID]
}

// CloseSession closes and removes a session.
func (m *Manager) CloseSession(docID string) error {
	m.mu.Lock()
	session, exists := m.sessions[docID]

	if !exists {
		m.mu.Unlock()

		return nil
	}

	delete(m.sessions, docID)
	m.mu.Unlock()

	return session.Close()
}

// CloseAll closes all sessions.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))

	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}

	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error

	for _, s := range sessions {
		if err := s.Close(); err != nil {
			m.logger.Error("close session", zap.String("doc_id", s.DocID()), zap.Error(err))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// SessionCount returns the number of active sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}
