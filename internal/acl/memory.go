package acl

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps permissions in process memory, grouped by document.
type MemoryStore struct {
	mu    sync.RWMutex
	roles map[string]map[string]Role // docID -> userID -> role
}

// NewMemoryStore creates an empty permission store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roles: make(map[string]map[string]Role),
	}
}

func (m *MemoryStore) Grant(docID, userID string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidRole, int(role))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	users, ok := m.roles[docID]
	if !ok {
		users = make(map[string]Role)
		m.roles[docID] = users
	}

	users[userID] = role

	return nil
}

func (m *MemoryStore) Revoke(docID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := m.roles[docID]
	if _, ok := users[userID]; !ok {
		return ErrPermissionNotFound
	}

	delete(users, userID)

	if len(users) == 0 {
		delete(m.roles, docID)
	}

	return nil
}

func (m *MemoryStore) RevokeAll(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.roles, docID)

	return nil
}

func (m *MemoryStore) GetRole(docID, userID string) (Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	role, ok := m.roles[docID][userID]
	if !ok {
		return 0, ErrPermissionNotFound
	}

	return role, nil
}

func (m *MemoryStore) ListPermissions(docID string) ([]Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Permission, 0, len(m.roles[docID]))

	for userID, role := range m.roles[docID] {
		result = append(result, Permission{DocID: docID, UserID: userID, Role: role})
	}

	slices.SortFunc(result, func(a, b Permission) int {
		return strings.Compare(a.UserID, b.UserID)
	})

	return result, nil
}

var _ Store = (*MemoryStore)(nil)
