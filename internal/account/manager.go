package account

import (
	"fmt"
	"sort"
	"sync"

	ptypes "posbook/internal/types"
)

// Manager holds the account actors of one process, keyed by account id.
// Actors are registered at startup; lookup afterwards is read-only.
type Manager struct {
	mu     sync.RWMutex
	actors map[string]*Actor
}

func NewManager() *Manager {
	return &Manager{actors: make(map[string]*Actor)}
}

func (m *Manager) Register(a *Actor) {
	m.mu.Lock()
	m.actors[a.AccountID()] = a
	m.mu.Unlock()
}

func (m *Manager) Get(accountID string) (*Actor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.actors[accountID]
	return a, ok
}

// AccountIDs lists registered accounts in stable order.
func (m *Manager) AccountIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.actors))
	for id := range m.actors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns the published snapshot of one account.
func (m *Manager) Snapshot(accountID string) (ptypes.AccountSnapshot, error) {
	a, ok := m.Get(accountID)
	if !ok {
		return ptypes.AccountSnapshot{}, fmt.Errorf("unknown account %q", accountID)
	}
	return a.Snapshot(), nil
}

// StartAll starts every registered actor.
func (m *Manager) StartAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.actors {
		a.Start()
	}
}

// StopAll stops every registered actor.
func (m *Manager) StopAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.actors {
		a.Stop()
	}
}
