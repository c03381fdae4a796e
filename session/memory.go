package session

import (
	"context"
	"sync"

	"github.com/MelnikovEI/fish-shop/shop"
)

// Memory is an in-process session store for tests and development.
type Memory struct {
	mu     sync.RWMutex
	states map[int64]shop.State
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{states: make(map[int64]shop.State)}
}

// Get returns the user's current state; first contact yields CHOOSING.
func (m *Memory) Get(_ context.Context, userID int64) (shop.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.states[userID]; ok {
		return st, nil
	}
	return shop.StateChoosing, nil
}

// SetState stores the user's state.
func (m *Memory) SetState(_ context.Context, userID int64, st shop.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[userID] = st
	return nil
}
