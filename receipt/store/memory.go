// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/receipt-engine/receipt"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	receipts map[string]*receipt.Receipt
	order    []string // insertion order, so All() is deterministic
}

func NewMemory() *Memory {
	return &Memory{
		receipts: make(map[string]*receipt.Receipt),
	}
}

func (m *Memory) Insert(_ context.Context, r *receipt.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.receipts[r.ID]; exists {
		return receipt.ErrDuplicateID
	}
	m.receipts[r.ID] = r.Clone()
	m.order = append(m.order, r.ID)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*receipt.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.receipts[id]
	if !ok {
		return nil, receipt.ErrReceiptNotFound
	}
	return r.Clone(), nil
}

func (m *Memory) Update(_ context.Context, r *receipt.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.receipts[r.ID]; !ok {
		return receipt.ErrReceiptNotFound
	}
	m.receipts[r.ID] = r.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.receipts[id]; !ok {
		return receipt.ErrReceiptNotFound
	}
	delete(m.receipts, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) All(_ context.Context) ([]*receipt.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*receipt.Receipt, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.receipts[id].Clone())
	}
	return result, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.receipts), nil
}

func (m *Memory) Close() error { return nil }
