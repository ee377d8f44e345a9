package repository

import (
	"context"
	"sort"
	"sync"

	"erc20scan/internal/models"
)

// MemoryStore is an in-memory Store with the same semantics as the Postgres
// implementation. It backs the ingester and handler tests.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[memoryKey]models.TokenTransfer
}

type memoryKey struct {
	txHash   string
	logIndex int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[memoryKey]models.TokenTransfer)}
}

func (m *MemoryStore) GetLastSavedBlock(ctx context.Context) (*int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var max *int64
	for _, t := range m.rows {
		if max == nil || t.BlockNumber > *max {
			n := t.BlockNumber
			max = &n
		}
	}
	return max, nil
}

func (m *MemoryStore) InsertTransfer(ctx context.Context, t *models.TokenTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey{txHash: t.TxHash, logIndex: t.LogIndex}
	if _, exists := m.rows[key]; exists {
		// ON CONFLICT DO NOTHING
		return nil
	}
	m.rows[key] = *t
	return nil
}

func (m *MemoryStore) GetTransferByHash(ctx context.Context, hash string) (*models.TokenTransfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.rows {
		if t.TxHash == hash {
			out := t
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListTransfers(ctx context.Context, f models.TransferFilter) ([]models.TokenTransfer, error) {
	m.mu.RLock()
	matched := make([]models.TokenTransfer, 0)
	for _, t := range m.rows {
		if matchesFilter(t, f) {
			matched = append(matched, t)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].BlockNumber != matched[j].BlockNumber {
			return matched[i].BlockNumber > matched[j].BlockNumber
		}
		return matched[i].LogIndex > matched[j].LogIndex
	})

	limit, offset := f.Normalize()
	if offset >= len(matched) {
		return []models.TokenTransfer{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func matchesFilter(t models.TokenTransfer, f models.TransferFilter) bool {
	if f.Sender != "" && t.Sender != f.Sender {
		return false
	}
	if f.Receiver != "" && (t.Receiver == nil || *t.Receiver != f.Receiver) {
		return false
	}
	if f.Participant != "" {
		isReceiver := t.Receiver != nil && *t.Receiver == f.Participant
		if t.Sender != f.Participant && !isReceiver {
			return false
		}
	}
	if f.StartTime != nil && t.TxTime < *f.StartTime {
		return false
	}
	if f.EndTime != nil && t.TxTime > *f.EndTime {
		return false
	}
	return true
}

// CountTransfers returns the total number of stored rows.
func (m *MemoryStore) CountTransfers(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.rows)), nil
}

// Len reports the number of stored rows.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
