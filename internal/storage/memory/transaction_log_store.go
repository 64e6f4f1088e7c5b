package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"copytrade-monitor/internal/domain"
	"copytrade-monitor/internal/storage"
)

// TransactionLogStore implements storage.TransactionLogStore in memory.
type TransactionLogStore struct {
	mu   sync.RWMutex
	logs map[uuid.UUID]*domain.TransactionLog
}

// NewTransactionLogStore creates an empty in-memory log store.
func NewTransactionLogStore() *TransactionLogStore {
	return &TransactionLogStore{logs: make(map[uuid.UUID]*domain.TransactionLog)}
}

// Compile-time interface check.
var _ storage.TransactionLogStore = (*TransactionLogStore)(nil)

// Insert appends a log record.
func (s *TransactionLogStore) Insert(_ context.Context, l *domain.TransactionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logs[l.ID]; ok {
		return storage.ErrDuplicateKey
	}
	clone := *l
	s.logs[l.ID] = &clone
	return nil
}

// ListByUser retrieves the most recent records for a user, newest first.
func (s *TransactionLogStore) ListByUser(_ context.Context, userID string, limit int) ([]*domain.TransactionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TransactionLog
	for _, l := range s.logs {
		if l.UserID == userID {
			clone := *l
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListByWallet retrieves all records for a tracked wallet, newest first.
func (s *TransactionLogStore) ListByWallet(_ context.Context, trackedWalletID uuid.UUID) ([]*domain.TransactionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TransactionLog
	for _, l := range s.logs {
		if l.TrackedWalletID != nil && *l.TrackedWalletID == trackedWalletID {
			clone := *l
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(logs []*domain.TransactionLog) {
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Timestamp.After(logs[j].Timestamp)
	})
}
