// Package memory implements the storage interfaces on in-process maps
// for tests and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"copytrade-monitor/internal/domain"
	"copytrade-monitor/internal/storage"
)

// WalletStore implements storage.WalletStore in memory.
type WalletStore struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.TrackedWallet
}

// NewWalletStore creates an empty in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{wallets: make(map[uuid.UUID]*domain.TrackedWallet)}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Insert adds a new tracked wallet.
func (s *WalletStore) Insert(_ context.Context, w *domain.TrackedWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.wallets {
		if existing.WalletAddress == w.WalletAddress && sameUser(existing.UserID, w.UserID) {
			return storage.ErrDuplicateKey
		}
	}

	if w.ID == nil {
		id := uuid.New()
		w.ID = &id
	}
	now := time.Now().UTC()
	if w.CreatedAt == nil {
		w.CreatedAt = &now
	}
	w.UpdatedAt = &now

	clone := *w
	s.wallets[*w.ID] = &clone
	return nil
}

// GetByAddress retrieves a wallet by address.
func (s *WalletStore) GetByAddress(_ context.Context, address string) (*domain.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.wallets {
		if w.WalletAddress == address {
			clone := *w
			return &clone, nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListActive retrieves every active wallet, ordered by creation time.
func (s *WalletStore) ListActive(_ context.Context) ([]*domain.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TrackedWallet
	for _, w := range s.wallets {
		if w.IsActive {
			clone := *w
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(*out[j].CreatedAt)
	})
	return out, nil
}

// SetActive archives or unarchives a wallet.
func (s *WalletStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[id]
	if !ok {
		return storage.ErrNotFound
	}
	w.IsActive = active
	now := time.Now().UTC()
	w.UpdatedAt = &now
	return nil
}

// Delete removes a wallet.
func (s *WalletStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.wallets, id)
	return nil
}

func sameUser(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
