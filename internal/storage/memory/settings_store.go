package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"copytrade-monitor/internal/domain"
	"copytrade-monitor/internal/storage"
)

// SettingsStore implements storage.SettingsStore in memory.
type SettingsStore struct {
	mu       sync.RWMutex
	settings map[uuid.UUID]*domain.CopyTradeSettings // keyed by tracked wallet id
}

// NewSettingsStore creates an empty in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{settings: make(map[uuid.UUID]*domain.CopyTradeSettings)}
}

// Compile-time interface check.
var _ storage.SettingsStore = (*SettingsStore)(nil)

// Upsert inserts or replaces the settings row for its tracked wallet.
func (s *SettingsStore) Upsert(_ context.Context, settings *domain.CopyTradeSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.ID == nil {
		id := uuid.New()
		settings.ID = &id
	}
	now := time.Now().UTC()
	if existing, ok := s.settings[settings.TrackedWalletID]; ok {
		settings.CreatedAt = existing.CreatedAt
	} else if settings.CreatedAt == nil {
		settings.CreatedAt = &now
	}
	settings.UpdatedAt = &now

	clone := *settings
	s.settings[settings.TrackedWalletID] = &clone
	return nil
}

// GetByWalletID retrieves settings for a tracked wallet.
func (s *SettingsStore) GetByWalletID(_ context.Context, trackedWalletID uuid.UUID) (*domain.CopyTradeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[trackedWalletID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *settings
	return &clone, nil
}

// List retrieves every settings row.
func (s *SettingsStore) List(_ context.Context) ([]*domain.CopyTradeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.CopyTradeSettings
	for _, settings := range s.settings {
		clone := *settings
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(*out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes the settings row for a tracked wallet.
func (s *SettingsStore) Delete(_ context.Context, trackedWalletID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.settings[trackedWalletID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.settings, trackedWalletID)
	return nil
}
