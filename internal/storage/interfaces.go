// Package storage defines the repository interfaces behind the
// monitor's durable state. The monitor only reads at startup; writes
// flow through the relay from the processes that own the data.
package storage

import (
	"context"

	"github.com/google/uuid"

	"copytrade-monitor/internal/domain"
)

// WalletStore provides access to tracked_wallets storage.
type WalletStore interface {
	// Insert adds a new tracked wallet. Returns ErrDuplicateKey if the
	// address is already tracked for the user.
	Insert(ctx context.Context, w *domain.TrackedWallet) error

	// GetByAddress retrieves a wallet by address. Returns ErrNotFound
	// if not tracked.
	GetByAddress(ctx context.Context, address string) (*domain.TrackedWallet, error)

	// ListActive retrieves every active wallet, ordered by creation time.
	ListActive(ctx context.Context) ([]*domain.TrackedWallet, error)

	// SetActive archives or unarchives a wallet. Returns ErrNotFound
	// if the wallet does not exist.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// Delete removes a wallet. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// SettingsStore provides access to copy_trade_settings storage.
type SettingsStore interface {
	// Upsert inserts or replaces the settings row for its tracked wallet.
	Upsert(ctx context.Context, s *domain.CopyTradeSettings) error

	// GetByWalletID retrieves settings for a tracked wallet. Returns
	// ErrNotFound if none are configured.
	GetByWalletID(ctx context.Context, trackedWalletID uuid.UUID) (*domain.CopyTradeSettings, error)

	// List retrieves every settings row.
	List(ctx context.Context) ([]*domain.CopyTradeSettings, error)

	// Delete removes the settings row for a tracked wallet. Returns
	// ErrNotFound if none exist.
	Delete(ctx context.Context, trackedWalletID uuid.UUID) error
}

// TransactionLogStore provides access to transaction_logs storage.
type TransactionLogStore interface {
	// Insert appends a log record. Returns ErrDuplicateKey if the id
	// already exists.
	Insert(ctx context.Context, l *domain.TransactionLog) error

	// ListByUser retrieves the most recent records for a user, newest
	// first, bounded by limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.TransactionLog, error)

	// ListByWallet retrieves all records for a tracked wallet, newest first.
	ListByWallet(ctx context.Context, trackedWalletID uuid.UUID) ([]*domain.TransactionLog, error)
}
