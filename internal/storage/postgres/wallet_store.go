package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"copytrade-monitor/internal/domain"
	"copytrade-monitor/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Insert adds a new tracked wallet. Returns ErrDuplicateKey if the
// address is already tracked for the user.
func (s *WalletStore) Insert(ctx context.Context, w *domain.TrackedWallet) error {
	id := w.ID
	if id == nil {
		generated := uuid.New()
		id = &generated
		w.ID = id
	}

	query := `
		INSERT INTO tracked_wallets (
			id, user_id, wallet_address, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, now(), now())
	`

	_, err := s.pool.Exec(ctx, query, id, w.UserID, w.WalletAddress, w.IsActive)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert tracked wallet: %w", err)
	}
	return nil
}

// GetByAddress retrieves a wallet by address. Returns ErrNotFound if
// not tracked.
func (s *WalletStore) GetByAddress(ctx context.Context, address string) (*domain.TrackedWallet, error) {
	query := `
		SELECT id, user_id, wallet_address, is_active, created_at, updated_at
		FROM tracked_wallets
		WHERE wallet_address = $1
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, address)
	w, err := scanTrackedWallet(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tracked wallet by address: %w", err)
	}
	return w, nil
}

// ListActive retrieves every active wallet, ordered by creation time.
func (s *WalletStore) ListActive(ctx context.Context) ([]*domain.TrackedWallet, error) {
	query := `
		SELECT id, user_id, wallet_address, is_active, created_at, updated_at
		FROM tracked_wallets
		WHERE is_active
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*domain.TrackedWallet
	for rows.Next() {
		w, err := scanTrackedWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracked wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// SetActive archives or unarchives a wallet.
func (s *WalletStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tracked_wallets SET is_active = $2, updated_at = now() WHERE id = $1`,
		id, active)
	if err != nil {
		return fmt.Errorf("set wallet active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a wallet.
func (s *WalletStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tracked_wallets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tracked wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanTrackedWallet scans a single row into TrackedWallet.
func scanTrackedWallet(row pgx.Row) (*domain.TrackedWallet, error) {
	var (
		w         domain.TrackedWallet
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(&w.ID, &w.UserID, &w.WalletAddress, &w.IsActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	w.CreatedAt = &createdAt
	w.UpdatedAt = &updatedAt
	return &w, nil
}
