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

// SettingsStore implements storage.SettingsStore using PostgreSQL.
type SettingsStore struct {
	pool *Pool
}

// NewSettingsStore creates a new SettingsStore.
func NewSettingsStore(pool *Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SettingsStore = (*SettingsStore)(nil)

// Upsert inserts or replaces the settings row for its tracked wallet.
// Rejects values that fail domain validation.
func (s *SettingsStore) Upsert(ctx context.Context, settings *domain.CopyTradeSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	id := settings.ID
	if id == nil {
		generated := uuid.New()
		id = &generated
		settings.ID = id
	}

	query := `
		INSERT INTO copy_trade_settings (
			id, user_id, tracked_wallet_id, is_enabled, trade_amount_sol,
			max_slippage, max_open_positions, allowed_tokens,
			use_allowed_tokens_list, allow_additional_buys,
			match_sell_percentage, min_sol_balance, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		ON CONFLICT (tracked_wallet_id) DO UPDATE SET
			is_enabled = EXCLUDED.is_enabled,
			trade_amount_sol = EXCLUDED.trade_amount_sol,
			max_slippage = EXCLUDED.max_slippage,
			max_open_positions = EXCLUDED.max_open_positions,
			allowed_tokens = EXCLUDED.allowed_tokens,
			use_allowed_tokens_list = EXCLUDED.use_allowed_tokens_list,
			allow_additional_buys = EXCLUDED.allow_additional_buys,
			match_sell_percentage = EXCLUDED.match_sell_percentage,
			min_sol_balance = EXCLUDED.min_sol_balance,
			updated_at = now()
	`

	_, err := s.pool.Exec(ctx, query,
		id,
		settings.UserID,
		settings.TrackedWalletID,
		settings.IsEnabled,
		settings.TradeAmountSOL,
		settings.MaxSlippage,
		settings.MaxOpenPositions,
		settings.AllowedTokens,
		settings.UseAllowedTokensList,
		settings.AllowAdditionalBuys,
		settings.MatchSellPercentage,
		settings.MinSOLBalance,
	)
	if err != nil {
		return fmt.Errorf("upsert copy trade settings: %w", err)
	}
	return nil
}

// GetByWalletID retrieves settings for a tracked wallet.
func (s *SettingsStore) GetByWalletID(ctx context.Context, trackedWalletID uuid.UUID) (*domain.CopyTradeSettings, error) {
	query := settingsSelect + ` WHERE tracked_wallet_id = $1`

	row := s.pool.QueryRow(ctx, query, trackedWalletID)
	settings, err := scanSettings(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get settings by wallet id: %w", err)
	}
	return settings, nil
}

// List retrieves every settings row.
func (s *SettingsStore) List(ctx context.Context) ([]*domain.CopyTradeSettings, error) {
	rows, err := s.pool.Query(ctx, settingsSelect+` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []*domain.CopyTradeSettings
	for rows.Next() {
		settings, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settings: %w", err)
		}
		out = append(out, settings)
	}
	return out, rows.Err()
}

// Delete removes the settings row for a tracked wallet.
func (s *SettingsStore) Delete(ctx context.Context, trackedWalletID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM copy_trade_settings WHERE tracked_wallet_id = $1`, trackedWalletID)
	if err != nil {
		return fmt.Errorf("delete settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const settingsSelect = `
	SELECT id, user_id, tracked_wallet_id, is_enabled, trade_amount_sol,
	       max_slippage, max_open_positions, allowed_tokens,
	       use_allowed_tokens_list, allow_additional_buys,
	       match_sell_percentage, min_sol_balance, created_at, updated_at
	FROM copy_trade_settings`

// scanSettings scans a single row into CopyTradeSettings.
func scanSettings(row pgx.Row) (*domain.CopyTradeSettings, error) {
	var (
		s         domain.CopyTradeSettings
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.TrackedWalletID,
		&s.IsEnabled,
		&s.TradeAmountSOL,
		&s.MaxSlippage,
		&s.MaxOpenPositions,
		&s.AllowedTokens,
		&s.UseAllowedTokensList,
		&s.AllowAdditionalBuys,
		&s.MatchSellPercentage,
		&s.MinSOLBalance,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = &createdAt
	s.UpdatedAt = &updatedAt
	return &s, nil
}
