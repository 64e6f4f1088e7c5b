package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CopyTradeSettings configures copy trading for one tracked wallet.
// One list is held per process instance and updated in place by relay
// events keyed on TrackedWalletID.
type CopyTradeSettings struct {
	ID                   *uuid.UUID `json:"id"`
	UserID               *uuid.UUID `json:"user_id"`
	TrackedWalletID      uuid.UUID  `json:"tracked_wallet_id"`
	IsEnabled            bool       `json:"is_enabled"`
	TradeAmountSOL       float64    `json:"trade_amount_sol"`
	MaxSlippage          float64    `json:"max_slippage"`
	MaxOpenPositions     int        `json:"max_open_positions"`
	AllowedTokens        []string   `json:"allowed_tokens"`
	UseAllowedTokensList bool       `json:"use_allowed_tokens_list"`
	AllowAdditionalBuys  bool       `json:"allow_additional_buys"`
	MatchSellPercentage  bool       `json:"match_sell_percentage"`
	MinSOLBalance        float64    `json:"min_sol_balance"`
	CreatedAt            *time.Time `json:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at"`
}

// DefaultCopyTradeSettings returns disabled settings with conservative limits.
func DefaultCopyTradeSettings() CopyTradeSettings {
	return CopyTradeSettings{
		TradeAmountSOL:   0.01,
		MaxSlippage:      0.1,
		MaxOpenPositions: 1,
		MinSOLBalance:    0.01,
	}
}

// Validate checks field invariants.
func (s *CopyTradeSettings) Validate() error {
	if s.TradeAmountSOL <= 0 {
		return fmt.Errorf("trade_amount_sol must be positive, got %v", s.TradeAmountSOL)
	}
	if s.MaxSlippage < 0 || s.MaxSlippage > 100 {
		return fmt.Errorf("max_slippage must be in [0,100], got %v", s.MaxSlippage)
	}
	if s.MaxOpenPositions < 0 {
		return fmt.Errorf("max_open_positions must be non-negative, got %d", s.MaxOpenPositions)
	}
	if s.MinSOLBalance < 0 {
		return fmt.Errorf("min_sol_balance must be non-negative, got %v", s.MinSOLBalance)
	}
	return nil
}
