// Package execution defines the external wallet/execution collaborators
// of the copy-trade orchestration. Transaction signing and DEX
// instruction building live behind these interfaces, outside this
// repository.
package execution

import (
	"context"

	"copytrade-monitor/internal/domain"
)

// TokenHolding is one token position held by the server wallet.
type TokenHolding struct {
	Address  string  `json:"address"`
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Balance  float64 `json:"balance"`
	Decimals uint8   `json:"decimals"`
}

// WalletInfo is a snapshot of the server wallet used for copy decisions.
type WalletInfo struct {
	Address    string         `json:"address"`
	BalanceSOL float64        `json:"balance"`
	Tokens     []TokenHolding `json:"tokens"`
}

// TradeExecutionRequest notifies the wallet service of a completed copy
// trade. Field set is the stable wire contract.
type TradeExecutionRequest struct {
	Signature       string  `json:"signature"`
	TokenAddress    string  `json:"token_address"`
	TokenName       string  `json:"token_name"`
	TokenSymbol     string  `json:"token_symbol"`
	TransactionType string  `json:"transaction_type"`
	AmountToken     float64 `json:"amount_token"`
	AmountSOL       float64 `json:"amount_sol"`
	PricePerToken   float64 `json:"price_per_token"`
	TokenImageURI   string  `json:"token_image_uri"`
}

// WalletClient is the external wallet service.
type WalletClient interface {
	// GetWalletInfo returns the current server-wallet snapshot.
	GetWalletInfo(ctx context.Context) (WalletInfo, error)

	// HandleTradeExecution reports a completed copy trade so the wallet
	// service can refresh its position state.
	HandleTradeExecution(ctx context.Context, req TradeExecutionRequest) error
}

// Executor submits replica trades. Instruction building and signing are
// venue-specific and happen inside the implementation.
type Executor interface {
	// ExecuteCopyTrade submits a replica of the observed trade under the
	// given settings on the trade's venue.
	ExecuteCopyTrade(ctx context.Context, trade domain.ObservedTrade, settings domain.CopyTradeSettings) error
}

// Decider is the copy-eligibility predicate.
type Decider interface {
	// ShouldCopyTrade reports whether the observed trade is eligible for
	// replication under the given settings and wallet snapshot.
	ShouldCopyTrade(ctx context.Context, trade domain.ObservedTrade, settings domain.CopyTradeSettings, wallet WalletInfo) (bool, error)
}
