package execution

import (
	"context"
	"log"

	"copytrade-monitor/internal/domain"
)

// Rules is the standard Decider. Each rule that rejects a trade is
// logged with the signature so skips can be correlated later.
type Rules struct {
	logger *log.Logger
}

// NewRules creates the standard rule-based Decider. logger may be nil.
func NewRules(logger *log.Logger) *Rules {
	if logger == nil {
		logger = log.Default()
	}
	return &Rules{logger: logger}
}

// Compile-time interface check.
var _ Decider = (*Rules)(nil)

// ShouldCopyTrade applies the configured eligibility rules in order:
// minimum balance, allowed-token list, open-position cap, additional-buy
// policy. Sell-side trades require an existing position. The slippage
// ceiling is enforced by the executor as the swap's slippage tolerance,
// not here.
func (r *Rules) ShouldCopyTrade(_ context.Context, trade domain.ObservedTrade, settings domain.CopyTradeSettings, wallet WalletInfo) (bool, error) {
	switch trade.TransactionType {
	case domain.TxTypeBuy:
		return r.shouldCopyBuy(trade, settings, wallet), nil
	case domain.TxTypeSell:
		return r.shouldCopySell(trade, settings, wallet), nil
	default:
		// Transfers and unknown transactions are never copied.
		return false, nil
	}
}

func (r *Rules) shouldCopyBuy(trade domain.ObservedTrade, settings domain.CopyTradeSettings, wallet WalletInfo) bool {
	if wallet.BalanceSOL-settings.TradeAmountSOL < settings.MinSOLBalance {
		r.logger.Printf("[rules] skip %s: balance %.4f SOL would fall below minimum %.4f",
			trade.Signature, wallet.BalanceSOL, settings.MinSOLBalance)
		return false
	}

	if settings.UseAllowedTokensList && !contains(settings.AllowedTokens, trade.TokenAddress) {
		r.logger.Printf("[rules] skip %s: token %s not in allowed list", trade.Signature, trade.TokenAddress)
		return false
	}

	held := holding(wallet.Tokens, trade.TokenAddress)
	if held != nil && !settings.AllowAdditionalBuys {
		r.logger.Printf("[rules] skip %s: already holding %s and additional buys disabled",
			trade.Signature, trade.TokenAddress)
		return false
	}

	if held == nil && openPositions(wallet.Tokens) >= settings.MaxOpenPositions {
		r.logger.Printf("[rules] skip %s: open position cap %d reached", trade.Signature, settings.MaxOpenPositions)
		return false
	}

	return true
}

// shouldCopySell gates on an open position only; sell size scaling
// under MatchSellPercentage happens in the executor.
func (r *Rules) shouldCopySell(trade domain.ObservedTrade, _ domain.CopyTradeSettings, wallet WalletInfo) bool {
	held := holding(wallet.Tokens, trade.TokenAddress)
	if held == nil || held.Balance <= 0 {
		r.logger.Printf("[rules] skip %s: no position in %s to sell", trade.Signature, trade.TokenAddress)
		return false
	}
	return true
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}

func holding(tokens []TokenHolding, address string) *TokenHolding {
	for i := range tokens {
		if tokens[i].Address == address {
			return &tokens[i]
		}
	}
	return nil
}

func openPositions(tokens []TokenHolding) int {
	n := 0
	for _, t := range tokens {
		if t.Balance > 0 {
			n++
		}
	}
	return n
}
