package execution

import (
	"context"
	"log"

	"copytrade-monitor/internal/domain"
)

// DryRunExecutor logs the replica trade it would have submitted instead
// of signing and sending one. Used when the process runs without a
// signing backend.
type DryRunExecutor struct {
	logger *log.Logger
}

// NewDryRunExecutor creates a logging-only executor. logger may be nil.
func NewDryRunExecutor(logger *log.Logger) *DryRunExecutor {
	if logger == nil {
		logger = log.Default()
	}
	return &DryRunExecutor{logger: logger}
}

// Compile-time interface check.
var _ Executor = (*DryRunExecutor)(nil)

// ExecuteCopyTrade records the replica parameters without touching the
// chain.
func (e *DryRunExecutor) ExecuteCopyTrade(_ context.Context, trade domain.ObservedTrade, settings domain.CopyTradeSettings) error {
	amount := settings.TradeAmountSOL
	if trade.TransactionType == domain.TxTypeSell && settings.MatchSellPercentage {
		e.logger.Printf("[executor] dry run: sell %s matching observed percentage on %s (slippage %.1f%%)",
			trade.TokenAddress, trade.DexType, settings.MaxSlippage)
		return nil
	}
	e.logger.Printf("[executor] dry run: %s %s for %.4f SOL on %s (slippage %.1f%%)",
		trade.TransactionType, trade.TokenAddress, amount, trade.DexType, settings.MaxSlippage)
	return nil
}
