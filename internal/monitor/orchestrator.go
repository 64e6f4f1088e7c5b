package monitor

import (
	"context"
	"log"

	"copytrade-monitor/internal/domain"
	"copytrade-monitor/internal/events"
	"copytrade-monitor/internal/execution"
)

// SettingsSource provides the current settings snapshot.
type SettingsSource interface {
	SettingsSnapshot() []domain.CopyTradeSettings
}

// Orchestrator decides and executes copy trades. Regardless of copy
// outcome, every processed trade emits exactly one TransactionLog event
// and one tracked-wallet-trade notification.
type Orchestrator struct {
	settings SettingsSource
	wallet   execution.WalletClient
	decider  execution.Decider
	executor execution.Executor
	bus      *events.Bus
	logger   *log.Logger
	userID   string
}

// OrchestratorOptions carries the orchestrator's collaborators.
type OrchestratorOptions struct {
	Settings SettingsSource
	Wallet   execution.WalletClient
	Decider  execution.Decider
	Executor execution.Executor
	Bus      *events.Bus
	Logger   *log.Logger
	// UserID stamps the emitted TransactionLog records.
	UserID string
}

// NewOrchestrator creates an orchestrator from opts. Logger may be nil.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		settings: opts.Settings,
		wallet:   opts.Wallet,
		decider:  opts.Decider,
		executor: opts.Executor,
		bus:      opts.Bus,
		logger:   logger,
		userID:   opts.UserID,
	}
}

// Compile-time interface check.
var _ TradeHandler = (*Orchestrator)(nil)

// Process handles one observed trade: copy decision and execution
// first, then the unconditional log and notification emissions. A copy
// failure is returned as a ProcessingError after the emissions happen.
func (o *Orchestrator) Process(ctx context.Context, trade domain.ObservedTrade) error {
	copyErr := o.maybeCopy(ctx, trade)

	logRecord := domain.NewTransactionLog(o.userID, trade)
	o.bus.Publish(events.NewTransactionLogged(logRecord))
	o.bus.Publish(events.NewTrackedWalletTrade(trade))

	return copyErr
}

// maybeCopy runs the copy decision and execution path. A missing or
// disabled settings entry skips the copy without error.
func (o *Orchestrator) maybeCopy(ctx context.Context, trade domain.ObservedTrade) error {
	snapshot := o.settings.SettingsSnapshot()
	if len(snapshot) == 0 {
		o.logger.Printf("[monitor] no settings configured, skipping copy for %s", trade.Signature)
		return nil
	}

	// The first entry is used for every wallet. Settings rows are keyed
	// by tracked wallet, but the feed frame does not say which tracked
	// wallet produced it, so there is nothing to select by.
	settings := snapshot[0]
	if !settings.IsEnabled {
		o.logger.Printf("[monitor] copy trading disabled, skipping copy for %s", trade.Signature)
		return nil
	}

	wallet, err := o.wallet.GetWalletInfo(ctx)
	if err != nil {
		return processingErr(trade.Signature, trade.TokenAddress, "wallet info", err)
	}

	eligible, err := o.decider.ShouldCopyTrade(ctx, trade, settings, wallet)
	if err != nil {
		return processingErr(trade.Signature, trade.TokenAddress, "eligibility", err)
	}
	if !eligible {
		return nil
	}

	if err := o.executor.ExecuteCopyTrade(ctx, trade, settings); err != nil {
		return processingErr(trade.Signature, trade.TokenAddress, "execution", err)
	}

	req := execution.TradeExecutionRequest{
		Signature:       trade.Signature,
		TokenAddress:    trade.TokenAddress,
		TokenName:       trade.TokenName,
		TokenSymbol:     trade.TokenSymbol,
		TransactionType: trade.TransactionType.String(),
		AmountToken:     trade.AmountToken,
		AmountSOL:       trade.AmountSOL,
		PricePerToken:   trade.PricePerToken,
		TokenImageURI:   trade.TokenImageURI,
	}
	if err := o.wallet.HandleTradeExecution(ctx, req); err != nil {
		// The trade already executed; the wallet service just missed the
		// report. Surface it without undoing anything.
		return processingErr(trade.Signature, trade.TokenAddress, "execution report", err)
	}

	o.bus.Publish(events.NewCopyTradeExecuted(trade))
	o.logger.Printf("[monitor] copy trade executed for %s (%s %s)",
		trade.Signature, trade.TransactionType, trade.TokenSymbol)
	return nil
}
