package monitor

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"

	"copytrade-monitor/internal/domain"
	"copytrade-monitor/internal/events"
	"copytrade-monitor/internal/execution"
)

// staticSettings is a fixed settings snapshot.
type staticSettings struct {
	list []domain.CopyTradeSettings
}

func (s *staticSettings) SettingsSnapshot() []domain.CopyTradeSettings {
	return s.list
}

// fakeWalletClient counts calls and serves a fixed wallet snapshot.
type fakeWalletClient struct {
	info        execution.WalletInfo
	infoCalls   int
	reports     []execution.TradeExecutionRequest
	reportErr   error
	infoErr     error
	reportCalls int
}

func (f *fakeWalletClient) GetWalletInfo(context.Context) (execution.WalletInfo, error) {
	f.infoCalls++
	return f.info, f.infoErr
}

func (f *fakeWalletClient) HandleTradeExecution(_ context.Context, req execution.TradeExecutionRequest) error {
	f.reportCalls++
	f.reports = append(f.reports, req)
	return f.reportErr
}

// fakeExecutor counts executions and can fail.
type fakeExecutor struct {
	calls int
	err   error
}

func (f *fakeExecutor) ExecuteCopyTrade(context.Context, domain.ObservedTrade, domain.CopyTradeSettings) error {
	f.calls++
	return f.err
}

// alwaysCopy approves every trade.
type alwaysCopy struct{}

func (alwaysCopy) ShouldCopyTrade(context.Context, domain.ObservedTrade, domain.CopyTradeSettings, execution.WalletInfo) (bool, error) {
	return true, nil
}

func enabled(walletID uuid.UUID) domain.CopyTradeSettings {
	return domain.CopyTradeSettings{
		TrackedWalletID: walletID,
		IsEnabled:       true,
		TradeAmountSOL:  0.1,
		MaxSlippage:     5,
	}
}

func testTrade() domain.ObservedTrade {
	return domain.ObservedTrade{
		Signature:       "sig1",
		TokenAddress:    "tok",
		TokenSymbol:     "TKN",
		TransactionType: domain.TxTypeBuy,
		AmountToken:     100,
		AmountSOL:       0.1,
		PricePerToken:   0.001,
	}
}

// drainKinds collects event kinds currently deliverable on sub.
func drainKinds(sub *events.Subscription) []events.Kind {
	var kinds []events.Kind
	for {
		select {
		case ev := <-sub.C():
			kinds = append(kinds, ev.Kind)
		case <-time.After(50 * time.Millisecond):
			return kinds
		}
	}
}

func countKind(kinds []events.Kind, k events.Kind) int {
	n := 0
	for _, kind := range kinds {
		if kind == k {
			n++
		}
	}
	return n
}

func newTestOrchestrator(settings SettingsSource, wallet *fakeWalletClient, exec *fakeExecutor, bus *events.Bus) *Orchestrator {
	return NewOrchestrator(OrchestratorOptions{
		Settings: settings,
		Wallet:   wallet,
		Decider:  alwaysCopy{},
		Executor: exec,
		Bus:      bus,
		Logger:   log.New(io.Discard, "", 0),
		UserID:   "user-1",
	})
}

func TestOrchestrator_DisabledSettingsSkipsCopyButStillLogs(t *testing.T) {
	bus := events.NewBus(0)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	settings := &staticSettings{list: []domain.CopyTradeSettings{
		{TrackedWalletID: uuid.New(), IsEnabled: false},
	}}
	wallet := &fakeWalletClient{}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(settings, wallet, exec, bus)

	if err := o.Process(context.Background(), testTrade()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if wallet.infoCalls != 0 {
		t.Errorf("wallet queried %d times with copy disabled", wallet.infoCalls)
	}
	if exec.calls != 0 {
		t.Errorf("executor called %d times with copy disabled", exec.calls)
	}

	kinds := drainKinds(sub)
	if got := countKind(kinds, events.KindTransactionLogged); got != 1 {
		t.Errorf("transaction_logged count = %d, want 1", got)
	}
	if got := countKind(kinds, events.KindTrackedWalletTrade); got != 1 {
		t.Errorf("tracked_wallet_trade count = %d, want 1", got)
	}
	if got := countKind(kinds, events.KindCopyTradeExecuted); got != 0 {
		t.Errorf("copy_trade_executed count = %d, want 0", got)
	}
}

func TestOrchestrator_NoSettingsStillLogs(t *testing.T) {
	bus := events.NewBus(0)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	o := newTestOrchestrator(&staticSettings{}, &fakeWalletClient{}, &fakeExecutor{}, bus)
	if err := o.Process(context.Background(), testTrade()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	kinds := drainKinds(sub)
	if got := countKind(kinds, events.KindTransactionLogged); got != 1 {
		t.Errorf("transaction_logged count = %d, want 1", got)
	}
}

func TestOrchestrator_FirstSettingsEntryWins(t *testing.T) {
	bus := events.NewBus(0)

	// First entry disabled, second enabled. The first is selected, so
	// no copy happens.
	settings := &staticSettings{list: []domain.CopyTradeSettings{
		{TrackedWalletID: uuid.New(), IsEnabled: false},
		enabled(uuid.New()),
	}}
	wallet := &fakeWalletClient{}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(settings, wallet, exec, bus)

	if err := o.Process(context.Background(), testTrade()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if exec.calls != 0 {
		t.Errorf("executor called %d times, the first (disabled) entry should win", exec.calls)
	}
}

func TestOrchestrator_SuccessfulCopy(t *testing.T) {
	bus := events.NewBus(0)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	settings := &staticSettings{list: []domain.CopyTradeSettings{enabled(uuid.New())}}
	wallet := &fakeWalletClient{info: execution.WalletInfo{BalanceSOL: 10}}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(settings, wallet, exec, bus)

	if err := o.Process(context.Background(), testTrade()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if exec.calls != 1 {
		t.Errorf("executor calls = %d, want 1", exec.calls)
	}
	if wallet.reportCalls != 1 {
		t.Fatalf("wallet report calls = %d, want 1", wallet.reportCalls)
	}

	req := wallet.reports[0]
	if req.Signature != "sig1" || req.TransactionType != "Buy" || req.PricePerToken != 0.001 {
		t.Errorf("unexpected execution report: %+v", req)
	}

	kinds := drainKinds(sub)
	if got := countKind(kinds, events.KindCopyTradeExecuted); got != 1 {
		t.Errorf("copy_trade_executed count = %d, want 1", got)
	}
	if got := countKind(kinds, events.KindTransactionLogged); got != 1 {
		t.Errorf("transaction_logged count = %d, want 1", got)
	}
	if got := countKind(kinds, events.KindTrackedWalletTrade); got != 1 {
		t.Errorf("tracked_wallet_trade count = %d, want 1", got)
	}
}

func TestOrchestrator_ExecutionFailureStillLogs(t *testing.T) {
	bus := events.NewBus(0)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	settings := &staticSettings{list: []domain.CopyTradeSettings{enabled(uuid.New())}}
	wallet := &fakeWalletClient{info: execution.WalletInfo{BalanceSOL: 10}}
	exec := &fakeExecutor{err: errors.New("slippage exceeded")}
	o := newTestOrchestrator(settings, wallet, exec, bus)

	err := o.Process(context.Background(), testTrade())
	var procErr *ProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ProcessingError, got %v", err)
	}
	if procErr.Stage != "execution" {
		t.Errorf("stage = %s", procErr.Stage)
	}
	if procErr.Signature != "sig1" {
		t.Errorf("signature = %s", procErr.Signature)
	}

	kinds := drainKinds(sub)
	if got := countKind(kinds, events.KindTransactionLogged); got != 1 {
		t.Errorf("transaction_logged count = %d, want 1", got)
	}
	if got := countKind(kinds, events.KindTrackedWalletTrade); got != 1 {
		t.Errorf("tracked_wallet_trade count = %d, want 1", got)
	}
	if got := countKind(kinds, events.KindCopyTradeExecuted); got != 0 {
		t.Errorf("copy_trade_executed count = %d, want 0", got)
	}
}

func TestOrchestrator_WalletInfoFailure(t *testing.T) {
	bus := events.NewBus(0)

	settings := &staticSettings{list: []domain.CopyTradeSettings{enabled(uuid.New())}}
	wallet := &fakeWalletClient{infoErr: errors.New("service unavailable")}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(settings, wallet, exec, bus)

	err := o.Process(context.Background(), testTrade())
	var procErr *ProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ProcessingError, got %v", err)
	}
	if procErr.Stage != "wallet info" {
		t.Errorf("stage = %s", procErr.Stage)
	}
	if exec.calls != 0 {
		t.Errorf("executor called despite wallet failure")
	}
}
