package monitor

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"copytrade-monitor/internal/domain"
	"copytrade-monitor/internal/events"
	"copytrade-monitor/internal/feed"
	"copytrade-monitor/internal/storage/memory"
)

// fakeFeedConn scripts the feed connection for session tests.
type fakeFeedConn struct {
	mu         sync.Mutex
	dials      int
	subscribes [][]string
	messages   chan []byte
}

func newFakeFeedConn() *fakeFeedConn {
	return &fakeFeedConn{messages: make(chan []byte, 16)}
}

func (f *fakeFeedConn) EnsureConnection(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials++
	return nil
}

func (f *fakeFeedConn) Subscribe(_ context.Context, addrs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes = append(f.subscribes, addrs)
	return nil
}

func (f *fakeFeedConn) ReceiveMessage(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-f.messages:
		return msg, nil
	case <-time.After(100 * time.Millisecond):
		return nil, feed.ErrIdleTimeout
	}
}

func (f *fakeFeedConn) Shutdown() {}

func (f *fakeFeedConn) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestMonitor(t *testing.T, conn FeedConn, handler TradeHandler, bus *events.Bus, seedWallet string) *WalletMonitor {
	t.Helper()

	wallets := memory.NewWalletStore()
	settings := memory.NewSettingsStore()
	ctx := context.Background()

	if seedWallet != "" {
		err := wallets.Insert(ctx, &domain.TrackedWallet{WalletAddress: seedWallet, IsActive: true})
		if err != nil {
			t.Fatal(err)
		}
	}

	m, err := New(ctx, Options{
		Conn:     conn,
		Pipeline: NewPipeline(handler, WithPipelineLogger(quietLogger())),
		Bus:      bus,
		Wallets:  wallets,
		Settings: settings,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMonitor_EmptyWalletSetNeverDials(t *testing.T) {
	conn := newFakeFeedConn()
	m := newTestMonitor(t, conn, &captureHandler{}, events.NewBus(0), "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	time.Sleep(200 * time.Millisecond)
	if got := conn.dialCount(); got != 0 {
		t.Errorf("expected zero connect attempts with no wallets, got %d", got)
	}
}

func TestMonitor_FrameFlowsToHandler(t *testing.T) {
	conn := newFakeFeedConn()
	handler := &captureHandler{}
	m := newTestMonitor(t, conn, handler, events.NewBus(0), "wallet1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	conn.messages <- []byte(`{"signature":"sig-e2e","mint":"m","txType":"buy","tokenAmount":10,"solAmount":0.1,"timestamp":1}`)

	waitFor(t, func() bool { return len(handler.processed()) == 1 })
	if handler.processed()[0].Signature != "sig-e2e" {
		t.Errorf("signature = %s", handler.processed()[0].Signature)
	}

	// Subscribe carried the tracked address.
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.subscribes) == 0 || conn.subscribes[0][0] != "wallet1" {
		t.Errorf("subscribes = %v", conn.subscribes)
	}
}

func TestMonitor_MalformedFrameDropped(t *testing.T) {
	conn := newFakeFeedConn()
	handler := &captureHandler{}
	m := newTestMonitor(t, conn, handler, events.NewBus(0), "wallet1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	conn.messages <- []byte(`{not json`)
	conn.messages <- []byte(`{"message":"Successfully subscribed."}`)
	conn.messages <- []byte(`{"signature":"good","mint":"m","txType":"sell","timestamp":1}`)

	waitFor(t, func() bool { return len(handler.processed()) == 1 })
	if handler.processed()[0].Signature != "good" {
		t.Errorf("signature = %s", handler.processed()[0].Signature)
	}
}

func TestMonitor_SettingsUpdateOrAppend(t *testing.T) {
	m := &WalletMonitor{logger: quietLogger()}

	walletID := uuid.New()
	first := domain.CopyTradeSettings{TrackedWalletID: walletID, TradeAmountSOL: 0.1}
	m.applySettingsUpdate(first)

	other := domain.CopyTradeSettings{TrackedWalletID: uuid.New(), TradeAmountSOL: 0.2}
	m.applySettingsUpdate(other)

	if got := len(m.SettingsSnapshot()); got != 2 {
		t.Fatalf("settings count = %d, want 2", got)
	}

	// Same wallet id updates in place.
	updated := domain.CopyTradeSettings{TrackedWalletID: walletID, TradeAmountSOL: 0.9}
	m.applySettingsUpdate(updated)

	snapshot := m.SettingsSnapshot()
	if got := len(snapshot); got != 2 {
		t.Fatalf("settings count after update = %d, want 2", got)
	}
	if snapshot[0].TradeAmountSOL != 0.9 {
		t.Errorf("trade amount = %v, want 0.9", snapshot[0].TradeAmountSOL)
	}
}

func TestMonitor_WalletLifecycle(t *testing.T) {
	m := &WalletMonitor{logger: quietLogger()}

	id := uuid.New()
	details, _ := json.Marshal(map[string]interface{}{
		"wallet_address": "w1", "action": "add", "is_active": true, "id": id,
	})
	m.applyWalletChange(domain.NewWalletStateChange("w1", domain.WalletAdded).WithDetails(details))

	addrs := m.WalletAddresses()
	if len(addrs) != 1 || addrs[0] != "w1" {
		t.Fatalf("addresses = %v", addrs)
	}
	if m.wallets[0].ID == nil || *m.wallets[0].ID != id {
		t.Errorf("wallet id not taken from details")
	}

	m.applyWalletChange(domain.NewWalletStateChange("w1", domain.WalletArchived))
	if got := m.WalletAddresses(); len(got) != 0 {
		t.Errorf("archived wallet still active: %v", got)
	}

	m.applyWalletChange(domain.NewWalletStateChange("w1", domain.WalletUnarchived))
	if got := m.WalletAddresses(); len(got) != 1 {
		t.Errorf("unarchived wallet not active: %v", got)
	}

	m.applyWalletChange(domain.NewWalletStateChange("w1", domain.WalletDeleted))
	if len(m.wallets) != 0 {
		t.Errorf("deleted wallet still present")
	}
}

func TestMonitor_BusEventsReachMirrors(t *testing.T) {
	conn := newFakeFeedConn()
	bus := events.NewBus(0)
	m := newTestMonitor(t, conn, &captureHandler{}, bus, "wallet1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	walletID := uuid.New()
	bus.Publish(events.NewSettingsUpdated(domain.CopyTradeSettings{
		TrackedWalletID: walletID,
		TradeAmountSOL:  0.3,
	}))

	waitFor(t, func() bool { return len(m.SettingsSnapshot()) == 1 })

	bus.Publish(events.NewWalletStateChanged(
		domain.NewWalletStateChange("wallet2", domain.WalletAdded)))

	waitFor(t, func() bool { return len(m.WalletAddresses()) == 2 })
}
