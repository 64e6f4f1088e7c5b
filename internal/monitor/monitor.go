// Package monitor contains the monitoring session: the supervisory
// loop, the feed loop, the message pipeline, and the copy-trade
// orchestrator.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"copytrade-monitor/internal/domain"
	"copytrade-monitor/internal/events"
	"copytrade-monitor/internal/feed"
	"copytrade-monitor/internal/storage"
)

const (
	// emptyPollInterval is the wait between wallet-set polls when there
	// is nothing to subscribe to.
	emptyPollInterval = 5 * time.Second
	// connectRetryPause is the wait after a failed connect before the
	// next cycle.
	connectRetryPause = 1 * time.Second
	// livenessInterval paces the supervisory task-liveness check.
	livenessInterval = 1 * time.Second
	// drainPause is the fixed wait Stop gives in-flight work.
	drainPause = 1 * time.Second
)

// FeedConn is the streaming connection the monitor drives. Implemented
// by *feed.Conn.
type FeedConn interface {
	EnsureConnection(ctx context.Context) error
	Subscribe(ctx context.Context, addrs []string) error
	ReceiveMessage(ctx context.Context) ([]byte, error)
	Shutdown()
}

// WalletMonitor owns one monitoring session: the in-memory mirrors of
// the tracked-wallet and settings lists, the feed loop that turns
// frames into pipeline work, and the supervisory loop that applies bus
// events to the mirrors and watches task liveness.
type WalletMonitor struct {
	conn       FeedConn
	pipeline   *Pipeline
	bus        *events.Bus
	connStatus *ConnectionMonitor
	logger     *log.Logger

	walletsMu sync.RWMutex
	wallets   []domain.TrackedWallet

	settingsMu sync.RWMutex
	settings   []domain.CopyTradeSettings

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	taskExit chan string
	stopOnce sync.Once
}

// Options carries the monitor's collaborators.
type Options struct {
	Conn       FeedConn
	Pipeline   *Pipeline
	Bus        *events.Bus
	ConnStatus *ConnectionMonitor
	Wallets    storage.WalletStore
	Settings   storage.SettingsStore
	Logger     *log.Logger
}

// New creates a monitor and loads the tracked wallets and settings from
// storage. A load failure is fatal; the monitor never starts with an
// unknown wallet set.
func New(ctx context.Context, opts Options) (*WalletMonitor, error) {
	if opts.Conn == nil || opts.Pipeline == nil || opts.Bus == nil {
		return nil, errors.New("monitor: conn, pipeline and bus are required")
	}
	if opts.Wallets == nil || opts.Settings == nil {
		return nil, errors.New("monitor: wallet and settings stores are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	connStatus := opts.ConnStatus
	if connStatus == nil {
		connStatus = NewConnectionMonitor(opts.Bus)
	}

	m := &WalletMonitor{
		conn:       opts.Conn,
		pipeline:   opts.Pipeline,
		bus:        opts.Bus,
		connStatus: connStatus,
		logger:     logger,
		taskExit:   make(chan string, 8),
	}

	wallets, err := opts.Wallets.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("monitor: load tracked wallets: %w", err)
	}
	for _, w := range wallets {
		m.wallets = append(m.wallets, *w)
	}

	settings, err := opts.Settings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("monitor: load settings: %w", err)
	}
	for _, s := range settings {
		m.settings = append(m.settings, *s)
	}

	logger.Printf("[monitor] loaded %d wallets, %d settings entries",
		len(m.wallets), len(m.settings))
	return m, nil
}

// Start launches the session tasks. It returns immediately; Stop ends
// the session.
func (m *WalletMonitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.runTask(ctx, "feed", m.runFeed)
	m.runTask(ctx, "pipeline", m.pipeline.Run)
	m.runTask(ctx, "supervisor", m.runSupervisor)
}

// Stop ends the session: cancel every task, give in-flight work a
// fixed drain pause, then close the feed connection.
func (m *WalletMonitor) Stop() {
	m.stopOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		time.Sleep(drainPause)
		m.conn.Shutdown()
		m.wg.Wait()
		m.logger.Printf("[monitor] stopped")
	})
}

// runTask tracks a session goroutine so the supervisor can notice an
// unexpected exit.
func (m *WalletMonitor) runTask(ctx context.Context, name string, fn func(context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn(ctx)
		select {
		case m.taskExit <- name:
		default:
		}
	}()
}

// SettingsSnapshot returns a copy of the current settings list.
func (m *WalletMonitor) SettingsSnapshot() []domain.CopyTradeSettings {
	m.settingsMu.RLock()
	defer m.settingsMu.RUnlock()
	out := make([]domain.CopyTradeSettings, len(m.settings))
	copy(out, m.settings)
	return out
}

// WalletAddresses returns the active wallet addresses.
func (m *WalletMonitor) WalletAddresses() []string {
	m.walletsMu.RLock()
	defer m.walletsMu.RUnlock()
	var out []string
	for _, w := range m.wallets {
		if w.IsActive {
			out = append(out, w.WalletAddress)
		}
	}
	return out
}

// runFeed is the connection-manager loop: poll the wallet set, keep the
// connection and subscription alive, and feed decoded trades into the
// pipeline. It retries forever until cancelled.
func (m *WalletMonitor) runFeed(ctx context.Context) {
	for ctx.Err() == nil {
		addrs := m.WalletAddresses()
		if len(addrs) == 0 {
			sleepCtx(ctx, emptyPollInterval)
			continue
		}

		if err := m.conn.EnsureConnection(ctx); err != nil {
			m.connStatus.Report(domain.ConnWebSocket, domain.StatusError, err.Error())
			m.logger.Printf("[monitor] feed connect failed: %v", err)
			sleepCtx(ctx, connectRetryPause)
			continue
		}
		m.connStatus.Report(domain.ConnWebSocket, domain.StatusConnected, "")

		if err := m.conn.Subscribe(ctx, addrs); err != nil {
			m.logger.Printf("[monitor] feed subscribe failed: %v", err)
			sleepCtx(ctx, connectRetryPause)
			continue
		}

		m.receiveLoop(ctx)
	}
}

// receiveLoop drains the subscribed connection until an error sends the
// cycle back to EnsureConnection. An idle window also returns, so the
// outer cycle refreshes the address set on a live connection.
func (m *WalletMonitor) receiveLoop(ctx context.Context) {
	for {
		message, err := m.conn.ReceiveMessage(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return
			case errors.Is(err, feed.ErrIdleTimeout):
				return
			case errors.Is(err, feed.ErrClosed):
				m.connStatus.Report(domain.ConnWebSocket, domain.StatusReconnecting, "peer closed connection")
				m.logger.Printf("[monitor] feed closed by peer, reconnecting")
				return
			default:
				m.connStatus.Report(domain.ConnWebSocket, domain.StatusError, err.Error())
				m.logger.Printf("[monitor] feed receive failed: %v", err)
				return
			}
		}

		trade, err := feed.DecodeTrade(message)
		if err != nil {
			if !errors.Is(err, feed.ErrNotTrade) {
				m.logger.Printf("[monitor] drop malformed frame: %v", err)
			}
			continue
		}

		if err := m.pipeline.Enqueue(trade); err != nil {
			m.logger.Printf("[monitor] drop trade %s: %v", trade.Signature, err)
		}
	}
}

// runSupervisor applies bus events to the in-memory mirrors, watches
// the stop signal, and checks task liveness once a second. A task that
// exits while the session is live ends the whole session; the process's
// outer restart mechanism takes it from there.
func (m *WalletMonitor) runSupervisor(ctx context.Context) {
	sub := m.bus.Subscribe()
	defer sub.Unsubscribe()

	liveness := time.NewTicker(livenessInterval)
	defer liveness.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.C():
			m.handleEvent(ev)
		case <-liveness.C:
			select {
			case name := <-m.taskExit:
				if ctx.Err() == nil {
					m.logger.Printf("[monitor] task %q exited unexpectedly, terminating session", name)
					m.cancel()
					return
				}
			default:
			}
		}
	}
}

// handleEvent applies one bus event to the wallet/settings mirrors.
func (m *WalletMonitor) handleEvent(ev events.Event) {
	switch ev.Kind {
	case events.KindSettingsUpdated:
		m.applySettingsUpdate(ev.SettingsUpdate.Data)
	case events.KindWalletStateChanged:
		m.applyWalletChange(ev.WalletState.Data)
	}
}

// applySettingsUpdate updates-or-appends the settings entry keyed on
// its tracked wallet id.
func (m *WalletMonitor) applySettingsUpdate(settings domain.CopyTradeSettings) {
	m.settingsMu.Lock()
	defer m.settingsMu.Unlock()

	for i := range m.settings {
		if m.settings[i].TrackedWalletID == settings.TrackedWalletID {
			m.settings[i] = settings
			m.logger.Printf("[monitor] settings updated for wallet %s", settings.TrackedWalletID)
			return
		}
	}
	m.settings = append(m.settings, settings)
	m.logger.Printf("[monitor] settings added for wallet %s", settings.TrackedWalletID)
}

// walletChangeDetails is the optional raw payload behind a wallet event.
type walletChangeDetails struct {
	IsActive bool       `json:"is_active"`
	ID       *uuid.UUID `json:"id"`
}

// applyWalletChange applies a wallet lifecycle transition to the
// tracked-wallet mirror.
func (m *WalletMonitor) applyWalletChange(change domain.WalletStateChange) {
	m.walletsMu.Lock()
	defer m.walletsMu.Unlock()

	idx := -1
	for i := range m.wallets {
		if m.wallets[i].WalletAddress == change.WalletAddress {
			idx = i
			break
		}
	}

	switch change.ChangeType {
	case domain.WalletAdded:
		if idx >= 0 {
			m.wallets[idx].IsActive = true
			break
		}
		wallet := domain.TrackedWallet{
			WalletAddress: change.WalletAddress,
			IsActive:      true,
		}
		var details walletChangeDetails
		if len(change.Details) > 0 && json.Unmarshal(change.Details, &details) == nil {
			wallet.ID = details.ID
			wallet.IsActive = details.IsActive
		}
		m.wallets = append(m.wallets, wallet)
	case domain.WalletArchived:
		if idx >= 0 {
			m.wallets[idx].IsActive = false
		}
	case domain.WalletUnarchived:
		if idx >= 0 {
			m.wallets[idx].IsActive = true
		}
	case domain.WalletDeleted:
		if idx >= 0 {
			m.wallets = append(m.wallets[:idx], m.wallets[idx+1:]...)
		}
	}
	m.logger.Printf("[monitor] wallet %s: %s", change.WalletAddress, change.ChangeType)
}

// sleepCtx waits for d or cancellation, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
