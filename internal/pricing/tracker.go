package pricing

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"copytrade-monitor/internal/domain"
	"copytrade-monitor/internal/events"
)

// DefaultPollInterval paces vault balance reads per pool.
const DefaultPollInterval = 5 * time.Second

// VaultReader fetches the raw balances of pool vault accounts.
type VaultReader interface {
	// GetTokenAccountBalance returns the raw balance and decimals of a
	// token vault account.
	GetTokenAccountBalance(ctx context.Context, account string) (amount uint64, decimals uint8, err error)
}

// PricePublisher pushes derived price updates to the cross-process relay.
// Implemented by *relay.Publisher.
type PricePublisher interface {
	PublishPriceUpdate(ctx context.Context, update domain.PriceUpdate) error
}

// PoolConfig identifies one liquidity pool to track. The base vault
// holds the token, the quote vault holds SOL.
type PoolConfig struct {
	TokenAddress string
	PoolAddress  string
	BaseVault    string
	QuoteVault   string
}

// Tracker polls pool vault balances, derives prices and publishes them
// on the relay and the in-process bus. SOL/USD enrichment follows the
// latest sol-price event seen on the bus.
type Tracker struct {
	vaults    VaultReader
	calc      *Calculator
	publisher PricePublisher
	bus       *events.Bus
	logger    *log.Logger
	interval  time.Duration
	pools     []PoolConfig

	mu          sync.Mutex
	solPriceUSD float64
	lastPrice   map[string]float64
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerLogger sets the logger.
func WithTrackerLogger(logger *log.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithPollInterval sets the vault poll interval.
func WithPollInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.interval = d
	}
}

// NewTracker creates a price tracker over the given pools.
func NewTracker(vaults VaultReader, calc *Calculator, publisher PricePublisher, bus *events.Bus, pools []PoolConfig, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		vaults:    vaults,
		calc:      calc,
		publisher: publisher,
		bus:       bus,
		logger:    log.Default(),
		interval:  DefaultPollInterval,
		pools:     pools,
		lastPrice: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run polls every pool at the configured interval until cancelled. It
// also follows sol-price events on the bus to keep USD enrichment fresh.
func (t *Tracker) Run(ctx context.Context) {
	sub := t.bus.Subscribe()
	defer sub.Unsubscribe()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.C():
			if ev.Kind == events.KindSolPriceUpdated {
				t.mu.Lock()
				t.solPriceUSD = ev.SolPriceUpdate.Data.PriceUSD
				t.mu.Unlock()
			}
		case <-ticker.C:
			for _, pool := range t.pools {
				if err := t.pollPool(ctx, pool); err != nil {
					t.logger.Printf("[pricing] pool %s: %v", pool.PoolAddress, err)
				}
			}
		}
	}
}

// pollPool reads one pool's vaults, derives the price and publishes it.
// Invalid price data is dropped, not propagated.
func (t *Tracker) pollPool(ctx context.Context, pool PoolConfig) error {
	baseBalance, baseDecimals, err := t.vaults.GetTokenAccountBalance(ctx, pool.BaseVault)
	if err != nil {
		return fmt.Errorf("read base vault: %w", err)
	}
	quoteBalance, quoteDecimals, err := t.vaults.GetTokenAccountBalance(ctx, pool.QuoteVault)
	if err != nil {
		return fmt.Errorf("read quote vault: %w", err)
	}

	priceSOL := PriceFromRawBalances(baseBalance, quoteBalance, baseDecimals, quoteDecimals)
	if err := ValidatePriceData(priceSOL, baseBalance, quoteBalance); err != nil {
		t.logger.Printf("[pricing] drop price for %s: %v", pool.TokenAddress, err)
		return nil
	}

	vaultUpdate := VaultPriceUpdate{
		TokenAddress: pool.TokenAddress,
		PriceSOL:     priceSOL,
		LiquiditySOL: LiquiditySOL(quoteBalance, quoteDecimals),
		Timestamp:    time.Now().UnixMilli(),
	}

	t.mu.Lock()
	solPriceUSD := t.solPriceUSD
	if last, ok := t.lastPrice[pool.TokenAddress]; ok {
		if change := PriceChange(last, priceSOL); change != 0 {
			t.logger.Printf("[pricing] %s moved %.2f%% to %.9f SOL", pool.TokenAddress, change, priceSOL)
		}
	}
	t.lastPrice[pool.TokenAddress] = priceSOL
	t.mu.Unlock()

	update := t.calc.ToPriceUpdate(ctx, vaultUpdate, pool.PoolAddress, solPriceUSD)

	if err := t.publisher.PublishPriceUpdate(ctx, update); err != nil {
		t.logger.Printf("[pricing] publish price for %s: %v", pool.TokenAddress, err)
	}
	t.bus.Publish(events.NewPriceUpdated(update))
	return nil
}
