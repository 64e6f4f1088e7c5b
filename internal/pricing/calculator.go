package pricing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"copytrade-monitor/internal/domain"
)

// ErrInvalidPrice marks a price figure that failed sanity validation.
var ErrInvalidPrice = errors.New("invalid price")

// MintReader fetches token supply for market-cap calculations.
type MintReader interface {
	// GetTokenSupply returns the raw supply and decimals of a mint.
	GetTokenSupply(ctx context.Context, mint string) (amount uint64, decimals uint8, err error)
}

// VaultPriceUpdate is a pool price derived from vault balances,
// before enrichment into a full PriceUpdate.
type VaultPriceUpdate struct {
	TokenAddress string
	PriceSOL     float64
	LiquiditySOL float64
	Timestamp    int64
}

// PriceFromRawBalances computes SOL-per-token from raw vault balances.
// A zero base balance yields 0 rather than a division error.
func PriceFromRawBalances(baseBalance, quoteBalance uint64, baseDecimals, quoteDecimals uint8) float64 {
	if baseBalance == 0 {
		return 0
	}
	baseAmount := float64(baseBalance) / math.Pow10(int(baseDecimals))
	quoteAmount := float64(quoteBalance) / math.Pow10(int(quoteDecimals))
	return quoteAmount / baseAmount
}

// LiquiditySOL approximates total pool liquidity as twice the quote side.
func LiquiditySOL(quoteBalance uint64, quoteDecimals uint8) float64 {
	quoteAmount := float64(quoteBalance) / math.Pow10(int(quoteDecimals))
	return quoteAmount * 2
}

// PriceImpact estimates the relative price move a trade of tradeAmountSOL
// would cause, using the constant-product approximation. Approximate, not
// exchange-accurate.
func PriceImpact(baseBalance, quoteBalance uint64, tradeAmountSOL float64, baseDecimals, quoteDecimals uint8) float64 {
	currentPrice := PriceFromRawBalances(baseBalance, quoteBalance, baseDecimals, quoteDecimals)
	if currentPrice == 0 {
		return 0
	}

	quoteAmount := float64(quoteBalance) / math.Pow10(int(quoteDecimals))
	newQuoteAmount := quoteAmount + tradeAmountSOL
	newBaseBalance := float64(baseBalance) * quoteAmount / newQuoteAmount

	newPrice := PriceFromRawBalances(
		uint64(newBaseBalance),
		uint64(newQuoteAmount*math.Pow10(int(quoteDecimals))),
		baseDecimals,
		quoteDecimals,
	)
	return math.Abs((newPrice - currentPrice) / currentPrice)
}

// OptimalTradeSize approximates the trade size in SOL that stays within
// maxSlippagePercent impact. Rough approximation.
func OptimalTradeSize(quoteBalance uint64, maxSlippagePercent float64, quoteDecimals uint8) float64 {
	quoteAmount := float64(quoteBalance) / math.Pow10(int(quoteDecimals))
	return quoteAmount * (maxSlippagePercent / 100.0) * 0.5
}

// ValidatePriceData sanity-checks a derived price against its source
// balances. Note the zero-balance rule here is stricter than
// PriceFromRawBalances, which treats a zero base as a degenerate but
// valid price of 0.
func ValidatePriceData(priceSOL float64, baseBalance, quoteBalance uint64) error {
	if priceSOL < 0 {
		return fmt.Errorf("%w: negative price %v", ErrInvalidPrice, priceSOL)
	}
	if priceSOL > 1000 {
		return fmt.Errorf("%w: unreasonably high price %v", ErrInvalidPrice, priceSOL)
	}
	if baseBalance == 0 || quoteBalance == 0 {
		return fmt.Errorf("%w: zero balance detected", ErrInvalidPrice)
	}
	return nil
}

// VWAP computes the liquidity-weighted average price across updates.
// Empty input or zero total liquidity yields no value.
func VWAP(updates []VaultPriceUpdate) (float64, bool) {
	if len(updates) == 0 {
		return 0, false
	}
	var totalLiquidity, weightedSum float64
	for _, u := range updates {
		totalLiquidity += u.LiquiditySOL
		weightedSum += u.PriceSOL * u.LiquiditySOL
	}
	if totalLiquidity == 0 {
		return 0, false
	}
	return weightedSum / totalLiquidity, true
}

// PriceChange returns the percentage change from oldPrice to newPrice.
// A zero old price yields 0.
func PriceChange(oldPrice, newPrice float64) float64 {
	if oldPrice == 0 {
		return 0
	}
	return (newPrice - oldPrice) / oldPrice * 100
}

// Calculator enriches vault price updates into full PriceUpdate values.
type Calculator struct {
	mints  MintReader
	logger *log.Logger
}

// NewCalculator creates a Calculator. logger may be nil.
func NewCalculator(mints MintReader, logger *log.Logger) *Calculator {
	if logger == nil {
		logger = log.Default()
	}
	return &Calculator{mints: mints, logger: logger}
}

// MarketCap computes total_supply * priceSOL * solPriceUSD. A mint that
// cannot be fetched or parsed yields 0 (unknown), never an error.
func (c *Calculator) MarketCap(ctx context.Context, tokenAddress string, priceSOL, solPriceUSD float64) float64 {
	amount, decimals, err := c.mints.GetTokenSupply(ctx, tokenAddress)
	if err != nil {
		c.logger.Printf("[pricing] failed to fetch mint account for %s: %v", tokenAddress, err)
		return 0
	}
	totalSupply := float64(amount) / math.Pow10(int(decimals))
	return totalSupply * priceSOL * solPriceUSD
}

// ToPriceUpdate converts a vault update into the standard price update
// shape published on the relay. Volume windows stay nil.
func (c *Calculator) ToPriceUpdate(ctx context.Context, v VaultPriceUpdate, poolAddress string, solPriceUSD float64) domain.PriceUpdate {
	priceUSD := v.PriceSOL * solPriceUSD
	liquidityUSD := v.LiquiditySOL * solPriceUSD

	return domain.PriceUpdate{
		TokenAddress: v.TokenAddress,
		PriceSOL:     v.PriceSOL,
		PriceUSD:     &priceUSD,
		MarketCap:    c.MarketCap(ctx, v.TokenAddress, v.PriceSOL, solPriceUSD),
		Timestamp:    v.Timestamp,
		DexType:      domain.DexRaydium,
		Liquidity:    &v.LiquiditySOL,
		LiquidityUSD: &liquidityUSD,
		PoolAddress:  &poolAddress,
	}
}
