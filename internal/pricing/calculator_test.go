package pricing

import (
	"context"
	"encoding/binary"
	"errors"
	"log"
	"math"
	"testing"
)

func TestDecodeBondingCurve(t *testing.T) {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[8:16], 1000)
	binary.LittleEndian.PutUint64(buf[16:24], 2000)

	r, err := DecodeBondingCurve(buf)
	if err != nil {
		t.Fatalf("DecodeBondingCurve: %v", err)
	}
	if r.VirtualTokenReserves != 1000 {
		t.Errorf("token reserves = %d, want 1000", r.VirtualTokenReserves)
	}
	if r.VirtualSOLReserves != 2000 {
		t.Errorf("sol reserves = %d, want 2000", r.VirtualSOLReserves)
	}
}

func TestDecodeBondingCurve_NegativeReserves(t *testing.T) {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(18446744073709551615)) // -1 as i64
	r, err := DecodeBondingCurve(buf)
	if err != nil {
		t.Fatalf("DecodeBondingCurve: %v", err)
	}
	if r.VirtualTokenReserves != -1 {
		t.Errorf("token reserves = %d, want -1", r.VirtualTokenReserves)
	}
}

func TestDecodeBondingCurve_ShortBuffer(t *testing.T) {
	if _, err := DecodeBondingCurve(make([]byte, 10)); err == nil {
		t.Fatal("expected decode error for 10-byte buffer")
	}
	if _, err := DecodeBondingCurve(nil); err == nil {
		t.Fatal("expected decode error for nil buffer")
	}
}

func TestWithinThreshold(t *testing.T) {
	r := BondingCurveReserves{VirtualTokenReserves: 1000, VirtualSOLReserves: 2000}

	if !r.WithinThreshold(1000, 2000) {
		t.Error("identical figures should be within threshold")
	}
	// Chain slightly above reported, within the 1% margin.
	if !r.WithinThreshold(995, 1990) {
		t.Error("0.5 percent divergence should be within threshold")
	}
	// Chain far above reported: mismatch.
	if r.WithinThreshold(900, 2000) {
		t.Error("10 percent divergence should not be within threshold")
	}
}

func TestPriceFromRawBalances(t *testing.T) {
	// 1000 tokens (6 decimals) against 2 SOL (9 decimals): 0.002 SOL/token.
	price := PriceFromRawBalances(1000_000_000, 2_000_000_000, 6, 9)
	if math.Abs(price-0.002) > 1e-12 {
		t.Errorf("price = %v, want 0.002", price)
	}
}

func TestPriceFromRawBalances_ZeroBase(t *testing.T) {
	if price := PriceFromRawBalances(0, 123456, 6, 9); price != 0 {
		t.Errorf("zero base should yield 0, got %v", price)
	}
}

func TestLiquiditySOL(t *testing.T) {
	// 5 SOL in the quote vault approximates 10 SOL total liquidity.
	if liq := LiquiditySOL(5_000_000_000, 9); liq != 10 {
		t.Errorf("liquidity = %v, want 10", liq)
	}
}

func TestValidatePriceData(t *testing.T) {
	if err := ValidatePriceData(-1.0, 1, 1); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("negative price: err = %v", err)
	}
	if err := ValidatePriceData(1001.0, 1, 1); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("excessive price: err = %v", err)
	}
	if err := ValidatePriceData(1.0, 0, 1); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("zero base balance: err = %v", err)
	}
	if err := ValidatePriceData(1.0, 1, 0); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("zero quote balance: err = %v", err)
	}
	if err := ValidatePriceData(1.0, 1, 1); err != nil {
		t.Errorf("valid data: err = %v", err)
	}
}

func TestVWAP(t *testing.T) {
	if _, ok := VWAP(nil); ok {
		t.Error("empty input should yield no value")
	}

	zeroLiq := []VaultPriceUpdate{{PriceSOL: 1.0}, {PriceSOL: 2.0}}
	if _, ok := VWAP(zeroLiq); ok {
		t.Error("zero total liquidity should yield no value")
	}

	updates := []VaultPriceUpdate{
		{PriceSOL: 1.0, LiquiditySOL: 10.0},
		{PriceSOL: 2.0, LiquiditySOL: 10.0},
	}
	vwap, ok := VWAP(updates)
	if !ok {
		t.Fatal("expected a value")
	}
	if vwap != 1.5 {
		t.Errorf("vwap = %v, want 1.5", vwap)
	}
}

func TestPriceChange(t *testing.T) {
	if got := PriceChange(0, 5); got != 0 {
		t.Errorf("zero old price: got %v", got)
	}
	if got := PriceChange(2, 3); got != 50 {
		t.Errorf("2→3: got %v, want 50", got)
	}
	if got := PriceChange(4, 2); got != -50 {
		t.Errorf("4→2: got %v, want -50", got)
	}
}

func TestPriceImpact_IncreasesWithTradeSize(t *testing.T) {
	small := PriceImpact(1000_000_000, 2_000_000_000, 0.01, 6, 9)
	large := PriceImpact(1000_000_000, 2_000_000_000, 1.0, 6, 9)
	if small <= 0 || large <= 0 {
		t.Fatalf("impacts should be positive: small=%v large=%v", small, large)
	}
	if large <= small {
		t.Errorf("larger trade should have larger impact: small=%v large=%v", small, large)
	}
}

func TestOptimalTradeSize(t *testing.T) {
	// 10 SOL quote side, 1% slippage: 10 * 0.01 * 0.5 = 0.05 SOL.
	got := OptimalTradeSize(10_000_000_000, 1.0, 9)
	if math.Abs(got-0.05) > 1e-12 {
		t.Errorf("optimal size = %v, want 0.05", got)
	}
}

type stubMintReader struct {
	amount   uint64
	decimals uint8
	err      error
}

func (s *stubMintReader) GetTokenSupply(ctx context.Context, mint string) (uint64, uint8, error) {
	return s.amount, s.decimals, s.err
}

func TestCalculator_MarketCap(t *testing.T) {
	c := NewCalculator(&stubMintReader{amount: 1_000_000_000_000, decimals: 6}, log.New(discard{}, "", 0))

	// 1M tokens * 0.001 SOL * 150 USD/SOL = 150_000 USD.
	got := c.MarketCap(context.Background(), "mint", 0.001, 150)
	if math.Abs(got-150000) > 1e-6 {
		t.Errorf("market cap = %v, want 150000", got)
	}
}

func TestCalculator_MarketCap_FetchFailure(t *testing.T) {
	c := NewCalculator(&stubMintReader{err: errors.New("account not found")}, log.New(discard{}, "", 0))
	if got := c.MarketCap(context.Background(), "mint", 0.001, 150); got != 0 {
		t.Errorf("unfetchable mint should yield 0, got %v", got)
	}
}

func TestCalculator_ToPriceUpdate(t *testing.T) {
	c := NewCalculator(&stubMintReader{amount: 1_000_000, decimals: 6}, log.New(discard{}, "", 0))

	v := VaultPriceUpdate{TokenAddress: "mint", PriceSOL: 0.5, LiquiditySOL: 20, Timestamp: 1700000000}
	pu := c.ToPriceUpdate(context.Background(), v, "pool", 100)

	if pu.TokenAddress != "mint" || pu.PriceSOL != 0.5 {
		t.Fatalf("unexpected update: %+v", pu)
	}
	if pu.PriceUSD == nil || *pu.PriceUSD != 50 {
		t.Errorf("price usd = %v, want 50", pu.PriceUSD)
	}
	if pu.LiquidityUSD == nil || *pu.LiquidityUSD != 2000 {
		t.Errorf("liquidity usd = %v, want 2000", pu.LiquidityUSD)
	}
	if pu.PoolAddress == nil || *pu.PoolAddress != "pool" {
		t.Errorf("pool address = %v", pu.PoolAddress)
	}
	if pu.Volume24h != nil || pu.Volume5m != nil {
		t.Error("volume windows must stay nil")
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
