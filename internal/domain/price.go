package domain

// PriceUpdate is a derived pool price for one token, as carried on the
// price_updates relay topic. Volume windows require historical tracking
// the monitor does not do; they are always nil.
type PriceUpdate struct {
	TokenAddress string   `json:"token_address"`
	PriceSOL     float64  `json:"price_sol"`
	PriceUSD     *float64 `json:"price_usd"`
	MarketCap    float64  `json:"market_cap"`
	Timestamp    int64    `json:"timestamp"`
	DexType      DexType  `json:"dex_type"`
	Liquidity    *float64 `json:"liquidity"`
	LiquidityUSD *float64 `json:"liquidity_usd"`
	PoolAddress  *string  `json:"pool_address"`
	Volume24h    *float64 `json:"volume_24h"`
	Volume6h     *float64 `json:"volume_6h"`
	Volume1h     *float64 `json:"volume_1h"`
	Volume5m     *float64 `json:"volume_5m"`
}

// PriceSource identifies where a SOL/USD quote came from.
type PriceSource string

const (
	PriceSourcePyth    PriceSource = "Pyth"
	PriceSourceRaydium PriceSource = "Raydium"
)

// SolPriceUpdate is a SOL/USD quote, as carried on the sol_price_updates
// relay topic.
type SolPriceUpdate struct {
	PriceUSD   float64     `json:"price_usd"`
	Source     PriceSource `json:"source"`
	Timestamp  int64       `json:"timestamp"`
	Confidence *float64    `json:"confidence"`
}
