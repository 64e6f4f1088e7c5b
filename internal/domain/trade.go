package domain

// TransactionType classifies an observed trade.
type TransactionType string

const (
	TxTypeBuy      TransactionType = "Buy"
	TxTypeSell     TransactionType = "Sell"
	TxTypeTransfer TransactionType = "Transfer"
	TxTypeUnknown  TransactionType = "Unknown"
)

// String returns the string representation of TransactionType.
func (t TransactionType) String() string {
	return string(t)
}

// DexType identifies the venue a trade was observed on.
type DexType string

const (
	DexPumpFun DexType = "PumpFun"
	DexRaydium DexType = "Raydium"
)

// ObservedTrade is a trade decoded from the upstream feed.
// It is immutable once constructed and flows through the pipeline by value.
type ObservedTrade struct {
	Signature       string          `json:"signature"`
	TokenAddress    string          `json:"token_address"`
	TokenName       string          `json:"token_name"`
	TokenSymbol     string          `json:"token_symbol"`
	TransactionType TransactionType `json:"transaction_type"`
	AmountToken     float64         `json:"amount_token"`
	AmountSOL       float64         `json:"amount_sol"`
	PricePerToken   float64         `json:"price_per_token"`
	TokenImageURI   string          `json:"token_image_uri"`
	MarketCap       float64         `json:"market_cap"`
	USDMarketCap    float64         `json:"usd_market_cap"`
	Timestamp       int64           `json:"timestamp"` // Unix seconds
	Seller          string          `json:"seller"`
	Buyer           string          `json:"buyer"`
	DexType         DexType         `json:"dex_type"`
}
