package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"copytrade-monitor/internal/domain"
)

// ErrNotTrade reports a well-formed frame that carries no trade, such
// as the subscribe acknowledgment.
var ErrNotTrade = errors.New("feed: frame carries no trade")

// tradeFrame is the upstream push-frame shape.
type tradeFrame struct {
	Message          string  `json:"message"`
	Signature        string  `json:"signature"`
	Mint             string  `json:"mint"`
	TraderPublicKey  string  `json:"traderPublicKey"`
	CounterPublicKey string  `json:"counterPublicKey"`
	TxType           string  `json:"txType"`
	TokenAmount      float64 `json:"tokenAmount"`
	SolAmount        float64 `json:"solAmount"`
	MarketCapSol     float64 `json:"marketCapSol"`
	USDMarketCap     float64 `json:"usdMarketCap"`
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	URI              string  `json:"uri"`
	Pool             string  `json:"pool"`
	Timestamp        int64   `json:"timestamp"`
}

// DecodeTrade parses one inbound feed frame into an ObservedTrade.
// Subscribe acknowledgments yield ErrNotTrade; malformed frames yield a
// decode error. Callers drop both without terminating the session.
func DecodeTrade(payload []byte) (domain.ObservedTrade, error) {
	var frame tradeFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return domain.ObservedTrade{}, fmt.Errorf("feed decode: %w", err)
	}

	// Subscribe acknowledgments carry only a message field.
	if frame.Message != "" && frame.Signature == "" {
		return domain.ObservedTrade{}, ErrNotTrade
	}

	if frame.Signature == "" || frame.Mint == "" {
		return domain.ObservedTrade{}, fmt.Errorf("feed decode: frame missing signature or mint")
	}

	txType := parseTxType(frame.TxType)

	trade := domain.ObservedTrade{
		Signature:       frame.Signature,
		TokenAddress:    frame.Mint,
		TokenName:       frame.Name,
		TokenSymbol:     frame.Symbol,
		TransactionType: txType,
		AmountToken:     frame.TokenAmount,
		AmountSOL:       frame.SolAmount,
		TokenImageURI:   frame.URI,
		MarketCap:       frame.MarketCapSol,
		USDMarketCap:    frame.USDMarketCap,
		Timestamp:       frame.Timestamp,
		DexType:         parseDexType(frame.Pool),
	}

	if frame.TokenAmount > 0 {
		trade.PricePerToken = frame.SolAmount / frame.TokenAmount
	}

	switch txType {
	case domain.TxTypeBuy:
		trade.Buyer = frame.TraderPublicKey
		trade.Seller = frame.CounterPublicKey
	case domain.TxTypeSell:
		trade.Seller = frame.TraderPublicKey
		trade.Buyer = frame.CounterPublicKey
	default:
		trade.Buyer = frame.CounterPublicKey
		trade.Seller = frame.TraderPublicKey
	}

	return trade, nil
}

func parseTxType(raw string) domain.TransactionType {
	switch strings.ToLower(raw) {
	case "buy":
		return domain.TxTypeBuy
	case "sell":
		return domain.TxTypeSell
	case "transfer":
		return domain.TxTypeTransfer
	default:
		return domain.TxTypeUnknown
	}
}

func parseDexType(pool string) domain.DexType {
	switch strings.ToLower(pool) {
	case "raydium":
		return domain.DexRaydium
	default:
		return domain.DexPumpFun
	}
}
