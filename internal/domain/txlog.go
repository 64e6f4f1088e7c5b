package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionLog is the append-only record derived 1:1 from an
// ObservedTrade after processing. Never mutated.
type TransactionLog struct {
	ID              uuid.UUID  `json:"id"`
	UserID          string     `json:"user_id"`
	TrackedWalletID *uuid.UUID `json:"tracked_wallet_id"`
	Signature       string     `json:"signature"`
	TransactionType string     `json:"transaction_type"`
	TokenAddress    string     `json:"token_address"`
	Amount          float64    `json:"amount"`
	PriceSOL        float64    `json:"price_sol"`
	Timestamp       time.Time  `json:"timestamp"`
}

// NewTransactionLog derives a log record from an observed trade.
func NewTransactionLog(userID string, trade ObservedTrade) TransactionLog {
	return TransactionLog{
		ID:              uuid.New(),
		UserID:          userID,
		TrackedWalletID: nil, // the feed does not carry the wallet row id
		Signature:       trade.Signature,
		TransactionType: trade.TransactionType.String(),
		TokenAddress:    trade.TokenAddress,
		Amount:          trade.AmountToken,
		PriceSOL:        trade.PricePerToken,
		Timestamp:       time.Now().UTC(),
	}
}
