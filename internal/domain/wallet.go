package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TrackedWallet is a wallet address the monitor watches for trades.
// The set is owned by the external repository and mirrored into process
// memory through relay events.
type TrackedWallet struct {
	ID            *uuid.UUID `json:"id"`
	UserID        *uuid.UUID `json:"user_id"`
	WalletAddress string     `json:"wallet_address"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// WalletStateChangeType enumerates wallet lifecycle transitions.
type WalletStateChangeType string

const (
	WalletAdded      WalletStateChangeType = "Added"
	WalletArchived   WalletStateChangeType = "Archived"
	WalletUnarchived WalletStateChangeType = "Unarchived"
	WalletUpdated    WalletStateChangeType = "Updated"
	WalletDeleted    WalletStateChangeType = "Deleted"
)

// WalletStateChange describes one wallet lifecycle transition, as carried
// on the tracked_wallets relay topic.
type WalletStateChange struct {
	WalletAddress string                `json:"wallet_address"`
	ChangeType    WalletStateChangeType `json:"change_type"`
	Timestamp     time.Time             `json:"timestamp"`
	Details       json.RawMessage       `json:"details,omitempty"`
}

// NewWalletStateChange builds a change record timestamped now.
func NewWalletStateChange(address string, changeType WalletStateChangeType) WalletStateChange {
	return WalletStateChange{
		WalletAddress: address,
		ChangeType:    changeType,
		Timestamp:     time.Now().UTC(),
	}
}

// WithDetails attaches the raw source payload to the change record.
func (w WalletStateChange) WithDetails(details json.RawMessage) WalletStateChange {
	w.Details = details
	return w
}
