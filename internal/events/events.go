// Package events provides the process-wide typed broadcast bus and the
// closed set of event variants that cross it.
package events

import "copytrade-monitor/internal/domain"

// Kind tags an event variant.
type Kind string

const (
	KindSettingsUpdated         Kind = "settings_updated"
	KindWalletStateChanged      Kind = "wallet_state_change"
	KindTransactionLogged       Kind = "transaction_logged"
	KindCopyTradeExecuted       Kind = "copy_trade_executed"
	KindTrackedWalletTrade      Kind = "tracked_wallet_trade"
	KindPriceUpdated            Kind = "price_update"
	KindSolPriceUpdated         Kind = "sol_price_update"
	KindConnectionStatusChanged Kind = "connection_status"
)

// Notification wraps a payload with a wire-level type tag. The tag is
// redundant with the event variant and exists for wire self-description.
type Notification[T any] struct {
	Data T      `json:"data"`
	Type string `json:"type"`
}

// Event is the closed tagged variant carried on the bus. Exactly one
// payload field is set, matching Kind.
type Event struct {
	Kind Kind

	SettingsUpdate   *Notification[domain.CopyTradeSettings]
	WalletState      *Notification[domain.WalletStateChange]
	TransactionLog   *Notification[domain.TransactionLog]
	CopyTrade        *Notification[domain.ObservedTrade]
	TrackedTrade     *Notification[domain.ObservedTrade]
	PriceUpdate      *Notification[domain.PriceUpdate]
	SolPriceUpdate   *Notification[domain.SolPriceUpdate]
	ConnectionStatus *Notification[domain.ConnectionStatusChange]
}

// NewSettingsUpdated wraps updated copy-trade settings.
func NewSettingsUpdated(s domain.CopyTradeSettings) Event {
	return Event{
		Kind:           KindSettingsUpdated,
		SettingsUpdate: &Notification[domain.CopyTradeSettings]{Data: s, Type: string(KindSettingsUpdated)},
	}
}

// NewWalletStateChanged wraps a wallet lifecycle transition.
func NewWalletStateChanged(c domain.WalletStateChange) Event {
	return Event{
		Kind:        KindWalletStateChanged,
		WalletState: &Notification[domain.WalletStateChange]{Data: c, Type: string(KindWalletStateChanged)},
	}
}

// NewTransactionLogged wraps an appended transaction log record.
func NewTransactionLogged(l domain.TransactionLog) Event {
	return Event{
		Kind:           KindTransactionLogged,
		TransactionLog: &Notification[domain.TransactionLog]{Data: l, Type: string(KindTransactionLogged)},
	}
}

// NewCopyTradeExecuted wraps the observed trade whose replica was executed.
func NewCopyTradeExecuted(t domain.ObservedTrade) Event {
	return Event{
		Kind:      KindCopyTradeExecuted,
		CopyTrade: &Notification[domain.ObservedTrade]{Data: t, Type: string(KindCopyTradeExecuted)},
	}
}

// NewTrackedWalletTrade wraps a trade observed on a tracked wallet.
func NewTrackedWalletTrade(t domain.ObservedTrade) Event {
	return Event{
		Kind:         KindTrackedWalletTrade,
		TrackedTrade: &Notification[domain.ObservedTrade]{Data: t, Type: string(KindTrackedWalletTrade)},
	}
}

// NewPriceUpdated wraps a token price update.
func NewPriceUpdated(p domain.PriceUpdate) Event {
	return Event{
		Kind:        KindPriceUpdated,
		PriceUpdate: &Notification[domain.PriceUpdate]{Data: p, Type: string(KindPriceUpdated)},
	}
}

// NewSolPriceUpdated wraps a SOL/USD quote.
func NewSolPriceUpdated(p domain.SolPriceUpdate) Event {
	return Event{
		Kind:           KindSolPriceUpdated,
		SolPriceUpdate: &Notification[domain.SolPriceUpdate]{Data: p, Type: string(KindSolPriceUpdated)},
	}
}

// NewConnectionStatusChanged wraps a transport health transition.
func NewConnectionStatusChanged(c domain.ConnectionStatusChange) Event {
	return Event{
		Kind:             KindConnectionStatusChanged,
		ConnectionStatus: &Notification[domain.ConnectionStatusChange]{Data: c, Type: string(KindConnectionStatusChanged)},
	}
}
