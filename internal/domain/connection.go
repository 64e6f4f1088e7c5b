package domain

import "time"

// ConnectionType identifies an upstream transport the monitor depends on.
type ConnectionType string

const (
	ConnWebSocket ConnectionType = "WebSocket"
	ConnRedis     ConnectionType = "Redis"
	ConnDatabase  ConnectionType = "Database"
)

// ConnectionStatus is the reported health of one transport.
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "Connected"
	StatusDisconnected ConnectionStatus = "Disconnected"
	StatusError        ConnectionStatus = "Error"
	StatusReconnecting ConnectionStatus = "Reconnecting"
	StatusConnecting   ConnectionStatus = "Connecting"
)

// ConnectionStatusChange records a transport health transition.
type ConnectionStatusChange struct {
	ConnectionType ConnectionType   `json:"connection_type"`
	Status         ConnectionStatus `json:"status"`
	Timestamp      time.Time        `json:"timestamp"`
	Details        *string          `json:"details,omitempty"`
}

// NewConnectionStatusChange builds a status change timestamped now.
func NewConnectionStatusChange(ct ConnectionType, status ConnectionStatus) ConnectionStatusChange {
	return ConnectionStatusChange{
		ConnectionType: ct,
		Status:         status,
		Timestamp:      time.Now().UTC(),
	}
}

// WithDetails attaches a human-readable detail string.
func (c ConnectionStatusChange) WithDetails(details string) ConnectionStatusChange {
	c.Details = &details
	return c
}
