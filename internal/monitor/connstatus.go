package monitor

import (
	"sync"

	"copytrade-monitor/internal/domain"
	"copytrade-monitor/internal/events"
)

// ConnectionMonitor tracks per-transport health and broadcasts
// transitions. Repeated reports of the same status are suppressed.
type ConnectionMonitor struct {
	mu     sync.Mutex
	status map[domain.ConnectionType]domain.ConnectionStatus
	bus    *events.Bus
}

// NewConnectionMonitor creates a monitor broadcasting on bus.
func NewConnectionMonitor(bus *events.Bus) *ConnectionMonitor {
	return &ConnectionMonitor{
		status: make(map[domain.ConnectionType]domain.ConnectionStatus),
		bus:    bus,
	}
}

// Report records a transport status. A change is published as a
// connection-status event; a repeat is dropped.
func (m *ConnectionMonitor) Report(ct domain.ConnectionType, status domain.ConnectionStatus, details string) {
	m.mu.Lock()
	if m.status[ct] == status {
		m.mu.Unlock()
		return
	}
	m.status[ct] = status
	m.mu.Unlock()

	change := domain.NewConnectionStatusChange(ct, status)
	if details != "" {
		change = change.WithDetails(details)
	}
	m.bus.Publish(events.NewConnectionStatusChanged(change))
}

// Status reports the last recorded status for a transport.
func (m *ConnectionMonitor) Status(ct domain.ConnectionType) domain.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.status[ct]; ok {
		return s
	}
	return domain.StatusDisconnected
}
