// Package feed manages the streaming connection to the upstream trade
// feed: dial, subscribe, receive, and session-scoped backoff. The outer
// monitoring loop owns the reconnect policy; this package only reports
// what happened to the connection.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection lifecycle states.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateSubscribed
	StateClosing
)

// String returns the state name.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Sentinel receive outcomes the outer loop switches on.
var (
	// ErrClosed reports that the peer sent a close frame.
	ErrClosed = errors.New("feed: connection closed by peer")
	// ErrIdleTimeout reports that no message arrived within the idle window.
	ErrIdleTimeout = errors.New("feed: no message within idle window")
	// ErrNotConnected reports an operation that needs an open connection.
	ErrNotConnected = errors.New("feed: not connected")
	// ErrShuttingDown reports an operation after Shutdown began.
	ErrShuttingDown = errors.New("feed: shutting down")
)

// Config tunes connection behavior.
type Config struct {
	// HealthCheckInterval bounds how long ReceiveMessage waits before
	// reporting idleness, and paces keep-alive pings.
	HealthCheckInterval time.Duration
	// ConnectTimeout bounds the websocket handshake.
	ConnectTimeout time.Duration
	// InitialBackoff is the first reconnect delay.
	InitialBackoff time.Duration
	// MaxBackoff caps the reconnect delay.
	MaxBackoff time.Duration
	// MaxRetries bounds the in-session attempt counter used for backoff
	// growth. It does not stop the outer loop from retrying forever.
	MaxRetries int
}

// DefaultConfig returns the standard connection tuning.
func DefaultConfig() Config {
	return Config{
		HealthCheckInterval: 30 * time.Second,
		ConnectTimeout:      5 * time.Second,
		InitialBackoff:      1 * time.Second,
		MaxBackoff:          60 * time.Second,
		MaxRetries:          3,
	}
}

// Backoff returns the reconnect delay for the given attempt:
// min(initial << attempt, max).
func (c Config) Backoff(attempt int) time.Duration {
	d := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	if d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}

// subscribeRequest is the upstream subscribe frame.
type subscribeRequest struct {
	Method string   `json:"method"`
	Keys   []string `json:"keys"`
}

const subscribeMethod = "subscribeAccountTrades"

// readResult is one outcome of the session reader.
type readResult struct {
	message []byte
	err     error
}

// Conn is one streaming-feed connection. Methods are called from the
// owning monitor loop. Each established connection runs a session
// reader goroutine, so an idle window can elapse without poisoning the
// underlying read state; the keep-alive pinger is the only concurrent
// writer and holds the write mutex per frame.
type Conn struct {
	endpoint string
	config   Config
	logger   *log.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	state   ConnState
	attempt int

	recv        chan readResult
	sessionStop chan struct{}
	pingStop    chan struct{}
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithLogger sets the connection's logger.
func WithLogger(logger *log.Logger) ConnOption {
	return func(c *Conn) { c.logger = logger }
}

// WithConfig overrides the default connection tuning.
func WithConfig(config Config) ConnOption {
	return func(c *Conn) { c.config = config }
}

// NewConn creates a connection manager for the given endpoint. No
// network activity happens until EnsureConnection.
func NewConn(endpoint string, opts ...ConnOption) *Conn {
	c := &Conn{
		endpoint: endpoint,
		config:   DefaultConfig(),
		logger:   log.Default(),
		state:    StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the current lifecycle state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempt reports the in-session connect attempt counter.
func (c *Conn) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// EnsureConnection dials the endpoint unless already connected. Failed
// dials are retried in-session with exponentially growing delays until
// the attempt counter reaches MaxRetries, at which point the session is
// abandoned with an error and the outer loop owns further pacing. The
// counter survives abandonment, so a later call fails fast instead of
// replaying the ladder; success resets it. Idempotent while connected
// or subscribed.
func (c *Conn) EnsureConnection(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateConnected, StateSubscribed:
		c.mu.Unlock()
		return nil
	case StateClosing:
		c.mu.Unlock()
		return ErrShuttingDown
	}
	c.state = StateConnecting
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.config.ConnectTimeout}
	for {
		conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
		if err == nil {
			c.mu.Lock()
			if c.state == StateClosing {
				c.mu.Unlock()
				conn.Close()
				return ErrShuttingDown
			}
			c.conn = conn
			c.state = StateConnected
			c.attempt = 0
			c.recv = make(chan readResult, 256)
			c.sessionStop = make(chan struct{})
			go c.readLoop(conn, c.recv, c.sessionStop)
			c.mu.Unlock()
			c.logger.Printf("[feed] connected to %s", c.endpoint)
			return nil
		}

		c.mu.Lock()
		attempt := c.attempt
		if c.attempt < c.config.MaxRetries {
			c.attempt++
		}
		c.mu.Unlock()

		if attempt >= c.config.MaxRetries {
			c.setDisconnectedAfterDial()
			return fmt.Errorf("feed dial %s: %w", c.endpoint, err)
		}

		delay := c.config.Backoff(attempt)
		c.logger.Printf("[feed] dial %s failed (attempt %d/%d), retrying in %v: %v",
			c.endpoint, attempt+1, c.config.MaxRetries, delay, err)
		select {
		case <-ctx.Done():
			c.setDisconnectedAfterDial()
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// setDisconnectedAfterDial ends a failed connect without clobbering a
// concurrent Shutdown.
func (c *Conn) setDisconnectedAfterDial() {
	c.mu.Lock()
	if c.state == StateConnecting {
		c.state = StateDisconnected
	}
	c.mu.Unlock()
}

// readLoop feeds inbound frames into the session channel until the
// connection errors or the session ends.
func (c *Conn) readLoop(conn *websocket.Conn, recv chan<- readResult, stop <-chan struct{}) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case recv <- readResult{err: err}:
			case <-stop:
			}
			return
		}
		select {
		case recv <- readResult{message: message}:
		case <-stop:
			return
		}
	}
}

// Subscribe sends the address-set subscription and starts the
// keep-alive pinger. Requires an established connection. A write
// failure means the connection is dead; the session is torn down so
// the next cycle redials instead of writing into a broken pipe forever.
func (c *Conn) Subscribe(ctx context.Context, addrs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected && c.state != StateSubscribed {
		return ErrNotConnected
	}

	req := subscribeRequest{Method: subscribeMethod, Keys: addrs}
	deadline := time.Now().Add(c.config.ConnectTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(req); err != nil {
		c.teardownLocked()
		return fmt.Errorf("feed subscribe: %w", err)
	}

	if c.state != StateSubscribed {
		c.state = StateSubscribed
		c.startPingerLocked()
	}
	c.logger.Printf("[feed] subscribed to %d addresses", len(addrs))
	return nil
}

// ReceiveMessage blocks for the next inbound frame. It distinguishes a
// peer close (ErrClosed), an idle window with no message
// (ErrIdleTimeout), and transport errors. Any error leaves the
// connection disconnected except ErrIdleTimeout, which is a prompt to
// re-check liveness, not a failure.
func (c *Conn) ReceiveMessage(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	if c.state != StateSubscribed && c.state != StateConnected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	recv := c.recv
	c.mu.Unlock()

	idle := time.NewTimer(c.config.HealthCheckInterval)
	defer idle.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-idle.C:
		return nil, ErrIdleTimeout
	case res := <-recv:
		if res.err == nil {
			return res.message, nil
		}
		c.teardown()
		if websocket.IsCloseError(res.err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseAbnormalClosure) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("feed read: %w", res.err)
	}
}

// Shutdown closes the connection best-effort. Errors are logged and
// swallowed; the connection always ends disconnected.
func (c *Conn) Shutdown() {
	c.mu.Lock()
	if c.state == StateClosing || c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	conn := c.conn
	c.stopPingerLocked()
	c.stopSessionLocked()
	c.mu.Unlock()

	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
			c.logger.Printf("[feed] close frame write failed: %v", err)
		}
		if err := conn.Close(); err != nil {
			c.logger.Printf("[feed] close failed: %v", err)
		}
	}

	c.mu.Lock()
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()
}

// teardown drops a broken connection and resets to disconnected.
func (c *Conn) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// teardownLocked is teardown with mu already held.
func (c *Conn) teardownLocked() {
	c.stopPingerLocked()
	c.stopSessionLocked()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.state != StateClosing {
		c.state = StateDisconnected
	}
}

// stopSessionLocked releases the session reader. Caller holds mu.
func (c *Conn) stopSessionLocked() {
	if c.sessionStop == nil {
		return
	}
	close(c.sessionStop)
	c.sessionStop = nil
}

// startPingerLocked launches the keep-alive pinger. Caller holds mu.
func (c *Conn) startPingerLocked() {
	c.pingStop = make(chan struct{})
	go c.pingLoop(c.conn, c.pingStop)
}

// stopPingerLocked stops the keep-alive pinger. Caller holds mu.
func (c *Conn) stopPingerLocked() {
	if c.pingStop == nil {
		return
	}
	close(c.pingStop)
	c.pingStop = nil
}

// pingLoop sends ping frames at the health-check interval until stopped.
// A write failure is left for the reader to observe.
func (c *Conn) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.conn != conn {
				c.mu.Unlock()
				return
			}
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				c.logger.Printf("[feed] keep-alive ping failed: %v", err)
				return
			}
		}
	}
}
