package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestConfig_Backoff(t *testing.T) {
	cfg := DefaultConfig()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}
	for attempt, expected := range want {
		if got := cfg.Backoff(attempt); got != expected {
			t.Errorf("backoff(%d) = %v, want %v", attempt, got, expected)
		}
	}
}

// newWSServer starts a websocket echo-style server driven by handler.
func newWSServer(t *testing.T, handler func(*websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func quietConn(endpoint string, cfg Config) *Conn {
	return NewConn(endpoint,
		WithConfig(cfg),
		WithLogger(log.New(io.Discard, "", 0)))
}

func TestConn_EnsureConnectionIdempotent(t *testing.T) {
	dials := make(chan struct{}, 8)
	endpoint := newWSServer(t, func(conn *websocket.Conn) {
		dials <- struct{}{}
		conn.ReadMessage()
	})

	c := quietConn(endpoint, DefaultConfig())
	defer c.Shutdown()

	ctx := context.Background()
	if err := c.EnsureConnection(ctx); err != nil {
		t.Fatalf("EnsureConnection: %v", err)
	}
	if err := c.EnsureConnection(ctx); err != nil {
		t.Fatalf("second EnsureConnection: %v", err)
	}

	if got := c.State(); got != StateConnected {
		t.Errorf("state = %v, want connected", got)
	}

	time.Sleep(50 * time.Millisecond)
	if got := len(dials); got != 1 {
		t.Errorf("expected a single dial, got %d", got)
	}
}

func TestConn_ConnectFailureBacksOffThenAbandons(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnectTimeout = 100 * time.Millisecond
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 4 * time.Millisecond
	c := quietConn("ws://127.0.0.1:1", cfg)

	ctx := context.Background()
	if err := c.EnsureConnection(ctx); err == nil {
		t.Fatal("expected dial failure")
	}

	// The first session walks the backoff ladder before abandoning; the
	// counter grows per failure but never passes MaxRetries.
	if got := c.Attempt(); got != cfg.MaxRetries {
		t.Errorf("attempt = %d, want %d", got, cfg.MaxRetries)
	}
	if got := c.State(); got != StateDisconnected {
		t.Errorf("state = %v, want disconnected", got)
	}

	// With the counter at its cap, later sessions fail fast instead of
	// replaying the ladder, leaving pacing to the caller.
	if err := c.EnsureConnection(ctx); err == nil {
		t.Fatal("expected dial failure")
	}
	if got := c.Attempt(); got != cfg.MaxRetries {
		t.Errorf("attempt after abandoned session = %d, want %d", got, cfg.MaxRetries)
	}
}

func TestConn_SubscribeSendsAddressSet(t *testing.T) {
	frames := make(chan []byte, 1)
	endpoint := newWSServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frames <- msg
		conn.ReadMessage()
	})

	c := quietConn(endpoint, DefaultConfig())
	defer c.Shutdown()

	ctx := context.Background()
	if err := c.EnsureConnection(ctx); err != nil {
		t.Fatalf("EnsureConnection: %v", err)
	}
	if err := c.Subscribe(ctx, []string{"w1", "w2"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if got := c.State(); got != StateSubscribed {
		t.Errorf("state = %v, want subscribed", got)
	}

	select {
	case raw := <-frames:
		var req subscribeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("unmarshal subscribe frame: %v", err)
		}
		if req.Method != subscribeMethod {
			t.Errorf("method = %s", req.Method)
		}
		if len(req.Keys) != 2 || req.Keys[0] != "w1" || req.Keys[1] != "w2" {
			t.Errorf("keys = %v", req.Keys)
		}
	case <-time.After(time.Second):
		t.Fatal("server never received the subscribe frame")
	}
}

func TestConn_SubscribeFailureTearsDownSession(t *testing.T) {
	endpoint := newWSServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
		conn.Close()
	})

	c := quietConn(endpoint, DefaultConfig())
	defer c.Shutdown()

	ctx := context.Background()
	if err := c.EnsureConnection(ctx); err != nil {
		t.Fatalf("EnsureConnection: %v", err)
	}
	if err := c.Subscribe(ctx, []string{"w1"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// The peer died without a close frame. Writes may land in the OS
	// buffer for a moment, but a refreshed subscription must fail soon
	// and drop the session instead of writing into a broken pipe.
	deadline := time.Now().Add(3 * time.Second)
	var err error
	for time.Now().Before(deadline) {
		if err = c.Subscribe(ctx, []string{"w1", "w2"}); err != nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err == nil {
		t.Fatal("subscribe kept succeeding against a dead peer")
	}
	if got := c.State(); got != StateDisconnected {
		t.Errorf("state = %v, want disconnected", got)
	}

	// The next cycle dials a fresh session.
	if err := c.EnsureConnection(ctx); err != nil {
		t.Fatalf("EnsureConnection after teardown: %v", err)
	}
	if got := c.State(); got != StateConnected {
		t.Errorf("state = %v, want connected", got)
	}
}

func TestConn_SubscribeRequiresConnection(t *testing.T) {
	c := quietConn("ws://127.0.0.1:1", DefaultConfig())
	if err := c.Subscribe(context.Background(), []string{"w1"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestConn_ReceiveMessage(t *testing.T) {
	endpoint := newWSServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":"world"}`))
		conn.ReadMessage()
	})

	c := quietConn(endpoint, DefaultConfig())
	defer c.Shutdown()

	ctx := context.Background()
	if err := c.EnsureConnection(ctx); err != nil {
		t.Fatalf("EnsureConnection: %v", err)
	}
	if err := c.Subscribe(ctx, []string{"w1"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	msg, err := c.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if string(msg) != `{"hello":"world"}` {
		t.Errorf("message = %s", msg)
	}
}

func TestConn_ReceiveMessageIdleTimeout(t *testing.T) {
	endpoint := newWSServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
		conn.ReadMessage()
	})

	cfg := DefaultConfig()
	cfg.HealthCheckInterval = 50 * time.Millisecond
	c := quietConn(endpoint, cfg)
	defer c.Shutdown()

	ctx := context.Background()
	if err := c.EnsureConnection(ctx); err != nil {
		t.Fatalf("EnsureConnection: %v", err)
	}
	if err := c.Subscribe(ctx, []string{"w1"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	_, err := c.ReceiveMessage(ctx)
	if !errors.Is(err, ErrIdleTimeout) {
		t.Fatalf("expected ErrIdleTimeout, got %v", err)
	}

	// Idleness is not a failure; the session survives.
	if got := c.State(); got != StateSubscribed {
		t.Errorf("state = %v, want subscribed", got)
	}
}

func TestConn_ReceiveMessagePeerClose(t *testing.T) {
	endpoint := newWSServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	})

	c := quietConn(endpoint, DefaultConfig())

	ctx := context.Background()
	if err := c.EnsureConnection(ctx); err != nil {
		t.Fatalf("EnsureConnection: %v", err)
	}
	if err := c.Subscribe(ctx, []string{"w1"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	_, err := c.ReceiveMessage(ctx)
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if got := c.State(); got != StateDisconnected {
		t.Errorf("state = %v, want disconnected", got)
	}
}

func TestConn_ShutdownIsIdempotent(t *testing.T) {
	endpoint := newWSServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
	})

	c := quietConn(endpoint, DefaultConfig())
	if err := c.EnsureConnection(context.Background()); err != nil {
		t.Fatalf("EnsureConnection: %v", err)
	}

	c.Shutdown()
	c.Shutdown()

	if got := c.State(); got != StateDisconnected {
		t.Errorf("state = %v, want disconnected", got)
	}
}
