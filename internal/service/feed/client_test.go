package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"QuotePulse/pkg/logger"

	"github.com/gorilla/websocket"
)

// fakeBroker is an upstream trade stream: it records subscriptions and can
// push trade messages to the connected client.
type fakeBroker struct {
	upgrader websocket.Upgrader

	mu   sync.Mutex
	conn *websocket.Conn
	subs []string
}

func (b *fakeBroker) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var m map[string]string
		if json.Unmarshal(payload, &m) == nil && m["type"] == "subscribe" {
			b.mu.Lock()
			b.subs = append(b.subs, m["symbol"])
			b.mu.Unlock()
		}
	}
}

func (b *fakeBroker) pushTrade(t *testing.T, symbol string, price float64) {
	t.Helper()
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		t.Fatal("no client connected")
	}
	msg := map[string]interface{}{
		"type": "trade",
		"data": []map[string]interface{}{
			{"s": symbol, "p": price, "t": time.Now().UnixMilli()},
		},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("push trade: %v", err)
	}
}

func (b *fakeBroker) subscriptions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.subs))
	copy(out, b.subs)
	return out
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newTestClient(t *testing.T, maxAge time.Duration) (*Client, *fakeBroker, context.CancelFunc) {
	t.Helper()
	broker := &fakeBroker{}
	srv := httptest.NewServer(http.HandlerFunc(broker.handler))
	t.Cleanup(srv.Close)

	c := New(Config{
		WebSocketURL:   "ws" + strings.TrimPrefix(srv.URL, "http"),
		ReconnectDelay: 50 * time.Millisecond,
		PingInterval:   time.Minute,
		MaxTradeAge:    maxAge,
	}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		c.Close()
	})

	waitFor(t, time.Second, c.IsConnected)
	return c, broker, cancel
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestFirstQuoteRegistersWatchAndReportsNoTrade(t *testing.T) {
	c, broker, _ := newTestClient(t, time.Minute)

	_, err := c.Quote(context.Background(), "AAPL")
	if !errors.Is(err, ErrNoTrade) {
		t.Fatalf("err = %v, want ErrNoTrade", err)
	}
	waitFor(t, time.Second, func() bool {
		subs := broker.subscriptions()
		return len(subs) == 1 && subs[0] == "AAPL"
	})
}

func TestQuoteServesLastTrade(t *testing.T) {
	c, broker, _ := newTestClient(t, time.Minute)

	c.Quote(context.Background(), "AAPL")
	waitFor(t, time.Second, func() bool { return len(broker.subscriptions()) == 1 })

	broker.pushTrade(t, "AAPL", 190.1234)
	waitFor(t, time.Second, func() bool {
		q, err := c.Quote(context.Background(), "AAPL")
		return err == nil && q.Price == 190.12
	})

	q, err := c.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Symbol != "AAPL" || q.DataSource != "primary" {
		t.Fatalf("quote = %+v", q)
	}
}

func TestChangeTracksPreviousTrade(t *testing.T) {
	c, broker, _ := newTestClient(t, time.Minute)

	c.Quote(context.Background(), "MSFT")
	waitFor(t, time.Second, func() bool { return len(broker.subscriptions()) == 1 })

	broker.pushTrade(t, "MSFT", 100)
	waitFor(t, time.Second, func() bool {
		q, err := c.Quote(context.Background(), "MSFT")
		return err == nil && q.Price == 100
	})

	broker.pushTrade(t, "MSFT", 101)
	waitFor(t, time.Second, func() bool {
		q, err := c.Quote(context.Background(), "MSFT")
		return err == nil && q.Price == 101 && q.Change == 1 && q.PercentChange == 1
	})
}

func TestStaleTradeReportsNoTrade(t *testing.T) {
	c, broker, _ := newTestClient(t, 50*time.Millisecond)

	c.Quote(context.Background(), "TSLA")
	waitFor(t, time.Second, func() bool { return len(broker.subscriptions()) == 1 })

	broker.pushTrade(t, "TSLA", 250)
	waitFor(t, time.Second, func() bool {
		_, err := c.Quote(context.Background(), "TSLA")
		return err == nil
	})

	time.Sleep(80 * time.Millisecond)
	_, err := c.Quote(context.Background(), "TSLA")
	if !errors.Is(err, ErrNoTrade) {
		t.Fatalf("err = %v, want ErrNoTrade for stale trade", err)
	}
}

func TestQuoteWhileDisconnectedReportsNoTrade(t *testing.T) {
	c := New(Config{
		WebSocketURL:   "ws://127.0.0.1:1",
		ReconnectDelay: time.Minute,
		PingInterval:   time.Minute,
		MaxTradeAge:    time.Minute,
	}, testLogger(t))

	_, err := c.Quote(context.Background(), "AAPL")
	if !errors.Is(err, ErrNoTrade) {
		t.Fatalf("err = %v, want ErrNoTrade", err)
	}
}
