package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"QuotePulse/internal/domain/models"
	"QuotePulse/pkg/logger"
	"QuotePulse/pkg/util"

	"github.com/gorilla/websocket"
)

// ErrNoTrade means the stream has no fresh trade for the symbol. The caller
// falls through to the next tier.
var ErrNoTrade = errors.New("feed: no fresh trade")

// Config holds broker stream settings.
type Config struct {
	WebSocketURL   string
	APIKey         string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	MaxTradeAge    time.Duration
}

// Client is the primary tier: a broker trade stream. It keeps the last trade
// per watched symbol and serves quotes out of that cache; a symbol with no
// fresh trade is reported unavailable rather than guessed at.
type Client struct {
	cfg Config
	log *logger.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	watched   map[string]bool
	last      map[string]lastTrade
}

type lastTrade struct {
	price     float64
	prevPrice float64
	at        time.Time
}

// New creates a broker stream client.
func New(cfg Config, log *logger.Logger) *Client {
	return &Client{
		cfg:     cfg,
		log:     log,
		watched: make(map[string]bool),
		last:    make(map[string]lastTrade),
	}
}

// Name identifies the tier.
func (c *Client) Name() string { return models.SourcePrimary }

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.cfg.WebSocketURL, c.cfg.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	watched := make([]string, 0, len(c.watched))
	for s := range c.watched {
		watched = append(watched, s)
	}
	c.mu.Unlock()

	// Re-announce symbols watched before a reconnect.
	for _, s := range watched {
		if err := c.sendSubscribe(s); err != nil {
			return err
		}
	}
	c.log.Info("feed: connected", logger.Int("watched", len(watched)))
	return nil
}

// Run owns the read and ping loops and reconnects until the context ends.
func (c *Client) Run(ctx context.Context) {
	go c.pingLoop(ctx)
	if err := c.Connect(ctx); err != nil {
		c.log.Warn("feed: initial connect failed", logger.Error(err))
	}
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.readLoop(ctx); err != nil {
			c.log.Warn("feed: stream error", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}
		if err := c.Connect(ctx); err != nil {
			c.log.Warn("feed: reconnect failed", logger.Error(err))
		}
	}
}

// Quote serves the last streamed trade for a symbol. The first request for a
// symbol registers an upstream subscription and reports unavailable until
// data arrives.
func (c *Client) Quote(_ context.Context, symbol string) (*models.Quote, error) {
	c.mu.RLock()
	connected := c.connected
	watched := c.watched[symbol]
	lt, ok := c.last[symbol]
	c.mu.RUnlock()

	if !connected {
		return nil, fmt.Errorf("feed: not connected: %w", ErrNoTrade)
	}
	if !watched {
		c.watch(symbol)
		return nil, fmt.Errorf("feed: %s not watched yet: %w", symbol, ErrNoTrade)
	}
	if !ok || time.Since(lt.at) > c.cfg.MaxTradeAge {
		return nil, fmt.Errorf("feed: %s stale: %w", symbol, ErrNoTrade)
	}

	change := lt.price - lt.prevPrice
	pct := 0.0
	if lt.prevPrice > 0 {
		pct = change / lt.prevPrice * 100
	}
	return &models.Quote{
		Symbol:        symbol,
		Price:         util.Round2(lt.price),
		Change:        util.Round2(change),
		PercentChange: util.Round2(pct),
		Timestamp:     lt.at.UnixMilli(),
		DataSource:    models.SourcePrimary,
	}, nil
}

// Close closes the stream connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates stream status.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

type streamTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	T int64   `json:"t"` // ms
}

type streamMessage struct {
	Type string        `json:"type"`
	Data []streamTrade `json:"data"`
}

func (c *Client) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return fmt.Errorf("feed: no connection")
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()
			return fmt.Errorf("feed read: %w", err)
		}

		var m streamMessage
		if err := json.Unmarshal(b, &m); err != nil {
			continue // ignore non-trade frames
		}
		if m.Type != "trade" {
			continue
		}
		c.mu.Lock()
		for _, d := range m.Data {
			prev := c.last[d.S]
			prevPrice := prev.price
			if prevPrice == 0 {
				prevPrice = d.P
			}
			c.last[d.S] = lastTrade{
				price:     d.P,
				prevPrice: prevPrice,
				at:        time.UnixMilli(d.T),
			}
		}
		c.mu.Unlock()
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

func (c *Client) watch(symbol string) {
	c.mu.Lock()
	if c.watched[symbol] {
		c.mu.Unlock()
		return
	}
	c.watched[symbol] = true
	c.mu.Unlock()

	if err := c.sendSubscribe(symbol); err != nil {
		c.log.Warn("feed: subscribe failed", logger.String("symbol", symbol), logger.Error(err))
	}
}

func (c *Client) sendSubscribe(symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	msg := map[string]string{"type": "subscribe", "symbol": symbol}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe %s: %w", symbol, err)
	}
	return nil
}
