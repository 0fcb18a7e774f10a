package quoteapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"QuotePulse/internal/domain/models"
	xhttp "QuotePulse/pkg/http"
	"QuotePulse/pkg/util"
)

// ErrNoQuote means the API answered but carries no price for the symbol.
var ErrNoQuote = errors.New("quoteapi: no quote for symbol")

// Config holds quote API settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is the secondary tier: a REST quote-by-symbol API.
type Client struct {
	cfg  Config
	http *xhttp.Client
}

// New creates a quote API client.
func New(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
	}
}

// Name identifies the tier.
func (c *Client) Name() string { return models.SourceSecondary }

// rawQuote is the provider's own response shape: current price, absolute
// change, percent change, previous close, unix-second timestamp.
type rawQuote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	PrevClose     float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// Quote fetches and normalizes one quote.
func (c *Client) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	var raw rawQuote
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: http.MethodGet,
		URL:    c.cfg.BaseURL + "/quote",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {c.cfg.APIKey},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("quoteapi %s: %w", symbol, err)
	}

	// The API answers zeros for unknown symbols instead of an error status.
	if raw.Current <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoQuote, symbol)
	}

	pct := raw.PercentChange
	if pct == 0 && raw.PrevClose > 0 {
		pct = raw.Change / raw.PrevClose * 100
	}
	ts := raw.Timestamp * 1000
	if raw.Timestamp == 0 {
		ts = time.Now().UnixMilli()
	}

	return &models.Quote{
		Symbol:        symbol,
		Price:         util.Round2(raw.Current),
		Change:        util.Round2(raw.Change),
		PercentChange: util.Round2(pct),
		Timestamp:     ts,
		DataSource:    models.SourceSecondary,
	}, nil
}
