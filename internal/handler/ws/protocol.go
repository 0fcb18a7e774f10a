package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"QuotePulse/internal/domain/models"
)

// Client message types. An unrecognized type is a typed error case, not a
// silent no-op.
const (
	MsgAuth        = "auth"
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgPing        = "ping"
)

// Server frame types.
const (
	FrameConnectionEstablished = "connection_established"
	FrameAuthSuccess           = "auth_success"
	FrameAuthError             = "auth_error"
	FrameSubscribeSuccess      = "subscribe_success"
	FrameUnsubscribeSuccess    = "unsubscribe_success"
	FrameMarketData            = "marketData"
	FramePong                  = "pong"
	FrameError                 = "error"
)

var (
	ErrMalformedFrame = errors.New("ws: malformed frame")
	ErrUnknownType    = errors.New("ws: unknown message type")
)

// SymbolList accepts either a single string or an array of strings on the
// wire; browser clients send both.
type SymbolList []string

func (s *SymbolList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = SymbolList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("symbols must be a string or string array")
	}
	*s = SymbolList(many)
	return nil
}

// Inbound is the decoded client message.
type Inbound struct {
	Type      string     `json:"type"`
	Token     string     `json:"token,omitempty"`
	UserID    string     `json:"userId,omitempty"`
	Symbols   SymbolList `json:"symbols,omitempty"`
	Timestamp int64      `json:"timestamp,omitempty"`
}

// ParseInbound decodes and validates one client frame.
func ParseInbound(b []byte) (*Inbound, error) {
	var m Inbound
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	switch m.Type {
	case MsgAuth, MsgSubscribe, MsgUnsubscribe, MsgPing:
		return &m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
}

// --- Server frames ---

// ConnectionEstablished is sent immediately after the upgrade.
type ConnectionEstablished struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
}

// AuthResult is sent in reply to an auth message.
type AuthResult struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	Message string `json:"message,omitempty"`
}

// SubscriptionAck echoes the resulting subscribed-symbol list.
type SubscriptionAck struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// Pong echoes the client timestamp plus server time.
type Pong struct {
	Type       string `json:"type"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	ServerTime int64  `json:"serverTime"`
}

// ErrorFrame reports protocol misuse; the connection stays open.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// MarketDataFrame is one normalized price update for one symbol.
type MarketDataFrame struct {
	Type          string  `json:"type"`
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percentChange"`
	Timestamp     int64   `json:"timestamp"`
	IsMarketOpen  bool    `json:"isMarketOpen"`
	DataSource    string  `json:"dataSource"`
	Phase         string  `json:"phase"`
}

// NewMarketDataFrame builds the wire frame for a canonical quote.
func NewMarketDataFrame(q *models.Quote, isOpen bool, phase string) MarketDataFrame {
	return MarketDataFrame{
		Type:          FrameMarketData,
		Symbol:        q.Symbol,
		Price:         q.Price,
		Change:        q.Change,
		PercentChange: q.PercentChange,
		Timestamp:     q.Timestamp,
		IsMarketOpen:  isOpen,
		DataSource:    q.DataSource,
		Phase:         phase,
	}
}
