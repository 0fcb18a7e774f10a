package ws

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseInboundSymbolsArray(t *testing.T) {
	m, err := ParseInbound([]byte(`{"type":"subscribe","symbols":["aapl","msft"]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Type != MsgSubscribe {
		t.Fatalf("type = %q", m.Type)
	}
	if !reflect.DeepEqual([]string(m.Symbols), []string{"aapl", "msft"}) {
		t.Fatalf("symbols = %v", m.Symbols)
	}
}

func TestParseInboundSymbolsSingleString(t *testing.T) {
	m, err := ParseInbound([]byte(`{"type":"unsubscribe","symbols":"tsla"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual([]string(m.Symbols), []string{"tsla"}) {
		t.Fatalf("symbols = %v", m.Symbols)
	}
}

func TestParseInboundUnknownType(t *testing.T) {
	_, err := ParseInbound([]byte(`{"type":"trade"}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestParseInboundMalformed(t *testing.T) {
	_, err := ParseInbound([]byte(`{not json`))
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestParseInboundAuthFields(t *testing.T) {
	m, err := ParseInbound([]byte(`{"type":"auth","token":"u1.sig"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Token != "u1.sig" {
		t.Fatalf("token = %q", m.Token)
	}

	m, err = ParseInbound([]byte(`{"type":"auth","userId":"u2"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.UserID != "u2" {
		t.Fatalf("userId = %q", m.UserID)
	}
}

func TestParseInboundPingTimestamp(t *testing.T) {
	m, err := ParseInbound([]byte(`{"type":"ping","timestamp":1712345678}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Timestamp != 1712345678 {
		t.Fatalf("timestamp = %d", m.Timestamp)
	}
}
