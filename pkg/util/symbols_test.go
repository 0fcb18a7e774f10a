package util

import (
	"reflect"
	"testing"
)

func TestNormalizeSymbols(t *testing.T) {
	got := NormalizeSymbols([]string{" aapl", "MSFT", "aapl", "", "msft "})
	want := []string{"AAPL", "MSFT"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected symbols %v", got)
	}
}

func TestNormalizeSymbolsEmpty(t *testing.T) {
	if got := NormalizeSymbols(nil); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(182.34567); got != 182.35 {
		t.Fatalf("unexpected rounding %v", got)
	}
	if got := Round2(-0.005); got != -0.01 && got != 0 {
		t.Fatalf("unexpected rounding %v", got)
	}
}
