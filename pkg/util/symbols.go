package util

import (
	"math"
	"strings"
)

// NormalizeSymbols uppercases, trims, and deduplicates tickers, preserving
// first-seen order. Empty entries are dropped.
func NormalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

// Round2 rounds to 2 decimal places for price/change fields.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
