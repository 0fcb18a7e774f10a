package models

// Data source tiers, in fallback order.
const (
	SourcePrimary   = "primary"
	SourceSecondary = "secondary"
	SourceSynthetic = "synthetic"
)

// Quote is the canonical normalized price update. Every provider-specific
// response is converted into this shape before it reaches a client or a
// downstream topic.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percentChange"`
	Timestamp     int64   `json:"timestamp"` // unix milliseconds
	IsSynthetic   bool    `json:"isSynthetic"`
	DataSource    string  `json:"dataSource"`
}
