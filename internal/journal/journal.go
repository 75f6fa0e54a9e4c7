// Package journal records closed simulated trades and maintains running statistics.
package journal

// TradeRecord is one closed simulated trade, appended exactly once per close.
type TradeRecord struct {
	ID          string  `json:"id"`
	TsOpen      int64   `json:"tsOpen"`
	TsClose     int64   `json:"tsClose"`
	DurationMs  int64   `json:"durationMs"`
	Symbol      string  `json:"symbol"`
	Buy         string  `json:"buy"`
	Sell        string  `json:"sell"`
	OpenNet     float64 `json:"openNet"`
	CloseNet    float64 `json:"closeNet"`
	PnlPct      float64 `json:"pnlPct"`
	Notional    float64 `json:"notional"`
	PnlUsd      float64 `json:"pnlUsd"`
	Reason      string  `json:"reason"`
	EquityAfter float64 `json:"equityAfter"`
}

// EquityPoint is one step of the equity curve, written alongside each trade.
type EquityPoint struct {
	T           int64   `json:"t"`
	Equity      float64 `json:"equity"`
	DrawdownPct float64 `json:"drawdownPct"`
}

// Sink persists journal entries. Implementations must tolerate being called
// from the close path; failures are logged by the aggregator and never block
// or roll back the in-memory transition.
type Sink interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquityPoint) error
}

// GroupStats is a per-key breakdown slice of the aggregate.
type GroupStats struct {
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	PnlSum float64 `json:"pnlSum"`
}

// Stats is the monotonically updated summary over all closed trades.
type Stats struct {
	Trades         int                   `json:"trades"`
	Wins           int                   `json:"wins"`
	Losses         int                   `json:"losses"`
	PnlSum         float64               `json:"pnlSum"`
	WinSum         float64               `json:"winSum"`
	LossSum        float64               `json:"lossSum"` // negative or zero
	ProfitFactor   float64               `json:"profitFactor"`
	AvgDurationMs  float64               `json:"avgDurationMs"`
	Equity         float64               `json:"equity"`
	Peak           float64               `json:"peak"`
	MaxDrawdownPct float64               `json:"maxDrawdownPct"` // most negative seen
	BySymbol       map[string]GroupStats `json:"bySymbol"`
	ByPair         map[string]GroupStats `json:"byPair"`
	ByReason       map[string]GroupStats `json:"byReason"`
}

// Snapshot is the point-in-time query surface: the aggregate plus the tails
// of the equity series and recent trades.
type Snapshot struct {
	Stats  Stats         `json:"stats"`
	Equity []EquityPoint `json:"equity"`
	Recent []TradeRecord `json:"recent"`
}
