// Package notify defines the typed outbound messages and their delivery hooks.
package notify

import (
	"github.com/rs/zerolog"

	"arbwatch-go/internal/metrics"
)

// Level enumerates alert severities.
type Level string

const (
	LevelHot   Level = "HOT"
	LevelClose Level = "CLOSE"
)

// QuoteMsg is broadcast once per accepted quote update.
type QuoteMsg struct {
	Type   string  `json:"type"` // always "quote"
	Venue  string  `json:"venue"`
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	TsMs   int64   `json:"tsMs"`
	Status string  `json:"status"`
	AgeMs  int64   `json:"ageMs"`
	EmaMs  float64 `json:"emaMs"`
}

// AlertMsg is sent on trade opens (HOT) and closes (CLOSE).
type AlertMsg struct {
	Type        string  `json:"type"` // always "alert"
	Level       Level   `json:"level"`
	Symbol      string  `json:"symbol"`
	From        string  `json:"from"` // buy venue
	To          string  `json:"to"`   // sell venue
	SpreadOpen  float64 `json:"spreadOpen"`
	SpreadClose float64 `json:"spreadClose"`
	DurationMs  int64   `json:"durationMs"`
	VirtualPnl  float64 `json:"virtualPnl"`
}

// Broadcaster receives every outbound message. Display and chat delivery
// live outside this process; implementations here only hand messages over.
type Broadcaster interface {
	Quote(QuoteMsg)
	Alert(AlertMsg)
}

// LogBroadcaster writes messages to the process log, quotes at debug so the
// hot path stays quiet at default levels.
type LogBroadcaster struct{ log zerolog.Logger }

// NewLogBroadcaster wraps a zerolog logger for outbound messages.
func NewLogBroadcaster(log zerolog.Logger) *LogBroadcaster {
	return &LogBroadcaster{log: log}
}

// Quote logs one quote update.
func (b *LogBroadcaster) Quote(msg QuoteMsg) {
	b.log.Debug().
		Str("venue", msg.Venue).Str("sym", msg.Symbol).
		Float64("bid", msg.Bid).Float64("ask", msg.Ask).
		Str("status", msg.Status).Int64("ageMs", msg.AgeMs).
		Msg("quote")
}

// Alert logs one alert.
func (b *LogBroadcaster) Alert(msg AlertMsg) {
	metrics.AlertsTotal.WithLabelValues(string(msg.Level)).Inc()
	b.log.Info().
		Str("level", string(msg.Level)).Str("sym", msg.Symbol).
		Str("from", msg.From).Str("to", msg.To).
		Float64("spreadOpen", msg.SpreadOpen).Float64("spreadClose", msg.SpreadClose).
		Int64("durationMs", msg.DurationMs).Float64("virtualPnl", msg.VirtualPnl).
		Msg("alert")
}
