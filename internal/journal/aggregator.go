package journal

import (
	"sync"

	"github.com/rs/zerolog"

	"arbwatch-go/internal/metrics"
)

// Close carries everything the aggregator needs to settle one trade.
type Close struct {
	ID       string
	Symbol   string
	Buy      string
	Sell     string
	OpenNet  float64
	CloseNet float64
	Notional float64
	Reason   string
	TsOpen   int64
	TsClose  int64
}

// Aggregator turns close events into records, an equity curve, and rolling
// statistics. Sinks are written best-effort; a failed write never blocks the
// in-memory update that produced it.
type Aggregator struct {
	log   zerolog.Logger
	sinks []Sink
	tail  *Tail

	mu     sync.Mutex
	equity float64
	peak   float64
	maxDD  float64
	durSum int64
	stats  Stats
}

// NewAggregator starts the equity curve at startingEquity and mirrors every
// record into the given sinks plus an in-memory tail of tailSize entries.
func NewAggregator(log zerolog.Logger, startingEquity float64, tailSize int, sinks ...Sink) *Aggregator {
	a := &Aggregator{
		log:    log,
		sinks:  sinks,
		tail:   NewTail(tailSize),
		equity: startingEquity,
		peak:   startingEquity,
	}
	a.stats.Equity = startingEquity
	a.stats.Peak = startingEquity
	a.stats.BySymbol = make(map[string]GroupStats)
	a.stats.ByPair = make(map[string]GroupStats)
	a.stats.ByReason = make(map[string]GroupStats)
	metrics.Equity.Set(startingEquity)
	return a
}

// Record settles a close: PnL% is the decay of net edge between entry and
// exit, applied to the notional. It returns the appended record.
func (a *Aggregator) Record(c Close) TradeRecord {
	pnlPct := c.OpenNet - c.CloseNet
	pnlUsd := c.Notional * pnlPct / 100

	a.mu.Lock()
	a.equity += pnlUsd
	if a.equity > a.peak {
		a.peak = a.equity
	}
	dd := 0.0
	if a.peak > 0 {
		dd = (a.equity - a.peak) / a.peak * 100
	}
	if dd < a.maxDD {
		a.maxDD = dd
	}

	rec := TradeRecord{
		ID:          c.ID,
		TsOpen:      c.TsOpen,
		TsClose:     c.TsClose,
		DurationMs:  c.TsClose - c.TsOpen,
		Symbol:      c.Symbol,
		Buy:         c.Buy,
		Sell:        c.Sell,
		OpenNet:     c.OpenNet,
		CloseNet:    c.CloseNet,
		PnlPct:      pnlPct,
		Notional:    c.Notional,
		PnlUsd:      pnlUsd,
		Reason:      c.Reason,
		EquityAfter: a.equity,
	}
	point := EquityPoint{T: c.TsClose, Equity: a.equity, DrawdownPct: dd}

	a.stats.Trades++
	a.stats.PnlSum += pnlUsd
	if pnlUsd >= 0 {
		a.stats.Wins++
		a.stats.WinSum += pnlUsd
	} else {
		a.stats.Losses++
		a.stats.LossSum += pnlUsd
	}
	if a.stats.LossSum < 0 {
		a.stats.ProfitFactor = a.stats.WinSum / -a.stats.LossSum
	} else {
		a.stats.ProfitFactor = 0
	}
	a.durSum += rec.DurationMs
	a.stats.AvgDurationMs = float64(a.durSum) / float64(a.stats.Trades)
	a.stats.Equity = a.equity
	a.stats.Peak = a.peak
	a.stats.MaxDrawdownPct = a.maxDD
	bump(a.stats.BySymbol, c.Symbol, pnlUsd)
	bump(a.stats.ByPair, c.Buy+">"+c.Sell, pnlUsd)
	bump(a.stats.ByReason, c.Reason, pnlUsd)
	a.mu.Unlock()

	metrics.Equity.Set(rec.EquityAfter)
	a.tail.Append(rec, point)
	for _, sink := range a.sinks {
		if err := sink.RecordTrade(rec); err != nil {
			a.log.Warn().Err(err).Str("id", rec.ID).Msg("trade sink write failed")
		}
		if err := sink.RecordEquity(point); err != nil {
			a.log.Warn().Err(err).Str("id", rec.ID).Msg("equity sink write failed")
		}
	}
	return rec
}

func bump(m map[string]GroupStats, key string, pnl float64) {
	g := m[key]
	g.Trades++
	g.PnlSum += pnl
	if pnl >= 0 {
		g.Wins++
	}
	m[key] = g
}

// Equity returns the current simulated balance, used for fraction sizing.
func (a *Aggregator) Equity() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.equity
}

// Snapshot copies the aggregate plus the recent-trade and equity tails.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	stats := a.stats
	stats.BySymbol = copyGroups(a.stats.BySymbol)
	stats.ByPair = copyGroups(a.stats.ByPair)
	stats.ByReason = copyGroups(a.stats.ByReason)
	a.mu.Unlock()

	trades, points := a.tail.Snapshot()
	return Snapshot{Stats: stats, Equity: points, Recent: trades}
}

func copyGroups(in map[string]GroupStats) map[string]GroupStats {
	out := make(map[string]GroupStats, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
