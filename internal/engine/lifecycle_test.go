package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"arbwatch-go/internal/journal"
	"arbwatch-go/internal/notify"
	"arbwatch-go/internal/quote"
	"arbwatch-go/internal/risk"
	"arbwatch-go/internal/store"
)

type captureBroadcaster struct {
	mu     sync.Mutex
	alerts []notify.AlertMsg
	quotes []notify.QuoteMsg
}

func (c *captureBroadcaster) Quote(msg notify.QuoteMsg) {
	c.mu.Lock()
	c.quotes = append(c.quotes, msg)
	c.mu.Unlock()
}

func (c *captureBroadcaster) Alert(msg notify.AlertMsg) {
	c.mu.Lock()
	c.alerts = append(c.alerts, msg)
	c.mu.Unlock()
}

func (c *captureBroadcaster) alertLevels() []notify.Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]notify.Level, len(c.alerts))
	for i, a := range c.alerts {
		out[i] = a.Level
	}
	return out
}

func testParams() Params {
	return Params{
		EntryNetPct:       0.06,
		ExitNetPct:        0.02,
		SlippageBufferPct: 0.04,
		MinCandidate:      500 * time.Millisecond,
		MaxHold:           3 * time.Second,
		Cooldown:          2 * time.Second,
		Fees:              map[string]float64{"alpha": 0.0005, "beta": 0.00055, "gamma": 0.0005},
		Limits:            risk.Limits{MaxConcurrentOpen: 3, MaxNotional: 5000},
		Sizing:            SizingParams{Mode: "fixed", FixedNotional: 1000},
		Display: DisplayParams{
			HotPct: 0.06, StrongPct: 0.12, ClosePct: 0.02,
			Debounce: 300 * time.Millisecond, Blink: 1500 * time.Millisecond,
		},
	}
}

func newTestEngine(p Params) (*Engine, *journal.Aggregator, *captureBroadcaster) {
	agg := journal.NewAggregator(zerolog.Nop(), 1000, 50)
	cb := &captureBroadcaster{}
	alerter := notify.NewAlerter(cb, time.Millisecond)
	eng := New(zerolog.Nop(), store.New(), agg, cb, alerter, p)
	return eng, agg, cb
}

var (
	wideAsk   = quote.Quote{Bid: 99.98, Ask: 100.00, TsMs: 1}   // buy leg
	wideBid   = quote.Quote{Bid: 100.20, Ask: 100.22, TsMs: 1}  // sell leg, net ≈ 0.0898
	narrowBid = quote.Quote{Bid: 100.02, Ask: 100.04, TsMs: 1}  // collapses the edge
	betterBid = quote.Quote{Bid: 100.45, Ask: 100.47, TsMs: 1}  // steals the sell side
)

func feedPair(e *Engine, symbol string, at time.Time) {
	e.applyQuote("alpha", symbol, wideAsk, at)
	e.applyQuote("beta", symbol, wideBid, at)
}

func TestCandidateDebounce(t *testing.T) {
	eng, _, _ := newTestEngine(testParams())
	t0 := time.UnixMilli(1_700_000_000_000)

	feedPair(eng, "BTCUSDT", t0)
	v := eng.Snapshot("BTCUSDT", t0)
	if v.Candidate == nil || v.Open != nil {
		t.Fatalf("expected candidate only after first sighting, got %+v", v)
	}
	if v.Candidate.BuyVenue != "alpha" || v.Candidate.SellVenue != "beta" {
		t.Fatalf("unexpected pair %s/%s", v.Candidate.BuyVenue, v.Candidate.SellVenue)
	}

	// 300ms of lifetime must not open
	feedPair(eng, "BTCUSDT", t0.Add(300*time.Millisecond))
	if v := eng.Snapshot("BTCUSDT", t0); v.Open != nil {
		t.Fatalf("candidate opened before minimum lifetime")
	}

	// 600ms must open
	feedPair(eng, "BTCUSDT", t0.Add(600*time.Millisecond))
	v = eng.Snapshot("BTCUSDT", t0)
	if v.Open == nil {
		t.Fatalf("candidate did not open after minimum lifetime")
	}
	if v.Open.ID == "" || v.Open.Notional != 1000 {
		t.Fatalf("open trade not populated: %+v", v.Open)
	}
	if eng.OpenCount() != 1 {
		t.Fatalf("open count %d, want 1", eng.OpenCount())
	}
}

func TestCandidatePairChangeResetsLifetime(t *testing.T) {
	eng, _, _ := newTestEngine(testParams())
	t0 := time.UnixMilli(1_700_000_000_000)

	feedPair(eng, "BTCUSDT", t0)

	// at +400ms a third venue takes over the sell side: lifetime restarts
	eng.applyQuote("gamma", "BTCUSDT", betterBid, t0.Add(400*time.Millisecond))
	v := eng.Snapshot("BTCUSDT", t0)
	if v.Candidate == nil || v.Candidate.SellVenue != "gamma" {
		t.Fatalf("candidate did not follow the new pair: %+v", v.Candidate)
	}
	if !v.Candidate.StartedAt.Equal(t0.Add(400 * time.Millisecond)) {
		t.Fatalf("candidate lifetime must restart on pair change")
	}

	// +700ms is only 300ms into the new pair: no open
	eng.applyQuote("gamma", "BTCUSDT", betterBid, t0.Add(700*time.Millisecond))
	if v := eng.Snapshot("BTCUSDT", t0); v.Open != nil {
		t.Fatalf("opened with lifetime accrued across a pair change")
	}

	// +950ms clears the debounce for the new pair
	eng.applyQuote("gamma", "BTCUSDT", betterBid, t0.Add(950*time.Millisecond))
	v = eng.Snapshot("BTCUSDT", t0)
	if v.Open == nil || v.Open.SellVenue != "gamma" {
		t.Fatalf("expected open against gamma, got %+v", v.Open)
	}
}

func openTrade(t *testing.T, eng *Engine, symbol string, t0 time.Time) {
	t.Helper()
	feedPair(eng, symbol, t0)
	feedPair(eng, symbol, t0.Add(600*time.Millisecond))
	if eng.Snapshot(symbol, t0).Open == nil {
		t.Fatalf("setup: trade did not open")
	}
}

func TestCloseEdgeCollapse(t *testing.T) {
	eng, agg, cb := newTestEngine(testParams())
	t0 := time.UnixMilli(1_700_000_000_000)
	openTrade(t, eng, "BTCUSDT", t0)

	eng.applyQuote("beta", "BTCUSDT", narrowBid, t0.Add(time.Second))
	v := eng.Snapshot("BTCUSDT", t0)
	if v.Open != nil {
		t.Fatalf("trade did not close on edge collapse")
	}
	snap := agg.Snapshot()
	if snap.Stats.Trades != 1 {
		t.Fatalf("expected 1 journal record, got %d", snap.Stats.Trades)
	}
	if g := snap.Stats.ByReason["EDGE_COLLAPSE"]; g.Trades != 1 {
		t.Fatalf("close reason not EDGE_COLLAPSE: %+v", snap.Stats.ByReason)
	}
	if eng.OpenCount() != 0 {
		t.Fatalf("open count should return to 0")
	}
	levels := cb.alertLevels()
	if len(levels) != 2 || levels[0] != notify.LevelHot || levels[1] != notify.LevelClose {
		t.Fatalf("expected HOT then CLOSE alerts, got %v", levels)
	}

	// further updates must not close again
	eng.applyQuote("beta", "BTCUSDT", narrowBid, t0.Add(1100*time.Millisecond))
	if agg.Snapshot().Stats.Trades != 1 {
		t.Fatalf("trade closed more than once")
	}
}

func TestCloseDirectionChange(t *testing.T) {
	eng, agg, _ := newTestEngine(testParams())
	t0 := time.UnixMilli(1_700_000_000_000)
	openTrade(t, eng, "BTCUSDT", t0)

	// gamma overtakes the sell side while the edge stays healthy
	eng.applyQuote("gamma", "BTCUSDT", betterBid, t0.Add(time.Second))
	if eng.Snapshot("BTCUSDT", t0).Open != nil {
		t.Fatalf("trade survived a direction change")
	}
	if g := agg.Snapshot().Stats.ByReason["DIRECTION_CHANGE"]; g.Trades != 1 {
		t.Fatalf("expected DIRECTION_CHANGE close, got %+v", agg.Snapshot().Stats.ByReason)
	}
}

func TestCloseStaleLeg(t *testing.T) {
	eng, agg, _ := newTestEngine(testParams())
	t0 := time.UnixMilli(1_700_000_000_000)
	openTrade(t, eng, "BTCUSDT", t0)

	// beta has been silent for 3s when alpha refreshes
	eng.applyQuote("alpha", "BTCUSDT", wideAsk, t0.Add(600*time.Millisecond).Add(3*time.Second))
	if eng.Snapshot("BTCUSDT", t0).Open != nil {
		t.Fatalf("trade survived a stale leg")
	}
	if g := agg.Snapshot().Stats.ByReason["STALE"]; g.Trades != 1 {
		t.Fatalf("expected STALE close, got %+v", agg.Snapshot().Stats.ByReason)
	}
}

func TestCloseTimeoutViaSweep(t *testing.T) {
	eng, agg, _ := newTestEngine(testParams())
	t0 := time.UnixMilli(1_700_000_000_000)
	openTrade(t, eng, "BTCUSDT", t0) // opens at +600ms, max hold 3s

	// keep both legs fresh, then let the sweep catch the hold timeout
	feedPair(eng, "BTCUSDT", t0.Add(2600*time.Millisecond))
	if eng.Snapshot("BTCUSDT", t0).Open == nil {
		t.Fatalf("trade closed early")
	}
	feedPair(eng, "BTCUSDT", t0.Add(3500*time.Millisecond))
	eng.Sweep(t0.Add(3700 * time.Millisecond))
	if eng.Snapshot("BTCUSDT", t0).Open != nil {
		t.Fatalf("trade survived past max hold")
	}
	if g := agg.Snapshot().Stats.ByReason["TIMEOUT"]; g.Trades != 1 {
		t.Fatalf("expected TIMEOUT close, got %+v", agg.Snapshot().Stats.ByReason)
	}
}

func TestCooldownBlocksReentry(t *testing.T) {
	eng, _, _ := newTestEngine(testParams())
	t0 := time.UnixMilli(1_700_000_000_000)
	openTrade(t, eng, "BTCUSDT", t0)

	closeAt := t0.Add(time.Second)
	eng.applyQuote("beta", "BTCUSDT", narrowBid, closeAt)

	// spread is wide again right away, but the cooldown gates a new candidate
	feedPair(eng, "BTCUSDT", closeAt.Add(100*time.Millisecond))
	if v := eng.Snapshot("BTCUSDT", t0); v.Candidate != nil {
		t.Fatalf("candidate formed inside cooldown")
	}

	feedPair(eng, "BTCUSDT", closeAt.Add(2100*time.Millisecond))
	if v := eng.Snapshot("BTCUSDT", t0); v.Candidate == nil {
		t.Fatalf("candidate should form after cooldown")
	}
}

func TestConcurrencyCap(t *testing.T) {
	p := testParams()
	p.Limits.MaxConcurrentOpen = 1
	eng, _, _ := newTestEngine(p)
	t0 := time.UnixMilli(1_700_000_000_000)

	feedPair(eng, "BTCUSDT", t0)
	feedPair(eng, "ETHUSDT", t0)
	feedPair(eng, "BTCUSDT", t0.Add(600*time.Millisecond))
	feedPair(eng, "ETHUSDT", t0.Add(600*time.Millisecond))

	if eng.OpenCount() != 1 {
		t.Fatalf("cap violated: %d open", eng.OpenCount())
	}
	blocked := "ETHUSDT"
	if eng.Snapshot("BTCUSDT", t0).Open == nil {
		blocked = "BTCUSDT"
	}
	if eng.Snapshot(blocked, t0).Candidate == nil {
		t.Fatalf("blocked symbol should keep its candidate queued")
	}

	// close the winner, the queued candidate may now open
	open := "BTCUSDT"
	if blocked == "BTCUSDT" {
		open = "ETHUSDT"
	}
	eng.applyQuote("beta", open, narrowBid, t0.Add(time.Second))
	if eng.OpenCount() != 0 {
		t.Fatalf("expected all closed, got %d", eng.OpenCount())
	}
	feedPair(eng, blocked, t0.Add(1100*time.Millisecond))
	if eng.Snapshot(blocked, t0).Open == nil {
		t.Fatalf("queued candidate did not open once a slot freed")
	}
	if eng.OpenCount() != 1 {
		t.Fatalf("open count %d, want 1", eng.OpenCount())
	}
}

func TestEquityFractionSizing(t *testing.T) {
	p := testParams()
	p.Sizing = SizingParams{Mode: "equity_fraction", EquityFraction: 0.5, FixedNotional: 100}
	p.Limits.MaxNotional = 400
	eng, _, _ := newTestEngine(p)
	t0 := time.UnixMilli(1_700_000_000_000)
	openTrade(t, eng, "BTCUSDT", t0)

	v := eng.Snapshot("BTCUSDT", t0)
	// equity 1000 × 0.5 = 500, clamped to the 400 cap
	if v.Open.Notional != 400 {
		t.Fatalf("notional %v, want clamp to 400", v.Open.Notional)
	}
}

func TestRejectedQuoteDoesNotTouchState(t *testing.T) {
	eng, _, cb := newTestEngine(testParams())
	t0 := time.UnixMilli(1_700_000_000_000)

	eng.applyQuote("alpha", "BTCUSDT", quote.Quote{Bid: 101, Ask: 100}, t0)
	if len(cb.quotes) != 0 {
		t.Fatalf("rejected quote was broadcast")
	}
	if v := eng.Snapshot("BTCUSDT", t0); v.Spread.Valid {
		t.Fatalf("rejected quote produced spread state")
	}
}
