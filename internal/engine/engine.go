// Package engine advances per-symbol simulated positions off quote updates.
package engine

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"arbwatch-go/internal/journal"
	"arbwatch-go/internal/metrics"
	"arbwatch-go/internal/notify"
	"arbwatch-go/internal/quote"
	"arbwatch-go/internal/risk"
	"arbwatch-go/internal/spread"
	"arbwatch-go/internal/store"
)

// CloseReason tags why a position was closed.
type CloseReason string

const (
	CloseStale           CloseReason = "STALE"
	CloseDirectionChange CloseReason = "DIRECTION_CHANGE"
	CloseEdgeCollapse    CloseReason = "EDGE_COLLAPSE"
	CloseTimeout         CloseReason = "TIMEOUT"
)

// Candidate is a provisional opportunity being debounced before opening.
type Candidate struct {
	StartedAt  time.Time
	LastSeenAt time.Time
	BuyVenue   string
	SellVenue  string
	NetEdgePct float64
}

// OpenTrade is the single simulated position a symbol may hold.
type OpenTrade struct {
	ID             string
	OpenedAt       time.Time
	BuyVenue       string
	SellVenue      string
	OpenNetEdgePct float64
	OpenGrossPct   float64
	OpenFeesPct    float64
	OpenBufferPct  float64
	Notional       float64
}

// SizingParams selects the notional model for new positions.
type SizingParams struct {
	Mode           string // "fixed" or "equity_fraction"
	FixedNotional  float64
	EquityFraction float64
}

// Params bundles every tunable the engine consumes.
type Params struct {
	EntryNetPct       float64
	ExitNetPct        float64
	SlippageBufferPct float64
	MinCandidate      time.Duration
	MaxHold           time.Duration
	Cooldown          time.Duration
	Fees              map[string]float64
	Limits            risk.Limits
	Sizing            SizingParams
	Display           DisplayParams
}

// symbolState is the per-symbol aggregate; its mutex serializes every
// quote-driven update for the symbol.
type symbolState struct {
	mu        sync.Mutex
	last      spread.Result
	candidate *Candidate
	open      *OpenTrade
	lastClose time.Time
	display   displayState
}

// Engine owns all mutable trading state: the per-symbol table and the
// global open-position counter. It is constructed once and shared by every
// feed callback; there are no package-level singletons.
type Engine struct {
	params      Params
	log         zerolog.Logger
	store       *store.Store
	journal     *journal.Aggregator
	broadcaster notify.Broadcaster
	alerter     *notify.Alerter

	mu      sync.Mutex
	symbols map[string]*symbolState

	openMu    sync.Mutex
	openCount int
}

// New wires an engine onto its collaborators.
func New(log zerolog.Logger, st *store.Store, agg *journal.Aggregator, b notify.Broadcaster, a *notify.Alerter, params Params) *Engine {
	return &Engine{
		params:      params,
		log:         log,
		store:       st,
		journal:     agg,
		broadcaster: b,
		alerter:     a,
		symbols:     make(map[string]*symbolState),
	}
}

// OnQuote is the feed callback: it admits the quote into the store, then
// recomputes spread and advances the symbol's lifecycle atomically.
func (e *Engine) OnQuote(venue, symbol string, q quote.Quote) {
	e.applyQuote(venue, symbol, q, time.Now())
}

func (e *Engine) applyQuote(venue, symbol string, q quote.Quote, now time.Time) {
	nowMs := now.UnixMilli()
	if !e.store.Update(venue, symbol, q, nowMs) {
		return
	}

	st := e.state(symbol)
	st.mu.Lock()
	e.evaluate(symbol, st, now)
	st.mu.Unlock()

	status, age := e.store.Status(symbol, venue, nowMs)
	health := e.store.Health(venue, nowMs)
	e.broadcaster.Quote(notify.QuoteMsg{
		Type:   "quote",
		Venue:  venue,
		Symbol: symbol,
		Bid:    q.Bid,
		Ask:    q.Ask,
		TsMs:   q.TsMs,
		Status: string(status),
		AgeMs:  age,
		EmaMs:  health.EmaMs,
	})
}

// Sweep re-evaluates every symbol against the wall clock so hold timeouts
// and staleness fire even while no quotes arrive, and keeps the age EMAs
// moving during silence.
func (e *Engine) Sweep(now time.Time) {
	e.store.TickEMA(now.UnixMilli())

	e.mu.Lock()
	states := make(map[string]*symbolState, len(e.symbols))
	for sym, st := range e.symbols {
		states[sym] = st
	}
	e.mu.Unlock()

	for sym, st := range states {
		st.mu.Lock()
		e.evaluate(sym, st, now)
		st.mu.Unlock()
	}
}

func (e *Engine) state(symbol string) *symbolState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.symbols[symbol]
	if !ok {
		st = &symbolState{}
		e.symbols[symbol] = st
	}
	return st
}

// evaluate runs with the symbol's mutex held.
func (e *Engine) evaluate(symbol string, st *symbolState, now time.Time) {
	res := spread.Compute(e.store.Snapshot(symbol), e.params.Fees, e.params.SlippageBufferPct)
	st.last = res

	if st.open != nil {
		if reason, ok := e.closeDue(symbol, st.open, res, now); ok {
			e.closeTrade(symbol, st, res, reason, now)
		}
	}
	if st.open == nil {
		e.advanceCandidate(symbol, st, res, now)
	}
	e.updateDisplay(st, res, now)
}

func (e *Engine) closeDue(symbol string, open *OpenTrade, res spread.Result, now time.Time) (CloseReason, bool) {
	nowMs := now.UnixMilli()
	if !res.Valid {
		return CloseStale, true
	}
	buyStatus, _ := e.store.Status(symbol, open.BuyVenue, nowMs)
	sellStatus, _ := e.store.Status(symbol, open.SellVenue, nowMs)
	if buyStatus != quote.StatusOK || sellStatus != quote.StatusOK {
		return CloseStale, true
	}
	if !res.SamePair(open.BuyVenue, open.SellVenue) {
		return CloseDirectionChange, true
	}
	if res.NetPct <= e.params.ExitNetPct {
		return CloseEdgeCollapse, true
	}
	if e.params.MaxHold > 0 && now.Sub(open.OpenedAt) >= e.params.MaxHold {
		return CloseTimeout, true
	}
	return "", false
}

func (e *Engine) closeTrade(symbol string, st *symbolState, res spread.Result, reason CloseReason, now time.Time) {
	open := st.open
	closeNet := open.OpenNetEdgePct // flat when the closing edge is unobservable
	if res.Valid {
		closeNet = res.NetPct
	}

	rec := e.journal.Record(journal.Close{
		ID:       open.ID,
		Symbol:   symbol,
		Buy:      open.BuyVenue,
		Sell:     open.SellVenue,
		OpenNet:  open.OpenNetEdgePct,
		CloseNet: closeNet,
		Notional: open.Notional,
		Reason:   string(reason),
		TsOpen:   open.OpenedAt.UnixMilli(),
		TsClose:  now.UnixMilli(),
	})

	st.open = nil
	st.candidate = nil
	st.lastClose = now

	e.openMu.Lock()
	e.openCount--
	e.openMu.Unlock()
	metrics.OpenTrades.Dec()
	metrics.TradesClosed.WithLabelValues(symbol, string(reason)).Inc()

	e.log.Info().Str("sym", symbol).Str("reason", string(reason)).
		Float64("pnlUsd", rec.PnlUsd).Float64("equity", rec.EquityAfter).
		Msg("closed simulated trade")

	e.alerter.Send(notify.AlertMsg{
		Type:        "alert",
		Level:       notify.LevelClose,
		Symbol:      symbol,
		From:        open.BuyVenue,
		To:          open.SellVenue,
		SpreadOpen:  open.OpenNetEdgePct,
		SpreadClose: closeNet,
		DurationMs:  rec.DurationMs,
		VirtualPnl:  rec.PnlUsd,
	})
}

func (e *Engine) advanceCandidate(symbol string, st *symbolState, res spread.Result, now time.Time) {
	if !res.Valid {
		st.candidate = nil
		return
	}
	nowMs := now.UnixMilli()
	buyStatus, _ := e.store.Status(symbol, res.BuyVenue, nowMs)
	sellStatus, _ := e.store.Status(symbol, res.SellVenue, nowMs)

	entryOK := res.NetPct >= e.params.EntryNetPct &&
		buyStatus == quote.StatusOK && sellStatus == quote.StatusOK &&
		(st.lastClose.IsZero() || now.Sub(st.lastClose) >= e.params.Cooldown)
	if !entryOK {
		st.candidate = nil
		return
	}

	cand := st.candidate
	if cand == nil || cand.BuyVenue != res.BuyVenue || cand.SellVenue != res.SellVenue {
		// lifetime accrued with a different pair never carries over
		st.candidate = &Candidate{
			StartedAt: now,
			BuyVenue:  res.BuyVenue,
			SellVenue: res.SellVenue,
		}
		cand = st.candidate
	}
	cand.LastSeenAt = now
	cand.NetEdgePct = res.NetPct

	if now.Sub(cand.StartedAt) >= e.params.MinCandidate {
		e.tryOpen(symbol, st, res, now)
	}
}

func (e *Engine) tryOpen(symbol string, st *symbolState, res spread.Result, now time.Time) {
	e.openMu.Lock()
	if !e.params.Limits.AllowOpen(e.openCount) {
		e.openMu.Unlock()
		// the candidate stays queued and re-tries once a slot frees up
		e.log.Debug().Str("sym", symbol).Msg("open slots exhausted, holding candidate")
		return
	}
	e.openCount++
	e.openMu.Unlock()

	st.open = &OpenTrade{
		ID:             ulid.Make().String(),
		OpenedAt:       now,
		BuyVenue:       res.BuyVenue,
		SellVenue:      res.SellVenue,
		OpenNetEdgePct: res.NetPct,
		OpenGrossPct:   res.GrossPct,
		OpenFeesPct:    res.FeePct,
		OpenBufferPct:  res.BufferPct,
		Notional:       e.sizeNotional(),
	}
	st.candidate = nil

	metrics.OpenTrades.Inc()
	metrics.TradesOpened.WithLabelValues(symbol).Inc()
	e.log.Info().Str("sym", symbol).Str("buy", res.BuyVenue).Str("sell", res.SellVenue).
		Float64("netPct", res.NetPct).Float64("notional", st.open.Notional).
		Msg("opened simulated trade")

	e.alerter.Send(notify.AlertMsg{
		Type:       "alert",
		Level:      notify.LevelHot,
		Symbol:     symbol,
		From:       res.BuyVenue,
		To:         res.SellVenue,
		SpreadOpen: res.NetPct,
	})
}

func (e *Engine) sizeNotional() float64 {
	var notional float64
	switch e.params.Sizing.Mode {
	case "equity_fraction":
		notional = e.journal.Equity() * e.params.Sizing.EquityFraction
		if notional <= 0 {
			notional = e.params.Sizing.FixedNotional
		}
	default:
		notional = e.params.Sizing.FixedNotional
	}
	return e.params.Limits.ClampNotional(notional)
}

// OpenCount reports the number of currently open simulated trades.
func (e *Engine) OpenCount() int {
	e.openMu.Lock()
	defer e.openMu.Unlock()
	return e.openCount
}

// View is a copy of one symbol's current state for inspection.
type View struct {
	Spread    spread.Result
	Candidate *Candidate
	Open      *OpenTrade
	Label     Label
	Blinking  bool
}

// Snapshot returns a copy of the symbol's state at now.
func (e *Engine) Snapshot(symbol string, now time.Time) View {
	st := e.state(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()
	v := View{Spread: st.last, Label: st.display.label, Blinking: now.Before(st.display.blinkUntil)}
	if v.Label == "" {
		v.Label = LabelNeutral
	}
	if st.candidate != nil {
		cand := *st.candidate
		v.Candidate = &cand
	}
	if st.open != nil {
		open := *st.open
		v.Open = &open
	}
	return v
}
