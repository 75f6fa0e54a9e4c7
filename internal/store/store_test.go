package store

import (
	"math"
	"testing"

	"arbwatch-go/internal/quote"
)

func TestUpdateRejectsInvalidQuotes(t *testing.T) {
	s := New()
	bad := []quote.Quote{
		{Bid: 101, Ask: 100},           // crossed
		{Bid: -1, Ask: 100},            // non-positive
		{Bid: math.NaN(), Ask: 100},    // non-finite
		{Bid: 100, Ask: math.Inf(1)},   // non-finite
	}
	for i, q := range bad {
		if s.Update("binance", "BTCUSDT", q, 1000) {
			t.Fatalf("case %d: invalid quote accepted", i)
		}
	}
	if len(s.Snapshot("BTCUSDT")) != 0 {
		t.Fatalf("rejected quote observable in store")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	s := New()
	if !s.Update("binance", "BTCUSDT", quote.Quote{Bid: 100, Ask: 100.1, TsMs: 1}, 1000) {
		t.Fatalf("valid quote rejected")
	}
	if !s.Update("bybit", "BTCUSDT", quote.Quote{Bid: 100.2, Ask: 100.3, TsMs: 2}, 1100) {
		t.Fatalf("valid quote rejected")
	}
	snap := s.Snapshot("BTCUSDT")
	if len(snap) != 2 {
		t.Fatalf("expected 2 venues, got %d", len(snap))
	}

	// last received wins
	s.Update("binance", "BTCUSDT", quote.Quote{Bid: 99, Ask: 99.1, TsMs: 3}, 1200)
	for _, vq := range s.Snapshot("BTCUSDT") {
		if vq.Venue == "binance" && vq.Quote.Bid != 99 {
			t.Fatalf("expected latest quote to supersede, got bid %v", vq.Quote.Bid)
		}
	}
}

func TestStatusThresholds(t *testing.T) {
	s := New()
	s.Update("okx", "BTCUSDT", quote.Quote{Bid: 100, Ask: 100.1}, 10_000)

	if st, _ := s.Status("BTCUSDT", "okx", 11_000); st != quote.StatusOK {
		t.Fatalf("expected OK at 1s age, got %s", st)
	}
	if st, _ := s.Status("BTCUSDT", "okx", 15_000); st != quote.StatusStale {
		t.Fatalf("expected STALE at 5s age, got %s", st)
	}
	if st, _ := s.Status("BTCUSDT", "okx", 21_000); st != quote.StatusOff {
		t.Fatalf("expected OFF at 11s age, got %s", st)
	}
	if st, _ := s.Status("BTCUSDT", "gate", 11_000); st != quote.StatusOff {
		t.Fatalf("expected OFF for venue never seen, got %s", st)
	}
}

func TestAgeEMATracksSilence(t *testing.T) {
	s := New()
	s.Update("gate", "BTCUSDT", quote.Quote{Bid: 100, Ask: 100.1}, 1000)
	s.Update("gate", "BTCUSDT", quote.Quote{Bid: 100, Ask: 100.1}, 1500)

	h := s.Health("gate", 1500)
	if h.EmaMs != 500 {
		t.Fatalf("expected first gap to seed EMA at 500, got %v", h.EmaMs)
	}

	// silence: sweeps keep pushing the EMA up without fresh quotes
	s.TickEMA(3500) // age 2000 → ema = 0.2*2000 + 0.8*500 = 800
	h = s.Health("gate", 3500)
	if math.Abs(h.EmaMs-800) > 1e-9 {
		t.Fatalf("expected EMA 800 after sweep, got %v", h.EmaMs)
	}
	if h.Status != quote.StatusOK {
		t.Fatalf("expected OK at 2000ms age, got %s", h.Status)
	}

	s.TickEMA(13_500)
	h = s.Health("gate", 13_500)
	if h.Status != quote.StatusOff {
		t.Fatalf("expected OFF after long silence, got %s", h.Status)
	}
	if h.EmaMs <= 800 {
		t.Fatalf("expected EMA to keep rising during silence, got %v", h.EmaMs)
	}
}
