// Package store holds the latest quote per (symbol, venue) and derives venue freshness.
package store

import (
	"sync"

	"arbwatch-go/internal/quote"
)

type entry struct {
	q      quote.Quote
	recvMs int64
}

type venueHealth struct {
	lastRecvMs int64
	emaMs      float64
	seeded     bool
}

// VenueQuote pairs a venue name with its resident quote for spread scans.
type VenueQuote struct {
	Venue  string
	Quote  quote.Quote
	RecvMs int64
}

// Health is the derived freshness view of one venue.
type Health struct {
	Status quote.Status
	AgeMs  int64
	EmaMs  float64
}

// Store is the single authoritative quote map. Writes come only from feed
// callbacks; the age EMA is also advanced by periodic sweeps so monitoring
// reflects ongoing staleness, not just arrival events.
type Store struct {
	mu     sync.RWMutex
	books  map[string]map[string]entry
	venues map[string]*venueHealth
}

// New creates an empty store.
func New() *Store {
	return &Store{
		books:  make(map[string]map[string]entry),
		venues: make(map[string]*venueHealth),
	}
}

// Update records a quote, rejecting anything that fails validation.
// Returns false when the quote was discarded.
func (s *Store) Update(venue, symbol string, q quote.Quote, nowMs int64) bool {
	if venue == "" || symbol == "" || !q.Valid() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[symbol]
	if !ok {
		book = make(map[string]entry)
		s.books[symbol] = book
	}
	book[venue] = entry{q: q, recvMs: nowMs}

	vh := s.venues[venue]
	if vh == nil {
		vh = &venueHealth{}
		s.venues[venue] = vh
	}
	if vh.lastRecvMs > 0 {
		gap := nowMs - vh.lastRecvMs
		if gap < 0 {
			gap = 0
		}
		vh.observe(float64(gap))
	}
	vh.lastRecvMs = nowMs
	return true
}

// Snapshot returns a copy of every resident quote for the symbol.
func (s *Store) Snapshot(symbol string) []VenueQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book := s.books[symbol]
	out := make([]VenueQuote, 0, len(book))
	for venue, e := range book {
		out = append(out, VenueQuote{Venue: venue, Quote: e.q, RecvMs: e.recvMs})
	}
	return out
}

// Status classifies the freshness of one (symbol, venue) pair.
func (s *Store) Status(symbol, venue string, nowMs int64) (quote.Status, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.books[symbol][venue]
	if !ok {
		return quote.StatusOff, 0
	}
	age := nowMs - e.recvMs
	if age < 0 {
		age = 0
	}
	return quote.StatusForAge(age), age
}

// Health reports the venue-level status, age, and smoothed age.
func (s *Store) Health(venue string, nowMs int64) Health {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vh := s.venues[venue]
	if vh == nil || vh.lastRecvMs == 0 {
		return Health{Status: quote.StatusOff}
	}
	age := nowMs - vh.lastRecvMs
	if age < 0 {
		age = 0
	}
	return Health{Status: quote.StatusForAge(age), AgeMs: age, EmaMs: vh.emaMs}
}

// TickEMA advances every venue's age EMA using its current silence, so the
// smoothed metric keeps growing while a venue is quiet.
func (s *Store) TickEMA(nowMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, vh := range s.venues {
		if vh.lastRecvMs == 0 {
			continue
		}
		age := nowMs - vh.lastRecvMs
		if age < 0 {
			age = 0
		}
		vh.observe(float64(age))
	}
}

func (vh *venueHealth) observe(ageMs float64) {
	if !vh.seeded {
		vh.emaMs = ageMs
		vh.seeded = true
		return
	}
	vh.emaMs = quote.AgeEMAAlpha*ageMs + (1-quote.AgeEMAAlpha)*vh.emaMs
}
