// Package spread computes the best cross-venue pair and its fee-adjusted edge.
package spread

import "arbwatch-go/internal/store"

// Result is the outcome of one cross-venue scan for a symbol.
// Valid is false when fewer than two distinct venues have a resident quote.
type Result struct {
	Valid     bool
	BuyVenue  string // venue with the best (lowest) ask
	SellVenue string // venue with the best (highest) bid
	BestAsk   float64
	BestBid   float64
	GrossPct  float64
	FeePct    float64 // round-trip taker fees, in percent
	BufferPct float64
	NetPct    float64
	NetQuote  float64 // net edge expressed in quote currency per unit
}

// SamePair reports whether the result's venue pair matches the given legs.
func (r Result) SamePair(buy, sell string) bool {
	return r.Valid && r.BuyVenue == buy && r.SellVenue == sell
}

// Compute scans every venue holding a quote for the symbol and picks the
// buy/sell pair with the widest bid-over-ask gap across distinct venues.
// Fees are fractional taker rates keyed by venue name.
func Compute(books []store.VenueQuote, fees map[string]float64, bufferPct float64) Result {
	if len(books) < 2 {
		return Result{}
	}

	best := Result{BestBid: 0, BestAsk: 0}
	found := false
	for _, buy := range books {
		for _, sell := range books {
			if buy.Venue == sell.Venue {
				continue
			}
			edge := sell.Quote.Bid - buy.Quote.Ask
			if !found || edge > best.BestBid-best.BestAsk {
				best.BuyVenue = buy.Venue
				best.SellVenue = sell.Venue
				best.BestAsk = buy.Quote.Ask
				best.BestBid = sell.Quote.Bid
				found = true
			}
		}
	}
	if !found {
		return Result{}
	}

	best.Valid = true
	best.GrossPct = (best.BestBid - best.BestAsk) / best.BestAsk * 100
	best.FeePct = (fees[best.BuyVenue] + fees[best.SellVenue]) * 100
	best.BufferPct = bufferPct
	best.NetPct = best.GrossPct - best.FeePct - best.BufferPct
	best.NetQuote = best.BestAsk * best.NetPct / 100
	return best
}
