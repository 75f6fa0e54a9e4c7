// Package quote standardizes payloads shared between venue feeds and the engine layers.
package quote

import "math"

// Level is one price level of the book.
type Level struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// Quote is the normalized top-of-book view of one symbol on one venue.
// Bids and Asks carry up to five depth levels when the venue provides them.
type Quote struct {
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
	TsMs int64   `json:"tsMs"`
	Bids []Level `json:"bids,omitempty"`
	Asks []Level `json:"asks,omitempty"`
}

// Valid reports whether the quote may enter the store: finite positive prices
// and an uncrossed book.
func (q Quote) Valid() bool {
	if !finite(q.Bid) || !finite(q.Ask) {
		return false
	}
	if q.Bid <= 0 || q.Ask <= 0 {
		return false
	}
	return q.Ask >= q.Bid
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Status classifies how fresh a venue's latest quote is.
type Status string

const (
	StatusOK    Status = "OK"
	StatusStale Status = "STALE"
	StatusOff   Status = "OFF"
)

const (
	// OKMaxAgeMs is the newest-quote age up to which a venue counts as live.
	OKMaxAgeMs = 2_000
	// StaleMaxAgeMs is the age beyond which a venue counts as offline.
	StaleMaxAgeMs = 10_000
	// AgeEMAAlpha smooths the per-venue staleness metric.
	AgeEMAAlpha = 0.2
)

// StatusForAge maps a quote age in milliseconds onto OK/STALE/OFF.
func StatusForAge(ageMs int64) Status {
	switch {
	case ageMs <= OKMaxAgeMs:
		return StatusOK
	case ageMs <= StaleMaxAgeMs:
		return StatusStale
	default:
		return StatusOff
	}
}
