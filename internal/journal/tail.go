package journal

import "sync"

// Tail keeps the most recent trades and equity points in memory for the
// stats query surface.
type Tail struct {
	mu     sync.Mutex
	limit  int
	trades []TradeRecord
	points []EquityPoint
}

// NewTail creates a bounded tail; limit <= 0 falls back to 100.
func NewTail(limit int) *Tail {
	if limit <= 0 {
		limit = 100
	}
	return &Tail{limit: limit}
}

// Append stores one trade and its equity point, evicting the oldest entries.
func (t *Tail) Append(rec TradeRecord, point EquityPoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trades = append(t.trades, rec)
	if len(t.trades) > t.limit {
		t.trades = t.trades[len(t.trades)-t.limit:]
	}
	t.points = append(t.points, point)
	if len(t.points) > t.limit {
		t.points = t.points[len(t.points)-t.limit:]
	}
}

// Snapshot returns copies of both tails.
func (t *Tail) Snapshot() ([]TradeRecord, []EquityPoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	trades := make([]TradeRecord, len(t.trades))
	copy(trades, t.trades)
	points := make([]EquityPoint, len(t.points))
	copy(points, t.points)
	return trades, points
}
