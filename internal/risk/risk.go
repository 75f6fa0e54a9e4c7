// Package risk encodes guard-rails on simulated position taking.
package risk

// Limits caps the size of a single position and the number of concurrently
// open positions across all symbols.
type Limits struct {
	MaxNotional       float64
	MaxConcurrentOpen int
}

// AllowNotional reports whether a position of the given size may be taken.
func (l Limits) AllowNotional(notional float64) bool {
	if l.MaxNotional <= 0 {
		return true
	}
	return notional <= l.MaxNotional
}

// AllowOpen reports whether another position may be opened given the current
// open count.
func (l Limits) AllowOpen(current int) bool {
	if l.MaxConcurrentOpen <= 0 {
		return true
	}
	return current < l.MaxConcurrentOpen
}

// ClampNotional trims a requested notional down to the configured cap.
func (l Limits) ClampNotional(notional float64) float64 {
	if l.MaxNotional > 0 && notional > l.MaxNotional {
		return l.MaxNotional
	}
	return notional
}
