package notify

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Alerter forwards alerts through a broadcaster, throttled to at most one
// per (symbol, from, to, level) key per interval.
type Alerter struct {
	b        Broadcaster
	interval time.Duration
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewAlerter builds an alerter; interval <= 0 falls back to one second.
func NewAlerter(b Broadcaster, interval time.Duration) *Alerter {
	if interval <= 0 {
		interval = time.Second
	}
	return &Alerter{
		b:        b,
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Send delivers the alert unless its key is still inside the throttle
// window. Returns whether the alert went out.
func (a *Alerter) Send(msg AlertMsg) bool {
	key := msg.Symbol + "|" + msg.From + "|" + msg.To + "|" + string(msg.Level)

	a.mu.Lock()
	lim, ok := a.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(a.interval), 1)
		a.limiters[key] = lim
	}
	a.mu.Unlock()

	if !lim.Allow() {
		return false
	}
	a.b.Alert(msg)
	return true
}
