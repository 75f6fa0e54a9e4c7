// Package venue hosts the generic exchange connector and the per-venue adapters.
package venue

import (
	"time"

	"arbwatch-go/internal/quote"
)

// Update is one normalized quote parsed out of a venue message.
type Update struct {
	Symbol string
	Quote  quote.Quote
}

// Profile carries the per-venue connection tuning.
type Profile struct {
	// PingInterval is how often a client keepalive is sent; zero means the
	// venue pings us and no client ping is needed.
	PingInterval time.Duration
	// HeartbeatEvery is the cadence of the silent-socket watchdog.
	HeartbeatEvery time.Duration
	// SilenceTimeout force-closes the connection when no message arrived
	// within it, even if the socket never errored.
	SilenceTimeout time.Duration
	// ReconnectBase is the first reconnect delay after a failure.
	ReconnectBase time.Duration
}

// Adapter captures everything venue-specific: endpoint, subscription wire
// format, message parsing, and keepalive payloads. Adapters are driven by a
// single feed goroutine and may keep unguarded per-connection state.
type Adapter interface {
	Name() string
	URL() string
	// SubscribeMessages renders the wire messages subscribing one batch of
	// symbols (already chunked by the feed).
	SubscribeMessages(symbols []string) [][]byte
	// ParseMessage extracts zero or more quotes from a raw frame. Anything
	// unparseable (acks, pongs, malformed payloads) yields an empty slice.
	ParseMessage(raw []byte) []Update
	// PingMessage renders one keepalive frame; nil when PingInterval is zero.
	PingMessage() []byte
	Profile() Profile
}

// InstrumentSource is implemented by adapters that can list their venue's
// tradable instruments over HTTP, normalized back to canonical symbols.
type InstrumentSource interface {
	Name() string
	InstrumentsURL() string
	ParseInstruments(body []byte) ([]string, error)
}

// chunk splits the symbol list into subscription batches.
func chunk(symbols []string, size int) [][]string {
	if size <= 0 {
		size = 25
	}
	var out [][]string
	for i := 0; i < len(symbols); i += size {
		end := i + size
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[i:end])
	}
	return out
}
