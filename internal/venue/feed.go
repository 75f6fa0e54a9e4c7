package venue

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"arbwatch-go/internal/metrics"
	"arbwatch-go/internal/quote"
)

// connection lifecycle states, for logging and tests
const (
	stateDisconnected int32 = iota
	stateConnecting
	stateSubscribed
	stateStreaming
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
	maxReconnect     = 15 * time.Second
	backoffFactor    = 1.8
	jitterFraction   = 0.25
)

// QuoteFunc receives every validated quote from a feed.
type QuoteFunc func(venue, symbol string, q quote.Quote)

// Feed owns one venue connection: it subscribes, keeps the socket alive,
// normalizes messages through its adapter, and reconnects with backoff.
type Feed struct {
	adapter   Adapter
	symbols   []string
	chunkSize int
	log       zerolog.Logger
	onQuote   QuoteFunc

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	state     atomic.Int32
	lastMsgMs atomic.Int64
}

// NewFeed builds a feed for the adapter's venue. onQuote is invoked from a
// single goroutine per feed, never after Close returns.
func NewFeed(adapter Adapter, symbols []string, chunkSize int, log zerolog.Logger, onQuote QuoteFunc) *Feed {
	return &Feed{
		adapter:   adapter,
		symbols:   append([]string(nil), symbols...),
		chunkSize: chunkSize,
		log:       log.With().Str("venue", adapter.Name()).Logger(),
		onQuote:   onQuote,
	}
}

// Connect starts the stream in the background. Calling it twice is a no-op.
func (f *Feed) Connect(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started || f.closed {
		return
	}
	f.started = true
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.run(runCtx)
	}()
}

// Close shuts the feed down: it cancels every pending timer and reconnect,
// tears down the socket, and waits until no further quote can be delivered.
// Safe to call multiple times.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	cancel := f.cancel
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	f.wg.Wait()
	f.state.Store(stateDisconnected)
	return nil
}

func (f *Feed) run(ctx context.Context) {
	profile := f.adapter.Profile()
	backoff := profile.ReconnectBase

	for {
		if ctx.Err() != nil {
			return
		}
		f.state.Store(stateConnecting)
		streamed, err := f.session(ctx)
		f.state.Store(stateDisconnected)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			f.log.Warn().Err(err).Dur("backoff", backoff).Msg("feed disconnected, reconnecting")
		}
		metrics.Reconnects.WithLabelValues(f.adapter.Name()).Inc()
		if streamed {
			backoff = profile.ReconnectBase
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(withJitter(backoff)):
		}
		backoff = nextBackoff(backoff, profile.ReconnectBase)
	}
}

// session runs one connection lifecycle and reports whether any message was
// received (used to reset the backoff).
func (f *Feed) session(ctx context.Context) (bool, error) {
	profile := f.adapter.Profile()

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.adapter.URL(), nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()

	conn.SetReadLimit(1 << 20)

	for _, batch := range chunk(f.symbols, f.chunkSize) {
		for _, msg := range f.adapter.SubscribeMessages(batch) {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return false, err
			}
		}
	}
	f.state.Store(stateSubscribed)
	f.lastMsgMs.Store(time.Now().UnixMilli())
	f.log.Info().Int("symbols", len(f.symbols)).Msg("subscribed")

	messages := make(chan []byte, 256)
	readErrs := make(chan error, 1)
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				select {
				case readErrs <- err:
				case <-connCtx.Done():
				}
				return
			}
			select {
			case messages <- raw:
			case <-connCtx.Done():
				return
			}
		}
	}()

	var pingC <-chan time.Time
	if profile.PingInterval > 0 {
		ping := time.NewTicker(profile.PingInterval)
		defer ping.Stop()
		pingC = ping.C
	}
	heartbeat := time.NewTicker(profile.HeartbeatEvery)
	defer heartbeat.Stop()

	streamed := false
	for {
		select {
		case <-ctx.Done():
			return streamed, nil

		case err := <-readErrs:
			return streamed, err

		case raw := <-messages:
			f.lastMsgMs.Store(time.Now().UnixMilli())
			for _, u := range f.adapter.ParseMessage(raw) {
				if !u.Quote.Valid() {
					metrics.QuotesRejected.WithLabelValues(f.adapter.Name()).Inc()
					continue
				}
				if !streamed {
					streamed = true
					f.state.Store(stateStreaming)
					f.log.Info().Msg("streaming")
				}
				metrics.QuotesTotal.WithLabelValues(f.adapter.Name()).Inc()
				f.onQuote(f.adapter.Name(), u.Symbol, u.Quote)
			}

		case <-pingC:
			if msg := f.adapter.PingMessage(); msg != nil {
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return streamed, err
				}
			}

		case <-heartbeat.C:
			silence := time.Now().UnixMilli() - f.lastMsgMs.Load()
			if silence > profile.SilenceTimeout.Milliseconds() {
				f.log.Warn().Int64("silenceMs", silence).Msg("no inbound messages, forcing reconnect")
				return streamed, nil
			}
		}
	}
}

// nextBackoff advances the reconnect delay multiplicatively up to the cap.
func nextBackoff(cur, base time.Duration) time.Duration {
	if cur < base {
		cur = base
	}
	next := time.Duration(math.Min(float64(maxReconnect), float64(cur)*backoffFactor))
	return next
}

// withJitter spreads reconnects by up to +25% so venues don't herd.
func withJitter(d time.Duration) time.Duration {
	return d + time.Duration(rand.Int63n(int64(float64(d)*jitterFraction)+1))
}
