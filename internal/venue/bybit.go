package venue

import (
	"encoding/json"
	"strings"
	"time"

	"arbwatch-go/internal/quote"
)

// Bybit streams level-1 order books from the v5 linear public websocket.
// Delta frames may carry only the changed side, so the adapter remembers the
// last seen top per symbol (single feed goroutine, no locking needed).
type Bybit struct {
	lastBid map[string]quote.Level
	lastAsk map[string]quote.Level
}

// NewBybit constructs the Bybit adapter.
func NewBybit() *Bybit {
	return &Bybit{
		lastBid: make(map[string]quote.Level),
		lastAsk: make(map[string]quote.Level),
	}
}

func (b *Bybit) Name() string { return "bybit" }

func (b *Bybit) URL() string { return "wss://stream.bybit.com/v5/public/linear" }

type bybitOp struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

// SubscribeMessages subscribes the orderbook.1 topic per symbol.
func (b *Bybit) SubscribeMessages(symbols []string) [][]byte {
	args := make([]string, len(symbols))
	for i, sym := range symbols {
		args[i] = "orderbook.1." + sym
	}
	msg, _ := json.Marshal(bybitOp{Op: "subscribe", Args: args})
	return [][]byte{msg}
}

type bybitBook struct {
	Topic string `json:"topic"`
	Ts    int64  `json:"ts"`
	Data  struct {
		Symbol string     `json:"s"`
		Bids   [][]string `json:"b"`
		Asks   [][]string `json:"a"`
	} `json:"data"`
}

// ParseMessage merges snapshot/delta frames into a top-of-book quote.
func (b *Bybit) ParseMessage(raw []byte) []Update {
	var msg bybitBook
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}
	if !strings.HasPrefix(msg.Topic, "orderbook.") || msg.Data.Symbol == "" {
		return nil
	}
	sym := msg.Data.Symbol
	if levels := parseStringLevels(msg.Data.Bids); len(levels) > 0 {
		b.lastBid[sym] = levels[0]
	}
	if levels := parseStringLevels(msg.Data.Asks); len(levels) > 0 {
		b.lastAsk[sym] = levels[0]
	}
	bid, okBid := b.lastBid[sym]
	ask, okAsk := b.lastAsk[sym]
	if !okBid || !okAsk {
		return nil
	}
	return []Update{{
		Symbol: sym,
		Quote: quote.Quote{
			Bid:  bid.Price,
			Ask:  ask.Price,
			TsMs: msg.Ts,
			Bids: []quote.Level{bid},
			Asks: []quote.Level{ask},
		},
	}}
}

// PingMessage renders the v5 keepalive frame.
func (b *Bybit) PingMessage() []byte {
	msg, _ := json.Marshal(bybitOp{Op: "ping"})
	return msg
}

func (b *Bybit) Profile() Profile {
	return Profile{
		PingInterval:   20 * time.Second,
		HeartbeatEvery: 5 * time.Second,
		SilenceTimeout: 15 * time.Second,
		ReconnectBase:  time.Second,
	}
}

func (b *Bybit) InstrumentsURL() string {
	return "https://api.bybit.com/v5/market/instruments-info?category=linear&limit=1000"
}

func (b *Bybit) ParseInstruments(body []byte) ([]string, error) {
	var info struct {
		Result struct {
			List []struct {
				Symbol string `json:"symbol"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(info.Result.List))
	for _, s := range info.Result.List {
		out = append(out, s.Symbol)
	}
	return out, nil
}
