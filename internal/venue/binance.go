package venue

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"arbwatch-go/internal/quote"
)

// Binance streams partial book depth from the USD-M futures websocket.
type Binance struct {
	subID int
}

// NewBinance constructs the Binance adapter.
func NewBinance() *Binance { return &Binance{} }

func (b *Binance) Name() string { return "binance" }

func (b *Binance) URL() string { return "wss://fstream.binance.com/ws" }

type binanceSubscribe struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// SubscribeMessages requests the 5-level depth stream per symbol.
func (b *Binance) SubscribeMessages(symbols []string) [][]byte {
	params := make([]string, len(symbols))
	for i, sym := range symbols {
		params[i] = strings.ToLower(sym) + "@depth5@100ms"
	}
	b.subID++
	msg, _ := json.Marshal(binanceSubscribe{Method: "SUBSCRIBE", Params: params, ID: b.subID})
	return [][]byte{msg}
}

type binanceDepth struct {
	Event  string     `json:"e"`
	Symbol string     `json:"s"`
	TxMs   int64      `json:"T"`
	EvMs   int64      `json:"E"`
	Bids   [][]string `json:"b"`
	Asks   [][]string `json:"a"`
}

// ParseMessage normalizes a depth frame; acks and unknown events are dropped.
func (b *Binance) ParseMessage(raw []byte) []Update {
	var msg binanceDepth
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}
	if msg.Event != "depthUpdate" || msg.Symbol == "" || len(msg.Bids) == 0 || len(msg.Asks) == 0 {
		return nil
	}
	bids := parseStringLevels(msg.Bids)
	asks := parseStringLevels(msg.Asks)
	if len(bids) == 0 || len(asks) == 0 {
		return nil
	}
	ts := msg.TxMs
	if ts == 0 {
		ts = msg.EvMs
	}
	return []Update{{
		Symbol: msg.Symbol,
		Quote: quote.Quote{
			Bid:  bids[0].Price,
			Ask:  asks[0].Price,
			TsMs: ts,
			Bids: bids,
			Asks: asks,
		},
	}}
}

// PingMessage is nil: Binance pings the client and gorilla answers pongs.
func (b *Binance) PingMessage() []byte { return nil }

func (b *Binance) Profile() Profile {
	return Profile{
		PingInterval:   0,
		HeartbeatEvery: 5 * time.Second,
		SilenceTimeout: 15 * time.Second,
		ReconnectBase:  800 * time.Millisecond,
	}
}

func (b *Binance) InstrumentsURL() string {
	return "https://fapi.binance.com/fapi/v1/exchangeInfo"
}

func (b *Binance) ParseInstruments(body []byte) ([]string, error) {
	var info struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		out = append(out, s.Symbol)
	}
	return out, nil
}

// parseStringLevels converts up to five [price, qty] string pairs, stopping
// at the first malformed level.
func parseStringLevels(raw [][]string) []quote.Level {
	levels := make([]quote.Level, 0, 5)
	for _, pair := range raw {
		if len(levels) == 5 {
			break
		}
		if len(pair) < 2 {
			return nil
		}
		price, err := strconv.ParseFloat(pair[0], 64)
		if err != nil {
			return nil
		}
		qty, err := strconv.ParseFloat(pair[1], 64)
		if err != nil {
			return nil
		}
		levels = append(levels, quote.Level{Price: price, Qty: qty})
	}
	return levels
}
