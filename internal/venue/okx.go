package venue

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"arbwatch-go/internal/quote"
)

// OKX streams 5-level books for USDT perpetual swaps. Canonical symbols map
// onto OKX instrument IDs (BTCUSDT → BTC-USDT-SWAP).
type OKX struct {
	bySymbol map[string]string // canonical → instId
	byInst   map[string]string // instId → canonical
}

// NewOKX constructs the adapter with the instrument mapping for the symbol set.
func NewOKX(symbols []string) *OKX {
	o := &OKX{
		bySymbol: make(map[string]string, len(symbols)),
		byInst:   make(map[string]string, len(symbols)),
	}
	for _, sym := range symbols {
		inst := okxInstrument(sym)
		if inst == "" {
			continue
		}
		o.bySymbol[sym] = inst
		o.byInst[inst] = sym
	}
	return o
}

func okxInstrument(symbol string) string {
	base, ok := strings.CutSuffix(symbol, "USDT")
	if !ok || base == "" {
		return ""
	}
	return base + "-USDT-SWAP"
}

func okxCanonical(instID string) string {
	base, ok := strings.CutSuffix(instID, "-USDT-SWAP")
	if !ok {
		return ""
	}
	return base + "USDT"
}

func (o *OKX) Name() string { return "okx" }

func (o *OKX) URL() string { return "wss://ws.okx.com:8443/ws/v5/public" }

type okxArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type okxSubscribe struct {
	Op   string   `json:"op"`
	Args []okxArg `json:"args"`
}

// SubscribeMessages subscribes the books5 channel per instrument.
func (o *OKX) SubscribeMessages(symbols []string) [][]byte {
	args := make([]okxArg, 0, len(symbols))
	for _, sym := range symbols {
		if inst, ok := o.bySymbol[sym]; ok {
			args = append(args, okxArg{Channel: "books5", InstID: inst})
		}
	}
	if len(args) == 0 {
		return nil
	}
	msg, _ := json.Marshal(okxSubscribe{Op: "subscribe", Args: args})
	return [][]byte{msg}
}

type okxBook struct {
	Arg  okxArg `json:"arg"`
	Data []struct {
		Asks [][]string `json:"asks"`
		Bids [][]string `json:"bids"`
		Ts   string     `json:"ts"`
	} `json:"data"`
}

// ParseMessage normalizes books5 pushes; "pong" and event acks are dropped.
func (o *OKX) ParseMessage(raw []byte) []Update {
	if bytes.Equal(raw, []byte("pong")) {
		return nil
	}
	var msg okxBook
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}
	if msg.Arg.Channel != "books5" || len(msg.Data) == 0 {
		return nil
	}
	symbol := o.byInst[msg.Arg.InstID]
	if symbol == "" {
		symbol = okxCanonical(msg.Arg.InstID)
	}
	if symbol == "" {
		return nil
	}

	var updates []Update
	for _, d := range msg.Data {
		bids := parseStringLevels(d.Bids)
		asks := parseStringLevels(d.Asks)
		if len(bids) == 0 || len(asks) == 0 {
			continue
		}
		ts, _ := strconv.ParseInt(d.Ts, 10, 64)
		updates = append(updates, Update{
			Symbol: symbol,
			Quote: quote.Quote{
				Bid:  bids[0].Price,
				Ask:  asks[0].Price,
				TsMs: ts,
				Bids: bids,
				Asks: asks,
			},
		})
	}
	return updates
}

// PingMessage is the raw text ping OKX expects during idle periods.
func (o *OKX) PingMessage() []byte { return []byte("ping") }

func (o *OKX) Profile() Profile {
	return Profile{
		PingInterval:   20 * time.Second,
		HeartbeatEvery: 6 * time.Second,
		SilenceTimeout: 18 * time.Second,
		ReconnectBase:  1200 * time.Millisecond,
	}
}

func (o *OKX) InstrumentsURL() string {
	return "https://www.okx.com/api/v5/public/instruments?instType=SWAP"
}

func (o *OKX) ParseInstruments(body []byte) ([]string, error) {
	var info struct {
		Data []struct {
			InstID string `json:"instId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(info.Data))
	for _, d := range info.Data {
		if sym := okxCanonical(d.InstID); sym != "" {
			out = append(out, sym)
		}
	}
	return out, nil
}
