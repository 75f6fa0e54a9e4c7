package venue

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"arbwatch-go/internal/quote"
)

// Gate streams the futures book ticker from the USDT-settled websocket.
// Canonical symbols map onto Gate contracts (BTCUSDT → BTC_USDT). The book
// ticker is top-of-book only, so quotes carry a single depth level.
type Gate struct{}

// NewGate constructs the Gate adapter.
func NewGate() *Gate { return &Gate{} }

func gateContract(symbol string) string {
	base, ok := strings.CutSuffix(symbol, "USDT")
	if !ok || base == "" {
		return ""
	}
	return base + "_USDT"
}

func gateCanonical(contract string) string {
	return strings.ReplaceAll(contract, "_", "")
}

func (g *Gate) Name() string { return "gate" }

func (g *Gate) URL() string { return "wss://fx-ws.gateio.ws/v4/ws/usdt" }

type gateRequest struct {
	Time    int64    `json:"time"`
	Channel string   `json:"channel"`
	Event   string   `json:"event,omitempty"`
	Payload []string `json:"payload,omitempty"`
}

// SubscribeMessages subscribes the futures.book_ticker channel.
func (g *Gate) SubscribeMessages(symbols []string) [][]byte {
	payload := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if contract := gateContract(sym); contract != "" {
			payload = append(payload, contract)
		}
	}
	if len(payload) == 0 {
		return nil
	}
	msg, _ := json.Marshal(gateRequest{
		Time:    time.Now().Unix(),
		Channel: "futures.book_ticker",
		Event:   "subscribe",
		Payload: payload,
	})
	return [][]byte{msg}
}

type gateTicker struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Result  struct {
		Contract string  `json:"s"`
		Bid      string  `json:"b"`
		BidSize  float64 `json:"B"`
		Ask      string  `json:"a"`
		AskSize  float64 `json:"A"`
		TimeMs   int64   `json:"t"`
	} `json:"result"`
}

// ParseMessage normalizes book ticker updates; subscribe acks and pongs drop.
func (g *Gate) ParseMessage(raw []byte) []Update {
	var msg gateTicker
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}
	if msg.Channel != "futures.book_ticker" || msg.Event != "update" || msg.Result.Contract == "" {
		return nil
	}
	bid, err := strconv.ParseFloat(msg.Result.Bid, 64)
	if err != nil {
		return nil
	}
	ask, err := strconv.ParseFloat(msg.Result.Ask, 64)
	if err != nil {
		return nil
	}
	return []Update{{
		Symbol: gateCanonical(msg.Result.Contract),
		Quote: quote.Quote{
			Bid:  bid,
			Ask:  ask,
			TsMs: msg.Result.TimeMs,
			Bids: []quote.Level{{Price: bid, Qty: msg.Result.BidSize}},
			Asks: []quote.Level{{Price: ask, Qty: msg.Result.AskSize}},
		},
	}}
}

// PingMessage renders the futures.ping keepalive.
func (g *Gate) PingMessage() []byte {
	msg, _ := json.Marshal(gateRequest{Time: time.Now().Unix(), Channel: "futures.ping"})
	return msg
}

func (g *Gate) Profile() Profile {
	return Profile{
		PingInterval:   15 * time.Second,
		HeartbeatEvery: 7 * time.Second,
		SilenceTimeout: 20 * time.Second,
		ReconnectBase:  1400 * time.Millisecond,
	}
}

func (g *Gate) InstrumentsURL() string {
	return "https://api.gateio.ws/api/v4/futures/usdt/contracts"
}

func (g *Gate) ParseInstruments(body []byte) ([]string, error) {
	var contracts []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &contracts); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(contracts))
	for _, c := range contracts {
		out = append(out, gateCanonical(c.Name))
	}
	return out, nil
}
