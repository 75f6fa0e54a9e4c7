package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quotes_total", Help: "Count of validated quotes ingested"},
		[]string{"venue"},
	)
	QuotesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quotes_rejected_total", Help: "Quotes dropped before entering the store"},
		[]string{"venue"},
	)
	Reconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "feed_reconnects_total", Help: "Venue feed reconnect attempts"},
		[]string{"venue"},
	)
	TradesOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_opened_total", Help: "Simulated trades opened"},
		[]string{"symbol"},
	)
	TradesClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_closed_total", Help: "Simulated trades closed"},
		[]string{"symbol", "reason"},
	)
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_total", Help: "Outbound alerts emitted"},
		[]string{"level"},
	)
	OpenTrades = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "open_trades", Help: "Currently open simulated trades"},
	)
	Equity = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "equity", Help: "Simulated account equity"},
	)
)

func init() {
	prometheus.MustRegister(QuotesTotal, QuotesRejected, Reconnects, TradesOpened, TradesClosed, AlertsTotal, OpenTrades, Equity)
}

// Serve exposes /metrics on the given address in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
