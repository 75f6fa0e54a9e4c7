package main

import (
	"context"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"arbwatch-go/internal/config"
	"arbwatch-go/internal/engine"
	"arbwatch-go/internal/journal"
	"arbwatch-go/internal/metrics"
	"arbwatch-go/internal/notify"
	"arbwatch-go/internal/quote"
	"arbwatch-go/internal/risk"
	"arbwatch-go/internal/store"
	"arbwatch-go/internal/util"
	"arbwatch-go/internal/venue"
)

const sweepInterval = 500 * time.Millisecond

func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sink, err := journal.NewJSONLSink(cfg.Journal.TradesPath, cfg.Journal.EquityPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open journal")
	}
	agg := journal.NewAggregator(util.Component(log, "journal"),
		cfg.Journal.StartingEquity, cfg.Journal.TailSize, sink)

	broadcaster := notify.NewLogBroadcaster(util.Component(log, "notify"))
	alerter := notify.NewAlerter(broadcaster,
		time.Duration(cfg.Alerts.MinIntervalMs)*time.Millisecond)

	fees := make(map[string]float64, len(cfg.Feeds.Venues))
	for name, vc := range cfg.Feeds.Venues {
		if vc.Enabled {
			fees[name] = vc.TakerFee
		}
	}

	eng := engine.New(util.Component(log, "engine"), store.New(), agg, broadcaster, alerter, engine.Params{
		EntryNetPct:       cfg.Trading.EntryNetPct,
		ExitNetPct:        cfg.Trading.ExitNetPct,
		SlippageBufferPct: cfg.Trading.SlippageBufferPct,
		MinCandidate:      time.Duration(cfg.Trading.MinCandidateMs) * time.Millisecond,
		MaxHold:           time.Duration(cfg.Trading.MaxHoldMs) * time.Millisecond,
		Cooldown:          time.Duration(cfg.Trading.CooldownMs) * time.Millisecond,
		Fees:              fees,
		Limits: risk.Limits{
			MaxNotional:       cfg.Trading.Sizing.MaxNotional,
			MaxConcurrentOpen: cfg.Trading.MaxConcurrentTrades,
		},
		Sizing: engine.SizingParams{
			Mode:           cfg.Trading.Sizing.Mode,
			FixedNotional:  cfg.Trading.Sizing.FixedNotional,
			EquityFraction: cfg.Trading.Sizing.EquityFraction,
		},
		Display: engine.DisplayParams{
			HotPct:    cfg.Display.HotPct,
			StrongPct: cfg.Display.StrongPct,
			ClosePct:  cfg.Display.ClosePct,
			Debounce:  time.Duration(cfg.Display.DebounceMs) * time.Millisecond,
			Blink:     time.Duration(cfg.Display.BlinkMs) * time.Millisecond,
		},
	})

	adapters := buildAdapters(cfg)
	if cfg.Feeds.Discovery.Enabled {
		sources := make([]venue.InstrumentSource, 0, len(adapters))
		for _, a := range adapters {
			if src, ok := a.(venue.InstrumentSource); ok {
				sources = append(sources, src)
			}
		}
		venue.NewValidator(util.Component(log, "discovery"), cfg.Feeds.Discovery.RequestsPerSecond).
			Validate(ctx, sources, cfg.Feeds.Symbols)
	}

	onQuote := func(v, symbol string, q quote.Quote) { eng.OnQuote(v, symbol, q) }
	feeds := make([]*venue.Feed, 0, len(adapters))
	for _, a := range adapters {
		f := venue.NewFeed(a, cfg.Feeds.Symbols, cfg.Feeds.ChunkSize, log, onQuote)
		f.Connect(ctx)
		feeds = append(feeds, f)
	}
	log.Info().Int("venues", len(feeds)).Int("symbols", len(cfg.Feeds.Symbols)).
		Msg("arbwatch started")

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			for _, f := range feeds {
				if err := f.Close(); err != nil {
					log.Error().Err(err).Msg("close feed")
				}
			}
			if err := sink.Close(); err != nil {
				log.Error().Err(err).Msg("close journal")
			}
			snap := agg.Snapshot()
			log.Info().Int("trades", snap.Stats.Trades).
				Float64("equity", agg.Equity()).
				Msg("final journal state")
			return
		case now := <-ticker.C:
			eng.Sweep(now)
		}
	}
}

func buildAdapters(cfg *config.Config) []venue.Adapter {
	var out []venue.Adapter
	if cfg.Feeds.Venues["binance"].Enabled {
		out = append(out, venue.NewBinance())
	}
	if cfg.Feeds.Venues["bybit"].Enabled {
		out = append(out, venue.NewBybit())
	}
	if cfg.Feeds.Venues["okx"].Enabled {
		out = append(out, venue.NewOKX(cfg.Feeds.Symbols))
	}
	if cfg.Feeds.Venues["gate"].Enabled {
		out = append(out, venue.NewGate())
	}
	return out
}
