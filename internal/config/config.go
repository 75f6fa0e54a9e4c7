// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, metrics address, and logging level.
type App struct {
	Name        string `yaml:"name"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Venue describes one exchange feed: taker fee and whether it participates at all.
type Venue struct {
	Enabled  bool    `yaml:"enabled"`
	TakerFee float64 `yaml:"taker_fee"` // fractional, e.g. 0.0005
}

// Feeds groups connectivity settings shared by every venue connector.
type Feeds struct {
	Symbols   []string         `yaml:"symbols"`
	ChunkSize int              `yaml:"chunk_size"`
	Venues    map[string]Venue `yaml:"venues"`
	Discovery Discovery        `yaml:"discovery"`
}

// Discovery configures the optional startup instrument validation pass.
type Discovery struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Sizing selects how the notional of a simulated position is determined.
type Sizing struct {
	Mode           string  `yaml:"mode"` // "fixed" or "equity_fraction"
	FixedNotional  float64 `yaml:"fixed_notional"`
	EquityFraction float64 `yaml:"equity_fraction"`
	MaxNotional    float64 `yaml:"max_notional"`
}

// Trading holds the thresholds and timing knobs of the trade lifecycle.
type Trading struct {
	EntryNetPct         float64 `yaml:"entry_net_pct"`
	ExitNetPct          float64 `yaml:"exit_net_pct"`
	SlippageBufferPct   float64 `yaml:"slippage_buffer_pct"`
	MinCandidateMs      int     `yaml:"min_candidate_ms"`
	MaxHoldMs           int     `yaml:"max_hold_ms"`
	CooldownMs          int     `yaml:"cooldown_ms"`
	MaxConcurrentTrades int     `yaml:"max_concurrent_trades"`
	Sizing              Sizing  `yaml:"sizing"`
}

// Display tunes the presentation-only signal classifier.
type Display struct {
	HotPct       float64 `yaml:"hot_pct"`
	StrongPct    float64 `yaml:"strong_pct"`
	ClosePct     float64 `yaml:"close_pct"`
	DebounceMs   int     `yaml:"debounce_ms"`
	BlinkMs      int     `yaml:"blink_ms"`
}

// Alerts controls outbound alert pacing.
type Alerts struct {
	MinIntervalMs int `yaml:"min_interval_ms"`
}

// Journal points the trade and equity sinks at their output files.
type Journal struct {
	StartingEquity float64 `yaml:"starting_equity"`
	TradesPath     string  `yaml:"trades_path"`
	EquityPath     string  `yaml:"equity_path"`
	TailSize       int     `yaml:"tail_size"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App     `yaml:"app"`
	Feeds   Feeds   `yaml:"feeds"`
	Trading Trading `yaml:"trading"`
	Display Display `yaml:"display"`
	Alerts  Alerts  `yaml:"alerts"`
	Journal Journal `yaml:"journal"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyDefaults()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Feeds.ChunkSize <= 0 {
		c.Feeds.ChunkSize = 25
	}
	if c.Trading.MinCandidateMs <= 0 {
		c.Trading.MinCandidateMs = 500
	}
	if c.Trading.MaxHoldMs <= 0 {
		c.Trading.MaxHoldMs = 60_000
	}
	if c.Trading.CooldownMs <= 0 {
		c.Trading.CooldownMs = 2_000
	}
	if c.Trading.MaxConcurrentTrades <= 0 {
		c.Trading.MaxConcurrentTrades = 3
	}
	if c.Trading.Sizing.Mode == "" {
		c.Trading.Sizing.Mode = "fixed"
	}
	if c.Trading.Sizing.FixedNotional <= 0 {
		c.Trading.Sizing.FixedNotional = 1_000
	}
	if c.Display.DebounceMs <= 0 {
		c.Display.DebounceMs = 300
	}
	if c.Display.BlinkMs <= 0 {
		c.Display.BlinkMs = 1_500
	}
	if c.Alerts.MinIntervalMs <= 0 {
		c.Alerts.MinIntervalMs = 1_000
	}
	if c.Journal.StartingEquity <= 0 {
		c.Journal.StartingEquity = 1_000
	}
	if c.Journal.TailSize <= 0 {
		c.Journal.TailSize = 200
	}
	if c.Feeds.Discovery.RequestsPerSecond <= 0 {
		c.Feeds.Discovery.RequestsPerSecond = 2
	}
}
