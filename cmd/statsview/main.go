package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"arbwatch-go/internal/config"
	"arbwatch-go/internal/journal"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to config yaml")
	tail := flag.Int("tail", 10, "recent trades to print")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	agg := journal.NewAggregator(zerolog.Nop(), cfg.Journal.StartingEquity, *tail)
	n, err := replay(cfg.Journal.TradesPath, agg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read journal: %v\n", err)
		os.Exit(1)
	}
	if n == 0 {
		fmt.Println("journal is empty")
		return
	}

	printReport(agg.Snapshot())
}

// replay feeds every record of the trades file back through a fresh
// aggregator so the report always reflects the same math the live engine
// used.
func replay(path string, agg *journal.Aggregator) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec journal.TradeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			fmt.Fprintf(os.Stderr, "skipping malformed line: %v\n", err)
			continue
		}
		agg.Record(journal.Close{
			ID:       rec.ID,
			Symbol:   rec.Symbol,
			Buy:      rec.Buy,
			Sell:     rec.Sell,
			OpenNet:  rec.OpenNet,
			CloseNet: rec.CloseNet,
			Notional: rec.Notional,
			Reason:   rec.Reason,
			TsOpen:   rec.TsOpen,
			TsClose:  rec.TsClose,
		})
		n++
	}
	return n, sc.Err()
}

func printReport(snap journal.Snapshot) {
	s := snap.Stats
	fmt.Println("\n--- ArbWatch Journal ---")
	fmt.Printf("Trades: %d  (wins %d / losses %d)\n", s.Trades, s.Wins, s.Losses)
	fmt.Printf("Net PnL: $%.2f  Profit factor: %.2f\n", s.PnlSum, s.ProfitFactor)
	fmt.Printf("Equity: $%.2f  Peak: $%.2f  Max drawdown: %.2f%%\n", s.Equity, s.Peak, s.MaxDrawdownPct)
	fmt.Printf("Avg hold: %s\n", time.Duration(s.AvgDurationMs)*time.Millisecond)

	printGroups("By symbol", s.BySymbol)
	printGroups("By route", s.ByPair)
	printGroups("By close reason", s.ByReason)

	if len(snap.Recent) > 0 {
		fmt.Println("\nRecent trades:")
		for _, r := range snap.Recent {
			fmt.Printf("  %s  %-10s %s>%s  %-16s $%+.2f  ($%.2f equity)\n",
				time.UnixMilli(r.TsClose).UTC().Format("2006-01-02 15:04:05"),
				r.Symbol, r.Buy, r.Sell, r.Reason, r.PnlUsd, r.EquityAfter)
		}
	}
}

func printGroups(title string, groups map[string]journal.GroupStats) {
	if len(groups) == 0 {
		return
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("\n%s:\n", title)
	for _, k := range keys {
		g := groups[k]
		fmt.Printf("  %-24s %3d trades  %3d wins  $%+.2f\n", k, g.Trades, g.Wins, g.PnlSum)
	}
}
