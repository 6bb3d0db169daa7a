// cmd/backtest imports historical candles into SQLite and runs strategies
// over them from the command line, without the HTTP server.
//
// Usage:
//
//	go run ./cmd/backtest --import=btc_1h.csv --symbol=BTCUSDT --tf=1h
//	go run ./cmd/backtest --symbol=BTCUSDT --tf=1h --preset=sma_crossover --trades=trades.csv
//	go run ./cmd/backtest --symbol=BTCUSDT --tf=1h --strategy=rsi.yaml --save
//	go run ./cmd/backtest --symbol=BTCUSDT --tf=1h --compare
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"trading-backtestv1/config"
	"trading-backtestv1/internal/backtest"
	"trading-backtestv1/internal/logger"
	"trading-backtestv1/internal/model"
	"trading-backtestv1/internal/notification"
	"trading-backtestv1/internal/pattern"
	"trading-backtestv1/internal/service"
	sqlitestore "trading-backtestv1/internal/store/sqlite"
	"trading-backtestv1/internal/strategy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	dbPath := flag.String("db", cfg.SQLitePath, "Path to SQLite database")
	importPath := flag.String("import", "", "CSV file of candles to import before running")
	symbol := flag.String("symbol", "", "Symbol to backtest")
	tf := flag.String("tf", "", "Timeframe label, e.g. 1m, 1h")
	from := flag.Int64("from", 0, "Unix seconds of the first candle (0=all)")
	to := flag.Int64("to", 0, "Unix seconds of the last candle (0=all)")
	strategyPath := flag.String("strategy", "", "Strategy document (.yaml, .yml or .json)")
	preset := flag.String("preset", "", "Built-in strategy: "+strings.Join(strategy.PresetNames(), ", "))
	compare := flag.Bool("compare", false, "Run every built-in strategy and print a comparison")
	equity := flag.Float64("equity", cfg.Backtest.InitialEquity, "Initial equity")
	save := flag.Bool("save", false, "Persist the run")
	tradesPath := flag.String("trades", "", "Write the trade list as CSV to this path")
	list := flag.Bool("list", false, "List stored symbol/timeframe series and exit")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := logger.ParseLevel(cfg.LogLevel)
	if *verbose {
		level = slog.LevelDebug
	}
	logger.Init("backtest-cli", level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if dir := filepath.Dir(*dbPath); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	db, err := sqlitestore.New(sqlitestore.Config{DBPath: *dbPath})
	if err != nil {
		fatal("sqlite open failed", err)
	}
	defer db.Close()

	if *list {
		series, err := db.Series(ctx)
		if err != nil {
			fatal("list series failed", err)
		}
		for _, s := range series {
			last, _ := db.LastTimestamp(ctx, s[0], s[1])
			fmt.Printf("%-16s %-6s last=%d\n", s[0], s[1], last)
		}
		return
	}

	if *symbol == "" || *tf == "" {
		fmt.Fprintln(os.Stderr, "--symbol and --tf are required")
		flag.Usage()
		os.Exit(2)
	}

	if *importPath != "" {
		n, err := importCSV(ctx, db, *importPath, *symbol, *tf)
		if err != nil {
			fatal("import failed", err)
		}
		fmt.Printf("imported %d candles into %s:%s\n", n, *symbol, *tf)
	}

	svc := service.New(service.Deps{
		Candles:    db,
		Writer:     db,
		Strategies: db,
		Runs:       db,
		Notifier:   notification.NewLogNotifier(slog.Default()),
	}, service.Options{
		InitialEquity:    *equity,
		IndicatorWorkers: cfg.Backtest.IndicatorWorkers,
		RunWorkers:       cfg.Backtest.RunWorkers,
		Pattern: pattern.Options{
			PivotLookback: cfg.Pattern.PivotLookback,
			Tolerance:     model.Float(cfg.Pattern.Tolerance),
		},
	})

	if *compare {
		rows, err := svc.Compare(ctx, service.CompareRequest{
			Presets:   svc.Presets(),
			Symbol:    *symbol,
			Timeframe: *tf,
			From:      *from,
			To:        *to,
		})
		if err != nil {
			fatal("compare failed", err)
		}
		printComparison(rows)
		return
	}

	req := service.BacktestRequest{
		Preset:        *preset,
		Symbol:        *symbol,
		Timeframe:     *tf,
		From:          *from,
		To:            *to,
		InitialEquity: *equity,
		Save:          *save,
	}
	if *strategyPath != "" {
		st, err := loadStrategy(*strategyPath)
		if err != nil {
			fatal("strategy load failed", err)
		}
		req.Strategy = &st
	}
	if req.Strategy == nil && req.Preset == "" {
		req.Preset = "sma_crossover"
	}

	run, err := svc.RunBacktest(ctx, req)
	if err != nil {
		fatal("backtest failed", err)
	}
	printSummary(run.Result)

	if *tradesPath != "" {
		if err := writeTrades(*tradesPath, run.Result.Trades); err != nil {
			fatal("write trades failed", err)
		}
		fmt.Printf("trades written to %s\n", *tradesPath)
	}
}

// importCSV validates the whole file first, then streams it through the
// batched SQLite writer.
func importCSV(ctx context.Context, db *sqlitestore.Store, path, symbol, tf string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	candles, err := backtest.ReadCandlesCSV(f)
	if err != nil {
		return 0, err
	}
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Time < candles[j].Time })
	if _, err := model.NewCandleStore(symbol, tf, candles); err != nil {
		return 0, err
	}

	rows := make(chan sqlitestore.CandleRow, 1000)
	done := make(chan int, 1)
	go func() { done <- db.Run(ctx, rows) }()
	for _, c := range candles {
		rows <- sqlitestore.CandleRow{Symbol: symbol, Timeframe: tf, Candle: c}
	}
	close(rows)

	n := <-done
	if n != len(candles) {
		return n, fmt.Errorf("wrote %d of %d candles", n, len(candles))
	}
	return n, nil
}

func loadStrategy(path string) (model.Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Strategy{}, err
	}
	var st model.Strategy
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &st)
	case ".json":
		err = json.Unmarshal(data, &st)
	default:
		return model.Strategy{}, errors.New("strategy file must be .yaml, .yml or .json")
	}
	if err != nil {
		return model.Strategy{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return st, nil
}

func writeTrades(path string, trades []model.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := backtest.WriteTradesCSV(f, trades); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(r model.BacktestResult) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Series:            %-16s ║\n", r.Symbol+":"+r.Timeframe)
	fmt.Printf("║  Bars:              %-16d ║\n", r.Bars)
	fmt.Printf("║  Trades:            %-16d ║\n", r.TotalTrades)
	fmt.Printf("║  Wins / Losses:     %-16s ║\n", fmt.Sprintf("%d / %d", r.Wins, r.Losses))
	fmt.Printf("║  Win rate:          %-16s ║\n", fmt.Sprintf("%.2f%%", r.WinRate*100))
	fmt.Printf("║  Profit factor:     %-16.2f ║\n", r.ProfitFactor)
	fmt.Printf("║  Max drawdown:      %-16s ║\n", fmt.Sprintf("%.2f%%", r.MaxDrawdown))
	fmt.Printf("║  Sharpe:            %-16.2f ║\n", r.SharpeRatio)
	fmt.Printf("║  Return:            %-16s ║\n", fmt.Sprintf("%+.2f%%", r.TotalReturn))
	fmt.Printf("║  Final equity:      %-16.2f ║\n", r.FinalEquity)
	if r.OpenPosition != nil {
		fmt.Printf("║  Open since:        %-16d ║\n", r.OpenPosition.EntryTime)
	}
	if r.RunID != "" {
		fmt.Printf("║  Run: %-30s ║\n", r.RunID[:min(len(r.RunID), 30)])
	}
	fmt.Println("╚══════════════════════════════════════╝")
}

func printComparison(rows []service.Comparison) {
	fmt.Printf("\n%-22s %7s %8s %8s %9s %9s\n", "STRATEGY", "TRADES", "WIN%", "PF", "MAXDD%", "RETURN%")
	for _, row := range rows {
		if row.Result == nil {
			fmt.Printf("%-22s error: %s\n", row.Strategy, row.Error)
			continue
		}
		r := row.Result
		fmt.Printf("%-22s %7d %8.2f %8.2f %9.2f %+9.2f\n",
			row.Strategy, r.TotalTrades, r.WinRate*100, r.ProfitFactor, r.MaxDrawdown, r.TotalReturn)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
