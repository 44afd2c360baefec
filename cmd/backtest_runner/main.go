package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"smartMoneyBot/internal/cli"
	"smartMoneyBot/internal/id"
	"smartMoneyBot/internal/ports"
	"smartMoneyBot/internal/strategy/backtesting"
	"smartMoneyBot/internal/utils"
)

var (
	csvPath   string
	days      int
	outPath   string
	tradesCSV string
	noDB      bool
)

var rootCmd = &cobra.Command{
	Use:   "backtest_runner",
	Short: "Run the smart money strategy over historical candles",
	Long: `Runs one backtest with the configured strategy, regime detection and
risk settings. Candles come from --csv or are fetched from Binance for the
last --days days. The result is written as JSON and stored in SQLite.`,
	SilenceUsage: true,
	RunE:         runBacktest,
}

func init() {
	rootCmd.Flags().StringVar(&csvPath, "csv", "", "Kline CSV file (fetch from Binance when empty)")
	rootCmd.Flags().IntVar(&days, "days", 30, "Days of history to fetch when no CSV is given")
	rootCmd.Flags().StringVar(&outPath, "out", "", "Result JSON path (default data/backtest_<symbol>_<run id>.json)")
	rootCmd.Flags().StringVar(&tradesCSV, "trades-csv", "", "Also write the trade ledger to this CSV file")
	rootCmd.Flags().BoolVar(&noDB, "no-db", false, "Skip storing the run in SQLite")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger, err := cli.Bootstrap()
	if err != nil {
		return err
	}

	req := cli.KlineRequest{CSVPath: csvPath, Symbol: cfg.Symbol, Interval: cfg.Timeframe}
	var source ports.CandleSource
	if csvPath == "" {
		client, err := cli.NewBinanceClient(cfg, appLogger)
		if err != nil {
			return fmt.Errorf("failed to initialize Binance client: %w", err)
		}
		source = client
		req.End = time.Now().UTC()
		req.Start = req.End.AddDate(0, 0, -days)
	}
	klines, err := cli.LoadKlines(ctx, source, req)
	if err != nil {
		return err
	}
	appLogger.Info(ctx, "Loaded klines", map[string]interface{}{"count": len(klines), "symbol": cfg.Symbol})

	engine, err := cfg.Setup().NewEngine(appLogger)
	if err != nil {
		return fmt.Errorf("failed to build backtest engine: %w", err)
	}
	result := engine.Run(ctx, klines)

	if !noDB && result.Success {
		repo, err := cli.OpenRepository(cfg, appLogger)
		if err != nil {
			return fmt.Errorf("failed to open repository: %w", err)
		}
		defer repo.Close()
		if _, err := repo.SaveRun(ctx, result); err != nil {
			appLogger.Error(ctx, err, "Failed to store backtest run")
		}
	}
	if result.ID == "" {
		result.ID = id.NewGenerator(time.Now().UnixNano()).New(time.Now())
	}

	path := outPath
	if path == "" {
		path = filepath.Join("data", fmt.Sprintf("backtest_%s_%s.json", result.Symbol, result.ID))
	}
	if err := backtesting.SaveResultFile(path, result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	appLogger.Info(ctx, "Result saved", map[string]interface{}{"path": path})

	if tradesCSV != "" {
		if err := utils.WriteTradesToCSV(result.Trades, tradesCSV); err != nil {
			appLogger.Error(ctx, err, "Error writing trades CSV")
		}
	}

	if err := cli.PrintSummary(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("backtest failed: %s", result.Error)
	}
	return nil
}
