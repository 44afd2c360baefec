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

	"smartMoneyBot/internal/adapters/binanceclient"
	"smartMoneyBot/internal/cli"
	"smartMoneyBot/internal/utils"
)

var (
	symbol   string
	interval string
	days     int
	outPath  string
)

var rootCmd = &cobra.Command{
	Use:          "fetch_klines",
	Short:        "Download futures klines from Binance into a CSV file",
	SilenceUsage: true,
	RunE:         runFetch,
}

func init() {
	rootCmd.Flags().StringVar(&symbol, "symbol", "", "Symbol (default SYMBOL)")
	rootCmd.Flags().StringVar(&interval, "interval", "", "Kline interval (default TIMEFRAME)")
	rootCmd.Flags().IntVar(&days, "days", 90, "Days of history to fetch")
	rootCmd.Flags().StringVar(&outPath, "out", "", "CSV path (default data/<symbol>_<interval>_<from>_to_<to>.csv)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger, err := cli.Bootstrap()
	if err != nil {
		return err
	}
	if symbol == "" {
		symbol = cfg.Symbol
	}
	if interval == "" {
		interval = cfg.Timeframe
	}
	interval, _ = binanceclient.NormalizeInterval(interval)

	client, err := cli.NewBinanceClient(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize Binance client: %w", err)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)
	appLogger.Info(ctx, "Fetching klines", map[string]interface{}{
		"symbol": symbol, "interval": interval, "start": start.Format(time.RFC3339), "end": end.Format(time.RFC3339),
	})
	klines, err := client.GetKlinesRange(ctx, symbol, interval, start, end)
	if err != nil {
		return fmt.Errorf("error fetching klines: %w", err)
	}
	appLogger.Info(ctx, "Fetched klines", map[string]interface{}{"count": len(klines)})

	path := outPath
	if path == "" {
		path = filepath.Join("data", fmt.Sprintf("%s_%s_%s_to_%s.csv", symbol, interval, start.Format("20060102"), end.Format("20060102")))
	}
	if err := utils.WriteKlinesToCSV(klines, path); err != nil {
		return fmt.Errorf("error writing CSV: %w", err)
	}
	appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": path})
	return nil
}
