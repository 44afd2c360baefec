package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"smartMoneyBot/internal/cli"
	"smartMoneyBot/internal/ports"
	"smartMoneyBot/internal/strategy/optimization"
)

var (
	csvPath  string
	days     int
	params   []string
	workers  int
	top      int
	filters  bool
	saveBest bool
)

var rootCmd = &cobra.Command{
	Use:   "sweep_runner",
	Short: "Backtest a grid of parameters or every filter combination",
	Long: `Runs independent backtests in parallel and prints them ranked by net
profit, Sharpe ratio and drawdown.

  sweep_runner --param VOLUME_THRESHOLD=50000:150000:50000 --param RISK_REWARD_RATIO=1.5:3:0.5
  sweep_runner --filters`,
	SilenceUsage: true,
	RunE:         runSweep,
}

func init() {
	rootCmd.Flags().StringVar(&csvPath, "csv", "", "Kline CSV file (fetch from Binance when empty)")
	rootCmd.Flags().IntVar(&days, "days", 30, "Days of history to fetch when no CSV is given")
	rootCmd.Flags().StringArrayVar(&params, "param", nil, "Sweep range NAME=min:max:step (repeatable). Names: "+strings.Join(optimization.ParameterNames(), ", "))
	rootCmd.Flags().IntVar(&workers, "workers", 0, "Parallel backtests (default SWEEP_WORKERS)")
	rootCmd.Flags().IntVar(&top, "top", 20, "Rows to print, 0 for all")
	rootCmd.Flags().BoolVar(&filters, "filters", false, "Run the 32-way filter study instead of a parameter grid")
	rootCmd.Flags().BoolVar(&saveBest, "save-best", false, "Store the best run in SQLite")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger, err := cli.Bootstrap()
	if err != nil {
		return err
	}

	ranges := make([]optimization.ParameterRange, 0, len(params))
	for _, p := range params {
		r, err := optimization.ParseParameterRange(p)
		if err != nil {
			return err
		}
		ranges = append(ranges, r)
	}
	if !filters && len(ranges) == 0 {
		return fmt.Errorf("nothing to sweep: pass --param or --filters")
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

	if workers <= 0 {
		workers = cfg.SweepWorkers
	}
	optimizer, err := optimization.NewOptimizer(optimization.OptimizerConfig{
		Base:            cfg.Setup(),
		ParameterRanges: ranges,
		Workers:         workers,
	}, appLogger)
	if err != nil {
		return err
	}

	var results []optimization.OptimizationResult
	if filters {
		results, err = optimizer.FilterStudy(ctx, klines)
	} else {
		results, err = optimizer.Sweep(ctx, klines)
	}
	if err != nil {
		return err
	}

	if saveBest && len(results) > 0 && results[0].Result != nil && results[0].Result.Success {
		repo, err := cli.OpenRepository(cfg, appLogger)
		if err != nil {
			return fmt.Errorf("failed to open repository: %w", err)
		}
		defer repo.Close()
		runID, err := repo.SaveRun(ctx, results[0].Result)
		if err != nil {
			appLogger.Error(ctx, err, "Failed to store best run")
		} else {
			appLogger.Info(ctx, "Best run stored", map[string]interface{}{"id": runID, "combination": results[0].Label()})
		}
	}

	return cli.PrintOptimizationResults(cmd.OutOrStdout(), results, top)
}
