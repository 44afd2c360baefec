// Package cli holds the wiring shared by the command-line entry points.
package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"
	"time"

	"smartMoneyBot/config"
	"smartMoneyBot/internal/adapters/binanceclient"
	"smartMoneyBot/internal/adapters/logger"
	"smartMoneyBot/internal/adapters/sqlite"
	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/ports"
	"smartMoneyBot/internal/strategy/analytics"
	"smartMoneyBot/internal/strategy/optimization"
	"smartMoneyBot/internal/utils"
)

// Bootstrap loads configuration and builds the logger it describes.
// Configuration warnings are logged once the logger exists.
func Bootstrap() (*config.Config, ports.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	appLogger, err := logger.New(cfg.LogFormat, cfg.LogLevel.String())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	for _, w := range cfg.Warnings {
		appLogger.Warn(context.Background(), "Configuration value ignored", map[string]interface{}{"detail": w})
	}
	return cfg, appLogger, nil
}

// NewBinanceClient builds the market data client from configuration.
func NewBinanceClient(cfg *config.Config, log ports.Logger) (*binanceclient.Client, error) {
	return binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     log,
	})
}

// OpenRepository opens the SQLite store at the configured path.
func OpenRepository(cfg *config.Config, log ports.Logger) (*sqlite.Repository, error) {
	return sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: log})
}

// KlineRequest selects candles either from a CSV file or from the exchange.
type KlineRequest struct {
	CSVPath  string
	Symbol   string
	Interval string
	Start    time.Time
	End      time.Time
}

// LoadKlines returns candles in ascending OpenTime order. A CSV path takes
// precedence over the exchange source, which may then be nil.
func LoadKlines(ctx context.Context, source ports.CandleSource, req KlineRequest) ([]*domain.Kline, error) {
	var (
		klines []*domain.Kline
		err    error
	)
	if req.CSVPath != "" {
		klines, err = utils.ReadKlinesFromCSV(req.CSVPath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", req.CSVPath, err)
		}
	} else {
		if source == nil {
			return nil, fmt.Errorf("%w: no CSV file and no exchange client", ports.ErrConfigurationError)
		}
		klines, err = source.GetKlinesRange(ctx, req.Symbol, req.Interval, req.Start, req.End)
		if err != nil {
			return nil, fmt.Errorf("fetching klines: %w", err)
		}
	}
	sort.SliceStable(klines, func(i, j int) bool { return klines[i].OpenTime.Before(klines[j].OpenTime) })
	return klines, nil
}

// PrintSummary writes the headline metrics of one run.
func PrintSummary(w io.Writer, r *domain.BacktestResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !r.Success {
		fmt.Fprintf(tw, "Status:\tFAILED\n")
		fmt.Fprintf(tw, "Error:\t%s\n", r.Error)
		return tw.Flush()
	}
	m := r.Metrics
	fmt.Fprintf(tw, "Run:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Symbol:\t%s\n", r.Symbol)
	fmt.Fprintf(tw, "Period:\t%s .. %s\n", r.StartDate.UTC().Format(time.RFC3339), r.EndDate.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "Balance:\t%.2f -> %.2f\n", r.InitialBalance, r.FinalBalance)
	fmt.Fprintf(tw, "Net profit:\t%.2f\n", m.NetProfit)
	fmt.Fprintf(tw, "Return:\t%.2f%%\n", m.Return)
	fmt.Fprintf(tw, "Annualized:\t%.2f%%\n", m.AnnualizedReturn)
	fmt.Fprintf(tw, "Max drawdown:\t%.2f%%\n", m.MaxDrawdown)
	fmt.Fprintf(tw, "Sharpe:\t%.3f\n", m.SharpeRatio)
	fmt.Fprintf(tw, "Calmar:\t%.3f\n", m.CalmarRatio)
	fmt.Fprintf(tw, "Profit factor:\t%s\n", formatRatio(m.ProfitFactor))
	fmt.Fprintf(tw, "Trades:\t%d (%d won, %d lost, %.1f%% win rate)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades, m.WinRate)
	fmt.Fprintf(tw, "Avg win/loss:\t%.2f / %.2f\n", m.AvgWin, m.AvgLoss)
	fmt.Fprintf(tw, "Expectancy:\t%.2f\n", m.Expectancy)
	fmt.Fprintf(tw, "Commission:\t%.2f\n", m.TotalCommission)
	fmt.Fprintf(tw, "Signals:\t%d\n", len(r.Signals))
	return tw.Flush()
}

// PrintOptimizationResults writes a ranked table of the first top results.
// top <= 0 prints every row.
func PrintOptimizationResults(w io.Writer, results []optimization.OptimizationResult, top int) error {
	if top <= 0 || top > len(results) {
		top = len(results)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Rank\tCombination\tTrades\tWinRate%\tNetProfit\tSharpe\tMaxDD%\tPF\t")
	for i, r := range results[:top] {
		if r.Err != nil || r.Result == nil || !r.Result.Success {
			msg := "failed"
			if r.Err != nil {
				msg = r.Err.Error()
			} else if r.Result != nil {
				msg = r.Result.Error
			}
			fmt.Fprintf(tw, "%d\t%s\t-\t-\t-\t-\t-\t%s\t\n", i+1, r.Label(), msg)
			continue
		}
		m := r.Result.Metrics
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.1f\t%.2f\t%.3f\t%.2f\t%s\t\n",
			i+1, r.Label(), m.TotalTrades, m.WinRate, m.NetProfit, m.SharpeRatio, m.MaxDrawdown, formatRatio(m.ProfitFactor))
	}
	return tw.Flush()
}

// PrintRuns writes stored run summaries.
func PrintRuns(w io.Writer, runs []ports.RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSymbol\tTrades\tFinalBalance\tNetProfit\tSharpe\t")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\t%.3f\t\n", r.ID, r.Symbol, r.TotalTrades, r.FinalBalance, r.NetProfit, r.SharpeRatio)
	}
	return tw.Flush()
}

// PrintTradeAnalysis writes the trade-level breakdown of a ledger: headline
// statistics, exits by reason and profit by month.
func PrintTradeAnalysis(w io.Writer, name string, trades []domain.Trade, initialBalance float64) error {
	pm := analytics.AnalyzePerformance(trades, initialBalance)

	fmt.Fprintf(w, "\n## %s\n", name)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Trades:\t%d\n", pm.TotalTrades)
	fmt.Fprintf(tw, "Win rate:\t%.1f%%\n", pm.WinRate*100)
	fmt.Fprintf(tw, "Avg win/loss:\t%.2f / %.2f\n", pm.AverageWin, pm.AverageLoss)
	fmt.Fprintf(tw, "Total PnL:\t%.2f\n", pm.TotalProfit)
	fmt.Fprintf(tw, "Max drawdown:\t%.2f%%\n", pm.MaxDrawdown*100)
	fmt.Fprintf(tw, "Profit factor:\t%s\n", formatRatio(pm.ProfitFactor))
	fmt.Fprintf(tw, "Streaks:\t%d wins / %d losses\n", pm.MaxConsecutiveWins, pm.MaxConsecutiveLosses)
	fmt.Fprintf(tw, "Avg duration:\t%s\n", pm.AverageTradeDuration)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(pm.ExitReasons) > 0 {
		pnl := make(map[domain.ExitReason]float64)
		for _, t := range trades {
			pnl[t.ExitReason] += t.NetProfit
		}
		reasons := make([]domain.ExitReason, 0, len(pm.ExitReasons))
		for r := range pm.ExitReasons {
			reasons = append(reasons, r)
		}
		sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

		fmt.Fprintln(w, "\nExit reason")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Reason\tCount\tTotal PnL\tAvg PnL\t")
		for _, r := range reasons {
			n := pm.ExitReasons[r]
			fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t\n", r, n, pnl[r], pnl[r]/float64(n))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if months := pm.GetMonthlyReturns(); len(months) > 0 {
		fmt.Fprintln(w, "\nMonthly")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, m := range months {
			fmt.Fprintf(tw, "%s\t%.2f\t\n", m.Month.Format("2006-01"), m.Return)
		}
		return tw.Flush()
	}
	return nil
}

func formatRatio(r domain.Ratio) string {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsNaN(f):
		return "n/a"
	}
	return fmt.Sprintf("%.2f", f)
}
