package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"smartMoneyBot/internal/cli"
	"smartMoneyBot/internal/strategy/backtesting"
)

var (
	runID string
	limit int
)

var rootCmd = &cobra.Command{
	Use:   "analyze_backtests [result.json | dir ...]",
	Short: "Summarize stored backtest runs",
	Long: `With file or directory arguments, analyzes every backtest result JSON found.
Without arguments, lists the runs stored in SQLite ranked by net profit, or
analyzes a single stored run with --run.`,
	SilenceUsage: true,
	RunE:         runAnalyze,
}

func init() {
	rootCmd.Flags().StringVar(&runID, "run", "", "Analyze one stored run by ID")
	rootCmd.Flags().IntVar(&limit, "limit", 20, "Stored runs to list")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	if len(args) > 0 {
		files, err := findResultFiles(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintln(out, "No backtest result files found. Run backtest_runner first.")
			return nil
		}
		for _, file := range files {
			result, err := backtesting.LoadResultFile(file)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error reading %s: %v\n", file, err)
				continue
			}
			if err := cli.PrintSummary(out, result); err != nil {
				return err
			}
			if err := cli.PrintTradeAnalysis(out, filepath.Base(file), result.Trades, result.InitialBalance); err != nil {
				return err
			}
			fmt.Fprintln(out)
		}
		return nil
	}

	cfg, appLogger, err := cli.Bootstrap()
	if err != nil {
		return err
	}
	repo, err := cli.OpenRepository(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	defer repo.Close()

	if runID != "" {
		result, err := repo.LoadRun(ctx, runID)
		if err != nil {
			return err
		}
		if err := cli.PrintSummary(out, result); err != nil {
			return err
		}
		return cli.PrintTradeAnalysis(out, runID, result.Trades, result.InitialBalance)
	}

	runs, err := repo.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No stored runs.")
		return nil
	}
	return cli.PrintRuns(out, runs)
}

// findResultFiles expands directories into the .json files they contain.
func findResultFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
				files = append(files, filepath.Join(p, entry.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
