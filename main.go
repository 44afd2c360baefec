package main

import (
	"context"
	"log" // Use standard log only for fatal errors before the logger is set up
	"os"
	"os/signal"
	"syscall"

	"smartMoneyBot/internal/app"
	"smartMoneyBot/internal/cli"
)

func main() {
	// 1. Load Configuration and Logger
	cfg, appLogger, err := cli.Bootstrap()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 2. Initialize Repository (Database Adapter)
	repo, err := cli.OpenRepository(cfg, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 3. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := cli.NewBinanceClient(cfg, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	// 4. Initialize Signal Generator (strategy behind regime detection)
	generator, err := cfg.Setup().NewSignalGenerator(appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize signal generator")
		log.Fatalf("FATAL: Failed to initialize signal generator: %v", err)
	}

	// 5. Initialize Monitor
	monitor, err := app.NewSignalMonitor(cfg.MonitorConfig(), binanceClient, generator, repo, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize signal monitor")
		log.Fatalf("FATAL: Failed to initialize signal monitor: %v", err)
	}

	// 6. Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := monitor.Run(ctx); err != nil {
		appLogger.Error(context.Background(), err, "Signal monitor exited with error")
		os.Exit(1)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
