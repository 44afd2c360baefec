package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3" // SQLite driver

	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/id"
	"smartMoneyBot/internal/ports"
)

// Repository implements the ports.ResultRepository and ports.SignalRepository interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	ids    *id.Generator
	logger ports.Logger
}

var (
	_ ports.ResultRepository = (*Repository)(nil)
	_ ports.SignalRepository = (*Repository)(nil)
)

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/smart_money.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1) // SQLite handles concurrency internally, but Go driver benefits from limiting connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, ids: id.NewGenerator(time.Now().UnixNano()), logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS backtest_runs (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP NOT NULL,
		initial_balance REAL NOT NULL,
		final_balance REAL NOT NULL,
		net_profit REAL NOT NULL,
		total_trades INTEGER NOT NULL,
		sharpe_ratio REAL NOT NULL,
		max_drawdown REAL NOT NULL,
		payload TEXT NOT NULL, -- equity curve, signals and metrics as JSON
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS backtest_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
		trade_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		size REAL NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP NOT NULL,
		risk_amount REAL NOT NULL,
		risk_reward_ratio REAL NOT NULL,
		gross_profit REAL NOT NULL,
		commission REAL NOT NULL,
		net_profit REAL NOT NULL,
		exit_reason TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		action TEXT NOT NULL,
		entry_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		regime TEXT NULL,
		confidence REAL NULL,
		metadata TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_backtest_trades_run ON backtest_trades (run_id);
	CREATE INDEX IF NOT EXISTS idx_signals_symbol_timestamp ON signals (symbol, timestamp);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// runPayload holds the parts of a result stored as a JSON blob.
type runPayload struct {
	EquityCurve []domain.EquityPoint  `json:"equity_curve"`
	Signals     []domain.SignalRecord `json:"signals"`
	Metrics     domain.Metrics        `json:"metrics"`
}

// --- ResultRepository Implementation ---

// SaveRun stores the run and its trade ledger in one transaction. An empty
// result ID is assigned a new ULID, which is also written back to result.
func (r *Repository) SaveRun(ctx context.Context, result *domain.BacktestResult) (string, error) {
	runID := result.ID
	if runID == "" {
		runID = r.ids.New(time.Now())
	}

	payload, err := json.Marshal(runPayload{EquityCurve: result.EquityCurve, Signals: result.Signals, Metrics: result.Metrics})
	if err != nil {
		return "", fmt.Errorf("failed to encode payload for run %s: %w", runID, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: begin transaction: %v", ports.ErrQueryFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const runQuery = `
	INSERT INTO backtest_runs (id, symbol, success, error, start_date, end_date, initial_balance,
	                           final_balance, net_profit, total_trades, sharpe_ratio, max_drawdown, payload, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, runQuery,
		runID, result.Symbol, result.Success, result.Error, result.StartDate.UTC(), result.EndDate.UTC(),
		result.InitialBalance, result.FinalBalance, result.NetProfit(), len(result.Trades),
		result.Metrics.SharpeRatio, result.Metrics.MaxDrawdown, string(payload), time.Now().UTC())
	if err != nil {
		if isConstraintError(err) {
			return "", fmt.Errorf("run %s: %w", runID, ports.ErrDuplicateEntry)
		}
		return "", fmt.Errorf("failed to insert run %s: %w", runID, err)
	}

	const tradeQuery = `
	INSERT INTO backtest_trades (run_id, trade_id, symbol, direction, entry_price, exit_price, stop_loss,
	                             take_profit, size, entry_time, exit_time, risk_amount, risk_reward_ratio,
	                             gross_profit, commission, net_profit, exit_reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, tradeQuery)
	if err != nil {
		return "", fmt.Errorf("failed to prepare trade insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range result.Trades {
		_, err := stmt.ExecContext(ctx,
			runID, t.ID, t.Symbol, string(t.Direction), t.EntryPrice, t.ExitPrice, t.StopLoss,
			t.TakeProfit, t.Size, t.EntryTime.UTC(), t.ExitTime.UTC(), t.RiskAmount, t.RiskRewardRatio,
			t.GrossProfit, t.Commission, t.NetProfit, string(t.ExitReason))
		if err != nil {
			return "", fmt.Errorf("failed to insert trade %s for run %s: %w", t.ID, runID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: commit run %s: %v", ports.ErrQueryFailed, runID, err)
	}

	result.ID = runID
	r.logger.Debug(ctx, "Backtest run saved", map[string]interface{}{"runID": runID, "trades": len(result.Trades)})
	return runID, nil
}

// LoadRun restores a run with its trade ledger in insertion order.
func (r *Repository) LoadRun(ctx context.Context, runID string) (*domain.BacktestResult, error) {
	const query = `
	SELECT id, symbol, success, error, start_date, end_date, initial_balance, final_balance, payload
	FROM backtest_runs WHERE id = ?`

	res := &domain.BacktestResult{}
	var payload string
	err := r.db.QueryRowContext(ctx, query, runID).Scan(
		&res.ID, &res.Symbol, &res.Success, &res.Error, &res.StartDate, &res.EndDate,
		&res.InitialBalance, &res.FinalBalance, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query run %s: %w", runID, err)
	}

	var p runPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload for run %s: %w", runID, err)
	}
	res.EquityCurve, res.Signals, res.Metrics = p.EquityCurve, p.Signals, p.Metrics

	trades, err := r.runTrades(ctx, runID)
	if err != nil {
		return nil, err
	}
	res.Trades = trades
	return res, nil
}

func (r *Repository) runTrades(ctx context.Context, runID string) ([]domain.Trade, error) {
	const query = `
	SELECT trade_id, symbol, direction, entry_price, exit_price, stop_loss, take_profit, size,
	       entry_time, exit_time, risk_amount, risk_reward_ratio, gross_profit, commission, net_profit, exit_reason
	FROM backtest_trades WHERE run_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for run %s: %w", runID, err)
	}
	defer rows.Close()

	trades := make([]domain.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade for run %s: %w", runID, err)
		}
		trades = append(trades, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// ListRuns returns up to limit run summaries, best net profit first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
	SELECT id, symbol, final_balance, net_profit, total_trades, sharpe_ratio
	FROM backtest_runs ORDER BY net_profit DESC, created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]ports.RunSummary, 0)
	for rows.Next() {
		var s ports.RunSummary
		if err := rows.Scan(&s.ID, &s.Symbol, &s.FinalBalance, &s.NetProfit, &s.TotalTrades, &s.SharpeRatio); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		runs = append(runs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}

// --- SignalRepository Implementation ---

// SaveSignal records a signal and returns its row ID.
func (r *Repository) SaveSignal(ctx context.Context, rec *domain.SignalRecord) (int64, error) {
	const query = `
	INSERT INTO signals (symbol, timestamp, action, entry_price, stop_loss, take_profit, regime, confidence, metadata)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to encode signal metadata: %w", err)
	}
	var regime sql.NullString
	var confidence sql.NullFloat64
	if info := rec.Metadata.Regime; info != nil {
		regime = sql.NullString{String: string(info.Regime), Valid: true}
		confidence = sql.NullFloat64{Float64: info.Confidence, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		rec.Symbol, rec.Time.UTC(), string(rec.Action), rec.EntryPrice, rec.StopLoss, rec.TakeProfit,
		regime, confidence, string(meta))
	if err != nil {
		return 0, fmt.Errorf("failed to insert signal for symbol %s: %w", rec.Symbol, err)
	}

	rowID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for signal %s: %w", rec.Symbol, err)
	}
	r.logger.Debug(ctx, "Signal recorded", map[string]interface{}{"signalID": rowID, "symbol": rec.Symbol, "action": string(rec.Action)})
	return rowID, nil
}

// RecentSignals retrieves the newest signals for a symbol, up to a limit.
func (r *Repository) RecentSignals(ctx context.Context, symbol string, limit int) ([]*domain.SignalRecord, error) {
	const query = `
	SELECT symbol, timestamp, action, entry_price, stop_loss, take_profit, metadata
	FROM signals WHERE symbol = ? ORDER BY timestamp DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals for symbol %s: %w", symbol, err)
	}
	defer rows.Close()

	records := make([]*domain.SignalRecord, 0)
	for rows.Next() {
		rec, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signal rows: %w", err)
	}
	return records, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (domain.Trade, error) {
	var t domain.Trade
	var direction, reason string
	err := s.Scan(
		&t.ID, &t.Symbol, &direction, &t.EntryPrice, &t.ExitPrice, &t.StopLoss, &t.TakeProfit, &t.Size,
		&t.EntryTime, &t.ExitTime, &t.RiskAmount, &t.RiskRewardRatio, &t.GrossProfit, &t.Commission,
		&t.NetProfit, &reason)
	if err != nil {
		return domain.Trade{}, err
	}
	t.Direction = domain.Direction(direction)
	t.ExitReason = domain.ExitReason(reason)
	return t, nil
}

func scanSignal(s scanner) (*domain.SignalRecord, error) {
	rec := &domain.SignalRecord{}
	var action, meta string
	err := s.Scan(&rec.Symbol, &rec.Time, &action, &rec.EntryPrice, &rec.StopLoss, &rec.TakeProfit, &meta)
	if err != nil {
		return nil, err
	}
	rec.Action = domain.Action(action)
	if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode signal metadata: %w", err)
	}
	return rec, nil
}

func isConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
