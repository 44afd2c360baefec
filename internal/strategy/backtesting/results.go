package backtesting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"smartMoneyBot/internal/domain"
)

// SaveResult writes r as indented JSON.
func SaveResult(w io.Writer, r *domain.BacktestResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding backtest result: %w", err)
	}
	return nil
}

// LoadResult reads a result written by SaveResult.
func LoadResult(rd io.Reader) (*domain.BacktestResult, error) {
	var r domain.BacktestResult
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding backtest result: %w", err)
	}
	return &r, nil
}

// SaveResultFile writes r to path, creating parent directories as needed.
func SaveResultFile(path string, r *domain.BacktestResult) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating result directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating result file %s: %w", path, err)
	}
	defer f.Close()
	return SaveResult(f, r)
}

// LoadResultFile reads a result written by SaveResultFile.
func LoadResultFile(path string) (*domain.BacktestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening result file %s: %w", path, err)
	}
	defer f.Close()
	return LoadResult(f)
}
