package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TimeRange represents a time window for data queries.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// BacktestRun is the summary row for one completed backtest.Run call:
// its configuration, its headline performance numbers, and a UUID that
// ties it to its BacktestTrade rows.
type BacktestRun struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Symbol         string    `json:"symbol" db:"symbol"`
	StartedAt      time.Time `json:"started_at" db:"started_at"`
	InitialCapital float64   `json:"initial_capital" db:"initial_capital"`
	FinalCapital   float64   `json:"final_capital" db:"final_capital"`
	TotalReturn    float64   `json:"total_return" db:"total_return"`
	NumTrades      int       `json:"num_trades" db:"num_trades"`
	SharpeRatio    float64   `json:"sharpe_ratio" db:"sharpe_ratio"`
	SortinoRatio   float64   `json:"sortino_ratio" db:"sortino_ratio"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct" db:"max_drawdown_pct"`
	WinRate        float64   `json:"win_rate" db:"win_rate"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// BacktestTrade is one completed round trip from a backtest run,
// associated with its parent BacktestRun by RunID.
type BacktestTrade struct {
	ID         int64     `json:"id" db:"id"`
	RunID      uuid.UUID `json:"run_id" db:"run_id"`
	Symbol     string    `json:"symbol" db:"symbol"`
	EntryPrice float64   `json:"entry_price" db:"entry_price"`
	ExitPrice  float64   `json:"exit_price" db:"exit_price"`
	Quantity   float64   `json:"quantity" db:"quantity"`
	EntryTime  time.Time `json:"entry_time" db:"entry_time"`
	ExitTime   time.Time `json:"exit_time" db:"exit_time"`
	PnL        float64   `json:"pnl" db:"pnl"`
	Commission float64   `json:"commission" db:"commission"`
	IsShort    bool      `json:"is_short" db:"is_short"`
	ExitReason string    `json:"exit_reason" db:"exit_reason"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// RegimeSnapshot persists one regime.Detector.Metrics() reading for a
// symbol at a point in time.
type RegimeSnapshot struct {
	Timestamp       time.Time `json:"ts" db:"ts"`
	Symbol          string    `json:"symbol" db:"symbol"`
	Regime          string    `json:"regime" db:"regime"`
	HurstExponent   float64   `json:"hurst_exponent" db:"hurst_exponent"`
	Autocorrelation float64   `json:"autocorrelation" db:"autocorrelation"`
	Volatility      float64   `json:"volatility" db:"volatility"`
	TrendStrength   float64   `json:"trend_strength" db:"trend_strength"`
	Confidence      float64   `json:"confidence" db:"confidence"`
	TransitionProb  float64   `json:"transition_prob" db:"transition_prob"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// BacktestRepo persists backtest runs and their constituent trades,
// keyed by a per-run UUID.
type BacktestRepo interface {
	// InsertRun records a completed run's summary under run.ID, which the
	// caller sets before calling since trades reference it. When run.ID
	// is uuid.Nil an ID is generated for the row but not reported back.
	InsertRun(ctx context.Context, run BacktestRun) error

	// InsertTrades atomically records every trade belonging to runID.
	InsertTrades(ctx context.Context, runID uuid.UUID, trades []BacktestTrade) error

	// GetRun retrieves a run summary by ID.
	GetRun(ctx context.Context, runID uuid.UUID) (*BacktestRun, error)

	// ListRuns retrieves the most recent runs for a symbol.
	ListRuns(ctx context.Context, symbol string, limit int) ([]BacktestRun, error)

	// ListTrades retrieves every trade belonging to a run.
	ListTrades(ctx context.Context, runID uuid.UUID) ([]BacktestTrade, error)
}

// RegimeRepo provides regime snapshot persistence.
type RegimeRepo interface {
	// Upsert inserts or updates a regime snapshot for (symbol, ts).
	Upsert(ctx context.Context, snapshot RegimeSnapshot) error

	// Latest returns the most recent snapshot for a symbol.
	Latest(ctx context.Context, symbol string) (*RegimeSnapshot, error)

	// ListRange retrieves a symbol's regime history within a window.
	ListRange(ctx context.Context, symbol string, tr TimeRange) ([]RegimeSnapshot, error)

	// GetRegimeStats returns a symbol's regime distribution within a
	// window, keyed by regime label.
	GetRegimeStats(ctx context.Context, symbol string, tr TimeRange) (map[string]int64, error)
}

// Repository aggregates all persistence interfaces.
type Repository struct {
	Backtests BacktestRepo
	Regimes   RegimeRepo
}

// HealthCheck represents repository health status.
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for the persistence layer.
type RepositoryHealth interface {
	Health(ctx context.Context) HealthCheck
	Ping(ctx context.Context) error
	Stats(ctx context.Context) map[string]interface{}
}
