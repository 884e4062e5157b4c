package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/alphacore/internal/persistence"
)

// backtestRepo implements persistence.BacktestRepo for PostgreSQL.
type backtestRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewBacktestRepo creates a PostgreSQL-backed BacktestRepo.
func NewBacktestRepo(db *sqlx.DB, timeout time.Duration) persistence.BacktestRepo {
	return &backtestRepo{db: db, timeout: timeout}
}

func (r *backtestRepo) InsertRun(ctx context.Context, run persistence.BacktestRun) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	query := `
		INSERT INTO backtest_runs
		(id, symbol, started_at, initial_capital, final_capital, total_return,
		 num_trades, sharpe_ratio, sortino_ratio, max_drawdown_pct, win_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Symbol, run.StartedAt, run.InitialCapital, run.FinalCapital,
		run.TotalReturn, run.NumTrades, run.SharpeRatio, run.SortinoRatio,
		run.MaxDrawdownPct, run.WinRate)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate backtest run: %w", err)
		}
		return fmt.Errorf("failed to insert backtest run: %w", err)
	}
	return nil
}

func (r *backtestRepo) InsertTrades(ctx context.Context, runID uuid.UUID, trades []persistence.BacktestTrade) error {
	if len(trades) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(trades)/100+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_trades
		(run_id, symbol, entry_price, exit_price, quantity, entry_time, exit_time,
		 pnl, commission, is_short, exit_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, tr := range trades {
		_, err = stmt.ExecContext(ctx,
			runID, tr.Symbol, tr.EntryPrice, tr.ExitPrice, tr.Quantity,
			tr.EntryTime, tr.ExitTime, tr.PnL, tr.Commission, tr.IsShort, tr.ExitReason)
		if err != nil {
			return fmt.Errorf("failed to insert backtest trade: %w", err)
		}
	}

	return tx.Commit()
}

func (r *backtestRepo) GetRun(ctx context.Context, runID uuid.UUID) (*persistence.BacktestRun, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, symbol, started_at, initial_capital, final_capital, total_return,
		       num_trades, sharpe_ratio, sortino_ratio, max_drawdown_pct, win_rate, created_at
		FROM backtest_runs
		WHERE id = $1`

	var run persistence.BacktestRun
	err := r.db.QueryRowxContext(ctx, query, runID).StructScan(&run)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get backtest run: %w", err)
	}
	return &run, nil
}

func (r *backtestRepo) ListRuns(ctx context.Context, symbol string, limit int) ([]persistence.BacktestRun, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, symbol, started_at, initial_capital, final_capital, total_return,
		       num_trades, sharpe_ratio, sortino_ratio, max_drawdown_pct, win_rate, created_at
		FROM backtest_runs
		WHERE symbol = $1
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := r.db.QueryxContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []persistence.BacktestRun
	for rows.Next() {
		var run persistence.BacktestRun
		if err := rows.StructScan(&run); err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *backtestRepo) ListTrades(ctx context.Context, runID uuid.UUID) ([]persistence.BacktestTrade, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, run_id, symbol, entry_price, exit_price, quantity, entry_time,
		       exit_time, pnl, commission, is_short, exit_reason, created_at
		FROM backtest_trades
		WHERE run_id = $1
		ORDER BY entry_time ASC`

	rows, err := r.db.QueryxContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list backtest trades: %w", err)
	}
	defer rows.Close()

	var trades []persistence.BacktestTrade
	for rows.Next() {
		var tr persistence.BacktestTrade
		if err := rows.StructScan(&tr); err != nil {
			return nil, fmt.Errorf("failed to scan backtest trade: %w", err)
		}
		trades = append(trades, tr)
	}
	return trades, rows.Err()
}
