package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/alphacore/internal/domain/regime"
	"github.com/sawpanic/alphacore/internal/persistence"
)

// regimeRepo implements persistence.RegimeRepo for PostgreSQL.
type regimeRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRegimeRepo creates a PostgreSQL-backed RegimeRepo.
func NewRegimeRepo(db *sqlx.DB, timeout time.Duration) persistence.RegimeRepo {
	return &regimeRepo{db: db, timeout: timeout}
}

// Upsert inserts or updates a regime snapshot for (symbol, ts).
func (r *regimeRepo) Upsert(ctx context.Context, snapshot persistence.RegimeSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if !isValidRegime(snapshot.Regime) {
		return fmt.Errorf("invalid regime type: %s", snapshot.Regime)
	}

	query := `
		INSERT INTO regime_snapshots
		(symbol, ts, regime, hurst_exponent, autocorrelation, volatility,
		 trend_strength, confidence, transition_prob)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, ts) DO UPDATE SET
			regime = EXCLUDED.regime,
			hurst_exponent = EXCLUDED.hurst_exponent,
			autocorrelation = EXCLUDED.autocorrelation,
			volatility = EXCLUDED.volatility,
			trend_strength = EXCLUDED.trend_strength,
			confidence = EXCLUDED.confidence,
			transition_prob = EXCLUDED.transition_prob
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		snapshot.Symbol, snapshot.Timestamp, snapshot.Regime, snapshot.HurstExponent,
		snapshot.Autocorrelation, snapshot.Volatility, snapshot.TrendStrength,
		snapshot.Confidence, snapshot.TransitionProb).
		Scan(&snapshot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert regime snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot for a symbol.
func (r *regimeRepo) Latest(ctx context.Context, symbol string) (*persistence.RegimeSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT symbol, ts, regime, hurst_exponent, autocorrelation, volatility,
		       trend_strength, confidence, transition_prob, created_at
		FROM regime_snapshots
		WHERE symbol = $1
		ORDER BY ts DESC
		LIMIT 1`

	row := r.db.QueryRowxContext(ctx, query, symbol)
	snapshot, err := r.scanRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest regime: %w", err)
	}
	return snapshot, nil
}

// ListRange retrieves a symbol's regime history within a window.
func (r *regimeRepo) ListRange(ctx context.Context, symbol string, tr persistence.TimeRange) ([]persistence.RegimeSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT symbol, ts, regime, hurst_exponent, autocorrelation, volatility,
		       trend_strength, confidence, transition_prob, created_at
		FROM regime_snapshots
		WHERE symbol = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC`

	rows, err := r.db.QueryxContext(ctx, query, symbol, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query regime range: %w", err)
	}
	defer rows.Close()

	var snapshots []persistence.RegimeSnapshot
	for rows.Next() {
		snap, err := r.scanRows(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, rows.Err()
}

// GetRegimeStats returns a symbol's regime distribution within a window.
func (r *regimeRepo) GetRegimeStats(ctx context.Context, symbol string, tr persistence.TimeRange) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT regime, COUNT(*)
		FROM regime_snapshots
		WHERE symbol = $1 AND ts >= $2 AND ts <= $3
		GROUP BY regime
		ORDER BY regime`

	rows, err := r.db.QueryxContext(ctx, query, symbol, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query regime stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int64)
	for rows.Next() {
		var label string
		var count int64
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan regime stats: %w", err)
		}
		stats[label] = count
	}
	return stats, rows.Err()
}

func (r *regimeRepo) scanRow(row *sqlx.Row) (*persistence.RegimeSnapshot, error) {
	var s persistence.RegimeSnapshot
	err := row.Scan(&s.Symbol, &s.Timestamp, &s.Regime, &s.HurstExponent, &s.Autocorrelation,
		&s.Volatility, &s.TrendStrength, &s.Confidence, &s.TransitionProb, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *regimeRepo) scanRows(rows *sqlx.Rows) (*persistence.RegimeSnapshot, error) {
	var s persistence.RegimeSnapshot
	err := rows.Scan(&s.Symbol, &s.Timestamp, &s.Regime, &s.HurstExponent, &s.Autocorrelation,
		&s.Volatility, &s.TrendStrength, &s.Confidence, &s.TransitionProb, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// isValidRegime validates a regime label against the detector's known
// classifications.
func isValidRegime(label string) bool {
	for _, r := range []regime.Regime{
		regime.RegimeTrendingHighVol, regime.RegimeTrendingLowVol,
		regime.RegimeMeanRevertingHighVol, regime.RegimeMeanRevertingLowVol,
		regime.RegimeUnknown,
	} {
		if r.String() == label {
			return true
		}
	}
	return false
}
