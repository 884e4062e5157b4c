// Package cache stores the latest per-symbol SignalRecord in Redis so
// the (out-of-scope) dashboard collaborator has something to poll via
// internal/httpapi rather than needing its own subscription to the
// tick stream.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sawpanic/alphacore/internal/composer"
)

// Config configures the Redis connection and default TTL for cached
// signal records.
type Config struct {
	Addr       string
	DB         int
	DefaultTTL time.Duration
}

// SignalCache reads and writes the latest SignalRecord per symbol.
type SignalCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a SignalCache against the given Redis address.
func New(config Config) *SignalCache {
	client := redis.NewClient(&redis.Options{
		Addr: config.Addr,
		DB:   config.DB,
	})
	return &SignalCache{client: client, ttl: config.DefaultTTL}
}

func key(symbol string) string {
	return fmt.Sprintf("alphacore:signal:%s", symbol)
}

// cachedRecord is the JSON-serializable subset of a composer.SignalRecord
// stored in Redis; nested analyzer structs are flattened into their
// sink-boundary string forms.
type cachedRecord struct {
	Symbol         string    `json:"symbol"`
	Timestamp      time.Time `json:"timestamp"`
	Momentum       float64   `json:"momentum"`
	MeanRevZ       float64   `json:"mean_rev_z"`
	VPIN           float64   `json:"vpin"`
	Toxicity       float64   `json:"toxicity"`
	OFI            float64   `json:"ofi"`
	Regime         string    `json:"regime"`
	VWAP           float64   `json:"vwap"`
	CombinedScore  float64   `json:"combined_score"`
	Recommendation string    `json:"recommendation"`
}

// Set stores the latest SignalRecord for its symbol, overwriting any
// previous entry and resetting the TTL.
func (c *SignalCache) Set(ctx context.Context, record composer.SignalRecord) error {
	payload := cachedRecord{
		Symbol:         record.Symbol,
		Timestamp:      record.Timestamp,
		Momentum:       record.TickSignal.Momentum,
		MeanRevZ:       record.TickSignal.MeanRevZ,
		VPIN:           record.VPIN.VPIN,
		Toxicity:       record.VPIN.Toxicity,
		OFI:            record.OrderFlow.OFI,
		Regime:         record.Regime.Regime.String(),
		VWAP:           record.VWAP.VWAP,
		CombinedScore:  record.CombinedScore,
		Recommendation: record.Recommendation.String(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal signal record: %w", err)
	}

	if err := c.client.Set(ctx, key(record.Symbol), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", record.Symbol, err)
	}
	return nil
}

// Get returns the last cached signal for symbol, or false if no entry
// exists or it has expired.
func (c *SignalCache) Get(ctx context.Context, symbol string) (map[string]interface{}, bool) {
	data, err := c.client.Get(ctx, key(symbol)).Bytes()
	if err != nil {
		return nil, false
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Close releases the underlying Redis connection pool.
func (c *SignalCache) Close() error {
	return c.client.Close()
}
