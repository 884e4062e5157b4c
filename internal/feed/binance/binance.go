// Package binance implements a live feed.Feed over Binance's aggTrade
// WebSocket stream, decoding trade prints into market.Tick and
// reconnecting with rate-limited exponential backoff on disconnect.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sawpanic/alphacore/internal/domain/market"
	"github.com/sawpanic/alphacore/internal/feed"
	"github.com/sawpanic/alphacore/internal/infrastructure/httpclient"
)

const (
	streamBaseURL = "wss://stream.binance.com:9443/ws"
	restBaseURL   = "https://api.binance.com"
)

// restAggTrade mirrors the fields of Binance's REST
// /api/v3/aggTrades response this feed cares about.
type restAggTrade struct {
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// aggTrade mirrors the fields of Binance's aggTrade stream payload
// that this feed cares about.
type aggTrade struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// Config configures connection target and reconnect behavior.
type Config struct {
	Symbols        []string // lowercase, e.g. "btcusdt"
	ReconnectLimit rate.Limit
	ReconnectBurst int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	DialTimeout    time.Duration
}

// DefaultConfig returns a conservative single-symbol configuration.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbols:        []string{symbol},
		ReconnectLimit: rate.Every(time.Second),
		ReconnectBurst: 1,
		BackoffBase:    500 * time.Millisecond,
		BackoffMax:     30 * time.Second,
		DialTimeout:    10 * time.Second,
	}
}

// Feed is a feed.Feed implementation streaming live trades from
// Binance. Start spawns its single background reader goroutine before
// performing any blocking dial or read, so a caller's onTick callback
// is guaranteed to be wired before the connection attempt begins -
// unlike the blocking-poll-loop-before-worker-spawn ordering this
// replaces.
type Feed struct {
	config  Config
	limiter *rate.Limiter
	rest    *httpclient.ClientPool

	// restBaseURLOverride replaces restBaseURL when set, for pointing
	// historical backfill at a test server.
	restBaseURLOverride string

	mu      sync.Mutex
	conn    *websocket.Conn
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Binance feed with the given configuration.
func New(config Config) *Feed {
	return &Feed{
		config:  config,
		limiter: rate.NewLimiter(config.ReconnectLimit, config.ReconnectBurst),
		rest: httpclient.NewClientPool(httpclient.ClientConfig{
			MaxConcurrency: 4,
			RequestTimeout: config.DialTimeout,
			MaxRetries:     2,
			BackoffBase:    config.BackoffBase,
			BackoffMax:     config.BackoffMax,
			UserAgent:      "alphacore-binance-feed",
		}),
	}
}

// FetchHistoricalTrades backfills the first configured symbol's recent
// aggregate trades over REST, for seeding a backtest or replay run
// before a live stream attaches. limit is capped at 1000 by Binance.
func (f *Feed) FetchHistoricalTrades(ctx context.Context, limit int) ([]market.Tick, error) {
	if len(f.config.Symbols) == 0 {
		return nil, fmt.Errorf("binance feed: no symbols configured")
	}
	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	base := restBaseURL
	if f.restBaseURLOverride != "" {
		base = f.restBaseURLOverride
	}
	endpoint := fmt.Sprintf("%s/api/v3/aggTrades?symbol=%s&limit=%d",
		base, url.QueryEscape(upperSymbol(f.config.Symbols[0])), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build historical trades request: %w", err)
	}

	resp, err := f.rest.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch historical trades: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read historical trades response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("historical trades request failed: HTTP %d", resp.StatusCode)
	}

	var raw []restAggTrade
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode historical trades response: %w", err)
	}

	symbol := f.config.Symbols[0]
	ticks := make([]market.Tick, 0, len(raw))
	for _, t := range raw {
		price, err := strconv.ParseFloat(t.Price, 64)
		if err != nil || price <= 0 {
			continue
		}
		qty, err := strconv.ParseFloat(t.Quantity, 64)
		if err != nil || qty < 0 {
			continue
		}
		ticks = append(ticks, market.Tick{
			Symbol:    symbol,
			Price:     price,
			Volume:    qty,
			Timestamp: time.UnixMilli(t.TradeTime),
		})
	}
	return ticks, nil
}

func upperSymbol(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

var _ feed.Feed = (*Feed)(nil)

// Start spawns the background read-and-reconnect loop and returns
// immediately.
func (f *Feed) Start(onTick feed.OnTick) error {
	ctx, cancel := context.WithCancel(context.Background())
	f.mu.Lock()
	f.cancel = cancel
	f.done = make(chan struct{})
	f.mu.Unlock()

	go f.run(ctx, onTick)
	return nil
}

// Stop signals the background loop to exit and waits for it to finish.
func (f *Feed) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	cancel := f.cancel
	done := f.done
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if f.conn != nil {
		f.conn.Close()
	}
	if done != nil {
		<-done
	}
}

func (f *Feed) run(ctx context.Context, onTick feed.OnTick) {
	defer close(f.done)

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if attempt > 0 {
			if err := f.limiter.Wait(ctx); err != nil {
				return
			}
			backoff := f.calculateBackoff(attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
		}

		if err := f.connectAndRead(ctx, onTick); err != nil {
			log.Warn().Err(err).Str("url", f.streamURL()).Msg("binance feed disconnected, reconnecting")
			attempt++
			continue
		}
		attempt = 0
	}
}

func (f *Feed) calculateBackoff(attempt int) time.Duration {
	backoff := f.config.BackoffBase * time.Duration(1<<uint(attempt))
	if backoff > f.config.BackoffMax {
		backoff = f.config.BackoffMax
	}
	return backoff
}

func (f *Feed) streamURL() string {
	streams := ""
	for i, s := range f.config.Symbols {
		if i > 0 {
			streams += "/"
		}
		streams += s + "@aggTrade"
	}
	return streamBaseURL + "/" + streams
}

func (f *Feed) connectAndRead(ctx context.Context, onTick feed.OnTick) error {
	dialer := websocket.Dialer{HandshakeTimeout: f.config.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, f.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("dial binance stream: %w", err)
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read binance stream: %w", err)
		}

		tick, ok := decodeAggTrade(payload)
		if !ok {
			continue
		}
		onTick(tick)
	}
}

func decodeAggTrade(payload []byte) (market.Tick, bool) {
	var trade aggTrade
	if err := json.Unmarshal(payload, &trade); err != nil {
		return market.Tick{}, false
	}
	if trade.EventType != "aggTrade" {
		return market.Tick{}, false
	}

	price, err := strconv.ParseFloat(trade.Price, 64)
	if err != nil || price <= 0 {
		return market.Tick{}, false
	}
	qty, err := strconv.ParseFloat(trade.Quantity, 64)
	if err != nil || qty < 0 {
		return market.Tick{}, false
	}

	return market.Tick{
		Symbol:    trade.Symbol,
		Price:     price,
		Volume:    qty,
		Timestamp: time.UnixMilli(trade.TradeTime),
	}, true
}
