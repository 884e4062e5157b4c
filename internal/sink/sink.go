// Package sink exports computed signals to a time-series line-protocol
// endpoint (InfluxDB-compatible). Writes are queued and flushed by a
// single background goroutine so callers on the hot tick path never
// block on network I/O; a circuit breaker around the HTTP POST keeps a
// failing endpoint from starving the queue with retries.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/alphacore/internal/telemetry"
)

// Sink is the write surface every pipeline component emits through. It
// is passed in explicitly at construction time rather than reached for
// as a process-wide global, so a composer can run multiple independent
// pipelines (e.g. one per test) against distinct sinks in the same
// process.
type Sink interface {
	WriteAlphaSignal(symbol string, momentum, meanRevZ, rsi, vbr float64, signalType string)
	WriteMicrostructure(symbol string, vpin, toxicity, lambda, spread float64, tsNanos int64)
	WriteOrderFlow(symbol string, ofi, bidPressure, askPressure, volumeDelta float64, tsNanos int64)
	WriteRegime(symbol, regime string, hurst, volatility, trendStrength float64, tsNanos int64)
	WriteVWAP(symbol string, vwap, deviation float64, tsNanos int64)
	WriteCandle(symbol string, o, h, l, c, v float64, tsNanos int64)
	WriteTick(symbol string, price, volume float64, tsNanos int64)
	Flush()
}

// NoopSink discards every write. Used in tests and in dry-run CLI
// modes where no telemetry endpoint is configured.
type NoopSink struct{}

func (NoopSink) WriteAlphaSignal(string, float64, float64, float64, float64, string)      {}
func (NoopSink) WriteMicrostructure(string, float64, float64, float64, float64, int64)    {}
func (NoopSink) WriteOrderFlow(string, float64, float64, float64, float64, int64)         {}
func (NoopSink) WriteRegime(string, string, float64, float64, float64, int64)             {}
func (NoopSink) WriteVWAP(string, float64, float64, int64)                                {}
func (NoopSink) WriteCandle(string, float64, float64, float64, float64, float64, int64)   {}
func (NoopSink) WriteTick(string, float64, float64, int64)                                {}
func (NoopSink) Flush()                                                                   {}

// Config configures a LineProtocolSink's endpoint and write behavior.
type Config struct {
	URL            string
	Org            string
	Bucket         string
	Token          string
	QueueCapacity  int
	FlushInterval  time.Duration
	RequestTimeout time.Duration
}

// DefaultConfig returns sane defaults for a local or staging endpoint.
func DefaultConfig() Config {
	return Config{
		QueueCapacity:  10000,
		FlushInterval:  10 * time.Millisecond,
		RequestTimeout: 5 * time.Second,
	}
}

// LineProtocolSink batches line-protocol points in a mutex-guarded
// FIFO queue and drains them on a single background goroutine via HTTP
// POST, matching the async-writer-thread-plus-queue shape of the
// system this replaces, with the process-wide writer made an
// explicit, constructor-injected dependency instead of a singleton.
type LineProtocolSink struct {
	config Config
	client *http.Client
	cb     *gobreaker.CircuitBreaker

	mu    sync.Mutex
	queue []string

	stop chan struct{}
	done chan struct{}
}

// New creates a LineProtocolSink and starts its background writer
// goroutine.
func New(config Config) *LineProtocolSink {
	s := &LineProtocolSink{
		config: config,
		client: &http.Client{Timeout: config.RequestTimeout},
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sink-write",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	go s.writerLoop()
	return s
}

func (s *LineProtocolSink) enqueue(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) >= s.config.QueueCapacity {
		log.Warn().Str("measurement", line).Msg("sink queue full, dropping point")
		return
	}
	s.queue = append(s.queue, line)
	telemetry.SinkQueueDepth.WithLabelValues("line_protocol").Set(float64(len(s.queue)))
}

func (s *LineProtocolSink) writerLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			s.drain()
			return
		case <-ticker.C:
			s.drain()
		}
	}
}

func (s *LineProtocolSink) drain() {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.queue
	s.queue = nil
	s.mu.Unlock()
	telemetry.SinkQueueDepth.WithLabelValues("line_protocol").Set(0)

	for _, line := range batch {
		if _, err := s.cb.Execute(func() (interface{}, error) {
			return nil, s.writeLine(line)
		}); err != nil {
			log.Error().Err(err).Msg("sink write failed")
		}
	}
}

func (s *LineProtocolSink) writeLine(line string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RequestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/v2/write?org=%s&bucket=%s&precision=ns", s.config.URL, s.config.Org, s.config.Bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(line))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+s.config.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sink write returned status %d", resp.StatusCode)
	}
	return nil
}

// Flush blocks until the queue drains, then stops the background
// writer. Matches the original InfluxWriter's flush()/destructor
// shape: callers that want to keep writing after a manual flush should
// not call this — it is a terminal shutdown, not a barrier.
func (s *LineProtocolSink) Flush() {
	close(s.stop)
	<-s.done
}

func (s *LineProtocolSink) WriteAlphaSignal(symbol string, momentum, meanRevZ, rsi, vbr float64, signalType string) {
	line := fmt.Sprintf("alpha_signal,symbol=%s momentum=%g,meanRevZ=%g,rsi=%g,vbr=%g,signal_type=\"%s\"",
		symbol, momentum, meanRevZ, rsi, vbr, signalType)
	s.enqueue(line)
}

func (s *LineProtocolSink) WriteMicrostructure(symbol string, vpin, toxicity, lambda, spread float64, tsNanos int64) {
	line := fmt.Sprintf("microstructure,symbol=%s vpin=%g,toxicity=%g,lambda=%g,spread=%g %d",
		symbol, vpin, toxicity, lambda, spread, tsNanos)
	s.enqueue(line)
}

func (s *LineProtocolSink) WriteOrderFlow(symbol string, ofi, bidPressure, askPressure, volumeDelta float64, tsNanos int64) {
	line := fmt.Sprintf("orderflow,symbol=%s ofi=%g,bid_pressure=%g,ask_pressure=%g,volume_delta=%g %d",
		symbol, ofi, bidPressure, askPressure, volumeDelta, tsNanos)
	s.enqueue(line)
}

func (s *LineProtocolSink) WriteRegime(symbol, regime string, hurst, volatility, trendStrength float64, tsNanos int64) {
	line := fmt.Sprintf("regime,symbol=%s,regime=%s hurst=%g,volatility=%g,trend_strength=%g %d",
		symbol, regime, hurst, volatility, trendStrength, tsNanos)
	s.enqueue(line)
}

func (s *LineProtocolSink) WriteVWAP(symbol string, vwap, deviation float64, tsNanos int64) {
	line := fmt.Sprintf("vwap,symbol=%s vwap=%g,deviation=%g %d", symbol, vwap, deviation, tsNanos)
	s.enqueue(line)
}

func (s *LineProtocolSink) WriteCandle(symbol string, o, h, l, c, v float64, tsNanos int64) {
	line := fmt.Sprintf("candles,symbol=%s open=%g,high=%g,low=%g,close=%g,volume=%g %d",
		symbol, o, h, l, c, v, tsNanos)
	s.enqueue(line)
}

func (s *LineProtocolSink) WriteTick(symbol string, price, volume float64, tsNanos int64) {
	line := fmt.Sprintf("ticks,symbol=%s price=%g,volume=%g %d", symbol, price, volume, tsNanos)
	s.enqueue(line)
}
