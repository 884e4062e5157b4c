// Package market defines the core data types shared across the alpha
// pipeline: raw ticks, aggregated candles, and the trade/portfolio
// bookkeeping used by the backtester.
package market

import (
	"math"
	"time"
)

// Side classifies which side of the book a trade executed against.
type Side int

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Tick is a single trade print from a venue feed.
type Tick struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
	BidPrice  float64
	AskPrice  float64
}

// IsValid rejects a tick with a non-positive or non-finite price,
// a non-finite or negative volume, or a zero timestamp. Invalid ticks
// must be dropped before reaching any stateful engine.
func (t Tick) IsValid() bool {
	if t.Price <= 0 || math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		return false
	}
	if t.Volume < 0 || math.IsNaN(t.Volume) || math.IsInf(t.Volume, 0) {
		return false
	}
	return !t.Timestamp.IsZero()
}

// Candle is a fixed-interval OHLCV bar built from a tick stream.
type Candle struct {
	Symbol    string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	OpenTime  time.Time
	CloseTime time.Time
	NumTrades int
}

// NewCandle opens a candle at the given tick.
func NewCandle(symbol string, t Tick) Candle {
	return Candle{
		Symbol:    symbol,
		Open:      t.Price,
		High:      t.Price,
		Low:       t.Price,
		Close:     t.Price,
		Volume:    t.Volume,
		OpenTime:  t.Timestamp,
		CloseTime: t.Timestamp,
		NumTrades: 1,
	}
}

// Update folds a new tick into an open candle.
func (c *Candle) Update(t Tick) {
	if t.Price > c.High {
		c.High = t.Price
	}
	if t.Price < c.Low {
		c.Low = t.Price
	}
	c.Close = t.Price
	c.Volume += t.Volume
	c.CloseTime = t.Timestamp
	c.NumTrades++
}

// Position is an open holding in a single symbol, averaged on entry.
type Position struct {
	Symbol        string
	Quantity      float64
	AvgEntryPrice float64
	CurrentPrice  float64
	TotalCost     float64
	UnrealizedPnL float64
	RealizedPnL   float64
}

// IsFlat reports whether the position carries no exposure.
func (p Position) IsFlat() bool {
	return p.Quantity == 0
}

// Transaction records a single fill against the portfolio ledger.
type Transaction struct {
	Symbol    string
	Timestamp time.Time
	Quantity  float64
	Price     float64
	Type      string // BUY, SELL, or CLOSE
}

// PortfolioMetrics is a point-in-time snapshot of portfolio health.
type PortfolioMetrics struct {
	Cash          float64
	RealizedPnL   float64
	UnrealizedPnL float64
	TotalPnL      float64
	TotalValue    float64
	Exposure      float64
	Leverage      float64
	NumPositions  int
}

// Portfolio tracks cash, open positions, and realized P&L using
// average-cost accounting. It is not safe for concurrent use; callers
// that need concurrency should own one Portfolio per goroutine, in
// keeping with the pipeline's per-symbol ownership model.
type Portfolio struct {
	initialCash float64
	cash        float64
	positions   map[string]*Position
	realizedPnL map[string]float64
	transactions []Transaction
}

// NewPortfolio creates a portfolio seeded with the given cash balance.
func NewPortfolio(initialCash float64) *Portfolio {
	return &Portfolio{
		initialCash:  initialCash,
		cash:         initialCash,
		positions:    make(map[string]*Position),
		realizedPnL:  make(map[string]float64),
	}
}

// AddPosition applies a fill to the portfolio: opening, adding to, or
// closing (or flipping) an existing position, average-cost weighted.
func (p *Portfolio) AddPosition(symbol string, quantity, price float64, ts time.Time) {
	pos, exists := p.positions[symbol]

	if !exists {
		p.positions[symbol] = &Position{
			Symbol:        symbol,
			Quantity:      quantity,
			AvgEntryPrice: price,
			CurrentPrice:  price,
			TotalCost:     absf(quantity) * price,
		}
	} else {
		sameSide := (pos.Quantity > 0 && quantity > 0) || (pos.Quantity < 0 && quantity < 0)
		if sameSide {
			p.updatePositionCost(pos, quantity, price)
		} else {
			closeQty := minf(absf(quantity), absf(pos.Quantity))
			sign := 1.0
			if pos.Quantity < 0 {
				sign = -1.0
			}
			pnl := (price - pos.AvgEntryPrice) * closeQty * sign

			p.realizedPnL[symbol] += pnl
			pos.RealizedPnL += pnl
			pos.Quantity += quantity

			if absf(pos.Quantity) < 1e-8 {
				delete(p.positions, symbol)
			} else if (pos.Quantity > 0) != (sign > 0) {
				pos.AvgEntryPrice = price
				pos.TotalCost = absf(pos.Quantity) * price
			} else {
				pos.TotalCost = absf(pos.Quantity) * pos.AvgEntryPrice
			}
		}
	}

	p.cash -= quantity * price

	txnType := "SELL"
	if quantity > 0 {
		txnType = "BUY"
	}
	p.transactions = append(p.transactions, Transaction{
		Symbol: symbol, Timestamp: ts, Quantity: quantity, Price: price, Type: txnType,
	})
}

func (p *Portfolio) updatePositionCost(pos *Position, quantity, price float64) {
	totalQuantity := pos.Quantity + quantity
	pos.AvgEntryPrice = ((pos.AvgEntryPrice * absf(pos.Quantity)) + (price * absf(quantity))) / absf(totalQuantity)
	pos.Quantity = totalQuantity
	pos.TotalCost = absf(pos.Quantity) * pos.AvgEntryPrice
}

// ClosePosition liquidates the full position in symbol at price.
func (p *Portfolio) ClosePosition(symbol string, price float64, ts time.Time) {
	pos, exists := p.positions[symbol]
	if !exists {
		return
	}

	pnl := (price - pos.AvgEntryPrice) * pos.Quantity
	p.realizedPnL[symbol] += pnl
	pos.RealizedPnL += pnl
	p.cash += pos.Quantity * price

	p.transactions = append(p.transactions, Transaction{
		Symbol: symbol, Timestamp: ts, Quantity: -pos.Quantity, Price: price, Type: "CLOSE",
	})

	delete(p.positions, symbol)
}

// UpdatePrice marks an open position to the latest trade price.
func (p *Portfolio) UpdatePrice(symbol string, price float64) {
	if pos, exists := p.positions[symbol]; exists {
		pos.CurrentPrice = price
		pos.UnrealizedPnL = (price - pos.AvgEntryPrice) * pos.Quantity
	}
}

// Position returns the current position in symbol, or a flat zero
// value if none is held.
func (p *Portfolio) Position(symbol string) Position {
	if pos, exists := p.positions[symbol]; exists {
		return *pos
	}
	return Position{Symbol: symbol}
}

// HasPosition reports whether symbol currently carries exposure.
func (p *Portfolio) HasPosition(symbol string) bool {
	_, exists := p.positions[symbol]
	return exists
}

// Metrics computes a fresh PortfolioMetrics snapshot. Exposure,
// leverage, and total value are conserved: TotalValue always equals
// Cash plus the mark-to-market value of every open position.
func (p *Portfolio) Metrics() PortfolioMetrics {
	m := PortfolioMetrics{Cash: p.cash, NumPositions: len(p.positions)}

	positionsValue := 0.0
	for _, pos := range p.positions {
		positionsValue += pos.Quantity * pos.CurrentPrice
		m.UnrealizedPnL += pos.UnrealizedPnL
		m.Exposure += absf(pos.Quantity * pos.CurrentPrice)
	}
	for _, pnl := range p.realizedPnL {
		m.RealizedPnL += pnl
	}

	m.TotalValue = p.cash + positionsValue
	m.TotalPnL = m.RealizedPnL + m.UnrealizedPnL
	if m.TotalValue > 0 {
		m.Leverage = m.Exposure / m.TotalValue
	}
	return m
}

// Reset returns the portfolio to its initial cash balance with no
// positions, realized P&L, or transaction history.
func (p *Portfolio) Reset() {
	p.positions = make(map[string]*Position)
	p.realizedPnL = make(map[string]float64)
	p.transactions = nil
	p.cash = p.initialCash
}

// Transactions returns the full fill history in execution order.
func (p *Portfolio) Transactions() []Transaction {
	return p.transactions
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
