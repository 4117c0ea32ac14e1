package bookstate

import (
	"time"

	"github.com/shopspring/decimal"

	"shadowtrader/feed"
)

// MetricSnapshot is the derived-feature snapshot spec.md §3 describes,
// keyed by monotonic millisecond. It is a value type: components that
// evaluate a snapshot never mutate the book concurrently with its
// computation.
type MetricSnapshot struct {
	Symbol      string
	TimestampMs int64

	BestBid decimal.Decimal
	BestAsk decimal.Decimal
	Spread  decimal.Decimal

	QueueImbalance float64

	BidWallAgeMs int64
	AskWallAgeMs int64

	BidAbsorptionRate decimal.Decimal
	AskAbsorptionRate decimal.Decimal

	TapeAcceleration float64

	TradesIn3Sec    int
	BidTradesIn3Sec int
	AskTradesIn3Sec int

	Depth1s map[feed.Side]DepthDeltaSnapshot
	Depth3s map[feed.Side]DepthDeltaSnapshot

	CumulativeVwap decimal.Decimal
	Window3sVwap   decimal.Decimal
	Window3sVolume decimal.Decimal

	LastTradePrice decimal.Decimal
	HasLastTrade   bool
}

// OrderFlowMetrics aggregates one symbol's book and feature trackers into
// MetricSnapshot values, on demand, per trigger event (a fresh depth
// update or trade print).
type OrderFlowMetrics struct {
	book *OrderBookState
}

func NewOrderFlowMetrics(book *OrderBookState) *OrderFlowMetrics {
	return &OrderFlowMetrics{book: book}
}

// TapeReadiness reports the data the tape-readiness gate (spec.md §4.3 step
// 6) needs: how many trades landed within warmupWindow, and how long it has
// been since the last trade (0 with hasTrade false if none has ever
// printed).
func (m *OrderFlowMetrics) TapeReadiness(now time.Time, warmupWindow time.Duration) (tradesInWarmupWindow int, lastTradeAgeMs int64, hasTrade bool) {
	b := m.book
	b.mu.RLock()
	defer b.mu.RUnlock()

	nowMs := now.UnixMilli()
	lastMs := b.velocity.LastTradeMs()
	if lastMs == 0 {
		return 0, 0, false
	}
	count, _, _ := b.velocity.CountWindow(nowMs, warmupWindow.Milliseconds())
	return count, nowMs - lastMs, true
}

// Snapshot computes the current MetricSnapshot for the book's symbol at
// now. topN controls how many price levels feed queue_imbalance (spec.md
// typically uses the top few levels).
func (m *OrderFlowMetrics) Snapshot(now time.Time, topN int) MetricSnapshot {
	b := m.book
	b.mu.RLock()
	defer b.mu.RUnlock()

	nowMs := now.UnixMilli()

	bestBid := decimal.Zero
	if len(b.bids) > 0 {
		bestBid = b.bids[0].Price
	}
	bestAsk := decimal.Zero
	if len(b.asks) > 0 {
		bestAsk = b.asks[0].Price
	}
	spread := decimal.Zero
	if len(b.bids) > 0 && len(b.asks) > 0 {
		spread = bestAsk.Sub(bestBid)
	}

	bidSize := sumSize(b.bids, topN)
	askSize := sumSize(b.asks, topN)
	qi := 0.0
	if total := bidSize.Add(askSize); total.IsPositive() {
		qi, _ = bidSize.Div(total).Float64()
	}

	total3s, bid3s, ask3s := b.velocity.TradesIn3Sec(nowMs)

	cumVwap := b.vwap.Cumulative()
	winVwap, winVol := b.vwap.Window3s(nowMs)

	return MetricSnapshot{
		Symbol:            b.Symbol,
		TimestampMs:       nowMs,
		BestBid:           bestBid,
		BestAsk:           bestAsk,
		Spread:            spread,
		QueueImbalance:    qi,
		BidWallAgeMs:      b.wallBid.AgeMs(nowMs),
		AskWallAgeMs:      b.wallAsk.AgeMs(nowMs),
		BidAbsorptionRate: b.wallBid.AbsorptionRate(nowMs, 3000),
		AskAbsorptionRate: b.wallAsk.AbsorptionRate(nowMs, 3000),
		TapeAcceleration:  b.velocity.TapeAcceleration(nowMs),
		TradesIn3Sec:      total3s,
		BidTradesIn3Sec:   bid3s,
		AskTradesIn3Sec:   ask3s,
		Depth1s: map[feed.Side]DepthDeltaSnapshot{
			feed.Bid: b.depthDelta.Window(feed.Bid, nowMs, 1000),
			feed.Ask: b.depthDelta.Window(feed.Ask, nowMs, 1000),
		},
		Depth3s: map[feed.Side]DepthDeltaSnapshot{
			feed.Bid: b.depthDelta.Window(feed.Bid, nowMs, 3000),
			feed.Ask: b.depthDelta.Window(feed.Ask, nowMs, 3000),
		},
		CumulativeVwap: cumVwap,
		Window3sVwap:   winVwap,
		Window3sVolume: winVol,
		LastTradePrice: b.lastTradePrice,
		HasLastTrade:   b.hasLastTrade,
	}
}
