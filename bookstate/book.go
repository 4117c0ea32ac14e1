// Package bookstate is the per-symbol order-book and tape state described
// in SPEC_FULL.md §4.1: a deterministic, replayable feature extractor. An
// OrderBookState is owned exclusively by the feed-ingest partition for its
// symbol (spec.md §5); every other component takes a read-only snapshot.
//
// The ring-buffer trade store is adapted from the teacher's
// fixclient/tradestore.go; the sorted level vectors are new, grounded on
// the price-level bookkeeping style of mkhoshkam-orderbook/engine, but
// using a plain slice (not a heap) because depth updates address levels by
// position, not just best-price.
package bookstate

import (
	"sync"

	"github.com/shopspring/decimal"

	"shadowtrader/feed"
)

// Level is one price/size entry in a book side.
type Level struct {
	Price       decimal.Decimal
	Size        decimal.Decimal
	FirstSeenMs int64 // when this price first appeared at this level
	UpdatedMs   int64
}

// InvalidReason names why is_book_valid returned false.
type InvalidReason string

const (
	ReasonNone        InvalidReason = ""
	ReasonCrossedBook InvalidReason = "CrossedBook"
	ReasonLockedBook  InvalidReason = "LockedBook"
	ReasonEmptyBook   InvalidReason = "EmptyBook"
	ReasonStaleDepth  InvalidReason = "StaleDepth"
)

// staleAfterMs is the spec.md §4.1 staleness threshold.
const staleAfterMs = 2000

// DataQualityCounters accumulates malformed-event and rejection counts for
// one symbol, surfaced in the 60s heartbeat (spec.md §7).
type DataQualityCounters struct {
	MalformedEvents  int64
	CrossedRejected  int64
	LockedRejected   int64
}

// OrderBookState holds the full depth book and bounded trade tape for one
// symbol. Zero value is not usable; construct with New.
type OrderBookState struct {
	mu sync.RWMutex

	Symbol string

	bids []Level // strictly decreasing by price
	asks []Level // strictly increasing by price

	lastDepthUpdateMs int64
	quality           DataQualityCounters

	trades     *tradeRing
	wallBid    *WallTracker
	wallAsk    *WallTracker
	velocity   *TapeVelocityTracker
	depthDelta *DepthDeltaTracker
	vwap       *VwapTracker

	lastTradePrice decimal.Decimal
	hasLastTrade   bool
}

// New constructs an empty OrderBookState for symbol with the default
// bounded trade ring (4096 entries, per spec.md §3).
func New(symbol string) *OrderBookState {
	return NewWithRingSize(symbol, 4096)
}

func NewWithRingSize(symbol string, ringSize int) *OrderBookState {
	return &OrderBookState{
		Symbol:     symbol,
		trades:     newTradeRing(ringSize),
		wallBid:    NewWallTracker(),
		wallAsk:    NewWallTracker(),
		velocity:   NewTapeVelocityTracker(),
		depthDelta: NewDepthDeltaTracker(),
		vwap:       NewVwapTracker(),
	}
}

func levelsForSide(b *OrderBookState, side feed.Side) *[]Level {
	if side == feed.Bid {
		return &b.bids
	}
	return &b.asks
}

// ApplyDepth applies one depth update to the book. Crossing updates are
// rejected: the update is skipped, a data-quality flag raised, and a
// counter incremented, instead of aborting — per spec.md §4.1 and §7.
func (b *OrderBookState) ApplyDepth(u feed.DepthUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	recvMs := u.RecvTS.UnixMilli()
	levels := levelsForSide(b, u.Side)
	before := append([]Level(nil), *levels...)

	prevSize, newSize := decimal.Zero, decimal.Zero
	switch u.Op {
	case feed.Insert:
		newSize = decimal.NewFromFloat(u.Size)
		insertLevel(levels, u.Level, Level{
			Price:       decimal.NewFromFloat(u.Price),
			Size:        newSize,
			FirstSeenMs: recvMs,
			UpdatedMs:   recvMs,
		})
	case feed.Update:
		if u.Level >= 0 && u.Level < len(*levels) {
			prevSize = (*levels)[u.Level].Size
		}
		newSize = decimal.NewFromFloat(u.Size)
		updateLevel(levels, u.Level, decimal.NewFromFloat(u.Price), newSize, recvMs)
	case feed.Delete:
		if u.Level >= 0 && u.Level < len(*levels) {
			prevSize = (*levels)[u.Level].Size
		}
		deleteLevel(levels, u.Level)
	}

	if crossed, _ := b.isCrossedLocked(); crossed {
		// Revert: the offending update produced a crossed book. A locked
		// book is kept; IsBookValid reports it as LockedBook.
		*levels = before
		b.quality.MalformedEvents++
		b.quality.CrossedRejected++
		return
	}
	b.trackDelta(u.Side, u.Op, prevSize, newSize, recvMs)

	if recvMs > b.lastDepthUpdateMs {
		b.lastDepthUpdateMs = recvMs
	}
	b.updateWalls(recvMs)
}

// insertLevel shifts entries at and after idx down by one and places v at
// idx (spec.md §4.1: "for Insert, shift higher-level entries down").
func insertLevel(levels *[]Level, idx int, v Level) {
	if idx < 0 {
		idx = 0
	}
	if idx > len(*levels) {
		idx = len(*levels)
	}
	*levels = append(*levels, Level{})
	copy((*levels)[idx+1:], (*levels)[idx:])
	(*levels)[idx] = v
}

// updateLevel replaces the level at idx in place, extending the slice if
// idx is exactly one past the end (a late-arriving insert disguised as an
// update, which brokers occasionally send).
func updateLevel(levels *[]Level, idx int, price, size decimal.Decimal, nowMs int64) {
	if idx < 0 {
		return
	}
	if idx == len(*levels) {
		*levels = append(*levels, Level{Price: price, Size: size, FirstSeenMs: nowMs, UpdatedMs: nowMs})
		return
	}
	if idx > len(*levels) {
		return
	}
	cur := (*levels)[idx]
	if !cur.Price.Equal(price) {
		cur.FirstSeenMs = nowMs
	}
	cur.Price = price
	cur.Size = size
	cur.UpdatedMs = nowMs
	(*levels)[idx] = cur
}

// deleteLevel removes the level at idx regardless of size, shifting
// entries up (spec.md §3: "Delete removes level regardless of size").
func deleteLevel(levels *[]Level, idx int) {
	if idx < 0 || idx >= len(*levels) {
		return
	}
	*levels = append((*levels)[:idx], (*levels)[idx+1:]...)
}

func (b *OrderBookState) isCrossedLocked() (crossed, locked bool) {
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return false, false
	}
	bb := b.bids[0].Price
	ba := b.asks[0].Price
	if bb.GreaterThan(ba) {
		return true, false
	}
	if bb.Equal(ba) {
		return false, true
	}
	return false, false
}

// IsBookValid reports whether the book is in a state the coordinator may
// act on, per spec.md §4.1.
func (b *OrderBookState) IsBookValid(nowMs int64) (bool, InvalidReason) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.bids) == 0 && len(b.asks) == 0 {
		return false, ReasonEmptyBook
	}
	if crossed, locked := b.isCrossedLocked(); crossed {
		return false, ReasonCrossedBook
	} else if locked {
		return false, ReasonLockedBook
	}
	if b.lastDepthUpdateMs > 0 && nowMs-b.lastDepthUpdateMs > staleAfterMs {
		return false, ReasonStaleDepth
	}
	return true, ReasonNone
}

func (b *OrderBookState) BestBid() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 {
		return decimal.Zero
	}
	return b.bids[0].Price
}

func (b *OrderBookState) BestAsk() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.asks) == 0 {
		return decimal.Zero
	}
	return b.asks[0].Price
}

func (b *OrderBookState) Spread() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return decimal.Zero
	}
	return b.asks[0].Price.Sub(b.bids[0].Price)
}

func (b *OrderBookState) Mid() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return decimal.Zero
	}
	return b.bids[0].Price.Add(b.asks[0].Price).Div(decimal.NewFromInt(2))
}

func (b *OrderBookState) TotalBidSize(topN int) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sumSize(b.bids, topN)
}

func (b *OrderBookState) TotalAskSize(topN int) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sumSize(b.asks, topN)
}

func sumSize(levels []Level, topN int) decimal.Decimal {
	total := decimal.Zero
	n := topN
	if n > len(levels) {
		n = len(levels)
	}
	for i := 0; i < n; i++ {
		total = total.Add(levels[i].Size)
	}
	return total
}

// QualityCounters returns a copy of the data-quality counters for the
// 60s heartbeat summary.
func (b *OrderBookState) QualityCounters() DataQualityCounters {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.quality
}

// RecordTrade appends a trade to the bounded tape ring and feeds the VWAP
// and velocity trackers. Side is inferred from price vs mid at print time.
func (b *OrderBookState) RecordTrade(t feed.TradePrint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	recvMs := t.RecvTS.UnixMilli()
	price := decimal.NewFromFloat(t.Price)
	size := decimal.NewFromFloat(t.Size)

	b.trades.push(Trade{Price: price, Size: size, RecvMs: recvMs, EventMs: t.EventTS.UnixMilli()})
	b.vwap.record(price, size, recvMs)
	b.lastTradePrice = price
	b.hasLastTrade = true

	var side feed.Side
	mid := decimal.Zero
	if len(b.bids) > 0 && len(b.asks) > 0 {
		mid = b.bids[0].Price.Add(b.asks[0].Price).Div(decimal.NewFromInt(2))
	}
	if price.LessThan(mid) {
		side = feed.Bid
	} else {
		side = feed.Ask
	}
	b.velocity.record(recvMs, side)

	if len(b.asks) > 0 && price.Equal(b.asks[0].Price) {
		b.wallAsk.recordAbsorption(size, recvMs)
	}
	if len(b.bids) > 0 && price.Equal(b.bids[0].Price) {
		b.wallBid.recordAbsorption(size, recvMs)
	}
}

func (b *OrderBookState) updateWalls(nowMs int64) {
	bidPrice, bidOk := largestLevelPrice(b.bids)
	b.wallBid.observe(bidPrice, bidOk, nowMs)
	askPrice, askOk := largestLevelPrice(b.asks)
	b.wallAsk.observe(askPrice, askOk, nowMs)
}

func largestLevelPrice(levels []Level) (decimal.Decimal, bool) {
	if len(levels) == 0 {
		return decimal.Zero, false
	}
	best := levels[0]
	for _, l := range levels[1:] {
		if l.Size.GreaterThan(best.Size) {
			best = l
		}
	}
	return best.Price, true
}

func (b *OrderBookState) trackDelta(side feed.Side, op feed.Op, prevSize, newSize decimal.Decimal, atMs int64) {
	b.depthDelta.record(side, op, prevSize, newSize, atMs)
}

// RecentTrades returns up to limit of the most recent trades, oldest
// first, mirroring TradeStore.GetRecentTrades in the teacher.
func (b *OrderBookState) RecentTrades(limit int) []Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trades.recent(limit)
}
