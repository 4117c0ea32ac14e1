package bookstate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shadowtrader/feed"
)

func mkDepth(symbol string, side feed.Side, op feed.Op, level int, price, size float64, at time.Time) feed.DepthUpdate {
	return feed.DepthUpdate{
		Symbol: symbol, Side: side, Op: op, Level: level,
		Price: price, Size: size, EventTS: at, RecvTS: at,
	}
}

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestApplyDepthInsertSortOrder(t *testing.T) {
	now := time.Unix(1000, 0)
	b := New("AAPL")
	b.ApplyDepth(mkDepth("AAPL", feed.Bid, feed.Insert, 0, 262.00, 50000, now))
	b.ApplyDepth(mkDepth("AAPL", feed.Bid, feed.Insert, 1, 261.99, 10000, now))
	b.ApplyDepth(mkDepth("AAPL", feed.Ask, feed.Insert, 0, 262.02, 30000, now))

	if got := b.BestBid(); !got.Equal(d(262.00)) {
		t.Fatalf("best bid = %v, want 262.00", got)
	}
	if got := b.BestAsk(); !got.Equal(d(262.02)) {
		t.Fatalf("best ask = %v, want 262.02", got)
	}
}

func TestApplyDepthRejectsCrossedBook(t *testing.T) {
	now := time.Unix(1000, 0)
	b := New("AAPL")
	b.ApplyDepth(mkDepth("AAPL", feed.Bid, feed.Insert, 0, 262.00, 50000, now))
	b.ApplyDepth(mkDepth("AAPL", feed.Ask, feed.Insert, 0, 262.02, 30000, now))

	// A bogus update that would cross the book: bid above best ask.
	b.ApplyDepth(mkDepth("AAPL", feed.Bid, feed.Update, 0, 263.00, 50000, now))

	if got := b.BestBid(); !got.Equal(d(262.00)) {
		t.Fatalf("crossing update should have been rejected; best bid = %v", got)
	}
	qc := b.QualityCounters()
	if qc.CrossedRejected != 1 {
		t.Fatalf("CrossedRejected = %d, want 1", qc.CrossedRejected)
	}
}

func TestIsBookValidEmptyLockedStale(t *testing.T) {
	now := time.Unix(1000, 0)

	b := New("AAPL")
	if ok, reason := b.IsBookValid(now.UnixMilli()); ok || reason != ReasonEmptyBook {
		t.Fatalf("empty book: got (%v,%v), want (false,EmptyBook)", ok, reason)
	}

	b.ApplyDepth(mkDepth("AAPL", feed.Bid, feed.Insert, 0, 100, 10, now))
	b.ApplyDepth(mkDepth("AAPL", feed.Ask, feed.Insert, 0, 100, 10, now))
	if ok, reason := b.IsBookValid(now.UnixMilli()); ok || reason != ReasonLockedBook {
		t.Fatalf("locked book: got (%v,%v), want (false,LockedBook)", ok, reason)
	}

	b2 := New("AAPL")
	b2.ApplyDepth(mkDepth("AAPL", feed.Bid, feed.Insert, 0, 99, 10, now))
	b2.ApplyDepth(mkDepth("AAPL", feed.Ask, feed.Insert, 0, 100, 10, now))
	later := now.Add(3 * time.Second)
	if ok, reason := b2.IsBookValid(later.UnixMilli()); ok || reason != ReasonStaleDepth {
		t.Fatalf("stale book: got (%v,%v), want (false,StaleDepth)", ok, reason)
	}
	if ok, _ := b2.IsBookValid(now.Add(time.Second).UnixMilli()); !ok {
		t.Fatalf("fresh book within staleness window should be valid")
	}
}

func TestDeleteRemovesLevelRegardlessOfSize(t *testing.T) {
	now := time.Unix(1000, 0)
	b := New("AAPL")
	b.ApplyDepth(mkDepth("AAPL", feed.Bid, feed.Insert, 0, 100, 10, now))
	b.ApplyDepth(mkDepth("AAPL", feed.Bid, feed.Insert, 1, 99, 20, now))
	b.ApplyDepth(mkDepth("AAPL", feed.Bid, feed.Delete, 0, 0, 999, now))

	if got := b.BestBid(); !got.Equal(d(99)) {
		t.Fatalf("best bid after delete = %v, want 99", got)
	}
}

// TestReapplyIdempotent covers Testable Property 8: re-applying the same
// Update with identical (price,size) to an already-equal level leaves the
// book value-identical.
func TestReapplyIdempotent(t *testing.T) {
	now := time.Unix(1000, 0)
	b := New("AAPL")
	b.ApplyDepth(mkDepth("AAPL", feed.Bid, feed.Insert, 0, 100, 10, now))
	before := b.BestBid()

	b.ApplyDepth(mkDepth("AAPL", feed.Bid, feed.Update, 0, 100, 10, now.Add(time.Millisecond)))
	after := b.BestBid()

	if !before.Equal(after) {
		t.Fatalf("reapplying identical update changed best bid: %v -> %v", before, after)
	}
	if got := b.TotalBidSize(1); !got.Equal(d(10)) {
		t.Fatalf("total bid size = %v, want 10", got)
	}
}

func TestRecordTradeSideInference(t *testing.T) {
	now := time.Unix(1000, 0)
	b := New("AAPL")
	b.ApplyDepth(mkDepth("AAPL", feed.Bid, feed.Insert, 0, 262.00, 50000, now))
	b.ApplyDepth(mkDepth("AAPL", feed.Ask, feed.Insert, 0, 262.02, 30000, now))

	b.RecordTrade(feed.TradePrint{Symbol: "AAPL", Price: 262.02, Size: 500, EventTS: now, RecvTS: now})
	b.RecordTrade(feed.TradePrint{Symbol: "AAPL", Price: 262.00, Size: 300, EventTS: now, RecvTS: now})

	total, bid, ask := b.velocity.TradesIn3Sec(now.UnixMilli())
	if total != 2 || bid != 1 || ask != 1 {
		t.Fatalf("TradesIn3Sec = (%d,%d,%d), want (2,1,1)", total, bid, ask)
	}
}
