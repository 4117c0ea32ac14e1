package bookstate

import (
	"testing"

	"github.com/shopspring/decimal"

	"shadowtrader/feed"
)

func TestWallTrackerAgeResetsOnPriceChange(t *testing.T) {
	w := NewWallTracker()
	w.observe(d(100), true, 1000)
	if age := w.AgeMs(1000); age != 0 {
		t.Fatalf("age at observation = %d, want 0", age)
	}
	if age := w.AgeMs(6000); age != 5000 {
		t.Fatalf("age after 5s = %d, want 5000", age)
	}
	w.observe(d(101), true, 6000) // price moved: wall resets
	if age := w.AgeMs(6000); age != 0 {
		t.Fatalf("age right after price change = %d, want 0", age)
	}
}

func TestDepthDeltaCancelToAddRatio(t *testing.T) {
	tr := NewDepthDeltaTracker()
	tr.record(feed.Bid, feed.Insert, decimal.Zero, d(5000), 0)
	tr.record(feed.Bid, feed.Delete, d(20000), decimal.Zero, 100)
	tr.record(feed.Bid, feed.Delete, d(5000), decimal.Zero, 200)

	snap := tr.Window(feed.Bid, 200, 1000)
	if snap.AddedSize.String() != "5000" {
		t.Fatalf("added = %v, want 5000", snap.AddedSize)
	}
	if snap.CanceledSize.String() != "25000" {
		t.Fatalf("canceled = %v, want 25000", snap.CanceledSize)
	}
	if snap.CancelToAddRatio < 4.9 || snap.CancelToAddRatio > 5.1 {
		t.Fatalf("ratio = %v, want ~5.0", snap.CancelToAddRatio)
	}
}

func TestDepthDeltaWindowExpiry(t *testing.T) {
	tr := NewDepthDeltaTracker()
	tr.record(feed.Ask, feed.Insert, decimal.Zero, d(100), 0)
	snap := tr.Window(feed.Ask, 5000, 1000) // 5s later, outside 1s window
	if snap.InsertCount != 0 {
		t.Fatalf("InsertCount = %d, want 0 (event should have expired from window)", snap.InsertCount)
	}
}

func TestVwapTrackerCumulativeAndWindow(t *testing.T) {
	v := NewVwapTracker()
	v.record(d(100), d(10), 0)
	v.record(d(110), d(10), 100)

	cum := v.Cumulative()
	if cum.String() != "105" {
		t.Fatalf("cumulative vwap = %v, want 105", cum)
	}

	winVwap, winVol := v.Window3s(100)
	if winVwap.String() != "105" || winVol.String() != "20" {
		t.Fatalf("window vwap/vol = %v/%v, want 105/20", winVwap, winVol)
	}
}

func TestTapeVelocityTradesIn3Sec(t *testing.T) {
	tv := NewTapeVelocityTracker()
	tv.record(500, feed.Ask)  // 4500ms before "now": outside the 3s window
	tv.record(3000, feed.Bid) // 2000ms before
	tv.record(4000, feed.Bid) // 1000ms before
	tv.record(4999, feed.Ask) // 1ms before

	total, bid, ask := tv.TradesIn3Sec(5000)
	if total != 3 || bid != 2 || ask != 1 {
		t.Fatalf("TradesIn3Sec = (%d,%d,%d), want (3,2,1)", total, bid, ask)
	}
}
