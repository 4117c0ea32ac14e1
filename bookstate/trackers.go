package bookstate

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"shadowtrader/feed"
)

// --- WallTracker (bid_wall_age_ms / ask_wall_age_ms, absorption rate) ---

// WallTracker tracks how long the currently-largest level on one side has
// held its price, and how much traded size has been absorbed at the
// current best price on that side.
type WallTracker struct {
	wallPrice   decimal.Decimal
	wallSet     bool
	sinceMs     int64
	absorbed    []timedSize
}

type timedSize struct {
	atMs int64
	size decimal.Decimal
}

func NewWallTracker() *WallTracker { return &WallTracker{} }

// observe records the current largest level's price; if it differs from
// the previously observed largest, the wall-age clock resets.
func (w *WallTracker) observe(price decimal.Decimal, ok bool, nowMs int64) {
	if !ok {
		w.wallSet = false
		return
	}
	if !w.wallSet || !w.wallPrice.Equal(price) {
		w.wallPrice = price
		w.sinceMs = nowMs
		w.wallSet = true
	}
}

// AgeMs returns milliseconds since the current wall first appeared at its
// price, or 0 if there is no tracked wall.
func (w *WallTracker) AgeMs(nowMs int64) int64 {
	if !w.wallSet {
		return 0
	}
	age := nowMs - w.sinceMs
	if age < 0 {
		return 0
	}
	return age
}

func (w *WallTracker) recordAbsorption(size decimal.Decimal, atMs int64) {
	w.absorbed = append(w.absorbed, timedSize{atMs: atMs, size: size})
	w.absorbed = trimOlderThan(w.absorbed, atMs, 3000)
}

// AbsorptionRate returns traded size consumed at this side's best level
// per second, over the trailing windowMs.
func (w *WallTracker) AbsorptionRate(nowMs int64, windowMs int64) decimal.Decimal {
	w.absorbed = trimOlderThan(w.absorbed, nowMs, windowMs)
	total := decimal.Zero
	for _, e := range w.absorbed {
		total = total.Add(e.size)
	}
	if windowMs <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromFloat(float64(windowMs) / 1000.0))
}

func trimOlderThan(events []timedSize, nowMs, windowMs int64) []timedSize {
	cutoff := nowMs - windowMs
	i := 0
	for i < len(events) && events[i].atMs < cutoff {
		i++
	}
	if i == 0 {
		return events
	}
	return append([]timedSize(nil), events[i:]...)
}

// --- TapeVelocityTracker (trades_in_3sec, tape_acceleration) ---

type tradeTick struct {
	atMs int64
	side feed.Side
}

// TapeVelocityTracker retains trade timestamps (and inferred side) over a
// 15s trailing horizon to derive print-rate features.
type TapeVelocityTracker struct {
	ticks []tradeTick
}

func NewTapeVelocityTracker() *TapeVelocityTracker { return &TapeVelocityTracker{} }

const velocityHorizonMs = 15000

func (t *TapeVelocityTracker) record(atMs int64, side feed.Side) {
	t.ticks = append(t.ticks, tradeTick{atMs: atMs, side: side})
	t.trim(atMs)
}

func (t *TapeVelocityTracker) trim(nowMs int64) {
	cutoff := nowMs - velocityHorizonMs
	i := 0
	for i < len(t.ticks) && t.ticks[i].atMs < cutoff {
		i++
	}
	if i > 0 {
		t.ticks = append([]tradeTick(nil), t.ticks[i:]...)
	}
}

func (t *TapeVelocityTracker) countWindow(nowMs, windowMs int64) (total, bid, ask int) {
	cutoff := nowMs - windowMs
	for _, tk := range t.ticks {
		if tk.atMs < cutoff {
			continue
		}
		total++
		if tk.side == feed.Bid {
			bid++
		} else {
			ask++
		}
	}
	return
}

// TradesIn3Sec returns total, bid-inferred, and ask-inferred trade counts
// in the trailing 3 seconds.
func (t *TapeVelocityTracker) TradesIn3Sec(nowMs int64) (total, bid, ask int) {
	return t.countWindow(nowMs, 3000)
}

// CountWindow returns total, bid-inferred, and ask-inferred trade counts in
// the trailing windowMs, for gates that use a window other than 3s (the
// tape-readiness warmup/stale checks).
func (t *TapeVelocityTracker) CountWindow(nowMs, windowMs int64) (total, bid, ask int) {
	return t.countWindow(nowMs, windowMs)
}

// LastTradeMs returns the timestamp of the most recently recorded trade, or
// 0 if none has been recorded within the retained horizon.
func (t *TapeVelocityTracker) LastTradeMs() int64 {
	if len(t.ticks) == 0 {
		return 0
	}
	return t.ticks[len(t.ticks)-1].atMs
}

// TapeAcceleration is a robust z-score of prints-per-second over a 3s
// window against the rolling median prints-per-second over the last 15s,
// using median-absolute-deviation as the robust scale estimate (spec.md
// §4.1).
func (t *TapeVelocityTracker) TapeAcceleration(nowMs int64) float64 {
	rate3s := float64(sumWindowCount(t, nowMs, 3000)) / 3.0

	buckets := bucketRates(t, nowMs, velocityHorizonMs, 1000)
	if len(buckets) == 0 {
		return 0
	}
	median := medianOf(buckets)
	mad := medianAbsoluteDeviation(buckets, median)
	if mad == 0 {
		if rate3s == median {
			return 0
		}
		// Avoid divide-by-zero when the tape has been perfectly uniform;
		// fall back to a fixed small scale so a genuine burst still shows.
		mad = 1
	}
	return (rate3s - median) / (1.4826 * mad)
}

func sumWindowCount(t *TapeVelocityTracker, nowMs, windowMs int64) int {
	total, _, _ := t.countWindow(nowMs, windowMs)
	return total
}

func bucketRates(t *TapeVelocityTracker, nowMs, horizonMs, bucketMs int64) []float64 {
	n := int(horizonMs / bucketMs)
	counts := make([]int, n)
	for _, tk := range t.ticks {
		age := nowMs - tk.atMs
		if age < 0 || age >= horizonMs {
			continue
		}
		idx := int(age / bucketMs)
		if idx >= 0 && idx < n {
			counts[idx]++
		}
	}
	rates := make([]float64, n)
	for i, c := range counts {
		rates[i] = float64(c)
	}
	return rates
}

func medianOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func medianAbsoluteDeviation(values []float64, median float64) float64 {
	devs := make([]float64, len(values))
	for i, v := range values {
		devs[i] = math.Abs(v - median)
	}
	return medianOf(devs)
}

// --- DepthDeltaTracker (1s/3s insert/update/delete, cancel_to_add_ratio) ---

type deltaEvent struct {
	side     feed.Side
	op       feed.Op
	added    decimal.Decimal
	canceled decimal.Decimal
	atMs     int64
}

// DepthDeltaTracker retains per-side depth mutation events over a 3s
// trailing horizon.
type DepthDeltaTracker struct {
	events []deltaEvent
}

func NewDepthDeltaTracker() *DepthDeltaTracker { return &DepthDeltaTracker{} }

const depthDeltaHorizonMs = 3000

func (d *DepthDeltaTracker) record(side feed.Side, op feed.Op, prevSize, newSize decimal.Decimal, atMs int64) {
	e := deltaEvent{side: side, op: op, atMs: atMs}
	switch op {
	case feed.Insert:
		e.added = newSize
	case feed.Delete:
		e.canceled = prevSize
	case feed.Update:
		diff := newSize.Sub(prevSize)
		if diff.IsPositive() {
			e.added = diff
		} else if diff.IsNegative() {
			e.canceled = diff.Neg()
		}
	}
	d.events = append(d.events, e)
	d.trim(atMs)
}

func (d *DepthDeltaTracker) trim(nowMs int64) {
	cutoff := nowMs - depthDeltaHorizonMs
	i := 0
	for i < len(d.events) && d.events[i].atMs < cutoff {
		i++
	}
	if i > 0 {
		d.events = append([]deltaEvent(nil), d.events[i:]...)
	}
}

// DepthDeltaSnapshot is the per-side, per-window summary spec.md §4.1
// names: counts and sizes of inserts/updates/deletes plus
// cancel_to_add_ratio.
type DepthDeltaSnapshot struct {
	InsertCount, UpdateCount, DeleteCount int
	AddedSize, CanceledSize               decimal.Decimal
	CancelToAddRatio                      float64
	CancelCount, AddCount                 int
}

var epsilon = decimal.NewFromFloat(0.00000001)

// Window computes the snapshot for side over the trailing windowMs.
func (d *DepthDeltaTracker) Window(side feed.Side, nowMs, windowMs int64) DepthDeltaSnapshot {
	cutoff := nowMs - windowMs
	var s DepthDeltaSnapshot
	s.AddedSize = decimal.Zero
	s.CanceledSize = decimal.Zero
	for _, e := range d.events {
		if e.atMs < cutoff || e.side != side {
			continue
		}
		switch e.op {
		case feed.Insert:
			s.InsertCount++
		case feed.Update:
			s.UpdateCount++
		case feed.Delete:
			s.DeleteCount++
		}
		if e.added.IsPositive() {
			s.AddedSize = s.AddedSize.Add(e.added)
			s.AddCount++
		}
		if e.canceled.IsPositive() {
			s.CanceledSize = s.CanceledSize.Add(e.canceled)
			s.CancelCount++
		}
	}
	denom := s.AddedSize
	if denom.LessThan(epsilon) {
		denom = epsilon
	}
	s.CancelToAddRatio, _ = s.CanceledSize.Div(denom).Float64()
	return s
}

// --- VwapTracker (cumulative + 3s window VWAP) ---

// VwapTracker maintains cumulative session VWAP and a trailing 3s window
// VWAP plus window volume.
type VwapTracker struct {
	cumPxSize decimal.Decimal
	cumSize   decimal.Decimal

	window []Trade
}

func NewVwapTracker() *VwapTracker { return &VwapTracker{} }

const vwapWindowMs = 3000

func (v *VwapTracker) record(price, size decimal.Decimal, atMs int64) {
	v.cumPxSize = v.cumPxSize.Add(price.Mul(size))
	v.cumSize = v.cumSize.Add(size)

	v.window = append(v.window, Trade{Price: price, Size: size, RecvMs: atMs})
	cutoff := atMs - vwapWindowMs
	i := 0
	for i < len(v.window) && v.window[i].RecvMs < cutoff {
		i++
	}
	if i > 0 {
		v.window = append([]Trade(nil), v.window[i:]...)
	}
}

// Cumulative returns the session VWAP, or zero if no trades recorded.
func (v *VwapTracker) Cumulative() decimal.Decimal {
	if v.cumSize.IsZero() {
		return decimal.Zero
	}
	return v.cumPxSize.Div(v.cumSize)
}

// Window3s returns the trailing 3s window VWAP and total volume.
func (v *VwapTracker) Window3s(nowMs int64) (vwap, volume decimal.Decimal) {
	cutoff := nowMs - vwapWindowMs
	pxSize := decimal.Zero
	size := decimal.Zero
	for _, t := range v.window {
		if t.RecvMs < cutoff {
			continue
		}
		pxSize = pxSize.Add(t.Price.Mul(t.Size))
		size = size.Add(t.Size)
	}
	if size.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	return pxSize.Div(size), size
}
