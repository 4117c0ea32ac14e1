package coordinator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shadowtrader/bookstate"
	"shadowtrader/config"
	"shadowtrader/feed"
	"shadowtrader/journal"
	"shadowtrader/scarcity"
)

type fakeSubs struct {
	active, depth, tape bool
}

func (f fakeSubs) IsActive(string) bool       { return f.active }
func (f fakeSubs) IsDepthEnabled(string) bool { return f.depth }
func (f fakeSubs) IsTapeEnabled(string) bool  { return f.tape }

// fakeScarcity resolves every staged candidate immediately, with the
// outcome the test configures, instead of modeling a real ranking window —
// the ranking window semantics are covered by scarcity.Controller's own
// tests, not the pipeline's.
type fakeScarcity struct {
	accept bool
	reason scarcity.RejectReason
}

func (f fakeScarcity) StageCandidate(id, symbol string, score float64, now time.Time) []scarcity.RankedDecision {
	return []scarcity.RankedDecision{{CandidateID: id, Symbol: symbol, Score: score, Accepted: f.accept, Reason: f.reason}}
}
func (f fakeScarcity) FlushRankWindow(now time.Time) []scarcity.RankedDecision { return nil }

type fakeValidator struct {
	decision Decision
}

func (f fakeValidator) Evaluate(symbol string, snap bookstate.MetricSnapshot) Decision {
	return f.decision
}

type recordingSink struct {
	entries []journal.Entry
}

func (s *recordingSink) Enqueue(e journal.Entry) { s.entries = append(s.entries, e) }
func (s *recordingSink) Dropped() int64          { return 0 }
func (s *recordingSink) Close() error            { return nil }

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func happyBuySnapshot() bookstate.MetricSnapshot {
	return bookstate.MetricSnapshot{
		Symbol:            "AAPL",
		BestBid:           d(262.00),
		BestAsk:           d(262.02),
		Spread:            d(0.02),
		BidWallAgeMs:      5000,
		TradesIn3Sec:      4,
		BidTradesIn3Sec:   0,
		AskTradesIn3Sec:   4,
		CumulativeVwap:    d(261.80),
		Window3sVwap:      d(261.75),
		Window3sVolume:    d(2000),
		Depth1s:           map[feed.Side]bookstate.DepthDeltaSnapshot{},
		Depth3s:           map[feed.Side]bookstate.DepthDeltaSnapshot{},
	}
}

func newTestCoordinator(subs SubscriptionGate, sc ScarcityStager, sink journal.Sink, v Validator) *Coordinator {
	return New("sess-1", config.ModeShadow, config.DefaultShadowTrading(), config.DefaultTapeGate(), config.DefaultBlueprint(), subs, sc, sink, v)
}

// TestHappyBuyAcceptedWithBlueprintAndRankScore covers scenario S1.
func TestHappyBuyAcceptedWithBlueprintAndRankScore(t *testing.T) {
	sink := &recordingSink{}
	v := fakeValidator{decision: Decision{HasCandidate: true, Direction: Buy, Accepted: true, Signal: Signal{Confidence: 8.5}}}
	c := newTestCoordinator(fakeSubs{active: true, depth: true, tape: true}, fakeScarcity{accept: true}, sink, v)

	now := time.Now()
	c.Evaluate(EvalInput{
		Symbol:               "AAPL",
		Now:                  now,
		Snapshot:             happyBuySnapshot(),
		BookValid:            true,
		TradesInWarmupWindow: 4,
		LastTradeAgeMs:       500,
		HasTrade:             true,
	})

	if len(sink.entries) != 2 {
		t.Fatalf("expected Pending + Accepted entries, got %d: %+v", len(sink.entries), sink.entries)
	}
	final := sink.entries[1]
	if final.DecisionOutcome != journal.OutcomeAccepted {
		t.Fatalf("expected Accepted outcome, got %s", final.DecisionOutcome)
	}
	if final.Blueprint == nil {
		t.Fatal("expected a blueprint on the accepted entry")
	}
	if got := final.Blueprint.Entry; !approxEqual(got, 262.02) {
		t.Errorf("entry = %v, want 262.02", got)
	}
	if got := final.Blueprint.Stop; !approxEqual(got, 261.94) {
		t.Errorf("stop = %v, want 261.94", got)
	}
	if got := final.Blueprint.Target; !approxEqual(got, 262.18) {
		t.Errorf("target = %v, want 262.18", got)
	}
	if got := final.DecisionInputs.RankScore; !approxEqual(got, 9.0) {
		t.Errorf("rank_score = %v, want 9.0 (8.5 confidence + 0.5 vwap reclaim)", got)
	}
}

// TestSpoofSuspectedRejectsCandidate covers scenario S2.
func TestSpoofSuspectedRejectsCandidate(t *testing.T) {
	sink := &recordingSink{}
	v := fakeValidator{decision: Decision{HasCandidate: true, Direction: Buy, Accepted: true, Signal: Signal{Confidence: 6.0}}}
	c := newTestCoordinator(fakeSubs{active: true, depth: true, tape: true}, fakeScarcity{accept: true}, sink, v)

	snap := happyBuySnapshot()
	snap.TradesIn3Sec = 0
	snap.Window3sVolume = decimal.Zero
	snap.Depth1s[feed.Bid] = bookstate.DepthDeltaSnapshot{
		CancelCount:       6,
		AddCount:          2,
		CanceledSize:      d(20000),
		AddedSize:         d(5000),
		CancelToAddRatio:  4.0,
	}
	snap.Depth3s[feed.Bid] = bookstate.DepthDeltaSnapshot{
		CancelCount:      1,
		CancelToAddRatio: 2.4,
	}

	c.Evaluate(EvalInput{
		Symbol:               "AAPL",
		Now:                  time.Now(),
		Snapshot:             snap,
		BookValid:            true,
		TradesInWarmupWindow: 4,
		LastTradeAgeMs:       500,
		HasTrade:             true,
	})

	if len(sink.entries) != 1 {
		t.Fatalf("expected exactly one Rejected entry, got %d: %+v", len(sink.entries), sink.entries)
	}
	got := sink.entries[0]
	if got.DecisionOutcome != journal.OutcomeRejected || got.RejectionReason != string(ReasonSpoofSuspected) {
		t.Fatalf("expected Rejected/SpoofSuspected, got %s/%s", got.DecisionOutcome, got.RejectionReason)
	}
}

// TestPostSignalSpreadBlowoutCancelsAcceptedSignal covers scenario S3.
func TestPostSignalSpreadBlowoutCancelsAcceptedSignal(t *testing.T) {
	sink := &recordingSink{}
	v := fakeValidator{decision: Decision{HasCandidate: true, Direction: Buy, Accepted: true, Signal: Signal{Confidence: 8.5}}}
	c := newTestCoordinator(fakeSubs{active: true, depth: true, tape: true}, fakeScarcity{accept: true}, sink, v)

	t0 := time.Now()
	c.Evaluate(EvalInput{
		Symbol:               "AAPL",
		Now:                  t0,
		Snapshot:             happyBuySnapshot(),
		BookValid:            true,
		TradesInWarmupWindow: 4,
		LastTradeAgeMs:       500,
		HasTrade:             true,
	})

	t1 := t0.Add(4 * time.Second)
	snap2 := happyBuySnapshot()
	snap2.BestBid = d(261.90)
	snap2.BestAsk = d(261.95)
	snap2.Spread = d(0.05)
	snap2.BidTradesIn3Sec = 0
	snap2.AskTradesIn3Sec = 0

	c.Evaluate(EvalInput{
		Symbol:               "AAPL",
		Now:                  t1,
		Snapshot:             snap2,
		BookValid:            true,
		TradesInWarmupWindow: 4,
		LastTradeAgeMs:       500,
		HasTrade:             true,
	})

	var canceled *journal.Entry
	for i := range sink.entries {
		if sink.entries[i].EntryType == journal.EntryCanceled {
			canceled = &sink.entries[i]
		}
	}
	if canceled == nil {
		t.Fatalf("expected a Canceled entry, got entries: %+v", sink.entries)
	}
	if canceled.RejectionReason != string(CancelSpreadBlowout) {
		t.Errorf("cancel reason = %s, want SpreadBlowout", canceled.RejectionReason)
	}
	if !approxEqual(canceled.ObservedMetrics.Spread, 0.05) {
		t.Errorf("observed spread = %v, want 0.05", canceled.ObservedMetrics.Spread)
	}
}

// TestTapeReadyBoundaryExactWarmupCount covers Testable Property 10: exactly
// warmup_min_trades within warmup_window_ms is Ready; one fewer is
// NotWarmedUp.
func TestTapeReadyBoundaryExactWarmupCount(t *testing.T) {
	c := newTestCoordinator(fakeSubs{}, fakeScarcity{}, &recordingSink{}, fakeValidator{})

	status, _ := c.tapeStatus(c.tg.WarmupMinTrades, 100, true)
	if status != TapeReady {
		t.Errorf("exactly warmup_min_trades trades: status = %v, want Ready", status)
	}

	status, reason := c.tapeStatus(c.tg.WarmupMinTrades-1, 100, true)
	if status != TapeNotWarmedUp || reason != ReasonTapeNotWarmedUp {
		t.Errorf("one fewer than warmup_min_trades: status = %v, want NotWarmedUp", status)
	}
}

// TestTapeStaleWhenLastTradeOlderThanStaleWindow covers the Stale branch of
// the tape status gate.
func TestTapeStaleWhenLastTradeOlderThanStaleWindow(t *testing.T) {
	c := newTestCoordinator(fakeSubs{}, fakeScarcity{}, &recordingSink{}, fakeValidator{})

	status, reason := c.tapeStatus(c.tg.WarmupMinTrades, c.tg.StaleWindow.Milliseconds()+1, true)
	if status != TapeStale || reason != ReasonTapeStale {
		t.Errorf("status = %v reason = %v, want Stale", status, reason)
	}
}

// TestDuplicateSuppressionBlocksSecondAcceptanceWithinWindow ensures an
// identical accepted candidate within duplicate_suppression_window is
// rejected rather than re-accepted (spec.md §4.3 step 7 suppression rules).
func TestDuplicateSuppressionBlocksSecondAcceptanceWithinWindow(t *testing.T) {
	sink := &recordingSink{}
	v := fakeValidator{decision: Decision{HasCandidate: true, Direction: Buy, Accepted: true, Signal: Signal{Confidence: 8.5}}}
	c := newTestCoordinator(fakeSubs{active: true, depth: true, tape: true}, fakeScarcity{accept: true}, sink, v)

	t0 := time.Now()
	in := EvalInput{Symbol: "AAPL", Now: t0, Snapshot: happyBuySnapshot(), BookValid: true, TradesInWarmupWindow: 4, LastTradeAgeMs: 500, HasTrade: true}
	c.Evaluate(in)

	sink.entries = nil
	in.Now = t0.Add(1 * time.Minute) // well within the 10-minute default window
	c.Evaluate(in)

	if len(sink.entries) != 1 {
		t.Fatalf("expected exactly one Rejected entry on the duplicate, got %d", len(sink.entries))
	}
	if sink.entries[0].RejectionReason != string(ReasonDuplicateSuppressed) {
		t.Errorf("reason = %s, want DuplicateSuppressed", sink.entries[0].RejectionReason)
	}
}

func approxEqual(a, b float64) bool {
	const eps = 1e-9
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < eps
}
