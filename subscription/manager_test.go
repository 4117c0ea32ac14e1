package subscription

import (
	"testing"
	"time"

	"shadowtrader/config"
	"shadowtrader/feed"
)

type fakeBroker struct {
	subscribeErr        map[string]error
	enableTBTErr        map[string]error
	subscribeCalls      []string
	depthSubscribeCalls []string
	tbtEnableCalls      []string
	tbtDisableCalls     []string
	depthDisableCalls   []string
	unsubscribeCalls    []string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subscribeErr: map[string]error{}, enableTBTErr: map[string]error{}}
}

func (f *fakeBroker) Subscribe(symbol string, includeDepth bool) (feed.SubscribeResult, error) {
	if includeDepth {
		f.depthSubscribeCalls = append(f.depthSubscribeCalls, symbol)
	} else {
		f.subscribeCalls = append(f.subscribeCalls, symbol)
	}
	if err := f.subscribeErr[symbol]; err != nil {
		return feed.SubscribeResult{}, err
	}
	return feed.SubscribeResult{MktDataID: "md-" + symbol, DepthID: "depth-" + symbol}, nil
}

func (f *fakeBroker) Unsubscribe(symbol string) error {
	f.unsubscribeCalls = append(f.unsubscribeCalls, symbol)
	return nil
}

func (f *fakeBroker) EnableTickByTick(symbol string) (string, error) {
	f.tbtEnableCalls = append(f.tbtEnableCalls, symbol)
	if err := f.enableTBTErr[symbol]; err != nil {
		return "", err
	}
	return "tbt-" + symbol, nil
}

func (f *fakeBroker) DisableTickByTick(symbol string) error {
	f.tbtDisableCalls = append(f.tbtDisableCalls, symbol)
	return nil
}

func (f *fakeBroker) DisableDepth(symbol string) error {
	f.depthDisableCalls = append(f.depthDisableCalls, symbol)
	return nil
}

type fakeEligibility struct {
	depthIneligibleUntil map[string]time.Time
	tbtCooldownUntil     map[string]time.Time
}

func newFakeEligibility() *fakeEligibility {
	return &fakeEligibility{depthIneligibleUntil: map[string]time.Time{}, tbtCooldownUntil: map[string]time.Time{}}
}

func (e *fakeEligibility) IsDepthIneligible(symbol string, now time.Time) bool {
	until, ok := e.depthIneligibleUntil[symbol]
	return ok && now.Before(until)
}

func (e *fakeEligibility) MarkDepthIneligible(symbol string, until time.Time) {
	e.depthIneligibleUntil[symbol] = until
}

func (e *fakeEligibility) IsTickByTickCooling(symbol string, now time.Time) bool {
	until, ok := e.tbtCooldownUntil[symbol]
	return ok && now.Before(until)
}

func (e *fakeEligibility) MarkTickByTickCooldown(symbol string, until time.Time) {
	e.tbtCooldownUntil[symbol] = until
}

func testManager() (*Manager, *fakeBroker, *fakeEligibility) {
	broker := newFakeBroker()
	elig := newFakeEligibility()
	cfg := config.DefaultMarketData()
	focus := config.DefaultFocus()
	brokerCfg := config.DefaultBroker()
	return New(cfg, focus, brokerCfg, broker, elig), broker, elig
}

func TestApplyUniverseSubscribesTapeDepthAndTickByTick(t *testing.T) {
	m, broker, _ := testManager()
	now := time.Unix(1000, 0)

	candidates := []Candidate{
		{Symbol: "AAPL", Triage: TriageInputs{PrintsIn3s: 10, PrintsIn15s: 40, DollarVolume15s: 500000, RelativeSpread: 0.0005}},
	}
	m.ApplyUniverse(candidates, 30, now)

	if len(broker.subscribeCalls) != 1 || broker.subscribeCalls[0] != "AAPL" {
		t.Fatalf("subscribeCalls = %v, want [AAPL]", broker.subscribeCalls)
	}
	if len(broker.depthSubscribeCalls) != 1 {
		t.Fatalf("depthSubscribeCalls = %v, want one entry", broker.depthSubscribeCalls)
	}
	if len(broker.tbtEnableCalls) != 1 {
		t.Fatalf("tbtEnableCalls = %v, want one entry", broker.tbtEnableCalls)
	}
	if !m.IsActive("AAPL") {
		t.Fatalf("AAPL should be Active after first reconcile")
	}
}

// TestHandleFeedErrorDepthIneligible covers spec.md scenario S4.
func TestHandleFeedErrorDepthIneligible(t *testing.T) {
	m, broker, elig := testManager()
	now := time.Unix(1000, 0)

	candidates := []Candidate{{Symbol: "XYZ", Triage: TriageInputs{PrintsIn3s: 5}}}
	m.ApplyUniverse(candidates, 30, now)

	m.HandleFeedError("XYZ", feed.DepthIneligible, now)

	if !elig.IsDepthIneligible("XYZ", now) {
		t.Fatalf("XYZ should be cached as depth-ineligible")
	}
	if m.IsDepthEnabled("XYZ") {
		t.Fatalf("depth should be revoked for XYZ")
	}
	if m.IsActive("XYZ") {
		t.Fatalf("XYZ should not be Active once depth is revoked")
	}
	if len(broker.depthDisableCalls) != 1 {
		t.Fatalf("expected one DisableDepth call, got %v", broker.depthDisableCalls)
	}

	// Reconciling again must not attempt to re-subscribe depth while
	// within the 24h cooldown.
	depthCallsBefore := len(broker.depthSubscribeCalls)
	m.ApplyUniverse(candidates, 30, now.Add(time.Minute))
	if len(broker.depthSubscribeCalls) != depthCallsBefore {
		t.Fatalf("depth should not be resubscribed while ineligibility cooldown is active")
	}
}

func TestHandleFeedErrorTickByTickCapIsGlobalForCycle(t *testing.T) {
	m, _, elig := testManager()
	now := time.Unix(1000, 0)

	m.HandleFeedError("AAPL", feed.TickByTickCapReached, now)

	if !elig.IsTickByTickCooling("AAPL", now) {
		t.Fatalf("AAPL should carry a tick-by-tick cooldown")
	}
	if now.Add(29 * time.Minute).After(m.tickByTickGlobalCooldownUntil) {
		t.Fatalf("global cooldown should last roughly 30 minutes")
	}
}

func TestMaxLinesNeverExceededAtEndOfReconcile(t *testing.T) {
	m, _, _ := testManager()
	m.cfg.MaxLines = 2 // force tight budget
	now := time.Unix(1000, 0)

	candidates := []Candidate{
		{Symbol: "A", Triage: TriageInputs{PrintsIn3s: 10}},
		{Symbol: "B", Triage: TriageInputs{PrintsIn3s: 8}},
		{Symbol: "C", Triage: TriageInputs{PrintsIn3s: 6}},
	}
	m.ApplyUniverse(candidates, 30, now)

	if m.totalLines() > m.cfg.MaxLines {
		t.Fatalf("totalLines = %d, exceeds MaxLines = %d", m.totalLines(), m.cfg.MaxLines)
	}
}
