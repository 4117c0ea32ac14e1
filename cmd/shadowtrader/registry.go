package main

import (
	"sort"
	"sync"
	"time"

	"shadowtrader/bookstate"
	"shadowtrader/coordinator"
)

// bookRegistry owns one OrderBookState/OrderFlowMetrics pair per active
// symbol. It is the wiring-layer analogue of the teacher's
// TradeStore.subscriptions map: every symbol gets its own entry, created on
// first sight and never removed mid-session (eviction is a subscription
// concern, not a book one).
type bookRegistry struct {
	mu           sync.RWMutex
	books        map[string]*bookstate.OrderBookState
	metrics      map[string]*bookstate.OrderFlowMetrics
	warmupWindow time.Duration
}

func newBookRegistry(warmupWindow time.Duration) *bookRegistry {
	return &bookRegistry{
		books:        make(map[string]*bookstate.OrderBookState),
		metrics:      make(map[string]*bookstate.OrderFlowMetrics),
		warmupWindow: warmupWindow,
	}
}

func (r *bookRegistry) get(symbol string) (*bookstate.OrderBookState, *bookstate.OrderFlowMetrics) {
	r.mu.RLock()
	b, ok := r.books[symbol]
	m := r.metrics[symbol]
	r.mu.RUnlock()
	if ok {
		return b, m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.books[symbol]; ok {
		return b, r.metrics[symbol]
	}
	b = bookstate.New(symbol)
	m = bookstate.NewOrderFlowMetrics(b)
	r.books[symbol] = b
	r.metrics[symbol] = m
	return b, m
}

// Snapshot implements orchestrator.SnapshotProvider: it builds the
// coordinator.EvalInput the watchlist recheck loop needs without waiting
// for a fresh feed event.
func (r *bookRegistry) Snapshot(symbol string, now time.Time) (coordinator.EvalInput, bool) {
	r.mu.RLock()
	b, ok := r.books[symbol]
	m := r.metrics[symbol]
	r.mu.RUnlock()
	if !ok {
		return coordinator.EvalInput{}, false
	}

	valid, invalidReason := b.IsBookValid(now.UnixMilli())
	trades, ageMs, hasTrade := m.TapeReadiness(now, r.warmupWindow)
	return coordinator.EvalInput{
		Symbol:               symbol,
		Now:                  now,
		Snapshot:             m.Snapshot(now, 5),
		BookValid:            valid,
		InvalidReason:        invalidReason,
		TradesInWarmupWindow: trades,
		LastTradeAgeMs:       ageMs,
		HasTrade:             hasTrade,
	}, true
}

// TotalDataQualityRejects implements orchestrator.QualityProvider by
// summing every tracked symbol's malformed/rejected counters.
func (r *bookRegistry) TotalDataQualityRejects() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, b := range r.books {
		qc := b.QualityCounters()
		total += qc.MalformedEvents + qc.CrossedRejected + qc.LockedRejected
	}
	return int(total)
}

func (r *bookRegistry) symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.books))
	for s := range r.books {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
