package subscription

import (
	"log"
	"sort"
	"sync"
	"time"

	"shadowtrader/config"
	"shadowtrader/feed"
)

// EligibilityStore persists cross-restart cooldown state (24h depth
// ineligibility, 30m tick-by-tick cap). The concrete implementation lives in
// package eligibility; this interface keeps the manager decoupled from it.
type EligibilityStore interface {
	IsDepthIneligible(symbol string, now time.Time) bool
	MarkDepthIneligible(symbol string, until time.Time)
	IsTickByTickCooling(symbol string, now time.Time) bool
	MarkTickByTickCooldown(symbol string, until time.Time)
}

// Manager is MarketDataSubscriptionManager: it owns every symbol's
// subscription triple, enforces the line budget, and runs focus rotation.
// The reconcile pass is serialized by mu; query methods below take a read
// lock only (spec.md §4.2 "Concurrency").
type Manager struct {
	mu sync.RWMutex

	cfg     config.MarketData
	focus   config.Focus
	broker  config.Broker
	session feed.BrokerSession
	store   EligibilityStore

	states map[string]*State

	tickByTickGlobalCooldownUntil time.Time

	lastUniverse UniverseUpdate
}

// New constructs a Manager bound to a live broker session and an
// eligibility cache.
func New(cfg config.MarketData, focus config.Focus, broker config.Broker, session feed.BrokerSession, store EligibilityStore) *Manager {
	return &Manager{
		cfg:     cfg,
		focus:   focus,
		broker:  broker,
		session: session,
		store:   store,
		states:  make(map[string]*State),
	}
}

// Candidate is one symbol nominated for subscription, carrying the triage
// inputs needed to score it.
type Candidate struct {
	Symbol string
	Triage TriageInputs
}

// ApplyUniverse runs one full reconcile pass (spec.md §4.2 steps 1-9).
func (m *Manager) ApplyUniverse(candidates []Candidate, maxCandidates int, now time.Time) UniverseUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Step 1: normalize and truncate.
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	candidateSet := make(map[string]bool, len(candidates))
	scores := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		candidateSet[c.Symbol] = true
		scores[c.Symbol] = TriageScore(c.Triage) // Step 2
	}

	// Step 3: select depth set via focus rotation.
	var current []FocusCandidate
	for symbol, st := range m.states {
		if st.FocusSince.IsZero() {
			continue
		}
		current = append(current, FocusCandidate{
			Symbol:       symbol,
			Score:        scores[symbol], // zero if no longer a candidate: naturally evictable via score
			FocusedSince: st.FocusSince,
			Dwell:        now.Sub(st.FocusSince),
			TapeIdleFor:  idleSince(st.LastTapeRecv, now),
			DepthIdleFor: idleSince(st.LastDepthRecv, now),
			WarmupTrades: m.focus.WarmupMinTrades, // warmup tracking lives in the coordinator's tape gate; treated as met once focused past min dwell
		})
	}
	var challengers []FocusCandidate
	for _, c := range candidates {
		if m.store.IsDepthIneligible(c.Symbol, now) {
			continue
		}
		challengers = append(challengers, FocusCandidate{Symbol: c.Symbol, Score: scores[c.Symbol]})
	}

	depthKeep, depthEvicted, depthAdd := selectDepthSet(current, challengers, m.focus, m.cfg.MaxDepthSymbols)
	depthKeepSet := toSet(depthKeep)

	// Step 4: for each symbol leaving the depth set, disable depth + tick-by-tick.
	for _, symbol := range depthEvicted {
		m.revokeDepthAndTickByTick(symbol)
	}

	// A tick-by-tick cap hit sets a global deadline (HandleFeedError); every
	// reconcile that starts before it skips tick-by-tick enables for all
	// symbols, not just the rest of the current cycle.
	cycleTickByTickBlocked := now.Before(m.tickByTickGlobalCooldownUntil)

	// Step 5: free lines if over budget.
	m.enforceLineBudget(candidateSet, now)

	// Step 6: subscribe tape-only for new candidates, subject to cap.
	var subscribed []string
	for _, c := range candidates {
		st := m.stateFor(c.Symbol)
		if st.HasTape {
			continue
		}
		if m.totalLines() >= m.cfg.MaxLines {
			log.Printf("subscription: line budget exhausted, skipping tape subscribe for %s", c.Symbol)
			continue
		}
		if !m.cfg.EnableTape {
			continue
		}
		if _, err := m.session.Subscribe(c.Symbol, false); err != nil {
			log.Printf("subscription: tape subscribe failed for %s: %v", c.Symbol, err)
			continue
		}
		st.HasTape = true
		st.SubscribedAt = now
		subscribed = append(subscribed, c.Symbol)
	}

	// Step 7: upgrade depth for the chosen depth set. Each upgrade costs a
	// line (the depth slot itself, plus the tick-by-tick slot step 8 is
	// about to add), so this respects the same max_lines budget step 6
	// does — invariant 5 holds even when depth_cap alone would allow more
	// depth symbols than the line budget has room for.
	for _, symbol := range depthAdd {
		if m.totalLines()+2 > m.cfg.MaxLines {
			log.Printf("subscription: line budget exhausted, skipping depth upgrade for %s", symbol)
			continue
		}
		st := m.stateFor(symbol)
		if m.store.IsDepthIneligible(symbol, now) {
			continue
		}
		if !m.cfg.EnableDepth {
			continue
		}
		result, err := m.session.Subscribe(symbol, true)
		if err != nil {
			log.Printf("subscription: depth subscribe failed for %s: %v", symbol, err)
			continue
		}
		st.HasDepth = true
		st.DepthID = result.DepthID
		st.FocusSince = now
	}

	// Step 8: enable tick-by-tick for each depth symbol; revoke depth on failure.
	for symbol := range depthKeepSet {
		st := m.stateFor(symbol)
		if !st.HasDepth || st.HasTickByTick {
			continue
		}
		if cycleTickByTickBlocked || m.store.IsTickByTickCooling(symbol, now) {
			m.revokeDepthAndTickByTick(symbol)
			continue
		}
		id, err := m.session.EnableTickByTick(symbol)
		if err != nil {
			log.Printf("subscription: enable tick-by-tick failed for %s: %v", symbol, err)
			m.revokeDepthAndTickByTick(symbol)
			continue
		}
		st.HasTickByTick = true
		st.TickByTickID = id
	}

	// Step 9: recompute Active Universe and emit UniverseUpdate.
	update := UniverseUpdate{
		At:         now,
		DepthSet:   depthKeep,
		Evicted:    depthEvicted,
		Subscribed: subscribed,
		TotalLines: m.totalLines(),
		TickByTickGlobalCooldownUntil: m.tickByTickGlobalCooldownUntil,
	}
	for symbol, st := range m.states {
		if st.Active() {
			update.Active = append(update.Active, symbol)
		}
	}
	sort.Strings(update.Active)
	m.lastUniverse = update
	return update
}

// enforceLineBudget implements step 5: drop tick-by-tick on non-candidate
// symbols ordered by least-recent activity first, then evict whole
// subscriptions (tape-first) preferring non-candidates, until total_lines
// is back at or under max_lines.
func (m *Manager) enforceLineBudget(candidateSet map[string]bool, now time.Time) {
	if m.totalLines() <= m.cfg.MaxLines {
		return
	}

	type entry struct {
		symbol     string
		lastActive time.Time
	}
	var nonCandidateTickByTick []entry
	for symbol, st := range m.states {
		if candidateSet[symbol] || !st.HasTickByTick {
			continue
		}
		nonCandidateTickByTick = append(nonCandidateTickByTick, entry{symbol, lastActivity(st)})
	}
	sort.Slice(nonCandidateTickByTick, func(i, j int) bool {
		return nonCandidateTickByTick[i].lastActive.Before(nonCandidateTickByTick[j].lastActive)
	})
	for _, e := range nonCandidateTickByTick {
		if m.totalLines() <= m.cfg.MaxLines {
			return
		}
		m.disableTickByTick(e.symbol)
	}

	var evictOrder []entry
	for symbol, st := range m.states {
		if st.TotalLines() == 0 {
			continue
		}
		evictOrder = append(evictOrder, entry{symbol, lastActivity(st)})
	}
	// Non-candidates first, then least-recently-active.
	sort.Slice(evictOrder, func(i, j int) bool {
		a, b := evictOrder[i], evictOrder[j]
		aCand, bCand := candidateSet[a.symbol], candidateSet[b.symbol]
		if aCand != bCand {
			return !aCand
		}
		return a.lastActive.Before(b.lastActive)
	})
	// This loop only runs while total_lines > max_lines, so min_hold's
	// protection is exactly the exception spec.md §4.2 names ("unless we
	// are already over cap, then eviction is allowed before min-hold") —
	// eviction proceeds regardless of how recently a symbol subscribed.
	for _, e := range evictOrder {
		if m.totalLines() <= m.cfg.MaxLines {
			return
		}
		m.evictSymbol(e.symbol)
	}
}

func (m *Manager) evictSymbol(symbol string) {
	_, ok := m.states[symbol]
	if !ok {
		return
	}
	if err := m.session.Unsubscribe(symbol); err != nil {
		log.Printf("subscription: unsubscribe failed for %s: %v", symbol, err)
	}
	delete(m.states, symbol)
}

func (m *Manager) disableTickByTick(symbol string) {
	st, ok := m.states[symbol]
	if !ok || !st.HasTickByTick {
		return
	}
	if err := m.session.DisableTickByTick(symbol); err != nil {
		log.Printf("subscription: disable tick-by-tick failed for %s: %v", symbol, err)
	}
	st.HasTickByTick = false
	st.TickByTickID = ""
}

func (m *Manager) revokeDepthAndTickByTick(symbol string) {
	st, ok := m.states[symbol]
	if !ok {
		return
	}
	if st.HasDepth {
		if err := m.session.DisableDepth(symbol); err != nil {
			log.Printf("subscription: disable depth failed for %s: %v", symbol, err)
		}
		st.HasDepth = false
		st.DepthID = ""
		st.FocusSince = time.Time{}
	}
	if st.HasTickByTick {
		m.disableTickByTick(symbol)
	}
}

func (m *Manager) stateFor(symbol string) *State {
	st, ok := m.states[symbol]
	if !ok {
		st = &State{Symbol: symbol}
		m.states[symbol] = st
	}
	return st
}

func (m *Manager) totalLines() int {
	n := 0
	for _, st := range m.states {
		n += st.TotalLines()
	}
	return n
}

// RecordTapeReceipt feeds focus-rotation telemetry (spec.md §4.2).
func (m *Manager) RecordTapeReceipt(symbol string, recvTS time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[symbol]; ok {
		st.LastTapeRecv = recvTS
	}
}

// RecordDepthReceipt feeds focus-rotation telemetry.
func (m *Manager) RecordDepthReceipt(symbol string, recvTS time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[symbol]; ok {
		st.LastDepthRecv = recvTS
	}
}

// HandleFeedError drives cooldowns per spec.md §4.2 / §7. The caller reads
// symbol directly off feed.SubscriptionError (the adapter resolves
// requestID -> symbol internally, e.g. via fixadapter.Adapter's reqSymbols
// table).
func (m *Manager) HandleFeedError(symbol string, class feed.ErrorClass, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch class {
	case feed.DepthIneligible:
		until := now.Add(m.broker.DepthIneligibleCooldown)
		m.store.MarkDepthIneligible(symbol, until)
		m.revokeDepthAndTickByTick(symbol)
		log.Printf("subscription: %s marked depth-ineligible until %s", symbol, until)
	case feed.TickByTickCapReached:
		until := now.Add(m.broker.TickByTickCapCooldown)
		m.store.MarkTickByTickCooldown(symbol, until)
		m.tickByTickGlobalCooldownUntil = until
		m.revokeDepthAndTickByTick(symbol)
		log.Printf("subscription: tick-by-tick cap hit, global cooldown until %s", until)
	case feed.TransientSubscription:
		log.Printf("subscription: transient error for %s, no cooldown applied", symbol)
	}
}

// IsTapeEnabled reports whether symbol currently holds a tape line.
func (m *Manager) IsTapeEnabled(symbol string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[symbol]
	return ok && st.HasTape
}

// IsDepthEnabled reports whether symbol currently holds a depth line.
func (m *Manager) IsDepthEnabled(symbol string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[symbol]
	return ok && st.HasDepth
}

// IsActive reports Active Universe membership.
func (m *Manager) IsActive(symbol string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[symbol]
	return ok && st.Active()
}

// ActiveUniverseSnapshot returns a sorted copy of the current Active
// Universe.
func (m *Manager) ActiveUniverseSnapshot() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for symbol, st := range m.states {
		if st.Active() {
			out = append(out, symbol)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a sorted copy of every known symbol's subscription state,
// for read-only status reporting.
func (m *Manager) Snapshot() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]State, 0, len(m.states))
	for _, st := range m.states {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func idleSince(last, now time.Time) time.Duration {
	if last.IsZero() {
		return now.Sub(time.Time{})
	}
	return now.Sub(last)
}

func toSet(symbols []string) map[string]bool {
	s := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		s[sym] = true
	}
	return s
}

func lastActivity(st *State) time.Time {
	latest := st.SubscribedAt
	if st.LastTapeRecv.After(latest) {
		latest = st.LastTapeRecv
	}
	if st.LastDepthRecv.After(latest) {
		latest = st.LastDepthRecv
	}
	return latest
}
