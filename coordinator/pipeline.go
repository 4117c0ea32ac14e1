package coordinator

import (
	"log"
	"time"

	"github.com/google/uuid"

	"shadowtrader/bookstate"
	"shadowtrader/config"
	"shadowtrader/journal"
	"shadowtrader/scarcity"
)

// SubscriptionGate is the subset of subscription.Manager the pipeline needs
// for steps 1 and 5: active-universe and line-enablement checks.
type SubscriptionGate interface {
	IsActive(symbol string) bool
	IsDepthEnabled(symbol string) bool
	IsTapeEnabled(symbol string) bool
}

// ScarcityStager is the subset of scarcity.Controller the pipeline needs for
// step 15 and the orchestrator's periodic flush.
type ScarcityStager interface {
	StageCandidate(candidateID, symbol string, score float64, now time.Time) []scarcity.RankedDecision
	FlushRankWindow(now time.Time) []scarcity.RankedDecision
}

type pendingCandidate struct {
	symbol     string
	direction  Direction
	blueprint  Blueprint
	snapshot   bookstate.MetricSnapshot
	rankScore  float64
	confidence float64
	vwapBonus  float64
	gateTrace  []GateResult
	stagedAt   time.Time
}

type acceptedHistory struct {
	acceptedAt []time.Time // pruned to the last hour, for throttling
}

// Coordinator is ShadowTradingCoordinator (spec.md §4.3): the gated decision
// pipeline run once per fresh MetricSnapshot of an Active symbol.
type Coordinator struct {
	sessionID   string
	tradingMode string

	cfg config.ShadowTrading
	tg  config.TapeGate
	bp  config.Blueprint

	subs     SubscriptionGate
	scarcity ScarcityStager
	sink     journal.Sink
	validator Validator

	lastEvaluated      map[string]time.Time
	watchlistNextCheck map[string]time.Time
	acceptedSignals    map[string]*AcceptedSignalTracker
	lastAcceptedAt     map[string]time.Time
	history            map[string]*acceptedHistory
	pending            map[string]pendingCandidate
}

// New constructs a Coordinator. sessionID and tradingMode are copied onto
// every journal entry this coordinator emits.
func New(sessionID string, tradingMode config.TradingMode, cfg config.ShadowTrading, tg config.TapeGate, bp config.Blueprint, subs SubscriptionGate, sc ScarcityStager, sink journal.Sink, validator Validator) *Coordinator {
	return &Coordinator{
		sessionID:          sessionID,
		tradingMode:        string(tradingMode),
		cfg:                cfg,
		tg:                 tg,
		bp:                 bp,
		subs:               subs,
		scarcity:           sc,
		sink:               sink,
		validator:          validator,
		lastEvaluated:      make(map[string]time.Time),
		watchlistNextCheck: make(map[string]time.Time),
		acceptedSignals:    make(map[string]*AcceptedSignalTracker),
		lastAcceptedAt:     make(map[string]time.Time),
		history:            make(map[string]*acceptedHistory),
		pending:            make(map[string]pendingCandidate),
	}
}

// EvalInput bundles one fresh-snapshot trigger's inputs: the caller (feed
// ingest, via the orchestrator's wiring) owns the OrderBookState and already
// called IsBookValid and OrderFlowMetrics.TapeReadiness under its own read
// guard, so the pipeline never touches the book directly (spec.md §5).
type EvalInput struct {
	Symbol   string
	Now      time.Time
	Snapshot bookstate.MetricSnapshot

	BookValid     bool
	InvalidReason bookstate.InvalidReason

	TradesInWarmupWindow int
	LastTradeAgeMs       int64
	HasTrade             bool
}

// Evaluate runs the full pipeline (spec.md §4.3 steps 1-15) for one fresh
// snapshot of symbol. It is not safe for concurrent calls on the same
// symbol (spec.md §5: the decision pipeline for a given symbol runs on one
// logical context at a time); distinct symbols may call concurrently.
func (c *Coordinator) Evaluate(in EvalInput) {
	symbol, now, snap := in.Symbol, in.Now, in.Snapshot

	// Step 1: active-universe gate.
	if !c.subs.IsActive(symbol) {
		return
	}

	// Step 2: post-signal quality monitor for any currently-accepted signal.
	if tracker, ok := c.acceptedSignals[symbol]; ok {
		if c.cfg.PostSignalMonitoringEnabled && now.Sub(tracker.AcceptedAt) >= c.cfg.PostSignalGrace {
			if reason := tracker.Check(now, snap, c.cfg); reason != CancelNone {
				c.emitCanceled(tracker, now, snap, reason)
				delete(c.acceptedSignals, symbol)
			}
		}
	}

	// Step 3: per-symbol evaluation throttle.
	if last, ok := c.lastEvaluated[symbol]; ok && now.Sub(last) < c.cfg.SignalEvaluationThrottle {
		return
	}
	c.lastEvaluated[symbol] = now

	trace := []GateResult{{Gate: "ActiveUniverse", Passed: true}}

	// Step 4: book validity gate.
	if !in.BookValid {
		trace = append(trace, GateResult{Gate: "BookValid", Passed: false, Detail: string(in.InvalidReason)})
		c.emitNotReady(symbol, now, snap, ReasonBookInvalid, trace)
		return
	}
	trace = append(trace, GateResult{Gate: "BookValid", Passed: true})

	// Step 5: subscription gate.
	if !c.subs.IsDepthEnabled(symbol) {
		trace = append(trace, GateResult{Gate: "Subscription", Passed: false, Detail: string(ReasonNoDepth)})
		c.emitNotReady(symbol, now, snap, ReasonNoDepth, trace)
		return
	}
	if !c.subs.IsTapeEnabled(symbol) {
		trace = append(trace, GateResult{Gate: "Subscription", Passed: false, Detail: string(ReasonTapeMissingSubscription)})
		c.emitNotReady(symbol, now, snap, ReasonTapeMissingSubscription, trace)
		return
	}
	trace = append(trace, GateResult{Gate: "Subscription", Passed: true})

	// Step 6: tape status gate.
	status, reason := c.tapeStatus(in.TradesInWarmupWindow, in.LastTradeAgeMs, in.HasTrade)
	if status != TapeReady {
		if status == TapeNotWarmedUp {
			next, watching := c.watchlistNextCheck[symbol]
			if watching && now.Before(next) {
				return // silently wait for the recheck cadence, per spec.md step 6
			}
			c.watchlistNextCheck[symbol] = now.Add(c.cfg.TapeWatchlistRecheckInterval)
		} else {
			delete(c.watchlistNextCheck, symbol)
		}
		trace = append(trace, GateResult{Gate: "TapeStatus", Passed: false, Detail: string(reason)})
		c.emitNotReady(symbol, now, snap, reason, trace)
		return
	}
	delete(c.watchlistNextCheck, symbol)
	trace = append(trace, GateResult{Gate: "TapeStatus", Passed: true})

	// Step 7: validator decision, plus duplicate/throttle suppression.
	decision := c.validator.Evaluate(symbol, snap)
	if !decision.HasCandidate {
		return // step 8: silent return
	}
	if decision.Accepted {
		if last, ok := c.lastAcceptedAt[symbol]; ok && now.Sub(last) < c.cfg.DuplicateSuppressionWindow {
			decision.Accepted = false
			decision.RejectionReason = ReasonDuplicateSuppressed
		} else if c.acceptedInLastHour(symbol, now) >= c.cfg.MaxAcceptedPerHourPerSymbol {
			decision.Accepted = false
			decision.RejectionReason = ReasonThrottled
		}
	}
	if !decision.Accepted {
		trace = append(trace, GateResult{Gate: "Validator", Passed: false, Detail: string(decision.RejectionReason)})
		c.emitRejected(symbol, now, snap, decision.RejectionReason, decision.Signal.Confidence, trace)
		return
	}
	trace = append(trace, GateResult{Gate: "Validator", Passed: true})

	// Step 10: anti-spoof filter.
	if antiSpoofSuspected(snap, decision.Direction) {
		trace = append(trace, GateResult{Gate: "AntiSpoof", Passed: false, Detail: string(ReasonSpoofSuspected)})
		c.emitRejected(symbol, now, snap, ReasonSpoofSuspected, decision.Signal.Confidence, trace)
		return
	}
	trace = append(trace, GateResult{Gate: "AntiSpoof", Passed: true})

	// Step 11: replenishment filter.
	if replenishmentSuspected(snap, decision.Direction) {
		trace = append(trace, GateResult{Gate: "Replenishment", Passed: false, Detail: string(ReasonReplenishmentSuspected)})
		c.emitRejected(symbol, now, snap, ReasonReplenishmentSuspected, decision.Signal.Confidence, trace)
		return
	}
	trace = append(trace, GateResult{Gate: "Replenishment", Passed: true})

	// Step 12: absorption filter.
	if absorptionInsufficient(snap) {
		trace = append(trace, GateResult{Gate: "Absorption", Passed: false, Detail: string(ReasonAbsorptionInsufficient)})
		c.emitRejected(symbol, now, snap, ReasonAbsorptionInsufficient, decision.Signal.Confidence, trace)
		return
	}
	trace = append(trace, GateResult{Gate: "Absorption", Passed: true})

	// Step 13: blueprint construction.
	blueprint, rejectReason := buildBlueprint(snap, decision.Direction, c.bp)
	if rejectReason != ReasonNone {
		trace = append(trace, GateResult{Gate: "Blueprint", Passed: false, Detail: string(rejectReason)})
		c.emitRejected(symbol, now, snap, rejectReason, decision.Signal.Confidence, trace)
		return
	}
	trace = append(trace, GateResult{Gate: "Blueprint", Passed: true})

	// Step 14: VWAP reclaim bonus, against the actual last trade print price
	// (the TapeStatus gate above already requires HasTrade, so this is only
	// a defensive fallback, never the normal path).
	var lastPrice float64
	if snap.HasLastTrade {
		lastPrice, _ = snap.LastTradePrice.Float64()
	} else {
		mid, _ := snap.BestBid.Add(snap.BestAsk).Float64()
		lastPrice = mid / 2
	}
	bonus := vwapReclaimBonus(snap, decision.Direction, lastPrice)
	rankScore := decision.Signal.Confidence + bonus

	// Step 15: scarcity staging.
	decisionID := uuid.NewString()
	trace = append(trace, GateResult{Gate: "ScarcityStaging", Passed: true, Detail: "AwaitingScarcityRanking"})
	c.pending[decisionID] = pendingCandidate{
		symbol:     symbol,
		direction:  decision.Direction,
		blueprint:  blueprint,
		snapshot:   snap,
		rankScore:  rankScore,
		confidence: decision.Signal.Confidence,
		vwapBonus:  bonus,
		gateTrace:  trace,
		stagedAt:   now,
	}
	c.emitPending(decisionID, symbol, now, snap, decision.Direction, blueprint, decision.Signal.Confidence, bonus, rankScore, trace)

	closed := c.scarcity.StageCandidate(decisionID, symbol, rankScore, now)
	c.resolveScarcityDecisions(now, closed)
}

// FlushScarcityWindow drives the orchestrator's periodic scarcity-window
// flush timer (spec.md §5, default interval in config.Orchestrator).
func (c *Coordinator) FlushScarcityWindow(now time.Time) {
	closed := c.scarcity.FlushRankWindow(now)
	c.resolveScarcityDecisions(now, closed)
}

// WatchlistedSymbols returns the symbols currently parked on the
// tape-warmup watchlist, for the orchestrator's recheck loop (spec.md §4.3
// step 6) to re-snapshot and re-evaluate independent of feed event arrival.
func (c *Coordinator) WatchlistedSymbols() []string {
	out := make([]string, 0, len(c.watchlistNextCheck))
	for symbol := range c.watchlistNextCheck {
		out = append(out, symbol)
	}
	return out
}

func (c *Coordinator) resolveScarcityDecisions(now time.Time, decisions []scarcity.RankedDecision) {
	for _, d := range decisions {
		cand, ok := c.pending[d.CandidateID]
		if !ok {
			log.Printf("coordinator: scarcity resolved unknown candidate %s", d.CandidateID)
			continue
		}
		delete(c.pending, d.CandidateID)

		outcome := journal.OutcomeRejected
		reason := d.Reason.String()
		if d.Accepted {
			outcome = journal.OutcomeAccepted
			reason = ""
			c.lastAcceptedAt[cand.symbol] = now
			c.recordAcceptance(cand.symbol, now)
			c.acceptedSignals[cand.symbol] = NewAcceptedSignalTracker(d.CandidateID, cand.symbol, cand.direction, now, cand.snapshot)
		}
		c.emitResolution(d.CandidateID, cand, now, outcome, reason)
	}
}

func (c *Coordinator) tapeStatus(tradesInWarmupWindow int, lastTradeAgeMs int64, hasTrade bool) (TapeStatus, RejectionReason) {
	if !hasTrade {
		return TapeNotWarmedUp, ReasonTapeNotWarmedUp
	}
	if lastTradeAgeMs > c.tg.StaleWindow.Milliseconds() {
		return TapeStale, ReasonTapeStale
	}
	if tradesInWarmupWindow < c.tg.WarmupMinTrades {
		return TapeNotWarmedUp, ReasonTapeNotWarmedUp
	}
	return TapeReady, ReasonNone
}

func (c *Coordinator) acceptedInLastHour(symbol string, now time.Time) int {
	h, ok := c.history[symbol]
	if !ok {
		return 0
	}
	cutoff := now.Add(-time.Hour)
	kept := h.acceptedAt[:0]
	for _, at := range h.acceptedAt {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	h.acceptedAt = kept
	return len(h.acceptedAt)
}

func (c *Coordinator) recordAcceptance(symbol string, now time.Time) {
	h, ok := c.history[symbol]
	if !ok {
		h = &acceptedHistory{}
		c.history[symbol] = h
	}
	h.acceptedAt = append(h.acceptedAt, now)
}

func toObservedMetrics(snap bookstate.MetricSnapshot) *journal.ObservedMetrics {
	bestBid, _ := snap.BestBid.Float64()
	bestAsk, _ := snap.BestAsk.Float64()
	spread, _ := snap.Spread.Float64()
	cumVwap, _ := snap.CumulativeVwap.Float64()
	return &journal.ObservedMetrics{
		BestBid:          bestBid,
		BestAsk:          bestAsk,
		Spread:           spread,
		QueueImbalance:   snap.QueueImbalance,
		TapeAcceleration: snap.TapeAcceleration,
		TradesIn3Sec:     snap.TradesIn3Sec,
		CumulativeVwap:   cumVwap,
	}
}

func toJournalDirection(d Direction) journal.Side {
	if d == Sell {
		return journal.SideSell
	}
	return journal.SideBuy
}

func toGateNames(trace []GateResult) *journal.GateTrace {
	names := make([]string, 0, len(trace))
	for _, g := range trace {
		if g.Passed {
			names = append(names, g.Gate+":pass")
		} else {
			names = append(names, g.Gate+":"+g.Detail)
		}
	}
	return &journal.GateTrace{Gates: names}
}

func (c *Coordinator) emitNotReady(symbol string, now time.Time, snap bookstate.MetricSnapshot, reason RejectionReason, trace []GateResult) {
	c.sink.Enqueue(journal.Entry{
		SchemaVersion:        journal.SchemaVersion,
		SessionID:            c.sessionID,
		DecisionID:           uuid.NewString(),
		EntryType:            journal.EntryRejection,
		DecisionOutcome:      journal.OutcomeNotReady,
		RejectionReason:      string(reason),
		MarketTimestampUTC:   now,
		DecisionTimestampUTC: now,
		TradingMode:          c.tradingMode,
		Symbol:               symbol,
		ObservedMetrics:      toObservedMetrics(snap),
		GateTrace:            toGateNames(trace),
	})
}

func (c *Coordinator) emitRejected(symbol string, now time.Time, snap bookstate.MetricSnapshot, reason RejectionReason, confidence float64, trace []GateResult) {
	c.sink.Enqueue(journal.Entry{
		SchemaVersion:        journal.SchemaVersion,
		SessionID:            c.sessionID,
		DecisionID:           uuid.NewString(),
		EntryType:            journal.EntryRejection,
		DecisionOutcome:      journal.OutcomeRejected,
		RejectionReason:      string(reason),
		MarketTimestampUTC:   now,
		DecisionTimestampUTC: now,
		TradingMode:          c.tradingMode,
		Symbol:               symbol,
		ObservedMetrics:      toObservedMetrics(snap),
		DecisionInputs:       &journal.DecisionInputs{Confidence: confidence},
		GateTrace:            toGateNames(trace),
	})
}

func (c *Coordinator) emitPending(decisionID, symbol string, now time.Time, snap bookstate.MetricSnapshot, dir Direction, bp Blueprint, confidence, bonus, rankScore float64, trace []GateResult) {
	c.sink.Enqueue(journal.Entry{
		SchemaVersion:        journal.SchemaVersion,
		SessionID:            c.sessionID,
		DecisionID:           decisionID,
		EntryType:            journal.EntrySignal,
		DecisionOutcome:      journal.OutcomePending,
		MarketTimestampUTC:   now,
		DecisionTimestampUTC: now,
		TradingMode:          c.tradingMode,
		Symbol:               symbol,
		ObservedMetrics:      toObservedMetrics(snap),
		DecisionInputs:       &journal.DecisionInputs{Confidence: confidence, VwapReclaimBonus: bonus, RankScore: rankScore},
		Blueprint: &journal.Blueprint{
			Direction: toJournalDirection(dir),
			Entry:     bp.Entry,
			Stop:      bp.Stop,
			Target:    bp.Target,
		},
		GateTrace: toGateNames(trace),
	})
}

func (c *Coordinator) emitResolution(decisionID string, cand pendingCandidate, now time.Time, outcome journal.DecisionOutcome, reason string) {
	trace := append(append([]GateResult(nil), cand.gateTrace...), GateResult{Gate: "Scarcity", Passed: outcome == journal.OutcomeAccepted, Detail: reason})
	c.sink.Enqueue(journal.Entry{
		SchemaVersion:        journal.SchemaVersion,
		SessionID:            c.sessionID,
		DecisionID:           decisionID,
		EntryType:            journal.EntrySignal,
		DecisionOutcome:      outcome,
		RejectionReason:      reason,
		MarketTimestampUTC:   now,
		DecisionTimestampUTC: now,
		TradingMode:          c.tradingMode,
		Symbol:               cand.symbol,
		ObservedMetrics:      toObservedMetrics(cand.snapshot),
		DecisionInputs:       &journal.DecisionInputs{Confidence: cand.confidence, VwapReclaimBonus: cand.vwapBonus, RankScore: cand.rankScore},
		Blueprint: &journal.Blueprint{
			Direction: toJournalDirection(cand.direction),
			Entry:     cand.blueprint.Entry,
			Stop:      cand.blueprint.Stop,
			Target:    cand.blueprint.Target,
		},
		GateTrace: toGateNames(trace),
	})
}

func (c *Coordinator) emitCanceled(tracker *AcceptedSignalTracker, now time.Time, snap bookstate.MetricSnapshot, reason CancelReason) {
	c.sink.Enqueue(journal.Entry{
		SchemaVersion:        journal.SchemaVersion,
		SessionID:            c.sessionID,
		DecisionID:           tracker.DecisionID,
		EntryType:            journal.EntryCanceled,
		DecisionOutcome:      journal.OutcomeCanceled,
		RejectionReason:      string(reason),
		MarketTimestampUTC:   now,
		DecisionTimestampUTC: now,
		TradingMode:          c.tradingMode,
		Symbol:               tracker.Symbol,
		ObservedMetrics:      toObservedMetrics(snap),
	})
}
