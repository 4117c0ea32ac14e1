// Package orchestrator is the one-thread "orchestrator / reconcile" context
// spec.md §5 names: it drives subscription reconciles, broker health
// checks, scarcity-window flushes, and tape-warmup watchlist rechecks on
// independent timers, all behind one shutdown token. Grounded on the
// errgroup-supervised goroutine-per-loop pattern used for mode startup in
// the pack (alanyoungcy-polymarketbot's app.TradeMode: `g, ctx :=
// errgroup.WithContext(ctx)`, one `g.Go` per long-running loop, each loop
// selecting on `ctx.Done()`), since the teacher itself runs single-threaded
// around a blocking FIX message loop and has no equivalent supervisor.
package orchestrator

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"shadowtrader/config"
	"shadowtrader/coordinator"
	"shadowtrader/journal"
	"shadowtrader/subscription"
)

// CandidateProvider supplies the reconcile loop's nominated symbol universe
// and their triage inputs. The actual screener/ranking source is an
// external collaborator (spec.md §1); this interface is its only contract
// with the core.
type CandidateProvider interface {
	Candidates(now time.Time) []subscription.Candidate
}

// SnapshotProvider resolves a symbol's current EvalInput on demand, for the
// tape-watchlist recheck loop to re-enter the pipeline without waiting for
// a fresh feed event (spec.md §4.3 step 6: "rechecked every
// tape_watchlist_recheck_interval_ms to re-enter the pipeline the moment
// the tape warms").
type SnapshotProvider interface {
	Snapshot(symbol string, now time.Time) (coordinator.EvalInput, bool)
}

// ConnectionHealth reports broker session liveness for the health-check
// loop. The underlying quickfix.Initiator already retries the socket-level
// connection on its own configured interval once started; Connected()
// merely reports whether that retry has succeeded yet, and the
// health-check loop paces its own polling against it with exponential
// backoff (spec.md §7: "trigger reconnect with exponential backoff; on
// success, re-subscribe Active Universe").
type ConnectionHealth interface {
	Connected() bool
}

// QualityProvider aggregates per-symbol data-quality counters across the
// book registry for the heartbeat's SystemMetrics.DataQualityRejects field.
type QualityProvider interface {
	TotalDataQualityRejects() int
}

// Reconciler is the subset of subscription.Manager the reconcile loop
// drives.
type Reconciler interface {
	ApplyUniverse(candidates []subscription.Candidate, maxCandidates int, now time.Time) subscription.UniverseUpdate
}

// Supervisor runs the orchestrator's four timer loops for the lifetime of
// the supplied context.
type Supervisor struct {
	cfg           config.Orchestrator
	maxCandidates int
	sessionID     string
	tradingMode   string

	candidates CandidateProvider
	snapshots  SnapshotProvider
	health     ConnectionHealth
	quality    QualityProvider
	subs       Reconciler
	decider    *coordinator.Coordinator
	sink       journal.Sink

	disconnectedSince time.Time
	nextHealthCheck   time.Time
	backoff           time.Duration
}

// New constructs a Supervisor. Any of health/quality/snapshots may be nil
// if that loop's collaborator isn't wired for a given run (e.g. a replay
// session has no live broker health to monitor); the corresponding loop
// becomes a no-op tick.
func New(sessionID string, tradingMode config.TradingMode, cfg config.Orchestrator, maxCandidates int, candidates CandidateProvider, snapshots SnapshotProvider, health ConnectionHealth, quality QualityProvider, subs Reconciler, decider *coordinator.Coordinator, sink journal.Sink) *Supervisor {
	return &Supervisor{
		sessionID:     sessionID,
		tradingMode:   string(tradingMode),
		cfg:           cfg,
		maxCandidates: maxCandidates,
		candidates:    candidates,
		snapshots:     snapshots,
		health:        health,
		quality:       quality,
		subs:          subs,
		decider:       decider,
		sink:          sink,
	}
}

// Run blocks until ctx is canceled or a loop returns a non-nil error, then
// waits for every loop to exit.
func (s *Supervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.reconcileLoop(ctx) })
	g.Go(func() error { return s.healthCheckLoop(ctx) })
	g.Go(func() error { return s.scarcityFlushLoop(ctx) })
	g.Go(func() error { return s.watchlistLoop(ctx) })

	return g.Wait()
}

func (s *Supervisor) reconcileLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.reconcileOnce(now)
		}
	}
}

// ReconcileNow runs one reconcile pass immediately, for explicit triggers
// (spec.md §5: "on a timer ... and on explicit triggers") outside the
// regular cadence — e.g. a broker reconnect or an operator command.
func (s *Supervisor) ReconcileNow(now time.Time) {
	s.reconcileOnce(now)
}

func (s *Supervisor) reconcileOnce(now time.Time) {
	if s.candidates == nil || s.subs == nil {
		return
	}
	update := s.subs.ApplyUniverse(s.candidates.Candidates(now), s.maxCandidates, now)

	s.sink.Enqueue(journal.Entry{
		SchemaVersion:        journal.SchemaVersion,
		SessionID:            s.sessionID,
		DecisionID:           "",
		EntryType:            journal.EntryUniverseUpdate,
		MarketTimestampUTC:   now,
		DecisionTimestampUTC: now,
		TradingMode:          s.tradingMode,
		UniverseUpdate: &journal.UniverseUpdateFields{
			Active:     update.Active,
			DepthSet:   update.DepthSet,
			Evicted:    update.Evicted,
			Subscribed: update.Subscribed,
			TotalLines: update.TotalLines,
		},
	})

	rejects := 0
	if s.quality != nil {
		rejects = s.quality.TotalDataQualityRejects()
	}
	s.sink.Enqueue(journal.Entry{
		SchemaVersion:        journal.SchemaVersion,
		SessionID:            s.sessionID,
		EntryType:            journal.EntryHeartbeat,
		MarketTimestampUTC:   now,
		DecisionTimestampUTC: now,
		TradingMode:          s.tradingMode,
		SystemMetrics: &journal.SystemMetrics{
			ActiveSymbols:         len(update.Active),
			TotalLines:            update.TotalLines,
			DataQualityRejects:    rejects,
			JournalEntriesDropped: int(s.sink.Dropped()),
		},
	})
}

func (s *Supervisor) healthCheckLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.checkHealthOnce(now)
		}
	}
}

// checkHealthOnce implements spec.md §7's broker-disconnect row. It does not
// drive the actual socket reconnect itself (quickfix.Initiator already
// retries that on its own ReconnectInterval once Start() has been called);
// it paces its own re-checks with exponential backoff while down, and on
// the disconnected-to-connected transition immediately re-subscribes the
// Active Universe via ReconcileNow.
func (s *Supervisor) checkHealthOnce(now time.Time) {
	if s.health == nil {
		return
	}

	if s.health.Connected() {
		if !s.disconnectedSince.IsZero() {
			log.Printf("orchestrator: broker session reconnected after %s, re-subscribing active universe", now.Sub(s.disconnectedSince))
			s.disconnectedSince = time.Time{}
			s.nextHealthCheck = time.Time{}
			s.backoff = 0
			s.ReconcileNow(now)
		}
		return
	}

	if s.disconnectedSince.IsZero() {
		s.disconnectedSince = now
		s.backoff = s.cfg.ReconnectMinBackoff
		s.nextHealthCheck = now.Add(s.backoff)
		log.Printf("orchestrator: broker session reports disconnected as of %s, next reconnect check in %s", now, s.backoff)
		return
	}

	if now.Before(s.nextHealthCheck) {
		return
	}

	s.backoff *= 2
	if s.backoff > s.cfg.ReconnectMaxBackoff {
		s.backoff = s.cfg.ReconnectMaxBackoff
	}
	s.nextHealthCheck = now.Add(s.backoff)
	log.Printf("orchestrator: broker session still disconnected, down for %s, next reconnect check in %s", now.Sub(s.disconnectedSince), s.backoff)
}

func (s *Supervisor) scarcityFlushLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.ScarcityFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if s.decider != nil {
				s.decider.FlushScarcityWindow(now)
			}
		}
	}
}

func (s *Supervisor) watchlistLoop(ctx context.Context) error {
	// The watchlist recheck cadence itself is a ShadowTrading knob
	// (tape_watchlist_recheck_interval_ms), not an Orchestrator one; the
	// coordinator self-throttles emission at that cadence internally
	// (watchlistNextCheck). This loop only needs to poll often enough to
	// catch it, so it ticks at spec.md §5's literal orchestrator default
	// of 5s regardless of the configured recheck interval.
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.recheckWatchlistOnce(now)
		}
	}
}

func (s *Supervisor) recheckWatchlistOnce(now time.Time) {
	if s.decider == nil || s.snapshots == nil {
		return
	}
	for _, symbol := range s.decider.WatchlistedSymbols() {
		in, ok := s.snapshots.Snapshot(symbol, now)
		if !ok {
			continue
		}
		s.decider.Evaluate(in)
	}
}
