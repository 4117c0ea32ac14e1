// Package scarcity implements ScarcityController (SPEC_FULL.md §4.4): a
// short ranking window that selects at most N globally (and at most K per
// symbol) candidates per unit time, preferring higher-scoring candidates
// when several fire within the window. Grounded on the teacher's
// map-of-struct-guarded-by-mutex bookkeeping style
// (`fixclient/tradestore.go`'s subscriptions map), since ScarcityController
// is, structurally, the same "small keyed state machine behind one mutex"
// shape applied to ranking windows and cooldowns instead of trade rows.
package scarcity

import (
	"sort"
	"sync"
	"time"

	"shadowtrader/config"
)

// RejectReason names why a staged candidate resolved to Rejected, per
// spec.md §4.4.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectGlobalLimit
	RejectSymbolLimit
	RejectGlobalCooldown
	RejectSymbolCooldown
	RejectRankedOut
)

func (r RejectReason) String() string {
	switch r {
	case RejectGlobalLimit:
		return "GlobalLimit"
	case RejectSymbolLimit:
		return "SymbolLimit"
	case RejectGlobalCooldown:
		return "GlobalCooldown"
	case RejectSymbolCooldown:
		return "SymbolCooldown"
	case RejectRankedOut:
		return "RejectedRankedOut"
	default:
		return "None"
	}
}

// RankedDecision is the finalized Accept/Reject resolution of one staged
// candidate.
type RankedDecision struct {
	CandidateID string
	Symbol      string
	Score       float64
	Accepted    bool
	Reason      RejectReason
}

type pending struct {
	candidateID string
	symbol      string
	score       float64
	stagedAt    time.Time
}

// Controller is ScarcityController. It is safe for concurrent use: staging
// and flushing are both serialized by mu, mirroring the teacher's
// single-mutex-per-map-of-state pattern.
type Controller struct {
	mu sync.Mutex

	cfg config.Scarcity

	windowOpenedAt time.Time
	windowPending  []pending

	acceptedGlobal []time.Time          // accepted timestamps, for the rolling global_window cap
	acceptedSymbol map[string]time.Time // last accepted timestamp per symbol, for symbol_cooldown
}

// New constructs a Controller from the session's scarcity knobs.
func New(cfg config.Scarcity) *Controller {
	return &Controller{cfg: cfg, acceptedSymbol: make(map[string]time.Time)}
}

// StageCandidate stages a candidate for ranking. If staging this candidate
// closes an already-open window (now has passed the deadline), the
// now-closed window's decisions are returned immediately alongside this
// candidate starting a fresh window.
func (c *Controller) StageCandidate(candidateID, symbol string, score float64, now time.Time) []RankedDecision {
	c.mu.Lock()
	defer c.mu.Unlock()

	var closed []RankedDecision
	if !c.windowOpenedAt.IsZero() && now.Sub(c.windowOpenedAt) >= c.cfg.RankWindow {
		closed = c.closeWindowLocked(now)
	}

	if c.windowOpenedAt.IsZero() {
		c.windowOpenedAt = now
	}
	c.windowPending = append(c.windowPending, pending{candidateID: candidateID, symbol: symbol, score: score, stagedAt: now})

	return closed
}

// FlushRankWindow closes the current window if its deadline has elapsed,
// returning the resulting decisions (or nil if the window is still open or
// empty).
func (c *Controller) FlushRankWindow(now time.Time) []RankedDecision {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.windowOpenedAt.IsZero() {
		return nil
	}
	if now.Sub(c.windowOpenedAt) < c.cfg.RankWindow {
		return nil
	}
	return c.closeWindowLocked(now)
}

// closeWindowLocked ranks every pending candidate, applies caps and
// cooldowns, and returns the finalized decisions in the deterministic order
// spec.md §4.4 requires: by score descending, then earlier staged_ts, then
// lexicographic symbol (testable property / scenario S6).
func (c *Controller) closeWindowLocked(now time.Time) []RankedDecision {
	batch := c.windowPending
	c.windowPending = nil
	c.windowOpenedAt = time.Time{}

	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].score != batch[j].score {
			return batch[i].score > batch[j].score
		}
		if !batch[i].stagedAt.Equal(batch[j].stagedAt) {
			return batch[i].stagedAt.Before(batch[j].stagedAt)
		}
		return batch[i].symbol < batch[j].symbol
	})

	c.pruneGlobalWindow(now)

	// globalRemaining is fixed at the capacity left over from prior windows,
	// computed once before this batch starts consuming it. A candidate that
	// loses out to a higher-ranked candidate within this same batch is
	// RankedOut, not GlobalLimit: GlobalLimit means the rolling window was
	// already full before this window even opened.
	globalRemaining := c.cfg.GlobalLimit - len(c.acceptedGlobal)
	globalExhausted := globalRemaining <= 0
	acceptedThisBatch := 0

	decisions := make([]RankedDecision, 0, len(batch))
	symbolAcceptedThisBatch := map[string]bool{}

	for _, p := range batch {
		d := RankedDecision{CandidateID: p.candidateID, Symbol: p.symbol, Score: p.score}

		switch {
		case globalExhausted:
			d.Reason = RejectGlobalLimit
		case acceptedThisBatch >= globalRemaining:
			d.Reason = RejectRankedOut
		case c.isSymbolCoolingLocked(p.symbol, now):
			d.Reason = RejectSymbolCooldown
		case symbolAcceptedThisBatch[p.symbol] && c.cfg.SymbolLimit <= 1:
			d.Reason = RejectSymbolLimit
		default:
			d.Accepted = true
		}

		if !d.Accepted && d.Reason == RejectNone {
			d.Reason = RejectRankedOut
		}

		if d.Accepted {
			acceptedThisBatch++
			symbolAcceptedThisBatch[p.symbol] = true
			c.acceptedGlobal = append(c.acceptedGlobal, now)
			c.acceptedSymbol[p.symbol] = now
		}
		decisions = append(decisions, d)
	}
	return decisions
}

func (c *Controller) pruneGlobalWindow(now time.Time) {
	cutoff := now.Add(-c.cfg.GlobalWindow)
	kept := c.acceptedGlobal[:0]
	for _, at := range c.acceptedGlobal {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	c.acceptedGlobal = kept
}

func (c *Controller) isSymbolCoolingLocked(symbol string, now time.Time) bool {
	last, ok := c.acceptedSymbol[symbol]
	if !ok {
		return false
	}
	return now.Sub(last) < c.cfg.SymbolCooldown
}
