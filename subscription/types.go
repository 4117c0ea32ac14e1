// Package subscription implements the capacity-constrained, priority-driven
// scheduler for tape/depth/tick-by-tick broker subscription lines described
// in SPEC_FULL.md §4.2: MarketDataSubscriptionManager. It owns the mapping
// of symbol -> subscription lines under a global line cap, runs focus
// rotation with hysteresis, and drives cooldowns on broker-reported
// subscription failures.
package subscription

import "time"

// Line identifies one of the three subscription line kinds a symbol may
// hold. A symbol's total line count is the number of Lines it carries.
type Line int

const (
	LineTape Line = iota
	LineDepth
	LineTickByTick
)

// State is the per-symbol subscription triple plus bookkeeping timestamps,
// per spec.md §3's SubscriptionState entity.
type State struct {
	Symbol string

	MktDataID     string
	DepthID       string
	TickByTickID  string

	HasTape        bool
	HasDepth       bool
	HasTickByTick  bool

	SubscribedAt   time.Time
	FocusSince     time.Time // zero if not currently focused (depth-eligible)
	LastTapeRecv   time.Time
	LastDepthRecv  time.Time
}

// Active reports whether all three lines are present — spec.md's "Active
// Universe" membership test.
func (s *State) Active() bool {
	return s.HasTape && s.HasDepth && s.HasTickByTick
}

// TotalLines counts the lines this symbol currently holds (0-3).
func (s *State) TotalLines() int {
	n := 0
	if s.HasTape {
		n++
	}
	if s.HasDepth {
		n++
	}
	if s.HasTickByTick {
		n++
	}
	return n
}

// CooldownReason names why a symbol is temporarily barred from a line kind.
type CooldownReason int

const (
	CooldownDepthIneligible CooldownReason = iota
	CooldownTickByTickCap
)

func (r CooldownReason) String() string {
	switch r {
	case CooldownDepthIneligible:
		return "DepthIneligible"
	case CooldownTickByTickCap:
		return "TickByTickCapReached"
	default:
		return "Unknown"
	}
}

// cooldown records a barred-until deadline for one symbol/reason pair.
type cooldown struct {
	until time.Time
}

// UniverseUpdate is the journal-facing summary of one reconcile pass
// (spec.md §4.2 step 9: "Emit one UniverseUpdate journal entry per
// reconcile").
type UniverseUpdate struct {
	At             time.Time
	Active         []string
	DepthSet       []string
	Evicted        []string
	Subscribed     []string
	TotalLines     int
	TickByTickGlobalCooldownUntil time.Time
}
