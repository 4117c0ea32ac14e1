package coordinator

import (
	"time"

	"shadowtrader/bookstate"
	"shadowtrader/config"
)

// AcceptedSignalTracker is the post-acceptance surveillance state spec.md
// §3 names: baseline (spread, side_velocity, opposite_velocity, accepted_ts)
// captured at acceptance, checked on every subsequent snapshot for the
// symbol until cancellation.
type AcceptedSignalTracker struct {
	DecisionID        string
	Symbol            string
	Direction         Direction
	AcceptedAt        time.Time
	BaselineSpread    float64
	BaselineSideVel   int
	BaselineOppVel    int
	slowdownStreak    int
}

// NewAcceptedSignalTracker captures the baseline at the instant of
// acceptance.
func NewAcceptedSignalTracker(decisionID, symbol string, dir Direction, at time.Time, snap bookstate.MetricSnapshot) *AcceptedSignalTracker {
	spread, _ := snap.Spread.Float64()
	return &AcceptedSignalTracker{
		DecisionID:      decisionID,
		Symbol:          symbol,
		Direction:       dir,
		AcceptedAt:      at,
		BaselineSpread:  spread,
		BaselineSideVel: sideVelocity(snap, triggerSide(dir)),
		BaselineOppVel:  sideVelocity(snap, opposite(triggerSide(dir))),
	}
}

// CancelReason names why a post-signal monitor cancelled a tracked signal.
type CancelReason string

const (
	CancelNone          CancelReason = ""
	CancelTapeSlowdown  CancelReason = "TapeSlowdown"
	CancelTapeReversal  CancelReason = "TapeReversal"
	CancelSpreadBlowout CancelReason = "SpreadBlowout"
)

// Check implements spec.md §4.5. It must not be called before the 3s grace
// period has elapsed since acceptance; the caller (Coordinator.Evaluate)
// enforces that. A non-CancelNone result also removes the tracker from
// further consideration — the caller drops it.
func (t *AcceptedSignalTracker) Check(now time.Time, snap bookstate.MetricSnapshot, cfg config.ShadowTrading) CancelReason {
	side := triggerSide(t.Direction)
	currentSideVel := sideVelocity(snap, side)
	currentOppVel := sideVelocity(snap, opposite(side))
	currentSpread, _ := snap.Spread.Float64()

	if t.BaselineSideVel > 2 && float64(currentSideVel) < float64(t.BaselineSideVel)*(1-cfg.TapeSlowdownThreshold) {
		t.slowdownStreak++
		if t.slowdownStreak >= 2 {
			return CancelTapeSlowdown
		}
	} else {
		t.slowdownStreak = 0
	}

	if currentOppVel > 5 && float64(currentOppVel) > 3*float64(currentSideVel) {
		return CancelTapeReversal
	}

	if currentSpread > t.BaselineSpread*(1+cfg.SpreadBlowoutThreshold) {
		return CancelSpreadBlowout
	}

	return CancelNone
}
