// Package coordinator implements ShadowTradingCoordinator (SPEC_FULL.md
// §4.3): the gated decision pipeline that, for every fresh MetricSnapshot of
// an Active symbol, runs validator -> anti-spoof/replenishment/absorption
// filters -> blueprint construction -> scarcity staging, and tracks
// post-acceptance quality degradation (§4.5).
package coordinator

import (
	"shadowtrader/bookstate"
	"shadowtrader/feed"
)

// Direction is the signal's trade direction.
type Direction int

const (
	DirectionNone Direction = iota
	Buy
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "None"
	}
}

// RejectionReason enumerates every reason the pipeline can reject or defer
// a candidate, spanning the validator's own reasons and every named gate in
// spec.md §4.3.
type RejectionReason string

const (
	ReasonNone                  RejectionReason = ""
	ReasonBookInvalid           RejectionReason = "BookInvalid"
	ReasonNoDepth               RejectionReason = "NoDepth"
	ReasonTapeMissingSubscription RejectionReason = "TapeMissingSubscription"
	ReasonTapeNotWarmedUp       RejectionReason = "NotWarmedUp"
	ReasonTapeStale             RejectionReason = "Stale"
	ReasonDuplicateSuppressed   RejectionReason = "DuplicateSuppressed"
	ReasonThrottled             RejectionReason = "Throttled"
	ReasonSpoofSuspected        RejectionReason = "SpoofSuspected"
	ReasonReplenishmentSuspected RejectionReason = "ReplenishmentSuspected"
	ReasonAbsorptionInsufficient RejectionReason = "AbsorptionInsufficient"
	ReasonBlueprintUnavailable  RejectionReason = "BlueprintUnavailable"
	ReasonInvalidSpread         RejectionReason = "InvalidSpread"
	ReasonInvalidBid            RejectionReason = "InvalidBid"
	ReasonInvalidAsk            RejectionReason = "InvalidAsk"
)

// TapeStatus is the tape-readiness classification from spec.md §4.3 step 6.
type TapeStatus int

const (
	TapeReady TapeStatus = iota
	TapeNotWarmedUp
	TapeStale
	TapeMissingSubscription
)

// Signal carries the validator's confidence for a candidate direction.
type Signal struct {
	Confidence float64
}

// Decision is the OrderFlowSignalValidator's output contract, verbatim from
// spec.md §4.3 step 7.
type Decision struct {
	HasCandidate    bool
	Direction       Direction
	Accepted        bool
	Signal          Signal
	RejectionReason RejectionReason
}

// Blueprint is the entry/stop/target triple computed in step 13.
type Blueprint struct {
	Direction Direction
	Entry     float64
	Stop      float64
	Target    float64
}

// GateResult records one pipeline gate's pass/fail outcome for the
// decision-trace journal field.
type GateResult struct {
	Gate   string
	Passed bool
	Detail string
}

// sideVelocity returns the trades-in-3s count inferred for side, used by
// the post-signal monitor.
func sideVelocity(snap bookstate.MetricSnapshot, side feed.Side) int {
	if side == feed.Bid {
		return snap.BidTradesIn3Sec
	}
	return snap.AskTradesIn3Sec
}

func opposite(side feed.Side) feed.Side {
	if side == feed.Bid {
		return feed.Ask
	}
	return feed.Bid
}

// triggerSide maps a candidate direction to the book side whose depth
// activity is scrutinized by the anti-spoof filter: a BUY candidate is
// triggered by bid-side replenishment/withdrawal, a SELL by ask-side.
func triggerSide(dir Direction) feed.Side {
	if dir == Sell {
		return feed.Ask
	}
	return feed.Bid
}
