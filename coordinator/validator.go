package coordinator

import (
	"shadowtrader/bookstate"
)

// Validator is OrderFlowSignalValidator's public contract (spec.md §4.3
// step 7): given a fresh snapshot, decide whether a directional candidate
// exists and how confident it is. The duplicate/throttle suppression rules
// spec.md lists alongside this step are pipeline-level history checks, not
// part of this interface — they are applied by Coordinator.Evaluate against
// its own per-symbol acceptance history, since they need state this
// interface's single-snapshot contract does not carry.
//
// The scoring model itself (how wall age, absorption, and tape
// acceleration combine into a confidence number) is the one piece of this
// system spec.md treats as an opaque, tunable black box rather than a
// formula; DefaultValidator is a reasonable grounded implementation, but
// production deployments are expected to supply their own Validator.
type Validator interface {
	Evaluate(symbol string, snap bookstate.MetricSnapshot) Decision
}

// DefaultValidator implements a grounded heuristic over the book/tape
// features spec.md §4.1 names: a sustained same-side wall plus a burst of
// same-side absorption and a positive tape-acceleration reading is treated
// as a directional candidate.
type DefaultValidator struct {
	MinConfidence    float64
	WallAgeFloorMs   int64
	AbsorptionFloor  float64
}

// NewDefaultValidator returns a DefaultValidator with its default
// thresholds.
func NewDefaultValidator() *DefaultValidator {
	return &DefaultValidator{
		MinConfidence:   5.0,
		WallAgeFloorMs:  3000,
		AbsorptionFloor: 1.0,
	}
}

func (v *DefaultValidator) Evaluate(symbol string, snap bookstate.MetricSnapshot) Decision {
	bidAbsorption, _ := snap.BidAbsorptionRate.Float64()
	askAbsorption, _ := snap.AskAbsorptionRate.Float64()

	bidScore := v.score(snap.BidWallAgeMs, bidAbsorption, snap.TapeAcceleration, snap.QueueImbalance)
	askScore := v.score(snap.AskWallAgeMs, askAbsorption, snap.TapeAcceleration, 1-snap.QueueImbalance)

	dir := Buy
	confidence := bidScore
	if askScore > bidScore {
		dir = Sell
		confidence = askScore
	}

	if confidence <= 0 {
		return Decision{HasCandidate: false}
	}

	accepted := confidence >= v.MinConfidence
	d := Decision{
		HasCandidate: true,
		Direction:    dir,
		Accepted:     accepted,
		Signal:       Signal{Confidence: confidence},
	}
	if !accepted {
		d.RejectionReason = "LowConfidence"
	}
	return d
}

// score blends wall persistence, absorption, tape acceleration, and queue
// imbalance into a 0-10-ish confidence number. It returns 0 (no candidate
// contribution) when the wall hasn't aged past the floor or absorption is
// below the floor — both are necessary conditions, not just contributing
// weights, for a liquidity-dislocation candidate on that side.
func (v *DefaultValidator) score(wallAgeMs int64, absorptionRate, tapeAccel, queueImbalanceFavor float64) float64 {
	if wallAgeMs < v.WallAgeFloorMs || absorptionRate < v.AbsorptionFloor {
		return 0
	}
	wallTerm := clampScore(float64(wallAgeMs) / 1000.0) // seconds aged, capped below
	absorptionTerm := clampScore(absorptionRate / 500.0)
	accelTerm := clampScore(tapeAccel)
	imbalanceTerm := clampScore(queueImbalanceFavor * 4)

	score := 2*wallTerm + 3*absorptionTerm + 2*accelTerm + 2*imbalanceTerm
	if score > 10 {
		score = 10
	}
	return score
}

func clampScore(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 2 {
		return 2
	}
	return x
}
