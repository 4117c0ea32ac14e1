package coordinator

import (
	"shadowtrader/bookstate"
	"shadowtrader/config"
)

// buildBlueprint implements spec.md §4.3 step 13. Reject with
// BlueprintUnavailable (subcoded InvalidSpread/InvalidBid/InvalidAsk) if any
// of entry, stop, or target is non-positive or spread <= 0.
func buildBlueprint(snap bookstate.MetricSnapshot, dir Direction, cfg config.Blueprint) (Blueprint, RejectionReason) {
	bestBid, _ := snap.BestBid.Float64()
	bestAsk, _ := snap.BestAsk.Float64()
	spread, _ := snap.Spread.Float64()

	if bestBid <= 0 {
		return Blueprint{}, ReasonInvalidBid
	}
	if bestAsk <= 0 {
		return Blueprint{}, ReasonInvalidAsk
	}
	if spread <= 0 {
		return Blueprint{}, ReasonInvalidSpread
	}

	var bp Blueprint
	bp.Direction = dir
	switch dir {
	case Buy:
		bp.Entry = bestAsk
		bp.Stop = bp.Entry - cfg.StopMultiplier*spread
		bp.Target = bp.Entry + cfg.TargetMultiplier*spread
	case Sell:
		bp.Entry = bestBid
		bp.Stop = bp.Entry + cfg.StopMultiplier*spread
		bp.Target = bp.Entry - cfg.TargetMultiplier*spread
	default:
		return Blueprint{}, ReasonBlueprintUnavailable
	}

	if bp.Entry <= 0 || bp.Stop <= 0 || bp.Target <= 0 {
		return Blueprint{}, ReasonBlueprintUnavailable
	}
	return bp, ReasonNone
}

// vwapReclaimBonus implements spec.md §4.3 step 14: +0.5 to the rank score
// when the tape has just reclaimed the cumulative VWAP in the candidate's
// favor. lastPrice is the most recent trade price.
func vwapReclaimBonus(snap bookstate.MetricSnapshot, dir Direction, lastPrice float64) float64 {
	cumVwap, _ := snap.CumulativeVwap.Float64()
	winVwap, _ := snap.Window3sVwap.Float64()
	winVolume, _ := snap.Window3sVolume.Float64()
	if winVolume < 1 {
		return 0
	}

	var reclaimed bool
	switch dir {
	case Buy:
		reclaimed = lastPrice > cumVwap && winVwap < cumVwap
	case Sell:
		reclaimed = lastPrice < cumVwap && winVwap > cumVwap
	}
	if reclaimed {
		return 0.5
	}
	return 0
}
