package coordinator

import (
	"github.com/shopspring/decimal"

	"shadowtrader/bookstate"
)

const (
	spoofCancelCountThreshold = 4
	spoofRatioThreshold       = 2.0

	replenishAddCountThreshold = 3
	replenishAddSizeThreshold  = 10.0
)

var one = decimal.NewFromInt(1)

// antiSpoofSuspected implements spec.md §4.3 step 10: on the trigger side,
// within 1s, cancel_count >= threshold AND cancel_to_add_ratio >= 2.0 AND
// total_canceled_size >= total_added_size, AND the 3s window also shows
// ratio >= 2.0 with at least one cancel, AND prints-in-3s <= 1 with tape
// volume 0.
func antiSpoofSuspected(snap bookstate.MetricSnapshot, dir Direction) bool {
	side := triggerSide(dir)
	d1, ok1 := snap.Depth1s[side]
	d3, ok3 := snap.Depth3s[side]
	if !ok1 || !ok3 {
		return false
	}
	oneSecTrigger := d1.CancelCount >= spoofCancelCountThreshold &&
		d1.CancelToAddRatio >= spoofRatioThreshold &&
		d1.CanceledSize.GreaterThanOrEqual(d1.AddedSize)
	threeSecConfirms := d3.CancelToAddRatio >= spoofRatioThreshold && d3.CancelCount >= 1
	tapeQuiet := snap.TradesIn3Sec <= 1 && snap.Window3sVolume.IsZero()
	return oneSecTrigger && threeSecConfirms && tapeQuiet
}

// replenishmentSuspected implements spec.md §4.3 step 11: on the opposing
// side within 1s, add_count >= 3, total_added_size >= 10, prints-in-3s <= 1,
// tape volume <= 0, and cancel_to_add_ratio < 2.0 (so it is not just
// spoofing).
func replenishmentSuspected(snap bookstate.MetricSnapshot, dir Direction) bool {
	side := opposite(triggerSide(dir))
	d1, ok := snap.Depth1s[side]
	if !ok {
		return false
	}
	addedSize, _ := d1.AddedSize.Float64()
	tapeQuiet := snap.TradesIn3Sec <= 1 && !snap.Window3sVolume.IsPositive()
	return d1.AddCount >= replenishAddCountThreshold &&
		addedSize >= replenishAddSizeThreshold &&
		tapeQuiet &&
		d1.CancelToAddRatio < spoofRatioThreshold
}

// absorptionInsufficient implements spec.md §4.3 step 12: reject unless
// trades-in-3s >= 2 and tape-volume-in-3s >= 1.
func absorptionInsufficient(snap bookstate.MetricSnapshot) bool {
	sufficientTrades := snap.TradesIn3Sec >= 2
	sufficientVolume := snap.Window3sVolume.GreaterThanOrEqual(one)
	return !(sufficientTrades && sufficientVolume)
}
