package subscription

// TriageInputs holds the raw per-symbol features the reconcile pass blends
// into a 0-100 score, per spec.md §4.2 step 2. All fields are already
// windowed by the caller (OrderFlowMetrics / book accessors); this file is a
// pure function over them, independently testable per Design Note in
// SPEC_FULL.md.
type TriageInputs struct {
	PrintsIn3s       float64
	PrintsIn15s      float64
	DollarVolume15s  float64
	RelativeSpread   float64 // spread / mid; lower is better
	VolatilityRangePct float64
	BurstRatio       float64 // prints-in-3s rate vs prints-in-15s rate
}

// Blend weights for TriageScore. These are not exposed as config because
// spec.md does not name them as operational knobs; only the thresholds that
// consume the resulting score (MinScoreDeltaToSwap etc.) are configurable.
const (
	weightPrints3s      = 20.0
	weightPrints15s      = 15.0
	weightDollarVolume  = 25.0
	weightInverseSpread = 20.0
	weightVolRange      = 10.0
	weightBurstRatio    = 10.0
)

// TriageScore blends the inputs into a 0-100 liquidity-interest score.
// Each sub-component is first squashed to roughly [0,1] via a saturating
// curve so no single raw unit (e.g. raw dollar volume) dominates the blend.
func TriageScore(in TriageInputs) float64 {
	score := 0.0
	score += weightPrints3s * saturate(in.PrintsIn3s/10.0)
	score += weightPrints15s * saturate(in.PrintsIn15s/40.0)
	score += weightDollarVolume * saturate(in.DollarVolume15s/250000.0)
	score += weightInverseSpread * saturate(inverseOf(in.RelativeSpread))
	score += weightVolRange * saturate(in.VolatilityRangePct/2.0)
	score += weightBurstRatio * saturate(in.BurstRatio/3.0)
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// saturate clamps x to [0,1].
func saturate(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// inverseOf turns a "lower is better" relative spread into a "higher is
// better" [0,1] score: a spread of 0 scores 1; a spread of 0.01 (1%) or
// wider scores 0.
func inverseOf(relativeSpread float64) float64 {
	if relativeSpread <= 0 {
		return 1
	}
	const capSpread = 0.01
	if relativeSpread >= capSpread {
		return 0
	}
	return 1 - relativeSpread/capSpread
}
