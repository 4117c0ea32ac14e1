package subscription

import "testing"

func TestTriageScoreBusySymbolScoresHigh(t *testing.T) {
	busy := TriageScore(TriageInputs{
		PrintsIn3s:         12,
		PrintsIn15s:        50,
		DollarVolume15s:    500000,
		RelativeSpread:     0.0005,
		VolatilityRangePct: 1.5,
		BurstRatio:         2,
	})
	quiet := TriageScore(TriageInputs{
		PrintsIn3s:         0,
		PrintsIn15s:        1,
		DollarVolume15s:    500,
		RelativeSpread:     0.02,
		VolatilityRangePct: 0.05,
		BurstRatio:         0,
	})
	if busy <= quiet {
		t.Fatalf("busy score %v should exceed quiet score %v", busy, quiet)
	}
	if busy > 100 || quiet < 0 {
		t.Fatalf("scores out of [0,100] range: busy=%v quiet=%v", busy, quiet)
	}
}

func TestTriageScoreZeroInputsScoresOnlySpreadTerm(t *testing.T) {
	// A zero relative spread scores inverseOf(0) = 1, so only the spread
	// term contributes.
	score := TriageScore(TriageInputs{})
	if score != weightInverseSpread {
		t.Fatalf("zero-input score = %v, want %v", score, weightInverseSpread)
	}
}

func TestInverseOfSpread(t *testing.T) {
	if got := inverseOf(0); got != 1 {
		t.Fatalf("inverseOf(0) = %v, want 1", got)
	}
	if got := inverseOf(0.01); got != 0 {
		t.Fatalf("inverseOf(cap) = %v, want 0", got)
	}
	if got := inverseOf(0.02); got != 0 {
		t.Fatalf("inverseOf(beyond cap) = %v, want 0", got)
	}
}
