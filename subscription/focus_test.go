package subscription

import (
	"testing"
	"time"

	"shadowtrader/config"
)

// TestSelectDepthSetFocusRotation covers spec.md scenario S5: depth cap=2,
// holding {A,B} for 121s with tape+depth idle 31s on A, and a new candidate
// C with triage(C)=90, triage(A)=70, triage(B)=80. Expect A evicted, C
// added, B retained (no challenger beats +15 delta on B).
func TestSelectDepthSetFocusRotation(t *testing.T) {
	cfg := config.DefaultFocus() // MinDwell 120s, idle thresholds 30s, delta 15

	current := []FocusCandidate{
		{
			Symbol:       "A",
			Score:        70,
			FocusedSince: time.Unix(0, 0),
			Dwell:        121 * time.Second,
			TapeIdleFor:  31 * time.Second,
			DepthIdleFor: 31 * time.Second,
			WarmupTrades: 5,
		},
		{
			Symbol:       "B",
			Score:        80,
			FocusedSince: time.Unix(0, 0),
			Dwell:        121 * time.Second,
			TapeIdleFor:  5 * time.Second,
			DepthIdleFor: 5 * time.Second,
			WarmupTrades: 5,
		},
	}
	challengers := []FocusCandidate{
		{Symbol: "A", Score: 70},
		{Symbol: "B", Score: 80},
		{Symbol: "C", Score: 90},
	}

	keep, evicted, add := selectDepthSet(current, challengers, cfg, 2)

	if len(keep) != 2 || !contains(keep, "B") || !contains(keep, "C") {
		t.Fatalf("keep = %v, want [B C]", keep)
	}
	if len(evicted) != 1 || evicted[0] != "A" {
		t.Fatalf("evicted = %v, want [A]", evicted)
	}
	if len(add) != 1 || add[0] != "C" {
		t.Fatalf("add = %v, want [C]", add)
	}
}

func TestSelectDepthSetHysteresisBlocksWeakChallenger(t *testing.T) {
	cfg := config.DefaultFocus()
	current := []FocusCandidate{
		{Symbol: "A", Score: 70, FocusedSince: time.Unix(0, 0), Dwell: 121 * time.Second, TapeIdleFor: 31 * time.Second, DepthIdleFor: 31 * time.Second, WarmupTrades: 5},
	}
	challengers := []FocusCandidate{
		{Symbol: "A", Score: 70},
		{Symbol: "D", Score: 80}, // only +10 over A, below the +15 hysteresis margin
	}

	keep, evicted, _ := selectDepthSet(current, challengers, cfg, 1)

	if len(keep) != 1 || keep[0] != "A" {
		t.Fatalf("keep = %v, want [A] (hysteresis should block the weak challenger)", keep)
	}
	if len(evicted) != 0 {
		t.Fatalf("evicted = %v, want none", evicted)
	}
}

func TestSelectDepthSetFillsFreeSlotWithoutHysteresis(t *testing.T) {
	cfg := config.DefaultFocus()
	// No current focus at all: a brand new challenger should fill the
	// empty slot without needing any score margin.
	challengers := []FocusCandidate{{Symbol: "A", Score: 1}}

	keep, evicted, add := selectDepthSet(nil, challengers, cfg, 2)

	if len(keep) != 1 || keep[0] != "A" {
		t.Fatalf("keep = %v, want [A]", keep)
	}
	if len(evicted) != 0 {
		t.Fatalf("evicted = %v, want none", evicted)
	}
	if len(add) != 1 || add[0] != "A" {
		t.Fatalf("add = %v, want [A]", add)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
