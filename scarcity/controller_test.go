package scarcity

import (
	"testing"
	"time"

	"shadowtrader/config"
)

// TestScarcityRankedOut covers spec.md scenario S6: within a 250ms window
// three symbols stage scores {9.0, 8.2, 7.5} with global_limit=1 remaining.
// Expect one Accepted, two Rejected/RejectedRankedOut, deterministically
// ordered (highest score wins).
func TestScarcityRankedOut(t *testing.T) {
	cfg := config.DefaultScarcity()
	cfg.GlobalLimit = 1
	c := New(cfg)

	base := time.Unix(1000, 0)
	c.StageCandidate("c1", "AAA", 9.0, base)
	c.StageCandidate("c2", "BBB", 8.2, base.Add(50*time.Millisecond))
	c.StageCandidate("c3", "CCC", 7.5, base.Add(100*time.Millisecond))

	decisions := c.FlushRankWindow(base.Add(cfg.RankWindow))
	if len(decisions) != 3 {
		t.Fatalf("len(decisions) = %d, want 3", len(decisions))
	}

	accepted := 0
	for _, d := range decisions {
		if d.Accepted {
			accepted++
			if d.CandidateID != "c1" {
				t.Fatalf("accepted candidate = %s, want c1 (highest score)", d.CandidateID)
			}
		} else if d.Reason != RejectRankedOut {
			t.Fatalf("rejected candidate %s reason = %v, want RejectedRankedOut", d.CandidateID, d.Reason)
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted count = %d, want 1", accepted)
	}
}

func TestScarcitySymbolCooldownBlocksRepeat(t *testing.T) {
	cfg := config.DefaultScarcity()
	cfg.GlobalLimit = 5
	cfg.SymbolCooldown = 10 * time.Minute
	c := New(cfg)

	base := time.Unix(1000, 0)
	c.StageCandidate("c1", "AAA", 9.0, base)
	first := c.FlushRankWindow(base.Add(cfg.RankWindow))
	if len(first) != 1 || !first[0].Accepted {
		t.Fatalf("first candidate should be accepted: %+v", first)
	}

	later := base.Add(time.Minute)
	c.StageCandidate("c2", "AAA", 9.5, later)
	second := c.FlushRankWindow(later.Add(cfg.RankWindow))
	if len(second) != 1 || second[0].Accepted || second[0].Reason != RejectSymbolCooldown {
		t.Fatalf("second candidate on same symbol within cooldown should be rejected: %+v", second)
	}
}

func TestScarcityFlushBeforeDeadlineReturnsNil(t *testing.T) {
	cfg := config.DefaultScarcity()
	c := New(cfg)
	base := time.Unix(1000, 0)
	c.StageCandidate("c1", "AAA", 9.0, base)

	if got := c.FlushRankWindow(base.Add(cfg.RankWindow / 2)); got != nil {
		t.Fatalf("flush before deadline = %v, want nil", got)
	}
}

func TestScarcityTieBreakEarlierStagedThenSymbol(t *testing.T) {
	cfg := config.DefaultScarcity()
	cfg.GlobalLimit = 1
	c := New(cfg)

	base := time.Unix(1000, 0)
	c.StageCandidate("late", "ZZZ", 9.0, base.Add(10*time.Millisecond))
	c.StageCandidate("early", "AAA", 9.0, base)

	decisions := c.FlushRankWindow(base.Add(10*time.Millisecond).Add(cfg.RankWindow))
	for _, d := range decisions {
		if d.Accepted && d.CandidateID != "early" {
			t.Fatalf("accepted = %s, want 'early' (earlier staged_ts wins the tie)", d.CandidateID)
		}
	}
}
