package main

import (
	"time"

	"shadowtrader/subscription"
)

// staticCandidates implements orchestrator.CandidateProvider over a fixed
// symbol list supplied at startup. The actual screener that scores and
// ranks a universe of tradeable symbols into subscription.TriageInputs is
// an external collaborator (spec.md §1); this is the minimal stand-in that
// lets the reconcile loop run standalone, with every symbol given equal
// triage weight.
type staticCandidates struct {
	symbols []string
}

func newStaticCandidates(symbols []string) *staticCandidates {
	return &staticCandidates{symbols: symbols}
}

func (c *staticCandidates) Candidates(now time.Time) []subscription.Candidate {
	out := make([]subscription.Candidate, 0, len(c.symbols))
	for _, s := range c.symbols {
		out = append(out, subscription.Candidate{Symbol: s, Triage: subscription.TriageInputs{}})
	}
	return out
}
