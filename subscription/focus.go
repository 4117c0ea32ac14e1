package subscription

import (
	"sort"
	"time"

	"shadowtrader/config"
)

// FocusCandidate is one symbol's current focus eligibility inputs for
// selectDepthSet.
type FocusCandidate struct {
	Symbol       string
	Score        float64
	FocusedSince time.Time // zero if not currently focused
	Dwell        time.Duration
	TapeIdleFor  time.Duration
	DepthIdleFor time.Duration
	WarmupTrades int // trades observed since FocusedSince
}

// selectDepthSet implements spec.md §4.2 step 3 as a pure function, per
// Design Note in SPEC_FULL.md: given the current focus set and triage
// scores for all candidates, returns the new focus set, the symbols
// evicted out of it, and the symbols newly added to it. Dwell and idle
// times arrive precomputed as durations in FocusCandidate, so the function
// takes no clock.
func selectDepthSet(current []FocusCandidate, challengers []FocusCandidate, cfg config.Focus, maxDepthSymbols int) (keep []string, evicted []string, add []string) {
	bySymbol := make(map[string]FocusCandidate, len(current))
	var forced, evictableIncumbents []FocusCandidate
	for _, c := range current {
		bySymbol[c.Symbol] = c
		if isEvictable(c, cfg) {
			evictableIncumbents = append(evictableIncumbents, c)
		} else {
			forced = append(forced, c)
		}
	}

	var newChallengers []FocusCandidate
	for _, c := range challengers {
		if _, already := bySymbol[c.Symbol]; !already {
			newChallengers = append(newChallengers, c)
		}
	}
	sortByScoreDesc(evictableIncumbents)
	sortByScoreDesc(newChallengers)

	keptSet := map[string]bool{}
	for _, c := range forced {
		keptSet[c.Symbol] = true
	}

	remainingSlots := maxDepthSymbols - len(forced)
	if remainingSlots < 0 {
		remainingSlots = 0
	}

	// Evictable incumbents hold their slot by default: nobody has beaten
	// them yet. Only as many as fit in remainingSlots survive this step;
	// any overflow (remainingSlots shrank below the pack) is evicted
	// weakest-first.
	kept := 0
	for _, c := range evictableIncumbents {
		if kept >= remainingSlots {
			evicted = appendUnique(evicted, c.Symbol)
			continue
		}
		keptSet[c.Symbol] = true
		kept++
	}

	freeSlots := remainingSlots - kept
	i := 0
	for ; i < len(newChallengers) && freeSlots > 0; i++ {
		keptSet[newChallengers[i].Symbol] = true
		freeSlots--
	}

	// No free slots left: remaining challengers must beat the weakest
	// still-kept evictable incumbent by the hysteresis margin to swap in.
	for ; i < len(newChallengers); i++ {
		challenger := newChallengers[i]
		weakestSymbol, weakestScore, ok := weakestKeptEvictable(keptSet, bySymbol, cfg)
		if !ok {
			break
		}
		if challenger.Score >= weakestScore+cfg.MinScoreDeltaToSwap {
			delete(keptSet, weakestSymbol)
			evicted = appendUnique(evicted, weakestSymbol)
			keptSet[challenger.Symbol] = true
		}
	}

	for symbol := range keptSet {
		keep = append(keep, symbol)
		if _, wasIncumbent := bySymbol[symbol]; !wasIncumbent {
			add = append(add, symbol)
		}
	}
	sort.Strings(keep)
	sort.Strings(add)
	sort.Strings(evicted)
	return keep, evicted, add
}

func sortByScoreDesc(cands []FocusCandidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Symbol < cands[j].Symbol
	})
}

// weakestKeptEvictable returns the lowest-scoring symbol in keptSet that was
// an evictable incumbent (i.e. eligible to be swapped out for a challenger).
func weakestKeptEvictable(keptSet map[string]bool, bySymbol map[string]FocusCandidate, cfg config.Focus) (symbol string, score float64, ok bool) {
	for s := range keptSet {
		c, isIncumbent := bySymbol[s]
		if !isIncumbent || !isEvictable(c, cfg) {
			continue
		}
		if !ok || c.Score < score {
			symbol, score, ok = s, c.Score, true
		}
	}
	return symbol, score, ok
}

// isEvictable implements the dwell+idle-or-unwarmed test from spec.md
// §4.2 step 3.
func isEvictable(c FocusCandidate, cfg config.Focus) bool {
	if c.FocusedSince.IsZero() {
		return true
	}
	if c.Dwell < cfg.MinDwell {
		return false
	}
	bothIdle := c.TapeIdleFor >= cfg.TapeIdle && c.DepthIdleFor >= cfg.DepthIdle
	unwarmed := c.WarmupTrades < cfg.WarmupMinTrades
	return bothIdle || unwarmed
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
