// Command replayvalidate is the separate replay-validator entry point
// spec.md §6 names: it replays a captured depth+tape JSONL sequence
// through bookstate.OrderBookState and reports whether the run meets the
// replay-determinism bar (spec.md §4.1), exiting 0 on pass and 1 otherwise.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"shadowtrader/bookstate"
	"shadowtrader/feed"
)

// rawEvent is the on-disk JSONL shape: one line is either a depth update or
// a trade print, discriminated by Type. Timestamps are RFC3339Nano; Side
// and Op are the same string spellings feed.Side.String()/feed.Op.String()
// produce, so a captured live session round-trips without translation.
type rawEvent struct {
	Type    string  `json:"type"`
	Symbol  string  `json:"symbol"`
	Side    string  `json:"side,omitempty"`
	Op      string  `json:"op,omitempty"`
	Level   int     `json:"level,omitempty"`
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
	EventTS string  `json:"event_ts"`
	RecvTS  string  `json:"recv_ts"`
}

const layout = time.RFC3339Nano

func parseSide(s string) (feed.Side, bool) {
	switch s {
	case "Bid":
		return feed.Bid, true
	case "Ask":
		return feed.Ask, true
	default:
		return 0, false
	}
}

func parseOp(s string) (feed.Op, bool) {
	switch s {
	case "Insert":
		return feed.Insert, true
	case "Update":
		return feed.Update, true
	case "Delete":
		return feed.Delete, true
	default:
		return 0, false
	}
}

// ReplayResult is the accumulated verdict over one JSONL sequence.
type ReplayResult struct {
	TotalSeconds       int
	InvalidBookSeconds int
	Exceptions         int
	CrossedSeconds     int
	Discontinuities    int
}

// InvalidBookSecondsPct is the fraction of observed seconds the book spent
// invalid, per spec.md §6's exit-code contract.
func (r ReplayResult) InvalidBookSecondsPct() float64 {
	if r.TotalSeconds == 0 {
		return 0
	}
	return float64(r.InvalidBookSeconds) / float64(r.TotalSeconds)
}

// Pass implements spec.md §6: "0 on ReplayPass=true (invalid-book-seconds
// < 5%, zero exceptions, zero crossed seconds), 1 otherwise." A
// best-bid/ask discontinuity without a same-second tape print (spec.md
// §4.1) is folded into the same failure gate: "the replay is failed — the
// feed is suspect."
func (r ReplayResult) Pass() bool {
	return r.InvalidBookSecondsPct() < 0.05 && r.Exceptions == 0 && r.CrossedSeconds == 0 && r.Discontinuities == 0
}

type secondWindow struct {
	openBid, openAsk float64
	haveOpen         bool
	sawTrade         bool
	flagged          bool
}

type symbolState struct {
	book        *bookstate.OrderBookState
	invalidSecs map[int64]bool
	crossedSecs map[int64]bool
	windows     map[int64]*secondWindow
	lastQuality bookstate.DataQualityCounters
}

// Replay processes events in file order (the caller is responsible for
// presenting them depth-before-tape on equal millisecond, per spec.md's
// stable tie-break) and returns the accumulated verdict.
func Replay(r io.Reader) (ReplayResult, error) {
	symbols := make(map[string]*symbolState)
	allSeconds := make(map[int64]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var result ReplayResult

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw rawEvent
		if err := json.Unmarshal(line, &raw); err != nil {
			result.Exceptions++
			continue
		}

		st := symbols[raw.Symbol]
		if st == nil {
			st = &symbolState{
				book:        bookstate.New(raw.Symbol),
				invalidSecs: make(map[int64]bool),
				crossedSecs: make(map[int64]bool),
				windows:     make(map[int64]*secondWindow),
			}
			symbols[raw.Symbol] = st
		}

		recvTS, err := time.Parse(layout, raw.RecvTS)
		if err != nil {
			result.Exceptions++
			continue
		}
		eventTS, err := time.Parse(layout, raw.EventTS)
		if err != nil {
			eventTS = recvTS
		}

		sec := recvTS.Unix()
		allSeconds[sec] = true
		win := st.windows[sec]
		if win == nil {
			win = &secondWindow{}
			st.windows[sec] = win
		}

		switch raw.Type {
		case "depth":
			side, ok := parseSide(raw.Side)
			if !ok {
				result.Exceptions++
				continue
			}
			op, ok := parseOp(raw.Op)
			if !ok {
				result.Exceptions++
				continue
			}
			st.book.ApplyDepth(feed.DepthUpdate{
				Symbol:  raw.Symbol,
				Side:    side,
				Op:      op,
				Level:   raw.Level,
				Price:   raw.Price,
				Size:    raw.Size,
				EventTS: eventTS,
				RecvTS:  recvTS,
			})

			qc := st.book.QualityCounters()
			if qc.CrossedRejected > st.lastQuality.CrossedRejected {
				st.crossedSecs[sec] = true
			}
			st.lastQuality = qc

			checkDiscontinuity(st, win, &result)

		case "trade":
			st.book.RecordTrade(feed.TradePrint{
				Symbol:  raw.Symbol,
				Price:   raw.Price,
				Size:    raw.Size,
				EventTS: eventTS,
				RecvTS:  recvTS,
			})
			win.sawTrade = true

		default:
			result.Exceptions++
			continue
		}

		valid, _ := st.book.IsBookValid(recvTS.UnixMilli())
		if !valid {
			st.invalidSecs[sec] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("replayvalidate: reading input: %w", err)
	}

	result.TotalSeconds = len(allSeconds)
	seen := make(map[int64]bool)
	for _, st := range symbols {
		for sec := range st.invalidSecs {
			seen[sec] = true
		}
		for sec := range st.crossedSecs {
			result.CrossedSeconds++
		}
	}
	result.InvalidBookSeconds = len(seen)

	return result, nil
}

// checkDiscontinuity implements spec.md §4.1's "no best-bid/ask jump >5%
// within a single second without at least one tape print in that second."
// The window's open value is the first best bid/ask observed in the
// second; every later depth event in the same second is compared against
// it, and a violation flags the second at most once.
func checkDiscontinuity(st *symbolState, win *secondWindow, result *ReplayResult) {
	bid, _ := st.book.BestBid().Float64()
	ask, _ := st.book.BestAsk().Float64()
	if bid == 0 && ask == 0 {
		return
	}
	if !win.haveOpen {
		win.openBid, win.openAsk = bid, ask
		win.haveOpen = true
		return
	}
	if win.flagged || win.sawTrade {
		return
	}
	if jumped(win.openBid, bid) || jumped(win.openAsk, ask) {
		win.flagged = true
		result.Discontinuities++
	}
}

func jumped(open, current float64) bool {
	if open == 0 {
		return false
	}
	delta := current - open
	if delta < 0 {
		delta = -delta
	}
	return delta/open > 0.05
}
