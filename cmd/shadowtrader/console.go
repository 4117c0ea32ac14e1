/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * Adapted from fixclient/repl.go and fixclient/display.go for shadowtrader.
 */

package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"shadowtrader/feed"
)

// console is a read-only status REPL adapted from the teacher's
// fixclient.Repl: same readline-driven command loop and table rendering,
// with every order/cancel/replace/rfq/accept command removed (no
// execution in this system) and replaced by status/universe/
// watchlist/metrics views over the running core.
func runConsole(app *app) {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("status"),
		readline.PcItem("universe"),
		readline.PcItem("watchlist"),
		readline.PcItem("metrics"),
		readline.PcItem("reconcile"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "shadowtrader> ",
		HistoryFile:     "/tmp/shadowtrader_history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Printf("console: failed to create readline: %v", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "status":
			app.displayStatus()
		case "universe":
			app.displayUniverse()
		case "watchlist":
			app.displayWatchlist()
		case "metrics":
			if len(parts) < 2 {
				fmt.Println("Usage: metrics <symbol>")
				continue
			}
			app.displayMetrics(strings.ToUpper(parts[1]))
		case "reconcile":
			app.supervisor.ReconcileNow(time.Now())
			fmt.Println("Reconcile triggered.")
		case "help":
			displayHelp()
		case "exit":
			return
		default:
			fmt.Println("Unknown command. Type 'help' for available commands.")
		}
	}
}

func displayHelp() {
	fmt.Print(`Commands:
  status                 - Session, mode, broker connection and journal drops
  universe               - Current Active Universe (tape+depth+tick-by-tick)
  watchlist               - Symbols waiting on tape-warmup recheck
  metrics <symbol>        - Current derived feature snapshot for a symbol
  reconcile               - Trigger an immediate subscription reconcile
  help                    - Show this help message
  exit                    - Quit the console and shut down the core
`)
}

func (a *app) displayStatus() {
	fmt.Printf("Session: %s  Mode: %s  Connected: %v\n", a.cfg.SessionID, a.cfg.TradingMode, a.feedAdapter.Connected())
	fmt.Printf("Journal entries dropped: %d\n", a.sink.Dropped())
}

func (a *app) displayUniverse() {
	states := a.subs.Snapshot()
	if len(states) == 0 {
		fmt.Println("No tracked symbols")
		return
	}

	fmt.Print(`
┌─────────────┬────────┬────────┬──────────────┬──────────────┬──────────────┐
│ Symbol      │ Tape   │ Depth  │ TickByTick   │ Active       │ Subscribed   │
├─────────────┼────────┼────────┼──────────────┼──────────────┼──────────────┤
`)
	for _, st := range states {
		fmt.Printf("│ %-11s │ %-6v │ %-6v │ %-12v │ %-12v │ %-12s │\n",
			st.Symbol, st.HasTape, st.HasDepth, st.HasTickByTick, st.Active(), st.SubscribedAt.Format("15:04:05"))
	}
	fmt.Println("└─────────────┴────────┴────────┴──────────────┴──────────────┴──────────────┘")
}

func (a *app) displayWatchlist() {
	symbols := a.coordinator.WatchlistedSymbols()
	if len(symbols) == 0 {
		fmt.Println("Watchlist empty")
		return
	}
	fmt.Println("Watching for tape warmup:", strings.Join(symbols, ", "))
}

func (a *app) displayMetrics(symbol string) {
	_, m := a.books.get(symbol)
	snap := m.Snapshot(time.Now(), 5)
	fmt.Printf("%-8s bid=%s ask=%s spread=%s qi=%.3f tape_accel=%.3f trades_3s=%d(%d bid / %d ask) vwap=%s\n",
		snap.Symbol, snap.BestBid, snap.BestAsk, snap.Spread, snap.QueueImbalance, snap.TapeAcceleration,
		snap.TradesIn3Sec, snap.BidTradesIn3Sec, snap.AskTradesIn3Sec, snap.CumulativeVwap)
	for _, side := range []feed.Side{feed.Bid, feed.Ask} {
		d1 := snap.Depth1s[side]
		fmt.Printf("  %s 1s: cancel=%d add=%d ratio=%.2f\n", side, d1.CancelCount, d1.AddCount, d1.CancelToAddRatio)
	}
}
