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
 * Adapted from fixclient/tradestore.go for shadowtrader.
 */

package bookstate

import "github.com/shopspring/decimal"

// Trade is one tape print retained in the bounded ring. Adapted from the
// teacher's fixclient.Trade, trimmed to the fields this system derives
// features from and switched to decimal.Decimal for deterministic replay
// (Testable Property 9 in spec.md §8).
type Trade struct {
	Price   decimal.Decimal
	Size    decimal.Decimal
	EventMs int64
	RecvMs  int64
}

// tradeRing is a fixed-capacity circular buffer, adapted line-for-line in
// algorithm from the teacher's fixclient/tradestore.go TradeStore: O(1)
// insertion, zero allocations on eviction, and a single reverse-index pass
// in recent() that fills the output oldest-first without the O(n^2)
// prepend their own comments warn about.
type tradeRing struct {
	buf   []Trade
	head  int
	count int
}

func newTradeRing(maxSize int) *tradeRing {
	return &tradeRing{buf: make([]Trade, maxSize)}
}

func (r *tradeRing) push(t Trade) {
	writeIdx := (r.head + r.count) % len(r.buf)
	r.buf[writeIdx] = t
	if r.count < len(r.buf) {
		r.count++
	} else {
		r.head = (r.head + 1) % len(r.buf)
	}
}

// recent returns up to limit most recent trades, oldest first.
func (r *tradeRing) recent(limit int) []Trade {
	if r.count == 0 {
		return nil
	}
	n := limit
	if n > r.count {
		n = r.count
	}
	out := make([]Trade, n)
	for i := 0; i < n; i++ {
		idx := (r.head + r.count - 1 - i) % len(r.buf)
		out[n-1-i] = r.buf[idx]
	}
	return out
}

func (r *tradeRing) all() []Trade {
	return r.recent(r.count)
}
