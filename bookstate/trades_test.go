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
 * Adapted from fixclient/tradestore_test.go for shadowtrader.
 */

package bookstate

import "testing"

func TestTradeRingBoundedAndOrdered(t *testing.T) {
	r := newTradeRing(3)
	for i := 0; i < 5; i++ {
		r.push(Trade{RecvMs: int64(i)})
	}
	all := r.all()
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	want := []int64{2, 3, 4}
	for i, tr := range all {
		if tr.RecvMs != want[i] {
			t.Fatalf("all()[%d].RecvMs = %d, want %d", i, tr.RecvMs, want[i])
		}
	}
}

func TestTradeRingRecentLimit(t *testing.T) {
	r := newTradeRing(10)
	for i := 0; i < 5; i++ {
		r.push(Trade{RecvMs: int64(i)})
	}
	got := r.recent(2)
	if len(got) != 2 || got[0].RecvMs != 3 || got[1].RecvMs != 4 {
		t.Fatalf("recent(2) = %+v, want RecvMs 3,4", got)
	}
}
