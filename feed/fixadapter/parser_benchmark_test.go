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
 * Adapted from fixclient/parser_benchmark_test.go for shadowtrader.
 */

package fixadapter

import "testing"

func BenchmarkExtractEntries10(b *testing.B) {
	entries := make([]string, 10)
	for i := range entries {
		entries[i] = "269=0\x01270=262.00\x01271=50000\x01290=1\x01"
	}
	raw := buildRawMDMessage(entries)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = extractEntries(raw)
	}
}

func BenchmarkExtractEntries100(b *testing.B) {
	entries := make([]string, 100)
	for i := range entries {
		entries[i] = "269=1\x01270=262.02\x01271=30000\x01290=1\x01"
	}
	raw := buildRawMDMessage(entries)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = extractEntries(raw)
	}
}
