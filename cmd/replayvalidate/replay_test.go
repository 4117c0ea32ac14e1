package main

import (
	"strings"
	"testing"
)

func depthLine(symbol, side, op string, level int, price, size float64, ts string) string {
	return `{"type":"depth","symbol":"` + symbol + `","side":"` + side + `","op":"` + op + `","level":` +
		itoa(level) + `,"price":` + ftoa(price) + `,"size":` + ftoa(size) + `,"event_ts":"` + ts + `","recv_ts":"` + ts + `"}`
}

func tradeLine(symbol string, price, size float64, ts string) string {
	return `{"type":"trade","symbol":"` + symbol + `","price":` + ftoa(price) + `,"size":` + ftoa(size) +
		`,"event_ts":"` + ts + `","recv_ts":"` + ts + `"}`
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func ftoa(f float64) string {
	// Sufficient precision for test fixture prices/sizes; avoids pulling in
	// strconv.FormatFloat's rounding-mode decisions for values that are
	// always exact to two decimal places in these fixtures.
	whole := int64(f)
	frac := int64((f-float64(whole))*100 + 0.5)
	if frac < 0 {
		frac = -frac
	}
	return itoa(int(whole)) + "." + pad2(frac)
}

func pad2(n int64) string {
	s := itoa(int(n))
	if len(s) == 1 {
		return "0" + s
	}
	if s == "" {
		return "00"
	}
	return s
}

// TestReplayHappyPathHasNoInvalidSeconds covers a clean depth+trade
// sequence with no crossing, no discontinuity, and no malformed lines.
func TestReplayHappyPathHasNoInvalidSeconds(t *testing.T) {
	const ts = "2026-01-01T09:30:00.000000000Z"
	lines := []string{
		depthLine("AAPL", "Bid", "Insert", 0, 262.00, 50000, ts),
		depthLine("AAPL", "Ask", "Insert", 0, 262.02, 30000, ts),
		tradeLine("AAPL", 262.01, 100, ts),
	}
	result, err := Replay(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("Replay returned error: %v", err)
	}
	if !result.Pass() {
		t.Fatalf("expected ReplayPass, got %+v", result)
	}
	if result.InvalidBookSeconds != 0 {
		t.Errorf("invalid book seconds = %d, want 0", result.InvalidBookSeconds)
	}
}

// TestReplayMalformedLineCountsAsExceptionNotAbort covers spec.md §4.1's
// failure semantics: a malformed update increments a counter rather than
// aborting the run.
func TestReplayMalformedLineCountsAsExceptionNotAbort(t *testing.T) {
	const ts = "2026-01-01T09:30:00.000000000Z"
	lines := []string{
		`{not-json`,
		depthLine("AAPL", "Bid", "Insert", 0, 262.00, 50000, ts),
		depthLine("AAPL", "Ask", "Insert", 0, 262.02, 30000, ts),
	}
	result, err := Replay(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("Replay returned error: %v", err)
	}
	if result.Exceptions != 1 {
		t.Errorf("exceptions = %d, want 1", result.Exceptions)
	}
	if result.Pass() {
		t.Error("expected ReplayPass=false with a nonzero exception count")
	}
}

// TestReplayBestBidJumpWithoutTapePrintFailsDiscontinuity covers spec.md
// §4.1's replay-determinism rule: a >5% best-bid jump within one second
// with no tape print in that second fails the run.
func TestReplayBestBidJumpWithoutTapePrintFailsDiscontinuity(t *testing.T) {
	const ts = "2026-01-01T09:30:00.000000000Z"
	lines := []string{
		depthLine("AAPL", "Bid", "Insert", 0, 262.00, 50000, ts),
		depthLine("AAPL", "Ask", "Insert", 0, 262.02, 30000, ts),
		depthLine("AAPL", "Bid", "Update", 0, 240.00, 50000, ts),
	}
	result, err := Replay(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("Replay returned error: %v", err)
	}
	if result.Discontinuities != 1 {
		t.Errorf("discontinuities = %d, want 1", result.Discontinuities)
	}
	if result.Pass() {
		t.Error("expected ReplayPass=false on an unexplained best-bid jump")
	}
}
