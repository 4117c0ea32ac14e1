package eligibility

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "eligibility.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDepthIneligibleRoundTrip(t *testing.T) {
	s := openTestStore(t)
	now := time.Unix(1000, 0)

	if s.IsDepthIneligible("XYZ", now) {
		t.Fatalf("unmarked symbol should not be ineligible")
	}

	s.MarkDepthIneligible("XYZ", now.Add(24*time.Hour))
	if !s.IsDepthIneligible("XYZ", now.Add(time.Hour)) {
		t.Fatalf("XYZ should be ineligible within the 24h window")
	}
	if s.IsDepthIneligible("XYZ", now.Add(25*time.Hour)) {
		t.Fatalf("XYZ should no longer be ineligible after the window expires")
	}
}

func TestTickByTickCooldownRoundTrip(t *testing.T) {
	s := openTestStore(t)
	now := time.Unix(1000, 0)

	s.MarkTickByTickCooldown("AAPL", now.Add(30*time.Minute))
	if !s.IsTickByTickCooling("AAPL", now.Add(time.Minute)) {
		t.Fatalf("AAPL should be cooling within the 30m window")
	}
	if s.IsTickByTickCooling("AAPL", now.Add(31*time.Minute)) {
		t.Fatalf("AAPL should no longer be cooling after the window expires")
	}
}

func TestMarkOverwritesPreviousDeadline(t *testing.T) {
	s := openTestStore(t)
	now := time.Unix(1000, 0)

	s.MarkDepthIneligible("XYZ", now.Add(time.Hour))
	s.MarkDepthIneligible("XYZ", now.Add(2*time.Hour))
	if !s.IsDepthIneligible("XYZ", now.Add(90*time.Minute)) {
		t.Fatalf("second mark should extend the deadline to 2h")
	}
}
