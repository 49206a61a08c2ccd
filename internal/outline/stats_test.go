package outline

import (
	"testing"
	"time"
)

func TestMethodStatsSnapshotPercentiles(t *testing.T) {
	stats := NewMethodStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record(MethodBookmarks, ms, ms != 300)
	}

	snap, ok := stats.Snapshot()[MethodBookmarks]
	if !ok {
		t.Fatal("expected bookmark stats")
	}
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.Successes != 4 {
		t.Fatalf("expected successes=4, got %d", snap.Successes)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestMethodStatsSeparatesMethods(t *testing.T) {
	stats := NewMethodStats(time.Hour)
	stats.Record(MethodBookmarks, 10, true)
	stats.Record(MethodInferred, 90, false)

	snap := stats.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(snap))
	}
	if snap[MethodInferred].MaxMs != 90 {
		t.Fatalf("expected inferred max=90, got %d", snap[MethodInferred].MaxMs)
	}
	if _, ok := snap[MethodOutline]; ok {
		t.Fatal("expected no entry for a method that never ran")
	}
}

func TestMethodStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewMethodStats(10 * time.Millisecond)
	stats.Record(MethodOutline, 100, true)
	time.Sleep(25 * time.Millisecond)

	if snap := stats.Snapshot(); len(snap) != 0 {
		t.Fatalf("expected empty snapshot after prune, got %v", snap)
	}

	stats.Record(MethodOutline, 200, true)
	snap := stats.Snapshot()[MethodOutline]
	if snap.Count != 1 || snap.MinMs != 200 {
		t.Fatalf("expected one fresh 200ms sample, got %+v", snap)
	}
}

func TestMethodStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewMethodStats(time.Hour)
	stats.Record(MethodBookmarks, -10, false)
	snap := stats.Snapshot()[MethodBookmarks]
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}
