package outline

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
	success    bool
}

// StatsSnapshot is a point-in-time aggregate of one method's attempts.
type StatsSnapshot struct {
	Count     int     `json:"count"`
	Successes int     `json:"successes"`
	MinMs     int64   `json:"min_ms"`
	MaxMs     int64   `json:"max_ms"`
	AvgMs     float64 `json:"avg_ms"`
	P50Ms     float64 `json:"p50_ms"`
	P95Ms     float64 `json:"p95_ms"`
	P99Ms     float64 `json:"p99_ms"`
}

// MethodStats tracks recent extraction attempts per method within a rolling
// window.
type MethodStats struct {
	mu      sync.Mutex
	samples map[Method][]sample
	maxAge  time.Duration
}

func NewMethodStats(maxAge time.Duration) *MethodStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &MethodStats{
		samples: make(map[Method][]sample),
		maxAge:  maxAge,
	}
}

// Record adds one attempt. A success is an attempt that produced entries.
func (s *MethodStats) Record(m Method, durationMs int64, success bool) {
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples[m] = append(s.samples[m], sample{
		timestamp:  now,
		durationMs: durationMs,
		success:    success,
	})
}

// Snapshot aggregates every method that has samples in the window.
func (s *MethodStats) Snapshot() map[Method]StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	out := make(map[Method]StatsSnapshot, len(s.samples))
	for m, samples := range s.samples {
		out[m] = aggregate(samples)
	}
	return out
}

func aggregate(samples []sample) StatsSnapshot {
	values := make([]int64, 0, len(samples))
	var sum int64
	successes := 0
	for _, sm := range samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		if sm.success {
			successes++
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return StatsSnapshot{
		Count:     len(values),
		Successes: successes,
		MinMs:     values[0],
		MaxMs:     values[len(values)-1],
		AvgMs:     float64(sum) / float64(len(values)),
		P50Ms:     percentile(values, 50),
		P95Ms:     percentile(values, 95),
		P99Ms:     percentile(values, 99),
	}
}

func (s *MethodStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	for m, samples := range s.samples {
		writeIdx := 0
		for _, sm := range samples {
			if !sm.timestamp.Before(cutoff) {
				samples[writeIdx] = sm
				writeIdx++
			}
		}
		if writeIdx == 0 {
			delete(s.samples, m)
			continue
		}
		s.samples[m] = samples[:writeIdx]
	}
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
