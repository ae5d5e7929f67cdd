package pipeline

import (
	"math"
	"slices"
	"sort"
	"sync"
	"time"
)

// StageHighlighting keys the combined locating and rendering time, the
// figure shown as "Time taken for highlighting". Observers never see it.
const StageHighlighting Stage = "highlighting"

// maxTimingsPerStage bounds each stage's series regardless of the window.
const maxTimingsPerStage = 1024

// TimingSummary describes the recent durations of one stage, in seconds.
type TimingSummary struct {
	Runs int     `json:"runs"`
	Last float64 `json:"last_seconds"`
	Min  float64 `json:"min_seconds"`
	Max  float64 `json:"max_seconds"`
	Mean float64 `json:"mean_seconds"`
	P50  float64 `json:"p50_seconds"`
	P95  float64 `json:"p95_seconds"`
	P99  float64 `json:"p99_seconds"`
}

type timing struct {
	at time.Time
	d  time.Duration
}

// StageTimings keeps a rolling window of durations per stage. Series are
// appended in time order, which lets expiry cut a prefix.
type StageTimings struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	now    func() time.Time
	series map[Stage][]timing
}

func NewStageTimings(window time.Duration) *StageTimings {
	if window <= 0 {
		window = time.Hour
	}
	return &StageTimings{
		window: window,
		limit:  maxTimingsPerStage,
		now:    time.Now,
		series: make(map[Stage][]timing),
	}
}

// Record adds one completed stage duration.
func (t *StageTimings) Record(stage Stage, d time.Duration) {
	if d < 0 {
		d = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s := expire(t.series[stage], now.Add(-t.window))
	s = append(s, timing{at: now, d: d})
	if len(s) > t.limit {
		s = slices.Clone(s[len(s)-t.limit:])
	}
	t.series[stage] = s
}

// Snapshot summarizes every stage with at least one duration in the window.
func (t *StageTimings) Snapshot() map[Stage]TimingSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.window)
	out := make(map[Stage]TimingSummary, len(t.series))
	for stage, s := range t.series {
		s = expire(s, cutoff)
		if len(s) == 0 {
			delete(t.series, stage)
			continue
		}
		t.series[stage] = s
		out[stage] = summarize(s)
	}
	return out
}

func expire(s []timing, cutoff time.Time) []timing {
	i := sort.Search(len(s), func(i int) bool { return !s[i].at.Before(cutoff) })
	return s[i:]
}

func summarize(s []timing) TimingSummary {
	sorted := make([]time.Duration, len(s))
	var total time.Duration
	for i, tm := range s {
		sorted[i] = tm.d
		total += tm.d
	}
	slices.Sort(sorted)

	return TimingSummary{
		Runs: len(sorted),
		Last: s[len(s)-1].d.Seconds(),
		Min:  sorted[0].Seconds(),
		Max:  sorted[len(sorted)-1].Seconds(),
		Mean: (total / time.Duration(len(sorted))).Seconds(),
		P50:  nearestRank(sorted, 50),
		P95:  nearestRank(sorted, 95),
		P99:  nearestRank(sorted, 99),
	}
}

// nearestRank returns the smallest duration with at least pct percent of
// the series at or below it.
func nearestRank(sorted []time.Duration, pct float64) float64 {
	i := int(math.Ceil(pct/100*float64(len(sorted)))) - 1
	i = max(0, min(i, len(sorted)-1))
	return sorted[i].Seconds()
}
