package pipeline

import (
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func timingsWithClock(window time.Duration, c *fakeClock) *StageTimings {
	st := NewStageTimings(window)
	st.now = c.now
	return st
}

func TestStageTimings_Summary(t *testing.T) {
	clock := newFakeClock()
	st := timingsWithClock(time.Hour, clock)
	for _, s := range []int{3, 1, 5, 2, 4} {
		st.Record(StageExtracting, time.Duration(s)*time.Second)
		clock.advance(time.Second)
	}

	got, ok := st.Snapshot()[StageExtracting]
	if !ok {
		t.Fatal("expected an extracting summary")
	}
	want := TimingSummary{Runs: 5, Last: 4, Min: 1, Max: 5, Mean: 3, P50: 3, P95: 5, P99: 5}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestStageTimings_StagesAreSeparate(t *testing.T) {
	st := timingsWithClock(time.Hour, newFakeClock())
	st.Record(StageExtracting, 2*time.Second)
	st.Record(StageHighlighting, 500*time.Millisecond)
	st.Record(StageHighlighting, 1500*time.Millisecond)

	snap := st.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 stages, got %v", snap)
	}
	if snap[StageExtracting].Runs != 1 || snap[StageExtracting].Max != 2 {
		t.Errorf("unexpected extracting summary %+v", snap[StageExtracting])
	}
	if h := snap[StageHighlighting]; h.Runs != 2 || h.Mean != 1 || h.Min != 0.5 {
		t.Errorf("unexpected highlighting summary %+v", h)
	}
	if _, ok := snap[StageRendering]; ok {
		t.Error("expected no entry for a stage that never ran")
	}
}

func TestStageTimings_WindowExpiry(t *testing.T) {
	clock := newFakeClock()
	st := timingsWithClock(time.Minute, clock)
	st.Record(StageLocating, time.Second)
	clock.advance(45 * time.Second)
	st.Record(StageLocating, 3*time.Second)

	if got := st.Snapshot()[StageLocating]; got.Runs != 2 {
		t.Fatalf("expected both durations inside the window, got %+v", got)
	}

	clock.advance(30 * time.Second)
	got := st.Snapshot()[StageLocating]
	if got.Runs != 1 || got.Min != 3 {
		t.Errorf("expected only the newer duration, got %+v", got)
	}

	clock.advance(time.Hour)
	if snap := st.Snapshot(); len(snap) != 0 {
		t.Errorf("expected every stage expired, got %v", snap)
	}
}

func TestStageTimings_BoundedSeries(t *testing.T) {
	clock := newFakeClock()
	st := timingsWithClock(time.Hour, clock)
	st.limit = 3
	for i := 1; i <= 5; i++ {
		st.Record(StageRendering, time.Duration(i)*time.Second)
		clock.advance(time.Millisecond)
	}

	got := st.Snapshot()[StageRendering]
	if got.Runs != 3 || got.Min != 3 || got.Last != 5 {
		t.Errorf("expected the 3 most recent durations, got %+v", got)
	}
}

func TestStageTimings_NegativeDurationIsZero(t *testing.T) {
	st := timingsWithClock(time.Hour, newFakeClock())
	st.Record(StageReconciling, -time.Second)
	if got := st.Snapshot()[StageReconciling]; got.Runs != 1 || got.Max != 0 {
		t.Errorf("expected a single zero duration, got %+v", got)
	}
}
