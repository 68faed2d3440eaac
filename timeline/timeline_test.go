package timeline

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/webdom"
)

// testClock is a manually advanced clock for deterministic entries.
type testClock struct {
	now float64
}

func (c *testClock) advance(ms float64) { c.now += ms }

func newTestPerformance() (*Performance, *testClock) {
	clock := &testClock{}
	p := NewPerformance(nil)
	p.SetClock(func() float64 { return clock.now })
	return p, clock
}

func TestPerformanceMarkAndMeasure(t *testing.T) {
	p, clock := newTestPerformance()

	clock.advance(10)
	if err := p.Mark("start"); err != nil {
		t.Fatalf("Mark(start) error = %v", err)
	}
	clock.advance(25)
	if err := p.Mark("end"); err != nil {
		t.Fatalf("Mark(end) error = %v", err)
	}
	p.Measure("span", "start", "end")

	marks := p.EntriesByType(TypeMark)
	if len(marks) != 2 {
		t.Fatalf("marks = %d, want 2", len(marks))
	}

	measures := p.EntriesByType(TypeMeasure)
	want := []Entry{{Name: "span", Type: TypeMeasure, StartTime: 10, Duration: 25}}
	if diff := cmp.Diff(want, measures); diff != "" {
		t.Errorf("measures mismatch (-want +got):\n%s", diff)
	}
}

func TestPerformanceMeasureDefaults(t *testing.T) {
	p, clock := newTestPerformance()

	clock.advance(40)
	if err := p.Mark("mid"); err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	clock.advance(10)

	// No start mark: measures from the time origin to now.
	p.Measure("from-origin", "", "")
	// Start mark only: measures from the mark to now.
	p.Measure("from-mark", "mid", "")

	got := p.EntriesByName("from-origin", TypeMeasure)
	if len(got) != 1 || got[0].StartTime != 0 || got[0].Duration != 50 {
		t.Errorf("from-origin = %+v, want start 0 duration 50", got)
	}
	got = p.EntriesByName("from-mark", TypeMeasure)
	if len(got) != 1 || got[0].StartTime != 40 || got[0].Duration != 10 {
		t.Errorf("from-mark = %+v, want start 40 duration 10", got)
	}
}

func TestPerformanceReservedMarkNames(t *testing.T) {
	p, _ := newTestPerformance()

	for _, name := range []string{"navigationStart", "loadEventEnd", "domComplete"} {
		if err := p.Mark(name); !errors.Is(err, webdom.ErrSyntax) {
			t.Errorf("Mark(%q) error = %v, want ErrSyntax", name, err)
		}
	}
	if len(p.Entries()) != 0 {
		t.Error("reserved mark was buffered")
	}
}

func TestPerformanceClear(t *testing.T) {
	p, _ := newTestPerformance()

	_ = p.Mark("a")
	_ = p.Mark("a")
	_ = p.Mark("b")
	p.Measure("m", "a", "b")

	p.ClearMarks("a")
	if got := len(p.EntriesByType(TypeMark)); got != 1 {
		t.Errorf("marks after ClearMarks(a) = %d, want 1", got)
	}
	p.ClearMarks("")
	if got := len(p.EntriesByType(TypeMark)); got != 0 {
		t.Errorf("marks after ClearMarks() = %d, want 0", got)
	}
	p.ClearMeasures("")
	if got := len(p.Entries()); got != 0 {
		t.Errorf("entries after clearing = %d, want 0", got)
	}
}

func TestPerformanceEntriesSorted(t *testing.T) {
	p, _ := newTestPerformance()

	p.QueueEntry(Entry{Name: "late", Type: TypeMark, StartTime: 30})
	p.QueueEntry(Entry{Name: "early", Type: TypeMark, StartTime: 10})
	p.QueueEntry(Entry{Name: "middle", Type: TypeMark, StartTime: 20})

	var names []string
	for _, e := range p.Entries() {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"early", "middle", "late"}, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestPerformanceObservers(t *testing.T) {
	p, _ := newTestPerformance()

	var seen []Entry
	obs := NewObserver(func(batch []Entry) { seen = append(seen, batch...) })
	p.Observe(obs, TypeMark)

	_ = p.Mark("one")
	_ = p.Mark("two")
	p.QueueEntry(Entry{Name: "ignored", Type: TypeResource})

	if len(seen) != 0 {
		t.Fatal("observer notified before the notification task ran")
	}
	p.NotifyObservers()

	var names []string
	for _, e := range seen {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"one", "two"}, names); diff != "" {
		t.Errorf("observed entries mismatch (-want +got):\n%s", diff)
	}

	// A drained observer is not re-notified.
	seen = nil
	p.NotifyObservers()
	if len(seen) != 0 {
		t.Error("observer re-notified with no new entries")
	}

	p.Unobserve(obs)
	_ = p.Mark("three")
	p.NotifyObservers()
	if len(seen) != 0 {
		t.Error("unobserved observer notified")
	}
}

func TestPerformanceObserveBuffered(t *testing.T) {
	p, _ := newTestPerformance()
	_ = p.Mark("before")

	var seen []Entry
	obs := NewObserver(func(batch []Entry) { seen = append(seen, batch...) })
	p.ObserveBuffered(obs, TypeMark, true)
	p.NotifyObservers()

	if len(seen) != 1 || seen[0].Name != "before" {
		t.Errorf("buffered replay = %+v, want the pre-existing mark", seen)
	}
}

func TestPerformanceTakeRecords(t *testing.T) {
	p, _ := newTestPerformance()

	obs := NewObserver(nil)
	p.Observe(obs, TypeMark)
	_ = p.Mark("a")

	records := obs.TakeRecords()
	if len(records) != 1 || records[0].Name != "a" {
		t.Fatalf("TakeRecords() = %+v, want the queued mark", records)
	}
	if len(obs.TakeRecords()) != 0 {
		t.Error("TakeRecords() did not drain the queue")
	}
}

func TestPerformanceNotificationScheduledOnce(t *testing.T) {
	scheduled := 0
	p := NewPerformance(func(func()) { scheduled++ })
	p.SetClock(func() float64 { return 0 })

	_ = p.Mark("a")
	_ = p.Mark("b")
	_ = p.Mark("c")
	if scheduled != 1 {
		t.Fatalf("notification tasks scheduled = %d, want 1", scheduled)
	}

	p.NotifyObservers()
	_ = p.Mark("d")
	if scheduled != 2 {
		t.Errorf("notification tasks after drain = %d, want 2", scheduled)
	}
}

func TestResourceBufferLimit(t *testing.T) {
	p, _ := newTestPerformance()
	p.SetResourceTimingBufferSize(2)

	fullEvents := 0
	p.OnResourceBufferFull(func() {
		fullEvents++
		// Handler makes room once, dropping everything buffered so far.
		p.ClearResourceTimings()
	})

	for i := 0; i < 6; i++ {
		p.QueueEntry(Entry{Name: "res", Type: TypeResource, StartTime: float64(i)})
	}

	if fullEvents == 0 {
		t.Fatal("buffer-full handler never fired")
	}
	got := len(p.EntriesByType(TypeResource))
	if got == 0 || got > 3 {
		t.Errorf("buffered resource entries = %d, want within the adjusted limit", got)
	}
}

func TestResourceBufferDisabled(t *testing.T) {
	p, _ := newTestPerformance()
	_ = p.Mark("keep")

	p.ClearAndDisable()
	if len(p.Entries()) != 0 {
		t.Error("buffer not emptied")
	}
}

func TestReduceTimingResolution(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1.23456, 1.23},
		{1.239, 1.23},
		{100.005, 100.0},
		{5, 5},
	}
	for _, tt := range tests {
		if got := ReduceTimingResolution(tt.in); got != tt.want {
			t.Errorf("ReduceTimingResolution(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
