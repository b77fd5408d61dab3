package classifier

import (
	"testing"
	"time"
)

func TestWindowPushAndLatest(t *testing.T) {
	w := NewWindow(3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w.Push(Sample{Time: base, Temperature: 20})
	w.Push(Sample{Time: base.Add(time.Second), Temperature: 21})

	latest, ok := w.Latest()
	if !ok {
		t.Fatal("expected a latest sample")
	}
	if latest.Temperature != 21 {
		t.Errorf("Latest: got %v, want 21", latest.Temperature)
	}
	if w.Len() != 2 {
		t.Errorf("Len: got %d, want 2", w.Len())
	}
}

func TestWindowOverwritesOldestAtCapacity(t *testing.T) {
	w := NewWindow(3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		w.Push(Sample{Time: base.Add(time.Duration(i) * time.Second), Temperature: float64(i)})
	}
	all := w.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 retained samples, got %d", len(all))
	}
	// Oldest retained should be temperature 2 (0,1 overwritten).
	if all[0].Temperature != 2 {
		t.Errorf("oldest retained: got %v, want 2", all[0].Temperature)
	}
	if all[2].Temperature != 4 {
		t.Errorf("newest retained: got %v, want 4", all[2].Temperature)
	}
}

func TestRiseSinceComputesDelta(t *testing.T) {
	w := NewWindow(10)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w.Push(Sample{Time: base, Temperature: 50})
	w.Push(Sample{Time: base.Add(30 * time.Second), Temperature: 52})
	w.Push(Sample{Time: base.Add(60 * time.Second), Temperature: 55})

	rise, ok := w.RiseSince(base.Add(-1 * time.Second))
	if !ok {
		t.Fatal("expected a rise to be computable")
	}
	if rise != 5 {
		t.Errorf("rise: got %v, want 5", rise)
	}
}

func TestMaxSinceFindsPeak(t *testing.T) {
	w := NewWindow(10)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w.Push(Sample{Time: base, Temperature: 90})
	w.Push(Sample{Time: base.Add(10 * time.Second), Temperature: 100})
	w.Push(Sample{Time: base.Add(20 * time.Second), Temperature: 95})

	max, ok := w.MaxSince(base.Add(-time.Second))
	if !ok {
		t.Fatal("expected a max")
	}
	if max != 100 {
		t.Errorf("max: got %v, want 100", max)
	}
}
