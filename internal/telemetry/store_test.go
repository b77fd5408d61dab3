package telemetry

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telemetry.jsonl")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func rec(ts int64, temp float64) Record {
	return Record{Temperature: temp, Output: 50, Timestamp: ts, PIDMode: ModeNormal}
}

func TestEnqueueFlushesAutomaticallyAtBatchSize(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < BatchSize; i++ {
		if err := s.Enqueue(rec(int64(i), 90)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	got, err := s.History(0, nil)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != BatchSize {
		t.Errorf("got %d records, want %d", len(got), BatchSize)
	}
}

func TestHistoryReturnsAscendingOrder(t *testing.T) {
	s := newTestStore(t)
	for _, ts := range []int64{300, 100, 200} {
		if err := s.Enqueue(rec(ts, 90)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, err := s.History(0, nil)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	// Records are written to the file in insertion order (300, 100, 200);
	// History sorts them by timestamp, which the loop below checks.
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp < got[i-1].Timestamp {
			t.Errorf("records not ascending: %v before %v", got[i-1].Timestamp, got[i].Timestamp)
		}
	}
}

func TestSinceExcludesRecordsAtOrBeforeCutoff(t *testing.T) {
	s := newTestStore(t)
	for _, ts := range []int64{100, 200, 300} {
		if err := s.Enqueue(rec(ts, 90)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, err := s.Since(200)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(got) != 1 || got[0].Timestamp != 300 {
		t.Errorf("got %v, want only timestamp 300", got)
	}
}

func TestEnqueueIfRecordableAlwaysRecordsHeatingAndReady(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	if err := s.EnqueueIfRecordable("heating", rec(1, 90), now); err != nil {
		t.Fatalf("EnqueueIfRecordable: %v", err)
	}
	if err := s.EnqueueIfRecordable("ready", rec(2, 95), now); err != nil {
		t.Fatalf("EnqueueIfRecordable: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, err := s.History(0, nil)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d records, want 2", len(got))
	}
}

func TestEnqueueIfRecordableThrottlesOffState(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	if err := s.EnqueueIfRecordable("off", rec(1, 30), now); err != nil {
		t.Fatalf("EnqueueIfRecordable: %v", err)
	}
	if err := s.EnqueueIfRecordable("off", rec(2, 29), now.Add(time.Second)); err != nil {
		t.Fatalf("EnqueueIfRecordable: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	got, err := s.History(0, nil)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d records within throttle window, want 1", len(got))
	}

	if err := s.EnqueueIfRecordable("off", rec(3, 28), now.Add(OffStateRecordingInterval+time.Second)); err != nil {
		t.Fatalf("EnqueueIfRecordable: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	got, err = s.History(0, nil)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d records after throttle window elapsed, want 2", len(got))
	}
}

func TestPruneDeletesRecordsOlderThanRetention(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	old := now.Add(-time.Duration(RetentionDays+1) * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	if err := s.Enqueue(rec(old.UnixMilli(), 10)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := s.Enqueue(rec(recent.UnixMilli(), 90)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if err := s.Prune(now); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	got, err := s.History(0, nil)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records after prune, want 1", len(got))
	}
	if got[0].Timestamp != recent.UnixMilli() {
		t.Errorf("pruned the wrong record")
	}
}

func TestCloseFlushesBufferedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.jsonl")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Enqueue(rec(1, 90)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.History(0, nil)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d records after reopen, want 1", len(got))
	}
}
