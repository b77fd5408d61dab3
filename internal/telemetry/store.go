package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// indexEntry locates one on-disk record by byte offset, so history
// queries re-read only the lines they need instead of the whole file
// (SPEC_FULL.md §4.8).
type indexEntry struct {
	Timestamp int64
	Offset    int64
	Length    int
}

// Store is the on-disk-backed Telemetry Store: an append-only JSONL file
// plus an in-memory offset index, fronted by a ringBuffer that absorbs
// BatchSize records before a single batched write (spec.md §4.8).
type Store struct {
	mu sync.Mutex

	path string
	file *os.File
	idx  []indexEntry
	buf  *ringBuffer

	lastOffRecord time.Time
}

// Open opens (creating if absent) the JSONL file at path and rebuilds the
// in-memory index by scanning it once.
func Open(path string) (*Store, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}

	s := &Store{path: path, file: file, buf: newRingBuffer(BatchSize * 10)}
	if err := s.rebuildIndex(); err != nil {
		file.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) rebuildIndex() error {
	if _, err := s.file.Seek(0, 0); err != nil {
		return fmt.Errorf("telemetry: seek: %w", err)
	}

	s.idx = nil
	var offset int64
	scanner := bufio.NewScanner(s.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		length := len(line) + 1 // + newline
		var rec Record
		if err := json.Unmarshal(line, &rec); err == nil {
			s.idx = append(s.idx, indexEntry{Timestamp: rec.Timestamp, Offset: offset, Length: length})
		}
		offset += int64(length)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("telemetry: rebuild index: %w", err)
	}

	if _, err := s.file.Seek(0, 2); err != nil {
		return fmt.Errorf("telemetry: seek end: %w", err)
	}
	return nil
}

// Enqueue appends rec to the in-memory buffer, flushing synchronously
// once BatchSize records have accumulated (spec.md §4.8).
func (s *Store) Enqueue(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.push(rec)
	if s.buf.len() >= BatchSize {
		return s.flushLocked()
	}
	return nil
}

// EnqueueIfRecordable applies the smart recording policy (spec.md §4.8):
// always record in heating/ready, and at most once per
// OffStateRecordingInterval while off.
func (s *Store) EnqueueIfRecordable(machineState string, rec Record, now time.Time) error {
	switch machineState {
	case "heating", "ready":
		return s.Enqueue(rec)
	case "off":
		s.mu.Lock()
		due := now.Sub(s.lastOffRecord) >= OffStateRecordingInterval
		if due {
			s.lastOffRecord = now
		}
		s.mu.Unlock()
		if due {
			return s.Enqueue(rec)
		}
		return nil
	default:
		return nil
	}
}

// Flush writes any buffered records to the backing file as a single
// batched write, for use on graceful shutdown (spec.md §4.8: "flush
// synchronously").
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	pending := s.buf.drainAll()
	if len(pending) == 0 {
		return nil
	}

	offset, err := s.file.Seek(0, 2)
	if err != nil {
		return fmt.Errorf("telemetry: seek end: %w", err)
	}

	var out []byte
	for _, rec := range pending {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("telemetry: marshal record: %w", err)
		}
		line = append(line, '\n')
		s.idx = append(s.idx, indexEntry{Timestamp: rec.Timestamp, Offset: offset, Length: len(line)})
		offset += int64(len(line))
		out = append(out, line...)
	}

	if _, err := s.file.Write(out); err != nil {
		return fmt.Errorf("telemetry: write batch: %w", err)
	}
	return s.file.Sync()
}

// History returns up to limit records with timestamp greater than
// since (if non-nil), ascending by timestamp (spec.md §4.8).
func (s *Store) History(limit int, since *int64) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(); err != nil {
		return nil, err
	}

	var matches []indexEntry
	for _, e := range s.idx {
		if since != nil && e.Timestamp <= *since {
			continue
		}
		matches = append(matches, e)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Timestamp < matches[j].Timestamp })

	if limit > 0 && len(matches) > limit {
		matches = matches[len(matches)-limit:]
	}

	records := make([]Record, 0, len(matches))
	for _, e := range matches {
		rec, err := s.readAt(e)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Recent returns up to n records from the last hour, chronologically
// ascending (spec.md §4.8: "recent(600)").
func (s *Store) Recent(n int) ([]Record, error) {
	cutoff := time.Now().Add(-time.Hour).UnixMilli()
	return s.History(n, &cutoff)
}

// Since returns records with timestamp strictly greater than t,
// ascending (spec.md §4.8).
func (s *Store) Since(t int64) ([]Record, error) {
	return s.History(0, &t)
}

func (s *Store) readAt(e indexEntry) (Record, error) {
	buf := make([]byte, e.Length)
	if _, err := s.file.ReadAt(buf, e.Offset); err != nil {
		return Record{}, fmt.Errorf("telemetry: read record at offset %d: %w", e.Offset, err)
	}
	var rec Record
	if err := json.Unmarshal(buf[:len(buf)-1], &rec); err != nil {
		return Record{}, fmt.Errorf("telemetry: decode record: %w", err)
	}
	return rec, nil
}

// Prune deletes all records older than RetentionDays as of now, rewriting
// the backing file atomically (spec.md §4.8: "once per hour").
func (s *Store) Prune(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(); err != nil {
		return err
	}

	cutoff := now.Add(-time.Duration(RetentionDays) * 24 * time.Hour).UnixMilli()

	var kept []Record
	for _, e := range s.idx {
		if e.Timestamp < cutoff {
			continue
		}
		rec, err := s.readAt(e)
		if err != nil {
			return err
		}
		kept = append(kept, rec)
	}

	return s.rewriteLocked(kept)
}

// rewriteLocked replaces the backing file's contents with records via
// temp-file-then-rename, matching the Configuration Store's atomic write
// discipline (spec.md §4.9), then reopens the file and rebuilds the index.
func (s *Store) rewriteLocked(records []Record) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".telemetry-*.tmp")
	if err != nil {
		return fmt.Errorf("telemetry: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("telemetry: marshal record: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			tmp.Close()
			return fmt.Errorf("telemetry: write record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("telemetry: flush temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("telemetry: close temp file: %w", err)
	}

	if err := s.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close old file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("telemetry: rename: %w", err)
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("telemetry: reopen: %w", err)
	}
	s.file = file
	return s.rebuildIndex()
}

// Close flushes any buffered records and closes the backing file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flushLocked(); err != nil {
		return err
	}
	return s.file.Close()
}
