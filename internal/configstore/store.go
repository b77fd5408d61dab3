package configstore

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ReloadInterval is how often the Control Loop is expected to call
// Reload (spec.md §4.9: every 10s).
const ReloadInterval = 10 * time.Second

// Store owns the configuration document's file path exclusively and
// serializes all reads/writes behind a mutex, generalizing the teacher's
// internal/status.Tracker RWMutex-guarded-snapshot pattern from read-only
// to read-write.
type Store struct {
	mu sync.RWMutex

	path    string
	lkg     Config
	unknown map[string]json.RawMessage

	modTime time.Time
	size    int64
}

// Open loads path, validating against compiled defaults, and returns a
// Store. If path does not exist, it is created with Defaults (spec.md §3
// lifecycle: "Configuration is created once on first install").
func Open(path string) (*Store, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	s := &Store{path: path, unknown: doc.Unknown}

	empty := doc.Config == Config{}
	if empty {
		s.lkg = Defaults
		if err := writeDocument(path, document{Config: Defaults, Unknown: doc.Unknown}); err != nil {
			slog.Warn("configstore: failed to write initial defaults", "path", path, "error", err)
		}
	} else {
		s.lkg = validateAgainst(doc.Config, Defaults)
	}

	s.recordStat()
	return s, nil
}

// Load returns the current last-known-good configuration snapshot.
func (s *Store) Load() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lkg
}

// Reload re-reads the file if it changed since the store last opened,
// reloaded or wrote it,
// validating any recognized field against the current LKG and falling
// back per field on failure (spec.md §4.9: "no-op if file unchanged").
// It never returns an error for a validation problem — only for an
// inability to read the file at all — matching "never crashes the core."
func (s *Store) Reload() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.changedLocked()
	if err != nil {
		slog.Warn("configstore: stat failed, keeping last-known-good", "error", err)
		return s.lkg, nil
	}
	if !changed {
		return s.lkg, nil
	}

	doc, err := readDocument(s.path)
	if err != nil {
		slog.Warn("configstore: reload failed, keeping last-known-good", "error", err)
		return s.lkg, nil
	}

	s.lkg = validateAgainst(doc.Config, s.lkg)
	s.unknown = doc.Unknown
	s.recordStatLocked()
	return s.lkg, nil
}

// Write validates cfg against the current LKG, persists it atomically
// together with the preserved unknown keys (which it leaves unchanged),
// and updates the in-memory LKG. On PermissionDenied
// it attempts one chmod repair and retries before giving up (spec.md
// §4.9, §7).
func (s *Store) Write(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	validated := validateAgainst(cfg, s.lkg)

	err := writeDocument(s.path, document{Config: validated, Unknown: s.unknown})
	if err != nil {
		if !isPermissionErr(err) {
			return err
		}
		slog.Warn("configstore: write failed with permission error, attempting repair", "path", s.path, "error", err)
		if chmodErr := os.Chmod(s.path, 0o644); chmodErr != nil {
			slog.Warn("configstore: chmod repair failed", "error", chmodErr)
			return err
		}
		if retryErr := writeDocument(s.path, document{Config: validated, Unknown: s.unknown}); retryErr != nil {
			return retryErr
		}
	}

	s.lkg = validated
	s.recordStatLocked()
	return nil
}

// UpdateField is a convenience for the common "read, mutate one field,
// write" pattern used by the Mode Controller and Command Interface,
// applying mutate to a copy of the current LKG before writing.
func (s *Store) UpdateField(mutate func(*Config)) error {
	cfg := s.Load()
	mutate(&cfg)
	return s.Write(cfg)
}

// Close releases the store (spec.md §5 shutdown contract: "Config Store
// close"). The store keeps no file handle open between calls — each
// Reload/Write opens and closes path itself — so there is nothing to
// release today; the method exists so shutdown can treat the config
// store the same way as the other two owned resources.
func (s *Store) Close() error {
	return nil
}

func isPermissionErr(err error) bool {
	return os.IsPermission(err) || errors.Is(err, ErrPermissionDenied)
}

func (s *Store) recordStat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordStatLocked()
}

func (s *Store) recordStatLocked() {
	info, err := os.Stat(s.path)
	if err != nil {
		return
	}
	s.modTime = info.ModTime()
	s.size = info.Size()
}

func (s *Store) changedLocked() (bool, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return false, err
	}
	return !info.ModTime().Equal(s.modTime) || info.Size() != s.size, nil
}
