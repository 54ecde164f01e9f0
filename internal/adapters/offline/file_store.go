package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/christianJames24/IoT-2/internal/domain"
	"github.com/christianJames24/IoT-2/internal/ports"
)

const (
	recordPrefix = "reading_"
	recordSuffix = ".json"
	stampLayout  = "20060102_150405"
)

// FileStore keeps one JSON file per queued reading. Filenames embed a
// second-precision timestamp plus a monotonic sequence so that sorting by
// name equals sorting by creation order, and so that two readings enqueued
// within the same second cannot collide.
type FileStore struct {
	mu   sync.Mutex
	dir  string
	seq  uint64
	now  func() time.Time
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &FileStore{dir: dir, now: time.Now}
	if err := s.bootstrap(); err != nil {
		return nil, err
	}
	return s, nil
}

// bootstrap recovers the sequence counter from whatever records survived the
// previous run, so new filenames stay strictly after existing ones.
func (s *FileStore) bootstrap() error {
	names, err := s.pendingNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if seq, ok := parseSeq(name); ok && seq > s.seq {
			s.seq = seq
		}
	}
	return nil
}

func (s *FileStore) Enqueue(r domain.AveragedReading) (ports.OfflineRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(r)
	if err != nil {
		return ports.OfflineRecord{}, fmt.Errorf("offline marshal: %w", err)
	}

	s.seq++
	name := fmt.Sprintf("%s%s_%06d%s", recordPrefix, s.now().Format(stampLayout), s.seq, recordSuffix)

	// Write to a temp name first so a crash mid-write never leaves a
	// half-record in the queue.
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return ports.OfflineRecord{}, fmt.Errorf("offline write: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmp)
		return ports.OfflineRecord{}, fmt.Errorf("offline commit: %w", err)
	}
	return ports.OfflineRecord{Name: name}, nil
}

func (s *FileStore) Drain(fn func(rec ports.OfflineRecord, r domain.AveragedReading) error) error {
	s.mu.Lock()
	names, err := s.pendingNames()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	// A corrupt record must not block everything queued behind it: skip it,
	// keep the file for inspection, and surface the errors after the pass.
	// Only a callback error stops the drain, so delivery order holds.
	var corrupt []error
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("offline read %s: %w", name, err)
		}
		var r domain.AveragedReading
		if err := json.Unmarshal(b, &r); err != nil {
			corrupt = append(corrupt, fmt.Errorf("offline corrupt record %s: %w", name, err))
			continue
		}
		if err := fn(ports.OfflineRecord{Name: name}, r); err != nil {
			return err
		}
	}
	return errors.Join(corrupt...)
}

func (s *FileStore) Remove(rec ports.OfflineRecord) error {
	// Reject anything that is not one of our record names so a bogus
	// record can never delete outside the queue directory.
	if !strings.HasPrefix(rec.Name, recordPrefix) || filepath.Base(rec.Name) != rec.Name {
		return fmt.Errorf("offline remove: invalid record name %q", rec.Name)
	}
	err := os.Remove(filepath.Join(s.dir, rec.Name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStore) Len() (int, error) {
	names, err := s.pendingNames()
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

func (s *FileStore) pendingNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, recordPrefix) || !strings.HasSuffix(name, recordSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// parseSeq extracts the trailing sequence number from
// reading_<stamp>_<seq>.json.
func parseSeq(name string) (uint64, bool) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, recordPrefix), recordSuffix)
	idx := strings.LastIndex(trimmed, "_")
	if idx < 0 {
		return 0, false
	}
	var seq uint64
	if _, err := fmt.Sscanf(trimmed[idx+1:], "%d", &seq); err != nil {
		return 0, false
	}
	return seq, true
}

var _ ports.OfflineStore = (*FileStore)(nil)
