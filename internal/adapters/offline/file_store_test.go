package offline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/christianJames24/IoT-2/internal/domain"
	"github.com/christianJames24/IoT-2/internal/ports"
)

func TestFileStoreEnqueueSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	rec, err := s.Enqueue(domain.AveragedReading{Temperature: 21.5, Humidity: 40, Timestamp: "2024-01-01 12:00:00"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// Simulate a crash: reopen from disk and check the record is still there.
	s2, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	n, err := s2.Len()
	if err != nil || n != 1 {
		t.Fatalf("expected 1 pending record after reopen, got %d (err=%v)", n, err)
	}

	if err := s2.Remove(rec); err != nil {
		t.Fatalf("remove: %v", err)
	}
	n, _ = s2.Len()
	if n != 0 {
		t.Fatalf("expected empty store after remove, got %d", n)
	}
}

func TestFileStoreRemoveIdempotent(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	rec, err := s.Enqueue(domain.AveragedReading{Timestamp: "2024-01-01 12:00:00"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := s.Remove(rec); err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if err := s.Remove(rec); err != nil {
		t.Fatalf("second remove should be a no-op, got %v", err)
	}
}

func TestFileStoreDrainOrder(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	// Fixed clock: all three land in the same second, so ordering must come
	// from the sequence suffix alone.
	s.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }

	stamps := []string{"2024-01-01 12:00:00", "2024-01-01 12:00:30", "2024-01-01 12:01:00"}
	for _, ts := range stamps {
		if _, err := s.Enqueue(domain.AveragedReading{Timestamp: ts}); err != nil {
			t.Fatalf("enqueue %s: %v", ts, err)
		}
	}

	var drained []string
	if err := s.Drain(func(rec ports.OfflineRecord, r domain.AveragedReading) error {
		drained = append(drained, r.Timestamp)
		return nil
	}); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if len(drained) != len(stamps) {
		t.Fatalf("expected %d records, got %d", len(stamps), len(drained))
	}
	for i := range stamps {
		if drained[i] != stamps[i] {
			t.Fatalf("drain out of order at %d: got %s want %s", i, drained[i], stamps[i])
		}
	}
}

func TestFileStoreDrainStopsOnError(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := s.Enqueue(domain.AveragedReading{Timestamp: "2024-01-01 12:00:00"}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	sendFailed := errors.New("broker rejected send")
	var visited int
	err = s.Drain(func(rec ports.OfflineRecord, r domain.AveragedReading) error {
		visited++
		if visited == 2 {
			return sendFailed
		}
		return s.Remove(rec)
	})
	if !errors.Is(err, sendFailed) {
		t.Fatalf("expected drain to surface the callback error, got %v", err)
	}

	// First record was removed, the failed one and the one after stay queued.
	n, _ := s.Len()
	if n != 2 {
		t.Fatalf("expected 2 records left, got %d", n)
	}
}

func TestFileStoreDrainSkipsCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }

	// A torn record at the head of the queue, then two healthy ones.
	corruptName := "reading_20240101_120000_000000.json"
	if err := os.WriteFile(filepath.Join(dir, corruptName), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write corrupt record: %v", err)
	}
	stamps := []string{"2024-01-01 12:00:00", "2024-01-01 12:00:30"}
	for _, ts := range stamps {
		if _, err := s.Enqueue(domain.AveragedReading{Timestamp: ts}); err != nil {
			t.Fatalf("enqueue %s: %v", ts, err)
		}
	}

	var drained []string
	err = s.Drain(func(rec ports.OfflineRecord, r domain.AveragedReading) error {
		drained = append(drained, r.Timestamp)
		return s.Remove(rec)
	})
	if err == nil || !strings.Contains(err.Error(), corruptName) {
		t.Fatalf("expected drain to surface the corrupt record, got %v", err)
	}

	// Both healthy records behind the corrupt one were still delivered.
	if len(drained) != len(stamps) {
		t.Fatalf("expected %d records drained, got %d (%v)", len(stamps), len(drained), drained)
	}
	for i := range stamps {
		if drained[i] != stamps[i] {
			t.Fatalf("drain out of order at %d: got %s want %s", i, drained[i], stamps[i])
		}
	}

	// The corrupt file is kept for inspection, not deleted.
	if _, err := os.Stat(filepath.Join(dir, corruptName)); err != nil {
		t.Fatalf("corrupt record should remain on disk: %v", err)
	}
	n, _ := s.Len()
	if n != 1 {
		t.Fatalf("expected only the corrupt record left, got %d", n)
	}
}

func TestFileStoreSequenceSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	first, err := s.Enqueue(domain.AveragedReading{Timestamp: "2024-01-01 12:00:00"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	s2, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	s2.now = func() time.Time { return fixed }
	second, err := s2.Enqueue(domain.AveragedReading{Timestamp: "2024-01-01 12:00:00"})
	if err != nil {
		t.Fatalf("enqueue after reopen: %v", err)
	}

	if second.Name <= first.Name {
		t.Fatalf("expected %q to sort after %q", second.Name, first.Name)
	}
}
