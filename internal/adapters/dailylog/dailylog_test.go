package dailylog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLogAppendsOneLinePerPayload(t *testing.T) {
	dir := t.TempDir()

	l, err := NewFileLog(dir)
	if err != nil {
		t.Fatalf("new log: %v", err)
	}
	l.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }

	payloads := []string{
		`{"temperature":21.5,"humidity":40.0,"timestamp":"2024-01-01 12:00:00"}`,
		`{"temperature":22.0,"humidity":41.0,"timestamp":"2024-01-01 12:02:30"}`,
	}
	var path string
	for _, p := range payloads {
		path, err = l.Append([]byte(p))
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if want := filepath.Join(dir, "20240101.json"); path != want {
		t.Fatalf("expected path %s, got %s", want, path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var obj map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &obj); err != nil {
			t.Fatalf("line %d not valid JSON: %v", lines, err)
		}
		lines++
	}
	if lines != len(payloads) {
		t.Fatalf("expected %d lines, got %d", len(payloads), lines)
	}
}

func TestFileLogRollsOverByDay(t *testing.T) {
	l, err := NewFileLog(t.TempDir())
	if err != nil {
		t.Fatalf("new log: %v", err)
	}

	l.now = func() time.Time { return time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC) }
	p1, err := l.Append([]byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("append day 1: %v", err)
	}

	l.now = func() time.Time { return time.Date(2024, 1, 2, 0, 0, 1, 0, time.UTC) }
	p2, err := l.Append([]byte(`{"a":2}`))
	if err != nil {
		t.Fatalf("append day 2: %v", err)
	}

	if p1 == p2 {
		t.Fatalf("expected a new file on day rollover, both went to %s", p1)
	}
}
