package dailylog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/christianJames24/IoT-2/internal/ports"
)

// FileLog appends raw ingested payloads to one file per calendar day,
// one JSON object per line. Readers stream-parse line by line and tolerate
// a torn final line after a crash.
type FileLog struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

func NewFileLog(dir string) (*FileLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileLog{dir: dir, now: time.Now}, nil
}

func (l *FileLog) Append(raw []byte) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.dir, l.now().Format("20060102")+".json")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("daily log open: %w", err)
	}
	defer f.Close()

	line := make([]byte, 0, len(raw)+1)
	line = append(line, raw...)
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return "", fmt.Errorf("daily log append: %w", err)
	}
	return path, nil
}

var _ ports.DailyLog = (*FileLog)(nil)
