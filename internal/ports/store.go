package ports

import (
	"context"
	"time"

	"github.com/christianJames24/IoT-2/internal/domain"
)

// ReadingStore is the durable reading table. Rows are inserted by the
// ingestor and never mutated afterwards.
type ReadingStore interface {
	// HasReadingAt reports whether a temperature or humidity row already
	// exists with exactly this timestamp. No tolerance window.
	HasReadingAt(ctx context.Context, ts time.Time) (bool, error)

	// InsertAveraged writes one temperature row and one humidity row
	// sharing the timestamp and provenance path within a single
	// transaction. On error nothing is written.
	InsertAveraged(ctx context.Context, ts time.Time, temperature, humidity float64, filePath string) error

	// RecentReadings returns up to limit rows ordered by timestamp
	// descending, for the reporting surface.
	RecentReadings(ctx context.Context, limit int) ([]domain.SensorReading, error)
}
