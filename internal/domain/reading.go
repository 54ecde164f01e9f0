package domain

import "time"

// TimestampLayout is the wire format for reading timestamps, second precision.
// It is assigned once at aggregation time and never regenerated, so the hub
// can use the exact string as a deduplication key.
const TimestampLayout = "2006-01-02 15:04:05"

// SensorKind names one measured quantity.
type SensorKind string

const (
	SensorTemperature SensorKind = "temperature"
	SensorHumidity    SensorKind = "humidity"
	SensorMoisture    SensorKind = "moisture"
	SensorLight       SensorKind = "light"
)

// RawSample is one raw observation from the sensor driver. Ephemeral: it is
// consumed by the aggregator immediately and never persisted.
type RawSample struct {
	Kind       SensorKind
	Value      float64
	CapturedAt time.Time
}

// AveragedReading is the reduced observation for one aggregation window.
// Immutable once created.
type AveragedReading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp"`
}

// ParseTimestamp interprets the reading's wall-clock timestamp in loc.
func (r AveragedReading) ParseTimestamp(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, r.Timestamp, loc)
}

// SensorReading is one persisted row in the durable store. Rows are created
// by the ingestor and never updated or deleted afterwards.
type SensorReading struct {
	ID         int64
	Timestamp  time.Time
	SensorType SensorKind
	Value      float64
	FilePath   string
}

// LivePoint is one entry of the in-memory live view fed by the ingestor.
type LivePoint struct {
	Timestamp   string
	Temperature float64
	Humidity    float64
	Moisture    float64
	Light       float64
}
