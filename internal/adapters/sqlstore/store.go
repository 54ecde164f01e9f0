package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/christianJames24/IoT-2/internal/domain"
	"github.com/christianJames24/IoT-2/internal/ports"
)

// Store persists sensor readings through database/sql. The default driver
// is the pure-Go sqlite build; postgres is available for deployments with a
// central server.
type Store struct {
	db       *sql.DB
	postgres bool
}

// Open connects with the named driver ("sqlite" or "postgres") and creates
// the schema if it does not exist yet.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	s := &Store{db: db, postgres: driver == "postgres"}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle without touching the schema. Queries use `?`
// placeholders, so the handle must speak a sqlite-style dialect.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// q rewrites `?` placeholders to `$n` for postgres. None of our queries
// embed literal question marks.
func (s *Store) q(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (s *Store) init(ctx context.Context) error {
	idCol := "id INTEGER PRIMARY KEY"
	if s.postgres {
		idCol = "id BIGSERIAL PRIMARY KEY"
	}

	// The unique index doubles as a conditional-insert backstop should
	// message handling ever become concurrent.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sensor_readings (
			` + idCol + `,
			timestamp TIMESTAMP NOT NULL,
			sensor_type VARCHAR(50) NOT NULL,
			value FLOAT NOT NULL,
			file_path VARCHAR(200)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_readings_ts_type
			ON sensor_readings (timestamp, sensor_type)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) HasReadingAt(ctx context.Context, ts time.Time) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT 1 FROM sensor_readings WHERE timestamp = ? AND sensor_type IN (?, ?) LIMIT 1`),
		ts, string(domain.SensorTemperature), string(domain.SensorHumidity),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return true, nil
}

func (s *Store) InsertAveraged(ctx context.Context, ts time.Time, temperature, humidity float64, filePath string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}

	rows := []struct {
		kind  domain.SensorKind
		value float64
	}{
		{domain.SensorTemperature, temperature},
		{domain.SensorHumidity, humidity},
	}
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, s.q(
			`INSERT INTO sensor_readings (timestamp, sensor_type, value, file_path) VALUES (?, ?, ?, ?)`),
			ts, string(r.kind), r.value, filePath,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s row: %w", r.kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

func (s *Store) RecentReadings(ctx context.Context, limit int) ([]domain.SensorReading, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, timestamp, sensor_type, value, file_path FROM sensor_readings ORDER BY timestamp DESC LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent readings: %w", err)
	}
	defer rows.Close()

	var out []domain.SensorReading
	for rows.Next() {
		var (
			r    domain.SensorReading
			kind string
		)
		if err := rows.Scan(&r.ID, &r.Timestamp, &kind, &r.Value, &r.FilePath); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.SensorType = domain.SensorKind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ ports.ReadingStore = (*Store)(nil)
