package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var insertRE = regexp.QuoteMeta("INSERT INTO sensor_readings (timestamp, sensor_type, value, file_path) VALUES (?, ?, ?, ?)")

func TestStoreInsertAveragedCommitsBothRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := New(db)
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(insertRE).
		WithArgs(ts, "temperature", 21.5, "daily_readings/20240101.json").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insertRE).
		WithArgs(ts, "humidity", 40.0, "daily_readings/20240101.json").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	if err := store.InsertAveraged(context.Background(), ts, 21.5, 40.0, "daily_readings/20240101.json"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreInsertAveragedRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := New(db)
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectExec(insertRE).
		WithArgs(ts, "temperature", 21.5, "p").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insertRE).
		WithArgs(ts, "humidity", 40.0, "p").
		WillReturnError(boom)
	mock.ExpectRollback()

	err = store.InsertAveraged(context.Background(), ts, 21.5, 40.0, "p")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped insert error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreHasReadingAt(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := New(db)
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	queryRE := regexp.QuoteMeta("SELECT 1 FROM sensor_readings WHERE timestamp = ? AND sensor_type IN (?, ?) LIMIT 1")

	mock.ExpectQuery(queryRE).
		WithArgs(ts, "temperature", "humidity").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	found, err := store.HasReadingAt(context.Background(), ts)
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}

	mock.ExpectQuery(queryRE).
		WithArgs(ts, "temperature", "humidity").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	found, err = store.HasReadingAt(context.Background(), ts)
	if err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreRecentReadings(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := New(db)
	t1 := time.Date(2024, 1, 1, 12, 2, 30, 0, time.UTC)
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, timestamp, sensor_type, value, file_path FROM sensor_readings ORDER BY timestamp DESC LIMIT ?")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp", "sensor_type", "value", "file_path"}).
			AddRow(4, t1, "temperature", 22.0, "p").
			AddRow(2, t0, "temperature", 21.5, "p"))

	readings, err := store.RecentReadings(context.Background(), 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(readings))
	}
	if !readings[0].Timestamp.After(readings[1].Timestamp) {
		t.Fatalf("expected descending order, got %v then %v", readings[0].Timestamp, readings[1].Timestamp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStorePostgresPlaceholders(t *testing.T) {
	s := &Store{postgres: true}
	got := s.q("INSERT INTO t (a, b) VALUES (?, ?)")
	want := "INSERT INTO t (a, b) VALUES ($1, $2)"
	if got != want {
		t.Fatalf("rebind: got %q want %q", got, want)
	}
}
