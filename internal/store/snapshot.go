// Package store persists the last successfully fetched rows per data window.
// A failed fetch leaves its pane on last-good data; keeping that data in
// sqlite lets the dashboard warm-start after a restart instead of showing
// empty panes until the first fetch lands.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pawboard/internal/models"
)

// Snapshot kinds, one per fetch type.
const (
	KindBookings = "bookings"
	KindInvoices = "invoices"
	KindCapacity = "capacity"
)

// SnapshotStore keeps one JSON payload per (kind, window key).
type SnapshotStore struct {
	db *sql.DB
}

// Open opens (or creates) the snapshot database at path.
func Open(path string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SnapshotStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		kind TEXT NOT NULL,
		window_key TEXT NOT NULL,
		payload TEXT NOT NULL,
		fetched_at DATETIME NOT NULL,
		PRIMARY KEY (kind, window_key)
	)`)
	if err != nil {
		return fmt.Errorf("create snapshots table: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// PingContext reports whether the database is reachable.
func (s *SnapshotStore) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SnapshotStore) save(ctx context.Context, kind, windowKey string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", kind, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (kind, window_key, payload, fetched_at)
		VALUES (?, ?, ?, ?)`,
		kind, windowKey, string(data), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save %s snapshot: %w", kind, err)
	}
	return nil
}

// load reads one payload. found is false when nothing was ever saved for the
// window.
func (s *SnapshotStore) load(ctx context.Context, kind, windowKey string, out any) (bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE kind = ? AND window_key = ?`,
		kind, windowKey,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s snapshot: %w", kind, err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return false, fmt.Errorf("decode %s snapshot: %w", kind, err)
	}
	return true, nil
}

// SaveBookings stores the booking rows fetched for one date.
func (s *SnapshotStore) SaveBookings(ctx context.Context, date time.Time, rows []models.Booking) error {
	return s.save(ctx, KindBookings, dayKey(date), rows)
}

// LoadBookings returns the last-good booking rows for a date, if any.
func (s *SnapshotStore) LoadBookings(ctx context.Context, date time.Time) ([]models.Booking, bool, error) {
	var rows []models.Booking
	found, err := s.load(ctx, KindBookings, dayKey(date), &rows)
	return rows, found, err
}

// SaveInvoices stores the invoice rows fetched for one week.
func (s *SnapshotStore) SaveInvoices(ctx context.Context, weekStart time.Time, rows []models.InvoiceRow) error {
	return s.save(ctx, KindInvoices, dayKey(weekStart), rows)
}

// LoadInvoices returns the last-good invoice rows for a week, if any.
func (s *SnapshotStore) LoadInvoices(ctx context.Context, weekStart time.Time) ([]models.InvoiceRow, bool, error) {
	var rows []models.InvoiceRow
	found, err := s.load(ctx, KindInvoices, dayKey(weekStart), &rows)
	return rows, found, err
}

// SaveCapacity stores the capacity snapshot fetched for one date.
func (s *SnapshotStore) SaveCapacity(ctx context.Context, date time.Time, snap models.CapacitySnapshot) error {
	return s.save(ctx, KindCapacity, dayKey(date), snap)
}

// LoadCapacity returns the last-good capacity snapshot for a date, if any.
func (s *SnapshotStore) LoadCapacity(ctx context.Context, date time.Time) (models.CapacitySnapshot, bool, error) {
	var snap models.CapacitySnapshot
	found, err := s.load(ctx, KindCapacity, dayKey(date), &snap)
	return snap, found, err
}

// Prune removes snapshots older than retention.
func (s *SnapshotStore) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE fetched_at < ?`,
		time.Now().Add(-retention),
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

func dayKey(d time.Time) string {
	return d.Format("2006-01-02")
}
