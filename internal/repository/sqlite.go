package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Shivanand-hulikatti/room-booking/internal/model"
	"github.com/Shivanand-hulikatti/room-booking/internal/timeslot"
)

// SQLiteStore persists reservations in an embedded SQLite database opened
// with database.OpenSQLite. That handle has a single connection and begins
// transactions IMMEDIATE, so admissions are serialized across all keys, not
// only per (room, date).
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore constructs a SQLiteStore over an opened, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

const sqliteColumns = `id, resource, date, start_time, end_time, COALESCE(expected_arrival, ''),
	purpose, owner, status, has_arrived, arrival_marked_at, created_at, updated_at`

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func scanSQLiteReservation(row rowScanner) (model.Reservation, error) {
	var (
		r                    model.Reservation
		status               string
		arrived              int
		markedAt             sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&r.ID, &r.Resource, &r.Date, &r.Start, &r.End, &r.ExpectedArrival,
		&r.Purpose, &r.Owner, &status, &arrived, &markedAt, &createdAt, &updatedAt); err != nil {
		return r, err
	}
	r.Status = model.Status(status)
	r.HasArrived = arrived != 0
	var err error
	if markedAt.Valid {
		t, perr := time.Parse(time.RFC3339Nano, markedAt.String)
		if perr != nil {
			return r, fmt.Errorf("parse arrival_marked_at: %w", perr)
		}
		r.ArrivalMarkedAt = &t
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return r, fmt.Errorf("parse created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return r, fmt.Errorf("parse updated_at: %w", err)
	}
	return r, nil
}

type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) query(ctx context.Context, q sqlQuerier, query string, args ...any) ([]model.Reservation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		r, err := scanSQLiteReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) FindByResourceAndDate(ctx context.Context, resource, date string) ([]model.Reservation, error) {
	out, err := s.query(ctx, s.db,
		`SELECT `+sqliteColumns+` FROM reservations WHERE resource = ? AND date = ? ORDER BY start_time`,
		resource, date)
	if err != nil {
		return nil, classifySQLite("find reservations", err)
	}
	return out, nil
}

// CreateIfNoConflict runs lock-row upsert, read, check and insert in one
// IMMEDIATE transaction. Every statement goes through tx: the pool has a
// single connection, so touching s.db here would wait on ourselves.
func (s *SQLiteStore) CreateIfNoConflict(ctx context.Context, r *model.Reservation, conflict ConflictFunc) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", classifySQLite("begin transaction", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO booking_locks (lock_key, updated_at) VALUES (?, ?)
		 ON CONFLICT (lock_key) DO UPDATE SET updated_at = excluded.updated_at`,
		timeslot.LockKey(r.Resource, r.Date), formatTime(now),
	); err != nil {
		return "", classifySQLite("acquire booking lock", err)
	}

	existing, err := s.query(ctx, tx,
		`SELECT `+sqliteColumns+` FROM reservations WHERE resource = ? AND date = ?`,
		r.Resource, r.Date)
	if err != nil {
		return "", classifySQLite("read reservations", err)
	}
	if conflict(existing) {
		return "", ErrConflict
	}

	id := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (id, resource, date, start_time, end_time, expected_arrival,
		                           purpose, owner, status, has_arrived, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, 0, ?, ?)`,
		id, r.Resource, r.Date, r.Start, r.End, r.ExpectedArrival, r.Purpose, r.Owner, string(r.Status),
		formatTime(now), formatTime(now),
	); err != nil {
		return "", classifySQLite("insert reservation", err)
	}
	if err := tx.Commit(); err != nil {
		return "", classifySQLite("commit transaction", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Reservation, error) {
	r, err := scanSQLiteReservation(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classifySQLite("get reservation", err)
	}
	return &r, nil
}

func (s *SQLiteStore) ListByOwner(ctx context.Context, owner string) ([]model.Reservation, error) {
	out, err := s.query(ctx, s.db,
		`SELECT `+sqliteColumns+` FROM reservations WHERE owner = ? ORDER BY date, start_time, resource`,
		owner)
	if err != nil {
		return nil, classifySQLite("list reservations", err)
	}
	return out, nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]model.Reservation, error) {
	out, err := s.query(ctx, s.db,
		`SELECT `+sqliteColumns+` FROM reservations ORDER BY date, start_time, resource`)
	if err != nil {
		return nil, classifySQLite("list reservations", err)
	}
	return out, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Reservation, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(s.now()), id)
	if err != nil {
		return nil, classifySQLite("update status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) MarkArrived(ctx context.Context, id string, at time.Time) (*model.Reservation, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reservations SET has_arrived = 1, arrival_marked_at = ?, updated_at = ?
		 WHERE id = ? AND has_arrived = 0 AND status <> 'Rejected'`,
		formatTime(at), formatTime(at), id)
	if err != nil {
		return nil, classifySQLite("mark arrived", err)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 && current.Status == model.StatusRejected {
		return nil, ErrArrivalRejected
	}
	return current, nil
}

func classifySQLite(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return transient(op, err)
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return transient(op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
