package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/room-booking/internal/model"
	"github.com/Shivanand-hulikatti/room-booking/internal/timeslot"
)

const reservationColumns = `id, resource, date, start_time, end_time, COALESCE(expected_arrival, ''),
	purpose, owner, status, has_arrived, arrival_marked_at, created_at, updated_at`

// PostgresOptions tune admission behaviour of the PostgreSQL store.
type PostgresOptions struct {
	// LockTimeout bounds how long an admission waits for the (room, date)
	// lock row. Zero leaves the server default in place.
	LockTimeout time.Duration
	// MaxRetries is how many extra attempts an admission gets after a
	// serialization failure or deadlock.
	MaxRetries int
}

// PostgresStore persists reservations in PostgreSQL.
type PostgresStore struct {
	db   *pgxpool.Pool
	opts PostgresOptions
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool, opts PostgresOptions) *PostgresStore {
	return &PostgresStore{db: db, opts: opts}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (model.Reservation, error) {
	var r model.Reservation
	var status string
	err := row.Scan(&r.ID, &r.Resource, &r.Date, &r.Start, &r.End, &r.ExpectedArrival,
		&r.Purpose, &r.Owner, &status, &r.HasArrived, &r.ArrivalMarkedAt, &r.CreatedAt, &r.UpdatedAt)
	r.Status = model.Status(status)
	return r, err
}

func collectReservations(rows pgx.Rows) ([]model.Reservation, error) {
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindByResourceAndDate returns every reservation for the room on date.
func (s *PostgresStore) FindByResourceAndDate(ctx context.Context, resource, date string) ([]model.Reservation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE resource = $1 AND date = $2 ORDER BY start_time`,
		resource, date,
	)
	if err != nil {
		return nil, classify("find reservations", err)
	}
	out, err := collectReservations(rows)
	if err != nil {
		return nil, classify("find reservations", err)
	}
	return out, nil
}

// CreateIfNoConflict performs a concurrency-safe admission inside one transaction.
//
// Two bookings for the same room and date must not both read "no overlap"
// and both insert. Every admission therefore first upserts the lock row for
// its (room, date) key:
//
//	INSERT INTO booking_locks ... ON CONFLICT (lock_key) DO UPDATE ...
//
// The upsert leaves the row locked until COMMIT or ROLLBACK, so a second
// admission for the same key blocks on that statement and only reads the
// reservations after the first has committed its insert. Admissions for other
// keys lock other rows and proceed in parallel.
func (s *PostgresStore) CreateIfNoConflict(ctx context.Context, r *model.Reservation, conflict ConflictFunc) (string, error) {
	var err error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		err = s.admit(ctx, r, conflict)
		if err == nil || !retryable(err) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return "", err
		}
		return "", classify("admit reservation", err)
	}
	return r.ID, nil
}

func (s *PostgresStore) admit(ctx context.Context, r *model.Reservation, conflict ConflictFunc) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if s.opts.LockTimeout > 0 {
		ms := strconv.FormatInt(s.opts.LockTimeout.Milliseconds(), 10) + "ms"
		if _, err = tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	now := time.Now().UTC()
	if _, err = tx.Exec(ctx,
		`INSERT INTO booking_locks (lock_key, updated_at) VALUES ($1, $2)
		 ON CONFLICT (lock_key) DO UPDATE SET updated_at = EXCLUDED.updated_at`,
		timeslot.LockKey(r.Resource, r.Date), now,
	); err != nil {
		return fmt.Errorf("acquire booking lock: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE resource = $1 AND date = $2`,
		r.Resource, r.Date,
	)
	if err != nil {
		return fmt.Errorf("read reservations: %w", err)
	}
	existing, err := collectReservations(rows)
	if err != nil {
		return fmt.Errorf("read reservations: %w", err)
	}
	if conflict(existing) {
		err = ErrConflict
		return err
	}

	id := uuid.New().String()
	if _, err = tx.Exec(ctx,
		`INSERT INTO reservations (id, resource, date, start_time, end_time, expected_arrival,
		                           purpose, owner, status, has_arrived, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, FALSE, $10, $10)`,
		id, r.Resource, r.Date, r.Start, r.End, r.ExpectedArrival, r.Purpose, r.Owner, string(r.Status), now,
	); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// Get returns a single reservation or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	r, err := scanReservation(s.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("get reservation", err)
	}
	return &r, nil
}

// ListByOwner returns owner's reservations ordered by date and start time.
func (s *PostgresStore) ListByOwner(ctx context.Context, owner string) ([]model.Reservation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE owner = $1 ORDER BY date, start_time, resource`,
		owner,
	)
	if err != nil {
		return nil, classify("list reservations", err)
	}
	out, err := collectReservations(rows)
	if err != nil {
		return nil, classify("list reservations", err)
	}
	return out, nil
}

// ListAll returns every reservation ordered by date, start time and room.
func (s *PostgresStore) ListAll(ctx context.Context) ([]model.Reservation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations ORDER BY date, start_time, resource`,
	)
	if err != nil {
		return nil, classify("list reservations", err)
	}
	out, err := collectReservations(rows)
	if err != nil {
		return nil, classify("list reservations", err)
	}
	return out, nil
}

// UpdateStatus sets the approval status of a reservation.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	r, err := scanReservation(s.db.QueryRow(ctx,
		`UPDATE reservations SET status = $2, updated_at = $3 WHERE id = $1 RETURNING `+reservationColumns,
		id, string(status), time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("update status", err)
	}
	return &r, nil
}

// MarkArrived flips the arrival flag once. The status guard lives in the
// UPDATE itself so a concurrent rejection cannot slip in between check and write.
func (s *PostgresStore) MarkArrived(ctx context.Context, id string, at time.Time) (*model.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	r, err := scanReservation(s.db.QueryRow(ctx,
		`UPDATE reservations SET has_arrived = TRUE, arrival_marked_at = $2, updated_at = $2
		 WHERE id = $1 AND NOT has_arrived AND status <> 'Rejected'
		 RETURNING `+reservationColumns,
		id, at.UTC(),
	))
	if err == nil {
		return &r, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, classify("mark arrived", err)
	}

	// Nothing updated: missing, rejected, or already arrived.
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == model.StatusRejected {
		return nil, ErrArrivalRejected
	}
	return current, nil
}

// PostgreSQL error codes that mean "try again".
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// classify turns infrastructure failures into TransientError so callers can
// tell "retry later" apart from programming or data errors.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return transient(op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled:
			return transient(op, err)
		}
		// Class 08: connection exceptions. Class 53: insufficient resources.
		if len(pgErr.Code) == 5 && (pgErr.Code[:2] == "08" || pgErr.Code[:2] == "53") {
			return transient(op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return transient(op, err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return transient(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
