// Package repository implements reservation persistence for the room booking
// system. Every backend provides the same atomic check-then-insert primitive
// that admission relies on.
package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Shivanand-hulikatti/room-booking/internal/model"
)

// ErrNotFound is returned when a requested reservation does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when the requested interval overlaps an existing
// reservation for the same room and date.
var ErrConflict = errors.New("room already booked")

// ErrArrivalRejected is returned when arrival is marked on a rejected booking.
var ErrArrivalRejected = errors.New("arrival cannot be marked for a rejected booking")

// ErrUnavailable marks failures that are safe to retry: the store could not be
// reached, the (room, date) lock could not be taken in time, or transaction
// contention did not clear.
var ErrUnavailable = errors.New("store temporarily unavailable")

// TransientError wraps a retryable store failure. errors.Is(err, ErrUnavailable)
// holds for every TransientError.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransientError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}

func transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// ConflictFunc decides, from the reservations currently held for the same room
// and date, whether the candidate must be refused.
type ConflictFunc func(existing []model.Reservation) bool

// Store is the persistence contract consumed by the booking service.
type Store interface {
	// FindByResourceAndDate returns every reservation for resource on date,
	// regardless of status.
	FindByResourceAndDate(ctx context.Context, resource, date string) ([]model.Reservation, error)

	// CreateIfNoConflict serializes on the (resource, date) lock key, re-reads
	// the reservations for that key, consults conflict and inserts r when it
	// reports false. The read and the insert are one indivisible unit. On
	// success r carries its store-assigned ID and timestamps.
	CreateIfNoConflict(ctx context.Context, r *model.Reservation, conflict ConflictFunc) (string, error)

	Get(ctx context.Context, id string) (*model.Reservation, error)

	// ListByOwner returns owner's reservations ordered by (date, start).
	ListByOwner(ctx context.Context, owner string) ([]model.Reservation, error)

	// ListAll returns every reservation ordered by (date, start, resource).
	ListAll(ctx context.Context) ([]model.Reservation, error)

	UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Reservation, error)

	// MarkArrived sets the arrival flag once. Marking an already arrived booking
	// leaves it unchanged; marking a rejected one fails with ErrArrivalRejected.
	MarkArrived(ctx context.Context, id string, at time.Time) (*model.Reservation, error)
}

// sortReservations orders by date, then start time, then room.
func sortReservations(rs []model.Reservation) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Date != rs[j].Date {
			return rs[i].Date < rs[j].Date
		}
		if rs[i].Start != rs[j].Start {
			return rs[i].Start < rs[j].Start
		}
		return rs[i].Resource < rs[j].Resource
	})
}
