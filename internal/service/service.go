// Package service implements booking admission, validation and the status
// lifecycle between the HTTP/CLI layers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/room-booking/internal/conflict"
	"github.com/Shivanand-hulikatti/room-booking/internal/events"
	"github.com/Shivanand-hulikatti/room-booking/internal/model"
	"github.com/Shivanand-hulikatti/room-booking/internal/repository"
	"github.com/Shivanand-hulikatti/room-booking/internal/timeslot"
)

// Options tune a BookingService. Zero values select defaults.
type Options struct {
	// LockTimeout bounds a whole admission, including the wait for the
	// (room, date) lock. Defaults to 5s.
	LockTimeout time.Duration
	// ArrivalGrace is how long past the expected arrival time a booking may
	// go unmarked before it raises a safety alert.
	ArrivalGrace time.Duration
	// Location interprets booking dates and times. Defaults to time.Local.
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

const publishTimeout = 5 * time.Second

// BookingService orchestrates booking operations.
type BookingService struct {
	store     repository.Store
	detector  *conflict.Detector
	publisher events.Publisher
	log       *slog.Logger

	lockTimeout  time.Duration
	arrivalGrace time.Duration
	loc          *time.Location
	now          func() time.Time
}

// NewBookingService constructs a BookingService. pub may be nil.
func NewBookingService(store repository.Store, pub events.Publisher, opts Options) *BookingService {
	s := &BookingService{
		store:        store,
		detector:     conflict.NewDetector(store),
		publisher:    pub,
		log:          opts.Logger,
		lockTimeout:  opts.LockTimeout,
		arrivalGrace: opts.ArrivalGrace,
		loc:          opts.Location,
		now:          opts.Now,
	}
	if s.lockTimeout <= 0 {
		s.lockTimeout = 5 * time.Second
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Submit validates req and admits it for principal. It returns the stored
// Pending reservation, a *model.ValidationError, repository.ErrConflict, or a
// retryable repository.TransientError.
func (s *BookingService) Submit(ctx context.Context, p model.Principal, req model.BookingRequest) (*model.Reservation, error) {
	if p.Email == "" {
		return nil, ErrUnauthorized
	}
	r, err := model.NewReservation(req, p.Email)
	if err != nil {
		return nil, err
	}
	interval, err := validateInterval(r.Date, r.Start, r.End)
	if err != nil {
		return nil, err
	}
	if r.ExpectedArrival != "" {
		at, ok := timeslot.ParseInstant(r.Date, r.ExpectedArrival)
		if !ok {
			return nil, &model.ValidationError{Field: "expected_arrival_time", Message: "expected_arrival_time must be in HH:MM format"}
		}
		if !interval.Contains(at) {
			return nil, &model.ValidationError{Field: "expected_arrival_time", Message: "expected arrival time must be between start and end time"}
		}
	}

	admitCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	_, err = s.store.CreateIfNoConflict(admitCtx, &r, func(existing []model.Reservation) bool {
		return conflict.HasConflict(existing, r.Date, r.Start, r.End)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("submit booking: %w", err)
	}

	s.log.InfoContext(ctx, "booking created", "id", r.ID, "room", r.Resource, "date", r.Date,
		"start", r.Start, "end", r.End, "user", r.Owner)
	s.publish(ctx, events.KeyCreated, events.Created{
		BookingID:       r.ID,
		Owner:           r.Owner,
		Resource:        r.Resource,
		Date:            r.Date,
		Start:           r.Start,
		End:             r.End,
		ExpectedArrival: r.ExpectedArrival,
	})
	return &r, nil
}

func validateInterval(date, start, end string) (timeslot.Interval, error) {
	if !timeslot.ValidDate(date) {
		return timeslot.Interval{}, &model.ValidationError{Field: "date", Message: "date must be a valid YYYY-MM-DD date"}
	}
	if _, ok := timeslot.ParseInstant(date, start); !ok {
		return timeslot.Interval{}, &model.ValidationError{Field: "start_time", Message: "start_time must be in HH:MM format"}
	}
	if _, ok := timeslot.ParseInstant(date, end); !ok {
		return timeslot.Interval{}, &model.ValidationError{Field: "end_time", Message: "end_time must be in HH:MM format"}
	}
	interval, ok := timeslot.Parse(date, start, end)
	if !ok {
		return timeslot.Interval{}, &model.ValidationError{Field: "end_time", Message: "end time must be greater than start time"}
	}
	return interval, nil
}

// Availability reports whether [start, end) on date is currently free for
// resource. It is advisory: only Submit decides admission.
func (s *BookingService) Availability(ctx context.Context, resource, date, start, end string) (bool, error) {
	if resource == "" {
		return false, &model.ValidationError{Field: "room", Message: "room is required"}
	}
	if _, err := validateInterval(date, start, end); err != nil {
		return false, err
	}
	taken, err := s.detector.HasConflict(ctx, resource, date, start, end)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// ListBookings returns the caller's own bookings ordered by date and start.
func (s *BookingService) ListBookings(ctx context.Context, p model.Principal) ([]model.BookingView, error) {
	if p.Email == "" {
		return nil, ErrUnauthorized
	}
	rs, err := s.store.ListByOwner(ctx, p.Email)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return s.views(rs), nil
}

// ListAllBookings returns every booking along with open safety alerts.
func (s *BookingService) ListAllBookings(ctx context.Context, p model.Principal) (model.AdminBookings, error) {
	if err := requireAdmin(p, "list all bookings"); err != nil {
		return model.AdminBookings{}, err
	}
	rs, err := s.store.ListAll(ctx)
	if err != nil {
		return model.AdminBookings{}, fmt.Errorf("list all bookings: %w", err)
	}
	views := s.views(rs)
	return model.AdminBookings{Bookings: views, SafetyAlerts: alertsOf(views)}, nil
}

// SetStatus approves or rejects a booking. Either decision may later be
// reversed by another admin action; moving back to Pending is refused.
func (s *BookingService) SetStatus(ctx context.Context, p model.Principal, id, status string) (*model.Reservation, error) {
	if err := requireAdmin(p, "change booking status"); err != nil {
		return nil, err
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if st == model.StatusPending {
		return nil, &model.ValidationError{Field: "status", Message: "status must be Approved or Rejected"}
	}
	r, err := s.store.UpdateStatus(ctx, id, st)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("set status: %w", err)
	}

	s.log.InfoContext(ctx, "booking status changed", "id", r.ID, "status", r.Status, "by", p.Email)
	s.publish(ctx, events.KeyStatusChanged, events.StatusChanged{
		BookingID: r.ID,
		Owner:     r.Owner,
		Resource:  r.Resource,
		Date:      r.Date,
		Status:    string(r.Status),
		ChangedBy: p.Email,
	})
	return r, nil
}

// MarkArrived records that the booking holder has arrived. Only the owner or
// an admin may do so, and never for a rejected booking. Marking twice keeps
// the first arrival time.
func (s *BookingService) MarkArrived(ctx context.Context, p model.Principal, id string) (*model.Reservation, error) {
	if p.Email == "" {
		return nil, ErrUnauthorized
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("mark arrived: %w", err)
	}
	if current.Owner != p.Email && !p.IsAdmin {
		return nil, &ForbiddenError{Action: "mark arrival for another user's booking"}
	}
	if current.Status == model.StatusRejected {
		return nil, repository.ErrArrivalRejected
	}

	at := s.now().UTC().Truncate(time.Microsecond)
	r, err := s.store.MarkArrived(ctx, id, at)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrArrivalRejected) ||
			errors.Is(err, repository.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("mark arrived: %w", err)
	}

	if r.ArrivalMarkedAt != nil && r.ArrivalMarkedAt.Equal(at) {
		s.log.InfoContext(ctx, "booking arrival marked", "id", r.ID, "by", p.Email)
		s.publish(ctx, events.KeyArrived, events.Arrived{
			BookingID: r.ID,
			Owner:     r.Owner,
			Resource:  r.Resource,
			Date:      r.Date,
			ArrivedAt: at,
			MarkedBy:  p.Email,
		})
	}
	return r, nil
}

func requireAdmin(p model.Principal, action string) error {
	if p.Email == "" {
		return ErrUnauthorized
	}
	if !p.IsAdmin {
		return &ForbiddenError{Action: action}
	}
	return nil
}

// publish delivers an event after the write has committed. Failures are
// logged and never undo the booking.
func (s *BookingService) publish(ctx context.Context, key string, v any) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, key, v); err != nil {
		s.log.WarnContext(ctx, "publish event failed", "key", key, "err", err)
	}
}
