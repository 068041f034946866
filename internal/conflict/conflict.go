// Package conflict decides whether a proposed booking collides with the
// bookings already held for the same room and date.
package conflict

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/room-booking/internal/model"
	"github.com/Shivanand-hulikatti/room-booking/internal/timeslot"
)

// Finder reads the reservations held for one room on one date.
type Finder interface {
	FindByResourceAndDate(ctx context.Context, resource, date string) ([]model.Reservation, error)
}

// Detector checks proposed intervals against the store's current state.
type Detector struct {
	store Finder
}

// NewDetector constructs a Detector.
func NewDetector(store Finder) *Detector {
	return &Detector{store: store}
}

// HasConflict re-reads the reservations for resource/date and reports whether
// [start, end) overlaps any of them.
func (d *Detector) HasConflict(ctx context.Context, resource, date, start, end string) (bool, error) {
	existing, err := d.store.FindByResourceAndDate(ctx, resource, date)
	if err != nil {
		return false, fmt.Errorf("find reservations: %w", err)
	}
	return HasConflict(existing, date, start, end), nil
}

// HasConflict reports whether [start, end) on date overlaps any of existing.
// Every status blocks the slot, Rejected included. Stored records whose times
// no longer parse are ignored; a proposal that does not parse always conflicts.
func HasConflict(existing []model.Reservation, date, start, end string) bool {
	_, found := First(existing, date, start, end)
	return found
}

// First returns the first reservation in existing that blocks the proposal.
// For an unparseable proposal it returns the zero Reservation and true.
func First(existing []model.Reservation, date, start, end string) (model.Reservation, bool) {
	proposed, ok := timeslot.Parse(date, start, end)
	if !ok {
		return model.Reservation{}, true
	}
	for _, r := range existing {
		held, ok := timeslot.Parse(r.Date, r.Start, r.End)
		if !ok {
			continue
		}
		if proposed.Overlaps(held) {
			return r, true
		}
	}
	return model.Reservation{}, false
}
