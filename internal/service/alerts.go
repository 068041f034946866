package service

import (
	"time"

	"github.com/Shivanand-hulikatti/room-booking/internal/model"
	"github.com/Shivanand-hulikatti/room-booking/internal/timeslot"
)

// safetyAlert reports whether r's holder is overdue: an expected arrival was
// given, nobody has marked arrival, the booking still stands, and the
// expected arrival plus grace has passed.
func (s *BookingService) safetyAlert(r model.Reservation, now time.Time) (string, bool) {
	if r.ExpectedArrival == "" || r.HasArrived || r.Status == model.StatusRejected {
		return "", false
	}
	naive, ok := timeslot.ParseInstant(r.Date, r.ExpectedArrival)
	if !ok {
		return "", false
	}
	expected := time.Date(naive.Year(), naive.Month(), naive.Day(), naive.Hour(), naive.Minute(), 0, 0, s.loc)
	if !now.After(expected.Add(s.arrivalGrace)) {
		return "", false
	}
	return "No arrival recorded for " + r.Resource + " by expected time " + r.ExpectedArrival, true
}

func (s *BookingService) views(rs []model.Reservation) []model.BookingView {
	now := s.now()
	out := make([]model.BookingView, 0, len(rs))
	for _, r := range rs {
		msg, alert := s.safetyAlert(r, now)
		out = append(out, model.BookingView{Reservation: r, SafetyAlert: alert, SafetyAlertMessage: msg})
	}
	return out
}

func alertsOf(views []model.BookingView) []model.SafetyAlert {
	out := []model.SafetyAlert{}
	for _, v := range views {
		if !v.SafetyAlert {
			continue
		}
		out = append(out, model.SafetyAlert{
			BookingID:       v.ID,
			Owner:           v.Owner,
			Resource:        v.Resource,
			Date:            v.Date,
			ExpectedArrival: v.ExpectedArrival,
			Message:         v.SafetyAlertMessage,
		})
	}
	return out
}
