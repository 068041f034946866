package conflict

import (
	"context"
	"errors"
	"testing"

	"github.com/Shivanand-hulikatti/room-booking/internal/model"
)

type stubFinder struct {
	rows []model.Reservation
	err  error
	got  [2]string
}

func (s *stubFinder) FindByResourceAndDate(_ context.Context, resource, date string) ([]model.Reservation, error) {
	s.got = [2]string{resource, date}
	return s.rows, s.err
}

func held(id, start, end string, status model.Status) model.Reservation {
	return model.Reservation{ID: id, Resource: "Lab 1", Date: "2025-03-14", Start: start, End: end, Status: status}
}

func TestHasConflict(t *testing.T) {
	existing := []model.Reservation{
		held("a", "09:00", "10:00", model.StatusApproved),
		held("b", "13:00", "14:00", model.StatusRejected),
		held("broken", "nine", "ten", model.StatusPending),
	}
	tests := []struct {
		name       string
		start, end string
		want       bool
	}{
		{"touching after", "10:00", "11:00", false},
		{"touching before", "08:00", "09:00", false},
		{"overlap approved", "09:30", "10:30", true},
		{"rejected still blocks", "13:30", "13:45", true},
		{"free slot", "11:00", "12:00", false},
		{"unparseable proposal fails closed", "11:00", "bogus", true},
		{"reversed proposal fails closed", "12:00", "11:00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasConflict(existing, "2025-03-14", tt.start, tt.end); got != tt.want {
				t.Fatalf("HasConflict(%s-%s) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestFirstReturnsBlockingReservation(t *testing.T) {
	existing := []model.Reservation{
		held("a", "09:00", "10:00", model.StatusPending),
		held("b", "10:00", "11:00", model.StatusPending),
	}
	r, ok := First(existing, "2025-03-14", "10:30", "10:45")
	if !ok || r.ID != "b" {
		t.Fatalf("First = %q, %v; want b", r.ID, ok)
	}
}

func TestDetectorReadsStore(t *testing.T) {
	f := &stubFinder{rows: []model.Reservation{held("a", "09:00", "10:00", model.StatusPending)}}
	d := NewDetector(f)
	got, err := d.HasConflict(context.Background(), "Lab 1", "2025-03-14", "09:15", "09:45")
	if err != nil {
		t.Fatalf("HasConflict: %v", err)
	}
	if !got {
		t.Fatal("expected conflict")
	}
	if f.got != [2]string{"Lab 1", "2025-03-14"} {
		t.Fatalf("store queried with %v", f.got)
	}

	f.err = errors.New("boom")
	if _, err := d.HasConflict(context.Background(), "Lab 1", "2025-03-14", "11:00", "12:00"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
