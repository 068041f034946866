package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/room-booking/internal/conflict"
	"github.com/Shivanand-hulikatti/room-booking/internal/model"
)

// runStoreContract exercises the Store behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		r := booking("Seminar Hall", "2025-03-14", "09:00", "10:00", "ana@example.com")
		r.ExpectedArrival = "09:15"
		id, err := s.CreateIfNoConflict(ctx, &r, blocksOverlap(r))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if id == "" || r.ID != id {
			t.Fatalf("expected id to be assigned, got %q / %q", id, r.ID)
		}
		got, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Resource != "Seminar Hall" || got.Start != "09:00" || got.ExpectedArrival != "09:15" {
			t.Fatalf("unexpected reservation %+v", got)
		}
		if got.Status != model.StatusPending || got.HasArrived {
			t.Fatalf("expected fresh pending reservation, got %+v", got)
		}
		if got.CreatedAt.IsZero() {
			t.Fatalf("expected created_at to be set")
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(context.Background(), "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ConflictWritesNothing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		first := booking("Lab 1", "2025-03-14", "09:00", "11:00", "a@example.com")
		if _, err := s.CreateIfNoConflict(ctx, &first, blocksOverlap(first)); err != nil {
			t.Fatalf("first: %v", err)
		}
		second := booking("Lab 1", "2025-03-14", "10:00", "12:00", "b@example.com")
		if _, err := s.CreateIfNoConflict(ctx, &second, blocksOverlap(second)); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		held, err := s.FindByResourceAndDate(ctx, "Lab 1", "2025-03-14")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(held) != 1 {
			t.Fatalf("expected 1 reservation, got %d", len(held))
		}
	})

	t.Run("ListByOwnerSorted", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, b := range []model.Reservation{
			booking("Lab 2", "2025-03-15", "08:00", "09:00", "ana@example.com"),
			booking("Lab 1", "2025-03-14", "13:00", "14:00", "ana@example.com"),
			booking("Lab 3", "2025-03-14", "09:00", "10:00", "ana@example.com"),
			booking("Lab 3", "2025-03-14", "10:00", "11:00", "other@example.com"),
		} {
			b := b
			if _, err := s.CreateIfNoConflict(ctx, &b, blocksOverlap(b)); err != nil {
				t.Fatalf("create %s: %v", b.Resource, err)
			}
		}
		got, err := s.ListByOwner(ctx, "ana@example.com")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []string{"2025-03-14 09:00", "2025-03-14 13:00", "2025-03-15 08:00"}
		if len(got) != len(want) {
			t.Fatalf("expected %d reservations, got %d", len(want), len(got))
		}
		for i, r := range got {
			if r.Date+" "+r.Start != want[i] {
				t.Fatalf("position %d: got %s %s, want %s", i, r.Date, r.Start, want[i])
			}
		}
		all, err := s.ListAll(ctx)
		if err != nil {
			t.Fatalf("list all: %v", err)
		}
		if len(all) != 4 {
			t.Fatalf("expected 4 reservations, got %d", len(all))
		}
	})

	t.Run("StatusAndArrival", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		r := booking("Lab 4", "2025-03-14", "09:00", "10:00", "ana@example.com")
		id, err := s.CreateIfNoConflict(ctx, &r, blocksOverlap(r))
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		at := time.Date(2025, 3, 14, 9, 5, 0, 0, time.UTC)
		got, err := s.MarkArrived(ctx, id, at)
		if err != nil {
			t.Fatalf("mark arrived: %v", err)
		}
		if !got.HasArrived || got.ArrivalMarkedAt == nil || !got.ArrivalMarkedAt.Equal(at) {
			t.Fatalf("unexpected arrival state %+v", got)
		}
		again, err := s.MarkArrived(ctx, id, at.Add(time.Hour))
		if err != nil {
			t.Fatalf("mark arrived again: %v", err)
		}
		if !again.ArrivalMarkedAt.Equal(at) {
			t.Fatalf("second mark moved arrival time to %v", again.ArrivalMarkedAt)
		}

		updated, err := s.UpdateStatus(ctx, id, model.StatusApproved)
		if err != nil {
			t.Fatalf("update status: %v", err)
		}
		if updated.Status != model.StatusApproved {
			t.Fatalf("expected Approved, got %s", updated.Status)
		}
		if _, err := s.UpdateStatus(ctx, "00000000-0000-0000-0000-000000000000", model.StatusApproved); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ArrivalBlockedWhenRejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		r := booking("Lab 5", "2025-03-14", "09:00", "10:00", "ana@example.com")
		id, err := s.CreateIfNoConflict(ctx, &r, blocksOverlap(r))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.UpdateStatus(ctx, id, model.StatusRejected); err != nil {
			t.Fatalf("reject: %v", err)
		}
		if _, err := s.MarkArrived(ctx, id, time.Now()); !errors.Is(err, ErrArrivalRejected) {
			t.Fatalf("expected ErrArrivalRejected, got %v", err)
		}
		got, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.HasArrived {
			t.Fatalf("rejected booking was marked arrived")
		}
	})

	t.Run("ConcurrentSameSlot", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var created, conflicts int32
		var g errgroup.Group
		for i := 0; i < 50; i++ {
			i := i
			g.Go(func() error {
				r := booking("Auditorium", "2025-03-14", "09:00", "10:00", fmt.Sprintf("user%d@example.com", i))
				_, err := s.CreateIfNoConflict(ctx, &r, blocksOverlap(r))
				switch {
				case err == nil:
					atomic.AddInt32(&created, 1)
				case errors.Is(err, ErrConflict):
					atomic.AddInt32(&conflicts, 1)
				default:
					return err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("submission failed: %v", err)
		}
		if created != 1 || conflicts != 49 {
			t.Fatalf("created=%d conflicts=%d, want 1 and 49", created, conflicts)
		}
	})

	t.Run("ConcurrentDistinctSlots", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var g errgroup.Group
		for i := 0; i < 20; i++ {
			i := i
			g.Go(func() error {
				r := booking(fmt.Sprintf("Room %d", i), "2025-03-14", "09:00", "10:00", "ana@example.com")
				_, err := s.CreateIfNoConflict(ctx, &r, blocksOverlap(r))
				return err
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("distinct rooms should never conflict: %v", err)
		}
	})
}

func booking(resource, date, start, end, owner string) model.Reservation {
	return model.Reservation{
		Resource: resource,
		Date:     date,
		Start:    start,
		End:      end,
		Purpose:  "test",
		Owner:    owner,
		Status:   model.StatusPending,
	}
}

func blocksOverlap(r model.Reservation) ConflictFunc {
	return func(existing []model.Reservation) bool {
		return conflict.HasConflict(existing, r.Date, r.Start, r.End)
	}
}
