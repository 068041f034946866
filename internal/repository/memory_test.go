package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/room-booking/internal/timeslot"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStoreLockTimeoutIsTransient(t *testing.T) {
	s := NewMemoryStore()
	r := booking("Lab 1", "2025-03-14", "09:00", "10:00", "ana@example.com")

	unlock, err := s.locks.Lock(context.Background(), timeslot.LockKey(r.Resource, r.Date))
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.CreateIfNoConflict(ctx, &r, blocksOverlap(r))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	var te *TransientError
	if !errors.As(err, &te) || te.Op != "acquire booking lock" {
		t.Fatalf("expected TransientError for lock acquisition, got %#v", err)
	}
	if got, _ := s.FindByResourceAndDate(context.Background(), r.Resource, r.Date); len(got) != 0 {
		t.Fatalf("timed out admission wrote %d reservations", len(got))
	}
}

func TestMemoryStoreNormalizedKeysShareLock(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := booking("Lab-1", "2025-03-14", "09:00", "10:00", "ana@example.com")
	b := booking("Lab 1", "2025-03-14", "09:00", "10:00", "ana@example.com")
	if _, err := s.CreateIfNoConflict(ctx, &a, blocksOverlap(a)); err != nil {
		t.Fatal(err)
	}
	// Same lock key, different room names: the second is a separate room.
	if _, err := s.CreateIfNoConflict(ctx, &b, blocksOverlap(b)); err != nil {
		t.Fatalf("distinct room sharing a lock key was refused: %v", err)
	}
	got, _ := s.FindByResourceAndDate(ctx, "Lab 1", "2025-03-14")
	if len(got) != 1 || got[0].Resource != "Lab 1" {
		t.Fatalf("unexpected reservations %+v", got)
	}
}
