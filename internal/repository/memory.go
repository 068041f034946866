package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/room-booking/internal/keylock"
	"github.com/Shivanand-hulikatti/room-booking/internal/model"
	"github.com/Shivanand-hulikatti/room-booking/internal/timeslot"
)

// MemoryStore keeps reservations in process memory. Admissions for the same
// (room, date) key are serialized by a keyed lock; the table itself is guarded
// by a RWMutex held only for the duration of a read or a write.
type MemoryStore struct {
	locks *keylock.Locker

	mu    sync.RWMutex
	byID  map[string]*model.Reservation
	byKey map[string][]string // lock key -> reservation ids
	now   func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks: keylock.New(),
		byID:  make(map[string]*model.Reservation),
		byKey: make(map[string][]string),
		now:   time.Now,
	}
}

func (s *MemoryStore) FindByResourceAndDate(ctx context.Context, resource, date string) ([]model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, transient("find reservations", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(resource, date), nil
}

func (s *MemoryStore) findLocked(resource, date string) []model.Reservation {
	var out []model.Reservation
	for _, id := range s.byKey[timeslot.LockKey(resource, date)] {
		r := s.byID[id]
		if r.Resource == resource && r.Date == date {
			out = append(out, *r)
		}
	}
	return out
}

func (s *MemoryStore) CreateIfNoConflict(ctx context.Context, r *model.Reservation, conflict ConflictFunc) (string, error) {
	key := timeslot.LockKey(r.Resource, r.Date)
	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return "", transient("acquire booking lock", err)
	}
	defer unlock()

	s.mu.RLock()
	existing := s.findLocked(r.Resource, r.Date)
	s.mu.RUnlock()
	if conflict(existing) {
		return "", ErrConflict
	}

	now := s.now().UTC()
	r.ID = uuid.New().String()
	r.CreatedAt = now
	r.UpdatedAt = now
	stored := *r

	s.mu.Lock()
	s.byID[stored.ID] = &stored
	s.byKey[key] = append(s.byKey[key], stored.ID)
	s.mu.Unlock()
	return stored.ID, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, owner string) ([]model.Reservation, error) {
	s.mu.RLock()
	var out []model.Reservation
	for _, r := range s.byID {
		if r.Owner == owner {
			out = append(out, *r)
		}
	}
	s.mu.RUnlock()
	sortReservations(out)
	return out, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]model.Reservation, error) {
	s.mu.RLock()
	out := make([]model.Reservation, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, *r)
	}
	s.mu.RUnlock()
	sortReservations(out)
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status model.Status) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = s.now().UTC()
	out := *r
	return &out, nil
}

func (s *MemoryStore) MarkArrived(_ context.Context, id string, at time.Time) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status == model.StatusRejected {
		return nil, ErrArrivalRejected
	}
	if !r.HasArrived {
		at = at.UTC()
		r.HasArrived = true
		r.ArrivalMarkedAt = &at
		r.UpdatedAt = at
	}
	out := *r
	return &out, nil
}
