package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// AppointmentRepository keeps appointments in process memory. All operations
// run under one lock, so InsertIfAbsent is atomic.
type AppointmentRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*model.Appointment
}

func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{items: make(map[uuid.UUID]*model.Appointment)}
}

func (r *AppointmentRepository) InsertIfAbsent(ctx context.Context, apt *model.Appointment) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slotTaken(apt.Slot(), uuid.Nil) {
		return false, nil
	}

	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	now := time.Now()
	if apt.CreatedAt.IsZero() {
		apt.CreatedAt = now
	}
	if apt.UpdatedAt.IsZero() {
		apt.UpdatedAt = apt.CreatedAt
	}

	r.items[apt.ID] = clone(apt)
	return true, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	apt, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(apt), nil
}

func (r *AppointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &model.AppointmentFilters{}
	}

	r.mu.RLock()
	appointments := make([]*model.Appointment, 0, len(r.items))
	for _, apt := range r.items {
		if matches(apt, filters) {
			appointments = append(appointments, clone(apt))
		}
	}
	r.mu.RUnlock()

	sortAppointments(appointments, filters.Sort)

	if filters.Limit > 0 && len(appointments) > filters.Limit {
		appointments = appointments[:filters.Limit]
	}
	return appointments, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, id uuid.UUID, patch *model.AppointmentPatch) (*model.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	updated := clone(current)
	patch.Apply(updated)
	if updated.UpdatedAt.Equal(current.UpdatedAt) {
		updated.UpdatedAt = time.Now()
	}

	if updated.Slot() != current.Slot() && r.slotTaken(updated.Slot(), id) {
		return nil, repository.ErrDuplicateSlot
	}

	r.items[id] = updated
	return clone(updated), nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *AppointmentRepository) Count(ctx context.Context, filters *model.AppointmentFilters) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if filters == nil {
		filters = &model.AppointmentFilters{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, apt := range r.items {
		if matches(apt, filters) {
			count++
		}
	}
	return count, nil
}

func (r *AppointmentRepository) SlotExists(ctx context.Context, slot model.Slot) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.slotTaken(slot, uuid.Nil), nil
}

func (r *AppointmentRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// slotTaken must be called with the lock held.
func (r *AppointmentRepository) slotTaken(slot model.Slot, exclude uuid.UUID) bool {
	for id, apt := range r.items {
		if id != exclude && apt.Slot() == slot {
			return true
		}
	}
	return false
}

func matches(apt *model.Appointment, f *model.AppointmentFilters) bool {
	if !f.MatchesStatus(apt.Status) {
		return false
	}
	for _, excluded := range f.ExcludeStatus {
		if apt.Status.Normalize() == excluded {
			return false
		}
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(apt.Name), term) &&
			!strings.Contains(strings.ToLower(apt.Phone), term) {
			return false
		}
	}
	if f.Date != "" && apt.Date != f.Date {
		return false
	}
	if f.DateFrom != "" && apt.Date < f.DateFrom {
		return false
	}
	if f.CreatedFrom != nil && apt.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && !apt.CreatedAt.Before(*f.CreatedTo) {
		return false
	}
	return true
}

func sortAppointments(appointments []*model.Appointment, order model.SortOrder) {
	var less func(a, b *model.Appointment) bool
	switch order {
	case model.SortByDateDesc:
		less = func(a, b *model.Appointment) bool {
			if a.Date != b.Date {
				return a.Date > b.Date
			}
			return a.Time > b.Time
		}
	case model.SortByName:
		less = func(a, b *model.Appointment) bool { return a.Name < b.Name }
	case model.SortByCreated:
		less = func(a, b *model.Appointment) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		less = func(a, b *model.Appointment) bool {
			if a.Date != b.Date {
				return a.Date < b.Date
			}
			return a.Time < b.Time
		}
	}
	sort.SliceStable(appointments, func(i, j int) bool {
		return less(appointments[i], appointments[j])
	})
}

func clone(apt *model.Appointment) *model.Appointment {
	c := *apt
	if apt.PatientID != nil {
		id := *apt.PatientID
		c.PatientID = &id
	}
	if apt.ResolvedAt != nil {
		t := *apt.ResolvedAt
		c.ResolvedAt = &t
	}
	if apt.FollowUpOf != nil {
		id := *apt.FollowUpOf
		c.FollowUpOf = &id
	}
	if apt.FollowUpID != nil {
		id := *apt.FollowUpID
		c.FollowUpID = &id
	}
	return &c
}
