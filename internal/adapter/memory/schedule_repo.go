// Package memory holds mutex-guarded in-process stores. They back the
// "memory" storage driver and serve as collaborators in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/user/harvest-service/internal/entity"
)

// ScheduleRepo implements repository.ScheduleRepository.
type ScheduleRepo struct {
	mu    sync.RWMutex
	items map[string]*entity.Schedule
}

func NewScheduleRepo() *ScheduleRepo {
	return &ScheduleRepo{items: make(map[string]*entity.Schedule)}
}

func (r *ScheduleRepo) ListActive(ctx context.Context) ([]*entity.Schedule, error) {
	return r.list(func(s *entity.Schedule) bool { return s.IsActive }), nil
}

func (r *ScheduleRepo) List(ctx context.Context) ([]*entity.Schedule, error) {
	return r.list(func(*entity.Schedule) bool { return true }), nil
}

func (r *ScheduleRepo) list(keep func(*entity.Schedule) bool) []*entity.Schedule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.Schedule, 0, len(r.items))
	for _, s := range r.items {
		if keep(s) {
			out = append(out, cloneSchedule(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *ScheduleRepo) Get(ctx context.Context, id string) (*entity.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return cloneSchedule(s), nil
}

func (r *ScheduleRepo) Create(ctx context.Context, s *entity.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID] = cloneSchedule(s)
	return nil
}

func (r *ScheduleRepo) Update(ctx context.Context, s *entity.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[s.ID]
	if !ok {
		return entity.ErrNotFound
	}
	c := cloneSchedule(s)
	// last_run_at is owned by RecordRun.
	c.LastRunAt = cur.LastRunAt
	c.CreatedAt = cur.CreatedAt
	r.items[s.ID] = c
	return nil
}

func (r *ScheduleRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return entity.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *ScheduleRepo) RecordRun(ctx context.Context, id string, lastRunAt, nextRunAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return entity.ErrNotFound
	}
	s.LastRunAt = &lastRunAt
	if s.IsActive {
		s.NextRunAt = &nextRunAt
	} else {
		s.NextRunAt = nil
	}
	s.UpdatedAt = lastRunAt
	return nil
}

func cloneSchedule(s *entity.Schedule) *entity.Schedule {
	c := *s
	if s.LastRunAt != nil {
		t := *s.LastRunAt
		c.LastRunAt = &t
	}
	if s.NextRunAt != nil {
		t := *s.NextRunAt
		c.NextRunAt = &t
	}
	return &c
}
