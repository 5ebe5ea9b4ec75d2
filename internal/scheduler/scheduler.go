// Package scheduler owns the cron timers of active schedules and makes sure
// at most one run per schedule is in flight.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/internal/repository"
	"github.com/user/harvest-service/internal/usecase"
	"github.com/user/harvest-service/pkg/metrics"
)

const writeBackTimeout = 10 * time.Second

// Standard 5-field cron (minute hour day month weekday), no descriptors.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Executor runs acquisition runs. *usecase.Runner satisfies it.
type Executor interface {
	Resolve(req usecase.RunRequest) (entity.SourceConfig, error)
	Run(ctx context.Context, req usecase.RunRequest) (*entity.RunReport, error)
}

// Scheduler binds one cron entry per active schedule.
type Scheduler struct {
	repo    repository.ScheduleRepository
	runner  Executor
	cron    *cron.Cron
	loc     *time.Location
	metrics *metrics.Metrics
	logger  *zap.Logger

	entries   map[string]cron.EntryID
	entriesMu sync.Mutex

	// slots holds one single-capacity channel per schedule id; a fire that
	// cannot send is dropped.
	slots   map[string]chan struct{}
	slotsMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// New creates a scheduler that evaluates cron expressions in loc.
func New(repo repository.ScheduleRepository, runner Executor, loc *time.Location, m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{logger.Sugar()})),
	)
	return &Scheduler{
		repo:    repo,
		runner:  runner,
		cron:    c,
		loc:     loc,
		metrics: m,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
		slots:   make(map[string]chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
	}
}

// ValidateCron checks that expr is a 5-field cron expression.
func ValidateCron(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return &entity.ConfigurationError{Field: "cron_expression", Reason: "required"}
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return &entity.ConfigurationError{Field: "cron_expression", Reason: err.Error()}
	}
	return nil
}

// NextRun returns the first activation of expr strictly after from, evaluated
// in the scheduler's timezone.
func (s *Scheduler) NextRun(expr string, from time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, &entity.ConfigurationError{Field: "cron_expression", Reason: err.Error()}
	}
	return sched.Next(from.In(s.loc)), nil
}

// Start binds every active schedule and refreshes its next run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting scheduler", zap.String("timezone", s.loc.String()))

	schedules, err := s.repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active schedules: %w", err)
	}
	now := s.now()
	for _, sched := range schedules {
		next, err := s.NextRun(sched.CronExpression, now)
		if err != nil {
			s.logger.Error("Skipping schedule with invalid cron",
				zap.String("schedule_id", sched.ID),
				zap.String("cron", sched.CronExpression),
				zap.Error(err))
			continue
		}
		sched.NextRunAt = &next
		if err := s.repo.Update(ctx, sched); err != nil {
			s.logger.Warn("Failed to refresh next run", zap.String("schedule_id", sched.ID), zap.Error(err))
		}
		if err := s.bind(sched); err != nil {
			s.logger.Error("Failed to bind schedule", zap.String("schedule_id", sched.ID), zap.Error(err))
		}
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("bound", s.boundCount()))
	return nil
}

// Shutdown stops firing timers and waits for in-flight runs. When ctx
// expires first, in-flight runs are cancelled and ctx.Err() is returned.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.logger.Info("Stopping scheduler")
	stopped := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// Create validates and stores a new schedule, binding it when active.
func (s *Scheduler) Create(ctx context.Context, in entity.ScheduleInput) (*entity.Schedule, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	now := s.now()
	sched := &entity.Schedule{
		ID:        uuid.NewString(),
		CreatedAt: now,
	}
	if err := s.apply(sched, in, now); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sched); err != nil {
		return nil, err
	}
	if sched.IsActive {
		if err := s.bind(sched); err != nil {
			return nil, err
		}
	}
	s.logger.Info("Schedule created",
		zap.String("schedule_id", sched.ID),
		zap.String("cron", sched.CronExpression),
		zap.Bool("active", sched.IsActive))
	return sched, nil
}

// Update replaces the definition of a schedule and rebinds its timer.
func (s *Scheduler) Update(ctx context.Context, id string, in entity.ScheduleInput) (*entity.Schedule, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	sched, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(sched, in, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sched); err != nil {
		return nil, err
	}
	s.unbind(id)
	if sched.IsActive {
		if err := s.bind(sched); err != nil {
			return nil, err
		}
	}
	s.logger.Info("Schedule updated", zap.String("schedule_id", id), zap.Bool("active", sched.IsActive))
	return sched, nil
}

// Toggle flips IsActive. Activating binds the timer and sets a next run
// strictly after now; deactivating unbinds it and clears the next run. A run
// already in flight is not affected.
func (s *Scheduler) Toggle(ctx context.Context, id string) (*entity.Schedule, error) {
	sched, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sched.IsActive = !sched.IsActive
	sched.UpdatedAt = now
	if sched.IsActive {
		next, err := s.NextRun(sched.CronExpression, now)
		if err != nil {
			return nil, err
		}
		sched.NextRunAt = &next
	} else {
		sched.NextRunAt = nil
	}

	if err := s.repo.Update(ctx, sched); err != nil {
		return nil, err
	}
	if sched.IsActive {
		if err := s.bind(sched); err != nil {
			return nil, err
		}
	} else {
		s.unbind(id)
	}
	s.logger.Info("Schedule toggled", zap.String("schedule_id", id), zap.Bool("active", sched.IsActive))
	return sched, nil
}

// Delete unbinds the timer and removes the schedule. A run in flight finishes
// and its bookkeeping write is dropped. If the store rejects the delete the
// timer is restored.
func (s *Scheduler) Delete(ctx context.Context, id string) error {
	s.unbind(id)
	if err := s.repo.Delete(ctx, id); err != nil {
		s.rebind(ctx, id)
		return err
	}
	s.slotsMu.Lock()
	delete(s.slots, id)
	s.slotsMu.Unlock()
	s.logger.Info("Schedule deleted", zap.String("schedule_id", id))
	return nil
}

// Get returns one schedule.
func (s *Scheduler) Get(ctx context.Context, id string) (*entity.Schedule, error) {
	return s.repo.Get(ctx, id)
}

// List returns every schedule, active or not.
func (s *Scheduler) List(ctx context.Context) ([]*entity.Schedule, error) {
	return s.repo.List(ctx)
}

// Fire runs the schedule now unless a run for it is already in flight. It
// blocks for the duration of the run and reports whether one was executed.
func (s *Scheduler) Fire(id string) bool {
	slot := s.slot(id)
	select {
	case slot <- struct{}{}:
	default:
		s.metrics.ScheduleFiresSkipped.Inc()
		s.logger.Info("Skipping fire, previous run still in progress", zap.String("schedule_id", id))
		return false
	}
	defer func() { <-slot }()

	s.wg.Add(1)
	defer s.wg.Done()
	return s.execute(id)
}

func (s *Scheduler) execute(id string) bool {
	log := s.logger.With(zap.String("schedule_id", id))

	sched, err := s.repo.Get(s.ctx, id)
	if errors.Is(err, entity.ErrNotFound) {
		log.Warn("Fired schedule no longer exists")
		return false
	}
	if err != nil {
		log.Error("Failed to load schedule", zap.Error(err))
		return false
	}
	if !sched.IsActive {
		log.Debug("Fired schedule is inactive")
		return false
	}

	s.metrics.ScheduleFiresTotal.Inc()
	report, runErr := s.runner.Run(s.ctx, usecase.RunRequest{
		ScheduleID: &sched.ID,
		SourceURL:  sched.SourceURL,
		MaxPages:   sched.MaxPages,
		DelayMs:    sched.DelayMs,
		Engine:     sched.Engine,
	})
	if runErr != nil && report == nil {
		log.Error("Scheduled run rejected", zap.Error(runErr))
	}

	// Bookkeeping follows every fire that reached the runner, successful or not.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), writeBackTimeout)
	defer cancel()

	// The definition may have been updated while the run was in flight.
	current, err := s.repo.Get(ctx, id)
	if errors.Is(err, entity.ErrNotFound) {
		log.Warn("Schedule deleted during run, dropping bookkeeping")
		return true
	}
	if err != nil {
		log.Error("Failed to reload schedule for bookkeeping", zap.Error(err))
		return true
	}
	now := s.now()
	next, err := s.NextRun(current.CronExpression, now)
	if err != nil {
		log.Error("Failed to compute next run", zap.Error(err))
		return true
	}
	if err := s.repo.RecordRun(ctx, id, now, next); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			log.Warn("Schedule deleted during run, dropping bookkeeping")
		} else {
			log.Error("Failed to record run", zap.Error(err))
		}
	}
	return true
}

func (s *Scheduler) validate(in entity.ScheduleInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return &entity.ConfigurationError{Field: "name", Reason: "required"}
	}
	if err := ValidateCron(in.CronExpression); err != nil {
		return err
	}
	_, err := s.runner.Resolve(usecase.RunRequest{
		SourceURL: in.SourceURL,
		MaxPages:  in.MaxPages,
		DelayMs:   in.DelayMs,
		Engine:    in.Engine,
	})
	return err
}

func (s *Scheduler) apply(sched *entity.Schedule, in entity.ScheduleInput, now time.Time) error {
	sched.Name = strings.TrimSpace(in.Name)
	sched.SourceURL = strings.TrimSpace(in.SourceURL)
	sched.MaxPages = in.MaxPages
	sched.DelayMs = in.DelayMs
	sched.CronExpression = strings.TrimSpace(in.CronExpression)
	sched.Engine = in.Engine
	sched.IsActive = in.IsActive
	sched.UpdatedAt = now
	sched.NextRunAt = nil
	if sched.IsActive {
		next, err := s.NextRun(sched.CronExpression, now)
		if err != nil {
			return err
		}
		sched.NextRunAt = &next
	}
	return nil
}

func (s *Scheduler) bind(sched *entity.Schedule) error {
	spec, err := cronParser.Parse(sched.CronExpression)
	if err != nil {
		return &entity.ConfigurationError{Field: "cron_expression", Reason: err.Error()}
	}
	id := sched.ID

	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()
	if old, ok := s.entries[id]; ok {
		s.cron.Remove(old)
	}
	s.entries[id] = s.cron.Schedule(spec, cron.FuncJob(func() { s.Fire(id) }))
	s.metrics.SchedulesBound.Set(float64(len(s.entries)))
	return nil
}

func (s *Scheduler) unbind(id string) {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	s.metrics.SchedulesBound.Set(float64(len(s.entries)))
}

// rebind restores the timer of a schedule that is still stored and active.
func (s *Scheduler) rebind(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeBackTimeout)
	defer cancel()
	sched, err := s.repo.Get(ctx, id)
	if err != nil {
		s.logger.Error("Failed to reload schedule after failed delete", zap.String("schedule_id", id), zap.Error(err))
		return
	}
	if !sched.IsActive {
		return
	}
	if err := s.bind(sched); err != nil {
		s.logger.Error("Failed to rebind schedule", zap.String("schedule_id", id), zap.Error(err))
	}
}

// Bound reports whether id currently has a timer.
func (s *Scheduler) Bound(id string) bool {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()
	_, ok := s.entries[id]
	return ok
}

func (s *Scheduler) boundCount() int {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()
	return len(s.entries)
}

func (s *Scheduler) slot(id string) chan struct{} {
	s.slotsMu.Lock()
	defer s.slotsMu.Unlock()
	ch, ok := s.slots[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.slots[id] = ch
	}
	return ch
}

// cronLogger routes robfig/cron's logging, including recovered panics, to zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
