package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/coursebot/internal/logger"
)

// Default admin working hours for pending payment reminders
const (
	DefaultReminderStartHour = 9
	DefaultReminderEndHour   = 21
)

// PendingReminder re-sends stale pending payments to the admins
type PendingReminder interface {
	RemindPending(ctx context.Context, olderThan time.Duration) (int, error)
}

// Sweeper drops expired entries and reports how many went away
type Sweeper interface {
	Sweep() int
}

// Config controls the background jobs
type Config struct {
	ReminderInterval time.Duration
	PendingOlderThan time.Duration
	SweepInterval    time.Duration
	StartHour        int // reminders only between StartHour and EndHour
	EndHour          int
}

// DefaultConfig returns the default job settings
func DefaultConfig() Config {
	return Config{
		ReminderInterval: 30 * time.Minute,
		PendingOlderThan: time.Hour,
		SweepInterval:    10 * time.Minute,
		StartHour:        DefaultReminderStartHour,
		EndHour:          DefaultReminderEndHour,
	}
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	reminder  PendingReminder
	sweepers  map[string]Sweeper
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new scheduler instance
func New(reminder PendingReminder, cfg Config, log *logger.Logger) *Scheduler {
	if cfg.ReminderInterval <= 0 {
		cfg.ReminderInterval = DefaultConfig().ReminderInterval
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		reminder:  reminder,
		sweepers:  make(map[string]Sweeper),
		cfg:       cfg,
		log:       log.With("component", "Scheduler"),
		now:       time.Now,
	}
}

// AddSweeper registers a cache to be swept periodically. Call before Start.
func (s *Scheduler) AddSweeper(name string, sw Sweeper) {
	s.sweepers[name] = sw
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start(ctx context.Context) error {
	if s.reminder != nil {
		if _, err := s.scheduler.Every(s.cfg.ReminderInterval).Do(func() { s.checkPending(ctx) }); err != nil {
			return err
		}
	}
	if len(s.sweepers) > 0 {
		if _, err := s.scheduler.Every(s.cfg.SweepInterval).Do(s.sweep); err != nil {
			return err
		}
	}
	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	s.log.Info("scheduler started", "reminder_interval", s.cfg.ReminderInterval.String(), "sweep_interval", s.cfg.SweepInterval.String())
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkPending reminds admins about stale payments during working hours
func (s *Scheduler) checkPending(ctx context.Context) int {
	hour := s.now().Hour()
	if !s.withinHours(hour) {
		s.log.Debug("outside reminder hours, skipping", "hour", hour, "start", s.cfg.StartHour, "end", s.cfg.EndHour)
		return 0
	}
	n, err := s.RunManualCheck(ctx)
	if err != nil {
		s.log.Error("pending payment reminder failed", "error", err)
	}
	return n
}

func (s *Scheduler) withinHours(hour int) bool {
	start, end := s.cfg.StartHour, s.cfg.EndHour
	if start == end {
		return true
	}
	if start < end {
		return hour >= start && hour < end
	}
	// window wraps midnight
	return hour >= start || hour < end
}

// RunManualCheck reminds admins right away, ignoring working hours
func (s *Scheduler) RunManualCheck(ctx context.Context) (int, error) {
	n, err := s.reminder.RemindPending(ctx, s.cfg.PendingOlderThan)
	if n > 0 {
		s.log.Info("reminded admins about pending payments", "count", n)
	}
	return n, err
}

func (s *Scheduler) sweep() {
	for name, sw := range s.sweepers {
		if n := sw.Sweep(); n > 0 {
			s.log.Debug("swept expired entries", "cache", name, "count", n)
		}
	}
}
