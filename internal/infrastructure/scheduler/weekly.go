package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"AckeeVeille/internal/logging"
	"AckeeVeille/internal/ports"
)

// WeeklyScheduler fires a job once a week at a fixed wall-clock time in a given location.
// Jobs run on the scheduler goroutine, so two runs never overlap.
type WeeklyScheduler struct {
	weekday time.Weekday
	hour    int
	minute  int
	loc     *time.Location
	logger  *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*WeeklyScheduler)(nil)

// NewWeeklyScheduler builds a scheduler for weekday at hour:minute in loc (UTC when nil).
func NewWeeklyScheduler(weekday time.Weekday, hour, minute int, loc *time.Location, logger *slog.Logger) *WeeklyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &WeeklyScheduler{
		weekday: weekday,
		hour:    hour,
		minute:  minute,
		loc:     loc,
		logger:  logging.OrDiscard(logger),
		now:     time.Now,
		after:   time.After,
	}
}

// NextRun returns the first slot strictly after from.
func (s *WeeklyScheduler) NextRun(from time.Time) time.Time {
	local := from.In(s.loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.loc)

	offset := (int(s.weekday) - int(candidate.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, offset)
	if !candidate.After(from) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// Start launches the wait loop. Calling Start twice is a no-op.
func (s *WeeklyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done

	go func() {
		defer close(done)
		for {
			next := s.NextRun(s.now())
			s.logger.Info("next run scheduled", "at", next.Format(time.RFC3339))

			select {
			case <-s.after(time.Until(next)):
				select {
				case <-stop:
					return
				case <-ctx.Done():
					return
				default:
				}
				job(next)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the loop and waits for a running job to return, bounded by ctx.
func (s *WeeklyScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
