package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/strompris/strompris-go/clock"
)

// cancelGrace bounds how long Job.Cancel waits for an in-flight action.
const cancelGrace = 5 * time.Second

// Action is the unit of scheduled work. The context is cancelled when the
// job is cancelled; a pending action must not start after that, but an
// action already running is allowed to finish.
type Action func(ctx context.Context)

// Job is the cancellation handle for one scheduled unit.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Cancel stops all future executions, interrupts a pending wait and then
// waits up to a bounded grace period for a running action to finish.
// Safe to call multiple times and from any goroutine.
func (j *Job) Cancel() {
	j.once.Do(func() {
		j.cancel()
		select {
		case <-j.done:
		case <-time.After(cancelGrace):
		}
	})
}

// Done is closed when the job's goroutine has exited.
func (j *Job) Done() <-chan struct{} { return j.done }

// Scheduler runs actions at absolute times or on recurring schedules. Each
// scheduled unit gets its own goroutine; units do not interfere with each
// other. A panicking action is recovered and logged, and ends that unit's
// recurrence only.
type Scheduler struct {
	logger *slog.Logger
	clock  clock.Clock
}

func New(logger *slog.Logger, clk clock.Clock) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{logger: logger, clock: clk}
}

// RunOnceAt runs action once when the given instant arrives. A time in the
// past runs with no additional delay, still on its own goroutine.
func (s *Scheduler) RunOnceAt(at time.Time, action Action) *Job {
	return s.start(func(ctx context.Context) {
		if !s.sleepUntil(ctx, at) {
			return
		}
		s.invoke(ctx, action)
	})
}

// RunOnceAfter runs action once after the given delay.
func (s *Scheduler) RunOnceAfter(delay time.Duration, action Action) *Job {
	return s.RunOnceAt(s.clock.Now().Add(delay), action)
}

// RunEvery waits until start (immediately if already past), runs action,
// then repeats every interval until cancelled.
func (s *Scheduler) RunEvery(start time.Time, interval time.Duration, action Action) *Job {
	return s.start(func(ctx context.Context) {
		if !s.sleepUntil(ctx, start) {
			return
		}
		for {
			if !s.invoke(ctx, action) {
				return
			}
			if !s.sleepFor(ctx, interval) {
				return
			}
		}
	})
}

// RunDailyAt runs action every day at hour:minute on the wall clock in loc.
// The next trigger instant is recomputed from the wall-clock target before
// every recurrence, so the schedule stays put across DST transitions.
func (s *Scheduler) RunDailyAt(hour, minute int, loc *time.Location, action Action) *Job {
	return s.start(func(ctx context.Context) {
		for {
			next := clock.NextDailyAt(s.clock.Now(), hour, minute, loc)
			if !s.sleepUntil(ctx, next) {
				return
			}
			if !s.invoke(ctx, action) {
				return
			}
		}
	})
}

func (s *Scheduler) start(run func(ctx context.Context)) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(job.done)
		run(ctx)
	}()

	return job
}

// invoke runs the action, containing panics. Returns false when the unit
// should not recur: either the job was cancelled or the action panicked.
func (s *Scheduler) invoke(ctx context.Context, action Action) (ok bool) {
	if ctx.Err() != nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled action panicked, stopping its recurrence", slog.Any("panic", r))
			ok = false
		}
	}()

	action(ctx)
	return ctx.Err() == nil
}

// sleepUntil blocks until the given instant or cancellation. Returns true
// when the instant was reached.
func (s *Scheduler) sleepUntil(ctx context.Context, at time.Time) bool {
	return s.sleepFor(ctx, at.Sub(s.clock.Now()))
}

func (s *Scheduler) sleepFor(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
