package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Handler runs inside a turn. now is the instant the job was due in manual
// mode and the wall clock otherwise.
type Handler func(now time.Time)

type Job struct {
	s        *Scheduler
	name     string
	seq      uint64
	due      time.Time
	period   time.Duration
	fn       Handler
	canceled bool
}

func (j *Job) Name() string { return j.name }

// Cancel stops future firings of this job only.
func (j *Job) Cancel() {
	if j == nil {
		return
	}
	j.s.remove(j)
}

// Scheduler serialises every state mutation behind one turn. Timer handlers
// and commands submitted through Do never interleave.
type Scheduler struct {
	clock  Clock
	manual *ManualClock

	turn chan struct{}

	mu   sync.Mutex
	jobs []*Job
	seq  uint64
	wake chan struct{}
}

func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	s := &Scheduler{
		clock: clock,
		turn:  make(chan struct{}, 1),
		wake:  make(chan struct{}, 1),
	}
	if m, ok := clock.(*ManualClock); ok {
		s.manual = m
	}
	return s
}

func NewManual(start time.Time) (*Scheduler, *ManualClock) {
	clock := NewManualClock(start)
	return New(clock), clock
}

func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Every registers a periodic job whose first firing is one period from now.
func (s *Scheduler) Every(name string, period time.Duration, fn Handler) *Job {
	if period <= 0 {
		return nil
	}
	return s.add(name, s.clock.Now().Add(period), period, fn)
}

// After registers a one-shot job.
func (s *Scheduler) After(name string, d time.Duration, fn Handler) *Job {
	if d < 0 {
		d = 0
	}
	return s.add(name, s.clock.Now().Add(d), 0, fn)
}

func (s *Scheduler) add(name string, due time.Time, period time.Duration, fn Handler) *Job {
	s.mu.Lock()
	s.seq++
	j := &Job{s: s, name: name, seq: s.seq, due: due, period: period, fn: fn}
	s.jobs = append(s.jobs, j)
	s.mu.Unlock()
	s.poke()
	return j
}

func (s *Scheduler) remove(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j.canceled = true
	for i, cur := range s.jobs {
		if cur == j {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			return
		}
	}
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Do runs fn inside a turn.
func (s *Scheduler) Do(ctx context.Context, fn func(now time.Time) error) error {
	select {
	case s.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.turn }()
	return fn(s.clock.Now())
}

// popDue takes the earliest job due at or before limit. Ties fire in
// registration order. Periodic jobs are rescheduled before they run.
func (s *Scheduler) popDue(limit time.Time) (*Job, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := -1
	for i, j := range s.jobs {
		if j.due.After(limit) {
			continue
		}
		if best < 0 || j.due.Before(s.jobs[best].due) || (j.due.Equal(s.jobs[best].due) && j.seq < s.jobs[best].seq) {
			best = i
		}
	}
	if best < 0 {
		return nil, time.Time{}, false
	}
	j := s.jobs[best]
	due := j.due
	if j.period > 0 {
		j.due = j.due.Add(j.period)
	} else {
		s.jobs = append(s.jobs[:best], s.jobs[best+1:]...)
	}
	return j, due, true
}

func (s *Scheduler) nextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next time.Time
	for i, j := range s.jobs {
		if i == 0 || j.due.Before(next) {
			next = j.due
		}
	}
	return next, len(s.jobs) > 0
}

func (s *Scheduler) fire(j *Job, now time.Time) {
	s.turn <- struct{}{}
	defer func() { <-s.turn }()
	s.mu.Lock()
	canceled := j.canceled
	s.mu.Unlock()
	if canceled {
		return
	}
	j.fn(now)
}

// Advance moves a manual clock forward by d, firing every job that comes due
// on the way with the clock set to that job's due time. It returns the
// number of handlers run and is a no-op for schedulers on a real clock.
func (s *Scheduler) Advance(d time.Duration) int {
	if s.manual == nil {
		return 0
	}
	target := s.manual.Now().Add(d)
	fired := 0
	for {
		j, due, ok := s.popDue(target)
		if !ok {
			break
		}
		s.manual.Set(due)
		s.fire(j, due)
		fired++
	}
	s.manual.Set(target)
	return fired
}

// RunDue fires every job due at or before now.
func (s *Scheduler) RunDue(now time.Time) int {
	fired := 0
	for {
		j, _, ok := s.popDue(now)
		if !ok {
			return fired
		}
		s.fire(j, now)
		fired++
	}
}

// Run drives the scheduler from the wall clock until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.manual != nil {
		return errors.New("scheduler: Run needs a real clock")
	}
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		s.RunDue(s.clock.Now())

		wait := time.Hour
		if next, ok := s.nextDue(); ok {
			wait = time.Until(next)
			if wait < 0 {
				wait = 0
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-timer.C:
		}
	}
}
