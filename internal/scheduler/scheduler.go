// Package scheduler runs the daily reward pass.  One goroutine owns both
// the timer and the work, so two runs can never overlap; a fire that
// would land while a run is in flight simply waits for the next midnight.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/event-booking-engine/internal/model"
	"github.com/iliyamo/event-booking-engine/internal/service"
)

// ErrAlreadyAwarded is returned when a day's rewards were already handed
// out by this process or another replica.
var ErrAlreadyAwarded = errors.New("daily rewards already awarded")

// Rewarder runs the daily award pass for one local day.
type Rewarder interface {
	AwardDaily(ctx context.Context, day time.Time) (service.AwardSummary, error)
}

// Reminder sends the reminders for events taking place on a day.
type Reminder interface {
	SendEventReminders(ctx context.Context, today time.Time) (int, error)
}

// RewardScheduler fires at every local midnight.  Each fire rewards the
// day that just ended, not the day it fires on: the fire at 00:00 on
// June 11 awards the June 10 leaderboard.  It also reminds attendees of
// events on the new day.
type RewardScheduler struct {
	rewards   Rewarder
	reminders Reminder
	loc       *time.Location
	now       func() time.Time
	after     func(time.Duration) <-chan time.Time
	lock      *RunLock

	runMu sync.Mutex // serializes runs, including RunNow
	mu    sync.Mutex
	last  time.Time // start of the last rewarded day

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a RewardScheduler.
type Option func(*RewardScheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *RewardScheduler) { s.now = now } }

// WithTimer replaces time.After.
func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(s *RewardScheduler) { s.after = after }
}

// WithLock makes replicas coordinate through lock.
func WithLock(lock *RunLock) Option { return func(s *RewardScheduler) { s.lock = lock } }

// New returns a stopped scheduler.  Reminders may be nil.
func New(rewards Rewarder, reminders Reminder, loc *time.Location, opts ...Option) *RewardScheduler {
	if loc == nil {
		loc = time.Local
	}
	s := &RewardScheduler{rewards: rewards, reminders: reminders, loc: loc, now: time.Now, after: time.After}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NextMidnight returns the first local midnight strictly after t.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	return model.StartOfDay(t, loc).AddDate(0, 0, 1)
}

// Start launches the worker.  It stops when ctx is done or Stop is called.
func (s *RewardScheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx)
	log.Printf("scheduler: started, first run at %s", NextMidnight(s.now(), s.loc).Format(time.RFC3339))
}

// Stop cancels the timer and waits for an in-flight run to finish.
func (s *RewardScheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	log.Printf("scheduler: stopped")
}

func (s *RewardScheduler) loop(ctx context.Context) {
	defer close(s.done)
	for {
		now := s.now()
		wait := NextMidnight(now, s.loc).Sub(now)
		select {
		case <-ctx.Done():
			return
		case fired := <-s.after(wait):
			// A run started before shutdown completes.
			s.fire(context.WithoutCancel(ctx), fired)
		}
	}
}

// fire handles one timer tick.  Nothing here may stop the loop.
func (s *RewardScheduler) fire(ctx context.Context, at time.Time) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("scheduler: run panicked: %v", p)
		}
	}()

	ended := model.StartOfDay(at, s.loc).AddDate(0, 0, -1)
	if _, err := s.RunNow(ctx, ended); err != nil && !errors.Is(err, ErrAlreadyAwarded) {
		log.Printf("scheduler: daily rewards for %s failed: %v", ended.Format("2006-01-02"), err)
	}
	if s.reminders != nil {
		n, err := s.reminders.SendEventReminders(ctx, at)
		if err != nil {
			log.Printf("scheduler: event reminders failed: %v", err)
		} else {
			log.Printf("scheduler: sent %d event reminders", n)
		}
	}
}

// RunNow rewards day immediately.  It waits for a running pass and
// refuses days at or before the last rewarded one.
func (s *RewardScheduler) RunNow(ctx context.Context, day time.Time) (sum service.AwardSummary, err error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	day = model.StartOfDay(day, s.loc)
	if last := s.LastCompleted(); !last.IsZero() && !day.After(last) {
		return service.AwardSummary{}, ErrAlreadyAwarded
	}
	ok, err := s.lock.Acquire(ctx, day)
	if err != nil {
		// Without Redis the run goes ahead; the local watermark still applies.
		log.Printf("scheduler: run lock unavailable: %v", err)
	} else if !ok {
		s.setLast(day)
		return service.AwardSummary{}, ErrAlreadyAwarded
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("daily rewards panicked: %v", p)
		}
		if err != nil {
			if rerr := s.lock.Release(ctx, day); rerr != nil {
				log.Printf("scheduler: release run lock: %v", rerr)
			}
		}
	}()

	start := s.now()
	sum, err = s.rewards.AwardDaily(ctx, day)
	if err != nil {
		return service.AwardSummary{}, err
	}
	s.setLast(day)
	log.Printf("scheduler: rewarded %s: %d attendees, %d points in %s",
		sum.Period, sum.Awarded, sum.Points, s.now().Sub(start))
	return sum, nil
}

// LastCompleted returns the start of the last rewarded day, or zero.
func (s *RewardScheduler) LastCompleted() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *RewardScheduler) setLast(day time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if day.After(s.last) {
		s.last = day
	}
}
