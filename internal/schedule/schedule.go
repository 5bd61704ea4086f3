// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schedule fires a job at a fixed local time on selected weekdays.
// At most one job runs at a time; a firing that arrives while the previous
// run is still in flight is skipped.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// ErrBusy reports a trigger refused because a run is in flight.
var ErrBusy = errors.New("a run is already in flight")

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday, "周日": time.Sunday, "周天": time.Sunday, "星期日": time.Sunday,
	"mon": time.Monday, "monday": time.Monday, "周一": time.Monday, "星期一": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday, "周二": time.Tuesday, "星期二": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday, "周三": time.Wednesday, "星期三": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday, "周四": time.Thursday, "星期四": time.Thursday,
	"fri": time.Friday, "friday": time.Friday, "周五": time.Friday, "星期五": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday, "周六": time.Saturday, "星期六": time.Saturday,
}

// ParseWeekday accepts English names or abbreviations in any case and
// Chinese names (周一 through 周日).
func ParseWeekday(name string) (time.Weekday, error) {
	if d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", types.ErrConfig, name)
}

// Schedule is a set of weekdays and a local time of day.
type Schedule struct {
	Days   map[time.Weekday]bool
	Hour   int
	Minute int
}

// Parse builds a Schedule from the selected_days and daily_time settings.
func Parse(days []string, dailyTime []int) (Schedule, error) {
	if len(days) == 0 {
		return Schedule{}, fmt.Errorf("%w: selected_days is empty", types.ErrConfig)
	}
	if len(dailyTime) != 2 {
		return Schedule{}, fmt.Errorf("%w: daily_time must be [hour, minute], got %v", types.ErrConfig, dailyTime)
	}
	hour, minute := dailyTime[0], dailyTime[1]
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Schedule{}, fmt.Errorf("%w: daily_time %02d:%02d is out of range", types.ErrConfig, hour, minute)
	}

	s := Schedule{Days: make(map[time.Weekday]bool, len(days)), Hour: hour, Minute: minute}
	for _, name := range days {
		d, err := ParseWeekday(name)
		if err != nil {
			return Schedule{}, err
		}
		s.Days[d] = true
	}
	return s, nil
}

// Next returns the first firing strictly after t, in t's location.
func (s Schedule) Next(t time.Time) time.Time {
	for i := 0; i <= 7; i++ {
		y, m, d := t.AddDate(0, 0, i).Date()
		at := time.Date(y, m, d, s.Hour, s.Minute, 0, 0, t.Location())
		if at.After(t) && s.Days[at.Weekday()] {
			return at
		}
	}
	return time.Time{}
}

// String renders the schedule as e.g. "Mon,Fri 08:30".
func (s Schedule) String() string {
	var days []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Days[d] {
			days = append(days, d.String()[:3])
		}
	}
	return fmt.Sprintf("%s %02d:%02d", strings.Join(days, ","), s.Hour, s.Minute)
}

// Job is the work fired by the scheduler.
type Job func(ctx context.Context) error

// Scheduler drives a Job on a Schedule.
type Scheduler struct {
	Schedule Schedule
	Job      Job
	Log      zerolog.Logger
	Metrics  *observability.Metrics

	// Now and After replace the clock in tests. Nil uses the time package.
	Now   func() time.Time
	After func(time.Duration) <-chan time.Time

	inFlight atomic.Bool
}

// Trigger runs the job now and waits for it, unless a run is in flight.
func (s *Scheduler) Trigger(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.inFlight.Store(false)
	return s.Job(ctx)
}

// InFlight reports whether a run is executing.
func (s *Scheduler) InFlight() bool {
	return s.inFlight.Load()
}

// Loop fires the job at each scheduled time until ctx is cancelled. Each
// run executes on its own goroutine; Loop waits for an in-flight run before
// returning ctx's error.
func (s *Scheduler) Loop(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	s.Log.Info().Str("schedule", s.Schedule.String()).Msg("scheduler started")
	for {
		now := s.now()
		next := s.Schedule.Next(now)
		if next.IsZero() {
			return fmt.Errorf("%w: schedule never fires", types.ErrConfig)
		}
		s.Log.Info().Time("next_run", next).Msg("waiting")

		select {
		case <-ctx.Done():
			s.Log.Info().Msg("scheduler stopping")
			return ctx.Err()
		case <-s.after(next.Sub(now)):
		}

		if !s.inFlight.CompareAndSwap(false, true) {
			s.Log.Warn().Msg("previous run still in flight, skipping")
			s.Metrics.StageSkipped("schedule")
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.inFlight.Store(false)
			if err := s.Job(ctx); err != nil {
				s.Log.Error().Err(err).Msg("scheduled run failed")
			}
		}()
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) after(d time.Duration) <-chan time.Time {
	if s.After != nil {
		return s.After(d)
	}
	return time.After(d)
}
