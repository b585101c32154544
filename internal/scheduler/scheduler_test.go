// File: internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/yonosemanana/calclick/internal/config"
	"github.com/yonosemanana/calclick/internal/planner"
	"github.com/yonosemanana/calclick/internal/portal"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Fixed calendar anchors: 2025-03-03 is a Monday.
var (
	monday    = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	tuesday   = monday.AddDate(0, 0, 1)
	wednesday = monday.AddDate(0, 0, 2)
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// recordedRoutines counts dispatches instead of touching a browser.
type recordedRoutines struct {
	mu       sync.Mutex
	mornings []planner.Location
	evenings int
}

func (r *recordedRoutines) MorningRoutine(ctx context.Context, loc planner.Location) portal.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mornings = append(r.mornings, loc)
	return portal.Outcome{RunID: "test-run", Routine: "morning", OK: true}
}

func (r *recordedRoutines) EveningRoutine(ctx context.Context) portal.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evenings++
	return portal.Outcome{RunID: "test-run", Routine: "evening", OK: true}
}

func (r *recordedRoutines) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mornings), r.evenings
}

func newTestScheduler(start time.Time, mutate func(*config.ScheduleConfig)) (*Scheduler, *recordedRoutines, *fakeClock) {
	cfg := config.ScheduleConfig{
		MorningHour:     8,
		MorningMinute:   0,
		EveningHour:     16,
		EveningMinute:   0,
		VarianceMinutes: 30,
		PollInterval:    5 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	clock := &fakeClock{t: start}
	routines := &recordedRoutines{}
	pl := planner.New(rand.New(rand.NewSource(1)), zap.NewNop())

	s := New(cfg, pl, routines, zap.NewNop())
	s.now = clock.Now
	return s, routines, clock
}

// countTriggers tallies snapshot entries by name and weekday.
func countTriggers(ts []Trigger, name string, day time.Weekday) int {
	n := 0
	for _, t := range ts {
		if t.Name == name && t.Weekday == day {
			n++
		}
	}
	return n
}

func TestReschedule(t *testing.T) {
	t.Run("builds one morning and one evening trigger per business day", func(t *testing.T) {
		s, _, _ := newTestScheduler(wednesday.Add(30*time.Minute), nil)

		// Repeated calls must replace, never accumulate.
		s.Reschedule()
		s.Reschedule()

		snap := s.Snapshot()
		for _, day := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
			assert.Equal(t, 1, countTriggers(snap, triggerMorning, day), "morning on %s", day)
			assert.Equal(t, 1, countTriggers(snap, triggerEvening, day), "evening on %s", day)
		}
		for _, day := range []time.Weekday{time.Saturday, time.Sunday} {
			assert.Zero(t, countTriggers(snap, triggerMorning, day), "no morning on %s", day)
			assert.Zero(t, countTriggers(snap, triggerEvening, day), "no evening on %s", day)
		}
		assert.Equal(t, 1, countTriggers(snap, triggerPlanRegen, time.Monday))
		for _, day := range allWeekdays {
			assert.Equal(t, 1, countTriggers(snap, triggerReschedule, day), "reschedule on %s", day)
		}
	})

	t.Run("keeps jittered times inside the variance window", func(t *testing.T) {
		s, _, _ := newTestScheduler(wednesday.Add(30*time.Minute), nil)
		s.Reschedule()

		for _, trig := range s.Snapshot() {
			var base int
			switch trig.Name {
			case triggerMorning:
				base = 8 * 3600
			case triggerEvening:
				base = 16 * 3600
			default:
				continue
			}
			offset := trig.At.Seconds() - base
			assert.GreaterOrEqual(t, offset, -30*60, "%s on %s at %s", trig.Name, trig.Weekday, trig.At)
			assert.LessOrEqual(t, offset, 30*60+59, "%s on %s at %s", trig.Name, trig.Weekday, trig.At)
		}
	})

	t.Run("covers the whole week when weekends are enabled", func(t *testing.T) {
		s, _, _ := newTestScheduler(wednesday.Add(30*time.Minute), func(cfg *config.ScheduleConfig) {
			cfg.IncludeWeekends = true
		})
		s.Reschedule()

		snap := s.Snapshot()
		for _, day := range allWeekdays {
			assert.Equal(t, 1, countTriggers(snap, triggerMorning, day), "morning on %s", day)
		}
	})
}

func TestRunPending(t *testing.T) {
	ctx := context.Background()

	t.Run("fires each due trigger exactly once per day", func(t *testing.T) {
		s, routines, clock := newTestScheduler(wednesday.Add(30*time.Minute), nil)
		s.Reschedule()

		// Past the widest possible morning window, before the evening one.
		clock.Set(wednesday.Add(9*time.Hour + time.Minute))
		s.RunPending(ctx)
		s.RunPending(ctx)

		mornings, evenings := routines.counts()
		assert.Equal(t, 1, mornings)
		assert.Zero(t, evenings)

		clock.Set(wednesday.Add(17*time.Hour + time.Minute))
		s.RunPending(ctx)

		mornings, evenings = routines.counts()
		assert.Equal(t, 1, mornings)
		assert.Equal(t, 1, evenings)
	})

	t.Run("passes the planned location for the day to the morning routine", func(t *testing.T) {
		s, routines, clock := newTestScheduler(wednesday.Add(30*time.Minute), nil)
		s.Reschedule()

		clock.Set(wednesday.Add(9*time.Hour + time.Minute))
		s.RunPending(ctx)

		routines.mu.Lock()
		defer routines.mu.Unlock()
		require.Len(t, routines.mornings, 1)
		assert.Equal(t, s.PlanFor(time.Wednesday), routines.mornings[0])
	})

	t.Run("skips triggers whose time had already passed when registered", func(t *testing.T) {
		// Process started at noon: the morning slot is gone for today.
		s, routines, clock := newTestScheduler(wednesday.Add(12*time.Hour), nil)
		s.Reschedule()

		clock.Set(wednesday.Add(12*time.Hour + time.Minute))
		s.RunPending(ctx)

		mornings, _ := routines.counts()
		assert.Zero(t, mornings)

		clock.Set(wednesday.Add(17*time.Hour + 30*time.Minute))
		s.RunPending(ctx)

		mornings, evenings := routines.counts()
		assert.Zero(t, mornings, "the missed morning stays missed until tomorrow")
		assert.Equal(t, 1, evenings)
	})

	t.Run("midnight trigger rebuilds the table for the new day", func(t *testing.T) {
		s, routines, clock := newTestScheduler(tuesday.Add(23*time.Hour+59*time.Minute), nil)
		s.Reschedule()

		// Cross midnight into Wednesday: only the self-reschedule is due.
		clock.Set(wednesday.Add(5 * time.Minute))
		s.RunPending(ctx)

		mornings, evenings := routines.counts()
		assert.Zero(t, mornings)
		assert.Zero(t, evenings)

		// The rebuilt table carries a fresh, unfired morning trigger.
		clock.Set(wednesday.Add(9*time.Hour + 30*time.Minute))
		s.RunPending(ctx)

		mornings, _ = routines.counts()
		assert.Equal(t, 1, mornings)
	})

	t.Run("regenerates the weekly plan on Monday", func(t *testing.T) {
		s, _, clock := newTestScheduler(monday.Add(30*time.Second), nil)
		s.Reschedule()

		clock.Set(monday.Add(2 * time.Minute))
		s.RunPending(ctx)

		snap := s.Snapshot()
		var regen *Trigger
		for i := range snap {
			if snap[i].Name == triggerPlanRegen {
				regen = &snap[i]
			}
		}
		require.NotNil(t, regen)
		assert.Equal(t, "2025-03-03", regen.firedOn)

		// The replacement plan still honors the three-office/two-home split.
		office, home := 0, 0
		for _, day := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
			switch s.PlanFor(day) {
			case planner.LocationOffice:
				office++
			case planner.LocationHome:
				home++
			}
		}
		assert.Equal(t, 3, office)
		assert.Equal(t, 2, home)
	})
}

func TestPlanFor(t *testing.T) {
	s, _, _ := newTestScheduler(wednesday, nil)

	assert.Equal(t, planner.LocationUnknown, s.PlanFor(time.Saturday), "the plan never covers weekends")
	assert.NotEqual(t, planner.LocationUnknown, s.PlanFor(time.Monday))
}

func TestRun(t *testing.T) {
	t.Run("fires due triggers from the poll loop and stops on cancel", func(t *testing.T) {
		s, routines, clock := newTestScheduler(wednesday.Add(30*time.Minute), nil)
		s.Reschedule()
		clock.Set(wednesday.Add(9*time.Hour + time.Minute))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		s.Run(ctx)

		mornings, _ := routines.counts()
		assert.Equal(t, 1, mornings)
	})
}
