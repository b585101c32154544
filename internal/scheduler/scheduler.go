// File: internal/scheduler/scheduler.go

// Package scheduler owns the in-memory trigger table and the poll-driven
// run loop. The table is rebuilt wholesale once per day with freshly
// jittered times and swapped in atomically; nothing is persisted across
// process restarts.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yonosemanana/calclick/internal/config"
	"github.com/yonosemanana/calclick/internal/planner"
	"github.com/yonosemanana/calclick/internal/portal"
)

// Trigger names for the self-maintenance entries.
const (
	triggerMorning    = "morning"
	triggerEvening    = "evening"
	triggerPlanRegen  = "weekly-plan-regen"
	triggerReschedule = "daily-reschedule"
)

// Weekly plan regeneration runs at a fixed time on the first business
// weekday; the full reschedule runs at midnight every day.
var (
	planRegenDay  = time.Monday
	planRegenAt   = planner.TimeOfDay{Hour: 0, Minute: 1}
	rescheduleAt  = planner.TimeOfDay{Hour: 0, Minute: 0}
	allWeekdays   = []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}
)

// Routines is the surface of the portal state machine the scheduler
// dispatches to.
type Routines interface {
	MorningRoutine(ctx context.Context, loc planner.Location) portal.Outcome
	EveningRoutine(ctx context.Context) portal.Outcome
}

// Trigger is one (weekday, time-of-day, action) registration. Uniqueness is
// by (weekday, name): times are regenerated fresh every day, so a trigger
// fires at most once per calendar day.
type Trigger struct {
	Name    string
	Weekday time.Weekday
	At      planner.TimeOfDay

	run func(ctx context.Context)
	// firedOn marks the calendar day this trigger last ran (or was skipped
	// as already past at registration time).
	firedOn string
}

// Scheduler registers daily triggers and runs them from a single poll loop.
// One routine executes to completion before the next tick is evaluated, so
// two routines can never overlap.
type Scheduler struct {
	cfg      config.ScheduleConfig
	planner  *planner.Planner
	routines Routines
	logger   *zap.Logger

	// now and isRoutineDay are injectable for tests.
	now          func() time.Time
	isRoutineDay func(time.Weekday) bool

	mu       sync.Mutex
	triggers []*Trigger
	plan     planner.WeeklyPlan
}

// New creates a Scheduler and generates the initial weekly plan. Triggers
// are not registered until the first Reschedule call.
func New(cfg config.ScheduleConfig, pl *planner.Planner, routines Routines, logger *zap.Logger) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		planner:  pl,
		routines: routines,
		logger:   logger.Named("scheduler"),
		now:      time.Now,
	}
	s.isRoutineDay = func(day time.Weekday) bool {
		if cfg.IncludeWeekends {
			return true
		}
		return day != time.Saturday && day != time.Sunday
	}
	s.plan = pl.GenerateWeeklyPlan()
	return s
}

// Reschedule discards every registered trigger and builds a complete fresh
// table: one jittered morning time and one jittered evening time computed
// once for the current day and registered on every routine weekday, plus
// the weekly plan regeneration and the midnight self-reschedule. Calling it
// repeatedly never accumulates duplicates.
func (s *Scheduler) Reschedule() {
	now := s.now()
	morning := s.planner.JitteredTime(s.cfg.MorningHour, s.cfg.MorningMinute, s.cfg.VarianceMinutes)
	evening := s.planner.JitteredTime(s.cfg.EveningHour, s.cfg.EveningMinute, s.cfg.VarianceMinutes)

	fresh := make([]*Trigger, 0, 2*len(allWeekdays)+2)
	for _, day := range allWeekdays {
		if !s.isRoutineDay(day) {
			continue
		}
		fresh = append(fresh,
			&Trigger{Name: triggerMorning, Weekday: day, At: morning, run: s.runMorning},
			&Trigger{Name: triggerEvening, Weekday: day, At: evening, run: s.runEvening},
		)
	}
	fresh = append(fresh,
		&Trigger{Name: triggerPlanRegen, Weekday: planRegenDay, At: planRegenAt, run: s.regeneratePlan},
		&Trigger{Name: triggerReschedule, Weekday: now.Weekday(), At: rescheduleAt, run: s.runReschedule},
	)
	// The reschedule trigger must survive into tomorrow's table even though
	// it is built for "today": register it on every weekday.
	for _, day := range allWeekdays {
		if day == now.Weekday() {
			continue
		}
		fresh = append(fresh, &Trigger{Name: triggerReschedule, Weekday: day, At: rescheduleAt, run: s.runReschedule})
	}

	// Times already past today are skipped until their next occurrence,
	// so a mid-day (re)schedule never fires stale triggers immediately.
	today := dayKey(now)
	for _, t := range fresh {
		if t.Weekday == now.Weekday() && t.At.On(now).Before(now) {
			t.firedOn = today
		}
	}

	s.mu.Lock()
	s.triggers = fresh
	s.mu.Unlock()

	s.logger.Info("Daily schedule registered.",
		zap.String("morning", morning.String()),
		zap.String("evening", evening.String()),
	)
}

// Run polls the trigger table every poll interval and fires due triggers
// synchronously, in registration order. It returns when ctx is done; the
// caller handles the interrupt signal and final cleanup.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Scheduler run loop started.", zap.Duration("poll_interval", s.cfg.PollInterval))
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler run loop stopping.")
			return
		case <-ticker.C:
			s.RunPending(ctx)
		}
	}
}

// RunPending fires every trigger whose time has arrived. Exposed separately
// from Run so a single tick can be driven directly.
func (s *Scheduler) RunPending(ctx context.Context) {
	now := s.now()
	due := s.collectDue(now)
	for _, t := range due {
		if ctx.Err() != nil {
			return
		}
		s.logger.Info("Trigger due.", zap.String("trigger", t.Name), zap.String("at", t.At.String()))
		t.run(ctx)
	}
}

// collectDue snapshots the due triggers under the lock and marks them fired
// for today. The actual execution happens outside the lock: a trigger body
// (the midnight reschedule) may replace the table itself.
func (s *Scheduler) collectDue(now time.Time) []*Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := dayKey(now)
	var due []*Trigger
	for _, t := range s.triggers {
		if t.Weekday != now.Weekday() || t.firedOn == today {
			continue
		}
		if t.At.On(now).After(now) {
			continue
		}
		t.firedOn = today
		due = append(due, t)
	}
	return due
}

// Snapshot returns a copy of the registered triggers for inspection.
func (s *Scheduler) Snapshot() []Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Trigger, len(s.triggers))
	for i, t := range s.triggers {
		out[i] = *t
	}
	return out
}

// PlanFor reports the current weekly plan's location for a weekday.
func (s *Scheduler) PlanFor(day time.Weekday) planner.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan.LocationFor(day)
}

func (s *Scheduler) runMorning(ctx context.Context) {
	loc := s.PlanFor(s.now().Weekday())
	outcome := s.routines.MorningRoutine(ctx, loc)
	s.logOutcome(outcome)
}

func (s *Scheduler) runEvening(ctx context.Context) {
	outcome := s.routines.EveningRoutine(ctx)
	s.logOutcome(outcome)
}

// regeneratePlan replaces the weekly plan wholesale. The plan is never
// mutated incrementally.
func (s *Scheduler) regeneratePlan(context.Context) {
	fresh := s.planner.GenerateWeeklyPlan()
	s.mu.Lock()
	s.plan = fresh
	s.mu.Unlock()
}

func (s *Scheduler) runReschedule(context.Context) {
	s.Reschedule()
}

// logOutcome records the routine result. Failures are absorbed here; only
// the interrupt signal can stop the run loop.
func (s *Scheduler) logOutcome(o portal.Outcome) {
	if o.OK {
		s.logger.Info("Routine completed.", zap.String("routine", o.Routine), zap.String("run_id", o.RunID))
		return
	}
	s.logger.Warn("Routine did not complete.",
		zap.String("routine", o.Routine),
		zap.String("run_id", o.RunID),
		zap.String("stage", string(o.Stage)),
		zap.Error(o.Err),
	)
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
