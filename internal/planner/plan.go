// File: internal/planner/plan.go

// Package planner produces the randomized weekly work-location plan and the
// jittered times of day the scheduler fires at. Both consume an injected
// random source so that a fixed seed yields a reproducible plan in tests.
package planner

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Location is a work-location tag as rendered by the portal's dropdown.
type Location string

const (
	LocationOffice  Location = "office"
	LocationHome    Location = "home"
	LocationUnknown Location = "unknown"
)

// officeDaysPerWeek is the number of business days assigned to the office.
// The remaining business days are worked from home.
const officeDaysPerWeek = 3

// businessDays lists the weekdays a plan covers, in calendar order.
var businessDays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

// WeeklyPlan maps each business weekday to its assigned location. A plan is
// regenerated wholesale once a week and never mutated in place.
type WeeklyPlan map[time.Weekday]Location

// Planner generates weekly plans and jittered trigger times.
type Planner struct {
	rng    *rand.Rand
	logger *zap.Logger
}

// New creates a Planner. A nil rng falls back to a time-seeded source.
func New(rng *rand.Rand, logger *zap.Logger) *Planner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{rng: rng, logger: logger.Named("planner")}
}

// GenerateWeeklyPlan shuffles the business week and assigns the first three
// days to the office and the remaining two to home.
func (p *Planner) GenerateWeeklyPlan() WeeklyPlan {
	days := make([]time.Weekday, len(businessDays))
	copy(days, businessDays)
	p.rng.Shuffle(len(days), func(i, j int) {
		days[i], days[j] = days[j], days[i]
	})

	plan := make(WeeklyPlan, len(days))
	for i, day := range days {
		if i < officeDaysPerWeek {
			plan[day] = LocationOffice
		} else {
			plan[day] = LocationHome
		}
	}

	p.logger.Info("Weekly schedule generated.", zap.String("plan", plan.String()))
	return plan
}

// LocationFor returns the planned location for a weekday. Days outside the
// plan (weekends) report LocationUnknown.
func (w WeeklyPlan) LocationFor(day time.Weekday) Location {
	if loc, ok := w[day]; ok {
		return loc
	}
	return LocationUnknown
}

// String renders the plan in calendar order for logging.
func (w WeeklyPlan) String() string {
	days := make([]time.Weekday, 0, len(w))
	for day := range w {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		// Weekday iota starts at Sunday; order the business week Mon..Fri.
		return (int(days[i])+6)%7 < (int(days[j])+6)%7
	})

	var sb strings.Builder
	for i, day := range days {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(day.String()[:3])
		sb.WriteString("=")
		sb.WriteString(string(w[day]))
	}
	return sb.String()
}
