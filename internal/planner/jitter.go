// File: internal/planner/jitter.go
package planner

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time normalized to [00:00:00, 23:59:59].
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// String renders the time as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// On anchors the time of day onto the calendar date of ref.
func (t TimeOfDay) On(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, t.Second, 0, ref.Location())
}

// Seconds returns the offset from midnight in seconds.
func (t TimeOfDay) Seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// JitteredTime computes base time plus a uniform random offset in
// [-variance, +variance] minutes, with an independently randomized seconds
// component layered on the base before the offset is applied. The result
// wraps modulo 24h: a base near midnight with a large variance rolls over
// and is interpreted as a same-day wall-clock time by the scheduler.
func (p *Planner) JitteredTime(baseHour, baseMinute, varianceMinutes int) TimeOfDay {
	seconds := p.rng.Intn(60)
	offset := 0
	if varianceMinutes > 0 {
		offset = p.rng.Intn(2*varianceMinutes+1) - varianceMinutes
	}

	total := baseHour*3600 + (baseMinute+offset)*60 + seconds
	const day = 24 * 3600
	total = ((total % day) + day) % day

	return TimeOfDay{
		Hour:   total / 3600,
		Minute: (total / 60) % 60,
		Second: total % 60,
	}
}
