// Package hours decides whether a panel is inside its working hours. The
// evaluation is a pure function of the schedule and the clock; it keeps no
// state and is safe to call from any goroutine.
package hours

import (
	"fmt"
	"strings"
	"time"
)

// Day is one weekday's working window. Start and End are zero-padded 24-hour
// "HH:MM" strings, so lexical comparison equals chronological comparison.
type Day struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Weekly is a panel's working-hours schedule.
type Weekly struct {
	Enabled  bool           `json:"enabled"`
	Timezone string         `json:"timezone"`
	Notice   string         `json:"notice"`
	Days     map[string]Day `json:"schedule"`
}

// Verdict is the outcome of an evaluation.
type Verdict struct {
	OutsideHours bool
	Notice       string
}

// Evaluate maps the schedule and now to an open/closed verdict. The weekday
// and wall-clock time are resolved in the schedule's timezone; the working
// window is inclusive on both ends. A disabled schedule is always open.
func Evaluate(schedule Weekly, now time.Time) (Verdict, error) {
	if !schedule.Enabled {
		return Verdict{}, nil
	}

	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		return Verdict{}, fmt.Errorf("resolve timezone %q: %w", schedule.Timezone, err)
	}
	local := now.In(loc)

	day, ok := schedule.Days[strings.ToLower(local.Weekday().String())]
	if !ok || !day.Enabled {
		return Verdict{OutsideHours: true, Notice: schedule.Notice}, nil
	}

	current := local.Format("15:04")
	if current < day.Start || current > day.End {
		return Verdict{OutsideHours: true, Notice: schedule.Notice}, nil
	}
	return Verdict{}, nil
}
